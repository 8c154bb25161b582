// selection.go — рабочий набор выбранных записей представления.
// Selection принадлежит одному экземпляру представления: множество id
// без порядка, очищается после успешного bulk-действия.
package view

// Selection — множество выбранных id записей.
// Не потокобезопасен: принадлежит одному представлению,
// диспетчеризация UI сериализована.
type Selection struct {
	ids map[string]bool
}

// NewSelection создаёт пустой рабочий набор.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]bool)}
}

// Toggle добавляет id, если он отсутствует, и убирает, если присутствует.
func (s *Selection) Toggle(id string) {
	if s.ids[id] {
		delete(s.ids, id)
		return
	}
	s.ids[id] = true
}

// SelectAll выбирает ровно переданные видимые id (после проекции).
// Записи, скрытые текущим фильтром, в набор не попадают.
func (s *Selection) SelectAll(visibleIDs []string) {
	s.ids = make(map[string]bool, len(visibleIDs))
	for _, id := range visibleIDs {
		s.ids[id] = true
	}
}

// Clear очищает набор (после успешного bulk-действия или ухода с представления).
func (s *Selection) Clear() {
	s.ids = make(map[string]bool)
}

// Contains сообщает, выбран ли id.
func (s *Selection) Contains(id string) bool {
	return s.ids[id]
}

// Len возвращает размер набора.
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs возвращает выбранные id (копия, порядок не определён).
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}
