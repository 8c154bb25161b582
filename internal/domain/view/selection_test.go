package view

import (
	"testing"
)

// TestSelection_Toggle проверяет добавление/удаление id.
func TestSelection_Toggle(t *testing.T) {
	s := NewSelection()

	s.Toggle("d1")
	if !s.Contains("d1") || s.Len() != 1 {
		t.Fatalf("после Toggle ожидался выбранный d1, Len=1, получено Len=%d", s.Len())
	}

	s.Toggle("d1")
	if s.Contains("d1") || s.Len() != 0 {
		t.Fatalf("повторный Toggle должен убрать d1, получено Len=%d", s.Len())
	}
}

// TestSelection_SelectAllVisibleOnly — SelectAll выбирает ровно видимые id,
// скрытые фильтром записи не попадают в набор.
func TestSelection_SelectAllVisibleOnly(t *testing.T) {
	s := NewSelection()
	s.Toggle("hidden-1") // ранее выбранная, но скрытая текущим фильтром

	visible := []string{"d1", "d3"} // 2 видимых из 5 записей
	s.SelectAll(visible)

	if s.Len() != 2 {
		t.Fatalf("ожидалось ровно 2 выбранных, получено %d", s.Len())
	}
	for _, id := range visible {
		if !s.Contains(id) {
			t.Errorf("id %q должен быть выбран", id)
		}
	}
	if s.Contains("hidden-1") {
		t.Error("скрытая запись не должна оставаться в наборе")
	}
}

// TestSelection_Clear проверяет сброс набора.
func TestSelection_Clear(t *testing.T) {
	s := NewSelection()
	s.SelectAll([]string{"d1", "d2", "d3"})

	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("после Clear ожидался пустой набор, получено %d", s.Len())
	}
}

// TestSelection_IDs — IDs возвращает копию набора.
func TestSelection_IDs(t *testing.T) {
	s := NewSelection()
	s.SelectAll([]string{"d1", "d2"})

	got := s.IDs()
	if len(got) != 2 {
		t.Fatalf("ожидалось 2 id, получено %d", len(got))
	}

	// Модификация копии не влияет на набор
	got[0] = "mutated"
	if s.Contains("mutated") {
		t.Error("IDs должен возвращать копию")
	}
}
