// Пакет store — канонический in-memory снапшот реестра документов.
//
// Store хранит единственную авторитетную копию записей для текущей сессии
// и опосредует каждую мутацию: все представления читают один и тот же
// консистентный снапшот. Store не ходит в сеть — загрузку и персистентность
// выполняет вызывающая сторона (сервисный слой поверх repository).
//
// Гарантии:
//   - подмена снапшота атомарна: читатели никогда не видят
//     частично применённый патч;
//   - полная перезагрузка тегируется поколением — результат
//     вытесненной (superseded) загрузки отбрасывается;
//   - оптимистичные мутации двухфазны: staged-значение с pending-маркером
//     заменяется авторитетной записью сервера или откатывается.
//
// Экземпляр создаётся явно на старте сессии и сбрасывается при выходе;
// process-wide singleton-состояния нет.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
)

// Ошибки снапшота.
var (
	// ErrNotFound — запись с указанным id отсутствует в снапшоте.
	ErrNotFound = errors.New("запись не найдена в снапшоте")
	// ErrStaleLoad — результат загрузки вытеснен более новой загрузкой.
	ErrStaleLoad = errors.New("результат загрузки устарел и отброшен")
	// ErrAlreadyExists — запись с указанным id уже есть в снапшоте.
	ErrAlreadyExists = errors.New("запись уже существует в снапшоте")
)

// Store — in-memory снапшот реестра документов.
// Потокобезопасен: одиночный писатель (диспетчеризация UI сериализована),
// читатели видят последний зафиксированный снапшот.
type Store struct {
	mu sync.RWMutex

	// order — id в порядке вставки (для устойчивой сортировки проекций)
	order []string
	// records — текущие значения записей (включая staged)
	records map[string]model.DocumentRecord
	// pending — исходные значения записей со staged-мутацией (для отката)
	pending map[string]model.DocumentRecord

	// issuedGen — поколение последней выданной загрузки
	issuedGen uint64
}

// New создаёт пустой снапшот.
func New() *Store {
	return &Store{
		records: make(map[string]model.DocumentRecord),
		pending: make(map[string]model.DocumentRecord),
	}
}

// BeginLoad выдаёт поколение для новой полной загрузки.
// Вызывается ПЕРЕД обращением к backend; результат передаётся в Replace.
// Выдача нового поколения вытесняет все незавершённые загрузки.
func (s *Store) BeginLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issuedGen++
	return s.issuedGen
}

// Replace атомарно подменяет весь снапшот результатом загрузки gen.
// Если после выдачи gen была выдана более новая загрузка, результат
// отбрасывается с ErrStaleLoad — предыдущий снапшот сохраняется.
// Частичного слияния нет; staged-мутации сбрасываются (полная
// перезагрузка сверяет всё с сервером).
func (s *Store) Replace(gen uint64, records []model.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.issuedGen {
		return fmt.Errorf("%w: поколение %d, актуальное %d", ErrStaleLoad, gen, s.issuedGen)
	}

	order := make([]string, 0, len(records))
	byID := make(map[string]model.DocumentRecord, len(records))
	for _, rec := range records {
		if _, dup := byID[rec.ID]; dup {
			continue
		}
		order = append(order, rec.ID)
		byID[rec.ID] = rec
	}

	s.order = order
	s.records = byID
	s.pending = make(map[string]model.DocumentRecord)
	return nil
}

// Snapshot возвращает копию всех записей в порядке вставки.
func (s *Store) Snapshot() []model.DocumentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.DocumentRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// Get возвращает запись по id.
func (s *Store) Get(id string) (model.DocumentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Len возвращает количество записей в снапшоте.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Insert добавляет новую запись в конец порядка вставки.
// Возвращает ErrAlreadyExists для дубликата id.
func (s *Store) Insert(rec model.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, rec.ID)
	}
	s.order = append(s.order, rec.ID)
	s.records[rec.ID] = rec
	return nil
}

// Apply обновляет поля записи (зафиксированное значение).
// Неизвестный id — no-op, о котором сообщается ошибкой ErrNotFound.
func (s *Store) Apply(id string, patch model.MetadataPatch) (model.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return model.DocumentRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated := patch.ApplyTo(rec)
	s.records[id] = updated
	return updated, nil
}

// Remove удаляет запись. Идемпотентна: удаление несуществующего id — не ошибка.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return
	}
	delete(s.records, id)
	delete(s.pending, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Stage применяет оптимистичную (tentative) версию записи с pending-маркером.
// Исходное зафиксированное значение сохраняется для отката.
// Повторный Stage той же записи не затирает сохранённый оригинал.
func (s *Store) Stage(id string, staged model.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, already := s.pending[id]; !already {
		s.pending[id] = current
	}
	staged.ID = id
	s.records[id] = staged
	return nil
}

// Confirm заменяет staged-значение авторитетной записью сервера
// и снимает pending-маркер. Запись, отсутствующую в снапшоте,
// Confirm вставляет заново (сервер авторитетен).
func (s *Store) Confirm(id string, authoritative model.DocumentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	authoritative.ID = id
	delete(s.pending, id)
	if _, ok := s.records[id]; !ok {
		s.order = append(s.order, id)
	}
	s.records[id] = authoritative
}

// Rollback откатывает staged-мутацию к сохранённому оригиналу.
// Без pending-маркера — no-op.
func (s *Store) Rollback(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.pending[id]
	if !ok {
		return
	}
	delete(s.pending, id)
	s.records[id] = original
}

// IsPending сообщает, есть ли у записи незавершённая staged-мутация.
func (s *Store) IsPending(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pending[id]
	return ok
}

// Reset очищает снапшот (завершение сессии).
// Выданные поколения загрузок сохраняют монотонность.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.records = make(map[string]model.DocumentRecord)
	s.pending = make(map[string]model.DocumentRecord)
}
