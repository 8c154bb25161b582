// Пакет view — проекции представлений консоли архива.
//
// Три именованных представления (import, approve, archive) — это
// материализованные срезы одного и того же снапшота реестра:
// неявный фильтр по статусам + поиск + фильтр по типу + сортировка.
// Project — чистая детерминированная функция: входной срез не изменяется,
// повторный вызов с теми же аргументами даёт тот же результат.
package view

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
)

// Name — имя представления.
type Name string

const (
	// ViewImport — очередь импорта (pending и reject)
	ViewImport Name = "import"
	// ViewApprove — очередь согласования (approved)
	ViewApprove Name = "approve"
	// ViewArchive — список архива (archived)
	ViewArchive Name = "archive"
)

// statusSets — неявные наборы статусов каждого представления.
var statusSets = map[Name]map[model.Status]bool{
	ViewImport:  {model.StatusPending: true, model.StatusReject: true},
	ViewApprove: {model.StatusApproved: true},
	ViewArchive: {model.StatusArchived: true},
}

// ParseName преобразует строку в имя представления.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := statusSets[n]; !ok {
		return "", fmt.Errorf("недопустимое представление: %q, допустимые: import, approve, archive", s)
	}
	return n, nil
}

// StatusSet возвращает набор статусов представления (копия).
func StatusSet(name Name) []model.Status {
	ordered := []model.Status{
		model.StatusDraft, model.StatusPending, model.StatusApproved,
		model.StatusArchived, model.StatusReject,
	}
	set := statusSets[name]
	var out []model.Status
	for _, s := range ordered {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// Поля сортировки.
const (
	SortByAuthor = "author"
	SortByType   = "type"
	SortByDate   = "date"
	SortByTitle  = "title"
	SortByStatus = "status"
)

// Направления сортировки.
const (
	OrderAscending  = "ascending"
	OrderDescending = "descending"
)

// Query — эфемерные параметры представления.
// Принадлежат представлению, никогда не сохраняются.
type Query struct {
	// SortBy — поле сортировки (author, type, date, title, status)
	SortBy string
	// SortOrder — направление (ascending, descending)
	SortOrder string
	// Search — поисковая строка (OR-совпадение по полям, без учёта регистра)
	Search string
	// FilterType — фильтр по типу документа ("all" или пусто — не применяется)
	FilterType string
}

// Normalize приводит query к каноническому виду: дефолтная сортировка
// date/descending, whitelist полей сортировки.
func (q Query) Normalize() Query {
	switch q.SortBy {
	case SortByAuthor, SortByType, SortByDate, SortByTitle, SortByStatus:
	default:
		q.SortBy = SortByDate
	}
	if q.SortOrder != OrderAscending {
		q.SortOrder = OrderDescending
	}
	if strings.EqualFold(q.FilterType, "all") {
		q.FilterType = ""
	}
	return q
}

// Project строит упорядоченное подмножество записей представления.
//
// Алгоритм:
//  1. фильтр по неявному набору статусов представления;
//  2. поиск: OR-совпадение подстроки (без учёта регистра) по title, author,
//     type, keywords и строковым представлениям date и status;
//  3. фильтр по типу: match-or-include — запись, найденная поиском,
//     не исключается несовпадением типа (recall важнее precision);
//  4. устойчивая сортировка: date сравнивается численно, остальные поля —
//     строками без учёта регистра; равные ключи сохраняют исходный порядок;
//  5. descending инвертирует компаратор.
//
// Возвращает новый срез; вход не изменяется.
func Project(records []model.DocumentRecord, name Name, query Query) []model.DocumentRecord {
	query = query.Normalize()
	statuses := statusSets[name]

	out := make([]model.DocumentRecord, 0, len(records))
	for _, rec := range records {
		if !statuses[rec.Status] {
			continue
		}
		if !matches(rec, query) {
			continue
		}
		out = append(out, rec)
	}

	sortRecords(out, query.SortBy, query.SortOrder)
	return out
}

// matches применяет поиск и фильтр по типу с match-or-include семантикой.
func matches(rec model.DocumentRecord, query Query) bool {
	hasSearch := query.Search != ""
	hasType := query.FilterType != ""

	searchHit := hasSearch && matchesSearch(rec, query.Search)
	typeHit := hasType && strings.EqualFold(rec.Type, query.FilterType)

	switch {
	case hasSearch && hasType:
		// Match-or-include: совпадение по поиску ИЛИ по типу
		return searchHit || typeHit
	case hasSearch:
		return searchHit
	case hasType:
		return typeHit
	default:
		return true
	}
}

// matchesSearch — OR-совпадение подстроки по полям записи (без учёта регистра).
func matchesSearch(rec model.DocumentRecord, term string) bool {
	term = strings.ToLower(term)
	fields := []string{
		rec.Title,
		rec.Author,
		rec.Type,
		rec.Keywords,
		rec.Date.Format(time.RFC3339),
		string(rec.Status),
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// sortRecords сортирует записи устойчиво по указанному полю и направлению.
func sortRecords(records []model.DocumentRecord, sortBy, sortOrder string) {
	cmp := comparator(sortBy)
	if sortOrder == OrderDescending {
		inner := cmp
		cmp = func(a, b model.DocumentRecord) int { return -inner(a, b) }
	}
	slices.SortStableFunc(records, cmp)
}

// comparator возвращает компаратор для поля сортировки.
// date — численное сравнение timestamp'ов; остальные — строки без регистра.
func comparator(sortBy string) func(a, b model.DocumentRecord) int {
	switch sortBy {
	case SortByDate:
		return func(a, b model.DocumentRecord) int {
			return a.Date.Compare(b.Date)
		}
	case SortByAuthor:
		return func(a, b model.DocumentRecord) int {
			return compareFold(a.Author, b.Author)
		}
	case SortByType:
		return func(a, b model.DocumentRecord) int {
			return compareFold(a.Type, b.Type)
		}
	case SortByStatus:
		return func(a, b model.DocumentRecord) int {
			return compareFold(string(a.Status), string(b.Status))
		}
	default: // title
		return func(a, b model.DocumentRecord) int {
			return compareFold(a.Title, b.Title)
		}
	}
}

// compareFold сравнивает строки без учёта регистра.
func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
