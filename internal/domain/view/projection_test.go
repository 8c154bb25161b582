package view

import (
	"testing"
	"time"

	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// testRecords — фиксированный набор записей для проверок проекции.
func testRecords() []model.DocumentRecord {
	return []model.DocumentRecord{
		{ID: "d1", Title: "Contrat de bail", Author: "Dupont", Type: "pdf", Keywords: "Dupont, 2024, juridique", Date: date("2024-03-14"), Status: model.StatusPending},
		{ID: "d2", Title: "Facture mars", Author: "Martin", Type: "doc", Keywords: "comptabilité", Date: date("2024-03-15"), Status: model.StatusPending},
		{ID: "d3", Title: "Rapport annuel", Author: "Bernard", Type: "pdf", Keywords: "finance", Date: date("2024-02-01"), Status: model.StatusReject},
		{ID: "d4", Title: "Acte notarié", Author: "Dupont", Type: "pdf", Keywords: "juridique", Date: date("2024-01-20"), Status: model.StatusApproved},
		{ID: "d5", Title: "Inventaire 2023", Author: "Martin", Type: "xls", Keywords: "stock", Date: date("2023-12-30"), Status: model.StatusArchived},
	}
}

func ids(records []model.DocumentRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func assertIDs(t *testing.T, got []model.DocumentRecord, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("получено %v, хотели %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("получено %v, хотели %v", gotIDs, want)
		}
	}
}

// TestProject_StatusSets проверяет неявные наборы статусов представлений.
func TestProject_StatusSets(t *testing.T) {
	records := testRecords()

	// import: pending + reject, сортировка по дате descending по умолчанию
	got := Project(records, ViewImport, Query{})
	assertIDs(t, got, "d2", "d1", "d3")

	// approve: только approved
	got = Project(records, ViewApprove, Query{})
	assertIDs(t, got, "d4")

	// archive: только archived
	got = Project(records, ViewArchive, Query{})
	assertIDs(t, got, "d5")
}

// TestProject_SearchOrMatch — OR-совпадение по полям, без учёта регистра.
func TestProject_SearchOrMatch(t *testing.T) {
	records := testRecords()

	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{name: "по keywords без учёта регистра", search: "dupont", want: []string{"d1"}},
		{name: "по автору", search: "martin", want: []string{"d2"}},
		{name: "по названию", search: "rapport", want: []string{"d3"}},
		{name: "по статусу", search: "reject", want: []string{"d3"}},
		{name: "по дате", search: "2024-03-15", want: []string{"d2"}},
		{name: "нет совпадений", search: "xyz", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(records, ViewImport, Query{Search: tt.search})
			assertIDs(t, got, tt.want...)
		})
	}
}

// TestProject_TypeFilterMatchOrInclude — фильтр по типу не исключает
// записи, найденные поиском (recall важнее precision).
func TestProject_TypeFilterMatchOrInclude(t *testing.T) {
	records := testRecords()

	// Только фильтр по типу: pdf среди import — d1 и d3
	got := Project(records, ViewImport, Query{FilterType: "pdf"})
	assertIDs(t, got, "d1", "d3")

	// Фильтр "all" — не применяется
	got = Project(records, ViewImport, Query{FilterType: "all"})
	assertIDs(t, got, "d2", "d1", "d3")

	// Поиск по martin + фильтр pdf: d2 (doc) найден поиском и не исключается,
	// d1 и d3 проходят по типу
	got = Project(records, ViewImport, Query{Search: "martin", FilterType: "pdf"})
	assertIDs(t, got, "d2", "d1", "d3")
}

// TestProject_SortDate — численная сортировка по дате в обе стороны.
func TestProject_SortDate(t *testing.T) {
	records := []model.DocumentRecord{
		{ID: "a", Title: "A", Date: date("2024-03-14"), Status: model.StatusPending},
		{ID: "b", Title: "B", Date: date("2024-03-15"), Status: model.StatusPending},
	}

	got := Project(records, ViewImport, Query{SortBy: SortByDate, SortOrder: OrderDescending})
	assertIDs(t, got, "b", "a")

	got = Project(records, ViewImport, Query{SortBy: SortByDate, SortOrder: OrderAscending})
	assertIDs(t, got, "a", "b")
}

// TestProject_SortStringsCaseInsensitive — строковые поля сортируются
// без учёта регистра.
func TestProject_SortStringsCaseInsensitive(t *testing.T) {
	records := []model.DocumentRecord{
		{ID: "a", Title: "beta", Author: "zola", Status: model.StatusPending},
		{ID: "b", Title: "Alpha", Author: "Arnaud", Status: model.StatusPending},
	}

	got := Project(records, ViewImport, Query{SortBy: SortByTitle, SortOrder: OrderAscending})
	assertIDs(t, got, "b", "a")

	got = Project(records, ViewImport, Query{SortBy: SortByAuthor, SortOrder: OrderAscending})
	assertIDs(t, got, "b", "a")
}

// TestProject_StableSort — равные ключи сохраняют исходный порядок
// между повторными вызовами.
func TestProject_StableSort(t *testing.T) {
	same := date("2024-03-14")
	records := []model.DocumentRecord{
		{ID: "first", Title: "Doc", Date: same, Status: model.StatusPending},
		{ID: "second", Title: "Doc", Date: same, Status: model.StatusPending},
		{ID: "third", Title: "Doc", Date: same, Status: model.StatusPending},
	}

	for i := 0; i < 5; i++ {
		got := Project(records, ViewImport, Query{SortBy: SortByDate, SortOrder: OrderAscending})
		assertIDs(t, got, "first", "second", "third")
	}
}

// TestProject_Idempotent — повторный вызов с теми же аргументами
// даёт тот же результат, вход не изменяется.
func TestProject_Idempotent(t *testing.T) {
	records := testRecords()
	query := Query{Search: "dupont", SortBy: SortByTitle}

	first := Project(records, ViewImport, query)
	second := Project(records, ViewImport, query)
	assertIDs(t, second, ids(first)...)

	// Вход не изменён
	if records[0].ID != "d1" || records[4].ID != "d5" {
		t.Error("Project изменил входной срез")
	}
}

// TestProject_EmptyInput — пустой вход даёт пустой результат.
func TestProject_EmptyInput(t *testing.T) {
	if got := Project(nil, ViewImport, Query{}); len(got) != 0 {
		t.Errorf("ожидался пустой результат, получено %v", ids(got))
	}
}

// TestParseName проверяет разбор имени представления.
func TestParseName(t *testing.T) {
	tests := []struct {
		in      string
		want    Name
		wantErr bool
	}{
		{in: "import", want: ViewImport},
		{in: "Approve", want: ViewApprove},
		{in: " archive ", want: ViewArchive},
		{in: "dashboard", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseName(%q): ожидалась ошибка", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseName(%q): неожиданная ошибка: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseName(%q) = %q, хотели %q", tt.in, got, tt.want)
		}
	}
}

// TestQueryNormalize — whitelist полей сортировки и дефолты.
func TestQueryNormalize(t *testing.T) {
	q := Query{SortBy: "size", SortOrder: "up", FilterType: "ALL"}.Normalize()
	if q.SortBy != SortByDate {
		t.Errorf("SortBy = %q, хотели date", q.SortBy)
	}
	if q.SortOrder != OrderDescending {
		t.Errorf("SortOrder = %q, хотели descending", q.SortOrder)
	}
	if q.FilterType != "" {
		t.Errorf("FilterType = %q, хотели пустую строку", q.FilterType)
	}
}
