package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/godocstore/archive-module/internal/config"
	"github.com/bigkaa/godocstore/archive-module/internal/database"
	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool; остановка контейнера через t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("docstore_test"),
		postgres.WithUsername("docstore"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("ARM_DB_HOST", host)
	os.Setenv("ARM_DB_PORT", port.Port())
	os.Setenv("ARM_DB_NAME", "docstore_test")
	os.Setenv("ARM_DB_USER", "docstore")
	os.Setenv("ARM_DB_PASSWORD", "test-password")
	os.Setenv("ARM_DB_SSL_MODE", "disable")
	os.Setenv("ARM_AUTH_ENABLED", "false")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// makeRecord возвращает тестовую запись документа в статусе draft.
func makeRecord(title string) model.DocumentRecord {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return model.DocumentRecord{
		ID:        uuid.New().String(),
		Title:     title,
		Author:    "Иванов И.И.",
		Type:      "pdf",
		Keywords:  "договор, аренда",
		Date:      now,
		Status:    model.StatusDraft,
		Size:      409600,
		Extension: "pdf",
		FileName:  "contract.pdf",
		UpdatedAt: now,
	}
}

func TestDocumentCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewDocumentRepository(pool)

	rec := makeRecord("Договор аренды №42")

	// Insert
	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() ошибка: %v", err)
	}

	// Повторный Insert того же UUID — ErrAlreadyExists
	if err := repo.Insert(ctx, rec); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("повторный Insert() = %v, хотели ErrAlreadyExists", err)
	}

	// GetByID
	got, err := repo.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Title != rec.Title {
		t.Errorf("Title = %q, хотели %q", got.Title, rec.Title)
	}
	if got.Status != model.StatusDraft {
		t.Errorf("Status = %q, хотели %q", got.Status, model.StatusDraft)
	}

	// Update — сервер БД выставляет updated_at
	got.Title = "Договор аренды №42 (ред. 2)"
	got.Status = model.StatusPending
	updated, err := repo.Update(ctx, *got)
	if err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if updated.Title != "Договор аренды №42 (ред. 2)" {
		t.Errorf("Title после Update = %q", updated.Title)
	}
	if updated.Status != model.StatusPending {
		t.Errorf("Status после Update = %q, хотели pending", updated.Status)
	}
	if !updated.UpdatedAt.After(rec.UpdatedAt) {
		t.Errorf("UpdatedAt не продвинулся: %v → %v", rec.UpdatedAt, updated.UpdatedAt)
	}

	// UpdateStatus
	approved, err := repo.UpdateStatus(ctx, rec.ID, model.StatusApproved)
	if err != nil {
		t.Fatalf("UpdateStatus() ошибка: %v", err)
	}
	if approved.Status != model.StatusApproved {
		t.Errorf("Status = %q, хотели approved", approved.Status)
	}
	// Метаданные при UpdateStatus не меняются
	if approved.Title != updated.Title {
		t.Errorf("Title изменился при UpdateStatus: %q", approved.Title)
	}

	// Delete
	if err := repo.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() после Delete = %v, хотели ErrNotFound", err)
	}

	// Повторный Delete — ErrNotFound
	if err := repo.Delete(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete() = %v, хотели ErrNotFound", err)
	}
}

func TestDocumentListAllOrder(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewDocumentRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)

	first := makeRecord("Первый")
	first.Date = base.Add(-2 * time.Hour)
	second := makeRecord("Второй")
	second.Date = base.Add(-1 * time.Hour)
	third := makeRecord("Третий")
	third.Date = base

	// Вставляем в обратном порядке
	for _, rec := range []model.DocumentRecord{third, first, second} {
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert(%s) ошибка: %v", rec.Title, err)
		}
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() ошибка: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll() вернул %d записей, хотели 3", len(all))
	}

	wantOrder := []string{"Первый", "Второй", "Третий"}
	for i, want := range wantOrder {
		if all[i].Title != want {
			t.Errorf("позиция %d: Title = %q, хотели %q", i, all[i].Title, want)
		}
	}
}

func TestDocumentBulkUpdateStatus(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewDocumentRepository(pool)

	recs := []model.DocumentRecord{
		makeRecord("Пакет 1"),
		makeRecord("Пакет 2"),
		makeRecord("Пакет 3"),
	}
	for i := range recs {
		recs[i].Status = model.StatusPending
		if err := repo.Insert(ctx, recs[i]); err != nil {
			t.Fatalf("Insert() ошибка: %v", err)
		}
	}

	ids := []string{recs[0].ID, recs[1].ID}

	affected, err := repo.BulkUpdateStatus(ctx, ids, model.StatusApproved)
	if err != nil {
		t.Fatalf("BulkUpdateStatus() ошибка: %v", err)
	}
	if affected != 2 {
		t.Errorf("affected = %d, хотели 2", affected)
	}

	// Затронуты только выбранные записи
	for _, id := range ids {
		got, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID(%s) ошибка: %v", id, err)
		}
		if got.Status != model.StatusApproved {
			t.Errorf("Status(%s) = %q, хотели approved", id, got.Status)
		}
	}
	untouched, err := repo.GetByID(ctx, recs[2].ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if untouched.Status != model.StatusPending {
		t.Errorf("невыбранная запись изменила статус: %q", untouched.Status)
	}

	// Пустая выборка — no-op
	affected, err = repo.BulkUpdateStatus(ctx, nil, model.StatusArchived)
	if err != nil {
		t.Fatalf("BulkUpdateStatus(nil) ошибка: %v", err)
	}
	if affected != 0 {
		t.Errorf("affected = %d, хотели 0", affected)
	}
}

func TestDocumentBulkDelete(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewDocumentRepository(pool)

	recs := []model.DocumentRecord{
		makeRecord("Удаляемый 1"),
		makeRecord("Удаляемый 2"),
	}
	for _, rec := range recs {
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert() ошибка: %v", err)
		}
	}

	// Несуществующий UUID в выборке не считается ошибкой
	ids := []string{recs[0].ID, recs[1].ID, uuid.New().String()}

	affected, err := repo.BulkDelete(ctx, ids)
	if err != nil {
		t.Fatalf("BulkDelete() ошибка: %v", err)
	}
	if affected != 2 {
		t.Errorf("affected = %d, хотели 2", affected)
	}

	for _, rec := range recs {
		if _, err := repo.GetByID(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByID(%s) после BulkDelete = %v, хотели ErrNotFound", rec.ID, err)
		}
	}
}
