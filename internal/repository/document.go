package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
)

// documentColumns — список столбцов таблицы document_registry для SELECT-запросов.
// DRY: одно место для всех SELECT'ов и RETURNING.
const documentColumns = `document_id, title, author, doc_type, keywords,
	doc_date, status, size, extension, file_name, updated_at`

// DocumentRepository — интерфейс доступа к реестру документов.
type DocumentRepository interface {
	// ListAll возвращает все записи реестра в порядке регистрации
	// (doc_date, при равенстве — document_id). Реестр целиком помещается
	// в память, пагинация на этом уровне не нужна.
	ListAll(ctx context.Context) ([]model.DocumentRecord, error)
	// GetByID возвращает документ по UUID.
	GetByID(ctx context.Context, documentID string) (*model.DocumentRecord, error)
	// Insert регистрирует новый документ.
	Insert(ctx context.Context, rec model.DocumentRecord) error
	// Update обновляет изменяемые метаданные и статус документа.
	// Возвращает авторитетную версию записи после обновления.
	Update(ctx context.Context, rec model.DocumentRecord) (*model.DocumentRecord, error)
	// UpdateStatus обновляет только статус документа.
	// Возвращает авторитетную версию записи после обновления.
	UpdateStatus(ctx context.Context, documentID string, status model.Status) (*model.DocumentRecord, error)
	// Delete удаляет документ. ErrNotFound, если записи нет.
	Delete(ctx context.Context, documentID string) error
	// BulkUpdateStatus переводит набор документов в указанный статус
	// одним оператором (атомарно). Возвращает число затронутых записей.
	BulkUpdateStatus(ctx context.Context, documentIDs []string, status model.Status) (int64, error)
	// BulkDelete удаляет набор документов одним оператором (атомарно).
	// Возвращает число затронутых записей.
	BulkDelete(ctx context.Context, documentIDs []string) (int64, error)
}

// documentRepo — реализация DocumentRepository через pgx.
type documentRepo struct {
	db DBTX
}

// NewDocumentRepository создаёт репозиторий документов.
func NewDocumentRepository(db DBTX) DocumentRepository {
	return &documentRepo{db: db}
}

// scanDocument сканирует одну строку результата в DocumentRecord.
func scanDocument(row pgx.Row) (*model.DocumentRecord, error) {
	d := &model.DocumentRecord{}
	err := row.Scan(
		&d.ID, &d.Title, &d.Author, &d.Type, &d.Keywords,
		&d.Date, &d.Status, &d.Size, &d.Extension, &d.FileName, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListAll возвращает все записи реестра в порядке регистрации.
func (r *documentRepo) ListAll(ctx context.Context) ([]model.DocumentRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM document_registry ORDER BY doc_date, document_id`,
		documentColumns,
	)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения реестра документов: %w", err)
	}
	defer rows.Close()

	var result []model.DocumentRecord
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования документа: %w", err)
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// GetByID возвращает документ по UUID или ErrNotFound.
func (r *documentRepo) GetByID(ctx context.Context, documentID string) (*model.DocumentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM document_registry WHERE document_id = $1`, documentColumns)

	d, err := scanDocument(r.db.QueryRow(ctx, query, documentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения документа: %w", err)
	}
	return d, nil
}

// Insert регистрирует новый документ в реестре.
func (r *documentRepo) Insert(ctx context.Context, rec model.DocumentRecord) error {
	query := `
		INSERT INTO document_registry (
			document_id, title, author, doc_type, keywords,
			doc_date, status, size, extension, file_name, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.Title, rec.Author, rec.Type, rec.Keywords,
		rec.Date, rec.Status, rec.Size, rec.Extension, rec.FileName, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("ошибка регистрации документа: %w", err)
	}
	return nil
}

// Update обновляет изменяемые метаданные и статус документа.
// doc_date, size, extension и file_name неизменяемы после регистрации.
// updated_at выставляет сервер БД: его часы — единственный источник
// времени для разрешения конфликтов синхронизации.
func (r *documentRepo) Update(ctx context.Context, rec model.DocumentRecord) (*model.DocumentRecord, error) {
	query := fmt.Sprintf(`
		UPDATE document_registry
		SET title = $2, author = $3, doc_type = $4, keywords = $5,
			status = $6, updated_at = now()
		WHERE document_id = $1
		RETURNING %s`, documentColumns)

	d, err := scanDocument(r.db.QueryRow(ctx, query,
		rec.ID, rec.Title, rec.Author, rec.Type, rec.Keywords, rec.Status,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления документа: %w", err)
	}
	return d, nil
}

// UpdateStatus обновляет только статус документа.
func (r *documentRepo) UpdateStatus(ctx context.Context, documentID string, status model.Status) (*model.DocumentRecord, error) {
	query := fmt.Sprintf(`
		UPDATE document_registry
		SET status = $2, updated_at = now()
		WHERE document_id = $1
		RETURNING %s`, documentColumns)

	d, err := scanDocument(r.db.QueryRow(ctx, query, documentID, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления статуса документа: %w", err)
	}
	return d, nil
}

// Delete удаляет документ из реестра.
func (r *documentRepo) Delete(ctx context.Context, documentID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM document_registry WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("ошибка удаления документа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkUpdateStatus переводит набор документов в указанный статус.
// Один UPDATE-оператор: либо применяется ко всем найденным записям,
// либо ни к одной.
func (r *documentRepo) BulkUpdateStatus(ctx context.Context, documentIDs []string, status model.Status) (int64, error) {
	if len(documentIDs) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE document_registry
		SET status = $2, updated_at = now()
		WHERE document_id = ANY($1)`,
		documentIDs, status,
	)
	if err != nil {
		return 0, fmt.Errorf("ошибка массового обновления статуса: %w", err)
	}
	return tag.RowsAffected(), nil
}

// BulkDelete удаляет набор документов одним оператором.
func (r *documentRepo) BulkDelete(ctx context.Context, documentIDs []string) (int64, error) {
	if len(documentIDs) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM document_registry WHERE document_id = ANY($1)`, documentIDs)
	if err != nil {
		return 0, fmt.Errorf("ошибка массового удаления: %w", err)
	}
	return tag.RowsAffected(), nil
}
