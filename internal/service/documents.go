// documents.go — сервис реестра документов.
// Координирует in-memory снимок (store), автомат статусов (lifecycle),
// проверки прав (rbac), репозиторий PostgreSQL, LRU-кэш и Prometheus-метрики.
//
// Все мутации идут по двухфазной схеме: Stage в снимке → запись в
// PostgreSQL → Confirm авторитетной версией либо Rollback. Снимок
// никогда не расходится с реестром дольше, чем на время одной записи.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/godocstore/archive-module/internal/domain/lifecycle"
	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
	"github.com/bigkaa/godocstore/archive-module/internal/domain/rbac"
	"github.com/bigkaa/godocstore/archive-module/internal/domain/view"
	"github.com/bigkaa/godocstore/archive-module/internal/repository"
	"github.com/bigkaa/godocstore/archive-module/internal/store"
)

// Prometheus-метрики сервиса документов.
var (
	registryRefreshTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arm_registry_refresh_total",
		Help: "Общее количество полных перезагрузок реестра из PostgreSQL.",
	})
	registryDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arm_registry_documents",
		Help: "Текущее количество документов в in-memory снимке реестра.",
	})
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arm_transitions_total",
		Help: "Общее количество переходов статусов документов.",
	}, []string{"to"})
	syncConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arm_sync_conflicts_total",
		Help: "Общее количество конфликтов синхронизации, разрешённых в пользу реестра.",
	})
	bulkActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arm_bulk_actions_total",
		Help: "Общее количество массовых операций над выборкой документов.",
	}, []string{"action"})
)

// DocumentView — запись документа вместе с вектором доступных действий.
// Отдаётся API для условного отображения элементов управления в консоли.
type DocumentView struct {
	Record  model.DocumentRecord
	Actions rbac.AllowedActions
}

// RegisterInput — входные данные регистрации документа.
type RegisterInput struct {
	// Title — название (обязательное)
	Title string
	// Author — автор
	Author string
	// Type — тип документа (pdf, doc, ...)
	Type string
	// Keywords — ключевые слова через запятую
	Keywords string
	// Size — размер файла в байтах
	Size int64
	// Extension — расширение файла без точки
	Extension string
	// FileName — имя файла в хранилище
	FileName string
	// Submit — true: сразу на согласование (pending), false: черновик (draft)
	Submit bool
}

// BulkFailure — причина отказа для одного документа массовой операции.
type BulkFailure struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// BulkResult — итог массовой операции.
// Операция атомарна: при непустом Failed ни одна запись не изменена.
type BulkResult struct {
	Affected int           `json:"affected"`
	Failed   []BulkFailure `json:"failed,omitempty"`
}

// DocumentService — сервис реестра документов.
type DocumentService struct {
	repo   repository.DocumentRepository
	store  *store.Store
	cache  *CacheService
	logger *slog.Logger
}

// NewDocumentService создаёт сервис реестра документов.
func NewDocumentService(
	repo repository.DocumentRepository,
	st *store.Store,
	cache *CacheService,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		repo:   repo,
		store:  st,
		cache:  cache,
		logger: logger.With(slog.String("component", "document_service")),
	}
}

// Load выполняет полную перезагрузку снимка из PostgreSQL.
// Поколение выдаётся до чтения: если за время чтения стартовала более
// новая перезагрузка, устаревший результат отбрасывается без ошибки.
func (s *DocumentService) Load(ctx context.Context) error {
	gen := s.store.BeginLoad()

	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("загрузка реестра: %w", err)
	}

	if err := s.store.Replace(gen, records); err != nil {
		if errors.Is(err, store.ErrStaleLoad) {
			s.logger.Debug("Результат перезагрузки устарел, отброшен",
				slog.Uint64("generation", gen),
			)
			return nil
		}
		return fmt.Errorf("замена снимка: %w", err)
	}

	s.cache.Purge()
	registryRefreshTotal.Inc()
	registryDocuments.Set(float64(s.store.Len()))

	s.logger.Info("Реестр перезагружен",
		slog.Int("documents", len(records)),
		slog.Uint64("generation", gen),
	)
	return nil
}

// List возвращает проекцию снимка для представления name с учётом
// фильтра, поиска и сортировки. Для каждой записи вычисляется вектор
// доступных действий роли role.
func (s *DocumentService) List(name view.Name, query view.Query, role model.Role) []DocumentView {
	records := view.Project(s.store.Snapshot(), name, query)

	result := make([]DocumentView, 0, len(records))
	for _, rec := range records {
		result = append(result, DocumentView{
			Record:  rec,
			Actions: rbac.ActionsFor(role, rec),
		})
	}
	return result
}

// Get возвращает документ по ID: сначала LRU-кэш, затем снимок,
// затем PostgreSQL (с кэшированием результата).
func (s *DocumentService) Get(ctx context.Context, documentID string) (*model.DocumentRecord, error) {
	if rec, ok := s.cache.Get(documentID); ok {
		return rec, nil
	}

	if rec, ok := s.store.Get(documentID); ok {
		s.cache.Set(documentID, &rec)
		return &rec, nil
	}

	rec, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение документа: %w", err)
	}

	s.cache.Set(documentID, rec)
	return rec, nil
}

// Register регистрирует новый документ в реестре.
// Submit=false сохраняет черновик (draft), Submit=true сразу
// отправляет на согласование (pending).
func (s *DocumentService) Register(ctx context.Context, input RegisterInput, role model.Role) (*model.DocumentRecord, error) {
	if role != model.RoleEditor && role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: регистрация документов доступна ролям editor и admin", ErrPermissionDenied)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: название документа обязательно", ErrValidation)
	}

	status := model.StatusDraft
	if input.Submit {
		status = model.StatusPending
	}

	now := time.Now().UTC()
	rec := model.DocumentRecord{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(input.Title),
		Author:    strings.TrimSpace(input.Author),
		Type:      strings.ToLower(strings.TrimSpace(input.Type)),
		Keywords:  strings.TrimSpace(input.Keywords),
		Date:      now,
		Status:    status,
		Size:      input.Size,
		Extension: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(input.Extension), ".")),
		FileName:  input.FileName,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("регистрация документа: %w", err)
	}

	if err := s.store.Insert(rec); err != nil {
		// Запись уже попала в снимок через параллельную перезагрузку.
		s.logger.Debug("Документ уже присутствует в снимке",
			slog.String("document_id", rec.ID),
		)
	}
	s.cache.Set(rec.ID, &rec)
	registryDocuments.Set(float64(s.store.Len()))

	s.logger.Info("Документ зарегистрирован",
		slog.String("document_id", rec.ID),
		slog.String("status", string(rec.Status)),
	)
	return &rec, nil
}

// EditMetadata применяет частичную правку метаданных документа.
//
// baseUpdatedAt — версия записи, на основе которой клиент готовил правку
// (zero value — проверка версии пропускается). Если реестр содержит более
// свежую версию, правка отклоняется с ErrSyncConflict, а авторитетная
// версия принимается в снимок (last-write-wins в пользу реестра).
func (s *DocumentService) EditMetadata(ctx context.Context, documentID string, patch model.MetadataPatch, baseUpdatedAt time.Time, role model.Role) (*model.DocumentRecord, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: правка не содержит изменений", ErrValidation)
	}

	rec, ok := s.store.Get(documentID)
	if !ok {
		return nil, ErrNotFound
	}

	if !rbac.CanPerform(role, rbac.ActionEditMetadata, rec) {
		return nil, fmt.Errorf("%w: правка метаданных недоступна роли %s для статуса %s",
			ErrPermissionDenied, role, rec.Status)
	}

	if !baseUpdatedAt.IsZero() && rec.UpdatedAt.After(baseUpdatedAt) {
		return s.adoptAuthoritative(ctx, documentID)
	}

	staged := patch.ApplyTo(rec)
	if err := s.store.Stage(documentID, staged); err != nil {
		return nil, ErrNotFound
	}

	authoritative, err := s.repo.Update(ctx, staged)
	if err != nil {
		s.store.Rollback(documentID)
		if errors.Is(err, repository.ErrNotFound) {
			// Запись исчезла из реестра: убираем и из снимка.
			s.store.Remove(documentID)
			s.cache.Delete(documentID)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("правка метаданных: %w", err)
	}

	s.store.Confirm(documentID, *authoritative)
	s.cache.Set(documentID, authoritative)

	s.logger.Info("Метаданные документа обновлены",
		slog.String("document_id", documentID),
		slog.String("status", string(authoritative.Status)),
		slog.String("role", string(role)),
	)
	return authoritative, nil
}

// adoptAuthoritative принимает авторитетную версию записи из PostgreSQL
// в снимок и возвращает ErrSyncConflict.
func (s *DocumentService) adoptAuthoritative(ctx context.Context, documentID string) (*model.DocumentRecord, error) {
	syncConflictsTotal.Inc()

	authoritative, err := s.repo.GetByID(ctx, documentID)
	if err == nil {
		s.store.Confirm(documentID, *authoritative)
		s.cache.Set(documentID, authoritative)
	}

	s.logger.Warn("Конфликт синхронизации: принята версия реестра",
		slog.String("document_id", documentID),
	)
	return authoritative, ErrSyncConflict
}

// Transition переводит документ в статус to от имени роли role.
// withEdit сопровождает переход правкой метаданных (обязательно для
// reject → pending); patch может быть пустым при withEdit=false.
func (s *DocumentService) Transition(ctx context.Context, documentID string, to model.Status, role model.Role, withEdit bool, patch model.MetadataPatch) (*model.DocumentRecord, error) {
	rec, ok := s.store.Get(documentID)
	if !ok {
		return nil, ErrNotFound
	}

	staged, err := lifecycle.Transition(rec, to, role, withEdit)
	if err != nil {
		return nil, mapTransitionError(err)
	}
	if withEdit && !patch.IsEmpty() {
		staged = patch.ApplyTo(staged)
		staged.Status = to
	}

	if err := s.store.Stage(documentID, staged); err != nil {
		return nil, ErrNotFound
	}

	var authoritative *model.DocumentRecord
	if withEdit && !patch.IsEmpty() {
		authoritative, err = s.repo.Update(ctx, staged)
	} else {
		authoritative, err = s.repo.UpdateStatus(ctx, documentID, to)
	}
	if err != nil {
		s.store.Rollback(documentID)
		if errors.Is(err, repository.ErrNotFound) {
			s.store.Remove(documentID)
			s.cache.Delete(documentID)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("переход статуса: %w", err)
	}

	s.store.Confirm(documentID, *authoritative)
	s.cache.Set(documentID, authoritative)
	transitionsTotal.WithLabelValues(string(to)).Inc()

	s.logger.Info("Статус документа изменён",
		slog.String("document_id", documentID),
		slog.String("from", string(rec.Status)),
		slog.String("to", string(to)),
	)
	return authoritative, nil
}

// mapTransitionError переводит ошибку автомата статусов в ошибку сервисного слоя.
func mapTransitionError(err error) error {
	var terr *lifecycle.TransitionError
	if !errors.As(err, &terr) {
		return err
	}
	switch terr.Code {
	case lifecycle.CodePermissionDenied:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, terr.Message)
	case lifecycle.CodeEditRequired:
		return fmt.Errorf("%w: %s", ErrEditRequired, terr.Message)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidTransition, terr.Message)
	}
}

// Delete удаляет документ из реестра.
// Отсутствие записи не считается ошибкой: цель операции уже достигнута.
func (s *DocumentService) Delete(ctx context.Context, documentID string, role model.Role) error {
	rec, ok := s.store.Get(documentID)
	if !ok {
		return nil
	}

	if !rbac.CanPerform(role, rbac.ActionDelete, rec) {
		return fmt.Errorf("%w: удаление недоступно роли %s для статуса %s",
			ErrPermissionDenied, role, rec.Status)
	}

	if err := s.repo.Delete(ctx, documentID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("удаление документа: %w", err)
	}

	s.store.Remove(documentID)
	s.cache.Delete(documentID)
	registryDocuments.Set(float64(s.store.Len()))

	s.logger.Info("Документ удалён", slog.String("document_id", documentID))
	return nil
}

// BulkTransition переводит выборку документов в статус to.
// Операция атомарна: сначала проверяются все записи, при любом отказе
// ни одна не изменяется, а список отказов возвращается клиенту.
// После успешной записи снимок перезагружается целиком.
func (s *DocumentService) BulkTransition(ctx context.Context, documentIDs []string, to model.Status, role model.Role) (*BulkResult, error) {
	if len(documentIDs) == 0 {
		return nil, fmt.Errorf("%w: пустая выборка", ErrValidation)
	}

	// Selection схлопывает дубликаты id в выборке.
	sel := view.NewSelection()
	sel.SelectAll(documentIDs)

	result := &BulkResult{}
	unique := make([]string, 0, sel.Len())
	for _, id := range documentIDs {
		if !sel.Contains(id) {
			continue
		}
		sel.Toggle(id)
		unique = append(unique, id)

		rec, ok := s.store.Get(id)
		if !ok {
			result.Failed = append(result.Failed, BulkFailure{
				ID: id, Code: "NOT_FOUND", Reason: "документ не найден",
			})
			continue
		}
		if err := lifecycle.Validate(lifecycle.Request{
			From: rec.Status, To: to, Role: role,
		}); err != nil {
			var terr *lifecycle.TransitionError
			failure := BulkFailure{ID: id, Code: lifecycle.CodeInvalidTransition, Reason: err.Error()}
			if errors.As(err, &terr) {
				failure.Code = terr.Code
				failure.Reason = terr.Message
			}
			result.Failed = append(result.Failed, failure)
		}
	}
	if len(result.Failed) > 0 {
		return result, nil
	}

	affected, err := s.repo.BulkUpdateStatus(ctx, unique, to)
	if err != nil {
		return nil, fmt.Errorf("массовый переход статуса: %w", err)
	}
	result.Affected = int(affected)
	bulkActionsTotal.WithLabelValues("transition").Inc()

	if err := s.Load(ctx); err != nil {
		s.logger.Error("Перезагрузка снимка после массовой операции не удалась",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("Массовый переход статуса выполнен",
		slog.Int("affected", result.Affected),
		slog.String("to", string(to)),
	)
	return result, nil
}

// BulkDelete удаляет выборку документов.
// Отсутствующие записи пропускаются без отказа, проверки прав идут по
// фактическому статусу каждой записи. Операция атомарна.
func (s *DocumentService) BulkDelete(ctx context.Context, documentIDs []string, role model.Role) (*BulkResult, error) {
	if len(documentIDs) == 0 {
		return nil, fmt.Errorf("%w: пустая выборка", ErrValidation)
	}

	sel := view.NewSelection()
	sel.SelectAll(documentIDs)

	result := &BulkResult{}
	present := make([]string, 0, sel.Len())
	for _, id := range documentIDs {
		if !sel.Contains(id) {
			continue
		}
		sel.Toggle(id)

		rec, ok := s.store.Get(id)
		if !ok {
			// Уже удалён — цель достигнута.
			continue
		}
		if !rbac.CanPerform(role, rbac.ActionDelete, rec) {
			result.Failed = append(result.Failed, BulkFailure{
				ID:     id,
				Code:   "PERMISSION_DENIED",
				Reason: fmt.Sprintf("удаление недоступно роли %s для статуса %s", role, rec.Status),
			})
			continue
		}
		present = append(present, id)
	}
	if len(result.Failed) > 0 {
		return result, nil
	}

	affected, err := s.repo.BulkDelete(ctx, present)
	if err != nil {
		return nil, fmt.Errorf("массовое удаление: %w", err)
	}
	result.Affected = int(affected)
	bulkActionsTotal.WithLabelValues("delete").Inc()

	for _, id := range present {
		s.store.Remove(id)
		s.cache.Delete(id)
	}
	registryDocuments.Set(float64(s.store.Len()))

	s.logger.Info("Массовое удаление выполнено", slog.Int("affected", result.Affected))
	return result, nil
}

// Export возвращает записи выборки для экспорта.
// Отсутствующие записи пропускаются: экспортируется то, что есть в снимке.
func (s *DocumentService) Export(documentIDs []string, role model.Role) ([]model.DocumentRecord, error) {
	if len(documentIDs) == 0 {
		return nil, fmt.Errorf("%w: пустая выборка", ErrValidation)
	}
	if !model.IsValidRole(role) {
		return nil, fmt.Errorf("%w: недопустимая роль %q", ErrPermissionDenied, role)
	}

	sel := view.NewSelection()
	sel.SelectAll(documentIDs)

	result := make([]model.DocumentRecord, 0, sel.Len())
	for _, id := range documentIDs {
		if !sel.Contains(id) {
			continue
		}
		sel.Toggle(id)
		if rec, ok := s.store.Get(id); ok {
			result = append(result, rec)
		}
	}
	bulkActionsTotal.WithLabelValues("export").Inc()
	return result, nil
}
