// handler.go — основной обработчик API Archive Module.
// Объединяет health и бизнес-обработчики, регистрирует маршруты chi.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/godocstore/archive-module/internal/api/errors"
	"github.com/bigkaa/godocstore/archive-module/internal/api/middleware"
	"github.com/bigkaa/godocstore/archive-module/internal/api/openapi"
	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
	"github.com/bigkaa/godocstore/archive-module/internal/service"
)

// APIHandler — основной обработчик API Archive Module.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health    *HealthHandler
	documents *service.DocumentService
	logger    *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	documents *service.DocumentService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:    health,
		documents: documents,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует маршруты API на роутере chi.
func (h *APIHandler) Routes(router chi.Router) {
	// Health и метрики
	router.Get("/health/live", h.health.HealthLive)
	router.Get("/health/ready", h.health.HealthReady)
	router.Get("/metrics", h.health.GetMetrics)

	// Реестр документов
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/documents", h.handleListDocuments)
		r.Post("/documents", h.handleRegisterDocument)
		r.Post("/documents/bulk", h.handleBulkAction)
		r.Post("/documents/export", h.handleExport)
		r.Get("/documents/{document_id}", h.handleGetDocument)
		r.Put("/documents/{document_id}", h.handleEditMetadata)
		r.Delete("/documents/{document_id}", h.handleDeleteDocument)
		r.Post("/documents/{document_id}/status", h.handleTransition)
		r.Post("/registry/refresh", h.handleRefresh)
		r.Get("/openapi.json", h.handleOpenAPISpec)
	})
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// requestRole определяет effective роль запроса.
// Основной источник — JWT claims. Заголовок X-Archive-Role учитывается
// только при отсутствии claims (режим ARM_AUTH_ENABLED=false для
// локальной разработки).
func requestRole(r *http.Request) (model.Role, bool) {
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		if claims.EffectiveRole == "" {
			return "", false
		}
		return claims.EffectiveRole, true
	}

	if header := r.Header.Get("X-Archive-Role"); header != "" {
		role, err := model.ParseRole(header)
		if err != nil {
			return "", false
		}
		return role, true
	}

	return "", false
}

// handleOpenAPISpec — GET /api/v1/openapi.json.
// Отдаёт встроенное описание API распарсенным документом.
func (h *APIHandler) handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	doc, err := openapi.Spec()
	if err != nil {
		h.logger.Error("Ошибка загрузки OpenAPI-документа", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Описание API недоступно")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Документ не найден")
	case errors.Is(err, service.ErrPermissionDenied):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		apierrors.InvalidTransition(w, err.Error())
	case errors.Is(err, service.ErrEditRequired):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrSyncConflict):
		apierrors.SyncConflict(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
