// documents.go — обработчики реестра документов.
// Проекции представлений, регистрация, правка метаданных, переходы
// статусов, удаление, массовые операции и экспорт выборки.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/godocstore/archive-module/internal/api/errors"
	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
	"github.com/bigkaa/godocstore/archive-module/internal/domain/rbac"
	"github.com/bigkaa/godocstore/archive-module/internal/domain/view"
	"github.com/bigkaa/godocstore/archive-module/internal/service"
)

// documentResponse — JSON-представление записи документа.
type documentResponse struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Author    string               `json:"author"`
	Type      string               `json:"type"`
	Keywords  string               `json:"keywords"`
	Date      time.Time            `json:"date"`
	Status    model.Status         `json:"status"`
	Size      int64                `json:"size"`
	Extension string               `json:"extension"`
	FileName  string               `json:"file_name"`
	UpdatedAt time.Time            `json:"updated_at"`
	Actions   *rbac.AllowedActions `json:"actions,omitempty"`
}

// toDocumentResponse конвертирует доменную запись в API-представление.
func toDocumentResponse(rec model.DocumentRecord, actions *rbac.AllowedActions) documentResponse {
	return documentResponse{
		ID:        rec.ID,
		Title:     rec.Title,
		Author:    rec.Author,
		Type:      rec.Type,
		Keywords:  rec.Keywords,
		Date:      rec.Date,
		Status:    rec.Status,
		Size:      rec.Size,
		Extension: rec.Extension,
		FileName:  rec.FileName,
		UpdatedAt: rec.UpdatedAt,
		Actions:   actions,
	}
}

// listResponse — ответ GET /api/v1/documents.
type listResponse struct {
	Items []documentResponse `json:"items"`
	Total int                `json:"total"`
	View  view.Name          `json:"view"`
}

// handleListDocuments — GET /api/v1/documents.
// Query-параметры: view (import/approve/archive), sort_by, sort_order,
// search, type. Возвращает проекцию снимка с векторами доступных действий.
func (h *APIHandler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	role, ok := requestRole(r)
	if !ok {
		apierrors.Forbidden(w, "Роль консоли архива не назначена")
		return
	}

	q := r.URL.Query()
	viewName := view.ViewImport
	if raw := q.Get("view"); raw != "" {
		var err error
		viewName, err = view.ParseName(raw)
		if err != nil {
			apierrors.ValidationError(w, err.Error())
			return
		}
	}

	query := view.Query{
		SortBy:     q.Get("sort_by"),
		SortOrder:  q.Get("sort_order"),
		Search:     q.Get("search"),
		FilterType: q.Get("type"),
	}.Normalize()

	items := h.documents.List(viewName, query, role)

	resp := listResponse{
		Items: make([]documentResponse, 0, len(items)),
		Total: len(items),
		View:  viewName,
	}
	for i := range items {
		actions := items[i].Actions
		resp.Items = append(resp.Items, toDocumentResponse(items[i].Record, &actions))
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetDocument — GET /api/v1/documents/{document_id}.
func (h *APIHandler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	role, ok := requestRole(r)
	if !ok {
		apierrors.Forbidden(w, "Роль консоли архива не назначена")
		return
	}

	documentID := chi.URLParam(r, "document_id")
	rec, err := h.documents.Get(r.Context(), documentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	actions := rbac.ActionsFor(role, *rec)
	writeJSON(w, http.StatusOK, toDocumentResponse(*rec, &actions))
}

// registerRequest — тело POST /api/v1/documents.
type registerRequest struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Type      string `json:"type"`
	Keywords  string `json:"keywords"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
	FileName  string `json:"file_name"`
	// Submit — true: сразу на согласование (pending), false: черновик (draft)
	Submit bool `json:"submit"`
}

// handleRegisterDocument — POST /api/v1/documents.
func (h *APIHandler) handleRegisterDocument(w http.ResponseWriter, r *http.Request) {
	role, ok := requestRole(r)
	if !ok {
		apierrors.Forbidden(w, "Роль консоли архива не назначена")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	rec, err := h.documents.Register(r.Context(), service.RegisterInput{
		Title:     req.Title,
		Author:    req.Author,
		Type:      req.Type,
		Keywords:  req.Keywords,
		Size:      req.Size,
		Extension: req.Extension,
		FileName:  req.FileName,
		Submit:    req.Submit,
	}, role)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	actions := rbac.ActionsFor(role, *rec)
	writeJSON(w, http.StatusCreated, toDocumentResponse(*rec, &actions))
}

// editRequest — тело PUT /api/v1/documents/{document_id}.
// nil-поле — метаданное не меняется.
type editRequest struct {
	Title    *string `json:"title"`
	Author   *string `json:"author"`
	Type     *string `json:"type"`
	Keywords *string `json:"keywords"`
	// BaseUpdatedAt — версия записи, на основе которой готовилась правка.
	// Отсутствует — проверка версии пропускается.
	BaseUpdatedAt time.Time `json:"base_updated_at,omitzero"`
}

// handleEditMetadata — PUT /api/v1/documents/{document_id}.
// При конфликте синхронизации возвращает 409 SYNC_CONFLICT: авторитетная
// версия уже принята сервером, клиенту следует перечитать запись.
func (h *APIHandler) handleEditMetadata(w http.ResponseWriter, r *http.Request) {
	role, ok := requestRole(r)
	if !ok {
		apierrors.Forbidden(w, "Роль консоли архива не назначена")
		return
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	documentID := chi.URLParam(r, "document_id")
	patch := model.MetadataPatch{
		Title:    req.Title,
		Author:   req.Author,
		Type:     req.Type,
		Keywords: req.Keywords,
	}

	rec, err := h.documents.EditMetadata(r.Context(), documentID, patch, req.BaseUpdatedAt, role)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	actions := rbac.ActionsFor(role, *rec)
	writeJSON(w, http.StatusOK, toDocumentResponse(*rec, &actions))
}

// transitionRequest — тело POST /api/v1/documents/{document_id}/status.
type transitionRequest struct {
	// To — целевой статус (допускается устаревшее написание "archive")
	To string `json:"to"`
	// WithEdit — переход сопровождается правкой метаданных
	WithEdit bool `json:"with_edit"`
	// Правка метаданных (учитывается только при WithEdit=true)
	Title    *string `json:"title"`
	Author   *string `json:"author"`
	Type     *string `json:"type"`
	Keywords *string `json:"keywords"`
}

// handleTransition — POST /api/v1/documents/{document_id}/status.
func (h *APIHandler) handleTransition(w http.ResponseWriter, r *http.Request) {
	role, ok := requestRole(r)
	if !ok {
		apierrors.Forbidden(w, "Роль консоли архива не назначена")
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	to, err := model.ParseStatus(req.To)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	documentID := chi.URLParam(r, "document_id")
	patch := model.MetadataPatch{
		Title:    req.Title,
		Author:   req.Author,
		Type:     req.Type,
		Keywords: req.Keywords,
	}

	rec, err := h.documents.Transition(r.Context(), documentID, to, role, req.WithEdit, patch)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	actions := rbac.ActionsFor(role, *rec)
	writeJSON(w, http.StatusOK, toDocumentResponse(*rec, &actions))
}

// handleDeleteDocument — DELETE /api/v1/documents/{document_id}.
// Отсутствие записи не ошибка: возвращается 204.
func (h *APIHandler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	role, ok := requestRole(r)
	if !ok {
		apierrors.Forbidden(w, "Роль консоли архива не назначена")
		return
	}

	documentID := chi.URLParam(r, "document_id")
	if err := h.documents.Delete(r.Context(), documentID, role); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// bulkRequest — тело POST /api/v1/documents/bulk.
type bulkRequest struct {
	// Action — transition или delete
	Action string `json:"action"`
	// To — целевой статус (только для action=transition)
	To string `json:"to"`
	// IDs — выборка документов
	IDs []string `json:"ids"`
}

// handleBulkAction — POST /api/v1/documents/bulk.
// Операция атомарна: при отказах возвращается 409 с отчётом failed,
// ни одна запись не изменяется.
func (h *APIHandler) handleBulkAction(w http.ResponseWriter, r *http.Request) {
	role, ok := requestRole(r)
	if !ok {
		apierrors.Forbidden(w, "Роль консоли архива не назначена")
		return
	}

	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	var result *service.BulkResult
	var err error

	switch req.Action {
	case "transition":
		var to model.Status
		to, err = model.ParseStatus(req.To)
		if err != nil {
			apierrors.ValidationError(w, err.Error())
			return
		}
		result, err = h.documents.BulkTransition(r.Context(), req.IDs, to, role)
	case "delete":
		result, err = h.documents.BulkDelete(r.Context(), req.IDs, role)
	default:
		apierrors.ValidationError(w, "Некорректное действие: допустимые — transition, delete")
		return
	}

	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if len(result.Failed) > 0 {
		h.logger.Warn("Массовая операция отклонена",
			slog.String("action", req.Action),
			slog.Int("failed", len(result.Failed)),
		)
		writeJSON(w, http.StatusConflict, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// exportRequest — тело POST /api/v1/documents/export.
type exportRequest struct {
	IDs []string `json:"ids"`
}

// exportResponse — ответ экспорта выборки.
type exportResponse struct {
	Items []documentResponse `json:"items"`
	Total int                `json:"total"`
}

// handleExport — POST /api/v1/documents/export.
// Возвращает записи выборки; отсутствующие в снимке пропускаются.
func (h *APIHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	role, ok := requestRole(r)
	if !ok {
		apierrors.Forbidden(w, "Роль консоли архива не назначена")
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	records, err := h.documents.Export(req.IDs, role)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := exportResponse{
		Items: make([]documentResponse, 0, len(records)),
		Total: len(records),
	}
	for _, rec := range records {
		resp.Items = append(resp.Items, toDocumentResponse(rec, nil))
	}

	w.Header().Set("Content-Disposition", `attachment; filename="documents-export.json"`)
	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh — POST /api/v1/registry/refresh.
// Полная перезагрузка in-memory снимка из PostgreSQL.
func (h *APIHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestRole(r); !ok {
		apierrors.Forbidden(w, "Роль консоли архива не назначена")
		return
	}

	if err := h.documents.Load(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
