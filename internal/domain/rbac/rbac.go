// Пакет rbac — матрица прав ролей консоли архива.
// Чистая функция CanPerform(role, action, record): без побочных эффектов,
// безопасна для повторных и конкурентных вызовов.
// Проверки переходов делегируются таблице guard'ов пакета lifecycle —
// вторая таблица сравнений ролей здесь не дублируется.
package rbac

import (
	"github.com/bigkaa/godocstore/archive-module/internal/domain/lifecycle"
	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
)

// Action — действие над записью документа.
type Action string

const (
	// ActionView — просмотр записи
	ActionView Action = "view"
	// ActionEditMetadata — правка изменяемых метаданных
	ActionEditMetadata Action = "edit_metadata"
	// ActionDelete — удаление записи
	ActionDelete Action = "delete"
	// ActionExport — выгрузка записи (bulk export)
	ActionExport Action = "export"
)

// CanPerform проверяет, разрешено ли роли действие над записью.
//
// Правила:
//   - view, export: разрешены всем аутентифицированным ролям;
//   - edit_metadata: admin — всегда; editor — пока запись не в archived;
//   - delete: admin — всегда; любая роль — для записей в reject
//     (самостоятельная уборка отклонённых загрузок).
//
// Для проверки переходов статуса используйте CanTransition.
func CanPerform(role model.Role, action Action, rec model.DocumentRecord) bool {
	if !model.IsValidRole(role) {
		return false
	}

	switch action {
	case ActionView, ActionExport:
		return true
	case ActionEditMetadata:
		if role == model.RoleAdmin {
			return true
		}
		return role == model.RoleEditor && rec.Status != model.StatusArchived
	case ActionDelete:
		if role == model.RoleAdmin {
			return true
		}
		return rec.Status == model.StatusReject
	default:
		return false
	}
}

// CanTransition проверяет, разрешён ли роли переход записи в статус to.
// Делегирует таблице guard'ов lifecycle.
func CanTransition(role model.Role, rec model.DocumentRecord, to model.Status) bool {
	return lifecycle.RoleAllowed(role, rec.Status, to)
}

// AllowedActions — вектор доступных действий над записью для роли.
// Используется API для условного отображения кнопок в UI.
type AllowedActions struct {
	Edit   bool           `json:"edit"`
	Delete bool           `json:"delete"`
	Export bool           `json:"export"`
	To     []model.Status `json:"transitions,omitempty"`
}

// ActionsFor вычисляет вектор доступных действий для роли и записи.
func ActionsFor(role model.Role, rec model.DocumentRecord) AllowedActions {
	return AllowedActions{
		Edit:   CanPerform(role, ActionEditMetadata, rec),
		Delete: CanPerform(role, ActionDelete, rec),
		Export: CanPerform(role, ActionExport, rec),
		To:     lifecycle.TargetsFor(role, rec.Status),
	}
}
