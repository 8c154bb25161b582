// Пакет lifecycle — конечный автомат статусов документа.
//
// Жизненный цикл: draft/pending → approved → archived, с ветвью отклонения
// draft/pending → reject и возвратом reject → pending после правки.
// archived — терминальный статус; reject — восстановимый терминальный.
//
// Единственная таблица guard'ов для всех переходов: каждая точка вызова
// обязана проходить через CanTransition/Transition, а не сравнивать
// статусы и роли строками.
package lifecycle

import (
	"fmt"

	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
)

// transitionKey — пара (из, в) для индексации таблицы переходов.
type transitionKey struct {
	from model.Status
	to   model.Status
}

// transitionGuard — условия допустимости перехода.
type transitionGuard struct {
	// roles — роли, которым разрешён переход
	roles map[model.Role]bool
	// requiresEdit — переход обязан сопровождаться правкой метаданных
	// (reject → pending: повторная отправка после исправления)
	requiresEdit bool
}

// guardTable — матрица допустимых переходов.
// Любая пара (from, to), отсутствующая в таблице, недопустима.
var guardTable = map[transitionKey]transitionGuard{
	{model.StatusDraft, model.StatusApproved}:   {roles: roleSet(model.RoleApprover, model.RoleAdmin)},
	{model.StatusPending, model.StatusApproved}: {roles: roleSet(model.RoleApprover, model.RoleAdmin)},
	{model.StatusDraft, model.StatusReject}:     {roles: roleSet(model.RoleApprover, model.RoleAdmin)},
	{model.StatusPending, model.StatusReject}:   {roles: roleSet(model.RoleApprover, model.RoleAdmin)},
	{model.StatusApproved, model.StatusArchived}: {
		roles: roleSet(model.RoleArchiviste, model.RoleAdmin),
	},
	{model.StatusReject, model.StatusPending}: {
		roles:        roleSet(model.RoleEditor, model.RoleAdmin),
		requiresEdit: true,
	},
}

// TransitionError — ошибка перехода между статусами.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_TRANSITION, PERMISSION_DENIED, EDIT_REQUIRED)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Коды ошибок переходов.
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeEditRequired      = "EDIT_REQUIRED"
)

// Request — запрос на переход статуса.
type Request struct {
	// From — текущий статус записи
	From model.Status
	// To — целевой статус
	To model.Status
	// Role — роль инициатора
	Role model.Role
	// WithEdit — переход сопровождается правкой метаданных
	WithEdit bool
}

// CanTransition проверяет, допустим ли переход (from, to) в принципе,
// без учёта роли. Используется для построения списков доступных действий.
func CanTransition(from, to model.Status) bool {
	_, ok := guardTable[transitionKey{from, to}]
	return ok
}

// RoleAllowed проверяет, разрешён ли переход (from, to) указанной роли.
// Возвращает false и для недопустимых пар (from, to).
func RoleAllowed(role model.Role, from, to model.Status) bool {
	guard, ok := guardTable[transitionKey{from, to}]
	if !ok {
		return false
	}
	return guard.roles[role]
}

// Validate проверяет запрос на переход против таблицы guard'ов.
//
// Порядок проверок:
//  1. валидность статусов и роли;
//  2. наличие пары (from, to) в таблице — иначе INVALID_TRANSITION;
//  3. роль инициатора — иначе PERMISSION_DENIED;
//  4. обязательность правки (reject → pending) — иначе EDIT_REQUIRED.
//
// Автомат никогда не приводит недопустимый запрос к допустимому.
func Validate(req Request) error {
	if !model.IsValidStatus(req.From) {
		return &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("недопустимый исходный статус: %q", req.From),
		}
	}
	if !model.IsValidStatus(req.To) {
		return &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("недопустимый целевой статус: %q", req.To),
		}
	}
	if !model.IsValidRole(req.Role) {
		return &TransitionError{
			Code:    CodePermissionDenied,
			Message: fmt.Sprintf("недопустимая роль: %q", req.Role),
		}
	}

	guard, ok := guardTable[transitionKey{req.From, req.To}]
	if !ok {
		return &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("переход %s → %s недопустим", req.From, req.To),
		}
	}

	if !guard.roles[req.Role] {
		return &TransitionError{
			Code: CodePermissionDenied,
			Message: fmt.Sprintf("роль %s не может выполнить переход %s → %s",
				req.Role, req.From, req.To),
		}
	}

	if guard.requiresEdit && !req.WithEdit {
		return &TransitionError{
			Code: CodeEditRequired,
			Message: fmt.Sprintf("переход %s → %s требует сопровождающей правки метаданных",
				req.From, req.To),
		}
	}

	return nil
}

// Transition применяет переход к копии записи и возвращает её.
// Возвращает TransitionError, если переход не проходит Validate.
// Исходная запись не изменяется.
func Transition(rec model.DocumentRecord, to model.Status, role model.Role, withEdit bool) (model.DocumentRecord, error) {
	if err := Validate(Request{From: rec.Status, To: to, Role: role, WithEdit: withEdit}); err != nil {
		return model.DocumentRecord{}, err
	}
	rec.Status = to
	return rec, nil
}

// TargetsFor возвращает целевые статусы, доступные роли из статуса from.
// Порядок фиксирован для детерминированного вывода в API.
func TargetsFor(role model.Role, from model.Status) []model.Status {
	ordered := []model.Status{
		model.StatusPending,
		model.StatusApproved,
		model.StatusArchived,
		model.StatusReject,
	}
	var targets []model.Status
	for _, to := range ordered {
		if RoleAllowed(role, from, to) {
			targets = append(targets, to)
		}
	}
	return targets
}

// roleSet конвертирует перечень ролей в map для быстрой проверки.
func roleSet(roles ...model.Role) map[model.Role]bool {
	s := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		s[r] = true
	}
	return s
}
