package lifecycle

import (
	"errors"
	"testing"

	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
)

// TestValidate_LegalTransitions проверяет все разрешённые переходы из таблицы guard'ов.
func TestValidate_LegalTransitions(t *testing.T) {
	tests := []struct {
		name     string
		from     model.Status
		to       model.Status
		role     model.Role
		withEdit bool
	}{
		{name: "pending → approved (approver)", from: model.StatusPending, to: model.StatusApproved, role: model.RoleApprover},
		{name: "pending → approved (admin)", from: model.StatusPending, to: model.StatusApproved, role: model.RoleAdmin},
		{name: "draft → approved (approver)", from: model.StatusDraft, to: model.StatusApproved, role: model.RoleApprover},
		{name: "pending → reject (approver)", from: model.StatusPending, to: model.StatusReject, role: model.RoleApprover},
		{name: "draft → reject (admin)", from: model.StatusDraft, to: model.StatusReject, role: model.RoleAdmin},
		{name: "approved → archived (archiviste)", from: model.StatusApproved, to: model.StatusArchived, role: model.RoleArchiviste},
		{name: "approved → archived (admin)", from: model.StatusApproved, to: model.StatusArchived, role: model.RoleAdmin},
		{name: "reject → pending с правкой (editor)", from: model.StatusReject, to: model.StatusPending, role: model.RoleEditor, withEdit: true},
		{name: "reject → pending с правкой (admin)", from: model.StatusReject, to: model.StatusPending, role: model.RoleAdmin, withEdit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Request{From: tt.from, To: tt.to, Role: tt.role, WithEdit: tt.withEdit})
			if err != nil {
				t.Errorf("Validate(%s → %s, %s): неожиданная ошибка: %v", tt.from, tt.to, tt.role, err)
			}
		})
	}
}

// TestValidate_IllegalPairs проверяет, что все пары (from, to) вне таблицы
// отклоняются с кодом INVALID_TRANSITION для любой роли.
func TestValidate_IllegalPairs(t *testing.T) {
	statuses := []model.Status{
		model.StatusDraft, model.StatusPending, model.StatusApproved,
		model.StatusArchived, model.StatusReject,
	}
	roles := []model.Role{
		model.RoleAdmin, model.RoleEditor, model.RoleApprover, model.RoleArchiviste,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			if CanTransition(from, to) {
				continue
			}
			for _, role := range roles {
				err := Validate(Request{From: from, To: to, Role: role, WithEdit: true})
				if err == nil {
					t.Errorf("%s → %s (%s): ожидалась ошибка", from, to, role)
					continue
				}
				var te *TransitionError
				if !errors.As(err, &te) || te.Code != CodeInvalidTransition {
					t.Errorf("%s → %s (%s): ожидался код INVALID_TRANSITION, получено %v", from, to, role, err)
				}
			}
		}
	}
}

// TestValidate_RoleGuards проверяет, что допустимые пары отклоняются
// для ролей вне guard'а с кодом PERMISSION_DENIED.
func TestValidate_RoleGuards(t *testing.T) {
	tests := []struct {
		name string
		from model.Status
		to   model.Status
		role model.Role
	}{
		{name: "editor не может согласовать", from: model.StatusPending, to: model.StatusApproved, role: model.RoleEditor},
		{name: "archiviste не может согласовать", from: model.StatusPending, to: model.StatusApproved, role: model.RoleArchiviste},
		{name: "editor не может отклонить", from: model.StatusPending, to: model.StatusReject, role: model.RoleEditor},
		{name: "approver не может архивировать", from: model.StatusApproved, to: model.StatusArchived, role: model.RoleApprover},
		{name: "editor не может архивировать", from: model.StatusApproved, to: model.StatusArchived, role: model.RoleEditor},
		{name: "approver не может вернуть reject в pending", from: model.StatusReject, to: model.StatusPending, role: model.RoleApprover},
		{name: "archiviste не может вернуть reject в pending", from: model.StatusReject, to: model.StatusPending, role: model.RoleArchiviste},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Request{From: tt.from, To: tt.to, Role: tt.role, WithEdit: true})
			var te *TransitionError
			if !errors.As(err, &te) || te.Code != CodePermissionDenied {
				t.Errorf("ожидался код PERMISSION_DENIED, получено %v", err)
			}
		})
	}
}

// TestValidate_RejectResubmitRequiresEdit проверяет, что возврат
// reject → pending без сопровождающей правки отклоняется.
func TestValidate_RejectResubmitRequiresEdit(t *testing.T) {
	err := Validate(Request{
		From: model.StatusReject,
		To:   model.StatusPending,
		Role: model.RoleEditor,
	})
	var te *TransitionError
	if !errors.As(err, &te) || te.Code != CodeEditRequired {
		t.Fatalf("ожидался код EDIT_REQUIRED, получено %v", err)
	}
}

// TestValidate_ArchivedIsTerminal проверяет, что из archived нет переходов.
func TestValidate_ArchivedIsTerminal(t *testing.T) {
	targets := []model.Status{
		model.StatusDraft, model.StatusPending, model.StatusApproved, model.StatusReject,
	}
	for _, to := range targets {
		err := Validate(Request{From: model.StatusArchived, To: to, Role: model.RoleAdmin, WithEdit: true})
		if err == nil {
			t.Errorf("archived → %s должен вернуть ошибку", to)
		}
	}
}

// TestValidate_InvalidInputs проверяет реакцию на невалидные статусы и роли.
func TestValidate_InvalidInputs(t *testing.T) {
	err := Validate(Request{From: model.Status("unknown"), To: model.StatusApproved, Role: model.RoleAdmin})
	var te *TransitionError
	if !errors.As(err, &te) || te.Code != CodeInvalidTransition {
		t.Errorf("невалидный from: ожидался INVALID_TRANSITION, получено %v", err)
	}

	err = Validate(Request{From: model.StatusPending, To: model.Status("frozen"), Role: model.RoleAdmin})
	if !errors.As(err, &te) || te.Code != CodeInvalidTransition {
		t.Errorf("невалидный to: ожидался INVALID_TRANSITION, получено %v", err)
	}

	err = Validate(Request{From: model.StatusPending, To: model.StatusApproved, Role: model.Role("root")})
	if !errors.As(err, &te) || te.Code != CodePermissionDenied {
		t.Errorf("невалидная роль: ожидался PERMISSION_DENIED, получено %v", err)
	}
}

// TestTransition проверяет применение перехода к копии записи.
func TestTransition(t *testing.T) {
	rec := model.DocumentRecord{ID: "doc-1", Status: model.StatusApproved}

	updated, err := Transition(rec, model.StatusArchived, model.RoleArchiviste, false)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if updated.Status != model.StatusArchived {
		t.Errorf("ожидался статус archived, получен %q", updated.Status)
	}
	if rec.Status != model.StatusApproved {
		t.Errorf("исходная запись изменена: %q", rec.Status)
	}

	_, err = Transition(rec, model.StatusApproved, model.RoleEditor, false)
	if err == nil {
		t.Error("approved → approved (editor) должен вернуть ошибку")
	}
}

// TestTargetsFor проверяет построение списка доступных целевых статусов.
func TestTargetsFor(t *testing.T) {
	tests := []struct {
		name string
		role model.Role
		from model.Status
		want []model.Status
	}{
		{
			name: "approver из pending",
			role: model.RoleApprover,
			from: model.StatusPending,
			want: []model.Status{model.StatusApproved, model.StatusReject},
		},
		{
			name: "archiviste из approved",
			role: model.RoleArchiviste,
			from: model.StatusApproved,
			want: []model.Status{model.StatusArchived},
		},
		{
			name: "editor из reject",
			role: model.RoleEditor,
			from: model.StatusReject,
			want: []model.Status{model.StatusPending},
		},
		{
			name: "archiviste из pending — ничего",
			role: model.RoleArchiviste,
			from: model.StatusPending,
			want: nil,
		},
		{
			name: "любая роль из archived — ничего",
			role: model.RoleAdmin,
			from: model.StatusArchived,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TargetsFor(tt.role, tt.from)
			if len(got) != len(tt.want) {
				t.Fatalf("TargetsFor(%s, %s) = %v, хотели %v", tt.role, tt.from, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("TargetsFor(%s, %s)[%d] = %q, хотели %q", tt.role, tt.from, i, got[i], tt.want[i])
				}
			}
		})
	}
}
