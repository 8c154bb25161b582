package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
)

// testGroupMapping — маппинг групп для тестов.
var testGroupMapping = GroupMapping{
	Admin:      []string{"/archive-admins"},
	Editor:     []string{"/archive-editors", "/import-operators"},
	Approver:   []string{"/archive-approvers"},
	Archiviste: []string{"/archive-archivistes"},
}

func TestMapGroupsToRole(t *testing.T) {
	tests := []struct {
		name   string
		groups []string
		want   model.Role
	}{
		{
			name:   "editor",
			groups: []string{"/archive-editors"},
			want:   model.RoleEditor,
		},
		{
			name:   "editor через вторую группу",
			groups: []string{"/import-operators"},
			want:   model.RoleEditor,
		},
		{
			name:   "approver",
			groups: []string{"/archive-approvers"},
			want:   model.RoleApprover,
		},
		{
			name:   "archiviste",
			groups: []string{"/archive-archivistes"},
			want:   model.RoleArchiviste,
		},
		{
			name:   "admin",
			groups: []string{"/archive-admins"},
			want:   model.RoleAdmin,
		},
		{
			name:   "несколько групп — максимальная роль",
			groups: []string{"/archive-editors", "/archive-approvers"},
			want:   model.RoleApprover,
		},
		{
			name:   "admin поверх остальных",
			groups: []string{"/archive-archivistes", "/archive-admins", "/archive-editors"},
			want:   model.RoleAdmin,
		},
		{
			name:   "archiviste выше editor",
			groups: []string{"/archive-editors", "/archive-archivistes"},
			want:   model.RoleArchiviste,
		},
		{
			name:   "неизвестные группы — роль не назначена",
			groups: []string{"/developers", "/random"},
			want:   "",
		},
		{
			name:   "без групп",
			groups: nil,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapGroupsToRole(tt.groups, testGroupMapping)
			if got != tt.want {
				t.Errorf("mapGroupsToRole(%v) = %q, хотели %q", tt.groups, got, tt.want)
			}
		})
	}
}

func TestBuildAuthClaimsUser(t *testing.T) {
	j := &JWTAuth{groups: testGroupMapping}

	raw := &keycloakClaims{
		PreferredUsername: "petrov",
		Email:             "petrov@example.com",
		Groups:            []string{"/archive-editors", "/archive-approvers"},
		RealmAccess:       &realmAccess{Roles: []string{"offline_access"}},
	}
	raw.Subject = "user-uuid-1"

	claims := j.buildAuthClaims(raw)

	if claims.SubjectType != SubjectTypeUser {
		t.Errorf("SubjectType = %q, хотели user", claims.SubjectType)
	}
	if claims.EffectiveRole != model.RoleApprover {
		t.Errorf("EffectiveRole = %q, хотели approver", claims.EffectiveRole)
	}
	if claims.PreferredUsername != "petrov" {
		t.Errorf("PreferredUsername = %q", claims.PreferredUsername)
	}
}

// Роль не определена через группы — fallback на realm_access.roles.
func TestBuildAuthClaimsRealmRolesFallback(t *testing.T) {
	j := &JWTAuth{groups: testGroupMapping}

	raw := &keycloakClaims{
		PreferredUsername: "sidorov",
		Groups:            []string{"/unmapped"},
		RealmAccess:       &realmAccess{Roles: []string{"archiviste", "offline_access"}},
	}
	raw.Subject = "user-uuid-2"

	claims := j.buildAuthClaims(raw)

	if claims.EffectiveRole != model.RoleArchiviste {
		t.Errorf("EffectiveRole = %q, хотели archiviste", claims.EffectiveRole)
	}
}

func TestBuildAuthClaimsServiceAccount(t *testing.T) {
	j := &JWTAuth{groups: testGroupMapping}

	raw := &keycloakClaims{
		ClientID: "archive-importer",
		Scope:    "documents:read documents:write",
	}
	raw.Subject = "sa-uuid-1"

	claims := j.buildAuthClaims(raw)

	if claims.SubjectType != SubjectTypeSA {
		t.Errorf("SubjectType = %q, хотели service_account", claims.SubjectType)
	}
	if !claims.HasScope("documents:write") {
		t.Error("HasScope(documents:write) = false")
	}
	if claims.HasScope("documents:delete") {
		t.Error("HasScope(documents:delete) = true для невыданного scope")
	}
}

func TestRequireRoleOrScope(t *testing.T) {
	tests := []struct {
		name       string
		claims     *AuthClaims
		wantStatus int
	}{
		{
			name:       "без claims — 401",
			claims:     nil,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "подходящая роль",
			claims: &AuthClaims{
				SubjectType:   SubjectTypeUser,
				EffectiveRole: model.RoleApprover,
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "неподходящая роль — 403",
			claims: &AuthClaims{
				SubjectType:   SubjectTypeUser,
				EffectiveRole: model.RoleEditor,
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "SA с подходящим scope",
			claims: &AuthClaims{
				SubjectType: SubjectTypeSA,
				Scopes:      []string{"documents:read"},
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "SA без подходящего scope — 403",
			claims: &AuthClaims{
				SubjectType: SubjectTypeSA,
				Scopes:      []string{"files:read"},
			},
			wantStatus: http.StatusForbidden,
		},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RequireRoleOrScope(
		[]model.Role{model.RoleApprover, model.RoleAdmin},
		[]string{"documents:read"},
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
			if tt.claims != nil {
				ctx := context.WithValue(req.Context(), ContextKeyClaims, tt.claims)
				req = req.WithContext(ctx)
			}

			rr := httptest.NewRecorder()
			mw(next).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, хотели %d", rr.Code, tt.wantStatus)
			}
		})
	}
}
