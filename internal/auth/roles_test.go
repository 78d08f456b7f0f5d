package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNormalizeRoute(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/users/details/3F2504E0-4F89-11D3-9A0C-0305E82C3301", want: "/users/details/:id"},
		{in: "/questions/Q123/edit", want: "/questions/:id/edit"},
		{in: "/schools/3f2504e0-4f89-11d3-9a0c-0305e82c3301/details?tab=1", want: "/schools/:id/details"},
		{in: "/questions/Q1/Q2", want: "/questions/:id/:id"},
		{in: "/organizations", want: "/organizations"},
	}
	for _, tc := range cases {
		if got := NormalizeRoute(tc.in); got != tc.want {
			t.Fatalf("NormalizeRoute(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRoleClassification(t *testing.T) {
	for _, role := range []string{"admin", "super_admin", "admin_user", "block_admin", "100"} {
		if !IsAdminRole(role) {
			t.Fatalf("%s should be admin", role)
		}
	}
	for _, role := range []string{"teacher", "101"} {
		if !IsEducatorRole(role) || IsAdminRole(role) {
			t.Fatalf("%s should be educator only", role)
		}
	}
	if IsAdminRole("student") || IsEducatorRole("student") {
		t.Fatal("unknown role classified")
	}
}

func TestRestrictedRoutes(t *testing.T) {
	if got := RestrictedRoutes(RoleSuperAdmin); len(got) != 0 {
		t.Fatalf("super admin should have no restrictions: %v", got)
	}
	got := RestrictedRoutes(RoleAdminUser)
	if len(got) != 2 || got[0] != "/organizations" {
		t.Fatalf("unexpected admin_user restrictions %v", got)
	}
	got[0] = "mutated"
	if RestrictedRoutes(RoleAdminUser)[0] != "/organizations" {
		t.Fatal("RestrictedRoutes must return a copy")
	}
	if CanAccess(RoleTeacher, "/uploadHistory") {
		t.Fatal("teacher must not open upload history")
	}
	if !CanAccess(RoleTeacher, "/exams") {
		t.Fatal("teacher should open exams")
	}
}

func unsignedJWT(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(payload)) + "." + enc.EncodeToString([]byte("sig"))
}

func TestFromRequestReadsTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: unsignedJWT(`{"exp":` + strconv.FormatInt(exp, 10) + `}`)})

	s := FromRequest(req)
	if !s.IsAuthenticated {
		t.Fatal("expected authenticated session")
	}
	if s.ExpiresAt.Unix() != exp {
		t.Fatalf("expected exp %d, got %d", exp, s.ExpiresAt.Unix())
	}
}

func TestWorkspaceID(t *testing.T) {
	s := Session{Token: "opaque", SessionID: "sid"}
	bound := s.WorkspaceID()
	if !strings.HasPrefix(bound, "ws-") || strings.Contains(bound, "sid") || len(bound) != 3+32 {
		t.Fatalf("unexpected session workspace id %q", bound)
	}
	if bound == (Session{Token: "other", SessionID: "sid"}).WorkspaceID() {
		t.Fatal("a session id paired with another token must not share a workspace")
	}
	s.SessionID = ""
	id := s.WorkspaceID()
	if !strings.HasPrefix(id, "tok-") || strings.Contains(id, "opaque") || len(id) != 4+32 {
		t.Fatalf("unexpected derived id %q", id)
	}
	if id != (Session{Token: "opaque"}).WorkspaceID() {
		t.Fatal("derived id must be stable")
	}
	if (Session{}).WorkspaceID() != "" || (Session{SessionID: "sid"}).WorkspaceID() != "" {
		t.Fatal("a session without a token has no workspace")
	}
}

func TestTokenSubjectOverridesUserCookie(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		cookie string
		want   string
	}{
		{name: "sub_claim", token: unsignedJWT(`{"sub":"u-1"}`), cookie: "victim", want: "u-1"},
		{name: "user_uuid_claim", token: unsignedJWT(`{"sub":"x","user_uuid":"u-2"}`), cookie: "victim", want: "u-2"},
		{name: "matching_cookie", token: unsignedJWT(`{"sub":"u-3"}`), cookie: "u-3", want: "u-3"},
		{name: "opaque_token_keeps_cookie", token: "opaque", cookie: "u-4", want: "u-4"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: tc.token})
			req.AddCookie(&http.Cookie{Name: CookieUserID, Value: tc.cookie})
			if got := FromRequest(req).UserID; got != tc.want {
				t.Fatalf("expected user %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRequireSession(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, found := CurrentSession(r.Context()); !found {
			t.Error("session missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "opaque token", token: "opaque", want: http.StatusNoContent},
		{name: "expired jwt", token: unsignedJWT(`{"exp":1000}`), want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/workspace/selection", nil)
			if tc.token != "" {
				req.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: tc.token})
			}
			w := httptest.NewRecorder()
			RequireSession(ok).ServeHTTP(w, req.WithContext(context.Background()))
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

