package auth

import (
	"context"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"examdesk/internal/app/apiresp"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/blake2b"
)

type contextKey string

const sessionContextKey contextKey = "auth_session"

const (
	CookieAccessToken = "access_token"
	CookieTokenType   = "token_type"
	CookieUsername    = "username"
	CookieUserID      = "user_id"
	CookieRoleName    = "role_name"
	CookieRoleCode    = "role_code"
	CookieSessionID   = "session_id"
	CookieOrgID       = "orgId"
	CookieBlockID     = "blockId"
	CookieBlockName   = "blockName"
	CookieOrgName     = "orgName"
)

// Session is what the BFF knows about the caller, read from cookies.
type Session struct {
	IsAuthenticated bool      `json:"isAuthenticated"`
	Token           string    `json:"-"`
	Username        string    `json:"username,omitempty"`
	UserID          string    `json:"userId,omitempty"`
	RoleName        string    `json:"roleName,omitempty"`
	RoleCode        string    `json:"roleCode,omitempty"`
	OrgID           string    `json:"orgId,omitempty"`
	BlockID         string    `json:"blockId,omitempty"`
	BlockName       string    `json:"blockName,omitempty"`
	OrgName         string    `json:"orgName,omitempty"`
	SessionID       string    `json:"-"`
	ExpiresAt       time.Time `json:"expiresAt,omitempty"`
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

// Token returns the bearer token stored in the access_token cookie.
func Token(r *http.Request) string {
	return cookieValue(r, CookieAccessToken)
}

func FromRequest(r *http.Request) Session {
	s := Session{
		Token:     Token(r),
		Username:  cookieValue(r, CookieUsername),
		UserID:    cookieValue(r, CookieUserID),
		RoleName:  cookieValue(r, CookieRoleName),
		RoleCode:  cookieValue(r, CookieRoleCode),
		OrgID:     cookieValue(r, CookieOrgID),
		BlockID:   cookieValue(r, CookieBlockID),
		BlockName: cookieValue(r, CookieBlockName),
		OrgName:   cookieValue(r, CookieOrgName),
		SessionID: cookieValue(r, CookieSessionID),
	}
	s.IsAuthenticated = s.Token != ""
	if s.IsAuthenticated {
		claims := tokenClaims(s.Token)
		s.ExpiresAt = claimExpiry(claims)
		if sub := claimSubject(claims); sub != "" {
			s.UserID = sub
		}
	}
	return s
}

// tokenClaims reads the claims without verifying the signature; the
// backend is the authority on token validity. Opaque tokens yield nil.
func tokenClaims(token string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func claimExpiry(claims jwt.MapClaims) time.Time {
	if claims == nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// claimSubject returns the user the token was issued to. A token subject
// always wins over the user_id cookie.
func claimSubject(claims jwt.MapClaims) string {
	if claims == nil {
		return ""
	}
	for _, key := range []string{"user_uuid", "user_id"} {
		if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(sub)
}

// WorkspaceID names the server-side state owned by this session. The id is
// a digest over the session id and the token, so a session_id cookie alone
// never reaches another caller's workspace. Sessions created before the
// session_id cookie existed hash the token only.
func (s Session) WorkspaceID() string {
	if s.Token == "" {
		return ""
	}
	if s.SessionID != "" {
		return "ws-" + digest(s.SessionID, s.Token)
	}
	return "tok-" + digest(s.Token)
}

func digest(parts ...string) string {
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:16])
}

func (s Session) IsAdmin() bool {
	return IsAdminRole(s.RoleCode) || IsAdminRole(s.RoleName)
}

func (s Session) IsEducator() bool {
	return IsEducatorRole(s.RoleCode) || IsEducatorRole(s.RoleName)
}

// Middleware stores the cookie session in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := FromRequest(r)
		ctx := context.WithValue(r.Context(), sessionContextKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func CurrentSession(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(Session)
	return s, ok
}

// RequireSession rejects requests without an access token.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := CurrentSession(r.Context())
		if !ok {
			s = FromRequest(r)
			r = r.WithContext(context.WithValue(r.Context(), sessionContextKey, s))
		}
		if !s.IsAuthenticated {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt) {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "session expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}
