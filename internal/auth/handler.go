package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"examdesk/internal/app/apiresp"
	"examdesk/internal/upstream"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxLoginBody = 1 << 20

type upstreamDoer interface {
	Do(ctx context.Context, in upstream.Request) (*upstream.Response, error)
}

// SessionCloser drops server-side state owned by a session on logout.
type SessionCloser interface {
	Close(ctx context.Context, workspaceID string)
}

type HandlerConfig struct {
	CookieSecure bool
	CookieMaxAge time.Duration
	Closer       SessionCloser
}

type Handler struct {
	api    upstreamDoer
	secure bool
	maxAge time.Duration
	closer SessionCloser
}

type loginUser struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	Username    string          `json:"username"`
	UserUUID    json.RawMessage `json:"user_uuid"`
	RoleName    string          `json:"role_name"`
	RoleCode    string          `json:"role_code"`
}

type profileUser struct {
	Organization *struct {
		UUID    string `json:"uuid"`
		OrgName string `json:"org_name"`
	} `json:"organization"`
	Block *struct {
		UUID      string `json:"uuid"`
		BlockName string `json:"block_name"`
	} `json:"block"`
}

type sessionInfo struct {
	Session
	IsAdmin          bool     `json:"isAdmin"`
	IsEducator       bool     `json:"isEducator"`
	RestrictedRoutes []string `json:"restrictedRoutes"`
}

func NewHandler(api upstreamDoer, cfg HandlerConfig) *Handler {
	maxAge := cfg.CookieMaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	return &Handler{api: api, secure: cfg.CookieSecure, maxAge: maxAge, closer: cfg.Closer}
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.maxAge / time.Second),
	})
}

// Login forwards the credentials to the backend and, on success, stores the
// session in cookies.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLoginBody))
	if err != nil {
		apiresp.WriteProxyError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if !json.Valid(body) {
		apiresp.WriteProxyError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	resp, err := h.api.Do(r.Context(), upstream.Request{
		Method: http.MethodPost,
		Path:   "/v1/login",
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		apiresp.WriteProxyError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if resp.Status != http.StatusOK {
		writeRaw(w, resp)
		return
	}

	var user loginUser
	if err := resp.Decode(&user); err != nil {
		apiresp.WriteProxyError(w, http.StatusInternalServerError, fmt.Sprintf("invalid login response: %v", err), nil)
		return
	}
	var raw map[string]any
	_ = json.Unmarshal(resp.Body, &raw)

	h.setCookie(w, CookieAccessToken, user.AccessToken)
	h.setCookie(w, CookieTokenType, user.TokenType)
	h.setCookie(w, CookieUsername, user.Username)
	h.setCookie(w, CookieUserID, rawString(user.UserUUID))
	h.setCookie(w, CookieRoleName, user.RoleName)
	h.setCookie(w, CookieRoleCode, user.RoleCode)
	h.setCookie(w, CookieSessionID, uuid.NewString())

	apiresp.WriteJSON(w, http.StatusCreated, map[string]any{"user": raw})
}

// Logout clears every cookie on the request and drops the session workspace.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s := FromRequest(r)
	if id := s.WorkspaceID(); id != "" && h.closer != nil {
		h.closer.Close(r.Context(), id)
	}
	for _, c := range r.Cookies() {
		http.SetCookie(w, &http.Cookie{
			Name:   c.Name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
	apiresp.WriteJSON(w, http.StatusOK, map[string]any{})
}

// Profile fetches a user and remembers its organization and block in cookies.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		apiresp.WriteProxyError(w, http.StatusBadRequest, "User UUID is required", nil)
		return
	}

	resp, err := h.api.Do(r.Context(), upstream.Request{
		Method: http.MethodGet,
		Path:   "/v1/users/" + url.PathEscape(id),
		Token:  Token(r),
	})
	if err != nil {
		apiresp.WriteProxyError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if !resp.OK() {
		msg := "Failed to fetch user details"
		switch resp.Status {
		case http.StatusForbidden:
			msg = "You do not have permission to view this user"
		case http.StatusNotFound:
			msg = "User not found"
		}
		log.Printf("profile: upstream status %d: %s", resp.Status, string(resp.Body))
		var details any
		if len(resp.Body) > 0 {
			details = string(resp.Body)
		}
		apiresp.WriteProxyError(w, resp.Status, msg, details)
		return
	}

	var data any
	if err := resp.Decode(&data); err != nil {
		apiresp.WriteProxyError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	var p profileUser
	_ = json.Unmarshal(resp.Body, &p)
	if p.Organization != nil {
		if p.Organization.UUID != "" {
			h.setCookie(w, CookieOrgID, p.Organization.UUID)
		}
		if p.Organization.OrgName != "" {
			h.setCookie(w, CookieOrgName, p.Organization.OrgName)
		}
	}
	if p.Block != nil {
		if p.Block.UUID != "" {
			h.setCookie(w, CookieBlockID, p.Block.UUID)
		}
		if p.Block.BlockName != "" {
			h.setCookie(w, CookieBlockName, p.Block.BlockName)
		}
	}
	apiresp.WriteJSON(w, http.StatusOK, data)
}

// SessionInfo reports the cookie session with role flags.
func (h *Handler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	s, ok := CurrentSession(r.Context())
	if !ok {
		s = FromRequest(r)
	}
	role := s.RoleCode
	if _, known := restrictedRoutes[role]; !known {
		role = s.RoleName
	}
	apiresp.WriteOK(w, r, http.StatusOK, sessionInfo{
		Session:          s,
		IsAdmin:          s.IsAdmin(),
		IsEducator:       s.IsEducator(),
		RestrictedRoutes: RestrictedRoutes(role),
	})
}

// CanAccess answers whether the caller's role may open a UI page.
func (h *Handler) CanAccess(w http.ResponseWriter, r *http.Request) {
	s, ok := CurrentSession(r.Context())
	if !ok {
		s = FromRequest(r)
	}
	route := strings.TrimSpace(r.URL.Query().Get("route"))
	if route == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "route is required")
		return
	}
	allowed := CanAccess(s.RoleCode, route) && CanAccess(s.RoleName, route)
	apiresp.WriteOK(w, r, http.StatusOK, map[string]any{
		"route":   NormalizeRoute(route),
		"allowed": allowed,
	})
}

func writeRaw(w http.ResponseWriter, resp *upstream.Response) {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// rawString renders a JSON scalar as text: strings unquoted, numbers as-is.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	v := strings.TrimSpace(string(raw))
	if v == "null" {
		return ""
	}
	return v
}
