package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"examdesk/internal/app/apiresp"
	"examdesk/internal/upstream"
)

const DefaultIdentityTTL = 10 * time.Minute

var ErrIdentityMismatch = errors.New("user id does not belong to this token")

// IdentityVerifier confirms with the backend that a token may act as the
// user id it arrives with. Confirmed pairs are cached per token digest.
type IdentityVerifier struct {
	api upstreamDoer
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	confirmed map[string]time.Time
}

func NewIdentityVerifier(api upstreamDoer, ttl time.Duration) *IdentityVerifier {
	if ttl <= 0 {
		ttl = DefaultIdentityTTL
	}
	return &IdentityVerifier{
		api:       api,
		ttl:       ttl,
		now:       time.Now,
		confirmed: make(map[string]time.Time),
	}
}

// Confirm returns nil when the backend serves the user record to this token.
// 401, 403 and 404 answers mean the pair is forged.
func (v *IdentityVerifier) Confirm(ctx context.Context, s Session) error {
	if s.Token == "" || s.UserID == "" {
		return ErrIdentityMismatch
	}
	key := digest(s.Token, s.UserID)
	now := v.now()

	v.mu.Lock()
	for k, until := range v.confirmed {
		if now.After(until) {
			delete(v.confirmed, k)
		}
	}
	_, ok := v.confirmed[key]
	v.mu.Unlock()
	if ok {
		return nil
	}

	resp, err := v.api.Do(ctx, upstream.Request{
		Method: http.MethodGet,
		Path:   "/v1/users/" + url.PathEscape(s.UserID),
		Token:  s.Token,
	})
	if err != nil {
		return err
	}
	switch {
	case resp.OK():
	case resp.Status == http.StatusUnauthorized, resp.Status == http.StatusForbidden, resp.Status == http.StatusNotFound:
		return ErrIdentityMismatch
	default:
		return fmt.Errorf("identity check: upstream status %d", resp.Status)
	}

	v.mu.Lock()
	v.confirmed[key] = now.Add(v.ttl)
	v.mu.Unlock()
	return nil
}

// Middleware checks the session user id before handlers that key data by
// it. A forged pair is rejected with 403. When the backend cannot answer,
// the request continues without a user id.
func (v *IdentityVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := CurrentSession(r.Context())
		if !ok {
			s = FromRequest(r)
		}
		if s.UserID != "" {
			err := v.Confirm(r.Context(), s)
			switch {
			case err == nil:
			case errors.Is(err, ErrIdentityMismatch):
				apiresp.WriteError(w, r, http.StatusForbidden, "user id does not match session")
				return
			default:
				log.Printf("identity check for %s: %v", s.UserID, err)
				s.UserID = ""
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey, s)))
	})
}
