package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"examdesk/internal/app/apiresp"
	"examdesk/internal/auth"
	"examdesk/internal/upstream"

	"github.com/go-chi/chi/v5"
)

// DefaultMaxRequestBody caps the body a client may send through a proxy.
const DefaultMaxRequestBody = 32 << 20

type upstreamDoer interface {
	Do(ctx context.Context, in upstream.Request) (*upstream.Response, error)
}

type Handler struct {
	api     upstreamDoer
	routes  []Route
	maxBody int64
}

func NewHandler(api upstreamDoer, routes []Route) *Handler {
	if routes == nil {
		routes = Routes()
	}
	return &Handler{api: api, routes: routes, maxBody: DefaultMaxRequestBody}
}

// Mount registers every route on r.
func (h *Handler) Mount(r chi.Router) {
	for _, rt := range h.routes {
		r.Method(rt.Method, rt.Pattern, h.Forward(rt))
	}
}

// Forward performs one upstream round trip for rt and relays the outcome.
func (h *Handler) Forward(rt Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, missing := rt.upstreamPath(func(name string) string {
			return chi.URLParam(r, name)
		})
		if missing != "" {
			apiresp.WriteProxyError(w, http.StatusBadRequest, missing+" is required", nil)
			return
		}
		suffix, rawQuery := rt.query(r.URL.RawQuery)

		var body io.Reader
		if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Body != nil {
			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					apiresp.WriteProxyError(w, http.StatusRequestEntityTooLarge,
						fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil)
					return
				}
				apiresp.WriteProxyError(w, http.StatusBadRequest, "invalid request body", nil)
				return
			}
			if len(raw) > 0 {
				body = bytes.NewReader(raw)
			}
		}

		resp, err := h.api.Do(r.Context(), upstream.Request{
			Method:      rt.Method,
			Path:        path + suffix,
			RawQuery:    rawQuery,
			Body:        body,
			ContentType: r.Header.Get("Content-Type"),
			Token:       auth.Token(r),
		})
		if err != nil {
			log.Printf("proxy %s %s: %v", rt.Method, path, err)
			status := http.StatusInternalServerError
			if errors.Is(err, upstream.ErrResponseTooLarge) {
				status = http.StatusBadGateway
			}
			apiresp.WriteProxyError(w, status, err.Error(), nil)
			return
		}

		if !resp.OK() {
			msg, details := errorMessage(rt, resp)
			apiresp.WriteProxyError(w, resp.Status, msg, details)
			return
		}

		if rt.File || resp.IsPDF() {
			writeFile(w, resp)
			return
		}

		if rt.SuccessMessage != "" {
			status := resp.Status
			if status == http.StatusNoContent {
				status = http.StatusOK
			}
			apiresp.WriteJSON(w, status, map[string]string{"message": rt.SuccessMessage})
			return
		}

		if resp.Status == http.StatusNoContent || len(bytes.TrimSpace(resp.Body)) == 0 {
			w.WriteHeader(resp.Status)
			return
		}

		var data any
		if err := json.Unmarshal(resp.Body, &data); err != nil {
			log.Printf("proxy %s %s: decode upstream body: %v", rt.Method, path, err)
			apiresp.WriteProxyError(w, http.StatusInternalServerError, fmt.Sprintf("invalid upstream response: %v", err), nil)
			return
		}
		if rt.Reshape != nil {
			data = rt.Reshape(data)
		}
		apiresp.WriteJSON(w, resp.Status, data)
	}
}

// errorMessage picks the message for a failed upstream call: a status
// specific message, then the upstream message or detail, then the route
// fallback, then the generic status mapping.
func errorMessage(rt Route, resp *upstream.Response) (string, any) {
	msg, details := resp.ErrorMessage("")
	if m, ok := rt.StatusMessages[resp.Status]; ok {
		msg = m
	}
	if msg == "" {
		msg = rt.Fallback
	}
	if msg == "" {
		msg = MapAPIError(resp.Status, rt.Resource)
	}
	return msg, details
}

func writeFile(w http.ResponseWriter, resp *upstream.Response) {
	for _, k := range []string{"Content-Type", "Content-Disposition"} {
		if v := resp.Header.Get(k); v != "" {
			w.Header().Set(k, v)
		}
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
