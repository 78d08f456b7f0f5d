package apiresp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
}

// Envelope wraps every response of the local /api endpoints.
type Envelope struct {
	OK    bool          `json:"ok"`
	Data  interface{}   `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
	Meta  Meta          `json:"meta"`
}

// ProxyError is the error body of the proxied /apis routes.
type ProxyError struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func WriteOK(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	Write(w, r, status, true, data, "")
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	Write(w, r, status, false, nil, msg)
}

func Write(w http.ResponseWriter, r *http.Request, status int, ok bool, data interface{}, errMsg string) {
	res := Envelope{
		OK: ok,
		Meta: Meta{
			RequestID: middleware.GetReqID(r.Context()),
		},
	}
	if ok {
		res.Data = data
	} else {
		if errMsg == "" {
			errMsg = http.StatusText(status)
		}
		res.Error = &ErrorPayload{
			Code:    codeFromStatus(status),
			Message: errMsg,
		}
	}
	WriteJSON(w, status, res)
}

// WriteErrorData writes a failed envelope that still carries data, such as a
// list of validation errors.
func WriteErrorData(w http.ResponseWriter, r *http.Request, status int, msg string, data interface{}) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	WriteJSON(w, status, Envelope{
		OK:    false,
		Data:  data,
		Error: &ErrorPayload{Code: codeFromStatus(status), Message: msg},
		Meta:  Meta{RequestID: middleware.GetReqID(r.Context())},
	})
}

// WriteJSON writes v without the envelope.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteProxyError(w http.ResponseWriter, status int, msg string, details interface{}) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	WriteJSON(w, status, ProxyError{Error: msg, Details: details})
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusBadGateway:
		return "upstream_error"
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		if status >= 200 && status < 300 {
			return ""
		}
		return "error"
	}
}
