package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxBodyBytes caps how much of an upstream response is read.
const DefaultMaxBodyBytes = 32 << 20

var (
	ErrNotConfigured    = errors.New("upstream base url not configured")
	ErrResponseTooLarge = errors.New("upstream response exceeds size limit")
)

// Observer receives one call per finished upstream round trip.
type Observer interface {
	ObserveUpstream(method, path string, status int, elapsed time.Duration)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Observer   Observer
	// MaxBodyBytes defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Client talks to the backend REST API. One call is one round trip; nothing
// is retried or cached.
type Client struct {
	baseURL  string
	client   *http.Client
	observer Observer
	maxBody  int64
}

type Request struct {
	Method      string
	Path        string
	RawQuery    string
	Body        io.Reader
	ContentType string
	Token       string
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func NewClient(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		client:   client,
		observer: cfg.Observer,
		maxBody:  maxBody,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Do(ctx context.Context, in Request) (*Response, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	method := in.Method
	if method == "" {
		method = http.MethodGet
	}
	url := c.baseURL + "/" + strings.TrimLeft(in.Path, "/")
	if in.RawQuery != "" {
		url += "?" + in.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, url, in.Body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	if token := strings.TrimSpace(in.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.observe(method, in.Path, 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	c.observe(method, in.Path, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	if int64(len(raw)) > c.maxBody {
		return nil, fmt.Errorf("%s %s: %w (%d bytes)", method, in.Path, ErrResponseTooLarge, c.maxBody)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

// DoJSON encodes body as JSON (when not nil) and performs the call.
func (c *Client) DoJSON(ctx context.Context, method, path, token string, body any) (*Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode upstream body: %w", err)
		}
		r = bytes.NewReader(b)
	}
	return c.Do(ctx, Request{Method: method, Path: path, Body: r, Token: token})
}

func (c *Client) observe(method, path string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(method, path, status, d)
	}
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

func (r *Response) IsPDF() bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/pdf")
}

func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return errors.New("empty upstream body")
	}
	return json.Unmarshal(r.Body, v)
}

// ErrorMessage extracts a message from an error body: "message" first, then a
// string "detail", else fallback. details is the body's "details" field.
func (r *Response) ErrorMessage(fallback string) (msg string, details any) {
	var body map[string]any
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return fallback, nil
	}
	details = body["details"]
	if m, ok := body["message"].(string); ok && strings.TrimSpace(m) != "" {
		return m, details
	}
	if d, ok := body["detail"].(string); ok && strings.TrimSpace(d) != "" {
		return d, details
	}
	return fallback, details
}
