package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"examdesk/internal/auth"
	"examdesk/internal/quiz"
	"examdesk/internal/selection"
	"examdesk/internal/upstream"

	"github.com/go-chi/chi/v5"
)

type fakeUpstream struct {
	DoFn  func(ctx context.Context, in upstream.Request) (*upstream.Response, error)
	calls int
	body  string
	last  upstream.Request
}

func (f *fakeUpstream) Do(ctx context.Context, in upstream.Request) (*upstream.Response, error) {
	f.calls++
	f.last = in
	if in.Body != nil {
		b, _ := io.ReadAll(in.Body)
		f.body = string(b)
	}
	return f.DoFn(ctx, in)
}

type fakeArchive struct {
	saved []quiz.ResultRecord
}

func (f *fakeArchive) Save(_ context.Context, rec quiz.ResultRecord) (*quiz.ResultRecord, error) {
	f.saved = append(f.saved, rec)
	return &rec, nil
}

func (f *fakeArchive) ListByUser(_ context.Context, userID string, _ int) ([]quiz.ResultRecord, error) {
	out := []quiz.ResultRecord{}
	for _, r := range f.saved {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	router  http.Handler
	api     *fakeUpstream
	archive *fakeArchive
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	api := &fakeUpstream{DoFn: func(ctx context.Context, in upstream.Request) (*upstream.Response, error) {
		return &upstream.Response{Status: http.StatusCreated, Header: http.Header{}, Body: []byte(`{"exam_code":"EX1"}`)}, nil
	}}
	archive := &fakeArchive{}
	h := NewHandler(NewManager(ManagerConfig{}), HandlerConfig{Upstream: api, Archive: archive})

	r := chi.NewRouter()
	r.Use(auth.Middleware)
	r.Route("/api/workspace", func(ws chi.Router) {
		ws.Use(auth.RequireSession)
		h.Mount(ws)
	})
	return &testServer{router: r, api: api, archive: archive}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.AddCookie(&http.Cookie{Name: auth.CookieAccessToken, Value: "tok"})
	req.AddCookie(&http.Cookie{Name: auth.CookieSessionID, Value: "sess-1"})
	req.AddCookie(&http.Cookie{Name: auth.CookieUserID, Value: "user-1"})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func TestWorkspaceRequiresSession(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/workspace/selection", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestSelectionEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/workspace/selection", `{"code":"C1_T1_S1","name":"Fractions","type":"subtopic","question_count":8}`)
	if code != http.StatusOK || !env.OK {
		t.Fatalf("add selection: %d %+v", code, env.Error)
	}
	var view selectionView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Stats.TotalSubtopics != 1 || len(view.Hierarchy) != 1 || len(view.Hierarchy[0].Children) != 1 {
		t.Fatalf("unexpected view %+v", view)
	}

	code, env = s.do(t, http.MethodGet, "/api/workspace/selection/C1_T1/logical?type=topic", "")
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"isSelected":false`) {
		t.Fatalf("logical: %d %s", code, env.Data)
	}

	code, env = s.do(t, http.MethodPut, "/api/workspace/selection/C1_T1_S1/questions-to-add", `{"questionsToAdd":3}`)
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"updated":true`) {
		t.Fatalf("update count: %d %s", code, env.Data)
	}

	code, env = s.do(t, http.MethodPut, "/api/workspace/selection/MISSING/questions-to-add", `{"questionsToAdd":3}`)
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"updated":false`) {
		t.Fatalf("unknown code should be a no-op: %d %s", code, env.Data)
	}

	code, env = s.do(t, http.MethodPost, "/api/workspace/selection", `{"code":"X","type":"unit"}`)
	if code != http.StatusBadRequest || env.OK {
		t.Fatalf("expected 400 for unknown type, got %d", code)
	}

	code, _ = s.do(t, http.MethodDelete, "/api/workspace/selection/NOPE", "")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}

	code, env = s.do(t, http.MethodDelete, "/api/workspace/selection/C1_T1_S1", "")
	if code != http.StatusOK {
		t.Fatalf("remove: %d", code)
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Selections) != 0 || view.Stats != (selection.Stats{}) {
		t.Fatalf("expected empty selection, got %+v", view)
	}
}

func TestBulkSelectionReportsErrors(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodPost, "/api/workspace/selection/bulk", `{"items":[{"code":"C1","type":"chapter"},{"code":"","type":"chapter"}]}`)
	if code != http.StatusOK {
		t.Fatalf("bulk: %d", code)
	}
	var body struct {
		Selection selectionView `json:"selection"`
		Errors    []string      `json:"errors"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Selection.Selections) != 1 || len(body.Errors) != 1 {
		t.Fatalf("unexpected bulk result %+v", body)
	}
}

func TestQuestionBinEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPut, "/api/workspace/questions", `{"questions":[{"id":"q1"},{"id":"q2"}]}`)

	code, env := s.do(t, http.MethodDelete, "/api/workspace/questions/q1", "")
	if code != http.StatusOK {
		t.Fatalf("remove: %d", code)
	}
	var view questionsView
	_ = json.Unmarshal(env.Data, &view)
	if len(view.Questions) != 1 || len(view.Removed) != 1 || len(view.Excluded) != 1 || view.Excluded[0] != "q1" {
		t.Fatalf("unexpected bin %+v", view)
	}

	code, env = s.do(t, http.MethodPost, "/api/workspace/questions/q1/restore", "")
	if code != http.StatusOK {
		t.Fatalf("restore: %d", code)
	}
	_ = json.Unmarshal(env.Data, &view)
	if len(view.Questions) != 2 || len(view.Excluded) != 0 {
		t.Fatalf("unexpected bin after restore %+v", view)
	}

	code, _ = s.do(t, http.MethodPost, "/api/workspace/questions", `{"text":"no id"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for question without id, got %d", code)
	}
}

const quizBody = `{"total_time":10,"quiz":{"id":"quiz-1","questions":[
	{"id":"1","options":[{"id":"a","is_correct":true},{"id":"b"}]},
	{"id":"2","correct_answer":"c","options":[{"id":"c"},{"id":"d"}]}
]}}`

func TestQuizFlowArchivesResultOnce(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/workspace/quiz/complete", "")
	if code != http.StatusConflict {
		t.Fatalf("complete without quiz: expected 409, got %d %+v", code, env.Error)
	}

	if code, env = s.do(t, http.MethodPost, "/api/workspace/quiz/start", quizBody); code != http.StatusOK {
		t.Fatalf("start: %d %+v", code, env.Error)
	}
	if code, _ = s.do(t, http.MethodPut, "/api/workspace/quiz/answers/1", `{"answer":"a"}`); code != http.StatusOK {
		t.Fatalf("answer: %d", code)
	}
	s.do(t, http.MethodPost, "/api/workspace/quiz/next", "")
	s.do(t, http.MethodPost, "/api/workspace/quiz/next", "")

	code, env = s.do(t, http.MethodGet, "/api/workspace/quiz", "")
	var view quizView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Session.CurrentQuestionIndex != 1 || view.TimeRemaining <= 0 || view.TimeRemaining > 600 {
		t.Fatalf("unexpected quiz view %+v", view)
	}

	s.do(t, http.MethodPost, "/api/workspace/quiz/pause", "")
	code, env = s.do(t, http.MethodPut, "/api/workspace/quiz/answers/2", `{"answer":"c"}`)
	if code != http.StatusConflict {
		t.Fatalf("answer while paused: expected 409, got %d", code)
	}
	s.do(t, http.MethodPost, "/api/workspace/quiz/resume", "")

	code, env = s.do(t, http.MethodPost, "/api/workspace/quiz/complete", "")
	if code != http.StatusOK {
		t.Fatalf("complete: %d %+v", code, env.Error)
	}
	var res quiz.Results
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.TotalQuestions != 2 || res.Correct != 1 || res.Unanswered != 1 || res.Percentage != 50 || res.Passed {
		t.Fatalf("unexpected results %+v", res)
	}

	s.do(t, http.MethodPost, "/api/workspace/quiz/complete", "")
	if len(s.archive.saved) != 1 {
		t.Fatalf("expected one archived result, got %d", len(s.archive.saved))
	}
	if rec := s.archive.saved[0]; rec.UserID != "user-1" || rec.WorkspaceID != (auth.Session{Token: "tok", SessionID: "sess-1"}).WorkspaceID() || rec.QuizID != "quiz-1" {
		t.Fatalf("unexpected archive record %+v", rec)
	}

	code, env = s.do(t, http.MethodGet, "/api/workspace/quiz/history", "")
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"quiz-1"`) {
		t.Fatalf("history: %d %s", code, env.Data)
	}

	code, _ = s.do(t, http.MethodPut, "/api/workspace/quiz/answers/2", `{"answer":"c"}`)
	if code != http.StatusConflict {
		t.Fatalf("answer after completion: expected 409, got %d", code)
	}

	s.do(t, http.MethodPost, "/api/workspace/quiz/reset", "")
	code, _ = s.do(t, http.MethodGet, "/api/workspace/quiz/results", "")
	if code != http.StatusNotFound {
		t.Fatalf("results after reset: expected 404, got %d", code)
	}
}

func TestPayloadSubmitValidation(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodPost, "/api/workspace/payload/submit", "")
	if code != http.StatusUnprocessableEntity || env.OK {
		t.Fatalf("expected 422, got %d", code)
	}
	if env.Error == nil || !strings.Contains(env.Error.Message, "exam_name is required") {
		t.Fatalf("unexpected error %+v", env.Error)
	}
	if !strings.Contains(string(env.Data), "Chapter/topic selections are required") {
		t.Fatalf("expected error list in data, got %s", env.Data)
	}
	if s.api.calls != 0 {
		t.Fatal("upstream must not be called for an invalid payload")
	}
}

func TestPayloadSubmitForwardsToUpstream(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/workspace/selection", `{"code":"C1","name":"Numbers","type":"chapter","question_count":12,"questionsToAdd":4}`)
	s.do(t, http.MethodPatch, "/api/workspace/payload", `{"examDetails":{"examTitle":" Unit test ","examMode":"Offline"},"classSubject":{"subject_code":"MATH","medium_code":"EN","examClass":"7"}}`)
	code, env := s.do(t, http.MethodPost, "/api/workspace/payload/chapters-topics", "")
	if code != http.StatusOK {
		t.Fatalf("chapters-topics: %d %+v", code, env.Error)
	}

	code, env = s.do(t, http.MethodPost, "/api/workspace/payload/submit", "")
	if code != http.StatusCreated || !env.OK {
		t.Fatalf("submit: %d %+v", code, env.Error)
	}
	if s.api.last.Path != "/v2/exams" || s.api.last.Method != http.MethodPost || s.api.last.Token != "tok" {
		t.Fatalf("unexpected upstream call %+v", s.api.last)
	}
	var sent map[string]any
	if err := json.Unmarshal([]byte(s.api.body), &sent); err != nil {
		t.Fatalf("decode sent payload: %v", err)
	}
	if sent["exam_name"] != "Unit test" || sent["exam_mode"] != "offline" || sent["standard"] != "7" {
		t.Fatalf("unexpected payload %v", sent)
	}
	if _, ok := sent["qtn_codes_to_exclude"]; ok {
		t.Fatalf("empty exclusions must be omitted: %v", sent)
	}
	if !strings.Contains(string(env.Data), "EX1") {
		t.Fatalf("upstream body not relayed: %s", env.Data)
	}
}

func TestPayloadSubmitUpstreamError(t *testing.T) {
	s := newTestServer(t)
	s.api.DoFn = func(ctx context.Context, in upstream.Request) (*upstream.Response, error) {
		return nil, errors.New("connection refused")
	}
	s.do(t, http.MethodPost, "/api/workspace/selection", `{"code":"C1","type":"chapter","question_count":5}`)
	s.do(t, http.MethodPatch, "/api/workspace/payload", `{"examDetails":{"examTitle":"T"},"classSubject":{"subject_code":"S","medium_code":"M","examClass":"6"}}`)
	s.do(t, http.MethodPost, "/api/workspace/payload/chapters-topics", "")

	code, env := s.do(t, http.MethodPost, "/api/workspace/payload/submit", "")
	if code != http.StatusBadGateway || env.Error == nil || env.Error.Code != "upstream_error" {
		t.Fatalf("expected 502 upstream_error, got %d %+v", code, env.Error)
	}
}
