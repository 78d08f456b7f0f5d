package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"examdesk/internal/app/apiresp"
	"examdesk/internal/auth"
	"examdesk/internal/payload"
	"examdesk/internal/quiz"
	"examdesk/internal/selection"
	"examdesk/internal/upstream"

	"github.com/go-chi/chi/v5"
)

var (
	errNotFound     = errors.New("not found")
	errNoQuiz       = errors.New("no quiz loaded")
	errNoResults    = errors.New("quiz results not available")
	errNoArchive    = errors.New("result archive not configured")
	errInvalidBody  = errors.New("invalid request body")
	errMissingField = errors.New("missing required field")
)

type upstreamDoer interface {
	Do(ctx context.Context, in upstream.Request) (*upstream.Response, error)
}

type resultArchive interface {
	Save(ctx context.Context, rec quiz.ResultRecord) (*quiz.ResultRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]quiz.ResultRecord, error)
}

type HandlerConfig struct {
	Upstream upstreamDoer
	Archive  resultArchive
}

type Handler struct {
	m       *Manager
	api     upstreamDoer
	archive resultArchive
}

type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type addSelectionRequest struct {
	selection.Input
	Parent  *selection.Ref     `json:"parent"`
	Context *selection.Context `json:"context"`
}

type bulkSelectionRequest struct {
	Items []selection.Input `json:"items"`
}

type questionsToAddRequest struct {
	QuestionsToAdd *int `json:"questionsToAdd"`
}

type setQuestionsRequest struct {
	Questions []selection.Question `json:"questions"`
}

type startQuizRequest struct {
	Quiz      quiz.Quiz `json:"quiz"`
	TotalTime int       `json:"total_time"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type remarkRequest struct {
	Text string `json:"text"`
}

type patchPayloadRequest struct {
	ExamDetails       *payload.ExamDetails  `json:"examDetails"`
	ExamConfig        *payload.ExamConfig   `json:"examConfig"`
	ClassSubject      *payload.ClassSubject `json:"classSubject"`
	IsAISelected      *bool                 `json:"is_ai_selected"`
	ExcludedQuestions *[]string             `json:"qtn_codes_to_exclude"`
}

type allocationRequest struct {
	Items []payload.AllocationItem `json:"items"`
}

type selectionView struct {
	Selections []selection.Node     `json:"selections"`
	Hierarchy  []selection.TreeNode `json:"hierarchy"`
	Stats      selection.Stats      `json:"stats"`
}

type questionsView struct {
	Questions   []selection.Question `json:"questions"`
	Removed     []selection.Question `json:"removed"`
	Excluded    []string             `json:"excluded"`
	LastUpdated time.Time            `json:"lastUpdated"`
}

type quizView struct {
	Config        quiz.Config   `json:"config"`
	Session       quiz.State    `json:"session"`
	TimeRemaining int           `json:"timeRemaining"`
	Quiz          *quiz.Quiz    `json:"quiz,omitempty"`
	Results       *quiz.Results `json:"results,omitempty"`
}

func NewHandler(m *Manager, cfg HandlerConfig) *Handler {
	return &Handler{m: m, api: cfg.Upstream, archive: cfg.Archive}
}

// Mount registers the workspace endpoints on r. The caller applies
// auth.RequireSession.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/selection", h.GetSelection)
	r.Post("/selection", h.AddSelection)
	r.Delete("/selection", h.ClearSelection)
	r.Post("/selection/bulk", h.BulkAddSelections)
	r.Post("/selection/chapter-metadata", h.StoreChapterMetadata)
	r.Delete("/selection/{code}", h.RemoveSelection)
	r.Put("/selection/{code}/questions-to-add", h.UpdateQuestionsToAdd)
	r.Get("/selection/{code}/logical", h.IsLogicallySelected)

	r.Get("/questions", h.GetQuestions)
	r.Put("/questions", h.SetQuestions)
	r.Post("/questions", h.AddQuestion)
	r.Post("/questions/restore-all", h.RestoreAllQuestions)
	r.Delete("/questions/removed", h.ClearRemovedQuestions)
	r.Delete("/questions/removed/{id}", h.PermanentlyDeleteQuestion)
	r.Patch("/questions/{id}", h.UpdateQuestion)
	r.Delete("/questions/{id}", h.RemoveQuestion)
	r.Post("/questions/{id}/restore", h.RestoreQuestion)

	r.Get("/quiz", h.GetQuiz)
	r.Put("/quiz/config", h.UpdateQuizConfig)
	r.Post("/quiz/start", h.StartQuiz)
	r.Put("/quiz/answers/{questionID}", h.SaveAnswer)
	r.Post("/quiz/next", h.NextQuestion)
	r.Post("/quiz/previous", h.PreviousQuestion)
	r.Post("/quiz/pause", h.PauseQuiz)
	r.Post("/quiz/resume", h.ResumeQuiz)
	r.Put("/quiz/remarks/{questionID}", h.SaveRemark)
	r.Delete("/quiz/remarks", h.ClearRemarks)
	r.Post("/quiz/complete", h.CompleteQuiz)
	r.Get("/quiz/results", h.GetResults)
	r.Post("/quiz/reset", h.ResetQuiz)
	r.Get("/quiz/history", h.History)

	r.Get("/payload", h.GetPayload)
	r.Patch("/payload", h.PatchPayload)
	r.Post("/payload/chapters-topics", h.BuildChaptersTopics)
	r.Post("/payload/allocation", h.ApplyAllocation)
	r.Get("/payload/preview", h.PreviewPayload)
	r.Post("/payload/submit", h.SubmitPayload)
	r.Post("/payload/reset", h.ResetPayload)
}

func refFrom(r *http.Request) Ref {
	s, ok := auth.CurrentSession(r.Context())
	if !ok {
		s = auth.FromRequest(r)
	}
	return Ref{ID: s.WorkspaceID(), UserID: s.UserID, ExpiresAt: s.ExpiresAt}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}

// update runs fn and writes its result, or the mapped error.
func (h *Handler) update(w http.ResponseWriter, r *http.Request, fn func(ws *Workspace) (any, error)) {
	var data any
	err := h.m.Update(r.Context(), refFrom(r), func(ws *Workspace) error {
		var err error
		data, err = fn(ws)
		return err
	})
	h.reply(w, r, data, err)
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request, fn func(ws *Workspace) (any, error)) {
	var data any
	err := h.m.View(r.Context(), refFrom(r), func(ws *Workspace) error {
		var err error
		data, err = fn(ws)
		return err
	})
	h.reply(w, r, data, err)
}

func (h *Handler) reply(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		writeJSON(w, r, statusFor(err), response{OK: false, Error: err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: data})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoWorkspace):
		return http.StatusUnauthorized
	case errors.Is(err, ErrWorkspaceOwner):
		return http.StatusForbidden
	case errors.Is(err, errNotFound), errors.Is(err, errNoResults):
		return http.StatusNotFound
	case errors.Is(err, errInvalidBody), errors.Is(err, errMissingField),
		errors.Is(err, selection.ErrInvalidInput), errors.Is(err, selection.ErrUnknownType),
		errors.Is(err, quiz.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, quiz.ErrSessionNotStarted), errors.Is(err, quiz.ErrSessionCompleted),
		errors.Is(err, quiz.ErrSessionPaused), errors.Is(err, quiz.ErrTimeExpired),
		errors.Is(err, errNoQuiz):
		return http.StatusConflict
	case errors.Is(err, errNoArchive):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func selectionOf(ws *Workspace) selectionView {
	return selectionView{
		Selections: ws.Selection.Selections(),
		Hierarchy:  ws.Selection.Hierarchy(),
		Stats:      ws.Selection.Stats(),
	}
}

func questionsOf(ws *Workspace) questionsView {
	return questionsView{
		Questions:   ws.Questions.Questions(),
		Removed:     ws.Questions.RemovedQuestions(),
		Excluded:    ws.Questions.ExcludedQuestions(),
		LastUpdated: ws.Questions.LastUpdated(),
	}
}

func quizOf(ws *Workspace) quizView {
	return quizView{
		Config:        ws.Config,
		Session:       ws.Session.Snapshot(),
		TimeRemaining: ws.Session.TimeRemaining(),
		Quiz:          ws.Quiz,
		Results:       ws.Results,
	}
}

func quizTotal(ws *Workspace) int {
	if ws.Quiz == nil {
		return 0
	}
	return len(ws.Quiz.Questions)
}

func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(ws *Workspace) (any, error) {
		return selectionOf(ws), nil
	})
}

func (h *Handler) AddSelection(w http.ResponseWriter, r *http.Request) {
	var req addSelectionRequest
	if err := decode(r, &req); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		var err error
		if req.Context != nil {
			err = ws.Selection.AddSelectionWithContext(req.Input, *req.Context)
		} else {
			err = ws.Selection.AddSelection(req.Input, req.Parent)
		}
		if err != nil {
			return nil, err
		}
		return selectionOf(ws), nil
	})
}

func (h *Handler) BulkAddSelections(w http.ResponseWriter, r *http.Request) {
	var req bulkSelectionRequest
	if err := decode(r, &req); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		errs := []string{}
		if err := ws.Selection.BulkAddSelections(req.Items); err != nil {
			errs = strings.Split(err.Error(), "\n")
		}
		return map[string]any{
			"selection": selectionOf(ws),
			"errors":    errs,
		}, nil
	})
}

func (h *Handler) StoreChapterMetadata(w http.ResponseWriter, r *http.Request) {
	var req selection.Ref
	if err := decode(r, &req); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		h.reply(w, r, nil, errMissingField)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.Selection.StoreChapterMetadata(req)
		meta, _ := ws.Selection.ChapterMetadata(req.Code)
		return meta, nil
	})
}

func (h *Handler) RemoveSelection(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	h.update(w, r, func(ws *Workspace) (any, error) {
		if !ws.Selection.RemoveSelection(code) {
			return nil, errNotFound
		}
		return selectionOf(ws), nil
	})
}

func (h *Handler) UpdateQuestionsToAdd(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req questionsToAddRequest
	if err := decode(r, &req); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	if req.QuestionsToAdd == nil || *req.QuestionsToAdd < 0 {
		h.reply(w, r, nil, errMissingField)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		updated := ws.Selection.UpdateQuestionCount(code, *req.QuestionsToAdd)
		return map[string]any{"updated": updated, "selection": selectionOf(ws)}, nil
	})
}

func (h *Handler) IsLogicallySelected(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	t := selection.NodeType(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))))
	if !t.Valid() {
		h.reply(w, r, nil, selection.ErrUnknownType)
		return
	}
	h.view(w, r, func(ws *Workspace) (any, error) {
		return map[string]any{
			"code":       code,
			"type":       t,
			"isSelected": ws.Selection.IsSelected(code, t),
			"isLogical":  ws.Selection.IsLogicallySelected(code, t),
		}, nil
	})
}

func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.Selection.Clear()
		return selectionOf(ws), nil
	})
}

func (h *Handler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(ws *Workspace) (any, error) {
		return questionsOf(ws), nil
	})
}

func (h *Handler) SetQuestions(w http.ResponseWriter, r *http.Request) {
	var req setQuestionsRequest
	if err := decode(r, &req); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.Questions.SetQuestions(req.Questions)
		return questionsOf(ws), nil
	})
}

func (h *Handler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	var q selection.Question
	if err := decode(r, &q); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	if q.ID() == "" {
		h.reply(w, r, nil, errMissingField)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.Questions.AddQuestion(q)
		return questionsOf(ws), nil
	})
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch map[string]any
	if err := decode(r, &patch); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		if !ws.Questions.UpdateQuestion(id, patch) {
			return nil, errNotFound
		}
		return questionsOf(ws), nil
	})
}

func (h *Handler) RemoveQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.update(w, r, func(ws *Workspace) (any, error) {
		if !ws.Questions.RemoveQuestion(id) {
			return nil, errNotFound
		}
		return questionsOf(ws), nil
	})
}

func (h *Handler) RestoreQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.update(w, r, func(ws *Workspace) (any, error) {
		if !ws.Questions.RestoreQuestion(id) {
			return nil, errNotFound
		}
		return questionsOf(ws), nil
	})
}

func (h *Handler) RestoreAllQuestions(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.Questions.RestoreAllQuestions()
		return questionsOf(ws), nil
	})
}

func (h *Handler) PermanentlyDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.update(w, r, func(ws *Workspace) (any, error) {
		if !ws.Questions.PermanentlyDeleteQuestion(id) {
			return nil, errNotFound
		}
		return questionsOf(ws), nil
	})
}

func (h *Handler) ClearRemovedQuestions(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.Questions.ClearRemovedQuestions()
		return questionsOf(ws), nil
	})
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(ws *Workspace) (any, error) {
		return quizOf(ws), nil
	})
}

func (h *Handler) UpdateQuizConfig(w http.ResponseWriter, r *http.Request) {
	var req quiz.Config
	if err := decode(r, &req); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.Config = req.Normalize()
		return ws.Config, nil
	})
}

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	var req startQuizRequest
	if err := decode(r, &req); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	if len(req.Quiz.Questions) == 0 {
		h.reply(w, r, nil, errMissingField)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		minutes := req.TotalTime
		if minutes <= 0 {
			minutes = ws.Config.TotalTime
		}
		q := req.Quiz
		ws.Quiz = &q
		ws.Results = nil
		ws.Session.Start(minutes)
		return quizOf(ws), nil
	})
}

func (h *Handler) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	var req answerRequest
	if err := decode(r, &req); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		if err := ws.Session.UpdateAnswer(questionID, req.Answer); err != nil {
			return nil, err
		}
		return quizOf(ws), nil
	})
}

func (h *Handler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		if err := ws.Session.Next(quizTotal(ws)); err != nil {
			return nil, err
		}
		return quizOf(ws), nil
	})
}

func (h *Handler) PreviousQuestion(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		if err := ws.Session.Previous(); err != nil {
			return nil, err
		}
		return quizOf(ws), nil
	})
}

func (h *Handler) PauseQuiz(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		if err := ws.Session.Pause(); err != nil {
			return nil, err
		}
		return quizOf(ws), nil
	})
}

func (h *Handler) ResumeQuiz(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		if err := ws.Session.Resume(); err != nil {
			return nil, err
		}
		return quizOf(ws), nil
	})
}

func (h *Handler) SaveRemark(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	var req remarkRequest
	if err := decode(r, &req); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		if err := ws.Session.SaveRemark(questionID, req.Text); err != nil {
			return nil, err
		}
		return ws.Session.Remarks(), nil
	})
}

func (h *Handler) ClearRemarks(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.Session.ClearRemarks()
		return ws.Session.Remarks(), nil
	})
}

// CompleteQuiz finishes the attempt, scores it and archives the result
// once. Completing again returns the stored result.
func (h *Handler) CompleteQuiz(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		if ws.Quiz == nil {
			return nil, errNoQuiz
		}
		if ws.Session.IsCompleted() && ws.Results != nil {
			return ws.Results, nil
		}
		if err := ws.Session.Complete(); err != nil {
			return nil, err
		}
		res := ws.Session.CalculateResults(*ws.Quiz)
		ws.Results = &res
		h.archiveResult(r.Context(), ws, res)
		return ws.Results, nil
	})
}

func (h *Handler) archiveResult(ctx context.Context, ws *Workspace, res quiz.Results) {
	if h.archive == nil || ws.UserID == "" {
		return
	}
	_, err := h.archive.Save(ctx, quiz.ResultRecord{
		WorkspaceID: ws.ID,
		UserID:      ws.UserID,
		QuizID:      ws.Quiz.ID,
		Results:     res,
		CompletedAt: res.CompletedAt,
	})
	if err != nil {
		log.Printf("workspace %s: archive result: %v", ws.ID, err)
	}
}

func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(ws *Workspace) (any, error) {
		if ws.Results == nil {
			return nil, errNoResults
		}
		return ws.Results, nil
	})
}

func (h *Handler) ResetQuiz(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.ResetQuiz()
		return quizOf(ws), nil
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.reply(w, r, nil, errNoArchive)
		return
	}
	ref := refFrom(r)
	if ref.UserID == "" {
		h.reply(w, r, nil, ErrNoWorkspace)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.archive.ListByUser(r.Context(), ref.UserID, limit)
	if err != nil {
		log.Printf("quiz history %s: %v", ref.UserID, err)
		h.reply(w, r, nil, err)
		return
	}
	h.reply(w, r, items, nil)
}

func (h *Handler) GetPayload(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(ws *Workspace) (any, error) {
		return ws.Payload.Current(), nil
	})
}

func (h *Handler) PatchPayload(w http.ResponseWriter, r *http.Request) {
	var req patchPayloadRequest
	if err := decode(r, &req); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		if req.ExamDetails != nil {
			ws.Payload.UpdateExamDetails(*req.ExamDetails)
		}
		if req.ExamConfig != nil {
			ws.Payload.UpdateExamConfig(*req.ExamConfig)
		}
		if req.ClassSubject != nil {
			ws.Payload.UpdateClassSubject(*req.ClassSubject)
		}
		if req.IsAISelected != nil {
			ws.Payload.SetAIMode(*req.IsAISelected)
		}
		if req.ExcludedQuestions != nil {
			ws.Payload.SetExcludedQuestions(*req.ExcludedQuestions)
		}
		return ws.Payload.Current(), nil
	})
}

func (h *Handler) BuildChaptersTopics(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.Payload.FromSelection(ws.Selection)
		return ws.Payload.Current(), nil
	})
}

func (h *Handler) ApplyAllocation(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decode(r, &req); err != nil {
		h.reply(w, r, nil, err)
		return
	}
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.Payload.UpdateFromAllocation(req.Items)
		return ws.Payload.Current(), nil
	})
}

func (h *Handler) PreviewPayload(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(ws *Workspace) (any, error) {
		return ws.Payload.Build(), nil
	})
}

// SubmitPayload validates the payload and creates the exam upstream.
func (h *Handler) SubmitPayload(w http.ResponseWriter, r *http.Request) {
	var result payload.Result
	err := h.m.View(r.Context(), refFrom(r), func(ws *Workspace) error {
		result = ws.Payload.Build()
		return nil
	})
	if err != nil {
		h.reply(w, r, nil, err)
		return
	}
	if !result.IsValid {
		apiresp.WriteErrorData(w, r, http.StatusUnprocessableEntity, strings.Join(result.Errors, "; "), result)
		return
	}
	if h.api == nil {
		writeJSON(w, r, http.StatusServiceUnavailable, response{OK: false, Error: upstream.ErrNotConfigured.Error()})
		return
	}

	body, err := json.Marshal(result.Payload)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "failed to encode payload"})
		return
	}
	resp, err := h.api.Do(r.Context(), upstream.Request{
		Method: http.MethodPost,
		Path:   "/v2/exams",
		Body:   bytes.NewReader(body),
		Token:  auth.Token(r),
	})
	if err != nil {
		log.Printf("submit payload: %v", err)
		writeJSON(w, r, http.StatusBadGateway, response{OK: false, Error: err.Error()})
		return
	}
	if !resp.OK() {
		msg, _ := resp.ErrorMessage("Failed to create exam")
		writeJSON(w, r, resp.Status, response{OK: false, Error: msg})
		return
	}

	var data any
	if len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := resp.Decode(&data); err != nil {
			writeJSON(w, r, http.StatusBadGateway, response{OK: false, Error: "invalid upstream response"})
			return
		}
	}
	writeJSON(w, r, resp.Status, response{OK: true, Data: data})
}

func (h *Handler) ResetPayload(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ws *Workspace) (any, error) {
		ws.Payload.Reset()
		return ws.Payload.Current(), nil
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, res response) {
	if res.OK {
		apiresp.WriteOK(w, r, code, res.Data)
		return
	}
	apiresp.WriteError(w, r, code, res.Error)
}
