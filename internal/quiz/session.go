package quiz

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultTotalMinutes = 15

var (
	ErrSessionNotStarted = errors.New("quiz session not started")
	ErrSessionCompleted  = errors.New("quiz session already completed")
	ErrSessionPaused     = errors.New("quiz session is paused")
	ErrTimeExpired       = errors.New("quiz time expired")
	ErrInvalidInput      = errors.New("invalid quiz input")
)

type Remark struct {
	Text         string    `json:"text"`
	Timestamp    time.Time `json:"timestamp"`
	LastModified time.Time `json:"lastModified"`
}

// State is the serializable session state. TimeRemaining is filled on
// snapshot and ignored on restore.
type State struct {
	ID                   string            `json:"id"`
	StartTime            time.Time         `json:"startTime"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	Answers              map[string]string `json:"answers"`
	Remarks              map[string]Remark `json:"remarks"`
	TotalSeconds         int               `json:"totalSeconds"`
	TimeRemaining        int               `json:"timeRemaining"`
	IsCompleted          bool              `json:"isCompleted"`
	IsPaused             bool              `json:"isPaused"`
	PausedAt             time.Time         `json:"pausedAt"`
	PausedFor            time.Duration     `json:"pausedFor"`
	CompletedAt          time.Time         `json:"completedAt"`
}

// Session tracks one timed quiz attempt. It is not safe for concurrent use.
type Session struct {
	st  State
	now func() time.Time
}

func NewSession(now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	s := &Session{now: now}
	s.Reset()
	return s
}

// Start begins a fresh attempt lasting totalMinutes (15 when not positive).
func (s *Session) Start(totalMinutes int) {
	if totalMinutes <= 0 {
		totalMinutes = DefaultTotalMinutes
	}
	s.st = State{
		ID:           uuid.NewString(),
		StartTime:    s.now(),
		Answers:      map[string]string{},
		Remarks:      map[string]Remark{},
		TotalSeconds: totalMinutes * 60,
	}
}

func (s *Session) Started() bool {
	return !s.st.StartTime.IsZero()
}

func (s *Session) ID() string {
	return s.st.ID
}

func (s *Session) IsCompleted() bool {
	return s.st.IsCompleted
}

func (s *Session) CurrentIndex() int {
	return s.st.CurrentQuestionIndex
}

func (s *Session) StartTime() time.Time {
	return s.st.StartTime
}

func (s *Session) CompletedAt() time.Time {
	return s.st.CompletedAt
}

func (s *Session) Answers() map[string]string {
	out := make(map[string]string, len(s.st.Answers))
	for k, v := range s.st.Answers {
		out[k] = v
	}
	return out
}

func (s *Session) guard() error {
	if !s.Started() {
		return ErrSessionNotStarted
	}
	if s.st.IsCompleted {
		return ErrSessionCompleted
	}
	return nil
}

// TimeRemaining counts down from start in whole seconds, excluding paused
// spans. It never goes below zero.
func (s *Session) TimeRemaining() int {
	if !s.Started() {
		if s.st.TotalSeconds > 0 {
			return s.st.TotalSeconds
		}
		return DefaultTotalMinutes * 60
	}
	end := s.now()
	if s.st.IsCompleted {
		end = s.st.CompletedAt
	}
	elapsed := end.Sub(s.st.StartTime) - s.st.PausedFor
	if s.st.IsPaused {
		elapsed -= end.Sub(s.st.PausedAt)
	}
	left := s.st.TotalSeconds - int(elapsed/time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// UpdateAnswer records choice for questionID; an empty choice clears it.
func (s *Session) UpdateAnswer(questionID, choice string) error {
	if err := s.guard(); err != nil {
		return err
	}
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return ErrInvalidInput
	}
	if s.st.IsPaused {
		return ErrSessionPaused
	}
	if s.TimeRemaining() == 0 {
		s.complete()
		return ErrTimeExpired
	}
	choice = strings.TrimSpace(choice)
	if choice == "" {
		delete(s.st.Answers, questionID)
		return nil
	}
	s.st.Answers[questionID] = choice
	return nil
}

// Next advances one question. total bounds the index when positive.
func (s *Session) Next(total int) error {
	if err := s.guard(); err != nil {
		return err
	}
	if total > 0 && s.st.CurrentQuestionIndex >= total-1 {
		return nil
	}
	s.st.CurrentQuestionIndex++
	return nil
}

func (s *Session) Previous() error {
	if err := s.guard(); err != nil {
		return err
	}
	if s.st.CurrentQuestionIndex > 0 {
		s.st.CurrentQuestionIndex--
	}
	return nil
}

func (s *Session) Pause() error {
	if err := s.guard(); err != nil {
		return err
	}
	if s.st.IsPaused {
		return nil
	}
	s.st.IsPaused = true
	s.st.PausedAt = s.now()
	return nil
}

func (s *Session) Resume() error {
	if err := s.guard(); err != nil {
		return err
	}
	s.resume()
	return nil
}

func (s *Session) resume() {
	if !s.st.IsPaused {
		return
	}
	s.st.PausedFor += s.now().Sub(s.st.PausedAt)
	s.st.IsPaused = false
	s.st.PausedAt = time.Time{}
}

func (s *Session) SaveRemark(questionID, text string) error {
	if err := s.guard(); err != nil {
		return err
	}
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return ErrInvalidInput
	}
	now := s.now()
	r, ok := s.st.Remarks[questionID]
	if !ok {
		r.Timestamp = now
	}
	r.Text = text
	r.LastModified = now
	s.st.Remarks[questionID] = r
	return nil
}

func (s *Session) Remarks() map[string]Remark {
	out := make(map[string]Remark, len(s.st.Remarks))
	for k, v := range s.st.Remarks {
		out[k] = v
	}
	return out
}

func (s *Session) ClearRemarks() {
	s.st.Remarks = map[string]Remark{}
}

// Complete freezes the session. Completing twice is a no-op.
func (s *Session) Complete() error {
	if !s.Started() {
		return ErrSessionNotStarted
	}
	if s.st.IsCompleted {
		return nil
	}
	s.complete()
	return nil
}

func (s *Session) complete() {
	s.resume()
	s.st.IsCompleted = true
	s.st.CompletedAt = s.now()
}

func (s *Session) Reset() {
	s.st = State{
		Answers:      map[string]string{},
		Remarks:      map[string]Remark{},
		TotalSeconds: DefaultTotalMinutes * 60,
	}
}

// CalculateResults scores the current answers against q.
func (s *Session) CalculateResults(q Quiz) Results {
	end := s.st.CompletedAt
	if end.IsZero() {
		end = s.now()
	}
	return Score(q, s.st.Answers, s.st.StartTime, end)
}

func (s *Session) Snapshot() State {
	st := s.st
	st.Answers = s.Answers()
	st.Remarks = s.Remarks()
	st.TimeRemaining = s.TimeRemaining()
	return st
}

func (s *Session) Restore(st State) {
	if st.Answers == nil {
		st.Answers = map[string]string{}
	}
	if st.Remarks == nil {
		st.Remarks = map[string]Remark{}
	}
	st.TimeRemaining = 0
	s.st = st
}
