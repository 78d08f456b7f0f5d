package workspace

import (
	"sync"
	"time"

	"examdesk/internal/payload"
	"examdesk/internal/quiz"
	"examdesk/internal/selection"
)

// Workspace holds the authoring and practice state of one session.
// Callers lock it for the duration of a request.
type Workspace struct {
	mu sync.Mutex

	ID        string
	UserID    string
	Selection *selection.Store
	Questions *selection.Bin
	Session   *quiz.Session
	Config    quiz.Config
	Quiz      *quiz.Quiz
	Results   *quiz.Results
	Payload   *payload.Builder

	lastUsed  time.Time
	expiresAt time.Time
}

// Snapshot is the persisted form of a Workspace.
type Snapshot struct {
	ID        string                `json:"id"`
	UserID    string                `json:"user_id"`
	Selection selection.Snapshot    `json:"selection"`
	Questions selection.BinSnapshot `json:"questions"`
	Session   quiz.State            `json:"session"`
	Config    quiz.Config           `json:"config"`
	Quiz      *quiz.Quiz            `json:"quiz,omitempty"`
	Results   *quiz.Results         `json:"results,omitempty"`
	Payload   payload.Payload       `json:"payload"`
	SavedAt   time.Time             `json:"saved_at"`
}

func newWorkspace(id, userID string, now func() time.Time) *Workspace {
	return &Workspace{
		ID:        id,
		UserID:    userID,
		Selection: selection.NewStore(),
		Questions: selection.NewBin(),
		Session:   quiz.NewSession(now),
		Config:    quiz.DefaultConfig(),
		Payload:   payload.NewBuilder(),
	}
}

func (w *Workspace) Lock()   { w.mu.Lock() }
func (w *Workspace) Unlock() { w.mu.Unlock() }

// Snapshot captures the workspace. The caller holds the lock.
func (w *Workspace) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		ID:        w.ID,
		UserID:    w.UserID,
		Selection: w.Selection.Snapshot(),
		Questions: w.Questions.Snapshot(),
		Session:   w.Session.Snapshot(),
		Config:    w.Config,
		Quiz:      w.Quiz,
		Results:   w.Results,
		Payload:   w.Payload.State(),
		SavedAt:   now,
	}
}

func (w *Workspace) restore(s Snapshot) {
	w.Selection.Restore(s.Selection)
	w.Questions.Restore(s.Questions)
	w.Session.Restore(s.Session)
	w.Config = s.Config.Normalize()
	w.Quiz = s.Quiz
	w.Results = s.Results
	w.Payload.Restore(s.Payload)
	if w.UserID == "" {
		w.UserID = s.UserID
	}
}

// ResetQuiz clears the attempt and its results but keeps the configuration.
func (w *Workspace) ResetQuiz() {
	w.Session.Reset()
	w.Quiz = nil
	w.Results = nil
}
