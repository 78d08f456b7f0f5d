package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ResultRecord struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	UserID      string    `json:"user_id"`
	QuizID      string    `json:"quiz_id,omitempty"`
	Results     Results   `json:"results"`
	CompletedAt time.Time `json:"completed_at"`
}

// ResultStore archives scored attempts in the quiz_results table.
type ResultStore struct {
	db *sql.DB
}

func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Save(ctx context.Context, rec ResultRecord) (*ResultRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("result store not configured")
	}
	if rec.UserID == "" || rec.WorkspaceID == "" {
		return nil, ErrInvalidInput
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = rec.Results.CompletedAt
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}

	raw, err := json.Marshal(rec.Results)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	r := rec.Results
	_, err = s.db.ExecContext(ctx, `INSERT INTO quiz_results
		(id, workspace_id, user_id, quiz_id, total, attempted, correct, percentage, passed, time_taken_ms, results_json, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		rec.ID, rec.WorkspaceID, rec.UserID, rec.QuizID, r.TotalQuestions, r.Attempted, r.Correct,
		r.Percentage, r.Passed, r.TimeTakenMs, string(raw), rec.CompletedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("insert quiz result: %w", err)
	}
	return &rec, nil
}

// ListByUser returns the newest results first.
func (s *ResultStore) ListByUser(ctx context.Context, userID string, limit int) ([]ResultRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("result store not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, workspace_id, user_id, quiz_id, results_json, completed_at
		FROM quiz_results WHERE user_id = $1 ORDER BY completed_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query quiz results: %w", err)
	}
	defer rows.Close()

	out := make([]ResultRecord, 0)
	for rows.Next() {
		var (
			rec         ResultRecord
			raw         string
			completedMS int64
		)
		if err := rows.Scan(&rec.ID, &rec.WorkspaceID, &rec.UserID, &rec.QuizID, &raw, &completedMS); err != nil {
			return nil, fmt.Errorf("scan quiz result: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &rec.Results); err != nil {
			return nil, fmt.Errorf("decode quiz result: %w", err)
		}
		rec.CompletedAt = time.UnixMilli(completedMS).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
