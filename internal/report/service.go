package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("result archive not configured")

// Service aggregates archived quiz results.
type Service struct {
	db *sql.DB
}

type UserSummary struct {
	UserID          string     `json:"user_id"`
	Attempts        int        `json:"attempts"`
	Passed          int        `json:"passed"`
	AverageScore    float64    `json:"average_score"`
	HighestScore    float64    `json:"highest_score"`
	LowestScore     float64    `json:"lowest_score"`
	TotalQuestions  int        `json:"total_questions"`
	TotalCorrect    int        `json:"total_correct"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// SummaryByUser returns aggregate scores over every archived attempt of
// userID. A user with no attempts gets a zero summary.
func (s *Service) SummaryByUser(ctx context.Context, userID string) (*UserSummary, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	var (
		avg, high, low sql.NullFloat64
		lastMS         sql.NullInt64
		out            = UserSummary{UserID: userID}
	)
	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END), 0),
			AVG(percentage), MAX(percentage), MIN(percentage),
			COALESCE(SUM(total), 0), COALESCE(SUM(correct), 0),
			MAX(completed_at)
		FROM quiz_results WHERE user_id = $1`, userID).
		Scan(&out.Attempts, &out.Passed, &avg, &high, &low, &out.TotalQuestions, &out.TotalCorrect, &lastMS)
	if err != nil {
		return nil, fmt.Errorf("summarize quiz results: %w", err)
	}

	out.AverageScore = roundTwo(avg.Float64)
	out.HighestScore = high.Float64
	out.LowestScore = low.Float64
	if lastMS.Valid {
		t := time.UnixMilli(lastMS.Int64).UTC()
		out.LastCompletedAt = &t
	}
	return &out, nil
}

func roundTwo(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
