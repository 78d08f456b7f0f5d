package quiz

import (
	"math"
	"strings"
	"time"
)

const PassPercentage = 60.0

type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text,omitempty"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text,omitempty"`
	Options       []Option `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
}

type Quiz struct {
	ID        string     `json:"id,omitempty"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

type QuestionResult struct {
	QuestionIndex int    `json:"questionIndex"`
	QuestionID    string `json:"questionId"`
	UserAnswer    string `json:"userAnswer,omitempty"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	IsAttempted   bool   `json:"isAttempted"`
}

type Results struct {
	TotalQuestions  int              `json:"totalQuestions"`
	Attempted       int              `json:"attempted"`
	Correct         int              `json:"correct"`
	Incorrect       int              `json:"incorrect"`
	Unanswered      int              `json:"unanswered"`
	Percentage      float64          `json:"percentage"`
	Passed          bool             `json:"passed"`
	TimeTakenMs     int64            `json:"timeTaken"`
	QuestionResults []QuestionResult `json:"questionResults"`
	CompletedAt     time.Time        `json:"completedAt"`
}

// CorrectOptionID returns correct_answer when set, otherwise the first option
// flagged as correct.
func CorrectOptionID(q Question) string {
	if c := strings.TrimSpace(q.CorrectAnswer); c != "" {
		return c
	}
	for _, o := range q.Options {
		if o.IsCorrect {
			return o.ID
		}
	}
	return ""
}

// Score compares answers (question id to chosen option id) with the quiz key.
func Score(q Quiz, answers map[string]string, startedAt, completedAt time.Time) Results {
	res := Results{
		TotalQuestions:  len(q.Questions),
		QuestionResults: make([]QuestionResult, 0, len(q.Questions)),
		CompletedAt:     completedAt,
	}

	for i, question := range q.Questions {
		answer, attempted := answers[question.ID]
		answer = strings.TrimSpace(answer)
		attempted = attempted && answer != ""
		correct := CorrectOptionID(question)
		isCorrect := attempted && correct != "" && answer == correct

		if attempted {
			res.Attempted++
		}
		if isCorrect {
			res.Correct++
		}
		res.QuestionResults = append(res.QuestionResults, QuestionResult{
			QuestionIndex: i,
			QuestionID:    question.ID,
			UserAnswer:    answer,
			CorrectAnswer: correct,
			IsCorrect:     isCorrect,
			IsAttempted:   attempted,
		})
	}

	res.Incorrect = res.Attempted - res.Correct
	res.Unanswered = res.TotalQuestions - res.Attempted
	if res.TotalQuestions > 0 {
		res.Percentage = round2(float64(res.Correct) / float64(res.TotalQuestions) * 100)
	}
	res.Passed = res.Percentage >= PassPercentage
	if !startedAt.IsZero() && completedAt.After(startedAt) {
		res.TimeTakenMs = completedAt.Sub(startedAt).Milliseconds()
	}
	return res
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
