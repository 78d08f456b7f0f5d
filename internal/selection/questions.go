package selection

import (
	"encoding/json"
	"strconv"
	"time"
)

// Question is an exam question as returned by the backend. Only the id is
// interpreted here.
type Question map[string]any

func (q Question) ID() string {
	switch v := q["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// Bin holds the working question list with a soft-delete area. Removed
// question ids are remembered as exclusions for the exam payload.
type Bin struct {
	questions   []Question
	removed     []Question
	excluded    []string
	lastUpdated time.Time
	now         func() time.Time
}

func NewBin() *Bin {
	return &Bin{now: time.Now}
}

func (b *Bin) touch() {
	b.lastUpdated = b.now()
}

func (b *Bin) SetQuestions(qs []Question) {
	b.questions = append([]Question(nil), qs...)
	b.touch()
}

func (b *Bin) AddQuestion(q Question) {
	b.questions = append(b.questions, q)
	b.touch()
}

// UpdateQuestion shallow-merges patch into the active question with id.
func (b *Bin) UpdateQuestion(id string, patch map[string]any) bool {
	i := indexOf(b.questions, id)
	if i < 0 {
		return false
	}
	merged := make(Question, len(b.questions[i])+len(patch))
	for k, v := range b.questions[i] {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	b.questions[i] = merged
	b.touch()
	return true
}

func (b *Bin) RemoveQuestion(id string) bool {
	i := indexOf(b.questions, id)
	if i < 0 {
		return false
	}
	q := b.questions[i]
	b.questions = append(b.questions[:i:i], b.questions[i+1:]...)
	if indexOf(b.removed, id) < 0 {
		b.removed = append(b.removed, q)
	}
	b.exclude(id)
	b.touch()
	return true
}

func (b *Bin) RestoreQuestion(id string) bool {
	i := indexOf(b.removed, id)
	if i < 0 {
		return false
	}
	q := b.removed[i]
	b.removed = append(b.removed[:i:i], b.removed[i+1:]...)
	if indexOf(b.questions, id) < 0 {
		b.questions = append(b.questions, q)
	}
	b.unexclude(id)
	b.touch()
	return true
}

func (b *Bin) RestoreAllQuestions() {
	for _, q := range b.removed {
		if indexOf(b.questions, q.ID()) < 0 {
			b.questions = append(b.questions, q)
		}
		b.unexclude(q.ID())
	}
	b.removed = nil
	b.touch()
}

// PermanentlyDeleteQuestion drops the question from the removed area. Its id
// stays excluded.
func (b *Bin) PermanentlyDeleteQuestion(id string) bool {
	i := indexOf(b.removed, id)
	if i < 0 {
		return false
	}
	b.removed = append(b.removed[:i:i], b.removed[i+1:]...)
	b.touch()
	return true
}

func (b *Bin) ClearRemovedQuestions() {
	b.removed = nil
	b.touch()
}

func (b *Bin) Questions() []Question {
	return append([]Question{}, b.questions...)
}

func (b *Bin) RemovedQuestions() []Question {
	return append([]Question{}, b.removed...)
}

func (b *Bin) ExcludedQuestions() []string {
	return append([]string{}, b.excluded...)
}

func (b *Bin) LastUpdated() time.Time {
	return b.lastUpdated
}

func (b *Bin) Clear() {
	b.questions = nil
	b.removed = nil
	b.excluded = nil
	b.touch()
}

func (b *Bin) exclude(id string) {
	for _, e := range b.excluded {
		if e == id {
			return
		}
	}
	b.excluded = append(b.excluded, id)
}

func (b *Bin) unexclude(id string) {
	out := b.excluded[:0]
	for _, e := range b.excluded {
		if e != id {
			out = append(out, e)
		}
	}
	b.excluded = out
}

func indexOf(qs []Question, id string) int {
	if id == "" {
		return -1
	}
	for i, q := range qs {
		if q.ID() == id {
			return i
		}
	}
	return -1
}

type BinSnapshot struct {
	Questions   []Question `json:"questions"`
	Removed     []Question `json:"removed"`
	Excluded    []string   `json:"excluded"`
	LastUpdated time.Time  `json:"last_updated"`
}

func (b *Bin) Snapshot() BinSnapshot {
	return BinSnapshot{
		Questions:   b.Questions(),
		Removed:     b.RemovedQuestions(),
		Excluded:    b.ExcludedQuestions(),
		LastUpdated: b.lastUpdated,
	}
}

func (b *Bin) Restore(snap BinSnapshot) {
	b.questions = append([]Question(nil), snap.Questions...)
	b.removed = append([]Question(nil), snap.Removed...)
	b.excluded = append([]string(nil), snap.Excluded...)
	b.lastUpdated = snap.LastUpdated
}
