package payload

import (
	"fmt"
	"strings"

	"examdesk/internal/selection"
)

const (
	GroupChapter = "chapter"
	GroupTopic   = "topic"

	ErrChaptersTopicsRequired = "Chapter/topic selections are required"
)

type Code struct {
	Code    string `json:"code"`
	QnCount *int   `json:"qn_count,omitempty"`
}

type Group struct {
	Type  string `json:"type"`
	Codes []Code `json:"codes"`
}

// Payload is the exam-creation request body sent upstream.
type Payload struct {
	IsAISelected      bool     `json:"is_ai_selected"`
	ExamName          string   `json:"exam_name"`
	ExamTypeCode      string   `json:"exam_type_code"`
	SubjectCode       string   `json:"subject_code"`
	MediumCode        string   `json:"medium_code"`
	ExamMode          string   `json:"exam_mode"`
	TotalTime         int      `json:"total_time"`
	TotalQuestions    int      `json:"total_questions"`
	NoOfVersions      int      `json:"no_of_versions"`
	NoOfSets          int      `json:"no_of_sets"`
	Standard          string   `json:"standard"`
	QtnCodesToExclude []string `json:"qtn_codes_to_exclude,omitempty"`
	ChaptersTopics    []Group  `json:"chapters_topics"`
}

type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
	Payload *Payload `json:"payload"`
}

type ExamDetails struct {
	ExamTitle    string `json:"examTitle"`
	ExamMode     string `json:"examMode"`
	ExamTypeCode string `json:"exam_type_code"`
}

type ExamConfig struct {
	TotalTime        int `json:"totalTime"`
	TotalQuestions   int `json:"totalQuestions"`
	NumberOfVersions int `json:"numberOfVersions"`
	NumberOfSets     int `json:"numberOfSets"`
}

type ClassSubject struct {
	SubjectCode string `json:"subject_code"`
	MediumCode  string `json:"medium_code"`
	ExamClass   string `json:"examClass"`
}

// AllocationItem is one confirmed row from the question allocation step.
type AllocationItem struct {
	Code           string             `json:"code"`
	Type           selection.NodeType `json:"type"`
	QuestionsToAdd int                `json:"questionsToAdd"`
}

func defaults() Payload {
	return Payload{
		ExamTypeCode:      "1000",
		ExamMode:          "online",
		TotalTime:         40,
		TotalQuestions:    40,
		NoOfVersions:      1,
		NoOfSets:          1,
		QtnCodesToExclude: []string{},
		ChaptersTopics:    []Group{},
	}
}

// Builder accumulates the exam payload across wizard steps. Zero values in
// update calls keep the current field. Groups keep every positive allocation;
// the AI mode decides on read whether counts are emitted. Builder is not safe
// for concurrent use.
type Builder struct {
	p Payload
}

func NewBuilder() *Builder {
	return &Builder{p: defaults()}
}

func (b *Builder) Reset() {
	b.p = defaults()
}

func (b *Builder) UpdateExamDetails(d ExamDetails) {
	if v := strings.TrimSpace(d.ExamTitle); v != "" {
		b.p.ExamName = d.ExamTitle
	}
	if v := strings.TrimSpace(d.ExamMode); v != "" {
		b.p.ExamMode = v
	}
	b.p.ExamMode = strings.ToLower(b.p.ExamMode)
	if v := strings.TrimSpace(d.ExamTypeCode); v != "" {
		b.p.ExamTypeCode = v
	}
}

func (b *Builder) UpdateExamConfig(c ExamConfig) {
	if c.TotalTime > 0 {
		b.p.TotalTime = c.TotalTime
	}
	if c.TotalQuestions > 0 {
		b.p.TotalQuestions = c.TotalQuestions
	}
	if c.NumberOfVersions > 0 {
		b.p.NoOfVersions = c.NumberOfVersions
	}
	if c.NumberOfSets > 0 {
		b.p.NoOfSets = c.NumberOfSets
	}
}

func (b *Builder) UpdateClassSubject(c ClassSubject) {
	if v := strings.TrimSpace(c.SubjectCode); v != "" {
		b.p.SubjectCode = v
	}
	if v := strings.TrimSpace(c.MediumCode); v != "" {
		b.p.MediumCode = v
	}
	if v := strings.TrimSpace(c.ExamClass); v != "" {
		b.p.Standard = v
	}
}

func (b *Builder) SetAIMode(on bool) {
	b.p.IsAISelected = on
}

func (b *Builder) SetExcludedQuestions(ids []string) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	b.p.QtnCodesToExclude = out
}

func count(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// view returns a copy of groups with counts dropped when AI selection is on.
func (b *Builder) view(groups []Group) []Group {
	out := copyGroups(groups)
	if !b.p.IsAISelected {
		return out
	}
	for i := range out {
		for j := range out[i].Codes {
			out[i].Codes[j].QnCount = nil
		}
	}
	return out
}

// BuildChaptersTopics replaces the groups with chapters and topics that have
// a positive allocation.
func (b *Builder) BuildChaptersTopics(chapters, topics []selection.Node) []Group {
	groups := make([]Group, 0, 2)
	if codes := b.codesFrom(chapters); len(codes) > 0 {
		groups = append(groups, Group{Type: GroupChapter, Codes: codes})
	}
	if codes := b.codesFrom(topics); len(codes) > 0 {
		groups = append(groups, Group{Type: GroupTopic, Codes: codes})
	}
	b.p.ChaptersTopics = groups
	return b.view(groups)
}

func (b *Builder) codesFrom(nodes []selection.Node) []Code {
	var out []Code
	for _, n := range nodes {
		if n.QuestionsToAdd <= 0 {
			continue
		}
		out = append(out, Code{Code: n.Code, QnCount: count(n.QuestionsToAdd)})
	}
	return out
}

// FromSelection builds groups from the explicitly selected chapters, with
// topics and subtopics sharing the topic group.
func (b *Builder) FromSelection(s *selection.Store) []Group {
	topics := s.SelectedByType(selection.TypeTopic)
	topics = append(topics, s.SelectedByType(selection.TypeSubtopic)...)
	return b.BuildChaptersTopics(s.SelectedByType(selection.TypeChapter), topics)
}

// UpdateFromAllocation replaces the groups from confirmed allocation rows.
// Rows are kept regardless of allocation; only positive counts are kept.
func (b *Builder) UpdateFromAllocation(items []AllocationItem) []Group {
	var chapters, topics []Code
	for _, it := range items {
		if strings.TrimSpace(it.Code) == "" {
			continue
		}
		c := Code{Code: it.Code, QnCount: count(it.QuestionsToAdd)}
		switch it.Type {
		case selection.TypeChapter:
			chapters = append(chapters, c)
		case selection.TypeTopic, selection.TypeSubtopic:
			topics = append(topics, c)
		}
	}
	groups := make([]Group, 0, 2)
	if len(chapters) > 0 {
		groups = append(groups, Group{Type: GroupChapter, Codes: chapters})
	}
	if len(topics) > 0 {
		groups = append(groups, Group{Type: GroupTopic, Codes: topics})
	}
	b.p.ChaptersTopics = groups
	return b.view(groups)
}

// Current returns a copy of the payload as it would be sent, with counts
// following the AI mode.
func (b *Builder) Current() Payload {
	p := b.State()
	p.ChaptersTopics = b.view(b.p.ChaptersTopics)
	return p
}

// State returns a copy of the accumulated payload with every allocation,
// whatever the AI mode.
func (b *Builder) State() Payload {
	p := b.p
	p.QtnCodesToExclude = append([]string{}, b.p.QtnCodesToExclude...)
	p.ChaptersTopics = copyGroups(b.p.ChaptersTopics)
	return p
}

// Restore replaces the accumulated payload with one taken from State.
func (b *Builder) Restore(p Payload) {
	if p.QtnCodesToExclude == nil {
		p.QtnCodesToExclude = []string{}
	}
	if p.ChaptersTopics == nil {
		p.ChaptersTopics = []Group{}
	}
	b.p = p
}

// Build validates the payload. Validation failures are reported in the result,
// never as an error.
func (b *Builder) Build() Result {
	p := b.Current()
	p.ExamName = strings.TrimSpace(p.ExamName)

	var errs []string
	required := []struct {
		field string
		value string
	}{
		{"exam_name", p.ExamName},
		{"subject_code", p.SubjectCode},
		{"medium_code", p.MediumCode},
		{"standard", p.Standard},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Sprintf("%s is required", r.field))
		}
	}
	if !hasCodes(p.ChaptersTopics) {
		errs = append(errs, ErrChaptersTopicsRequired)
	}
	if len(errs) > 0 {
		return Result{IsValid: false, Errors: errs}
	}

	if len(p.QtnCodesToExclude) == 0 {
		p.QtnCodesToExclude = nil
	}
	return Result{IsValid: true, Errors: []string{}, Payload: &p}
}

func hasCodes(groups []Group) bool {
	for _, g := range groups {
		if len(g.Codes) > 0 {
			return true
		}
	}
	return false
}

func copyGroups(in []Group) []Group {
	out := make([]Group, 0, len(in))
	for _, g := range in {
		codes := make([]Code, len(g.Codes))
		copy(codes, g.Codes)
		out = append(out, Group{Type: g.Type, Codes: codes})
	}
	return out
}
