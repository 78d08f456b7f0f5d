package payload

import (
	"encoding/json"
	"strings"
	"testing"

	"examdesk/internal/selection"
)

func readyBuilder() *Builder {
	b := NewBuilder()
	b.UpdateExamDetails(ExamDetails{ExamTitle: "  Mid Term  ", ExamMode: "OFFLINE"})
	b.UpdateClassSubject(ClassSubject{SubjectCode: "MATH", MediumCode: "EN", ExamClass: "8"})
	return b
}

func TestBuilderDefaults(t *testing.T) {
	p := NewBuilder().Current()
	if p.ExamTypeCode != "1000" || p.ExamMode != "online" || p.TotalTime != 40 || p.TotalQuestions != 40 ||
		p.NoOfVersions != 1 || p.NoOfSets != 1 || p.IsAISelected {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestBuilderUpdatesKeepExistingOnZero(t *testing.T) {
	b := readyBuilder()
	b.UpdateExamConfig(ExamConfig{TotalTime: 90, NumberOfSets: 2})
	b.UpdateExamConfig(ExamConfig{})
	b.UpdateExamDetails(ExamDetails{})
	b.UpdateClassSubject(ClassSubject{})

	p := b.Current()
	if p.TotalTime != 90 || p.NoOfSets != 2 || p.TotalQuestions != 40 {
		t.Fatalf("config not kept: %+v", p)
	}
	if p.ExamMode != "offline" || p.SubjectCode != "MATH" || p.Standard != "8" {
		t.Fatalf("details not kept: %+v", p)
	}
}

func TestBuildChaptersTopicsFiltersAndAIMode(t *testing.T) {
	chapters := []selection.Node{{Code: "C1", QuestionsToAdd: 5}, {Code: "C2", QuestionsToAdd: 0}}
	topics := []selection.Node{{Code: "C3_T1", QuestionsToAdd: 3}}

	tests := []struct {
		name string
		ai   bool
	}{
		{name: "manual counts", ai: false},
		{name: "ai omits counts", ai: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := readyBuilder()
			b.SetAIMode(tc.ai)
			groups := b.BuildChaptersTopics(chapters, topics)
			if len(groups) != 2 || groups[0].Type != GroupChapter || groups[1].Type != GroupTopic {
				t.Fatalf("unexpected groups: %+v", groups)
			}
			if len(groups[0].Codes) != 1 || groups[0].Codes[0].Code != "C1" {
				t.Fatalf("zero allocation should be dropped: %+v", groups[0].Codes)
			}

			res := b.Build()
			if !res.IsValid {
				t.Fatalf("expected valid payload, errors=%v", res.Errors)
			}
			raw, _ := json.Marshal(res.Payload)
			hasCount := strings.Contains(string(raw), "qn_count")
			if tc.ai && hasCount {
				t.Fatalf("ai payload must not carry qn_count: %s", raw)
			}
			if !tc.ai && (!hasCount || *groups[0].Codes[0].QnCount != 5) {
				t.Fatalf("manual payload must carry counts: %s", raw)
			}
		})
	}
}

func TestUpdateFromAllocation(t *testing.T) {
	b := readyBuilder()
	groups := b.UpdateFromAllocation([]AllocationItem{
		{Code: "C1", Type: selection.TypeChapter, QuestionsToAdd: 4},
		{Code: "C1_T2", Type: selection.TypeTopic, QuestionsToAdd: 0},
		{Code: "C1_T2_S1", Type: selection.TypeSubtopic, QuestionsToAdd: 2},
		{Code: "X", Type: "unit", QuestionsToAdd: 2},
	})
	if len(groups) != 2 {
		t.Fatalf("expected chapter and topic groups, got %+v", groups)
	}
	if len(groups[1].Codes) != 2 || groups[1].Codes[1].Code != "C1_T2_S1" {
		t.Fatalf("subtopics belong to the topic group: %+v", groups[1].Codes)
	}
	if groups[1].Codes[0].QnCount != nil {
		t.Fatalf("zero allocation should have no qn_count")
	}
	if groups[1].Codes[1].QnCount == nil || *groups[1].Codes[1].QnCount != 2 {
		t.Fatalf("expected qn_count 2")
	}
}

func TestFromSelection(t *testing.T) {
	s := selection.NewStore()
	_ = s.AddSelection(selection.Input{Code: "C1", Type: selection.TypeChapter, QuestionCount: 20}, nil)
	_ = s.AddSelection(selection.Input{Code: "C2_T1_S1", Type: selection.TypeSubtopic, QuestionCount: 9}, nil)

	b := readyBuilder()
	groups := b.FromSelection(s)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %+v", groups)
	}
	if g := groups[1]; g.Type != GroupTopic || len(g.Codes) != 1 || g.Codes[0].Code != "C2_T1_S1" || *g.Codes[0].QnCount != 2 {
		t.Fatalf("placeholders must not be included: %+v", g)
	}
}

func TestBuildValidation(t *testing.T) {
	b := NewBuilder()
	b.UpdateExamDetails(ExamDetails{ExamTitle: "   "})
	res := b.Build()
	if res.IsValid || res.Payload != nil {
		t.Fatalf("expected invalid result")
	}
	want := []string{"exam_name is required", "subject_code is required", "medium_code is required", "standard is required", ErrChaptersTopicsRequired}
	if len(res.Errors) != len(want) {
		t.Fatalf("errors got=%v want=%v", res.Errors, want)
	}
	for i := range want {
		if res.Errors[i] != want[i] {
			t.Fatalf("errors got=%v want=%v", res.Errors, want)
		}
	}

	ready := readyBuilder()
	res = ready.Build()
	if res.IsValid || len(res.Errors) != 1 || res.Errors[0] != ErrChaptersTopicsRequired {
		t.Fatalf("only chapter error expected, got %v", res.Errors)
	}
}

func TestBuildTrimsNameAndHandlesExclusions(t *testing.T) {
	b := readyBuilder()
	b.UpdateFromAllocation([]AllocationItem{{Code: "C1", Type: selection.TypeChapter, QuestionsToAdd: 1}})

	res := b.Build()
	if res.Payload.ExamName != "Mid Term" {
		t.Fatalf("exam name should be trimmed, got %q", res.Payload.ExamName)
	}
	raw, _ := json.Marshal(res.Payload)
	if strings.Contains(string(raw), "qtn_codes_to_exclude") {
		t.Fatalf("empty exclusions must be omitted: %s", raw)
	}

	b.SetExcludedQuestions([]string{"Q1", " ", "Q2"})
	res = b.Build()
	if len(res.Payload.QtnCodesToExclude) != 2 {
		t.Fatalf("expected 2 exclusions, got %v", res.Payload.QtnCodesToExclude)
	}
}

func TestAIModeToggleAfterGroupsAreBuilt(t *testing.T) {
	b := readyBuilder()
	b.BuildChaptersTopics([]selection.Node{{Code: "C1", QuestionsToAdd: 5}}, nil)

	b.SetAIMode(true)
	res := b.Build()
	if !res.IsValid {
		t.Fatalf("expected valid payload, errors=%v", res.Errors)
	}
	raw, _ := json.Marshal(res.Payload)
	if strings.Contains(string(raw), "qn_count") {
		t.Fatalf("ai payload must not carry qn_count: %s", raw)
	}
	if b.Current().ChaptersTopics[0].Codes[0].QnCount != nil {
		t.Fatal("current payload must follow the ai mode")
	}

	b.SetAIMode(false)
	res = b.Build()
	got := res.Payload.ChaptersTopics[0].Codes[0].QnCount
	if got == nil || *got != 5 {
		t.Fatalf("turning ai off must bring the allocation back, got %v", got)
	}
}

func TestStateKeepsAllocationsForRestore(t *testing.T) {
	b := readyBuilder()
	b.SetAIMode(true)
	b.UpdateFromAllocation([]AllocationItem{{Code: "C1", Type: selection.TypeChapter, QuestionsToAdd: 3}})

	restored := NewBuilder()
	restored.Restore(b.State())
	restored.SetAIMode(false)
	got := restored.Current().ChaptersTopics[0].Codes[0].QnCount
	if got == nil || *got != 3 {
		t.Fatalf("restored builder lost the allocation, got %v", got)
	}
}
