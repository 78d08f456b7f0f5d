package quiz

import "strings"

const (
	ChapterTopicChapter = "chapter"
	ChapterTopicTopic   = "topic"
)

// Config describes the practice quiz a user is about to generate.
type Config struct {
	Standard         string   `json:"standard"`
	SubjectCode      string   `json:"subject_code"`
	MediumCode       string   `json:"medium_code"`
	ChapterTopicType string   `json:"chapter_topic_type"`
	SelectedCodes    []string `json:"selected_codes"`
	ExamName         string   `json:"exam_name"`
	TotalTime        int      `json:"total_time"`
	TotalQuestions   int      `json:"total_questions"`
	NoOfSets         int      `json:"no_of_sets"`
	NoOfVersions     int      `json:"no_of_versions"`
}

func DefaultConfig() Config {
	return Config{
		ChapterTopicType: ChapterTopicChapter,
		SelectedCodes:    []string{},
		TotalTime:        DefaultTotalMinutes,
		TotalQuestions:   5,
		NoOfSets:         1,
		NoOfVersions:     1,
	}
}

// Normalize fills zero or invalid values with defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	c.ChapterTopicType = strings.ToLower(strings.TrimSpace(c.ChapterTopicType))
	if c.ChapterTopicType != ChapterTopicChapter && c.ChapterTopicType != ChapterTopicTopic {
		c.ChapterTopicType = d.ChapterTopicType
	}
	if c.SelectedCodes == nil {
		c.SelectedCodes = []string{}
	}
	if c.TotalTime <= 0 {
		c.TotalTime = d.TotalTime
	}
	if c.TotalQuestions <= 0 {
		c.TotalQuestions = d.TotalQuestions
	}
	if c.NoOfSets <= 0 {
		c.NoOfSets = d.NoOfSets
	}
	if c.NoOfVersions <= 0 {
		c.NoOfVersions = d.NoOfVersions
	}
	c.ExamName = strings.TrimSpace(c.ExamName)
	return c
}
