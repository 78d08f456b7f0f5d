package selection

import (
	"errors"
	"log"
	"sort"
	"strings"
	"time"
)

type NodeType string

const (
	TypeChapter  NodeType = "chapter"
	TypeTopic    NodeType = "topic"
	TypeSubtopic NodeType = "subtopic"
)

const (
	UnknownChapter = "unknown_chapter"
	UnknownTopic   = "unknown_topic"
)

var (
	ErrInvalidInput = errors.New("invalid selection input")
	ErrUnknownType  = errors.New("unknown selection type")
)

// searchOrder is the lookup order used when a caller does not name a type.
var searchOrder = []NodeType{TypeChapter, TypeTopic, TypeSubtopic}

func (t NodeType) Valid() bool {
	switch t {
	case TypeChapter, TypeTopic, TypeSubtopic:
		return true
	}
	return false
}

type Node struct {
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Type           NodeType  `json:"type"`
	QuestionCount  int       `json:"question_count"`
	QuestionsToAdd int       `json:"questionsToAdd"`
	ParentCode     string    `json:"parent_code,omitempty"`
	IsSelected     bool      `json:"isSelected"`
	IsPlaceholder  bool      `json:"isPlaceholder"`
	SelectedAt     time.Time `json:"selectedAt"`

	seq    uint64
	selSeq uint64
}

// Input describes one selection coming from the UI.
type Input struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Type           NodeType `json:"type"`
	QuestionCount  int      `json:"question_count"`
	QuestionsToAdd *int     `json:"questionsToAdd,omitempty"`
	ParentCode     string   `json:"parent_code,omitempty"`
	ChapterCode    string   `json:"chapter_code,omitempty"`
}

// Ref labels an ancestor that may not be selected itself.
type Ref struct {
	Code          string `json:"code"`
	Name          string `json:"name,omitempty"`
	QuestionCount int    `json:"question_count,omitempty"`
}

type Context struct {
	ParentChapter *Ref `json:"parentChapter,omitempty"`
	ParentTopic   *Ref `json:"parentTopic,omitempty"`
}

type Stats struct {
	TotalChapters       int `json:"totalChapters"`
	TotalTopics         int `json:"totalTopics"`
	TotalSubtopics      int `json:"totalSubtopics"`
	TotalQuestions      int `json:"totalQuestions"`
	TotalQuestionsToAdd int `json:"totalQuestionsToAdd"`
}

type TreeNode struct {
	Node
	Children []TreeNode `json:"children"`
}

type key struct {
	typ  NodeType
	code string
}

// Store keeps every node in one arena keyed by type and code. Parent links
// are codes, children and stats are derived on read. Store is not safe for
// concurrent use; callers serialize access.
type Store struct {
	nodes       map[key]*Node
	chapterMeta map[string]Ref
	nextSeq     uint64
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		nodes:       make(map[key]*Node),
		chapterMeta: make(map[string]Ref),
		now:         time.Now,
	}
}

func defaultAllocation(t NodeType, questionCount int) int {
	limit := 2
	switch t {
	case TypeChapter:
		limit = 8
	case TypeTopic:
		limit = 4
	}
	if questionCount < limit {
		limit = questionCount
	}
	if limit < 0 {
		return 0
	}
	return limit
}

// AddSelection inserts a node. parent, when set, names the immediate parent
// (chapter for a topic, topic for a subtopic).
func (s *Store) AddSelection(in Input, parent *Ref) error {
	var c Context
	if parent != nil {
		switch in.Type {
		case TypeTopic:
			c.ParentChapter = parent
		case TypeSubtopic:
			c.ParentTopic = parent
		}
	}
	return s.AddSelectionWithContext(in, c)
}

func (s *Store) AddSelectionWithContext(in Input, c Context) error {
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" {
		return ErrInvalidInput
	}
	if !in.Type.Valid() {
		return ErrUnknownType
	}
	if c.ParentChapter != nil && c.ParentChapter.Code != "" {
		if _, ok := s.chapterMeta[c.ParentChapter.Code]; !ok {
			s.chapterMeta[c.ParentChapter.Code] = *c.ParentChapter
		}
	}

	switch in.Type {
	case TypeChapter:
		s.upsert(in, "")
	case TypeTopic:
		chapterCode := s.resolveTopicParent(in, c)
		s.ensureChapter(chapterCode, c.ParentChapter)
		s.upsert(in, chapterCode)
	case TypeSubtopic:
		topicCode := s.resolveSubtopicParent(in, c)
		chapterCode := s.resolveSubtopicChapter(in, topicCode, c)
		s.ensureChapter(chapterCode, c.ParentChapter)
		s.ensureTopic(topicCode, chapterCode, c.ParentTopic)
		s.upsert(in, topicCode)
	}
	return nil
}

// BulkAddSelections applies every entry in order; failures are collected and
// do not stop the remaining entries.
func (s *Store) BulkAddSelections(items []Input) error {
	var errs []error
	for _, it := range items {
		if err := s.AddSelection(it, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) StoreChapterMetadata(meta Ref) {
	if meta.Code == "" {
		return
	}
	s.chapterMeta[meta.Code] = meta
	if n, ok := s.nodes[key{TypeChapter, meta.Code}]; ok && n.IsPlaceholder {
		if meta.Name != "" {
			n.Name = meta.Name
		}
		n.QuestionCount = meta.QuestionCount
	}
}

func (s *Store) ChapterMetadata(code string) (Ref, bool) {
	m, ok := s.chapterMeta[code]
	return m, ok
}

func (s *Store) resolveTopicParent(in Input, c Context) string {
	if in.ParentCode != "" {
		return in.ParentCode
	}
	if c.ParentChapter != nil && c.ParentChapter.Code != "" {
		return c.ParentChapter.Code
	}
	if n, ok := s.nodes[key{TypeTopic, in.Code}]; ok && n.ParentCode != "" {
		return n.ParentCode
	}
	if chapter, _ := inferAncestors(in.Code, TypeTopic); chapter != "" {
		return chapter
	}
	return UnknownChapter
}

func (s *Store) resolveSubtopicParent(in Input, c Context) string {
	if in.ParentCode != "" {
		return in.ParentCode
	}
	if c.ParentTopic != nil && c.ParentTopic.Code != "" {
		return c.ParentTopic.Code
	}
	if n, ok := s.nodes[key{TypeSubtopic, in.Code}]; ok && n.ParentCode != "" {
		return n.ParentCode
	}
	if _, topic := inferAncestors(in.Code, TypeSubtopic); topic != "" {
		return topic
	}
	return UnknownTopic
}

func (s *Store) resolveSubtopicChapter(in Input, topicCode string, c Context) string {
	if in.ChapterCode != "" {
		return in.ChapterCode
	}
	if c.ParentChapter != nil && c.ParentChapter.Code != "" {
		return c.ParentChapter.Code
	}
	if t, ok := s.nodes[key{TypeTopic, topicCode}]; ok && t.ParentCode != "" {
		return t.ParentCode
	}
	if topicCode != UnknownTopic {
		if chapter, _ := inferAncestors(topicCode, TypeTopic); chapter != "" {
			return chapter
		}
	}
	if chapter, _ := inferAncestors(in.Code, TypeSubtopic); chapter != "" {
		return chapter
	}
	return UnknownChapter
}

// inferAncestors derives ancestor codes from the "chapter_topic_subtopic"
// naming convention. It is a fallback only; explicit parents win.
func inferAncestors(code string, t NodeType) (chapter, topic string) {
	parts := strings.Split(code, "_")
	switch t {
	case TypeTopic:
		if len(parts) >= 2 && parts[0] != "" {
			chapter = parts[0]
		}
	case TypeSubtopic:
		if len(parts) >= 2 && parts[0] != "" {
			chapter = parts[0]
		}
		if len(parts) >= 3 && parts[1] != "" {
			topic = parts[0] + "_" + parts[1]
		}
	}
	return chapter, topic
}

func (s *Store) ensureChapter(code string, label *Ref) {
	k := key{TypeChapter, code}
	if _, ok := s.nodes[k]; ok {
		return
	}
	ref := Ref{Code: code}
	if label != nil && label.Code == code {
		ref = *label
	} else if meta, ok := s.chapterMeta[code]; ok {
		ref = meta
	}
	name := ref.Name
	if name == "" {
		name = "Chapter " + code
	}
	s.insert(&Node{
		Code:          code,
		Name:          name,
		Type:          TypeChapter,
		QuestionCount: ref.QuestionCount,
		IsPlaceholder: true,
	})
}

func (s *Store) ensureTopic(code, chapterCode string, label *Ref) {
	k := key{TypeTopic, code}
	if _, ok := s.nodes[k]; ok {
		return
	}
	ref := Ref{Code: code}
	if label != nil && label.Code == code {
		ref = *label
	}
	name := ref.Name
	if name == "" {
		name = "Topic " + code
	}
	s.insert(&Node{
		Code:          code,
		Name:          name,
		Type:          TypeTopic,
		QuestionCount: ref.QuestionCount,
		ParentCode:    chapterCode,
		IsPlaceholder: true,
	})
}

func (s *Store) insert(n *Node) {
	s.nextSeq++
	n.seq = s.nextSeq
	s.nodes[key{n.Type, n.Code}] = n
}

func (s *Store) upsert(in Input, parentCode string) {
	k := key{in.Type, in.Code}
	n, exists := s.nodes[k]
	if !exists {
		n = &Node{Code: in.Code, Type: in.Type}
		s.insert(n)
	}

	wasSelected := n.IsSelected
	n.Name = strings.TrimSpace(in.Name)
	if n.Name == "" {
		n.Name = in.Code
	}
	n.QuestionCount = in.QuestionCount
	n.ParentCode = parentCode
	switch {
	case in.QuestionsToAdd != nil:
		n.QuestionsToAdd = max(*in.QuestionsToAdd, 0)
	case !wasSelected:
		n.QuestionsToAdd = defaultAllocation(in.Type, in.QuestionCount)
	}
	n.IsPlaceholder = false
	n.IsSelected = true
	if !wasSelected {
		s.nextSeq++
		n.selSeq = s.nextSeq
		n.SelectedAt = s.now()
	}
}

// RemoveSelection removes the first node matching code, searching chapters,
// then topics, then subtopics, together with its descendants. Placeholders
// match too, so removing one drops every selection beneath it.
func (s *Store) RemoveSelection(code string) bool {
	for _, t := range searchOrder {
		n, ok := s.nodes[key{t, code}]
		if !ok {
			continue
		}
		s.removeSubtree(n)
		s.pruneAncestors(n)
		return true
	}
	return false
}

func (s *Store) removeSubtree(n *Node) {
	for _, child := range s.children(n) {
		s.removeSubtree(child)
	}
	delete(s.nodes, key{n.Type, n.Code})
}

// pruneAncestors drops placeholder ancestors left without children.
func (s *Store) pruneAncestors(n *Node) {
	for p := s.parent(n); p != nil; p = s.parent(p) {
		if !p.IsPlaceholder || len(s.children(p)) > 0 {
			return
		}
		delete(s.nodes, key{p.Type, p.Code})
	}
}

func (s *Store) parent(n *Node) *Node {
	if n.ParentCode == "" {
		return nil
	}
	switch n.Type {
	case TypeTopic:
		return s.nodes[key{TypeChapter, n.ParentCode}]
	case TypeSubtopic:
		return s.nodes[key{TypeTopic, n.ParentCode}]
	}
	return nil
}

func (s *Store) children(n *Node) []*Node {
	var childType NodeType
	switch n.Type {
	case TypeChapter:
		childType = TypeTopic
	case TypeTopic:
		childType = TypeSubtopic
	default:
		return nil
	}
	var out []*Node
	for k, c := range s.nodes {
		if k.typ == childType && c.ParentCode == n.Code {
			out = append(out, c)
		}
	}
	sortBySeq(out)
	return out
}

func (s *Store) find(code string, t NodeType) *Node {
	if t != "" {
		return s.nodes[key{t, code}]
	}
	for _, st := range searchOrder {
		if n, ok := s.nodes[key{st, code}]; ok {
			return n
		}
	}
	return nil
}

// UpdateQuestionCount sets the allocation on the first node matching code,
// placeholders included. An unknown code is logged and left alone.
func (s *Store) UpdateQuestionCount(code string, count int) bool {
	n := s.find(code, "")
	if n == nil {
		log.Printf("selection: update question count: code %q not found", code)
		return false
	}
	n.QuestionsToAdd = max(count, 0)
	return true
}

func (s *Store) IsSelected(code string, t NodeType) bool {
	if t != "" {
		n, ok := s.nodes[key{t, code}]
		return ok && n.IsSelected
	}
	for _, st := range searchOrder {
		if n, ok := s.nodes[key{st, code}]; ok && n.IsSelected {
			return true
		}
	}
	return false
}

// IsLogicallySelected reports whether the node or any of its ancestors was
// explicitly selected.
func (s *Store) IsLogicallySelected(code string, t NodeType) bool {
	if n := s.find(code, t); n != nil {
		for cur := n; cur != nil; cur = s.parent(cur) {
			if cur.IsSelected {
				return true
			}
		}
		return false
	}

	if t == "" {
		t = TypeSubtopic
	}
	chapter, topic := inferAncestors(code, t)
	if topic != "" && s.IsLogicallySelected(topic, TypeTopic) {
		return true
	}
	return chapter != "" && s.IsSelected(chapter, TypeChapter)
}

func (s *Store) Stats() Stats {
	var st Stats
	for _, n := range s.nodes {
		if !n.IsSelected {
			continue
		}
		switch n.Type {
		case TypeChapter:
			st.TotalChapters++
		case TypeTopic:
			st.TotalTopics++
		case TypeSubtopic:
			st.TotalSubtopics++
		}
		st.TotalQuestions += n.QuestionCount
		st.TotalQuestionsToAdd += n.QuestionsToAdd
	}
	return st
}

// Selections returns the explicitly selected nodes in the order they were
// first selected.
func (s *Store) Selections() []Node {
	var sel []*Node
	for _, n := range s.nodes {
		if n.IsSelected {
			sel = append(sel, n)
		}
	}
	sort.Slice(sel, func(i, j int) bool { return sel[i].selSeq < sel[j].selSeq })
	out := make([]Node, 0, len(sel))
	for _, n := range sel {
		out = append(out, *n)
	}
	return out
}

func (s *Store) SelectedByType(t NodeType) []Node {
	out := make([]Node, 0)
	for _, n := range s.Selections() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) Hierarchy() []TreeNode {
	var chapters []*Node
	for k, n := range s.nodes {
		if k.typ == TypeChapter {
			chapters = append(chapters, n)
		}
	}
	sortBySeq(chapters)
	out := make([]TreeNode, 0, len(chapters))
	for _, c := range chapters {
		out = append(out, s.tree(c))
	}
	return out
}

func (s *Store) ChapterHierarchy(code string) (TreeNode, bool) {
	n, ok := s.nodes[key{TypeChapter, code}]
	if !ok {
		return TreeNode{}, false
	}
	return s.tree(n), true
}

func (s *Store) tree(n *Node) TreeNode {
	kids := s.children(n)
	t := TreeNode{Node: *n, Children: make([]TreeNode, 0, len(kids))}
	for _, c := range kids {
		t.Children = append(t.Children, s.tree(c))
	}
	return t
}

func (s *Store) Clear() {
	s.nodes = make(map[key]*Node)
	s.chapterMeta = make(map[string]Ref)
	s.nextSeq = 0
}

func (s *Store) Len() int {
	return len(s.nodes)
}

func sortBySeq(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].seq < nodes[j].seq })
}
