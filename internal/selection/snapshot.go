package selection

import "sort"

// Snapshot is the serializable form of a Store. Nodes are kept in tree
// order; SelectionOrder lists selected node positions in selection order.
type Snapshot struct {
	Nodes           []Node         `json:"nodes"`
	SelectionOrder  []int          `json:"selection_order"`
	ChapterMetadata map[string]Ref `json:"chapter_metadata,omitempty"`
}

func (s *Store) Snapshot() Snapshot {
	ordered := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		ordered = append(ordered, n)
	}
	sortBySeq(ordered)

	snap := Snapshot{
		Nodes:           make([]Node, 0, len(ordered)),
		ChapterMetadata: make(map[string]Ref, len(s.chapterMeta)),
	}
	var selected []int
	for i, n := range ordered {
		snap.Nodes = append(snap.Nodes, *n)
		if n.IsSelected {
			selected = append(selected, i)
		}
	}
	sort.Slice(selected, func(a, b int) bool {
		return ordered[selected[a]].selSeq < ordered[selected[b]].selSeq
	})
	snap.SelectionOrder = selected
	for k, v := range s.chapterMeta {
		snap.ChapterMetadata[k] = v
	}
	return snap
}

// Restore replaces the store contents with snap.
func (s *Store) Restore(snap Snapshot) {
	s.Clear()
	for _, n := range snap.Nodes {
		if n.Code == "" || !n.Type.Valid() {
			continue
		}
		cp := n
		s.insert(&cp)
	}
	for _, idx := range snap.SelectionOrder {
		if idx < 0 || idx >= len(snap.Nodes) {
			continue
		}
		n := snap.Nodes[idx]
		if stored, ok := s.nodes[key{n.Type, n.Code}]; ok && stored.IsSelected {
			s.nextSeq++
			stored.selSeq = s.nextSeq
		}
	}
	for k, v := range snap.ChapterMetadata {
		s.chapterMeta[k] = v
	}
}
