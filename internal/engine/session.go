package engine

import "sort"

// Session is the editor's unsaved UI state for one loaded campaign: which agents are
// selected, the QA "current" values (never persisted) and which cards show their back.
// Keys are agent indices into Campaign.Agents.
type Session struct {
	selected  map[int]bool
	flipped   map[int]bool
	qaCurrent QAOverlay
}

// QAOverlay maps agent index → quality → current value.
type QAOverlay map[int]map[string]int

func NewSession() *Session {
	return &Session{
		selected:  make(map[int]bool),
		flipped:   make(map[int]bool),
		qaCurrent: make(QAOverlay),
	}
}

// Reset clears the QA overlay. Called after a fresh load replaces the model.
func (s *Session) Reset() {
	s.qaCurrent = make(QAOverlay)
}

func (s *Session) Select(index int)   { s.selected[index] = true }
func (s *Session) Deselect(index int) { delete(s.selected, index) }

// Toggle flips the selection of index and reports whether it is now selected.
func (s *Session) Toggle(index int) bool {
	if s.selected[index] {
		delete(s.selected, index)
		return false
	}
	s.selected[index] = true
	return true
}

func (s *Session) IsSelected(index int) bool { return s.selected[index] }

// Selected returns the selected indices in ascending order.
func (s *Session) Selected() []int {
	out := make([]int, 0, len(s.selected))
	for i := range s.selected {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (s *Session) SetFlipped(index int, back bool) {
	if back {
		s.flipped[index] = true
		return
	}
	delete(s.flipped, index)
}

func (s *Session) IsFlipped(index int) bool { return s.flipped[index] }

// QACurrent returns the session value for quality, defaulting to max and never exceeding it.
func (s *Session) QACurrent(index int, quality string, hi int) int {
	cur, ok := s.qaCurrent[index][quality]
	if !ok {
		return hi
	}
	return clamp(cur, 0, hi)
}

func (s *Session) SetQACurrent(index int, quality string, v int) {
	if s.qaCurrent[index] == nil {
		s.qaCurrent[index] = make(map[string]int)
	}
	s.qaCurrent[index][quality] = v
}

// ApplyOverlay merges values produced by Reconcile.
func (s *Session) ApplyOverlay(o QAOverlay) {
	for idx, qs := range o {
		for q, v := range qs {
			s.SetQACurrent(idx, q, v)
		}
	}
}
