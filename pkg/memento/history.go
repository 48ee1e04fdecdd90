package memento

// DefaultDepth is the number of undo steps kept.
const DefaultDepth = 5

// History is a bounded undo stack. The oldest entry is evicted on overflow.
type History struct {
	depth int
	stack []Memento
}

// NewHistory returns a stack holding at most depth mementos.
func NewHistory(depth int) *History {
	if depth < 1 {
		depth = DefaultDepth
	}
	return &History{depth: depth}
}

// Push appends m, dropping the oldest entry when full.
func (h *History) Push(m Memento) {
	if len(h.stack) >= h.depth {
		h.stack = append(h.stack[:0], h.stack[1:]...)
	}
	h.stack = append(h.stack, m.Clone())
}

// Pop removes and returns the most recent memento.
func (h *History) Pop() (Memento, bool) {
	if len(h.stack) == 0 {
		return nil, false
	}
	m := h.stack[len(h.stack)-1]
	h.stack = h.stack[:len(h.stack)-1]
	return m, true
}

// Len reports the number of stored mementos.
func (h *History) Len() int { return len(h.stack) }
