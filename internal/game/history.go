package game

// History is a bounded FIFO: once full, adding drops the oldest entry.
// It is not safe for concurrent use; owners guard it with their own lock.
type History[T any] struct {
	entries []T
	maxSize int
}

func NewHistory[T any](maxSize int) *History[T] {
	return &History[T]{
		entries: make([]T, 0, min(maxSize, 64)),
		maxSize: maxSize,
	}
}

func (h *History[T]) Add(entry T) {
	h.entries = append(h.entries, entry)

	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

func (h *History[T]) GetEntries() []T {
	result := make([]T, len(h.entries))
	copy(result, h.entries)
	return result
}

func (h *History[T]) Len() int {
	return len(h.entries)
}

func (h *History[T]) Cap() int {
	return h.maxSize
}

func (h *History[T]) Clear() {
	h.entries = h.entries[:0]
}
