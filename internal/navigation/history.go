package navigation

import "sync"

// History is the session's back/forward stack.
type History interface {
	// Push adds url as a new entry after the current one, discarding any
	// forward entries. Entries are never replaced.
	Push(url string)
	// Current returns the URL of the current entry, or "" when empty.
	Current() string
	// Back moves to the previous entry and reports whether it moved.
	Back() bool
	// Forward moves to the next entry and reports whether it moved.
	Forward() bool
}

// Document receives the title of the current event.
type Document interface {
	SetTitle(title string)
}

// MemoryHistory is an in-memory History.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []string
	index   int
}

// NewMemoryHistory returns a history whose first entry is initial. An empty
// initial URL starts with no entries.
func NewMemoryHistory(initial string) *MemoryHistory {
	h := &MemoryHistory{index: -1}
	if initial != "" {
		h.entries = []string{initial}
		h.index = 0
	}
	return h
}

func (h *MemoryHistory) Push(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], url)
	h.index = len(h.entries) - 1
}

func (h *MemoryHistory) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index < 0 {
		return ""
	}
	return h.entries[h.index]
}

func (h *MemoryHistory) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index <= 0 {
		return false
	}
	h.index--
	return true
}

func (h *MemoryHistory) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return false
	}
	h.index++
	return true
}

// Entries returns a copy of every entry, oldest first.
func (h *MemoryHistory) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

// MemoryDocument records the last title set.
type MemoryDocument struct {
	mu    sync.Mutex
	title string
}

func (d *MemoryDocument) SetTitle(title string) {
	d.mu.Lock()
	d.title = title
	d.mu.Unlock()
}

// Title returns the last title set.
func (d *MemoryDocument) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.title
}
