// Package reveal plays a narrative out one character per tick. At most one
// reveal runs per Scheduler; starting a new one stops the previous one first.
package reveal

import (
	"sync"
	"time"
	"unicode/utf8"
)

// DefaultInterval is the delay between revealed characters.
const DefaultInterval = 20 * time.Millisecond

// Handle controls one running reveal.
type Handle struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Cancel stops the reveal and waits for its goroutine to exit. No emit
// happens after Cancel returns. Safe to call more than once.
func (h *Handle) Cancel() {
	h.once.Do(func() { close(h.stop) })
	<-h.done
}

// Done is closed when the reveal finishes or is cancelled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Scheduler owns the single active reveal.
type Scheduler struct {
	interval time.Duration

	mu      sync.Mutex
	current *Handle
}

// NewScheduler creates a Scheduler; a non-positive interval uses DefaultInterval.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{interval: interval}
}

// Start cancels any running reveal, clears the output by emitting "", then
// reveals text through emit, calling it with each successive prefix.
func (s *Scheduler) Start(text string, emit func(prefix string)) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Cancel()
	}
	emit("")

	h := &Handle{stop: make(chan struct{}), done: make(chan struct{})}
	s.current = h
	go run(h, text, s.interval, emit)
	return h
}

func run(h *Handle, text string, interval time.Duration, emit func(string)) {
	defer close(h.done)
	if text == "" {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pos := 0
	for pos < len(text) {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}
		// Re-check so a stop racing with a tick never emits.
		select {
		case <-h.stop:
			return
		default:
		}
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
		emit(text[:pos])
	}
}

// Running reports whether a reveal is in progress.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	select {
	case <-s.current.done:
		return false
	default:
		return true
	}
}

// Stop cancels the active reveal, if any.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
	}
}

// Buffer is a concurrency-safe holder for the revealed prefix.
type Buffer struct {
	mu   sync.RWMutex
	text string
}

// Set replaces the buffer content. It has the emit signature.
func (b *Buffer) Set(s string) {
	b.mu.Lock()
	b.text = s
	b.mu.Unlock()
}

func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}
