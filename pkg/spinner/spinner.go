package spinner

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Spinner renders single-line terminal progress while the pipeline works
// through a large file set.
type Spinner struct {
	frames   []string
	interval time.Duration

	mu      sync.Mutex
	message string
	active  bool
	done    chan struct{}
}

func New(message string) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 100 * time.Millisecond,
		message:  message,
	}
}

func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		frame := 0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Printf("\r%s %s", s.frames[frame%len(s.frames)], s.message)
				s.mu.Unlock()
				frame++
			}
		}
	}(s.done)
}

func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	close(s.done)

	fmt.Print("\r" + strings.Repeat(" ", len(s.message)+4) + "\r")
}

// Update swaps the progress message, e.g. "reformatting 12/40".
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}
