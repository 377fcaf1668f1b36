package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message while a backend call runs. All methods are
// safe to call once the spinner is created; ending it twice is a no-op.
type Spinner struct {
	w        io.Writer
	message  string
	interval time.Duration

	mu      sync.Mutex
	started bool
	ended   bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSpinner creates a stopped spinner.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:        w,
		message:  message,
		interval: 100 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.ended {
		return
	}
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.message)
			s.mu.Unlock()
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	s.end("\r\033[K")
}

// Success ends the animation with a check mark.
func (s *Spinner) Success(message string) {
	s.end(fmt.Sprintf("\r\033[K✓ %s\n", message))
}

// Fail ends the animation with a cross.
func (s *Spinner) Fail(message string) {
	s.end(fmt.Sprintf("\r\033[K✗ %s\n", message))
}

func (s *Spinner) end(final string) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	fmt.Fprint(s.w, final)
}
