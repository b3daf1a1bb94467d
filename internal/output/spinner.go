package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Spinner animates a message on stderr while a slow check runs, such as a
// token request against Microsoft Entra ID. It stays silent when stderr is
// not a terminal or JSON mode is on.
type Spinner struct {
	message string
	w       io.Writer
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	mu      sync.Mutex
	active  bool
}

// NewSpinner creates a spinner for message.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		w:       os.Stderr,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func interactive() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// Start begins the animation. Only the first call has an effect.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	if JSONMode || !interactive() {
		close(s.stopped)
		return
	}
	go s.run()
}

func (s *Spinner) run() {
	defer close(s.stopped)
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	if NoColor() {
		frames = []string{"|", "/", "-", "\\"}
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.done:
			fmt.Fprint(s.w, "\r\033[K")
			return
		case <-ticker.C:
			fmt.Fprintf(s.w, "\r%s %s", frames[i%len(frames)], s.message)
		}
	}
}

// Stop ends the animation and clears the line. It is safe to call more than
// once, and before Start.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		started := s.active
		s.mu.Unlock()
		if started {
			<-s.stopped
		}
	})
}

// WithSpinner runs fn behind a spinner and reports its outcome.
func WithSpinner(message string, fn func() error) error {
	sp := NewSpinner(message)
	sp.Start()
	err := fn()
	sp.Stop()
	if err != nil {
		Fail(message + ": failed")
	} else {
		Success(message)
	}
	return err
}
