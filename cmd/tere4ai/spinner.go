package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// spinnerFrames is the Braille dot animation cycle.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner provides animated progress feedback for operations that take
// more than a moment, so the terminal does not look frozen. Writes to
// stderr and is safe to start and stop from different goroutines.
type Spinner struct {
	message string
	writer  io.Writer
	frame   int
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
}

// NewSpinner creates a spinner with the given message. Nothing is
// displayed until Start is called.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		writer:  os.Stderr,
	}
}

// Start begins the animation. Subsequent calls are no-ops.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	fmt.Fprint(s.writer, "\033[?25l")
	go s.spin()
}

// SetMessage updates the text next to the spinner while it runs.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// StopSuccess halts the spinner and prints a check mark with message.
func (s *Spinner) StopSuccess(message string) {
	s.stop()
	fmt.Fprintf(s.writer, "\r\033[K✓ %s\n\033[?25h", message)
}

// StopFailure halts the spinner and prints a cross with message.
func (s *Spinner) StopFailure(message string) {
	s.stop()
	fmt.Fprintf(s.writer, "\r\033[K✗ %s\n\033[?25h", message)
}

func (s *Spinner) stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh
}

func (s *Spinner) spin() {
	defer close(s.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			frame := spinnerFrames[s.frame%len(spinnerFrames)]
			message := s.message
			s.frame++
			s.mu.Unlock()
			fmt.Fprintf(s.writer, "\r%s %s", frame, message)
		case <-s.stopCh:
			return
		}
	}
}

// SpinWhile runs fn under a spinner and reports its outcome.
func SpinWhile(message string, fn func() error) error {
	spinner := NewSpinner(message)
	spinner.Start()

	err := fn()

	if err != nil {
		spinner.StopFailure(err.Error())
	} else {
		spinner.StopSuccess(message)
	}
	return err
}
