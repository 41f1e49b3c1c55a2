package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinnerStyle  = lipgloss.NewStyle().Foreground(colorCyan)
)

const spinnerInterval = 80 * time.Millisecond

// Spinner animates a progress line on stderr until it is stopped or its
// context is done.
type Spinner struct {
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	exited  chan struct{}
	once    sync.Once
	mu      sync.Mutex
}

func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{message: message, ctx: ctx, cancel: cancel, exited: make(chan struct{})}
}

// Start animates the spinner in a goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.exited)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.write("\r" + spinnerStyle.Render(spinnerFrames[i%len(spinnerFrames)]) + " " + StyleDim.Render(s.message))
			}
		}
	}()
}

// Stop ends the animation and clears the line. Only the first call has an
// effect.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.exited
		s.write("\r" + strings.Repeat(" ", len(s.message)+4) + "\r")
	})
}

func (s *Spinner) write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(stderr, line)
}

// StopWithSuccess stops and prints message as a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops and prints message as an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the parent context ended the spinner.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}
