package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tailored-agentic-units/therapy/core/outcome"
)

// LineRecognizer treats each line read from an io.Reader as an utterance.
// Reading happens on a background goroutine so Recognize can honor its
// timeout and context.
type LineRecognizer struct {
	lines <-chan string
	done  <-chan error
}

// NewLineRecognizer starts reading lines from r.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	lines := make(chan string)
	done := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		done <- scanner.Err()
		close(done)
		close(lines)
	}()

	return &LineRecognizer{lines: lines, done: done}
}

// Recognize waits for the next line. Blank lines are not understood; a
// closed reader yields ErrInputClosed.
func (l *LineRecognizer) Recognize(ctx context.Context, timeout time.Duration) outcome.Outcome[string] {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line, ok := <-l.lines:
		if !ok {
			if err := <-l.done; err != nil {
				return outcome.Fail[string](err)
			}
			return outcome.Fail[string](ErrInputClosed)
		}
		if strings.TrimSpace(line) == "" {
			return outcome.Fail[string](ErrNotUnderstood)
		}
		return outcome.Of(line)
	case <-timer.C:
		return outcome.Fail[string](ErrNoSpeech)
	case <-ctx.Done():
		return outcome.Fail[string](ctx.Err())
	}
}

// WriterSynthesizer prints replies to an io.Writer, one per line, with an
// optional speaker prefix.
type WriterSynthesizer struct {
	w      io.Writer
	prefix string
}

// NewWriterSynthesizer creates a WriterSynthesizer.
func NewWriterSynthesizer(w io.Writer, prefix string) *WriterSynthesizer {
	return &WriterSynthesizer{w: w, prefix: prefix}
}

func (s *WriterSynthesizer) Synthesize(_ context.Context, text string) outcome.Outcome[struct{}] {
	_, err := fmt.Fprintf(s.w, "%s%s\n", s.prefix, text)
	return outcome.From(struct{}{}, err)
}
