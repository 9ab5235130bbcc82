// Package stream renders incremental model output to a sink while
// accumulating the authoritative full response text.
package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Fragment is one incremental piece of a streamed model response.
// Fragments are transient; only their concatenation is retained.
type Fragment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Single wraps a complete non-streamed response as one final fragment,
// so batch responses can flow through the same path as streamed ones.
func Single(text string) <-chan Fragment {
	ch := make(chan Fragment, 1)
	ch <- Fragment{Text: text, Final: true}
	close(ch)
	return ch
}

// State tracks renderer progress through a single response.
type State int

const (
	StateIdle State = iota
	StateReceiving
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReceiving:
		return "receiving"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ErrEmptyStream is returned when the fragment source closes before
// delivering any fragment.
var ErrEmptyStream = errors.New("stream ended with no fragments")

// DefaultDelay is the pause between emitted characters. It only affects
// perceived cadence, never the accumulated text.
const DefaultDelay = 15 * time.Millisecond

// Renderer consumes fragments in arrival order, echoes them to a sink
// one character at a time, and accumulates the full text.
type Renderer struct {
	out   io.Writer
	delay time.Duration
	state State
}

// NewRenderer creates a renderer writing to out with the default pacing
// delay. Use SetDelay(0) in contexts where pacing is unwanted.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out, delay: DefaultDelay}
}

// SetDelay overrides the pause between emitted characters.
func (r *Renderer) SetDelay(d time.Duration) { r.delay = d }

// State reports the terminal or in-flight state of the last Consume.
func (r *Renderer) State() State { return r.state }

// Consume reads fragments until the channel closes, a final fragment
// arrives, or ctx is cancelled. It returns the exact concatenation of
// all fragment texts in arrival order. On cancellation or an empty
// stream the renderer ends Failed and the accumulated text must not be
// persisted by the caller; whatever was already echoed to the sink is
// not retracted.
func (r *Renderer) Consume(ctx context.Context, frags <-chan Fragment) (string, error) {
	r.state = StateReceiving

	var acc strings.Builder
	received := false

	for {
		select {
		case <-ctx.Done():
			r.state = StateFailed
			return "", ctx.Err()
		case frag, ok := <-frags:
			if !ok {
				if !received {
					r.state = StateFailed
					return "", ErrEmptyStream
				}
				r.state = StateComplete
				return acc.String(), nil
			}
			received = true
			acc.WriteString(frag.Text)
			if err := r.emit(ctx, frag.Text); err != nil {
				r.state = StateFailed
				return "", err
			}
			if frag.Final {
				r.state = StateComplete
				return acc.String(), nil
			}
		}
	}
}

// emit writes text one rune at a time, pausing between runes.
func (r *Renderer) emit(ctx context.Context, text string) error {
	for _, ch := range text {
		if _, err := io.WriteString(r.out, string(ch)); err != nil {
			return err
		}
		if r.delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay):
		}
	}
	return nil
}
