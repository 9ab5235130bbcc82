package stream

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func fragments(texts ...string) <-chan Fragment {
	ch := make(chan Fragment, len(texts))
	for _, t := range texts {
		ch <- Fragment{Text: t}
	}
	close(ch)
	return ch
}

func TestConsumeAccumulatesInOrder(t *testing.T) {
	var sink strings.Builder
	r := NewRenderer(&sink)
	r.SetDelay(0)

	got, err := r.Consume(context.Background(), fragments("Kuala", " ", "Lumpur"))
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if got != "Kuala Lumpur" {
		t.Fatalf("expected %q, got %q", "Kuala Lumpur", got)
	}
	if sink.String() != got {
		t.Fatalf("sink %q diverged from accumulator %q", sink.String(), got)
	}
	if r.State() != StateComplete {
		t.Fatalf("expected complete state, got %v", r.State())
	}
}

func TestConsumeStopsAtFinalFragment(t *testing.T) {
	ch := make(chan Fragment, 3)
	ch <- Fragment{Text: "done"}
	ch <- Fragment{Text: ".", Final: true}
	// Left open on purpose; the final flag must terminate consumption.

	var sink strings.Builder
	r := NewRenderer(&sink)
	r.SetDelay(0)

	got, err := r.Consume(context.Background(), ch)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if got != "done." {
		t.Fatalf("expected %q, got %q", "done.", got)
	}
}

func TestConsumeEmptyStreamFails(t *testing.T) {
	var sink strings.Builder
	r := NewRenderer(&sink)
	r.SetDelay(0)

	_, err := r.Consume(context.Background(), fragments())
	if !errors.Is(err, ErrEmptyStream) {
		t.Fatalf("expected ErrEmptyStream, got %v", err)
	}
	if r.State() != StateFailed {
		t.Fatalf("expected failed state, got %v", r.State())
	}
}

func TestConsumeCancelledMidStream(t *testing.T) {
	ch := make(chan Fragment, 1)
	ch <- Fragment{Text: "partial"}

	ctx, cancel := context.WithCancel(context.Background())
	var sink strings.Builder
	r := NewRenderer(&sink)
	r.SetDelay(0)

	done := make(chan struct{})
	var got string
	var err error
	go func() {
		got, err = r.Consume(ctx, ch)
		close(done)
	}()
	cancel()
	<-done

	if err == nil {
		t.Fatalf("expected cancellation error, got text %q", got)
	}
	if got != "" {
		t.Fatalf("cancelled consume must not return accumulated text, got %q", got)
	}
	if r.State() != StateFailed {
		t.Fatalf("expected failed state, got %v", r.State())
	}
}

func TestSingleWrapsBatchResponse(t *testing.T) {
	var sink strings.Builder
	r := NewRenderer(&sink)
	r.SetDelay(0)

	got, err := r.Consume(context.Background(), Single("complete answer"))
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if got != "complete answer" {
		t.Fatalf("expected %q, got %q", "complete answer", got)
	}
}
