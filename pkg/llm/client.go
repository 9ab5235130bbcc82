// Package llm defines the transport contract to the model provider and
// ships a streaming HTTP implementation plus test doubles.
package llm

import (
	"context"
	"errors"

	"github.com/andrew/mindful-chat/pkg/models"
	"github.com/andrew/mindful-chat/pkg/stream"
)

// ErrTransport marks network, authentication, and malformed-response
// failures reported by the provider.
var ErrTransport = errors.New("transport")

// Request carries one full conversation turn to the provider.
type Request struct {
	ID          string
	Model       string
	Instruction string
	Messages    []models.Message
}

// Client is the transport collaborator performing the actual network
// call to the model provider.
type Client interface {
	// Complete sends the conversation and returns the full response text.
	Complete(ctx context.Context, req Request) (string, error)

	// Stream sends the conversation and returns an ordered sequence of
	// response fragments. The fragment channel is closed when the
	// response ends; a mid-stream failure is delivered on the error
	// channel after the fragment channel closes.
	Stream(ctx context.Context, req Request) (<-chan stream.Fragment, <-chan error, error)
}

// Uploader resolves a local image file into an attachment the provider
// can reference.
type Uploader interface {
	Upload(ctx context.Context, path string) (models.Attachment, error)
}
