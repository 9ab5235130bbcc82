package llm

import (
	"context"

	"github.com/andrew/mindful-chat/pkg/models"
	"github.com/andrew/mindful-chat/pkg/stream"
)

// Mock is a scripted transport for tests. It replays the configured
// fragments, optionally fails, and records every request it receives.
type Mock struct {
	Fragments []string
	Err       error
	StreamErr error

	// Requests holds everything sent through the mock, in call order.
	Requests []Request

	// Block, when non-nil, is closed by the test to release a call;
	// used to exercise timeouts.
	Block chan struct{}
}

func NewMock(fragments ...string) *Mock {
	return &Mock{Fragments: fragments}
}

func (m *Mock) Complete(ctx context.Context, req Request) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	var full string
	for _, f := range m.Fragments {
		full += f
	}
	return full, nil
}

func (m *Mock) Stream(ctx context.Context, req Request) (<-chan stream.Fragment, <-chan error, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, nil, m.Err
	}

	frags := make(chan stream.Fragment, len(m.Fragments))
	errs := make(chan error, 1)
	for _, f := range m.Fragments {
		frags <- stream.Fragment{Text: f}
	}
	close(frags)
	if m.StreamErr != nil {
		errs <- m.StreamErr
	}
	close(errs)
	return frags, errs, nil
}

// MockUploader resolves paths against a fixed table; unknown paths fail.
type MockUploader struct {
	URLs     map[string]string
	Uploaded []string
}

func (m *MockUploader) Upload(ctx context.Context, path string) (models.Attachment, error) {
	url, ok := m.URLs[path]
	if !ok {
		return models.Attachment{}, &mockUploadError{path: path}
	}
	m.Uploaded = append(m.Uploaded, path)
	return models.Attachment{
		Kind:       models.AttachmentKindImage,
		URL:        url,
		SourcePath: path,
	}, nil
}

type mockUploadError struct{ path string }

func (e *mockUploadError) Error() string { return "upload: no such file " + e.path }
func (e *mockUploadError) Unwrap() error { return ErrUpload }
