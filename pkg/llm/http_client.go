package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrew/mindful-chat/pkg/models"
	"github.com/andrew/mindful-chat/pkg/stream"
)

// HTTPClient talks to a chat-completions endpoint that accepts a
// multipart form carrying a JSON payload and answers with a stream of
// "data: {...}" lines, one JSON object per line.
type HTTPClient struct {
	endpoint   string
	bearer     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPClient creates a client for the given completions endpoint.
// The http.Client carries a generous transport-level timeout; per-call
// deadlines come from the caller's context.
func NewHTTPClient(endpoint, bearer string, log zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		bearer:   bearer,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		log: log,
	}
}

// wirePayload is the JSON document sent inside the multipart form.
type wirePayload struct {
	ID       string        `json:"id"`
	Messages []wireMessage `json:"messages"`
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type wireItem struct {
	Type    string       `json:"type"`
	Text    string       `json:"text,omitempty"`
	FileURL *wireFileURL `json:"file_url,omitempty"`
}

type wireFileURL struct {
	URL string `json:"url"`
}

// wireChunk is one streamed line of the response.
type wireChunk struct {
	Content string `json:"content"`
}

// buildWireMessages flattens the conversation for the wire. Plain text
// turns stay a bare string; turns with attachments become a typed item
// list, matching what the endpoint expects for multimodal input.
func buildWireMessages(req Request) []wireMessage {
	out := make([]wireMessage, 0, len(req.Messages)+1)
	if req.Instruction != "" {
		out = append(out, wireMessage{Role: string(models.RoleSystem), Content: req.Instruction})
	}
	for _, msg := range req.Messages {
		if len(msg.Attachments) == 0 {
			out = append(out, wireMessage{Role: string(msg.Role), Content: msg.Content})
			continue
		}
		items := make([]wireItem, 0, 1+len(msg.Attachments))
		if msg.Content != "" {
			items = append(items, wireItem{Type: "text", Text: msg.Content})
		}
		for _, att := range msg.Attachments {
			items = append(items, wireItem{Type: models.AttachmentKindImage, FileURL: &wireFileURL{URL: att.URL}})
		}
		out = append(out, wireMessage{Role: string(msg.Role), Content: items})
	}
	return out
}

// Complete sends the conversation and concatenates the streamed reply
// into a single string.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := c.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var full strings.Builder
	if err := readChunks(body, func(chunk wireChunk) {
		full.WriteString(chunk.Content)
	}); err != nil {
		return "", err
	}
	return full.String(), nil
}

// Stream sends the conversation and delivers the reply as ordered
// fragments. The returned error channel carries at most one mid-stream
// failure and is readable after the fragment channel closes.
func (c *HTTPClient) Stream(ctx context.Context, req Request) (<-chan stream.Fragment, <-chan error, error) {
	body, err := c.send(ctx, req, true)
	if err != nil {
		return nil, nil, err
	}

	frags := make(chan stream.Fragment)
	errs := make(chan error, 1)
	go func() {
		defer body.Close()
		defer close(frags)

		err := readChunks(body, func(chunk wireChunk) {
			select {
			case frags <- stream.Fragment{Text: chunk.Content}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			errs <- err
		}
		close(errs)
	}()

	return frags, errs, nil
}

// send posts the request and returns the response body on a 200.
func (c *HTTPClient) send(ctx context.Context, req Request, streaming bool) (io.ReadCloser, error) {
	payload := wirePayload{
		ID:       req.ID,
		Messages: buildWireMessages(req),
		Model:    req.Model,
		Stream:   streaming,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", ErrTransport, err)
	}

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	if err := mw.WriteField("model_version", "1"); err != nil {
		return nil, fmt.Errorf("%w: building form: %v", ErrTransport, err)
	}
	if err := mw.WriteField("data", string(data)); err != nil {
		return nil, fmt.Errorf("%w: building form: %v", ErrTransport, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: building form: %v", ErrTransport, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &form)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	if c.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	c.log.Debug().
		Str("request_id", req.ID).
		Str("model", req.Model).
		Bool("stream", streaming).
		Int("messages", len(req.Messages)).
		Msg("sending completion request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, bytes.TrimSpace(body))
	}
	return resp.Body, nil
}

// readChunks parses "data: {...}" lines, invoking fn for each decoded
// chunk. Lines that are not valid JSON yet are skipped; the provider
// re-sends complete lines, so partial fragments never produce output.
func readChunks(body io.Reader, fn func(wireChunk)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}
		var chunk wireChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		fn(chunk)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: reading response stream: %v", ErrTransport, err)
	}
	return nil
}
