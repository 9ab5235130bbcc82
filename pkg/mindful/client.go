// Package mindful is the completion orchestrator: it builds the user
// turn, drives the transport and the streaming renderer, appends the
// assistant reply, and persists the conversation.
package mindful

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrew/mindful-chat/pkg/history"
	"github.com/andrew/mindful-chat/pkg/llm"
	"github.com/andrew/mindful-chat/pkg/models"
	"github.com/andrew/mindful-chat/pkg/stream"
)

var (
	// ErrAttachment marks a missing or unreadable image path. It is
	// reported before any transport call is made.
	ErrAttachment = errors.New("attachment")
	// ErrTimeout marks a transport call that exceeded the configured
	// deadline. The user's turn stays in the returned conversation so
	// the caller can retry.
	ErrTimeout = errors.New("timeout")
)

// Client mediates conversational exchanges with the model provider.
type Client struct {
	cfg       Config
	transport llm.Client
	uploader  llm.Uploader
	store     *history.Store
	log       zerolog.Logger
	logCloser io.Closer

	model       string // wire name
	instruction string
	saveAs      history.Format
}

// New validates the configuration and builds a client. transport is
// required; uploader may be nil when image input is not used.
func New(cfg Config, transport llm.Client, uploader llm.Uploader) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport is required", models.ErrValidation)
	}

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	model, err := ResolveModel(cfg.Model)
	if err != nil {
		logger.Error().Err(err).Msg("invalid model")
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	agent := cfg.Agent
	if cfg.Instruction != "" {
		logger.Info().Msg("instruction provided, switching to custom agent")
		agent = AgentCustom
	}
	instruction, err := ResolveAgent(agent, cfg.Instruction)
	if err != nil {
		logger.Error().Err(err).Msg("invalid agent")
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	saveAs, err := history.ParseFormat(cfg.SaveAs)
	if err != nil {
		logger.Warn().Str("save_as", cfg.SaveAs).Msg("invalid save format, defaulting to json")
		saveAs = history.FormatJSON
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	c := &Client{
		cfg:         cfg,
		transport:   transport,
		uploader:    uploader,
		store:       history.NewStore(logger),
		log:         logger,
		logCloser:   closer,
		model:       model,
		instruction: instruction,
		saveAs:      saveAs,
	}
	logger.Info().Str("model", model).Str("agent", agent).Msg("mindful client is ready")
	return c, nil
}

// Close releases the log file, if any.
func (c *Client) Close() error {
	if c.logCloser != nil {
		return c.logCloser.Close()
	}
	return nil
}

// Instruction reports the active system prompt.
func (c *Client) Instruction() string { return c.instruction }

// SetAgent switches to a named agent preset.
func (c *Client) SetAgent(name string) error {
	instruction, err := ResolveAgent(name, "")
	if err != nil {
		c.log.Error().Err(err).Msg("set agent failed")
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	c.instruction = instruction
	c.log.Info().Str("agent", name).Msg("agent changed")
	return nil
}

// SetInstruction switches to the custom agent with the given text.
func (c *Client) SetInstruction(text string) error {
	instruction, err := ResolveAgent(AgentCustom, text)
	if err != nil {
		c.log.Error().Err(err).Msg("set instruction failed")
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	c.instruction = instruction
	c.log.Info().Msg("custom instruction set")
	return nil
}

// LoadHistory reads a saved JSON conversation. The loaded conversation
// replaces any active one in full; the caller passes it back through
// CompletionInput.History to continue it.
func (c *Client) LoadHistory(path string) (models.Conversation, error) {
	conv, err := c.store.Load(path)
	if err != nil {
		c.log.Error().Err(err).Str("path", path).Msg("load history failed")
		return models.Conversation{}, err
	}
	return conv, nil
}

// CompletionInput is one conversation turn.
type CompletionInput struct {
	// Prompt is the user's text; it must be non-empty.
	Prompt string
	// ImagePaths are local files resolved to attachments before any
	// transport call.
	ImagePaths []string
	// History, when non-nil, is the conversation to continue; nil
	// starts a fresh one.
	History *models.Conversation
	// Stream overrides the client's streaming default for this call.
	Stream *bool
}

// GetCompletions performs one full turn: append the user message, call
// the provider under the configured timeout, drive the renderer when
// streaming, append the assistant message, and persist when a save
// directory is configured.
//
// On failure the returned conversation still carries the user's turn
// (except for attachment and validation failures, where it is the
// caller's history unchanged), and nothing is written to disk. A save
// failure alone does not unwind the turn: the text and conversation
// are returned alongside the wrapped history.ErrIO.
func (c *Client) GetCompletions(ctx context.Context, in CompletionInput) (string, models.Conversation, error) {
	started := time.Now()

	var conv models.Conversation
	if in.History != nil {
		conv = in.History.Clone()
	} else {
		conv = models.NewConversation(c.instruction)
	}
	if conv.Instruction == "" {
		conv.Instruction = c.instruction
	}

	if in.Prompt == "" {
		err := fmt.Errorf("%w: prompt must not be empty", models.ErrValidation)
		c.log.Error().Err(err).Msg("get completions rejected")
		return "", conv, err
	}

	attachments, err := c.resolveAttachments(ctx, in.ImagePaths)
	if err != nil {
		c.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("attachment resolution failed")
		return "", conv, err
	}

	conv, err = conv.Append(models.RoleUser, in.Prompt, attachments)
	if err != nil {
		c.log.Error().Err(err).Msg("append user message failed")
		return "", conv, err
	}

	streaming := c.cfg.StreamOutput
	if in.Stream != nil {
		streaming = *in.Stream
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := llm.Request{
		ID:          conv.ID,
		Model:       c.model,
		Instruction: conv.Instruction,
		Messages:    conv.Messages,
	}

	text, err := c.complete(callCtx, req, streaming)
	if err != nil {
		err = c.translate(err)
		c.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("completion failed")
		return "", conv, err
	}

	conv, err = conv.Append(models.RoleAssistant, text, nil)
	if err != nil {
		c.log.Error().Err(err).Msg("append assistant message failed")
		return "", conv, err
	}

	c.log.Info().
		Str("conversation_id", conv.ID).
		Dur("elapsed", time.Since(started)).
		Msg("completion finished")

	if c.cfg.SaveTo != "" {
		if _, saveErr := c.store.Save(conv, c.cfg.SaveTo, c.saveAs, c.model); saveErr != nil {
			c.log.Error().Err(saveErr).Str("conversation_id", conv.ID).Msg("save failed, turn kept in memory")
			return text, conv, saveErr
		}
	}

	return text, conv, nil
}

// resolveAttachments uploads every image path, failing fast before any
// transport call.
func (c *Client) resolveAttachments(ctx context.Context, paths []string) ([]models.Attachment, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if c.uploader == nil {
		return nil, fmt.Errorf("%w: no uploader configured", ErrAttachment)
	}
	attachments := make([]models.Attachment, 0, len(paths))
	for _, path := range paths {
		att, err := c.uploader.Upload(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrAttachment, path, err)
		}
		attachments = append(attachments, att)
	}
	return attachments, nil
}

// complete runs the transport call, through the renderer when
// streaming.
func (c *Client) complete(ctx context.Context, req llm.Request, streaming bool) (string, error) {
	if !streaming {
		return c.transport.Complete(ctx, req)
	}

	frags, errs, err := c.transport.Stream(ctx, req)
	if err != nil {
		return "", err
	}

	renderer := stream.NewRenderer(c.streamSink())
	renderer.SetDelay(c.cfg.StreamDelay)

	text, err := renderer.Consume(ctx, frags)
	if err != nil {
		return "", err
	}
	// The transport may report a failure after its last fragment; the
	// partial text is then discarded from the durable record.
	if streamErr := <-errs; streamErr != nil {
		return "", streamErr
	}
	return text, nil
}

func (c *Client) streamSink() io.Writer {
	if c.cfg.StreamSink != nil {
		return c.cfg.StreamSink
	}
	return io.Discard
}

// translate folds context deadlines into the timeout error; everything
// else already carries its own sentinel.
func (c *Client) translate(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: no response within %s", ErrTimeout, c.cfg.Timeout)
	}
	return err
}
