// Package history persists conversations to durable storage and loads
// them back. Files are laid out as {dir}/{YYYY-MM-DD}/{timestamp_uuid}.{ext}.
// Only the JSON format round-trips; txt and markdown are lossy
// projections written alongside a JSON twin.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrew/mindful-chat/pkg/models"
)

var (
	// ErrNotFound means the history path does not exist.
	ErrNotFound = errors.New("history file not found")
	// ErrUnsupportedFormat means the format name or file extension is
	// not one the store understands (only JSON can be reloaded).
	ErrUnsupportedFormat = errors.New("unsupported history format")
	// ErrMalformedHistory means a record is missing required fields or
	// carries an unrecognized role.
	ErrMalformedHistory = errors.New("malformed history")
	// ErrIO wraps directory and file write failures.
	ErrIO = errors.New("history io")
	// ErrSerialization means the conversation holds a value that cannot
	// be represented on disk.
	ErrSerialization = errors.New("history serialization")
)

// Format selects the on-disk representation of a saved conversation.
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// record is the JSON shape written to disk. Roles are kept as plain
// strings so that load can validate them explicitly.
type record struct {
	ID          string           `json:"id"`
	Instruction string           `json:"instruction,omitempty"`
	Model       string           `json:"model,omitempty"`
	Messages    []models.Message `json:"messages"`
}

// Store writes and reads conversation records.
type Store struct {
	log zerolog.Logger
	now func() time.Time
}

// NewStore creates a store logging through the given logger.
func NewStore(log zerolog.Logger) *Store {
	return &Store{log: log, now: time.Now}
}

// Save writes the conversation under dir in the requested format and
// returns the path of the written file. For txt and markdown a JSON
// twin with the same base name is always written too, since only JSON
// reloads. Every save creates a fresh file; existing files are never
// touched.
func (s *Store) Save(conv models.Conversation, dir string, format Format, model string) (string, error) {
	switch format {
	case FormatJSON, FormatText, FormatMarkdown:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	for i, msg := range conv.Messages {
		for _, att := range msg.Attachments {
			if att.URL == "" && att.SourcePath == "" {
				return "", fmt.Errorf("%w: message %d has an attachment with no url or source path", ErrSerialization, i)
			}
		}
	}

	now := s.now()
	bucket := filepath.Join(dir, now.Format("2006-01-02"))
	if err := os.MkdirAll(bucket, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ErrIO, bucket, err)
	}

	base := filepath.Join(bucket, models.NewConversationID(now))

	rec := record{
		ID:          conv.ID,
		Instruction: conv.Instruction,
		Model:       model,
		Messages:    conv.Messages,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	jsonPath := base + ".json"
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", ErrIO, jsonPath, err)
	}

	path := jsonPath
	switch format {
	case FormatText:
		path = base + ".txt"
		if err := os.WriteFile(path, []byte(renderText(conv)), 0o644); err != nil {
			return "", fmt.Errorf("%w: writing %s: %v", ErrIO, path, err)
		}
	case FormatMarkdown:
		path = base + ".md"
		if err := os.WriteFile(path, []byte(renderMarkdown(conv)), 0o644); err != nil {
			return "", fmt.Errorf("%w: writing %s: %v", ErrIO, path, err)
		}
	}

	s.log.Info().
		Str("conversation_id", conv.ID).
		Str("path", path).
		Int("messages", conv.Len()).
		Msg("saved chat history")

	return path, nil
}

// Load reads a JSON history record and reconstructs the conversation.
// A leading system message in an older record is folded into the
// Instruction field.
func (s *Store) Load(path string) (models.Conversation, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return models.Conversation{}, fmt.Errorf("%w: %s (only json history can be reloaded)", ErrUnsupportedFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Conversation{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return models.Conversation{}, fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.Conversation{}, fmt.Errorf("%w: %s: %v", ErrMalformedHistory, path, err)
	}
	if len(rec.Messages) == 0 {
		return models.Conversation{}, fmt.Errorf("%w: %s: missing messages", ErrMalformedHistory, path)
	}

	conv := models.Conversation{
		ID:          rec.ID,
		Instruction: rec.Instruction,
	}
	if conv.ID == "" {
		conv.ID = models.NewConversationID(s.now())
	}

	for i, msg := range rec.Messages {
		role, ok := models.NormalizeRole(string(msg.Role))
		if !ok {
			return models.Conversation{}, fmt.Errorf("%w: %s: message %d has role %q", ErrMalformedHistory, path, i, msg.Role)
		}
		if i == 0 && role == models.RoleSystem && conv.Instruction == "" {
			conv.Instruction = msg.Content
			continue
		}
		msg.Role = role
		conv.Messages = append(conv.Messages, msg)
	}

	s.log.Info().
		Str("conversation_id", conv.ID).
		Str("path", path).
		Int("messages", conv.Len()).
		Msg("loaded chat history")

	return conv, nil
}
