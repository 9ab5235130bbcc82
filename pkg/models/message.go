package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of a message sender
type Role string

const (
	// RoleSystem represents the system instruction
	RoleSystem Role = "system"
	// RoleUser represents a message from the user
	RoleUser Role = "user"
	// RoleAssistant represents a message from the assistant
	RoleAssistant Role = "assistant"
)

// NormalizeRole converts a role to its canonical form. Some providers
// report the assistant role as "model"; both spellings load as assistant.
func NormalizeRole(role string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "system":
		return RoleSystem, true
	case "user":
		return RoleUser, true
	case "assistant", "model":
		return RoleAssistant, true
	}
	return "", false
}

// Attachment is a resolved reference to an image payload associated
// with a Message. URL points at the hosted copy; SourcePath records the
// local file it came from.
type Attachment struct {
	Kind       string `json:"kind"`
	URL        string `json:"url"`
	SourcePath string `json:"source_path,omitempty"`
}

// AttachmentKindImage is the only attachment kind currently produced.
const AttachmentKindImage = "image_url"

// Message represents a single chat turn
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Conversation represents a complete conversation with multiple messages.
// Messages are kept in insertion order and never reordered.
type Conversation struct {
	ID          string    `json:"id"`
	Instruction string    `json:"instruction,omitempty"`
	Messages    []Message `json:"messages"`
}

// NewConversationID returns an identifier combining a timestamp with a
// short random suffix, e.g. "20250101_120000_ab12cd34". The timestamp
// part doubles as the date bucket for saved history files.
func NewConversationID(now time.Time) string {
	return now.Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// NewConversation creates an empty conversation with an optional system
// instruction.
func NewConversation(instruction string) Conversation {
	return Conversation{
		ID:          NewConversationID(time.Now()),
		Instruction: instruction,
	}
}

// Append returns a copy of the conversation with a new message added.
// The receiver is left untouched; callers replace their held value with
// the returned one.
func (c Conversation) Append(role Role, content string, attachments []Attachment) (Conversation, error) {
	if _, ok := NormalizeRole(string(role)); !ok {
		return c, fmt.Errorf("%w: unrecognized role %q", ErrValidation, role)
	}
	if content == "" && len(attachments) == 0 {
		return c, fmt.Errorf("%w: message needs content or attachments", ErrValidation)
	}

	msg := Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	if len(attachments) > 0 {
		msg.Attachments = append([]Attachment(nil), attachments...)
	}

	out := c.Clone()
	out.Messages = append(out.Messages, msg)
	return out, nil
}

// Clone returns a deep copy of the conversation so that appending to
// the copy cannot disturb the original's message slice.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	for i, m := range c.Messages {
		if len(m.Attachments) > 0 {
			out.Messages[i].Attachments = append([]Attachment(nil), m.Attachments...)
		}
	}
	return out
}

// Len reports the number of messages in the conversation.
func (c Conversation) Len() int { return len(c.Messages) }
