package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppendPreservesOrder(t *testing.T) {
	conv := NewConversation("be helpful")

	var err error
	for i := 0; i < 5; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		conv, err = conv.Append(role, fmt.Sprintf("turn %d", i), nil)
		if err != nil {
			t.Fatalf("Append failed at turn %d: %v", i, err)
		}
	}

	if conv.Len() != 5 {
		t.Fatalf("expected 5 messages, got %d", conv.Len())
	}
	for i, msg := range conv.Messages {
		want := fmt.Sprintf("turn %d", i)
		if msg.Content != want {
			t.Fatalf("message %d: expected %q, got %q", i, want, msg.Content)
		}
	}
}

func TestAppendDoesNotMutateReceiver(t *testing.T) {
	orig := NewConversation("")
	orig, err := orig.Append(RoleUser, "first", nil)
	if err != nil {
		t.Fatal(err)
	}

	grown, err := orig.Append(RoleAssistant, "second", nil)
	if err != nil {
		t.Fatal(err)
	}

	if orig.Len() != 1 {
		t.Fatalf("original conversation mutated: has %d messages", orig.Len())
	}
	if grown.Len() != 2 {
		t.Fatalf("expected 2 messages in new conversation, got %d", grown.Len())
	}
}

func TestAppendRejectsBadInput(t *testing.T) {
	conv := NewConversation("")

	if _, err := conv.Append(Role("narrator"), "hello", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad role, got %v", err)
	}
	if _, err := conv.Append(RoleUser, "", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty message, got %v", err)
	}

	// An attachment-only message is valid.
	att := []Attachment{{Kind: AttachmentKindImage, URL: "https://img.example/1.jpg"}}
	if _, err := conv.Append(RoleUser, "", att); err != nil {
		t.Fatalf("attachment-only message should be valid: %v", err)
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"user", RoleUser, true},
		{"Assistant", RoleAssistant, true},
		{"model", RoleAssistant, true},
		{" system ", RoleSystem, true},
		{"narrator", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeRole(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("NormalizeRole(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestConversationIDFormat(t *testing.T) {
	id := NewConversation("").ID
	// YYYYMMDD_HHMMSS_xxxxxxxx
	if len(id) != 8+1+6+1+8 {
		t.Fatalf("unexpected id length for %q", id)
	}
	if id[8] != '_' || id[15] != '_' {
		t.Fatalf("unexpected id shape %q", id)
	}
}
