package history

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrew/mindful-chat/pkg/models"
)

func testStore() *Store {
	return NewStore(zerolog.Nop())
}

func sampleConversation(t *testing.T) models.Conversation {
	t.Helper()
	conv := models.NewConversation("be concise")
	var err error
	conv, err = conv.Append(models.RoleUser, "What is the capital of Malaysia?", nil)
	if err != nil {
		t.Fatal(err)
	}
	conv, err = conv.Append(models.RoleAssistant, "Kuala Lumpur.", nil)
	if err != nil {
		t.Fatal(err)
	}
	return conv
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := testStore()
	conv := sampleConversation(t)

	path, err := store.Save(conv, dir, FormatJSON, "vgpt-a1-1")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ID != conv.ID {
		t.Fatalf("id mismatch: %q vs %q", loaded.ID, conv.ID)
	}
	if loaded.Instruction != conv.Instruction {
		t.Fatalf("instruction mismatch: %q vs %q", loaded.Instruction, conv.Instruction)
	}
	if loaded.Len() != conv.Len() {
		t.Fatalf("message count mismatch: %d vs %d", loaded.Len(), conv.Len())
	}
	for i := range conv.Messages {
		if loaded.Messages[i].Role != conv.Messages[i].Role {
			t.Fatalf("message %d role mismatch", i)
		}
		if loaded.Messages[i].Content != conv.Messages[i].Content {
			t.Fatalf("message %d content mismatch", i)
		}
	}
}

func TestSaveDirectoryLayout(t *testing.T) {
	dir := t.TempDir()
	store := testStore()
	store.now = func() time.Time {
		return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	}

	path, err := store.Save(sampleConversation(t), dir, FormatJSON, "")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(dir, "2025-03-14") {
		t.Fatalf("unexpected date bucket for %s", path)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "20250314_092653_") || !strings.HasSuffix(base, ".json") {
		t.Fatalf("unexpected filename %s", base)
	}
}

func TestSaveTextWritesJSONTwin(t *testing.T) {
	for _, format := range []Format{FormatText, FormatMarkdown} {
		dir := t.TempDir()
		store := testStore()

		path, err := store.Save(sampleConversation(t), dir, format, "")
		if err != nil {
			t.Fatalf("Save(%s) failed: %v", format, err)
		}
		if got := strings.TrimPrefix(filepath.Ext(path), "."); got != string(format) {
			t.Fatalf("expected a .%s path, got %s", format, path)
		}

		twin := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		if _, err := os.Stat(twin); err != nil {
			t.Fatalf("expected JSON twin at %s: %v", twin, err)
		}

		bucket, err := os.ReadDir(filepath.Dir(path))
		if err != nil {
			t.Fatal(err)
		}
		if len(bucket) != 2 {
			t.Fatalf("expected exactly 2 files for %s, got %d", format, len(bucket))
		}
	}
}

func TestConsecutiveSavesNeverOverwrite(t *testing.T) {
	dir := t.TempDir()
	store := testStore()
	conv := sampleConversation(t)

	first, err := store.Save(conv, dir, FormatJSON, "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Save(conv, dir, FormatJSON, "")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("saves must produce distinct files, both wrote %s", first)
	}
	if _, err := os.Stat(first); err != nil {
		t.Fatalf("first save vanished: %v", err)
	}
}

func TestSaveRejectsEmptyAttachment(t *testing.T) {
	conv := sampleConversation(t)
	conv.Messages[0].Attachments = []models.Attachment{{Kind: models.AttachmentKindImage}}

	_, err := testStore().Save(conv, t.TempDir(), FormatJSON, "")
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := testStore().Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadRejectsNonJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.txt")
	if err := os.WriteFile(path, []byte("USER: hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := testStore().Load(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadMalformedRecords(t *testing.T) {
	cases := map[string]string{
		"missing messages": `{"id":"x","instruction":"hi"}`,
		"empty messages":   `{"id":"x","messages":[]}`,
		"missing role":     `{"id":"x","messages":[{"content":"hi"}]}`,
		"unknown role":     `{"id":"x","messages":[{"role":"narrator","content":"hi"}]}`,
		"not json":         `USER: hi`,
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "h.json")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := testStore().Load(path)
		if !errors.Is(err, ErrMalformedHistory) {
			t.Fatalf("%s: expected ErrMalformedHistory, got %v", name, err)
		}
	}
}

func TestLoadFoldsLeadingSystemMessage(t *testing.T) {
	body := `{"id":"x","messages":[
		{"role":"system","content":"be kind"},
		{"role":"user","content":"hello"},
		{"role":"model","content":"hi there"}
	]}`
	path := filepath.Join(t.TempDir(), "h.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	conv, err := testStore().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if conv.Instruction != "be kind" {
		t.Fatalf("expected folded instruction, got %q", conv.Instruction)
	}
	if conv.Len() != 2 {
		t.Fatalf("expected 2 messages after folding, got %d", conv.Len())
	}
	if conv.Messages[1].Role != models.RoleAssistant {
		t.Fatalf("expected model role normalized to assistant, got %q", conv.Messages[1].Role)
	}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{
		"json": FormatJSON, "TXT": FormatText, "markdown": FormatMarkdown,
	} {
		got, err := ParseFormat(name)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseFormat("yaml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestProjectionsRenderInstructionAndImages(t *testing.T) {
	conv := models.NewConversation("be kind")
	conv, _ = conv.Append(models.RoleUser, "what is this?", []models.Attachment{
		{Kind: models.AttachmentKindImage, URL: "https://img.example/cat.jpg"},
	})
	conv, _ = conv.Append(models.RoleAssistant, "A cat.", nil)

	txt := renderText(conv)
	if !strings.Contains(txt, "SYSTEM: be kind") {
		t.Fatalf("text projection missing instruction:\n%s", txt)
	}
	if !strings.Contains(txt, "[Image: https://img.example/cat.jpg]") {
		t.Fatalf("text projection missing image marker:\n%s", txt)
	}

	md := renderMarkdown(conv)
	if !strings.HasPrefix(md, "# Chat History") {
		t.Fatalf("markdown projection missing header:\n%s", md)
	}
	if !strings.Contains(md, "![Image](https://img.example/cat.jpg)") {
		t.Fatalf("markdown projection missing embed:\n%s", md)
	}
	if !strings.Contains(md, "### Assistant") {
		t.Fatalf("markdown projection missing role section:\n%s", md)
	}
}
