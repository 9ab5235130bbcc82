// Package repl parses interactive chat input into typed commands.
// Each line is parsed once into a discriminated Command value; the
// loop in cmd/chat dispatches on the concrete type.
package repl

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCommand marks a slash command the loop does not know.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage marks a known command with missing or extra arguments.
	ErrUsage = errors.New("usage")
	// ErrEmpty marks a blank input line.
	ErrEmpty = errors.New("empty input")
)

// Command is one parsed input line. Exactly one concrete type below
// implements it per line.
type Command interface {
	isCommand()
}

// Say sends plain text as the next user prompt.
type Say struct{ Text string }

// Exit terminates the session.
type Exit struct{}

// Reset discards the active conversation.
type Reset struct{}

// SetAgent switches to a named agent preset.
type SetAgent struct{ Name string }

// AskImage sends a question about one or more local images.
type AskImage struct {
	Paths    []string
	Question string
}

// SetInstruction switches to the custom agent with the given text.
type SetInstruction struct{ Text string }

// Load replaces the active conversation with a saved one.
type Load struct{ Path string }

// Help prints the command summary.
type Help struct{}

func (Say) isCommand()            {}
func (Exit) isCommand()           {}
func (Reset) isCommand()          {}
func (SetAgent) isCommand()       {}
func (AskImage) isCommand()       {}
func (SetInstruction) isCommand() {}
func (Load) isCommand()           {}
func (Help) isCommand()           {}

// Usage is the help text printed by /help and on usage errors.
const Usage = `Commands:
  /exit                      leave the chat
  /reset                     start a fresh conversation
  /agent <name>              switch agent preset
  /image <path> <question>   ask about an image file
  /instruction <text>        set a custom system instruction
  /load <path>               continue a saved conversation (json)
  /help                      show this message
Anything else is sent to the model as-is.`

// Parse turns one input line into a Command.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, ErrEmpty
	}
	if !strings.HasPrefix(line, "/") {
		return Say{Text: line}, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "/exit", "/quit":
		return Exit{}, nil
	case "/reset":
		return Reset{}, nil
	case "/help":
		return Help{}, nil
	case "/agent":
		if rest == "" {
			return nil, fmt.Errorf("%w: /agent <name>", ErrUsage)
		}
		return SetAgent{Name: rest}, nil
	case "/instruction":
		if rest == "" {
			return nil, fmt.Errorf("%w: /instruction <text>", ErrUsage)
		}
		return SetInstruction{Text: rest}, nil
	case "/load":
		if rest == "" {
			return nil, fmt.Errorf("%w: /load <path>", ErrUsage)
		}
		return Load{Path: unquote(rest)}, nil
	case "/image":
		path, question, ok := strings.Cut(rest, " ")
		question = strings.TrimSpace(question)
		if !ok || path == "" || question == "" {
			return nil, fmt.Errorf("%w: /image <path> <question>", ErrUsage)
		}
		return AskImage{Paths: []string{unquote(path)}, Question: question}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
