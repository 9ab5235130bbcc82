package mindful

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrew/mindful-chat/pkg/stream"
)

// Config holds client construction options.
type Config struct {
	// LogOn enables logging; with it off the client stays silent.
	LogOn bool
	// LogPath, when set, sends log output to a file instead of the
	// console.
	LogPath string

	// Agent selects a system-prompt preset; Instruction switches the
	// client to the custom agent with the given text.
	Agent       string
	Instruction string

	// Model is the friendly model name ("omni", "mod1", "mod2").
	Model string

	// SaveTo is the history directory; empty disables persistence.
	// SaveAs picks the saved format: "json", "txt" or "md".
	SaveTo string
	SaveAs string

	// Timeout bounds each completion call.
	Timeout time.Duration

	// StreamOutput streams responses by default; StreamDelay paces the
	// rendered characters; StreamSink receives the rendered text.
	StreamOutput bool
	StreamDelay  time.Duration
	StreamSink   io.Writer
}

// DefaultConfig returns the documented defaults: console logging on,
// the default agent on the omni model, JSON saves disabled until a
// directory is set, a 60 second timeout, and paced streaming to stdout.
func DefaultConfig() Config {
	return Config{
		LogOn:        true,
		Agent:        "default",
		Model:        "omni",
		SaveAs:       "json",
		Timeout:      60 * time.Second,
		StreamOutput: true,
		StreamDelay:  stream.DefaultDelay,
		StreamSink:   os.Stdout,
	}
}

// newLogger builds the client logger from the config: a console writer
// by default, a plain JSON file when LogPath is set, disabled when
// logging is off. The returned closer is non-nil only for file output.
func newLogger(cfg Config) (zerolog.Logger, io.Closer, error) {
	if !cfg.LogOn {
		return zerolog.Nop(), nil, nil
	}
	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("opening log file %s: %w", cfg.LogPath, err)
		}
		return zerolog.New(f).With().Timestamp().Logger(), f, nil
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()
	return logger, nil, nil
}
