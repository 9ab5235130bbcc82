package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/andrew/mindful-chat/pkg/llm"
	"github.com/andrew/mindful-chat/pkg/mindful"
	"github.com/andrew/mindful-chat/pkg/models"
	"github.com/andrew/mindful-chat/pkg/repl"
)

var (
	modelName   = flag.String("model", "omni", "Model preset to use (omni, mod1, mod2)")
	agentName   = flag.String("agent", "default", "Agent preset to use")
	instruction = flag.String("instruction", "", "Custom system instruction (overrides -agent)")
	saveTo      = flag.String("save-to", "", "Directory for chat history (empty disables saving)")
	saveAs      = flag.String("save-as", "json", "History format: json, txt or md")
	timeout     = flag.Duration("timeout", 60*time.Second, "Completion timeout")
	noStream    = flag.Bool("no-stream", false, "Wait for complete responses instead of streaming")
	streamDelay = flag.Duration("stream-delay", 15*time.Millisecond, "Pause between streamed characters")
	logOff      = flag.Bool("log-off", false, "Disable logging")
	logPath     = flag.String("log-path", "", "Log to a file instead of the console")
	endpoint    = flag.String("endpoint", "", "Chat completions endpoint (or MINDFUL_ENDPOINT)")
	uploadURL   = flag.String("upload-url", "", "Image upload endpoint (or MINDFUL_UPLOAD_URL)")
)

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	flag.Parse()

	// Load .env if present; real env vars win.
	_ = godotenv.Load()

	endpointURL := *endpoint
	if endpointURL == "" {
		endpointURL = getEnv("MINDFUL_ENDPOINT", "")
	}
	upload := *uploadURL
	if upload == "" {
		upload = getEnv("MINDFUL_UPLOAD_URL", "")
	}
	token := os.Getenv("MINDFUL_TOKEN")

	if endpointURL == "" {
		fmt.Fprintln(os.Stderr, "no endpoint configured: set -endpoint or MINDFUL_ENDPOINT")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C cancels the in-flight turn; a second one kills the process.
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nCancelling...")
		cancel()
		<-sigs
		os.Exit(1)
	}()

	cfg := mindful.Config{
		LogOn:        !*logOff,
		LogPath:      *logPath,
		Agent:        *agentName,
		Instruction:  *instruction,
		Model:        *modelName,
		SaveTo:       *saveTo,
		SaveAs:       *saveAs,
		Timeout:      *timeout,
		StreamOutput: !*noStream,
		StreamDelay:  *streamDelay,
		StreamSink:   os.Stdout,
	}

	wireLog := zerolog.Nop()
	if cfg.LogOn {
		wireLog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	}

	transport := llm.NewHTTPClient(endpointURL, token, wireLog)
	var uploader llm.Uploader
	if upload != "" {
		uploader = llm.NewHTTPUploader(upload, token, wireLog)
	}

	client, err := mindful.New(cfg, transport, uploader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Println(boldGreen("Mindful Chat"))
	fmt.Printf("Using model: %s\n", boldCyan(*modelName))
	fmt.Println("Type a message, or /help for commands.")
	fmt.Println()

	run(ctx, client, boldGreen, boldCyan, !*noStream)
}

func run(ctx context.Context, client *mindful.Client, promptColor, replyColor func(a ...interface{}) string, streaming bool) {
	scanner := bufio.NewScanner(os.Stdin)
	var conv *models.Conversation

	for {
		fmt.Print(promptColor("You: "))
		if !scanner.Scan() {
			break
		}

		cmd, err := repl.Parse(scanner.Text())
		if err != nil {
			if errors.Is(err, repl.ErrEmpty) {
				continue
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, repl.ErrUsage) || errors.Is(err, repl.ErrUnknownCommand) {
				fmt.Println(repl.Usage)
			}
			continue
		}

		switch c := cmd.(type) {
		case repl.Exit:
			return
		case repl.Help:
			fmt.Println(repl.Usage)
		case repl.Reset:
			conv = nil
			fmt.Println("Conversation reset.")
		case repl.SetAgent:
			if err := client.SetAgent(c.Name); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			conv = nil
			fmt.Printf("Agent set to %s. Conversation reset.\n", c.Name)
		case repl.SetInstruction:
			if err := client.SetInstruction(c.Text); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			conv = nil
			fmt.Println("Instruction set. Conversation reset.")
		case repl.Load:
			loaded, err := client.LoadHistory(c.Path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			conv = &loaded
			fmt.Printf("Loaded %d messages. The conversation continues from there.\n", loaded.Len())
		case repl.Say:
			conv = turn(ctx, client, mindful.CompletionInput{Prompt: c.Text, History: conv}, replyColor, streaming)
		case repl.AskImage:
			conv = turn(ctx, client, mindful.CompletionInput{
				Prompt:     c.Question,
				ImagePaths: c.Paths,
				History:    conv,
			}, replyColor, streaming)
		}
	}
}

// turn runs one completion and returns the conversation to carry
// forward. Failed turns still return the updated conversation so a
// retry does not resend history manually.
func turn(ctx context.Context, client *mindful.Client, in mindful.CompletionInput, replyColor func(a ...interface{}) string, streaming bool) *models.Conversation {
	fmt.Print(replyColor("Assistant: "))

	text, conv, err := client.GetCompletions(ctx, in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		return &conv
	}
	if !streaming {
		fmt.Println(text)
	} else {
		fmt.Println()
	}
	fmt.Println()
	return &conv
}
