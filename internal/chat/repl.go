// Package chat runs the interactive theater chatbot over a line-oriented
// reader and writer.
package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avvvet/theaterbuddy-intent/internal/models"
)

// Processor is implemented by handlers.IntentHandler.
type Processor interface {
	ProcessIntent(ctx context.Context, request *models.IntentRequest) (*models.IntentResponse, error)
}

var quitWords = []string{"quit", "exit", "τέλος", "έξοδος"}

// isQuitWord compares with Unicode case folding, so "ΤΈΛΟΣ" matches
// "τέλος" even though strings.ToLower keeps the non-final sigma.
func isQuitWord(text string) bool {
	for _, w := range quitWords {
		if strings.EqualFold(text, w) {
			return true
		}
	}
	return false
}

var examples = []string{
	"Which comedies are on tomorrow night?",
	"I want 2 tickets for The Wizard of Oz on Saturday.",
	"What is the theater's address?",
}

type styles struct {
	title  lipgloss.Style
	system lipgloss.Style
	label  lipgloss.Style
	intent lipgloss.Style
	err    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB000")),
		system: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AFFF")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		intent: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00")),
		err:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555")),
	}
}

type REPL struct {
	processor Processor
	in        io.Reader
	out       io.Writer
	sessionID string
	styles    styles
	logger    *zap.Logger
}

type Option func(*REPL)

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(r *REPL) { r.sessionID = id }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *REPL) { r.logger = logger }
}

// WithPlainOutput disables styling.
func WithPlainOutput() Option {
	return func(r *REPL) {
		plain := lipgloss.NewStyle()
		r.styles = styles{title: plain, system: plain, label: plain, intent: plain, err: plain}
	}
}

func New(processor Processor, in io.Reader, out io.Writer, opts ...Option) *REPL {
	r := &REPL{
		processor: processor,
		in:        in,
		out:       out,
		sessionID: uuid.NewString(),
		styles:    defaultStyles(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *REPL) SessionID() string { return r.sessionID }

type line struct {
	text string
	err  error
}

// readLines feeds input lines to a channel so that Run can also watch ctx.
// The goroutine can stay blocked in a read after Run returns; Run closes
// the input when it is an io.Closer to release it.
func (r *REPL) readLines(ctx context.Context) <-chan line {
	lines := make(chan line)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(r.in)
		for {
			text, err := reader.ReadString('\n')
			if text != "" || err == nil {
				select {
				case lines <- line{text: text}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					select {
					case lines <- line{err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
		}
	}()
	return lines
}

// Run drives the conversation until a quit word, end of input or ctx
// cancellation. A failed turn is reported and returned.
func (r *REPL) Run(ctx context.Context) error {
	r.banner()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if closer, ok := r.in.(io.Closer); ok {
		defer closer.Close()
	}
	lines := r.readLines(ctx)

	for {
		fmt.Fprint(r.out, "\nUSER: ")

		var input line
		var ok bool
		select {
		case <-ctx.Done():
			r.interrupted()
			return nil
		case input, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(r.out)
			return nil
		}
		if input.err != nil {
			return r.failed(fmt.Errorf("failed to read input: %w", input.err))
		}

		text := strings.TrimSpace(input.text)
		if isQuitWord(text) {
			r.system("Goodbye! I hope I helped.")
			return nil
		}
		if text == "" {
			continue
		}

		r.system("Processing...")
		response, err := r.processor.ProcessIntent(ctx, &models.IntentRequest{
			SessionID:   r.sessionID,
			UserMessage: text,
		})
		if err != nil {
			if ctx.Err() != nil {
				r.interrupted()
				return nil
			}
			return r.failed(err)
		}
		if err := r.render(response); err != nil {
			return r.failed(err)
		}
	}
}

func (r *REPL) banner() {
	fmt.Fprintln(r.out, r.styles.title.Render("--- Theater Chatbot (Intent & Slot Extraction) ---"))
	fmt.Fprintln(r.out, "Type 'quit' or 'exit' to finish.")
	fmt.Fprintf(r.out, "Examples: '%s'\n", strings.Join(examples, "', '"))
}

func (r *REPL) system(msg string) {
	fmt.Fprintf(r.out, "%s %s\n", r.styles.system.Render("SYSTEM:"), msg)
}

func (r *REPL) interrupted() {
	fmt.Fprintln(r.out)
	r.system("Conversation interrupted. Goodbye!")
}

func (r *REPL) failed(err error) error {
	r.logger.Error("chat turn failed", zap.String("session_id", r.sessionID), zap.Error(err))
	fmt.Fprintln(r.out)
	r.system("An unexpected error occurred during execution:")
	fmt.Fprintln(r.out, r.styles.err.Render(err.Error()))
	return err
}

func (r *REPL) render(response *models.IntentResponse) error {
	if response.Source == models.SourceTool {
		fmt.Fprintf(r.out, "  %s\n", r.styles.label.Render("LLM Response: Tool Call"))
		for _, call := range response.ToolCalls {
			params, err := formatParameters(call.Parameters)
			if err != nil {
				return err
			}
			fmt.Fprintf(r.out, "    -> Intent (from Tool): %s\n", r.styles.intent.Render(call.Name))
			fmt.Fprintf(r.out, "    -> Parameters: %s\n", params)
		}
		if len(response.MissingParameters) > 0 {
			fmt.Fprintf(r.out, "    -> Missing: %s\n", strings.Join(response.MissingParameters, ", "))
		}
	} else {
		fmt.Fprintf(r.out, "  %s\n", r.styles.label.Render(fmt.Sprintf("LLM Response: Text = '%s'", response.Reply)))
		if response.Status == models.StatusNeedsInfo {
			fmt.Fprintf(r.out, "    -> Intent (from Text): %s (Content: '%s')\n", r.styles.intent.Render(response.Intent), response.Reply)
		} else {
			fmt.Fprintf(r.out, "    -> Intent (from Text): %s\n", r.styles.intent.Render(response.Intent))
		}
	}

	if response.HistoryTrimmed {
		fmt.Fprintf(r.out, "  %s\n", r.styles.label.Render("(Trimming dialogue history)"))
	}
	return nil
}

// formatParameters renders parameters as indented JSON, keeping non-ASCII text.
func formatParameters(params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(params); err != nil {
		return "", fmt.Errorf("failed to format parameters: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
