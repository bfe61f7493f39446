package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/theaterbuddy-intent/internal/models"
)

type scriptedProcessor struct {
	responses []*models.IntentResponse
	err       error
	requests  []*models.IntentRequest
}

func (p *scriptedProcessor) ProcessIntent(_ context.Context, request *models.IntentRequest) (*models.IntentResponse, error) {
	p.requests = append(p.requests, request)
	if p.err != nil {
		return &models.IntentResponse{Status: models.StatusError}, p.err
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func run(t *testing.T, p Processor, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	r := New(p, strings.NewReader(input), &out, WithPlainOutput(), WithSessionID("test-session"))
	err := r.Run(context.Background())
	return out.String(), err
}

func TestRunToolCall(t *testing.T) {
	p := &scriptedProcessor{responses: []*models.IntentResponse{{
		Intent: "BookTicketParameters",
		Source: models.SourceTool,
		Status: models.StatusReady,
		ToolCalls: []models.ToolInvocation{{
			Name:       "BookTicketParameters",
			Parameters: map[string]any{"show_name": "Ο Μάγος του Οζ", "num_tickets": 2.0},
		}},
	}}}

	out, err := run(t, p, "Θέλω 2 εισιτήρια για τον Μάγο του Οζ\nquit\n")
	require.NoError(t, err)

	assert.Contains(t, out, "--- Theater Chatbot (Intent & Slot Extraction) ---")
	assert.Contains(t, out, "SYSTEM: Processing...")
	assert.Contains(t, out, "  LLM Response: Tool Call\n")
	assert.Contains(t, out, "    -> Intent (from Tool): BookTicketParameters\n")
	assert.Contains(t, out, "    -> Parameters: {\n  \"num_tickets\": 2,\n  \"show_name\": \"Ο Μάγος του Οζ\"\n}\n")
	assert.True(t, strings.HasSuffix(out, "SYSTEM: Goodbye! I hope I helped.\n"))

	require.Len(t, p.requests, 1)
	assert.Equal(t, "test-session", p.requests[0].SessionID)
}

func TestRunTextIntents(t *testing.T) {
	p := &scriptedProcessor{responses: []*models.IntentResponse{
		{Intent: "greet", Source: models.SourceText, Status: models.StatusReady, Reply: "greet"},
		{Intent: "unknown_or_complex_reply", Source: models.SourceText, Status: models.StatusNeedsInfo, Reply: "Hmm?", HistoryTrimmed: true},
	}}

	out, err := run(t, p, "hello\n\n   \nwhat?\nEXIT\n")
	require.NoError(t, err)

	assert.Contains(t, out, "  LLM Response: Text = 'greet'\n    -> Intent (from Text): greet\n")
	assert.Contains(t, out, "    -> Intent (from Text): unknown_or_complex_reply (Content: 'Hmm?')\n")
	assert.Contains(t, out, "  (Trimming dialogue history)\n")
	assert.Len(t, p.requests, 2)
}

func TestRunQuitWords(t *testing.T) {
	for _, word := range []string{"quit", "Exit", "τέλος", "Τέλος", "ΤΈΛΟΣ", "έξοδος", "ΈΞΟΔΟΣ"} {
		p := &scriptedProcessor{}
		out, err := run(t, p, word+"\nhello\n")
		require.NoError(t, err, word)
		assert.Contains(t, out, "Goodbye! I hope I helped.", word)
		assert.Empty(t, p.requests, word)
	}
}

func TestRunEndOfInput(t *testing.T) {
	p := &scriptedProcessor{responses: []*models.IntentResponse{
		{Intent: "thank_you", Source: models.SourceText, Status: models.StatusReady, Reply: "thank_you"},
	}}
	out, err := run(t, p, "thanks")
	require.NoError(t, err)
	assert.Contains(t, out, "-> Intent (from Text): thank_you")
}

func TestRunStopsOnError(t *testing.T) {
	p := &scriptedProcessor{err: errors.New("LLM_API_FAILED: model request failed")}

	out, err := run(t, p, "hello\nhello again\n")
	require.Error(t, err)
	assert.Contains(t, out, "SYSTEM: An unexpected error occurred during execution:\nLLM_API_FAILED: model request failed\n")
	assert.Len(t, p.requests, 1)
}

func TestRunInterrupted(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	var out bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(&scriptedProcessor{}, pr, &out, WithPlainOutput())
	require.NoError(t, r.Run(ctx))
	assert.Contains(t, out.String(), "SYSTEM: Conversation interrupted. Goodbye!")

	// The reader was released when Run returned.
	_, err := pw.Write([]byte("hello\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestNewGeneratesSessionID(t *testing.T) {
	a := New(&scriptedProcessor{}, strings.NewReader(""), io.Discard)
	b := New(&scriptedProcessor{}, strings.NewReader(""), io.Discard)
	assert.NotEmpty(t, a.SessionID())
	assert.NotEqual(t, a.SessionID(), b.SessionID())
}
