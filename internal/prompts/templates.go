package prompts

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

const SystemPrompt = `You are a helpful and precise AI chatbot for a theater.
Your goal is to understand the user's intent and extract every relevant parameter (slot) from their question, using the dialogue history for context.

Available tools/intents with parameters: {{.tool_names}}

Instructions:
1. Analyse the user's latest message ('human' message) in the context of the history ('history').
2. Identify the user's main intent.
3. If the intent matches one of the available tools, CALL that tool and fill in ALL the parameters you can find in the user's question or in the recent history.
4. If the intent does NOT match any tool (e.g. a plain greeting 'greet', confirmation 'affirm', refusal 'negate', thanks 'thank_you', farewell 'goodbye'), DO NOT call a tool. Simply reply with the intent as a single word (e.g. "greet", "affirm", "negate", "thank_you", "goodbye").
5. Rely MAINLY on the user's LAST message for extraction, but use the history to disambiguate (e.g. if they say "yes" to an earlier booking question).

Dialogue history:
{{.chat_history}}
`

const HumanPrompt = `{{.user_input}}`

// FallbackMessage is shown to NATS callers when a turn could not be processed.
const FallbackMessage = "I didn't understand your request clearly. Could you please rephrase what you'd like help with, such as finding a show, booking tickets or theater information?"

// Builder renders the system and human messages for one turn.
type Builder struct {
	template  prompts.ChatPromptTemplate
	toolNames string
}

// NewBuilder prepares the chat template for the given comma-joined tool names.
func NewBuilder(toolNames string) *Builder {
	return &Builder{
		template: prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
			prompts.NewSystemMessagePromptTemplate(SystemPrompt, []string{"tool_names", "chat_history"}),
			prompts.NewHumanMessagePromptTemplate(HumanPrompt, []string{"user_input"}),
		}),
		toolNames: toolNames,
	}
}

// Build renders the prompt for userInput with the formatted history.
func (b *Builder) Build(history, userInput string) ([]llms.MessageContent, error) {
	messages, err := b.template.FormatMessages(map[string]any{
		"tool_names":   b.toolNames,
		"chat_history": history,
		"user_input":   userInput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format prompt: %w", err)
	}

	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(msg.GetType(), msg.GetContent()))
	}
	return content, nil
}
