// Package llm provides the text generation clients used for answers and
// study aids.
package llm

import "context"

// Provider generates a completion for a conversation.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// Role is the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a generation call. An empty Model uses the
// provider's default.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// JSONMode asks the model for a JSON document.
	JSONMode bool
}

// Prompt returns a request holding a single user message.
func Prompt(model, prompt string, temperature float64) CompletionRequest {
	return CompletionRequest{
		Model:       model,
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: temperature,
	}
}

// CompletionResponse is the model output with token usage.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
