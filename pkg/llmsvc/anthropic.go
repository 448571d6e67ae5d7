package llmsvc

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient adapts github.com/anthropics/anthropic-sdk-go to the
// Client contract. It replaces the teacher's GRPCLLMClient's "native"
// backend (config.LLMBackendNativeGemini in the teacher, a Gemini-specific
// variant of the same dual-backend idea this repo generalizes).
type AnthropicClient struct {
	sdk   anthropic.Client
	Model anthropic.Model
}

// NewAnthropicClient builds a client authenticated with apiKey. Token
// refresh is handled by the SDK's own transport; per spec.md §6 this
// collaborator is expected to occasionally fail with retryable errors,
// which the caller should wrap with pkg/failure's retry utility.
func NewAnthropicClient(apiKey string, model anthropic.Model) *AnthropicClient {
	return &AnthropicClient{
		sdk:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		Model: model,
	}
}

func (c *AnthropicClient) GetChatMessageContent(ctx context.Context, history []Message, settings Settings) (Message, TokenUsage, error) {
	params := anthropic.MessageNewParams{
		Model:     c.Model,
		MaxTokens: int64(maxTokensOrDefault(settings.MaxTokens)),
	}

	var system string
	msgs := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += m.Content
		case RoleUser, RoleTool:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	params.Messages = msgs
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return Message{}, TokenUsage{}, &RetryableError{Err: fmt.Errorf("anthropic: chat completion failed: %w", err)}
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	usage := TokenUsage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}

	return Message{Role: RoleAssistant, Content: text}, usage, nil
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 4096
	}
	return n
}
