package llmsvc

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// LangChainClient adapts any github.com/tmc/langchaingo/llms.Model to the
// Client contract. It is the multi-provider backend, mirroring the
// teacher's own backend duality (config.LLMBackendNativeGemini vs
// config.LLMBackendLangChain in ResolvedAgentConfig.Backend): AnthropicClient
// is the single-provider fast path, LangChainClient is the generalized one
// that can target whatever provider langchaingo supports.
type LangChainClient struct {
	Model llms.Model
}

// NewLangChainClient wraps an already-constructed langchaingo model.
func NewLangChainClient(model llms.Model) *LangChainClient {
	return &LangChainClient{Model: model}
}

func toLangChainRole(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	case RoleTool:
		return llms.ChatMessageTypeTool
	default:
		return llms.ChatMessageTypeHuman
	}
}

func (c *LangChainClient) GetChatMessageContent(ctx context.Context, history []Message, settings Settings) (Message, TokenUsage, error) {
	content := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		content = append(content, llms.TextParts(toLangChainRole(m.Role), m.Content))
	}

	opts := []llms.CallOption{llms.WithTemperature(float64(settings.Temperature))}
	if settings.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(settings.MaxTokens))
	}
	if settings.Model != "" {
		opts = append(opts, llms.WithModel(settings.Model))
	}

	resp, err := c.Model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return Message{}, TokenUsage{}, &RetryableError{Err: fmt.Errorf("langchaingo: chat completion failed: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return Message{}, TokenUsage{}, fmt.Errorf("langchaingo: empty response")
	}

	choice := resp.Choices[0]
	usage := TokenUsage{}
	if gi := choice.GenerationInfo; gi != nil {
		if v, ok := gi["InputTokens"].(int); ok {
			usage.InputTokens = v
		}
		if v, ok := gi["OutputTokens"].(int); ok {
			usage.OutputTokens = v
		}
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}

	return Message{Role: RoleAssistant, Content: choice.Content}, usage, nil
}
