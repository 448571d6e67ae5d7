// Package expert implements one phase roster member: an LLM-backed role
// that produces an utterance given the running ChatHistory, with access
// to the blob/docs/datetime collaborator tools (spec.md §4.2 step 4 "Have
// the selected agent produce an utterance, with full access to
// collaborator tools").
//
// Grounded on the teacher's Agent/BaseAgent/Controller split
// (pkg/agent/agent.go, pkg/agent/base_agent.go): Expert plays the role of
// a single-shot Controller (closest teacher analogue:
// pkg/agent/controller/single_shot.go) bound to one fixed role rather than
// a configurable agent type, since phase rosters are fixed enums
// (spec.md §4.4), not a dynamic agent registry.
package expert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/aks-migrator/pkg/llmsvc"
	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
)

// ToolExecutor is the tool-invocation boundary an Expert calls through.
// Shaped after the teacher's pkg/mcp.ToolExecutor.Execute(ctx, call)
// (*ToolResult, error) — see SPEC_FULL.md component mapping table.
type ToolExecutor interface {
	Execute(ctx context.Context, call llmsvc.ToolCall) (content string, isError bool, err error)
}

// MaxToolRoundsPerUtterance bounds how many tool-call/tool-result
// exchanges a single utterance may trigger before the expert is forced to
// answer with whatever it has (mirrors the teacher's iterating controller
// round cap, generalized down to the single-utterance scope an Expert
// owns).
const MaxToolRoundsPerUtterance = 5

// Expert is one fixed roster role.
type Expert struct {
	Role         phase.Role
	SystemPrompt string
	LLM          llmsvc.Client
	Tools        []llmsvc.ToolDefinition
	ToolExecutor ToolExecutor
}

// New builds an Expert bound to role.
func New(role phase.Role, systemPrompt string, llm llmsvc.Client, tools []llmsvc.ToolDefinition, executor ToolExecutor) *Expert {
	return &Expert{Role: role, SystemPrompt: systemPrompt, LLM: llm, Tools: tools, ToolExecutor: executor}
}

func toLLMHistory(h *migration.ChatHistory) []llmsvc.Message {
	out := make([]llmsvc.Message, 0, len(h.Messages)+1)
	for _, m := range h.Messages {
		out = append(out, llmsvc.Message{
			Role:       llmsvc.Role(m.Role),
			AuthorName: m.AuthorName,
			Content:    m.Content,
		})
	}
	return out
}

// Utter asks the expert to produce its next contribution, resolving any
// tool calls the model requests (up to MaxToolRoundsPerUtterance) before
// returning the final assistant message plus the tool-call messages
// generated along the way, in the order they should be appended to the
// phase ChatHistory.
func (e *Expert) Utter(ctx context.Context, history *migration.ChatHistory) ([]migration.ChatMessage, llmsvc.TokenUsage, error) {
	turn := toLLMHistory(history)
	turn = append([]llmsvc.Message{{Role: llmsvc.RoleSystem, Content: e.SystemPrompt}}, turn...)

	var produced []migration.ChatMessage
	var totalUsage llmsvc.TokenUsage

	for round := 0; round < MaxToolRoundsPerUtterance; round++ {
		msg, usage, err := e.LLM.GetChatMessageContent(ctx, turn, llmsvc.Settings{Tools: e.Tools})
		if err != nil {
			return nil, totalUsage, fmt.Errorf("expert %s: chat completion: %w", e.Role, err)
		}
		totalUsage.InputTokens += usage.InputTokens
		totalUsage.OutputTokens += usage.OutputTokens
		totalUsage.TotalTokens += usage.TotalTokens

		assistantMsg := migration.ChatMessage{Role: migration.RoleAssistant, AuthorName: string(e.Role), Content: msg.Content}
		produced = append(produced, assistantMsg)
		turn = append(turn, msg)

		if len(msg.ToolCalls) == 0 || e.ToolExecutor == nil {
			return produced, totalUsage, nil
		}

		for _, call := range msg.ToolCalls {
			content, isError, execErr := e.ToolExecutor.Execute(ctx, call)
			if execErr != nil {
				content = execErr.Error()
				isError = true
			}
			toolMsg := migration.ChatMessage{
				Role:    migration.RoleTool,
				Content: content,
				ToolCallMetadata: &migration.ToolCallMetadata{
					CallID: call.ID, ToolName: call.Name, Arguments: call.Arguments, IsResult: true,
				},
			}
			produced = append(produced, toolMsg)
			turn = append(turn, llmsvc.Message{
				Role: llmsvc.RoleTool, Content: content, ToolCallID: call.ID, ToolName: call.Name,
			})
			_ = isError
		}
	}

	return produced, totalUsage, nil
}

// ParseJSONVerdict is a small helper experts playing the manager role use
// to strictly re-parse the model's JSON output (spec.md §4.3 "The
// manager's JSON is re-parsed strictly").
func ParseJSONVerdict(raw string, into any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}
