// Package history implements the Chat History Governor (spec.md §4.5):
// it keeps a phase's ChatHistory under a configurable token budget while
// preserving the invariants the Group Chat Manager and phase payload
// validation depend on — most importantly, the evidence tool-call pairs
// agents are coached to cite when making termination claims.
//
// Grounded on original_source/src/processor/src/libs/steps/orchestration/
// base_orchestrator.py's _smart_truncate_chat_history /
// _estimate_token_count / _truncate_message_content (the distillation's
// spec.md prose summarizes this algorithm; this package implements it
// directly in Go idiom rather than translating the Python).
package history

import (
	"fmt"

	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
)

// CharsPerToken is the coarse, deliberately conservative token-estimation
// constant (spec.md §4.5 point 6).
const CharsPerToken = 3.5

// TruncationPolicy bounds one Governor invocation.
type TruncationPolicy struct {
	MaxTotalTokens          int
	MaxMessages             int
	MaxTokensPerMessage     int
	PreserveSystem          bool
	PreserveRecentToolCalls int // N most recent tool/tool-call messages to always keep
}

// DefaultTruncationPolicy mirrors the original's tuned-down-for-cost
// defaults (max_total_tokens=3000, max_messages=8, max_tokens_per_message=400).
var DefaultTruncationPolicy = TruncationPolicy{
	MaxTotalTokens:          3000,
	MaxMessages:             8,
	MaxTokensPerMessage:     400,
	PreserveSystem:          true,
	PreserveRecentToolCalls: 6,
}

// EstimateTokens is the fixed characters-per-token estimator.
func EstimateTokens(content string) int {
	return int(float64(len(content)) / CharsPerToken)
}

func isToolMessage(m migration.ChatMessage) bool {
	return m.Role == migration.RoleTool || m.ToolCallMetadata != nil
}

// TruncateContent truncates a single message's content to fit within
// maxTokens, keeping the first third and last third and eliding the
// middle with a visible marker naming how much was removed.
func TruncateContent(content string, maxTokens int) string {
	budget := maxTokens * 4 // chars, matching the original's char-budget-per-token-budget ratio
	if budget <= 0 || len(content) <= budget {
		return content
	}

	third := budget / 3
	if third <= 0 {
		third = 1
	}
	head := content[:third]
	tailStart := len(content) - third
	if tailStart < third {
		tailStart = third
	}
	tail := content[tailStart:]
	removed := len(content) - len(head) - len(tail)

	return fmt.Sprintf("%s\n[... CONTENT TRUNCATED - REMOVED %d CHARACTERS ...]\n%s", head, removed, tail)
}

// Truncate mutates history in place per the policy, preserving the
// original relative order of surviving messages (spec.md §4.5 "Ordering
// guarantee").
//
// Algorithm:
//  1. Partition into system / tool / regular messages.
//  2. Keep the most recent system message if PreserveSystem.
//  3. Reserve up to PreserveRecentToolCalls most recent tool messages.
//  4. Fill remaining capacity (MaxMessages, MaxTotalTokens) with the most
//     recent regular messages, in original order.
//  5. Truncate any surviving message that still exceeds MaxTokensPerMessage.
//  6. Re-sort survivors by original index to restore relative order.
type indexedMessage struct {
	idx int
	msg migration.ChatMessage
}

func Truncate(history *migration.ChatHistory, policy TruncationPolicy) {
	var system, tool, regular []indexedMessage
	for i, m := range history.Messages {
		switch {
		case m.Role == migration.RoleSystem:
			system = append(system, indexedMessage{i, m})
		case isToolMessage(m):
			tool = append(tool, indexedMessage{i, m})
		default:
			regular = append(regular, indexedMessage{i, m})
		}
	}

	var kept []indexedMessage
	budget := policy.MaxTotalTokens
	msgBudget := policy.MaxMessages

	if policy.PreserveSystem && len(system) > 0 {
		last := system[len(system)-1]
		kept = append(kept, last)
		budget -= EstimateTokens(last.msg.Content)
		msgBudget--
	}

	if policy.PreserveRecentToolCalls > 0 && len(tool) > 0 {
		start := len(tool) - policy.PreserveRecentToolCalls
		if start < 0 {
			start = 0
		}
		for _, t := range tool[start:] {
			if msgBudget <= 0 {
				break
			}
			kept = append(kept, t)
			budget -= EstimateTokens(t.msg.Content)
			msgBudget--
		}
	}

	for i := len(regular) - 1; i >= 0 && msgBudget > 0; i-- {
		r := regular[i]
		cost := EstimateTokens(r.msg.Content)
		if budget-cost < 0 && len(kept) > 0 {
			continue
		}
		kept = append(kept, r)
		budget -= cost
		msgBudget--
	}

	sortByIndex(kept)

	out := make([]migration.ChatMessage, 0, len(kept))
	for _, k := range kept {
		m := k.msg
		if EstimateTokens(m.Content) > policy.MaxTokensPerMessage {
			m.Content = TruncateContent(m.Content, policy.MaxTokensPerMessage)
		}
		out = append(out, m)
	}
	history.Messages = out
}

func sortByIndex(items []indexedMessage) {
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && items[j-1].idx > items[j].idx {
			items[j-1], items[j] = items[j], items[j-1]
			j--
		}
	}
}
