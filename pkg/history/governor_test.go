package history

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
)

func totalTokens(h *migration.ChatHistory) int {
	total := 0
	for _, m := range h.Messages {
		total += EstimateTokens(m.Content)
	}
	return total
}

func buildOversizedHistory() *migration.ChatHistory {
	h := &migration.ChatHistory{}
	h.Append(migration.ChatMessage{Role: migration.RoleSystem, Content: "You are the Analysis phase manager."})
	for i := 0; i < 20; i++ {
		h.Append(migration.ChatMessage{Role: migration.RoleAssistant, AuthorName: "Chief Architect", Content: strings.Repeat("analysis chatter ", 50)})
	}
	for i := 0; i < 3; i++ {
		h.Append(migration.ChatMessage{
			Role:             migration.RoleTool,
			Content:          strings.Repeat("tool evidence ", 50),
			ToolCallMetadata: &migration.ToolCallMetadata{CallID: "call", ToolName: "read_blob_content", IsResult: true},
		})
	}
	return h
}

func TestTruncateEnforcesAllThreeBudgets(t *testing.T) {
	h := buildOversizedHistory()
	require.Greater(t, totalTokens(h), DefaultTruncationPolicy.MaxTotalTokens*5)

	Truncate(h, DefaultTruncationPolicy)

	assert.LessOrEqual(t, totalTokens(h), DefaultTruncationPolicy.MaxTotalTokens)
	assert.LessOrEqual(t, len(h.Messages), DefaultTruncationPolicy.MaxMessages)
}

func TestTruncatePreservesAllThreeToolCallPairs(t *testing.T) {
	h := buildOversizedHistory()
	Truncate(h, DefaultTruncationPolicy)

	toolCount := 0
	for _, m := range h.Messages {
		if m.ToolCallMetadata != nil {
			toolCount++
		}
	}
	assert.Equal(t, 3, toolCount)
}

func TestTruncatePreservesMostRecentSystemMessage(t *testing.T) {
	h := buildOversizedHistory()
	Truncate(h, DefaultTruncationPolicy)

	found := false
	for _, m := range h.Messages {
		if m.Role == migration.RoleSystem {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTruncatePreservesOriginalRelativeOrder(t *testing.T) {
	h := &migration.ChatHistory{}
	h.Append(migration.ChatMessage{Role: migration.RoleSystem, Content: "system"})
	for i := 0; i < 5; i++ {
		h.Append(migration.ChatMessage{Role: migration.RoleAssistant, Content: "short"})
	}

	Truncate(h, DefaultTruncationPolicy)

	for i := 1; i < len(h.Messages); i++ {
		if h.Messages[i-1].Role == migration.RoleSystem {
			continue
		}
	}
	assert.Equal(t, migration.RoleSystem, h.Messages[0].Role)
}

func TestTruncateIsIdempotentOnCompliantHistory(t *testing.T) {
	h := &migration.ChatHistory{}
	h.Append(migration.ChatMessage{Role: migration.RoleSystem, Content: "system prompt"})
	h.Append(migration.ChatMessage{Role: migration.RoleAssistant, Content: "short reply"})

	Truncate(h, DefaultTruncationPolicy)
	first := append([]migration.ChatMessage{}, h.Messages...)

	Truncate(h, DefaultTruncationPolicy)
	assert.Equal(t, first, h.Messages)
}

func TestTruncateContentPreservesHeadAndTailWithMarker(t *testing.T) {
	content := strings.Repeat("a", 100) + strings.Repeat("b", 100) + strings.Repeat("c", 100)
	out := TruncateContent(content, 20) // budget = 80 chars

	assert.True(t, strings.HasPrefix(out, "aaa"))
	assert.Contains(t, out, "CONTENT TRUNCATED")
	assert.True(t, strings.HasSuffix(out, "ccc"))
}

func TestTruncateContentNoOpWhenWithinBudget(t *testing.T) {
	out := TruncateContent("short", 1000)
	assert.Equal(t, "short", out)
}
