// Package groupchat implements the per-phase Group Chat Manager (spec.md
// §4.3): the single role that answers "who speaks next?", "are we done?"
// and "what's the summary?" every round, concentrating all conversational
// control so premature termination and off-roster speaker selection
// cannot slip through unnoticed.
//
// Grounded on pkg/agent/orchestrator.SubAgentRunner's dispatch/collect
// shape, generalized with pkg/agent/controller.IteratingController's round
// loop, and on original_source's base_orchestrator.py
// (StepSpecificGroupChatManager.select_next_agent/should_terminate/
// _safe_get_content), translated into Go idiom rather than the Python.
package groupchat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/aks-migrator/pkg/expert"
	"github.com/codeready-toolchain/aks-migrator/pkg/llmsvc"
	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
)

// IllegitimateSelections are known-bad "selected_name" outputs the
// selection prompt sometimes produces instead of a roster name; any of
// these triggers the safe-fallback selection without aborting (spec.md
// §4.3).
var IllegitimateSelections = map[string]struct{}{
	"success": {}, "complete": {}, "terminate": {}, "yes": {}, "no": {}, "done": {}, "n/a": {},
}

// SelectionPrefixes are common LLM verbosity prefixes stripped before
// matching against the roster.
var SelectionPrefixes = []string{"select ", "i choose ", "next: ", "next speaker: ", "agent: "}

// MaxMalformedJSONRetries is the ceiling on retrying a malformed
// termination verdict before the phase fails with hard_error (spec.md
// §4.3 "malformed JSON is a retriable protocol violation up to a small
// ceiling").
const MaxMalformedJSONRetries = 3

// ErrProtocolViolation marks an unparseable manager response after
// exhausting MaxMalformedJSONRetries.
type ErrProtocolViolation struct {
	Detail string
}

func (e *ErrProtocolViolation) Error() string {
	return fmt.Sprintf("group chat manager protocol violation: %s", e.Detail)
}

// PlatformState threads the detected platform across phases so the
// selection policy's platform-exclusivity rule (spec.md §4.3: "once
// Analysis has concluded EKS, the GKE specialist should not be selected
// in subsequent phases") can be enforced.
type PlatformState struct {
	Detected migration.Platform
}

// Manager drives one phase's group chat.
type Manager struct {
	Descriptor phase.Descriptor
	Experts    map[phase.Role]*expert.Expert
	ManagerLLM llmsvc.Client
	Platform   PlatformState
}

// New builds a Manager for the given phase descriptor.
func New(descriptor phase.Descriptor, experts map[phase.Role]*expert.Expert, managerLLM llmsvc.Client, platform PlatformState) *Manager {
	return &Manager{Descriptor: descriptor, Experts: experts, ManagerLLM: managerLLM, Platform: platform}
}

// excludedByPlatform reports whether role must be skipped this round
// because the detected platform rules it out (the opposing platform
// specialist, once a platform is known).
func (m *Manager) excludedByPlatform(role phase.Role) bool {
	if !phase.PlatformSpecialist(role) {
		return false
	}
	switch m.Platform.Detected {
	case migration.PlatformEKS:
		return role == phase.RoleGKESpecialist
	case migration.PlatformGKE:
		return role == phase.RoleEKSSpecialist
	default:
		return false
	}
}

func stripSelectionPrefixes(raw string) string {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	for _, prefix := range SelectionPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(trimmed[len(prefix):])
		}
	}
	return trimmed
}

func renderHistoryForSelection(history *migration.ChatHistory, roster []phase.Role) string {
	var b strings.Builder
	b.WriteString("Roster: ")
	names := make([]string, len(roster))
	for i, r := range roster {
		names[i] = string(r)
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n\nConversation so far:\n")
	for _, m := range history.Messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Role, m.AuthorName, m.Content)
	}
	b.WriteString("\nReply with exactly one roster agent name, nothing else.")
	return b.String()
}

// SelectNextAgent chooses the roster member who speaks next. A protocol
// violation (off-roster name, illegitimate output) resolves to the
// phase's canonical lead rather than raising (spec.md §4.3, Testable
// Property 5).
func (m *Manager) SelectNextAgent(ctx context.Context, history *migration.ChatHistory) (phase.Role, string, error) {
	prompt := renderHistoryForSelection(history, m.Descriptor.Roster)
	msg, _, err := m.ManagerLLM.GetChatMessageContent(ctx, []llmsvc.Message{
		{Role: llmsvc.RoleSystem, Content: "You are the group chat manager selecting the next speaker."},
		{Role: llmsvc.RoleUser, Content: prompt},
	}, llmsvc.Settings{})
	if err != nil {
		return m.Descriptor.CanonicalLead, "selection call failed, falling back to canonical lead", nil
	}

	candidate := phase.Role(stripSelectionPrefixes(msg.Content))
	lower := strings.ToLower(string(candidate))
	if _, illegitimate := IllegitimateSelections[lower]; illegitimate {
		return m.Descriptor.CanonicalLead, "manager returned an illegitimate selection, falling back to canonical lead", nil
	}
	if !m.Descriptor.InRoster(candidate) {
		return m.Descriptor.CanonicalLead, fmt.Sprintf("manager selected %q, not in roster, falling back to canonical lead", candidate), nil
	}
	if m.excludedByPlatform(candidate) {
		return m.Descriptor.CanonicalLead, fmt.Sprintf("manager selected %q, excluded by detected platform %s, falling back to canonical lead", candidate, m.Platform.Detected), nil
	}
	return candidate, "selected by manager", nil
}

type rawVerdict struct {
	Result            bool            `json:"result"`
	Reason            string          `json:"reason"`
	IsHardTerminated  bool            `json:"is_hard_terminated"`
	TerminationType   string          `json:"termination_type"`
	BlockingIssues    []string        `json:"blocking_issues"`
	TerminationOutput json.RawMessage `json:"termination_output"`
}

func decodePayload(ph phase.Name, raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch ph {
	case phase.Analysis:
		var p migration.AnalysisPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case phase.Design:
		var p migration.DesignPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case phase.YAML:
		var p migration.YAMLPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case phase.Documentation:
		var p migration.DocumentationPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown phase %q", ph)
	}
}

func renderHistoryForTermination(history *migration.ChatHistory) string {
	var b strings.Builder
	for _, m := range history.Messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Role, m.AuthorName, m.Content)
	}
	return b.String()
}

// ShouldTerminate asks the manager whether the phase is done, returning a
// fully-shaped verdict even when continuing or hard-blocked (spec.md
// §4.3). Malformed JSON is retried up to MaxMalformedJSONRetries before
// returning ErrProtocolViolation, at which point the Phase Runner converts
// it into a hard_error termination.
func (m *Manager) ShouldTerminate(ctx context.Context, history *migration.ChatHistory) (*migration.PhaseVerdict, error) {
	schema := VerdictSchemaFor(m.Descriptor.Name)
	prompt := renderHistoryForTermination(history)

	var lastErr error
	for attempt := 0; attempt < MaxMalformedJSONRetries; attempt++ {
		msg, _, err := m.ManagerLLM.GetChatMessageContent(ctx, []llmsvc.Message{
			{Role: llmsvc.RoleSystem, Content: "You are the group chat manager deciding whether this phase is complete. Respond with JSON matching the schema exactly."},
			{Role: llmsvc.RoleUser, Content: prompt},
		}, llmsvc.Settings{ResponseSchema: schema})
		if err != nil {
			return nil, fmt.Errorf("group chat manager: termination call failed: %w", err)
		}

		var raw rawVerdict
		if decErr := expert.ParseJSONVerdict(msg.Content, &raw); decErr != nil {
			lastErr = decErr
			continue
		}

		payload, payloadErr := decodePayload(m.Descriptor.Name, raw.TerminationOutput)
		if payloadErr != nil {
			lastErr = payloadErr
			continue
		}

		return &migration.PhaseVerdict{
			Result:            raw.Result,
			Reason:            raw.Reason,
			IsHardTerminated:  raw.IsHardTerminated,
			TerminationType:   migration.TerminationType(raw.TerminationType),
			BlockingIssues:    raw.BlockingIssues,
			TerminationOutput: payload,
		}, nil
	}

	return nil, &ErrProtocolViolation{Detail: fmt.Sprintf("manager emitted malformed verdict JSON %d times: %v", MaxMalformedJSONRetries, lastErr)}
}

// FilterResults produces the audit-friendly narrative summary invoked
// once at terminate time.
func (m *Manager) FilterResults(ctx context.Context, history *migration.ChatHistory) (string, error) {
	prompt := renderHistoryForTermination(history) + "\nSummarize this phase's outcome for an audit log in 3-5 sentences."
	msg, _, err := m.ManagerLLM.GetChatMessageContent(ctx, []llmsvc.Message{
		{Role: llmsvc.RoleSystem, Content: "You are the group chat manager producing the phase summary."},
		{Role: llmsvc.RoleUser, Content: prompt},
	}, llmsvc.Settings{})
	if err != nil {
		return "", fmt.Errorf("group chat manager: filter_results call failed: %w", err)
	}
	return msg.Content, nil
}
