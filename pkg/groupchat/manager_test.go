package groupchat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aks-migrator/pkg/llmsvc"
	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
)

type scriptedManagerLLM struct {
	responses []string
	calls     int
}

func (s *scriptedManagerLLM) GetChatMessageContent(ctx context.Context, history []llmsvc.Message, settings llmsvc.Settings) (llmsvc.Message, llmsvc.TokenUsage, error) {
	out := s.responses[s.calls]
	s.calls++
	return llmsvc.Message{Role: llmsvc.RoleAssistant, Content: out}, llmsvc.TokenUsage{}, nil
}

func TestSelectNextAgentStripsVerbosityPrefix(t *testing.T) {
	llm := &scriptedManagerLLM{responses: []string{"Select EKS Specialist"}}
	m := New(phase.Descriptors[phase.Analysis], nil, llm, PlatformState{})

	role, reason, err := m.SelectNextAgent(context.Background(), &migration.ChatHistory{})
	require.NoError(t, err)
	assert.Equal(t, phase.RoleEKSSpecialist, role)
	assert.Contains(t, reason, "selected")
}

func TestSelectNextAgentFallsBackOnIllegitimateOutput(t *testing.T) {
	llm := &scriptedManagerLLM{responses: []string{"Complete"}}
	m := New(phase.Descriptors[phase.Analysis], nil, llm, PlatformState{})

	role, reason, err := m.SelectNextAgent(context.Background(), &migration.ChatHistory{})
	require.NoError(t, err)
	assert.Equal(t, phase.RoleChiefArchitect, role)
	assert.Contains(t, reason, "illegitimate")
}

func TestSelectNextAgentFallsBackOnOffRosterName(t *testing.T) {
	llm := &scriptedManagerLLM{responses: []string{"Database Administrator"}}
	m := New(phase.Descriptors[phase.Analysis], nil, llm, PlatformState{})

	role, reason, err := m.SelectNextAgent(context.Background(), &migration.ChatHistory{})
	require.NoError(t, err)
	assert.Equal(t, phase.RoleChiefArchitect, role)
	assert.Contains(t, reason, "not in roster")
}

func TestSelectNextAgentExcludesOppositePlatformSpecialist(t *testing.T) {
	llm := &scriptedManagerLLM{responses: []string{"GKE Specialist"}}
	m := New(phase.Descriptors[phase.Design], nil, llm, PlatformState{Detected: migration.PlatformEKS})

	role, reason, err := m.SelectNextAgent(context.Background(), &migration.ChatHistory{})
	require.NoError(t, err)
	assert.Equal(t, phase.RoleAzureSpecialist, role)
	assert.Contains(t, reason, "excluded by detected platform")
}

func TestShouldTerminateParsesSoftCompletionVerdict(t *testing.T) {
	verdictJSON := `{"result": true, "reason": "analysis complete", "is_hard_terminated": false, "termination_type": "soft_completion", "blocking_issues": [], "termination_output": {"platform_detected": "EKS", "confidence_score": "0.9", "analysis_file": "analysis.md"}}`
	llm := &scriptedManagerLLM{responses: []string{verdictJSON}}
	m := New(phase.Descriptors[phase.Analysis], nil, llm, PlatformState{})

	verdict, err := m.ShouldTerminate(context.Background(), &migration.ChatHistory{})
	require.NoError(t, err)
	assert.True(t, verdict.Result)
	assert.Equal(t, migration.TerminationSoftCompletion, verdict.TerminationType)
	payload, ok := verdict.TerminationOutput.(*migration.AnalysisPayload)
	require.True(t, ok)
	assert.Equal(t, migration.PlatformEKS, payload.PlatformDetected)
}

func TestShouldTerminateParsesHardBlockedWithNullOutput(t *testing.T) {
	verdictJSON := `{"result": false, "reason": "blocked on missing credentials", "is_hard_terminated": true, "termination_type": "hard_blocked", "blocking_issues": ["missing_azure_credentials"], "termination_output": null}`
	llm := &scriptedManagerLLM{responses: []string{verdictJSON}}
	m := New(phase.Descriptors[phase.Design], nil, llm, PlatformState{})

	verdict, err := m.ShouldTerminate(context.Background(), &migration.ChatHistory{})
	require.NoError(t, err)
	assert.False(t, verdict.Result)
	assert.Equal(t, migration.TerminationHardBlocked, verdict.TerminationType)
	assert.Nil(t, verdict.TerminationOutput)
	assert.Contains(t, verdict.BlockingIssues, "missing_azure_credentials")
}

func TestShouldTerminateRetriesMalformedJSONThenSucceeds(t *testing.T) {
	llm := &scriptedManagerLLM{responses: []string{
		`not json at all`,
		`{"result": true, "reason": "ok", "is_hard_terminated": false, "termination_type": "soft_completion", "blocking_issues": [], "termination_output": null}`,
	}}
	m := New(phase.Descriptors[phase.YAML], nil, llm, PlatformState{})

	verdict, err := m.ShouldTerminate(context.Background(), &migration.ChatHistory{})
	require.NoError(t, err)
	assert.True(t, verdict.Result)
	assert.Equal(t, 2, llm.calls)
}

func TestShouldTerminateReturnsProtocolViolationAfterExhaustingRetries(t *testing.T) {
	llm := &scriptedManagerLLM{responses: []string{"bad", "still bad", "worse"}}
	m := New(phase.Descriptors[phase.Documentation], nil, llm, PlatformState{})

	_, err := m.ShouldTerminate(context.Background(), &migration.ChatHistory{})
	require.Error(t, err)
	var protoErr *ErrProtocolViolation
	assert.ErrorAs(t, err, &protoErr)
	assert.Equal(t, MaxMalformedJSONRetries, llm.calls)
}

func TestFilterResultsReturnsManagerSummary(t *testing.T) {
	llm := &scriptedManagerLLM{responses: []string{"Analysis concluded EKS with high confidence across 12 manifests."}}
	m := New(phase.Descriptors[phase.Analysis], nil, llm, PlatformState{})

	summary, err := m.FilterResults(context.Background(), &migration.ChatHistory{})
	require.NoError(t, err)
	assert.Contains(t, summary, "EKS")
}
