package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aks-migrator/pkg/clock"
	"github.com/codeready-toolchain/aks-migrator/pkg/expert"
	"github.com/codeready-toolchain/aks-migrator/pkg/groupchat"
	"github.com/codeready-toolchain/aks-migrator/pkg/history"
	"github.com/codeready-toolchain/aks-migrator/pkg/llmsvc"
	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
	"github.com/codeready-toolchain/aks-migrator/pkg/telemetry"
	"github.com/codeready-toolchain/aks-migrator/pkg/verdict"
	"github.com/codeready-toolchain/aks-migrator/pkg/workspace"
)

// fakeBlobs satisfies workspace.Blobs with an in-memory existence set, for
// the Validator's artifact-existence post-condition.
type fakeBlobs struct{ existing map[string]bool }

func (f *fakeBlobs) ListBlobs(ctx context.Context, container, folder string, recursive bool) ([]workspace.BlobInfo, error) {
	return nil, nil
}
func (f *fakeBlobs) FindBlobs(ctx context.Context, pattern, container, folder string) ([]workspace.BlobInfo, error) {
	return nil, nil
}
func (f *fakeBlobs) CheckBlobExists(ctx context.Context, name, container, folder string) (bool, error) {
	return f.existing[name], nil
}
func (f *fakeBlobs) ReadBlobContent(ctx context.Context, name, container, folder string) (string, error) {
	return "", nil
}
func (f *fakeBlobs) SaveContentToBlob(ctx context.Context, name, content, container, folder string) error {
	return nil
}

// scriptedLLM replies with a fixed content string on every call,
// regardless of which role or call site invokes it.
type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) GetChatMessageContent(ctx context.Context, h []llmsvc.Message, settings llmsvc.Settings) (llmsvc.Message, llmsvc.TokenUsage, error) {
	out := s.responses[s.calls]
	if s.calls < len(s.responses)-1 {
		s.calls++
	}
	return llmsvc.Message{Role: llmsvc.RoleAssistant, Content: out}, llmsvc.TokenUsage{TotalTokens: 1}, nil
}

func TestRunCompletesOnFirstRoundSoftCompletion(t *testing.T) {
	descriptor := phase.Descriptors[phase.Analysis]

	expertLLM := &scriptedLLM{responses: []string{"Chief Architect: I see EKS manifests, platform confirmed."}}
	architect := expert.New(phase.RoleChiefArchitect, "you are the chief architect", expertLLM, nil, nil)

	managerLLM := &scriptedLLM{responses: []string{
		"Select Chief Architect",
		`{"result": true, "reason": "analysis complete", "is_hard_terminated": false, "termination_type": "soft_completion", "blocking_issues": [], "termination_output": {"platform_detected": "EKS", "confidence_score": "90%", "files_discovered": [{"filename": "deploy.yaml"}], "analysis_file": "analysis.md"}}`,
	}}
	manager := groupchat.New(descriptor, nil, managerLLM, groupchat.PlatformState{})

	blobs := &fakeBlobs{existing: map[string]bool{"analysis.md": true}}
	validator := verdict.NewValidator(blobs, "source", "output")

	sink := telemetry.NewMemorySink()

	state := Run(context.Background(), Inputs{
		Descriptor: descriptor,
		Experts:    map[phase.Role]*expert.Expert{phase.RoleChiefArchitect: architect},
		Manager:    manager,
		Validator:  validator,
		Governor:   history.DefaultTruncationPolicy,
		Clock:      clock.NewSystem(""),
		Sink:       sink,
		ProcessID:  "proc-1",
		SystemTask: "Analyze the source manifests.",
	})

	require.Nil(t, state.FailureContext)
	require.NotNil(t, state.FinalVerdict)
	assert.Equal(t, migration.ResultSuccess, state.Result)
	assert.Equal(t, migration.TerminationSoftCompletion, state.TerminationDetails.Type)
	assert.True(t, state.Timing.Ordered())

	events := sink.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, telemetry.EventPhaseStarted, events[0].Type)
	assert.Equal(t, telemetry.EventPhaseCompleted, events[len(events)-1].Type)
}

func TestRunProducesFailureContextWhenNoExpertBoundForSelection(t *testing.T) {
	descriptor := phase.Descriptors[phase.Analysis]

	managerLLM := &scriptedLLM{responses: []string{"Select EKS Specialist"}}
	manager := groupchat.New(descriptor, nil, managerLLM, groupchat.PlatformState{})

	blobs := &fakeBlobs{}
	validator := verdict.NewValidator(blobs, "source", "output")

	state := Run(context.Background(), Inputs{
		Descriptor: descriptor,
		Experts:    map[phase.Role]*expert.Expert{}, // nobody bound, including the canonical lead
		Manager:    manager,
		Validator:  validator,
		Governor:   history.DefaultTruncationPolicy,
		Clock:      clock.NewSystem(""),
		ProcessID:  "proc-2",
		SystemTask: "Analyze the source manifests.",
	})

	require.Nil(t, state.FinalVerdict)
	require.NotNil(t, state.FailureContext)
	assert.Equal(t, migration.ResultFailed, state.Result)
}

func TestRunHitsHardTimeoutWhenManagerNeverTerminates(t *testing.T) {
	descriptor := phase.Descriptor{
		Name:          phase.Analysis,
		Roster:        []phase.Role{phase.RoleChiefArchitect},
		CanonicalLead: phase.RoleChiefArchitect,
		MaxRounds:     2,
	}

	expertLLM := &scriptedLLM{responses: []string{"still looking"}}
	architect := expert.New(phase.RoleChiefArchitect, "you are the chief architect", expertLLM, nil, nil)

	managerLLM := &scriptedLLM{responses: []string{
		"Select Chief Architect",
		`{"result": false, "reason": "still working", "is_hard_terminated": false, "termination_type": "soft_completion", "blocking_issues": [], "termination_output": null}`,
	}}
	manager := groupchat.New(descriptor, nil, managerLLM, groupchat.PlatformState{})

	blobs := &fakeBlobs{}
	validator := verdict.NewValidator(blobs, "source", "output")

	state := Run(context.Background(), Inputs{
		Descriptor: descriptor,
		Experts:    map[phase.Role]*expert.Expert{phase.RoleChiefArchitect: architect},
		Manager:    manager,
		Validator:  validator,
		Governor:   history.DefaultTruncationPolicy,
		Clock:      clock.NewSystem(""),
		ProcessID:  "proc-3",
		SystemTask: "Analyze the source manifests.",
	})

	require.NotNil(t, state.FailureContext)
	assert.Equal(t, migration.ResultFailed, state.Result)
}
