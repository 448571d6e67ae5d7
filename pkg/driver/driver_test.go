package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aks-migrator/pkg/expert"
	"github.com/codeready-toolchain/aks-migrator/pkg/groupchat"
	"github.com/codeready-toolchain/aks-migrator/pkg/history"
	"github.com/codeready-toolchain/aks-migrator/pkg/llmsvc"
	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
	"github.com/codeready-toolchain/aks-migrator/pkg/runner"
	"github.com/codeready-toolchain/aks-migrator/pkg/verdict"
	"github.com/codeready-toolchain/aks-migrator/pkg/workspace"
)

type alwaysExistsBlobs struct{}

func (alwaysExistsBlobs) ListBlobs(ctx context.Context, container, folder string, recursive bool) ([]workspace.BlobInfo, error) {
	return nil, nil
}
func (alwaysExistsBlobs) FindBlobs(ctx context.Context, pattern, container, folder string) ([]workspace.BlobInfo, error) {
	return nil, nil
}
func (alwaysExistsBlobs) CheckBlobExists(ctx context.Context, name, container, folder string) (bool, error) {
	return true, nil
}
func (alwaysExistsBlobs) ReadBlobContent(ctx context.Context, name, container, folder string) (string, error) {
	return "", nil
}
func (alwaysExistsBlobs) SaveContentToBlob(ctx context.Context, name, content, container, folder string) error {
	return nil
}

// canned replies a fixed verdict JSON regardless of the phase; enough to
// drive every phase to an immediate soft_completion for pipeline-level
// tests that care about sequencing, not phase content.
type cannedLLM struct {
	selection string
	verdict   string
	calls     int
}

func (c *cannedLLM) GetChatMessageContent(ctx context.Context, h []llmsvc.Message, settings llmsvc.Settings) (llmsvc.Message, llmsvc.TokenUsage, error) {
	c.calls++
	if settings.ResponseSchema != "" {
		return llmsvc.Message{Role: llmsvc.RoleAssistant, Content: c.verdict}, llmsvc.TokenUsage{}, nil
	}
	return llmsvc.Message{Role: llmsvc.RoleAssistant, Content: c.selection}, llmsvc.TokenUsage{}, nil
}

func verdictJSONFor(output string) string {
	return `{"result": true, "reason": "done", "is_hard_terminated": false, "termination_type": "soft_completion", "blocking_issues": [], "termination_output": ` + output + `}`
}

func buildPassingPhase(descriptor phase.Descriptor) runner.Inputs {
	var output string
	switch descriptor.Name {
	case phase.Analysis:
		output = `{"platform_detected": "EKS", "confidence_score": "90%", "files_discovered": [{"filename": "deploy.yaml"}], "analysis_file": "analysis.md"}`
	case phase.Design:
		output = `{"summary": "use AKS", "azure_services": ["AKS"], "architecture_decisions": ["use managed identity"], "outputs": [{"file": "design.md", "description": "design doc"}]}`
	case phase.YAML:
		output = `{"converted_files": [{"source_file": "deploy.yaml", "converted_file": "deploy.aks.yaml", "conversion_status": "success", "accuracy_rating": "95%"}], "conversion_report_file": "conversion.md"}`
	case phase.Documentation:
		output = `{"aggregated_results": "migration complete", "generated_files": {"documentation": ["final-report.md"]}, "expert_collaboration": {"participating_experts": ["Chief Architect"], "consensus_achieved": true, "quality_validation": "passed"}, "process_metrics": {}}`
	}

	llm := &cannedLLM{selection: "Select " + string(descriptor.CanonicalLead), verdict: verdictJSONFor(output)}
	e := expert.New(descriptor.CanonicalLead, "you are the lead", llm, nil, nil)
	manager := groupchat.New(descriptor, nil, llm, groupchat.PlatformState{})

	return runner.Inputs{
		Experts:    map[phase.Role]*expert.Expert{descriptor.CanonicalLead: e},
		Manager:    manager,
		Validator:  verdict.NewValidator(alwaysExistsBlobs{}, "source", "output"),
		Governor:   history.DefaultTruncationPolicy,
		SystemTask: "do the phase's task",
	}
}

func TestExecuteRunsAllFourPhasesInOrderAndCompletes(t *testing.T) {
	d := New(buildPassingPhase, time.Minute, nil, nil)

	result := d.Execute(context.Background(), "user-1", migration.MigrationRequest{
		ProcessID: "proc-1", ContainerName: "source-container",
	})

	require.True(t, result.Success)
	assert.Equal(t, migration.StatusCompleted, result.Status)
	require.Len(t, result.FinalState, 4)
	for _, name := range phase.Ordered {
		state, ok := result.FinalState[string(name)]
		require.True(t, ok, "missing final state for phase %s", name)
		assert.Equal(t, migration.ResultSuccess, state.Result)
	}
}

func TestExecuteStopsAtFirstFailingPhase(t *testing.T) {
	build := func(ctx context.Context, descriptor phase.Descriptor, processCtx *migration.ProcessContext) runner.Inputs {
		if descriptor.Name == phase.Design {
			// Manager never produces a valid selection or verdict: every
			// round's selection falls back to canonical lead, but no
			// expert is bound, so the runner fails fast.
			llm := &cannedLLM{selection: "Select Nonexistent Role", verdict: "{}"}
			manager := groupchat.New(descriptor, nil, llm, groupchat.PlatformState{})
			return runner.Inputs{
				Experts:    map[phase.Role]*expert.Expert{},
				Manager:    manager,
				Validator:  verdict.NewValidator(alwaysExistsBlobs{}, "source", "output"),
				Governor:   history.DefaultTruncationPolicy,
				SystemTask: "do the phase's task",
			}
		}
		return buildPassingPhase(descriptor)
	}

	d := New(build, time.Minute, nil, nil)
	result := d.Execute(context.Background(), "user-1", migration.MigrationRequest{ProcessID: "proc-2"})

	require.False(t, result.Success)
	assert.Equal(t, migration.StatusFailed, result.Status)
	assert.Equal(t, migration.ResultSuccess, result.FinalState["analysis"].Result)
	assert.Equal(t, migration.ResultFailed, result.FinalState["design"].Result)
	_, yamlRan := result.FinalState["yaml"]
	assert.False(t, yamlRan, "yaml phase must not run after design fails")
}

func TestExecuteMergesPhaseVerdictsIntoLaterProcessContext(t *testing.T) {
	var designSawAnalysisResult bool

	build := func(ctx context.Context, descriptor phase.Descriptor, processCtx *migration.ProcessContext) runner.Inputs {
		if descriptor.Name == phase.Design {
			designSawAnalysisResult = processCtx.AnalysisResult != nil
		}
		return buildPassingPhase(descriptor)
	}

	d := New(build, time.Minute, nil, nil)
	result := d.Execute(context.Background(), "user-1", migration.MigrationRequest{ProcessID: "proc-3"})

	require.True(t, result.Success)
	assert.True(t, designSawAnalysisResult, "design phase builder should see Analysis's merged verdict")
}
