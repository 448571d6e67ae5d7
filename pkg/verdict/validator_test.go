package verdict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
	"github.com/codeready-toolchain/aks-migrator/pkg/workspace"
)

func newTestValidator(t *testing.T) (*Validator, workspace.Blobs) {
	fs := workspace.NewLocalFS(t.TempDir())
	return NewValidator(fs, "c1", "output"), fs
}

func TestValidateHardBlockedRequiresBlockingIssuesAndNullOutput(t *testing.T) {
	v, _ := newTestValidator(t)
	verdict := &migration.PhaseVerdict{
		Result:           false,
		IsHardTerminated: true,
		BlockingIssues:   []string{migration.BlockingNoYAMLFiles},
		TerminationOutput: nil,
	}

	_, err := v.Validate(context.Background(), phase.Analysis, verdict)
	assert.NoError(t, err)
}

func TestValidateHardBlockedRejectsNonNullOutput(t *testing.T) {
	v, _ := newTestValidator(t)
	verdict := &migration.PhaseVerdict{
		IsHardTerminated:   true,
		BlockingIssues:     []string{migration.BlockingNoYAMLFiles},
		TerminationOutput:  &migration.AnalysisPayload{},
	}

	_, err := v.Validate(context.Background(), phase.Analysis, verdict)
	require.Error(t, err)
}

func TestValidateHardBlockedRejectsEmptyBlockingIssues(t *testing.T) {
	v, _ := newTestValidator(t)
	verdict := &migration.PhaseVerdict{IsHardTerminated: true}

	_, err := v.Validate(context.Background(), phase.Analysis, verdict)
	require.Error(t, err)
}

func TestValidateSuccessChecksArtifactExistence(t *testing.T) {
	v, _ := newTestValidator(t)
	verdict := &migration.PhaseVerdict{
		Result: true,
		Reason: "analysis complete",
		TerminationOutput: &migration.AnalysisPayload{
			PlatformDetected: migration.PlatformEKS,
			ConfidenceScore:  "90%",
			FilesDiscovered:  []migration.DiscoveredFile{{Filename: "deployment.yaml"}},
			AnalysisFile:     "analysis_result.md",
		},
	}

	_, err := v.Validate(context.Background(), phase.Analysis, verdict)
	require.Error(t, err) // artifact not yet written

	require.NoError(t, v.Blobs.SaveContentToBlob(context.Background(), "analysis_result.md", "# Analysis", "c1", "output"))

	_, err = v.Validate(context.Background(), phase.Analysis, verdict)
	assert.NoError(t, err)
}

func TestValidateRejectsPlaceholderReason(t *testing.T) {
	v, _ := newTestValidator(t)
	verdict := &migration.PhaseVerdict{
		Result: true,
		Reason: "TBD",
		TerminationOutput: &migration.AnalysisPayload{
			PlatformDetected: migration.PlatformEKS,
			ConfidenceScore:  "90%",
			FilesDiscovered:  []migration.DiscoveredFile{{Filename: "deployment.yaml"}},
		},
	}

	_, err := v.Validate(context.Background(), phase.Analysis, verdict)
	require.Error(t, err)
}

func TestValidateRejectsEmptyRequiredArrayWithoutIncompleteReason(t *testing.T) {
	v, _ := newTestValidator(t)
	verdict := &migration.PhaseVerdict{
		Result: true,
		Reason: "design phase concluded",
		TerminationOutput: &migration.DesignPayload{
			Summary: "summary",
		},
	}

	_, err := v.Validate(context.Background(), phase.Design, verdict)
	require.Error(t, err)
}

func TestValidateAllowsEmptyArrayWithIncompleteReason(t *testing.T) {
	v, _ := newTestValidator(t)
	verdict := &migration.PhaseVerdict{
		Result: true,
		Reason: "design phase concluded with gaps",
		TerminationOutput: &migration.DesignPayload{
			Summary:          "summary",
			IncompleteReason: "could not verify VNet peering, check_blob_exists returned: false",
		},
	}

	_, err := v.Validate(context.Background(), phase.Design, verdict)
	require.NoError(t, err)
}

func TestValidateFlagsHallucinationWithoutEvidence(t *testing.T) {
	v, _ := newTestValidator(t)
	verdict := &migration.PhaseVerdict{
		Result: true,
		Reason: "design phase concluded with gaps",
		TerminationOutput: &migration.DesignPayload{
			Summary:          "summary",
			IncompleteReason: "limited analysis data available, require deeper investigation",
		},
	}

	warnings, err := v.Validate(context.Background(), phase.Design, verdict)
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
}

func TestValidateYAMLRejectsMalformedAccuracyRating(t *testing.T) {
	v, _ := newTestValidator(t)
	require.NoError(t, v.Blobs.SaveContentToBlob(context.Background(), "az-deployment.yaml", "x", "c1", "output"))
	verdict := &migration.PhaseVerdict{
		Result: true,
		Reason: "yaml conversion complete",
		TerminationOutput: &migration.YAMLPayload{
			ConvertedFiles: []migration.ConvertedFile{
				{SourceFile: "deployment.yaml", ConvertedFile: "az-deployment.yaml", AccuracyRating: "very good"},
			},
		},
	}

	_, err := v.Validate(context.Background(), phase.YAML, verdict)
	require.Error(t, err)
}

func TestHallucinationScan(t *testing.T) {
	hallucinated, evidenced := HallucinationScan("limited analysis data, no tools were run")
	assert.True(t, hallucinated)
	assert.False(t, evidenced)

	hallucinated, evidenced = HallucinationScan("check_blob_exists returned: false for az-service.yaml")
	assert.False(t, hallucinated)
	assert.True(t, evidenced)
}
