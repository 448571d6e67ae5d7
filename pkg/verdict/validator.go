// Package verdict implements the Termination Schema Validator (spec.md
// §4.7): once a phase's Group Chat Manager emits its JSON verdict, this
// package validates required-field population, the placeholder-sentinel
// and anti-hallucination checks, the hard_blocked special case, and the
// file-existence post-condition against the blob workspace.
//
// Grounded on the teacher's pkg/config validator.go use of
// github.com/go-playground/validator/v10 for struct-tag validation,
// generalized here to phase-specific payload rules that a single struct
// tag can't express (non-empty-array-with-reason, evidence scanning,
// artifact existence).
package verdict

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
	"github.com/codeready-toolchain/aks-migrator/pkg/workspace"
)

// Error is returned when a verdict fails validation; it names which
// fields were deficient so the Phase Runner can build a diagnostic
// FailureContext (generalizes the teacher's single-field ValidationError).
type Error struct {
	Phase  phase.Name
	Fields []string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("verdict validation failed for phase %s (fields: %s): %s", e.Phase, strings.Join(e.Fields, ", "), e.Detail)
}

// PlaceholderSentinels are values that look populated but are not
// meaningful (spec.md §4.7).
var PlaceholderSentinels = []string{"tbd", "todo", "template", "example", "n/a", "unknown"}

// EvidencePatterns indicate the agent invoked tools before claiming
// incompleteness.
var EvidencePatterns = []string{
	"check_blob_exists", "list_blobs_in_container", "read_blob_content",
	"returned:", "got error:", "file not found",
}

// HallucinationPatterns are generic excuses offered without verification.
var HallucinationPatterns = []string{
	"limited analysis data", "require deeper investigation", "insufficient details",
}

var accuracyPattern = regexp.MustCompile(`^\s*\d{1,3}\s*%\s*$`)

func isPlaceholder(s string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	for _, sentinel := range PlaceholderSentinels {
		if trimmed == sentinel {
			return true
		}
	}
	return false
}

func containsAny(text string, patterns []string) bool {
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// HallucinationScan reports whether text (an incomplete_reason or
// missing_information entry) shows hallucination patterns without
// corroborating evidence patterns — the condition that triggers a
// telemetry warning without failing the verdict (spec.md §4.7, Testable
// Properties anti-hallucination property).
func HallucinationScan(text string) (hallucinated, evidenced bool) {
	return containsAny(text, HallucinationPatterns), containsAny(text, EvidencePatterns)
}

// Validator validates phase verdicts against their schema and the blob
// workspace's artifact state.
type Validator struct {
	Blobs         workspace.Blobs
	Container     string
	OutputFolder  string
}

// NewValidator builds a Validator that checks artifact existence against
// the given container/output folder.
func NewValidator(blobs workspace.Blobs, container, outputFolder string) *Validator {
	return &Validator{Blobs: blobs, Container: container, OutputFolder: outputFolder}
}

// Validate enforces spec.md §4.7 in full: the hard_blocked special case,
// required-field population for the success path, and (when schema rules
// ask for it) the artifact file-existence post-condition. It returns any
// hallucination-scan warnings alongside a possible validation Error.
func (v *Validator) Validate(ctx context.Context, ph phase.Name, verdict *migration.PhaseVerdict) (warnings []string, err error) {
	if verdict == nil {
		return nil, &Error{Phase: ph, Fields: []string{"verdict"}, Detail: "verdict is nil"}
	}

	if verdict.IsHardTerminated {
		return v.validateHardBlocked(ph, verdict)
	}

	if !verdict.Result {
		// Soft "continue" verdicts (mid-round) carry no termination_output
		// and are not yet subject to the success-path schema checks.
		return nil, nil
	}

	return v.validateSuccess(ctx, ph, verdict)
}

func (v *Validator) validateHardBlocked(ph phase.Name, verdict *migration.PhaseVerdict) ([]string, error) {
	var fields []string
	if verdict.TerminationOutput != nil {
		fields = append(fields, "termination_output")
	}
	if len(verdict.BlockingIssues) == 0 {
		fields = append(fields, "blocking_issues")
	}
	if len(fields) > 0 {
		return nil, &Error{Phase: ph, Fields: fields, Detail: "hard-terminated verdict must have null termination_output and non-empty blocking_issues"}
	}
	return nil, nil
}

func (v *Validator) validateSuccess(ctx context.Context, ph phase.Name, verdict *migration.PhaseVerdict) ([]string, error) {
	if isPlaceholder(verdict.Reason) {
		return nil, &Error{Phase: ph, Fields: []string{"reason"}, Detail: "reason is a placeholder sentinel"}
	}

	var warnings []string
	for _, text := range []string{incompleteReasonOf(verdict), strings.Join(missingInformationOf(verdict), "; ")} {
		if text == "" {
			continue
		}
		hallucinated, evidenced := HallucinationScan(text)
		if hallucinated && !evidenced {
			warnings = append(warnings, fmt.Sprintf("phase %s: incomplete_reason shows hallucination patterns without evidence: %q", ph, text))
		}
	}

	artifacts, fields, err := v.validatePayload(ph, verdict.TerminationOutput)
	if err != nil {
		return warnings, err
	}

	if len(fields) > 0 {
		return warnings, &Error{Phase: ph, Fields: fields, Detail: "required field is missing, empty, or a placeholder"}
	}

	for _, name := range artifacts {
		exists, existsErr := v.Blobs.CheckBlobExists(ctx, name, v.Container, v.OutputFolder)
		if existsErr != nil {
			return warnings, fmt.Errorf("verdict validation: checking artifact %q: %w", name, existsErr)
		}
		if !exists {
			return warnings, &Error{Phase: ph, Fields: []string{"artifacts"}, Detail: fmt.Sprintf("promised artifact %q does not exist in output folder", name)}
		}
	}

	return warnings, nil
}

func incompleteReasonOf(v *migration.PhaseVerdict) string {
	switch p := v.TerminationOutput.(type) {
	case *migration.DesignPayload:
		return p.IncompleteReason
	case *migration.YAMLPayload:
		return p.IncompleteReason
	case *migration.DocumentationPayload:
		return p.IncompleteReason
	default:
		return ""
	}
}

func missingInformationOf(v *migration.PhaseVerdict) []string {
	switch p := v.TerminationOutput.(type) {
	case *migration.DesignPayload:
		return p.MissingInformation
	case *migration.YAMLPayload:
		return p.MissingInformation
	case *migration.DocumentationPayload:
		return p.MissingInformation
	default:
		return nil
	}
}

// validatePayload enforces the closed-set-of-fields rules per phase
// (spec.md §3/§4.7) and returns the artifact names that must be checked
// for existence.
func (v *Validator) validatePayload(ph phase.Name, payload any) (artifacts []string, missingFields []string, err error) {
	switch ph {
	case phase.Analysis:
		p, ok := payload.(*migration.AnalysisPayload)
		if !ok || p == nil {
			return nil, nil, &Error{Phase: ph, Fields: []string{"termination_output"}, Detail: "missing AnalysisPayload"}
		}
		if p.PlatformDetected == "" || isPlaceholder(string(p.PlatformDetected)) {
			missingFields = append(missingFields, "platform_detected")
		}
		if !accuracyPattern.MatchString(p.ConfidenceScore) {
			missingFields = append(missingFields, "confidence_score")
		}
		if len(p.FilesDiscovered) == 0 {
			missingFields = append(missingFields, "files_discovered")
		}
		if p.AnalysisFile != "" {
			artifacts = append(artifacts, p.AnalysisFile)
		}
		return artifacts, missingFields, nil

	case phase.Design:
		p, ok := payload.(*migration.DesignPayload)
		if !ok || p == nil {
			return nil, nil, &Error{Phase: ph, Fields: []string{"termination_output"}, Detail: "missing DesignPayload"}
		}
		if len(p.AzureServices) == 0 && p.IncompleteReason == "" {
			missingFields = append(missingFields, "azure_services")
		}
		if len(p.ArchitectureDecisions) == 0 && p.IncompleteReason == "" {
			missingFields = append(missingFields, "architecture_decisions")
		}
		for _, o := range p.Outputs {
			artifacts = append(artifacts, o.File)
		}
		return artifacts, missingFields, nil

	case phase.YAML:
		p, ok := payload.(*migration.YAMLPayload)
		if !ok || p == nil {
			return nil, nil, &Error{Phase: ph, Fields: []string{"termination_output"}, Detail: "missing YAMLPayload"}
		}
		if len(p.ConvertedFiles) == 0 && p.IncompleteReason == "" {
			missingFields = append(missingFields, "converted_files")
		}
		for _, f := range p.ConvertedFiles {
			if !accuracyPattern.MatchString(f.AccuracyRating) {
				missingFields = append(missingFields, "converted_files[].accuracy_rating")
			}
			artifacts = append(artifacts, f.ConvertedFile)
		}
		if p.ConversionReportFile != "" {
			artifacts = append(artifacts, p.ConversionReportFile)
		}
		return artifacts, missingFields, nil

	case phase.Documentation:
		p, ok := payload.(*migration.DocumentationPayload)
		if !ok || p == nil {
			return nil, nil, &Error{Phase: ph, Fields: []string{"termination_output"}, Detail: "missing DocumentationPayload"}
		}
		if p.AggregatedResults == "" && p.IncompleteReason == "" {
			missingFields = append(missingFields, "aggregated_results")
		}
		for _, group := range [][]string{p.GeneratedFiles.Analysis, p.GeneratedFiles.Design, p.GeneratedFiles.YAML, p.GeneratedFiles.Documentation} {
			artifacts = append(artifacts, group...)
		}
		return artifacts, missingFields, nil

	default:
		return nil, nil, &Error{Phase: ph, Fields: []string{"phase"}, Detail: "unknown phase"}
	}
}
