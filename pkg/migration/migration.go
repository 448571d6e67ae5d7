// Package migration holds the shared data model threaded through the
// four-phase pipeline: the process-wide context, per-phase verdicts and
// their phase-specific payloads, per-phase execution state, chat history,
// and failure records. Nothing in this package performs I/O; it is pure
// data plus the small helpers (timing invariants, payload emptiness) that
// the orchestration packages need to reason about that data.
package migration

import "time"

// ProcessContext is the evolving bundle passed into each phase. A phase may
// only read results produced by strictly earlier phases; the Pipeline
// Driver is the only writer between phases.
type ProcessContext struct {
	ProcessID          string
	UserID             string
	ContainerName      string
	SourceFileFolder   string
	WorkspaceFileFolder string
	OutputFileFolder   string

	AnalysisResult *PhaseVerdict
	DesignResult   *PhaseVerdict
	YAMLResult     *PhaseVerdict
}

// TerminationType classifies how a phase's group chat ended.
type TerminationType string

const (
	TerminationSoftCompletion TerminationType = "soft_completion"
	TerminationHardBlocked    TerminationType = "hard_blocked"
	TerminationHardError      TerminationType = "hard_error"
	TerminationHardTimeout    TerminationType = "hard_timeout"
)

// Known blocking-issue codes (spec.md §7). Not an exhaustive enum — phases
// may emit other coded reasons — but these are the ones the Analysis phase
// and the validator specifically recognize.
const (
	BlockingNoYAMLFiles           = "NO_YAML_FILES"
	BlockingNoKubernetesContent   = "NO_KUBERNETES_CONTENT"
	BlockingAllCorrupted          = "ALL_CORRUPTED"
	BlockingSecurityPolicyViolation = "SECURITY_POLICY_VIOLATION"
	BlockingRAIPolicyViolation    = "RAI_POLICY_VIOLATION"
	BlockingNotEKSGKEPlatform     = "NOT_EKS_GKE_PLATFORM"
)

// PhaseVerdict is the structured output of a completed (or hard-failed)
// phase, as emitted by that phase's Group Chat Manager.
type PhaseVerdict struct {
	Result            bool
	Reason            string
	IsHardTerminated  bool
	TerminationType   TerminationType
	BlockingIssues    []string
	TerminationOutput any // one of *AnalysisPayload, *DesignPayload, *YAMLPayload, *DocumentationPayload; nil on hard failure
}

// Severity is used by the complexity-analysis payload fields.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Platform is the detected source platform.
type Platform string

const (
	PlatformEKS  Platform = "EKS"
	PlatformGKE  Platform = "GKE"
	PlatformNone Platform = "none"
)

// DiscoveredFile describes one source file found during Analysis.
type DiscoveredFile struct {
	Filename     string `json:"filename"`
	Kind         string `json:"kind"`
	Complexity   string `json:"complexity"`
	AzureMapping string `json:"azure_mapping"`
}

// ComplexityDimension is one of the four scored dimensions of a migration.
type ComplexityDimension struct {
	Severity Severity `json:"severity"`
	Notes    string   `json:"notes"`
}

// ComplexityAnalysis scores the four standard migration dimensions.
type ComplexityAnalysis struct {
	Network  ComplexityDimension `json:"network"`
	Security ComplexityDimension `json:"security"`
	Storage  ComplexityDimension `json:"storage"`
	Compute  ComplexityDimension `json:"compute"`
}

// MigrationReadiness summarizes Analysis's go/no-go assessment.
type MigrationReadiness struct {
	OverallScore    string   `json:"overall_score"`
	Concerns        []string `json:"concerns"`
	Recommendations []string `json:"recommendations"`
}

// AnalysisPayload is the Analysis phase's termination_output.
type AnalysisPayload struct {
	PlatformDetected   Platform           `json:"platform_detected"`
	ConfidenceScore    string             `json:"confidence_score"` // percentage string, e.g. "85%"
	FilesDiscovered    []DiscoveredFile   `json:"files_discovered"`
	ComplexityAnalysis ComplexityAnalysis `json:"complexity_analysis"`
	MigrationReadiness MigrationReadiness `json:"migration_readiness"`
	ExpertInsights     []string           `json:"expert_insights"`
	AnalysisFile       string             `json:"analysis_file"`
}

// DesignOutput names one artifact the Design phase produced.
type DesignOutput struct {
	File        string `json:"file"`
	Description string `json:"description"`
}

// DesignPayload is the Design phase's termination_output.
type DesignPayload struct {
	Summary               string         `json:"summary"`
	AzureServices         []string       `json:"azure_services"`
	ArchitectureDecisions []string       `json:"architecture_decisions"`
	Outputs               []DesignOutput `json:"outputs"`
	IncompleteReason      string         `json:"incomplete_reason,omitempty"`
	MissingInformation    []string       `json:"missing_information,omitempty"`
}

// ConvertedFile describes one file the YAML phase converted.
type ConvertedFile struct {
	SourceFile        string   `json:"source_file"`
	ConvertedFile     string   `json:"converted_file"`
	ConversionStatus  string   `json:"conversion_status"`
	AccuracyRating    string   `json:"accuracy_rating"` // free-form percentage text, e.g. "95%" — see DESIGN.md Open Question 3
	Concerns          []string `json:"concerns"`
	AzureEnhancements []string `json:"azure_enhancements"`
	FileType          string   `json:"file_type"`
}

// ConversionDimension is one of the four dimensions scored by the
// multi-dimensional YAML conversion analysis.
type ConversionDimension struct {
	Complexity          string   `json:"complexity"`
	ConvertedComponents []string `json:"converted_components"`
	Concerns            []string `json:"concerns"`
	SuccessRate         string   `json:"success_rate"`
}

// MultiDimensionalAnalysis holds the four scored conversion dimensions.
type MultiDimensionalAnalysis struct {
	Network  ConversionDimension `json:"network"`
	Security ConversionDimension `json:"security"`
	Storage  ConversionDimension `json:"storage"`
	Compute  ConversionDimension `json:"compute"`
}

// YAMLPayload is the YAML Conversion phase's termination_output.
type YAMLPayload struct {
	ConvertedFiles           []ConvertedFile          `json:"converted_files"`
	MultiDimensionalAnalysis MultiDimensionalAnalysis `json:"multi_dimensional_analysis"`
	OverallConversionMetrics map[string]string        `json:"overall_conversion_metrics"`
	ConversionQuality        string                   `json:"conversion_quality"`
	ExpertInsights           []string                 `json:"expert_insights"`
	ConversionReportFile     string                   `json:"conversion_report_file"`
	IncompleteReason         string                   `json:"incomplete_reason,omitempty"`
	MissingInformation       []string                 `json:"missing_information,omitempty"`
}

// GeneratedFiles categorizes the artifacts produced across all phases.
type GeneratedFiles struct {
	Analysis      []string `json:"analysis"`
	Design        []string `json:"design"`
	YAML          []string `json:"yaml"`
	Documentation []string `json:"documentation"`
}

// ExpertCollaboration summarizes how the Documentation phase's roster
// converged on the final report.
type ExpertCollaboration struct {
	ParticipatingExperts []string `json:"participating_experts"`
	ConsensusAchieved    bool     `json:"consensus_achieved"`
	ExpertInsights       []string `json:"expert_insights"`
	QualityValidation    string   `json:"quality_validation"`
}

// DocumentationPayload is the Documentation phase's termination_output.
type DocumentationPayload struct {
	AggregatedResults string         `json:"aggregated_results"`
	GeneratedFiles    GeneratedFiles `json:"generated_files"`
	ExpertCollaboration ExpertCollaboration `json:"expert_collaboration"`
	ProcessMetrics      map[string]string   `json:"process_metrics"`
	IncompleteReason    string              `json:"incomplete_reason,omitempty"`
	MissingInformation  []string            `json:"missing_information,omitempty"`
}

// Result is the tri-state outcome of a PhaseState.
type Result string

const (
	ResultNotStarted Result = "not_started"
	ResultSuccess    Result = "success"
	ResultFailed     Result = "failed"
)

// PhaseTiming carries the four timestamps a PhaseState tracks and the
// durations derived from them. All four must obey
// execution_start <= orchestration_start <= orchestration_end <= execution_end
// once set (see Testable Property 2).
type PhaseTiming struct {
	ExecutionStart     time.Time
	OrchestrationStart time.Time
	OrchestrationEnd   time.Time
	ExecutionEnd       time.Time
}

// SetupDuration is the time spent before orchestration began.
func (t PhaseTiming) SetupDuration() time.Duration {
	if t.OrchestrationStart.IsZero() || t.ExecutionStart.IsZero() {
		return 0
	}
	return t.OrchestrationStart.Sub(t.ExecutionStart)
}

// OrchestrationDuration is the time spent in the round loop.
func (t PhaseTiming) OrchestrationDuration() time.Duration {
	if t.OrchestrationEnd.IsZero() || t.OrchestrationStart.IsZero() {
		return 0
	}
	return t.OrchestrationEnd.Sub(t.OrchestrationStart)
}

// TotalExecutionDuration is the full phase wall-clock time.
func (t PhaseTiming) TotalExecutionDuration() time.Duration {
	if t.ExecutionEnd.IsZero() || t.ExecutionStart.IsZero() {
		return 0
	}
	return t.ExecutionEnd.Sub(t.ExecutionStart)
}

// Ordered reports whether the four timestamps obey the required
// non-decreasing order, treating unset (zero) timestamps as not-yet-reached
// and skipping them rather than failing the check.
func (t PhaseTiming) Ordered() bool {
	stamps := make([]time.Time, 0, 4)
	for _, s := range []time.Time{t.ExecutionStart, t.OrchestrationStart, t.OrchestrationEnd, t.ExecutionEnd} {
		if !s.IsZero() {
			stamps = append(stamps, s)
		}
	}
	for i := 1; i < len(stamps); i++ {
		if stamps[i].Before(stamps[i-1]) {
			return false
		}
	}
	return true
}

// TerminationDetails carries the machine-readable reason a phase stopped,
// independent of whether it succeeded.
type TerminationDetails struct {
	Type           TerminationType
	BlockingIssues []string
}

// PhaseState is the transient per-phase record produced by the Phase
// Runner and consumed by the Pipeline Driver and the telemetry projection.
type PhaseState struct {
	Name    string
	Version string

	Result       Result
	Reason       string
	FinalVerdict *PhaseVerdict

	Timing PhaseTiming

	RequiresImmediateRetry bool
	TerminationDetails     TerminationDetails

	FailureContext *FailureContext
}

// ChatRole is the role attached to one ChatHistory message.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleTool      ChatRole = "tool"
)

// ToolCallMetadata records which tool a message invoked and with what
// arguments/result, so the Chat History Governor can identify and
// preserve tool-call evidence pairs atomically.
type ToolCallMetadata struct {
	CallID    string
	ToolName  string
	Arguments string
	IsResult  bool
}

// ChatMessage is one entry in a phase's ChatHistory.
type ChatMessage struct {
	Role             ChatRole
	AuthorName       string
	Content          string
	ToolCallMetadata *ToolCallMetadata
}

// ChatHistory is the ordered sequence of messages exchanged during one
// phase's group chat. It is private to a single phase and never shared
// across phases or persisted beyond telemetry projection.
type ChatHistory struct {
	Messages []ChatMessage
}

// Append adds a message to the end of the history, preserving order.
func (h *ChatHistory) Append(m ChatMessage) {
	h.Messages = append(h.Messages, m)
}

// SystemFailureContext is the machine-diagnostic core of a FailureContext.
type SystemFailureContext struct {
	ErrorType    string
	ErrorMessage string
	StackTrace   string
	StepName     string
	ProcessID    string
	StepPhase    string
	CapturedAt   time.Time
}

// FailureContext is the uniform record built on every failure path.
type FailureContext struct {
	Reason               string
	ExecutionTime        time.Duration
	FilesAttempted       []string
	SystemFailureContext SystemFailureContext
	ContextData          map[string]string // redacted snapshot of inputs
}

// PipelineStatus is the coarse-grained status reported in a PipelineResult.
type PipelineStatus string

const (
	StatusInitializing PipelineStatus = "initializing"
	StatusRunning      PipelineStatus = "running"
	StatusCompleted    PipelineStatus = "completed"
	StatusFailed       PipelineStatus = "failed"
	StatusTimeout      PipelineStatus = "timeout"
)

// PipelineResult is the Pipeline Driver's public return value.
type PipelineResult struct {
	Success                bool
	Status                 PipelineStatus
	ExecutionTime          time.Duration
	ErrorMessage           string
	ErrorClassification    string
	FinalState             map[string]*PhaseState
	RequiresImmediateRetry bool
}

// MigrationRequest is the single entry-point argument (spec.md §6).
type MigrationRequest struct {
	ProcessID           string
	SourceFileFolder    string
	WorkspaceFileFolder string
	OutputFileFolder    string
	ContainerName       string
}
