// Package driver implements the Pipeline Driver (spec.md §4.1): drives
// the four-phase sequence [Analysis, Design, YAML, Documentation] exactly
// once per request, under a single pipeline-wide wall-clock timeout,
// merging each phase's verdict into the evolving ProcessContext and
// stopping fail-fast on the first phase failure.
//
// Grounded on the teacher's pkg/queue.RealSessionExecutor.Execute chain
// loop (sequential stages, fail-fast, terminal ExecutionResult on any
// stage failure), narrowed from an N-stage agent chain to the fixed
// four-phase sequence this spec defines.
package driver

import (
	"context"
	"time"

	"github.com/codeready-toolchain/aks-migrator/pkg/clock"
	"github.com/codeready-toolchain/aks-migrator/pkg/failure"
	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
	"github.com/codeready-toolchain/aks-migrator/pkg/runner"
	"github.com/codeready-toolchain/aks-migrator/pkg/telemetry"
)

// DefaultTimeout is the pipeline-wide wall-clock budget (spec.md §4.1,
// "configurable, default 25 minutes").
const DefaultTimeout = 25 * time.Minute

// PhaseBuilder constructs the Phase Runner inputs for one phase, given the
// evolving ProcessContext. Wiring which LLM client, tools, and roster
// prompts each phase's experts use is pipeline configuration (pkg/config),
// not the driver's concern.
type PhaseBuilder func(ctx context.Context, descriptor phase.Descriptor, processCtx *migration.ProcessContext) runner.Inputs

// Driver runs the fixed phase sequence.
type Driver struct {
	Build   PhaseBuilder
	Timeout time.Duration
	Clock   clock.Clock
	Sink    telemetry.Sink
}

// New builds a Driver. timeout <= 0 resolves to DefaultTimeout.
func New(build PhaseBuilder, timeout time.Duration, c clock.Clock, sink telemetry.Sink) *Driver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if c == nil {
		c = clock.NewSystem("")
	}
	return &Driver{Build: build, Timeout: timeout, Clock: c, Sink: sink}
}

// Execute drives the pipeline to completion or first failure (spec.md
// §4.1). It is idempotent per process_id: there is no cross-invocation
// checkpointing, so reinvoking with the same process_id is a fresh run.
func (d *Driver) Execute(ctx context.Context, userID string, req migration.MigrationRequest) *migration.PipelineResult {
	start := d.Clock.Now()

	runCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	processCtx := &migration.ProcessContext{
		ProcessID:           req.ProcessID,
		UserID:              userID,
		ContainerName:       req.ContainerName,
		SourceFileFolder:    req.SourceFileFolder,
		WorkspaceFileFolder: req.WorkspaceFileFolder,
		OutputFileFolder:    req.OutputFileFolder,
	}

	finalState := make(map[string]*migration.PhaseState, len(phase.Ordered))

	for _, name := range phase.Ordered {
		descriptor := phase.Descriptors[name]
		inputs := d.Build(runCtx, descriptor, processCtx)
		inputs.Descriptor = descriptor
		if inputs.ProcessID == "" {
			inputs.ProcessID = req.ProcessID
		}
		if inputs.Clock == nil {
			inputs.Clock = d.Clock
		}
		if inputs.Sink == nil {
			inputs.Sink = d.Sink
		}

		state := runner.Run(runCtx, inputs)
		finalState[string(name)] = state

		if runCtx.Err() != nil {
			return d.timeoutResult(start, finalState)
		}

		if state.Result != migration.ResultSuccess {
			return d.failureResult(start, state, finalState)
		}

		mergeVerdict(processCtx, name, state.FinalVerdict)
	}

	return &migration.PipelineResult{
		Success:       true,
		Status:        migration.StatusCompleted,
		ExecutionTime: d.Clock.Now().Sub(start),
		FinalState:    finalState,
	}
}

// mergeVerdict writes a succeeded phase's verdict into the ProcessContext
// field that strictly later phases are permitted to read (spec.md §3
// invariant). Documentation has no successor phase, so it merges nothing.
func mergeVerdict(pc *migration.ProcessContext, name phase.Name, v *migration.PhaseVerdict) {
	switch name {
	case phase.Analysis:
		pc.AnalysisResult = v
	case phase.Design:
		pc.DesignResult = v
	case phase.YAML:
		pc.YAMLResult = v
	}
}

func (d *Driver) timeoutResult(start time.Time, finalState map[string]*migration.PhaseState) *migration.PipelineResult {
	return &migration.PipelineResult{
		Success:             false,
		Status:              migration.StatusTimeout,
		ExecutionTime:       d.Clock.Now().Sub(start),
		ErrorMessage:        "pipeline wall-clock timeout exceeded",
		ErrorClassification: string(failure.Critical),
		FinalState:          finalState,
	}
}

func (d *Driver) failureResult(start time.Time, failed *migration.PhaseState, finalState map[string]*migration.PhaseState) *migration.PipelineResult {
	classification := string(failure.Critical)
	if failed.RequiresImmediateRetry {
		classification = string(failure.Retryable)
	}
	return &migration.PipelineResult{
		Success:                false,
		Status:                 migration.StatusFailed,
		ExecutionTime:          d.Clock.Now().Sub(start),
		ErrorMessage:           failed.Reason,
		ErrorClassification:    classification,
		FinalState:             finalState,
		RequiresImmediateRetry: failed.RequiresImmediateRetry,
	}
}
