// Package runner implements the Phase Runner (spec.md §4.2): it drives
// one phase's group chat — speaker selection, utterance production,
// history governance, termination checks, round-budget enforcement — to
// a validated PhaseVerdict or a rich FailureContext, never both.
//
// Grounded on the teacher's pkg/queue.RealSessionExecutor.executeStage
// (sequential loop, fail-fast, recovers every error into a terminal
// result rather than propagating) and pkg/agent.Agent.Execute's
// ExecutionResult contract, narrowed from a multi-stage chain down to one
// phase's group-chat round loop.
package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/aks-migrator/pkg/clock"
	"github.com/codeready-toolchain/aks-migrator/pkg/expert"
	"github.com/codeready-toolchain/aks-migrator/pkg/failure"
	"github.com/codeready-toolchain/aks-migrator/pkg/groupchat"
	"github.com/codeready-toolchain/aks-migrator/pkg/history"
	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
	"github.com/codeready-toolchain/aks-migrator/pkg/telemetry"
	"github.com/codeready-toolchain/aks-migrator/pkg/verdict"
)

// Inputs bundles everything one phase run needs. Experts and Manager are
// constructed by the caller (pkg/driver) since their wiring — which LLM
// client, which tools — is pipeline configuration, not the runner's
// concern.
type Inputs struct {
	Descriptor    phase.Descriptor
	Experts       map[phase.Role]*expert.Expert
	Manager       *groupchat.Manager
	Validator     *verdict.Validator
	Governor      history.TruncationPolicy
	Clock         clock.Clock
	Sink          telemetry.Sink
	Metrics       *telemetry.Metrics
	SystemTask    string // the rendered task prompt seeded as the first ChatHistory message
	ProcessID     string
}

// Run executes in.Descriptor's phase to completion, returning a PhaseState
// that always satisfies the invariant: exactly one of
// {FinalVerdict populated, FailureContext populated}.
func Run(ctx context.Context, in Inputs) *migration.PhaseState {
	now := in.Clock
	if now == nil {
		now = clock.NewSystem("")
	}

	state := &migration.PhaseState{
		Name:    string(in.Descriptor.Name),
		Result:  migration.ResultNotStarted,
	}
	state.Timing.ExecutionStart = now.Now()

	recordSink(in, telemetry.EventPhaseStarted, "", "phase started")

	chatHistory := &migration.ChatHistory{}
	chatHistory.Append(migration.ChatMessage{
		Role:       migration.RoleSystem,
		AuthorName: "pipeline-driver",
		Content:    in.SystemTask,
	})

	state.Timing.OrchestrationStart = now.Now()

	verdictResult, runErr := runRounds(ctx, in, chatHistory, state)

	state.Timing.OrchestrationEnd = now.Now()
	state.Timing.ExecutionEnd = now.Now()

	if runErr != nil {
		fc := failure.Collect(runErr, string(in.Descriptor.Name), in.ProcessID, string(in.Descriptor.Name), nil, state.Timing.ExecutionStart, nil)
		state.Result = migration.ResultFailed
		state.Reason = runErr.Error()
		state.FailureContext = failure.CreateStepFailureState(runErr.Error(), state.Timing.TotalExecutionDuration(), nil, fc, nil, nil)
		state.RequiresImmediateRetry = failure.Classify(runErr) == failure.Retryable
		recordSink(in, telemetry.EventFailureRecorded, "", runErr.Error())
		recordTermination(in, migration.TerminationHardError)
		return state
	}

	summary, summaryErr := in.Manager.FilterResults(ctx, chatHistory)
	if summaryErr != nil {
		summary = verdictResult.Reason
	}

	warnings, valErr := in.Validator.Validate(ctx, in.Descriptor.Name, verdictResult)
	for range warnings {
		recordSink(in, telemetry.EventHallucinationWarning, "", "validator flagged a hallucination-pattern warning")
		if in.Metrics != nil {
			in.Metrics.HallucinationWarnings.Inc()
		}
	}
	if valErr != nil {
		fc := failure.Collect(valErr, string(in.Descriptor.Name), in.ProcessID, string(in.Descriptor.Name), nil, state.Timing.ExecutionStart, nil)
		state.Result = migration.ResultFailed
		state.Reason = valErr.Error()
		state.FailureContext = failure.CreateStepFailureState(valErr.Error(), state.Timing.TotalExecutionDuration(), nil, fc, nil, nil)
		recordSink(in, telemetry.EventFailureRecorded, "", valErr.Error())
		recordTermination(in, migration.TerminationHardError)
		return state
	}

	// A hard-blocked verdict (spec.md §4.7) is a valid, schema-conformant
	// manager output — it passes Validate — but is a permanent phase
	// failure, not a success: result=false requires a populated
	// FailureContext (Testable Property 1), never a bare FinalVerdict.
	if verdictResult.IsHardTerminated {
		codes := strings.Join(verdictResult.BlockingIssues, ", ")
		blockedErr := fmt.Errorf("phase %s hard-blocked: %s", in.Descriptor.Name, codes)
		sfc := failure.Collect(blockedErr, string(in.Descriptor.Name), in.ProcessID, string(in.Descriptor.Name), nil, state.Timing.ExecutionStart, nil)
		contextData := map[string]string{"blocking_issues": codes}
		state.Result = migration.ResultFailed
		state.Reason = codes
		state.FailureContext = failure.CreateStepFailureState(verdictResult.Reason, state.Timing.TotalExecutionDuration(), nil, sfc, contextData, nil)
		state.TerminationDetails = migration.TerminationDetails{Type: verdictResult.TerminationType, BlockingIssues: verdictResult.BlockingIssues}
		recordSink(in, telemetry.EventFailureRecorded, "", verdictResult.Reason)
		recordTermination(in, verdictResult.TerminationType)
		return state
	}

	state.FinalVerdict = verdictResult
	state.Reason = summary
	state.TerminationDetails = migration.TerminationDetails{Type: verdictResult.TerminationType, BlockingIssues: verdictResult.BlockingIssues}
	if verdictResult.Result {
		state.Result = migration.ResultSuccess
	} else {
		state.Result = migration.ResultFailed
	}
	recordSink(in, telemetry.EventPhaseCompleted, "", summary)
	recordTermination(in, verdictResult.TerminationType)
	return state
}

// runRounds is the round loop itself (spec.md §4.2 step 4), isolated so
// Run can wrap any error it returns into a FailureContext uniformly.
func runRounds(ctx context.Context, in Inputs, chatHistory *migration.ChatHistory, state *migration.PhaseState) (*migration.PhaseVerdict, error) {
	maxRounds := in.Descriptor.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 1
	}

	for round := 0; round < maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("phase %s: context cancelled during round %d: %w", in.Descriptor.Name, round, err)
		}

		role, reason, err := in.Manager.SelectNextAgent(ctx, chatHistory)
		if err != nil {
			return nil, fmt.Errorf("phase %s: select_next_agent: %w", in.Descriptor.Name, err)
		}
		recordSink(in, telemetry.EventAgentSelected, role, reason)

		speaker, ok := in.Experts[role]
		if !ok || speaker == nil {
			return nil, fmt.Errorf("phase %s: manager selected role %q, no expert bound for it (all roles idle)", in.Descriptor.Name, role)
		}

		msgs, _, err := speaker.Utter(ctx, chatHistory)
		if err != nil {
			return nil, fmt.Errorf("phase %s: round %d: expert %s utterance failed: %w", in.Descriptor.Name, round, role, err)
		}
		for _, m := range msgs {
			chatHistory.Append(m)
		}
		recordSink(in, telemetry.EventAgentUtterance, role, fmt.Sprintf("round %d", round))

		before := len(chatHistory.Messages)
		history.Truncate(chatHistory, in.Governor)
		if len(chatHistory.Messages) < before {
			recordSink(in, telemetry.EventGovernorTruncated, "", fmt.Sprintf("truncated %d->%d messages", before, len(chatHistory.Messages)))
			if in.Metrics != nil {
				in.Metrics.GovernorTruncations.Inc()
			}
		}

		if in.Metrics != nil {
			in.Metrics.PhaseRounds.WithLabelValues(string(in.Descriptor.Name)).Inc()
		}

		verdictResult, err := in.Manager.ShouldTerminate(ctx, chatHistory)
		if err != nil {
			return nil, fmt.Errorf("phase %s: round %d: should_terminate: %w", in.Descriptor.Name, round, err)
		}

		if verdictResult.IsHardTerminated || verdictResult.Result {
			return verdictResult, nil
		}
	}

	return nil, fmt.Errorf("phase %s: exceeded max_rounds (%d) without terminating: %w", in.Descriptor.Name, maxRounds, errHardTimeout)
}

// errHardTimeout marks round-budget exhaustion so the failure classifier
// and Pipeline Driver can recognize a hard_timeout distinctly from an
// infrastructure error.
var errHardTimeout = fmt.Errorf("phase round budget exhausted")

func recordSink(in Inputs, eventType telemetry.EventType, role phase.Role, message string) {
	if in.Sink == nil {
		return
	}
	now := in.Clock
	if now == nil {
		now = clock.NewSystem("")
	}
	in.Sink.Record(telemetry.Event{
		Type:      eventType,
		ProcessID: in.ProcessID,
		Phase:     in.Descriptor.Name,
		Role:      role,
		Message:   message,
		Timestamp: now.Now(),
	})
}

func recordTermination(in Inputs, t migration.TerminationType) {
	if in.Metrics == nil {
		return
	}
	in.Metrics.PhaseTerminations.WithLabelValues(string(in.Descriptor.Name), string(t)).Inc()
}
