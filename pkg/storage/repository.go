package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
)

// SaveResult persists one pipeline run: the process row, one phase_state
// row per entry in result.FinalState, and a failure_context row for any
// phase that recorded one. Writes happen in a single transaction so a
// partially-written run is never visible to readers.
func (s *Store) SaveResult(ctx context.Context, userID string, req migration.MigrationRequest, result *migration.PipelineResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO migration_processes
			(process_id, user_id, container_name, status, success, error_message,
			 error_classification, execution_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (process_id) DO UPDATE SET
			status = EXCLUDED.status,
			success = EXCLUDED.success,
			error_message = EXCLUDED.error_message,
			error_classification = EXCLUDED.error_classification,
			execution_time_ms = EXCLUDED.execution_time_ms,
			updated_at = now()`,
		req.ProcessID, userID, req.ContainerName, string(result.Status), result.Success,
		result.ErrorMessage, result.ErrorClassification, result.ExecutionTime.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("storage: upserting process: %w", err)
	}

	for name, state := range result.FinalState {
		if err := savePhaseState(ctx, tx, req.ProcessID, name, state); err != nil {
			return err
		}
		if state.FailureContext != nil {
			if err := saveFailureContext(ctx, tx, req.ProcessID, name, state.FailureContext); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

func savePhaseState(ctx context.Context, tx pgx.Tx, processID, name string, state *migration.PhaseState) error {
	verdict, err := json.Marshal(state.FinalVerdict)
	if err != nil {
		return fmt.Errorf("storage: marshaling verdict for %s: %w", name, err)
	}
	timing, err := json.Marshal(state.Timing)
	if err != nil {
		return fmt.Errorf("storage: marshaling timing for %s: %w", name, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO migration_phase_states
			(process_id, phase_name, result, reason, termination_type,
			 requires_immediate_retry, final_verdict, timing)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (process_id, phase_name) DO UPDATE SET
			result = EXCLUDED.result,
			reason = EXCLUDED.reason,
			termination_type = EXCLUDED.termination_type,
			requires_immediate_retry = EXCLUDED.requires_immediate_retry,
			final_verdict = EXCLUDED.final_verdict,
			timing = EXCLUDED.timing`,
		processID, name, string(state.Result), state.Reason,
		string(state.TerminationDetails.Type), state.RequiresImmediateRetry, verdict, timing,
	)
	if err != nil {
		return fmt.Errorf("storage: upserting phase_state %s: %w", name, err)
	}
	return nil
}

func saveFailureContext(ctx context.Context, tx pgx.Tx, processID, name string, fc *migration.FailureContext) error {
	files, err := json.Marshal(fc.FilesAttempted)
	if err != nil {
		return fmt.Errorf("storage: marshaling files_attempted for %s: %w", name, err)
	}
	contextData, err := json.Marshal(fc.ContextData)
	if err != nil {
		return fmt.Errorf("storage: marshaling context_data for %s: %w", name, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO migration_failure_contexts
			(process_id, phase_name, reason, execution_time_ms, files_attempted,
			 error_type, error_message, stack_trace, context_data, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (process_id, phase_name) DO UPDATE SET
			reason = EXCLUDED.reason,
			execution_time_ms = EXCLUDED.execution_time_ms,
			files_attempted = EXCLUDED.files_attempted,
			error_type = EXCLUDED.error_type,
			error_message = EXCLUDED.error_message,
			stack_trace = EXCLUDED.stack_trace,
			context_data = EXCLUDED.context_data,
			captured_at = EXCLUDED.captured_at`,
		processID, name, fc.Reason, fc.ExecutionTime.Milliseconds(), files,
		fc.SystemFailureContext.ErrorType, fc.SystemFailureContext.ErrorMessage,
		fc.SystemFailureContext.StackTrace, contextData, fc.SystemFailureContext.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: upserting failure_context %s: %w", name, err)
	}
	return nil
}

// ProcessSummary is one row of a listed process, without the full nested
// phase/failure detail — enough for a dashboard listing.
type ProcessSummary struct {
	ProcessID     string
	UserID        string
	ContainerName string
	Status        string
	Success       bool
}

// ListProcesses returns the most recent processes for a user, newest first.
func (s *Store) ListProcesses(ctx context.Context, userID string, limit int) ([]ProcessSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT process_id, user_id, container_name, status, success
		FROM migration_processes
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: listing processes: %w", err)
	}
	defer rows.Close()

	var out []ProcessSummary
	for rows.Next() {
		var p ProcessSummary
		if err := rows.Scan(&p.ProcessID, &p.UserID, &p.ContainerName, &p.Status, &p.Success); err != nil {
			return nil, fmt.Errorf("storage: scanning process row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
