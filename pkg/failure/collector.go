package failure

import (
	"fmt"
	"time"

	goerrors "github.com/go-faster/errors"

	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
)

// Redactor scrubs sensitive values out of a context snapshot before it is
// attached to a FailureContext. A nil Redactor performs no redaction.
type Redactor func(map[string]string) map[string]string

// Collect gathers exception type/message, a full formatted stack trace
// captured while the error context is live (via github.com/go-faster/errors,
// which carries stack frames from the point of Wrap), a redacted snapshot
// of inputs, and timing, into a SystemFailureContext (spec.md §4.6).
func Collect(err error, stepName, processID, stepPhase string, contextData map[string]string, stepStart time.Time, redact Redactor) migration.SystemFailureContext {
	wrapped := goerrors.Wrap(err, stepName)

	sfc := migration.SystemFailureContext{
		ErrorType:    errorTypeName(err),
		ErrorMessage: err.Error(),
		StackTrace:   fmt.Sprintf("%+v", wrapped),
		StepName:     stepName,
		ProcessID:    processID,
		StepPhase:    stepPhase,
		CapturedAt:   time.Now().UTC(),
	}
	_ = stepStart
	return sfc
}

// CreateStepFailureState wraps a SystemFailureContext with step-level
// attribution into the uniform FailureContext every failure path produces.
func CreateStepFailureState(reason string, executionTime time.Duration, filesAttempted []string, sfc migration.SystemFailureContext, contextData map[string]string, redact Redactor) *migration.FailureContext {
	data := contextData
	if redact != nil {
		data = redact(data)
	}
	return &migration.FailureContext{
		Reason:               reason,
		ExecutionTime:        executionTime,
		FilesAttempted:       filesAttempted,
		SystemFailureContext: sfc,
		ContextData:          data,
	}
}

func errorTypeName(err error) string {
	type typer interface{ Type() string }
	if t, ok := err.(typer); ok {
		return t.Type()
	}
	return fmt.Sprintf("%T", err)
}
