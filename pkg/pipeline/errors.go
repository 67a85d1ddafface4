package pipeline

import (
	"fmt"

	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/table"
)

// ErrStageFailed is wrapped by every PipelineError.
var ErrStageFailed = tferrors.ErrStageFailed

// PipelineError reports the stage that ended a run. Position is 1-based.
// For a fatal validation failure Cause is the validation error and Table is
// the stage output that failed it; for a transform failure Table is nil.
type PipelineError struct {
	Stage    string
	Position int
	Cause    error
	Table    *table.Table
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline: stage %d %q failed: %v", e.Position, e.Stage, e.Cause)
}

// Unwrap exposes both ErrStageFailed and the cause to errors.Is and errors.As.
func (e *PipelineError) Unwrap() []error {
	return []error{ErrStageFailed, e.Cause}
}

func configError(field string, value interface{}, reason string) *tferrors.ConfigurationError {
	return tferrors.NewConfigurationError("pipeline", field, value, reason)
}
