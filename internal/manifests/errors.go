package manifests

import (
	"fmt"

	"github.com/relpack/relpack/internal/execshell"
)

const (
	lockGenerationErrorTemplateConstant = "lock regeneration with %s failed in %s: %v"
)

// LockGenerationError reports a failed post-write lock regeneration. The
// destination tree stays written and uncommitted when this is returned.
type LockGenerationError struct {
	Tool             execshell.ToolName
	WorkingDirectory string
	Cause            error
}

// Error implements the error interface.
func (lockError *LockGenerationError) Error() string {
	return fmt.Sprintf(lockGenerationErrorTemplateConstant, lockError.Tool, lockError.WorkingDirectory, lockError.Cause)
}

// Unwrap exposes the underlying failure.
func (lockError *LockGenerationError) Unwrap() error {
	return lockError.Cause
}
