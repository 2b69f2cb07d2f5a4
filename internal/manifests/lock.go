package manifests

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/relpack/relpack/internal/execshell"
)

const (
	lockSubcommandConstant = "lock"

	regeneratingLockMessageConstant = "regenerating lock file"
	logFieldDirectoryConstant       = "directory"
)

// LockRegenerator refreshes the dependency lock artifact in the written
// destination tree. It runs after the writer because lock generation depends
// on the final manifest on disk.
type LockRegenerator struct {
	logger     *zap.Logger
	toolRunner ToolRunner
}

// NewLockRegenerator constructs a LockRegenerator.
func NewLockRegenerator(logger *zap.Logger, toolRunner ToolRunner) (*LockRegenerator, error) {
	if toolRunner == nil {
		return nil, errors.New(toolRunnerMissingMessageConstant)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockRegenerator{logger: logger, toolRunner: toolRunner}, nil
}

// Regenerate runs the lock command of the selected tool inside the written
// tree. Failures surface as LockGenerationError.
func (regenerator *LockRegenerator) Regenerate(executionContext context.Context, workingDirectory string, lockTool execshell.ToolName) error {
	regenerator.logger.Debug(
		regeneratingLockMessageConstant,
		zap.String(logFieldToolConstant, string(lockTool)),
		zap.String(logFieldDirectoryConstant, workingDirectory),
	)

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{lockSubcommandConstant},
		WorkingDirectory: workingDirectory,
	}

	var executionError error
	switch lockTool {
	case execshell.ToolUV:
		_, executionError = regenerator.toolRunner.ExecuteUV(executionContext, commandDetails)
	default:
		_, executionError = regenerator.toolRunner.ExecutePoetry(executionContext, commandDetails)
	}
	if executionError != nil {
		return &LockGenerationError{Tool: lockTool, WorkingDirectory: workingDirectory, Cause: executionError}
	}
	return nil
}
