package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	gitToolNameStringConstant               = "git"
	uvToolNameStringConstant                = "uv"
	poetryToolNameStringConstant            = "poetry"
	commandRunnerMissingMessageConstant     = "command runner not configured"
	commandNameMissingMessageConstant       = "command name must be provided"
	commandFailureTemplateConstant          = "%s exited with code %d: %s"
	commandExecutionFailureTemplateConstant = "unable to execute %s: %w"
	commandStartedMessageConstant           = "external command started"
	commandCompletedMessageConstant         = "external command completed"
	commandFailedMessageConstant            = "external command failed"
	logFieldCommandConstant                 = "command"
	logFieldArgumentsConstant               = "arguments"
	logFieldWorkingDirectoryConstant        = "working_directory"
	logFieldExitCodeConstant                = "exit_code"
	commandArgumentsJoinSeparatorConstant   = " "
)

// ToolName identifies a supported external executable.
type ToolName string

// Supported tool enumerations.
const (
	ToolGit    ToolName = ToolName(gitToolNameStringConstant)
	ToolUV     ToolName = ToolName(uvToolNameStringConstant)
	ToolPoetry ToolName = ToolName(poetryToolNameStringConstant)
)

// CommandDetails describes a tool invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand combines a ToolName with invocation details.
type ShellCommand struct {
	Name    ToolName
	Details CommandDetails
}

// ExecutionResult captures the observable results of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner represents the ability to run shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a command that ran but exited unsuccessfully.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error renders the failure with the trailing standard error content.
func (failure *CommandFailedError) Error() string {
	return fmt.Sprintf(
		commandFailureTemplateConstant,
		describeCommand(failure.Command),
		failure.Result.ExitCode,
		strings.TrimSpace(failure.Result.StandardError),
	)
}

// ShellExecutor coordinates command construction, execution, and observation.
type ShellExecutor struct {
	commandRunner CommandRunner
	logger        *zap.Logger
	eventObserver CommandEventObserver
}

// NewShellExecutor builds an executor around the provided runner and logger.
func NewShellExecutor(logger *zap.Logger, commandRunner CommandRunner, eventObserver CommandEventObserver) (*ShellExecutor, error) {
	if commandRunner == nil {
		return nil, errors.New(commandRunnerMissingMessageConstant)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if eventObserver == nil {
		eventObserver = noopCommandEventObserver{}
	}

	return &ShellExecutor{commandRunner: commandRunner, logger: logger, eventObserver: eventObserver}, nil
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: ToolGit, Details: details})
}

// ExecuteUV runs the uv dependency tool with the provided details.
func (executor *ShellExecutor) ExecuteUV(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: ToolUV, Details: details})
}

// ExecutePoetry runs poetry with the provided details.
func (executor *ShellExecutor) ExecutePoetry(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: ToolPoetry, Details: details})
}

// Execute runs an arbitrary command, reporting lifecycle events and mapping
// non-zero exits to CommandFailedError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if len(command.Name) == 0 {
		return ExecutionResult{}, errors.New(commandNameMissingMessageConstant)
	}

	executor.logger.Debug(
		commandStartedMessageConstant,
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	)
	executor.eventObserver.CommandStarted(command)

	executionResult, runError := executor.commandRunner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Debug(
			commandFailedMessageConstant,
			zap.String(logFieldCommandConstant, string(command.Name)),
			zap.Error(runError),
		)
		executor.eventObserver.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, fmt.Errorf(commandExecutionFailureTemplateConstant, describeCommand(command), runError)
	}

	executor.logger.Debug(
		commandCompletedMessageConstant,
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
	)
	executor.eventObserver.CommandCompleted(command, executionResult)

	if executionResult.ExitCode != 0 {
		return executionResult, &CommandFailedError{Command: command, Result: executionResult}
	}

	return executionResult, nil
}

func describeCommand(command ShellCommand) string {
	commandParts := append([]string{string(command.Name)}, command.Details.Arguments...)
	return strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
}
