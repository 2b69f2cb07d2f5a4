package execshell

// CommandEventObserver receives lifecycle notifications for the git and
// packaging tool invocations the release pipeline shells out to.
type CommandEventObserver interface {
	// CommandStarted fires before the tool process is spawned.
	CommandStarted(command ShellCommand)
	// CommandCompleted fires once the tool exits and supplies its result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports failures to run the tool at all, such as
	// a missing binary.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// noopCommandEventObserver discards all command events. It backs executors
// constructed without an observer.
type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}
