package gitrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/relpack/relpack/internal/execshell"
)

const (
	gitExecutorMissingMessageConstant = "git executor not configured"

	cloneSubcommandConstant      = "clone"
	branchFlagConstant           = "--branch"
	depthFlagConstant            = "--depth"
	shallowDepthValueConstant    = "1"
	checkoutSubcommandConstant   = "checkout"
	newBranchFlagConstant        = "-b"
	addSubcommandConstant        = "add"
	addAllFlagConstant           = "--all"
	statusSubcommandConstant     = "status"
	porcelainFlagConstant        = "--porcelain"
	configSubcommandConstant     = "config"
	configGetFlagConstant        = "--get"
	commitSubcommandConstant     = "commit"
	commitMessageFlagConstant    = "-m"
	revParseSubcommandConstant   = "rev-parse"
	showSubcommandConstant       = "show"
	suppressDiffFlagConstant     = "-s"
	committerDateFormatConstant  = "--format=%cI"
	headReferenceConstant        = "HEAD"
	pushSubcommandConstant       = "push"
	setUpstreamFlagConstant      = "--set-upstream"
	authorNameEnvironmentKey     = "GIT_AUTHOR_NAME"
	authorEmailEnvironmentKey    = "GIT_AUTHOR_EMAIL"
	committerNameEnvironmentKey  = "GIT_COMMITTER_NAME"
	committerEmailEnvironmentKey = "GIT_COMMITTER_EMAIL"
)

// Git identity configuration keys.
const (
	UserNameConfigurationKey  = "user.name"
	UserEmailConfigurationKey = "user.email"
)

// GitExecutor runs git commands and reports their results.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Manager exposes the git plumbing operations the release pipeline consumes.
type Manager struct {
	gitExecutor GitExecutor
}

// NewManager constructs a Manager around the provided executor.
func NewManager(gitExecutor GitExecutor) (*Manager, error) {
	if gitExecutor == nil {
		return nil, errors.New(gitExecutorMissingMessageConstant)
	}
	return &Manager{gitExecutor: gitExecutor}, nil
}

// CloneAtRef materializes the remote repository at the given branch or tag
// into targetDirectory using a shallow clone.
func (manager *Manager) CloneAtRef(executionContext context.Context, remoteAddress string, reference string, targetDirectory string) error {
	_, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments: []string{cloneSubcommandConstant, branchFlagConstant, reference, depthFlagConstant, shallowDepthValueConstant, remoteAddress, targetDirectory},
	})
	return executionError
}

// Clone materializes the remote repository's default branch into targetDirectory.
func (manager *Manager) Clone(executionContext context.Context, remoteAddress string, targetDirectory string) error {
	_, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments: []string{cloneSubcommandConstant, remoteAddress, targetDirectory},
	})
	return executionError
}

// CheckoutNewBranch creates and switches to a new branch in the repository.
func (manager *Manager) CheckoutNewBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	_, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{checkoutSubcommandConstant, newBranchFlagConstant, branchName},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// StageAll stages every change in the repository working tree.
func (manager *Manager) StageAll(executionContext context.Context, repositoryPath string) error {
	_, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{addSubcommandConstant, addAllFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// HasChanges reports whether the working tree differs from the current head.
func (manager *Manager) HasChanges(executionContext context.Context, repositoryPath string) (bool, error) {
	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{statusSubcommandConstant, porcelainFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return false, executionError
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// ConfigValue reads a configuration value from the repository, returning an
// empty string when the key is unset.
func (manager *Manager) ConfigValue(executionContext context.Context, repositoryPath string, configurationKey string) (string, error) {
	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{configSubcommandConstant, configGetFlagConstant, configurationKey},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		// git config --get exits 1 for unset keys.
		commandFailure := &execshell.CommandFailedError{}
		if errors.As(executionError, &commandFailure) && commandFailure.Result.ExitCode == 1 {
			return "", nil
		}
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// Commit records a commit with the supplied author identity.
func (manager *Manager) Commit(executionContext context.Context, repositoryPath string, commitMessage string, authorName string, authorEmail string) error {
	_, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{commitSubcommandConstant, commitMessageFlagConstant, commitMessage},
		WorkingDirectory: repositoryPath,
		EnvironmentVariables: map[string]string{
			authorNameEnvironmentKey:     authorName,
			authorEmailEnvironmentKey:    authorEmail,
			committerNameEnvironmentKey:  authorName,
			committerEmailEnvironmentKey: authorEmail,
		},
	})
	return executionError
}

// HeadCommit returns the commit identifier the repository head points at.
func (manager *Manager) HeadCommit(executionContext context.Context, repositoryPath string) (string, error) {
	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{revParseSubcommandConstant, headReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// CommitTimestamp returns the committer timestamp of the repository head.
func (manager *Manager) CommitTimestamp(executionContext context.Context, repositoryPath string) (time.Time, error) {
	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{showSubcommandConstant, suppressDiffFlagConstant, committerDateFormatConstant, headReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return time.Time{}, executionError
	}
	return time.Parse(time.RFC3339, strings.TrimSpace(executionResult.StandardOutput))
}

// PushWithUpstream pushes the branch to the remote and records the upstream.
func (manager *Manager) PushWithUpstream(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	_, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{pushSubcommandConstant, setUpstreamFlagConstant, remoteName, branchName},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}
