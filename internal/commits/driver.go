package commits

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/relpack/relpack/internal/gitrepo"
)

const (
	gitManagerMissingMessageConstant = "git manager not configured"

	commitErrorTemplateConstant       = "commit in %s failed: %v"
	authorIdentityMissingDetailTempl  = "no author identity supplied and none configured in %s"
	noChangesMessageConstant          = "destination tree unchanged, skipping commit"
	createdCommitMessageConstant      = "created release commit"
	logFieldRepositoryConstant        = "repository"
	logFieldCommitConstant            = "commit"
)

// Result reports the outcome of a commit attempt.
type Result struct {
	Created  bool
	CommitID string
}

// CommitError reports a failed commit operation.
type CommitError struct {
	RepositoryPath string
	Cause          error
}

// Error implements the error interface.
func (commitError *CommitError) Error() string {
	return fmt.Sprintf(commitErrorTemplateConstant, commitError.RepositoryPath, commitError.Cause)
}

// Unwrap exposes the underlying failure.
func (commitError *CommitError) Unwrap() error {
	return commitError.Cause
}

// GitManager is the subset of git operations the driver needs.
type GitManager interface {
	StageAll(executionContext context.Context, repositoryPath string) error
	HasChanges(executionContext context.Context, repositoryPath string) (bool, error)
	ConfigValue(executionContext context.Context, repositoryPath string, configurationKey string) (string, error)
	Commit(executionContext context.Context, repositoryPath string, commitMessage string, authorName string, authorEmail string) error
	HeadCommit(executionContext context.Context, repositoryPath string) (string, error)
}

// Driver turns a written destination tree into a commit.
type Driver struct {
	logger     *zap.Logger
	gitManager GitManager
}

// NewDriver constructs a Driver.
func NewDriver(logger *zap.Logger, gitManager GitManager) (*Driver, error) {
	if gitManager == nil {
		return nil, errors.New(gitManagerMissingMessageConstant)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{logger: logger, gitManager: gitManager}, nil
}

// Commit stages all changes and records them with the supplied or inferred
// author identity. An unchanged tree yields Result.Created == false without
// error.
func (driver *Driver) Commit(executionContext context.Context, repositoryPath string, commitMessage string, authorName string, authorEmail string) (Result, error) {
	if stageError := driver.gitManager.StageAll(executionContext, repositoryPath); stageError != nil {
		return Result{}, &CommitError{RepositoryPath: repositoryPath, Cause: stageError}
	}

	treeChanged, changesError := driver.gitManager.HasChanges(executionContext, repositoryPath)
	if changesError != nil {
		return Result{}, &CommitError{RepositoryPath: repositoryPath, Cause: changesError}
	}
	if !treeChanged {
		driver.logger.Info(noChangesMessageConstant, zap.String(logFieldRepositoryConstant, repositoryPath))
		return Result{Created: false}, nil
	}

	resolvedName, resolvedEmail, identityError := driver.resolveAuthorIdentity(executionContext, repositoryPath, authorName, authorEmail)
	if identityError != nil {
		return Result{}, identityError
	}

	if commitError := driver.gitManager.Commit(executionContext, repositoryPath, commitMessage, resolvedName, resolvedEmail); commitError != nil {
		return Result{}, &CommitError{RepositoryPath: repositoryPath, Cause: commitError}
	}

	commitIdentifier, headError := driver.gitManager.HeadCommit(executionContext, repositoryPath)
	if headError != nil {
		return Result{}, &CommitError{RepositoryPath: repositoryPath, Cause: headError}
	}

	driver.logger.Info(
		createdCommitMessageConstant,
		zap.String(logFieldRepositoryConstant, repositoryPath),
		zap.String(logFieldCommitConstant, commitIdentifier),
	)
	return Result{Created: true, CommitID: commitIdentifier}, nil
}

// resolveAuthorIdentity fills missing author fields from the repository's own
// configuration.
func (driver *Driver) resolveAuthorIdentity(executionContext context.Context, repositoryPath string, authorName string, authorEmail string) (string, string, error) {
	resolvedName := authorName
	resolvedEmail := authorEmail

	if len(resolvedName) == 0 {
		configuredName, configError := driver.gitManager.ConfigValue(executionContext, repositoryPath, gitrepo.UserNameConfigurationKey)
		if configError != nil {
			return "", "", &CommitError{RepositoryPath: repositoryPath, Cause: configError}
		}
		resolvedName = configuredName
	}
	if len(resolvedEmail) == 0 {
		configuredEmail, configError := driver.gitManager.ConfigValue(executionContext, repositoryPath, gitrepo.UserEmailConfigurationKey)
		if configError != nil {
			return "", "", &CommitError{RepositoryPath: repositoryPath, Cause: configError}
		}
		resolvedEmail = configuredEmail
	}

	if len(resolvedName) == 0 || len(resolvedEmail) == 0 {
		return "", "", &CommitError{
			RepositoryPath: repositoryPath,
			Cause:          fmt.Errorf(authorIdentityMissingDetailTempl, repositoryPath),
		}
	}
	return resolvedName, resolvedEmail, nil
}
