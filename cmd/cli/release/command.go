package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relpack/relpack/internal/execshell"
	"github.com/relpack/relpack/internal/gitrepo"
	"github.com/relpack/relpack/internal/manifests"
	"github.com/relpack/relpack/internal/releaser"
	"github.com/relpack/relpack/internal/ui"
	flagutils "github.com/relpack/relpack/internal/utils/flags"
)

const (
	commandUseName          = "release"
	commandShortDescription = "Publish the configured subset of the origin into the destination repository"
	commandLongDescription  = "release resolves the origin's [tool.relpack] configuration, assembles the release file set from local paths, built wheels, and remote repositories, rewrites the destination working tree, and commits the result. A remote destination address is cloned and the release is pushed on a prepare_release_<version> branch."
	commandExampleTemplate  = "relpack release --origin . --destination ../releases/service"

	originFlagName       = "origin"
	originFlagUsage      = "Origin tree containing the release configuration"
	originFlagDefault    = "."
	destinationFlagName  = "destination"
	destinationFlagUsage = "Destination working tree path or remote repository address"
	authorNameFlagName   = "author-name"
	authorNameFlagUsage  = "Commit author name (defaults to the destination repository configuration)"
	authorEmailFlagName  = "author-email"
	authorEmailFlagUsage = "Commit author email (defaults to the destination repository configuration)"

	missingDestinationErrorMessage = "destination is required"

	releaseCreatedTemplateConstant = "RELEASED: %s -> %s (%s)\n"
	releaseNoChangeTemplateConst   = "UNCHANGED: %s\n"
	dryRunNoticeTemplateConstant   = "PLANNED: %s (dry run)\n"
)

// LoggerProvider supplies the logger configured by the application shell.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the release command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	GitManager            releaser.GitManager
	ToolRunner            manifests.ToolRunner
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the release command.
func (builder *CommandBuilder) Build() *cobra.Command {
	command := &cobra.Command{
		Use:     commandUseName,
		Short:   commandShortDescription,
		Long:    commandLongDescription,
		Example: commandExampleTemplate,
		Args:    cobra.NoArgs,
		RunE:    builder.run,
	}

	command.Flags().String(originFlagName, originFlagDefault, originFlagUsage)
	command.Flags().String(destinationFlagName, "", destinationFlagUsage)
	command.Flags().String(authorNameFlagName, "", authorNameFlagUsage)
	command.Flags().String(authorEmailFlagName, "", authorEmailFlagUsage)
	flagutils.BindDryRunFlag(command, false)

	return command
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()

	originPath, _ := command.Flags().GetString(originFlagName)
	destinationValue, _ := command.Flags().GetString(destinationFlagName)
	if len(strings.TrimSpace(destinationValue)) == 0 {
		return errors.New(missingDestinationErrorMessage)
	}

	authorName := configuration.AuthorName
	if command.Flags().Changed(authorNameFlagName) {
		authorName, _ = command.Flags().GetString(authorNameFlagName)
	}
	authorEmail := configuration.AuthorEmail
	if command.Flags().Changed(authorEmailFlagName) {
		authorEmail, _ = command.Flags().GetString(authorEmailFlagName)
	}

	executionFlags := flagutils.ResolveExecutionFlags(command)

	gitManager, toolRunner, collaboratorError := builder.resolveCollaborators(logger)
	if collaboratorError != nil {
		return collaboratorError
	}

	service, serviceError := releaser.NewService(releaser.Dependencies{
		Logger:     logger,
		GitManager: gitManager,
		ToolRunner: toolRunner,
		PlanOutput: command.OutOrStdout(),
	})
	if serviceError != nil {
		return serviceError
	}

	result, releaseError := service.Release(command.Context(), releaser.Options{
		OriginPath:  originPath,
		Destination: destinationValue,
		AuthorName:  strings.TrimSpace(authorName),
		AuthorEmail: strings.TrimSpace(authorEmail),
		DryRun:      executionFlags.DryRun,
	})
	if releaseError != nil {
		return releaseError
	}

	switch {
	case executionFlags.DryRun:
		fmt.Fprintf(command.OutOrStdout(), dryRunNoticeTemplateConstant, destinationValue)
	case result.Created:
		fmt.Fprintf(command.OutOrStdout(), releaseCreatedTemplateConstant, originPath, destinationValue, result.CommitID)
	default:
		fmt.Fprintf(command.OutOrStdout(), releaseNoChangeTemplateConst, destinationValue)
	}
	return nil
}

// resolveCollaborators returns the injected fakes when present and otherwise
// wires the real shell-backed git and tool executors.
func (builder *CommandBuilder) resolveCollaborators(logger *zap.Logger) (releaser.GitManager, manifests.ToolRunner, error) {
	if builder.GitManager != nil && builder.ToolRunner != nil {
		return builder.GitManager, builder.ToolRunner, nil
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), ui.NewCommandEventLogger(logger))
	if executorError != nil {
		return nil, nil, executorError
	}

	gitManager := builder.GitManager
	if gitManager == nil {
		constructedManager, managerError := gitrepo.NewManager(shellExecutor)
		if managerError != nil {
			return nil, nil, managerError
		}
		gitManager = constructedManager
	}

	var toolRunner manifests.ToolRunner = shellExecutor
	if builder.ToolRunner != nil {
		toolRunner = builder.ToolRunner
	}
	return gitManager, toolRunner, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
