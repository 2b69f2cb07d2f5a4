package releaser

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relpack/relpack/internal/commits"
	"github.com/relpack/relpack/internal/destination"
	"github.com/relpack/relpack/internal/fileset"
	"github.com/relpack/relpack/internal/manifests"
	"github.com/relpack/relpack/internal/patches"
	"github.com/relpack/relpack/internal/releaseconf"
	"github.com/relpack/relpack/internal/sources"
)

const (
	gitManagerMissingMessageConstant = "git manager not configured"
	toolRunnerMissingMessage         = "tool runner not configured"

	releaseBranchPrefixConstant   = "prepare_release_"
	originRemoteNameConstant      = "origin"
	destinationWorkspaceLabelName = "destination"
	commitMessagePrefixConstant   = "Release"

	remoteSchemeSeparatorConstant = "://"

	loadedConfigurationMessage    = "loaded release configuration"
	resolvedSourcesMessageConst   = "resolved release sources"
	dryRunMessageConstant         = "dry run, no files written"
	originHeadUnknownMessageConst = "origin head commit unavailable"
	originTimestampUnknownMessage = "origin commit timestamp unavailable, using wall clock"
	logFieldOriginConstant        = "origin"
	logFieldVersionConstant       = "version"
	logFieldFileCountConstant     = "files"
)

// Options parameterizes one release run.
type Options struct {
	OriginPath  string
	Destination string
	AuthorName  string
	AuthorEmail string
	DryRun      bool
}

// GitManager is the full git surface the pipeline consumes.
type GitManager interface {
	CloneAtRef(executionContext context.Context, remoteAddress string, reference string, targetDirectory string) error
	Clone(executionContext context.Context, remoteAddress string, targetDirectory string) error
	CheckoutNewBranch(executionContext context.Context, repositoryPath string, branchName string) error
	PushWithUpstream(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error
	HeadCommit(executionContext context.Context, repositoryPath string) (string, error)
	CommitTimestamp(executionContext context.Context, repositoryPath string) (time.Time, error)
	StageAll(executionContext context.Context, repositoryPath string) error
	HasChanges(executionContext context.Context, repositoryPath string) (bool, error)
	ConfigValue(executionContext context.Context, repositoryPath string, configurationKey string) (string, error)
	Commit(executionContext context.Context, repositoryPath string, commitMessage string, authorName string, authorEmail string) error
}

// Dependencies carries the collaborators a Service needs.
type Dependencies struct {
	Logger     *zap.Logger
	GitManager GitManager
	ToolRunner manifests.ToolRunner
	Clock      manifests.Clock
	PlanOutput io.Writer
}

// Service runs the release pipeline.
type Service struct {
	logger     *zap.Logger
	gitManager GitManager
	toolRunner manifests.ToolRunner
	clock      manifests.Clock
	planOutput io.Writer
}

// NewService constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.GitManager == nil {
		return nil, errors.New(gitManagerMissingMessageConstant)
	}
	if dependencies.ToolRunner == nil {
		return nil, errors.New(toolRunnerMissingMessage)
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = manifests.SystemClock{}
	}
	planOutput := dependencies.PlanOutput
	if planOutput == nil {
		planOutput = os.Stdout
	}

	return &Service{
		logger:     logger,
		gitManager: dependencies.GitManager,
		toolRunner: dependencies.ToolRunner,
		clock:      clock,
		planOutput: planOutput,
	}, nil
}

// Release publishes the configured subset of the origin tree into the
// destination repository and reports whether a commit was created.
func (service *Service) Release(executionContext context.Context, options Options) (result commits.Result, releaseError error) {
	configuration, configurationError := releaseconf.Load(options.OriginPath)
	if configurationError != nil {
		return commits.Result{}, configurationError
	}
	service.logger.Info(
		loadedConfigurationMessage,
		zap.String(logFieldOriginConstant, options.OriginPath),
		zap.String(logFieldVersionConstant, configuration.Version),
	)

	workspace, workspaceError := sources.NewWorkspace()
	if workspaceError != nil {
		return commits.Result{}, workspaceError
	}
	defer func() {
		releaseError = multierr.Append(releaseError, workspace.Cleanup())
	}()

	exporter, exporterError := manifests.NewExporter(service.logger, service.toolRunner)
	if exporterError != nil {
		return commits.Result{}, exporterError
	}

	resolver, resolverError := sources.NewResolver(sources.ResolverDependencies{
		Logger:          service.logger,
		Materializer:    service.gitManager,
		VersionResolver: manifests.NewPackageVersionResolver(exporter),
		Workspace:       workspace,
	})
	if resolverError != nil {
		return commits.Result{}, resolverError
	}

	resolvedSet, resolutionError := resolver.Resolve(executionContext, sources.Request{
		OriginPath:    options.OriginPath,
		Configuration: configuration,
	})
	if resolutionError != nil {
		return commits.Result{}, resolutionError
	}
	service.logger.Info(resolvedSourcesMessageConst, zap.Int(logFieldFileCountConstant, resolvedSet.Len()))

	if patchError := service.applyPatches(resolvedSet, configuration); patchError != nil {
		return commits.Result{}, patchError
	}
	if metadataError := service.generateMetadata(executionContext, resolvedSet, configuration, options); metadataError != nil {
		return commits.Result{}, metadataError
	}

	if options.DryRun {
		service.logger.Info(dryRunMessageConstant)
		plan := BuildPlan(options.Destination, configuration.Version, resolvedSet)
		if renderError := plan.Render(service.planOutput); renderError != nil {
			return commits.Result{}, renderError
		}
		return commits.Result{Created: false}, nil
	}

	workingTreePath, releaseBranch, destinationError := service.prepareDestination(executionContext, workspace, configuration, options)
	if destinationError != nil {
		return commits.Result{}, destinationError
	}

	if writeError := destination.NewWriter(service.logger).Write(executionContext, workingTreePath, resolvedSet); writeError != nil {
		return commits.Result{}, writeError
	}

	if lockError := service.regenerateLock(executionContext, workingTreePath, configuration, options); lockError != nil {
		// The tree stays written and uncommitted for inspection.
		return commits.Result{Created: false}, lockError
	}

	commitDriver, driverError := commits.NewDriver(service.logger, service.gitManager)
	if driverError != nil {
		return commits.Result{}, driverError
	}
	commitResult, commitError := commitDriver.Commit(
		executionContext,
		workingTreePath,
		commitMessage(configuration.Version),
		options.AuthorName,
		options.AuthorEmail,
	)
	if commitError != nil {
		return commits.Result{}, commitError
	}

	if len(releaseBranch) > 0 && commitResult.Created {
		if pushError := service.gitManager.PushWithUpstream(executionContext, workingTreePath, originRemoteNameConstant, releaseBranch); pushError != nil {
			return commitResult, pushError
		}
	}
	return commitResult, nil
}

func (service *Service) applyPatches(resolvedSet *fileset.ResolvedFileSet, configuration releaseconf.Configuration) error {
	patchEngine := patches.NewEngine(service.logger)
	if configuration.RemoveTodo {
		if _, todoError := patchEngine.RemoveTodos(resolvedSet); todoError != nil {
			return todoError
		}
	}
	_, applyError := patchEngine.Apply(resolvedSet, configuration.Patches)
	return applyError
}

func (service *Service) generateMetadata(executionContext context.Context, resolvedSet *fileset.ResolvedFileSet, configuration releaseconf.Configuration, options Options) error {
	if configuration.CopyRequirements || configuration.ManagePyproject {
		exporter, exporterError := manifests.NewExporter(service.logger, service.toolRunner)
		if exporterError != nil {
			return exporterError
		}
		requirements, _, exportError := exporter.Export(executionContext, options.OriginPath, configuration.DependencyGroups)
		if exportError != nil {
			return exportError
		}
		requirements = manifests.FilterRequirements(requirements, configuration.FilterRequirements)

		if configuration.CopyRequirements {
			manifests.AddRequirementsManifest(resolvedSet, requirements)
		}
		if configuration.ManagePyproject {
			if manageError := manifests.ManagePyproject(resolvedSet, requirements, configuration.Version); manageError != nil {
				return manageError
			}
		}
	}

	if configuration.AddVersionDescriptor {
		sourceReference, headError := service.gitManager.HeadCommit(executionContext, options.OriginPath)
		if headError != nil {
			service.logger.Warn(originHeadUnknownMessageConst, zap.String(logFieldOriginConstant, options.OriginPath))
			sourceReference = ""
		}

		// The origin commit timestamp keeps the descriptor stable across
		// re-runs of an unchanged origin.
		generatedAt, timestampError := service.gitManager.CommitTimestamp(executionContext, options.OriginPath)
		if timestampError != nil {
			service.logger.Warn(originTimestampUnknownMessage, zap.String(logFieldOriginConstant, options.OriginPath))
			generatedAt = service.clock.Now()
		}

		descriptor := manifests.BuildVersionDescriptor(configuration.Version, sourceReference, generatedAt)
		if descriptorError := manifests.AddVersionDescriptor(resolvedSet, descriptor); descriptorError != nil {
			return descriptorError
		}
	}
	return nil
}

// prepareDestination returns the working tree to write into. Remote
// destinations are cloned into the workspace and switched to a fresh release
// branch; the branch name is returned so the commit can be pushed.
func (service *Service) prepareDestination(executionContext context.Context, workspace *sources.Workspace, configuration releaseconf.Configuration, options Options) (string, string, error) {
	if !IsRemoteDestination(options.Destination) {
		return options.Destination, "", nil
	}

	workingTreePath, directoryError := workspace.NewDirectory(destinationWorkspaceLabelName)
	if directoryError != nil {
		return "", "", directoryError
	}
	if cloneError := service.gitManager.Clone(executionContext, options.Destination, workingTreePath); cloneError != nil {
		return "", "", cloneError
	}

	releaseBranch := releaseBranchPrefixConstant + configuration.Version
	if checkoutError := service.gitManager.CheckoutNewBranch(executionContext, workingTreePath, releaseBranch); checkoutError != nil {
		return "", "", checkoutError
	}
	return workingTreePath, releaseBranch, nil
}

func (service *Service) regenerateLock(executionContext context.Context, workingTreePath string, configuration releaseconf.Configuration, options Options) error {
	if !configuration.GenerateLockfile {
		return nil
	}
	lockTool, lockToolFound := manifests.DetectLockTool(options.OriginPath)
	if !lockToolFound {
		return nil
	}

	regenerator, regeneratorError := manifests.NewLockRegenerator(service.logger, service.toolRunner)
	if regeneratorError != nil {
		return regeneratorError
	}
	return regenerator.Regenerate(executionContext, workingTreePath, lockTool)
}

func commitMessage(releaseVersion string) string {
	if len(releaseVersion) == 0 {
		return commitMessagePrefixConstant
	}
	return commitMessagePrefixConstant + " " + releaseVersion
}

// IsRemoteDestination reports whether the destination is a remote repository
// address rather than a local working tree path. URL schemes and scp-like
// user@host:path forms both count as remote.
func IsRemoteDestination(destinationAddress string) bool {
	if strings.Contains(destinationAddress, remoteSchemeSeparatorConstant) {
		return true
	}
	atIndex := strings.IndexByte(destinationAddress, '@')
	colonIndex := strings.IndexByte(destinationAddress, ':')
	return atIndex > 0 && colonIndex > atIndex
}
