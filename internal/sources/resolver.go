package sources

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relpack/relpack/internal/fileset"
	"github.com/relpack/relpack/internal/releaseconf"
)

const (
	defaultConcurrencyLimitConstant = 4

	materializerMissingMessageConstant    = "repository materializer not configured"
	workspaceMissingMessageConstant       = "workspace not configured"
	versionResolverMissingMessageConstant = "version resolver not configured"
	wheelWorkspaceLabelConstant           = "wheel"
	repoWorkspaceLabelConstant            = "repo"

	resolvingLocalRuleMessageConstant = "resolving local rule"
	resolvingWheelRuleMessageConstant = "resolving wheel rule"
	resolvingRepoRuleMessageConstant  = "resolving repository rule"
	nestedConfigFoundMessageConstant  = "nested release configuration found"
	logFieldFromConstant              = "from"
	logFieldToConstant                = "to"
	logFieldRefConstant               = "ref"
	logFieldArtifactConstant          = "artifact"
)

// Bytecode caches never ship regardless of configured ignore patterns.
var implicitTreeIgnores = []string{"__pycache__"}

// Built wheel archives always drop compiled objects and packaging metadata.
var baseWheelIgnores = []string{"*.so", "*.so.*", "*.dist-info", "*.libs"}

// Cloned repositories never contribute their version control metadata.
var repositoryCloneIgnores = []string{".git"}

// VersionResolver supplies the released version of a package, as declared by
// the origin's own dependency metadata.
type VersionResolver interface {
	ResolveVersion(executionContext context.Context, originPath string, packageName string, dependencyGroups []string) (string, error)
}

// RepositoryMaterializer clones a remote repository at a specific ref.
type RepositoryMaterializer interface {
	CloneAtRef(executionContext context.Context, remoteAddress string, reference string, targetDirectory string) error
}

// Resolver executes the source resolution stage of the pipeline.
type Resolver struct {
	logger           *zap.Logger
	materializer     RepositoryMaterializer
	versionResolver  VersionResolver
	workspace        *Workspace
	concurrencyLimit int
}

// ResolverDependencies carries the collaborators a Resolver needs.
type ResolverDependencies struct {
	Logger           *zap.Logger
	Materializer     RepositoryMaterializer
	VersionResolver  VersionResolver
	Workspace        *Workspace
	ConcurrencyLimit int
}

// Request describes one resolution scope (the origin tree plus its
// validated configuration).
type Request struct {
	OriginPath    string
	Configuration releaseconf.Configuration

	// visitedAddresses is the chain of repository addresses leading to this
	// scope, used for cycle detection during recursion.
	visitedAddresses []string
}

// NewResolver constructs a Resolver.
func NewResolver(dependencies ResolverDependencies) (*Resolver, error) {
	if dependencies.Materializer == nil {
		return nil, errors.New(materializerMissingMessageConstant)
	}
	if dependencies.Workspace == nil {
		return nil, errors.New(workspaceMissingMessageConstant)
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrencyLimit := dependencies.ConcurrencyLimit
	if concurrencyLimit <= 0 {
		concurrencyLimit = defaultConcurrencyLimitConstant
	}

	return &Resolver{
		logger:           logger,
		materializer:     dependencies.Materializer,
		versionResolver:  dependencies.VersionResolver,
		workspace:        dependencies.Workspace,
		concurrencyLimit: concurrencyLimit,
	}, nil
}

// Resolve materializes every configured source and merges the results into a
// single file set in declared rule order.
func (resolver *Resolver) Resolve(executionContext context.Context, request Request) (*fileset.ResolvedFileSet, error) {
	resolvedSet := fileset.NewResolvedFileSet()

	if rootError := resolver.collectReleaseRoot(resolvedSet, request); rootError != nil {
		return nil, rootError
	}
	if localError := resolver.collectLocalRules(resolvedSet, request); localError != nil {
		return nil, localError
	}

	ruleSets, resolutionError := resolver.resolveRemoteRules(executionContext, request)
	if resolutionError != nil {
		return nil, resolutionError
	}
	for _, ruleSet := range ruleSets {
		if mergeError := resolvedSet.MergeUnder(ruleSet.destinationPrefix, ruleSet.resolvedFiles); mergeError != nil {
			return nil, mergeError
		}
	}
	return resolvedSet, nil
}

type ruleResolution struct {
	destinationPrefix string
	resolvedFiles     *fileset.ResolvedFileSet
}

func (resolver *Resolver) collectReleaseRoot(resolvedSet *fileset.ResolvedFileSet, request Request) error {
	configuration := request.Configuration
	if len(configuration.ReleaseRoot) == 0 {
		return nil
	}
	releaseRootPath := filepath.Join(request.OriginPath, filepath.FromSlash(configuration.ReleaseRoot))

	return fileset.Collect(resolvedSet, fileset.CollectOptions{
		SourcePath:        releaseRootPath,
		DestinationPrefix: "",
		Ignores:           fileset.NewIgnoreMatcher(implicitTreeIgnores, configuration.CommonIgnores),
		ReplacePrefix:     configuration.FileReplacePrefix,
		Provenance:        fileset.Provenance{Kind: fileset.RuleKindReleaseRoot, Source: configuration.ReleaseRoot},
	})
}

func (resolver *Resolver) collectLocalRules(resolvedSet *fileset.ResolvedFileSet, request Request) error {
	configuration := request.Configuration

	for ruleIndex, copyRule := range configuration.CopyLocal {
		resolver.logger.Debug(
			resolvingLocalRuleMessageConstant,
			zap.String(logFieldFromConstant, copyRule.From),
			zap.String(logFieldToConstant, copyRule.To),
		)

		collectError := fileset.Collect(resolvedSet, fileset.CollectOptions{
			SourcePath:        filepath.Join(request.OriginPath, filepath.FromSlash(copyRule.From)),
			DestinationPrefix: normalizedDestination(copyRule.To),
			Ignores:           fileset.NewIgnoreMatcher(implicitTreeIgnores, configuration.CommonIgnores, copyRule.Ignores),
			ReplacePrefix:     configuration.FileReplacePrefix,
			Provenance:        fileset.Provenance{Kind: fileset.RuleKindLocal, RuleIndex: ruleIndex, Source: copyRule.From},
		})
		if collectError != nil {
			return collectError
		}
	}
	return nil
}

// resolveRemoteRules fetches wheel and repository rules concurrently and
// returns their partial file sets in declared rule order.
func (resolver *Resolver) resolveRemoteRules(executionContext context.Context, request Request) ([]ruleResolution, error) {
	configuration := request.Configuration
	resolutionSlots := make([]ruleResolution, len(configuration.CopyWheelSrc)+len(configuration.CopyRepoSrc))

	resolutionGroup, groupContext := errgroup.WithContext(executionContext)
	resolutionGroup.SetLimit(resolver.concurrencyLimit)

	for wheelRuleIndex, wheelRule := range configuration.CopyWheelSrc {
		slotIndex := wheelRuleIndex
		currentRule := wheelRule
		resolutionGroup.Go(func() error {
			partialSet, resolutionError := resolver.resolveWheelRule(groupContext, request, slotIndex, currentRule)
			if resolutionError != nil {
				return resolutionError
			}
			resolutionSlots[slotIndex] = ruleResolution{destinationPrefix: normalizedDestination(currentRule.To), resolvedFiles: partialSet}
			return nil
		})
	}

	for repoRuleIndex, repoRule := range configuration.CopyRepoSrc {
		slotIndex := len(configuration.CopyWheelSrc) + repoRuleIndex
		currentRule := repoRule
		currentIndex := repoRuleIndex
		resolutionGroup.Go(func() error {
			partialSet, resolutionError := resolver.resolveRepoRule(groupContext, request, currentIndex, currentRule)
			if resolutionError != nil {
				return resolutionError
			}
			resolutionSlots[slotIndex] = ruleResolution{destinationPrefix: normalizedDestination(currentRule.To), resolvedFiles: partialSet}
			return nil
		})
	}

	if waitError := resolutionGroup.Wait(); waitError != nil {
		return nil, waitError
	}
	return resolutionSlots, nil
}

func (resolver *Resolver) resolveWheelRule(executionContext context.Context, request Request, ruleIndex int, wheelRule releaseconf.WheelRule) (*fileset.ResolvedFileSet, error) {
	configuration := request.Configuration
	packageName := wheelRule.PackageName
	if len(packageName) == 0 {
		packageName = path.Base(strings.ReplaceAll(wheelRule.From, "\\", "/"))
	}

	resolver.logger.Debug(
		resolvingWheelRuleMessageConstant,
		zap.String(logFieldFromConstant, wheelRule.From),
		zap.String(logFieldToConstant, wheelRule.To),
	)

	searchDirectory := filepath.Join(request.OriginPath, WheelOutputDirectoryName)
	artifact, locateError := LocateWheel(searchDirectory, packageName, wheelRule.Platform)
	if locateError != nil {
		return nil, locateError
	}

	extractionDirectory, directoryError := resolver.workspace.NewDirectory(wheelWorkspaceLabelConstant)
	if directoryError != nil {
		return nil, directoryError
	}
	if extractionError := ExtractWheel(artifact.Path, extractionDirectory); extractionError != nil {
		return nil, extractionError
	}

	resolver.logger.Debug(resolvingWheelRuleMessageConstant, zap.String(logFieldArtifactConstant, artifact.Path))

	partialSet := fileset.NewResolvedFileSet()
	collectError := fileset.Collect(partialSet, fileset.CollectOptions{
		SourcePath: extractionDirectory,
		Ignores:    fileset.NewIgnoreMatcher(baseWheelIgnores, configuration.CommonIgnores, wheelRule.Ignores),
		Provenance: fileset.Provenance{Kind: fileset.RuleKindWheel, RuleIndex: ruleIndex, Source: filepath.Base(artifact.Path)},
	})
	if collectError != nil {
		return nil, collectError
	}
	return partialSet, nil
}

func (resolver *Resolver) resolveRepoRule(executionContext context.Context, request Request, ruleIndex int, repoRule releaseconf.RepoRule) (*fileset.ResolvedFileSet, error) {
	configuration := request.Configuration

	for _, visitedAddress := range request.visitedAddresses {
		if visitedAddress == repoRule.From {
			return nil, &CyclicReleaseError{Chain: append(append([]string{}, request.visitedAddresses...), repoRule.From)}
		}
	}

	expandedRef, expansionError := ExpandRef(repoRule.Ref, repoRule.PackageName, func() (string, error) {
		if resolver.versionResolver == nil {
			return "", errors.New(versionResolverMissingMessageConstant)
		}
		return resolver.versionResolver.ResolveVersion(executionContext, request.OriginPath, repoRule.PackageName, configuration.DependencyGroups)
	})
	if expansionError != nil {
		return nil, &SourceFetchError{RemoteAddress: repoRule.From, Reference: repoRule.Ref, Cause: expansionError}
	}

	resolver.logger.Debug(
		resolvingRepoRuleMessageConstant,
		zap.String(logFieldFromConstant, repoRule.From),
		zap.String(logFieldRefConstant, expandedRef),
		zap.String(logFieldToConstant, repoRule.To),
	)

	cloneDirectory, directoryError := resolver.workspace.NewDirectory(repoWorkspaceLabelConstant)
	if directoryError != nil {
		return nil, directoryError
	}
	if cloneError := resolver.materializer.CloneAtRef(executionContext, repoRule.From, expandedRef, cloneDirectory); cloneError != nil {
		return nil, &SourceFetchError{RemoteAddress: repoRule.From, Reference: expandedRef, Cause: cloneError}
	}

	nestedConfiguration, nestedLoadError := releaseconf.Load(cloneDirectory)
	if nestedLoadError != nil {
		if !errors.Is(nestedLoadError, releaseconf.ErrConfigurationNotFound) {
			return nil, nestedLoadError
		}

		// Plain repositories without a nested configuration are copied whole.
		partialSet := fileset.NewResolvedFileSet()
		collectError := fileset.Collect(partialSet, fileset.CollectOptions{
			SourcePath: cloneDirectory,
			Ignores:    fileset.NewIgnoreMatcher(repositoryCloneIgnores, configuration.CommonIgnores),
			Provenance: fileset.Provenance{Kind: fileset.RuleKindRepo, RuleIndex: ruleIndex, Source: repoRule.From},
		})
		if collectError != nil {
			return nil, collectError
		}
		return partialSet, nil
	}

	resolver.logger.Debug(nestedConfigFoundMessageConstant, zap.String(logFieldFromConstant, repoRule.From))

	nestedRequest := Request{
		OriginPath:       cloneDirectory,
		Configuration:    nestedConfiguration.WithAdditionalIgnores(configuration.CommonIgnores),
		visitedAddresses: append(append([]string{}, request.visitedAddresses...), repoRule.From),
	}
	return resolver.Resolve(executionContext, nestedRequest)
}

func normalizedDestination(rawDestination string) string {
	normalizedPath, normalizationError := releaseconf.NormalizeRelativePath(rawDestination)
	if normalizationError != nil {
		// Validation rejects escaping destinations before resolution runs.
		return rawDestination
	}
	return normalizedPath
}
