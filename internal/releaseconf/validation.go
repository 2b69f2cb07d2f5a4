package releaseconf

import (
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	ruleListCopyLocalLabelConstant    = "copy-local"
	ruleListCopyWheelSrcLabelConstant = "copy-wheel-src"
	ruleListCopyRepoSrcLabelConstant  = "copy-repo-src"

	pathSeparatorConstant          = "/"
	windowsPathSeparatorConstant   = "\\"
	parentDirectorySegmentConstant = ".."

	emptyPathDetailTemplate          = "%s rule %d has an empty %q path"
	absolutePathDetailTemplate       = "%s rule %d path %q must be relative"
	escapingPathDetailTemplate       = "%s rule %d path %q escapes the tree root"
	releaseRootEscapeDetailTemplate  = "release-root %q escapes the origin root"
	duplicateTargetDetailTemplate    = "destination path %q is targeted by both %s and %s"
	nestedTargetDetailTemplate       = "destination path %q (%s) is nested under %q (%s)"
	repoRefMissingDetailTemplate     = "copy-repo-src rule %d (%s) has no ref"
	invalidRegexDetailTemplate       = "patch %d regex %q does not compile: %v"
	invalidGlobDetailTemplate        = "glob pattern %q is invalid"
	fromFieldNameConstant            = "from"
	toFieldNameConstant              = "to"
)

type destinationTarget struct {
	normalizedPath string
	ruleLabel      string
}

// NormalizeRelativePath canonicalizes a configured path to slash-separated,
// cleaned, relative form. It rejects absolute paths and paths escaping the
// tree root.
func NormalizeRelativePath(rawPath string) (string, *ConfigError) {
	slashPath := strings.ReplaceAll(rawPath, windowsPathSeparatorConstant, pathSeparatorConstant)
	if strings.HasPrefix(slashPath, pathSeparatorConstant) {
		return "", NewConfigError("path %q must be relative", rawPath)
	}

	cleanedPath := path.Clean(slashPath)
	if cleanedPath == parentDirectorySegmentConstant || strings.HasPrefix(cleanedPath, parentDirectorySegmentConstant+pathSeparatorConstant) {
		return "", NewConfigError("path %q escapes the tree root", rawPath)
	}

	return cleanedPath, nil
}

// Validate checks structural invariants of a configuration: confined relative
// paths, collision-free destination targets, compilable patch expressions,
// and well-formed glob patterns. It performs no I/O.
func Validate(configuration Configuration) error {
	if rootError := validateReleaseRoot(configuration.ReleaseRoot); rootError != nil {
		return rootError
	}

	destinationTargets, targetsError := collectDestinationTargets(configuration)
	if targetsError != nil {
		return targetsError
	}
	if collisionError := detectTargetCollisions(destinationTargets); collisionError != nil {
		return collisionError
	}

	for repoRuleIndex, repoRule := range configuration.CopyRepoSrc {
		if len(strings.TrimSpace(repoRule.Ref)) == 0 {
			return NewConfigError(repoRefMissingDetailTemplate, repoRuleIndex, repoRule.From)
		}
	}

	for patchIndex, patchRule := range configuration.Patches {
		if _, compileError := regexp.Compile(patchRule.Regex); compileError != nil {
			return NewConfigError(invalidRegexDetailTemplate, patchIndex, patchRule.Regex, compileError)
		}
		if globError := validateGlobPattern(patchRule.Glob); globError != nil {
			return globError
		}
	}

	for _, ignorePattern := range configuration.CommonIgnores {
		if globError := validateGlobPattern(ignorePattern); globError != nil {
			return globError
		}
	}
	for _, copyRule := range configuration.CopyLocal {
		for _, ignorePattern := range copyRule.Ignores {
			if globError := validateGlobPattern(ignorePattern); globError != nil {
				return globError
			}
		}
	}
	for _, wheelRule := range configuration.CopyWheelSrc {
		for _, ignorePattern := range wheelRule.Ignores {
			if globError := validateGlobPattern(ignorePattern); globError != nil {
				return globError
			}
		}
	}
	for _, filterPattern := range configuration.FilterRequirements {
		if globError := validateGlobPattern(filterPattern); globError != nil {
			return globError
		}
	}

	return nil
}

func validateReleaseRoot(releaseRoot string) error {
	if _, normalizationError := NormalizeRelativePath(releaseRoot); normalizationError != nil {
		return NewConfigError(releaseRootEscapeDetailTemplate, releaseRoot)
	}
	return nil
}

func collectDestinationTargets(configuration Configuration) ([]destinationTarget, error) {
	targets := make([]destinationTarget, 0, len(configuration.CopyLocal)+len(configuration.CopyWheelSrc)+len(configuration.CopyRepoSrc))

	appendTarget := func(ruleListLabel string, ruleIndex int, fromPath string, toPath string, fromConfined bool) error {
		if fromConfined {
			if len(strings.TrimSpace(fromPath)) == 0 {
				return NewConfigError(emptyPathDetailTemplate, ruleListLabel, ruleIndex, fromFieldNameConstant)
			}
			if _, fromError := NormalizeRelativePath(fromPath); fromError != nil {
				return NewConfigError(escapingPathDetailTemplate, ruleListLabel, ruleIndex, fromPath)
			}
		}

		if len(strings.TrimSpace(toPath)) == 0 {
			return NewConfigError(emptyPathDetailTemplate, ruleListLabel, ruleIndex, toFieldNameConstant)
		}
		normalizedTo, toError := NormalizeRelativePath(toPath)
		if toError != nil {
			return NewConfigError(escapingPathDetailTemplate, ruleListLabel, ruleIndex, toPath)
		}

		targets = append(targets, destinationTarget{normalizedPath: normalizedTo, ruleLabel: ruleListLabel})
		return nil
	}

	for ruleIndex, copyRule := range configuration.CopyLocal {
		if appendError := appendTarget(ruleListCopyLocalLabelConstant, ruleIndex, copyRule.From, copyRule.To, true); appendError != nil {
			return nil, appendError
		}
	}
	for ruleIndex, wheelRule := range configuration.CopyWheelSrc {
		if appendError := appendTarget(ruleListCopyWheelSrcLabelConstant, ruleIndex, wheelRule.From, wheelRule.To, true); appendError != nil {
			return nil, appendError
		}
	}
	for ruleIndex, repoRule := range configuration.CopyRepoSrc {
		// Remote addresses are not origin-confined paths.
		if appendError := appendTarget(ruleListCopyRepoSrcLabelConstant, ruleIndex, repoRule.From, repoRule.To, false); appendError != nil {
			return nil, appendError
		}
	}

	return targets, nil
}

// detectTargetCollisions rejects destination targets that are equal or where
// one is an ancestor of another. Every pair is compared directly; lexical
// neighbors are not sufficient since characters such as '-' sort before '/'
// and can separate an ancestor from its descendants.
func detectTargetCollisions(targets []destinationTarget) error {
	for firstIndex := 0; firstIndex < len(targets); firstIndex++ {
		for secondIndex := firstIndex + 1; secondIndex < len(targets); secondIndex++ {
			firstTarget := targets[firstIndex]
			secondTarget := targets[secondIndex]

			if firstTarget.normalizedPath == secondTarget.normalizedPath {
				return NewConfigError(duplicateTargetDetailTemplate, secondTarget.normalizedPath, firstTarget.ruleLabel, secondTarget.ruleLabel)
			}
			if strings.HasPrefix(secondTarget.normalizedPath, firstTarget.normalizedPath+pathSeparatorConstant) {
				return NewConfigError(nestedTargetDetailTemplate, secondTarget.normalizedPath, secondTarget.ruleLabel, firstTarget.normalizedPath, firstTarget.ruleLabel)
			}
			if strings.HasPrefix(firstTarget.normalizedPath, secondTarget.normalizedPath+pathSeparatorConstant) {
				return NewConfigError(nestedTargetDetailTemplate, firstTarget.normalizedPath, firstTarget.ruleLabel, secondTarget.normalizedPath, secondTarget.ruleLabel)
			}
		}
	}

	return nil
}

func validateGlobPattern(globPattern string) error {
	if !doublestar.ValidatePattern(globPattern) {
		return NewConfigError(invalidGlobDetailTemplate, globPattern)
	}
	return nil
}
