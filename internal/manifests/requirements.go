package manifests

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/relpack/relpack/internal/execshell"
	"github.com/relpack/relpack/internal/sources"
)

const (
	// UVLockFileName marks an origin managed by uv.
	UVLockFileName = "uv.lock"
	// PoetryLockFileName marks an origin managed by poetry.
	PoetryLockFileName = "poetry.lock"
	// RequirementsFileName is the generated dependency manifest.
	RequirementsFileName = "requirements.txt"

	noLockFileMessageConstant        = "no uv.lock or poetry.lock found in origin"
	toolRunnerMissingMessageConstant = "tool runner not configured"

	exportSubcommandConstant         = "export"
	formatFlagConstant               = "--format"
	uvRequirementsFormatConstant     = "requirements-txt"
	poetryRequirementsFormatConstant = "requirements.txt"
	uvLockedFlagConstant             = "--locked"
	uvNoHashesFlagConstant           = "--no-hashes"
	uvGroupFlagConstant              = "--group"
	poetryWithoutHashesFlagConstant  = "--without-hashes"
	poetryWithFlagConstant           = "--with"

	requirementCommentPrefixConstant = "#"
	requirementOptionPrefixConstant  = "-"
	requirementPinSeparatorConstant  = "=="
	requirementMarkerSeparator       = ";"

	exportingRequirementsMessage = "exporting requirements"
	logFieldToolConstant         = "tool"
	logFieldOriginConstant       = "origin"
)

// Requirement is one pinned dependency from the exported manifest.
type Requirement struct {
	Name    string
	Version string
	Line    string
}

// ToolRunner executes the dependency management tools.
type ToolRunner interface {
	ExecuteUV(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecutePoetry(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// DetectLockTool inspects the directory for a supported lock file.
func DetectLockTool(directoryPath string) (execshell.ToolName, bool) {
	if fileExists(filepath.Join(directoryPath, UVLockFileName)) {
		return execshell.ToolUV, true
	}
	if fileExists(filepath.Join(directoryPath, PoetryLockFileName)) {
		return execshell.ToolPoetry, true
	}
	return "", false
}

func fileExists(filePath string) bool {
	fileInfo, statError := os.Stat(filePath)
	return statError == nil && !fileInfo.IsDir()
}

// Exporter produces the flattened requirements manifest for an origin tree.
type Exporter struct {
	logger     *zap.Logger
	toolRunner ToolRunner
}

// NewExporter constructs an Exporter.
func NewExporter(logger *zap.Logger, toolRunner ToolRunner) (*Exporter, error) {
	if toolRunner == nil {
		return nil, errors.New(toolRunnerMissingMessageConstant)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{logger: logger, toolRunner: toolRunner}, nil
}

// Export runs the origin's dependency tool and parses the pinned requirement
// lines from its output.
func (exporter *Exporter) Export(executionContext context.Context, originPath string, dependencyGroups []string) ([]Requirement, execshell.ToolName, error) {
	lockTool, lockToolFound := DetectLockTool(originPath)
	if !lockToolFound {
		return nil, "", errors.New(noLockFileMessageConstant)
	}

	exporter.logger.Debug(
		exportingRequirementsMessage,
		zap.String(logFieldToolConstant, string(lockTool)),
		zap.String(logFieldOriginConstant, originPath),
	)

	commandDetails := execshell.CommandDetails{
		Arguments:        exportArguments(lockTool, dependencyGroups),
		WorkingDirectory: originPath,
	}

	var executionResult execshell.ExecutionResult
	var executionError error
	switch lockTool {
	case execshell.ToolUV:
		executionResult, executionError = exporter.toolRunner.ExecuteUV(executionContext, commandDetails)
	default:
		executionResult, executionError = exporter.toolRunner.ExecutePoetry(executionContext, commandDetails)
	}
	if executionError != nil {
		return nil, lockTool, executionError
	}

	return ParseRequirements(executionResult.StandardOutput), lockTool, nil
}

func exportArguments(lockTool execshell.ToolName, dependencyGroups []string) []string {
	if lockTool == execshell.ToolUV {
		arguments := []string{exportSubcommandConstant, formatFlagConstant, uvRequirementsFormatConstant, uvLockedFlagConstant, uvNoHashesFlagConstant}
		for _, dependencyGroup := range dependencyGroups {
			arguments = append(arguments, uvGroupFlagConstant, dependencyGroup)
		}
		return arguments
	}

	arguments := []string{exportSubcommandConstant, formatFlagConstant, poetryRequirementsFormatConstant, poetryWithoutHashesFlagConstant}
	for _, dependencyGroup := range dependencyGroups {
		arguments = append(arguments, poetryWithFlagConstant, dependencyGroup)
	}
	return arguments
}

// ParseRequirements extracts pinned requirements from requirements.txt style
// content. Comment and option lines are dropped; environment markers after a
// semicolon do not contribute to the parsed name or version.
func ParseRequirements(manifestContent string) []Requirement {
	requirements := []Requirement{}
	for _, rawLine := range strings.Split(manifestContent, "\n") {
		trimmedLine := strings.TrimSpace(rawLine)
		if len(trimmedLine) == 0 ||
			strings.HasPrefix(trimmedLine, requirementCommentPrefixConstant) ||
			strings.HasPrefix(trimmedLine, requirementOptionPrefixConstant) {
			continue
		}

		specifierPart := strings.TrimSpace(strings.SplitN(trimmedLine, requirementMarkerSeparator, 2)[0])
		pinParts := strings.SplitN(specifierPart, requirementPinSeparatorConstant, 2)
		if len(pinParts) != 2 {
			continue
		}

		requirements = append(requirements, Requirement{
			Name:    strings.TrimSpace(pinParts[0]),
			Version: strings.TrimSpace(pinParts[1]),
			Line:    trimmedLine,
		})
	}
	return requirements
}

// FilterRequirements removes requirements whose name matches any of the glob
// patterns. Names are compared in normalized form.
func FilterRequirements(requirements []Requirement, filterPatterns []string) []Requirement {
	if len(filterPatterns) == 0 {
		return requirements
	}

	filteredRequirements := make([]Requirement, 0, len(requirements))
	for _, requirement := range requirements {
		if requirementMatchesAny(requirement, filterPatterns) {
			continue
		}
		filteredRequirements = append(filteredRequirements, requirement)
	}
	return filteredRequirements
}

func requirementMatchesAny(requirement Requirement, filterPatterns []string) bool {
	normalizedName := sources.NormalizePackageName(requirement.Name)
	for _, filterPattern := range filterPatterns {
		if matched, matchError := doublestar.Match(sources.NormalizePackageName(filterPattern), normalizedName); matchError == nil && matched {
			return true
		}
	}
	return false
}
