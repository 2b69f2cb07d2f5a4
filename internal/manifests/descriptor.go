package manifests

import (
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/relpack/relpack/internal/fileset"
)

const (
	// VersionDescriptorFileName is the generated version descriptor.
	VersionDescriptorFileName = "version.json"

	semverSeparatorConstant      = "."
	preReleaseSeparatorConstant  = "-"
	buildMetadataSeparator       = "+"
	descriptorSourceLabel        = "version descriptor"
	descriptorIndentConstant     = "  "
	generatedTimestampLayoutName = time.RFC3339
)

// Clock supplies the fallback descriptor generation timestamp for origins
// whose commit timestamp cannot be read.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// VersionDescriptor is the structured release record written alongside the
// released files.
type VersionDescriptor struct {
	ReleaseID   string `json:"release_id"`
	SourceRef   string `json:"source_ref"`
	GeneratedAt string `json:"generated_at"`
	SemVer      string `json:"semver"`
	Major       int    `json:"major"`
	Minor       int    `json:"minor"`
	Patch       int    `json:"patch"`
}

// BuildVersionDescriptor assembles the descriptor for a release version and
// origin commit reference. The generation timestamp must be stable for an
// unchanged origin so that re-running a release stays a no-op; callers derive
// it from the origin head commit and only fall back to a Clock.
func BuildVersionDescriptor(releaseVersion string, sourceReference string, generatedAt time.Time) VersionDescriptor {
	majorComponent, minorComponent, patchComponent := splitSemanticVersion(releaseVersion)
	return VersionDescriptor{
		ReleaseID:   releaseVersion,
		SourceRef:   sourceReference,
		GeneratedAt: generatedAt.UTC().Format(generatedTimestampLayoutName),
		SemVer:      releaseVersion,
		Major:       majorComponent,
		Minor:       minorComponent,
		Patch:       patchComponent,
	}
}

// AddVersionDescriptor marshals the descriptor and places it at the root of
// the resolved set, replacing any source file of the same name.
func AddVersionDescriptor(resolvedSet *fileset.ResolvedFileSet, descriptor VersionDescriptor) error {
	descriptorContent, marshalError := json.MarshalIndent(descriptor, "", descriptorIndentConstant)
	if marshalError != nil {
		return marshalError
	}

	resolvedSet.Put(fileset.Entry{
		DestinationPath: VersionDescriptorFileName,
		Provider:        fileset.BytesProvider(append(descriptorContent, '\n')),
		Provenance:      fileset.Provenance{Kind: fileset.RuleKindGenerated, Source: descriptorSourceLabel},
	})
	return nil
}

// splitSemanticVersion extracts the numeric major/minor/patch components,
// tolerating pre-release and build metadata suffixes. Non-numeric components
// resolve to zero.
func splitSemanticVersion(versionString string) (int, int, int) {
	corePart := strings.SplitN(versionString, preReleaseSeparatorConstant, 2)[0]
	corePart = strings.SplitN(corePart, buildMetadataSeparator, 2)[0]

	versionComponents := strings.Split(corePart, semverSeparatorConstant)
	componentValue := func(componentIndex int) int {
		if componentIndex >= len(versionComponents) {
			return 0
		}
		parsedValue, parseError := strconv.Atoi(versionComponents[componentIndex])
		if parseError != nil {
			return 0
		}
		return parsedValue
	}
	return componentValue(0), componentValue(1), componentValue(2)
}
