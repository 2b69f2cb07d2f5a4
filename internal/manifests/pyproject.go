package manifests

import (
	"fmt"
	"strings"

	"github.com/relpack/relpack/internal/fileset"
	"github.com/relpack/relpack/internal/releaseconf"
)

const (
	// VersionPlaceholder is replaced with the release version in managed
	// manifest files.
	VersionPlaceholder = "VERSION-RELPACK-SUBST-HERE"

	emptyDependencyListConstant     = "dependencies = []"
	dependencyListOpeningConstant   = "dependencies = [\n"
	dependencyListClosingConstant   = "]"
	dependencyEntryTemplateConstant = "    \"%s\",\n"

	manifestMissingTemplateConstant = "managed manifest %s is not part of the release set"
	requirementsSourceLabelConstant = "requirements manifest"
)

// AddRequirementsManifest writes the filtered requirements as a
// requirements.txt at the root of the resolved set.
func AddRequirementsManifest(resolvedSet *fileset.ResolvedFileSet, requirements []Requirement) {
	manifestBuilder := strings.Builder{}
	for _, requirement := range requirements {
		manifestBuilder.WriteString(requirement.Line)
		manifestBuilder.WriteString("\n")
	}

	resolvedSet.Put(fileset.Entry{
		DestinationPath: RequirementsFileName,
		Provider:        fileset.BytesProvider([]byte(manifestBuilder.String())),
		Provenance:      fileset.Provenance{Kind: fileset.RuleKindGenerated, Source: requirementsSourceLabelConstant},
	})
}

// ManagePyproject rewrites the released pyproject.toml in place: the empty
// dependency list is filled with the pinned requirements and the version
// placeholder is replaced with the release version. The file's remaining
// formatting is preserved verbatim.
func ManagePyproject(resolvedSet *fileset.ResolvedFileSet, requirements []Requirement, releaseVersion string) error {
	manifestEntry, manifestPresent := resolvedSet.Lookup(releaseconf.ProjectManifestFileName)
	if !manifestPresent {
		return fmt.Errorf(manifestMissingTemplateConstant, releaseconf.ProjectManifestFileName)
	}

	manifestContent, readError := manifestEntry.Provider()
	if readError != nil {
		return readError
	}

	managedContent := string(manifestContent)
	managedContent = strings.ReplaceAll(managedContent, VersionPlaceholder, releaseVersion)
	managedContent = strings.Replace(managedContent, emptyDependencyListConstant, renderDependencyList(requirements), 1)

	manifestEntry.Provider = fileset.BytesProvider([]byte(managedContent))
	resolvedSet.Put(manifestEntry)
	return nil
}

func renderDependencyList(requirements []Requirement) string {
	if len(requirements) == 0 {
		return emptyDependencyListConstant
	}

	listBuilder := strings.Builder{}
	listBuilder.WriteString(dependencyListOpeningConstant)
	for _, requirement := range requirements {
		listBuilder.WriteString(fmt.Sprintf(dependencyEntryTemplateConstant, requirement.Line))
	}
	listBuilder.WriteString(dependencyListClosingConstant)
	return listBuilder.String()
}
