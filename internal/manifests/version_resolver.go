package manifests

import (
	"context"
	"fmt"
	"sync"

	"github.com/relpack/relpack/internal/sources"
)

const (
	packageVersionMissingTemplateConstant = "package %q not present in exported requirements of %s"
)

// PackageVersionResolver answers version lookups for ref template expansion by
// exporting the origin's pinned requirements. Exports are cached per origin
// because concurrent repository rules share the same requirement set.
type PackageVersionResolver struct {
	exporter             *Exporter
	mutex                sync.Mutex
	requirementsByOrigin map[string][]Requirement
}

// NewPackageVersionResolver constructs a PackageVersionResolver.
func NewPackageVersionResolver(exporter *Exporter) *PackageVersionResolver {
	return &PackageVersionResolver{
		exporter:             exporter,
		requirementsByOrigin: map[string][]Requirement{},
	}
}

// ResolveVersion implements sources.VersionResolver.
func (resolver *PackageVersionResolver) ResolveVersion(executionContext context.Context, originPath string, packageName string, dependencyGroups []string) (string, error) {
	requirements, exportError := resolver.originRequirements(executionContext, originPath, dependencyGroups)
	if exportError != nil {
		return "", exportError
	}

	normalizedPackageName := sources.NormalizePackageName(packageName)
	for _, requirement := range requirements {
		if sources.NormalizePackageName(requirement.Name) == normalizedPackageName {
			return requirement.Version, nil
		}
	}
	return "", fmt.Errorf(packageVersionMissingTemplateConstant, packageName, originPath)
}

func (resolver *PackageVersionResolver) originRequirements(executionContext context.Context, originPath string, dependencyGroups []string) ([]Requirement, error) {
	resolver.mutex.Lock()
	defer resolver.mutex.Unlock()

	if cachedRequirements, cacheHit := resolver.requirementsByOrigin[originPath]; cacheHit {
		return cachedRequirements, nil
	}

	requirements, _, exportError := resolver.exporter.Export(executionContext, originPath, dependencyGroups)
	if exportError != nil {
		return nil, exportError
	}
	resolver.requirementsByOrigin[originPath] = requirements
	return requirements, nil
}
