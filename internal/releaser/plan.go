package releaser

import (
	"io"

	yaml "gopkg.in/yaml.v3"

	"github.com/relpack/relpack/internal/fileset"
)

// PlanFile is one entry of the dry-run plan.
type PlanFile struct {
	Path   string `yaml:"path"`
	Source string `yaml:"source"`
}

// Plan is the dry-run rendering of a resolved release.
type Plan struct {
	Destination string     `yaml:"destination"`
	Version     string     `yaml:"version,omitempty"`
	Files       []PlanFile `yaml:"files"`
}

// BuildPlan converts a resolved set into its dry-run plan.
func BuildPlan(destinationLabel string, releaseVersion string, resolvedSet *fileset.ResolvedFileSet) Plan {
	plan := Plan{Destination: destinationLabel, Version: releaseVersion}
	for _, destinationPath := range resolvedSet.Paths() {
		entry, _ := resolvedSet.Lookup(destinationPath)
		plan.Files = append(plan.Files, PlanFile{Path: destinationPath, Source: entry.Provenance.String()})
	}
	return plan
}

// Render writes the plan as YAML.
func (plan Plan) Render(output io.Writer) error {
	yamlEncoder := yaml.NewEncoder(output)
	defer yamlEncoder.Close()
	return yamlEncoder.Encode(plan)
}
