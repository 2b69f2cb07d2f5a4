package releaseconf

// CopyRule binds a path inside the origin tree to a destination-relative path.
type CopyRule struct {
	From    string   `mapstructure:"from"`
	To      string   `mapstructure:"to"`
	Ignores []string `mapstructure:"ignores"`
}

// WheelRule requests a pre-built distribution artifact for a package/platform pair.
type WheelRule struct {
	From        string   `mapstructure:"from"`
	To          string   `mapstructure:"to"`
	Ignores     []string `mapstructure:"ignores"`
	Platform    string   `mapstructure:"platform"`
	PackageName string   `mapstructure:"package_name"`
}

// RepoRule materializes a remote repository at a templated ref under a destination prefix.
type RepoRule struct {
	From        string `mapstructure:"from"`
	To          string `mapstructure:"to"`
	Ref         string `mapstructure:"ref"`
	PackageName string `mapstructure:"package_name"`
	Platform    string `mapstructure:"platform"`
}

// PatchRule applies a regular expression substitution to destination files matching a glob.
type PatchRule struct {
	Glob  string `mapstructure:"glob"`
	Regex string `mapstructure:"regex"`
	Subst string `mapstructure:"subst"`
}

// Configuration describes one release operation end to end.
type Configuration struct {
	ReleaseRoot          string      `mapstructure:"release-root"`
	CopyRequirements     bool        `mapstructure:"copy-requirements"`
	ManagePyproject      bool        `mapstructure:"manage-pyproject"`
	GenerateLockfile     bool        `mapstructure:"generate-lockfile"`
	AddVersionDescriptor bool        `mapstructure:"add-version-json"`
	RemoveTodo           bool        `mapstructure:"remove-todo"`
	FileReplacePrefix    string      `mapstructure:"file-replace-prefix"`
	CommonIgnores        []string    `mapstructure:"common-ignores"`
	CopyLocal            []CopyRule  `mapstructure:"copy-local"`
	CopyWheelSrc         []WheelRule `mapstructure:"copy-wheel-src"`
	CopyRepoSrc          []RepoRule  `mapstructure:"copy-repo-src"`
	Patches              []PatchRule `mapstructure:"patches"`
	FilterRequirements   []string    `mapstructure:"filter-requirements-txt-matches"`
	DependencyGroups     []string    `mapstructure:"install-dependencies-with-groups"`

	// Version is resolved from [project] or [tool.poetry] of the same
	// pyproject.toml, not from the relpack table.
	Version string `mapstructure:"-"`
}

// WithAdditionalIgnores returns a copy of the configuration whose common
// ignores include the supplied parent patterns. Nested configurations inherit
// the parent's ignore set in addition to their own.
func (configuration Configuration) WithAdditionalIgnores(parentIgnores []string) Configuration {
	if len(parentIgnores) == 0 {
		return configuration
	}

	mergedIgnores := make([]string, 0, len(configuration.CommonIgnores)+len(parentIgnores))
	mergedIgnores = append(mergedIgnores, configuration.CommonIgnores...)
	for _, parentPattern := range parentIgnores {
		alreadyPresent := false
		for _, existingPattern := range mergedIgnores {
			if existingPattern == parentPattern {
				alreadyPresent = true
				break
			}
		}
		if !alreadyPresent {
			mergedIgnores = append(mergedIgnores, parentPattern)
		}
	}

	configuration.CommonIgnores = mergedIgnores
	return configuration
}
