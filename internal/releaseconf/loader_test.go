package releaseconf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relpack/relpack/internal/releaseconf"
)

const (
	testManifestContentConstant = `
[project]
name = "example"
version = "1.4.0"

[tool.relpack]
release-root = "packaging/release"
copy-requirements = true
manage-pyproject = true
generate-lockfile = true
add-version-json = true
remove-todo = true
file-replace-prefix = "release_"
common-ignores = ["__pycache__", "*.pyc"]
filter-requirements-txt-matches = ["internal-*"]
install-dependencies-with-groups = ["runtime"]
unknown-key = "ignored"

[[tool.relpack.copy-local]]
from = "src/library"
to = "library"

[[tool.relpack.copy-wheel-src]]
from = "vendor/fast_codec"
to = "vendor/fast-codec"
ignores = ["*.pyi"]
platform = "manylinux2014_x86_64"

[[tool.relpack.copy-repo-src]]
from = "git@example.com:team/example1.git"
to = "libs/example1"
ref = "$NAME$-$VERSION$"
package_name = "example1"

[[tool.relpack.patches]]
glob = "**/*.py"
regex = "internal\\.example\\.com"
subst = "example.com"
`
	testPoetryManifestContentConstant = `
[tool.poetry]
name = "example"
version = "0.9.1"

[tool.relpack]
release-root = "release"
`
	testManifestWithoutTableConstant = `
[project]
name = "example"
version = "1.0.0"
`
	testExpectedProjectVersionConstant = "1.4.0"
	testExpectedPoetryVersionConstant  = "0.9.1"
)

func writeManifest(t *testing.T, manifestContent string) string {
	t.Helper()
	originDirectory := t.TempDir()
	manifestPath := filepath.Join(originDirectory, releaseconf.ProjectManifestFileName)
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestContent), 0o600))
	return originDirectory
}

func TestLoadDecodesAllRecognizedKeys(t *testing.T) {
	originDirectory := writeManifest(t, testManifestContentConstant)

	configuration, loadError := releaseconf.Load(originDirectory)
	require.NoError(t, loadError)

	require.Equal(t, "packaging/release", configuration.ReleaseRoot)
	require.True(t, configuration.CopyRequirements)
	require.True(t, configuration.ManagePyproject)
	require.True(t, configuration.GenerateLockfile)
	require.True(t, configuration.AddVersionDescriptor)
	require.True(t, configuration.RemoveTodo)
	require.Equal(t, "release_", configuration.FileReplacePrefix)
	require.Equal(t, []string{"__pycache__", "*.pyc"}, configuration.CommonIgnores)
	require.Equal(t, []string{"internal-*"}, configuration.FilterRequirements)
	require.Equal(t, []string{"runtime"}, configuration.DependencyGroups)
	require.Equal(t, testExpectedProjectVersionConstant, configuration.Version)

	require.Len(t, configuration.CopyLocal, 1)
	require.Equal(t, "src/library", configuration.CopyLocal[0].From)
	require.Equal(t, "library", configuration.CopyLocal[0].To)

	require.Len(t, configuration.CopyWheelSrc, 1)
	require.Equal(t, "manylinux2014_x86_64", configuration.CopyWheelSrc[0].Platform)
	require.Equal(t, []string{"*.pyi"}, configuration.CopyWheelSrc[0].Ignores)

	require.Len(t, configuration.CopyRepoSrc, 1)
	require.Equal(t, "$NAME$-$VERSION$", configuration.CopyRepoSrc[0].Ref)
	require.Equal(t, "example1", configuration.CopyRepoSrc[0].PackageName)

	require.Len(t, configuration.Patches, 1)
	require.Equal(t, "**/*.py", configuration.Patches[0].Glob)
}

func TestLoadFallsBackToPoetryVersion(t *testing.T) {
	originDirectory := writeManifest(t, testPoetryManifestContentConstant)

	configuration, loadError := releaseconf.Load(originDirectory)
	require.NoError(t, loadError)
	require.Equal(t, testExpectedPoetryVersionConstant, configuration.Version)
}

func TestLoadReportsMissingConfiguration(t *testing.T) {
	originDirectory := writeManifest(t, testManifestWithoutTableConstant)

	_, loadError := releaseconf.Load(originDirectory)
	require.ErrorIs(t, loadError, releaseconf.ErrConfigurationNotFound)
}

func TestLoadReportsMissingManifest(t *testing.T) {
	_, loadError := releaseconf.Load(t.TempDir())
	require.ErrorIs(t, loadError, releaseconf.ErrConfigurationNotFound)
}

func TestLoadAcceptsConfigurationWithoutReleaseRoot(t *testing.T) {
	originDirectory := writeManifest(t, "[tool.relpack]\ncopy-requirements = true\n")

	configuration, loadError := releaseconf.Load(originDirectory)
	require.NoError(t, loadError)
	require.Empty(t, configuration.ReleaseRoot)
	require.True(t, configuration.CopyRequirements)
}
