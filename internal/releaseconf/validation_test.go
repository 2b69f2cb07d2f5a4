package releaseconf_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relpack/relpack/internal/releaseconf"
)

const testReleaseRootConstant = "release"

func baseConfiguration() releaseconf.Configuration {
	return releaseconf.Configuration{ReleaseRoot: testReleaseRootConstant}
}

func requireConfigError(t *testing.T, validationError error) {
	t.Helper()
	require.Error(t, validationError)
	configurationError := &releaseconf.ConfigError{}
	require.ErrorAs(t, validationError, &configurationError)
}

func TestValidateAcceptsDisjointTargets(t *testing.T) {
	configuration := baseConfiguration()
	configuration.CopyLocal = []releaseconf.CopyRule{
		{From: "src/alpha", To: "alpha"},
		{From: "src/beta", To: "beta"},
	}
	configuration.CopyWheelSrc = []releaseconf.WheelRule{{From: "vendor/gamma", To: "vendor/gamma"}}
	configuration.CopyRepoSrc = []releaseconf.RepoRule{{From: "git@example.com:team/delta.git", To: "libs/delta", Ref: "main"}}

	require.NoError(t, releaseconf.Validate(configuration))
}

func TestValidateRejectsCollidingTargets(t *testing.T) {
	testCases := []struct {
		name     string
		firstTo  string
		secondTo string
	}{
		{name: "identical targets", firstTo: "services/x", secondTo: "services/x"},
		{name: "identical after normalization", firstTo: "services/x", secondTo: "./services//x"},
		{name: "nested target", firstTo: "services", secondTo: "services/x"},
		{name: "ancestor target", firstTo: "services/x/y", secondTo: "services/x"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			configuration := baseConfiguration()
			configuration.CopyLocal = []releaseconf.CopyRule{
				{From: "src/first", To: testCase.firstTo},
				{From: "src/second", To: testCase.secondTo},
			}
			requireConfigError(t, releaseconf.Validate(configuration))
		})
	}
}

func TestValidateRejectsNestedTargetsSeparatedByLexicalNeighbor(t *testing.T) {
	// "a-b" sorts between "a" and "a/b", so the nested pair is not adjacent.
	configuration := baseConfiguration()
	configuration.CopyLocal = []releaseconf.CopyRule{
		{From: "src/first", To: "a"},
		{From: "src/second", To: "a-b"},
		{From: "src/third", To: "a/b"},
	}

	requireConfigError(t, releaseconf.Validate(configuration))
}

func TestValidateRejectsCollisionsAcrossRuleKinds(t *testing.T) {
	configuration := baseConfiguration()
	configuration.CopyLocal = []releaseconf.CopyRule{{From: "src/library", To: "library"}}
	configuration.CopyRepoSrc = []releaseconf.RepoRule{{From: "git@example.com:team/library.git", To: "library/extra", Ref: "main"}}

	requireConfigError(t, releaseconf.Validate(configuration))
}

func TestValidateRejectsEscapingPaths(t *testing.T) {
	testCases := []struct {
		name          string
		configuration releaseconf.Configuration
	}{
		{
			name:          "escaping release root",
			configuration: releaseconf.Configuration{ReleaseRoot: "../outside"},
		},
		{
			name: "absolute destination",
			configuration: releaseconf.Configuration{
				ReleaseRoot: testReleaseRootConstant,
				CopyLocal:   []releaseconf.CopyRule{{From: "src", To: "/etc/passwd"}},
			},
		},
		{
			name: "escaping destination",
			configuration: releaseconf.Configuration{
				ReleaseRoot: testReleaseRootConstant,
				CopyLocal:   []releaseconf.CopyRule{{From: "src", To: "nested/../../outside"}},
			},
		},
		{
			name: "escaping source",
			configuration: releaseconf.Configuration{
				ReleaseRoot: testReleaseRootConstant,
				CopyLocal:   []releaseconf.CopyRule{{From: "../secrets", To: "dest"}},
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			requireConfigError(t, releaseconf.Validate(testCase.configuration))
		})
	}
}

func TestValidateRejectsRepoRuleWithoutRef(t *testing.T) {
	configuration := baseConfiguration()
	configuration.CopyRepoSrc = []releaseconf.RepoRule{{From: "git@example.com:team/library.git", To: "library"}}

	requireConfigError(t, releaseconf.Validate(configuration))
}

func TestValidateRejectsBrokenPatchRegex(t *testing.T) {
	configuration := baseConfiguration()
	configuration.Patches = []releaseconf.PatchRule{{Glob: "**/*.py", Regex: "([unclosed", Subst: ""}}

	requireConfigError(t, releaseconf.Validate(configuration))
}

func TestValidateRejectsBrokenIgnoreGlobs(t *testing.T) {
	testCases := []struct {
		name          string
		configuration releaseconf.Configuration
	}{
		{
			name: "common ignores",
			configuration: releaseconf.Configuration{
				ReleaseRoot:   testReleaseRootConstant,
				CommonIgnores: []string{"[broken"},
			},
		},
		{
			name: "copy-local rule ignores",
			configuration: releaseconf.Configuration{
				ReleaseRoot: testReleaseRootConstant,
				CopyLocal:   []releaseconf.CopyRule{{From: "src", To: "dest", Ignores: []string{"[broken"}}},
			},
		},
		{
			name: "copy-wheel-src rule ignores",
			configuration: releaseconf.Configuration{
				ReleaseRoot:  testReleaseRootConstant,
				CopyWheelSrc: []releaseconf.WheelRule{{From: "vendor/codec", To: "codec", Ignores: []string{"[broken"}}},
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			requireConfigError(t, releaseconf.Validate(testCase.configuration))
		})
	}
}

func TestWithAdditionalIgnoresMergesWithoutDuplicates(t *testing.T) {
	configuration := baseConfiguration()
	configuration.CommonIgnores = []string{"__pycache__", "*.pyc"}

	merged := configuration.WithAdditionalIgnores([]string{"*.pyc", "*.log"})
	require.Equal(t, []string{"__pycache__", "*.pyc", "*.log"}, merged.CommonIgnores)
	// the receiver stays untouched
	require.Equal(t, []string{"__pycache__", "*.pyc"}, configuration.CommonIgnores)
}
