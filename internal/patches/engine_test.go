package patches_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relpack/relpack/internal/fileset"
	"github.com/relpack/relpack/internal/patches"
	"github.com/relpack/relpack/internal/releaseconf"
)

func newSetWithFiles(testInstance *testing.T, filesByPath map[string]string) *fileset.ResolvedFileSet {
	testInstance.Helper()

	resolvedSet := fileset.NewResolvedFileSet()
	for destinationPath, fileContent := range filesByPath {
		insertError := resolvedSet.Insert(fileset.Entry{
			DestinationPath: destinationPath,
			Provider:        fileset.BytesProvider([]byte(fileContent)),
			Provenance:      fileset.Provenance{Kind: fileset.RuleKindReleaseRoot},
		})
		require.NoError(testInstance, insertError)
	}
	return resolvedSet
}

func entryContent(testInstance *testing.T, resolvedSet *fileset.ResolvedFileSet, destinationPath string) string {
	testInstance.Helper()
	entry, entryExists := resolvedSet.Lookup(destinationPath)
	require.True(testInstance, entryExists)
	content, providerError := entry.Provider()
	require.NoError(testInstance, providerError)
	return string(content)
}

func TestApplyRewritesMatchingFiles(testInstance *testing.T) {
	resolvedSet := newSetWithFiles(testInstance, map[string]string{
		"pkg/settings.py": "DEBUG = True\nHOST = \"localhost\"\n",
		"pkg/readme.md":   "DEBUG = True\n",
	})

	summary, applyError := patches.NewEngine(nil).Apply(resolvedSet, []releaseconf.PatchRule{
		{Glob: "**/*.py", Regex: `^DEBUG = True$`, Subst: "DEBUG = False"},
	})
	require.NoError(testInstance, applyError)

	require.Equal(testInstance, 1, summary.FilesChanged)
	require.Equal(testInstance, "DEBUG = False\nHOST = \"localhost\"\n", entryContent(testInstance, resolvedSet, "pkg/settings.py"))
	require.Equal(testInstance, "DEBUG = True\n", entryContent(testInstance, resolvedSet, "pkg/readme.md"))
}

func TestApplyMatchesCaseInsensitively(testInstance *testing.T) {
	resolvedSet := newSetWithFiles(testInstance, map[string]string{
		"config.ini": "Endpoint = HTTP://EXAMPLE.COM\n",
	})

	_, applyError := patches.NewEngine(nil).Apply(resolvedSet, []releaseconf.PatchRule{
		{Glob: "config.ini", Regex: `http://`, Subst: "https://"},
	})
	require.NoError(testInstance, applyError)
	require.Equal(testInstance, "Endpoint = https://EXAMPLE.COM\n", entryContent(testInstance, resolvedSet, "config.ini"))
}

func TestApplyRunsRulesInDeclaredOrder(testInstance *testing.T) {
	resolvedSet := newSetWithFiles(testInstance, map[string]string{
		"app.py": "value = alpha\n",
	})

	_, applyError := patches.NewEngine(nil).Apply(resolvedSet, []releaseconf.PatchRule{
		{Glob: "app.py", Regex: `alpha`, Subst: "beta"},
		{Glob: "app.py", Regex: `beta`, Subst: "gamma"},
	})
	require.NoError(testInstance, applyError)

	// The second rule rewrites the first rule's output.
	require.Equal(testInstance, "value = gamma\n", entryContent(testInstance, resolvedSet, "app.py"))
}

func TestApplySkipsBinaryContent(testInstance *testing.T) {
	binaryContent := string([]byte{0x7f, 0x45, 0x4c, 0x46, 0x00, 0x61})
	resolvedSet := newSetWithFiles(testInstance, map[string]string{
		"data/blob.py": binaryContent,
	})

	summary, applyError := patches.NewEngine(nil).Apply(resolvedSet, []releaseconf.PatchRule{
		{Glob: "**/*.py", Regex: `a`, Subst: "b"},
	})
	require.NoError(testInstance, applyError)

	require.Equal(testInstance, 0, summary.FilesChanged)
	require.Equal(testInstance, binaryContent, entryContent(testInstance, resolvedSet, "data/blob.py"))
}

func TestApplyReportsInvalidExpression(testInstance *testing.T) {
	resolvedSet := newSetWithFiles(testInstance, map[string]string{"app.py": "x\n"})

	_, applyError := patches.NewEngine(nil).Apply(resolvedSet, []releaseconf.PatchRule{
		{Glob: "app.py", Regex: `(`, Subst: ""},
	})
	require.Error(testInstance, applyError)
}

func TestRemoveTodos(testInstance *testing.T) {
	resolvedSet := newSetWithFiles(testInstance, map[string]string{
		"pkg/tasks.py": "# TODO drop this shim\nx = 1  # keep TODO until v2\ny = 2  # regular comment\nz = 3  # TODO one TODO two\n",
		"notes.txt":    "# TODO not python\n",
	})

	summary, removeError := patches.NewEngine(nil).RemoveTodos(resolvedSet)
	require.NoError(testInstance, removeError)

	require.Equal(testInstance, 1, summary.FilesChanged)
	// greedy match: only the last TODO remark on a line is dropped
	require.Equal(testInstance, "# \nx = 1  # keep \ny = 2  # regular comment\nz = 3  # TODO one \n", entryContent(testInstance, resolvedSet, "pkg/tasks.py"))
	require.Equal(testInstance, "# TODO not python\n", entryContent(testInstance, resolvedSet, "notes.txt"))
}
