package fileset_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relpack/relpack/internal/fileset"
)

const (
	testFileContentConstant      = "content"
	testLocalSourceLabelConstant = "src/library"
	testRepoSourceLabelConstant  = "git@example.com:team/example1.git"
)

func localEntry(destinationPath string) fileset.Entry {
	return fileset.Entry{
		DestinationPath: destinationPath,
		Provider:        fileset.BytesProvider([]byte(testFileContentConstant)),
		Provenance:      fileset.Provenance{Kind: fileset.RuleKindLocal, Source: testLocalSourceLabelConstant},
	}
}

func TestInsertRejectsDuplicatePaths(t *testing.T) {
	set := fileset.NewResolvedFileSet()
	require.NoError(t, set.Insert(localEntry("library/module.py")))

	insertError := set.Insert(fileset.Entry{
		DestinationPath: "library/module.py",
		Provider:        fileset.BytesProvider(nil),
		Provenance:      fileset.Provenance{Kind: fileset.RuleKindRepo, RuleIndex: 2, Source: testRepoSourceLabelConstant},
	})

	collisionError := &fileset.PathCollisionError{}
	require.ErrorAs(t, insertError, &collisionError)
	require.Equal(t, "library/module.py", collisionError.DestinationPath)
	require.Equal(t, fileset.RuleKindLocal, collisionError.ExistingProvenance.Kind)
	require.Equal(t, fileset.RuleKindRepo, collisionError.IncomingProvenance.Kind)
}

func TestInsertRejectsFileShadowingDirectory(t *testing.T) {
	set := fileset.NewResolvedFileSet()
	require.NoError(t, set.Insert(localEntry("library/module.py")))

	collisionError := &fileset.PathCollisionError{}
	require.ErrorAs(t, set.Insert(localEntry("library")), &collisionError)
}

func TestInsertRejectsFileBelowExistingFile(t *testing.T) {
	set := fileset.NewResolvedFileSet()
	require.NoError(t, set.Insert(localEntry("library")))

	collisionError := &fileset.PathCollisionError{}
	require.ErrorAs(t, set.Insert(localEntry("library/module.py")), &collisionError)
}

func TestPutReplacesExistingEntry(t *testing.T) {
	set := fileset.NewResolvedFileSet()
	require.NoError(t, set.Insert(localEntry("requirements.txt")))

	replacementContent := []byte("alpha==1.0.0\n")
	set.Put(fileset.Entry{
		DestinationPath: "requirements.txt",
		Provider:        fileset.BytesProvider(replacementContent),
		Provenance:      fileset.Provenance{Kind: fileset.RuleKindGenerated},
	})

	require.Equal(t, 1, set.Len())
	entry, entryExists := set.Lookup("requirements.txt")
	require.True(t, entryExists)
	require.Equal(t, fileset.RuleKindGenerated, entry.Provenance.Kind)

	entryContent, providerError := entry.Provider()
	require.NoError(t, providerError)
	require.Equal(t, replacementContent, entryContent)
}

func TestMergeUnderPrefixesEveryEntry(t *testing.T) {
	nestedSet := fileset.NewResolvedFileSet()
	require.NoError(t, nestedSet.Insert(localEntry("pkg/module.py")))
	require.NoError(t, nestedSet.Insert(localEntry("pkg/util.py")))

	parentSet := fileset.NewResolvedFileSet()
	require.NoError(t, parentSet.MergeUnder("libs/example1", nestedSet))
	require.Equal(t, []string{"libs/example1/pkg/module.py", "libs/example1/pkg/util.py"}, parentSet.Paths())
}

func TestMergeUnderPropagatesCollisions(t *testing.T) {
	nestedSet := fileset.NewResolvedFileSet()
	require.NoError(t, nestedSet.Insert(localEntry("pkg/module.py")))

	parentSet := fileset.NewResolvedFileSet()
	require.NoError(t, parentSet.Insert(localEntry("libs/example1/pkg/module.py")))

	collisionError := &fileset.PathCollisionError{}
	require.ErrorAs(t, parentSet.MergeUnder("libs/example1", nestedSet), &collisionError)
}

func TestPathsAreSorted(t *testing.T) {
	set := fileset.NewResolvedFileSet()
	require.NoError(t, set.Insert(localEntry("zeta.py")))
	require.NoError(t, set.Insert(localEntry("alpha.py")))
	require.NoError(t, set.Insert(localEntry("beta/gamma.py")))

	require.Equal(t, []string{"alpha.py", "beta/gamma.py", "zeta.py"}, set.Paths())
}
