package destination_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relpack/relpack/internal/destination"
	"github.com/relpack/relpack/internal/fileset"
)

func newSetWithEntries(testInstance *testing.T, filesByPath map[string]string) *fileset.ResolvedFileSet {
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

func writeExistingFile(testInstance *testing.T, destinationPath string, relativePath string, content string) {
	testInstance.Helper()
	absolutePath := filepath.Join(destinationPath, filepath.FromSlash(relativePath))
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
	require.NoError(testInstance, os.WriteFile(absolutePath, []byte(content), 0o644))
}

func TestWriteReplacesDestinationContents(testInstance *testing.T) {
	destinationPath := testInstance.TempDir()
	writeExistingFile(testInstance, destinationPath, "stale.py", "old")
	writeExistingFile(testInstance, destinationPath, "old/nested.txt", "old")
	writeExistingFile(testInstance, destinationPath, ".git/config", "[core]")
	writeExistingFile(testInstance, destinationPath, ".idea/workspace.xml", "<xml/>")

	resolvedSet := newSetWithEntries(testInstance, map[string]string{
		"app/main.py": "print('main')\n",
		"README.md":   "release\n",
	})

	writeError := destination.NewWriter(nil).Write(context.Background(), destinationPath, resolvedSet)
	require.NoError(testInstance, writeError)

	writtenContent, readError := os.ReadFile(filepath.Join(destinationPath, "app", "main.py"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "print('main')\n", string(writtenContent))

	require.NoFileExists(testInstance, filepath.Join(destinationPath, "stale.py"))
	require.NoDirExists(testInstance, filepath.Join(destinationPath, "old"))
	require.FileExists(testInstance, filepath.Join(destinationPath, ".git", "config"))
	require.FileExists(testInstance, filepath.Join(destinationPath, ".idea", "workspace.xml"))
	require.NoFileExists(testInstance, filepath.Join(destinationPath, destination.LockFileName))
}

func TestWriteRejectsLockedDestination(testInstance *testing.T) {
	destinationPath := testInstance.TempDir()
	writeExistingFile(testInstance, destinationPath, destination.LockFileName, "")

	writeError := destination.NewWriter(nil).Write(context.Background(), destinationPath, fileset.NewResolvedFileSet())
	require.Error(testInstance, writeError)
	require.Contains(testInstance, writeError.Error(), "locked")
}

func TestWriteReleasesLockAfterRun(testInstance *testing.T) {
	destinationPath := testInstance.TempDir()
	resolvedSet := newSetWithEntries(testInstance, map[string]string{"a.txt": "a"})

	writer := destination.NewWriter(nil)
	require.NoError(testInstance, writer.Write(context.Background(), destinationPath, resolvedSet))
	require.NoError(testInstance, writer.Write(context.Background(), destinationPath, resolvedSet))
}

func TestWriteHonorsCancellation(testInstance *testing.T) {
	destinationPath := testInstance.TempDir()
	resolvedSet := newSetWithEntries(testInstance, map[string]string{"a.txt": "a"})

	cancelledContext, cancelFunction := context.WithCancel(context.Background())
	cancelFunction()

	writeError := destination.NewWriter(nil).Write(cancelledContext, destinationPath, resolvedSet)
	require.ErrorIs(testInstance, writeError, context.Canceled)
}
