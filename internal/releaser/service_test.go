package releaser_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relpack/relpack/internal/execshell"
	"github.com/relpack/relpack/internal/releaseconf"
	"github.com/relpack/relpack/internal/releaser"
)

// fakeGit simulates the git surface with filesystem-backed change tracking:
// HasChanges compares the working tree against the tree snapshot taken at the
// last Commit, which makes idempotence observable.
type fakeGit struct {
	repositoriesByAddress map[string]map[string]string
	committedTrees        map[string]map[string]string
	commitMessages        []string
	committedAuthors      []string
	checkedOutBranches    []string
	pushedBranches        []string
	clonedAddresses       []string
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		repositoriesByAddress: map[string]map[string]string{},
		committedTrees:        map[string]map[string]string{},
	}
}

func (git *fakeGit) materialize(remoteAddress string, targetDirectory string) error {
	repositoryFiles, repositoryKnown := git.repositoriesByAddress[remoteAddress]
	if !repositoryKnown {
		return fmt.Errorf("unknown remote %q", remoteAddress)
	}
	for relativePath, fileContent := range repositoryFiles {
		absolutePath := filepath.Join(targetDirectory, filepath.FromSlash(relativePath))
		if directoryError := os.MkdirAll(filepath.Dir(absolutePath), 0o755); directoryError != nil {
			return directoryError
		}
		if writeError := os.WriteFile(absolutePath, []byte(fileContent), 0o644); writeError != nil {
			return writeError
		}
	}
	return nil
}

func (git *fakeGit) CloneAtRef(_ context.Context, remoteAddress string, reference string, targetDirectory string) error {
	git.clonedAddresses = append(git.clonedAddresses, remoteAddress+"@"+reference)
	return git.materialize(remoteAddress, targetDirectory)
}

func (git *fakeGit) Clone(_ context.Context, remoteAddress string, targetDirectory string) error {
	git.clonedAddresses = append(git.clonedAddresses, remoteAddress)
	return git.materialize(remoteAddress, targetDirectory)
}

func (git *fakeGit) CheckoutNewBranch(_ context.Context, _ string, branchName string) error {
	git.checkedOutBranches = append(git.checkedOutBranches, branchName)
	return nil
}

func (git *fakeGit) PushWithUpstream(_ context.Context, _ string, remoteName string, branchName string) error {
	git.pushedBranches = append(git.pushedBranches, remoteName+"/"+branchName)
	return nil
}

func (git *fakeGit) HeadCommit(_ context.Context, _ string) (string, error) {
	return "deadbeef", nil
}

func (git *fakeGit) CommitTimestamp(_ context.Context, _ string) (time.Time, error) {
	return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC), nil
}

func (git *fakeGit) StageAll(_ context.Context, _ string) error {
	return nil
}

func (git *fakeGit) HasChanges(_ context.Context, repositoryPath string) (bool, error) {
	currentTree, readError := readWorkingTree(repositoryPath)
	if readError != nil {
		return false, readError
	}
	committedTree, previouslyCommitted := git.committedTrees[repositoryPath]
	if !previouslyCommitted {
		return len(currentTree) > 0, nil
	}
	if len(currentTree) != len(committedTree) {
		return true, nil
	}
	for relativePath, fileContent := range currentTree {
		if committedTree[relativePath] != fileContent {
			return true, nil
		}
	}
	return false, nil
}

func (git *fakeGit) ConfigValue(_ context.Context, _ string, _ string) (string, error) {
	return "", nil
}

func (git *fakeGit) Commit(_ context.Context, repositoryPath string, commitMessage string, authorName string, authorEmail string) error {
	committedTree, readError := readWorkingTree(repositoryPath)
	if readError != nil {
		return readError
	}
	git.committedTrees[repositoryPath] = committedTree
	git.commitMessages = append(git.commitMessages, commitMessage)
	git.committedAuthors = append(git.committedAuthors, authorName+" <"+authorEmail+">")
	return nil
}

func readWorkingTree(rootPath string) (map[string]string, error) {
	treeContents := map[string]string{}
	walkError := filepath.WalkDir(rootPath, func(currentPath string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		if directoryEntry.IsDir() {
			if directoryEntry.Name() == ".git" || directoryEntry.Name() == ".idea" {
				return filepath.SkipDir
			}
			return nil
		}
		fileContent, readError := os.ReadFile(currentPath)
		if readError != nil {
			return readError
		}
		relativePath, relativeError := filepath.Rel(rootPath, currentPath)
		if relativeError != nil {
			return relativeError
		}
		treeContents[filepath.ToSlash(relativePath)] = string(fileContent)
		return nil
	})
	return treeContents, walkError
}

// releaseToolRunner serves requirement exports and optionally fails the lock
// regeneration step.
type releaseToolRunner struct {
	exportOutput string
	failLock     bool
	lockCalls    int
}

func (runner *releaseToolRunner) ExecuteUV(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	if len(details.Arguments) > 0 && details.Arguments[0] == "lock" {
		runner.lockCalls++
		if runner.failLock {
			return execshell.ExecutionResult{}, errors.New("resolution failed")
		}
		return execshell.ExecutionResult{}, nil
	}
	return execshell.ExecutionResult{StandardOutput: runner.exportOutput}, nil
}

func (runner *releaseToolRunner) ExecutePoetry(_ context.Context, _ execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}

func writeOriginTree(testInstance *testing.T, rootPath string, filesByPath map[string]string) {
	testInstance.Helper()
	for relativePath, fileContent := range filesByPath {
		absolutePath := filepath.Join(rootPath, filepath.FromSlash(relativePath))
		require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(testInstance, os.WriteFile(absolutePath, []byte(fileContent), 0o644))
	}
}

func newService(testInstance *testing.T, gitManager *fakeGit, toolRunner *releaseToolRunner, planOutput *bytes.Buffer) *releaser.Service {
	testInstance.Helper()
	service, constructionError := releaser.NewService(releaser.Dependencies{
		GitManager: gitManager,
		ToolRunner: toolRunner,
		PlanOutput: planOutput,
	})
	require.NoError(testInstance, constructionError)
	return service
}

const originManifestConstant = `[project]
name = "example"
version = "1.2.3"

[tool.relpack]
release-root = "release"
copy-requirements = true
add-version-json = true
remove-todo = true
common-ignores = ["*.env"]

[[tool.relpack.copy-local]]
from = "shared"
to = "libs/shared"
`

func newStandardOrigin(testInstance *testing.T) string {
	testInstance.Helper()
	originPath := testInstance.TempDir()
	writeOriginTree(testInstance, originPath, map[string]string{
		"pyproject.toml":    originManifestConstant,
		"uv.lock":           "lock",
		"release/main.py":   "print('main')  # TODO tighten\n",
		"release/local.env": "SECRET=1\n",
		"shared/util.py":    "print('util')\n",
	})
	return originPath
}

func newDestinationTree(testInstance *testing.T) string {
	testInstance.Helper()
	destinationPath := testInstance.TempDir()
	writeOriginTree(testInstance, destinationPath, map[string]string{
		".git/HEAD": "ref: refs/heads/main\n",
		"stale.py":  "old\n",
	})
	return destinationPath
}

func TestReleaseEndToEnd(testInstance *testing.T) {
	originPath := newStandardOrigin(testInstance)
	destinationPath := newDestinationTree(testInstance)

	gitManager := newFakeGit()
	toolRunner := &releaseToolRunner{exportOutput: "alpha==1.0.0\n"}
	service := newService(testInstance, gitManager, toolRunner, &bytes.Buffer{})

	result, releaseError := service.Release(context.Background(), releaser.Options{
		OriginPath:  originPath,
		Destination: destinationPath,
		AuthorName:  "Release Bot",
		AuthorEmail: "bot@example.com",
	})
	require.NoError(testInstance, releaseError)

	require.True(testInstance, result.Created)
	require.Equal(testInstance, []string{"Release 1.2.3"}, gitManager.commitMessages)
	require.Equal(testInstance, []string{"Release Bot <bot@example.com>"}, gitManager.committedAuthors)

	writtenTree, readError := readWorkingTree(destinationPath)
	require.NoError(testInstance, readError)
	require.NotContains(testInstance, writtenTree, "stale.py")
	require.NotContains(testInstance, writtenTree, "local.env")
	require.Equal(testInstance, "print('main')  # \n", writtenTree["main.py"])
	require.Equal(testInstance, "print('util')\n", writtenTree["libs/shared/util.py"])
	require.Equal(testInstance, "alpha==1.0.0\n", writtenTree["requirements.txt"])
	require.Contains(testInstance, writtenTree["version.json"], "\"release_id\": \"1.2.3\"")
	require.FileExists(testInstance, filepath.Join(destinationPath, ".git", "HEAD"))
}

// The service runs with its default wall clock here; the descriptor timestamp
// must come from the origin commit, not from the time of the run.
func TestReleaseIsIdempotent(testInstance *testing.T) {
	originPath := newStandardOrigin(testInstance)
	destinationPath := newDestinationTree(testInstance)

	gitManager := newFakeGit()
	toolRunner := &releaseToolRunner{exportOutput: "alpha==1.0.0\n"}
	service := newService(testInstance, gitManager, toolRunner, &bytes.Buffer{})

	options := releaser.Options{OriginPath: originPath, Destination: destinationPath, AuthorName: "Bot", AuthorEmail: "bot@example.com"}

	firstResult, firstError := service.Release(context.Background(), options)
	require.NoError(testInstance, firstError)
	require.True(testInstance, firstResult.Created)

	secondResult, secondError := service.Release(context.Background(), options)
	require.NoError(testInstance, secondError)
	require.False(testInstance, secondResult.Created)
	require.Len(testInstance, gitManager.commitMessages, 1)
}

func TestReleaseCollidingTargetsWriteNothing(testInstance *testing.T) {
	originPath := testInstance.TempDir()
	writeOriginTree(testInstance, originPath, map[string]string{
		"pyproject.toml": `[project]
version = "1.0.0"

[tool.relpack]
release-root = "release"

[[tool.relpack.copy-local]]
from = "a"
to = "services/x"

[[tool.relpack.copy-local]]
from = "b"
to = "services/x"
`,
		"release/main.py": "print('main')\n",
		"a/one.py":        "1\n",
		"b/two.py":        "2\n",
	})
	destinationPath := newDestinationTree(testInstance)

	service := newService(testInstance, newFakeGit(), &releaseToolRunner{}, &bytes.Buffer{})
	_, releaseError := service.Release(context.Background(), releaser.Options{OriginPath: originPath, Destination: destinationPath})

	configurationError := &releaseconf.ConfigError{}
	require.ErrorAs(testInstance, releaseError, &configurationError)
	require.FileExists(testInstance, filepath.Join(destinationPath, "stale.py"))
}

func TestReleaseDryRunWritesNothing(testInstance *testing.T) {
	originPath := newStandardOrigin(testInstance)
	destinationPath := newDestinationTree(testInstance)

	planBuffer := &bytes.Buffer{}
	gitManager := newFakeGit()
	service := newService(testInstance, gitManager, &releaseToolRunner{exportOutput: "alpha==1.0.0\n"}, planBuffer)

	result, releaseError := service.Release(context.Background(), releaser.Options{
		OriginPath:  originPath,
		Destination: destinationPath,
		DryRun:      true,
	})
	require.NoError(testInstance, releaseError)

	require.False(testInstance, result.Created)
	require.Empty(testInstance, gitManager.commitMessages)
	require.FileExists(testInstance, filepath.Join(destinationPath, "stale.py"))
	require.Contains(testInstance, planBuffer.String(), "main.py")
	require.Contains(testInstance, planBuffer.String(), "release-root")
}

func TestReleaseNestedRepositoryConfiguration(testInstance *testing.T) {
	originPath := testInstance.TempDir()
	writeOriginTree(testInstance, originPath, map[string]string{
		"pyproject.toml": `[project]
version = "1.0.0"

[tool.relpack]
release-root = "release"

[[tool.relpack.copy-repo-src]]
from = "git@example.com:org/example1.git"
to = "libs/example1"
ref = "main"
`,
		"release/main.py": "print('main')\n",
	})
	destinationPath := newDestinationTree(testInstance)

	gitManager := newFakeGit()
	gitManager.repositoriesByAddress["git@example.com:org/example1.git"] = map[string]string{
		"pyproject.toml": "[tool.relpack]\n[[tool.relpack.copy-local]]\nfrom = \"src\"\nto = \"pkg\"\n",
		"src/core.py":    "print('core')\n",
	}

	service := newService(testInstance, gitManager, &releaseToolRunner{}, &bytes.Buffer{})
	result, releaseError := service.Release(context.Background(), releaser.Options{
		OriginPath:  originPath,
		Destination: destinationPath,
		AuthorName:  "Bot",
		AuthorEmail: "bot@example.com",
	})
	require.NoError(testInstance, releaseError)
	require.True(testInstance, result.Created)

	writtenTree, readError := readWorkingTree(destinationPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "print('core')\n", writtenTree["libs/example1/pkg/core.py"])
}

func TestReleaseRemoteDestination(testInstance *testing.T) {
	originPath := newStandardOrigin(testInstance)
	remoteAddress := "git@example.com:org/dest.git"

	gitManager := newFakeGit()
	gitManager.repositoriesByAddress[remoteAddress] = map[string]string{
		".git/HEAD": "ref: refs/heads/main\n",
		"old.py":    "old\n",
	}

	service := newService(testInstance, gitManager, &releaseToolRunner{exportOutput: "alpha==1.0.0\n"}, &bytes.Buffer{})
	result, releaseError := service.Release(context.Background(), releaser.Options{
		OriginPath:  originPath,
		Destination: remoteAddress,
		AuthorName:  "Bot",
		AuthorEmail: "bot@example.com",
	})
	require.NoError(testInstance, releaseError)

	require.True(testInstance, result.Created)
	require.Equal(testInstance, []string{remoteAddress}, gitManager.clonedAddresses)
	require.Equal(testInstance, []string{"prepare_release_1.2.3"}, gitManager.checkedOutBranches)
	require.Equal(testInstance, []string{"origin/prepare_release_1.2.3"}, gitManager.pushedBranches)
}

func TestReleaseLockFailureLeavesTreeUncommitted(testInstance *testing.T) {
	originPath := testInstance.TempDir()
	writeOriginTree(testInstance, originPath, map[string]string{
		"pyproject.toml": `[project]
version = "1.0.0"

[tool.relpack]
release-root = "release"
generate-lockfile = true
`,
		"uv.lock":         "lock",
		"release/main.py": "print('main')\n",
	})
	destinationPath := newDestinationTree(testInstance)

	gitManager := newFakeGit()
	toolRunner := &releaseToolRunner{failLock: true}
	service := newService(testInstance, gitManager, toolRunner, &bytes.Buffer{})

	result, releaseError := service.Release(context.Background(), releaser.Options{
		OriginPath:  originPath,
		Destination: destinationPath,
	})

	require.Error(testInstance, releaseError)
	require.False(testInstance, result.Created)
	require.Equal(testInstance, 1, toolRunner.lockCalls)
	require.Empty(testInstance, gitManager.commitMessages)
	require.FileExists(testInstance, filepath.Join(destinationPath, "main.py"))
}

func TestIsRemoteDestination(testInstance *testing.T) {
	require.True(testInstance, releaser.IsRemoteDestination("git@example.com:org/repo.git"))
	require.True(testInstance, releaser.IsRemoteDestination("https://example.com/org/repo.git"))
	require.False(testInstance, releaser.IsRemoteDestination("/var/tmp/dest"))
	require.False(testInstance, releaser.IsRemoteDestination("relative/dest"))
}
