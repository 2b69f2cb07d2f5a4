package destination

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relpack/relpack/internal/fileset"
)

const (
	// LockFileName guards a destination tree against concurrent release runs.
	LockFileName = ".relpack.lock"

	temporaryFilePatternConstant = ".relpack-tmp-*"

	destinationLockedTemplateConstant = "destination %s is locked by another release run"
	entryContentTemplateConstant      = "unable to read content for %s: %w"

	wipingDestinationMessageConstant = "wiping destination tree"
	writingFilesMessageConstant      = "writing release files"
	logFieldDestinationConstant      = "destination"
	logFieldFileCountConstant        = "files"
)

// Control directories that survive the destination wipe.
var reservedDirectoryNames = map[string]bool{
	".git":  true,
	".idea": true,
}

// Writer replaces a destination working tree with a resolved file set.
type Writer struct {
	logger *zap.Logger
}

// NewWriter constructs a Writer.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger}
}

// Write locks the destination, removes everything except reserved control
// directories, and writes each entry of the set. A failure partway through
// leaves the tree partially written for inspection; only the later commit
// decides what becomes history.
func (writer *Writer) Write(executionContext context.Context, destinationPath string, resolvedSet *fileset.ResolvedFileSet) (writeError error) {
	releaseLock, lockError := acquireLock(destinationPath)
	if lockError != nil {
		return lockError
	}
	defer func() {
		writeError = multierr.Append(writeError, releaseLock())
	}()

	writer.logger.Debug(wipingDestinationMessageConstant, zap.String(logFieldDestinationConstant, destinationPath))
	if wipeError := wipeTree(destinationPath); wipeError != nil {
		return wipeError
	}

	writer.logger.Debug(
		writingFilesMessageConstant,
		zap.String(logFieldDestinationConstant, destinationPath),
		zap.Int(logFieldFileCountConstant, resolvedSet.Len()),
	)
	for _, destinationRelativePath := range resolvedSet.Paths() {
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}
		entry, _ := resolvedSet.Lookup(destinationRelativePath)
		if entryError := writeEntry(destinationPath, entry); entryError != nil {
			return entryError
		}
	}
	return nil
}

// acquireLock creates the advisory lock file exclusively and returns its
// release function.
func acquireLock(destinationPath string) (func() error, error) {
	lockFilePath := filepath.Join(destinationPath, LockFileName)
	lockFile, createError := os.OpenFile(lockFilePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if createError != nil {
		if os.IsExist(createError) {
			return nil, fmt.Errorf(destinationLockedTemplateConstant, destinationPath)
		}
		return nil, createError
	}

	return func() error {
		return multierr.Append(lockFile.Close(), os.Remove(lockFilePath))
	}, nil
}

// wipeTree removes every top-level entry except reserved directories and the
// lock file, aggregating removal failures.
func wipeTree(destinationPath string) error {
	directoryEntries, readError := os.ReadDir(destinationPath)
	if readError != nil {
		return readError
	}

	var wipeError error
	for _, directoryEntry := range directoryEntries {
		entryName := directoryEntry.Name()
		if reservedDirectoryNames[entryName] || entryName == LockFileName {
			continue
		}
		wipeError = multierr.Append(wipeError, os.RemoveAll(filepath.Join(destinationPath, entryName)))
	}
	return wipeError
}

// writeEntry writes one file through a temporary sibling and rename.
func writeEntry(destinationPath string, entry fileset.Entry) error {
	entryContent, providerError := entry.Provider()
	if providerError != nil {
		return fmt.Errorf(entryContentTemplateConstant, entry.DestinationPath, providerError)
	}

	absolutePath := filepath.Join(destinationPath, filepath.FromSlash(entry.DestinationPath))
	parentDirectory := filepath.Dir(absolutePath)
	if makeError := os.MkdirAll(parentDirectory, 0o755); makeError != nil {
		return makeError
	}

	temporaryFile, createError := os.CreateTemp(parentDirectory, temporaryFilePatternConstant)
	if createError != nil {
		return createError
	}
	temporaryPath := temporaryFile.Name()

	if _, contentError := temporaryFile.Write(entryContent); contentError != nil {
		closeError := temporaryFile.Close()
		removeError := os.Remove(temporaryPath)
		return multierr.Combine(contentError, closeError, removeError)
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		return multierr.Append(closeError, os.Remove(temporaryPath))
	}
	if chmodError := os.Chmod(temporaryPath, 0o644); chmodError != nil {
		return multierr.Append(chmodError, os.Remove(temporaryPath))
	}
	return os.Rename(temporaryPath, absolutePath)
}
