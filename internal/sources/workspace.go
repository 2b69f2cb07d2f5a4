package sources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
)

const (
	workspacePatternConstant       = "relpack-*"
	workspaceClosedMessageConstant = "workspace already cleaned up"
	workspaceLabelTemplateConstant = "%s-%d"
)

// Workspace owns the temporary materialization directories of one release
// run. Every directory it hands out lives below a single temp root that is
// removed on Cleanup regardless of how the run ended.
type Workspace struct {
	rootDirectory string
	mutex         sync.Mutex
	counter       int
	closed        bool
}

// NewWorkspace creates the workspace temp root.
func NewWorkspace() (*Workspace, error) {
	rootDirectory, createError := os.MkdirTemp("", workspacePatternConstant)
	if createError != nil {
		return nil, createError
	}
	return &Workspace{rootDirectory: rootDirectory}, nil
}

// NewDirectory allocates a fresh empty directory below the workspace root.
func (workspace *Workspace) NewDirectory(label string) (string, error) {
	workspace.mutex.Lock()
	defer workspace.mutex.Unlock()

	if workspace.closed {
		return "", errors.New(workspaceClosedMessageConstant)
	}

	workspace.counter++
	directoryPath := filepath.Join(workspace.rootDirectory, fmt.Sprintf(workspaceLabelTemplateConstant, label, workspace.counter))
	if makeError := os.MkdirAll(directoryPath, 0o755); makeError != nil {
		return "", makeError
	}
	return directoryPath, nil
}

// Cleanup removes the workspace root and everything below it. It is safe to
// call more than once.
func (workspace *Workspace) Cleanup() error {
	workspace.mutex.Lock()
	defer workspace.mutex.Unlock()

	if workspace.closed {
		return nil
	}
	workspace.closed = true

	var cleanupError error
	if removeError := os.RemoveAll(workspace.rootDirectory); removeError != nil {
		cleanupError = multierr.Append(cleanupError, removeError)
	}
	return cleanupError
}
