package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Workspace is a per-execution scratch directory holding the source file and
// the compiled artifact. It is removed when the execution finishes, on every
// path including failures.
type Workspace struct {
	Dir    string
	execID string
}

// NewWorkspace creates a scratch directory under root. An empty root falls
// back to the system temp dir.
func NewWorkspace(root, execID string) (*Workspace, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, wrapErr(execID, "workspace", fmt.Errorf("%w: %v", ErrWorkspace, err))
		}
	}
	dir, err := os.MkdirTemp(root, "exec-"+execID+"-")
	if err != nil {
		return nil, wrapErr(execID, "workspace", fmt.Errorf("%w: %v", ErrWorkspace, err))
	}
	return &Workspace{Dir: dir, execID: execID}, nil
}

// WriteSource writes the program source into the workspace and returns its path.
func (w *Workspace) WriteSource(name, source string) (string, error) {
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", wrapErr(w.execID, "write_source", fmt.Errorf("%w: %v", ErrWorkspace, err))
	}
	return path, nil
}

// BinaryPath returns the path the compiled artifact is written to.
func (w *Workspace) BinaryPath() string {
	return filepath.Join(w.Dir, "program")
}

// Remove deletes the workspace. Failures are logged, not returned; a leaked
// scratch dir must never fail the execution itself.
func (w *Workspace) Remove() {
	if err := os.RemoveAll(w.Dir); err != nil {
		log.Warn().
			Str("exec_id", w.execID).
			Str("dir", w.Dir).
			Err(err).
			Msg("workspace cleanup failed")
	}
}
