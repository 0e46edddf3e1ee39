// Package outdir maps folder paths onto the local output tree.
package outdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/kbexport/internal/model"
)

// dirPerm is used for every directory created under the output root.
const dirPerm = 0o750

// ErrEmptyRoot is returned by New when no output root is given.
var ErrEmptyRoot = errors.New("output root must not be empty")

// Builder resolves folder paths to directories below a fixed root.
// Labels are expected to be normalized already and are joined as-is.
type Builder struct {
	root string
}

// New returns a Builder rooted at root. The root is made absolute and
// created if it does not exist.
func New(root string) (*Builder, error) {
	if root == "" {
		return nil, ErrEmptyRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output root %q: %w", abs, err)
	}
	return &Builder{root: abs}, nil
}

// Root returns the absolute output root.
func (b *Builder) Root() string {
	return b.root
}

// Resolve returns the absolute directory for path, creating the whole chain
// on demand. An empty path resolves to the root. Resolving the same path
// twice returns the same directory and is not an error.
func (b *Builder) Resolve(path model.FolderPath) (string, error) {
	if path.IsEmpty() {
		return b.root, nil
	}
	dir := filepath.Join(append([]string{b.root}, path.Labels()...)...)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create directory %q: %w", dir, err)
	}
	return dir, nil
}
