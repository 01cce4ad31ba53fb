// Package layout holds the absolute directory layout of a book and resolves
// template-supplied paths against it.
package layout

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Layout is the set of absolute directories a run works against. It is
// computed once per run and never mutated.
type Layout struct {
	RootDir     string
	SourceDir   string
	TemplateDir string
	BuildDir    string
}

// New builds a Layout. Relative src, templates and build directories are
// joined onto root; absolute ones are kept as given.
func New(root, src, templates, build string) (*Layout, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve book root %q: %w", root, err)
	}
	return &Layout{
		RootDir:     absRoot,
		SourceDir:   under(absRoot, src),
		TemplateDir: under(absRoot, templates),
		BuildDir:    under(absRoot, build),
	}, nil
}

func under(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// ParentDir returns the directory component of p. A bare file name has an
// empty (but present) parent; an empty path or a filesystem root has none.
func ParentDir(p string) (string, bool) {
	const seps = `/` + string(filepath.Separator)
	trimmed := strings.TrimRight(p, seps)
	if trimmed == "" {
		return "", false
	}
	i := strings.LastIndexAny(trimmed, seps)
	switch {
	case i < 0:
		return "", true
	case i == 0:
		return trimmed[:1], true
	}
	return strings.TrimRight(trimmed[:i], seps), true
}
