package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrMissingChapter is returned when a chapter-relative anchor is used
// outside of a chapter, or the chapter has no source directory.
var ErrMissingChapter = errors.New("missing chapter context")

// ErrOutsideRoot is returned by ResolveConfined for the absolute anchor and
// for paths that leave the book root.
var ErrOutsideRoot = errors.New("path outside the book root")

// Anchor names the base directory a relative path is resolved against.
type Anchor int

const (
	Absolute Anchor = iota
	Root
	Source
	Template
	Build
	Chapter
	ChapterBuild
)

var anchorNames = map[Anchor]string{
	Absolute:     "absolute",
	Root:         "root",
	Source:       "source",
	Template:     "template",
	Build:        "build",
	Chapter:      "chapter",
	ChapterBuild: "chapterbuild",
}

func (a Anchor) String() string {
	if name, ok := anchorNames[a]; ok {
		return name
	}
	return fmt.Sprintf("anchor(%d)", int(a))
}

// ParseAnchor maps a textual anchor name, case-insensitively, to its Anchor.
func ParseAnchor(s string) (Anchor, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for a, name := range anchorNames {
		if name == want {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown path anchor %q (expected one of absolute, root, source, template, build, chapter, chapterbuild)", s)
}

// ChapterContext is the part of the current chapter that chapter-relative
// anchors need.
type ChapterContext interface {
	SourceDir() (string, bool)
}

// Resolve joins rel onto the directory named by anchor. Chapter and
// ChapterBuild use the chapter's source directory as an extra component;
// they fail with ErrMissingChapter when ch is nil or has no source directory.
//
// Paths are joined, not sandboxed: ".." may leave the anchor directory.
// ResolveConfined is the sandboxed variant.
func (l *Layout) Resolve(anchor Anchor, rel string, ch ChapterContext) (string, error) {
	switch anchor {
	case Absolute:
		return rel, nil
	case Root:
		return filepath.Join(l.RootDir, rel), nil
	case Source:
		return filepath.Join(l.SourceDir, rel), nil
	case Template:
		return filepath.Join(l.TemplateDir, rel), nil
	case Build:
		return filepath.Join(l.BuildDir, rel), nil
	case Chapter, ChapterBuild:
		if ch == nil {
			return "", ErrMissingChapter
		}
		dir, ok := ch.SourceDir()
		if !ok {
			return "", ErrMissingChapter
		}
		base := l.SourceDir
		if anchor == ChapterBuild {
			base = l.BuildDir
		}
		return filepath.Join(base, dir, rel), nil
	}
	return "", fmt.Errorf("unknown path anchor %v", anchor)
}

// ResolveConfined is Resolve for templates that are not trusted with the
// whole filesystem. The absolute anchor is refused, and the result must lie
// under the book root.
func (l *Layout) ResolveConfined(anchor Anchor, rel string, ch ChapterContext) (string, error) {
	if anchor == Absolute {
		return "", fmt.Errorf("%w: the absolute anchor is disabled", ErrOutsideRoot)
	}
	p, err := l.Resolve(anchor, rel, ch)
	if err != nil {
		return "", err
	}
	if !Contains(l.RootDir, p) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return p, nil
}

// Contains reports whether path is dir or lies beneath it. The check is
// lexical; symlinks are not followed.
func Contains(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
