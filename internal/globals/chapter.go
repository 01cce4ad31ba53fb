package globals

import (
	"github.com/dgallion1/mdbook-jinja/internal/layout"
)

// ChapterView exposes one chapter to templates as the "chapter" object.
//
// Keys: name, path, dir, source_path, source_dir. path and dir are only
// present when the chapter has a rendered path; source_path and source_dir
// only when it has a source file. A top-level chapter has an empty dir.
type ChapterView struct {
	stringMap
}

// NewChapterView builds the view for a chapter. Nil paths mark the chapter
// as a draft or otherwise pathless.
func NewChapterView(name string, path, sourcePath *string) *ChapterView {
	attrs := stringMap{"name": name}
	if path != nil {
		attrs["path"] = *path
		if dir, ok := layout.ParentDir(*path); ok {
			attrs["dir"] = dir
		}
	}
	if sourcePath != nil {
		attrs["source_path"] = *sourcePath
		if dir, ok := layout.ParentDir(*sourcePath); ok {
			attrs["source_dir"] = dir
		}
	}
	return &ChapterView{stringMap: attrs}
}

// Name returns the chapter name as it was before rendering.
func (c *ChapterView) Name() string {
	name, _ := c.Get("name")
	return name
}

// SourceDir returns the directory of the chapter's source file relative to
// the source directory.
func (c *ChapterView) SourceDir() (string, bool) {
	return c.Get("source_dir")
}
