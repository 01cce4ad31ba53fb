// Package functions implements the filesystem helpers callable from
// templates: file_exists, copy_file, load_file and load_document. Paths are
// resolved against the run's layout using a named anchor.
package functions

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/dgallion1/mdbook-jinja/internal/globals"
	"github.com/dgallion1/mdbook-jinja/internal/layout"
	"github.com/dgallion1/mdbook-jinja/internal/textract"
)

// Library holds what every function needs for one run.
type Library struct {
	layout   *layout.Layout
	log      *slog.Logger
	confined bool
}

func New(l *layout.Layout, log *slog.Logger) *Library {
	return &Library{layout: l, log: log}
}

// Confine restricts every path to the book root and disables the absolute
// anchor. It is for templates that arrive over the network.
func (lib *Library) Confine() *Library {
	lib.confined = true
	return lib
}

// Confined reports whether Confine was called.
func (lib *Library) Confined() bool {
	return lib.confined
}

// Binding is the function set for a single render, tied to the chapter
// being rendered (nil outside chapters).
type Binding struct {
	lib     *Library
	chapter *globals.ChapterView
}

func (lib *Library) Bind(chapter *globals.ChapterView) *Binding {
	return &Binding{lib: lib, chapter: chapter}
}

func (b *Binding) resolve(fn, path string, anchor layout.Anchor) (string, error) {
	var ch layout.ChapterContext
	if b.chapter != nil {
		ch = b.chapter
	}
	resolve := b.lib.layout.Resolve
	if b.lib.confined {
		resolve = b.lib.layout.ResolveConfined
	}
	resolved, err := resolve(anchor, path, ch)
	if err != nil {
		kind := KindUsage
		if errors.Is(err, layout.ErrMissingChapter) {
			kind = KindMissingContext
		}
		return "", &Error{Kind: kind, Func: fn, Path: path, Err: err}
	}
	return resolved, nil
}

// FileExists reports whether path exists under anchor. A missing file is
// false, not an error.
func (b *Binding) FileExists(path string, anchor layout.Anchor) (bool, error) {
	resolved, err := b.resolve("file_exists", path, anchor)
	if err != nil {
		return false, err
	}
	b.lib.log.Debug("checking if file exists", "path", resolved)
	_, err = os.Stat(resolved)
	return err == nil, nil
}

// CopyFile copies src to dst. Parent directories of dst are not created.
func (b *Binding) CopyFile(src string, srcAnchor layout.Anchor, dst string, dstAnchor layout.Anchor) (bool, error) {
	srcPath, err := b.resolve("copy_file", src, srcAnchor)
	if err != nil {
		return false, err
	}
	dstPath, err := b.resolve("copy_file", dst, dstAnchor)
	if err != nil {
		return false, err
	}
	b.lib.log.Debug("copying file", "from", srcPath, "to", dstPath)

	if err := copyFile(srcPath, dstPath); err != nil {
		return false, &Error{Kind: KindWriteFailure, Func: "copy_file", Path: dstPath, Err: err}
	}
	return true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// LoadFile returns the contents of path, which must be valid UTF-8.
func (b *Binding) LoadFile(path string, anchor layout.Anchor) (string, error) {
	resolved, err := b.resolve("load_file", path, anchor)
	if err != nil {
		return "", err
	}
	b.lib.log.Debug("loading file", "path", resolved)

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", &Error{Kind: KindReadFailure, Func: "load_file", Path: resolved, Err: err}
	}
	if !utf8.Valid(data) {
		return "", &Error{Kind: KindReadFailure, Func: "load_file", Path: resolved,
			Err: fmt.Errorf("%s: stream did not contain valid UTF-8", resolved)}
	}
	return string(data), nil
}

// LoadDocument returns the plain text of a document, choosing the extractor
// by file extension.
func (b *Binding) LoadDocument(path string, anchor layout.Anchor) (string, error) {
	resolved, err := b.resolve("load_document", path, anchor)
	if err != nil {
		return "", err
	}
	ex, err := textract.ForFile(resolved)
	if err != nil {
		return "", &Error{Kind: KindUsage, Func: "load_document", Path: resolved, Err: err}
	}
	b.lib.log.Debug("loading document", "path", resolved)

	f, err := os.Open(resolved)
	if err != nil {
		return "", &Error{Kind: KindReadFailure, Func: "load_document", Path: resolved, Err: err}
	}
	defer f.Close()

	text, err := ex.Extract(f)
	if err != nil {
		return "", &Error{Kind: KindReadFailure, Func: "load_document", Path: resolved, Err: err}
	}
	return text, nil
}
