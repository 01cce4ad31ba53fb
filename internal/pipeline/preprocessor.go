// Package pipeline rewrites a book by rendering every chapter name, chapter
// body and part title as a Jinja template.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/mdbook-jinja/internal/book"
	"github.com/dgallion1/mdbook-jinja/internal/config"
	"github.com/dgallion1/mdbook-jinja/internal/engine"
	"github.com/dgallion1/mdbook-jinja/internal/functions"
	"github.com/dgallion1/mdbook-jinja/internal/globals"
	"github.com/dgallion1/mdbook-jinja/internal/layout"
	"github.com/dgallion1/mdbook-jinja/internal/summary"
)

// Name is the preprocessor's name in book.toml.
const Name = "jinja"

// ErrMissingConfig means book.toml has no preprocessor.jinja table.
var ErrMissingConfig = errors.New("missing config section")

// Preprocessor runs the rewrite. It holds no per-run state and is safe for
// concurrent use.
type Preprocessor struct {
	log      *slog.Logger
	confined bool
}

func New(log *slog.Logger) *Preprocessor {
	return &Preprocessor{log: log}
}

// Confined returns a preprocessor whose templates cannot reach outside the
// book root: the absolute anchor is disabled, and file functions, includes
// and variables_file must resolve beneath the root.
func (p *Preprocessor) Confined() *Preprocessor {
	return &Preprocessor{log: p.log, confined: true}
}

func (p *Preprocessor) library(lay *layout.Layout, log *slog.Logger) *functions.Library {
	lib := functions.New(lay, log)
	if p.confined {
		lib.Confine()
	}
	return lib
}

func (p *Preprocessor) Name() string {
	return Name
}

// Supports reports whether the preprocessor can run for a renderer. Output
// is plain Markdown, so every renderer is supported.
func (p *Preprocessor) Supports(renderer string) bool {
	return true
}

// Run renders b in place and returns it, or returns the freshly loaded book
// when preprocess_summary is set. Configuration errors and failures to read,
// parse or load SUMMARY.md are fatal. Render errors, including those in
// SUMMARY.md, are logged and leave the text unchanged.
func (p *Preprocessor) Run(ctx context.Context, pctx *book.Context, b *book.Book) (*book.Book, error) {
	log := p.log.With("run_id", newRunID())

	section, ok := pctx.Table(config.Section)
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrMissingConfig, Name)
	}
	cfg, err := config.Decode(section)
	if err != nil {
		return nil, err
	}
	for _, key := range cfg.Unknown {
		log.Warn("unknown configuration key", "section", config.Section, "key", key)
	}

	lay, err := layout.New(pctx.Root, pctx.SourceDir(), cfg.TemplatesDir, pctx.BuildDir())
	if err != nil {
		return nil, err
	}
	if p.confined {
		if err := checkConfined(lay, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadVariablesFile(lay.RootDir); err != nil {
		return nil, err
	}
	log.Debug("configuration",
		"undefined_behavior", cfg.UndefinedBehavior,
		"templates_dir", lay.TemplateDir,
		"preprocess_summary", cfg.PreprocessSummary,
		"global_env", cfg.GlobalEnv,
		"variables", len(cfg.Variables),
	)

	lib := p.library(lay, log)
	r := &renderer{
		engine: engine.Build(cfg, lay, lib, log),
		lib:    lib,
		cfg:    cfg,
		log:    log,
	}

	if cfg.PreprocessSummary {
		b, err = r.reloadSummary(lay)
		if err != nil {
			return nil, err
		}
	} else {
		log.Info("skipping preprocessing of SUMMARY.md because preprocess_summary is false")
	}

	var rendered, failed int
	b.ForEachMut(func(it *book.BookItem) {
		if ctx.Err() != nil {
			return
		}
		ok, bad := r.renderItem(it)
		rendered += ok
		failed += bad
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info("rendered book", "fields", rendered, "failed", failed)
	return b, nil
}

// reloadSummary renders SUMMARY.md from disk, parses it and loads the
// book it describes. Anything the host or earlier preprocessors did to the
// incoming book is discarded.
func (r *renderer) reloadSummary(lay *layout.Layout) (*book.Book, error) {
	path := filepath.Join(lay.SourceDir, "SUMMARY.md")
	r.log.Info("reloading summary", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	text, err := r.engine.Render(r.withPrelude(string(data)), r.context(nil))
	if err != nil {
		// Keep the raw text and let the parser have it.
		logRenderError(r.log.With("field", "summary"), err)
		text = string(data)
	}
	s, err := summary.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse summary: %w", err)
	}
	if r.lib.Confined() {
		if err := checkSummaryLinks(lay.RootDir, lay.SourceDir, s.Items()); err != nil {
			return nil, err
		}
	}
	b, err := book.Load(lay.SourceDir, s)
	if err != nil {
		return nil, fmt.Errorf("load book: %w", err)
	}
	return b, nil
}

// RenderString renders a single template with the default configuration,
// rooted at root, with vars as its variables. The function library is
// available unbound to any chapter.
func (p *Preprocessor) RenderString(root, source string, vars map[string]any) (string, error) {
	cfg := config.Default()
	if vars != nil {
		cfg.Variables = globals.Normalize(vars).(map[string]any)
	}
	lay, err := layout.New(root, "src", cfg.TemplatesDir, "book")
	if err != nil {
		return "", err
	}
	log := p.log.With("run_id", newRunID())
	lib := p.library(lay, log)
	r := &renderer{
		engine: engine.Build(cfg, lay, lib, log),
		lib:    lib,
		cfg:    cfg,
		log:    log,
	}
	return r.engine.Render(source, r.context(nil))
}
