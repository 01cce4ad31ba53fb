// Package engine builds the Jinja template environment for one run.
package engine

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nikolalohinski/gonja"
	gonjacfg "github.com/nikolalohinski/gonja/config"

	"github.com/dgallion1/mdbook-jinja/internal/config"
	"github.com/dgallion1/mdbook-jinja/internal/functions"
	"github.com/dgallion1/mdbook-jinja/internal/globals"
	"github.com/dgallion1/mdbook-jinja/internal/layout"
)

// Engine renders template strings. Each Engine owns a fresh gonja
// environment; nothing is shared between engines.
type Engine struct {
	env       *gonja.Environment
	chainable bool
}

// Build creates an engine for cfg. Templates named by import, include and
// extends load from the layout's template directory, which does not need
// to exist until one is requested. Under chainable undefined behavior,
// attribute and item lookups on an undefined value yield undefined.
//
// Globals: book, env (when global_env is set) and the function library
// bound to no chapter.
func Build(cfg *config.Config, l *layout.Layout, lib *functions.Library, log *slog.Logger) *Engine {
	gcfg := gonjacfg.NewConfig()
	gcfg.StrictUndefined = cfg.UndefinedBehavior == config.Strict

	log.Info("loading templates from", "dir", l.TemplateDir)
	env := gonja.NewEnvironment(gcfg, &dirLoader{dir: l.TemplateDir, confined: lib.Confined()})
	chainable := cfg.UndefinedBehavior == config.Chainable
	if chainable {
		registerChainable(env)
	}

	bookView := globals.NewBookView(l)
	env.Globals.Set("book", bookView.Fields())
	if cfg.GlobalEnv {
		envView := globals.SnapshotEnvironment()
		env.Globals.Set("env", envView.Fields())
		log.Debug("exposing environment", "variables", len(envView.Keys()))
	}
	log.Debug("registered book global", "keys", bookView.Keys())
	for name, fn := range lib.Bind(nil).Callables() {
		env.Globals.Set(name, fn)
	}

	return &Engine{env: env, chainable: chainable}
}

// Render evaluates source against ctx. Keys in ctx shadow the globals.
func (e *Engine) Render(source string, ctx map[string]any) (string, error) {
	tpl, err := e.env.FromString(source)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	if e.chainable {
		chainUndefined(tpl.Root)
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// dirLoader reads templates relative to dir. Unlike gonja's filesystem
// loader it does not require dir to exist up front. A confined loader only
// reads beneath dir.
type dirLoader struct {
	dir      string
	confined bool
}

func (d *dirLoader) Path(name string) (string, error) {
	if filepath.IsAbs(name) {
		if d.confined {
			return "", fmt.Errorf("template %s: %w", name, layout.ErrOutsideRoot)
		}
		return name, nil
	}
	path := filepath.Join(d.dir, name)
	if d.confined && !layout.Contains(d.dir, path) {
		return "", fmt.Errorf("template %s: %w", name, layout.ErrOutsideRoot)
	}
	return path, nil
}

func (d *dirLoader) Get(name string) (io.Reader, error) {
	path, err := d.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", name, err)
	}
	return bytes.NewReader(data), nil
}
