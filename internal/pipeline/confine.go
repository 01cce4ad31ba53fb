package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/dgallion1/mdbook-jinja/internal/config"
	"github.com/dgallion1/mdbook-jinja/internal/layout"
	"github.com/dgallion1/mdbook-jinja/internal/summary"
)

// checkConfined reports the first directory or variables file of a confined
// run that lies outside the book root.
func checkConfined(lay *layout.Layout, cfg *config.Config) error {
	dirs := []struct{ name, path string }{
		{"source directory", lay.SourceDir},
		{"template directory", lay.TemplateDir},
		{"build directory", lay.BuildDir},
	}
	for _, d := range dirs {
		if !layout.Contains(lay.RootDir, d.path) {
			return fmt.Errorf("%s %s: %w", d.name, d.path, layout.ErrOutsideRoot)
		}
	}
	if cfg.VariablesFile != "" {
		path := cfg.VariablesFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(lay.RootDir, path)
		}
		if !layout.Contains(lay.RootDir, path) {
			return fmt.Errorf("variables file %s: %w", cfg.VariablesFile, layout.ErrOutsideRoot)
		}
	}
	return nil
}

// checkSummaryLinks reports the first chapter file that lies outside root.
func checkSummaryLinks(root, srcDir string, items []summary.Item) error {
	for _, it := range items {
		if it.Link == nil {
			continue
		}
		if loc := it.Link.Location; loc != nil && !layout.Contains(root, filepath.Join(srcDir, *loc)) {
			return fmt.Errorf("chapter %s: %w", *loc, layout.ErrOutsideRoot)
		}
		if err := checkSummaryLinks(root, srcDir, it.Link.NestedItems); err != nil {
			return err
		}
	}
	return nil
}
