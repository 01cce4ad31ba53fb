package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/dgallion1/mdbook-jinja/internal/book"
	"github.com/dgallion1/mdbook-jinja/internal/globals"
	"github.com/dgallion1/mdbook-jinja/internal/pipeline"
	"github.com/dgallion1/mdbook-jinja/internal/summary"
)

type renderParams struct {
	root string
	out  string
}

// newRenderCommand renders a book directory without mdBook, for checking
// templates locally.
func newRenderCommand(a *app) *cobra.Command {
	p := renderParams{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a book directory without mdBook",
		Long: `Render a book directory without mdBook.

Reads book.toml and SUMMARY.md from --root, runs the preprocessor and
writes the resulting book as JSON to stdout, or each chapter's rendered
Markdown under --out.`,
		Example: `  mdbook-jinja render --root ./my-book
  mdbook-jinja render --root ./my-book --out ./rendered`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, a, p)
		},
	}
	cmd.Flags().StringVar(&p.root, "root", ".", "book root containing book.toml")
	cmd.Flags().StringVar(&p.out, "out", "", "write rendered chapters under this directory instead of JSON to stdout")
	return cmd
}

func runRender(cmd *cobra.Command, a *app, p renderParams) error {
	pctx, err := loadBookContext(p.root)
	if err != nil {
		return err
	}

	summaryPath := filepath.Join(pctx.Root, pctx.SourceDir(), "SUMMARY.md")
	data, err := os.ReadFile(summaryPath)
	if err != nil {
		return fmt.Errorf("read summary: %w", err)
	}
	s, err := summary.Parse(string(data))
	if err != nil {
		return fmt.Errorf("parse summary: %w", err)
	}
	b, err := book.Load(filepath.Join(pctx.Root, pctx.SourceDir()), s)
	if err != nil {
		return err
	}

	b, err = pipeline.New(a.log).Run(cmd.Context(), pctx, b)
	if err != nil {
		return err
	}

	if p.out == "" {
		return writeBookJSON(cmd.OutOrStdout(), b)
	}
	return writeChapters(p.out, b)
}

// loadBookContext builds the context mdBook would pass for the book at
// root, reading book.toml when it exists.
func loadBookContext(root string) (*book.Context, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	cfg := map[string]any{}
	data, err := os.ReadFile(filepath.Join(abs, "book.toml"))
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse book.toml: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read book.toml: %w", err)
	}
	return &book.Context{
		Root:          abs,
		Config:        globals.Normalize(cfg).(map[string]any),
		Renderer:      "markdown",
		MDBookVersion: book.SupportedVersion,
	}, nil
}

func writeBookJSON(w io.Writer, b *book.Book) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("write book: %w", err)
	}
	return nil
}

// writeChapters writes every chapter with a path to dir/<path>.
func writeChapters(dir string, b *book.Book) error {
	for _, ch := range b.Chapters() {
		if ch.Path == nil {
			continue
		}
		dst := filepath.Join(dir, *ch.Path)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := os.WriteFile(dst, []byte(ch.Content), 0o644); err != nil {
			return fmt.Errorf("write chapter: %w", err)
		}
	}
	return nil
}
