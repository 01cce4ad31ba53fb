package book

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/dgallion1/mdbook-jinja/internal/globals"
)

// SupportedVersion is the mdBook release the JSON shapes here follow.
const SupportedVersion = "0.4.52"

// Context is what mdBook passes alongside the book.
type Context struct {
	Root          string         `json:"root"`
	Config        map[string]any `json:"config"`
	Renderer      string         `json:"renderer"`
	MDBookVersion string         `json:"mdbook_version"`
}

// ParseInput decodes the [context, book] pair a preprocessor reads from
// stdin. Numbers in the configuration decode as int64 or float64.
func ParseInput(r io.Reader) (*Context, *Book, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var pair []json.RawMessage
	if err := dec.Decode(&pair); err != nil {
		return nil, nil, fmt.Errorf("decode preprocessor input: %w", err)
	}
	if len(pair) != 2 {
		return nil, nil, fmt.Errorf("preprocessor input must be [context, book], got %d elements", len(pair))
	}

	ctx := &Context{}
	cdec := json.NewDecoder(strings.NewReader(string(pair[0])))
	cdec.UseNumber()
	if err := cdec.Decode(ctx); err != nil {
		return nil, nil, fmt.Errorf("decode context: %w", err)
	}
	if ctx.Config == nil {
		ctx.Config = map[string]any{}
	}
	ctx.Config = globals.Normalize(ctx.Config).(map[string]any)

	b := &Book{}
	if err := json.Unmarshal(pair[1], b); err != nil {
		return nil, nil, fmt.Errorf("decode book: %w", err)
	}
	return ctx, b, nil
}

// Lookup walks a dotted key such as "preprocessor.jinja" through the
// configuration tables.
func (c *Context) Lookup(dotted string) (any, bool) {
	var cur any = c.Config
	for _, part := range strings.Split(dotted, ".") {
		table, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = table[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Table returns the configuration table at a dotted key.
func (c *Context) Table(dotted string) (map[string]any, bool) {
	v, ok := c.Lookup(dotted)
	if !ok {
		return nil, false
	}
	t, ok := v.(map[string]any)
	return t, ok
}

func (c *Context) stringOr(dotted, fallback string) string {
	if v, ok := c.Lookup(dotted); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// SourceDir is book.src, relative to Root unless absolute.
func (c *Context) SourceDir() string {
	return c.stringOr("book.src", "src")
}

// BuildDir is build.build-dir, relative to Root unless absolute.
func (c *Context) BuildDir() string {
	return c.stringOr("build.build-dir", "book")
}

// VersionMatches reports whether the calling mdBook shares major and minor
// version with SupportedVersion.
func (c *Context) VersionMatches() bool {
	got := semver.MajorMinor("v" + strings.TrimPrefix(c.MDBookVersion, "v"))
	return got != "" && got == semver.MajorMinor("v"+SupportedVersion)
}
