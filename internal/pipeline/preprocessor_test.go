package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/mdbook-jinja/internal/book"
	"github.com/dgallion1/mdbook-jinja/internal/layout"
	"github.com/dgallion1/mdbook-jinja/internal/logging"
)

func strPtr(s string) *string { return &s }

func chapter(name, content, path string) *book.BookItem {
	return &book.BookItem{Chapter: &book.Chapter{
		Name:       name,
		Content:    content,
		Path:       strPtr(path),
		SourcePath: strPtr(path),
	}}
}

// bookContext returns a context rooted at a fresh directory with the given
// preprocessor.jinja table.
func bookContext(t *testing.T, section map[string]any) *book.Context {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"src", "templates", "book"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	cfg := map[string]any{"book": map[string]any{"src": "src"}}
	if section != nil {
		cfg["preprocessor"] = map[string]any{"jinja": section}
	}
	return &book.Context{Root: root, Config: cfg, Renderer: "html", MDBookVersion: book.SupportedVersion}
}

func run(t *testing.T, pctx *book.Context, b *book.Book) *book.Book {
	t.Helper()
	out, err := New(logging.Discard()).Run(context.Background(), pctx, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func TestRun_HelloWorld(t *testing.T) {
	pctx := bookContext(t, map[string]any{
		"variables": map[string]any{"name": "World"},
	})
	b := &book.Book{Sections: []*book.BookItem{chapter("Intro", "Hello {{ name }}!", "intro.md")}}

	out := run(t, pctx, b)
	if got := out.Sections[0].Chapter.Content; got != "Hello World!" {
		t.Errorf("expected %q, got %q", "Hello World!", got)
	}
}

func TestRun_MissingConfig(t *testing.T) {
	pctx := bookContext(t, nil)
	_, err := New(logging.Discard()).Run(context.Background(), pctx, &book.Book{})
	if !errors.Is(err, ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig, got %v", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	pctx := bookContext(t, map[string]any{"undefined_behavior": "sometimes"})
	if _, err := New(logging.Discard()).Run(context.Background(), pctx, &book.Book{}); err == nil {
		t.Error("expected invalid undefined_behavior to be fatal")
	}
}

func TestRun_FailedRenderLeavesFieldUnchanged(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	pctx := bookContext(t, map[string]any{"variables": map[string]any{"x": 1}})
	b := &book.Book{Sections: []*book.BookItem{
		chapter("Broken", "{{ undefined_thing }}", "broken.md"),
		chapter("Fine", "x={{ x }}", "fine.md"),
	}}

	out, err := New(log).Run(context.Background(), pctx, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Sections[0].Chapter.Content; got != "{{ undefined_thing }}" {
		t.Errorf("expected broken content unchanged, got %q", got)
	}
	if got := out.Sections[1].Chapter.Content; got != "x=1" {
		t.Errorf("expected %q, got %q", "x=1", got)
	}
	if !strings.Contains(logs.String(), "could not render template") {
		t.Errorf("expected render failure to be logged, got %q", logs.String())
	}
	if !strings.Contains(logs.String(), "caused by") {
		t.Errorf("expected cause chain to be logged, got %q", logs.String())
	}
}

func TestRun_ChapterObjectAndNesting(t *testing.T) {
	pctx := bookContext(t, map[string]any{})
	child := chapter("{{ chapter.name }} child", "{{ chapter.source_dir }}|{{ chapter.path }}", "guide/child.md")
	parent := chapter("Guide", "top dir=[{{ chapter.dir }}]", "guide.md")
	parent.Chapter.SubItems = []*book.BookItem{child}

	out := run(t, pctx, &book.Book{Sections: []*book.BookItem{parent}})
	p := out.Sections[0].Chapter
	c := p.SubItems[0].Chapter
	if p.Content != "top dir=[]" {
		t.Errorf("unexpected parent content %q", p.Content)
	}
	if c.Content != "guide|guide/child.md" {
		t.Errorf("unexpected child content %q", c.Content)
	}
	// Names are rendered with the pre-render name in scope.
	if c.Name != "{{ chapter.name }} child child" {
		t.Errorf("unexpected child name %q", c.Name)
	}
}

func TestRun_PartTitleHasNoChapter(t *testing.T) {
	pctx := bookContext(t, map[string]any{"variables": map[string]any{"part": "Reference"}})
	ok, broken := "{{ part }}", "{{ chapter.name }}"
	b := &book.Book{Sections: []*book.BookItem{
		{PartTitle: &ok},
		{Separator: true},
		{PartTitle: &broken},
	}}

	out := run(t, pctx, b)
	if *out.Sections[0].PartTitle != "Reference" {
		t.Errorf("expected %q, got %q", "Reference", *out.Sections[0].PartTitle)
	}
	if !out.Sections[1].Separator {
		t.Error("expected separator to survive")
	}
	if *out.Sections[2].PartTitle != broken {
		t.Errorf("expected part title without chapter to stay unchanged, got %q", *out.Sections[2].PartTitle)
	}
}

func TestRun_PreludeAppliesToContentOnly(t *testing.T) {
	pctx := bookContext(t, map[string]any{
		"prelude_string": `{% set greeting = "Hi" %}`,
	})
	b := &book.Book{Sections: []*book.BookItem{chapter("Plain name", "{{ greeting }} Bob", "a.md")}}

	out := run(t, pctx, b)
	ch := out.Sections[0].Chapter
	if !strings.HasSuffix(ch.Content, "Hi Bob") {
		t.Errorf("expected prelude definitions in content, got %q", ch.Content)
	}
	if ch.Name != "Plain name" {
		t.Errorf("expected name without prelude, got %q", ch.Name)
	}
}

func TestRun_CopyFileFailureDoesNotStopRun(t *testing.T) {
	pctx := bookContext(t, map[string]any{})
	os.WriteFile(filepath.Join(pctx.Root, "templates", "logo.svg"), []byte("<svg/>"), 0o644)
	b := &book.Book{Sections: []*book.BookItem{
		chapter("Deep", `{{ copy_file("logo.svg") }}`, "deep/page.md"),
		chapter("Top", `{{ copy_file("logo.svg") }}`, "top.md"),
	}}

	out := run(t, pctx, b)
	if got := out.Sections[0].Chapter.Content; got != `{{ copy_file("logo.svg") }}` {
		t.Errorf("expected failed copy to leave content unchanged, got %q", got)
	}
	if got := out.Sections[1].Chapter.Content; got != "True" {
		t.Errorf("expected copy to report success, got %q", got)
	}
	if _, err := os.Stat(filepath.Join(pctx.Root, "book", "logo.svg")); err != nil {
		t.Errorf("expected logo.svg in build dir: %v", err)
	}
}

func TestRun_ReloadsSummary(t *testing.T) {
	pctx := bookContext(t, map[string]any{
		"preprocess_summary": true,
		"variables":          map[string]any{"title": "Getting Started", "who": "reader"},
	})
	src := filepath.Join(pctx.Root, "src")
	os.WriteFile(filepath.Join(src, "SUMMARY.md"), []byte("# Summary\n\n- [{{ title }}](start.md)\n"), 0o644)
	os.WriteFile(filepath.Join(src, "start.md"), []byte("Welcome, {{ who }}."), 0o644)

	// The incoming book is replaced by the one SUMMARY.md describes.
	stale := &book.Book{Sections: []*book.BookItem{chapter("Stale", "stale", "stale.md")}}
	out := run(t, pctx, stale)

	if len(out.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(out.Sections))
	}
	ch := out.Sections[0].Chapter
	if ch.Name != "Getting Started" {
		t.Errorf("expected %q, got %q", "Getting Started", ch.Name)
	}
	if ch.Content != "Welcome, reader." {
		t.Errorf("expected %q, got %q", "Welcome, reader.", ch.Content)
	}
}

func TestRun_MissingSummaryIsFatal(t *testing.T) {
	pctx := bookContext(t, map[string]any{"preprocess_summary": true})
	if _, err := New(logging.Discard()).Run(context.Background(), pctx, &book.Book{}); err == nil {
		t.Error("expected missing SUMMARY.md to be fatal")
	}
}

func TestRun_SummaryRenderFailureKeepsRawText(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	pctx := bookContext(t, map[string]any{"preprocess_summary": true, "undefined_behavior": "strict"})
	src := filepath.Join(pctx.Root, "src")
	os.WriteFile(filepath.Join(src, "SUMMARY.md"), []byte("- [{{ nope }}](a.md)\n"), 0o644)
	os.WriteFile(filepath.Join(src, "a.md"), []byte("plain"), 0o644)

	out, err := New(log).Run(context.Background(), pctx, &book.Book{})
	if err != nil {
		t.Fatalf("expected run to continue past summary render failure, got %v", err)
	}
	if len(out.Sections) != 1 || out.Sections[0].Chapter == nil {
		t.Fatalf("expected one chapter from the raw summary, got %+v", out.Sections)
	}
	ch := out.Sections[0].Chapter
	if ch.Content != "plain" {
		t.Errorf("expected %q, got %q", "plain", ch.Content)
	}
	if !strings.Contains(logs.String(), "could not render template") {
		t.Errorf("expected summary render failure to be logged, got %q", logs.String())
	}
}

func TestRun_Deterministic(t *testing.T) {
	pctx := bookContext(t, map[string]any{
		"variables": map[string]any{"items": []any{"a", "b", "c"}},
	})
	mk := func() *book.Book {
		return &book.Book{Sections: []*book.BookItem{
			chapter("List", "{% for i in items %}{{ i }};{% endfor %}", "list.md"),
		}}
	}

	first, _ := json.Marshal(run(t, pctx, mk()))
	second, _ := json.Marshal(run(t, pctx, mk()))
	if !bytes.Equal(first, second) {
		t.Errorf("expected identical output, got\n%s\n%s", first, second)
	}
}

func TestRun_Cancelled(t *testing.T) {
	pctx := bookContext(t, map[string]any{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(logging.Discard()).Run(ctx, pctx, &book.Book{Sections: []*book.BookItem{chapter("A", "a", "a.md")}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSupports(t *testing.T) {
	p := New(logging.Discard())
	for _, r := range []string{"html", "markdown", "epub", ""} {
		if !p.Supports(r) {
			t.Errorf("expected %q to be supported", r)
		}
	}
}

func TestRunID(t *testing.T) {
	a, b := newRunID(), newRunID()
	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("expected 26-character ids, got %q and %q", a, b)
	}
	if a == b {
		t.Error("expected distinct ids")
	}
	if a[:10] > b[:10] {
		t.Errorf("expected timestamp prefix to be ordered, got %q then %q", a, b)
	}
	for _, c := range a {
		if !strings.ContainsRune(crockford, c) {
			t.Errorf("unexpected character %q in %q", c, a)
		}
	}
}

func TestRun_ConfinedStaysUnderRoot(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "secret.txt")
	os.WriteFile(secret, []byte("TOPSECRET"), 0o644)
	p := New(logging.Discard()).Confined()

	pctx := bookContext(t, map[string]any{"variables": map[string]any{"secret": secret}})
	src := `{{ load_file(secret, rel="absolute") }}`
	out, err := p.Run(context.Background(), pctx, &book.Book{Sections: []*book.BookItem{chapter("A", src, "a.md")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Sections[0].Chapter.Content; got != src {
		t.Errorf("expected absolute load to fail and leave content unchanged, got %q", got)
	}

	vars := bookContext(t, map[string]any{"variables_file": "../vars.toml"})
	if _, err := p.Run(context.Background(), vars, &book.Book{}); !errors.Is(err, layout.ErrOutsideRoot) {
		t.Errorf("expected variables file outside the root to be refused, got %v", err)
	}

	sum := bookContext(t, map[string]any{"preprocess_summary": true})
	os.WriteFile(filepath.Join(sum.Root, "src", "SUMMARY.md"), []byte("- [Leak](../../secret.md)\n"), 0o644)
	if _, err := p.Run(context.Background(), sum, &book.Book{}); !errors.Is(err, layout.ErrOutsideRoot) {
		t.Errorf("expected summary chapter outside the root to be refused, got %v", err)
	}

	if _, err := p.RenderString(t.TempDir(), `{{ load_file("`+secret+`", rel="absolute") }}`, nil); err == nil {
		t.Error("expected confined RenderString to refuse the absolute anchor")
	}
}

func TestRunID_SameMillisecond(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	a, b := newRunIDAt(at), newRunIDAt(at)
	// 3 + 9*5 bits: the first ten characters are exactly the timestamp.
	if a[:10] != b[:10] {
		t.Errorf("expected a shared timestamp prefix, got %q and %q", a, b)
	}
	// The sequence follows the timestamp; its low bit lands in character 13.
	if a[10:14] >= b[10:14] {
		t.Errorf("expected the sequence to increase, got %q then %q", a, b)
	}
}

func TestRenderString(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "templates"), 0o755)
	os.WriteFile(filepath.Join(root, "templates", "note.txt"), []byte("noted"), 0o644)

	p := New(logging.Discard())
	got, err := p.RenderString(root, `{{ n + 1 }} {{ load_file("note.txt") }}`, map[string]any{"n": json.Number("41")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "42 noted" {
		t.Errorf("expected %q, got %q", "42 noted", got)
	}

	if _, err := p.RenderString(root, "{{ missing }}", nil); err == nil {
		t.Error("expected strict undefined to fail")
	}
}
