package layout

import (
	"errors"
	"path/filepath"
	"testing"
)

type fakeChapter struct {
	dir string
	ok  bool
}

func (f fakeChapter) SourceDir() (string, bool) { return f.dir, f.ok }

func testLayout() *Layout {
	return &Layout{
		RootDir:     "/proj",
		SourceDir:   "/proj/src",
		TemplateDir: "/proj/templates",
		BuildDir:    "/proj/book",
	}
}

func TestNew_RelativeAndAbsolute(t *testing.T) {
	root := t.TempDir()
	l, err := New(root, "src", "/abs/templates", "book")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.SourceDir != filepath.Join(root, "src") {
		t.Errorf("expected source dir %q, got %q", filepath.Join(root, "src"), l.SourceDir)
	}
	if l.TemplateDir != "/abs/templates" {
		t.Errorf("expected template dir %q, got %q", "/abs/templates", l.TemplateDir)
	}
	if l.BuildDir != filepath.Join(root, "book") {
		t.Errorf("expected build dir %q, got %q", filepath.Join(root, "book"), l.BuildDir)
	}
}

func TestResolve_FixedAnchors(t *testing.T) {
	l := testLayout()
	tests := []struct {
		anchor Anchor
		want   string
	}{
		{Absolute, "x.png"},
		{Root, "/proj/x.png"},
		{Source, "/proj/src/x.png"},
		{Template, "/proj/templates/x.png"},
		{Build, "/proj/book/x.png"},
	}
	for _, tt := range tests {
		got, err := l.Resolve(tt.anchor, "x.png", nil)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", tt.anchor, err)
		}
		if got != tt.want {
			t.Errorf("%v: expected %q, got %q", tt.anchor, tt.want, got)
		}
	}
}

func TestResolve_ChapterAnchors(t *testing.T) {
	l := testLayout()
	ch := fakeChapter{dir: "guide", ok: true}

	got, err := l.Resolve(Chapter, "x.png", ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/proj/src/guide/x.png" {
		t.Errorf("expected %q, got %q", "/proj/src/guide/x.png", got)
	}

	got, err = l.Resolve(ChapterBuild, "x.png", ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/proj/book/guide/x.png" {
		t.Errorf("expected %q, got %q", "/proj/book/guide/x.png", got)
	}

	got, err = l.Resolve(Chapter, "x.png", fakeChapter{dir: "", ok: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/proj/src/x.png" {
		t.Errorf("expected %q, got %q", "/proj/src/x.png", got)
	}
}

func TestResolve_MissingChapter(t *testing.T) {
	l := testLayout()
	if _, err := l.Resolve(Chapter, "x.png", nil); !errors.Is(err, ErrMissingChapter) {
		t.Errorf("expected ErrMissingChapter, got %v", err)
	}
	if _, err := l.Resolve(ChapterBuild, "x.png", fakeChapter{}); !errors.Is(err, ErrMissingChapter) {
		t.Errorf("expected ErrMissingChapter for chapter without source dir, got %v", err)
	}
}

func TestResolve_DotDotEscapes(t *testing.T) {
	got, err := testLayout().Resolve(Template, "../secret.txt", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/proj/secret.txt" {
		t.Errorf("expected %q, got %q", "/proj/secret.txt", got)
	}
}

func TestResolveConfined(t *testing.T) {
	l := testLayout()
	got, err := l.ResolveConfined(Template, "logo.svg", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/proj/templates/logo.svg" {
		t.Errorf("expected %q, got %q", "/proj/templates/logo.svg", got)
	}

	for _, tt := range []struct {
		anchor Anchor
		rel    string
	}{
		{Absolute, "/etc/passwd"},
		{Root, "../outside.txt"},
		{Template, "../../etc/passwd"},
		{Chapter, "../../../x"},
	} {
		_, err := l.ResolveConfined(tt.anchor, tt.rel, fakeChapter{dir: "guide", ok: true})
		if !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("%v %q: expected ErrOutsideRoot, got %v", tt.anchor, tt.rel, err)
		}
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/proj", true},
		{"/proj/src/a.md", true},
		{"/proj/..hidden", true},
		{"/project", false},
		{"/etc/passwd", false},
	}
	for _, tt := range tests {
		if got := Contains("/proj", tt.path); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.path, tt.want, got)
		}
	}
}

func TestParseAnchor(t *testing.T) {
	for a, name := range anchorNames {
		got, err := ParseAnchor(name)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if got != a {
			t.Errorf("%s: expected %v, got %v", name, a, got)
		}
	}
	if got, err := ParseAnchor("ChapterBuild"); err != nil || got != ChapterBuild {
		t.Errorf("expected case-insensitive match, got %v, %v", got, err)
	}
	if _, err := ParseAnchor("nowhere"); err == nil {
		t.Error("expected error for unknown anchor")
	}
}

func TestParentDir(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"intro.md", "", true},
		{"guide/intro.md", "guide", true},
		{"a/b/c.md", "a/b", true},
		{"/intro.md", "/", true},
		{"", "", false},
		{"/", "", false},
	}
	for _, tt := range tests {
		got, ok := ParentDir(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParentDir(%q): expected (%q, %v), got (%q, %v)", tt.in, tt.want, tt.wantOK, got, ok)
		}
	}
}
