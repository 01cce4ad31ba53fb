package book

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/mdbook-jinja/internal/summary"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Load builds a book from a parsed summary, reading each chapter's content
// from srcDir. Draft chapters get empty content and no paths.
func Load(srcDir string, s *summary.Summary) (*Book, error) {
	b := &Book{}
	for _, it := range s.Items() {
		item, err := loadItem(srcDir, it, nil)
		if err != nil {
			return nil, err
		}
		b.Sections = append(b.Sections, item)
	}
	return b, nil
}

func loadItem(srcDir string, it summary.Item, parents []string) (*BookItem, error) {
	switch it.Kind {
	case summary.SeparatorItem:
		return &BookItem{Separator: true}, nil
	case summary.PartTitleItem:
		title := it.Title
		return &BookItem{PartTitle: &title}, nil
	}

	ch, err := loadChapter(srcDir, it.Link, parents)
	if err != nil {
		return nil, err
	}
	return &BookItem{Chapter: ch}, nil
}

func loadChapter(srcDir string, link *summary.Link, parents []string) (*Chapter, error) {
	ch := &Chapter{
		Name:        link.Name,
		Number:      link.Number,
		ParentNames: append([]string{}, parents...),
	}

	if link.Location != nil {
		loc := *link.Location
		data, err := os.ReadFile(filepath.Join(srcDir, loc))
		if err != nil {
			return nil, fmt.Errorf("chapter %q: read %s: %w", link.Name, loc, err)
		}
		ch.Content = string(bytes.TrimPrefix(data, utf8BOM))
		path, source := loc, loc
		ch.Path = &path
		ch.SourcePath = &source
	}

	sub := append(append([]string{}, parents...), link.Name)
	for _, nested := range link.NestedItems {
		item, err := loadItem(srcDir, nested, sub)
		if err != nil {
			return nil, err
		}
		ch.SubItems = append(ch.SubItems, item)
	}
	return ch, nil
}
