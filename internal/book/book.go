// Package book models an mdBook book and its preprocessor context, with the
// same JSON shape mdBook uses on a preprocessor's stdin and stdout.
package book

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Book is the tree of items a preprocessor receives and returns.
type Book struct {
	Sections []*BookItem
}

// BookItem is exactly one of a chapter, a separator or a part title.
type BookItem struct {
	Chapter   *Chapter
	Separator bool
	PartTitle *string
}

// Chapter is a single page of the book.
type Chapter struct {
	Name     string
	Content  string
	Number   []uint32
	SubItems []*BookItem
	// Path is relative to the source directory; nil for draft chapters.
	Path        *string
	SourcePath  *string
	ParentNames []string
}

type bookJSON struct {
	Sections      []*BookItem     `json:"sections"`
	NonExhaustive json.RawMessage `json:"__non_exhaustive"`
}

func (b *Book) MarshalJSON() ([]byte, error) {
	sections := b.Sections
	if sections == nil {
		sections = []*BookItem{}
	}
	return json.Marshal(bookJSON{Sections: sections, NonExhaustive: json.RawMessage("null")})
}

func (b *Book) UnmarshalJSON(data []byte) error {
	var raw bookJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Sections = raw.Sections
	return nil
}

type chapterJSON struct {
	Name        string      `json:"name"`
	Content     string      `json:"content"`
	Number      []uint32    `json:"number"`
	SubItems    []*BookItem `json:"sub_items"`
	Path        *string     `json:"path"`
	SourcePath  *string     `json:"source_path"`
	ParentNames []string    `json:"parent_names"`
}

func (c *Chapter) MarshalJSON() ([]byte, error) {
	out := chapterJSON(*c)
	if out.SubItems == nil {
		out.SubItems = []*BookItem{}
	}
	if out.ParentNames == nil {
		out.ParentNames = []string{}
	}
	return json.Marshal(out)
}

func (c *Chapter) UnmarshalJSON(data []byte) error {
	var in chapterJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = Chapter(in)
	return nil
}

const separatorJSON = `"Separator"`

func (it *BookItem) MarshalJSON() ([]byte, error) {
	switch {
	case it.Chapter != nil:
		return json.Marshal(map[string]*Chapter{"Chapter": it.Chapter})
	case it.PartTitle != nil:
		return json.Marshal(map[string]string{"PartTitle": *it.PartTitle})
	case it.Separator:
		return []byte(separatorJSON), nil
	}
	return nil, errors.New("empty book item")
}

func (it *BookItem) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "Separator" {
			return fmt.Errorf("unknown book item %q", tag)
		}
		*it = BookItem{Separator: true}
		return nil
	}

	var obj struct {
		Chapter   *Chapter `json:"Chapter"`
		PartTitle *string  `json:"PartTitle"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode book item: %w", err)
	}
	switch {
	case obj.Chapter != nil:
		*it = BookItem{Chapter: obj.Chapter}
	case obj.PartTitle != nil:
		*it = BookItem{PartTitle: obj.PartTitle}
	default:
		return fmt.Errorf("unknown book item %s", string(data))
	}
	return nil
}

// ForEachMut calls fn for every item in the book. A chapter's sub-items are
// visited before the chapter itself, matching mdBook's traversal order.
func (b *Book) ForEachMut(fn func(*BookItem)) {
	forEachMut(b.Sections, fn)
}

func forEachMut(items []*BookItem, fn func(*BookItem)) {
	for _, it := range items {
		if it.Chapter != nil {
			forEachMut(it.Chapter.SubItems, fn)
		}
		fn(it)
	}
}

// Chapters returns every chapter in reading order, parents before children.
func (b *Book) Chapters() []*Chapter {
	var out []*Chapter
	var walk func([]*BookItem)
	walk = func(items []*BookItem) {
		for _, it := range items {
			if it.Chapter == nil {
				continue
			}
			out = append(out, it.Chapter)
			walk(it.Chapter.SubItems)
		}
	}
	walk(b.Sections)
	return out
}
