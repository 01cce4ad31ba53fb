// Package summary parses a book's SUMMARY.md into its outline: an optional
// title, unnumbered prefix chapters, numbered chapters grouped into parts,
// and unnumbered suffix chapters.
package summary

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Summary is the parsed outline.
type Summary struct {
	Title            string
	PrefixChapters   []Item
	NumberedChapters []Item
	SuffixChapters   []Item
}

// ItemKind distinguishes the entries of an outline.
type ItemKind int

const (
	LinkItem ItemKind = iota
	SeparatorItem
	PartTitleItem
)

// Item is one outline entry. Link is set for LinkItem, Title for
// PartTitleItem.
type Item struct {
	Kind  ItemKind
	Link  *Link
	Title string
}

// Link is a chapter entry. Location is nil for a draft chapter, written
// as [Name]().
type Link struct {
	Name        string
	Location    *string
	Number      []uint32
	NestedItems []Item
}

// Items returns prefix, numbered and suffix items in reading order.
func (s *Summary) Items() []Item {
	out := make([]Item, 0, len(s.PrefixChapters)+len(s.NumberedChapters)+len(s.SuffixChapters))
	out = append(out, s.PrefixChapters...)
	out = append(out, s.NumberedChapters...)
	return append(out, s.SuffixChapters...)
}

type section int

const (
	prefix section = iota
	numbered
	suffix
)

// Parse reads SUMMARY.md source.
func Parse(src string) (*Summary, error) {
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	s := &Summary{}
	state := prefix
	var rootItems uint32
	first := true

	add := func(it Item) {
		switch state {
		case prefix:
			s.PrefixChapters = append(s.PrefixChapters, it)
		case numbered:
			s.NumberedChapters = append(s.NumberedChapters, it)
		case suffix:
			s.SuffixChapters = append(s.SuffixChapters, it)
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		isFirst := first
		first = false

		switch node := n.(type) {
		case *ast.Heading:
			title := inlineText(node, source)
			if isFirst && node.Level == 1 {
				s.Title = title
				continue
			}
			if state == suffix {
				return nil, fmt.Errorf("summary: part title %q after suffix chapters", title)
			}
			state = numbered
			add(Item{Kind: PartTitleItem, Title: title})

		case *ast.Paragraph:
			links, err := paragraphLinks(node, source)
			if err != nil {
				return nil, err
			}
			if state == numbered {
				state = suffix
			}
			for _, l := range links {
				add(Item{Kind: LinkItem, Link: l})
			}

		case *ast.List:
			if state == suffix {
				return nil, fmt.Errorf("summary: suffix chapters cannot be followed by a list")
			}
			state = numbered
			items, err := parseList(node, source, nil, rootItems)
			if err != nil {
				return nil, err
			}
			rootItems += uint32(len(linksOnly(items)))
			s.NumberedChapters = append(s.NumberedChapters, items...)

		case *ast.ThematicBreak:
			add(Item{Kind: SeparatorItem})

		case *ast.HTMLBlock:
			// Comments and raw HTML carry no outline entries.
			first = isFirst
		}
	}

	return s, nil
}

func linksOnly(items []Item) []Item {
	var out []Item
	for _, it := range items {
		if it.Kind == LinkItem {
			out = append(out, it)
		}
	}
	return out
}

// parseList numbers the list's links under parent, starting after offset.
func parseList(list *ast.List, src []byte, parent []uint32, offset uint32) ([]Item, error) {
	var items []Item
	idx := offset
	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		var link *Link
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.TextBlock, *ast.Paragraph:
				if link != nil {
					continue
				}
				l := firstLink(c, src)
				if l == nil {
					return nil, fmt.Errorf("summary: expected a link in list item %q", inlineText(c, src))
				}
				idx++
				l.Number = append(append([]uint32{}, parent...), idx)
				link = l
			case *ast.List:
				if link == nil {
					return nil, fmt.Errorf("summary: nested list without a parent link")
				}
				nested, err := parseList(c, src, link.Number, 0)
				if err != nil {
					return nil, err
				}
				link.NestedItems = append(link.NestedItems, nested...)
			}
		}
		if link != nil {
			items = append(items, Item{Kind: LinkItem, Link: link})
		}
	}
	return items, nil
}

func paragraphLinks(p ast.Node, src []byte) ([]*Link, error) {
	var links []*Link
	for c := p.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Link:
			links = append(links, newLink(c, src))
		case *ast.Text:
			if strings.TrimSpace(string(c.Value(src))) != "" {
				return nil, fmt.Errorf("summary: expected only links, found text %q", inlineText(p, src))
			}
		}
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("summary: expected a link, found %q", inlineText(p, src))
	}
	return links, nil
}

func firstLink(n ast.Node, src []byte) *Link {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if l, ok := c.(*ast.Link); ok {
			return newLink(l, src)
		}
	}
	return nil
}

func newLink(l *ast.Link, src []byte) *Link {
	link := &Link{Name: inlineText(l, src)}
	if dest := string(l.Destination); dest != "" {
		dest = strings.ReplaceAll(dest, "%20", " ")
		link.Location = &dest
	}
	return link
}

// inlineText concatenates the text of a node's inline children.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(t.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}
