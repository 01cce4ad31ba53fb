package globals

import (
	"github.com/dgallion1/mdbook-jinja/internal/layout"
)

// BookView exposes the run's directory layout as the "book" object.
type BookView struct {
	stringMap
}

func NewBookView(l *layout.Layout) *BookView {
	return &BookView{stringMap: stringMap{
		"root_dir":     l.RootDir,
		"src_dir":      l.SourceDir,
		"template_dir": l.TemplateDir,
		"build_dir":    l.BuildDir,
	}}
}
