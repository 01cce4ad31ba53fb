package pipeline

import (
	"errors"
	"log/slog"

	"github.com/dgallion1/mdbook-jinja/internal/book"
	"github.com/dgallion1/mdbook-jinja/internal/config"
	"github.com/dgallion1/mdbook-jinja/internal/engine"
	"github.com/dgallion1/mdbook-jinja/internal/functions"
	"github.com/dgallion1/mdbook-jinja/internal/globals"
)

// renderer holds one run's engine and configuration.
type renderer struct {
	engine *engine.Engine
	lib    *functions.Library
	cfg    *config.Config
	log    *slog.Logger
}

// context builds the variables for a single render: the declared variables,
// the chapter (when there is one) and the functions bound to it.
func (r *renderer) context(chapter *globals.ChapterView) map[string]any {
	ctx := make(map[string]any, len(r.cfg.Variables)+8)
	for k, v := range r.cfg.Variables {
		ctx[k] = v
	}
	for name, fn := range r.lib.Bind(chapter).Callables() {
		ctx[name] = fn
	}
	if chapter != nil {
		ctx["chapter"] = chapter.Fields()
	}
	return ctx
}

func (r *renderer) withPrelude(s string) string {
	if r.cfg.PreludeString == "" {
		return s
	}
	return r.cfg.PreludeString + "\n" + s
}

// renderItem renders the text fields of one item and returns how many
// rendered and how many failed.
func (r *renderer) renderItem(it *book.BookItem) (ok, failed int) {
	count := func(success bool) {
		if success {
			ok++
		} else {
			failed++
		}
	}

	switch {
	case it.Chapter != nil:
		ch := it.Chapter
		view := globals.NewChapterView(ch.Name, ch.Path, ch.SourcePath)
		log := r.log.With("chapter", view.Name())
		count(r.renderField(&ch.Name, r.context(view), false, log.With("field", "name")))
		count(r.renderField(&ch.Content, r.context(view), true, log.With("field", "content")))
	case it.PartTitle != nil:
		count(r.renderField(it.PartTitle, r.context(nil), false, r.log.With("part_title", *it.PartTitle)))
	}
	return ok, failed
}

// renderField replaces *s with its rendering. On failure *s is untouched and
// the error is logged with its causes.
func (r *renderer) renderField(s *string, ctx map[string]any, prelude bool, log *slog.Logger) bool {
	src := *s
	if prelude {
		src = r.withPrelude(src)
	}
	out, err := r.engine.Render(src, ctx)
	if err != nil {
		logRenderError(log, err)
		return false
	}
	*s = out
	return true
}

func logRenderError(log *slog.Logger, err error) {
	log.Error("could not render template", "error", err)
	last := err.Error()
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		msg := cause.Error()
		if msg == last {
			continue
		}
		log.Error("caused by", "error", msg)
		last = msg
	}
}
