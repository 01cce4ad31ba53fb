package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/dgallion1/mdbook-jinja/internal/book"
	"github.com/dgallion1/mdbook-jinja/internal/layout"
)

func (s *Server) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	pctx, b, err := book.ParseInput(r.Body)
	if err != nil {
		bodyError(w, err)
		return
	}
	root, err := s.bookRoot(pctx.Root)
	if err != nil {
		jsonError(w, err.Error(), http.StatusForbidden)
		return
	}
	pctx.Root = root
	if !pctx.VersionMatches() {
		s.log.Warn("mdbook version mismatch",
			"supported", book.SupportedVersion,
			"called_with", pctx.MDBookVersion,
		)
	}

	out, err := s.pre.Run(r.Context(), pctx, b)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, out)
}

type renderRequest struct {
	Template  string         `json:"template"`
	Variables map[string]any `json:"variables"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		bodyError(w, err)
		return
	}

	out, err := s.pre.RenderString(s.settings.BookRoot, req.Template, req.Variables)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, map[string]string{"output": out})
}

// bookRoot resolves a requested book root against the served book root and
// refuses anything outside it.
func (s *Server) bookRoot(requested string) (string, error) {
	base, err := filepath.Abs(s.settings.BookRoot)
	if err != nil {
		return "", fmt.Errorf("resolve book root: %w", err)
	}
	root := requested
	if !filepath.IsAbs(root) {
		root = filepath.Join(base, root)
	}
	root = filepath.Clean(root)
	if !layout.Contains(base, root) {
		return "", fmt.Errorf("book root %s: %w", requested, layout.ErrOutsideRoot)
	}
	return root, nil
}

// bodyError reports an unreadable request body: 413 past the size limit,
// 400 otherwise.
func bodyError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
