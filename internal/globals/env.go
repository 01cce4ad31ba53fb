package globals

import (
	"os"
	"strings"
	"unicode/utf8"
)

// EnvironmentView is a frozen snapshot of process environment variables.
// Later changes to the environment are not visible through it.
type EnvironmentView struct {
	stringMap
}

// NewEnvironmentView builds a view from KEY=VALUE entries. Entries without a
// separator, with an empty key, or with a key or value that is not valid
// UTF-8 are dropped.
func NewEnvironmentView(environ []string) *EnvironmentView {
	vars := make(stringMap, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			continue
		}
		vars[k] = v
	}
	return &EnvironmentView{stringMap: vars}
}

// SnapshotEnvironment captures the current process environment.
func SnapshotEnvironment() *EnvironmentView {
	return NewEnvironmentView(os.Environ())
}
