// Package globals provides the read-only objects exposed to templates:
// the process environment, the chapter being rendered and the book layout.
package globals

import "sort"

// Object is a string-keyed, read-only view that templates can index.
// Missing keys are absent, never empty strings; what an absent key means
// is decided by the engine's undefined policy.
type Object interface {
	Get(key string) (string, bool)
	// Keys lists the declared keys in sorted order.
	Keys() []string
	// Fields returns the backing map itself, which the template engine
	// indexes directly. It must not be modified.
	Fields() map[string]string
}

type stringMap map[string]string

func (m stringMap) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m stringMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields drops the named type so the engine sees no methods that could
// shadow a key such as "Get".
func (m stringMap) Fields() map[string]string {
	return map[string]string(m)
}
