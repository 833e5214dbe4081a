package plugins

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode"
)

var (
	// ErrInvalidPluginName indicates a plugin identifier that is empty or contains whitespace.
	ErrInvalidPluginName = errors.New("plugin name must be a non-empty identifier without whitespace")
)

var defaultPlugins = []string{
	"tailwindcss",
	"tailwindcss/nesting",
	"autoprefixer",
	"postcss-import",
	"postcss-nesting",
	"postcss-preset-env",
	"cssnano",
}

// Registry answers whether a PostCSS plugin identifier can be loaded by the
// post-processing chain.
type Registry interface {
	Known(name string) bool
	Names() []string
}

// MemoryRegistry keeps plugin names in-memory and guards access with a RWMutex.
type MemoryRegistry struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

// NewMemoryRegistry returns a registry holding exactly the given names.
func NewMemoryRegistry(names ...string) (*MemoryRegistry, error) {
	r := &MemoryRegistry{names: make(map[string]struct{}, len(names))}
	if err := r.Register(names...); err != nil {
		return nil, err
	}
	return r, nil
}

// Default returns a registry seeded with the plugins bundled with the framework.
func Default() *MemoryRegistry {
	r := &MemoryRegistry{names: make(map[string]struct{}, len(defaultPlugins))}
	for _, name := range defaultPlugins {
		r.names[name] = struct{}{}
	}
	return r
}

// DefaultNames returns a sorted copy of the bundled plugin names.
func DefaultNames() []string {
	return sortedCopy(defaultPlugins)
}

// Register validates and adds names. Either all names are added or none.
func (r *MemoryRegistry) Register(names ...string) error {
	for _, name := range names {
		if !validName(name) {
			return ErrInvalidPluginName
		}
	}

	r.mu.Lock()
	for _, name := range names {
		r.names[name] = struct{}{}
	}
	r.mu.Unlock()

	return nil
}

// Known reports whether name has been registered.
func (r *MemoryRegistry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.names[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *MemoryRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func validName(name string) bool {
	return name != "" && !strings.ContainsFunc(name, unicode.IsSpace)
}

func sortedCopy(src []string) []string {
	out := make([]string, len(src))
	copy(out, src)
	sort.Strings(out)
	return out
}
