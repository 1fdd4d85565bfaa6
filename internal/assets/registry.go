// Package assets loads the three immutable catalogues the rendering
// surface is built from — templates, fragments, and styles — from a
// directory tree on disk, and exposes group-scoped lookup and listing
// over them. Catalogues are populated once at startup and read
// concurrently afterwards, mirroring the teacher's tool/prompt/resource
// registry in internal/mcp/registry.go.
package assets

import (
	"fmt"
	"sort"
	"sync"

	"github.com/docsmith/docsmith/internal/docmodel"
)

func key(group docmodel.Group, id string) string {
	return string(group) + "/" + id
}

// TemplateRegistry holds every loaded Template, keyed by (group, id).
type TemplateRegistry struct {
	mu    sync.RWMutex
	byKey map[string]docmodel.Template
	order []string
}

// NewTemplateRegistry creates an empty registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{byKey: make(map[string]docmodel.Template)}
}

// Register adds a template to the registry. Panics if (group, id) is
// already registered, since asset loading happens once at startup and a
// collision there is a packaging defect, not a runtime condition.
func (r *TemplateRegistry) Register(t docmodel.Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(t.Group, t.ID)
	if _, exists := r.byKey[k]; exists {
		panic(fmt.Sprintf("template %q already registered", k))
	}
	r.byKey[k] = t
	r.order = append(r.order, k)
}

// Get returns the template for (group, id) and whether it was found.
func (r *TemplateRegistry) Get(group docmodel.Group, id string) (docmodel.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byKey[key(group, id)]
	return t, ok
}

// List returns every template visible to group, sorted by ID for a
// stable listing.
func (r *TemplateRegistry) List(group docmodel.Group) []docmodel.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]docmodel.Template, 0, len(r.order))
	for _, k := range r.order {
		t := r.byKey[k]
		if t.Group == group {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FragmentRegistry holds every loaded standalone Fragment, keyed by
// (group, id).
type FragmentRegistry struct {
	mu    sync.RWMutex
	byKey map[string]docmodel.Fragment
	order []string
}

// NewFragmentRegistry creates an empty registry.
func NewFragmentRegistry() *FragmentRegistry {
	return &FragmentRegistry{byKey: make(map[string]docmodel.Fragment)}
}

// Register adds a fragment to the registry. Panics on a duplicate
// (group, id), per the packaging-defect rationale in TemplateRegistry.
func (r *FragmentRegistry) Register(f docmodel.Fragment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(f.Group, f.ID)
	if _, exists := r.byKey[k]; exists {
		panic(fmt.Sprintf("fragment %q already registered", k))
	}
	r.byKey[k] = f
	r.order = append(r.order, k)
}

// Get returns the fragment for (group, id) and whether it was found.
func (r *FragmentRegistry) Get(group docmodel.Group, id string) (docmodel.Fragment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byKey[key(group, id)]
	return f, ok
}

// List returns every fragment visible to group, sorted by ID.
func (r *FragmentRegistry) List(group docmodel.Group) []docmodel.Fragment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]docmodel.Fragment, 0, len(r.order))
	for _, k := range r.order {
		f := r.byKey[k]
		if f.Group == group {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StyleRegistry holds every loaded Style, keyed by (group, id).
type StyleRegistry struct {
	mu    sync.RWMutex
	byKey map[string]docmodel.Style
	order []string
}

// NewStyleRegistry creates an empty registry.
func NewStyleRegistry() *StyleRegistry {
	return &StyleRegistry{byKey: make(map[string]docmodel.Style)}
}

// Register adds a style to the registry. Panics on a duplicate
// (group, id).
func (r *StyleRegistry) Register(s docmodel.Style) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(s.Group, s.ID)
	if _, exists := r.byKey[k]; exists {
		panic(fmt.Sprintf("style %q already registered", k))
	}
	r.byKey[k] = s
	r.order = append(r.order, k)
}

// Get returns the style for (group, id) and whether it was found.
func (r *StyleRegistry) Get(group docmodel.Group, id string) (docmodel.Style, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[key(group, id)]
	return s, ok
}

// List returns every style visible to group, sorted by ID.
func (r *StyleRegistry) List(group docmodel.Group) []docmodel.Style {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]docmodel.Style, 0, len(r.order))
	for _, k := range r.order {
		s := r.byKey[k]
		if s.Group == group {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Default returns the style marked default for group, if any.
func (r *StyleRegistry) Default(group docmodel.Group) (docmodel.Style, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, k := range r.order {
		s := r.byKey[k]
		if s.Group == group && s.Default {
			return s, true
		}
	}
	return docmodel.Style{}, false
}

// Catalogue bundles the three registries an AssetLoader fills and the
// rendering/tool layers read from.
type Catalogue struct {
	Templates *TemplateRegistry
	Fragments *FragmentRegistry
	Styles    *StyleRegistry
}

// NewCatalogue creates three empty registries.
func NewCatalogue() *Catalogue {
	return &Catalogue{
		Templates: NewTemplateRegistry(),
		Fragments: NewFragmentRegistry(),
		Styles:    NewStyleRegistry(),
	}
}
