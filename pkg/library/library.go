package library

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/killallgit/llt/pkg/logger"
	"github.com/killallgit/llt/pkg/metadata"
	"github.com/killallgit/llt/pkg/template"
)

// ErrNotFound is wrapped by every failed retrieval.
var ErrNotFound = errors.New("no template matches the metadata constraints")

// ErrDuplicate is wrapped when a template is added twice.
var ErrDuplicate = errors.New("template already registered")

type entry struct {
	tmpl template.Template
	seq  int
}

// Library is a mutex-guarded template registry with two companion indexes:
// metadata value → templates carrying it, and metadata type → the distinct
// values of that type present (the input material for fallback schemes).
type Library struct {
	mu        sync.Mutex
	entries   map[string]entry // by template ID
	seq       int
	byValue   map[any][]template.Template
	byType    map[reflect.Type][]metadata.Metadata
	typeSeen  map[any]struct{}
	fallbacks map[reflect.Type]metadata.FallbackScheme
}

// New creates an empty library with the language fallback scheme installed.
func New() *Library {
	l := &Library{
		entries:   make(map[string]entry),
		byValue:   make(map[any][]template.Template),
		byType:    make(map[reflect.Type][]metadata.Metadata),
		typeSeen:  make(map[any]struct{}),
		fallbacks: make(map[reflect.Type]metadata.FallbackScheme),
	}
	l.fallbacks[reflect.TypeOf(metadata.Language{})] = metadata.LanguageFallback{}
	return l
}

// RegisterFallback installs scheme for the concrete type of sample.
func (l *Library) RegisterFallback(sample metadata.Metadata, scheme metadata.FallbackScheme) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fallbacks[reflect.TypeOf(sample)] = scheme
}

// Add registers a template; adding the same template twice is an error.
func (l *Library) Add(t template.Template) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.add(t)
}

// TryAdd registers a template, reporting false on a duplicate.
func (l *Library) TryAdd(t template.Template) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.add(t) == nil
}

// AddRange registers templates in order, stopping at the first duplicate.
func (l *Library) AddRange(ts ...template.Template) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range ts {
		if err := l.add(t); err != nil {
			return err
		}
	}
	return nil
}

// TryAddRange registers templates, skipping duplicates, and returns how
// many were added.
func (l *Library) TryAddRange(ts ...template.Template) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	added := 0
	for _, t := range ts {
		if l.add(t) == nil {
			added++
		}
	}
	return added
}

func (l *Library) add(t template.Template) error {
	if t == nil {
		return fmt.Errorf("cannot register a nil template")
	}
	if _, dup := l.entries[t.ID()]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, t.ID())
	}
	l.seq++
	l.entries[t.ID()] = entry{tmpl: t, seq: l.seq}
	for _, m := range t.Metadata().All() {
		id := metadata.Identity(m)
		l.byValue[id] = append(l.byValue[id], t)
		if _, seen := l.typeSeen[id]; !seen {
			l.typeSeen[id] = struct{}{}
			mt := reflect.TypeOf(m)
			l.byType[mt] = append(l.byType[mt], m)
		}
	}
	logger.Debug("library: registered template",
		"id", t.ID(), "kind", t.TemplateKind(), "metadata", t.Metadata().Len())
	return nil
}

// Len returns the number of registered templates.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// All returns every registered template, most general first.
func (l *Library) All() []template.Template {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]template.Template, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.tmpl)
	}
	l.sortBySpecificity(out)
	return out
}

// ResolveTemplate implements template.Resolver: the lookup @render uses.
// With several candidates the most general one wins.
func (l *Library) ResolveTemplate(name string) (template.Template, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := l.byValue[metadata.Identity(metadata.Identifier(name))]
	if len(ts) == 0 {
		return nil, false
	}
	ordered := append([]template.Template(nil), ts...)
	l.sortBySpecificity(ordered)
	return ordered[0], true
}

// sortBySpecificity orders templates by ascending metadata count, then by
// registration order. Single-result retrievals take the head, so among the
// survivors of an intersection the template carrying no extra metadata
// wins.
func (l *Library) sortBySpecificity(ts []template.Template) {
	sort.SliceStable(ts, func(i, j int) bool {
		ci, cj := ts[i].Metadata().Len(), ts[j].Metadata().Len()
		if ci != cj {
			return ci < cj
		}
		return l.entries[ts[i].ID()].seq < l.entries[ts[j].ID()].seq
	})
}

// carrying returns the templates carrying m exactly; when the bucket is
// empty and fallback is enabled, the per-type scheme may substitute one of
// the library's known values of that type.
func (l *Library) carrying(m metadata.Metadata, useFallback bool) []template.Template {
	if ts := l.byValue[metadata.Identity(m)]; len(ts) > 0 {
		return ts
	}
	if !useFallback {
		return nil
	}
	scheme, ok := l.fallbacks[reflect.TypeOf(m)]
	if !ok {
		return nil
	}
	available := l.byType[reflect.TypeOf(m)]
	sub, ok := scheme.Fallback(m, available)
	if !ok {
		return nil
	}
	logger.Debug("library: fallback substituted metadata", "want", m, "got", sub)
	return l.byValue[metadata.Identity(sub)]
}

// retrieve is the core sequential-intersection algorithm of every
// retrieval variant.
func (l *Library) retrieve(useFallback, bestEffort bool, constraints []metadata.Metadata) ([]template.Template, error) {
	if len(constraints) == 0 {
		return nil, fmt.Errorf("%w: no constraints given", ErrNotFound)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	candidates := l.carrying(constraints[0], useFallback)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: nothing carries %v", ErrNotFound, constraints[0])
	}
	for _, m := range constraints[1:] {
		step := l.carrying(m, useFallback)
		next := intersect(candidates, step)
		if len(next) == 0 {
			if bestEffort {
				break
			}
			return nil, fmt.Errorf("%w: intersection emptied at %v", ErrNotFound, m)
		}
		candidates = next
	}
	out := append([]template.Template(nil), candidates...)
	l.sortBySpecificity(out)
	return out, nil
}

func intersect(candidates, step []template.Template) []template.Template {
	ids := make(map[string]struct{}, len(step))
	for _, t := range step {
		ids[t.ID()] = struct{}{}
	}
	var out []template.Template
	for _, t := range candidates {
		if _, ok := ids[t.ID()]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Named prepends an Identifier constraint, the convenience form every
// retrieval variant accepts in place of explicit metadata.
func Named(name string, extra ...metadata.Metadata) []metadata.Metadata {
	out := make([]metadata.Metadata, 0, len(extra)+1)
	out = append(out, metadata.Identifier(name))
	return append(out, extra...)
}

// Retrieve returns the single best match, failing when any constraint
// empties the intersection.
func (l *Library) Retrieve(constraints ...metadata.Metadata) (template.Template, error) {
	ts, err := l.retrieve(false, false, constraints)
	if err != nil {
		return nil, err
	}
	return ts[0], nil
}

// TryRetrieve is Retrieve with a boolean failure value.
func (l *Library) TryRetrieve(constraints ...metadata.Metadata) (template.Template, bool) {
	t, err := l.Retrieve(constraints...)
	return t, err == nil
}

// RetrieveAll returns every template surviving the full intersection.
func (l *Library) RetrieveAll(constraints ...metadata.Metadata) ([]template.Template, error) {
	return l.retrieve(false, false, constraints)
}

// TryRetrieveAll is RetrieveAll with a boolean failure value.
func (l *Library) TryRetrieveAll(constraints ...metadata.Metadata) ([]template.Template, bool) {
	ts, err := l.retrieve(false, false, constraints)
	return ts, err == nil
}

// RetrieveWithFallback retrieves with per-type fallback substitution on
// empty constraint buckets.
func (l *Library) RetrieveWithFallback(constraints ...metadata.Metadata) (template.Template, error) {
	ts, err := l.retrieve(true, false, constraints)
	if err != nil {
		return nil, err
	}
	return ts[0], nil
}

// TryRetrieveWithFallback is RetrieveWithFallback with a boolean failure
// value.
func (l *Library) TryRetrieveWithFallback(constraints ...metadata.Metadata) (template.Template, bool) {
	t, err := l.RetrieveWithFallback(constraints...)
	return t, err == nil
}

// RetrieveAllWithFallback is the all-results form of RetrieveWithFallback.
func (l *Library) RetrieveAllWithFallback(constraints ...metadata.Metadata) ([]template.Template, error) {
	return l.retrieve(true, false, constraints)
}

// TryRetrieveAllWithFallback is RetrieveAllWithFallback with a boolean
// failure value.
func (l *Library) TryRetrieveAllWithFallback(constraints ...metadata.Metadata) ([]template.Template, bool) {
	ts, err := l.retrieve(true, false, constraints)
	return ts, err == nil
}

// RetrieveClosest is the best-effort form: when a later constraint empties
// the intersection the last non-empty candidate set answers instead. It
// fails only when the first constraint matches nothing.
func (l *Library) RetrieveClosest(constraints ...metadata.Metadata) (template.Template, error) {
	ts, err := l.retrieve(false, true, constraints)
	if err != nil {
		return nil, err
	}
	return ts[0], nil
}

// RetrieveAllClosest is the all-results best-effort form.
func (l *Library) RetrieveAllClosest(constraints ...metadata.Metadata) ([]template.Template, error) {
	return l.retrieve(false, true, constraints)
}

// RetrieveClosestWithFallback combines best-effort intersection with
// per-type fallback.
func (l *Library) RetrieveClosestWithFallback(constraints ...metadata.Metadata) (template.Template, error) {
	ts, err := l.retrieve(true, true, constraints)
	if err != nil {
		return nil, err
	}
	return ts[0], nil
}

// RetrieveAllClosestWithFallback is the all-results form of
// RetrieveClosestWithFallback.
func (l *Library) RetrieveAllClosestWithFallback(constraints ...metadata.Metadata) ([]template.Template, error) {
	return l.retrieve(true, true, constraints)
}

// RetrieveNamed retrieves by identifier plus optional refinements.
func (l *Library) RetrieveNamed(name string, extra ...metadata.Metadata) (template.Template, error) {
	return l.Retrieve(Named(name, extra...)...)
}

// TryRetrieveNamed is RetrieveNamed with a boolean failure value.
func (l *Library) TryRetrieveNamed(name string, extra ...metadata.Metadata) (template.Template, bool) {
	return l.TryRetrieve(Named(name, extra...)...)
}

// RetrieveNamedWithFallback retrieves by identifier with fallback enabled.
func (l *Library) RetrieveNamedWithFallback(name string, extra ...metadata.Metadata) (template.Template, error) {
	return l.RetrieveWithFallback(Named(name, extra...)...)
}
