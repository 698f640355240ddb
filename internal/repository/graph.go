package repository

import (
	"iter"
	"sort"

	"umlforge/local-app/internal/errs"
)

type refKey struct {
	source *Element
	field  string
}

// Graph indexes the elements of one repository: by id, in creation order, and by incoming reference
type Graph struct {
	registry *Registry
	root     *Element
	byID     map[string]*Element
	order    []*Element
	incoming map[*Element]map[refKey]int
}

func newGraph(registry *Registry) *Graph {
	return &Graph{
		registry: registry,
		byID:     make(map[string]*Element),
		incoming: make(map[*Element]map[refKey]int),
	}
}

// Root returns the root element, nil for an empty graph
func (g *Graph) Root() *Element { return g.root }

// Len returns the number of elements in the graph
func (g *Graph) Len() int { return len(g.order) }

// Get returns the element with the given id, or nil if there is none
func (g *Graph) Get(id string) (*Element, error) {
	if !ValidID(id) {
		return nil, errs.InvalidArgument("malformed element id %q", id)
	}
	return g.byID[id], nil
}

// Find yields the elements matching pred in creation order
func (g *Graph) Find(pred func(*Element) bool) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		for i := 0; i < len(g.order); i++ {
			e := g.order[i]
			if pred != nil && !pred(e) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// FindAll returns the elements matching pred in creation order
func (g *Graph) FindAll(pred func(*Element) bool) []*Element {
	var out []*Element
	for e := range g.Find(pred) {
		out = append(out, e)
	}
	return out
}

// GetInstancesOf returns the elements of typeName and its subtypes
func (g *Graph) GetInstancesOf(typeName string) ([]*Element, error) {
	if _, ok := g.registry.Lookup(typeName); !ok {
		return nil, errs.InvalidArgument("unknown element type %q", typeName)
	}
	return g.FindAll(func(e *Element) bool { return e.IsKindOf(typeName) }), nil
}

// GetViewsOf returns the views whose model reference is m
func (g *Graph) GetViewsOf(m *Element) []*Element {
	return g.referrers(m, func(source *Element, field string) bool {
		return field == FieldModel && source.IsView()
	})
}

// GetRelationshipsOf returns every element with a reference field pointing at e
func (g *Graph) GetRelationshipsOf(e *Element) []*Element {
	return g.referrers(e, nil)
}

func (g *Graph) referrers(target *Element, accept func(*Element, string) bool) []*Element {
	if target == nil {
		return nil
	}
	seen := make(map[*Element]bool)
	var out []*Element
	for key := range g.incoming[target] {
		if seen[key.source] || !key.source.attached {
			continue
		}
		if accept != nil && !accept(key.source, key.field) {
			continue
		}
		seen[key.source] = true
		out = append(out, key.source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// incomingRefs lists the live (source, field) pairs referencing target
func (g *Graph) incomingRefs(target *Element) []refEdge {
	var out []refEdge
	for key, count := range g.incoming[target] {
		if count > 0 && key.source.attached {
			out = append(out, refEdge{source: key.source, field: key.field, target: target})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].source.seq != out[j].source.seq {
			return out[i].source.seq < out[j].source.seq
		}
		return out[i].field < out[j].field
	})
	return out
}

// attach registers e and its subtree in the graph
func (g *Graph) attach(e *Element) {
	e.Walk(func(el *Element) bool {
		el.attached = true
		g.byID[el.id] = el
		g.insertOrdered(el)
		for _, ref := range el.outgoing() {
			g.addRef(ref)
		}
		return true
	})
}

// detach unregisters e and its subtree. References pointing into the subtree stay indexed.
func (g *Graph) detach(e *Element) {
	e.Walk(func(el *Element) bool {
		for _, ref := range el.outgoing() {
			g.removeRef(ref)
		}
		delete(g.byID, el.id)
		g.removeOrdered(el)
		el.attached = false
		return true
	})
}

func (g *Graph) addRef(ref refEdge) {
	m := g.incoming[ref.target]
	if m == nil {
		m = make(map[refKey]int)
		g.incoming[ref.target] = m
	}
	m[refKey{source: ref.source, field: ref.field}]++
}

func (g *Graph) removeRef(ref refEdge) {
	m := g.incoming[ref.target]
	if m == nil {
		return
	}
	key := refKey{source: ref.source, field: ref.field}
	m[key]--
	if m[key] <= 0 {
		delete(m, key)
	}
	if len(m) == 0 {
		delete(g.incoming, ref.target)
	}
}

func (g *Graph) insertOrdered(e *Element) {
	i := sort.Search(len(g.order), func(i int) bool { return g.order[i].seq >= e.seq })
	g.order = append(g.order, nil)
	copy(g.order[i+1:], g.order[i:])
	g.order[i] = e
}

func (g *Graph) removeOrdered(e *Element) {
	i := sort.Search(len(g.order), func(i int) bool { return g.order[i].seq >= e.seq })
	if i < len(g.order) && g.order[i] == e {
		g.order = append(g.order[:i], g.order[i+1:]...)
	}
}

func (g *Graph) reset() {
	for _, e := range g.order {
		e.attached = false
	}
	g.root = nil
	g.byID = make(map[string]*Element)
	g.order = nil
	g.incoming = make(map[*Element]map[refKey]int)
}
