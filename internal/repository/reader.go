package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"umlforge/local-app/internal/errs"
)

// ReadOptions controls how a serialized subtree is turned back into elements
type ReadOptions struct {
	// RegenerateIDs gives every read element a fresh id after references are resolved
	RegenerateIDs bool
	// AllowExternalRefs resolves ids missing from the document against the repository graph
	AllowExternalRefs bool
}

type pendingRef struct {
	elem  *Element
	field *Field
	ids   []string
	path  string
}

// reader builds elements in two phases: first every element of the document is constructed into
// an arena keyed by id, then references are resolved against the arena (and optionally the graph)
type reader struct {
	registry *Registry
	external func(id string) *Element
	arena    map[string]*Element
	order    []*Element
	pending  []pendingRef
}

// ReadObject parses a serialized subtree into a detached element tree.
// external, when not nil, resolves ids that are not defined in the document.
func ReadObject(registry *Registry, data []byte, opts ReadOptions, external func(id string) *Element) (*Element, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, errs.Serialization("document root must be an object")
	}

	rd := newReader(registry, opts, external)
	root, err := rd.readElement(obj, "$")
	if err != nil {
		return nil, err
	}
	if err := rd.finish(opts); err != nil {
		return nil, err
	}
	return root, nil
}

// ReadObjects parses an array of subtrees written by WriteObjects.
// References between the subtrees are resolved inside the document.
func ReadObjects(registry *Registry, data []byte, opts ReadOptions, external func(id string) *Element) ([]*Element, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, errs.Serialization("document root must be an array")
	}

	rd := newReader(registry, opts, external)
	roots := make([]*Element, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errs.Serialization("$[%d]: expected an object", i)
		}
		root, err := rd.readElement(obj, fmt.Sprintf("$[%d]", i))
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	if err := rd.finish(opts); err != nil {
		return nil, err
	}
	return roots, nil
}

func decodeDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, errs.Wrap(errs.KindSerialization, err, "malformed document")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errs.Serialization("unexpected data after document")
	}
	return doc, nil
}

func newReader(registry *Registry, opts ReadOptions, external func(id string) *Element) *reader {
	rd := &reader{
		registry: registry,
		arena:    make(map[string]*Element),
	}
	if opts.AllowExternalRefs {
		rd.external = external
	}
	return rd
}

func (rd *reader) finish(opts ReadOptions) error {
	if err := rd.resolve(); err != nil {
		return err
	}
	if opts.RegenerateIDs {
		for _, e := range rd.order {
			e.id = NewID()
		}
	}
	return nil
}

// ReadObject parses a serialized subtree; external references resolve against this repository's graph
func (r *Repository) ReadObject(data []byte, opts ReadOptions) (*Element, error) {
	return ReadObject(r.registry, data, opts, r.lookup)
}

// ReadObjects parses an array of subtrees; external references resolve against this repository's graph
func (r *Repository) ReadObjects(data []byte, opts ReadOptions) ([]*Element, error) {
	return ReadObjects(r.registry, data, opts, r.lookup)
}

func (r *Repository) lookup(id string) *Element {
	e, _ := r.graph.Get(id)
	return e
}

func (rd *reader) readElement(obj map[string]any, path string) (*Element, error) {
	typeName, ok := obj[keyType].(string)
	if !ok {
		return nil, errs.Serialization("%s: missing %s", path, keyType)
	}
	t, ok := rd.registry.Lookup(typeName)
	if !ok {
		return nil, errs.Serialization("%s: unknown type %q", path, typeName)
	}
	if t.abstract {
		return nil, errs.Serialization("%s: type %s is abstract", path, typeName)
	}

	id, ok := obj[keyID].(string)
	if !ok || !ValidID(id) {
		return nil, errs.Serialization("%s: missing or malformed %s", path, keyID)
	}
	if _, dup := rd.arena[id]; dup {
		return nil, errs.Serialization("%s: duplicate id %s", path, id)
	}

	e := newElement(t, id)
	rd.arena[id] = e
	rd.order = append(rd.order, e)

	for key := range obj {
		if key == keyType || key == keyID || key == keyParent {
			continue
		}
		if _, ok := t.byName[key]; !ok {
			return nil, errs.Serialization("%s: %s has no field %q", path, typeName, key)
		}
	}

	// Declared field order keeps creation order deterministic
	for _, f := range t.fields {
		raw, present := obj[f.Name]
		if !present {
			continue
		}
		fieldPath := path + "." + f.Name

		switch f.Kind {
		case FieldAttr:
			v, err := decodeAttr(f, raw)
			if err != nil {
				return nil, errs.Wrap(errs.KindSerialization, err, fieldPath)
			}
			e.values[f.Name] = v

		case FieldRef:
			if raw == nil {
				continue
			}
			refID, err := decodeRef(raw)
			if err != nil {
				return nil, errs.Wrap(errs.KindSerialization, err, fieldPath)
			}
			rd.pending = append(rd.pending, pendingRef{elem: e, field: f, ids: []string{refID}, path: fieldPath})

		case FieldRefs:
			items, ok := raw.([]any)
			if !ok {
				return nil, errs.Serialization("%s: expected an array", fieldPath)
			}
			ids := make([]string, 0, len(items))
			for _, item := range items {
				refID, err := decodeRef(item)
				if err != nil {
					return nil, errs.Wrap(errs.KindSerialization, err, fieldPath)
				}
				ids = append(ids, refID)
			}
			rd.pending = append(rd.pending, pendingRef{elem: e, field: f, ids: ids, path: fieldPath})

		case FieldOwned:
			items, ok := raw.([]any)
			if !ok {
				return nil, errs.Serialization("%s: expected an array", fieldPath)
			}
			children := make([]*Element, 0, len(items))
			for i, item := range items {
				childObj, ok := item.(map[string]any)
				if !ok {
					return nil, errs.Serialization("%s[%d]: expected an object", fieldPath, i)
				}
				child, err := rd.readElement(childObj, fmt.Sprintf("%s[%d]", fieldPath, i))
				if err != nil {
					return nil, err
				}
				if child.typ.abstract || !acceptsType(f, child.typ) {
					return nil, errs.Serialization("%s[%d]: %s cannot contain %s", fieldPath, i, typeName, child.typ.name)
				}
				child.parent = e
				child.parentField = f.Name
				children = append(children, child)
			}
			e.values[f.Name] = children
		}
	}
	return e, nil
}

// resolve is the second phase: every recorded reference id becomes an element pointer
func (rd *reader) resolve() error {
	for _, p := range rd.pending {
		targets := make([]*Element, 0, len(p.ids))
		for _, id := range p.ids {
			target := rd.arena[id]
			if target == nil && rd.external != nil {
				target = rd.external(id)
			}
			if target == nil {
				return errs.Serialization("%s: unresolved reference %s", p.path, id)
			}
			targets = append(targets, target)
		}

		var value any = targets
		if p.field.Kind == FieldRef {
			value = targets[0]
		}
		v, err := coerce(p.field, value)
		if err != nil {
			return errs.Wrap(errs.KindSerialization, err, p.path)
		}
		p.elem.values[p.field.Name] = v
	}

	for _, e := range rd.order {
		if err := checkRequired(e); err != nil {
			return errs.Wrap(errs.KindSerialization, err, "incomplete element")
		}
	}
	return nil
}

func decodeRef(raw any) (string, error) {
	obj, ok := raw.(map[string]any)
	if !ok || len(obj) != 1 {
		return "", fmt.Errorf("expected {%q: id}", keyRef)
	}
	id, ok := obj[keyRef].(string)
	if !ok || !ValidID(id) {
		return "", fmt.Errorf("malformed reference id")
	}
	return id, nil
}

func decodeAttr(f *Field, raw any) (any, error) {
	if n, ok := raw.(json.Number); ok {
		switch f.AttrType {
		case AttrInt:
			i, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("expected an integer, got %s", n)
			}
			raw = i
		case AttrFloat:
			v, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("expected a number, got %s", n)
			}
			raw = v
		}
	}
	return coerceAttr(f, raw)
}
