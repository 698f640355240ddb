package repository

import (
	"fmt"
	"math"
	"sync/atomic"
	"unicode"

	"github.com/google/uuid"

	"umlforge/local-app/internal/errs"
)

const maxIDLength = 128

var creationSeq atomic.Uint64

// NewID returns a fresh element id
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is well formed: non-empty, bounded, no spaces or control characters
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// Element is a node of the model graph.
// Once an element is part of a repository graph its fields can only change through operations.
type Element struct {
	id          string
	typ         *Type
	parent      *Element
	parentField string
	values      map[string]any
	seq         uint64
	attached    bool
}

func newElement(t *Type, id string) *Element {
	e := &Element{
		id:     id,
		typ:    t,
		values: make(map[string]any, len(t.fields)),
		seq:    creationSeq.Add(1),
	}
	for _, f := range t.fields {
		switch f.Kind {
		case FieldAttr:
			e.values[f.Name] = defaultValue(f)
		case FieldRef:
			e.values[f.Name] = (*Element)(nil)
		case FieldRefs, FieldOwned:
			e.values[f.Name] = []*Element(nil)
		}
	}
	return e
}

// NewElement creates a detached element of the given registered, concrete type
func NewElement(registry *Registry, typeName string) (*Element, error) {
	t, ok := registry.Lookup(typeName)
	if !ok {
		return nil, errs.InvalidArgument("unknown element type %q", typeName)
	}
	if t.abstract {
		return nil, errs.InvalidArgument("type %s is abstract", typeName)
	}
	return newElement(t, NewID()), nil
}

func defaultValue(f *Field) any {
	if f.Default != nil {
		if v, err := coerceAttr(f, f.Default); err == nil {
			return v
		}
	}
	switch f.AttrType {
	case AttrBool:
		return false
	case AttrInt:
		return 0
	case AttrFloat:
		return 0.0
	default:
		return ""
	}
}

func (e *Element) ID() string          { return e.id }
func (e *Element) Type() *Type         { return e.typ }
func (e *Element) TypeName() string    { return e.typ.name }
func (e *Element) Parent() *Element    { return e.parent }
func (e *Element) ParentField() string { return e.parentField }
func (e *Element) Attached() bool      { return e.attached }
func (e *Element) IsKindOf(name string) bool {
	return e.typ.IsKindOf(name)
}

// IsModel reports whether the element is in the model category
func (e *Element) IsModel() bool { return e.typ.category == CategoryModel }

// IsView reports whether the element is in the view category
func (e *Element) IsView() bool { return e.typ.category == CategoryView }

// HasField reports whether the element's type declares field
func (e *Element) HasField(field string) bool {
	_, ok := e.typ.byName[field]
	return ok
}

// Get returns the value of a field. List values are copies.
func (e *Element) Get(field string) (any, error) {
	f, ok := e.typ.byName[field]
	if !ok {
		return nil, errs.InvalidArgument("%s has no field %q", e.typ.name, field)
	}
	v := e.values[f.Name]
	if list, ok := v.([]*Element); ok {
		return cloneList(list), nil
	}
	return v, nil
}

// StringValue returns a string attribute, or "" when the field is absent
func (e *Element) StringValue(field string) string {
	s, _ := e.values[field].(string)
	return s
}

// BoolValue returns a bool attribute, or false when the field is absent
func (e *Element) BoolValue(field string) bool {
	b, _ := e.values[field].(bool)
	return b
}

// IntValue returns an int attribute, or 0 when the field is absent
func (e *Element) IntValue(field string) int {
	i, _ := e.values[field].(int)
	return i
}

// FloatValue returns a float attribute, or 0 when the field is absent
func (e *Element) FloatValue(field string) float64 {
	f, _ := e.values[field].(float64)
	return f
}

// Name returns the name attribute if the type has one
func (e *Element) Name() string {
	return e.StringValue(FieldName)
}

// Ref returns the target of a single reference field
func (e *Element) Ref(field string) *Element {
	ref, _ := e.values[field].(*Element)
	return ref
}

// Refs returns the targets of a reference list field
func (e *Element) Refs(field string) []*Element {
	f, ok := e.typ.byName[field]
	if !ok || f.Kind != FieldRefs {
		return nil
	}
	return cloneList(e.list(field))
}

// Children returns the elements owned through field
func (e *Element) Children(field string) []*Element {
	f, ok := e.typ.byName[field]
	if !ok || f.Kind != FieldOwned {
		return nil
	}
	return cloneList(e.list(field))
}

// OwnedElements returns every owned child across all owned fields, in field declaration order
func (e *Element) OwnedElements() []*Element {
	var out []*Element
	for _, f := range e.typ.fields {
		if f.Kind == FieldOwned {
			out = append(out, e.list(f.Name)...)
		}
	}
	return out
}

// Index returns the position of the element in its parent field, or -1 for a root
func (e *Element) Index() int {
	if e.parent == nil {
		return -1
	}
	return indexOf(e.parent.list(e.parentField), e)
}

// IsDescendantOf reports whether e is owned, directly or transitively, by ancestor
func (e *Element) IsDescendantOf(ancestor *Element) bool {
	for p := e.parent; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Walk visits e and its owned descendants depth first, parents before children.
// Returning false from visit stops the walk.
func (e *Element) Walk(visit func(*Element) bool) bool {
	if !visit(e) {
		return false
	}
	for _, child := range e.OwnedElements() {
		if !child.Walk(visit) {
			return false
		}
	}
	return true
}

// Set assigns an attribute or reference field of a detached element
func (e *Element) Set(field string, value any) error {
	if e.attached {
		return errs.InvalidArgument("element %s is in the graph; change it through the repository", e.id)
	}
	f, ok := e.typ.byName[field]
	if !ok {
		return errs.InvalidArgument("%s has no field %q", e.typ.name, field)
	}
	if f.Kind == FieldOwned {
		return errs.InvalidArgument("%s.%s is an owned field; use Append", e.typ.name, field)
	}
	v, err := coerce(f, value)
	if err != nil {
		return err
	}
	e.values[f.Name] = v
	return nil
}

// Append adds a detached child to an owned field of a detached element
func (e *Element) Append(field string, child *Element) error {
	if e.attached {
		return errs.InvalidArgument("element %s is in the graph; change it through the repository", e.id)
	}
	if child == nil || child == e {
		return errs.InvalidArgument("invalid child")
	}
	if child.attached || child.parent != nil {
		return errs.InvalidArgument("element %s already has an owner", child.id)
	}
	f, ok := e.typ.byName[field]
	if !ok || f.Kind != FieldOwned {
		return errs.InvalidArgument("%s has no owned field %q", e.typ.name, field)
	}
	if child.typ.abstract || !acceptsType(f, child.typ) {
		return errs.ReferentialIntegrity("%s.%s cannot contain %s", e.typ.name, field, child.typ.name)
	}
	if e.IsDescendantOf(child) {
		return errs.ReferentialIntegrity("ownership cycle between %s and %s", e.id, child.id)
	}
	child.parent = e
	child.parentField = field
	e.values[field] = append(e.list(field), child)
	return nil
}

// GoString identifies an element in debug output
func (e *Element) GoString() string {
	return fmt.Sprintf("%s(%s)", e.typ.name, e.id)
}

func (e *Element) list(field string) []*Element {
	l, _ := e.values[field].([]*Element)
	return l
}

// outgoing returns every (field, target) reference pair of e
func (e *Element) outgoing() []refEdge {
	var out []refEdge
	for _, f := range e.typ.fields {
		switch f.Kind {
		case FieldRef:
			if t := e.Ref(f.Name); t != nil {
				out = append(out, refEdge{source: e, field: f.Name, target: t})
			}
		case FieldRefs:
			for _, t := range e.list(f.Name) {
				out = append(out, refEdge{source: e, field: f.Name, target: t})
			}
		}
	}
	return out
}

type refEdge struct {
	source *Element
	field  string
	target *Element
}

func cloneList(list []*Element) []*Element {
	if list == nil {
		return nil
	}
	out := make([]*Element, len(list))
	copy(out, list)
	return out
}

func indexOf(list []*Element, e *Element) int {
	for i, item := range list {
		if item == e {
			return i
		}
	}
	return -1
}

func insertAt(list []*Element, index int, e *Element) ([]*Element, int) {
	if index < 0 || index > len(list) {
		index = len(list)
	}
	out := make([]*Element, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, e)
	out = append(out, list[index:]...)
	return out, index
}

func removeAt(list []*Element, index int) []*Element {
	out := make([]*Element, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...)
}

// coerce converts value to the representation stored for field f
func coerce(f *Field, value any) (any, error) {
	switch f.Kind {
	case FieldAttr:
		return coerceAttr(f, value)
	case FieldRef:
		ref, ok := value.(*Element)
		if value != nil && !ok {
			return nil, errs.InvalidArgument("field %s expects an element reference, got %T", f.Name, value)
		}
		if ref == nil {
			if f.Required {
				return nil, errs.InvalidArgument("field %s is required", f.Name)
			}
			return (*Element)(nil), nil
		}
		if f.Target != "" && !ref.IsKindOf(f.Target) {
			return nil, errs.InvalidArgument("field %s expects %s, got %s", f.Name, f.Target, ref.typ.name)
		}
		return ref, nil
	case FieldRefs:
		refs, ok := value.([]*Element)
		if value != nil && !ok {
			return nil, errs.InvalidArgument("field %s expects a reference list, got %T", f.Name, value)
		}
		for _, ref := range refs {
			if ref == nil {
				return nil, errs.InvalidArgument("field %s contains a nil reference", f.Name)
			}
			if f.Target != "" && !ref.IsKindOf(f.Target) {
				return nil, errs.InvalidArgument("field %s expects %s, got %s", f.Name, f.Target, ref.typ.name)
			}
		}
		return cloneList(refs), nil
	default:
		return nil, errs.InvalidArgument("field %s cannot be assigned", f.Name)
	}
}

func coerceAttr(f *Field, value any) (any, error) {
	switch f.AttrType {
	case AttrString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case AttrBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case AttrInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v == math.Trunc(v) {
				return int(v), nil
			}
		}
	case AttrFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	}
	return nil, errs.InvalidArgument("field %s: invalid value %v (%T)", f.Name, value, value)
}
