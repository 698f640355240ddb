package repository

import (
	"fmt"
	"sort"
)

// Category separates model elements from view elements
type Category int

const (
	CategoryModel Category = iota
	CategoryView
)

func (c Category) String() string {
	if c == CategoryView {
		return "view"
	}
	return "model"
}

// FieldKind describes how a field stores its value
type FieldKind int

const (
	FieldAttr  FieldKind = iota // scalar value
	FieldRef                    // single cross reference, may be nil
	FieldRefs                   // ordered list of cross references
	FieldOwned                  // ordered list of owned children
)

// AttrType is the scalar type of an attribute field
type AttrType int

const (
	AttrString AttrType = iota
	AttrBool
	AttrInt
	AttrFloat
)

// DeletePolicy tells the engine what to do with a reference whose target is being deleted
type DeletePolicy int

const (
	OnDeleteClear DeletePolicy = iota
	OnDeleteCascade
	OnDeleteRestrict
)

// Field declares one field of a type
type Field struct {
	Name     string
	Kind     FieldKind
	AttrType AttrType
	// Target restricts the type of referenced or owned elements
	Target string
	// Allowed lists the accepted child types of an owned field, overriding Target
	Allowed []string
	// Excluded lists child types rejected even when Allowed or Target match
	Excluded []string
	Required bool
	Default  any
	OnDelete DeletePolicy
}

// TypeSpec is the registration form of a type
type TypeSpec struct {
	Name         string
	Super        string
	Category     Category
	Abstract     bool
	Fields       []Field
	NotDeletable bool
	NotCopyable  bool
}

// Type is a registered, resolved type
type Type struct {
	name      string
	super     *Type
	category  Category
	abstract  bool
	deletable bool
	copyable  bool
	fields    []*Field
	byName    map[string]*Field
}

func (t *Type) Name() string       { return t.name }
func (t *Type) Super() *Type       { return t.super }
func (t *Type) Category() Category { return t.category }
func (t *Type) Abstract() bool     { return t.abstract }
func (t *Type) Deletable() bool    { return t.deletable }
func (t *Type) Copyable() bool     { return t.copyable }

// Fields returns every field of the type, inherited fields first
func (t *Type) Fields() []*Field {
	out := make([]*Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// Field looks up a field by name, including inherited ones
func (t *Type) Field(name string) (*Field, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// IsKindOf reports whether t is name or one of its subtypes
func (t *Type) IsKindOf(name string) bool {
	for cur := t; cur != nil; cur = cur.super {
		if cur.name == name {
			return true
		}
	}
	return false
}

// Registry holds the metamodel, keyed by type tag
type Registry struct {
	types map[string]*Type
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Register adds a type. Its super type must already be registered.
func (r *Registry) Register(spec TypeSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("type name is required")
	}
	if _, exists := r.types[spec.Name]; exists {
		return fmt.Errorf("type %s already registered", spec.Name)
	}

	t := &Type{
		name:      spec.Name,
		category:  spec.Category,
		abstract:  spec.Abstract,
		deletable: !spec.NotDeletable,
		copyable:  !spec.NotCopyable,
		byName:    make(map[string]*Field),
	}

	if spec.Super != "" {
		super, ok := r.types[spec.Super]
		if !ok {
			return fmt.Errorf("super type %s of %s is not registered", spec.Super, spec.Name)
		}
		t.super = super
		t.category = super.category
		t.deletable = t.deletable && super.deletable
		t.copyable = t.copyable && super.copyable
		for _, f := range super.fields {
			t.fields = append(t.fields, f)
			t.byName[f.Name] = f
		}
	}

	for i := range spec.Fields {
		f := spec.Fields[i]
		if f.Name == "" || f.Name[0] == '_' {
			return fmt.Errorf("invalid field name %q on %s", f.Name, spec.Name)
		}
		if _, exists := t.byName[f.Name]; exists {
			return fmt.Errorf("field %s.%s already declared", spec.Name, f.Name)
		}
		if f.Target != "" {
			if _, ok := r.types[f.Target]; !ok && f.Target != spec.Name {
				return fmt.Errorf("target type %s of %s.%s is not registered", f.Target, spec.Name, f.Name)
			}
		}
		t.fields = append(t.fields, &f)
		t.byName[f.Name] = &f
	}

	r.types[spec.Name] = t
	return nil
}

// Lookup returns the type registered under name
func (r *Registry) Lookup(name string) (*Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Types returns the names of all registered types, sorted
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsKindOf reports whether typeName is super or one of its subtypes
func (r *Registry) IsKindOf(typeName, super string) bool {
	t, ok := r.types[typeName]
	return ok && t.IsKindOf(super)
}

// CanContain reports whether an element of parentType can own a childType element through field
func (r *Registry) CanContain(parentType, field, childType string) bool {
	parent, ok := r.types[parentType]
	if !ok {
		return false
	}
	child, ok := r.types[childType]
	if !ok || child.abstract {
		return false
	}
	f, ok := parent.byName[field]
	if !ok || f.Kind != FieldOwned {
		return false
	}
	return acceptsType(f, child)
}

func acceptsType(f *Field, t *Type) bool {
	for _, name := range f.Excluded {
		if t.IsKindOf(name) {
			return false
		}
	}
	if len(f.Allowed) > 0 {
		for _, name := range f.Allowed {
			if t.IsKindOf(name) {
				return true
			}
		}
		return false
	}
	return f.Target == "" || t.IsKindOf(f.Target)
}

// CanDelete reports whether elements of typeName may be deleted
func (r *Registry) CanDelete(typeName string) bool {
	t, ok := r.types[typeName]
	return ok && t.deletable
}

// CanCopy reports whether elements of typeName may be copied to the clipboard
func (r *Registry) CanCopy(typeName string) bool {
	t, ok := r.types[typeName]
	return ok && t.copyable
}
