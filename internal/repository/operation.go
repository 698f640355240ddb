package repository

import (
	"fmt"

	"umlforge/local-app/internal/errs"
)

// OperationKind identifies the kind of an atomic change
type OperationKind int

const (
	OpCreate OperationKind = iota
	OpUpdate
	OpDelete
	OpReorder
	OpRelocate
)

func (k OperationKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpReorder:
		return "reorder"
	case OpRelocate:
		return "relocate"
	default:
		return "unknown"
	}
}

// Operation is one reversible change of the graph.
// Positional data not supplied by the caller (old values, old positions) is captured when the operation is applied.
type Operation struct {
	Kind    OperationKind
	Element *Element

	// update
	Field    string
	OldValue any
	NewValue any

	// create, delete, relocate target position; reorder uses Index only
	Parent *Element
	// ParentField is the owning field on Parent
	ParentField string
	// Index is the position in the owning field, -1 appends
	Index int

	// reorder, relocate source position
	OldParent      *Element
	OldParentField string
	OldIndex       int
}

// Create adds elem, with its owned subtree, to parent's field at index (-1 appends).
// A nil parent installs elem as the root of an empty graph.
func Create(elem, parent *Element, field string, index int) *Operation {
	return &Operation{Kind: OpCreate, Element: elem, Parent: parent, ParentField: field, Index: index}
}

// Update sets field of elem to value
func Update(elem *Element, field string, value any) *Operation {
	return &Operation{Kind: OpUpdate, Element: elem, Field: field, NewValue: value}
}

// Delete removes elem and its owned subtree
func Delete(elem *Element) *Operation {
	return &Operation{Kind: OpDelete, Element: elem, Index: -1}
}

// Reorder moves elem to index inside its current owning field
func Reorder(elem *Element, index int) *Operation {
	return &Operation{Kind: OpReorder, Element: elem, Index: index}
}

// Relocate moves elem under a new parent's field at index (-1 appends)
func Relocate(elem, parent *Element, field string, index int) *Operation {
	return &Operation{Kind: OpRelocate, Element: elem, Parent: parent, ParentField: field, Index: index}
}

func (op *Operation) String() string {
	if op.Element == nil {
		return op.Kind.String()
	}
	if op.Kind == OpUpdate {
		return fmt.Sprintf("%s %s.%s", op.Kind, op.Element.id, op.Field)
	}
	return fmt.Sprintf("%s %s", op.Kind, op.Element.id)
}

// Inverse returns the operation undoing op. It is only meaningful after op was applied.
func (op *Operation) Inverse() *Operation {
	switch op.Kind {
	case OpCreate:
		return &Operation{Kind: OpDelete, Element: op.Element, Parent: op.Parent, ParentField: op.ParentField, Index: op.Index}
	case OpDelete:
		return &Operation{Kind: OpCreate, Element: op.Element, Parent: op.Parent, ParentField: op.ParentField, Index: op.Index}
	case OpUpdate:
		return &Operation{Kind: OpUpdate, Element: op.Element, Field: op.Field, OldValue: op.NewValue, NewValue: op.OldValue}
	case OpReorder:
		return &Operation{Kind: OpReorder, Element: op.Element, Index: op.OldIndex, OldIndex: op.Index}
	case OpRelocate:
		return &Operation{
			Kind: OpRelocate, Element: op.Element,
			Parent: op.OldParent, ParentField: op.OldParentField, Index: op.OldIndex,
			OldParent: op.Parent, OldParentField: op.ParentField, OldIndex: op.Index,
		}
	}
	return nil
}

// touchedRefs lists the references introduced by op, checked once the transaction completes
func (op *Operation) touchedRefs() []refEdge {
	switch op.Kind {
	case OpCreate:
		var out []refEdge
		op.Element.Walk(func(el *Element) bool {
			out = append(out, el.outgoing()...)
			return true
		})
		return out
	case OpUpdate:
		var out []refEdge
		switch v := op.NewValue.(type) {
		case *Element:
			if v != nil {
				out = append(out, refEdge{source: op.Element, field: op.Field, target: v})
			}
		case []*Element:
			for _, t := range v {
				out = append(out, refEdge{source: op.Element, field: op.Field, target: t})
			}
		}
		return out
	}
	return nil
}

// apply validates op against g and, only if valid, mutates the graph
func (op *Operation) apply(g *Graph) error {
	if op.Element == nil {
		return errs.InvalidArgument("%s: element is nil", op.Kind)
	}
	switch op.Kind {
	case OpCreate:
		return op.applyCreate(g)
	case OpUpdate:
		return op.applyUpdate(g)
	case OpDelete:
		return op.applyDelete(g)
	case OpReorder:
		return op.applyReorder(g)
	case OpRelocate:
		return op.applyRelocate(g)
	default:
		return errs.InvalidArgument("unknown operation kind %d", op.Kind)
	}
}

func (op *Operation) applyCreate(g *Graph) error {
	e := op.Element
	if e.attached {
		return errs.InvalidArgument("element %s is already in the graph", e.id)
	}
	if e.parent != nil && e.parent != op.Parent {
		return errs.InvalidArgument("element %s is owned by another element", e.id)
	}

	if op.Parent == nil {
		if g.root != nil {
			return errs.ReferentialIntegrity("graph already has a root")
		}
	} else {
		if !op.Parent.attached {
			return errs.InvalidArgument("parent %s is not in the graph", op.Parent.id)
		}
		if !g.registry.CanContain(op.Parent.typ.name, op.ParentField, e.typ.name) {
			return errs.ReferentialIntegrity("%s.%s cannot contain %s", op.Parent.typ.name, op.ParentField, e.typ.name)
		}
		if op.Index < -1 {
			return errs.InvalidArgument("invalid index %d", op.Index)
		}
	}

	ids := make(map[string]bool)
	var invalid error
	e.Walk(func(el *Element) bool {
		switch {
		case el.attached:
			invalid = errs.InvalidArgument("element %s is already in the graph", el.id)
		case ids[el.id] || g.byID[el.id] != nil:
			invalid = errs.InvalidArgument("duplicate element id %s", el.id)
		default:
			invalid = checkRequired(el)
		}
		ids[el.id] = true
		return invalid == nil
	})
	if invalid != nil {
		return invalid
	}

	if op.Parent == nil {
		g.root = e
		e.parent = nil
		e.parentField = ""
		op.Index = -1
	} else {
		list, index := insertAt(op.Parent.list(op.ParentField), op.Index, e)
		op.Parent.values[op.ParentField] = list
		e.parent = op.Parent
		e.parentField = op.ParentField
		op.Index = index
	}
	g.attach(e)
	return nil
}

func (op *Operation) applyDelete(g *Graph) error {
	e := op.Element
	if !e.attached {
		return errs.InvalidArgument("element %s is not in the graph", e.id)
	}

	if e.parent == nil {
		g.root = nil
		op.Parent, op.ParentField, op.Index = nil, "", -1
	} else {
		parent := e.parent
		list := parent.list(e.parentField)
		index := indexOf(list, e)
		if index < 0 {
			return errs.InvalidArgument("element %s is missing from its owner", e.id)
		}
		parent.values[e.parentField] = removeAt(list, index)
		op.Parent, op.ParentField, op.Index = parent, e.parentField, index
	}

	g.detach(e)
	e.parent = nil
	e.parentField = ""
	return nil
}

func (op *Operation) applyUpdate(g *Graph) error {
	e := op.Element
	if !e.attached {
		return errs.InvalidArgument("element %s is not in the graph", e.id)
	}
	f, ok := e.typ.byName[op.Field]
	if !ok {
		return errs.InvalidArgument("%s has no field %q", e.typ.name, op.Field)
	}
	value, err := coerce(f, op.NewValue)
	if err != nil {
		return err
	}

	old := e.values[f.Name]
	for _, ref := range e.outgoingField(f) {
		g.removeRef(ref)
	}
	e.values[f.Name] = value
	for _, ref := range e.outgoingField(f) {
		g.addRef(ref)
	}

	if list, ok := old.([]*Element); ok {
		old = cloneList(list)
	}
	op.OldValue = old
	op.NewValue = value
	return nil
}

func (op *Operation) applyReorder(g *Graph) error {
	e := op.Element
	if !e.attached {
		return errs.InvalidArgument("element %s is not in the graph", e.id)
	}
	if e.parent == nil {
		return errs.InvalidArgument("the root element cannot be reordered")
	}
	list := e.parent.list(e.parentField)
	if op.Index < 0 || op.Index >= len(list) {
		return errs.InvalidArgument("index %d out of range [0, %d)", op.Index, len(list))
	}
	old := indexOf(list, e)
	list, _ = insertAt(removeAt(list, old), op.Index, e)
	e.parent.values[e.parentField] = list
	op.OldIndex = old
	op.ParentField = e.parentField
	return nil
}

func (op *Operation) applyRelocate(g *Graph) error {
	e := op.Element
	target := op.Parent
	switch {
	case !e.attached:
		return errs.InvalidArgument("element %s is not in the graph", e.id)
	case e.parent == nil:
		return errs.InvalidArgument("the root element cannot be relocated")
	case target == nil || !target.attached:
		return errs.InvalidArgument("relocation target is not in the graph")
	case target == e || target.IsDescendantOf(e):
		return errs.ReferentialIntegrity("cannot relocate %s into itself or its descendant", e.id)
	case !g.registry.CanContain(target.typ.name, op.ParentField, e.typ.name):
		return errs.ReferentialIntegrity("%s.%s cannot contain %s", target.typ.name, op.ParentField, e.typ.name)
	case op.Index < -1:
		return errs.InvalidArgument("invalid index %d", op.Index)
	}

	oldParent, oldField := e.parent, e.parentField
	oldList := oldParent.list(oldField)
	oldIndex := indexOf(oldList, e)
	oldParent.values[oldField] = removeAt(oldList, oldIndex)

	list, index := insertAt(target.list(op.ParentField), op.Index, e)
	target.values[op.ParentField] = list
	e.parent = target
	e.parentField = op.ParentField

	op.OldParent, op.OldParentField, op.OldIndex = oldParent, oldField, oldIndex
	op.Index = index
	return nil
}

func checkRequired(e *Element) error {
	for _, f := range e.typ.fields {
		if f.Kind == FieldRef && f.Required && e.Ref(f.Name) == nil {
			return errs.InvalidArgument("%s %s: field %s is required", e.typ.name, e.id, f.Name)
		}
	}
	return nil
}

func (e *Element) outgoingField(f *Field) []refEdge {
	var out []refEdge
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
	return out
}
