package app

import (
	"fmt"
	"strconv"
	"strings"

	"umlforge/local-app/internal/repository"
)

// Status describes the open project
type Status struct {
	Project  string
	Filename string
	Modified bool
	CanUndo  bool
	CanRedo  bool
}

// TreeNode is one line of the model explorer
type TreeNode struct {
	ID       string
	Label    string
	Type     string
	Children []TreeNode
}

// Properties lists the fields of one element
type Properties struct {
	Title string
	Rows  []Property
}

// Property is one field and its rendered value
type Property struct {
	Name  string
	Value string
}

// label names an element for display. Views without a name use their model's name.
func label(e *repository.Element) string {
	if e == nil {
		return "(none)"
	}
	name := e.Name()
	if name == "" && e.IsView() {
		if m := e.Ref(repository.FieldModel); m != nil {
			name = m.Name()
		}
	}
	if name == "" {
		name = "(" + e.TypeName() + ")"
	}
	return name
}

func buildTree(e *repository.Element) TreeNode {
	node := TreeNode{ID: e.ID(), Label: label(e), Type: e.TypeName()}
	for _, child := range e.OwnedElements() {
		node.Children = append(node.Children, buildTree(child))
	}
	return node
}

func buildProperties(e *repository.Element) Properties {
	p := Properties{Title: fmt.Sprintf("%s : %s", label(e), e.TypeName())}
	p.Rows = append(p.Rows, Property{Name: "id", Value: e.ID()})
	if parent := e.Parent(); parent != nil {
		p.Rows = append(p.Rows, Property{Name: "owner", Value: label(parent) + "." + e.ParentField()})
	}
	for _, f := range e.Type().Fields() {
		p.Rows = append(p.Rows, Property{Name: f.Name, Value: formatField(e, f)})
	}
	return p
}

func formatField(e *repository.Element, f *repository.Field) string {
	switch f.Kind {
	case repository.FieldRef:
		ref := e.Ref(f.Name)
		if ref == nil {
			return ""
		}
		return label(ref)
	case repository.FieldRefs:
		refs := e.Refs(f.Name)
		names := make([]string, len(refs))
		for i, ref := range refs {
			names[i] = label(ref)
		}
		return strings.Join(names, ", ")
	case repository.FieldOwned:
		return strconv.Itoa(len(e.Children(f.Name))) + " element(s)"
	default:
		v, err := e.Get(f.Name)
		if err != nil || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}
}
