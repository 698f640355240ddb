package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlforge/local-app/internal/errs"
)

func TestRegistryInheritance(t *testing.T) {
	reg := DefaultRegistry()

	classView, ok := reg.Lookup(TypeClassView)
	require.True(t, ok)
	assert.Equal(t, CategoryView, classView.Category())
	assert.True(t, classView.IsKindOf(TypeNodeView))
	assert.True(t, classView.IsKindOf(TypeView))
	assert.False(t, classView.IsKindOf(TypeModel))

	for _, name := range []string{FieldModel, "visible", "fillColor", "left", "autoResize"} {
		_, ok := classView.Field(name)
		assert.True(t, ok, "ClassView inherits %s", name)
	}

	project, _ := reg.Lookup(TypeProject)
	assert.False(t, project.Deletable())
	assert.False(t, project.Copyable())
	assert.False(t, reg.CanDelete(TypeProject))
	assert.True(t, reg.CanDelete(TypeClass))
	assert.False(t, reg.CanCopy(TypeProject))
	assert.False(t, reg.CanDelete("Widget"))

	assert.True(t, reg.IsKindOf(TypeDependency, TypeRelationship))
	assert.False(t, reg.IsKindOf(TypeClass, TypeRelationship))
}

func TestRegistryCanContain(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		parent, field, child string
		want                 bool
	}{
		{TypePackage, FieldOwnedElements, TypeClass, true},
		{TypePackage, FieldOwnedElements, TypeClassDiagram, true},
		{TypePackage, FieldOwnedElements, TypeClassView, false},
		{TypePackage, FieldOwnedElements, TypeModel, false},
		{TypeClass, "attributes", TypeAttribute, true},
		{TypePackage, FieldOwnedElements, TypeAttribute, false},
		{TypeClass, FieldOwnedElements, TypeAttribute, false},
		{TypeClass, "attributes", TypeClass, false},
		{TypeClassDiagram, FieldOwnedViews, TypeClassView, true},
		{TypeClassDiagram, FieldOwnedViews, TypeClass, false},
		{TypeClassView, FieldSubViews, TypeLabelView, true},
		{TypeClass, FieldName, TypeClass, false},
		{TypeClass, "missing", TypeClass, false},
		{"Widget", FieldOwnedElements, TypeClass, false},
	}
	for _, tt := range tests {
		got := reg.CanContain(tt.parent, tt.field, tt.child)
		assert.Equal(t, tt.want, got, "%s.%s <- %s", tt.parent, tt.field, tt.child)
	}
}

func TestRegistryRegisterErrors(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(TypeSpec{Name: "Base", Abstract: true, Fields: []Field{
		{Name: "label", Kind: FieldAttr, AttrType: AttrString},
	}}))

	tests := []struct {
		name string
		spec TypeSpec
	}{
		{"empty name", TypeSpec{}},
		{"duplicate type", TypeSpec{Name: "Base"}},
		{"unknown super", TypeSpec{Name: "Leaf", Super: "Missing"}},
		{"reserved field name", TypeSpec{Name: "Leaf", Fields: []Field{{Name: "_id", Kind: FieldAttr}}}},
		{"redeclared field", TypeSpec{Name: "Leaf", Super: "Base", Fields: []Field{{Name: "label", Kind: FieldAttr}}}},
		{"unknown target", TypeSpec{Name: "Leaf", Fields: []Field{{Name: "ref", Kind: FieldRef, Target: "Missing"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, reg.Register(tt.spec))
		})
	}

	require.NoError(t, reg.Register(TypeSpec{Name: "Node", Fields: []Field{
		{Name: "next", Kind: FieldRef, Target: "Node"},
	}}), "a type may reference itself")
	assert.Equal(t, []string{"Base", "Node"}, reg.Types())
}

func TestNewElementDefaults(t *testing.T) {
	reg := DefaultRegistry()

	_, err := NewElement(reg, "Widget")
	assert.True(t, errs.Is(err, errs.KindInvalidArgument))
	_, err = NewElement(reg, TypeView)
	assert.True(t, errs.Is(err, errs.KindInvalidArgument), "abstract types cannot be instantiated")

	e, err := NewElement(reg, TypeNoteView)
	require.NoError(t, err)
	assert.True(t, ValidID(e.ID()))
	assert.True(t, e.IsView())
	assert.False(t, e.Attached())
	assert.Equal(t, 13.0, e.FloatValue("fontSize"))
	assert.True(t, e.BoolValue("showShadow"))
	assert.Equal(t, -1, e.Index())
	assert.Empty(t, e.Children(FieldSubViews))
}

func TestElementSetCoercion(t *testing.T) {
	reg := DefaultRegistry()
	view, err := NewElement(reg, TypeRelationshipView)
	require.NoError(t, err)

	require.NoError(t, view.Set("lineStyle", 3.0), "integral floats become ints")
	assert.Equal(t, LineStyleCurve, view.IntValue("lineStyle"))
	require.NoError(t, view.Set("fontSize", 12), "ints widen to floats")
	assert.Equal(t, 12.0, view.FloatValue("fontSize"))

	assert.Error(t, view.Set("lineStyle", 1.5))
	assert.Error(t, view.Set("fontSize", "large"))
	assert.Error(t, view.Set("unknown", 1))
	assert.Error(t, view.Set(FieldSubViews, nil), "owned fields are changed with Append")

	class, err := NewElement(reg, TypeClass)
	require.NoError(t, err)
	assert.Error(t, view.Set(FieldHead, class), "head must be a view")
	assert.Error(t, view.Set(FieldHead, nil), "head is required")
}

func TestElementAppendAndWalk(t *testing.T) {
	reg := DefaultRegistry()
	pkg, _ := NewElement(reg, TypePackage)
	class, _ := NewElement(reg, TypeClass)
	attr, _ := NewElement(reg, TypeAttribute)

	require.NoError(t, class.Append("attributes", attr))
	require.NoError(t, pkg.Append(FieldOwnedElements, class))

	assert.Error(t, pkg.Append(FieldOwnedElements, attr), "attr already has an owner")
	assert.True(t, errs.Is(class.Append(FieldOwnedElements, pkg), errs.KindReferentialIntegrity), "ownership cycle")
	assert.True(t, errs.Is(class.Append("attributes", pkg), errs.KindReferentialIntegrity))

	assert.True(t, attr.IsDescendantOf(pkg))
	assert.False(t, pkg.IsDescendantOf(attr))
	assert.Equal(t, 0, class.Index())

	var visited []string
	pkg.Walk(func(e *Element) bool {
		visited = append(visited, e.TypeName())
		return true
	})
	assert.Equal(t, []string{TypePackage, TypeClass, TypeAttribute}, visited)

	visited = nil
	pkg.Walk(func(e *Element) bool {
		visited = append(visited, e.TypeName())
		return e != class
	})
	assert.Equal(t, []string{TypePackage, TypeClass}, visited, "walk stops when visit returns false")
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID(NewID()))
	assert.True(t, ValidID("AAMaGYkJ"))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("a b"))
	assert.False(t, ValidID("a\nb"))
	assert.False(t, ValidID(strings.Repeat("x", 129)))
}

func TestGraphQueries(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)

	_, err := r.Get("bad id")
	assert.True(t, errs.Is(err, errs.KindInvalidArgument))
	missing, err := r.Get("unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = r.GetInstancesOf("Widget")
	assert.True(t, errs.Is(err, errs.KindInvalidArgument))

	classes, err := r.GetInstancesOf(TypeClass)
	require.NoError(t, err)
	assert.Equal(t, []*Element{f.classA, f.classB}, classes)

	models, err := r.GetInstancesOf(TypeModel)
	require.NoError(t, err)
	assert.Equal(t, "Project,Model,A,B,uses", names(models))

	assert.Equal(t, []*Element{f.viewA}, r.GetViewsOf(f.classA))
	assert.Equal(t, []*Element{f.edge}, r.GetViewsOf(f.dep))
	assert.Equal(t, []*Element{f.dep, f.viewB}, r.GetRelationshipsOf(f.classB))
	assert.Equal(t, []*Element{f.edge}, r.GetRelationshipsOf(f.viewA))

	refs := r.IncomingReferences(f.classB)
	require.Len(t, refs, 2)
	assert.Equal(t, Reference{Source: f.dep, Field: "target"}, refs[0])

	var first *Element
	for e := range r.Find(func(e *Element) bool { return e.IsView() }) {
		first = e
		break
	}
	assert.Same(t, f.diagram, first)
}
