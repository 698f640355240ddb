package repository

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"umlforge/local-app/internal/log"
)

type fixture struct {
	project, model, diagram *Element
	classA, classB, dep     *Element
	viewA, viewB, edge      *Element
}

func newRepo(t *testing.T, opts ...Option) *Repository {
	t.Helper()
	r, err := NewRepository(DefaultRegistry(), log.NewNop(), opts...)
	require.NoError(t, err)
	return r
}

func newElem(t *testing.T, r *Repository, typeName, name string) *Element {
	t.Helper()
	e, err := r.NewElement(typeName)
	require.NoError(t, err)
	if name != "" {
		require.NoError(t, e.Set(FieldName, name))
	}
	return e
}

func appendChild(t *testing.T, parent *Element, field string, child *Element) {
	t.Helper()
	require.NoError(t, parent.Append(field, child))
}

// loadFixture loads a small project: one package with two classes, a dependency
// between them, and a class diagram showing both classes and the dependency
func loadFixture(t *testing.T, r *Repository) *fixture {
	t.Helper()
	f := &fixture{
		project: newElem(t, r, TypeProject, "Project"),
		model:   newElem(t, r, TypePackage, "Model"),
		diagram: newElem(t, r, TypeClassDiagram, "Main"),
		classA:  newElem(t, r, TypeClass, "A"),
		classB:  newElem(t, r, TypeClass, "B"),
		dep:     newElem(t, r, TypeDependency, "uses"),
		viewA:   newElem(t, r, TypeClassView, ""),
		viewB:   newElem(t, r, TypeClassView, ""),
		edge:    newElem(t, r, TypeRelationshipView, ""),
	}
	require.NoError(t, f.dep.Set("source", f.classA))
	require.NoError(t, f.dep.Set("target", f.classB))
	require.NoError(t, f.viewA.Set(FieldModel, f.classA))
	require.NoError(t, f.viewB.Set(FieldModel, f.classB))
	require.NoError(t, f.viewB.Set("left", 200))
	require.NoError(t, f.edge.Set(FieldModel, f.dep))
	require.NoError(t, f.edge.Set(FieldHead, f.viewB))
	require.NoError(t, f.edge.Set(FieldTail, f.viewA))
	require.NoError(t, f.edge.Set(FieldPoints, "100,20;200,20"))

	appendChild(t, f.project, FieldOwnedElements, f.model)
	appendChild(t, f.model, FieldOwnedElements, f.diagram)
	appendChild(t, f.model, FieldOwnedElements, f.classA)
	appendChild(t, f.model, FieldOwnedElements, f.classB)
	appendChild(t, f.classA, FieldOwnedElements, f.dep)
	appendChild(t, f.diagram, FieldOwnedViews, f.viewA)
	appendChild(t, f.diagram, FieldOwnedViews, f.viewB)
	appendChild(t, f.diagram, FieldOwnedViews, f.edge)

	require.NoError(t, r.Load(f.project))
	return f
}

func doTx(t *testing.T, r *Repository, ops ...*Operation) {
	t.Helper()
	require.NoError(t, r.DoOperation(NewTransaction("test", ops...)))
}

// snapshot captures the full observable graph state: the serialized tree plus creation order
type snapshot struct {
	Tree  map[string]any
	Order []string
}

func takeSnapshot(t *testing.T, r *Repository) snapshot {
	t.Helper()
	var s snapshot
	if r.Root() != nil {
		data, err := r.WriteObject(r.Root())
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &s.Tree))
	}
	for e := range r.Find(nil) {
		s.Order = append(s.Order, e.TypeName()+":"+e.ID())
	}
	return s
}

type recorder struct {
	events []Event
}

func record(r *Repository) *recorder {
	rec := &recorder{}
	r.OnAll(func(e Event) { rec.events = append(rec.events, e) })
	return rec
}

func (rec *recorder) types() []EventType {
	out := make([]EventType, len(rec.events))
	for i, e := range rec.events {
		out[i] = e.EventType()
	}
	return out
}

func (rec *recorder) reset() { rec.events = nil }

func names(elems []*Element) string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = e.Name()
	}
	return strings.Join(out, ",")
}
