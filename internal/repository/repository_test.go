package repository

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/log"
)

func TestNewRepositoryRequiresDependencies(t *testing.T) {
	_, err := NewRepository(nil, log.NewNop())
	assert.Error(t, err)

	_, err = NewRepository(DefaultRegistry(), nil)
	assert.Error(t, err)
}

func TestCreateUndoRedoScenario(t *testing.T) {
	r := newRepo(t)
	a := newElem(t, r, TypePackage, "A")
	b := newElem(t, r, TypePackage, "B")

	doTx(t, r, Create(a, nil, "", -1))
	doTx(t, r, Create(b, a, FieldOwnedElements, -1))
	assert.Equal(t, "A,B", names(r.FindAll(nil)))
	assert.Same(t, a, b.Parent())
	assert.Equal(t, FieldOwnedElements, b.ParentField())

	undone, err := r.Undo()
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Equal(t, "A", names(r.FindAll(nil)))
	assert.Empty(t, a.Children(FieldOwnedElements))

	redone, err := r.Redo()
	require.NoError(t, err)
	assert.True(t, redone)
	assert.Equal(t, "A,B", names(r.FindAll(nil)))
	assert.Equal(t, []*Element{b}, a.Children(FieldOwnedElements))
}

func TestUpdateScenarioEvents(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)
	doTx(t, r, Update(f.classA, FieldName, "X"))
	rec := record(r)

	doTx(t, r, Update(f.classA, FieldName, "Y"))
	assert.Equal(t, "Y", f.classA.Name())
	assert.Equal(t, []EventType{EventUpdated, EventOperationExecuted, EventModified}, rec.types())
	assert.Equal(t, []*Element{f.classA}, rec.events[0].(UpdatedEvent).Elements)

	rec.reset()
	undone, err := r.Undo()
	require.NoError(t, err)
	require.True(t, undone)
	assert.Equal(t, "X", f.classA.Name())
	assert.Equal(t, []EventType{EventUpdated, EventOperationExecuted, EventModified}, rec.types())
	assert.Equal(t, []*Element{f.classA}, rec.events[0].(UpdatedEvent).Elements)
	assert.Equal(t, SourceUndo, rec.events[1].(OperationExecutedEvent).Source)
}

func TestUndoOfCreateFiresDeleted(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)
	c := newElem(t, r, TypeClass, "C")
	doTx(t, r, Create(c, f.model, FieldOwnedElements, -1))

	rec := record(r)
	_, err := r.Undo()
	require.NoError(t, err)

	require.Len(t, rec.events, 3)
	deleted, ok := rec.events[0].(DeletedEvent)
	require.True(t, ok)
	assert.Equal(t, []*Element{c}, deleted.Elements)
	assert.False(t, c.Attached())
}

func TestEventOrderGroupsByKind(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)
	c1 := newElem(t, r, TypeClass, "C1")
	c2 := newElem(t, r, TypeClass, "C2")
	rec := record(r)

	doTx(t, r,
		Create(c1, f.model, FieldOwnedElements, -1),
		Create(c2, f.model, FieldOwnedElements, -1),
		Update(c1, FieldName, "first"),
		Update(c1, "isAbstract", true),
		Reorder(c2, 0),
		Relocate(c1, f.classA, FieldOwnedElements, -1),
	)

	assert.Equal(t, []EventType{
		EventCreated, EventUpdated, EventReordered, EventRelocated, EventOperationExecuted, EventModified,
	}, rec.types())
	assert.Equal(t, []*Element{c1, c2}, rec.events[0].(CreatedEvent).Elements)
	assert.Equal(t, []*Element{c1}, rec.events[1].(UpdatedEvent).Elements)

	relocated := rec.events[3].(RelocatedEvent)
	assert.Same(t, c1, relocated.Element)
	assert.Same(t, f.model, relocated.OldParent)
	assert.Same(t, f.classA, relocated.NewParent)
	assert.Equal(t, FieldOwnedElements, relocated.Field)

	executed := rec.events[4].(OperationExecutedEvent)
	assert.Equal(t, SourceDo, executed.Source)
	assert.Equal(t, []*Element{c1, c2}, executed.Transaction.Elements())
}

func TestUndoRestoresPriorState(t *testing.T) {
	tests := []struct {
		name string
		ops  func(t *testing.T, r *Repository, f *fixture) []*Operation
	}{
		{"update attribute", func(t *testing.T, r *Repository, f *fixture) []*Operation {
			return []*Operation{Update(f.classA, FieldName, "Renamed"), Update(f.viewA, "fillColor", "#ff0000")}
		}},
		{"update reference", func(t *testing.T, r *Repository, f *fixture) []*Operation {
			return []*Operation{Update(f.viewA, FieldModel, f.classB)}
		}},
		{"create subtree", func(t *testing.T, r *Repository, f *fixture) []*Operation {
			c := newElem(t, r, TypeClass, "C")
			attr := newElem(t, r, TypeAttribute, "id")
			require.NoError(t, attr.Set("typeRef", f.classB))
			appendChild(t, c, "attributes", attr)
			return []*Operation{Create(c, f.model, FieldOwnedElements, 1)}
		}},
		{"delete with dependents", func(t *testing.T, r *Repository, f *fixture) []*Operation {
			return []*Operation{Delete(f.edge), Delete(f.viewB), Delete(f.dep), Delete(f.classB)}
		}},
		{"reorder", func(t *testing.T, r *Repository, f *fixture) []*Operation {
			return []*Operation{Reorder(f.classB, 0), Reorder(f.viewA, 2)}
		}},
		{"relocate", func(t *testing.T, r *Repository, f *fixture) []*Operation {
			return []*Operation{Relocate(f.classB, f.classA, FieldOwnedElements, 0)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRepo(t)
			f := loadFixture(t, r)
			before := takeSnapshot(t, r)

			doTx(t, r, tt.ops(t, r, f)...)
			after := takeSnapshot(t, r)
			assert.NotEmpty(t, cmp.Diff(before, after), "transaction should change the graph")

			undone, err := r.Undo()
			require.NoError(t, err)
			require.True(t, undone)
			if diff := cmp.Diff(before, takeSnapshot(t, r)); diff != "" {
				t.Errorf("state after undo differs (-before +after):\n%s", diff)
			}

			redone, err := r.Redo()
			require.NoError(t, err)
			require.True(t, redone)
			if diff := cmp.Diff(after, takeSnapshot(t, r)); diff != "" {
				t.Errorf("state after redo differs (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRedoAfterUndoAll(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)
	var states []snapshot

	c := newElem(t, r, TypeClass, "C")
	txs := [][]*Operation{
		{Update(f.classA, FieldName, "A1")},
		{Create(c, f.model, FieldOwnedElements, -1)},
		{Relocate(c, f.classB, FieldOwnedElements, -1), Update(c, "isAbstract", true)},
		{Reorder(f.viewB, 0)},
	}
	for _, ops := range txs {
		doTx(t, r, ops...)
		states = append(states, takeSnapshot(t, r))
	}

	for r.CanUndo() {
		_, err := r.Undo()
		require.NoError(t, err)
	}
	undone, err := r.Undo()
	require.NoError(t, err)
	assert.False(t, undone, "undo at the start of the log is a no-op")

	for i := range txs {
		redone, err := r.Redo()
		require.NoError(t, err)
		require.True(t, redone)
		if diff := cmp.Diff(states[i], takeSnapshot(t, r)); diff != "" {
			t.Errorf("state after redo %d differs:\n%s", i, diff)
		}
	}
	redone, err := r.Redo()
	require.NoError(t, err)
	assert.False(t, redone, "redo at the end of the log is a no-op")
}

func TestDoOperationIsAtomic(t *testing.T) {
	valid := func(t *testing.T, r *Repository, f *fixture) []*Operation {
		c := newElem(t, r, TypeClass, "C")
		return []*Operation{
			Update(f.classA, FieldName, "changed"),
			Create(c, f.model, FieldOwnedElements, -1),
			Reorder(f.classB, 0),
		}
	}

	for k := 0; k <= 3; k++ {
		r := newRepo(t)
		f := loadFixture(t, r)
		before := takeSnapshot(t, r)
		rec := record(r)

		ops := valid(t, r, f)
		failing := Relocate(f.model, f.classA, FieldOwnedElements, -1)
		ops = append(ops[:k], append([]*Operation{failing}, ops[k:]...)...)

		err := r.DoOperation(NewTransaction("broken", ops...))
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.KindReferentialIntegrity), "k=%d: %v", k, err)

		if diff := cmp.Diff(before, takeSnapshot(t, r)); diff != "" {
			t.Errorf("k=%d: graph changed by a failed transaction:\n%s", k, diff)
		}
		assert.Empty(t, rec.events, "k=%d: no events for a failed transaction", k)
		assert.False(t, r.CanUndo())
		assert.False(t, r.IsModified())
	}
}

func TestDoOperationRejectsDanglingReferences(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)
	before := takeSnapshot(t, r)

	err := r.DoOperation(NewTransaction("delete A", Delete(f.classA)))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindReferentialIntegrity))
	assert.Empty(t, cmp.Diff(before, takeSnapshot(t, r)))
	assert.True(t, f.classA.Attached())

	detached := newElem(t, r, TypeClass, "Detached")
	err = r.DoOperation(NewTransaction("point away", Update(f.viewA, FieldModel, detached)))
	assert.True(t, errs.Is(err, errs.KindReferentialIntegrity))
	assert.Same(t, f.classA, f.viewA.Ref(FieldModel))
}

func TestDoOperationValidation(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)

	tests := []struct {
		name string
		tx   *Transaction
		kind errs.Kind
	}{
		{"empty transaction", NewTransaction("empty"), errs.KindInvalidArgument},
		{"relocate into itself", NewTransaction("t", Relocate(f.model, f.model, FieldOwnedElements, -1)), errs.KindReferentialIntegrity},
		{"relocate into descendant", NewTransaction("t", Relocate(f.model, f.classA, FieldOwnedElements, -1)), errs.KindReferentialIntegrity},
		{"target cannot contain source", NewTransaction("t", Relocate(f.classA, f.diagram, FieldOwnedViews, -1)), errs.KindReferentialIntegrity},
		{"unknown field", NewTransaction("t", Update(f.classA, "color", "red")), errs.KindInvalidArgument},
		{"wrong attribute type", NewTransaction("t", Update(f.classA, "isAbstract", "yes")), errs.KindInvalidArgument},
		{"null required field", NewTransaction("t", Update(f.edge, FieldHead, nil)), errs.KindInvalidArgument},
		{"reorder out of range", NewTransaction("t", Reorder(f.classA, 9)), errs.KindInvalidArgument},
		{"create attached element", NewTransaction("t", Create(f.classA, f.model, FieldOwnedElements, -1)), errs.KindInvalidArgument},
		{"second root", NewTransaction("t", Create(newElem(t, r, TypeProject, "P2"), nil, "", -1)), errs.KindReferentialIntegrity},
		{"owned field update", NewTransaction("t", Update(f.model, FieldOwnedElements, nil)), errs.KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.DoOperation(tt.tx)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.KindOf(err), err.Error())
		})
	}
	assert.False(t, r.CanUndo())
}

func TestCreateRequiresRequiredReferences(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)

	dep := newElem(t, r, TypeDependency, "missing target")
	require.NoError(t, dep.Set("source", f.classA))

	err := r.DoOperation(NewTransaction("t", Create(dep, f.model, FieldOwnedElements, -1)))
	assert.True(t, errs.Is(err, errs.KindInvalidArgument))
	assert.False(t, dep.Attached())
}

func TestModifiedFlag(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)
	assert.False(t, r.IsModified(), "clean after load")

	doTx(t, r, Update(f.classA, FieldName, "1"))
	assert.True(t, r.IsModified())

	r.SetModified(false)
	assert.False(t, r.IsModified(), "clean after save")

	_, err := r.Undo()
	require.NoError(t, err)
	assert.True(t, r.IsModified(), "undo moves away from the saved mark")

	_, err = r.Redo()
	require.NoError(t, err)
	assert.False(t, r.IsModified(), "redo returns to the saved mark")

	_, err = r.Undo()
	require.NoError(t, err)
	doTx(t, r, Update(f.classA, FieldName, "2"))
	_, err = r.Undo()
	require.NoError(t, err)
	assert.True(t, r.IsModified(), "saved mark was discarded with the undone tail")
}

func TestSetModifiedTrueInvalidatesSavedMark(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)
	rec := record(r)

	r.SetModified(true)
	assert.True(t, r.IsModified())
	assert.Equal(t, []EventType{EventModified}, rec.types())

	doTx(t, r, Update(f.classA, FieldName, "1"))
	_, err := r.Undo()
	require.NoError(t, err)
	assert.True(t, r.IsModified())
}

func TestHistoryLimit(t *testing.T) {
	r := newRepo(t, WithHistoryLimit(2))
	f := loadFixture(t, r)

	for _, name := range []string{"1", "2", "3"} {
		doTx(t, r, Update(f.classA, FieldName, name))
	}

	count := 0
	for {
		undone, err := r.Undo()
		require.NoError(t, err)
		if !undone {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, "1", f.classA.Name())
}

func TestPanickingSubscriberDoesNotAbortTransaction(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)
	r.On(EventUpdated, func(Event) { panic("subscriber failure") })
	rec := record(r)

	require.NoError(t, r.DoOperation(NewTransaction("rename", Update(f.classA, FieldName, "Z"))))
	assert.Equal(t, "Z", f.classA.Name())
	assert.Equal(t, []EventType{EventUpdated, EventOperationExecuted, EventModified}, rec.types())
}

func TestAttachedElementsRejectDirectMutation(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)

	err := f.classA.Set(FieldName, "direct")
	assert.True(t, errs.Is(err, errs.KindInvalidArgument))
	assert.Equal(t, "A", f.classA.Name())

	err = f.model.Append(FieldOwnedElements, newElem(t, r, TypeClass, "C"))
	assert.True(t, errs.Is(err, errs.KindInvalidArgument))
}

func TestResetAndLoad(t *testing.T) {
	r := newRepo(t)
	f := loadFixture(t, r)
	doTx(t, r, Update(f.classA, FieldName, "1"))

	r.Reset()
	assert.Nil(t, r.Root())
	assert.Zero(t, r.Len())
	assert.False(t, r.CanUndo())
	assert.False(t, r.IsModified())
	assert.False(t, f.classA.Attached())

	outside := newElem(t, r, TypeProject, "P")
	c := newElem(t, r, TypeClass, "C")
	view := newElem(t, r, TypeClassView, "")
	require.NoError(t, view.Set(FieldModel, c))
	appendChild(t, outside, FieldOwnedElements, newElem(t, r, TypePackage, "M"))
	d := newElem(t, r, TypeClassDiagram, "D")
	appendChild(t, d, FieldOwnedViews, view)
	appendChild(t, outside, FieldOwnedElements, d)

	err := r.Load(outside)
	assert.True(t, errs.Is(err, errs.KindReferentialIntegrity), "view references a class outside the tree")
	assert.Nil(t, r.Root())
}
