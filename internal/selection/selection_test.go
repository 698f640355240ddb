package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/repository"
)

type fixture struct {
	repo                 *repository.Repository
	pkg, diagram         *repository.Element
	classA, classB, attr *repository.Element
	viewA, viewB         *repository.Element
	sel                  *Manager
	changes              int
}

func newElem(t *testing.T, r *repository.Repository, typeName string, fields map[string]any) *repository.Element {
	t.Helper()
	e, err := r.NewElement(typeName)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, e.Set(k, v))
	}
	return e
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r, err := repository.NewRepository(repository.DefaultRegistry(), log.NewNop())
	require.NoError(t, err)

	f := &fixture{repo: r}
	project := newElem(t, r, repository.TypeProject, nil)
	f.pkg = newElem(t, r, repository.TypePackage, nil)
	f.diagram = newElem(t, r, repository.TypeClassDiagram, nil)
	f.classA = newElem(t, r, repository.TypeClass, map[string]any{"name": "A"})
	f.classB = newElem(t, r, repository.TypeClass, map[string]any{"name": "B"})
	f.attr = newElem(t, r, repository.TypeAttribute, map[string]any{"name": "id"})
	f.viewA = newElem(t, r, repository.TypeClassView, map[string]any{"model": f.classA})
	f.viewB = newElem(t, r, repository.TypeClassView, map[string]any{"model": f.classB})

	require.NoError(t, project.Append(repository.FieldOwnedElements, f.pkg))
	require.NoError(t, f.pkg.Append(repository.FieldOwnedElements, f.diagram))
	require.NoError(t, f.pkg.Append(repository.FieldOwnedElements, f.classA))
	require.NoError(t, f.pkg.Append(repository.FieldOwnedElements, f.classB))
	require.NoError(t, f.classA.Append("attributes", f.attr))
	require.NoError(t, f.diagram.Append(repository.FieldOwnedViews, f.viewA))
	require.NoError(t, f.diagram.Append(repository.FieldOwnedViews, f.viewB))
	require.NoError(t, r.Load(project))

	f.sel, err = NewManager(r, log.NewNop())
	require.NoError(t, err)
	t.Cleanup(f.sel.Close)
	f.sel.OnChange(func(Event) { f.changes++ })
	return f
}

func TestSelectSplitsModelsAndViews(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.sel.IsEmpty())
	assert.Nil(t, f.sel.Selected())

	detached := newElem(t, f.repo, repository.TypeClass, nil)
	f.sel.Select(f.classA, f.viewB, f.classA, nil, detached)

	assert.Equal(t, []*repository.Element{f.classA}, f.sel.Models())
	assert.Equal(t, []*repository.Element{f.viewB}, f.sel.Views())
	assert.Same(t, f.classA, f.sel.Selected())
	assert.Equal(t, 1, f.changes)

	f.sel.Select(f.classA, f.viewB)
	assert.Equal(t, 1, f.changes, "an unchanged selection does not notify")

	f.sel.DeselectAll()
	assert.True(t, f.sel.IsEmpty())
	assert.Equal(t, 2, f.changes)
}

func TestSelectViewsSelectsTheirModels(t *testing.T) {
	f := newFixture(t)
	var last Event
	f.sel.OnChange(func(e Event) { last = e })

	f.sel.SelectViews(f.viewA, f.viewB, f.classA)
	assert.Equal(t, []*repository.Element{f.viewA, f.viewB}, last.Views)
	assert.Equal(t, []*repository.Element{f.classA, f.classB}, last.Models)
}

func TestDeletedElementsLeaveSelection(t *testing.T) {
	f := newFixture(t)
	f.sel.Select(f.classA, f.attr, f.classB, f.viewA)
	f.changes = 0

	tx := repository.NewTransaction("Delete A",
		repository.Delete(f.viewA),
		repository.Delete(f.classA),
	)
	require.NoError(t, f.repo.DoOperation(tx))

	assert.Equal(t, []*repository.Element{f.classB}, f.sel.Models(), "owned descendants leave with their owner")
	assert.Empty(t, f.sel.Views())
	assert.Equal(t, 1, f.changes)

	_, err := f.repo.Undo()
	require.NoError(t, err)
	assert.Equal(t, []*repository.Element{f.classB}, f.sel.Models(), "undo does not restore the selection")
}

func TestCloseStopsFollowingRepository(t *testing.T) {
	f := newFixture(t)
	f.sel.Select(f.classB)
	f.sel.Close()

	require.NoError(t, f.repo.DoOperation(repository.NewTransaction("Delete B", repository.Delete(f.viewB), repository.Delete(f.classB))))
	assert.Len(t, f.sel.Models(), 1)

	f.sel.Prune()
	assert.Empty(t, f.sel.Models())
}
