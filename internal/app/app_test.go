package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlforge/local-app/internal/config"
	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/model"
	"umlforge/local-app/internal/project"
	"umlforge/local-app/internal/repository"
	"umlforge/local-app/internal/storage"
)

func testConfig(dir string) *model.Config {
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.DatabaseType = string(storage.Bolt)
	cfg.AutoBackup = false
	cfg.AutoBackupInterval = time.Hour
	return cfg
}

func newStore(t *testing.T, cfg *model.Config) *storage.Storage {
	t.Helper()
	s, err := storage.NewStorage(cfg, log.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func startApp(t *testing.T, cfg *model.Config, store storage.Database) *Context {
	t.Helper()
	a, err := New(cfg, log.NewNop(), store)
	require.NoError(t, err)
	a.Start(context.Background())
	t.Cleanup(func() { a.Close() })
	return a
}

func newApp(t *testing.T) *Context {
	t.Helper()
	cfg := testConfig(t.TempDir())
	return startApp(t, cfg, newStore(t, cfg))
}

func run(t *testing.T, a *Context, id string, args ...string) interface{} {
	t.Helper()
	cmd := model.ParseCommandID(id)
	cmd.Args = args
	result, err := a.Execute(context.Background(), cmd)
	require.NoError(t, err, id)
	return result
}

func runErr(a *Context, id string, args ...string) error {
	cmd := model.ParseCommandID(id)
	cmd.Args = args
	_, err := a.Execute(context.Background(), cmd)
	return err
}

func status(t *testing.T, a *Context) Status {
	t.Helper()
	s, err := a.Status(context.Background())
	require.NoError(t, err)
	return s
}

func findAll(t *testing.T, a *Context, typeName, name string) []*repository.Element {
	t.Helper()
	var found []*repository.Element
	require.NoError(t, a.Do(context.Background(), func() {
		found = a.Repo.FindAll(func(e *repository.Element) bool {
			return e.TypeName() == typeName && label(e) == name
		})
	}))
	return found
}

// classDiagram builds Order and Item classes shown in Model/Main, joined by an association
func classDiagram(t *testing.T, a *Context) {
	t.Helper()
	run(t, a, "factory:create-model-and-view", "Class", "Model/Main", "10", "10", "Order")
	run(t, a, "factory:create-model-and-view", "Class", "Model/Main", "200", "10", "Item")
	run(t, a, "factory:create-model-and-view", "Association", "Model/Main", "Model/Main/Order", "Model/Main/Item", "items")
}

func TestNewRequiresDependencies(t *testing.T) {
	cfg := testConfig(t.TempDir())
	store := newStore(t, cfg)
	_, err := New(cfg, nil, store)
	assert.Error(t, err)
	_, err = New(nil, log.NewNop(), store)
	assert.Error(t, err)
	_, err = New(cfg, log.NewNop(), nil)
	assert.Error(t, err)
}

func TestStartCreatesProject(t *testing.T) {
	a := newApp(t)
	s := status(t, a)
	assert.Equal(t, "Untitled", s.Project)
	assert.False(t, s.Modified)
	assert.Empty(t, s.Filename)

	tree, ok := run(t, a, "view:tree").(TreeNode)
	require.True(t, ok)
	assert.Equal(t, "Untitled", tree.Label)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "Model", tree.Children[0].Label)
	assert.Equal(t, "Main", tree.Children[0].Children[0].Label)
}

func TestModelingCommands(t *testing.T) {
	a := newApp(t)
	classDiagram(t, a)

	orders := findAll(t, a, repository.TypeClass, "Order")
	require.Len(t, orders, 1)
	assoc := findAll(t, a, repository.TypeAssociation, "items")
	require.Len(t, assoc, 1)

	run(t, a, "engine:set-property", "Model/Order", "isAbstract", "on")
	props, ok := run(t, a, "view:show", "Model/Order").(Properties)
	require.True(t, ok)
	assert.Contains(t, props.Rows, Property{Name: "isAbstract", Value: "true"})
	assert.Contains(t, props.Rows, Property{Name: "ownedElements", Value: "1 element(s)"}, "the association is owned by its source")

	run(t, a, "engine:resize-node", "Model/Main/Order", "0", "0", "60", "30")
	run(t, a, "edit:select", "Model/Main/Order", "Model/Main/Item")
	run(t, a, "format:fill-color", "#ffeeaa")
	run(t, a, "engine:move-views", "5", "5")
	view, ok := run(t, a, "view:show", "Model/Main/Order").(Properties)
	require.True(t, ok)
	assert.Contains(t, view.Rows, Property{Name: "fillColor", Value: "#ffeeaa"})
	assert.Contains(t, view.Rows, Property{Name: "left", Value: "5"})

	run(t, a, "engine:modify-edge", "Model/Main/items", "30,15;250,30;250,40")
	err := runErr(a, "engine:modify-edge", "Model/Main/items", "nonsense")
	assert.True(t, errs.Is(err, errs.KindInvalidArgument))

	s := status(t, a)
	assert.True(t, s.Modified)
	assert.True(t, s.CanUndo)

	assert.Equal(t, "Undone", run(t, a, "edit:undo"))
	assert.Equal(t, "Redone", run(t, a, "edit:redo"))
	assert.Equal(t, "Nothing to redo", run(t, a, "edit:redo"))
}

func TestCreateModelDefaultsToSelection(t *testing.T) {
	a := newApp(t)
	run(t, a, "factory:create-model", "Package", "/", "Domain")
	run(t, a, "edit:select", "Domain")
	run(t, a, "factory:create-model", "Class")
	run(t, a, "factory:create-diagram", "ClassDiagram", "Domain", "Overview")

	tree, ok := run(t, a, "view:tree", "Domain").(TreeNode)
	require.True(t, ok)
	var labels []string
	for _, c := range tree.Children {
		labels = append(labels, c.Label)
	}
	assert.Equal(t, []string{"Class1", "Overview"}, labels)

	err := runErr(a, "factory:create-model", "Widget")
	assert.True(t, errs.Is(err, errs.KindInvalidArgument))
}

func TestCopyPasteModel(t *testing.T) {
	a := newApp(t)
	classDiagram(t, a)
	run(t, a, "factory:create-model", "Attribute", "Model/Order", "id")

	run(t, a, "edit:select", "Model/Order")
	run(t, a, "edit:copy")
	run(t, a, "edit:paste", "Model")

	orders := findAll(t, a, repository.TypeClass, "Order")
	require.Len(t, orders, 2)
	assert.NotEqual(t, orders[0].ID(), orders[1].ID())
	assert.Len(t, findAll(t, a, repository.TypeAttribute, "id"), 2)

	run(t, a, "edit:undo")
	assert.Len(t, findAll(t, a, repository.TypeClass, "Order"), 1, "a paste is one undo step")
}

func TestResolveNamePathShapedLikeID(t *testing.T) {
	a := newApp(t)
	require.True(t, repository.ValidID("Model"))

	var pkg, diagram *repository.Element
	var pkgErr, diagramErr, missingErr error
	require.NoError(t, a.Do(context.Background(), func() {
		pkg, pkgErr = a.resolve("Model")
		diagram, diagramErr = a.resolve("Model/Main")
		_, missingErr = a.resolve("Missing")
	}))
	require.NoError(t, pkgErr)
	require.NotNil(t, pkg)
	assert.Equal(t, repository.TypePackage, pkg.TypeName())
	require.NoError(t, diagramErr)
	require.NotNil(t, diagram)
	assert.Equal(t, repository.TypeClassDiagram, diagram.TypeName())
	assert.True(t, errs.Is(missingErr, errs.KindInvalidArgument))

	run(t, a, "factory:create-model-and-view", "Class", "Model/Main", "10", "10", "Order")
	assert.Len(t, findAll(t, a, repository.TypeClass, "Order"), 1)
}

func TestExecutorSurvivesPanic(t *testing.T) {
	a := newApp(t)
	require.NoError(t, a.Do(context.Background(), func() {
		var e *repository.Element
		_ = e.Parent()
	}))
	assert.Equal(t, "Untitled", status(t, a).Project)
	run(t, a, "factory:create-model-and-view", "Class", "Model/Main", "10", "10", "Order")
}

func TestAttributesOnlyLiveInClasses(t *testing.T) {
	a := newApp(t)
	classDiagram(t, a)

	assert.Error(t, runErr(a, "factory:create-model", "Attribute", "Model", "loose"))
	assert.Empty(t, findAll(t, a, repository.TypeAttribute, "loose"))

	run(t, a, "factory:create-model", "Attribute", "Model/Order", "id")
	attrs := findAll(t, a, repository.TypeAttribute, "id")
	require.Len(t, attrs, 1)
	var field string
	require.NoError(t, a.Do(context.Background(), func() { field = attrs[0].ParentField() }))
	assert.Equal(t, "attributes", field)
}

func TestCopyPasteViews(t *testing.T) {
	a := newApp(t)
	classDiagram(t, a)

	run(t, a, "edit:select-all", "Model/Main")
	assert.Equal(t, "Copied 3 view(s)", run(t, a, "edit:copy"))
	run(t, a, "edit:paste")

	var views []*repository.Element
	require.NoError(t, a.Do(context.Background(), func() {
		diagram, err := a.resolve("Model/Main")
		require.NoError(t, err)
		views = diagram.Children(repository.FieldOwnedViews)
	}))
	require.Len(t, views, 6)
	assert.Equal(t, 30.0, views[3].FloatValue("left"), "pasted nodes are offset")
	assert.Same(t, views[0].Ref(repository.FieldModel), views[3].Ref(repository.FieldModel), "pasted views show the same models")
	assert.Same(t, views[3], views[5].Ref(repository.FieldTail), "the pasted edge connects the pasted nodes")
	assert.Len(t, findAll(t, a, repository.TypeClass, "Order"), 1)
}

func TestDeleteCommands(t *testing.T) {
	a := newApp(t)
	classDiagram(t, a)

	run(t, a, "edit:select", "Model/Main/Item")
	assert.Equal(t, "Deleted 2 element(s)", run(t, a, "edit:delete"), "the view and the edge attached to it")
	assert.Len(t, findAll(t, a, repository.TypeClass, "Item"), 1)
	assert.Len(t, findAll(t, a, repository.TypeAssociation, "items"), 1)

	run(t, a, "edit:select", "Model/Main/Order")
	run(t, a, "edit:delete-from-model")
	assert.Empty(t, findAll(t, a, repository.TypeClass, "Order"))
	assert.Empty(t, findAll(t, a, repository.TypeAssociation, "items"), "relationships lose their source")

	assert.True(t, errs.Is(runErr(a, "edit:delete"), errs.KindInvalidArgument), "the selection was pruned")
}

func TestMoveUpAndDown(t *testing.T) {
	a := newApp(t)
	run(t, a, "factory:create-model", "Class", "Model", "A")
	run(t, a, "factory:create-model", "Class", "Model", "B")

	assert.Equal(t, `"B" is already at the boundary`, run(t, a, "edit:move-down", "Model/B"))
	run(t, a, "edit:move-up", "Model/B")
	tree, ok := run(t, a, "view:tree", "Model").(TreeNode)
	require.True(t, ok)
	require.Len(t, tree.Children, 3)
	assert.Equal(t, []string{"Main", "B", "A"}, []string{tree.Children[0].Label, tree.Children[1].Label, tree.Children[2].Label})
}

func TestSaveOpenAndQuit(t *testing.T) {
	a := newApp(t)
	file := filepath.Join(t.TempDir(), "shop.json")

	run(t, a, "factory:create-model", "Class", "Model", "Order")
	assert.True(t, errs.Is(runErr(a, "project:save"), errs.KindInvalidArgument), "a new project needs a file name")
	assert.True(t, errs.Is(runErr(a, "project:new"), errs.KindInvalidArgument), "unsaved changes")

	run(t, a, "project:save-as", file)
	s := status(t, a)
	assert.Equal(t, file, s.Filename)
	assert.False(t, s.Modified)

	run(t, a, "project:new")
	assert.Empty(t, findAll(t, a, repository.TypeClass, "Order"))
	run(t, a, "project:open", file)
	assert.Len(t, findAll(t, a, repository.TypeClass, "Order"), 1)

	recent, ok := run(t, a, "project:recent").([]string)
	require.True(t, ok)
	require.NotEmpty(t, recent)
	assert.Contains(t, recent[0], "shop.json")

	run(t, a, "engine:set-property", "Model/Order", "name", "Purchase")
	assert.Error(t, runErr(a, "application:quit"))
	select {
	case <-a.Quit():
		t.Fatal("quit despite unsaved changes")
	default:
	}
	run(t, a, "application:quit", "force")
	select {
	case <-a.Quit():
	default:
		t.Fatal("quit not requested")
	}
}

func TestExportImportFragment(t *testing.T) {
	a := newApp(t)
	file := filepath.Join(t.TempDir(), "order.json")
	run(t, a, "factory:create-model", "Class", "Model", "Order")
	run(t, a, "project:export-fragment", file, "Model/Order")
	run(t, a, "factory:create-model", "Package", "/", "Archive")
	run(t, a, "project:import-fragment", file, "Archive")

	assert.Len(t, findAll(t, a, repository.TypeClass, "Order"), 2)
	props, ok := run(t, a, "view:show").(Properties)
	require.True(t, ok, "the imported element is selected")
	assert.Contains(t, props.Rows, Property{Name: "owner", Value: "Archive.ownedElements"})
}

func TestRecoverFromBackup(t *testing.T) {
	cfg := testConfig(t.TempDir())
	store := newStore(t, cfg)
	crashed := startApp(t, cfg, store)
	run(t, crashed, "factory:create-model", "Class", "Model", "Order")

	crashed.Backups.SetEnabled(true)
	var result project.BackupResult
	require.NoError(t, crashed.Do(context.Background(), func() {
		var err error
		result, err = crashed.Backups.Backup()
		require.NoError(t, err)
	}))
	assert.Equal(t, project.BackupWritten, result)
	crashed.Backups.Wait()

	restarted := startApp(t, cfg, store)
	s := status(t, restarted)
	assert.True(t, s.Modified, "a recovered project is unsaved")
	assert.Empty(t, s.Filename)
	assert.Len(t, findAll(t, restarted, repository.TypeClass, "Order"), 1)
}

func TestApplyConfig(t *testing.T) {
	a := newApp(t)
	next := *a.Config
	next.HistoryLimit = 1
	next.LogLevel = "debug"
	a.applyConfig(a.Config, &next)

	assert.Eventually(t, func() bool {
		var applied bool
		_ = a.Do(context.Background(), func() { applied = a.Config == &next })
		return applied
	}, time.Second, 10*time.Millisecond)

	run(t, a, "factory:create-model", "Class", "Model", "A")
	run(t, a, "factory:create-model", "Class", "Model", "B")
	run(t, a, "edit:undo")
	assert.Equal(t, "Nothing to undo", run(t, a, "edit:undo"), "history keeps one step")
}

func TestMetricsCommand(t *testing.T) {
	a := newApp(t)
	run(t, a, "factory:create-model", "Class", "Model", "A")
	_ = runErr(a, "factory:create-model")

	lines, ok := run(t, a, "application:metrics").([]string)
	require.True(t, ok)
	assert.Contains(t, lines, `umlforge_commands_total{command="factory:create-model",status="ok"} 1`)
	assert.Contains(t, lines, `umlforge_commands_total{command="factory:create-model",status="error"} 1`)
	assert.Contains(t, lines, `umlforge_transactions_total{source="do"} 1`)
}

func TestExecuteAfterClose(t *testing.T) {
	a := newApp(t)
	require.NoError(t, a.Close())
	assert.ErrorIs(t, runErr(a, "edit:undo"), ErrClosed)
	assert.ErrorIs(t, a.Do(context.Background(), func() {}), ErrClosed)
}
