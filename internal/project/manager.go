// Package project manages the project open in the repository: creating, loading, saving and
// closing it, fragment import and export, and periodic backups.
package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"umlforge/local-app/internal/engine"
	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/event"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/repository"
	"umlforge/local-app/internal/storage"
)

// RecentLimit is how many recent files are listed
const RecentLimit = 10

// Manager owns the project lifecycle of one repository
type Manager struct {
	repo     *repository.Repository
	engine   *engine.Engine
	store    storage.Database
	events   *event.Manager[EventType, Event]
	logger   *log.Logger
	filename string
}

func NewManager(repo *repository.Repository, eng *engine.Engine, store storage.Database, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	ctx := context.Background()
	if repo == nil {
		logger.Error(ctx, "Repository not initialized", nil)
		return nil, fmt.Errorf("repository not initialized")
	}
	if eng == nil {
		logger.Error(ctx, "Engine not initialized", nil)
		return nil, fmt.Errorf("engine not initialized")
	}
	if store == nil {
		logger.Error(ctx, "Storage not initialized", nil)
		return nil, fmt.Errorf("storage not initialized")
	}

	return &Manager{
		repo:   repo,
		engine: eng,
		store:  store,
		events: event.NewManager[EventType, Event](logger),
		logger: logger,
	}, nil
}

// On subscribes to one project event type
func (m *Manager) On(eventType EventType, handler func(Event)) func() {
	return m.events.Subscribe(eventType, handler)
}

// Project returns the root of the open project, nil when none is open
func (m *Manager) Project() *repository.Element { return m.repo.Root() }

// Filename returns the file the project was loaded from or saved to, empty for a new project
func (m *Manager) Filename() string { return m.filename }

// New replaces the open project with an empty one: a project owning a model with one class diagram
func (m *Manager) New() (*repository.Element, error) {
	ctx := context.Background()
	m.logger.Info(ctx, "Creating new project", nil)

	root, err := m.newProjectTree()
	if err != nil {
		return nil, fmt.Errorf("failed to build project: %w", err)
	}
	if m.repo.Root() != nil {
		m.Close()
	}
	if err := m.repo.Load(root); err != nil {
		return nil, fmt.Errorf("failed to install project: %w", err)
	}
	m.filename = ""

	m.events.Publish(Event{Type: ProjectCreated, Element: root})
	return root, nil
}

func (m *Manager) newProjectTree() (*repository.Element, error) {
	root, err := m.repo.NewElement(repository.TypeProject)
	if err != nil {
		return nil, err
	}
	model, err := m.repo.NewElement(repository.TypePackage)
	if err != nil {
		return nil, err
	}
	diagram, err := m.repo.NewElement(repository.TypeClassDiagram)
	if err != nil {
		return nil, err
	}

	for _, set := range []struct {
		elem  *repository.Element
		field string
		value any
	}{
		{root, repository.FieldName, "Untitled"},
		{model, repository.FieldName, "Model"},
		{diagram, repository.FieldName, "Main"},
		{diagram, "defaultDiagram", true},
	} {
		if err := set.elem.Set(set.field, set.value); err != nil {
			return nil, err
		}
	}
	if err := model.Append(repository.FieldOwnedElements, diagram); err != nil {
		return nil, err
	}
	if err := root.Append(repository.FieldOwnedElements, model); err != nil {
		return nil, err
	}
	return root, nil
}

// Load opens the project file at filename
func (m *Manager) Load(filename string) (*repository.Element, error) {
	root, err := m.load(filename)
	if err != nil {
		return nil, err
	}
	m.filename = filename
	m.remember(filename)

	m.events.Publish(Event{Type: ProjectLoaded, Filename: filename, Element: root})
	return root, nil
}

// LoadAsTemplate opens a project file as a new, unnamed project
func (m *Manager) LoadAsTemplate(filename string) (*repository.Element, error) {
	root, err := m.load(filename)
	if err != nil {
		return nil, err
	}
	m.filename = ""

	m.events.Publish(Event{Type: ProjectLoaded, Element: root})
	return root, nil
}

func (m *Manager) load(filename string) (*repository.Element, error) {
	ctx := context.Background()
	m.logger.Info(ctx, "Loading project", log.Fields{"filename": filename})

	data, err := readFile(filename)
	if err != nil {
		m.logger.Error(ctx, "Failed to read project", log.Fields{"error": err, "filename": filename})
		return nil, err
	}
	root, err := repository.ReadObject(m.repo.Registry(), data, repository.ReadOptions{}, nil)
	if err != nil {
		m.logger.Error(ctx, "Failed to parse project", log.Fields{"error": err, "filename": filename})
		return nil, err
	}
	if !root.IsKindOf(repository.TypeProject) {
		return nil, errs.Serialization("%s does not contain a project", filepath.Base(filename))
	}

	if m.repo.Root() != nil {
		m.Close()
	}
	if err := m.repo.Load(root); err != nil {
		return nil, err
	}
	m.logger.Info(ctx, "Project loaded", log.Fields{"filename": filename, "elements": m.repo.Len()})
	return root, nil
}

// Save writes the project to filename, or to the current filename when it is empty
func (m *Manager) Save(filename string) error {
	ctx := context.Background()
	root := m.repo.Root()
	if root == nil {
		return errs.InvalidArgument("no project is open")
	}
	if filename == "" {
		filename = m.filename
	}
	if filename == "" {
		return errs.InvalidArgument("filename is required for a new project")
	}

	m.logger.Info(ctx, "Saving project", log.Fields{"filename": filename})
	data, err := m.repo.WriteObject(root)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filename, data); err != nil {
		m.logger.Error(ctx, "Failed to save project", log.Fields{"error": err, "filename": filename})
		return err
	}

	m.filename = filename
	m.repo.SetModified(false)
	m.remember(filename)

	m.events.Publish(Event{Type: ProjectSaved, Filename: filename, Element: root})
	return nil
}

// Close discards the open project
func (m *Manager) Close() {
	root := m.repo.Root()
	if root == nil {
		return
	}
	m.events.Publish(Event{Type: BeforeProjectClose, Filename: m.filename, Element: root})
	filename := m.filename
	m.repo.Reset()
	m.filename = ""
	m.logger.Info(context.Background(), "Project closed", log.Fields{"filename": filename})
	m.events.Publish(Event{Type: ProjectClosed, Filename: filename})
}

// ImportFromFile reads a fragment file and adds its model under parent as one undoable step.
// Imported elements get fresh ids; references to elements outside the fragment resolve against the project.
func (m *Manager) ImportFromFile(parent *repository.Element, filename string) (*repository.Element, error) {
	ctx := context.Background()
	if m.repo.Root() == nil {
		return nil, errs.InvalidArgument("no project is open")
	}
	if parent == nil {
		parent = m.repo.Root()
	}

	data, err := readFile(filename)
	if err != nil {
		return nil, err
	}
	elem, err := m.repo.ReadObject(data, repository.ReadOptions{RegenerateIDs: true, AllowExternalRefs: true})
	if err != nil {
		m.logger.Error(ctx, "Failed to parse fragment", log.Fields{"error": err, "filename": filename})
		return nil, err
	}
	if _, err := m.engine.AddModel(parent, repository.FieldOwnedElements, elem); err != nil {
		return nil, err
	}

	m.logger.Info(ctx, "Fragment imported", log.Fields{"filename": filename, "element": elem.ID()})
	m.events.Publish(Event{Type: Imported, Filename: filename, Element: elem})
	return elem, nil
}

// ExportToFile writes elem and its subtree to a fragment file
func (m *Manager) ExportToFile(elem *repository.Element, filename string) error {
	if elem == nil || !elem.Attached() {
		return errs.InvalidArgument("element is not in the project")
	}
	if !m.repo.Registry().CanCopy(elem.TypeName()) {
		return errs.InvalidArgument("%s cannot be exported as a fragment", elem.TypeName())
	}
	data, err := m.repo.WriteObject(elem)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filename, data); err != nil {
		m.logger.Error(context.Background(), "Failed to export fragment", log.Fields{"error": err, "filename": filename})
		return err
	}
	m.events.Publish(Event{Type: Exported, Filename: filename, Element: elem})
	return nil
}

// RecentFiles lists recently opened or saved projects, most recent first
func (m *Manager) RecentFiles() ([]storage.RecentFile, error) {
	return m.store.RecentList(RecentLimit)
}

// WorkingFile returns the project that was open when the application last ran
func (m *Manager) WorkingFile() (string, bool) {
	v, err := m.store.SettingGet(storage.SettingWorkingFile)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warn(context.Background(), "Failed to read working file", log.Fields{"error": err})
		}
		return "", false
	}
	return v, true
}

func (m *Manager) remember(filename string) {
	ctx := context.Background()
	if abs, err := filepath.Abs(filename); err == nil {
		filename = abs
	}
	if err := m.store.SettingSet(storage.SettingWorkingFile, filename); err != nil {
		m.logger.Warn(ctx, "Failed to record working file", log.Fields{"error": err})
	}
	if err := m.store.RecentAdd(filename, time.Now()); err != nil {
		m.logger.Warn(ctx, "Failed to record recent file", log.Fields{"error": err})
	}
}
