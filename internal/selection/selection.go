// Package selection tracks the models and views the user is working on
package selection

import (
	"context"
	"fmt"
	"slices"

	"umlforge/local-app/internal/event"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/repository"
)

// EventType tags selection events
type EventType int

const (
	SelectionChanged EventType = iota
)

func (t EventType) String() string {
	if t == SelectionChanged {
		return "selectionChanged"
	}
	return "unknown"
}

// Event carries the selection after a change
type Event struct {
	Models []*repository.Element
	Views  []*repository.Element
}

func (Event) EventType() EventType { return SelectionChanged }

// Manager holds the current selection. Elements leaving the repository leave the selection.
type Manager struct {
	repo   *repository.Repository
	events *event.Manager[EventType, Event]
	logger *log.Logger

	models []*repository.Element
	views  []*repository.Element

	unsubscribe func()
}

func NewManager(repo *repository.Repository, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	m := &Manager{
		repo:   repo,
		events: event.NewManager[EventType, Event](logger),
		logger: logger,
	}
	m.unsubscribe = repo.On(repository.EventDeleted, func(repository.Event) { m.Prune() })
	return m, nil
}

// Close stops following repository deletions
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// OnChange subscribes to selection changes
func (m *Manager) OnChange(handler func(Event)) func() {
	return m.events.Subscribe(SelectionChanged, handler)
}

// Models returns the selected models
func (m *Manager) Models() []*repository.Element { return slices.Clone(m.models) }

// Views returns the selected views
func (m *Manager) Views() []*repository.Element { return slices.Clone(m.views) }

// Selected returns the first selected model, or the first selected view when no model is selected
func (m *Manager) Selected() *repository.Element {
	if len(m.models) > 0 {
		return m.models[0]
	}
	if len(m.views) > 0 {
		return m.views[0]
	}
	return nil
}

// IsEmpty reports whether nothing is selected
func (m *Manager) IsEmpty() bool { return len(m.models) == 0 && len(m.views) == 0 }

// Select replaces the selection with elems, split into models and views.
// Elements not in the repository are ignored.
func (m *Manager) Select(elems ...*repository.Element) {
	var models, views []*repository.Element
	for _, e := range elems {
		if e == nil || !e.Attached() {
			continue
		}
		if e.IsView() {
			views = appendUnique(views, e)
		} else {
			models = appendUnique(models, e)
		}
	}
	m.set(models, views)
}

// SelectViews replaces the selected views and selects the models they show
func (m *Manager) SelectViews(views ...*repository.Element) {
	var models, selected []*repository.Element
	for _, v := range views {
		if v == nil || !v.Attached() || !v.IsView() {
			continue
		}
		selected = appendUnique(selected, v)
		if model := v.Ref(repository.FieldModel); model != nil {
			models = appendUnique(models, model)
		}
	}
	m.set(models, selected)
}

// DeselectAll clears the selection
func (m *Manager) DeselectAll() {
	m.set(nil, nil)
}

// Prune drops selected elements that are no longer in the repository
func (m *Manager) Prune() {
	detached := func(e *repository.Element) bool { return !e.Attached() }
	models := slices.DeleteFunc(slices.Clone(m.models), detached)
	views := slices.DeleteFunc(slices.Clone(m.views), detached)
	if len(models) == len(m.models) && len(views) == len(m.views) {
		return
	}
	m.logger.Debug(context.Background(), "Deleted elements left the selection", log.Fields{
		"models": len(m.models) - len(models),
		"views":  len(m.views) - len(views),
	})
	m.set(models, views)
}

func (m *Manager) set(models, views []*repository.Element) {
	if slices.Equal(models, m.models) && slices.Equal(views, m.views) {
		return
	}
	m.models = models
	m.views = views
	m.events.Publish(Event{Models: m.Models(), Views: m.Views()})
}

func appendUnique(list []*repository.Element, e *repository.Element) []*repository.Element {
	if slices.Contains(list, e) {
		return list
	}
	return append(list, e)
}
