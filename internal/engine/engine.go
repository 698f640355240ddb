// Package engine turns editing intents into repository transactions.
// Every public method submits at most one transaction, so one user action is one undo step.
package engine

import (
	"context"
	"fmt"

	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/repository"
)

// Engine is stateless between calls; all state lives in the repository
type Engine struct {
	repo   *repository.Repository
	logger *log.Logger
}

func NewEngine(repo *repository.Repository, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if repo == nil {
		logger.Error(context.Background(), "Repository not initialized", nil)
		return nil, fmt.Errorf("repository not initialized")
	}
	return &Engine{repo: repo, logger: logger}, nil
}

// Repository returns the repository the engine submits to
func (e *Engine) Repository() *repository.Repository { return e.repo }

func (e *Engine) submit(tx *repository.Transaction) error {
	ctx := context.Background()
	if err := e.repo.DoOperation(tx); err != nil {
		e.logger.Warn(ctx, "Engine action failed", log.Fields{"action": tx.Name, "error": err})
		return err
	}
	e.logger.Debug(ctx, "Engine action applied", log.Fields{"action": tx.Name, "operations": tx.Len()})
	return nil
}

func requireAttached(elems ...*repository.Element) error {
	for _, el := range elems {
		if el == nil {
			return errs.InvalidArgument("element is nil")
		}
		if !el.Attached() {
			return errs.InvalidArgument("element %s is not in the repository", el.ID())
		}
	}
	return nil
}

// SetProperty assigns one field of one element
func (e *Engine) SetProperty(elem *repository.Element, field string, value any) error {
	return e.SetElemsProperty([]*repository.Element{elem}, field, value)
}

// SetElemsProperty assigns the same value to field on every element, as one transaction
func (e *Engine) SetElemsProperty(elems []*repository.Element, field string, value any) error {
	if len(elems) == 0 {
		return errs.InvalidArgument("no elements given")
	}
	if err := requireAttached(elems...); err != nil {
		return err
	}
	tx := repository.NewTransaction("Set " + field)
	for _, el := range elems {
		if !el.HasField(field) {
			return errs.InvalidArgument("%s has no field %q", el.TypeName(), field)
		}
		tx.Add(repository.Update(el, field, value))
	}
	return e.submit(tx)
}

// AddModel adds a detached model under parent.field (ownedElements when field is empty)
func (e *Engine) AddModel(parent *repository.Element, field string, model *repository.Element) (*repository.Element, error) {
	if err := requireAttached(parent); err != nil {
		return nil, err
	}
	if model == nil || !model.IsModel() {
		return nil, errs.InvalidArgument("a model element is required")
	}
	if field == "" {
		field = repository.FieldOwnedElements
	}
	if err := e.submit(repository.NewTransaction("Add "+model.TypeName(), repository.Create(model, parent, field, -1))); err != nil {
		return nil, err
	}
	return model, nil
}

// AddViews adds detached views to a diagram
func (e *Engine) AddViews(diagram *repository.Element, views []*repository.Element) ([]*repository.Element, error) {
	if err := requireAttached(diagram); err != nil {
		return nil, err
	}
	if !diagram.IsKindOf(repository.TypeDiagram) {
		return nil, errs.InvalidArgument("%s is not a diagram", diagram.TypeName())
	}
	if len(views) == 0 {
		return nil, errs.InvalidArgument("no views given")
	}
	tx := repository.NewTransaction("Add views")
	for _, v := range views {
		if v == nil || !v.IsView() {
			return nil, errs.InvalidArgument("a view element is required")
		}
		tx.Add(repository.Create(v, diagram, repository.FieldOwnedViews, -1))
	}
	if err := e.submit(tx); err != nil {
		return nil, err
	}
	return views, nil
}

// AddDiagram adds a detached diagram under a model's ownedElements
func (e *Engine) AddDiagram(parent, diagram *repository.Element) (*repository.Element, error) {
	if err := requireAttached(parent); err != nil {
		return nil, err
	}
	if !parent.IsModel() {
		return nil, errs.InvalidArgument("%s cannot own diagrams", parent.TypeName())
	}
	if diagram == nil || !diagram.IsKindOf(repository.TypeDiagram) {
		return nil, errs.InvalidArgument("a diagram is required")
	}
	tx := repository.NewTransaction("Add "+diagram.TypeName(), repository.Create(diagram, parent, repository.FieldOwnedElements, -1))
	if err := e.submit(tx); err != nil {
		return nil, err
	}
	return diagram, nil
}

// AddModelAndView adds a model under parent and a view of it to diagram, in one transaction.
// The view's model reference is set to model.
func (e *Engine) AddModelAndView(parent *repository.Element, field string, model *repository.Element, diagram, view *repository.Element) (*repository.Element, error) {
	if err := requireAttached(parent, diagram); err != nil {
		return nil, err
	}
	if model == nil || !model.IsModel() {
		return nil, errs.InvalidArgument("a model element is required")
	}
	if view == nil || !view.IsView() {
		return nil, errs.InvalidArgument("a view element is required")
	}
	if field == "" {
		field = repository.FieldOwnedElements
	}
	if view.Ref(repository.FieldModel) != model {
		if err := view.Set(repository.FieldModel, model); err != nil {
			return nil, err
		}
	}
	tx := repository.NewTransaction("Add "+model.TypeName(),
		repository.Create(model, parent, field, -1),
		repository.Create(view, diagram, repository.FieldOwnedViews, -1),
	)
	if err := e.submit(tx); err != nil {
		return nil, err
	}
	return view, nil
}

// Relocate moves elem under newParent.field
func (e *Engine) Relocate(elem, newParent *repository.Element, field string) error {
	if err := requireAttached(elem, newParent); err != nil {
		return err
	}
	if field == "" {
		field = elem.ParentField()
	}
	if elem.Parent() == newParent && elem.ParentField() == field {
		return nil
	}
	return e.submit(repository.NewTransaction("Relocate", repository.Relocate(elem, newParent, field, -1)))
}

// MoveUp moves elem one position towards the start of its owning field.
// It does nothing when elem is already first.
func (e *Engine) MoveUp(elem *repository.Element) error {
	return e.move(elem, -1, "Move up")
}

// MoveDown moves elem one position towards the end of its owning field
func (e *Engine) MoveDown(elem *repository.Element) error {
	return e.move(elem, 1, "Move down")
}

func (e *Engine) move(elem *repository.Element, delta int, name string) error {
	if err := requireAttached(elem); err != nil {
		return err
	}
	if elem.Parent() == nil {
		return errs.InvalidArgument("the root element cannot be reordered")
	}
	index := elem.Index() + delta
	if index < 0 || index >= len(elem.Parent().Children(elem.ParentField())) {
		return nil
	}
	return e.submit(repository.NewTransaction(name, repository.Reorder(elem, index)))
}
