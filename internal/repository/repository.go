// Package repository holds the element graph of an open project and is the only place it is mutated.
// Every change is an Operation inside a Transaction applied by DoOperation, recorded for undo and redo,
// and announced through typed events.
package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/event"
	"umlforge/local-app/internal/log"
)

// Repository owns the element graph and the operation log
type Repository struct {
	registry *Registry
	graph    *Graph
	history  *History
	events   *event.Manager[EventType, Event]
	logger   *log.Logger
	modified bool
}

// Option configures a Repository
type Option func(*Repository)

// WithHistoryLimit bounds the number of undoable transactions
func WithHistoryLimit(limit int) Option {
	return func(r *Repository) {
		r.history.SetLimit(limit)
	}
}

// NewRepository creates an empty repository over the given metamodel
func NewRepository(registry *Registry, logger *log.Logger, opts ...Option) (*Repository, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := &Repository{
		registry: registry,
		graph:    newGraph(registry),
		history:  NewHistory(0),
		events:   event.NewManager[EventType, Event](logger),
		logger:   logger,
	}
	r.history.Reset()
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Registry returns the metamodel
func (r *Repository) Registry() *Registry { return r.registry }

// NewElement creates a detached element of typeName
func (r *Repository) NewElement(typeName string) (*Element, error) {
	return NewElement(r.registry, typeName)
}

// On subscribes handler to one event type and returns a function that unsubscribes it
func (r *Repository) On(eventType EventType, handler func(Event)) func() {
	return r.events.Subscribe(eventType, handler)
}

// OnAll subscribes handler to every event
func (r *Repository) OnAll(handler func(Event)) func() {
	return r.events.SubscribeAll(handler)
}

// Root returns the root element, nil when no project is loaded
func (r *Repository) Root() *Element { return r.graph.Root() }

// Len returns the number of elements in the graph
func (r *Repository) Len() int { return r.graph.Len() }

func (r *Repository) Get(id string) (*Element, error) { return r.graph.Get(id) }

func (r *Repository) Find(pred func(*Element) bool) iter.Seq[*Element] { return r.graph.Find(pred) }

func (r *Repository) FindAll(pred func(*Element) bool) []*Element { return r.graph.FindAll(pred) }

func (r *Repository) GetInstancesOf(typeName string) ([]*Element, error) {
	return r.graph.GetInstancesOf(typeName)
}

func (r *Repository) GetViewsOf(model *Element) []*Element { return r.graph.GetViewsOf(model) }

func (r *Repository) GetRelationshipsOf(elem *Element) []*Element {
	return r.graph.GetRelationshipsOf(elem)
}

// IncomingReferences lists the live (source, field) pairs pointing at target
func (r *Repository) IncomingReferences(target *Element) []Reference {
	refs := r.graph.incomingRefs(target)
	out := make([]Reference, len(refs))
	for i, ref := range refs {
		out[i] = Reference{Source: ref.source, Field: ref.field}
	}
	return out
}

// Reference is one cross reference held by Source in Field
type Reference struct {
	Source *Element
	Field  string
}

// CanUndo reports whether Undo would do anything
func (r *Repository) CanUndo() bool { return r.history.CanUndo() }

// CanRedo reports whether Redo would do anything
func (r *Repository) CanRedo() bool { return r.history.CanRedo() }

// IsModified reports whether the graph differs from the last saved state
func (r *Repository) IsModified() bool { return r.modified }

// SetModified sets the dirty flag. false records the current state as saved; true makes the saved state unreachable by undo.
func (r *Repository) SetModified(modified bool) {
	if modified {
		r.history.Invalidate()
	} else {
		r.history.MarkSaved()
	}
	if r.modified != modified {
		r.modified = modified
		r.events.Publish(ModifiedEvent{Modified: modified})
	}
}

// SetHistoryLimit changes how many transactions are kept for undo
func (r *Repository) SetHistoryLimit(limit int) {
	r.history.SetLimit(limit)
}

// DoOperation applies tx atomically, records it and publishes its events
func (r *Repository) DoOperation(tx *Transaction) error {
	ctx := context.Background()
	if tx == nil || tx.Len() == 0 {
		return errs.InvalidArgument("transaction is empty")
	}

	if err := r.apply(tx); err != nil {
		r.logger.Warn(ctx, "Transaction rejected", log.Fields{"name": tx.Name, "error": err})
		return err
	}

	r.history.Add(tx)
	r.modified = true
	r.logger.Debug(ctx, "Transaction executed", log.Fields{"name": tx.Name, "operations": tx.Len()})

	r.publish(tx, SourceDo)
	return nil
}

// Undo reverts the transaction before the cursor. It returns false when there is nothing to undo.
func (r *Repository) Undo() (bool, error) {
	tx := r.history.Previous()
	if tx == nil {
		return false, nil
	}

	inverse := tx.Inverse()
	if err := r.apply(inverse); err != nil {
		r.logger.Error(context.Background(), "Undo failed", log.Fields{"name": tx.Name, "error": err})
		return false, err
	}

	r.history.StepBack()
	r.modified = !r.history.AtSaved()
	r.logger.Debug(context.Background(), "Transaction undone", log.Fields{"name": tx.Name})

	r.publish(inverse, SourceUndo)
	return true, nil
}

// Redo re-applies the transaction at the cursor. It returns false when there is nothing to redo.
func (r *Repository) Redo() (bool, error) {
	tx := r.history.Next()
	if tx == nil {
		return false, nil
	}

	if err := r.apply(tx); err != nil {
		r.logger.Error(context.Background(), "Redo failed", log.Fields{"name": tx.Name, "error": err})
		return false, err
	}

	r.history.StepForward()
	r.modified = !r.history.AtSaved()
	r.logger.Debug(context.Background(), "Transaction redone", log.Fields{"name": tx.Name})

	r.publish(tx, SourceRedo)
	return true, nil
}

// Reset clears graph and history
func (r *Repository) Reset() {
	r.graph.reset()
	r.history.Reset()
	r.setModifiedState(false)
}

// Load replaces the graph with the detached tree rooted at root, without recording it in the history.
// Every reference in the tree must point inside it.
func (r *Repository) Load(root *Element) error {
	if root == nil {
		return errs.InvalidArgument("root is nil")
	}
	if root.attached || root.parent != nil {
		return errs.InvalidArgument("element %s is not a detached root", root.id)
	}

	inside := make(map[*Element]bool)
	ids := make(map[string]bool)
	var invalid error
	root.Walk(func(e *Element) bool {
		if ids[e.id] {
			invalid = errs.InvalidArgument("duplicate element id %s", e.id)
			return false
		}
		ids[e.id] = true
		inside[e] = true
		if err := checkRequired(e); err != nil {
			invalid = err
			return false
		}
		return true
	})
	if invalid != nil {
		return invalid
	}
	root.Walk(func(e *Element) bool {
		for _, ref := range e.outgoing() {
			if !inside[ref.target] {
				invalid = errs.ReferentialIntegrity("%s.%s references %s outside the loaded tree", e.id, ref.field, ref.target.id)
				return false
			}
		}
		return true
	})
	if invalid != nil {
		return invalid
	}

	r.graph.reset()
	r.history.Reset()
	r.graph.root = root
	r.graph.attach(root)
	r.setModifiedState(false)

	r.logger.Info(context.Background(), "Graph loaded", log.Fields{"root": root.id, "elements": r.graph.Len()})
	return nil
}

func (r *Repository) setModifiedState(modified bool) {
	r.modified = modified
	r.events.Publish(ModifiedEvent{Modified: modified})
}

// apply runs the operations of tx in order and checks referential integrity at the end.
// On any failure the applied prefix is reverted and the graph is left as it was.
func (r *Repository) apply(tx *Transaction) error {
	applied := make([]*Operation, 0, tx.Len())

	rollback := func(cause error) error {
		for i := len(applied) - 1; i >= 0; i-- {
			if err := applied[i].Inverse().apply(r.graph); err != nil {
				return errors.Join(cause, fmt.Errorf("rollback of %s failed: %w", applied[i], err))
			}
		}
		return cause
	}

	for i, op := range tx.Operations {
		if op == nil {
			return rollback(errs.InvalidArgument("operation %d is nil", i))
		}
		if err := op.apply(r.graph); err != nil {
			return rollback(err)
		}
		applied = append(applied, op)
	}

	if err := r.checkIntegrity(applied); err != nil {
		return rollback(err)
	}
	return nil
}

// checkIntegrity verifies that no live element references an element removed by ops
// and that every reference introduced by ops targets a live element
func (r *Repository) checkIntegrity(ops []*Operation) error {
	for _, op := range ops {
		if op.Kind == OpDelete {
			var dangling error
			op.Element.Walk(func(e *Element) bool {
				if e.attached {
					return true
				}
				if refs := r.graph.incomingRefs(e); len(refs) > 0 {
					dangling = errs.ReferentialIntegrity("%s %s is still referenced by %s.%s",
						e.typ.name, e.id, refs[0].source.id, refs[0].field).
						WithDetails(map[string]interface{}{"element": e.id, "source": refs[0].source.id, "field": refs[0].field})
					return false
				}
				return true
			})
			if dangling != nil {
				return dangling
			}
		}
		for _, ref := range op.touchedRefs() {
			if ref.source.attached && !ref.target.attached {
				return errs.ReferentialIntegrity("%s.%s references %s which is not in the graph",
					ref.source.id, ref.field, ref.target.id)
			}
		}
	}
	return nil
}

func (r *Repository) publish(tx *Transaction, source ExecutionSource) {
	for _, e := range elementEvents(tx.Operations) {
		r.events.Publish(e)
	}
	r.events.Publish(OperationExecutedEvent{Transaction: tx, Source: source})
	r.events.Publish(ModifiedEvent{Modified: r.modified})
}
