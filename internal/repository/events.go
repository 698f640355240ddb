package repository

// EventType is the tag of a repository event
type EventType int

const (
	EventCreated EventType = iota
	EventUpdated
	EventDeleted
	EventReordered
	EventRelocated
	EventOperationExecuted
	EventModified
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	case EventDeleted:
		return "deleted"
	case EventReordered:
		return "reordered"
	case EventRelocated:
		return "relocated"
	case EventOperationExecuted:
		return "operationExecuted"
	case EventModified:
		return "modified"
	default:
		return "unknown"
	}
}

// Event is a repository notification. The concrete types below form a closed set.
type Event interface {
	EventType() EventType
}

type CreatedEvent struct {
	Elements []*Element
}

type UpdatedEvent struct {
	Elements []*Element
}

type DeletedEvent struct {
	Elements []*Element
}

type ReorderedEvent struct {
	Element *Element
}

type RelocatedEvent struct {
	Element   *Element
	Field     string
	OldParent *Element
	NewParent *Element
}

// ExecutionSource tells how a transaction came to be applied
type ExecutionSource int

const (
	SourceDo ExecutionSource = iota
	SourceUndo
	SourceRedo
)

func (s ExecutionSource) String() string {
	switch s {
	case SourceUndo:
		return "undo"
	case SourceRedo:
		return "redo"
	default:
		return "do"
	}
}

// OperationExecutedEvent carries the transaction that was actually applied; for undo it is the inverse
type OperationExecutedEvent struct {
	Transaction *Transaction
	Source      ExecutionSource
}

type ModifiedEvent struct {
	Modified bool
}

func (CreatedEvent) EventType() EventType           { return EventCreated }
func (UpdatedEvent) EventType() EventType           { return EventUpdated }
func (DeletedEvent) EventType() EventType           { return EventDeleted }
func (ReorderedEvent) EventType() EventType         { return EventReordered }
func (RelocatedEvent) EventType() EventType         { return EventRelocated }
func (OperationExecutedEvent) EventType() EventType { return EventOperationExecuted }
func (ModifiedEvent) EventType() EventType          { return EventModified }

// elementEvents turns applied operations into per-element events.
// Consecutive create, update or delete operations collapse into one event; reorder and relocate get one each.
func elementEvents(ops []*Operation) []Event {
	var out []Event
	var pending []*Element
	pendingKind := OperationKind(-1)
	seen := make(map[*Element]bool)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		switch pendingKind {
		case OpCreate:
			out = append(out, CreatedEvent{Elements: pending})
		case OpUpdate:
			out = append(out, UpdatedEvent{Elements: pending})
		case OpDelete:
			out = append(out, DeletedEvent{Elements: pending})
		}
		pending = nil
		seen = make(map[*Element]bool)
	}

	for _, op := range ops {
		switch op.Kind {
		case OpCreate, OpUpdate, OpDelete:
			if op.Kind != pendingKind {
				flush()
				pendingKind = op.Kind
			}
			if !seen[op.Element] {
				seen[op.Element] = true
				pending = append(pending, op.Element)
			}
		case OpReorder:
			flush()
			pendingKind = -1
			out = append(out, ReorderedEvent{Element: op.Element})
		case OpRelocate:
			flush()
			pendingKind = -1
			out = append(out, RelocatedEvent{
				Element:   op.Element,
				Field:     op.ParentField,
				OldParent: op.OldParent,
				NewParent: op.Parent,
			})
		}
	}
	flush()
	return out
}
