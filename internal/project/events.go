package project

import "umlforge/local-app/internal/repository"

// EventType tags project lifecycle events
type EventType int

const (
	ProjectCreated EventType = iota
	ProjectLoaded
	ProjectSaved
	BeforeProjectClose
	ProjectClosed
	Imported
	Exported
)

func (t EventType) String() string {
	switch t {
	case ProjectCreated:
		return "projectCreated"
	case ProjectLoaded:
		return "projectLoaded"
	case ProjectSaved:
		return "projectSaved"
	case BeforeProjectClose:
		return "beforeProjectClose"
	case ProjectClosed:
		return "projectClosed"
	case Imported:
		return "imported"
	case Exported:
		return "exported"
	default:
		return "unknown"
	}
}

// Event is a project lifecycle notification
type Event struct {
	Type     EventType
	Filename string
	// Element is the project root, or the imported or exported element
	Element *repository.Element
}

func (e Event) EventType() EventType { return e.Type }
