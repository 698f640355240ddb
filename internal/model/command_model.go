package model

import "strings"

// Command represents a user command with its scope, operation, and arguments
type Command struct {
	Scope     string
	Operation string
	Args      []string
}

// ID returns the registry key of the command, e.g. "edit:undo"
func (c Command) ID() string {
	return c.Scope + ":" + c.Operation
}

// ParseCommandID splits a "scope:operation" id into a Command without arguments
func ParseCommandID(id string) Command {
	scope, operation, _ := strings.Cut(id, ":")
	return Command{Scope: scope, Operation: operation}
}
