package cli

import (
	"fmt"
	"strings"

	"umlforge/local-app/internal/command"
)

// printHelp shows general, scope or operation help depending on the number of args
func (c *CLI) printHelp(args []string) error {
	specs := c.backend.CommandSpecs()
	switch len(args) {
	case 0:
		c.showGeneralHelp(specs)
		return nil
	case 1:
		return c.showScopeHelp(specs, strings.ToLower(args[0]))
	case 2:
		return c.showOperationHelp(specs, strings.ToLower(args[0]), strings.ToLower(args[1]))
	default:
		return fmt.Errorf("invalid help command. Use 'help [scope] [operation]'")
	}
}

// showGeneralHelp lists every command grouped by scope
func (c *CLI) showGeneralHelp(specs []command.Spec) {
	c.ui.Message("Command syntax: <scope> <operation> [arguments]\n")
	c.ui.Message("\nAvailable commands:\n")
	currentScope := ""
	for _, spec := range specs {
		if spec.Scope() != currentScope {
			currentScope = spec.Scope()
			c.ui.Message("\n%s:\n", currentScope)
		}
		c.ui.Message("  %-28s %s\n", spec.Operation(), spec.ShortDesc)
	}
	c.ui.Message("\nUse 'help <scope> <operation>' for details.\n")
}

func (c *CLI) showScopeHelp(specs []command.Spec, scope string) error {
	found := false
	for _, spec := range specs {
		if spec.Scope() != scope {
			continue
		}
		if !found {
			c.ui.Message("Commands for %s:\n\n", scope)
			found = true
		}
		c.ui.Message("  %-28s %s\n", spec.Operation(), spec.ShortDesc)
	}
	if !found {
		return fmt.Errorf("unknown scope: %s", scope)
	}
	return nil
}

func (c *CLI) showOperationHelp(specs []command.Spec, scope, operation string) error {
	for _, spec := range specs {
		if spec.Scope() != scope || spec.Operation() != operation {
			continue
		}
		c.ui.Message("Command: %s %s\n", scope, operation)
		c.ui.Message("Description: %s\n", spec.LongDesc)
		c.ui.Message("Syntax: %s\n", spec.Syntax)
		if len(spec.Arguments) > 0 {
			c.ui.Message("Arguments:\n")
			for _, arg := range spec.Arguments {
				c.ui.Message("  %s\n", arg)
			}
		}
		if len(spec.Examples) > 0 {
			c.ui.Message("Examples:\n")
			for _, example := range spec.Examples {
				c.ui.Message("  %s\n", example)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown command: %s %s", scope, operation)
}
