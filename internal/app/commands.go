package app

import (
	"umlforge/local-app/internal/command"
	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/repository"
)

// registerCommands installs the default command set
func (a *Context) registerCommands() error {
	entries := []struct {
		spec    command.Spec
		handler command.Handler
	}{
		// project
		{command.Spec{ID: "project:new", MaxArgs: 1, Syntax: "project new [force]",
			ShortDesc: "Create an empty project",
			LongDesc:  "Replace the open project with a new one holding a model and a class diagram.",
			Arguments: []string{"force: discard unsaved changes"}}, a.projectNew},
		{command.Spec{ID: "project:open", MinArgs: 1, MaxArgs: 2, Syntax: "project open <file> [force]",
			ShortDesc: "Open a project file",
			LongDesc:  "Load a project file, replacing the open project.",
			Arguments: []string{"file: project file", "force: discard unsaved changes"},
			Examples:  []string{"project open shop.uml.json"}}, a.projectOpen},
		{command.Spec{ID: "project:save", MaxArgs: 1, Syntax: "project save [file]",
			ShortDesc: "Save the project",
			LongDesc:  "Write the project to its file. A new project needs a file name."}, a.projectSave},
		{command.Spec{ID: "project:save-as", MinArgs: 1, MaxArgs: 1, Syntax: "project save-as <file>",
			ShortDesc: "Save the project under a new name",
			LongDesc:  "Write the project to file and keep working on that file."}, a.projectSave},
		{command.Spec{ID: "project:close", MaxArgs: 1, Syntax: "project close [force]",
			ShortDesc: "Close the project",
			LongDesc:  "Close the open project.",
			Arguments: []string{"force: discard unsaved changes"}}, a.projectClose},
		{command.Spec{ID: "project:import-fragment", MinArgs: 1, MaxArgs: 2, Syntax: "project import-fragment <file> [parent]",
			ShortDesc: "Import a model fragment",
			LongDesc:  "Add the model stored in a fragment file under parent (default: the selected model or the project). Imported elements get new ids."}, a.projectImport},
		{command.Spec{ID: "project:export-fragment", MinArgs: 1, MaxArgs: 2, Syntax: "project export-fragment <file> [element]",
			ShortDesc: "Export a model fragment",
			LongDesc:  "Write an element and its owned elements to a fragment file."}, a.projectExport},
		{command.Spec{ID: "project:recent", Syntax: "project recent",
			ShortDesc: "List recent project files",
			LongDesc:  "List the project files opened or saved most recently."}, a.projectRecent},

		// edit
		{command.Spec{ID: "edit:undo", Syntax: "edit undo", ShortDesc: "Undo the last change", LongDesc: "Revert the last change."}, a.editUndo},
		{command.Spec{ID: "edit:redo", Syntax: "edit redo", ShortDesc: "Redo the last undone change", LongDesc: "Apply the last undone change again."}, a.editRedo},
		{command.Spec{ID: "edit:copy", Syntax: "edit copy", ShortDesc: "Copy the selection",
			LongDesc: "Copy the selected views, or the selected model when no view is selected."}, a.editCopy},
		{command.Spec{ID: "edit:cut", Syntax: "edit cut", ShortDesc: "Cut the selection",
			LongDesc: "Copy the selection, then delete it."}, a.editCut},
		{command.Spec{ID: "edit:paste", MaxArgs: 1, Syntax: "edit paste [target]", ShortDesc: "Paste the clipboard",
			LongDesc: "Paste a copied model under target, or copied views into the target diagram."}, a.editPaste},
		{command.Spec{ID: "edit:delete", Syntax: "edit delete", ShortDesc: "Delete the selection",
			LongDesc: "Delete the selected views, or the selected models when no view is selected."}, a.editDelete},
		{command.Spec{ID: "edit:delete-from-model", Syntax: "edit delete-from-model", ShortDesc: "Delete the selected models",
			LongDesc: "Delete the selected models and the models of the selected views, with all their views."}, a.editDeleteFromModel},
		{command.Spec{ID: "edit:move-up", MaxArgs: 1, Syntax: "edit move-up [element]", ShortDesc: "Move an element up",
			LongDesc: "Move an element one position towards the start of its owner's list."}, a.editMove(-1)},
		{command.Spec{ID: "edit:move-down", MaxArgs: 1, Syntax: "edit move-down [element]", ShortDesc: "Move an element down",
			LongDesc: "Move an element one position towards the end of its owner's list."}, a.editMove(1)},
		{command.Spec{ID: "edit:select", MinArgs: 1, MaxArgs: command.Unlimited, Syntax: "edit select <element>...", ShortDesc: "Select elements",
			LongDesc: "Replace the selection. Elements are ids or name paths such as Model/Order.",
			Examples: []string{"edit select Model/Order Model/Main/Order"}}, a.editSelect},
		{command.Spec{ID: "edit:select-all", MaxArgs: 1, Syntax: "edit select-all [container]", ShortDesc: "Select everything in a container",
			LongDesc: "Select every view of a diagram, or every owned element of a model."}, a.editSelectAll},
		{command.Spec{ID: "edit:select-in-diagram", MaxArgs: 1, Syntax: "edit select-in-diagram [diagram]", ShortDesc: "Select the views of the selected models",
			LongDesc: "Select the views showing the selected models in a diagram."}, a.editSelectInDiagram},

		// format
		{command.Spec{ID: "format:font", MinArgs: 2, MaxArgs: 3, Syntax: "format font <face> <size> [color]", ShortDesc: "Set the font of the selected views", LongDesc: "Set font face, size and optionally color."}, a.formatFont},
		{command.Spec{ID: "format:fill-color", MinArgs: 1, MaxArgs: 1, Syntax: "format fill-color <color>", ShortDesc: "Set the fill color of the selected views", LongDesc: "Set the fill color."}, a.formatFillColor},
		{command.Spec{ID: "format:line-color", MinArgs: 1, MaxArgs: 1, Syntax: "format line-color <color>", ShortDesc: "Set the line color of the selected views", LongDesc: "Set the line color."}, a.formatLineColor},
		{command.Spec{ID: "format:linestyle-rectilinear", Syntax: "format linestyle-rectilinear", ShortDesc: "Route the selected edges rectilinear", LongDesc: "Set the rectilinear line style."}, a.formatLineStyle(repository.LineStyleRectilinear)},
		{command.Spec{ID: "format:linestyle-oblique", Syntax: "format linestyle-oblique", ShortDesc: "Route the selected edges oblique", LongDesc: "Set the oblique line style."}, a.formatLineStyle(repository.LineStyleOblique)},
		{command.Spec{ID: "format:linestyle-roundrect", Syntax: "format linestyle-roundrect", ShortDesc: "Route the selected edges with round corners", LongDesc: "Set the rounded rectilinear line style."}, a.formatLineStyle(repository.LineStyleRoundRect)},
		{command.Spec{ID: "format:linestyle-curve", Syntax: "format linestyle-curve", ShortDesc: "Route the selected edges as curves", LongDesc: "Set the curved line style."}, a.formatLineStyle(repository.LineStyleCurve)},
		{command.Spec{ID: "format:auto-resize", MinArgs: 1, MaxArgs: 1, Syntax: "format auto-resize <on|off>", ShortDesc: "Toggle auto resize of the selected views", LongDesc: "Turn automatic sizing on or off."}, a.formatAutoResize},
		{command.Spec{ID: "format:show-shadow", MinArgs: 1, MaxArgs: 1, Syntax: "format show-shadow <on|off>", ShortDesc: "Toggle the shadow of the selected views", LongDesc: "Turn the shadow on or off."}, a.formatShowShadow},

		// factory
		{command.Spec{ID: "factory:create-model", MinArgs: 1, MaxArgs: 3, Syntax: "factory create-model <type> [parent] [name]",
			ShortDesc: "Create a model element",
			LongDesc:  "Create a model under parent (default: the selected model or the project).",
			Examples:  []string{"factory create-model Class Model Order"}}, a.factoryCreateModel},
		{command.Spec{ID: "factory:create-diagram", MinArgs: 1, MaxArgs: 3, Syntax: "factory create-diagram <type> [parent] [name]",
			ShortDesc: "Create a diagram", LongDesc: "Create a diagram under parent (default: the selected model or the project)."}, a.factoryCreateDiagram},
		{command.Spec{ID: "factory:create-model-and-view", MinArgs: 4, MaxArgs: 5, Syntax: "factory create-model-and-view <type> <diagram> <left|tail> <top|head> [name]",
			ShortDesc: "Create a model and show it in a diagram",
			LongDesc:  "Create a model owned by the diagram's owner and a view at left, top. Relationships take the tail and head views instead and are owned by the source model.",
			Examples:  []string{"factory create-model-and-view Class Model/Main 10 10 Order", "factory create-model-and-view Association Model/Main Model/Main/Order Model/Main/Item"}}, a.factoryCreateModelAndView},

		// engine
		{command.Spec{ID: "engine:set-property", MinArgs: 3, MaxArgs: 3, Syntax: "engine set-property <element> <field> <value>",
			ShortDesc: "Set a field of an element",
			LongDesc:  "Assign a field. References take element ids or paths, lists are comma separated, \"none\" clears a reference.",
			Examples:  []string{"engine set-property Model/Order isAbstract on"}}, a.engineSetProperty},
		{command.Spec{ID: "engine:relocate", MinArgs: 2, MaxArgs: 3, Syntax: "engine relocate <element> <parent> [field]",
			ShortDesc: "Move an element to another owner", LongDesc: "Move an element under a new owner."}, a.engineRelocate},
		{command.Spec{ID: "engine:move-views", MinArgs: 2, MaxArgs: 2, Syntax: "engine move-views <dx> <dy>",
			ShortDesc: "Move the selected views", LongDesc: "Shift the selected views and their edges."}, a.engineMoveViews},
		{command.Spec{ID: "engine:resize-node", MinArgs: 5, MaxArgs: 5, Syntax: "engine resize-node <view> <left> <top> <width> <height>",
			ShortDesc: "Set the bounds of a node view", LongDesc: "Set position and size of a node view."}, a.engineResizeNode},
		{command.Spec{ID: "engine:modify-edge", MinArgs: 2, MaxArgs: 2, Syntax: "engine modify-edge <edge> <points>",
			ShortDesc: "Replace the path of an edge", LongDesc: "Set the points of an edge view as x1,y1;x2,y2;...",
			Examples: []string{"engine modify-edge Model/Main/Association1 \"70,40;250,40\""}}, a.engineModifyEdge},

		// view
		{command.Spec{ID: "view:tree", MaxArgs: 1, Syntax: "view tree [element]", ShortDesc: "Show the model explorer",
			LongDesc: "Show an element and its owned elements as a tree (default: the project)."}, a.viewTree},
		{command.Spec{ID: "view:show", MaxArgs: 1, Syntax: "view show [element]", ShortDesc: "Show the fields of an element",
			LongDesc: "List every field of an element (default: the selection)."}, a.viewShow},

		// application
		{command.Spec{ID: "application:quit", MaxArgs: 1, Syntax: "application quit [force]", ShortDesc: "Quit",
			LongDesc: "Quit the application.", Arguments: []string{"force: discard unsaved changes"}}, a.applicationQuit},
		{command.Spec{ID: "application:metrics", Syntax: "application metrics", ShortDesc: "Show usage counters",
			LongDesc: "List the counters of transactions, operations, commands and backups."}, a.applicationMetrics},
	}

	for _, e := range entries {
		if err := a.Commands.Register(e.spec, e.handler); err != nil {
			return err
		}
	}
	return nil
}

// checkUnsaved fails when the project has unsaved changes and args[i] is not "force"
func (a *Context) checkUnsaved(args []string, i int) error {
	if i < len(args) && args[i] == "force" {
		return nil
	}
	if i < len(args) {
		return errs.InvalidArgument("unexpected argument %q", args[i])
	}
	if a.Repo.Root() != nil && a.Repo.IsModified() {
		return errs.InvalidArgument("the project has unsaved changes; save it or add force")
	}
	return nil
}
