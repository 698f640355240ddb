package app

import (
	"context"
	"fmt"

	"umlforge/local-app/internal/errs"
)

func (a *Context) projectNew(_ context.Context, args []string) (interface{}, error) {
	if err := a.checkUnsaved(args, 0); err != nil {
		return nil, err
	}
	root, err := a.Projects.New()
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Project %q created", root.Name()), nil
}

func (a *Context) projectOpen(_ context.Context, args []string) (interface{}, error) {
	if err := a.checkUnsaved(args, 1); err != nil {
		return nil, err
	}
	root, err := a.Projects.Load(args[0])
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Project %q opened (%d elements)", root.Name(), a.Repo.Len()), nil
}

func (a *Context) projectSave(_ context.Context, args []string) (interface{}, error) {
	filename := ""
	if len(args) > 0 {
		filename = args[0]
	}
	if err := a.Projects.Save(filename); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Saved to %s", a.Projects.Filename()), nil
}

func (a *Context) projectClose(_ context.Context, args []string) (interface{}, error) {
	if a.Repo.Root() == nil {
		return nil, errs.InvalidArgument("no project is open")
	}
	if err := a.checkUnsaved(args, 0); err != nil {
		return nil, err
	}
	a.Projects.Close()
	return "Project closed", nil
}

func (a *Context) projectImport(_ context.Context, args []string) (interface{}, error) {
	parent, err := a.resolveOr(args, 1, a.selectedModelOrRoot)
	if err != nil {
		return nil, err
	}
	elem, err := a.Projects.ImportFromFile(parent, args[0])
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Imported %s %q into %s", elem.TypeName(), label(elem), label(parent)), nil
}

func (a *Context) projectExport(_ context.Context, args []string) (interface{}, error) {
	elem, err := a.resolveOr(args, 1, a.Selection.Selected)
	if err != nil {
		return nil, err
	}
	if err := a.Projects.ExportToFile(elem, args[0]); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Exported %q to %s", label(elem), args[0]), nil
}

func (a *Context) projectRecent(context.Context, []string) (interface{}, error) {
	recent, err := a.Projects.RecentFiles()
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(recent))
	for i, r := range recent {
		lines[i] = fmt.Sprintf("%s  %s", r.Opened.Format("2006-01-02 15:04"), r.Path)
	}
	return lines, nil
}
