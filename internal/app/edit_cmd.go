package app

import (
	"context"
	"fmt"
	"slices"

	"umlforge/local-app/internal/command"
	"umlforge/local-app/internal/engine"
	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/repository"
)

// pasteOffset shifts pasted node views so they do not cover the originals
const pasteOffset = 20

func (a *Context) editUndo(context.Context, []string) (interface{}, error) {
	done, err := a.Repo.Undo()
	if err != nil {
		return nil, err
	}
	if !done {
		return "Nothing to undo", nil
	}
	return "Undone", nil
}

func (a *Context) editRedo(context.Context, []string) (interface{}, error) {
	done, err := a.Repo.Redo()
	if err != nil {
		return nil, err
	}
	if !done {
		return "Nothing to redo", nil
	}
	return "Redone", nil
}

func (a *Context) editCopy(context.Context, []string) (interface{}, error) {
	if views := a.Selection.Views(); len(views) > 0 {
		if err := a.Clipboard.SetViews(views); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Copied %d view(s)", len(views)), nil
	}
	models := a.Selection.Models()
	if len(models) == 0 {
		return nil, errs.InvalidArgument("nothing is selected")
	}
	if err := a.Clipboard.SetModel(models[0]); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Copied %s %q", models[0].TypeName(), label(models[0])), nil
}

func (a *Context) editCut(ctx context.Context, args []string) (interface{}, error) {
	if _, err := a.editCopy(ctx, args); err != nil {
		return nil, err
	}
	return a.editDelete(ctx, args)
}

func (a *Context) editPaste(_ context.Context, args []string) (interface{}, error) {
	switch {
	case a.Clipboard.HasModel():
		return a.pasteModel(args)
	case a.Clipboard.HasViews():
		return a.pasteViews(args)
	default:
		return nil, errs.InvalidArgument("clipboard is empty")
	}
}

func (a *Context) pasteModel(args []string) (interface{}, error) {
	target, err := a.resolveOr(args, 0, a.selectedModelOrRoot)
	if err != nil {
		return nil, err
	}
	copyCtx, err := a.Clipboard.Context()
	if err != nil {
		return nil, err
	}
	model, err := a.Clipboard.Model()
	if err != nil {
		return nil, err
	}
	field := copyCtx.Field
	if field == "" || !a.Repo.Registry().CanContain(target.TypeName(), field, model.TypeName()) {
		field = repository.FieldOwnedElements
	}
	if _, err := a.Engine.AddModel(target, field, model); err != nil {
		return nil, err
	}
	a.Selection.Select(model)
	return fmt.Sprintf("Pasted %s %q into %s", model.TypeName(), label(model), label(target)), nil
}

func (a *Context) pasteViews(args []string) (interface{}, error) {
	diagram, err := a.resolveOr(args, 0, a.selectedDiagram)
	if err != nil {
		return nil, err
	}
	if !diagram.IsKindOf(repository.TypeDiagram) {
		return nil, errs.InvalidArgument("%s is not a diagram", label(diagram))
	}
	views, err := a.Clipboard.Views()
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		if err := offsetView(v, pasteOffset); err != nil {
			return nil, err
		}
	}
	if _, err := a.Engine.AddViews(diagram, views); err != nil {
		return nil, err
	}
	a.Selection.SelectViews(views...)
	return fmt.Sprintf("Pasted %d view(s) into %s", len(views), label(diagram)), nil
}

// offsetView shifts a detached view and its sub views
func offsetView(view *repository.Element, d float64) error {
	var err error
	view.Walk(func(v *repository.Element) bool {
		switch {
		case v.IsKindOf(repository.TypeNodeView):
			if err = v.Set("left", v.FloatValue("left")+d); err == nil {
				err = v.Set("top", v.FloatValue("top")+d)
			}
		case v.IsKindOf(repository.TypeEdgeView):
			var points engine.Points
			if points, err = engine.ParsePoints(v.StringValue(repository.FieldPoints)); err == nil {
				err = v.Set(repository.FieldPoints, points.Translate(d, d).String())
			}
		}
		return err == nil
	})
	return err
}

func (a *Context) editDelete(context.Context, []string) (interface{}, error) {
	var deleted []*repository.Element
	var err error
	if views := a.Selection.Views(); len(views) > 0 {
		deleted, err = a.Engine.DeleteElements(nil, views)
	} else {
		models := a.Selection.Models()
		if len(models) == 0 {
			return nil, errs.InvalidArgument("nothing is selected")
		}
		deleted, err = a.Engine.DeleteElements(models, nil)
	}
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Deleted %d element(s)", len(deleted)), nil
}

func (a *Context) editDeleteFromModel(context.Context, []string) (interface{}, error) {
	models := a.Selection.Models()
	for _, v := range a.Selection.Views() {
		if m := v.Ref(repository.FieldModel); m != nil && !slices.Contains(models, m) {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return nil, errs.InvalidArgument("no model is selected")
	}
	deleted, err := a.Engine.DeleteElements(models, nil)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Deleted %d element(s)", len(deleted)), nil
}

func (a *Context) editMove(delta int) command.Handler {
	return func(_ context.Context, args []string) (interface{}, error) {
		elem, err := a.resolveOr(args, 0, a.Selection.Selected)
		if err != nil {
			return nil, err
		}
		before := elem.Index()
		if delta < 0 {
			err = a.Engine.MoveUp(elem)
		} else {
			err = a.Engine.MoveDown(elem)
		}
		if err != nil {
			return nil, err
		}
		if elem.Index() == before {
			return fmt.Sprintf("%q is already at the boundary", label(elem)), nil
		}
		return fmt.Sprintf("Moved %q to position %d", label(elem), elem.Index()+1), nil
	}
}

func (a *Context) editSelect(_ context.Context, args []string) (interface{}, error) {
	elems := make([]*repository.Element, 0, len(args))
	for _, ref := range args {
		e, err := a.resolve(ref)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	a.Selection.Select(elems...)
	return a.selectionSummary(), nil
}

func (a *Context) editSelectAll(_ context.Context, args []string) (interface{}, error) {
	container, err := a.resolveOr(args, 0, func() *repository.Element {
		if d := a.selectedDiagram(); d != nil {
			return d
		}
		if selected := a.Selection.Selected(); selected != nil && selected.Parent() != nil {
			return selected.Parent()
		}
		return a.Repo.Root()
	})
	if err != nil {
		return nil, err
	}
	if container.IsKindOf(repository.TypeDiagram) {
		a.Selection.SelectViews(container.Children(repository.FieldOwnedViews)...)
	} else {
		a.Selection.Select(container.OwnedElements()...)
	}
	return a.selectionSummary(), nil
}

func (a *Context) editSelectInDiagram(_ context.Context, args []string) (interface{}, error) {
	diagram, err := a.resolveOr(args, 0, a.selectedDiagram)
	if err != nil {
		return nil, err
	}
	if !diagram.IsKindOf(repository.TypeDiagram) {
		return nil, errs.InvalidArgument("%s is not a diagram", label(diagram))
	}
	models := a.Selection.Models()
	if len(models) == 0 {
		return nil, errs.InvalidArgument("no model is selected")
	}
	var views []*repository.Element
	for _, m := range models {
		for _, v := range a.Repo.GetViewsOf(m) {
			if diagramOf(v) == diagram {
				views = append(views, v)
			}
		}
	}
	if len(views) == 0 {
		return nil, errs.InvalidArgument("the selected models are not shown in %s", label(diagram))
	}
	a.Selection.SelectViews(views...)
	return a.selectionSummary(), nil
}

func (a *Context) selectionSummary() string {
	return fmt.Sprintf("Selected %d model(s), %d view(s)", len(a.Selection.Models()), len(a.Selection.Views()))
}
