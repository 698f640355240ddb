package app

import (
	"context"
	"fmt"

	"umlforge/local-app/internal/command"
	"umlforge/local-app/internal/engine"
	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/factory"
	"umlforge/local-app/internal/repository"
)

// selectedViews returns the selected views, failing when there are none
func (a *Context) selectedViews() ([]*repository.Element, error) {
	views := a.Selection.Views()
	if len(views) == 0 {
		return nil, errs.InvalidArgument("no view is selected")
	}
	return views, nil
}

func (a *Context) formatFont(_ context.Context, args []string) (interface{}, error) {
	views, err := a.selectedViews()
	if err != nil {
		return nil, err
	}
	size, err := parseFloat(args[1])
	if err != nil {
		return nil, err
	}
	font := engine.Font{Face: args[0], Size: size}
	if len(args) > 2 {
		font.Color = args[2]
	}
	if err := a.Engine.SetFont(views, font); err != nil {
		return nil, err
	}
	return "Font set", nil
}

func (a *Context) formatFillColor(_ context.Context, args []string) (interface{}, error) {
	views, err := a.selectedViews()
	if err != nil {
		return nil, err
	}
	if err := a.Engine.SetFillColor(views, args[0]); err != nil {
		return nil, err
	}
	return "Fill color set", nil
}

func (a *Context) formatLineColor(_ context.Context, args []string) (interface{}, error) {
	views, err := a.selectedViews()
	if err != nil {
		return nil, err
	}
	if err := a.Engine.SetLineColor(views, args[0]); err != nil {
		return nil, err
	}
	return "Line color set", nil
}

func (a *Context) formatLineStyle(style int) command.Handler {
	return func(context.Context, []string) (interface{}, error) {
		views, err := a.selectedViews()
		if err != nil {
			return nil, err
		}
		if err := a.Engine.SetLineStyle(views, style); err != nil {
			return nil, err
		}
		return "Line style set", nil
	}
}

func (a *Context) formatAutoResize(_ context.Context, args []string) (interface{}, error) {
	views, err := a.selectedViews()
	if err != nil {
		return nil, err
	}
	enabled, err := parseBool(args[0])
	if err != nil {
		return nil, err
	}
	if err := a.Engine.SetAutoResize(views, enabled); err != nil {
		return nil, err
	}
	return "Auto resize set", nil
}

func (a *Context) formatShowShadow(_ context.Context, args []string) (interface{}, error) {
	views, err := a.selectedViews()
	if err != nil {
		return nil, err
	}
	enabled, err := parseBool(args[0])
	if err != nil {
		return nil, err
	}
	if err := a.Engine.SetShowShadow(views, enabled); err != nil {
		return nil, err
	}
	return "Shadow set", nil
}

func (a *Context) factoryCreateModel(_ context.Context, args []string) (interface{}, error) {
	parent, err := a.resolveOr(args, 1, a.selectedModelOrRoot)
	if err != nil {
		return nil, err
	}
	opts := factory.Options{Parent: parent}
	if len(args) > 2 {
		opts.Name = args[2]
	}
	elem, err := a.Factory.CreateModel(args[0], opts)
	if err != nil {
		return nil, err
	}
	a.Selection.Select(elem)
	return fmt.Sprintf("Created %s %q [%s]", elem.TypeName(), label(elem), elem.ID()), nil
}

func (a *Context) factoryCreateDiagram(_ context.Context, args []string) (interface{}, error) {
	parent, err := a.resolveOr(args, 1, a.selectedModelOrRoot)
	if err != nil {
		return nil, err
	}
	name := ""
	if len(args) > 2 {
		name = args[2]
	}
	diagram, err := a.Factory.CreateDiagram(args[0], parent, name)
	if err != nil {
		return nil, err
	}
	a.Selection.Select(diagram)
	return fmt.Sprintf("Created %s %q [%s]", diagram.TypeName(), label(diagram), diagram.ID()), nil
}

func (a *Context) factoryCreateModelAndView(_ context.Context, args []string) (interface{}, error) {
	typeName := args[0]
	diagram, err := a.resolve(args[1])
	if err != nil {
		return nil, err
	}
	opts := factory.Options{Parent: diagram.Parent()}
	if len(args) > 4 {
		opts.Name = args[4]
	}

	var view *repository.Element
	if a.Repo.Registry().IsKindOf(typeName, repository.TypeRelationship) {
		tail, err := a.resolve(args[2])
		if err != nil {
			return nil, err
		}
		head, err := a.resolve(args[3])
		if err != nil {
			return nil, err
		}
		if source := tail.Ref(repository.FieldModel); source != nil {
			opts.Parent = source
		}
		view, err = a.Factory.CreateModelAndView(typeName, opts, diagram, factory.Rect{}, tail, head)
		if err != nil {
			return nil, err
		}
	} else {
		pos, err := parseFloats(args[2:4])
		if err != nil {
			return nil, err
		}
		view, err = a.Factory.CreateModelAndView(typeName, opts, diagram, factory.Rect{Left: pos[0], Top: pos[1]}, nil, nil)
		if err != nil {
			return nil, err
		}
	}
	a.Selection.SelectViews(view)
	model := view.Ref(repository.FieldModel)
	return fmt.Sprintf("Created %s %q [%s] shown in %s", model.TypeName(), label(model), model.ID(), label(diagram)), nil
}

func (a *Context) engineSetProperty(_ context.Context, args []string) (interface{}, error) {
	elem, err := a.resolve(args[0])
	if err != nil {
		return nil, err
	}
	value, err := a.parseValue(elem, args[1], args[2])
	if err != nil {
		return nil, err
	}
	if err := a.Engine.SetProperty(elem, args[1], value); err != nil {
		return nil, err
	}
	return fmt.Sprintf("%s.%s set", label(elem), args[1]), nil
}

func (a *Context) engineRelocate(_ context.Context, args []string) (interface{}, error) {
	elem, err := a.resolve(args[0])
	if err != nil {
		return nil, err
	}
	parent, err := a.resolve(args[1])
	if err != nil {
		return nil, err
	}
	field := ""
	if len(args) > 2 {
		field = args[2]
	}
	if err := a.Engine.Relocate(elem, parent, field); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Moved %q to %s.%s", label(elem), label(parent), elem.ParentField()), nil
}

func (a *Context) engineMoveViews(_ context.Context, args []string) (interface{}, error) {
	views, err := a.selectedViews()
	if err != nil {
		return nil, err
	}
	d, err := parseFloats(args)
	if err != nil {
		return nil, err
	}
	if err := a.Engine.MoveViews(views, d[0], d[1]); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Moved %d view(s)", len(views)), nil
}

func (a *Context) engineResizeNode(_ context.Context, args []string) (interface{}, error) {
	node, err := a.resolve(args[0])
	if err != nil {
		return nil, err
	}
	b, err := parseFloats(args[1:])
	if err != nil {
		return nil, err
	}
	if err := a.Engine.ResizeNode(node, b[0], b[1], b[2], b[3]); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Resized %q", label(node)), nil
}

func (a *Context) engineModifyEdge(_ context.Context, args []string) (interface{}, error) {
	edge, err := a.resolve(args[0])
	if err != nil {
		return nil, err
	}
	points, err := engine.ParsePoints(args[1])
	if err != nil {
		return nil, errs.InvalidArgument("invalid points: %v", err)
	}
	if err := a.Engine.ModifyEdge(edge, points); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Edge %q has %d point(s)", label(edge), len(points)), nil
}

func (a *Context) viewTree(_ context.Context, args []string) (interface{}, error) {
	root, err := a.resolveOr(args, 0, a.Repo.Root)
	if err != nil {
		return nil, err
	}
	return buildTree(root), nil
}

func (a *Context) viewShow(_ context.Context, args []string) (interface{}, error) {
	elem, err := a.resolveOr(args, 0, a.Selection.Selected)
	if err != nil {
		return nil, err
	}
	return buildProperties(elem), nil
}

func (a *Context) applicationQuit(_ context.Context, args []string) (interface{}, error) {
	if err := a.checkUnsaved(args, 0); err != nil {
		return nil, err
	}
	a.requestQuit()
	return nil, nil
}

func (a *Context) applicationMetrics(context.Context, []string) (interface{}, error) {
	return a.Metrics.Summary()
}
