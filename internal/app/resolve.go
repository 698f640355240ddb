package app

import (
	"strconv"
	"strings"

	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/repository"
)

// resolve finds the element named by ref: "." is the current selection, "/" the project,
// anything else an element id or a "/"-separated name path from the project.
func (a *Context) resolve(ref string) (*repository.Element, error) {
	root := a.Repo.Root()
	if root == nil {
		return nil, errs.InvalidArgument("no project is open")
	}
	switch ref {
	case "", ".":
		if selected := a.Selection.Selected(); selected != nil {
			return selected, nil
		}
		return nil, errs.InvalidArgument("nothing is selected")
	case "/":
		return root, nil
	}
	if repository.ValidID(ref) {
		if e, err := a.Repo.Get(ref); err == nil && e != nil {
			return e, nil
		}
	}

	segments := strings.Split(strings.Trim(ref, "/"), "/")
	if len(segments) > 1 && segments[0] == root.Name() {
		segments = segments[1:]
	}
	current := root
	for _, segment := range segments {
		next := childNamed(current, segment)
		if next == nil {
			return nil, errs.InvalidArgument("no element %q", ref)
		}
		current = next
	}
	return current, nil
}

func childNamed(parent *repository.Element, name string) *repository.Element {
	for _, child := range parent.OwnedElements() {
		if label(child) == name {
			return child
		}
	}
	return nil
}

// resolveOr resolves the argument at index i, or the fallback when it is absent
func (a *Context) resolveOr(args []string, i int, fallback func() *repository.Element) (*repository.Element, error) {
	if i < len(args) {
		return a.resolve(args[i])
	}
	if e := fallback(); e != nil {
		return e, nil
	}
	return nil, errs.InvalidArgument("no element given and nothing suitable is selected")
}

// selectedModelOrRoot is the first selected model, or the project
func (a *Context) selectedModelOrRoot() *repository.Element {
	if models := a.Selection.Models(); len(models) > 0 {
		return models[0]
	}
	return a.Repo.Root()
}

// selectedDiagram is the diagram owning the first selected view
func (a *Context) selectedDiagram() *repository.Element {
	if views := a.Selection.Views(); len(views) > 0 {
		return diagramOf(views[0])
	}
	if selected := a.Selection.Selected(); selected != nil && selected.IsKindOf(repository.TypeDiagram) {
		return selected
	}
	return nil
}

func diagramOf(view *repository.Element) *repository.Element {
	for e := view; e != nil; e = e.Parent() {
		if e.IsKindOf(repository.TypeDiagram) {
			return e
		}
	}
	return nil
}

// parseValue converts a command argument to the value stored in field of elem
func (a *Context) parseValue(elem *repository.Element, field, raw string) (any, error) {
	f, ok := elem.Type().Field(field)
	if !ok {
		return nil, errs.InvalidArgument("%s has no field %s", elem.TypeName(), field)
	}
	switch f.Kind {
	case repository.FieldRef:
		if raw == "" || raw == "none" {
			return nil, nil
		}
		return a.resolve(raw)
	case repository.FieldRefs:
		var refs []*repository.Element
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			ref, err := a.resolve(part)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
		return refs, nil
	case repository.FieldOwned:
		return nil, errs.InvalidArgument("field %s holds owned elements; use engine relocate", field)
	}

	switch f.AttrType {
	case repository.AttrBool:
		return parseBool(raw)
	case repository.AttrInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errs.InvalidArgument("field %s expects an integer, got %q", field, raw)
		}
		return v, nil
	case repository.AttrFloat:
		return parseFloat(raw)
	default:
		return raw, nil
	}
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, errs.InvalidArgument("expected on or off, got %q", raw)
}

func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errs.InvalidArgument("expected a number, got %q", raw)
	}
	return v, nil
}

func parseFloats(raw []string) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, s := range raw {
		v, err := parseFloat(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
