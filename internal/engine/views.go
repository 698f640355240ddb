package engine

import (
	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/repository"
)

// MoveViews shifts node views by dx, dy. Edges in views, and edges whose both ends
// are moved nodes, have their paths shifted as well.
func (e *Engine) MoveViews(views []*repository.Element, dx, dy float64) error {
	if len(views) == 0 {
		return errs.InvalidArgument("no views given")
	}
	if err := requireAttached(views...); err != nil {
		return err
	}
	if dx == 0 && dy == 0 {
		return nil
	}

	tx := repository.NewTransaction("Move views")
	moved := make(map[*repository.Element]bool)
	edges := make(map[*repository.Element]bool)
	for _, v := range views {
		switch {
		case v.IsKindOf(repository.TypeNodeView):
			if moved[v] {
				continue
			}
			moved[v] = true
			tx.Add(repository.Update(v, "left", v.FloatValue("left")+dx))
			tx.Add(repository.Update(v, "top", v.FloatValue("top")+dy))
		case v.IsKindOf(repository.TypeEdgeView):
			edges[v] = true
		}
	}

	for edge := range e.repo.Find(func(el *repository.Element) bool {
		if !el.IsKindOf(repository.TypeEdgeView) {
			return false
		}
		return edges[el] || (moved[el.Ref(repository.FieldHead)] && moved[el.Ref(repository.FieldTail)])
	}) {
		points, err := ParsePoints(edge.StringValue(repository.FieldPoints))
		if err != nil {
			return errs.InvalidArgument("edge %s has a malformed path: %v", edge.ID(), err)
		}
		if len(points) == 0 {
			continue
		}
		tx.Add(repository.Update(edge, repository.FieldPoints, points.Translate(dx, dy).String()))
	}

	if tx.Len() == 0 {
		return nil
	}
	return e.submit(tx)
}

// MoveParasiticView repositions a label relative to the view it is attached to
func (e *Engine) MoveParasiticView(view *repository.Element, alpha, distance float64) error {
	if err := requireAttached(view); err != nil {
		return err
	}
	if !view.IsKindOf(repository.TypeLabelView) {
		return errs.InvalidArgument("%s is not a label view", view.TypeName())
	}
	return e.submit(repository.NewTransaction("Move label",
		repository.Update(view, "alpha", alpha),
		repository.Update(view, "distance", distance),
	))
}

// ResizeNode sets the bounds of a node view
func (e *Engine) ResizeNode(node *repository.Element, left, top, width, height float64) error {
	if err := requireAttached(node); err != nil {
		return err
	}
	if !node.IsKindOf(repository.TypeNodeView) {
		return errs.InvalidArgument("%s is not a node view", node.TypeName())
	}
	if width <= 0 || height <= 0 {
		return errs.InvalidArgument("invalid size %gx%g", width, height)
	}
	return e.submit(repository.NewTransaction("Resize",
		repository.Update(node, "left", left),
		repository.Update(node, "top", top),
		repository.Update(node, "width", width),
		repository.Update(node, "height", height),
	))
}

// ModifyEdge replaces the path of an edge view
func (e *Engine) ModifyEdge(edge *repository.Element, points Points) error {
	if err := requireAttached(edge); err != nil {
		return err
	}
	if !edge.IsKindOf(repository.TypeEdgeView) {
		return errs.InvalidArgument("%s is not an edge view", edge.TypeName())
	}
	if len(points) < 2 {
		return errs.InvalidArgument("an edge path needs at least two points")
	}
	return e.submit(repository.NewTransaction("Modify edge",
		repository.Update(edge, repository.FieldPoints, points.String())))
}
