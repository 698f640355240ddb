package engine

import (
	"context"

	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/repository"
)

// deletion is the closure of a delete request: the elements to remove and the references to clear
type deletion struct {
	repo    *repository.Repository
	members map[*repository.Element]bool
}

func (d *deletion) add(root *repository.Element) {
	root.Walk(func(el *repository.Element) bool {
		d.members[el] = true
		return true
	})
}

// expand adds every element holding a cascading reference into the set until nothing changes.
// A restricting reference from outside the set fails the whole deletion.
func (d *deletion) expand() error {
	for changed := true; changed; {
		changed = false
		for _, target := range d.sorted() {
			for _, ref := range d.repo.IncomingReferences(target) {
				if d.members[ref.Source] {
					continue
				}
				f, _ := ref.Source.Type().Field(ref.Field)
				switch {
				case f.OnDelete == repository.OnDeleteRestrict:
					return errs.ReferentialIntegrity("%s %s is referenced by %s.%s",
						target.TypeName(), target.ID(), ref.Source.ID(), ref.Field)
				case f.OnDelete == repository.OnDeleteCascade || f.Required:
					d.add(ref.Source)
					changed = true
				}
			}
		}
	}
	return nil
}

// sorted returns the members in creation order
func (d *deletion) sorted() []*repository.Element {
	var out []*repository.Element
	for el := range d.repo.Find(func(el *repository.Element) bool { return d.members[el] }) {
		out = append(out, el)
	}
	return out
}

// clears builds the updates dropping references from surviving elements into the set
func (d *deletion) clears() []*repository.Operation {
	type slot struct {
		source *repository.Element
		field  string
	}
	seen := make(map[slot]bool)
	var ops []*repository.Operation
	for _, target := range d.sorted() {
		for _, ref := range d.repo.IncomingReferences(target) {
			key := slot{ref.Source, ref.Field}
			if d.members[ref.Source] || seen[key] {
				continue
			}
			seen[key] = true
			f, _ := ref.Source.Type().Field(ref.Field)
			if f.Kind == repository.FieldRefs {
				var kept []*repository.Element
				for _, el := range ref.Source.Refs(ref.Field) {
					if !d.members[el] {
						kept = append(kept, el)
					}
				}
				ops = append(ops, repository.Update(ref.Source, ref.Field, kept))
			} else {
				ops = append(ops, repository.Update(ref.Source, ref.Field, nil))
			}
		}
	}
	return ops
}

// DeleteElements deletes models and views together with everything that depends on them:
// owned subtrees, views of deleted models, edges losing an end and relationships losing an end.
// Cleared references are updated before the deletes. It returns the deleted elements in creation order.
func (e *Engine) DeleteElements(models, views []*repository.Element) ([]*repository.Element, error) {
	ctx := context.Background()
	requested := append(append([]*repository.Element{}, models...), views...)
	if len(requested) == 0 {
		return nil, errs.InvalidArgument("no elements given")
	}
	if err := requireAttached(requested...); err != nil {
		return nil, err
	}

	d := &deletion{repo: e.repo, members: make(map[*repository.Element]bool)}
	for _, el := range requested {
		d.add(el)
	}
	if err := d.expand(); err != nil {
		e.logger.Warn(ctx, "Delete rejected", log.Fields{"error": err})
		return nil, err
	}

	deleted := d.sorted()
	registry := e.repo.Registry()
	for _, el := range deleted {
		if !registry.CanDelete(el.TypeName()) {
			err := errs.NotDeletable("%s %s cannot be deleted", el.TypeName(), el.ID())
			e.logger.Warn(ctx, "Delete rejected", log.Fields{"error": err})
			return nil, err
		}
	}

	tx := repository.NewTransaction("Delete elements", d.clears()...)
	for _, el := range deleted {
		if !d.members[el.Parent()] {
			tx.Add(repository.Delete(el))
		}
	}

	e.logger.Info(ctx, "Deleting elements", log.Fields{"requested": len(requested), "deleted": len(deleted)})
	if err := e.submit(tx); err != nil {
		return nil, err
	}
	return deleted, nil
}
