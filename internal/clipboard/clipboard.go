// Package clipboard copies models and views out of the repository and hands back fresh,
// detached copies for pasting.
package clipboard

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/repository"
)

const envelopeFormat = "umlforge/clipboard"

// Content tells what a clipboard holds
type Content string

const (
	ContentNone  Content = ""
	ContentModel Content = "model"
	ContentViews Content = "views"
)

// CopyContext describes where copied content came from
type CopyContext struct {
	// Field is the owning field of the copied elements in their parent
	Field string `json:"field"`
	// ElementType is the type of the copied model, or of the diagram holding the copied views
	ElementType string `json:"elementType"`
	// Refs are ids of elements outside the copy that it references
	Refs []string `json:"refs,omitempty"`
}

type envelope struct {
	Format  string          `json:"format"`
	Content Content         `json:"content"`
	Context CopyContext     `json:"context"`
	Data    json.RawMessage `json:"data"`
}

// Clipboard serializes copied elements into a Board
type Clipboard struct {
	repo   *repository.Repository
	board  Board
	logger *log.Logger
}

func NewClipboard(repo *repository.Repository, board Board, logger *log.Logger) (*Clipboard, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	if board == nil {
		return nil, fmt.Errorf("board not initialized")
	}
	return &Clipboard{repo: repo, board: board, logger: logger}, nil
}

// SetModel copies one model with its owned subtree
func (c *Clipboard) SetModel(elem *repository.Element) error {
	if elem == nil || !elem.Attached() {
		return errs.InvalidArgument("element is not in the repository")
	}
	if !elem.IsModel() {
		return errs.InvalidArgument("%s is not a model", elem.TypeName())
	}
	if !c.repo.Registry().CanCopy(elem.TypeName()) {
		return errs.InvalidArgument("%s cannot be copied", elem.TypeName())
	}

	data, err := c.repo.WriteObject(elem)
	if err != nil {
		return err
	}
	return c.write(envelope{
		Content: ContentModel,
		Context: CopyContext{
			Field:       elem.ParentField(),
			ElementType: elem.TypeName(),
			Refs:        externalRefs([]*repository.Element{elem}),
		},
		Data: data,
	})
}

// SetViews copies views of one diagram. Views nested in another copied view travel with it.
func (c *Clipboard) SetViews(views []*repository.Element) error {
	if len(views) == 0 {
		return errs.InvalidArgument("no views given")
	}
	var diagram *repository.Element
	for _, v := range views {
		if v == nil || !v.Attached() || !v.IsView() {
			return errs.InvalidArgument("a view in the repository is required")
		}
		if !c.repo.Registry().CanCopy(v.TypeName()) {
			return errs.InvalidArgument("%s cannot be copied", v.TypeName())
		}
		d := diagramOf(v)
		if diagram == nil {
			diagram = d
		} else if d != diagram {
			return errs.InvalidArgument("views belong to different diagrams")
		}
	}
	if diagram == nil {
		return errs.InvalidArgument("views are not in a diagram")
	}

	roots := topmost(views)
	data, err := repository.WriteObjects(roots)
	if err != nil {
		return err
	}
	return c.write(envelope{
		Content: ContentViews,
		Context: CopyContext{
			Field:       repository.FieldOwnedViews,
			ElementType: diagram.TypeName(),
			Refs:        externalRefs(roots),
		},
		Data: data,
	})
}

func (c *Clipboard) write(env envelope) error {
	env.Format = envelopeFormat
	text, err := json.Marshal(env)
	if err != nil {
		return errs.Wrap(errs.KindSerialization, err, "failed to encode clipboard")
	}
	if err := c.board.WriteText(string(text)); err != nil {
		c.logger.Error(context.Background(), "Failed to write clipboard", log.Fields{"error": err})
		return err
	}
	c.logger.Debug(context.Background(), "Clipboard set", log.Fields{"content": env.Content, "type": env.Context.ElementType})
	return nil
}

// read returns ok false when the board holds something other than copied elements
func (c *Clipboard) read() (envelope, bool, error) {
	text, err := c.board.ReadText()
	if err != nil {
		return envelope{}, false, err
	}
	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil || env.Format != envelopeFormat {
		return envelope{}, false, nil
	}
	return env, true, nil
}

// Content reports what the clipboard holds
func (c *Clipboard) Content() Content {
	env, ok, err := c.read()
	if err != nil || !ok {
		return ContentNone
	}
	return env.Content
}

func (c *Clipboard) HasModel() bool { return c.Content() == ContentModel }

func (c *Clipboard) HasViews() bool { return c.Content() == ContentViews }

// Context describes the copied content
func (c *Clipboard) Context() (CopyContext, error) {
	env, ok, err := c.read()
	if err != nil {
		return CopyContext{}, err
	}
	if !ok {
		return CopyContext{}, errs.InvalidArgument("clipboard is empty")
	}
	return env.Context, nil
}

// Model returns a detached copy of the copied model with fresh ids.
// Each call returns a new copy.
func (c *Clipboard) Model() (*repository.Element, error) {
	env, err := c.expect(ContentModel)
	if err != nil {
		return nil, err
	}
	return c.repo.ReadObject(env.Data, repository.ReadOptions{RegenerateIDs: true, AllowExternalRefs: true})
}

// Views returns detached copies of the copied views with fresh ids
func (c *Clipboard) Views() ([]*repository.Element, error) {
	env, err := c.expect(ContentViews)
	if err != nil {
		return nil, err
	}
	return c.repo.ReadObjects(env.Data, repository.ReadOptions{RegenerateIDs: true, AllowExternalRefs: true})
}

func (c *Clipboard) expect(content Content) (envelope, error) {
	env, ok, err := c.read()
	if err != nil {
		return envelope{}, err
	}
	if !ok || env.Content != content {
		return envelope{}, errs.InvalidArgument("clipboard holds no %s", content)
	}
	return env, nil
}

// Clear empties the clipboard
func (c *Clipboard) Clear() error {
	return c.board.WriteText("")
}

func diagramOf(view *repository.Element) *repository.Element {
	for p := view.Parent(); p != nil; p = p.Parent() {
		if p.IsKindOf(repository.TypeDiagram) {
			return p
		}
	}
	return nil
}

// topmost drops views owned, directly or not, by another view of the list
func topmost(views []*repository.Element) []*repository.Element {
	var out []*repository.Element
	for _, v := range views {
		nested := false
		for _, other := range views {
			if other != v && v.IsDescendantOf(other) {
				nested = true
				break
			}
		}
		if !nested && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func externalRefs(roots []*repository.Element) []string {
	inside := make(map[*repository.Element]bool)
	for _, r := range roots {
		r.Walk(func(e *repository.Element) bool {
			inside[e] = true
			return true
		})
	}

	var ids []string
	seen := make(map[string]bool)
	add := func(target *repository.Element) {
		if target != nil && !inside[target] && !seen[target.ID()] {
			seen[target.ID()] = true
			ids = append(ids, target.ID())
		}
	}
	for _, r := range roots {
		r.Walk(func(e *repository.Element) bool {
			for _, f := range e.Type().Fields() {
				switch f.Kind {
				case repository.FieldRef:
					add(e.Ref(f.Name))
				case repository.FieldRefs:
					for _, t := range e.Refs(f.Name) {
						add(t)
					}
				}
			}
			return true
		})
	}
	return ids
}
