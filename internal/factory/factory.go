// Package factory creates new models, diagrams and views with sensible defaults
package factory

import (
	"context"
	"fmt"
	"strconv"

	"umlforge/local-app/internal/engine"
	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/repository"
)

// Rect places a node view. Zero width or height keeps the type default.
type Rect struct {
	Left, Top, Width, Height float64
}

// Options describe a model to create
type Options struct {
	Parent *repository.Element
	// Field defaults to the first dedicated owned field of the parent accepting the type,
	// then ownedElements
	Field string
	// Name defaults to the type name followed by the first free number
	Name string
	// Source and Target are the ends of a relationship
	Source, Target *repository.Element
	// Init runs on the detached model before it is added
	Init func(*repository.Element) error
}

// Factory builds elements and adds each through the engine as one transaction
type Factory struct {
	repo      *repository.Repository
	engine    *engine.Engine
	logger    *log.Logger
	viewTypes map[string]string
}

// defaultViewTypes maps model types to the view type that shows them
var defaultViewTypes = map[string]string{
	repository.TypeClass:          repository.TypeClassView,
	repository.TypePackage:        repository.TypePackageView,
	repository.TypeRelationship:   repository.TypeRelationshipView,
	repository.TypeDependency:     repository.TypeRelationshipView,
	repository.TypeAssociation:    repository.TypeRelationshipView,
	repository.TypeGeneralization: repository.TypeRelationshipView,
}

func NewFactory(eng *engine.Engine, logger *log.Logger) (*Factory, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if eng == nil {
		logger.Error(context.Background(), "Engine not initialized", nil)
		return nil, fmt.Errorf("engine not initialized")
	}
	viewTypes := make(map[string]string, len(defaultViewTypes))
	for m, v := range defaultViewTypes {
		viewTypes[m] = v
	}
	return &Factory{
		repo:      eng.Repository(),
		engine:    eng,
		logger:    logger,
		viewTypes: viewTypes,
	}, nil
}

// RegisterView sets the view type used to show models of modelType
func (f *Factory) RegisterView(modelType, viewType string) error {
	reg := f.repo.Registry()
	mt, ok := reg.Lookup(modelType)
	if !ok || mt.Category() != repository.CategoryModel {
		return errs.InvalidArgument("unknown model type %q", modelType)
	}
	vt, ok := reg.Lookup(viewType)
	if !ok || vt.Category() != repository.CategoryView || vt.Abstract() {
		return errs.InvalidArgument("unknown view type %q", viewType)
	}
	f.viewTypes[modelType] = viewType
	return nil
}

// ViewTypeOf returns the view type for a model type, following supertypes
func (f *Factory) ViewTypeOf(modelType string) (string, bool) {
	t, ok := f.repo.Registry().Lookup(modelType)
	for ; ok && t != nil; t = t.Super() {
		if v, found := f.viewTypes[t.Name()]; found {
			return v, true
		}
	}
	return "", false
}

// CreateModel creates a model of typeName under opts.Parent
func (f *Factory) CreateModel(typeName string, opts Options) (*repository.Element, error) {
	model, field, err := f.buildModel(typeName, opts)
	if err != nil {
		return nil, err
	}
	if _, err := f.engine.AddModel(opts.Parent, field, model); err != nil {
		return nil, err
	}
	f.logger.Info(context.Background(), "Model created", log.Fields{"type": typeName, "id": model.ID(), "name": model.Name()})
	return model, nil
}

// CreateDiagram creates a diagram of typeName owned by parent
func (f *Factory) CreateDiagram(typeName string, parent *repository.Element, name string) (*repository.Element, error) {
	if parent == nil {
		return nil, errs.InvalidArgument("a parent is required")
	}
	if !f.repo.Registry().IsKindOf(typeName, repository.TypeDiagram) {
		return nil, errs.InvalidArgument("%s is not a diagram type", typeName)
	}
	diagram, err := f.repo.NewElement(typeName)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = nextName(parent, repository.FieldOwnedElements, typeName)
	}
	if err := diagram.Set(repository.FieldName, name); err != nil {
		return nil, err
	}
	if _, err := f.engine.AddDiagram(parent, diagram); err != nil {
		return nil, err
	}
	f.logger.Info(context.Background(), "Diagram created", log.Fields{"type": typeName, "id": diagram.ID(), "name": name})
	return diagram, nil
}

// CreateModelAndView creates a model and a view of it on diagram in one transaction.
// For relationships, tail and head are the views of the source and target; bounds is ignored.
func (f *Factory) CreateModelAndView(typeName string, opts Options, diagram *repository.Element, bounds Rect, tail, head *repository.Element) (*repository.Element, error) {
	if diagram == nil || !diagram.IsKindOf(repository.TypeDiagram) {
		return nil, errs.InvalidArgument("a diagram is required")
	}
	relationship := f.repo.Registry().IsKindOf(typeName, repository.TypeRelationship)
	if relationship {
		if tail == nil || head == nil {
			return nil, errs.InvalidArgument("%s needs a tail and a head view", typeName)
		}
		opts.Source = tail.Ref(repository.FieldModel)
		opts.Target = head.Ref(repository.FieldModel)
	}

	model, field, err := f.buildModel(typeName, opts)
	if err != nil {
		return nil, err
	}
	view, err := f.buildView(model, bounds, tail, head)
	if err != nil {
		return nil, err
	}
	if _, err := f.engine.AddModelAndView(opts.Parent, field, model, diagram, view); err != nil {
		return nil, err
	}
	f.logger.Info(context.Background(), "Model and view created", log.Fields{"type": typeName, "model": model.ID(), "view": view.ID()})
	return view, nil
}

// CreateView adds a view of an existing model to diagram
func (f *Factory) CreateView(model, diagram *repository.Element, bounds Rect, tail, head *repository.Element) (*repository.Element, error) {
	if model == nil || !model.Attached() || !model.IsModel() {
		return nil, errs.InvalidArgument("a model in the repository is required")
	}
	view, err := f.buildView(model, bounds, tail, head)
	if err != nil {
		return nil, err
	}
	if _, err := f.engine.AddViews(diagram, []*repository.Element{view}); err != nil {
		return nil, err
	}
	return view, nil
}

func (f *Factory) buildModel(typeName string, opts Options) (*repository.Element, string, error) {
	if opts.Parent == nil {
		return nil, "", errs.InvalidArgument("a parent is required")
	}
	t, ok := f.repo.Registry().Lookup(typeName)
	if !ok || t.Category() != repository.CategoryModel {
		return nil, "", errs.InvalidArgument("%q is not a model type", typeName)
	}
	model, err := f.repo.NewElement(typeName)
	if err != nil {
		return nil, "", err
	}

	field := opts.Field
	if field == "" {
		field = defaultField(f.repo.Registry(), opts.Parent, typeName)
	}
	name := opts.Name
	if name == "" {
		name = nextName(opts.Parent, field, typeName)
	}
	if err := model.Set(repository.FieldName, name); err != nil {
		return nil, "", err
	}
	if t.IsKindOf(repository.TypeRelationship) {
		if opts.Source == nil || opts.Target == nil {
			return nil, "", errs.InvalidArgument("%s needs a source and a target", typeName)
		}
		if err := model.Set("source", opts.Source); err != nil {
			return nil, "", err
		}
		if err := model.Set("target", opts.Target); err != nil {
			return nil, "", err
		}
	}
	if opts.Init != nil {
		if err := opts.Init(model); err != nil {
			return nil, "", err
		}
	}
	return model, field, nil
}

func (f *Factory) buildView(model *repository.Element, bounds Rect, tail, head *repository.Element) (*repository.Element, error) {
	viewType, ok := f.ViewTypeOf(model.TypeName())
	if !ok {
		return nil, errs.InvalidArgument("%s has no view type", model.TypeName())
	}
	view, err := f.repo.NewElement(viewType)
	if err != nil {
		return nil, err
	}
	if err := view.Set(repository.FieldModel, model); err != nil {
		return nil, err
	}

	if view.IsKindOf(repository.TypeEdgeView) {
		if tail == nil || head == nil {
			return nil, errs.InvalidArgument("%s needs a tail and a head view", viewType)
		}
		points := engine.Points{center(tail), center(head)}
		for field, value := range map[string]any{
			repository.FieldTail:   tail,
			repository.FieldHead:   head,
			repository.FieldPoints: points.String(),
		} {
			if err := view.Set(field, value); err != nil {
				return nil, err
			}
		}
		return view, nil
	}

	if view.IsKindOf(repository.TypeNodeView) {
		values := map[string]float64{"left": bounds.Left, "top": bounds.Top}
		if bounds.Width > 0 {
			values["width"] = bounds.Width
		}
		if bounds.Height > 0 {
			values["height"] = bounds.Height
		}
		for field, value := range values {
			if err := view.Set(field, value); err != nil {
				return nil, err
			}
		}
	}
	return view, nil
}

func center(node *repository.Element) engine.Point {
	if !node.IsKindOf(repository.TypeNodeView) {
		return engine.Point{}
	}
	return engine.Point{
		X: node.FloatValue("left") + node.FloatValue("width")/2,
		Y: node.FloatValue("top") + node.FloatValue("height")/2,
	}
}

func defaultField(reg *repository.Registry, parent *repository.Element, typeName string) string {
	for _, fld := range parent.Type().Fields() {
		if fld.Kind != repository.FieldOwned || fld.Name == repository.FieldOwnedElements {
			continue
		}
		if reg.CanContain(parent.TypeName(), fld.Name, typeName) {
			return fld.Name
		}
	}
	return repository.FieldOwnedElements
}

// nextName returns prefix followed by the smallest number no sibling uses
func nextName(parent *repository.Element, field, prefix string) string {
	used := make(map[string]bool)
	for _, sibling := range parent.Children(field) {
		used[sibling.Name()] = true
	}
	for i := 1; ; i++ {
		name := prefix + strconv.Itoa(i)
		if !used[name] {
			return name
		}
	}
}
