package repository

import "fmt"

// Built-in type names
const (
	TypeModel            = "Model"
	TypeProject          = "Project"
	TypePackage          = "Package"
	TypeAttribute        = "Attribute"
	TypeClass            = "Class"
	TypeConstraint       = "Constraint"
	TypeRelationship     = "Relationship"
	TypeDependency       = "Dependency"
	TypeAssociation      = "Association"
	TypeGeneralization   = "Generalization"
	TypeView             = "View"
	TypeNodeView         = "NodeView"
	TypeClassView        = "ClassView"
	TypePackageView      = "PackageView"
	TypeNoteView         = "NoteView"
	TypeEdgeView         = "EdgeView"
	TypeRelationshipView = "RelationshipView"
	TypeLabelView        = "LabelView"
	TypeDiagram          = "Diagram"
	TypeClassDiagram     = "ClassDiagram"
)

// Line styles of an edge view
const (
	LineStyleRectilinear = iota
	LineStyleOblique
	LineStyleRoundRect
	LineStyleCurve
)

// Well-known field names
const (
	FieldName          = "name"
	FieldOwnedElements = "ownedElements"
	FieldOwnedViews    = "ownedViews"
	FieldSubViews      = "subViews"
	FieldModel         = "model"
	FieldHead          = "head"
	FieldTail          = "tail"
	FieldPoints        = "points"
)

func styleFields(fill bool) []Field {
	fields := []Field{
		{Name: "lineColor", Kind: FieldAttr, AttrType: AttrString, Default: "#000000"},
		{Name: "fontColor", Kind: FieldAttr, AttrType: AttrString, Default: "#000000"},
		{Name: "fontFace", Kind: FieldAttr, AttrType: AttrString, Default: "Arial"},
		{Name: "fontSize", Kind: FieldAttr, AttrType: AttrFloat, Default: 13.0},
	}
	if fill {
		fields = append(fields,
			Field{Name: "fillColor", Kind: FieldAttr, AttrType: AttrString, Default: "#ffffff"},
			Field{Name: "showShadow", Kind: FieldAttr, AttrType: AttrBool, Default: true},
		)
	}
	return fields
}

func builtinTypes() []TypeSpec {
	nodeFields := append(styleFields(true),
		Field{Name: "left", Kind: FieldAttr, AttrType: AttrFloat, Default: 0.0},
		Field{Name: "top", Kind: FieldAttr, AttrType: AttrFloat, Default: 0.0},
		Field{Name: "width", Kind: FieldAttr, AttrType: AttrFloat, Default: 100.0},
		Field{Name: "height", Kind: FieldAttr, AttrType: AttrFloat, Default: 40.0},
		Field{Name: "autoResize", Kind: FieldAttr, AttrType: AttrBool, Default: false},
	)
	edgeFields := append(styleFields(false),
		Field{Name: FieldHead, Kind: FieldRef, Target: TypeView, Required: true, OnDelete: OnDeleteCascade},
		Field{Name: FieldTail, Kind: FieldRef, Target: TypeView, Required: true, OnDelete: OnDeleteCascade},
		Field{Name: FieldPoints, Kind: FieldAttr, AttrType: AttrString, Default: ""},
		Field{Name: "lineStyle", Kind: FieldAttr, AttrType: AttrInt, Default: LineStyleRectilinear},
	)
	labelFields := append(styleFields(false)[1:],
		Field{Name: "text", Kind: FieldAttr, AttrType: AttrString, Default: ""},
		Field{Name: "alpha", Kind: FieldAttr, AttrType: AttrFloat, Default: 0.0},
		Field{Name: "distance", Kind: FieldAttr, AttrType: AttrFloat, Default: 0.0},
	)

	return []TypeSpec{
		{Name: TypeModel, Category: CategoryModel, Abstract: true, Fields: []Field{
			{Name: FieldName, Kind: FieldAttr, AttrType: AttrString, Default: ""},
			{Name: "documentation", Kind: FieldAttr, AttrType: AttrString, Default: ""},
			{Name: FieldOwnedElements, Kind: FieldOwned, Allowed: []string{TypeModel, TypeDiagram}, Excluded: []string{TypeAttribute}},
		}},
		{Name: TypeProject, Super: TypeModel, NotDeletable: true, NotCopyable: true, Fields: []Field{
			{Name: "author", Kind: FieldAttr, AttrType: AttrString, Default: ""},
			{Name: "company", Kind: FieldAttr, AttrType: AttrString, Default: ""},
			{Name: "version", Kind: FieldAttr, AttrType: AttrString, Default: ""},
		}},
		{Name: TypePackage, Super: TypeModel},
		{Name: TypeAttribute, Super: TypeModel, Fields: []Field{
			{Name: "visibility", Kind: FieldAttr, AttrType: AttrString, Default: "public"},
			{Name: "type", Kind: FieldAttr, AttrType: AttrString, Default: ""},
			{Name: "typeRef", Kind: FieldRef, Target: TypeModel, OnDelete: OnDeleteClear},
		}},
		{Name: TypeClass, Super: TypeModel, Fields: []Field{
			{Name: "isAbstract", Kind: FieldAttr, AttrType: AttrBool, Default: false},
			{Name: "attributes", Kind: FieldOwned, Target: TypeAttribute},
		}},
		{Name: TypeConstraint, Super: TypeModel, Fields: []Field{
			{Name: "specification", Kind: FieldAttr, AttrType: AttrString, Default: ""},
			{Name: "constrainedElements", Kind: FieldRefs, Target: TypeModel, OnDelete: OnDeleteClear},
		}},
		{Name: TypeRelationship, Super: TypeModel, Abstract: true, Fields: []Field{
			{Name: "source", Kind: FieldRef, Target: TypeModel, Required: true, OnDelete: OnDeleteCascade},
			{Name: "target", Kind: FieldRef, Target: TypeModel, Required: true, OnDelete: OnDeleteCascade},
		}},
		{Name: TypeDependency, Super: TypeRelationship},
		{Name: TypeAssociation, Super: TypeRelationship},
		{Name: TypeGeneralization, Super: TypeRelationship},

		{Name: TypeView, Category: CategoryView, Abstract: true, Fields: []Field{
			{Name: FieldModel, Kind: FieldRef, Target: TypeModel, OnDelete: OnDeleteCascade},
			{Name: "visible", Kind: FieldAttr, AttrType: AttrBool, Default: true},
			{Name: FieldSubViews, Kind: FieldOwned, Target: TypeView},
		}},
		{Name: TypeNodeView, Super: TypeView, Abstract: true, Fields: nodeFields},
		{Name: TypeClassView, Super: TypeNodeView},
		{Name: TypePackageView, Super: TypeNodeView},
		{Name: TypeNoteView, Super: TypeNodeView, Fields: []Field{
			{Name: "text", Kind: FieldAttr, AttrType: AttrString, Default: ""},
		}},
		{Name: TypeEdgeView, Super: TypeView, Abstract: true, Fields: edgeFields},
		{Name: TypeRelationshipView, Super: TypeEdgeView},
		{Name: TypeLabelView, Super: TypeView, Fields: labelFields},
		{Name: TypeDiagram, Super: TypeView, Abstract: true, Fields: []Field{
			{Name: FieldName, Kind: FieldAttr, AttrType: AttrString, Default: ""},
			{Name: "documentation", Kind: FieldAttr, AttrType: AttrString, Default: ""},
			{Name: "defaultDiagram", Kind: FieldAttr, AttrType: AttrBool, Default: false},
			{Name: FieldOwnedViews, Kind: FieldOwned, Target: TypeView},
		}},
		{Name: TypeClassDiagram, Super: TypeDiagram},
	}
}

// DefaultRegistry returns a registry populated with the built-in metamodel
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, spec := range builtinTypes() {
		if err := r.Register(spec); err != nil {
			panic(fmt.Sprintf("builtin metamodel: %v", err))
		}
	}
	return r
}
