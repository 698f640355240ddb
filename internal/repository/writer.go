package repository

import (
	"encoding/json"

	"umlforge/local-app/internal/errs"
)

// Document keys reserved by the serialization format
const (
	keyType   = "_type"
	keyID     = "_id"
	keyParent = "_parent"
	keyRef    = "$ref"
)

// WriteObject serializes elem and its owned subtree.
// Cross references are written as {"$ref": id}, owned children inline.
func WriteObject(elem *Element) ([]byte, error) {
	if elem == nil {
		return nil, errs.InvalidArgument("element is nil")
	}
	data, err := json.MarshalIndent(encodeElement(elem), "", "\t")
	if err != nil {
		return nil, errs.Wrap(errs.KindSerialization, err, "failed to encode element")
	}
	return data, nil
}

// WriteObject serializes elem and its owned subtree
func (r *Repository) WriteObject(elem *Element) ([]byte, error) {
	return WriteObject(elem)
}

// WriteObjects serializes several subtrees into one array document
func WriteObjects(elems []*Element) ([]byte, error) {
	docs := make([]any, 0, len(elems))
	for _, e := range elems {
		if e == nil {
			return nil, errs.InvalidArgument("element is nil")
		}
		docs = append(docs, encodeElement(e))
	}
	data, err := json.MarshalIndent(docs, "", "\t")
	if err != nil {
		return nil, errs.Wrap(errs.KindSerialization, err, "failed to encode elements")
	}
	return data, nil
}

func encodeElement(e *Element) map[string]any {
	doc := map[string]any{
		keyType: e.typ.name,
		keyID:   e.id,
	}
	if e.parent != nil {
		doc[keyParent] = refDoc(e.parent)
	}

	for _, f := range e.typ.fields {
		switch f.Kind {
		case FieldAttr:
			doc[f.Name] = e.values[f.Name]
		case FieldRef:
			if t := e.Ref(f.Name); t != nil {
				doc[f.Name] = refDoc(t)
			}
		case FieldRefs:
			if list := e.list(f.Name); len(list) > 0 {
				refs := make([]any, len(list))
				for i, t := range list {
					refs[i] = refDoc(t)
				}
				doc[f.Name] = refs
			}
		case FieldOwned:
			if list := e.list(f.Name); len(list) > 0 {
				children := make([]any, len(list))
				for i, child := range list {
					children[i] = encodeElement(child)
				}
				doc[f.Name] = children
			}
		}
	}
	return doc
}

func refDoc(e *Element) map[string]any {
	return map[string]any{keyRef: e.id}
}
