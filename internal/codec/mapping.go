package codec

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// FieldMapping binds one entity field to a location in an entry document.
// Encode reads the field and renders it as text; Decode parses text and
// stores it in the field.
type FieldMapping[T any] struct {
	Field  string
	Path   string
	Attr   string
	Encode func(T) (string, error)
	Decode func(T, string) error
}

// Decode copies values from the element tree rooted at root into entity,
// in table order.
func Decode[T any](root *etree.Element, mappings []FieldMapping[T], entity T) error {
	if root == nil {
		return fmt.Errorf("decode: document has no root element")
	}
	for _, m := range mappings {
		el := root.FindElement(m.Path)
		if el == nil {
			continue
		}

		var text string
		if m.Attr != "" {
			attr := el.SelectAttr(m.Attr)
			if attr == nil {
				continue
			}
			text = attr.Value
		} else {
			text = el.Text()
		}

		if err := m.Decode(entity, text); err != nil {
			return fmt.Errorf("decode %s: %w", m.Field, err)
		}
	}
	return nil
}

// Encode writes entity values into doc, in table order. Elements missing
// from doc are created under the root.
func Encode[T any](doc *etree.Document, mappings []FieldMapping[T], entity T) error {
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("encode: document has no root element")
	}
	for _, m := range mappings {
		value, err := m.Encode(entity)
		if err != nil {
			return fmt.Errorf("encode %s: %w", m.Field, err)
		}

		el := ensurePath(root, m.Path)
		if m.Attr != "" {
			el.CreateAttr(m.Attr, value)
		} else {
			el.SetText(value)
		}
	}
	return nil
}

// Lookup reads a single value without an entity: the attribute or text at
// path, and whether it was present.
func Lookup(root *etree.Element, path, attr string) (string, bool) {
	if root == nil {
		return "", false
	}
	el := root.FindElement(path)
	if el == nil {
		return "", false
	}
	if attr == "" {
		return el.Text(), true
	}
	a := el.SelectAttr(attr)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

func ensurePath(root *etree.Element, path string) *etree.Element {
	if el := root.FindElement(path); el != nil {
		return el
	}
	cur := root
	for _, seg := range strings.Split(path, "/") {
		next := cur.FindElement(seg)
		if next == nil {
			next = cur.CreateElement(seg)
		}
		cur = next
	}
	return cur
}
