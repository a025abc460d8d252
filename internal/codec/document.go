package codec

import (
	"fmt"

	"github.com/beevik/etree"
)

// XML namespaces of the calendar feeds.
const (
	NamespaceAtom = "http://www.w3.org/2005/Atom"
	NamespaceGD   = "http://schemas.google.com/g/2005"
	NamespaceGCal = "http://schemas.google.com/gCal/2005"
)

const skeleton = `<?xml version='1.0' encoding='UTF-8'?>
<entry xmlns='http://www.w3.org/2005/Atom' xmlns:gd='http://schemas.google.com/g/2005'>
  <category scheme='http://schemas.google.com/g/2005#kind' term='http://schemas.google.com/g/2005#event'></category>
  <title type='text'></title>
  <content type='text'></content>
  <gd:transparency value='http://schemas.google.com/g/2005#event.opaque'></gd:transparency>
  <gd:eventStatus value='http://schemas.google.com/g/2005#event.confirmed'></gd:eventStatus>
</entry>
`

// NewSkeleton returns a fresh event entry document with default category,
// empty title and content, opaque transparency and confirmed status.
func NewSkeleton() *etree.Document {
	doc, err := ParseDocument([]byte(skeleton))
	if err != nil {
		panic(fmt.Sprintf("codec: invalid skeleton: %v", err))
	}
	return doc
}

// ParseDocument parses an XML document that must have a root element.
func ParseDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("failed to parse document: no root element")
	}
	return doc, nil
}

// Serialize renders doc as bytes.
func Serialize(doc *etree.Document) ([]byte, error) {
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	return data, nil
}

// EditLink returns the href of the first link with rel="edit", or "".
func EditLink(root *etree.Element) string {
	return linkHref(root, "edit")
}

// AlternateLinks returns the rel="alternate" hrefs of every entry in a feed,
// in document order.
func AlternateLinks(feed *etree.Element) []string {
	if feed == nil {
		return nil
	}
	var hrefs []string
	for _, entry := range feed.SelectElements("entry") {
		if href := linkHref(entry, "alternate"); href != "" {
			hrefs = append(hrefs, href)
		}
	}
	return hrefs
}

// FeedEntries splits a feed into standalone entry documents. Each entry
// re-declares the Atom, gd and gCal namespaces so that it parses on its own.
func FeedEntries(feed *etree.Element) []*etree.Document {
	if feed == nil {
		return nil
	}
	entries := feed.SelectElements("entry")
	docs := make([]*etree.Document, 0, len(entries))
	for _, entry := range entries {
		el := entry.Copy()
		el.CreateAttr("xmlns", NamespaceAtom)
		el.CreateAttr("xmlns:gd", NamespaceGD)
		el.CreateAttr("xmlns:gCal", NamespaceGCal)

		doc := etree.NewDocument()
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
		doc.SetRoot(el)
		docs = append(docs, doc)
	}
	return docs
}

func linkHref(root *etree.Element, rel string) string {
	if root == nil {
		return ""
	}
	for _, link := range root.SelectElements("link") {
		if link.SelectAttrValue("rel", "") == rel {
			return link.SelectAttrValue("href", "")
		}
	}
	return ""
}
