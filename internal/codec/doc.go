// Package codec maps entity fields to and from Atom entry documents.
//
// A mapping table is an ordered list of FieldMapping values. Each names an
// element path relative to the document root (for example "gd:when" or
// "author/name") and optionally an attribute; without an attribute the element
// text is used. Decode copies document values into an entity, leaving fields
// whose element or attribute is absent untouched. Encode writes entity values
// into a document, creating missing elements along the path.
//
// Paths use the namespace prefixes of the document ("gd", "gCal"); an
// unprefixed segment matches an element in any namespace.
//
// All-day times are written as "yyyy-mm-ddZ". That is the only date-only form
// the calendar service stores without shifting by the calendar's timezone.
package codec
