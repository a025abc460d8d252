package calendar

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/teemow/gcalfeed/internal/codec"
)

// Status is the lifecycle state of an Event.
type Status int

const (
	// StatusNew events exist only locally and have no edit URL.
	StatusNew Status = iota
	// StatusPersisted events were loaded from or saved to the service.
	StatusPersisted
	// StatusDeleted events were removed from the service.
	StatusDeleted
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusPersisted:
		return "persisted"
	case StatusDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Event status and visibility tokens, without the kind base URI.
const (
	EventConfirmed = "event.confirmed"
	EventTentative = "event.tentative"
	EventCanceled  = "event.canceled"

	VisibilityDefault      = "event.default"
	VisibilityPublic       = "event.public"
	VisibilityPrivate      = "event.private"
	VisibilityConfidential = "event.confidential"
)

// Event is a single calendar entry. Recurring events are not supported.
type Event struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool

	// EventStatus and Visibility hold fragment tokens such as "event.confirmed".
	EventStatus string
	Visibility  string

	status  Status
	feedURL string
	editURL string
	doc     *etree.Document
}

// Status returns the lifecycle state.
func (e *Event) Status() Status {
	return e.status
}

// EditURL returns the URL updates and deletes are sent to. It is empty for
// New events.
func (e *Event) EditURL() string {
	return e.editURL
}

// FeedURL returns the calendar feed the event was created in or queried from.
func (e *Event) FeedURL() string {
	return e.feedURL
}

// Document renders the event as an entry document. New events start from the
// default skeleton; persisted events are written over the last document
// received from the service so unmapped elements survive.
func (e *Event) Document() ([]byte, error) {
	doc, err := e.encode()
	if err != nil {
		return nil, err
	}
	return codec.Serialize(doc)
}

func (e *Event) encode() (*etree.Document, error) {
	var doc *etree.Document
	if e.status == StatusNew || e.doc == nil {
		doc = codec.NewSkeleton()
	} else {
		doc = e.doc.Copy()
	}
	if err := codec.Encode(doc, eventMappings, e); err != nil {
		return nil, err
	}
	return doc, nil
}

// load replaces the event's fields and remembered document with doc and
// marks the event persisted.
func (e *Event) load(doc *etree.Document) error {
	root := doc.Root()
	if err := codec.Decode(root, eventMappings, e); err != nil {
		return err
	}
	e.editURL = codec.EditLink(root)
	e.doc = doc
	e.markPersisted()
	return nil
}

func (e *Event) markPersisted() {
	e.status = StatusPersisted
}

func (e *Event) markDeleted() {
	e.status = StatusDeleted
}

var eventMappings = []codec.FieldMapping[*Event]{
	{
		Field:  "title",
		Path:   "title",
		Encode: func(e *Event) (string, error) { return e.Title, nil },
		Decode: func(e *Event, v string) error { e.Title = v; return nil },
	},
	{
		Field:  "description",
		Path:   "content",
		Encode: func(e *Event) (string, error) { return e.Description, nil },
		Decode: func(e *Event, v string) error { e.Description = v; return nil },
	},
	{
		Field:  "location",
		Path:   "gd:where",
		Attr:   "valueString",
		Encode: func(e *Event) (string, error) { return e.Location, nil },
		Decode: func(e *Event, v string) error { e.Location = v; return nil },
	},
	{
		Field:  "start",
		Path:   "gd:when",
		Attr:   "startTime",
		Encode: func(e *Event) (string, error) { return codec.TimeToText(e.Start, e.AllDay), nil },
		Decode: func(e *Event, v string) error {
			if v == "" {
				e.Start = time.Time{}
				return nil
			}
			t, allDay, err := codec.TextToTime(v)
			if err != nil {
				return err
			}
			e.Start, e.AllDay = t, allDay
			return nil
		},
	},
	{
		Field:  "end",
		Path:   "gd:when",
		Attr:   "endTime",
		Encode: func(e *Event) (string, error) { return codec.TimeToText(e.End, e.AllDay), nil },
		Decode: func(e *Event, v string) error {
			if v == "" {
				e.End = time.Time{}
				return nil
			}
			t, allDay, err := codec.TextToTime(v)
			if err != nil {
				return err
			}
			e.End, e.AllDay = t, allDay
			return nil
		},
	},
	{
		Field:  "eventStatus",
		Path:   "gd:eventStatus",
		Attr:   "value",
		Encode: func(e *Event) (string, error) { return codec.FragmentToURI(e.EventStatus), nil },
		Decode: func(e *Event, v string) error {
			token, err := codec.URIToFragment(v)
			if err != nil {
				return err
			}
			e.EventStatus = token
			return nil
		},
	},
	{
		Field:  "visibility",
		Path:   "gd:visibility",
		Attr:   "value",
		Encode: func(e *Event) (string, error) { return codec.FragmentToURI(e.Visibility), nil },
		Decode: func(e *Event, v string) error {
			token, err := codec.URIToFragment(v)
			if err != nil {
				return err
			}
			e.Visibility = token
			return nil
		},
	},
}
