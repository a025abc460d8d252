package calendar

import (
	"context"
	"time"

	"github.com/teemow/gcalfeed/internal/codec"
)

// DefaultCalendarFeed is the editable feed of the user's primary calendar.
const DefaultCalendarFeed = "http://www.google.com/calendar/feeds/default/private/full"

// CalendarInfo holds read-only calendar metadata.
type CalendarInfo struct {
	Updated    string
	Title      string
	Subtitle   string
	OwnerName  string
	OwnerEmail string
	Timezone   string
	Where      string
}

// Calendar is identified by its feed URL. Metadata is fetched on first use.
type Calendar struct {
	client *Client
	feed   string
	info   *CalendarInfo
}

// FeedURL returns the calendar's feed URL.
func (c *Calendar) FeedURL() string {
	return c.feed
}

// Info returns the calendar metadata, querying the feed on the first call.
// The query asks for an empty time window so no entries are returned.
func (c *Calendar) Info(ctx context.Context) (*CalendarInfo, error) {
	if c.info != nil {
		return c.info, nil
	}

	now := c.client.now()
	doc, err := c.client.queryFeed(ctx, c.feed, Query{
		StartMin: now,
		StartMax: now.Add(-time.Second),
	})
	if err != nil {
		return nil, err
	}

	info := &CalendarInfo{}
	if err := codec.Decode(doc.Root(), calendarMappings, info); err != nil {
		return nil, err
	}
	c.info = info
	return info, nil
}

// Events queries the calendar feed.
func (c *Calendar) Events(ctx context.Context, q Query) ([]*Event, error) {
	return c.client.Query(ctx, c.feed, q)
}

// NewEvent returns a New event that will be inserted into this calendar.
func (c *Calendar) NewEvent() *Event {
	return c.client.NewEvent(c)
}

func textField(get func(*CalendarInfo) *string) (func(*CalendarInfo) (string, error), func(*CalendarInfo, string) error) {
	return func(ci *CalendarInfo) (string, error) { return *get(ci), nil },
		func(ci *CalendarInfo, v string) error { *get(ci) = v; return nil }
}

func calendarMapping(field, path, attr string, get func(*CalendarInfo) *string) codec.FieldMapping[*CalendarInfo] {
	enc, dec := textField(get)
	return codec.FieldMapping[*CalendarInfo]{Field: field, Path: path, Attr: attr, Encode: enc, Decode: dec}
}

var calendarMappings = []codec.FieldMapping[*CalendarInfo]{
	calendarMapping("updated", "updated", "", func(ci *CalendarInfo) *string { return &ci.Updated }),
	calendarMapping("title", "title", "", func(ci *CalendarInfo) *string { return &ci.Title }),
	calendarMapping("subtitle", "subtitle", "", func(ci *CalendarInfo) *string { return &ci.Subtitle }),
	calendarMapping("name", "author/name", "", func(ci *CalendarInfo) *string { return &ci.OwnerName }),
	calendarMapping("email", "author/email", "", func(ci *CalendarInfo) *string { return &ci.OwnerEmail }),
	calendarMapping("timezone", "gCal:timezone", "value", func(ci *CalendarInfo) *string { return &ci.Timezone }),
	calendarMapping("where", "gd:where", "valueString", func(ci *CalendarInfo) *string { return &ci.Where }),
}
