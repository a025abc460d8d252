package calendar

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gcalfeed/internal/auth"
	"github.com/teemow/gcalfeed/internal/codec"
	"github.com/teemow/gcalfeed/internal/transport"
)

func newTestClient(t *testing.T, f *fakeFeed) *Client {
	t.Helper()
	tr, err := transport.New(auth.TokenAuth{Token: "session-token"}, transport.Config{})
	require.NoError(t, err)
	return NewClient(tr, Config{CalendarListURL: f.ListURL()})
}

func saveEvent(t *testing.T, c *Client, cal *Calendar, title string, start time.Time, d time.Duration) *Event {
	t.Helper()
	ev := cal.NewEvent()
	ev.Title = title
	ev.Start = start
	ev.End = start.Add(d)
	require.NoError(t, c.Save(context.Background(), ev))
	return ev
}

func titles(events []*Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Title)
	}
	return out
}

func TestEventLifecycle(t *testing.T) {
	f := newFakeFeed(t)
	c := newTestClient(t, f)
	ctx := context.Background()
	cal := c.Calendar(f.FeedURL())

	ev := cal.NewEvent()
	assert.Equal(t, StatusNew, ev.Status())
	assert.Empty(t, ev.EditURL())
	assert.Equal(t, EventConfirmed, ev.EventStatus)
	assert.Equal(t, VisibilityDefault, ev.Visibility)

	ev.Title = "Design review"
	ev.Description = "Quarterly"
	ev.Location = "Room 4"
	ev.Start = time.Date(2006, 9, 21, 1, 0, 0, 0, time.UTC)
	ev.End = time.Date(2006, 9, 21, 3, 0, 0, 0, time.UTC)

	// Delete before save is rejected locally.
	err := c.Delete(ctx, ev)
	require.ErrorIs(t, err, ErrEventDeleteFailed)
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, "not saved", respErr.Reason)

	require.NoError(t, c.Save(ctx, ev))
	assert.Equal(t, StatusPersisted, ev.Status())
	assert.Equal(t, f.FeedURL()+"/1/1", ev.EditURL())
	assert.Equal(t, "Design review", ev.Title)
	assert.Equal(t, "Room 4", ev.Location)
	assert.True(t, ev.Start.Equal(time.Date(2006, 9, 21, 1, 0, 0, 0, time.UTC)))

	ev.Title = "Design review (moved)"
	require.NoError(t, c.Save(ctx, ev))
	assert.Equal(t, StatusPersisted, ev.Status())
	assert.Equal(t, f.FeedURL()+"/1/2", ev.EditURL())
	assert.Equal(t, "Design review (moved)", ev.Title)

	got, err := c.Get(ctx, f.FeedURL()+"/1")
	require.NoError(t, err)
	assert.Equal(t, "Design review (moved)", got.Title)
	assert.Equal(t, "Quarterly", got.Description)
	assert.Equal(t, StatusPersisted, got.Status())

	require.NoError(t, c.Delete(ctx, ev))
	assert.Equal(t, StatusDeleted, ev.Status())

	err = c.Save(ctx, ev)
	require.ErrorIs(t, err, ErrEventDeleteFailed)
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, "already deleted", respErr.Reason)

	requests := f.requestCount()
	err = c.Delete(ctx, ev)
	require.ErrorIs(t, err, ErrEventDeleteFailed)
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, "not saved", respErr.Reason)
	assert.Equal(t, requests, f.requestCount(), "no request for a deleted event")

	events, err := cal.Events(ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSave_PreservesUnmappedElements(t *testing.T) {
	f := newFakeFeed(t)
	c := newTestClient(t, f)
	ctx := context.Background()

	ev := saveEvent(t, c, c.Calendar(f.FeedURL()), "Standup", time.Date(2006, 9, 21, 9, 0, 0, 0, time.UTC), 15*time.Minute)

	doc, err := ev.Document()
	require.NoError(t, err)
	assert.Contains(t, string(doc), "<id>"+f.FeedURL()+"/1</id>")
	assert.Contains(t, string(doc), "gd:transparency")

	ev.Description = "daily"
	require.NoError(t, c.Save(ctx, ev))
	assert.Equal(t, "daily", ev.Description)
}

func TestAllDayEvent(t *testing.T) {
	f := newFakeFeed(t)
	c := newTestClient(t, f)
	ctx := context.Background()

	ev := c.Calendar(f.FeedURL()).NewEvent()
	ev.Title = "Holiday"
	ev.Start = time.Date(2006, 9, 22, 0, 0, 0, 0, time.UTC)
	ev.End = time.Date(2006, 9, 24, 0, 0, 0, 0, time.UTC)
	ev.AllDay = true

	body, err := ev.Document()
	require.NoError(t, err)
	assert.Contains(t, string(body), `startTime="2006-09-22Z"`)
	assert.Contains(t, string(body), `endTime="2006-09-24Z"`)

	require.NoError(t, c.Save(ctx, ev))

	events, err := c.Query(ctx, f.FeedURL(), Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].AllDay)
	assert.Equal(t, "2006-09-22", events[0].Start.Format("2006-01-02"))
	assert.Equal(t, "2006-09-24", events[0].End.Format("2006-01-02"))
}

func TestAllDayEvent_WithoutEndSurvivesReload(t *testing.T) {
	c := newTestClient(t, newFakeFeed(t))

	ev := c.NewEvent(nil)
	ev.Title = "Holiday"
	ev.Start = time.Date(2006, 9, 22, 0, 0, 0, 0, time.UTC)
	ev.AllDay = true

	body, err := ev.Document()
	require.NoError(t, err)
	doc, err := codec.ParseDocument(body)
	require.NoError(t, err)

	reloaded := c.NewEvent(nil)
	require.NoError(t, reloaded.load(doc))
	assert.True(t, reloaded.AllDay)
	assert.True(t, reloaded.Start.Equal(ev.Start))
	assert.True(t, reloaded.End.IsZero())
	assert.Equal(t, StatusPersisted, reloaded.Status())
}

func TestQuery_Ordering(t *testing.T) {
	f := newFakeFeed(t)
	c := newTestClient(t, f)
	ctx := context.Background()
	cal := c.Calendar(f.FeedURL())

	base := time.Date(2006, 9, 21, 0, 0, 0, 0, time.UTC)
	saveEvent(t, c, cal, "second", base.Add(2*time.Hour), time.Hour)
	saveEvent(t, c, cal, "first", base.Add(1*time.Hour), time.Hour)
	saveEvent(t, c, cal, "third", base.Add(3*time.Hour), time.Hour)

	events, err := cal.Events(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first", "third"}, titles(events))

	events, err = cal.Events(ctx, Query{OrderBy: OrderByStartTime})
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, titles(events))

	events, err = cal.Events(ctx, Query{OrderBy: OrderByStartTime, SortOrder: SortAscending})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, titles(events))

	events, err = cal.Events(ctx, Query{OrderBy: OrderByStartTime, SortOrder: SortAscending, MaxResults: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, titles(events))

	for _, ev := range events {
		assert.Equal(t, StatusPersisted, ev.Status())
		assert.Equal(t, f.FeedURL(), ev.FeedURL())
		assert.NotEmpty(t, ev.EditURL())
	}
}

func TestQuery_RangeFiltering(t *testing.T) {
	f := newFakeFeed(t)
	c := newTestClient(t, f)
	ctx := context.Background()
	cal := c.Calendar(f.FeedURL())

	day := time.Date(2006, 9, 21, 0, 0, 0, 0, time.UTC)
	saveEvent(t, c, cal, "yesterday", day.AddDate(0, 0, -1), time.Hour)
	saveEvent(t, c, cal, "today", day.Add(10*time.Hour), time.Hour)
	saveEvent(t, c, cal, "tomorrow", day.AddDate(0, 0, 1), time.Hour)

	events, err := cal.Events(ctx, Query{StartMin: day, StartMax: day.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"today"}, titles(events))

	events, err = cal.Events(ctx, Query{Q: "tom"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tomorrow"}, titles(events))
}

func TestCalendarInfo(t *testing.T) {
	f := newFakeFeed(t)
	c := newTestClient(t, f)
	ctx := context.Background()
	cal := c.Calendar(f.FeedURL())

	saveEvent(t, c, cal, "now", time.Now().Add(-time.Hour), 2*time.Hour)
	before := f.requestCount()

	info, err := cal.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, &CalendarInfo{
		Updated:    "2006-09-20T12:00:00.000Z",
		Title:      "Work",
		Subtitle:   "Team calendar",
		OwnerName:  "Alice",
		OwnerEmail: "alice@example.com",
		Timezone:   "Asia/Tokyo",
		Where:      "Tokyo",
	}, info)

	require.Equal(t, before+1, f.requestCount())
	q := f.requests[before].URL.Query()
	startMin, err := time.Parse(time.RFC3339, q.Get("start-min"))
	require.NoError(t, err)
	startMax, err := time.Parse(time.RFC3339, q.Get("start-max"))
	require.NoError(t, err)
	assert.True(t, startMin.After(startMax), "metadata query must use an empty window")

	// Cached.
	_, err = cal.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, f.requestCount())
}

func TestListCalendars(t *testing.T) {
	f := newFakeFeed(t)
	c := newTestClient(t, f)

	calendars, err := c.ListCalendars(context.Background())
	require.NoError(t, err)
	require.Len(t, calendars, 2)

	for _, feed := range []string{
		"http://www.google.com/calendar/feeds/default/private/full",
		"http://www.google.com/calendar/feeds/work%40group.calendar.google.com/private/full",
	} {
		cal, ok := calendars[feed]
		require.True(t, ok, "missing %s", feed)
		assert.Equal(t, feed, cal.FeedURL())
	}
}

func TestSessionAffinity(t *testing.T) {
	f := newFakeFeed(t)
	f.requireSession = true
	c := newTestClient(t, f)
	ctx := context.Background()
	cal := c.Calendar(f.FeedURL())

	saveEvent(t, c, cal, "after redirect", time.Date(2006, 9, 21, 1, 0, 0, 0, time.UTC), time.Hour)
	assert.Equal(t, 2, f.requestCount(), "one redirect and one retry")

	events, err := cal.Events(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"after redirect"}, titles(events))
	assert.Equal(t, 3, f.requestCount(), "session is reused without another redirect")

	last := f.requests[2]
	assert.Equal(t, fakeSession, last.URL.Query().Get("gsessionid"))
	cookie, err := last.Cookie(fakeCookie)
	require.NoError(t, err)
	assert.Equal(t, fakeCookieV, cookie.Value)
}

func TestGet_NotFound(t *testing.T) {
	f := newFakeFeed(t)
	c := newTestClient(t, f)

	_, err := c.Get(context.Background(), f.FeedURL()+"/99")
	require.ErrorIs(t, err, ErrEventGetFailed)

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusNotFound, respErr.StatusCode)
	assert.Contains(t, respErr.Body, "Entry not found")
}

func TestUpdate_Conflict(t *testing.T) {
	f := newFakeFeed(t)
	c := newTestClient(t, f)
	ctx := context.Background()

	ev := saveEvent(t, c, c.Calendar(f.FeedURL()), "original", time.Date(2006, 9, 21, 1, 0, 0, 0, time.UTC), time.Hour)

	stale, err := c.Get(ctx, f.FeedURL()+"/1")
	require.NoError(t, err)

	ev.Title = "first writer"
	require.NoError(t, c.Save(ctx, ev))

	stale.Title = "second writer"
	err = c.Save(ctx, stale)
	require.ErrorIs(t, err, ErrEventUpdateFailed)
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusConflict, respErr.StatusCode)
	assert.Equal(t, StatusPersisted, stale.Status())
}

// stubExecutor returns canned results and records calls.
type stubExecutor struct {
	results []*transport.Result
	err     error
	calls   []stubCall
}

type stubCall struct {
	op     transport.Operation
	url    string
	params url.Values
	body   string
}

func (s *stubExecutor) Execute(_ context.Context, op transport.Operation, rawURL string, params url.Values, body []byte) (*transport.Result, error) {
	s.calls = append(s.calls, stubCall{op: op, url: rawURL, params: params, body: string(body)})
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) == 0 {
		return &transport.Result{StatusCode: http.StatusInternalServerError}, nil
	}
	res := s.results[0]
	s.results = s.results[1:]
	return res, nil
}

const stubEntry = `<?xml version='1.0' encoding='UTF-8'?>
<entry xmlns='http://www.w3.org/2005/Atom' xmlns:gd='http://schemas.google.com/g/2005'>
  <title type='text'>stub</title>
  <link rel='edit' href='http://example.com/feeds/default/private/full/e1/v1'/>
  <gd:when startTime='2006-09-21T01:00:00.000Z' endTime='2006-09-21T03:00:00.000Z'/>
  <gd:eventStatus value='http://schemas.google.com/g/2005#event.tentative'/>
</entry>`

func TestSave_InsertRequiresCreated(t *testing.T) {
	stub := &stubExecutor{results: []*transport.Result{{StatusCode: http.StatusOK, Body: []byte(stubEntry)}}}
	c := NewClient(stub, Config{})

	ev := c.NewEvent(nil)
	err := c.Save(context.Background(), ev)
	require.ErrorIs(t, err, ErrEventInsertFailed)
	assert.Equal(t, StatusNew, ev.Status())

	require.Len(t, stub.calls, 1)
	assert.Equal(t, transport.OpInsert, stub.calls[0].op)
	assert.Equal(t, DefaultCalendarFeed, stub.calls[0].url)
	assert.Contains(t, stub.calls[0].body, "http://schemas.google.com/g/2005#event.confirmed")
	assert.Contains(t, stub.calls[0].body, "http://schemas.google.com/g/2005#event.default")
}

func TestSave_InsertDecodesResponse(t *testing.T) {
	stub := &stubExecutor{results: []*transport.Result{{StatusCode: http.StatusCreated, Body: []byte(stubEntry)}}}
	c := NewClient(stub, Config{})

	ev := c.NewEvent(c.Calendar("http://example.com/feeds/default/private/full"))
	ev.Title = "local"
	require.NoError(t, c.Save(context.Background(), ev))

	assert.Equal(t, "stub", ev.Title)
	assert.Equal(t, EventTentative, ev.EventStatus)
	assert.Equal(t, VisibilityDefault, ev.Visibility, "absent element leaves field untouched")
	assert.Equal(t, "http://example.com/feeds/default/private/full/e1/v1", ev.EditURL())
	assert.Equal(t, "http://example.com/feeds/default/private/full", ev.FeedURL())
}

func TestSave_UpdateRequiresOK(t *testing.T) {
	stub := &stubExecutor{results: []*transport.Result{
		{StatusCode: http.StatusCreated, Body: []byte(stubEntry)},
		{StatusCode: http.StatusCreated, Body: []byte(stubEntry)},
	}}
	c := NewClient(stub, Config{})

	ev := c.NewEvent(nil)
	require.NoError(t, c.Save(context.Background(), ev))

	err := c.Save(context.Background(), ev)
	require.ErrorIs(t, err, ErrEventUpdateFailed)

	require.Len(t, stub.calls, 2)
	assert.Equal(t, transport.OpUpdate, stub.calls[1].op)
	assert.Equal(t, "http://example.com/feeds/default/private/full/e1/v1", stub.calls[1].url)
}

func TestDelete_RequiresOK(t *testing.T) {
	stub := &stubExecutor{results: []*transport.Result{
		{StatusCode: http.StatusCreated, Body: []byte(stubEntry)},
		{StatusCode: http.StatusForbidden, Body: []byte("read only")},
	}}
	c := NewClient(stub, Config{})

	ev := c.NewEvent(nil)
	require.NoError(t, c.Save(context.Background(), ev))

	err := c.Delete(context.Background(), ev)
	require.ErrorIs(t, err, ErrEventDeleteFailed)
	assert.Contains(t, err.Error(), "read only")
	assert.Equal(t, StatusPersisted, ev.Status())
	assert.Equal(t, transport.OpDelete, stub.calls[1].op)
	assert.NotEmpty(t, stub.calls[1].body)
}

func TestQuery_Failures(t *testing.T) {
	stub := &stubExecutor{results: []*transport.Result{{StatusCode: http.StatusNotFound, Body: []byte("Not found")}}}
	c := NewClient(stub, Config{})

	_, err := c.Query(context.Background(), "http://example.com/feeds/bogus/private/full", Query{Q: "x"})
	require.ErrorIs(t, err, ErrInvalidCalendarURL)
	assert.Equal(t, "x", stub.calls[0].params.Get("q"))

	_, err = c.Calendar("http://example.com/feeds/bogus/private/full").Info(context.Background())
	require.ErrorIs(t, err, ErrInvalidCalendarURL)

	stub.err = errors.New("connection refused")
	_, err = c.Query(context.Background(), DefaultCalendarFeed, Query{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connection refused"))
}

func TestListCalendars_Failure(t *testing.T) {
	stub := &stubExecutor{results: []*transport.Result{{StatusCode: http.StatusUnauthorized}}}
	c := NewClient(stub, Config{})

	_, err := c.ListCalendars(context.Background())
	require.ErrorIs(t, err, ErrCalendarListFailed)
	assert.Equal(t, DefaultCalendarListURL, stub.calls[0].url)

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusUnauthorized, respErr.StatusCode)
}

func TestClient_CalendarDefaults(t *testing.T) {
	c := NewClient(&stubExecutor{}, Config{})
	assert.Equal(t, DefaultCalendarFeed, c.Calendar("").FeedURL())
	assert.Equal(t, DefaultCalendarFeed, c.NewEvent(nil).FeedURL())
}
