package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/beevik/etree"

	"github.com/teemow/gcalfeed/internal/codec"
	"github.com/teemow/gcalfeed/internal/instrumentation"
	"github.com/teemow/gcalfeed/internal/logging"
	"github.com/teemow/gcalfeed/internal/transport"
)

// DefaultCalendarListURL lists every calendar of the authenticated user.
const DefaultCalendarListURL = "http://www.google.com/calendar/feeds/default/allcalendars/full"

// Executor performs feed requests. *transport.Transport satisfies it.
type Executor interface {
	Execute(ctx context.Context, op transport.Operation, rawURL string, params url.Values, body []byte) (*transport.Result, error)
}

// Config holds optional Client settings.
type Config struct {
	// CalendarListURL defaults to DefaultCalendarListURL.
	CalendarListURL string
	Logger          *slog.Logger
	Metrics         *instrumentation.Metrics
}

// Client performs calendar and event operations. It inherits the
// concurrency constraints of its Executor.
type Client struct {
	exec    Executor
	listURL string
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// NewClient creates a Client on top of exec.
func NewClient(exec Executor, cfg Config) *Client {
	listURL := cfg.CalendarListURL
	if listURL == "" {
		listURL = DefaultCalendarListURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		exec:    exec,
		listURL: listURL,
		logger:  logger,
		metrics: cfg.Metrics,
		now:     time.Now,
	}
}

// Calendar returns the calendar identified by feed. An empty feed selects
// DefaultCalendarFeed. No request is made.
func (c *Client) Calendar(feed string) *Calendar {
	if feed == "" {
		feed = DefaultCalendarFeed
	}
	return &Calendar{client: c, feed: feed}
}

// ListCalendars returns the user's calendars keyed by feed URL.
func (c *Client) ListCalendars(ctx context.Context) (map[string]*Calendar, error) {
	res, err := c.exec.Execute(ctx, transport.OpQuery, c.listURL, nil, nil)
	if err != nil {
		c.metrics.RecordEventOperation(ctx, "list", instrumentation.StatusError)
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		c.metrics.RecordEventOperation(ctx, "list", instrumentation.StatusError)
		return nil, statusError(ErrCalendarListFailed, res.StatusCode, res.Body)
	}

	doc, err := codec.ParseDocument(res.Body)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	calendars := make(map[string]*Calendar)
	for _, feed := range codec.AlternateLinks(doc.Root()) {
		calendars[feed] = c.Calendar(feed)
	}

	c.metrics.RecordEventOperation(ctx, "list", instrumentation.StatusSuccess)
	c.logger.Debug("listed calendars", slog.Int("count", len(calendars)))
	return calendars, nil
}

// Query returns the events of feed matching q, in the order the service
// returned them.
func (c *Client) Query(ctx context.Context, feed string, q Query) ([]*Event, error) {
	doc, err := c.queryFeed(ctx, feed, q)
	if err != nil {
		c.metrics.RecordEventOperation(ctx, "query", instrumentation.StatusError)
		return nil, err
	}

	entries := codec.FeedEntries(doc.Root())
	events := make([]*Event, 0, len(entries))
	for _, entry := range entries {
		ev := &Event{feedURL: feed}
		if err := ev.load(entry); err != nil {
			c.metrics.RecordEventOperation(ctx, "query", instrumentation.StatusError)
			return nil, fmt.Errorf("query %s: %w", logging.StripQuery(feed), err)
		}
		events = append(events, ev)
	}

	c.metrics.RecordEventOperation(ctx, "query", instrumentation.StatusSuccess)
	c.logger.Debug("queried events", logging.Feed(feed), slog.Int("count", len(events)))
	return events, nil
}

// Get fetches a single event by its entry URL.
func (c *Client) Get(ctx context.Context, entryURL string) (*Event, error) {
	res, err := c.exec.Execute(ctx, transport.OpQuery, entryURL, nil, nil)
	if err != nil {
		c.metrics.RecordEventOperation(ctx, "get", instrumentation.StatusError)
		return nil, fmt.Errorf("get event: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		c.metrics.RecordEventOperation(ctx, "get", instrumentation.StatusError)
		return nil, statusError(ErrEventGetFailed, res.StatusCode, res.Body)
	}

	ev := &Event{}
	if err := c.loadBody(ev, res.Body); err != nil {
		c.metrics.RecordEventOperation(ctx, "get", instrumentation.StatusError)
		return nil, fmt.Errorf("get event: %w", err)
	}

	c.metrics.RecordEventOperation(ctx, "get", instrumentation.StatusSuccess)
	return ev, nil
}

// NewEvent returns a New event belonging to cal, or to the default calendar
// when cal is nil. Status defaults to confirmed and visibility to the
// calendar default.
func (c *Client) NewEvent(cal *Calendar) *Event {
	feed := DefaultCalendarFeed
	if cal != nil {
		feed = cal.feed
	}
	return &Event{
		EventStatus: EventConfirmed,
		Visibility:  VisibilityDefault,
		status:      StatusNew,
		feedURL:     feed,
	}
}

// Save inserts a New event or updates a Persisted one, then reloads the event
// from the service's response.
func (c *Client) Save(ctx context.Context, ev *Event) error {
	switch ev.status {
	case StatusNew:
		return c.insert(ctx, ev)
	case StatusPersisted:
		return c.update(ctx, ev)
	case StatusDeleted:
		return lifecycleError(ErrEventDeleteFailed, "already deleted")
	default:
		return fmt.Errorf("invalid event status %s", ev.status)
	}
}

// Delete removes a Persisted event and marks it Deleted.
func (c *Client) Delete(ctx context.Context, ev *Event) error {
	if ev.status != StatusPersisted {
		return lifecycleError(ErrEventDeleteFailed, "not saved")
	}

	body, err := ev.Document()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	res, err := c.exec.Execute(ctx, transport.OpDelete, ev.editURL, nil, body)
	if err != nil {
		c.metrics.RecordEventOperation(ctx, "delete", instrumentation.StatusError)
		return fmt.Errorf("delete event: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		c.metrics.RecordEventOperation(ctx, "delete", instrumentation.StatusError)
		return statusError(ErrEventDeleteFailed, res.StatusCode, res.Body)
	}

	ev.markDeleted()
	c.metrics.RecordEventOperation(ctx, "delete", instrumentation.StatusSuccess)
	c.logger.Info("event deleted", logging.Feed(ev.editURL))
	return nil
}

func (c *Client) insert(ctx context.Context, ev *Event) error {
	feed := ev.feedURL
	if feed == "" {
		feed = DefaultCalendarFeed
	}

	body, err := ev.Document()
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	res, err := c.exec.Execute(ctx, transport.OpInsert, feed, nil, body)
	if err != nil {
		c.metrics.RecordEventOperation(ctx, "insert", instrumentation.StatusError)
		return fmt.Errorf("insert event: %w", err)
	}
	if res.StatusCode != http.StatusCreated {
		c.metrics.RecordEventOperation(ctx, "insert", instrumentation.StatusError)
		return statusError(ErrEventInsertFailed, res.StatusCode, res.Body)
	}

	if err := c.loadBody(ev, res.Body); err != nil {
		c.metrics.RecordEventOperation(ctx, "insert", instrumentation.StatusError)
		return fmt.Errorf("insert event: %w", err)
	}
	ev.feedURL = feed

	c.metrics.RecordEventOperation(ctx, "insert", instrumentation.StatusSuccess)
	c.logger.Info("event inserted", logging.Feed(feed))
	return nil
}

func (c *Client) update(ctx context.Context, ev *Event) error {
	body, err := ev.Document()
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	res, err := c.exec.Execute(ctx, transport.OpUpdate, ev.editURL, nil, body)
	if err != nil {
		c.metrics.RecordEventOperation(ctx, "update", instrumentation.StatusError)
		return fmt.Errorf("update event: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		c.metrics.RecordEventOperation(ctx, "update", instrumentation.StatusError)
		return statusError(ErrEventUpdateFailed, res.StatusCode, res.Body)
	}

	if err := c.loadBody(ev, res.Body); err != nil {
		c.metrics.RecordEventOperation(ctx, "update", instrumentation.StatusError)
		return fmt.Errorf("update event: %w", err)
	}

	c.metrics.RecordEventOperation(ctx, "update", instrumentation.StatusSuccess)
	c.logger.Info("event updated", logging.Feed(ev.editURL))
	return nil
}

func (c *Client) loadBody(ev *Event, body []byte) error {
	doc, err := codec.ParseDocument(body)
	if err != nil {
		return err
	}
	return ev.load(doc)
}

func (c *Client) queryFeed(ctx context.Context, feed string, q Query) (*etree.Document, error) {
	res, err := c.exec.Execute(ctx, transport.OpQuery, feed, q.Values(), nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", logging.StripQuery(feed), err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, statusError(ErrInvalidCalendarURL, res.StatusCode, res.Body)
	}
	doc, err := codec.ParseDocument(res.Body)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", logging.StripQuery(feed), err)
	}
	return doc, nil
}
