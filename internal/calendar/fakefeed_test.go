package calendar

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"

	"github.com/teemow/gcalfeed/internal/codec"
)

const (
	feedPath     = "/calendar/feeds/default/private/full"
	listPath     = "/calendar/feeds/default/allcalendars/full"
	fakeCookie   = "S"
	fakeCookieV  = "xyz"
	fakeSession  = "sess-1"
	dateOnlyZone = "Z"
)

type fakeEntry struct {
	id      int
	version int
	el      *etree.Element
}

// fakeFeed is an in-memory calendar feed service.
type fakeFeed struct {
	*httptest.Server

	mu             sync.Mutex
	nextID         int
	entries        []*fakeEntry
	requireSession bool
	requests       []*http.Request
}

func newFakeFeed(t *testing.T) *fakeFeed {
	t.Helper()
	f := &fakeFeed{nextID: 1}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeFeed) FeedURL() string {
	return f.URL + feedPath
}

func (f *fakeFeed) ListURL() string {
	return f.URL + listPath
}

func (f *fakeFeed) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r)

	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if f.requireSession {
		c, err := r.Cookie(fakeCookie)
		if r.URL.Query().Get("gsessionid") != fakeSession || err != nil || c.Value != fakeCookieV {
			q := r.URL.Query()
			q.Set("gsessionid", fakeSession)
			http.SetCookie(w, &http.Cookie{Name: fakeCookie, Value: fakeCookieV})
			w.Header().Set("Location", f.URL+r.URL.Path+"?"+q.Encode())
			w.WriteHeader(http.StatusFound)
			return
		}
	}

	switch {
	case r.URL.Path == listPath && r.Method == http.MethodGet:
		f.writeCalendarList(w)
	case r.URL.Path == feedPath && r.Method == http.MethodGet:
		f.writeFeed(w, r)
	case r.URL.Path == feedPath && r.Method == http.MethodPost:
		f.insert(w, r)
	case strings.HasPrefix(r.URL.Path, feedPath+"/"):
		f.entry(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeFeed) writeCalendarList(w http.ResponseWriter) {
	doc, feed := newFeedDocument()
	feed.CreateElement("title").SetText("User's calendar list")
	for _, id := range []string{"default", "work%40group.calendar.google.com"} {
		entry := feed.CreateElement("entry")
		entry.CreateElement("title").SetText(id)
		link := entry.CreateElement("link")
		link.CreateAttr("rel", "alternate")
		link.CreateAttr("type", "application/atom+xml")
		link.CreateAttr("href", "http://www.google.com/calendar/feeds/"+id+"/private/full")
		self := entry.CreateElement("link")
		self.CreateAttr("rel", "self")
		self.CreateAttr("href", "http://www.google.com/calendar/feeds/default/allcalendars/full/"+id)
	}
	writeDocument(w, http.StatusOK, doc)
}

func (f *fakeFeed) writeFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	startMin, _ := parseQueryTime(q.Get("start-min"))
	startMax, _ := parseQueryTime(q.Get("start-max"))

	doc, feed := newFeedDocument()
	feed.CreateElement("updated").SetText("2006-09-20T12:00:00.000Z")
	feed.CreateElement("title").SetText("Work")
	feed.CreateElement("subtitle").SetText("Team calendar")
	author := feed.CreateElement("author")
	author.CreateElement("name").SetText("Alice")
	author.CreateElement("email").SetText("alice@example.com")
	feed.CreateElement("gCal:timezone").CreateAttr("value", "Asia/Tokyo")
	feed.CreateElement("gd:where").CreateAttr("valueString", "Tokyo")

	var selected []*fakeEntry
	emptyWindow := !startMin.IsZero() && !startMax.IsZero() && startMin.After(startMax)
	for _, e := range f.entries {
		if emptyWindow {
			break
		}
		start, end := entryTimes(e.el)
		if !startMin.IsZero() && !end.After(startMin) {
			continue
		}
		if !startMax.IsZero() && !start.Before(startMax) {
			continue
		}
		if needle := q.Get("q"); needle != "" && !strings.Contains(e.el.FindElement("title").Text(), needle) {
			continue
		}
		selected = append(selected, e)
	}

	if q.Get("orderby") == "starttime" {
		descending := q.Get("sortorder") != "ascending"
		sort.SliceStable(selected, func(i, j int) bool {
			si, _ := entryTimes(selected[i].el)
			sj, _ := entryTimes(selected[j].el)
			if descending {
				return si.After(sj)
			}
			return si.Before(sj)
		})
	}

	if n, err := strconv.Atoi(q.Get("max-results")); err == nil && n < len(selected) {
		selected = selected[:n]
	}

	for _, e := range selected {
		feed.AddChild(e.el.Copy())
	}
	writeDocument(w, http.StatusOK, doc)
}

func (f *fakeFeed) insert(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/atom+xml" {
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return
	}
	el, ok := f.readEntry(w, r)
	if !ok {
		return
	}
	e := &fakeEntry{id: f.nextID, version: 1, el: el}
	f.nextID++
	f.stamp(e)
	f.entries = append(f.entries, e)
	writeEntry(w, http.StatusCreated, e.el)
}

func (f *fakeFeed) entry(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, feedPath+"/"), "/")
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		http.NotFound(w, r)
		return
	}
	idx := -1
	for i, e := range f.entries {
		if e.id == id {
			idx = i
		}
	}
	if idx < 0 {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}
	e := f.entries[idx]

	if r.Method == http.MethodGet {
		writeEntry(w, http.StatusOK, e.el)
		return
	}

	if len(parts) < 2 || parts[1] != strconv.Itoa(e.version) {
		http.Error(w, "Version conflict", http.StatusConflict)
		return
	}

	switch r.Header.Get("X-HTTP-Method-Override") {
	case http.MethodPut:
		el, ok := f.readEntry(w, r)
		if !ok {
			return
		}
		e.el = el
		e.version++
		f.stamp(e)
		writeEntry(w, http.StatusOK, e.el)
	case http.MethodDelete:
		f.entries = append(f.entries[:idx], f.entries[idx+1:]...)
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *fakeFeed) readEntry(w http.ResponseWriter, r *http.Request) (*etree.Element, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	doc, err := codec.ParseDocument(body)
	if err != nil || doc.Root().Tag != "entry" {
		http.Error(w, "[Line 1, Column 1] invalid entry", http.StatusBadRequest)
		return nil, false
	}
	return doc.Root().Copy(), true
}

// stamp assigns id and links and normalizes all-day times the way the
// service stores them.
func (f *fakeFeed) stamp(e *fakeEntry) {
	for _, tag := range []string{"id", "link"} {
		for _, old := range e.el.SelectElements(tag) {
			e.el.RemoveChild(old)
		}
	}
	entryURL := fmt.Sprintf("%s%s/%d", f.URL, feedPath, e.id)
	e.el.CreateElement("id").SetText(entryURL)

	self := e.el.CreateElement("link")
	self.CreateAttr("rel", "self")
	self.CreateAttr("href", entryURL)

	edit := e.el.CreateElement("link")
	edit.CreateAttr("rel", "edit")
	edit.CreateAttr("href", fmt.Sprintf("%s/%d", entryURL, e.version))

	if when := e.el.FindElement("gd:when"); when != nil {
		for _, key := range []string{"startTime", "endTime"} {
			if a := when.SelectAttr(key); a != nil && strings.HasSuffix(a.Value, dateOnlyZone) && len(a.Value) == len("2006-01-02Z") {
				a.Value = strings.TrimSuffix(a.Value, dateOnlyZone)
			}
		}
	}
}

func (f *fakeFeed) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func entryTimes(el *etree.Element) (time.Time, time.Time) {
	when := el.FindElement("gd:when")
	if when == nil {
		return time.Time{}, time.Time{}
	}
	start, _, _ := codec.TextToTime(when.SelectAttrValue("startTime", ""))
	end, _, _ := codec.TextToTime(when.SelectAttrValue("endTime", ""))
	return start, end
}

func parseQueryTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func newFeedDocument() (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	feed := doc.CreateElement("feed")
	feed.CreateAttr("xmlns", codec.NamespaceAtom)
	feed.CreateAttr("xmlns:gd", codec.NamespaceGD)
	feed.CreateAttr("xmlns:gCal", codec.NamespaceGCal)
	return doc, feed
}

func writeEntry(w http.ResponseWriter, status int, el *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := el.Copy()
	root.CreateAttr("xmlns", codec.NamespaceAtom)
	root.CreateAttr("xmlns:gd", codec.NamespaceGD)
	doc.SetRoot(root)
	writeDocument(w, status, doc)
}

func writeDocument(w http.ResponseWriter, status int, doc *etree.Document) {
	data, err := doc.WriteToBytes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml; charset=UTF-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
