package calendar

import (
	"net/url"
	"strconv"
	"time"
)

// Sort orders accepted by Query.SortOrder.
const (
	SortAscending  = "ascending"
	SortDescending = "descending"
)

// OrderByStartTime orders events by start time.
const OrderByStartTime = "starttime"

// Query holds feed query conditions. Zero values are omitted; without any
// condition the service returns its default page of recent entries.
type Query struct {
	Q            string
	MaxResults   int
	StartIndex   int
	OrderBy      string
	SortOrder    string
	StartMin     time.Time
	StartMax     time.Time
	PublishedMin time.Time
	PublishedMax time.Time
	UpdatedMin   time.Time
	UpdatedMax   time.Time
	Author       string

	// Extra holds conditions without a dedicated field. They override
	// fields of the same name.
	Extra url.Values
}

// Values renders the query as URL parameters. Times are sent in UTC.
func (q Query) Values() url.Values {
	v := url.Values{}

	setString(v, "q", q.Q)
	setInt(v, "max-results", q.MaxResults)
	setInt(v, "start-index", q.StartIndex)
	setString(v, "orderby", q.OrderBy)
	setString(v, "sortorder", q.SortOrder)
	setTime(v, "start-min", q.StartMin)
	setTime(v, "start-max", q.StartMax)
	setTime(v, "published-min", q.PublishedMin)
	setTime(v, "published-max", q.PublishedMax)
	setTime(v, "updated-min", q.UpdatedMin)
	setTime(v, "updated-max", q.UpdatedMax)
	setString(v, "author", q.Author)

	for k, vals := range q.Extra {
		v[k] = append([]string(nil), vals...)
	}
	return v
}

// FormatTime renders t as a query timestamp.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func setString(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setInt(v url.Values, key string, value int) {
	if value > 0 {
		v.Set(key, strconv.Itoa(value))
	}
}

func setTime(v url.Values, key string, value time.Time) {
	if !value.IsZero() {
		v.Set(key, FormatTime(value))
	}
}
