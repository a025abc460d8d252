package codec

import (
	"fmt"
	"net/url"
	"regexp"
	"time"
)

// KindBase is the base URI of enumerated gd values such as
// "http://schemas.google.com/g/2005#event.confirmed".
const KindBase = "http://schemas.google.com/g/2005"

const dateLayout = "2006-01-02"

var datePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// TimeToText renders t for a gd:when attribute. All-day values keep only the
// date in t's location and carry a "Z" suffix. The zero time renders as "".
func TimeToText(t time.Time, allDay bool) string {
	if t.IsZero() {
		return ""
	}
	if allDay {
		return t.Format(dateLayout) + "Z"
	}
	return t.Format(time.RFC3339)
}

// TextToTime parses a gd:when attribute. RFC 3339 values are not all-day.
// Values that fail RFC 3339 parsing but start with a yyyy-mm-dd date are
// all-day and resolve to midnight UTC of that date. Empty text yields the
// zero time.
func TextToTime(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if datePrefix.MatchString(s) {
		t, err := time.Parse(dateLayout, s[:len(dateLayout)])
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid time %q", s)
}

// FragmentToURI expands a token such as "event.confirmed" to a full kind URI.
// An empty token yields the bare base URI.
func FragmentToURI(token string) string {
	if token == "" {
		return KindBase
	}
	return KindBase + "#" + token
}

// URIToFragment returns the fragment of uri, or "" if it has none.
func URIToFragment(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid kind uri %q: %w", uri, err)
	}
	return u.Fragment, nil
}
