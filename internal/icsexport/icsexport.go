// Package icsexport renders calendar feed events as an iCalendar document.
package icsexport

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/teemow/gcalfeed/internal/calendar"
)

// ProductID identifies gcalfeed as the producer of exported calendars.
const ProductID = "-//gcalfeed//calendar feed export//EN"

// Write serializes events as a VCALENDAR with one VEVENT each. stamp is used
// as DTSTAMP. Events without an edit URL get a positional UID.
func Write(w io.Writer, events []*calendar.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for i, ev := range events {
		vev := cal.AddEvent(uid(ev, i, stamp))
		vev.SetDtStampTime(stamp.UTC())
		vev.SetSummary(ev.Title)
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vev.SetLocation(ev.Location)
		}

		if ev.AllDay {
			vev.SetAllDayStartAt(ev.Start)
			if !ev.End.IsZero() {
				vev.SetAllDayEndAt(ev.End)
			}
		} else {
			vev.SetStartAt(ev.Start.UTC())
			if !ev.End.IsZero() {
				vev.SetEndAt(ev.End.UTC())
			}
		}

		if status, ok := eventStatus(ev.EventStatus); ok {
			vev.SetStatus(status)
		}
		if class, ok := classification(ev.Visibility); ok {
			vev.SetClass(class)
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func uid(ev *calendar.Event, i int, stamp time.Time) string {
	if u := ev.EditURL(); u != "" {
		return u
	}
	return fmt.Sprintf("gcalfeed-%s-%d", stamp.UTC().Format("20060102T150405Z"), i)
}

func eventStatus(token string) (ical.ObjectStatus, bool) {
	switch token {
	case calendar.EventConfirmed:
		return ical.ObjectStatusConfirmed, true
	case calendar.EventTentative:
		return ical.ObjectStatusTentative, true
	case calendar.EventCanceled:
		return ical.ObjectStatusCancelled, true
	default:
		return "", false
	}
}

func classification(token string) (ical.Classification, bool) {
	switch token {
	case calendar.VisibilityPublic:
		return ical.ClassificationPublic, true
	case calendar.VisibilityPrivate:
		return ical.ClassificationPrivate, true
	case calendar.VisibilityConfidential:
		return ical.ClassificationConfidential, true
	default:
		return "", false
	}
}
