// Package calendar reads and writes calendar events over the Atom feed
// protocol.
//
// A Client sits on top of an Executor (normally a *transport.Transport) and
// uses the codec package to turn feed documents into Event and CalendarInfo
// values and back.
//
// Events move through a fixed lifecycle:
//
//	New ──Save──▶ Persisted ──Save──▶ Persisted
//	                  │
//	                Delete
//	                  ▼
//	               Deleted
//
// Saving a New event inserts it into its calendar feed; saving a Persisted
// event updates it at its edit URL. A Deleted event can be neither saved nor
// deleted again.
//
// Example usage:
//
//	tr, err := transport.New(auth.TokenAuth{Token: token}, transport.Config{})
//	if err != nil {
//		return err
//	}
//	client := calendar.NewClient(tr, calendar.Config{})
//
//	cal := client.Calendar(calendar.DefaultCalendarFeed)
//	ev := cal.NewEvent()
//	ev.Title = "Design review"
//	ev.Start = time.Date(2006, 9, 21, 1, 0, 0, 0, time.UTC)
//	ev.End = ev.Start.Add(2 * time.Hour)
//	if err := client.Save(ctx, ev); err != nil {
//		return err
//	}
package calendar
