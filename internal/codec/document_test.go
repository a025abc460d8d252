package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version='1.0' encoding='UTF-8'?>
<feed xmlns='http://www.w3.org/2005/Atom' xmlns:gd='http://schemas.google.com/g/2005' xmlns:gCal='http://schemas.google.com/gCal/2005'>
  <title>Work</title>
  <gCal:timezone value='Asia/Tokyo'/>
  <entry>
    <title>First</title>
    <link rel='alternate' type='text/html' href='http://www.google.com/calendar/event?eid=1'/>
    <link rel='edit' type='application/atom+xml' href='http://www.google.com/calendar/feeds/default/private/full/1/100'/>
    <gd:when startTime='2006-09-18Z' endTime='2006-09-19Z'/>
  </entry>
  <entry>
    <title>Second</title>
    <link rel='edit' type='application/atom+xml' href='http://www.google.com/calendar/feeds/default/private/full/2/200'/>
  </entry>
</feed>`

func TestNewSkeleton(t *testing.T) {
	doc := NewSkeleton()
	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "entry", root.Tag)

	term, ok := Lookup(root, "category", "term")
	assert.True(t, ok)
	assert.Equal(t, "http://schemas.google.com/g/2005#event", term)

	typ, _ := Lookup(root, "title", "type")
	assert.Equal(t, "text", typ)

	transparency, _ := Lookup(root, "gd:transparency", "value")
	assert.Equal(t, "http://schemas.google.com/g/2005#event.opaque", transparency)

	status, _ := Lookup(root, "gd:eventStatus", "value")
	assert.Equal(t, "http://schemas.google.com/g/2005#event.confirmed", status)

	assert.Empty(t, EditLink(root))

	// Each call returns an independent document.
	root.FindElement("title").SetText("changed")
	assert.Empty(t, NewSkeleton().Root().FindElement("title").Text())
}

func TestParseDocument_Errors(t *testing.T) {
	_, err := ParseDocument([]byte("<entry attr=></entry>"))
	assert.Error(t, err)

	_, err = ParseDocument([]byte(""))
	assert.Error(t, err)
}

func TestFeedEntries(t *testing.T) {
	feed, err := ParseDocument([]byte(sampleFeed))
	require.NoError(t, err)

	entries := FeedEntries(feed.Root())
	require.Len(t, entries, 2)

	first := entries[0].Root()
	assert.Equal(t, NamespaceAtom, first.SelectAttrValue("xmlns", ""))
	assert.Equal(t, NamespaceGD, first.SelectAttrValue("xmlns:gd", ""))
	assert.Equal(t, NamespaceGCal, first.SelectAttrValue("xmlns:gCal", ""))

	title, _ := Lookup(first, "title", "")
	assert.Equal(t, "First", title)
	assert.Equal(t, "http://www.google.com/calendar/feeds/default/private/full/1/100", EditLink(first))

	// Standalone documents survive a serialize/parse cycle.
	data, err := Serialize(entries[1])
	require.NoError(t, err)
	reparsed, err := ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, "http://www.google.com/calendar/feeds/default/private/full/2/200", EditLink(reparsed.Root()))

	// The source feed is not modified.
	assert.Len(t, feed.Root().SelectElements("entry"), 2)
}

func TestAlternateLinks(t *testing.T) {
	feed, err := ParseDocument([]byte(sampleFeed))
	require.NoError(t, err)

	assert.Equal(t, []string{"http://www.google.com/calendar/event?eid=1"}, AlternateLinks(feed.Root()))
	assert.Nil(t, AlternateLinks(nil))
}

func TestFeedEntries_Nil(t *testing.T) {
	assert.Nil(t, FeedEntries(nil))
}
