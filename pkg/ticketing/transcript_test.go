package ticketing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeHistory serves fixed pages in reverse-chronological batches, the way the
// gateway returns them.
type fakeHistory struct {
	pages [][]HistoryMessage
	calls int
	err   error
	errOn int
}

func (f *fakeHistory) FetchPage(_ context.Context, _, _ string) ([]HistoryMessage, error) {
	f.calls++
	if f.err != nil && f.calls == f.errOn {
		return nil, f.err
	}
	if f.calls > len(f.pages) {
		return nil, nil
	}
	return f.pages[f.calls-1], nil
}

func msgAt(id, author, content string, at time.Time) HistoryMessage {
	return HistoryMessage{
		ID:         id,
		AuthorID:   "u-" + author,
		AuthorName: author,
		SentAt:     at,
		Content:    content,
	}
}

func testMeta() TranscriptMeta {
	return TranscriptMeta{
		TicketNumber:  1001,
		CategoryLabel: "Member edits",
		ChannelName:   "ticket-1001",
		CreatedAt:     time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC),
	}
}

func TestGenerator_EmptyChannel(t *testing.T) {
	g := NewGenerator()

	tr, err := g.Generate(context.Background(), &fakeHistory{}, "chan-a", testMeta())
	require.NoError(t, err)
	require.Equal(t, 0, tr.MessageCount)

	html := string(tr.HTML)
	require.Contains(t, html, "Ticket #1001")
	require.Contains(t, html, "<strong>Total Messages:</strong> 0")
	require.NotContains(t, html, `class="message"`)
}

func TestGenerator_OrdersAcrossPages(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	// Two pages, each newest first; the oldest messages arrive last.
	h := &fakeHistory{pages: [][]HistoryMessage{
		{
			msgAt("4", "staff", "fourth", base.Add(3*time.Minute)),
			msgAt("3", "alice", "third", base.Add(2*time.Minute)),
		},
		{
			msgAt("2", "staff", "second", base.Add(time.Minute)),
			msgAt("1", "alice", "first", base),
		},
	}}

	g := NewGenerator()
	tr, err := g.Generate(context.Background(), h, "chan-a", testMeta())
	require.NoError(t, err)
	require.Equal(t, 4, tr.MessageCount)

	html := string(tr.HTML)
	for _, want := range []string{"first", "second", "third", "fourth"} {
		require.Contains(t, html, want)
	}

	// Strictly ascending by send time.
	require.Less(t, strings.Index(html, "first"), strings.Index(html, "second"))
	require.Less(t, strings.Index(html, "second"), strings.Index(html, "third"))
	require.Less(t, strings.Index(html, "third"), strings.Index(html, "fourth"))
}

func TestGenerator_EscapesUserContent(t *testing.T) {
	h := &fakeHistory{pages: [][]HistoryMessage{
		{msgAt("1", "<script>alert(1)</script>", `<img src=x onerror="pwn()">`, time.Now())},
	}}

	g := NewGenerator()
	tr, err := g.Generate(context.Background(), h, "chan-a", testMeta())
	require.NoError(t, err)

	html := string(tr.HTML)
	require.NotContains(t, html, "<script>alert(1)</script>")
	require.NotContains(t, html, `<img src=x`)
	require.Contains(t, html, "&lt;script&gt;")
}

func TestGenerator_EmbedsAndAttachments(t *testing.T) {
	m := msgAt("1", "staff", "see below", time.Now())
	m.Embeds = []HistoryEmbed{{Title: "Resolution", Description: "fixed in patch 1.2"}}
	m.Attachments = []HistoryAttachment{{Name: "screenshot.png", URL: "https://cdn.example/s.png"}}

	g := NewGenerator()
	tr, err := g.Generate(context.Background(), &fakeHistory{pages: [][]HistoryMessage{{m}}}, "chan-a", testMeta())
	require.NoError(t, err)

	html := string(tr.HTML)
	require.Contains(t, html, "Resolution")
	require.Contains(t, html, "fixed in patch 1.2")
	require.Contains(t, html, "screenshot.png")
	require.Contains(t, html, "https://cdn.example/s.png")
}

func TestGenerator_PagingFailureIsAllOrNothing(t *testing.T) {
	h := &fakeHistory{
		pages: [][]HistoryMessage{
			{msgAt("2", "alice", "hello", time.Now())},
			{msgAt("1", "alice", "world", time.Now())},
		},
		err:   errors.New("gateway 502"),
		errOn: 2,
	}

	g := NewGenerator()
	tr, err := g.Generate(context.Background(), h, "chan-a", testMeta())
	require.ErrorIs(t, err, ErrHistoryFetchFailed)
	require.Nil(t, tr)
}

func TestTranscript_Filename(t *testing.T) {
	tr := &Transcript{GeneratedAt: time.Date(2025, 6, 2, 23, 59, 0, 0, time.UTC)}
	require.Equal(t, "transcript-4001-2025-06-02.html", tr.Filename(4001))
}
