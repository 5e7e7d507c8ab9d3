package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example News</title>
    <item>
      <guid>tag:example.com,2024:1</guid>
      <title>Markets climb</title>
      <link>https://example.com/markets</link>
      <description>Stocks rose sharply today.</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
    </item>
    <item>
      <title>No guid item</title>
      <link>https://example.com/no-guid</link>
      <description>Body without a guid.</description>
    </item>
  </channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Atom</title>
  <entry>
    <id>urn:uuid:entry-1</id>
    <title>Rates hold steady</title>
    <link rel="alternate" href="https://example.com/rates"/>
    <summary>The central bank kept rates unchanged.</summary>
    <published>2024-03-01T10:00:00Z</published>
  </entry>
  <entry>
    <title>Content fallback</title>
    <link href="https://example.com/fallback"/>
    <content>Full content used when summary is absent.</content>
    <updated>2024-03-02T10:00:00Z</updated>
  </entry>
</feed>`

func TestParseFeedRSS(t *testing.T) {
	entries, err := parseFeed([]byte(sampleRSS))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "tag:example.com,2024:1", entries[0].GUID)
	require.Equal(t, "Markets climb", entries[0].Title)
	require.Equal(t, "Stocks rose sharply today.", entries[0].Summary)

	// Missing guid falls back to the link.
	require.Equal(t, "https://example.com/no-guid", entries[1].GUID)
}

func TestParseFeedAtom(t *testing.T) {
	entries, err := parseFeed([]byte(sampleAtom))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "urn:uuid:entry-1", entries[0].GUID)
	require.Equal(t, "https://example.com/rates", entries[0].Link)
	require.Equal(t, "The central bank kept rates unchanged.", entries[0].Summary)

	require.Equal(t, "Full content used when summary is absent.", entries[1].Summary)
	require.Equal(t, "https://example.com/fallback", entries[1].GUID)
	require.Equal(t, "2024-03-02T10:00:00Z", entries[1].Published)
}

func TestParseFeedUnknownFormat(t *testing.T) {
	_, err := parseFeed([]byte(`<html><body>not a feed</body></html>`))
	require.Error(t, err)

	_, err = parseFeed([]byte("   "))
	require.Error(t, err)
}

func TestFeedAdapterFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	adapter := NewFeedAdapter(srv.URL, 5*time.Second)
	cands, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 2)

	require.Equal(t, "tag:example.com,2024:1", cands[0].SourceID)
	require.Equal(t, "Stocks rose sharply today.", cands[0].Body)
	require.Equal(t, srv.URL, cands[0].Metadata["feed_url"])
	require.NotNil(t, cands[0].PublishedAt)
	require.Equal(t, time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC), cands[0].PublishedAt.UTC())
}

func TestFeedAdapterFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := NewFeedAdapter(srv.URL, 5*time.Second)
	_, err := adapter.Fetch(context.Background())
	require.Error(t, err)
}
