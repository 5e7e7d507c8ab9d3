package source

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

// FeedAdapter fetches an RSS 2.0 or Atom 1.0 feed over HTTP and turns each
// entry into a candidate document. The entry guid (fallback: link) becomes
// the identity marker; the entry summary becomes the body.
type FeedAdapter struct {
	url    string
	client *http.Client
}

// NewFeedAdapter builds a feed adapter with its own HTTP client.
func NewFeedAdapter(url string, timeout time.Duration) *FeedAdapter {
	return &FeedAdapter{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and parses the feed.
func (f *FeedAdapter) Fetch(ctx context.Context) ([]models.CandidateDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed %s: new request: %w", f.url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed %s: fetch: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s: unexpected status %s", f.url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("feed %s: read body: %w", f.url, err)
	}

	entries, err := parseFeed(data)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", f.url, err)
	}

	cands := make([]models.CandidateDocument, 0, len(entries))
	for _, entry := range entries {
		cands = append(cands, models.CandidateDocument{
			SourceID:    entry.GUID,
			Title:       entry.Title,
			Body:        entry.Summary,
			Link:        entry.Link,
			PublishedAt: parseFeedTime(entry.Published),
			Metadata:    map[string]string{"feed_url": f.url},
		})
	}
	return cands, nil
}

type feedEntry struct {
	GUID      string
	Title     string
	Link      string
	Summary   string
	Published string
}

// parseFeed auto-detects RSS 2.0 vs Atom 1.0 from the XML root element.
func parseFeed(data []byte) ([]feedEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("parse feed: empty data")
	}

	switch detectFormat(trimmed) {
	case "rss":
		return parseRSS(data)
	case "atom":
		return parseAtom(data)
	default:
		return nil, fmt.Errorf("parse feed: unknown format (expected <rss> or <feed>)")
	}
}

func detectFormat(data []byte) string {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch strings.ToLower(se.Name.Local) {
			case "rss", "rdf":
				return "rss"
			case "feed":
				return "atom"
			default:
				return ""
			}
		}
	}
}

type rssRoot struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []struct {
			GUID        string `xml:"guid"`
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			PubDate     string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

func parseRSS(data []byte) ([]feedEntry, error) {
	var root rssRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}

	entries := make([]feedEntry, 0, len(root.Channel.Items))
	for _, item := range root.Channel.Items {
		guid := strings.TrimSpace(item.GUID)
		if guid == "" {
			guid = strings.TrimSpace(item.Link)
		}
		entries = append(entries, feedEntry{
			GUID:      guid,
			Title:     strings.TrimSpace(item.Title),
			Link:      strings.TrimSpace(item.Link),
			Summary:   strings.TrimSpace(item.Description),
			Published: strings.TrimSpace(item.PubDate),
		})
	}
	return entries, nil
}

type atomRoot struct {
	XMLName xml.Name `xml:"feed"`
	Entries []struct {
		ID    string `xml:"id"`
		Title string `xml:"title"`
		Links []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
		} `xml:"link"`
		Summary   string `xml:"summary"`
		Content   string `xml:"content"`
		Published string `xml:"published"`
		Updated   string `xml:"updated"`
	} `xml:"entry"`
}

func parseAtom(data []byte) ([]feedEntry, error) {
	var root atomRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse atom: %w", err)
	}

	entries := make([]feedEntry, 0, len(root.Entries))
	for _, item := range root.Entries {
		var link string
		for _, l := range item.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				link = strings.TrimSpace(l.Href)
				break
			}
		}

		guid := strings.TrimSpace(item.ID)
		if guid == "" {
			guid = link
		}
		summary := strings.TrimSpace(item.Summary)
		if summary == "" {
			summary = strings.TrimSpace(item.Content)
		}
		published := strings.TrimSpace(item.Published)
		if published == "" {
			published = strings.TrimSpace(item.Updated)
		}

		entries = append(entries, feedEntry{
			GUID:      guid,
			Title:     strings.TrimSpace(item.Title),
			Link:      link,
			Summary:   summary,
			Published: published,
		})
	}
	return entries, nil
}

var feedTimeFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseFeedTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, f := range feedTimeFormats {
		if ts, err := time.Parse(f, raw); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}
