package widgets

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/icons"
	"github.com/homedash/homedash/internal/models"
)

var rssInterval = time.Minute * 5

type RSSConfig struct {
	URL      string `mapstructure:"url"`
	MaxItems int    `mapstructure:"maxItems,omitempty"`
}

type RSSItem struct {
	Title     string `json:"title"`
	Link      string `json:"link,omitempty"`
	Published string `json:"published,omitempty"`
}

type RSSData struct {
	Title string    `json:"title,omitempty"`
	Items []RSSItem `json:"items"`
}

type rssProvider struct {
	binding
	cfg RSSConfig

	client *http.Client
}

func newRSSProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &rssProvider{
		binding: newBinding(cfg.ID, "rss", deps),
		client:  &http.Client{Timeout: time.Second * 15},
	}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.cfg.MaxItems <= 0 {
		p.cfg.MaxItems = 10
	}

	if p.deps.Demo || p.cfg.URL == "" {
		p.set(demoRSS(p.cfg.MaxItems))

		return p, nil
	}

	p.every(rssInterval, p.fetch)

	return p, nil
}

func (p *rssProvider) fetch() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()

	raw, err := FetchFeed(ctx, p.client, p.cfg.URL)
	if err != nil {
		p.pr.Warnf("%s feed fetch failed: %v", icons.ReconnectCircle, err)

		return
	}

	data, err := parseFeed(raw)
	if err != nil {
		p.pr.Warnf("%s feed parse failed: %v", icons.ReconnectCircle, err)

		return
	}

	if len(data.Items) > p.cfg.MaxItems {
		data.Items = data.Items[:p.cfg.MaxItems]
	}

	p.set(data)
}

// FetchFeed is the stateless passthrough used by both the provider and the
// /api/rss proxy route.
func FetchFeed(ctx context.Context, client *http.Client, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", models.ErrUnexpectedStatus, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// parseFeed handles both RSS 2.0 and Atom documents, titles only.
func parseFeed(raw []byte) (RSSData, error) {
	var rss struct {
		Channel struct {
			Title string `xml:"title"`
			Items []struct {
				Title   string `xml:"title"`
				Link    string `xml:"link"`
				PubDate string `xml:"pubDate"`
			} `xml:"item"`
		} `xml:"channel"`
	}

	if err := xml.Unmarshal(raw, &rss); err == nil && len(rss.Channel.Items) > 0 {
		data := RSSData{Title: rss.Channel.Title}
		for _, item := range rss.Channel.Items {
			data.Items = append(data.Items, RSSItem{Title: item.Title, Link: item.Link, Published: item.PubDate})
		}

		return data, nil
	}

	var atom struct {
		Title   string `xml:"title"`
		Entries []struct {
			Title string `xml:"title"`
			Link  struct {
				Href string `xml:"href,attr"`
			} `xml:"link"`
			Updated string `xml:"updated"`
		} `xml:"entry"`
	}

	if err := xml.Unmarshal(raw, &atom); err != nil {
		return RSSData{}, err
	}

	data := RSSData{Title: atom.Title}
	for _, entry := range atom.Entries {
		data.Items = append(data.Items, RSSItem{Title: entry.Title, Link: entry.Link.Href, Published: entry.Updated})
	}

	return data, nil
}
