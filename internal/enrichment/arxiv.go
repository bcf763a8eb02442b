package enrichment

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

type Arxiv struct {
	client   *resty.Client
	endpoint string
	limit    int
}

func NewArxiv(client *resty.Client, endpoint string, limit int) *Arxiv {
	if limit <= 0 {
		limit = 2
	}
	return &Arxiv{client: client, endpoint: endpoint, limit: limit}
}

func (a *Arxiv) Name() string { return "arxiv" }

type atomFeed struct {
	Entries []struct {
		ID      string `xml:"id"`
		Title   string `xml:"title"`
		Summary string `xml:"summary"`
	} `xml:"entry"`
}

func (a *Arxiv) Research(ctx context.Context, query string) ([]Note, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_query": "all:" + query,
			"start":        "0",
			"max_results":  strconv.Itoa(a.limit),
		}).
		Get(a.endpoint)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("arxiv query: status %d", resp.StatusCode())
	}
	var feed atomFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("arxiv query: %w", err)
	}
	notes := make([]Note, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		title := collapse(e.Title)
		if title == "" {
			title = "No Title"
		}
		notes = append(notes, Note{
			Source: "arxiv",
			Title:  title,
			URL:    strings.TrimSpace(e.ID),
			Text:   truncate(collapse(e.Summary), 400),
		})
	}
	return notes, nil
}
