package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

type Wikipedia struct {
	client   *resty.Client
	endpoint string
	limit    int
}

func NewWikipedia(client *resty.Client, endpoint string, limit int) *Wikipedia {
	if limit <= 0 {
		limit = 2
	}
	return &Wikipedia{client: client, endpoint: endpoint, limit: limit}
}

func (w *Wikipedia) Name() string { return "wikipedia" }

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

func (w *Wikipedia) Research(ctx context.Context, query string) ([]Note, error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"action":   "query",
			"list":     "search",
			"format":   "json",
			"utf8":     "1",
			"srlimit":  strconv.Itoa(w.limit),
			"srsearch": query,
		}).
		Get(w.endpoint)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("wikipedia search: status %d", resp.StatusCode())
	}
	var decoded wikiSearchResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, fmt.Errorf("wikipedia search: %w", err)
	}
	notes := make([]Note, 0, len(decoded.Query.Search))
	for _, item := range decoded.Query.Search {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		notes = append(notes, Note{
			Source: "wikipedia",
			Title:  title,
			URL:    "https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_")),
			Text:   StripTags(item.Snippet),
		})
	}
	return notes, nil
}
