package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const maxPageFetches = 4

// WebSearch queries Brave Search and scrapes the top result pages.
type WebSearch struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	pages    int
	pageMax  int
}

func NewWebSearch(client *resty.Client, endpoint, apiKey string) *WebSearch {
	return &WebSearch{client: client, endpoint: endpoint, apiKey: strings.TrimSpace(apiKey), pages: 4, pageMax: 1000}
}

func (w *WebSearch) Name() string { return "web" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (w *WebSearch) Research(ctx context.Context, query string) ([]Note, error) {
	if w.apiKey == "" {
		return nil, errors.New("brave search: missing api key")
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("X-Subscription-Token", w.apiKey).
		SetQueryParams(map[string]string{
			"q":     query + " learning curriculum syllabus guide",
			"count": strconv.Itoa(w.pages),
		}).
		Get(w.endpoint)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("brave search: status %d", resp.StatusCode())
	}
	var decoded braveResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}

	results := decoded.Web.Results
	if len(results) > w.pages {
		results = results[:w.pages]
	}
	notes := make([]Note, len(results))
	var g errgroup.Group
	g.SetLimit(maxPageFetches)
	for i, item := range results {
		notes[i] = Note{Source: "web", Title: strings.TrimSpace(item.Title), URL: strings.TrimSpace(item.URL), Text: StripTags(item.Description)}
		g.Go(func() error {
			if text := w.page(ctx, item.URL); text != "" {
				notes[i].Text = text
			}
			return nil
		})
	}
	// a failed page keeps the search snippet
	_ = g.Wait()

	out := notes[:0]
	for _, n := range notes {
		if n.URL != "" && n.Text != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

// page returns article text of a result page or "" on any failure.
func (w *WebSearch) page(ctx context.Context, url string) string {
	if strings.TrimSpace(url) == "" {
		return ""
	}
	resp, err := w.client.R().SetContext(ctx).SetHeader("Accept", "text/html").Get(url)
	if err != nil || resp.IsError() {
		return ""
	}
	text, err := ArticleText(bytes.NewReader(resp.Body()), 50)
	if err != nil {
		return ""
	}
	return truncate(text, w.pageMax)
}
