package enrichment

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
)

var slugOverrides = map[string]string{
	"vue-js":                "vue",
	"vuejs":                 "vue",
	"react-js":              "react",
	"reactjs":               "react",
	"node-js":               "nodejs",
	"go":                    "golang",
	"cplusplus":             "cpp",
	"c-plus-plus":           "cpp",
	"c-sharp":               "csharp",
	"dot-net":               "dotnet",
	"net":                   "dotnet",
	"ai-scientist":          "ai-data-scientist",
	"bi-analyst":            "business-analyst",
	"qa-engineer":           "qa",
	"server-side-game-dev":  "server-side-game-development",
	"developer-relations":   "devrel",
	"k8s":                   "kubernetes",
	"postgres":              "postgresql-dba",
	"postgresql":            "postgresql-dba",
	"software-architecture": "software-architect",
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a topic name into a roadmap.sh path segment.
func Slug(topic string) string {
	s := strings.ToLower(strings.TrimSpace(topic))
	s = strings.ReplaceAll(s, "+", "plus")
	s = strings.ReplaceAll(s, "#", "sharp")
	if strings.HasSuffix(s, ".js") {
		s = strings.TrimSuffix(s, ".js") + "js"
	}
	s = strings.Trim(nonSlug.ReplaceAllString(s, "-"), "-")
	if o, ok := slugOverrides[s]; ok {
		return o
	}
	return s
}

// Roadmap scrapes the public roadmap.sh guide for a topic.
type Roadmap struct {
	client   *resty.Client
	baseURL  string
	maxChars int
}

func NewRoadmap(client *resty.Client, baseURL string, maxChars int) *Roadmap {
	if maxChars <= 0 {
		maxChars = 4000
	}
	return &Roadmap{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxChars: maxChars,
	}
}

// Fetch returns the roadmap page text, or "" when the topic has no roadmap.
func (r *Roadmap) Fetch(ctx context.Context, topic string) (string, error) {
	slug := Slug(topic)
	if slug == "" {
		return "", nil
	}
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(r.baseURL + "/" + slug)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", nil
	}
	if resp.IsError() {
		return "", fmt.Errorf("roadmap %s: status %d", slug, resp.StatusCode())
	}
	body := resp.Body()
	if bytes.Contains(body, []byte("404: Not Found")) {
		return "", nil
	}
	text, err := PlainText(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return truncate(text, r.maxChars), nil
}
