package enrichment

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewHTTPClient is the shared outbound client for every scraper and search
// source.
func NewHTTPClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "CourseForge/1.0 (+https://courseforge.app)")
}
