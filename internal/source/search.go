package source

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	owlErrors "github.com/harunnryd/nightowl/internal/errors"
	"github.com/harunnryd/nightowl/internal/event"
)

const (
	SearchSourceName        = "web_search"
	defaultSearchBaseURL    = "https://www.bing.com/search"
	defaultSearchMaxResults = 8
	searchResultHardCap     = 20
	searchConfidence        = 0.3
)

// Bing freshness filter: one week, in minutes.
const searchRecencyQFT = "+filterui:age-lt10080"

var (
	bingResultRe = regexp.MustCompile(`(?is)<li[^>]*class="[^"]*\bb_algo\b[^"]*"[^>]*>.*?<h2[^>]*>\s*<a[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	htmlTagRe    = regexp.MustCompile(`(?is)<[^>]+>`)
)

// Searcher supplements thin areas on demand. Results are scoped to one area.
type Searcher interface {
	Name() string
	Weight() float64
	Search(ctx context.Context, area string) ([]event.RawRecord, error)
}

// WebSearch scrapes a Bing-compatible HTML results page for event listings.
type WebSearch struct {
	Client      *http.Client
	BaseURL     string
	City        string
	MaxResults  int
	SourceTrust float64
}

func (s *WebSearch) Name() string { return SearchSourceName }

func (s *WebSearch) Weight() float64 { return s.SourceTrust }

func (s *WebSearch) Search(ctx context.Context, area string) ([]event.RawRecord, error) {
	area = strings.TrimSpace(area)
	if area == "" {
		return nil, owlErrors.InvalidInput("search area is required")
	}

	baseURL := strings.TrimSpace(s.BaseURL)
	if baseURL == "" {
		baseURL = defaultSearchBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}

	query := fmt.Sprintf("events tonight %s %s", area, strings.TrimSpace(s.City))
	q := parsed.Query()
	q.Set("q", strings.TrimSpace(query))
	q.Set("qft", searchRecencyQFT)
	parsed.RawQuery = q.Encode()

	client := s.Client
	if client == nil {
		client = NewHTTPClient(0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "nightowl/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, owlErrors.WrapWithCategory(err, "web search", owlErrors.ErrSourceFetch)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("web search: %s: %w", resp.Status, owlErrors.ErrSourceFetch)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, owlErrors.WrapWithCategory(err, "read web search", owlErrors.ErrSourceFetch)
	}

	return parseSearchResults(string(body), area, s.maxResults()), nil
}

func (s *WebSearch) maxResults() int {
	n := s.MaxResults
	if n <= 0 {
		n = defaultSearchMaxResults
	}
	if n > searchResultHardCap {
		n = searchResultHardCap
	}
	return n
}

// parseSearchResults keeps title and link only; search hits carry no reliable
// time, so they survive the upcoming filter and rank with unknown dates.
func parseSearchResults(doc, area string, maxResults int) []event.RawRecord {
	matches := bingResultRe.FindAllStringSubmatch(doc, maxResults)
	out := make([]event.RawRecord, 0, len(matches))
	confidence := searchConfidence
	for _, m := range matches {
		if len(m) < 3 {
			continue
		}
		link := html.UnescapeString(strings.TrimSpace(m[1]))
		title := html.UnescapeString(strings.TrimSpace(htmlTagRe.ReplaceAllString(m[2], "")))
		if link == "" || title == "" {
			continue
		}
		out = append(out, event.RawRecord{
			Source:     SearchSourceName,
			Name:       title,
			Locality:   area,
			URL:        link,
			Confidence: &confidence,
		})
	}
	return out
}
