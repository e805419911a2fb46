package source

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/harunnryd/nightowl/internal/config"
	"github.com/harunnryd/nightowl/internal/event"
)

// Source is one listing feed. Fetch returns raw records; normalization and
// merging happen in the aggregator.
type Source interface {
	Name() string
	Weight() float64
	Fetch(ctx context.Context) ([]event.RawRecord, error)
}

func NewFromConfig(c config.SourceConfig, client *http.Client) (Source, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return nil, fmt.Errorf("source name is required")
	}
	mapping := mergeFields(c.Fields)

	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case "json", "http":
		if strings.TrimSpace(c.URL) == "" {
			return nil, fmt.Errorf("source %s: url is required", name)
		}
		if client == nil {
			client = NewHTTPClient(0)
		}
		return &JSONFeed{
			name:    name,
			weight:  c.Weight,
			url:     c.URL,
			items:   c.Items,
			headers: c.Headers,
			fields:  mapping,
			client:  client,
		}, nil
	case "file":
		if strings.TrimSpace(c.Path) == "" {
			return nil, fmt.Errorf("source %s: path is required", name)
		}
		return &FileFeed{name: name, weight: c.Weight, path: c.Path, items: c.Items, fields: mapping}, nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", c.Type)
	}
}

// NewHTTPClient is shared by feeds; per-fetch deadlines come from the caller's context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}
