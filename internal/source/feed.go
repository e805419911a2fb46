package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	owlErrors "github.com/harunnryd/nightowl/internal/errors"
	"github.com/harunnryd/nightowl/internal/event"

	"gopkg.in/yaml.v3"
)

const maxFeedBytes = 8 << 20

// JSONFeed pulls listings from an HTTP endpoint returning JSON.
type JSONFeed struct {
	name    string
	weight  float64
	url     string
	items   string
	headers map[string]string
	fields  map[string][]string
	client  *http.Client
}

func (f *JSONFeed) Name() string    { return f.name }
func (f *JSONFeed) Weight() float64 { return f.weight }

func (f *JSONFeed) Fetch(ctx context.Context) ([]event.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, owlErrors.WrapWithCategory(err, "build request", owlErrors.ErrSourceFetch)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nightowl/1.0")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, owlErrors.WrapWithCategory(err, "fetch "+f.name, owlErrors.ErrSourceFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d: %w", f.name, resp.StatusCode, owlErrors.ErrSourceFetch)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, owlErrors.WrapWithCategory(err, "read "+f.name, owlErrors.ErrSourceFetch)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, owlErrors.WrapWithCategory(err, "decode "+f.name, owlErrors.ErrSourceFetch)
	}
	return toRecords(doc, f.items, f.fields, f.name)
}

// FileFeed reads curated listings from a local YAML or JSON file.
type FileFeed struct {
	name   string
	weight float64
	path   string
	items  string
	fields map[string][]string
}

func (f *FileFeed) Name() string    { return f.name }
func (f *FileFeed) Weight() float64 { return f.weight }

func (f *FileFeed) Fetch(ctx context.Context) ([]event.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, owlErrors.WrapWithCategory(err, "read "+f.name, owlErrors.ErrSourceFetch)
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, owlErrors.WrapWithCategory(err, "decode "+f.name, owlErrors.ErrSourceFetch)
	}
	return toRecords(doc, f.items, f.fields, f.name)
}

func toRecords(doc any, items string, fields map[string][]string, name string) ([]event.RawRecord, error) {
	objs, err := itemsAt(doc, items)
	if err != nil {
		return nil, owlErrors.WrapWithCategory(err, name, owlErrors.ErrSourceFetch)
	}
	out := make([]event.RawRecord, 0, len(objs))
	for _, obj := range objs {
		out = append(out, recordFromMap(obj, fields, name))
	}
	return out, nil
}
