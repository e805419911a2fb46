package formatter

import (
	"fmt"
	"strings"

	"github.com/harunnryd/nightowl/internal/aggregator"
	"github.com/harunnryd/nightowl/internal/geo"
)

type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

// Formatter renders the operator views printed by the CLI.
type Formatter interface {
	FormatAreas(areas []geo.Area) (string, error)
	FormatArea(area geo.Area, adjacent []geo.Area) (string, error)
	FormatCacheStatus(status aggregator.Status) (string, error)
}

func New(format OutputFormat) (Formatter, error) {
	switch format {
	case OutputFormatTable:
		return NewTableFormatter(), nil
	case OutputFormatJSON:
		return NewJSONFormatter(), nil
	case OutputFormatYAML:
		return NewYAMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", format)
	}
}

func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (supported: table, json, yaml)", s)
	}
}

type areaView struct {
	Area     geo.Area `json:"area"`
	Adjacent []string `json:"adjacent"`
}

func newAreaView(area geo.Area, adjacent []geo.Area) areaView {
	names := make([]string, len(adjacent))
	for i, a := range adjacent {
		names[i] = a.Name
	}
	return areaView{Area: area, Adjacent: names}
}
