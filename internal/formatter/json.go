package formatter

import (
	"encoding/json"

	"github.com/harunnryd/nightowl/internal/aggregator"
	"github.com/harunnryd/nightowl/internal/geo"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatAreas(areas []geo.Area) (string, error) {
	return marshalJSON(areas)
}

func (f *JSONFormatter) FormatArea(area geo.Area, adjacent []geo.Area) (string, error) {
	return marshalJSON(newAreaView(area, adjacent))
}

func (f *JSONFormatter) FormatCacheStatus(status aggregator.Status) (string, error) {
	return marshalJSON(status)
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
