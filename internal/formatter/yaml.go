package formatter

import (
	"encoding/json"
	"strings"

	"github.com/harunnryd/nightowl/internal/aggregator"
	"github.com/harunnryd/nightowl/internal/geo"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter goes through JSON first so keys follow the json tags and
// field order of the API responses.
type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatAreas(areas []geo.Area) (string, error) {
	return marshalYAML(areas)
}

func (f *YAMLFormatter) FormatArea(area geo.Area, adjacent []geo.Area) (string, error) {
	return marshalYAML(newAreaView(area, adjacent))
}

func (f *YAMLFormatter) FormatCacheStatus(status aggregator.Status) (string, error) {
	return marshalYAML(status)
}

func marshalYAML(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", err
	}
	blockStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// blockStyle drops the flow and quoting styles the JSON input carries.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
