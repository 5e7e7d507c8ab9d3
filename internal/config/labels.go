package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultLabelMapping translates the raw label ids emitted by common
// classification heads into the canonical sentiment vocabulary. Keys are
// matched case-insensitively.
var defaultLabelMapping = map[string]string{
	"label_0":  "negative",
	"label_1":  "neutral",
	"label_2":  "positive",
	"negative": "negative",
	"neg":      "negative",
	"neutral":  "neutral",
	"neu":      "neutral",
	"positive": "positive",
	"pos":      "positive",
}

// LoadLabelMapping returns the label-mapping table. When path is non-empty
// the YAML file (a flat raw->canonical map) is read and its entries are
// merged over the built-in defaults. Keys are lower-cased on load so a file
// entry overrides a default regardless of spelling.
func LoadLabelMapping(path string) (map[string]string, error) {
	mapping := make(map[string]string, len(defaultLabelMapping))
	for k, v := range defaultLabelMapping {
		mapping[strings.ToLower(k)] = v
	}

	if path == "" {
		return mapping, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label map %s: %w", path, err)
	}

	var fileMapping map[string]string
	if err := yaml.Unmarshal(raw, &fileMapping); err != nil {
		return nil, fmt.Errorf("parse label map %s: %w", path, err)
	}

	for k, v := range fileMapping {
		mapping[strings.ToLower(k)] = v
	}

	return mapping, nil
}
