package core

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v2"
)

//go:embed schema.yaml
var schemaYAML []byte

var featureNames = mustLoadSchema()

func mustLoadSchema() []string {
	raw := struct {
		Features []string `yaml:"features"`
	}{}

	if err := yaml.Unmarshal(schemaYAML, &raw); err != nil {
		panic(fmt.Sprintf("invalid embedded feature schema: %v", err))
	}
	if len(raw.Features) == 0 {
		panic("embedded feature schema is empty")
	}

	seen := make(map[string]struct{}, len(raw.Features))
	for _, name := range raw.Features {
		if _, ok := seen[name]; ok {
			panic(fmt.Sprintf("duplicate feature %q in embedded schema", name))
		}
		seen[name] = struct{}{}
	}

	return raw.Features
}

// FeatureNames returns the ordered measurement names the classifier consumes.
// The slice is a copy; the schema itself is fixed at build time.
func FeatureNames() []string {
	return append([]string(nil), featureNames...)
}

func NumFeatures() int {
	return len(featureNames)
}
