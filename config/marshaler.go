package config

import (
	"encoding/json"

	"gopkg.in/yaml.v2"
)

func MarshalJSON(config Config) ([]byte, error) {
	return json.MarshalIndent(config, "", "  ")
}

func UnmarshalJSON(bz []byte, config *Config) error {
	return json.Unmarshal(bz, config)
}

// MarshalYAML renders the config as YAML. Raw chain configs are converted through
// JSON so that they appear as mappings instead of byte arrays.
func MarshalYAML(config Config) ([]byte, error) {
	bz, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}
	var v any
	if err := yaml.Unmarshal(bz, &v); err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}
