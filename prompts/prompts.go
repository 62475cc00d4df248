package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultPath     = "instructions.txt"
	instructionsKey = "instructions"
)

// Load reads the model's system instructions from path. Plain-text files are
// used verbatim (trimmed). YAML files are parsed as a map and the
// "instructions" key is used.
func Load(path string) (string, error) {
	if path == "" {
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read instructions file %s: %w", path, err)
	}

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parsed := make(map[string]string)
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return "", fmt.Errorf("failed to parse instructions file %s: %w", path, err)
		}
		text = parsed[instructionsKey]
	default:
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("instructions file %s is empty", path)
	}
	return text, nil
}
