package insights

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type historyFile struct {
	Messages []Message `yaml:"messages"`
}

// LoadHistory reads a conversation from a YAML or JSON file holding either a
// `messages:` list or a top-level list of {role, content} entries.
func LoadHistory(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chat history: %w", err)
	}
	return ParseHistory(data)
}

// ParseHistory decodes conversation bytes in either supported shape.
func ParseHistory(data []byte) ([]Message, error) {
	var file historyFile
	if err := yaml.Unmarshal(data, &file); err == nil && file.Messages != nil {
		return file.Messages, nil
	}

	var list []Message
	if err := yaml.Unmarshal(data, &list); err == nil && list != nil {
		return list, nil
	}

	return nil, fmt.Errorf("chat history must contain `messages:` list or a top-level list")
}
