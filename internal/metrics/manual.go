package metrics

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type manualFile struct {
	Values []manualValue `yaml:"values"`
}

type manualValue struct {
	ID      int64    `yaml:"id"`
	Current *float64 `yaml:"current"`
	Target  *float64 `yaml:"target"`
}

// LoadManualValues reads a `kr sync` file: either a `values:` list or a
// top-level list of {id, current, target}. Target is optional.
func LoadManualValues(path string) ([]KeyResultUpdate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manual values: %w", err)
	}
	return ParseManualValues(data)
}

// ParseManualValues decodes the contents of a `kr sync` file.
func ParseManualValues(data []byte) ([]KeyResultUpdate, error) {
	var file manualFile
	if err := yaml.Unmarshal(data, &file); err == nil && file.Values != nil {
		return updatesFrom(file.Values)
	}

	var list []manualValue
	if err := yaml.Unmarshal(data, &list); err == nil && list != nil {
		return updatesFrom(list)
	}

	return nil, fmt.Errorf("manual values file must contain `values:` list or a top-level list")
}

func updatesFrom(values []manualValue) ([]KeyResultUpdate, error) {
	updates := make([]KeyResultUpdate, 0, len(values))
	for i, v := range values {
		if v.ID <= 0 {
			return nil, fmt.Errorf("values[%d]: id is required", i)
		}
		if v.Current == nil {
			return nil, fmt.Errorf("values[%d]: current is required", i)
		}
		updates = append(updates, KeyResultUpdate{ID: v.ID, Current: *v.Current, Target: v.Target})
	}
	return updates, nil
}
