package composition

import (
	"os"

	"sigs.k8s.io/yaml"
)

func readYAML(file string, v any) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}
