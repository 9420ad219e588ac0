package report

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the document written to the product report file.
type File struct {
	Includes Inventory `yaml:"includes"`
}

// Encode serializes the inventory in report order.
func Encode(inv Inventory) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(File{Includes: inv}); err != nil {
		return nil, fmt.Errorf("encoding product report failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding product report failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads an inventory serialized by Encode.
func Decode(data []byte) (Inventory, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Inventory{}, fmt.Errorf("decoding product report failed: %w", err)
	}
	return file.Includes, nil
}

// Write writes the inventory to path.
func Write(path string, inv Inventory) error {
	data, err := Encode(inv)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write product report file to %s: %w", path, err)
	}
	return nil
}

// Read reads the product report at path.
func Read(path string) (Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Inventory{}, fmt.Errorf("failed to read product report file %s: %w", path, err)
	}
	inv, err := Decode(data)
	if err != nil {
		return Inventory{}, fmt.Errorf("invalid product report %s: %w", path, err)
	}
	return inv, nil
}
