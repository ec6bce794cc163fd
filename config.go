package csvers

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOptions reads options from YAML (or JSON). Unknown keys are rejected.
// The repository, commitish and branch are not part of the file.
func LoadOptions(r io.Reader) (Options, error) {
	var opts Options
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("failed to decode options: %w", err)
	}
	if _, err := validateOptions(opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// LoadOptionsFile reads options from a YAML file.
func LoadOptionsFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read options file: %w", err)
	}
	defer f.Close()

	opts, err := LoadOptions(f)
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// UnmarshalYAML accepts the mode names, case-insensitive.
func (m *CIBranchVersionMode) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: CI version mode must be a string", node.Line)
	}
	mode, err := ParseCIBranchVersionMode(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*m = mode
	return nil
}

// MarshalYAML writes the mode name.
func (m CIBranchVersionMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// MarshalText writes the mode name.
func (m CIBranchVersionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts the mode names, case-insensitive.
func (m *CIBranchVersionMode) UnmarshalText(text []byte) error {
	mode, err := ParseCIBranchVersionMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
