package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preload is a set of stubs and literal factory definitions installed when
// the server starts.
type Preload struct {
	Factories map[string]map[string]any `yaml:"factories" validate:"dive,keys,required,endkeys,required"`
	Stubs     []PreloadStub             `yaml:"stubs" validate:"dive"`
}

// PreloadStub is one canned response.
type PreloadStub struct {
	Method string `yaml:"method" validate:"required,alpha"`
	Path   string `yaml:"path" validate:"required,startswith=/"`
	Status int    `yaml:"status" validate:"omitempty,min=100,max=599"`
	Body   any    `yaml:"body"`
}

// LoadPreload reads a preload file. JSON is accepted as a YAML subset.
func LoadPreload(path string) (*Preload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preload file: %w", err)
	}
	return ParsePreload(data)
}

// ParsePreload decodes and validates preload data.
func ParsePreload(data []byte) (*Preload, error) {
	var p Preload
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse preload file: %w", err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid preload file: %w", describe(err))
	}
	return &p, nil
}
