// Package parser reads model descriptor files.
package parser

import (
	"bytes"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/ports"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New()

// YamlDescriptorParser implements DescriptorParser for YAML.
type YamlDescriptorParser struct{}

// NewYamlDescriptorParser creates a new YamlDescriptorParser.
func NewYamlDescriptorParser() ports.DescriptorParser {
	return &YamlDescriptorParser{}
}

// Parse unmarshals YAML bytes into a ModelDescriptor and validates it.
// Unknown fields are rejected so a typo does not silently fall back to a default.
func (p *YamlDescriptorParser) Parse(data []byte) (*entities.ModelDescriptor, error) {
	var d entities.ModelDescriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}
	if err := validate.Struct(&d); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}
	if d.Kind == entities.ModelKindLinear {
		// required_if accepts an empty list.
		if len(d.Weights) == 0 {
			return nil, fmt.Errorf("invalid descriptor: linear model has no weights")
		}
		width := len(d.Weights[0])
		for i, row := range d.Weights {
			if len(row) != width {
				return nil, fmt.Errorf("invalid descriptor: weights row %d has %d columns, want %d", i, len(row), width)
			}
		}
		if len(d.Bias) != 0 && len(d.Bias) != len(d.Weights) {
			return nil, fmt.Errorf("invalid descriptor: bias has %d entries, want %d", len(d.Bias), len(d.Weights))
		}
	}
	return &d, nil
}
