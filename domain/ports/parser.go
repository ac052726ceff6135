package ports

import "github.com/reglet-dev/artefact-host/domain/entities"

// DescriptorParser parses raw bytes into a ModelDescriptor.
type DescriptorParser interface {
	// Parse unmarshals and validates a descriptor.
	Parse(data []byte) (*entities.ModelDescriptor, error)
}
