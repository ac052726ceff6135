package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/artefact-host/domain/entities"
)

func TestYamlDescriptorParser_Parse(t *testing.T) {
	p := NewYamlDescriptorParser()

	t.Run("openai chat", func(t *testing.T) {
		d, err := p.Parse([]byte("kind: openai\ntask: chat\nmodel: gpt-4o-mini\nmax_tokens: 128\ntemperature: 0.2\n"))
		require.NoError(t, err)
		assert.Equal(t, entities.ModelKindOpenAI, d.Kind)
		assert.Equal(t, "gpt-4o-mini", d.Model)
		assert.Equal(t, 128, d.MaxTokens)
	})

	t.Run("linear", func(t *testing.T) {
		d, err := p.Parse([]byte("kind: linear\nweights:\n  - [1, 0]\n  - [0, 1]\nbias: [0.5, 0.5]\n"))
		require.NoError(t, err)
		assert.Len(t, d.Weights, 2)
	})

	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"unknown kind", "kind: onnx\n"},
		{"openai without model", "kind: openai\n"},
		{"linear without weights", "kind: linear\n"},
		{"linear with empty weights", "kind: linear\nweights: []\n"},
		{"ragged weights", "kind: linear\nweights:\n  - [1, 0]\n  - [1]\n"},
		{"bias mismatch", "kind: linear\nweights:\n  - [1, 0]\nbias: [1, 2]\n"},
		{"unknown field", "kind: chargram\ndimension: 12\n"},
		{"bad task", "kind: openai\nmodel: m\ntask: vision\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestYamlDescriptorParser_EmptyWeights(t *testing.T) {
	var d *entities.ModelDescriptor
	var err error
	require.NotPanics(t, func() {
		d, err = NewYamlDescriptorParser().Parse([]byte("kind: linear\nweights: []\n"))
	})
	assert.Nil(t, d)
	assert.ErrorContains(t, err, "no weights")
}
