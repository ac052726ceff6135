// Package schema exports JSON schemas for the capability wire envelopes.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/reglet-dev/artefact-host/domain/entities"
)

// Envelope pairs a capability function with its request and response types.
type Envelope struct {
	Request  any
	Response any
	Function string
}

// Envelopes lists every capability envelope keyed by function name.
func Envelopes() map[string]Envelope {
	list := []Envelope{
		{Function: "db_query", Request: entities.QueryPayload{}, Response: entities.QueryResult{}},
		{Function: "db_batch", Request: entities.BatchPayload{}, Response: entities.BatchResult{}},
		{Function: "onnx_query", Request: entities.InferencePayload{}, Response: entities.InferenceResult{}},
		{Function: "chat_send_message", Request: entities.SendMessageRequest{}, Response: entities.ChatResponse{}},
		{Function: "chat_store_memory", Request: entities.StoreMemoryRequest{}, Response: entities.StoreMemoryResponse{}},
		{Function: "predict", Request: entities.PredictRequest{}, Response: entities.ChatResponse{}},
		{Function: "categorise", Request: entities.CategoriseRequest{}, Response: entities.ChatResponse{}},
	}
	out := make(map[string]Envelope, len(list))
	for _, e := range list {
		out[e.Function] = e
	}
	return out
}

// Functions returns the envelope names in sorted order.
func Functions() []string {
	env := Envelopes()
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	valueType      = reflect.TypeOf(entities.Value{})
	tensorType     = reflect.TypeOf(entities.Tensor{})
	schemaTextType = reflect.TypeOf(entities.SchemaText(""))
)

// mapType describes the types whose JSON form is custom.
func mapType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case valueType:
		return &jsonschema.Schema{
			Description: "Scalar parameter or column value. Binary values travel as base64 text.",
			AnyOf: []*jsonschema.Schema{
				{Type: "null"},
				{Type: "boolean"},
				{Type: "integer"},
				{Type: "number"},
				{Type: "string"},
			},
		}
	case tensorType:
		props := jsonschema.NewProperties()
		props.Set("type", &jsonschema.Schema{Type: "string", Enum: []any{"float", "int64"}})
		props.Set("data", &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "number"}})
		props.Set("shape", &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "integer"}})
		return &jsonschema.Schema{
			Type:        "object",
			Properties:  props,
			Required:    []string{"type", "data", "shape"},
			Description: "Flat tensor data whose length equals the product of shape.",
		}
	case schemaTextType:
		return &jsonschema.Schema{
			Description: "Target JSON schema, as a string or an inline document.",
			AnyOf:       []*jsonschema.Schema{{Type: "string"}, {Type: "object"}},
		}
	default:
		return nil
	}
}

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
		Mapper:         mapType,
	}
}

// GenerateSchema creates a JSON schema from a Go struct.
func GenerateSchema(v any) ([]byte, error) {
	schema := reflector().Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// EnvelopeSchema holds the request and response schema of one function.
type EnvelopeSchema struct {
	Request  json.RawMessage `json:"request"`
	Response json.RawMessage `json:"response"`
}

// GenerateEnvelope builds the schemas of the named function.
func GenerateEnvelope(function string) (EnvelopeSchema, error) {
	env, ok := Envelopes()[function]
	if !ok {
		return EnvelopeSchema{}, fmt.Errorf("unknown capability function %q", function)
	}
	req, err := GenerateSchema(env.Request)
	if err != nil {
		return EnvelopeSchema{}, fmt.Errorf("%s request: %w", function, err)
	}
	resp, err := GenerateSchema(env.Response)
	if err != nil {
		return EnvelopeSchema{}, fmt.Errorf("%s response: %w", function, err)
	}
	return EnvelopeSchema{Request: req, Response: resp}, nil
}

// GenerateAll builds the schemas of every function, keyed by name.
func GenerateAll() (map[string]EnvelopeSchema, error) {
	out := make(map[string]EnvelopeSchema)
	for _, name := range Functions() {
		s, err := GenerateEnvelope(name)
		if err != nil {
			return nil, err
		}
		out[name] = s
	}
	return out, nil
}
