package entities

import (
	"encoding/json"
	"fmt"
	"math"
)

// TensorKind is the element type of a Tensor.
type TensorKind string

const (
	// TensorFloat32 holds float32 elements. The wire name is "float".
	TensorFloat32 TensorKind = "float"
	// TensorInt64 holds int64 elements.
	TensorInt64 TensorKind = "int64"
)

// Tensor is a dense, row-major tensor. Exactly one of the data slices is used,
// selected by Kind.
type Tensor struct {
	Kind    TensorKind
	Float32 []float32
	Int64   []int64
	Shape   []int64
}

// NewFloatTensor builds a float32 tensor, rejecting data that does not fill shape.
func NewFloatTensor(data []float32, shape []int64) (Tensor, error) {
	t := Tensor{Kind: TensorFloat32, Float32: data, Shape: shape}
	return t, t.Validate()
}

// NewInt64Tensor builds an int64 tensor, rejecting data that does not fill shape.
func NewInt64Tensor(data []int64, shape []int64) (Tensor, error) {
	t := Tensor{Kind: TensorInt64, Int64: data, Shape: shape}
	return t, t.Validate()
}

// Len returns the number of elements held.
func (t Tensor) Len() int {
	switch t.Kind {
	case TensorFloat32:
		return len(t.Float32)
	case TensorInt64:
		return len(t.Int64)
	default:
		return 0
	}
}

// Elements returns the product of the shape dimensions.
func (t Tensor) Elements() (int64, error) {
	n := int64(1)
	for i, d := range t.Shape {
		if d < 0 {
			return 0, fmt.Errorf("dimension %d is negative (%d)", i, d)
		}
		if d != 0 && n > math.MaxInt64/d {
			return 0, fmt.Errorf("element count overflows at dimension %d", i)
		}
		n *= d
	}
	return n, nil
}

// Validate checks the kind and that the data length equals the shape product.
// Tensors are never reshaped to fit.
func (t Tensor) Validate() error {
	switch t.Kind {
	case TensorFloat32, TensorInt64:
	default:
		return fmt.Errorf("unsupported tensor type %q", t.Kind)
	}
	n, err := t.Elements()
	if err != nil {
		return fmt.Errorf("invalid shape %v: %w", t.Shape, err)
	}
	if int64(t.Len()) != n {
		return fmt.Errorf("invalid shape %v: expects %d elements, got %d", t.Shape, n, t.Len())
	}
	return nil
}

type tensorWire struct {
	Kind  TensorKind      `json:"type"`
	Data  json.RawMessage `json:"data"`
	Shape []int64         `json:"shape"`
}

// MarshalJSON encodes {"type", "data", "shape"}.
func (t Tensor) MarshalJSON() ([]byte, error) {
	var data any
	switch t.Kind {
	case TensorFloat32:
		data = t.Float32
	case TensorInt64:
		data = t.Int64
	default:
		return nil, fmt.Errorf("tensor: unsupported type %q", t.Kind)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	shape := t.Shape
	if shape == nil {
		shape = []int64{}
	}
	return json.Marshal(tensorWire{Kind: t.Kind, Data: raw, Shape: shape})
}

// UnmarshalJSON decodes the data array according to "type". Shape consistency
// is checked by Validate, not here, so a bad shape surfaces as an inference
// error rather than a decoding error.
func (t *Tensor) UnmarshalJSON(b []byte) error {
	var w tensorWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out := Tensor{Kind: w.Kind, Shape: w.Shape}
	switch w.Kind {
	case TensorFloat32:
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &out.Float32); err != nil {
				return fmt.Errorf("tensor data: %w", err)
			}
		}
	case TensorInt64:
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &out.Int64); err != nil {
				return fmt.Errorf("tensor data: %w", err)
			}
		}
	default:
		return fmt.Errorf("tensor: unsupported type %q", w.Kind)
	}
	*t = out
	return nil
}

// InferencePayload asks the registry to run one model.
type InferencePayload struct {
	Inputs    map[string]Tensor `json:"inputs" jsonschema:"required"`
	ModelPath string            `json:"model_path" jsonschema:"required,description=Model file relative to the model directory"`
}

// OutputTensor is one named model output. Data is []float32 or []int64.
type OutputTensor struct {
	Data  any     `json:"data"`
	Shape []int64 `json:"shape"`
}

// InferenceResult is the outcome of an inference call.
type InferenceResult struct {
	Outputs map[string]OutputTensor `json:"outputs"`
	Error   string                  `json:"error,omitempty"`
}

// InferenceErrorResult builds a failed result with an empty output map.
func InferenceErrorResult(err error) InferenceResult {
	return InferenceResult{Outputs: map[string]OutputTensor{}, Error: err.Error()}
}

// OutputFromTensor converts a tensor into its output form.
func OutputFromTensor(t Tensor) (OutputTensor, error) {
	switch t.Kind {
	case TensorFloat32:
		return OutputTensor{Data: t.Float32, Shape: t.Shape}, nil
	case TensorInt64:
		return OutputTensor{Data: t.Int64, Shape: t.Shape}, nil
	default:
		return OutputTensor{}, fmt.Errorf("unsupported output type %q", t.Kind)
	}
}
