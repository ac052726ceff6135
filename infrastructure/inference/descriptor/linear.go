package descriptor

import (
	"context"
	"fmt"

	"github.com/reglet-dev/artefact-host/domain/entities"
)

// linearSession computes y = xWᵀ + b over the last dimension of one float input.
type linearSession struct {
	input   string
	output  string
	weights [][]float32
	bias    []float32
}

func newLinearSession(d *entities.ModelDescriptor) *linearSession {
	s := &linearSession{input: d.Input, output: d.Output, weights: d.Weights, bias: d.Bias}
	if s.input == "" {
		s.input = "input"
	}
	if s.output == "" {
		s.output = "output"
	}
	return s
}

func (s *linearSession) Run(_ context.Context, inputs map[string]entities.Tensor) (map[string]entities.Tensor, error) {
	x, ok := inputs[s.input]
	if !ok {
		return nil, fmt.Errorf("missing input %q", s.input)
	}
	if x.Kind != entities.TensorFloat32 {
		return nil, fmt.Errorf("input %q: want float tensor, got %s", s.input, x.Kind)
	}
	if len(x.Shape) == 0 {
		return nil, fmt.Errorf("input %q: scalar input is not supported", s.input)
	}

	in := len(s.weights[0])
	out := len(s.weights)
	if last := x.Shape[len(x.Shape)-1]; last != int64(in) {
		return nil, fmt.Errorf("input %q: last dimension is %d, want %d", s.input, last, in)
	}

	rows := len(x.Float32) / in
	y := make([]float32, 0, rows*out)
	for r := 0; r < rows; r++ {
		row := x.Float32[r*in : (r+1)*in]
		for o := 0; o < out; o++ {
			var acc float32
			for i, w := range s.weights[o] {
				acc += w * row[i]
			}
			if len(s.bias) > 0 {
				acc += s.bias[o]
			}
			y = append(y, acc)
		}
	}

	shape := append([]int64(nil), x.Shape...)
	shape[len(shape)-1] = int64(out)
	t, err := entities.NewFloatTensor(y, shape)
	if err != nil {
		return nil, err
	}
	return map[string]entities.Tensor{s.output: t}, nil
}
