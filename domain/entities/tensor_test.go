package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFloatTensor(t *testing.T) {
	tensor, err := NewFloatTensor([]float32{1, 2, 3, 4}, []int64{2, 2})
	require.NoError(t, err)
	assert.Equal(t, 4, tensor.Len())

	_, err = NewFloatTensor([]float32{1, 2, 3}, []int64{2, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 4 elements, got 3")

	_, err = NewInt64Tensor([]int64{1}, []int64{-1})
	require.Error(t, err)
}

func TestTensor_ShapeOverflow(t *testing.T) {
	_, err := NewFloatTensor([]float32{}, []int64{1 << 32, 1 << 32})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflows")

	n, err := Tensor{Shape: []int64{0, 1 << 62, 1 << 62}}.Elements()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestTensor_ScalarShape(t *testing.T) {
	tensor, err := NewInt64Tensor([]int64{7}, []int64{})
	require.NoError(t, err)
	assert.Equal(t, 1, tensor.Len())
}

func TestTensor_JSON(t *testing.T) {
	var payload InferencePayload
	raw := `{"model_path":"test.yaml","inputs":{"input":{"type":"float","data":[1,2,3,4],"shape":[1,4]},"ids":{"type":"int64","data":[5],"shape":[1]}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.Equal(t, "test.yaml", payload.ModelPath)
	input := payload.Inputs["input"]
	assert.Equal(t, TensorFloat32, input.Kind)
	assert.Equal(t, []float32{1, 2, 3, 4}, input.Float32)
	assert.NoError(t, input.Validate())
	assert.Equal(t, []int64{5}, payload.Inputs["ids"].Int64)

	b, err := json.Marshal(input)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"float","data":[1,2,3,4],"shape":[1,4]}`, string(b))
}

func TestTensor_UnknownType(t *testing.T) {
	var tensor Tensor
	err := json.Unmarshal([]byte(`{"type":"bfloat16","data":[1],"shape":[1]}`), &tensor)
	require.Error(t, err)
}

func TestTensor_BadShapeDecodesButFailsValidation(t *testing.T) {
	var tensor Tensor
	require.NoError(t, json.Unmarshal([]byte(`{"type":"int64","data":[1,2,3],"shape":[2,2]}`), &tensor))
	assert.Error(t, tensor.Validate())
}

func TestInferenceErrorResult(t *testing.T) {
	b, err := json.Marshal(InferenceErrorResult(assert.AnError))
	require.NoError(t, err)
	assert.JSONEq(t, `{"outputs":{},"error":"`+assert.AnError.Error()+`"}`, string(b))
}
