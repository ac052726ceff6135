package hostfuncs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/infrastructure/sqlite"
)

type MockConversation struct {
	mock.Mock
}

func (m *MockConversation) SendMessage(ctx context.Context, content string, sessionID *string) (string, error) {
	args := m.Called(ctx, content, sessionID)
	return args.String(0), args.Error(1)
}

func (m *MockConversation) Predict(ctx context.Context, content, schema string) (string, error) {
	args := m.Called(ctx, content, schema)
	return args.String(0), args.Error(1)
}

func (m *MockConversation) Categorise(ctx context.Context, content string, choices []string) (string, error) {
	args := m.Called(ctx, content, choices)
	return args.String(0), args.Error(1)
}

func (m *MockConversation) StoreMemory(ctx context.Context, content string, sessionID *string) error {
	args := m.Called(ctx, content, sessionID)
	return args.Error(0)
}

type stubEngine struct{}

func (stubEngine) Execute(_ context.Context, p entities.InferencePayload) entities.InferenceResult {
	if p.ModelPath != "ok.onnx" {
		return entities.InferenceErrorResult(errors.New("model not found: " + p.ModelPath))
	}
	return entities.InferenceResult{Outputs: map[string]entities.OutputTensor{
		"y": {Data: []float32{1}, Shape: []int64{1}},
	}}
}

func (stubEngine) RunInference(context.Context, string, entities.Task) (string, error) {
	return "", nil
}

func (stubEngine) RunEmbedding(context.Context, string) ([]float32, error) {
	return nil, nil
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.MemoryLocator)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDatabaseBundle(t *testing.T) {
	handlers := DatabaseBundle(newStore(t)).Handlers()
	require.Len(t, handlers, 2)
	ctx := context.Background()

	query := handlers[FuncDBQuery]
	resp, err := query(ctx, []byte(`{"sql":"CREATE TABLE t(id INTEGER PRIMARY KEY, v TEXT)","method":"run","params":[]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"changes":0,"last_insert_row_id":0,"rows":null}`, string(resp))

	resp, err = query(ctx, []byte(`{"sql":"INSERT INTO t(v) VALUES (?)","method":"run","params":["x"]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"changes":1,"last_insert_row_id":1,"rows":null}`, string(resp))

	resp, err = query(ctx, []byte(`{"sql":"SELECT v FROM t","method":"all"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"rows":[["x"]]}`, string(resp))

	t.Run("query error is data", func(t *testing.T) {
		resp, err := query(ctx, []byte(`{"sql":"SELEKT","method":"all"}`))
		require.NoError(t, err)
		var res entities.QueryResult
		require.NoError(t, json.Unmarshal(resp, &res))
		assert.NotEmpty(t, res.Error)
	})

	t.Run("unsupported method is a protocol error", func(t *testing.T) {
		resp, err := query(ctx, []byte(`{"sql":"SELECT 1","method":"explode"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"error":"unsupported method: explode","code":"PROTOCOL_ERROR"}`, string(resp))
	})

	t.Run("composite parameter is rejected", func(t *testing.T) {
		resp, err := query(ctx, []byte(`{"sql":"SELECT ?","method":"get","params":[{"a":1}]}`))
		require.NoError(t, err)
		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(resp, &errResp))
		assert.Equal(t, CodeValidation, errResp.Code)
	})

	batch := handlers[FuncDBBatch]

	t.Run("batch commits", func(t *testing.T) {
		resp, err := batch(ctx, []byte(`{"queries":[
			{"sql":"INSERT INTO t(v) VALUES ('y')","method":"run"},
			{"sql":"SELECT count(*) FROM t","method":"get"}
		]}`))
		require.NoError(t, err)
		var res entities.BatchResult
		require.NoError(t, json.Unmarshal(resp, &res))
		require.Len(t, res.Results, 2)
		assert.Equal(t, int64(2), res.Results[1].Rows[0][0].AsInt())
	})

	t.Run("batch aborts", func(t *testing.T) {
		resp, err := batch(ctx, []byte(`{"queries":[
			{"sql":"INSERT INTO t(v) VALUES ('z')","method":"run"},
			{"sql":"INSERT INTO nowhere VALUES (1)","method":"run"}
		]}`))
		require.NoError(t, err)
		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(resp, &errResp))
		assert.Equal(t, CodeBatchAborted, errResp.Code)
		assert.Contains(t, errResp.Error, "statement 1")

		resp, err = query(ctx, []byte(`{"sql":"SELECT count(*) FROM t","method":"get"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"rows":[[2]]}`, string(resp))
	})
}

func TestInferenceBundle(t *testing.T) {
	handler := InferenceBundle(stubEngine{}).Handlers()[FuncONNXQuery]
	ctx := context.Background()

	resp, err := handler(ctx, []byte(`{"model_path":"ok.onnx","inputs":{"x":{"type":"float","data":[1],"shape":[1]}}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"outputs":{"y":{"data":[1],"shape":[1]}}}`, string(resp))

	resp, err = handler(ctx, []byte(`{"model_path":"missing.onnx","inputs":{}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"outputs":{},"error":"model not found: missing.onnx"}`, string(resp))

	resp, err = handler(ctx, []byte(`{"model_path":"ok.onnx","inputs":{"x":{"type":"complex","data":[1],"shape":[1]}}}`))
	require.NoError(t, err)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, CodeValidation, errResp.Code)
}

func TestChatBundle(t *testing.T) {
	conv := new(MockConversation)
	handlers := ChatBundle(conv).Handlers()
	require.Len(t, handlers, 4)
	ctx := context.Background()

	session := "s1"
	conv.On("SendMessage", mock.Anything, "hi", &session).Return("hello", nil)
	conv.On("SendMessage", mock.Anything, "boom", (*string)(nil)).Return("", errors.New("no text generation model is available"))
	conv.On("StoreMemory", mock.Anything, "likes tea", (*string)(nil)).Return(nil)
	conv.On("Predict", mock.Anything, "Alice is 30", `{"type":"object"}`).Return(`{"age":30}`, nil)
	conv.On("Categorise", mock.Anything, "great", []string{"pos", "neg"}).Return("pos", nil)

	resp, err := handlers[FuncChatSendMessage](ctx, []byte(`{"content":"hi","session_id":"s1"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"hello"}`, string(resp))

	resp, err = handlers[FuncChatSendMessage](ctx, []byte(`{"content":"boom"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"no text generation model is available"}`, string(resp))

	resp, err = handlers[FuncChatStoreMemory](ctx, []byte(`{"content":"likes tea"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"stored":true}`, string(resp))

	for _, body := range []string{
		`{"content":"Alice is 30","schema":{"type":"object"}}`,
		`{"content":"Alice is 30","schema":"{\"type\":\"object\"}"}`,
	} {
		resp, err = handlers[FuncPredict](ctx, []byte(body))
		require.NoError(t, err)
		assert.JSONEq(t, `{"response":"{\"age\":30}"}`, string(resp))
	}

	resp, err = handlers[FuncCategorise](ctx, []byte(`{"content":"great","choices":["pos","neg"]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"pos"}`, string(resp))

	conv.AssertExpectations(t)
}

func TestAllBundles(t *testing.T) {
	handlers := AllBundles(Services{Store: newStore(t), Engine: stubEngine{}, Conversation: new(MockConversation)}).Handlers()
	assert.Len(t, handlers, 7)

	handlers = AllBundles(Services{Engine: stubEngine{}}).Handlers()
	assert.Len(t, handlers, 1)
	assert.Contains(t, handlers, FuncONNXQuery)
}

func TestWithBundle_Registry(t *testing.T) {
	reg, err := NewRegistry(
		WithMiddleware(PanicRecoveryMiddleware()),
		WithBundle(DatabaseBundle(newStore(t))),
		WithBundle(InferenceBundle(stubEngine{})),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{FuncDBBatch, FuncDBQuery, FuncONNXQuery}, reg.Names())

	_, err = NewRegistry(
		WithBundle(InferenceBundle(stubEngine{})),
		WithBundle(InferenceBundle(stubEngine{})),
	)
	assert.Error(t, err)
}

func TestWithHandler(t *testing.T) {
	type Req struct {
		N int `json:"n"`
	}
	type Resp struct {
		Double int `json:"double"`
	}

	reg, err := NewRegistry(WithHandler("double", func(_ context.Context, r Req) (Resp, error) {
		return Resp{Double: r.N * 2}, nil
	}))
	require.NoError(t, err)

	resp, err := reg.Invoke(context.Background(), "double", []byte(`{"n":21}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"double":42}`, string(resp))
}
