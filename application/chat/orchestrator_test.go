package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/infrastructure/sqlite"
)

// fakeEngine replies "reply N" and embeds text by keyword.
type fakeEngine struct {
	vectors map[string][]float32
	prompts []string
	tasks   []entities.Task
	fail    bool
	mu      sync.Mutex
}

func (e *fakeEngine) Execute(context.Context, entities.InferencePayload) entities.InferenceResult {
	return entities.InferenceResult{}
}

func (e *fakeEngine) RunInference(_ context.Context, prompt string, task entities.Task) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return "", fmt.Errorf("model offline")
	}
	e.prompts = append(e.prompts, prompt)
	e.tasks = append(e.tasks, task)
	return fmt.Sprintf("reply %d", len(e.prompts)), nil
}

func (e *fakeEngine) RunEmbedding(_ context.Context, text string) ([]float32, error) {
	for key, vec := range e.vectors {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return []float32{0, 0, 1}, nil
}

func (e *fakeEngine) lastPrompt() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prompts[len(e.prompts)-1]
}

func newOrchestrator(t *testing.T, engine *fakeEngine) (*Orchestrator, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.MemoryLocator)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	o, err := New(context.Background(), store, engine)
	require.NoError(t, err)
	return o, store
}

func TestSendMessage_GlobalSessionHistory(t *testing.T) {
	engine := &fakeEngine{}
	o, _ := newOrchestrator(t, engine)
	ctx := context.Background()

	first, err := o.SendMessage(ctx, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "reply 1", first)

	_, err = o.SendMessage(ctx, "again", nil)
	require.NoError(t, err)

	history := o.History(nil)
	require.Len(t, history, 4)
	wantRoles := []entities.Role{entities.RoleUser, entities.RoleAssistant, entities.RoleUser, entities.RoleAssistant}
	for i, m := range history {
		assert.Equal(t, wantRoles[i], m.Role)
	}
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, "again", history[2].Content)

	assert.Equal(t, "user: hi\nassistant: reply 1\nuser: again", engine.lastPrompt())
	assert.Equal(t, []entities.Task{entities.TaskChat, entities.TaskChat}, engine.tasks)

	global := entities.GlobalSessionID
	assert.Len(t, o.History(&global), 4)
}

func TestSendMessage_SessionsAreIsolated(t *testing.T) {
	o, _ := newOrchestrator(t, &fakeEngine{})
	ctx := context.Background()
	a, b := "a", "b"

	_, err := o.SendMessage(ctx, "to a", &a)
	require.NoError(t, err)
	_, err = o.SendMessage(ctx, "to b", &b)
	require.NoError(t, err)

	assert.Len(t, o.History(&a), 2)
	assert.Len(t, o.History(&b), 2)
	assert.Empty(t, o.History(nil))
}

func TestSendMessage_InferenceFailureKeepsUserMessage(t *testing.T) {
	engine := &fakeEngine{fail: true}
	o, _ := newOrchestrator(t, engine)

	_, err := o.SendMessage(context.Background(), "hello", nil)
	require.Error(t, err)

	history := o.History(nil)
	require.Len(t, history, 1)
	assert.Equal(t, entities.RoleUser, history[0].Role)
}

func TestSendMessage_RetrievesRankedMemory(t *testing.T) {
	engine := &fakeEngine{vectors: map[string][]float32{
		"tea":    {1, 0, 0},
		"coffee": {0.9, 0.1, 0},
		"Leeds":  {0, 1, 0},
		"car":    {0, 0.2, 0.8},
		"drink":  {1, 0, 0},
	}}
	o, _ := newOrchestrator(t, engine)
	ctx := context.Background()

	for _, fact := range []string{"lives in Leeds", "likes tea", "owns a car", "hates coffee"} {
		require.NoError(t, o.StoreMemory(ctx, fact, nil))
	}
	other := "other"
	require.NoError(t, o.StoreMemory(ctx, "prefers tea cold", &other))

	_, err := o.SendMessage(ctx, "what should I drink?", nil)
	require.NoError(t, err)

	want := "context:\nlikes tea\n---\nhates coffee\n---\nlives in Leeds\n\nuser: what should I drink?"
	assert.Equal(t, want, engine.lastPrompt())
}

func TestStoreMemory_PersistsVector(t *testing.T) {
	engine := &fakeEngine{vectors: map[string][]float32{"tea": {0.5, 0.25, 0}}}
	o, store := newOrchestrator(t, engine)
	ctx := context.Background()

	require.NoError(t, o.StoreMemory(ctx, "likes tea", nil))

	res, err := store.Query(ctx, `SELECT session_id, content, embedding FROM chat_memory`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, entities.GlobalSessionID, res.Rows[0][0].AsText())
	assert.Equal(t, "likes tea", res.Rows[0][1].AsText())
	assert.Equal(t, []float32{0.5, 0.25, 0}, decodeVector(res.Rows[0][2].AsText()))
}

func TestPredictAndCategorise(t *testing.T) {
	engine := &fakeEngine{}
	o, _ := newOrchestrator(t, engine)
	ctx := context.Background()

	_, err := o.Predict(ctx, "Alice is 30", `{"type":"object"}`)
	require.NoError(t, err)
	assert.Contains(t, engine.lastPrompt(), `Schema: {"type":"object"}`)

	_, err = o.Categorise(ctx, "I love it", []string{"positive", "negative"})
	require.NoError(t, err)
	assert.Contains(t, engine.lastPrompt(), "choices: positive, negative")

	assert.Equal(t, []entities.Task{entities.TaskPredict, entities.TaskCategorise}, engine.tasks)
	assert.Empty(t, o.History(nil))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity(nil, []float32{1}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestVectorEncoding(t *testing.T) {
	assert.Equal(t, "[]", encodeVector(nil))
	assert.Equal(t, []float32{1.5, -2}, decodeVector(encodeVector([]float32{1.5, -2})))
	assert.Nil(t, decodeVector("not json"))
}
