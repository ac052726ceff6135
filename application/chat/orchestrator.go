// Package chat implements the conversation orchestrator.
//
// It keeps one append-only history per session key, retrieves stored memory
// fragments by embedding similarity and routes prompts through the inference
// engine. Each history mutation is atomic, but a whole SendMessage is not one
// critical section: concurrent calls on the same session may interleave.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/reglet-dev/artefact-host/application/template"
	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/ports"
)

// MaxContextFragments bounds how many memory fragments are prepended to a prompt.
const MaxContextFragments = 3

const createMemoryTable = `CREATE TABLE IF NOT EXISTS chat_memory (
	id INTEGER PRIMARY KEY,
	session_id TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding TEXT NOT NULL
)`

const createMemoryIndex = `CREATE INDEX IF NOT EXISTS chat_memory_session_idx ON chat_memory(session_id)`

var _ ports.Conversation = (*Orchestrator)(nil)

// Orchestrator owns the session histories.
type Orchestrator struct {
	store    ports.QueryExecutor
	engine   ports.InferenceEngine
	prompts  ports.PromptRenderer
	logger   *slog.Logger
	sessions map[string][]entities.Message
	mu       sync.Mutex
	memoryOK bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPrompts replaces the prompt renderer.
func WithPrompts(r ports.PromptRenderer) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.prompts = r
		}
	}
}

// New builds an orchestrator and ensures the memory table exists. Failing to
// create the table is logged and leaves the orchestrator without retrieval.
func New(ctx context.Context, store ports.QueryExecutor, engine ports.InferenceEngine, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		store:    store,
		engine:   engine,
		logger:   slog.Default(),
		sessions: make(map[string][]entities.Message),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.prompts == nil {
		prompts, err := template.NewPromptEngine()
		if err != nil {
			return nil, err
		}
		o.prompts = prompts
	}

	o.memoryOK = true
	for _, stmt := range []string{createMemoryTable, createMemoryIndex} {
		if err := o.exec(ctx, stmt); err != nil {
			o.logger.Warn("chat: memory table unavailable, continuing without retrieval", "error", err)
			o.memoryOK = false
			break
		}
	}
	return o, nil
}

// History returns a copy of the history stored under sessionID.
func (o *Orchestrator) History(sessionID *string) []entities.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	h := o.sessions[entities.SessionKey(sessionID)]
	out := make([]entities.Message, len(h))
	copy(out, h)
	return out
}

// append adds msg to the session history and returns a snapshot of it.
func (o *Orchestrator) append(key string, msg entities.Message) []entities.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.sessions[key] = append(o.sessions[key], msg)
	h := o.sessions[key]
	out := make([]entities.Message, len(h))
	copy(out, h)
	return out
}

// SendMessage appends content to the session, asks the chat model for a
// reply with the session transcript and retrieved memory, appends the reply
// and returns it.
func (o *Orchestrator) SendMessage(ctx context.Context, content string, sessionID *string) (string, error) {
	key := entities.SessionKey(sessionID)
	history := o.append(key, entities.Message{Role: entities.RoleUser, Content: content})

	fragments, err := o.retrieve(ctx, key, content)
	if err != nil {
		o.logger.Warn("chat: memory retrieval failed", "session", key, "error", err)
	}

	data := template.ChatData{Context: fragments, History: make([]template.ChatLine, len(history))}
	for i, m := range history {
		data.History[i] = template.ChatLine{Role: string(m.Role), Content: m.Content}
	}
	prompt, err := o.prompts.Render(template.PromptChat, data)
	if err != nil {
		return "", err
	}

	reply, err := o.engine.RunInference(ctx, prompt, entities.TaskChat)
	if err != nil {
		return "", fmt.Errorf("chat inference: %w", err)
	}

	o.append(key, entities.Message{Role: entities.RoleAssistant, Content: reply})
	return reply, nil
}

// Predict asks the structured-output model for JSON matching schema. The
// reply is returned as is and is not validated.
func (o *Orchestrator) Predict(ctx context.Context, content, schema string) (string, error) {
	prompt, err := o.prompts.Render(template.PromptPredict, template.PredictData{Content: content, Schema: schema})
	if err != nil {
		return "", err
	}
	out, err := o.engine.RunInference(ctx, prompt, entities.TaskPredict)
	if err != nil {
		return "", fmt.Errorf("predict inference: %w", err)
	}
	return out, nil
}

// Categorise asks the model to pick one of choices. The reply is returned as
// is and may name none of them.
func (o *Orchestrator) Categorise(ctx context.Context, content string, choices []string) (string, error) {
	prompt, err := o.prompts.Render(template.PromptCategorise, template.CategoriseData{Content: content, Choices: choices})
	if err != nil {
		return "", err
	}
	out, err := o.engine.RunInference(ctx, prompt, entities.TaskCategorise)
	if err != nil {
		return "", fmt.Errorf("categorise inference: %w", err)
	}
	return out, nil
}

// StoreMemory embeds content and stores it under the session key.
func (o *Orchestrator) StoreMemory(ctx context.Context, content string, sessionID *string) error {
	vec, err := o.engine.RunEmbedding(ctx, content)
	if err != nil {
		return fmt.Errorf("embed memory: %w", err)
	}
	return o.exec(ctx,
		`INSERT INTO chat_memory (session_id, content, embedding) VALUES (?, ?, ?)`,
		entities.SessionKey(sessionID), content, encodeVector(vec))
}

type scored struct {
	content string
	score   float64
	id      int64
}

// retrieve returns up to MaxContextFragments stored fragments for key,
// ranked by cosine similarity to query.
func (o *Orchestrator) retrieve(ctx context.Context, key, query string) ([]string, error) {
	if !o.memoryOK {
		return nil, nil
	}

	payload, err := entities.NewQuery(entities.MethodAll,
		`SELECT id, content, embedding FROM chat_memory WHERE session_id = ?`, key)
	if err != nil {
		return nil, err
	}
	res, err := o.store.Execute(ctx, payload)
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		return nil, fmt.Errorf("query memory: %s", res.Error)
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}

	qvec, err := o.engine.RunEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates := make([]scored, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) != 3 {
			continue
		}
		candidates = append(candidates, scored{
			id:      row[0].AsInt(),
			content: row[1].AsText(),
			score:   cosineSimilarity(qvec, decodeVector(row[2].AsText())),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	n := min(len(candidates), MaxContextFragments)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[i].content
	}
	return out, nil
}

func (o *Orchestrator) exec(ctx context.Context, query string, params ...any) error {
	payload, err := entities.NewQuery(entities.MethodRun, query, params...)
	if err != nil {
		return err
	}
	res, err := o.store.Execute(ctx, payload)
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("%s", res.Error)
	}
	return nil
}

func encodeVector(vec []float32) string {
	if len(vec) == 0 {
		return "[]"
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeVector(raw string) []float32 {
	if raw == "" {
		return nil
	}
	out := []float32{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// cosineSimilarity tolerates vectors of different length by comparing the
// common prefix.
func cosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
