package ports

import "context"

// Conversation is the chat capability exposed to guests.
type Conversation interface {
	SendMessage(ctx context.Context, content string, sessionID *string) (string, error)
	Predict(ctx context.Context, content, schema string) (string, error)
	Categorise(ctx context.Context, content string, choices []string) (string, error)
	StoreMemory(ctx context.Context, content string, sessionID *string) error
}
