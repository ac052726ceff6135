package entities

import (
	"bytes"
	"encoding/json"
)

// GlobalSessionID keys the history shared by calls that name no session.
const GlobalSessionID = "global"

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a chat history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SessionKey returns id, or GlobalSessionID when id is nil or empty.
func SessionKey(id *string) string {
	if id == nil || *id == "" {
		return GlobalSessionID
	}
	return *id
}

// SendMessageRequest is the chat_send_message payload.
type SendMessageRequest struct {
	SessionID *string `json:"session_id,omitempty"`
	Content   string  `json:"content" jsonschema:"required"`
}

// StoreMemoryRequest is the chat_store_memory payload.
type StoreMemoryRequest struct {
	SessionID *string `json:"session_id,omitempty"`
	Content   string  `json:"content" jsonschema:"required"`
}

// SchemaText is a schema given either as a JSON string or as an inline JSON
// document. Both decode to the document text.
type SchemaText string

// UnmarshalJSON accepts a string or any JSON document.
func (s *SchemaText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = SchemaText(str)
		return nil
	}
	*s = SchemaText(b)
	return nil
}

// PredictRequest is the predict payload.
type PredictRequest struct {
	Content string     `json:"content" jsonschema:"required"`
	Schema  SchemaText `json:"schema" jsonschema:"required"`
}

// CategoriseRequest is the categorise payload.
type CategoriseRequest struct {
	Content string   `json:"content" jsonschema:"required"`
	Choices []string `json:"choices" jsonschema:"required"`
}

// ChatResponse carries generated text, or Error when generation failed.
type ChatResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// StoreMemoryResponse acknowledges a stored memory fragment.
type StoreMemoryResponse struct {
	Error  string `json:"error,omitempty"`
	Stored bool   `json:"stored"`
}
