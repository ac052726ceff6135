package hostfuncs

import (
	"context"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/ports"
)

// The conversation handlers report model failures in the response's error
// field so a guest can keep its session going.

// NewSendMessageHandler appends to a chat session and returns the reply.
func NewSendMessageHandler(conv ports.Conversation) HostFunc[entities.SendMessageRequest, entities.ChatResponse] {
	return func(ctx context.Context, req entities.SendMessageRequest) (entities.ChatResponse, error) {
		reply, err := conv.SendMessage(ctx, req.Content, req.SessionID)
		if err != nil {
			return entities.ChatResponse{Error: err.Error()}, nil
		}
		return entities.ChatResponse{Response: reply}, nil
	}
}

// NewStoreMemoryHandler stores a retrievable memory fragment.
func NewStoreMemoryHandler(conv ports.Conversation) HostFunc[entities.StoreMemoryRequest, entities.StoreMemoryResponse] {
	return func(ctx context.Context, req entities.StoreMemoryRequest) (entities.StoreMemoryResponse, error) {
		if err := conv.StoreMemory(ctx, req.Content, req.SessionID); err != nil {
			return entities.StoreMemoryResponse{Error: err.Error()}, nil
		}
		return entities.StoreMemoryResponse{Stored: true}, nil
	}
}

// NewPredictHandler asks for JSON matching the request schema.
func NewPredictHandler(conv ports.Conversation) HostFunc[entities.PredictRequest, entities.ChatResponse] {
	return func(ctx context.Context, req entities.PredictRequest) (entities.ChatResponse, error) {
		out, err := conv.Predict(ctx, req.Content, string(req.Schema))
		if err != nil {
			return entities.ChatResponse{Error: err.Error()}, nil
		}
		return entities.ChatResponse{Response: out}, nil
	}
}

// NewCategoriseHandler asks the model to pick one of the request choices.
func NewCategoriseHandler(conv ports.Conversation) HostFunc[entities.CategoriseRequest, entities.ChatResponse] {
	return func(ctx context.Context, req entities.CategoriseRequest) (entities.ChatResponse, error) {
		out, err := conv.Categorise(ctx, req.Content, req.Choices)
		if err != nil {
			return entities.ChatResponse{Error: err.Error()}, nil
		}
		return entities.ChatResponse{Response: out}, nil
	}
}
