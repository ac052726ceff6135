package hostfuncs

import (
	"github.com/reglet-dev/artefact-host/domain/ports"
)

// HostFuncBundle is a pre-configured set of related host functions.
// Bundles allow registering multiple handlers at once for common use cases.
type HostFuncBundle interface {
	// Handlers returns a map of handler names to ByteHandler functions.
	Handlers() map[string]ByteHandler
}

// staticBundle implements HostFuncBundle with a fixed set of handlers.
type staticBundle struct {
	handlers map[string]ByteHandler
}

func (b *staticBundle) Handlers() map[string]ByteHandler {
	return b.handlers
}

// DatabaseBundle returns db_query and db_batch bound to store.
func DatabaseBundle(store ports.QueryExecutor) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			FuncDBQuery: NewJSONHandler(NewQueryHandler(store)),
			FuncDBBatch: NewJSONHandler(NewBatchHandler(store)),
		},
	}
}

// InferenceBundle returns onnx_query bound to engine.
func InferenceBundle(engine ports.InferenceEngine) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			FuncONNXQuery: NewJSONHandler(NewInferenceHandler(engine)),
		},
	}
}

// ChatBundle returns the conversation functions bound to conv.
func ChatBundle(conv ports.Conversation) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			FuncChatSendMessage: NewJSONHandler(NewSendMessageHandler(conv)),
			FuncChatStoreMemory: NewJSONHandler(NewStoreMemoryHandler(conv)),
			FuncPredict:         NewJSONHandler(NewPredictHandler(conv)),
			FuncCategorise:      NewJSONHandler(NewCategoriseHandler(conv)),
		},
	}
}

// Services are the shared component handles the bridge closes over. A nil
// handle leaves its bundle out.
type Services struct {
	Store        ports.QueryExecutor
	Engine       ports.InferenceEngine
	Conversation ports.Conversation
}

// compositeBundle combines multiple bundles into one.
type compositeBundle struct {
	bundles []HostFuncBundle
}

func (b *compositeBundle) Handlers() map[string]ByteHandler {
	result := make(map[string]ByteHandler)
	for _, bundle := range b.bundles {
		for name, handler := range bundle.Handlers() {
			result[name] = handler
		}
	}
	return result
}

// AllBundles returns a bundle of every capability function whose service is set.
func AllBundles(svc Services) HostFuncBundle {
	var bundles []HostFuncBundle
	if svc.Store != nil {
		bundles = append(bundles, DatabaseBundle(svc.Store))
	}
	if svc.Engine != nil {
		bundles = append(bundles, InferenceBundle(svc.Engine))
	}
	if svc.Conversation != nil {
		bundles = append(bundles, ChatBundle(svc.Conversation))
	}
	return &compositeBundle{bundles: bundles}
}

// WithBundle registers every handler of a bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		for name, h := range bundle.Handlers() {
			b.add(name, h)
		}
	}
}

// WithHandler registers a typed function behind NewJSONHandler.
//
//	WithHandler(FuncPredict, func(ctx context.Context, req entities.PredictRequest) (entities.ChatResponse, error) {
//	    return entities.ChatResponse{Response: "{}"}, nil
//	})
func WithHandler[Req any, Resp any](name string, fn HostFunc[Req, Resp]) RegistryOption {
	return func(b *registryBuilder) { b.add(name, NewJSONHandler(fn)) }
}
