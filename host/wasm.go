package host

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/artefact-host/infrastructure/wazero"
)

// logMessageHandler implements log_message(ptr, len): the guest passes a
// LogMessageWire JSON payload that is relayed into the host logger.
func (e *Executor) logMessageHandler() wazero.CustomHandler {
	fn := api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
		ptr, length := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
		if length > e.maxRequestSize {
			e.logger.WarnContext(ctx, "guest log message too large", "guest", mod.Name(), "length", length)
			return
		}
		payload, ok := mod.Memory().Read(ptr, length)
		if !ok {
			e.logger.WarnContext(ctx, "guest log message out of range", "guest", mod.Name(), "offset", ptr, "length", length)
			return
		}
		e.relay.Emit(ctx, wazero.GuestName(ctx, mod), payload)
	})

	return wazero.CustomHandler{
		Name:        "log_message",
		Handler:     fn,
		ParamTypes:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
		ResultTypes: []api.ValueType{},
	}
}

func (e *Executor) registerHostFunctions(ctx context.Context) error {
	bridge, err := wazero.RegisterWithRuntime(ctx, e.runtime, e.registry,
		wazero.WithModuleName(e.moduleName),
		wazero.WithMaxRequestSize(e.maxRequestSize),
		wazero.WithLogger(e.logger),
		wazero.WithCustomHandler(e.logMessageHandler()),
	)
	if err != nil {
		return err
	}
	e.bridge = bridge
	return nil
}
