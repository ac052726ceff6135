// Package wazero exposes host functions to WebAssembly guests over the
// linear-memory call/copy convention.
//
// Each capability function F in the registry becomes two imports in the host
// module (default "env"):
//
//	host_F(ptr, len) -> i32               run F on the JSON request at ptr, stage the response
//	host_copy_F_result(dest, max) -> i32  copy min(max, staged) bytes to dest
//
// The db_query and onnx_query copies are also exported under their short
// names host_copy_result and host_copy_onnx_result.
//
// A guest calls, allocates a buffer of the returned size, then copies.
// Results are staged per guest instance. A second call before the copy
// returns -1 and leaves the first result staged.
//
// # Basic Usage
//
//	registry, err := hostfuncs.NewRegistry(
//	    hostfuncs.WithBundle(hostfuncs.AllBundles(services)),
//	)
//	if err != nil {
//	    return err
//	}
//
//	runtime := wazero.NewRuntime(ctx)
//	bridge, err := wazero.RegisterWithRuntime(ctx, runtime, registry)
//
// # Custom Handlers
//
// Functions outside the call/copy convention, like logging, use WithCustomHandler:
//
//	wazero.RegisterWithRuntime(ctx, runtime, registry,
//	    wazero.WithCustomHandler(wazero.CustomHandler{
//	        Name:        "log_message",
//	        Handler:     logMessageHandler,
//	        ParamTypes:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
//	        ResultTypes: []api.ValueType{},
//	    }),
//	)
package wazero
