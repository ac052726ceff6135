package lua

import (
	"encoding/json"

	lua "github.com/yuin/gopher-lua"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/hostfuncs"
)

// serializedGlobals map each global taking a JSON request string to the
// capability function it dispatches to.
var serializedGlobals = map[string]string{
	"__host_sqlite_call":   hostfuncs.FuncDBQuery,
	"__host_db_batch_call": hostfuncs.FuncDBBatch,
	"__host_onnx_call":     hostfuncs.FuncONNXQuery,
}

// installBridge sets the globals for the functions present in the registry.
// A guest without a capability simply does not see its globals.
func (e *Engine) installBridge(L *lua.LState) {
	for global, function := range serializedGlobals {
		if !e.registry.Has(function) {
			continue
		}
		L.SetGlobal(global, L.NewFunction(func(L *lua.LState) int {
			L.Push(lua.LString(e.invoke(L, function, []byte(L.CheckString(1)))))
			return 1
		}))
	}

	chat := L.NewTable()
	installed := false

	if e.registry.Has(hostfuncs.FuncPredict) {
		predict := L.NewFunction(e.predict)
		L.SetGlobal("__host_predict_call", predict)
		L.SetField(chat, "predict", predict)
		installed = true
	}
	if e.registry.Has(hostfuncs.FuncCategorise) {
		categorise := L.NewFunction(e.categorise)
		L.SetGlobal("__host_categorise_call", categorise)
		L.SetField(chat, "categorise", categorise)
		installed = true
	}
	if e.registry.Has(hostfuncs.FuncChatSendMessage) {
		L.SetField(chat, "sendMessage", L.NewFunction(e.sendMessage))
		installed = true
	}
	if e.registry.Has(hostfuncs.FuncChatStoreMemory) {
		L.SetField(chat, "storeMemory", L.NewFunction(e.storeMemory))
		installed = true
	}
	if installed {
		L.SetGlobal("chat", chat)
	}
}

// invoke dispatches a serialized request and returns the serialized result.
// Failures come back as an error envelope, never as a Lua error.
func (e *Engine) invoke(L *lua.LState, function string, request []byte) string {
	ctx := hostfuncs.WithGuest(luaContext(L), e.guest)
	resp, err := e.registry.Invoke(ctx, function, request)
	if err != nil {
		e.logger.ErrorContext(ctx, "host function failed", "function", function, "error", err)
	}
	return string(resp)
}

// invokeChat dispatches req and returns the response text. When the
// response carries an error, the whole envelope is returned instead.
func (e *Engine) invokeChat(L *lua.LState, function string, req any) (string, string) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", string(hostfuncs.NewValidationError(err.Error()).ToJSON())
	}
	raw := e.invoke(L, function, payload)

	var resp entities.ChatResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil || resp.Error != "" {
		return "", raw
	}
	return resp.Response, ""
}

// predict(content, schema) where schema is a JSON string or a table.
func (e *Engine) predict(L *lua.LState) int {
	content := L.CheckString(1)

	var schema string
	switch v := L.CheckAny(2).(type) {
	case lua.LString:
		schema = string(v)
	case *lua.LTable:
		doc, err := toGo(v)
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}
		b, err := json.Marshal(doc)
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}
		schema = string(b)
	default:
		L.ArgError(2, "schema must be a string or a table")
		return 0
	}

	out, envelope := e.invokeChat(L, hostfuncs.FuncPredict, entities.PredictRequest{
		Content: content,
		Schema:  entities.SchemaText(schema),
	})
	if envelope != "" {
		L.Push(lua.LString(envelope))
	} else {
		L.Push(lua.LString(out))
	}
	return 1
}

// categorise(content, choices)
func (e *Engine) categorise(L *lua.LState) int {
	content := L.CheckString(1)
	tbl := L.CheckTable(2)

	choices := make([]string, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		choices = append(choices, L.ToStringMeta(tbl.RawGetInt(i)).String())
	}

	out, envelope := e.invokeChat(L, hostfuncs.FuncCategorise, entities.CategoriseRequest{
		Content: content,
		Choices: choices,
	})
	if envelope != "" {
		L.Push(lua.LString(envelope))
	} else {
		L.Push(lua.LString(out))
	}
	return 1
}

// sendMessage(content [, session]) returns the reply, or "Error: ..." text.
func (e *Engine) sendMessage(L *lua.LState) int {
	req := entities.SendMessageRequest{Content: L.CheckString(1), SessionID: optSession(L, 2)}

	out, envelope := e.invokeChat(L, hostfuncs.FuncChatSendMessage, req)
	if envelope != "" {
		L.Push(lua.LString("Error: " + envelopeMessage(envelope)))
		return 1
	}
	L.Push(lua.LString(out))
	return 1
}

// storeMemory(content [, session]) returns true, or nil and the error message.
func (e *Engine) storeMemory(L *lua.LState) int {
	req := entities.StoreMemoryRequest{Content: L.CheckString(1), SessionID: optSession(L, 2)}
	payload, err := json.Marshal(req)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	raw := e.invoke(L, hostfuncs.FuncChatStoreMemory, payload)
	var resp entities.StoreMemoryResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil || !resp.Stored {
		L.Push(lua.LNil)
		L.Push(lua.LString(envelopeMessage(raw)))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func optSession(L *lua.LState, n int) *string {
	if L.GetTop() < n || L.Get(n) == lua.LNil {
		return nil
	}
	s := L.CheckString(n)
	return &s
}

func envelopeMessage(raw string) string {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil || resp.Error == "" {
		return raw
	}
	return resp.Error
}
