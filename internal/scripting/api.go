package scripting

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/google/uuid"
)

// ScriptAPI is the `hookscope` global object exposed to scripts.
type ScriptAPI struct {
	logs    []string
	request *ScriptRequest
}

func newScriptAPI(req *ScriptRequest) *ScriptAPI {
	return &ScriptAPI{request: req}
}

func (a *ScriptAPI) registerOnRuntime(vm *goja.Runtime) {
	obj := vm.NewObject()

	obj.Set("log", func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		a.logs = append(a.logs, fmt.Sprint(args...))
		return goja.Undefined()
	})

	obj.Set("header", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		for k, v := range a.request.Headers {
			if strings.EqualFold(k, name) {
				return vm.ToValue(v)
			}
		}
		return goja.Undefined()
	})

	obj.Set("base64encode", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(base64.StdEncoding.EncodeToString([]byte(call.Argument(0).String())))
	})
	obj.Set("base64decode", func(call goja.FunctionCall) goja.Value {
		decoded, err := base64.StdEncoding.DecodeString(call.Argument(0).String())
		if err != nil {
			return vm.ToValue("")
		}
		return vm.ToValue(string(decoded))
	})
	obj.Set("sha256", func(call goja.FunctionCall) goja.Value {
		h := sha256.Sum256([]byte(call.Argument(0).String()))
		return vm.ToValue(hex.EncodeToString(h[:]))
	})
	// hmacSHA256(secret, message) is what most webhook senders sign with.
	obj.Set("hmacSHA256", func(call goja.FunctionCall) goja.Value {
		mac := hmac.New(sha256.New, []byte(call.Argument(0).String()))
		mac.Write([]byte(call.Argument(1).String()))
		return vm.ToValue(hex.EncodeToString(mac.Sum(nil)))
	})
	obj.Set("uuid", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(uuid.New().String())
	})

	vm.Set("hookscope", obj)
	vm.Set("req", a.request)
}
