// Package scripting evaluates JavaScript filter expressions against
// captured requests.
package scripting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/sadopc/hookscope/internal/capture"
)

// Engine compiles and runs filter scripts.
type Engine struct {
	timeout time.Duration
}

// NewEngine creates a new scripting engine with the given per-evaluation
// timeout.
func NewEngine(timeout time.Duration) *Engine {
	if timeout == 0 {
		timeout = time.Second
	}
	return &Engine{timeout: timeout}
}

// Result holds one evaluation.
type Result struct {
	Match bool
	Logs  []string
	Err   error
}

// Filter is a compiled filter expression, e.g.
//
//	req.method == "POST" && req.body.type == "invoice.paid"
type Filter struct {
	source  string
	program *goja.Program
	timeout time.Duration
}

// Compile parses src once. The expression's truthiness decides whether a
// record matches.
func (e *Engine) Compile(src string) (*Filter, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty filter")
	}
	program, err := goja.Compile("filter", src, false)
	if err != nil {
		return nil, fmt.Errorf("compiling filter: %w", err)
	}
	return &Filter{source: src, program: program, timeout: e.timeout}, nil
}

// String returns the filter source.
func (f *Filter) String() string { return f.source }

// Eval runs the filter against rec on a fresh runtime.
func (f *Filter) Eval(rec capture.Record) *Result {
	api := newScriptAPI(NewScriptRequest(rec))
	val, err := f.run(api)
	res := &Result{Logs: api.logs, Err: err}
	if err == nil {
		res.Match = val.ToBoolean()
	}
	return res
}

// Match reports whether rec passes the filter. Evaluation errors count as
// no match.
func (f *Filter) Match(rec capture.Record) bool {
	return f.Eval(rec).Match
}

func (f *Filter) run(api *ScriptAPI) (goja.Value, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	api.registerOnRuntime(vm)

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	// Interrupt VM on timeout
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("filter timeout exceeded")
		case <-done:
		}
	}()

	val, err := vm.RunProgram(f.program)
	close(done)

	if err != nil {
		return nil, fmt.Errorf("filter error: %w", err)
	}
	return val, nil
}
