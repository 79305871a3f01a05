package entities

// Args carries named argument values into a calculation
type Args map[string]interface{}

// Callable is the executable bound to a calculation node. The graph
// engine treats it as opaque beyond its declared parameter names,
// which are captured at registration time. This is the capability
// boundary for runtime-supplied calculation code: implementations are
// registered closures, never interpreted source.
type Callable interface {
	// Params returns the declared parameter names, in order
	Params() []string

	// Call invokes the calculation with the supplied arguments.
	// Callers are expected to pass only declared parameters; extra
	// keys are filtered out by the engine before invocation.
	Call(args Args) (interface{}, error)
}

// Func is a Callable backed by a Go closure
type Func struct {
	params []string
	fn     func(Args) (interface{}, error)
}

// NewFunc binds a closure to its declared parameter names
func NewFunc(params []string, fn func(Args) (interface{}, error)) *Func {
	if params == nil {
		params = []string{}
	}
	return &Func{params: params, fn: fn}
}

// Params returns the declared parameter names
func (f *Func) Params() []string {
	return f.params
}

// Call invokes the closure
func (f *Func) Call(args Args) (interface{}, error) {
	return f.fn(args)
}
