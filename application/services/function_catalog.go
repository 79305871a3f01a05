package services

import (
	"fmt"
	"sync"

	"payflow-backend/domain/core/entities"
	"payflow-backend/pkg/errors"
)

// FunctionBuilder constructs a callable bound to the parameter names of
// one calculation node. Builders let a single catalog entry like "sum"
// serve nodes of any arity.
type FunctionBuilder func(params []string) entities.Callable

// FunctionCatalog maps function names to builders. Calculation nodes
// created over the API reference their computation by catalog name;
// the catalog resolves the name into a closure at node creation time.
// Safe for concurrent use.
type FunctionCatalog struct {
	mu       sync.RWMutex
	builders map[string]FunctionBuilder
}

// NewFunctionCatalog creates a catalog preloaded with the built-in
// payroll arithmetic functions.
func NewFunctionCatalog() *FunctionCatalog {
	c := &FunctionCatalog{builders: make(map[string]FunctionBuilder)}

	c.Register("sum", func(params []string) entities.Callable {
		return entities.NewFunc(params, func(args entities.Args) (interface{}, error) {
			total := 0.0
			for _, name := range params {
				v, err := toFloat(name, args[name])
				if err != nil {
					return nil, err
				}
				total += v
			}
			return total, nil
		})
	})

	c.Register("product", func(params []string) entities.Callable {
		return entities.NewFunc(params, func(args entities.Args) (interface{}, error) {
			total := 1.0
			for _, name := range params {
				v, err := toFloat(name, args[name])
				if err != nil {
					return nil, err
				}
				total *= v
			}
			return total, nil
		})
	})

	// First parameter minus the rest.
	c.Register("difference", func(params []string) entities.Callable {
		return entities.NewFunc(params, func(args entities.Args) (interface{}, error) {
			if len(params) == 0 {
				return 0.0, nil
			}
			total, err := toFloat(params[0], args[params[0]])
			if err != nil {
				return nil, err
			}
			for _, name := range params[1:] {
				v, err := toFloat(name, args[name])
				if err != nil {
					return nil, err
				}
				total -= v
			}
			return total, nil
		})
	})

	// First parameter divided by the second.
	c.Register("ratio", func(params []string) entities.Callable {
		return entities.NewFunc(params, func(args entities.Args) (interface{}, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("ratio requires exactly 2 parameters, got %d", len(params))
			}
			num, err := toFloat(params[0], args[params[0]])
			if err != nil {
				return nil, err
			}
			den, err := toFloat(params[1], args[params[1]])
			if err != nil {
				return nil, err
			}
			if den == 0 {
				return nil, fmt.Errorf("division by zero: %s is 0", params[1])
			}
			return num / den, nil
		})
	})

	// Base amount times a rate, the usual contribution formula shape.
	c.Register("apply_rate", func(params []string) entities.Callable {
		return entities.NewFunc(params, func(args entities.Args) (interface{}, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("apply_rate requires exactly 2 parameters, got %d", len(params))
			}
			base, err := toFloat(params[0], args[params[0]])
			if err != nil {
				return nil, err
			}
			rate, err := toFloat(params[1], args[params[1]])
			if err != nil {
				return nil, err
			}
			return base * rate, nil
		})
	})

	c.Register("min", func(params []string) entities.Callable {
		return entities.NewFunc(params, pickFunc(params, func(best, v float64) bool { return v < best }))
	})

	c.Register("max", func(params []string) entities.Callable {
		return entities.NewFunc(params, pickFunc(params, func(best, v float64) bool { return v > best }))
	})

	c.Register("identity", func(params []string) entities.Callable {
		return entities.NewFunc(params, func(args entities.Args) (interface{}, error) {
			if len(params) == 0 {
				return nil, nil
			}
			return args[params[0]], nil
		})
	})

	return c
}

// Register adds or replaces a builder under the given name.
func (c *FunctionCatalog) Register(name string, builder FunctionBuilder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builders[name] = builder
}

// Resolve builds the callable registered under name for the given
// parameter list. Unknown names fail with an INVALID_FUNCTION error.
func (c *FunctionCatalog) Resolve(name string, params []string) (entities.Callable, error) {
	c.mu.RLock()
	builder, ok := c.builders[name]
	c.mu.RUnlock()

	if !ok {
		return nil, errors.NewInvalidFunctionError("").
			WithDetail("function_name", name)
	}
	return builder(params), nil
}

// Names returns the registered function names, unordered.
func (c *FunctionCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.builders))
	for name := range c.builders {
		names = append(names, name)
	}
	return names
}

func pickFunc(params []string, better func(best, v float64) bool) func(entities.Args) (interface{}, error) {
	return func(args entities.Args) (interface{}, error) {
		if len(params) == 0 {
			return 0.0, nil
		}
		best, err := toFloat(params[0], args[params[0]])
		if err != nil {
			return nil, err
		}
		for _, name := range params[1:] {
			v, err := toFloat(name, args[name])
			if err != nil {
				return nil, err
			}
			if better(best, v) {
				best = v
			}
		}
		return best, nil
	}
}

// toFloat coerces the numeric representations that survive JSON
// decoding and direct Go calls into float64.
func toFloat(name string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("variable '%s' is not numeric (got %T)", name, value)
	}
}
