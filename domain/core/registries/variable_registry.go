package registries

import (
	"payflow-backend/domain/core/valueobjects"
)

// VariableRegistry holds the typed metadata of input and intermediate
// variables in two independent buckets keyed by name. It is strictly
// data-holding: no execution logic, no validation against the graph.
// Iteration follows insertion order so textual and JSON projections
// are deterministic.
//
// The registry is not synchronized; it is owned by a single graph
// instance and shares that instance's single-writer discipline.
type VariableRegistry struct {
	inputs            map[string]*valueobjects.Variable
	intermediates     map[string]*valueobjects.Variable
	inputOrder        []string
	intermediateOrder []string
}

// NewVariableRegistry creates an empty registry
func NewVariableRegistry() *VariableRegistry {
	return &VariableRegistry{
		inputs:        make(map[string]*valueobjects.Variable),
		intermediates: make(map[string]*valueobjects.Variable),
	}
}

// Put registers a variable in the bucket matching its kind. Re-adding
// an existing name overwrites silently and keeps the original
// insertion position; this is intentional upsert behavior, not an
// error. A name registered earlier under the other kind is left alone.
func (r *VariableRegistry) Put(v *valueobjects.Variable) {
	bucket, order := r.bucket(v.Kind)
	if _, exists := bucket[v.Name]; !exists {
		*order = append(*order, v.Name)
	}
	bucket[v.Name] = v
}

// Get looks a variable up by name, inputs first
func (r *VariableRegistry) Get(name string) (*valueobjects.Variable, bool) {
	if v, ok := r.inputs[name]; ok {
		return v, true
	}
	if v, ok := r.intermediates[name]; ok {
		return v, true
	}
	return nil, false
}

// Remove deletes a variable from both buckets.
// Returns true if at least one entry was removed.
func (r *VariableRegistry) Remove(name string) bool {
	removed := false
	if _, ok := r.inputs[name]; ok {
		delete(r.inputs, name)
		r.inputOrder = removeName(r.inputOrder, name)
		removed = true
	}
	if _, ok := r.intermediates[name]; ok {
		delete(r.intermediates, name)
		r.intermediateOrder = removeName(r.intermediateOrder, name)
		removed = true
	}
	return removed
}

// Update applies whitelisted field changes to an existing variable,
// searching inputs first. Returns false if the name is unknown.
func (r *VariableRegistry) Update(name string, update valueobjects.VariableUpdate) bool {
	if v, ok := r.inputs[name]; ok {
		update.Apply(v)
		return true
	}
	if v, ok := r.intermediates[name]; ok {
		update.Apply(v)
		return true
	}
	return false
}

// Inputs returns the input variables in insertion order
func (r *VariableRegistry) Inputs() []*valueobjects.Variable {
	return collect(r.inputs, r.inputOrder)
}

// Intermediates returns the intermediate variables in insertion order
func (r *VariableRegistry) Intermediates() []*valueobjects.Variable {
	return collect(r.intermediates, r.intermediateOrder)
}

// InputNames returns the input variable names in insertion order
func (r *VariableRegistry) InputNames() []string {
	return append([]string{}, r.inputOrder...)
}

// IntermediateNames returns the intermediate variable names in insertion order
func (r *VariableRegistry) IntermediateNames() []string {
	return append([]string{}, r.intermediateOrder...)
}

// InputCount returns the number of input variables
func (r *VariableRegistry) InputCount() int {
	return len(r.inputs)
}

// IntermediateCount returns the number of intermediate variables
func (r *VariableRegistry) IntermediateCount() int {
	return len(r.intermediates)
}

// Clear drops every variable
func (r *VariableRegistry) Clear() {
	r.inputs = make(map[string]*valueobjects.Variable)
	r.intermediates = make(map[string]*valueobjects.Variable)
	r.inputOrder = nil
	r.intermediateOrder = nil
}

func (r *VariableRegistry) bucket(kind valueobjects.VariableKind) (map[string]*valueobjects.Variable, *[]string) {
	if kind == valueobjects.KindInput {
		return r.inputs, &r.inputOrder
	}
	return r.intermediates, &r.intermediateOrder
}

func collect(bucket map[string]*valueobjects.Variable, order []string) []*valueobjects.Variable {
	out := make([]*valueobjects.Variable, 0, len(order))
	for _, name := range order {
		out = append(out, bucket[name])
	}
	return out
}

func removeName(order []string, name string) []string {
	for i, n := range order {
		if n == name {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
