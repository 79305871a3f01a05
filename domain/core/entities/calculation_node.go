package entities

import (
	"errors"
	"time"
)

// CalculationNode is a vertex in the impact graph: a description of a
// payroll calculation step with its bound executable. The node owns
// its callable exclusively; metadata can be updated in place but the
// function binding is immutable; to change it, remove and recreate
// the node.
type CalculationNode struct {
	id string
	fn Callable

	Description    string
	InputVariables []string
	OutputVariable string
	LegalReference string
	CreatedAt      time.Time
}

// NewCalculationNode creates a node with a resolved callable.
// A nil callable is rejected: nodes without an executable cannot exist.
func NewCalculationNode(id string, fn Callable, description string) (*CalculationNode, error) {
	if id == "" {
		return nil, errors.New("node ID cannot be empty")
	}
	if fn == nil {
		return nil, errors.New("node requires a callable function")
	}
	return &CalculationNode{
		id:             id,
		fn:             fn,
		Description:    description,
		InputVariables: []string{},
		CreatedAt:      time.Now(),
	}, nil
}

// ID returns the node's unique identifier
func (n *CalculationNode) ID() string {
	return n.id
}

// Function returns the bound callable
func (n *CalculationNode) Function() Callable {
	return n.fn
}

// NodeUpdate carries the whitelisted mutable metadata of a node.
// The bound function cannot be rebound through an update.
type NodeUpdate struct {
	Description    *string   `json:"description,omitempty"`
	InputVariables *[]string `json:"input_variables,omitempty"`
	OutputVariable *string   `json:"output_variable,omitempty"`
	LegalReference *string   `json:"legal_reference,omitempty"`
}

// Apply mutates the node's metadata in place with the populated fields
func (u NodeUpdate) Apply(n *CalculationNode) {
	if u.Description != nil {
		n.Description = *u.Description
	}
	if u.InputVariables != nil {
		n.InputVariables = *u.InputVariables
	}
	if u.OutputVariable != nil {
		n.OutputVariable = *u.OutputVariable
	}
	if u.LegalReference != nil {
		n.LegalReference = *u.LegalReference
	}
}
