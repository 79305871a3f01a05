package valueobjects

import (
	"errors"
	"time"
)

// VariableKind categorizes a payroll variable
// Output variables are derived from the graph, never stored (see aggregates)
type VariableKind string

const (
	// KindInput marks data supplied from outside the system
	KindInput VariableKind = "input"

	// KindIntermediate marks a value produced by an internal calculation
	KindIntermediate VariableKind = "intermediate"
)

// ParseVariableKind parses a kind string
func ParseVariableKind(s string) (VariableKind, error) {
	switch VariableKind(s) {
	case KindInput, KindIntermediate:
		return VariableKind(s), nil
	default:
		return "", errors.New("variable kind must be 'input' or 'intermediate'")
	}
}

// DataType is the declared data type of a variable
type DataType string

const (
	TypeFloat  DataType = "float"
	TypeInt    DataType = "int"
	TypeBool   DataType = "bool"
	TypeString DataType = "string"
	TypeDate   DataType = "date"
)

// ParseDataType parses a data type string, defaulting to float when empty
func ParseDataType(s string) (DataType, error) {
	if s == "" {
		return TypeFloat, nil
	}
	switch DataType(s) {
	case TypeFloat, TypeInt, TypeBool, TypeString, TypeDate:
		return DataType(s), nil
	default:
		return "", errors.New("data type must be one of: float, int, bool, string, date")
	}
}

// Variable holds typed metadata for a payroll variable.
// The name is the identity, unique within a registry bucket and
// case-sensitive. DependsOn is informational only and is never
// validated against the graph.
type Variable struct {
	Name               string       `json:"name"`
	Kind               VariableKind `json:"type"`
	Description        string       `json:"description"`
	DataType           DataType     `json:"data_type"`
	LegalReference     string       `json:"legal_reference,omitempty"`
	CalculationFormula string       `json:"calculation_formula,omitempty"`
	DependsOn          []string     `json:"depends_on"`
	CreatedAt          time.Time    `json:"created_at"`
}

// NewVariable creates a variable with its creation timestamp
func NewVariable(name string, kind VariableKind, description string, dataType DataType) *Variable {
	return &Variable{
		Name:        name,
		Kind:        kind,
		Description: description,
		DataType:    dataType,
		DependsOn:   []string{},
		CreatedAt:   time.Now(),
	}
}

// VariableUpdate carries the whitelisted mutable fields of a variable.
// Nil pointers leave the current value untouched. Name, kind and the
// creation timestamp are not updatable.
type VariableUpdate struct {
	Description        *string   `json:"description,omitempty"`
	DataType           *DataType `json:"data_type,omitempty"`
	LegalReference     *string   `json:"legal_reference,omitempty"`
	CalculationFormula *string   `json:"calculation_formula,omitempty"`
	DependsOn          *[]string `json:"depends_on,omitempty"`
}

// Apply mutates the variable in place with the populated fields
func (u VariableUpdate) Apply(v *Variable) {
	if u.Description != nil {
		v.Description = *u.Description
	}
	if u.DataType != nil {
		v.DataType = *u.DataType
	}
	if u.LegalReference != nil {
		v.LegalReference = *u.LegalReference
	}
	if u.CalculationFormula != nil {
		v.CalculationFormula = *u.CalculationFormula
	}
	if u.DependsOn != nil {
		v.DependsOn = *u.DependsOn
	}
}
