package aggregates

import (
	"sort"
	"time"

	"payflow-backend/domain/core/valueobjects"
)

// latestVariableWindow bounds the most-recently-added intermediate
// variable names exposed by LiveStats for cheap polling.
const latestVariableWindow = 5

// VariableSummary is a read-only projection of the variable registry
type VariableSummary struct {
	TotalInputVariables        int                        `json:"total_input_variables"`
	TotalIntermediateVariables int                        `json:"total_intermediate_variables"`
	InputVariables             []string                   `json:"input_variables"`
	IntermediateVariables      []string                   `json:"intermediate_variables"`
	ImpactSource               *valueobjects.ImpactSource `json:"impact_source"`
}

// Summary returns the counts and names of the registered variables
// along with the impact source
func (g *ImpactGraph) Summary() VariableSummary {
	return VariableSummary{
		TotalInputVariables:        g.variables.InputCount(),
		TotalIntermediateVariables: g.variables.IntermediateCount(),
		InputVariables:             g.variables.InputNames(),
		IntermediateVariables:      g.variables.IntermediateNames(),
		ImpactSource:               g.source,
	}
}

// LiveStats is a lightweight projection for frequent polling
type LiveStats struct {
	Timestamp       time.Time      `json:"timestamp"`
	Stats           LiveStatCounts `json:"stats"`
	LatestVariables []string       `json:"latest_variables"`
	GraphComplexity int            `json:"graph_complexity"`
}

// LiveStatCounts holds the current entity counts
type LiveStatCounts struct {
	InputVariables        int `json:"input_variables"`
	IntermediateVariables int `json:"intermediate_variables"`
	CalculationNodes      int `json:"calculation_nodes"`
	Connections           int `json:"connections"`
}

// LiveStats returns the current counters plus the most recently added
// intermediate variable names
func (g *ImpactGraph) LiveStats() LiveStats {
	intermediates := g.variables.IntermediateNames()
	if len(intermediates) > latestVariableWindow {
		intermediates = intermediates[len(intermediates)-latestVariableWindow:]
	}

	return LiveStats{
		Timestamp: time.Now(),
		Stats: LiveStatCounts{
			InputVariables:        g.variables.InputCount(),
			IntermediateVariables: g.variables.IntermediateCount(),
			CalculationNodes:      len(g.nodes),
			Connections:           len(g.edges),
		},
		LatestVariables: intermediates,
		GraphComplexity: len(g.nodes) + len(g.edges),
	}
}

// OutputVariables derives the set of output variable names by scanning
// every node for a non-empty output binding. There is no separate
// output registry; two nodes claiming the same output name are allowed
// and not flagged. Results are sorted and deduplicated.
func (g *ImpactGraph) OutputVariables() []string {
	seen := make(map[string]bool)
	for _, node := range g.nodes {
		if node.OutputVariable != "" {
			seen[node.OutputVariable] = true
		}
	}

	outputs := make([]string, 0, len(seen))
	for name := range seen {
		outputs = append(outputs, name)
	}
	sort.Strings(outputs)
	return outputs
}

// NodeView is the exportable shape of a calculation node
type NodeView struct {
	ID             string   `json:"id"`
	Description    string   `json:"description"`
	InputVariables []string `json:"input_variables"`
	OutputVariable string   `json:"output_variable,omitempty"`
	LegalReference string   `json:"legal_reference,omitempty"`
}

// Snapshot is the full exportable state of the graph. Callers may
// serialize it to durable storage; the aggregate itself is in-memory
// only and lost on process restart.
type Snapshot struct {
	Variables struct {
		Input        []*valueobjects.Variable `json:"input"`
		Intermediate []*valueobjects.Variable `json:"intermediate"`
	} `json:"variables"`
	Nodes           []NodeView                 `json:"nodes"`
	Edges           []*Edge                    `json:"edges"`
	OutputVariables []string                   `json:"output_variables"`
	ImpactSource    *valueobjects.ImpactSource `json:"impact_source"`
	Summary         VariableSummary            `json:"summary"`
}

// Export builds the full graph snapshot, nodes and edges in insertion order
func (g *ImpactGraph) Export() Snapshot {
	snapshot := Snapshot{
		Nodes:           make([]NodeView, 0, len(g.nodeOrder)),
		Edges:           g.Edges(),
		OutputVariables: g.OutputVariables(),
		ImpactSource:    g.source,
		Summary:         g.Summary(),
	}
	snapshot.Variables.Input = g.variables.Inputs()
	snapshot.Variables.Intermediate = g.variables.Intermediates()

	for _, id := range g.nodeOrder {
		node := g.nodes[id]
		snapshot.Nodes = append(snapshot.Nodes, NodeView{
			ID:             node.ID(),
			Description:    node.Description,
			InputVariables: node.InputVariables,
			OutputVariable: node.OutputVariable,
			LegalReference: node.LegalReference,
		})
	}

	return snapshot
}

// Components lists every component currently in the system, used by
// callers deciding what to remove or restructure
type Components struct {
	InputVariables        []string                   `json:"input_variables"`
	IntermediateVariables []string                   `json:"intermediate_variables"`
	Nodes                 []string                   `json:"nodes"`
	Connections           []*Edge                    `json:"connections"`
	ImpactSource          *valueobjects.ImpactSource `json:"impact_source"`
}

// ListComponents returns the identifiers of everything in the graph
func (g *ImpactGraph) ListComponents() Components {
	return Components{
		InputVariables:        g.variables.InputNames(),
		IntermediateVariables: g.variables.IntermediateNames(),
		Nodes:                 g.NodeIDs(),
		Connections:           g.Edges(),
		ImpactSource:          g.source,
	}
}
