package aggregates

import (
	"time"

	"payflow-backend/domain/core/entities"
	"payflow-backend/domain/core/registries"
	"payflow-backend/domain/core/valueobjects"
	"payflow-backend/pkg/errors"
)

// ImpactGraph is the aggregate root for one payroll impact analysis:
// a directed graph of calculation nodes plus the variable registry and
// the impact source under study. The aggregate exclusively owns its
// registry and node store; instances are never shared across analyses.
//
// The aggregate is not internally synchronized. It is designed for
// single-writer access; concurrent mutation from multiple goroutines
// must be serialized by the caller (one instance per session).
type ImpactGraph struct {
	source    *valueobjects.ImpactSource
	variables *registries.VariableRegistry

	nodes     map[string]*entities.CalculationNode
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
}

// Edge is a directed connection between two calculation nodes. The
// identity is the (from, to) pair; re-adding the same pair replaces
// the edge. VariablePassed is an advisory label, never validated.
type Edge struct {
	From           string    `json:"from"`
	To             string    `json:"to"`
	VariablePassed string    `json:"variable_passed,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewImpactGraph creates an empty analysis graph
func NewImpactGraph() *ImpactGraph {
	return &ImpactGraph{
		variables: registries.NewVariableRegistry(),
		nodes:     make(map[string]*entities.CalculationNode),
		edges:     make(map[string]*Edge),
	}
}

// SetImpactSource replaces the impact source. Always succeeds;
// no history of previous sources is kept.
func (g *ImpactGraph) SetImpactSource(description, convention string) {
	g.source = valueobjects.NewImpactSource(description, convention)
}

// ImpactSource returns the current impact source, nil when unset
func (g *ImpactGraph) ImpactSource() *valueobjects.ImpactSource {
	return g.source
}

// AddVariable registers a variable. Re-adding an existing name is a
// silent overwrite (upsert), and depends_on entries are not checked
// against the graph.
func (g *ImpactGraph) AddVariable(v *valueobjects.Variable) {
	g.variables.Put(v)
}

// Variables exposes the registry for read-only projections
func (g *ImpactGraph) Variables() *registries.VariableRegistry {
	return g.variables
}

// AddCalculationNode registers a calculation node. A node with a nil
// callable is rejected with an INVALID_FUNCTION error. Re-adding an
// existing node ID overwrites it, keeping the original insertion
// position; its edges are untouched.
func (g *ImpactGraph) AddCalculationNode(node *entities.CalculationNode) error {
	if node == nil || node.Function() == nil {
		id := ""
		if node != nil {
			id = node.ID()
		}
		return errors.NewInvalidFunctionError(id)
	}
	if _, exists := g.nodes[node.ID()]; !exists {
		g.nodeOrder = append(g.nodeOrder, node.ID())
	}
	g.nodes[node.ID()] = node
	return nil
}

// GetNode looks up a node by ID
func (g *ImpactGraph) GetNode(nodeID string) (*entities.CalculationNode, bool) {
	node, ok := g.nodes[nodeID]
	return node, ok
}

// HasNode checks if a node exists
func (g *ImpactGraph) HasNode(nodeID string) bool {
	_, ok := g.nodes[nodeID]
	return ok
}

// Connect creates a directed edge between two existing nodes. Both
// endpoints must already exist, otherwise the call fails with an
// UNKNOWN_NODE error. At most one edge exists per ordered pair:
// reconnecting replaces the previous edge. Self-loops are accepted
// structurally; acyclicity is only checked by TopologicalOrder.
func (g *ImpactGraph) Connect(fromNode, toNode, variablePassed string) error {
	if !g.HasNode(fromNode) {
		return errors.NewUnknownNodeError(fromNode)
	}
	if !g.HasNode(toNode) {
		return errors.NewUnknownNodeError(toNode)
	}

	key := edgeKey(fromNode, toNode)
	if _, exists := g.edges[key]; !exists {
		g.edgeOrder = append(g.edgeOrder, key)
	}
	g.edges[key] = &Edge{
		From:           fromNode,
		To:             toNode,
		VariablePassed: variablePassed,
		CreatedAt:      time.Now(),
	}
	return nil
}

// RemoveVariable deletes a variable from the registry. Removal never
// cascades to the graph. Returns false if the name is unknown.
func (g *ImpactGraph) RemoveVariable(name string) bool {
	return g.variables.Remove(name)
}

// UpdateVariable applies whitelisted field changes to a variable.
// Returns false if the name is unknown.
func (g *ImpactGraph) UpdateVariable(name string, update valueobjects.VariableUpdate) bool {
	return g.variables.Update(name, update)
}

// RemoveNode deletes a node and all of its incident edges atomically.
// Returns false if the node is unknown.
func (g *ImpactGraph) RemoveNode(nodeID string) bool {
	if !g.HasNode(nodeID) {
		return false
	}

	for key, edge := range g.edges {
		if edge.From == nodeID || edge.To == nodeID {
			delete(g.edges, key)
			g.edgeOrder = removeKey(g.edgeOrder, key)
		}
	}

	delete(g.nodes, nodeID)
	g.nodeOrder = removeKey(g.nodeOrder, nodeID)
	return true
}

// UpdateNode applies metadata-only changes to a node; the bound
// function cannot be replaced. Returns false if the node is unknown.
func (g *ImpactGraph) UpdateNode(nodeID string, update entities.NodeUpdate) bool {
	node, ok := g.nodes[nodeID]
	if !ok {
		return false
	}
	update.Apply(node)
	return true
}

// RemoveEdge deletes the edge between two nodes.
// Returns false if no such edge exists.
func (g *ImpactGraph) RemoveEdge(fromNode, toNode string) bool {
	key := edgeKey(fromNode, toNode)
	if _, ok := g.edges[key]; !ok {
		return false
	}
	delete(g.edges, key)
	g.edgeOrder = removeKey(g.edgeOrder, key)
	return true
}

// Reset clears everything: variables, nodes, edges and the impact source
func (g *ImpactGraph) Reset() {
	g.source = nil
	g.variables.Clear()
	g.nodes = make(map[string]*entities.CalculationNode)
	g.nodeOrder = nil
	g.edges = make(map[string]*Edge)
	g.edgeOrder = nil
}

// NodeIDs returns node identifiers in insertion order
func (g *ImpactGraph) NodeIDs() []string {
	return append([]string{}, g.nodeOrder...)
}

// Edges returns the edges in insertion order
func (g *ImpactGraph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		out = append(out, g.edges[key])
	}
	return out
}

// NodeCount returns the number of calculation nodes
func (g *ImpactGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *ImpactGraph) EdgeCount() int {
	return len(g.edges)
}

func edgeKey(from, to string) string {
	return from + "->" + to
}

func removeKey(order []string, key string) []string {
	for i, k := range order {
		if k == key {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
