package aggregates

import (
	"payflow-backend/domain/core/entities"
	"payflow-backend/pkg/errors"
)

// Execute runs one calculation node with the supplied variable values.
// The values are filtered down to the callable's declared parameter
// names before invocation, so extra entries are ignored. Fails with
// UNKNOWN_NODE when the node is missing and with MISSING_ARGUMENTS
// naming the declared input variables absent from the supplied values.
// The computation is pure: the result is returned raw and never
// recorded into the variable registry, and any error raised by the
// bound function is passed through unchanged.
func (g *ImpactGraph) Execute(nodeID string, variableValues map[string]interface{}) (interface{}, error) {
	node, ok := g.nodes[nodeID]
	if !ok {
		return nil, errors.NewUnknownNodeError(nodeID)
	}

	var missing []string
	for _, required := range node.InputVariables {
		if _, supplied := variableValues[required]; !supplied {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingArgumentsError(nodeID, missing)
	}

	fn := node.Function()
	args := make(entities.Args, len(variableValues))
	for _, param := range fn.Params() {
		if value, ok := variableValues[param]; ok {
			args[param] = value
		}
	}

	return fn.Call(args)
}

// TopologicalOrder computes a linear ordering of the nodes consistent
// with every edge's direction, using Kahn's algorithm over the node
// insertion order so results are deterministic. This is the only place
// acyclicity is checked: edges forming a cycle are accepted at
// creation time and surface here as a CYCLE_DETECTED error naming the
// nodes that could not be ordered.
func (g *ImpactGraph) TopologicalOrder() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	successors := make(map[string][]string, len(g.nodes))
	for _, id := range g.nodeOrder {
		inDegree[id] = 0
	}
	for _, key := range g.edgeOrder {
		edge := g.edges[key]
		inDegree[edge.To]++
		successors[edge.From] = append(successors[edge.From], edge.To)
	}

	var queue []string
	for _, id := range g.nodeOrder {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, next := range successors[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(g.nodes) {
		var unordered []string
		ordered := make(map[string]bool, len(order))
		for _, id := range order {
			ordered[id] = true
		}
		for _, id := range g.nodeOrder {
			if !ordered[id] {
				unordered = append(unordered, id)
			}
		}
		return nil, errors.NewCycleDetectedError(unordered)
	}

	return order, nil
}

// EntryPoints returns the nodes with no predecessors, in insertion order
func (g *ImpactGraph) EntryPoints() []string {
	return g.nodesByDegree(func(in, out int) bool { return in == 0 })
}

// ExitPoints returns the nodes with no successors, in insertion order
func (g *ImpactGraph) ExitPoints() []string {
	return g.nodesByDegree(func(in, out int) bool { return out == 0 })
}

func (g *ImpactGraph) nodesByDegree(match func(in, out int) bool) []string {
	inDegree := make(map[string]int, len(g.nodes))
	outDegree := make(map[string]int, len(g.nodes))
	for _, edge := range g.edges {
		outDegree[edge.From]++
		inDegree[edge.To]++
	}

	matched := []string{}
	for _, id := range g.nodeOrder {
		if match(inDegree[id], outDegree[id]) {
			matched = append(matched, id)
		}
	}
	return matched
}
