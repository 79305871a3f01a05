package aggregates

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow-backend/domain/core/entities"
	"payflow-backend/pkg/errors"
)

func addSumNode(t *testing.T, g *ImpactGraph, id string, inputs []string) {
	t.Helper()
	fn := entities.NewFunc(inputs, func(args entities.Args) (interface{}, error) {
		total := 0.0
		for _, v := range args {
			total += v.(float64)
		}
		return total, nil
	})
	node, err := entities.NewCalculationNode(id, fn, "")
	require.NoError(t, err)
	node.InputVariables = inputs
	require.NoError(t, g.AddCalculationNode(node))
}

func TestExecute(t *testing.T) {
	t.Run("unknown node", func(t *testing.T) {
		g := NewImpactGraph()
		_, err := g.Execute("missing", nil)
		require.Error(t, err)
		assert.True(t, errors.IsUnknownNode(err))
	})

	t.Run("missing arguments are named", func(t *testing.T) {
		g := NewImpactGraph()
		addSumNode(t, g, "calc_base", []string{"salaire_brut", "taux"})

		_, err := g.Execute("calc_base", map[string]interface{}{"salaire_brut": 3000.0})
		require.Error(t, err)
		assert.True(t, errors.IsMissingArguments(err))

		domainErr := errors.GetDomainError(err)
		require.NotNil(t, domainErr)
		assert.Equal(t, []string{"taux"}, domainErr.Details["missing"])
	})

	t.Run("extra values are filtered out", func(t *testing.T) {
		g := NewImpactGraph()

		var received entities.Args
		fn := entities.NewFunc([]string{"a", "b"}, func(args entities.Args) (interface{}, error) {
			received = args
			return args["a"].(float64) + args["b"].(float64), nil
		})
		node, err := entities.NewCalculationNode("sum", fn, "")
		require.NoError(t, err)
		node.InputVariables = []string{"a", "b"}
		require.NoError(t, g.AddCalculationNode(node))

		result, err := g.Execute("sum", map[string]interface{}{
			"a": 1.0, "b": 2.0, "unrelated": "ignored",
		})
		require.NoError(t, err)
		assert.Equal(t, 3.0, result)
		assert.NotContains(t, received, "unrelated")
	})

	t.Run("function error passes through unchanged", func(t *testing.T) {
		g := NewImpactGraph()
		boom := stderrors.New("division by zero in rate table")
		fn := entities.NewFunc(nil, func(args entities.Args) (interface{}, error) {
			return nil, boom
		})
		node, err := entities.NewCalculationNode("broken", fn, "")
		require.NoError(t, err)
		require.NoError(t, g.AddCalculationNode(node))

		_, err = g.Execute("broken", map[string]interface{}{})
		assert.Equal(t, boom, err)
	})

	t.Run("result is not recorded anywhere", func(t *testing.T) {
		g := NewImpactGraph()
		addSumNode(t, g, "calc", []string{"x"})

		before := g.Variables().InputCount() + g.Variables().IntermediateCount()
		_, err := g.Execute("calc", map[string]interface{}{"x": 5.0})
		require.NoError(t, err)
		after := g.Variables().InputCount() + g.Variables().IntermediateCount()
		assert.Equal(t, before, after)
	})
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("respects every edge", func(t *testing.T) {
		g := NewImpactGraph()
		for _, id := range []string{"d", "c", "b", "a"} {
			require.NoError(t, g.AddCalculationNode(newTestNode(t, id)))
		}
		require.NoError(t, g.Connect("a", "b", ""))
		require.NoError(t, g.Connect("b", "c", ""))
		require.NoError(t, g.Connect("a", "d", ""))
		require.NoError(t, g.Connect("d", "c", ""))

		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		require.Len(t, order, 4)

		pos := make(map[string]int, len(order))
		for i, id := range order {
			pos[id] = i
		}
		for _, edge := range g.Edges() {
			assert.Less(t, pos[edge.From], pos[edge.To], "edge %s->%s violated", edge.From, edge.To)
		}
	})

	t.Run("deterministic for independent nodes", func(t *testing.T) {
		g := NewImpactGraph()
		for _, id := range []string{"n3", "n1", "n2"} {
			require.NoError(t, g.AddCalculationNode(newTestNode(t, id)))
		}

		first, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"n3", "n1", "n2"}, first)

		for i := 0; i < 10; i++ {
			again, err := g.TopologicalOrder()
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("cycle is reported with unordered nodes", func(t *testing.T) {
		g := NewImpactGraph()
		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, g.AddCalculationNode(newTestNode(t, id)))
		}
		require.NoError(t, g.Connect("a", "b", ""))
		require.NoError(t, g.Connect("b", "c", ""))
		require.NoError(t, g.Connect("c", "b", ""))

		_, err := g.TopologicalOrder()
		require.Error(t, err)
		assert.True(t, errors.IsCycleDetected(err))

		domainErr := errors.GetDomainError(err)
		require.NotNil(t, domainErr)
		assert.ElementsMatch(t, []string{"b", "c"}, domainErr.Details["unordered_nodes"])
	})

	t.Run("self loop fails ordering", func(t *testing.T) {
		g := NewImpactGraph()
		require.NoError(t, g.AddCalculationNode(newTestNode(t, "a")))
		require.NoError(t, g.Connect("a", "a", ""))

		_, err := g.TopologicalOrder()
		require.Error(t, err)
		assert.True(t, errors.IsCycleDetected(err))
	})
}

func TestEntryAndExitPoints(t *testing.T) {
	g := NewImpactGraph()
	for _, id := range []string{"a", "b", "c", "isolated"} {
		require.NoError(t, g.AddCalculationNode(newTestNode(t, id)))
	}
	require.NoError(t, g.Connect("a", "b", ""))
	require.NoError(t, g.Connect("b", "c", ""))

	assert.Equal(t, []string{"a", "isolated"}, g.EntryPoints())
	assert.Equal(t, []string{"c", "isolated"}, g.ExitPoints())
}

func TestOutputVariables_DerivedAndDeduplicated(t *testing.T) {
	g := NewImpactGraph()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddCalculationNode(newTestNode(t, id)))
	}
	shared := "cout_total"
	other := "base_cotisations"
	empty := ""
	g.UpdateNode("a", entities.NodeUpdate{OutputVariable: &shared})
	g.UpdateNode("b", entities.NodeUpdate{OutputVariable: &shared})
	g.UpdateNode("c", entities.NodeUpdate{OutputVariable: &other})

	assert.Equal(t, []string{"base_cotisations", "cout_total"}, g.OutputVariables())

	g.UpdateNode("c", entities.NodeUpdate{OutputVariable: &empty})
	assert.Equal(t, []string{"cout_total"}, g.OutputVariables())
}
