package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow-backend/domain/core/entities"
	"payflow-backend/domain/core/valueobjects"
	"payflow-backend/pkg/errors"
)

func newTestNode(t *testing.T, id string) *entities.CalculationNode {
	t.Helper()
	fn := entities.NewFunc([]string{"x"}, func(args entities.Args) (interface{}, error) {
		return args["x"], nil
	})
	node, err := entities.NewCalculationNode(id, fn, "test node "+id)
	require.NoError(t, err)
	return node
}

func TestAddVariable_UpsertKeepsPosition(t *testing.T) {
	g := NewImpactGraph()

	g.AddVariable(valueobjects.NewVariable("salaire_brut", valueobjects.KindInput, "gross salary", valueobjects.TypeFloat))
	g.AddVariable(valueobjects.NewVariable("effectif", valueobjects.KindInput, "headcount", valueobjects.TypeInt))
	g.AddVariable(valueobjects.NewVariable("salaire_brut", valueobjects.KindInput, "updated description", valueobjects.TypeFloat))

	assert.Equal(t, 2, g.Variables().InputCount())
	assert.Equal(t, []string{"salaire_brut", "effectif"}, g.Variables().InputNames())

	v, ok := g.Variables().Get("salaire_brut")
	require.True(t, ok)
	assert.Equal(t, "updated description", v.Description)
}

func TestAddCalculationNode(t *testing.T) {
	t.Run("rejects nil function", func(t *testing.T) {
		g := NewImpactGraph()
		err := g.AddCalculationNode(nil)
		require.Error(t, err)
		assert.True(t, errors.IsInvalidFunction(err))
	})

	t.Run("overwrite keeps insertion position", func(t *testing.T) {
		g := NewImpactGraph()
		require.NoError(t, g.AddCalculationNode(newTestNode(t, "calc_base")))
		require.NoError(t, g.AddCalculationNode(newTestNode(t, "calc_cotisations")))

		replacement := newTestNode(t, "calc_base")
		replacement.Description = "replaced"
		require.NoError(t, g.AddCalculationNode(replacement))

		assert.Equal(t, []string{"calc_base", "calc_cotisations"}, g.NodeIDs())
		node, ok := g.GetNode("calc_base")
		require.True(t, ok)
		assert.Equal(t, "replaced", node.Description)
	})
}

func TestConnect(t *testing.T) {
	t.Run("unknown endpoint fails", func(t *testing.T) {
		g := NewImpactGraph()
		require.NoError(t, g.AddCalculationNode(newTestNode(t, "a")))

		err := g.Connect("a", "missing", "")
		require.Error(t, err)
		assert.True(t, errors.IsUnknownNode(err))

		err = g.Connect("missing", "a", "")
		require.Error(t, err)
		assert.True(t, errors.IsUnknownNode(err))
	})

	t.Run("reconnect replaces edge", func(t *testing.T) {
		g := NewImpactGraph()
		require.NoError(t, g.AddCalculationNode(newTestNode(t, "a")))
		require.NoError(t, g.AddCalculationNode(newTestNode(t, "b")))

		require.NoError(t, g.Connect("a", "b", "first_label"))
		require.NoError(t, g.Connect("a", "b", "second_label"))

		edges := g.Edges()
		require.Len(t, edges, 1)
		assert.Equal(t, "second_label", edges[0].VariablePassed)
	})

	t.Run("self loop accepted", func(t *testing.T) {
		g := NewImpactGraph()
		require.NoError(t, g.AddCalculationNode(newTestNode(t, "a")))
		require.NoError(t, g.Connect("a", "a", ""))
		assert.Equal(t, 1, g.EdgeCount())
	})
}

func TestRemoveNode_CascadesEdges(t *testing.T) {
	g := NewImpactGraph()
	require.NoError(t, g.AddCalculationNode(newTestNode(t, "a")))
	require.NoError(t, g.AddCalculationNode(newTestNode(t, "b")))
	require.NoError(t, g.AddCalculationNode(newTestNode(t, "c")))
	require.NoError(t, g.Connect("a", "b", ""))
	require.NoError(t, g.Connect("b", "c", ""))
	require.NoError(t, g.Connect("a", "c", ""))

	assert.True(t, g.RemoveNode("b"))

	assert.False(t, g.HasNode("b"))
	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].From)
	assert.Equal(t, "c", edges[0].To)

	assert.False(t, g.RemoveNode("b"))
}

func TestRemoveEdge(t *testing.T) {
	g := NewImpactGraph()
	require.NoError(t, g.AddCalculationNode(newTestNode(t, "a")))
	require.NoError(t, g.AddCalculationNode(newTestNode(t, "b")))
	require.NoError(t, g.Connect("a", "b", ""))

	assert.True(t, g.RemoveEdge("a", "b"))
	assert.False(t, g.RemoveEdge("a", "b"))
	assert.Equal(t, 0, g.EdgeCount())
}

func TestUpdateNode_MetadataOnly(t *testing.T) {
	g := NewImpactGraph()
	require.NoError(t, g.AddCalculationNode(newTestNode(t, "calc")))

	desc := "computes the contribution base"
	output := "base_cotisations"
	inputs := []string{"salaire_brut"}
	ok := g.UpdateNode("calc", entities.NodeUpdate{
		Description:    &desc,
		OutputVariable: &output,
		InputVariables: &inputs,
	})
	require.True(t, ok)

	node, found := g.GetNode("calc")
	require.True(t, found)
	assert.Equal(t, desc, node.Description)
	assert.Equal(t, output, node.OutputVariable)
	assert.Equal(t, inputs, node.InputVariables)

	assert.False(t, g.UpdateNode("missing", entities.NodeUpdate{}))
}

func TestSetImpactSource_Overwrites(t *testing.T) {
	g := NewImpactGraph()
	assert.Nil(t, g.ImpactSource())

	g.SetImpactSource("revalorisation du SMIC", "convention collective syntec")
	g.SetImpactSource("nouvelle exoneration", "accord de branche metallurgie")

	src := g.ImpactSource()
	require.NotNil(t, src)
	assert.Equal(t, "nouvelle exoneration", src.Description)
}

func TestReset(t *testing.T) {
	g := NewImpactGraph()
	g.SetImpactSource("desc", "conv")
	g.AddVariable(valueobjects.NewVariable("x", valueobjects.KindInput, "", valueobjects.TypeFloat))
	require.NoError(t, g.AddCalculationNode(newTestNode(t, "a")))
	require.NoError(t, g.AddCalculationNode(newTestNode(t, "b")))
	require.NoError(t, g.Connect("a", "b", ""))

	g.Reset()

	assert.Nil(t, g.ImpactSource())
	assert.Equal(t, 0, g.Variables().InputCount())
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}
