package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow-backend/domain/core/aggregates"
	"payflow-backend/domain/core/entities"
	"payflow-backend/domain/core/valueobjects"
)

func buildGraph(t *testing.T) *aggregates.ImpactGraph {
	t.Helper()
	g := aggregates.NewImpactGraph()
	g.AddVariable(valueobjects.NewVariable("salaire_brut", valueobjects.KindInput, "", valueobjects.TypeFloat))

	fn := entities.NewFunc([]string{"salaire_brut"}, func(args entities.Args) (interface{}, error) {
		return args["salaire_brut"], nil
	})
	node, err := entities.NewCalculationNode("calc", fn, "")
	require.NoError(t, err)
	node.OutputVariable = "base"
	require.NoError(t, g.AddCalculationNode(node))
	return g
}

func TestComputeVersion_StableAcrossReexport(t *testing.T) {
	g := buildGraph(t)

	first, err := ComputeVersion("s1", g.Export())
	require.NoError(t, err)
	second, err := ComputeVersion("s1", g.Export())
	require.NoError(t, err)

	// Timestamps differ between exports but the checksum must not.
	assert.Equal(t, first.Checksum, second.Checksum)
	assert.Equal(t, 1, first.NodeCount)
	assert.Equal(t, 0, first.EdgeCount)
}

func TestComputeVersion_ChangesWithStructure(t *testing.T) {
	g := buildGraph(t)
	before, err := ComputeVersion("s1", g.Export())
	require.NoError(t, err)

	g.AddVariable(valueobjects.NewVariable("taux", valueobjects.KindInput, "", valueobjects.TypeFloat))
	after, err := ComputeVersion("s1", g.Export())
	require.NoError(t, err)

	assert.NotEqual(t, before.Checksum, after.Checksum)
}
