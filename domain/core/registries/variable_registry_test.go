package registries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow-backend/domain/core/valueobjects"
)

func TestPut_BucketsAreIndependent(t *testing.T) {
	r := NewVariableRegistry()

	r.Put(valueobjects.NewVariable("taux", valueobjects.KindInput, "input rate", valueobjects.TypeFloat))
	r.Put(valueobjects.NewVariable("taux", valueobjects.KindIntermediate, "derived rate", valueobjects.TypeFloat))

	assert.Equal(t, 1, r.InputCount())
	assert.Equal(t, 1, r.IntermediateCount())

	// Get resolves the input bucket first for an ambiguous name.
	v, ok := r.Get("taux")
	require.True(t, ok)
	assert.Equal(t, "input rate", v.Description)
}

func TestRemove_ClearsBothBuckets(t *testing.T) {
	r := NewVariableRegistry()
	r.Put(valueobjects.NewVariable("taux", valueobjects.KindInput, "", valueobjects.TypeFloat))
	r.Put(valueobjects.NewVariable("taux", valueobjects.KindIntermediate, "", valueobjects.TypeFloat))

	assert.True(t, r.Remove("taux"))
	assert.Equal(t, 0, r.InputCount())
	assert.Equal(t, 0, r.IntermediateCount())
	assert.False(t, r.Remove("taux"))
}

func TestUpdate_WhitelistedFields(t *testing.T) {
	r := NewVariableRegistry()
	r.Put(valueobjects.NewVariable("salaire_brut", valueobjects.KindInput, "old", valueobjects.TypeFloat))

	desc := "monthly gross salary"
	ref := "Code du travail L3231-2"
	ok := r.Update("salaire_brut", valueobjects.VariableUpdate{
		Description:    &desc,
		LegalReference: &ref,
	})
	require.True(t, ok)

	v, found := r.Get("salaire_brut")
	require.True(t, found)
	assert.Equal(t, desc, v.Description)
	assert.Equal(t, ref, v.LegalReference)
	assert.Equal(t, valueobjects.KindInput, v.Kind)

	assert.False(t, r.Update("unknown", valueobjects.VariableUpdate{Description: &desc}))
}

func TestNames_FollowInsertionOrder(t *testing.T) {
	r := NewVariableRegistry()
	r.Put(valueobjects.NewVariable("c", valueobjects.KindInput, "", valueobjects.TypeFloat))
	r.Put(valueobjects.NewVariable("a", valueobjects.KindInput, "", valueobjects.TypeFloat))
	r.Put(valueobjects.NewVariable("b", valueobjects.KindIntermediate, "", valueobjects.TypeFloat))
	r.Put(valueobjects.NewVariable("a", valueobjects.KindInput, "again", valueobjects.TypeFloat))

	assert.Equal(t, []string{"c", "a"}, r.InputNames())
	assert.Equal(t, []string{"b"}, r.IntermediateNames())
}
