package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
)

func tagForBatch(batchID string) string { return "uat-batch-" + batchID }

func TestResolveTag_BatchID(t *testing.T) {
	sel := Selector{BatchID: "a81bc81b-dead-4e5d-abff-90865d1e13b1"}
	tag, err := sel.ResolveTag(tagForBatch)
	require.NoError(t, err)
	assert.Equal(t, "uat-batch-a81bc81b-dead-4e5d-abff-90865d1e13b1", tag)
}

func TestResolveTag_InvalidBatchID(t *testing.T) {
	sel := Selector{BatchID: "not-a-uuid"}
	_, err := sel.ResolveTag(tagForBatch)

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "batch-id", validationErr.Field)
}

func TestResolveTag_CollectionPrep(t *testing.T) {
	sel := Selector{CollectionPrep: "082926MLCANPAR1"}
	tag, err := sel.ResolveTag(tagForBatch)
	require.NoError(t, err)
	assert.Equal(t, "collection-prep:082926MLCANPAR1", tag)
}

func TestResolveTag_TagPassedThrough(t *testing.T) {
	sel := Selector{Tag: "load-test-2026-08"}
	tag, err := sel.ResolveTag(tagForBatch)
	require.NoError(t, err)
	assert.Equal(t, "load-test-2026-08", tag)
}

func TestResolveTag_NoSelector(t *testing.T) {
	_, err := Selector{}.ResolveTag(tagForBatch)
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestResolveTag_MultipleSelectors(t *testing.T) {
	sel := Selector{Tag: "x", CollectionPrep: "y"}
	_, err := sel.ResolveTag(tagForBatch)
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
