package batchid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store/memory"
)

func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	s.AddLocation(models.Location{ID: "loc-mtl", Name: "Montreal", Region: models.RegionCA})
	s.AddLocation(models.Location{ID: "loc-x", Name: "X", Region: models.RegionCA})
	return s
}

func addCollectionPrep(t *testing.T, s *memory.Store, id, locationID, carrier string, day time.Time) {
	t.Helper()
	err := s.WithTransaction(context.Background(), store.IsolationSerializable, func(tx store.Tx) error {
		return tx.InsertCollectionPrep(context.Background(), models.CollectionPrep{
			ID:         id,
			Region:     models.RegionCA,
			Carrier:    carrier,
			LocationID: locationID,
			Day:        day,
		})
	})
	require.NoError(t, err)
}

func TestGenerateIDs_Format(t *testing.T) {
	s := newTestStore(t)
	g := NewGenerator(s)
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	ids, err := g.GenerateIDs(context.Background(), 2, "Canpar", "loc-mtl", day, models.RegionCA)
	require.NoError(t, err)
	assert.Equal(t, []string{"082926MLCANPAR1", "082926MLCANPAR2"}, ids)
}

func TestGenerateIDs_SingleRuneNameDoublesAbbrev(t *testing.T) {
	s := newTestStore(t)
	g := NewGenerator(s)
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	ids, err := g.GenerateIDs(context.Background(), 1, "ups", "loc-x", day, models.RegionCA)
	require.NoError(t, err)
	assert.Equal(t, []string{"010526XXUPS1"}, ids)
}

func TestGenerateIDs_CounterContinuesFromHighestSuffix(t *testing.T) {
	s := newTestStore(t)
	g := NewGenerator(s)
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	addCollectionPrep(t, s, "082926MLCANPAR3", "loc-mtl", "Canpar", day)
	addCollectionPrep(t, s, "082926MLCANPAR4", "loc-mtl", "Canpar", day)

	ids, err := g.GenerateIDs(context.Background(), 2, "Canpar", "loc-mtl", day, models.RegionCA)
	require.NoError(t, err)
	assert.Equal(t, []string{"082926MLCANPAR5", "082926MLCANPAR6"}, ids)
}

func TestGenerateIDs_ScopedByCarrierAndDay(t *testing.T) {
	s := newTestStore(t)
	g := NewGenerator(s)
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	// A different carrier and a different day must not advance the counter.
	addCollectionPrep(t, s, "082926MLPUROLATOR7", "loc-mtl", "Purolator", day)
	addCollectionPrep(t, s, "083026MLCANPAR9", "loc-mtl", "Canpar", day.AddDate(0, 0, 1))

	ids, err := g.GenerateIDs(context.Background(), 1, "Canpar", "loc-mtl", day, models.RegionCA)
	require.NoError(t, err)
	assert.Equal(t, []string{"082926MLCANPAR1"}, ids)
}

func TestGenerateIDs_UnknownLocation(t *testing.T) {
	s := newTestStore(t)
	g := NewGenerator(s)

	_, err := g.GenerateIDs(context.Background(), 1, "Canpar", "loc-nope", time.Now(), models.RegionCA)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGenerateIDs_ZeroCount(t *testing.T) {
	s := newTestStore(t)
	g := NewGenerator(s)

	ids, err := g.GenerateIDs(context.Background(), 0, "Canpar", "loc-mtl", time.Now(), models.RegionCA)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGenerateIDsBatch_PositionalResults(t *testing.T) {
	s := newTestStore(t)
	g := NewGenerator(s)
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	configs := []Config{
		{Carrier: "Canpar", LocationID: "loc-mtl", Day: day},
		{Carrier: "UPS", LocationID: "loc-x", Day: day},
		{Carrier: "Purolator", LocationID: "loc-mtl", Day: day},
	}

	ids, err := g.GenerateIDsBatch(context.Background(), configs, models.RegionCA, 2)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, "082926MLCANPAR1", ids[0])
	assert.Equal(t, "082926XXUPS1", ids[1])
	assert.Equal(t, "082926MLPUROLATOR1", ids[2])
}

func TestLocationAbbrev(t *testing.T) {
	cases := map[string]string{
		"Montreal":  "ML",
		"toronto":   "TO",
		"X":         "XX",
		" Calgary ": "CY",
		"":          "",
	}
	for name, want := range cases {
		assert.Equal(t, want, locationAbbrev(name), "name %q", name)
	}
}

func TestMaxSuffix(t *testing.T) {
	ids := []string{
		"082926MLCANPAR3",
		"082926MLCANPAR12",
		"082926MLCANPARx", // non-numeric suffix is ignored
		"082926MLPUROLATOR99",
	}
	assert.Equal(t, 12, maxSuffix(ids, "082926MLCANPAR"))
	assert.Equal(t, 0, maxSuffix(nil, "082926MLCANPAR"))
}
