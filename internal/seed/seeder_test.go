package seed

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/batchid"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/cleanup"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/ordersystem"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store/memory"
)

// fakeRegistry records order registrations without a live order system.
type fakeRegistry struct {
	created []ordersystem.CreateOrderRequest
}

func (f *fakeRegistry) CreateOrder(ctx context.Context, req ordersystem.CreateOrderRequest) error {
	f.created = append(f.created, req)
	return nil
}

func (f *fakeRegistry) TagForBatch(batchID string) string {
	return ordersystem.BatchTagPrefix + batchID
}

func fastRetry() store.RetryOptions {
	return store.RetryOptions{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func newSeederFixture(t *testing.T) (*memory.Store, *Seeder, *fakeRegistry) {
	t.Helper()
	s := memory.NewStore()
	s.AddLocation(models.Location{ID: "loc-mtl", Name: "Montreal", Region: models.RegionCA})
	registry := &fakeRegistry{}
	seeder := NewSeeder(s, batchid.NewGenerator(s), registry, models.Environment{Name: "staging"}, fastRetry())
	return s, seeder, registry
}

func TestSeedBatch_CreatesFullGraphs(t *testing.T) {
	s, seeder, registry := newSeederFixture(t)
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	result, err := seeder.SeedBatch(context.Background(), Params{
		Orders:     3,
		Carrier:    "Canpar",
		LocationID: "loc-mtl",
		Region:     models.RegionCA,
		Day:        day,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Orders)
	assert.Equal(t, "082926MLCANPAR1", result.CollectionPrepID)
	_, err = uuid.Parse(result.BatchID)
	assert.NoError(t, err, "generated batch id must be a uuid")
	assert.Equal(t, "uat-batch-"+result.BatchID, result.Tag)

	rows := s.CountRows()
	assert.Equal(t, 3, rows["orders"])
	assert.Equal(t, 3, rows["variant_orders"])
	assert.Equal(t, 3, rows["preps"])
	assert.Equal(t, 3, rows["prep_parts"])
	assert.Equal(t, 3, rows["prep_part_items"])
	assert.Equal(t, 3, rows["shipments"])
	assert.Equal(t, 1, rows["collection_preps"])
	assert.Zero(t, rows["packed_boxes"])

	require.Len(t, registry.created, 3)
	for _, req := range registry.created {
		assert.Equal(t, result.Tag, req.Tag)
		assert.Equal(t, models.RegionCA, req.Region)
	}
}

func TestSeedBatch_PnPAddsPackedBoxes(t *testing.T) {
	s, seeder, _ := newSeederFixture(t)

	_, err := seeder.SeedBatch(context.Background(), Params{
		Orders:     2,
		Carrier:    "Canpar",
		LocationID: "loc-mtl",
		Region:     models.RegionCA,
		PnP:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.CountRows()["packed_boxes"])
}

func TestSeedBatch_RefusedInProduction(t *testing.T) {
	s := memory.NewStore()
	seeder := NewSeeder(s, batchid.NewGenerator(s), &fakeRegistry{}, models.Environment{Name: "production"}, fastRetry())

	_, err := seeder.SeedBatch(context.Background(), Params{Orders: 1, Carrier: "Canpar", LocationID: "loc-mtl", Region: models.RegionCA})

	var guardErr *models.EnvironmentGuardError
	require.ErrorAs(t, err, &guardErr)
	assert.Zero(t, s.CountRows()["orders"])
}

func TestSeedBatch_Validation(t *testing.T) {
	_, seeder, _ := newSeederFixture(t)
	ctx := context.Background()

	var validationErr *models.ValidationError

	_, err := seeder.SeedBatch(ctx, Params{Orders: 0, Carrier: "Canpar", LocationID: "loc-mtl", Region: models.RegionCA})
	require.ErrorAs(t, err, &validationErr)

	_, err = seeder.SeedBatch(ctx, Params{Orders: 1, Carrier: "Canpar", LocationID: "loc-mtl", Region: "EU"})
	require.ErrorAs(t, err, &validationErr)
}

// TestSeedThenCleanup_RoundTrip drives the whole loop: seed a batch against
// the real order system client and stub, then clean it up by batch id and
// verify both systems end empty.
func TestSeedThenCleanup_RoundTrip(t *testing.T) {
	const secret = "test-secret"

	s := memory.NewStore()
	s.AddLocation(models.Location{ID: "loc-mtl", Name: "Montreal", Region: models.RegionCA})

	stub := ordersystem.NewStub(secret)
	srv := httptest.NewServer(stub.Router())
	defer srv.Close()
	client := ordersystem.NewClient(srv.URL, secret)

	env := models.Environment{Name: "uat"}
	seeder := NewSeeder(s, batchid.NewGenerator(s), client, env, fastRetry())

	result, err := seeder.SeedBatch(context.Background(), Params{
		Orders:     3,
		Carrier:    "Canpar",
		LocationID: "loc-mtl",
		Region:     models.RegionCA,
	})
	require.NoError(t, err)

	refs, err := client.QueryOrdersByTag(context.Background(), result.Tag)
	require.NoError(t, err)
	require.Len(t, refs, 3)

	orch := cleanup.NewOrchestrator(env, cleanup.NewEngine(s, fastRetry()), client)
	summary, err := orch.Run(context.Background(), cleanup.Selector{BatchID: result.BatchID}, cleanup.Options{SkipConfirmation: true})
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.Orders.Deleted)
	assert.Equal(t, int64(1), summary.CollectionPreps.Deleted)
	assert.Equal(t, int64(3), summary.OrderSystem.Deleted)
	assert.Zero(t, summary.TotalFailed())

	for table, n := range s.CountRows() {
		assert.Zero(t, n, "table %s should be empty", table)
	}
	refs, err = client.QueryOrdersByTag(context.Background(), result.Tag)
	require.NoError(t, err)
	assert.Empty(t, refs)
}
