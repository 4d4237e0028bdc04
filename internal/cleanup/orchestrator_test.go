package cleanup

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store/memory"
)

// fakeOrderSystem serves canned order refs and records delete calls.
type fakeOrderSystem struct {
	refs       []OrderRef
	queryErr   error
	deleteErr  error
	archiveIDs map[string]bool
	deleted    []string
	queriedTag string
}

func (f *fakeOrderSystem) QueryOrdersByTag(ctx context.Context, tag string) ([]OrderRef, error) {
	f.queriedTag = tag
	return f.refs, f.queryErr
}

func (f *fakeOrderSystem) DeleteOrders(ctx context.Context, orderIDs []string) ([]DeleteOutcome, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, orderIDs...)
	outcomes := make([]DeleteOutcome, len(orderIDs))
	for i, id := range orderIDs {
		method := DeleteMethodDeleted
		if f.archiveIDs[id] {
			method = DeleteMethodArchived
		}
		outcomes[i] = DeleteOutcome{OrderID: id, Method: method}
	}
	return outcomes, nil
}

func (f *fakeOrderSystem) TagForBatch(batchID string) string {
	return "uat-batch-" + batchID
}

func stagingEnv() models.Environment { return models.Environment{Name: "staging"} }

func newFixture(t *testing.T, externalIDs []string) (*memory.Store, *Orchestrator, *fakeOrderSystem) {
	t.Helper()
	s := memory.NewStore()
	seedCollectionPrep(t, s, "082926MLCANPAR1")

	orders := &fakeOrderSystem{archiveIDs: make(map[string]bool)}
	for _, id := range externalIDs {
		seedOrderGraph(t, s, id, "082926MLCANPAR1", false)
		orders.refs = append(orders.refs, OrderRef{OrderID: id})
	}

	engine := NewEngine(s, fastRetry())
	return s, NewOrchestrator(stagingEnv(), engine, orders), orders
}

func TestRun_DeletesBatchAndSharedCollectionPrep(t *testing.T) {
	s, orch, orders := newFixture(t, []string{"UAT-abc-1", "UAT-abc-2", "UAT-abc-3"})

	summary, err := orch.Run(context.Background(), Selector{Tag: "uat-batch-abc"}, Options{SkipConfirmation: true})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.OrdersDiscovered)
	assert.Equal(t, int64(3), summary.Orders.Deleted)
	assert.Equal(t, int64(6), summary.Preps)
	assert.Equal(t, int64(6), summary.PrepParts)
	assert.Equal(t, int64(12), summary.PrepPartItems)
	assert.Equal(t, int64(3), summary.Shipments)
	assert.Equal(t, int64(6), summary.VariantOrders)
	// The three orders share one collection prep; it is deleted exactly
	// once, after the last referencing order is gone.
	assert.Equal(t, int64(1), summary.CollectionPreps.Deleted)
	assert.Zero(t, summary.TotalFailed())
	assert.Equal(t, int64(3), summary.OrderSystem.Deleted)
	assert.ElementsMatch(t, []string{"UAT-abc-1", "UAT-abc-2", "UAT-abc-3"}, orders.deleted)

	for table, n := range s.CountRows() {
		assert.Zero(t, n, "table %s should be empty", table)
	}
}

func TestRun_DryRunMutatesNothing(t *testing.T) {
	s, orch, orders := newFixture(t, []string{"UAT-abc-1", "UAT-abc-2"})
	before := s.CountRows()

	summary, err := orch.Run(context.Background(), Selector{Tag: "uat-batch-abc"}, Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Equal(t, int64(2), summary.Orders.Deleted)
	assert.Equal(t, int64(4), summary.Preps)
	assert.Equal(t, int64(1), summary.CollectionPreps.Deleted)
	assert.Equal(t, before, s.CountRows())
	assert.Empty(t, orders.deleted)
}

func TestRun_ZeroMatchesCompletesCleanly(t *testing.T) {
	s := memory.NewStore()
	orders := &fakeOrderSystem{}
	orch := NewOrchestrator(stagingEnv(), NewEngine(s, fastRetry()), orders)

	confirmCalled := false
	summary, err := orch.Run(context.Background(), Selector{Tag: "uat-batch-none"}, Options{
		Confirm: func(tag string, n int) (bool, error) {
			confirmCalled = true
			return true, nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.OrdersDiscovered)
	assert.Zero(t, summary.TotalFailed())
	assert.False(t, confirmCalled, "no confirmation prompt when there is nothing to delete")
}

func TestRun_ProductionGuardRefusesBeforeQuerying(t *testing.T) {
	s := memory.NewStore()
	orders := &fakeOrderSystem{}
	orch := NewOrchestrator(models.Environment{Name: "production"}, NewEngine(s, fastRetry()), orders)

	_, err := orch.Run(context.Background(), Selector{Tag: "uat-batch-abc"}, Options{SkipConfirmation: true})

	var guardErr *models.EnvironmentGuardError
	require.ErrorAs(t, err, &guardErr)
	assert.Empty(t, orders.queriedTag, "guard must fire before any order system call")
}

func TestRun_UnknownEnvironmentFailsClosed(t *testing.T) {
	s := memory.NewStore()
	orch := NewOrchestrator(models.Environment{Name: "prod-eu-2"}, NewEngine(s, fastRetry()), &fakeOrderSystem{})

	_, err := orch.Run(context.Background(), Selector{Tag: "t"}, Options{SkipConfirmation: true})

	var guardErr *models.EnvironmentGuardError
	require.ErrorAs(t, err, &guardErr)
}

func TestRun_DecliningConfirmationAborts(t *testing.T) {
	s, orch, orders := newFixture(t, []string{"UAT-abc-1"})
	before := s.CountRows()

	summary, err := orch.Run(context.Background(), Selector{Tag: "uat-batch-abc"}, Options{
		Confirm: func(tag string, n int) (bool, error) { return false, nil },
	})
	require.NoError(t, err)

	assert.True(t, summary.Aborted)
	assert.Equal(t, before, s.CountRows())
	assert.Empty(t, orders.deleted)
}

func TestRun_PartialFailureContinuesAndExitsNonZero(t *testing.T) {
	s, orch, orders := newFixture(t, []string{"UAT-abc-1", "UAT-abc-2", "UAT-abc-3"})

	// One order's graph deletion fails terminally; the rest of the batch
	// must still be processed.
	s.FailOnce("DeleteShipments", &pgconn.PgError{Code: store.PgErrQueryCanceled, Message: "statement timeout"})

	summary, err := orch.Run(context.Background(), Selector{Tag: "uat-batch-abc"}, Options{
		SkipConfirmation: true,
		Concurrency:      1,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Orders.Deleted)
	assert.Equal(t, int64(1), summary.Orders.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Positive(t, summary.TotalFailed())

	// The shared collection prep is still referenced by the failed order's
	// preps, so it must be skipped rather than deleted.
	assert.Equal(t, int64(1), summary.CollectionPreps.Skipped)
	assert.Equal(t, 1, s.CountRows()["collection_preps"])

	// Only successfully deleted orders reach the order system.
	assert.Len(t, orders.deleted, 2)
}

func TestRun_ArchivedOrdersCountedSeparately(t *testing.T) {
	_, orch, orders := newFixture(t, []string{"UAT-abc-1", "UAT-abc-2"})
	orders.archiveIDs["UAT-abc-2"] = true

	summary, err := orch.Run(context.Background(), Selector{Tag: "uat-batch-abc"}, Options{SkipConfirmation: true})
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.OrderSystem.Deleted)
	assert.Equal(t, int64(1), summary.OrderSystem.Archived)
	assert.Zero(t, summary.TotalFailed())
}

func TestRun_OrderSystemOutageCountsAllAsFailed(t *testing.T) {
	_, orch, orders := newFixture(t, []string{"UAT-abc-1", "UAT-abc-2"})
	orders.deleteErr = errors.New("connection refused")

	summary, err := orch.Run(context.Background(), Selector{Tag: "uat-batch-abc"}, Options{SkipConfirmation: true})
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Orders.Deleted)
	assert.Equal(t, int64(2), summary.OrderSystem.Failed)
	assert.Positive(t, summary.TotalFailed())
}

func TestRun_ProgressReported(t *testing.T) {
	_, orch, _ := newFixture(t, []string{"UAT-abc-1", "UAT-abc-2", "UAT-abc-3"})

	var orderTicks int
	_, err := orch.Run(context.Background(), Selector{Tag: "uat-batch-abc"}, Options{
		SkipConfirmation: true,
		Progress: func(current, total int, label string) {
			if label == "orders" {
				orderTicks++
				assert.Equal(t, 3, total)
			}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, orderTicks)
}
