package cleanup

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/async"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/logging"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
)

// CategoryCounts aggregates outcomes for one entity category.
type CategoryCounts struct {
	Deleted int64 `json:"deleted"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// OrderFailure records one order whose graph deletion failed.
type OrderFailure struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// Summary is the aggregated outcome of one cleanup run.
type Summary struct {
	Tag              string         `json:"tag"`
	DryRun           bool           `json:"dry_run"`
	Aborted          bool           `json:"aborted"`
	OrdersDiscovered int            `json:"orders_discovered"`
	Orders           CategoryCounts `json:"orders"`
	VariantOrders    int64          `json:"variant_orders_deleted"`
	Preps            int64          `json:"preps_deleted"`
	PrepParts        int64          `json:"prep_parts_deleted"`
	PrepPartItems    int64          `json:"prep_part_items_deleted"`
	PackedBoxes      int64          `json:"packed_boxes_deleted"`
	Shipments        int64          `json:"shipments_deleted"`
	CollectionPreps  CategoryCounts `json:"collection_preps"`
	OrderSystem      struct {
		Deleted  int64 `json:"deleted"`
		Archived int64 `json:"archived"`
		Failed   int64 `json:"failed"`
	} `json:"order_system"`
	Failures []OrderFailure `json:"failures,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// TotalFailed is the failure count across all categories. A non-zero
// value must map to a non-zero process exit code.
func (s *Summary) TotalFailed() int64 {
	return s.Orders.Failed + s.CollectionPreps.Failed + s.OrderSystem.Failed
}

// ProgressFunc observes per-unit progress. It is an observation hook only,
// not a cancellation mechanism.
type ProgressFunc func(current, total int, label string)

// ConfirmFunc asks the operator to confirm before execution. Returning
// false aborts the run with no side effects.
type ConfirmFunc func(tag string, orderCount int) (bool, error)

// Options tunes one cleanup run.
type Options struct {
	DryRun           bool
	SkipConfirmation bool
	// Concurrency bounds the per-order deletion fan-out. <= 0 uses
	// async.DefaultLimit.
	Concurrency int
	Confirm     ConfirmFunc
	Progress    ProgressFunc
}

// Orchestrator drives one cleanup invocation: guard, selector resolution,
// order discovery, fan-out deletion, deferred collection prep deletion,
// order-system deletion, and summary aggregation.
type Orchestrator struct {
	env    models.Environment
	engine *Engine
	orders OrderSystem
}

// NewOrchestrator builds an orchestrator. The environment is passed in
// explicitly so tests can substitute it.
func NewOrchestrator(env models.Environment, engine *Engine, orders OrderSystem) *Orchestrator {
	return &Orchestrator{env: env, engine: engine, orders: orders}
}

// Run performs one cleanup. Per-order failures are recorded in the summary
// and do not abort the batch; validation and guard failures abort before
// any query.
func (o *Orchestrator) Run(ctx context.Context, sel Selector, opts Options) (*Summary, error) {
	start := time.Now()

	if o.env.IsProduction() {
		return nil, &models.EnvironmentGuardError{Environment: o.env.Name}
	}

	tag, err := sel.ResolveTag(o.orders.TagForBatch)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Tag: tag, DryRun: opts.DryRun}

	refs, err := o.orders.QueryOrdersByTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	summary.OrdersDiscovered = len(refs)
	if len(refs) == 0 {
		// Nothing to clean is a normal completion, not an error.
		summary.Duration = time.Since(start)
		logging.LogKV("info", "no orders matched tag, nothing to clean", map[string]interface{}{"tag": tag})
		return summary, nil
	}

	if opts.DryRun {
		if err := o.preview(ctx, refs, opts, summary); err != nil {
			return nil, err
		}
		summary.Duration = time.Since(start)
		return summary, nil
	}

	if !opts.SkipConfirmation && opts.Confirm != nil {
		ok, err := opts.Confirm(tag, len(refs))
		if err != nil {
			return nil, err
		}
		if !ok {
			summary.Aborted = true
			summary.Duration = time.Since(start)
			return summary, nil
		}
	}

	o.execute(ctx, refs, opts, summary)

	summary.Duration = time.Since(start)
	logging.LogKV("info", "cleanup completed", map[string]interface{}{
		"tag":         tag,
		"orders":      summary.Orders.Deleted,
		"failed":      summary.TotalFailed(),
		"duration_ms": summary.Duration.Milliseconds(),
		"dry_run":     false,
	})
	return summary, nil
}

// preview walks each order graph without mutating anything and aggregates
// the counts a real run would delete.
func (o *Orchestrator) preview(ctx context.Context, refs []OrderRef, opts Options, summary *Summary) error {
	var done atomic.Int64
	results, err := async.Process(ctx, refs, opts.Concurrency, func(ctx context.Context, ref OrderRef) (GraphResult, error) {
		res, err := o.engine.PreviewOrderGraph(ctx, ref.OrderID)
		if err != nil {
			return GraphResult{}, err
		}
		reportProgress(opts.Progress, int(done.Add(1)), len(refs), "orders")
		return res, nil
	})
	if err != nil {
		return err
	}

	collections := make(map[string]models.Region)
	for _, res := range results {
		if res.OrderDeleted {
			summary.Orders.Deleted++
		}
		accumulate(summary, res.Counts)
		for _, id := range res.CollectionPrepIDs {
			collections[id] = res.Region
		}
	}
	summary.CollectionPreps.Deleted = int64(len(collections))
	return nil
}

// orderOutcome pairs one order's deletion result with its error so a
// failing order does not abort the fan-out.
type orderOutcome struct {
	ref    OrderRef
	result GraphResult
	err    error
}

func (o *Orchestrator) execute(ctx context.Context, refs []OrderRef, opts Options, summary *Summary) {
	var done atomic.Int64
	outcomes, _ := async.Process(ctx, refs, opts.Concurrency, func(ctx context.Context, ref OrderRef) (orderOutcome, error) {
		res, err := o.engine.DeleteOrderGraph(ctx, ref.OrderID)
		reportProgress(opts.Progress, int(done.Add(1)), len(refs), "orders")
		// Failures are data here, never an error: the batch must keep going.
		return orderOutcome{ref: ref, result: res, err: err}, nil
	})

	collections := make(map[string]models.Region)
	var deletedIDs []string
	for _, out := range outcomes {
		if out.err != nil {
			summary.Orders.Failed++
			summary.Failures = append(summary.Failures, OrderFailure{OrderID: out.ref.OrderID, Reason: out.err.Error()})
			logging.LogKV("error", "order graph deletion failed", map[string]interface{}{
				"order_id": out.ref.OrderID,
				"error":    out.err.Error(),
			})
			continue
		}
		if out.result.OrderDeleted {
			summary.Orders.Deleted++
			deletedIDs = append(deletedIDs, out.ref.OrderID)
		} else {
			summary.Orders.Skipped++
		}
		accumulate(summary, out.result.Counts)
		for _, id := range out.result.CollectionPrepIDs {
			collections[id] = out.result.Region
		}
	}

	// Collection preps are shared across orders, so their deletion waits
	// until every referencing order has been processed.
	i := 0
	for id, region := range collections {
		i++
		deleted, err := o.engine.DeleteCollectionPrepIfUnreferenced(ctx, id, region)
		switch {
		case err != nil:
			summary.CollectionPreps.Failed++
			logging.LogKV("error", "collection prep deletion failed", map[string]interface{}{
				"collection_prep_id": id,
				"error":              err.Error(),
			})
		case deleted:
			summary.CollectionPreps.Deleted++
		default:
			summary.CollectionPreps.Skipped++
			logging.LogKV("info", "collection prep still referenced, skipping", map[string]interface{}{
				"collection_prep_id": id,
			})
		}
		reportProgress(opts.Progress, i, len(collections), "collection preps")
	}

	if len(deletedIDs) > 0 {
		outcomes, err := o.orders.DeleteOrders(ctx, deletedIDs)
		if err != nil {
			summary.OrderSystem.Failed += int64(len(deletedIDs))
			logging.LogKV("error", "order system deletion failed", map[string]interface{}{"error": err.Error()})
			return
		}
		for i, out := range outcomes {
			switch {
			case out.Err != nil:
				summary.OrderSystem.Failed++
			case out.Method == DeleteMethodArchived:
				summary.OrderSystem.Archived++
			default:
				summary.OrderSystem.Deleted++
			}
			reportProgress(opts.Progress, i+1, len(outcomes), "order system records")
		}
	}
}

func accumulate(summary *Summary, c GraphCounts) {
	summary.VariantOrders += c.VariantOrders
	summary.Preps += c.Preps
	summary.PrepParts += c.PrepParts
	summary.PrepPartItems += c.PrepPartItems
	summary.PackedBoxes += c.PackedBoxes
	summary.Shipments += c.Shipments
}

func reportProgress(fn ProgressFunc, current, total int, label string) {
	if fn != nil {
		fn(current, total, label)
	}
}
