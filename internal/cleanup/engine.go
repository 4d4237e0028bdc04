// Package cleanup tears down synthetic order graphs in the fulfillment
// store and coordinates the matching deletions in the order system.
package cleanup

import (
	"context"
	"fmt"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store"
)

// GraphCounts holds exact per-entity-type row counts for one order's graph.
type GraphCounts struct {
	PackedBoxes   int64 `json:"packed_boxes"`
	PrepPartItems int64 `json:"prep_part_items"`
	PrepParts     int64 `json:"prep_parts"`
	Preps         int64 `json:"preps"`
	Shipments     int64 `json:"shipments"`
	VariantOrders int64 `json:"variant_orders"`
}

// GraphResult is the outcome of deleting (or previewing) one order graph.
type GraphResult struct {
	Counts       GraphCounts
	OrderDeleted bool
	// CollectionPrepIDs are the distinct collection preps the order's
	// preps and shipments referenced. The orchestrator defers grouping
	// deletion until all orders are processed.
	CollectionPrepIDs []string
	Region            models.Region
}

// Engine deletes full order graphs leaf-first inside one retried
// serializable transaction per order.
type Engine struct {
	store store.Store
	retry store.RetryOptions
}

// NewEngine returns an Engine over the given store.
func NewEngine(s store.Store, retry store.RetryOptions) *Engine {
	return &Engine{store: s, retry: retry}
}

// DeleteOrderGraph deletes the order identified by its external id and all
// of its dependent rows, children before parents, in one transaction.
// A missing order is not an error: the result has all-zero counts and
// OrderDeleted=false, which keeps re-invocations idempotent and cheap.
func (e *Engine) DeleteOrderGraph(ctx context.Context, externalID string) (GraphResult, error) {
	var result GraphResult
	err := store.RunWithRetry(ctx, e.store, func(tx store.Tx) error {
		// Reset on each attempt so a retried transaction does not
		// accumulate counts from a rolled-back one.
		result = GraphResult{}
		return e.deleteGraph(ctx, tx, externalID, &result)
	}, e.retry)
	if err != nil {
		return GraphResult{}, fmt.Errorf("failed to delete order graph %s: %w", externalID, err)
	}
	return result, nil
}

// PreviewOrderGraph walks the same graph without deleting anything and
// reports the row counts a deletion would produce. Used by dry-run.
func (e *Engine) PreviewOrderGraph(ctx context.Context, externalID string) (GraphResult, error) {
	var result GraphResult
	err := e.store.WithTransaction(ctx, store.IsolationReadCommitted, func(tx store.Tx) error {
		result = GraphResult{}
		return e.previewGraph(ctx, tx, externalID, &result)
	})
	if err != nil {
		return GraphResult{}, fmt.Errorf("failed to preview order graph %s: %w", externalID, err)
	}
	return result, nil
}

// DeleteCollectionPrepIfUnreferenced deletes a collection prep only when
// zero preps still reference it. Returns true when the row was removed,
// false when deletion was skipped or the row was already gone.
func (e *Engine) DeleteCollectionPrepIfUnreferenced(ctx context.Context, id string, region models.Region) (bool, error) {
	var deleted bool
	err := store.RunWithRetry(ctx, e.store, func(tx store.Tx) error {
		deleted = false
		refs, err := tx.CountCollectionPrepRefs(ctx, id, region)
		if err != nil {
			return err
		}
		if refs > 0 {
			// Still referenced: skip, never force.
			return nil
		}
		n, err := tx.DeleteCollectionPrep(ctx, id, region)
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	}, e.retry)
	if err != nil {
		return false, fmt.Errorf("failed to delete collection prep %s: %w", id, err)
	}
	return deleted, nil
}

// graphRows is the loaded shape of one order's dependent rows.
type graphRows struct {
	order       *models.Order
	prepIDs     []string
	prepPartIDs []string
	boxIDs      []string
	itemCount   int64
	collections []string
}

// loadGraph performs steps 1-4: load the order, its preps, their parts,
// and their part items, collecting referenced packed boxes and collection
// preps along the way.
func (e *Engine) loadGraph(ctx context.Context, tx store.Tx, externalID string) (*graphRows, error) {
	order, err := tx.FindOrderByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, nil
	}

	rows := &graphRows{order: order}
	collections := make(map[string]bool)

	preps, err := tx.ListPreps(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range preps {
		rows.prepIDs = append(rows.prepIDs, p.ID)
		if p.CollectionPrepID != nil {
			collections[*p.CollectionPrepID] = true
		}
	}

	rows.prepPartIDs, err = tx.ListPrepPartIDs(ctx, rows.prepIDs)
	if err != nil {
		return nil, err
	}

	items, err := tx.ListPrepPartItems(ctx, rows.prepPartIDs)
	if err != nil {
		return nil, err
	}
	rows.itemCount = int64(len(items))
	boxes := make(map[string]bool)
	for _, it := range items {
		if it.PackedBoxID != nil {
			boxes[*it.PackedBoxID] = true
		}
	}
	for id := range boxes {
		rows.boxIDs = append(rows.boxIDs, id)
	}

	shipments, err := tx.ListShipments(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	for _, s := range shipments {
		if s.CollectionPrepID != nil {
			collections[*s.CollectionPrepID] = true
		}
	}
	for id := range collections {
		rows.collections = append(rows.collections, id)
	}

	return rows, nil
}

// deleteGraph performs steps 5-11 in referential-dependency order:
// packed boxes, prep part items, prep parts, preps, shipments, variant
// orders, and finally the order row itself.
func (e *Engine) deleteGraph(ctx context.Context, tx store.Tx, externalID string, result *GraphResult) error {
	rows, err := e.loadGraph(ctx, tx, externalID)
	if err != nil {
		return err
	}
	if rows == nil {
		return nil
	}
	result.CollectionPrepIDs = rows.collections
	result.Region = rows.order.Region

	if result.Counts.PackedBoxes, err = tx.DeletePackedBoxes(ctx, rows.boxIDs); err != nil {
		return err
	}
	if result.Counts.PrepPartItems, err = tx.DeletePrepPartItems(ctx, rows.prepPartIDs); err != nil {
		return err
	}
	if result.Counts.PrepParts, err = tx.DeletePrepParts(ctx, rows.prepIDs); err != nil {
		return err
	}
	if result.Counts.Preps, err = tx.DeletePreps(ctx, rows.order.ID); err != nil {
		return err
	}
	if result.Counts.Shipments, err = tx.DeleteShipments(ctx, rows.order.ID); err != nil {
		return err
	}
	if result.Counts.VariantOrders, err = tx.DeleteVariantOrders(ctx, rows.order.ID); err != nil {
		return err
	}

	n, err := tx.DeleteOrder(ctx, rows.order.ID)
	if err != nil {
		return err
	}
	result.OrderDeleted = n > 0
	return nil
}

// previewGraph counts the same rows deleteGraph would remove.
func (e *Engine) previewGraph(ctx context.Context, tx store.Tx, externalID string, result *GraphResult) error {
	rows, err := e.loadGraph(ctx, tx, externalID)
	if err != nil {
		return err
	}
	if rows == nil {
		return nil
	}

	shipments, err := tx.ListShipments(ctx, rows.order.ID)
	if err != nil {
		return err
	}
	variantOrders, err := tx.CountVariantOrders(ctx, rows.order.ID)
	if err != nil {
		return err
	}

	result.CollectionPrepIDs = rows.collections
	result.Region = rows.order.Region
	result.Counts = GraphCounts{
		PackedBoxes:   int64(len(rows.boxIDs)),
		PrepPartItems: rows.itemCount,
		PrepParts:     int64(len(rows.prepPartIDs)),
		Preps:         int64(len(rows.prepIDs)),
		Shipments:     int64(len(shipments)),
		VariantOrders: variantOrders,
	}
	result.OrderDeleted = true
	return nil
}
