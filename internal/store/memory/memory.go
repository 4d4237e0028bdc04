// Package memory implements store.Store in process memory. It backs the
// order-system stub server and the engine/orchestrator tests, where a real
// Postgres instance is not available. Transactions take a snapshot of the
// whole state and restore it on rollback; a single mutex serializes
// transactions, which trivially satisfies serializable isolation.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store"
)

type state struct {
	orders          map[string]models.Order // keyed by order id
	variantOrders   map[string]models.VariantOrder
	preps           map[string]models.Prep
	prepParts       map[string]models.PrepPart
	prepPartItems   map[string]models.PrepPartItem
	shipments       map[string]models.Shipment
	packedBoxes     map[string]models.PackedBox
	collectionPreps map[string]models.CollectionPrep // keyed by id+"|"+region
	locations       map[string]models.Location
	stockLevels     map[string]models.StockLevel // keyed by variant+"|"+region
}

func newState() *state {
	return &state{
		orders:          make(map[string]models.Order),
		variantOrders:   make(map[string]models.VariantOrder),
		preps:           make(map[string]models.Prep),
		prepParts:       make(map[string]models.PrepPart),
		prepPartItems:   make(map[string]models.PrepPartItem),
		shipments:       make(map[string]models.Shipment),
		packedBoxes:     make(map[string]models.PackedBox),
		collectionPreps: make(map[string]models.CollectionPrep),
		locations:       make(map[string]models.Location),
		stockLevels:     make(map[string]models.StockLevel),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.variantOrders {
		c.variantOrders[k] = v
	}
	for k, v := range s.preps {
		c.preps[k] = v
	}
	for k, v := range s.prepParts {
		c.prepParts[k] = v
	}
	for k, v := range s.prepPartItems {
		c.prepPartItems[k] = v
	}
	for k, v := range s.shipments {
		c.shipments[k] = v
	}
	for k, v := range s.packedBoxes {
		c.packedBoxes[k] = v
	}
	for k, v := range s.collectionPreps {
		c.collectionPreps[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.stockLevels {
		c.stockLevels[k] = v
	}
	return c
}

// Store is the in-memory store.Store implementation.
type Store struct {
	mu sync.Mutex
	st *state

	// failures maps a Tx operation name (e.g. "DeletePrepParts") to an
	// error returned once on the next invocation. Tests use this to
	// simulate mid-transaction failures and verify rollback.
	failures map[string]error
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		st:       newState(),
		failures: make(map[string]error),
	}
}

// FailOnce makes the named Tx operation return err on its next call.
func (s *Store) FailOnce(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) takeFailure(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// WithTransaction runs fn against a snapshot; on error the snapshot is
// discarded, on success it replaces the live state.
func (s *Store) WithTransaction(ctx context.Context, iso store.IsolationLevel, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.st.clone()
	tx := &memTx{st: working, parent: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = working
	return nil
}

// GetLocation returns the location by id, or store.ErrNotFound.
func (s *Store) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.st.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, store.ErrNotFound)
	}
	return &loc, nil
}

// AddLocation registers a location. Test and stub setup helper.
func (s *Store) AddLocation(loc models.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.locations[loc.ID] = loc
}

// ListCollectionPrepIDs returns collection prep ids matching region,
// location, carrier, and calendar day.
func (s *Store) ListCollectionPrepIDs(ctx context.Context, region models.Region, locationID, carrier string, day time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, cp := range s.st.collectionPreps {
		if cp.Region == region && cp.LocationID == locationID && cp.Carrier == carrier && sameDay(cp.Day, day) {
			ids = append(ids, cp.ID)
		}
	}
	return ids, nil
}

// GetStockLevels returns stock levels for the given variants in a region.
func (s *Store) GetStockLevels(ctx context.Context, region models.Region, variantIDs []string) ([]models.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var levels []models.StockLevel
	for _, id := range variantIDs {
		if sl, ok := s.st.stockLevels[stockKey(id, region)]; ok {
			levels = append(levels, sl)
		}
	}
	return levels, nil
}

// AddStock increases the stock level of a variant, creating the row if it
// does not exist.
func (s *Store) AddStock(ctx context.Context, region models.Region, variantID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stockKey(variantID, region)
	sl, ok := s.st.stockLevels[key]
	if !ok {
		sl = models.StockLevel{VariantID: variantID, Region: region}
	}
	sl.Quantity += quantity
	s.st.stockLevels[key] = sl
	return nil
}

// CountRows reports live row counts per table for non-mutation assertions
// in dry-run and rollback tests.
func (s *Store) CountRows() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"orders":           len(s.st.orders),
		"variant_orders":   len(s.st.variantOrders),
		"preps":            len(s.st.preps),
		"prep_parts":       len(s.st.prepParts),
		"prep_part_items":  len(s.st.prepPartItems),
		"shipments":        len(s.st.shipments),
		"packed_boxes":     len(s.st.packedBoxes),
		"collection_preps": len(s.st.collectionPreps),
	}
}

func stockKey(variantID string, region models.Region) string {
	return variantID + "|" + string(region)
}

func cpKey(id string, region models.Region) string {
	return id + "|" + string(region)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
