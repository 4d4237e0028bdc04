// Package store defines the fulfillment-store boundary consumed by the
// cleanup engine, the batch identifier generator, the inventory checker,
// and the seeder. Adapters (postgres, memory) implement these interfaces;
// transaction boundaries and retry policy live in this package so no
// consumer opens transactions on its own.
package store

import (
	"context"
	"time"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
)

// IsolationLevel selects the transaction isolation for WithTransaction.
type IsolationLevel string

const (
	IsolationReadCommitted IsolationLevel = "read committed"
	IsolationSerializable  IsolationLevel = "serializable"
)

// Store is the fulfillment-store boundary. All mutations of the order
// graph happen inside WithTransaction; the remaining methods are
// single-statement reads/writes that need no transaction of their own.
type Store interface {
	// WithTransaction runs fn inside one transaction at the given
	// isolation level. fn returning an error rolls the transaction back;
	// nil commits it.
	WithTransaction(ctx context.Context, iso IsolationLevel, fn func(tx Tx) error) error

	// GetLocation returns the location by id, or ErrNotFound.
	GetLocation(ctx context.Context, id string) (*models.Location, error)

	// ListCollectionPrepIDs returns the ids of collection preps matching
	// the given region, location, carrier, and calendar day.
	ListCollectionPrepIDs(ctx context.Context, region models.Region, locationID, carrier string, day time.Time) ([]string, error)

	// GetStockLevels returns stock levels for the given variants in a region.
	// Variants with no row are simply absent from the result.
	GetStockLevels(ctx context.Context, region models.Region, variantIDs []string) ([]models.StockLevel, error)

	// AddStock increases the stock level of a variant, creating the row
	// if it does not exist.
	AddStock(ctx context.Context, region models.Region, variantID string, quantity int) error
}

// Tx is the set of operations available inside one transaction.
//
// The deletion methods are bulk by design: the engine deletes whole
// child-sets per order, not row by row.
type Tx interface {
	// FindOrderByExternalID returns (nil, nil) when no order matches,
	// so idempotent re-runs see "nothing to do" rather than an error.
	FindOrderByExternalID(ctx context.Context, externalID string) (*models.Order, error)
	ListPreps(ctx context.Context, orderID string) ([]models.Prep, error)
	ListPrepPartIDs(ctx context.Context, prepIDs []string) ([]string, error)
	ListPrepPartItems(ctx context.Context, prepPartIDs []string) ([]models.PrepPartItem, error)
	ListShipments(ctx context.Context, orderID string) ([]models.Shipment, error)
	CountVariantOrders(ctx context.Context, orderID string) (int64, error)

	DeletePackedBoxes(ctx context.Context, boxIDs []string) (int64, error)
	DeletePrepPartItems(ctx context.Context, prepPartIDs []string) (int64, error)
	DeletePrepParts(ctx context.Context, prepIDs []string) (int64, error)
	DeletePreps(ctx context.Context, orderID string) (int64, error)
	DeleteShipments(ctx context.Context, orderID string) (int64, error)
	DeleteVariantOrders(ctx context.Context, orderID string) (int64, error)
	DeleteOrder(ctx context.Context, orderID string) (int64, error)

	// CountCollectionPrepRefs counts preps still referencing a collection
	// prep. The orchestrator only deletes groupings whose count is zero.
	CountCollectionPrepRefs(ctx context.Context, collectionPrepID string, region models.Region) (int64, error)
	DeleteCollectionPrep(ctx context.Context, id string, region models.Region) (int64, error)

	InsertOrder(ctx context.Context, o models.Order) error
	InsertVariantOrder(ctx context.Context, vo models.VariantOrder) error
	InsertPrep(ctx context.Context, p models.Prep) error
	InsertPrepPart(ctx context.Context, pp models.PrepPart) error
	InsertPrepPartItem(ctx context.Context, ppi models.PrepPartItem) error
	InsertShipment(ctx context.Context, s models.Shipment) error
	InsertPackedBox(ctx context.Context, b models.PackedBox) error
	InsertCollectionPrep(ctx context.Context, cp models.CollectionPrep) error
}
