// Package seed creates synthetic order graphs in the fulfillment store
// and registers them in the order system under a batch tag, so a later
// cleanup run can find and tear them down.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/batchid"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/logging"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/ordersystem"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store"
)

// OrderRegistry is the slice of the order system the seeder needs.
type OrderRegistry interface {
	CreateOrder(ctx context.Context, req ordersystem.CreateOrderRequest) error
	TagForBatch(batchID string) string
}

// Params describes one seeding batch.
type Params struct {
	Orders     int
	Carrier    string
	LocationID string
	Region     models.Region
	Day        time.Time
	// PnP seeds pick-and-pack orders, which carry packed boxes.
	PnP bool
	// BatchID is generated when empty.
	BatchID string
}

// Result summarizes one seeding batch.
type Result struct {
	BatchID          string `json:"batch_id"`
	Tag              string `json:"tag"`
	Orders           int    `json:"orders"`
	CollectionPrepID string `json:"collection_prep_id"`
}

// Seeder creates synthetic order data.
type Seeder struct {
	store    store.Store
	gen      *batchid.Generator
	registry OrderRegistry
	env      models.Environment
	retry    store.RetryOptions
}

// NewSeeder builds a seeder. The environment is passed explicitly so the
// guard is testable.
func NewSeeder(s store.Store, gen *batchid.Generator, registry OrderRegistry, env models.Environment, retry store.RetryOptions) *Seeder {
	return &Seeder{store: s, gen: gen, registry: registry, env: env, retry: retry}
}

// SeedBatch creates params.Orders synthetic orders grouped under one
// freshly derived collection prep, and registers each order in the order
// system under the batch tag.
func (s *Seeder) SeedBatch(ctx context.Context, params Params) (*Result, error) {
	if s.env.IsProduction() {
		return nil, &models.EnvironmentGuardError{Environment: s.env.Name}
	}
	if params.Orders <= 0 {
		return nil, &models.ValidationError{Field: "orders", Message: "must be at least 1"}
	}
	if !params.Region.IsValid() {
		return nil, &models.ValidationError{Field: "region", Message: fmt.Sprintf("unknown region %q", params.Region)}
	}

	batchID := params.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	tag := s.registry.TagForBatch(batchID)

	day := params.Day
	if day.IsZero() {
		day = time.Now().UTC()
	}

	cpIDs, err := s.gen.GenerateIDs(ctx, 1, params.Carrier, params.LocationID, day, params.Region)
	if err != nil {
		return nil, err
	}
	cpID := cpIDs[0]

	err = store.RunWithRetry(ctx, s.store, func(tx store.Tx) error {
		return tx.InsertCollectionPrep(ctx, models.CollectionPrep{
			ID:         cpID,
			Region:     params.Region,
			Carrier:    params.Carrier,
			LocationID: params.LocationID,
			Day:        day,
		})
	}, s.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection prep: %w", err)
	}

	for i := 0; i < params.Orders; i++ {
		externalID := fmt.Sprintf("UAT-%s-%d", batchID[:8], i+1)
		if err := s.seedOrder(ctx, params, externalID, cpID); err != nil {
			return nil, fmt.Errorf("failed to seed order %s: %w", externalID, err)
		}
		if err := s.registry.CreateOrder(ctx, ordersystem.CreateOrderRequest{
			OrderID:     externalID,
			Region:      params.Region,
			CustomerRef: "uat-customer",
			Tag:         tag,
		}); err != nil {
			return nil, err
		}
	}

	logging.LogKV("info", "seeded batch", map[string]interface{}{
		"batch_id": batchID,
		"tag":      tag,
		"orders":   params.Orders,
	})
	return &Result{BatchID: batchID, Tag: tag, Orders: params.Orders, CollectionPrepID: cpID}, nil
}

// seedOrder inserts one order and its full dependent graph in a single
// transaction: a variant order, a prep under the collection prep, a prep
// part with one part item, and a shipment. PnP batches also get a packed
// box the part item references.
func (s *Seeder) seedOrder(ctx context.Context, params Params, externalID, cpID string) error {
	return store.RunWithRetry(ctx, s.store, func(tx store.Tx) error {
		orderID := uuid.NewString()
		if err := tx.InsertOrder(ctx, models.Order{
			ID:          orderID,
			ExternalID:  externalID,
			Status:      models.OrderStatusPending,
			Region:      params.Region,
			CustomerRef: "uat-customer",
			LocationID:  params.LocationID,
			CreatedAt:   time.Now().UTC(),
		}); err != nil {
			return err
		}

		variantID := "VAR-" + uuid.NewString()[:8]
		if err := tx.InsertVariantOrder(ctx, models.VariantOrder{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			VariantID: variantID,
			Quantity:  1,
			Region:    params.Region,
		}); err != nil {
			return err
		}

		prepID := uuid.NewString()
		if err := tx.InsertPrep(ctx, models.Prep{
			ID:               prepID,
			OrderID:          orderID,
			CollectionPrepID: &cpID,
			Region:           params.Region,
		}); err != nil {
			return err
		}

		partID := uuid.NewString()
		if err := tx.InsertPrepPart(ctx, models.PrepPart{
			ID:       partID,
			PrepID:   prepID,
			PartID:   "PART-" + uuid.NewString()[:8],
			Quantity: 1,
			Region:   params.Region,
		}); err != nil {
			return err
		}

		var boxID *string
		if params.PnP {
			id := uuid.NewString()
			if err := tx.InsertPackedBox(ctx, models.PackedBox{
				ID:               id,
				CollectionPrepID: cpID,
				OrderID:          orderID,
				Status:           "packed",
			}); err != nil {
				return err
			}
			boxID = &id
		}

		if err := tx.InsertPrepPartItem(ctx, models.PrepPartItem{
			ID:          uuid.NewString(),
			PrepPartID:  partID,
			PackedBoxID: boxID,
		}); err != nil {
			return err
		}

		return tx.InsertShipment(ctx, models.Shipment{
			ID:               uuid.NewString(),
			OrderID:          orderID,
			CollectionPrepID: &cpID,
			Status:           "pending",
		})
	}, s.retry)
}
