package models

import (
	"time"
)

// Region identifies the operating region a row belongs to.
type Region string

const (
	RegionCA Region = "CA"
	RegionUS Region = "US"
)

// IsValid checks if the region is one we operate in.
func (r Region) IsValid() bool {
	switch r {
	case RegionCA, RegionUS:
		return true
	default:
		return false
	}
}

// OrderStatus represents the fulfillment-side status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPicking   OrderStatus = "picking"
	OrderStatusPacked    OrderStatus = "packed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// FulfillmentMode distinguishes pick-and-pack orders from regular picking.
type FulfillmentMode string

const (
	FulfillmentModeRegular FulfillmentMode = "Regular"
	FulfillmentModePnP     FulfillmentMode = "PnP"
)

// Order is the fulfillment-side record mirroring an order-system order.
type Order struct {
	ID          string      `json:"id" db:"id"`
	ExternalID  string      `json:"external_id" db:"external_id"`
	Status      OrderStatus `json:"status" db:"status"`
	Region      Region      `json:"region" db:"region"`
	CustomerRef string      `json:"customer_ref" db:"customer_ref"`
	LocationID  string      `json:"location_id" db:"location_id"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// VariantOrder is a line item linked to a catalog variant.
type VariantOrder struct {
	ID        string `json:"id" db:"id"`
	OrderID   string `json:"order_id" db:"order_id"`
	VariantID string `json:"variant_id" db:"variant_id"`
	Quantity  int    `json:"quantity" db:"quantity"`
	Region    Region `json:"region" db:"region"`
}

// Prep is a pick task for one variant within an order.
type Prep struct {
	ID               string  `json:"id" db:"id"`
	OrderID          string  `json:"order_id" db:"order_id"`
	CollectionPrepID *string `json:"collection_prep_id,omitempty" db:"collection_prep_id"`
	Region           Region  `json:"region" db:"region"`
}

// PrepPart is a part requirement derived from a Prep.
type PrepPart struct {
	ID       string `json:"id" db:"id"`
	PrepID   string `json:"prep_id" db:"prep_id"`
	PartID   string `json:"part_id" db:"part_id"`
	Quantity int    `json:"quantity" db:"quantity"`
	Region   Region `json:"region" db:"region"`
}

// PrepPartItem is an individual unit instance of a PrepPart.
type PrepPartItem struct {
	ID          string  `json:"id" db:"id"`
	PrepPartID  string  `json:"prep_part_id" db:"prep_part_id"`
	PackedBoxID *string `json:"packed_box_id,omitempty" db:"packed_box_id"`
}

// Shipment is a shipping record for an order within a collection prep.
type Shipment struct {
	ID               string  `json:"id" db:"id"`
	OrderID          string  `json:"order_id" db:"order_id"`
	CollectionPrepID *string `json:"collection_prep_id,omitempty" db:"collection_prep_id"`
	Status           string  `json:"status" db:"status"`
}

// CollectionPrep is a carrier/location/day batch grouping many orders'
// preps and shipments. IDs are derived (see batchid), unique per (id, region).
type CollectionPrep struct {
	ID         string    `json:"id" db:"id"`
	Region     Region    `json:"region" db:"region"`
	Carrier    string    `json:"carrier" db:"carrier"`
	LocationID string    `json:"location_id" db:"location_id"`
	Day        time.Time `json:"day" db:"day"`
}

// PackedBox is a packed container record for pick-and-pack fulfillment.
type PackedBox struct {
	ID               string `json:"id" db:"id"`
	CollectionPrepID string `json:"collection_prep_id" db:"collection_prep_id"`
	OrderID          string `json:"order_id" db:"order_id"`
	Status           string `json:"status" db:"status"`
}

// Location is a warehouse location. The display name feeds the batch
// identifier abbreviation.
type Location struct {
	ID     string `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Region Region `json:"region" db:"region"`
}

// StockLevel is the available quantity of a variant in a region.
type StockLevel struct {
	VariantID string `json:"variant_id" db:"variant_id"`
	Region    Region `json:"region" db:"region"`
	Quantity  int    `json:"quantity" db:"quantity"`
}
