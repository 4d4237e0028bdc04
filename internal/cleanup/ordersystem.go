package cleanup

import "context"

// OrderRef identifies one order in the order system.
type OrderRef struct {
	OrderID string `json:"order_id"`
}

// DeleteMethod is how the order system disposed of a record.
type DeleteMethod string

const (
	DeleteMethodDeleted  DeleteMethod = "deleted"
	DeleteMethodArchived DeleteMethod = "archived"
)

// DeleteOutcome is the per-order result of the order-system delete path.
type DeleteOutcome struct {
	OrderID string
	Method  DeleteMethod
	Err     error
}

// OrderSystem is the slice of the order-management platform the
// orchestrator depends on. The real implementation is
// ordersystem.Client; tests substitute fakes.
type OrderSystem interface {
	// QueryOrdersByTag returns all orders carrying the tag.
	QueryOrdersByTag(ctx context.Context, tag string) ([]OrderRef, error)
	// DeleteOrders deletes or archives each order, reporting the method
	// per order. A per-order failure is carried in the outcome, not
	// returned as the call's error.
	DeleteOrders(ctx context.Context, orderIDs []string) ([]DeleteOutcome, error)
	// TagForBatch maps a batch identifier to its canonical tag string.
	TagForBatch(batchID string) string
}
