package tools

import (
	"context"

	"github.com/boonlink/bridge/internal/orders"
)

// CheckStatusResult is check_status's {success, ..., error?} result.
type CheckStatusResult struct {
	Success bool
	Order   *orders.Order
	Error   string
}

// CheckStatus looks up an order by id.
func (c *Context) CheckStatus(ctx context.Context, orderID string) CheckStatusResult {
	order, err := c.OrderStore.Get(ctx, orderID)
	if err != nil {
		return CheckStatusResult{Success: false, Error: err.Error()}
	}
	return CheckStatusResult{Success: true, Order: &order}
}
