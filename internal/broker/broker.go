// Package broker places orders and reports account state. The Paper broker
// simulates fills against a local cash/position book; Remote talks to an HTTP
// broker gateway with TOTP session login. The Journal persists fills to
// SQLite for audit.
package broker

import (
	"context"

	"tradesim/internal/model"
)

// Broker places orders and reports account state. SubmitOrder always returns
// an order with a terminal status (filled or rejected); the error is reserved
// for transport or infrastructure failures, not trading rejections.
type Broker interface {
	SubmitOrder(ctx context.Context, symbol string, dir model.Direction, price float64, volume int64) (model.Order, error)
	AccountInfo(ctx context.Context) (model.AccountInfo, error)
}
