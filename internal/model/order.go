package model

import "time"

// Direction of an order.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// OrderStatus is the order lifecycle state. The terminal status (filled or
// rejected) is set exactly once, by the execution side.
type OrderStatus string

const (
	OrderSubmitted OrderStatus = "submitted"
	OrderFilled    OrderStatus = "filled"
	OrderRejected  OrderStatus = "rejected"
)

// Order is a single order request built by the live loop and resolved by the
// broker. Volume is a positive whole-lot share count (multiples of 100).
type Order struct {
	ID        string      `json:"order_id"`
	Symbol    string      `json:"symbol"`
	Direction Direction   `json:"direction"`
	Price     float64     `json:"price"` // yuan
	Volume    int64       `json:"volume"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// Trade is an immutable record of an executed order, appended exactly once
// per fill. Value = Price × Volume.
type Trade struct {
	TS        time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Price     float64   `json:"price"`
	Volume    int64     `json:"volume"`
	Value     float64   `json:"value"`
}

// AccountInfo is the broker's view of the account, consumed by risk checks.
type AccountInfo struct {
	AccountID   string           `json:"account_id"`
	Cash        float64          `json:"cash"`
	Positions   map[string]int64 `json:"positions"`
	TotalAssets float64          `json:"total_assets"`
}
