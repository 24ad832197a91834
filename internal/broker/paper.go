package broker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tradesim/internal/model"
)

// Paper simulates order execution against a local cash/position book.
// Buys are rejected when cost exceeds available cash, sells when the
// requested volume exceeds the held position. No slippage, no fees.
type Paper struct {
	mu        sync.RWMutex
	accountID string
	cash      float64
	positions map[string]int64
	orders    []model.Order
	marks     map[string]float64 // last known price per symbol
	orderSeq  int64
}

// NewPaper creates a paper broker with the given starting cash.
func NewPaper(accountID string, cash float64) *Paper {
	return &Paper{
		accountID: accountID,
		cash:      cash,
		positions: make(map[string]int64),
		orders:    make([]model.Order, 0, 256),
		marks:     make(map[string]float64),
	}
}

// SubmitOrder simulates immediate execution. The returned order carries a
// terminal status; rejections are not errors.
func (p *Paper) SubmitOrder(_ context.Context, symbol string, dir model.Direction, price float64, volume int64) (model.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.orderSeq++
	order := model.Order{
		ID:        fmt.Sprintf("SIM-%d", p.orderSeq),
		Symbol:    symbol,
		Direction: dir,
		Price:     price,
		Volume:    volume,
		Status:    model.OrderSubmitted,
		CreatedAt: time.Now(),
	}

	switch dir {
	case model.Buy:
		cost := price * float64(volume)
		if cost <= p.cash {
			p.cash -= cost
			p.positions[symbol] += volume
			order.Status = model.OrderFilled
		} else {
			order.Status = model.OrderRejected
		}
	case model.Sell:
		if p.positions[symbol] >= volume {
			p.positions[symbol] -= volume
			if p.positions[symbol] == 0 {
				delete(p.positions, symbol)
			}
			p.cash += price * float64(volume)
			order.Status = model.OrderFilled
		} else {
			order.Status = model.OrderRejected
		}
	default:
		order.Status = model.OrderRejected
	}

	p.marks[symbol] = price
	p.orders = append(p.orders, order)

	log.Printf("[paper] %s %s vol=%d price=%.2f status=%s order=%s",
		dir, symbol, volume, price, order.Status, order.ID)
	return order, nil
}

// AccountInfo returns cash, positions, and total assets valued at the last
// price seen per symbol. Symbols never traded or marked value at zero.
func (p *Paper) AccountInfo(_ context.Context) (model.AccountInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	positions := make(map[string]int64, len(p.positions))
	total := p.cash
	for sym, vol := range p.positions {
		positions[sym] = vol
		total += float64(vol) * p.marks[sym]
	}
	return model.AccountInfo{
		AccountID:   p.accountID,
		Cash:        p.cash,
		Positions:   positions,
		TotalAssets: total,
	}, nil
}

// MarkPrice records the latest price for a symbol so AccountInfo can value
// open positions between fills.
func (p *Paper) MarkPrice(symbol string, price float64) {
	p.mu.Lock()
	p.marks[symbol] = price
	p.mu.Unlock()
}

// Position returns the held volume for one symbol.
func (p *Paper) Position(symbol string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.positions[symbol]
}

// Orders returns a snapshot of the order history, optionally filtered by
// status ("" returns everything).
func (p *Paper) Orders(status model.OrderStatus) []model.Order {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if status == "" {
		cp := make([]model.Order, len(p.orders))
		copy(cp, p.orders)
		return cp
	}
	var out []model.Order
	for _, o := range p.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}
