// Package alert delivers trading events (fills, risk rejections, drawdown
// breaches) to external channels.
package alert

import (
	"context"
	"fmt"
	"log"

	"tradesim/internal/model"
)

// Level is the severity of an alert.
type Level string

const (
	Info     Level = "INFO"
	Warning  Level = "WARNING"
	Critical Level = "CRITICAL"
)

// Alert is one notification to be delivered.
type Alert struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notifier delivers alerts to one backend.
type Notifier interface {
	Send(ctx context.Context, a Alert) error
}

// Fill builds the alert for an executed order.
func Fill(order model.Order) Alert {
	return Alert{
		Level: Info,
		Title: fmt.Sprintf("Fill %s", order.ID),
		Message: fmt.Sprintf("%s %s vol=%d @ %.2f (%.2f yuan)",
			order.Direction, order.Symbol, order.Volume, order.Price,
			order.Price*float64(order.Volume)),
	}
}

// Rejection builds the alert for a risk-blocked order.
func Rejection(order model.Order, reason string) Alert {
	return Alert{
		Level: Warning,
		Title: fmt.Sprintf("Order blocked: %s", order.Symbol),
		Message: fmt.Sprintf("%s vol=%d @ %.2f rejected: %s",
			order.Direction, order.Volume, order.Price, reason),
	}
}

// DrawdownBreach builds the alert for a max-drawdown limit breach.
func DrawdownBreach(drawdown, limit float64) Alert {
	return Alert{
		Level: Critical,
		Title: "Max drawdown breached",
		Message: fmt.Sprintf("portfolio drawdown %.2f%% exceeds limit %.2f%%",
			drawdown*100, limit*100),
	}
}

// LogNotifier writes alerts to the process log. Used when no webhook is
// configured, so alert call sites never need nil checks.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, a Alert) error {
	log.Printf("[alert] [%s] %s: %s", a.Level, a.Title, a.Message)
	return nil
}
