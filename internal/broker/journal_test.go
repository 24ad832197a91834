package broker

import (
	"path/filepath"
	"testing"
	"time"

	"tradesim/internal/model"
)

func TestJournal_RecordAndReadBack(t *testing.T) {
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	defer j.Close()

	now := time.Now()
	orders := []model.Order{
		{ID: "SIM-1", Symbol: "600519", Direction: model.Buy, Price: 1500.0, Volume: 100, Status: model.OrderFilled},
		{ID: "SIM-2", Symbol: "600519", Direction: model.Sell, Price: 1520.0, Volume: 100, Status: model.OrderFilled},
	}
	for _, o := range orders {
		if err := j.RecordFill(o, now); err != nil {
			t.Fatalf("RecordFill(%s): %v", o.ID, err)
		}
	}

	fills, err := j.Fills(10)
	if err != nil {
		t.Fatalf("Fills: %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("got %d fills, want 2", len(fills))
	}
	// newest first
	if fills[0].OrderID != "SIM-2" {
		t.Errorf("first fill = %s, want SIM-2", fills[0].OrderID)
	}
	if fills[0].Value != 152000 {
		t.Errorf("value = %f, want 152000", fills[0].Value)
	}
	if fills[1].Direction != "buy" {
		t.Errorf("direction = %s, want buy", fills[1].Direction)
	}
}

func TestJournal_LimitCapsRows(t *testing.T) {
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	defer j.Close()

	for i := 0; i < 5; i++ {
		j.RecordFill(model.Order{ID: "SIM-x", Symbol: "000001", Direction: model.Buy, Price: 10, Volume: 100}, time.Now())
	}
	fills, _ := j.Fills(3)
	if len(fills) != 3 {
		t.Errorf("got %d fills, want 3", len(fills))
	}
}
