package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Symbols != "000001" {
		t.Errorf("Symbols = %q", cfg.Symbols)
	}
	if cfg.InitialCapital != 1000000 {
		t.Errorf("InitialCapital = %v", cfg.InitialCapital)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.BrokerURL != "" {
		t.Errorf("BrokerURL = %q, want empty (paper)", cfg.BrokerURL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "000001, 600519,,300750")
	t.Setenv("RISK_PER_TRADE", "0.05")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("HISTORY", "120")

	cfg := Load()
	if cfg.RiskPerTrade != 0.05 {
		t.Errorf("RiskPerTrade = %v", cfg.RiskPerTrade)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.History != 120 {
		t.Errorf("History = %d", cfg.History)
	}

	symbols := cfg.ParseSymbols()
	want := []string{"000001", "600519", "300750"}
	if len(symbols) != len(want) {
		t.Fatalf("symbols = %v", symbols)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("symbols[%d] = %q, want %q", i, symbols[i], want[i])
		}
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("INITIAL_CAPITAL", "lots")
	t.Setenv("POLL_INTERVAL", "-3s")
	t.Setenv("HISTORY", "many")

	cfg := Load()
	if cfg.InitialCapital != 1000000 {
		t.Errorf("InitialCapital = %v, want default", cfg.InitialCapital)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("PollInterval = %v, want default", cfg.PollInterval)
	}
	if cfg.History != 60 {
		t.Errorf("History = %d, want default", cfg.History)
	}
}
