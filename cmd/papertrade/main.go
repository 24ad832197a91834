// cmd/papertrade runs the live paper trading pipeline: a quote producer
// (Eastmoney polling or a WebSocket feed) feeds the ring, the live loop
// turns snapshots into sized, risk-checked orders against the paper broker
// (or a remote gateway when BROKER_URL is set).
//
// Configuration is environment-driven; see config.Load.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradesim/config"
	"tradesim/internal/alert"
	"tradesim/internal/api"
	"tradesim/internal/broker"
	"tradesim/internal/live"
	"tradesim/internal/logger"
	"tradesim/internal/markethours"
	"tradesim/internal/marketdata/eastmoney"
	"tradesim/internal/marketdata/poll"
	"tradesim/internal/marketdata/ws"
	"tradesim/internal/metrics"
	"tradesim/internal/portfolio"
	"tradesim/internal/quotebuf"
	redisstore "tradesim/internal/store/redis"
	"tradesim/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("papertrade", slog.LevelInfo)
	log.Println("[papertrade] starting...")

	cfg := config.Load()
	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		log.Fatal("[papertrade] no symbols configured")
	}
	log.Printf("[papertrade] symbols=%v capital=%.0f strategy=%s", symbols, cfg.InitialCapital, cfg.Strategy)
	log.Printf("[papertrade] market status: %s", markethours.StatusString(time.Now()))

	// ---- Metrics ----
	prom := metrics.NewMetrics()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr)
	metricsSrv.Start()

	// ---- Core state ----
	ring := quotebuf.New(1024)
	ledger := portfolio.NewLedger(cfg.InitialCapital, cfg.RiskPerTrade)
	risk := portfolio.NewRiskManager(portfolio.DefaultRiskLimits())

	// ---- Broker ----
	var brk broker.Broker
	if cfg.BrokerURL != "" {
		remote := broker.NewRemote(broker.RemoteConfig{
			BaseURL:    cfg.BrokerURL,
			AccountID:  cfg.AccountID,
			APIKey:     cfg.APIKey,
			TOTPSecret: cfg.TOTPSecret,
		})
		if err := remote.Login(context.Background()); err != nil {
			log.Fatalf("[papertrade] broker login failed: %v", err)
		}
		brk = remote
	} else {
		brk = broker.NewPaper(cfg.AccountID, cfg.InitialCapital)
		log.Println("[papertrade] using paper broker")
	}

	// ---- Trade journal ----
	os.MkdirAll("data", 0o755)
	journal, err := broker.NewJournal(cfg.JournalPath)
	if err != nil {
		log.Fatalf("[papertrade] journal init failed: %v", err)
	}
	defer journal.Close()

	// ---- Strategy + loop ----
	loop := live.New(live.Config{
		Symbol:   symbols[0],
		Interval: cfg.PollInterval,
		History:  cfg.History,
	}, ring, newStrategy(cfg.Strategy), ledger, risk, brk)
	loop.WithJournal(journal).WithMetrics(prom)

	if cfg.AlertWebhook != "" {
		loop.WithNotifier(alert.NewWebhookNotifier(cfg.AlertWebhook))
	} else {
		loop.WithNotifier(alert.LogNotifier{})
	}

	// ---- Status API ----
	var apiSrv *http.Server
	if cfg.APIAddr != "" {
		apiSrv = &http.Server{
			Addr: cfg.APIAddr,
			Handler: api.NewRouter(api.Deps{
				Broker:  brk,
				Ledger:  ledger,
				Risk:    risk,
				Journal: journal,
			}),
		}
		go func() {
			log.Printf("[papertrade] status API listening on %s", cfg.APIAddr)
			if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[papertrade] status API stopped: %v", err)
			}
		}()
	}

	// ---- Optional Redis recorder ----
	if cfg.RedisAddr != "" {
		rec, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[papertrade] WARNING: redis init failed: %v (continuing without recorder)", err)
		} else {
			defer rec.Close()
			loop.WithRecorder(rec)
			log.Println("[papertrade] redis recorder ready")
		}
	}

	// ---- Quote producer ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var poller *poll.Poller
	if cfg.QuoteWSURL != "" {
		ingest, err := ws.New(ws.Config{URL: cfg.QuoteWSURL, Symbols: symbols}, ring, prom)
		if err != nil {
			log.Fatalf("[papertrade] ws ingest init failed: %v", err)
		}
		go func() {
			if err := ingest.Start(ctx); err != nil {
				log.Printf("[papertrade] ws ingest stopped: %v", err)
			}
		}()
		log.Printf("[papertrade] streaming quotes from %s", cfg.QuoteWSURL)
	} else {
		src := eastmoney.New(eastmoney.Config{})
		poller = poll.New(poll.Config{
			Symbols:          symbols,
			Interval:         cfg.PollInterval,
			CheckMarketHours: true,
		}, src, ring, prom)
		poller.Start()
		log.Printf("[papertrade] polling Eastmoney every %s", cfg.PollInterval)
	}

	loop.Start()

	// ---- Graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[papertrade] shutting down...")

	loop.Stop()
	if poller != nil {
		poller.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if apiSrv != nil {
		apiSrv.Shutdown(shutdownCtx)
	}
	metricsSrv.Stop(shutdownCtx)
	log.Println("[papertrade] bye")
}

func newStrategy(name string) strategy.Strategy {
	switch name {
	case "macd":
		return strategy.NewMACDCross(0, 0, 0)
	default:
		return strategy.NewMACross(0, 0)
	}
}
