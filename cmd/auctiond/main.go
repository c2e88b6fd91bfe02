package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"auctionhouse/internal/auction"
	"auctionhouse/internal/auction/bidder"
	"auctionhouse/internal/config"
	"auctionhouse/internal/engine"
	"auctionhouse/internal/persistence/auditdb"
	persistlog "auctionhouse/internal/persistence/log"
	"auctionhouse/internal/transport/httpapi"
	"auctionhouse/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configPath = flag.String("config", "./configs/auction.yaml", "auction config path")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite audit index")
		pprofOn    = flag.Bool("pprof", false, "enable pprof endpoints")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[auctiond] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("config not found (%s); using defaults", *configPath)
			cfg = config.Defaults()
		} else {
			logger.Fatalf("load config: %v", err)
		}
	}

	core, err := auction.New(auction.Config{
		RoundsTotal:   cfg.RoundsTotal,
		InitialBudget: cfg.InitialBudget,
		Sequence:      auction.DefaultSequence(),
	}, logger)
	if err != nil {
		logger.Fatalf("auction core: %v", err)
	}

	policies := make(map[string]bidder.Policy)
	for _, id := range auction.DefaultSequence()[1:] {
		bc, ok := cfg.Bidders[id]
		if !ok {
			bc = config.Bidder{Strategy: bidder.StrategyConservative}
		}
		pol, err := bidder.New(id, bc.Strategy, bc.Seed)
		if err != nil {
			logger.Fatalf("bidder %s: %v", id, err)
		}
		policies[id] = pol
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Audit sinks: sqlite index, compressed JSONL, observer feed. All
	// are fed without blocking the core.
	feed := observer.NewFeed()

	var idx *auditdb.SQLiteIndex
	if !*disableDB {
		idx, err = auditdb.OpenSQLite(filepath.Join(*dataDir, "audit.db"))
		if err != nil {
			logger.Fatalf("open audit index: %v", err)
		}
		defer idx.Close()
	}

	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer auditLog.Close()
	logCh := make(chan auction.Event, 1024)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-logCh:
				if err := auditLog.WriteAudit(e); err != nil {
					logger.Printf("audit log write: %v", err)
				}
			}
		}
	}()

	core.SetAuditSink(func(e auction.Event) {
		if idx != nil {
			idx.Enqueue(e)
		}
		feed.Publish(e)
		select {
		case logCh <- e:
		default:
		}
	})

	eng := engine.New(core, policies, engine.Config{
		HumanTurnTimeout: time.Duration(cfg.HumanTurnTimeoutMs) * time.Millisecond,
		AIDecideTimeout:  time.Duration(cfg.AIDecideTimeoutMs) * time.Millisecond,
	}, logger)
	go func() {
		if err := eng.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})

	api := httpapi.NewServer(core, eng.Kick, logger)
	api.Register(mux)
	mux.HandleFunc("/metrics", api.MetricsHandler(feed.Subscribers))
	mux.HandleFunc("/v1/observer/ws", observer.NewServer(core, feed, logger).WSHandler())

	if *pprofOn {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (rounds=%d budget=%d)", *addr, cfg.RoundsTotal, cfg.InitialBudget)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
