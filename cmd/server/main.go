package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	persistlog "shipforge.ai/internal/persistence/log"
	"shipforge.ai/internal/protocol"
	"shipforge.ai/internal/ship/catalogs"
	"shipforge.ai/internal/ship/tuning"
	"shipforge.ai/internal/ship/validation"
	"shipforge.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory (blocks/materials/styles json)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory (report logs, index)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")
		noLog      = flag.Bool("disable_report_log", false, "disable the zstd JSONL report log")
		logMaxMB   = flag.Int64("report_log_max_mb", persistlog.DefaultMaxFileBytes>>20, "uncompressed MB per report log file before a new part opens")
		maxBlocks  = flag.Int("max_blocks", ws.DefaultConfig().MaxBlocks, "reject structures with more blocks (0 = no limit)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	idx, err := openIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}
	var reports *persistlog.ReportLogger
	if !*noLog {
		reports = persistlog.NewReportLogger(*dataDir, *logMaxMB<<20)
		defer reports.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := ws.NewMetrics(reg)
	if idx != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "shipforge_index_queue_depth",
			Help: "Pending run index writes",
		}, func() float64 { return float64(idx.Stats().QueueDepth) }))
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "shipforge_index_dropped_total",
			Help: "Run index writes dropped because the writer fell behind",
		}, func() float64 { return float64(idx.Stats().DropTotal) }))
	}

	v := validation.New(cats, tune, validation.WithLogger(log.New(os.Stdout, "[validate] ", log.LstdFlags|log.Lmicroseconds)))
	cfg := ws.DefaultConfig()
	cfg.MaxBlocks = *maxBlocks
	wsSrv := ws.NewServer(v, logger,
		ws.WithConfig(cfg),
		ws.WithMetrics(metrics),
		ws.WithIndex(idx),
		ws.WithReportLogger(reports),
	)

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/v1/schemas/", func(rw http.ResponseWriter, r *http.Request) {
		raw, err := protocol.SchemaJSON(strings.TrimPrefix(r.URL.Path, "/v1/schemas/"))
		if err != nil {
			http.NotFound(rw, r)
			return
		}
		rw.Header().Set("Content-Type", "application/schema+json")
		_, _ = rw.Write(raw)
	})
	mux.HandleFunc("/v1/catalogs", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(protocol.NewWelcomeMsg("", cats, tune, cfg.MaxBlocks))
	})
	if envBool("SF_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (SF_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

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

	logger.Printf("listening on %s blocks_digest=%s styles=%d", *addr, cats.Blocks.Digest, len(cats.Styles.ByID))
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

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
