package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"clobengine/internal/adapter/memrepo"
	"clobengine/internal/adapter/pgrepo"
	"clobengine/internal/adapter/rediscache"
	"clobengine/internal/config"
	"clobengine/internal/core"
	"clobengine/internal/domain"
	"clobengine/internal/logging"
	"clobengine/internal/port"
	transporthttp "clobengine/internal/transport/http"
	"clobengine/internal/transport/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)

	ctx := context.Background()

	repo, closeRepo, err := buildRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build repository backend")
	}
	defer closeRepo()

	engine := core.NewMatchingEngine(repo, log)

	if cache := buildCache(cfg); cache != nil {
		engine.RegisterBBOSink(func(symbol string, _ domain.BBO) {
			snap, err := engine.L2(symbol, cfg.Server.L2Depth)
			if err != nil {
				return
			}
			if err := cache.SetL2(ctx, symbol, &snap, cfg.Storage.CacheTTL); err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("failed to refresh l2 cache")
			}
		})
	}

	hub := ws.NewHub(log)
	hub.Attach(engine)

	httpServer := transporthttp.NewServer(engine, cfg.Server.L2Depth)
	r := httpServer.Handler(cfg.Server.RateLimitRPS)

	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws/market-data/", func(w http.ResponseWriter, req *http.Request) {
		symbol := req.URL.Path[len("/ws/market-data/"):]
		if err := hub.ServeMarketData(w, req, symbol); err != nil {
			log.Debug().Err(err).Str("symbol", symbol).Msg("market data subscriber disconnected")
		}
	})
	wsMux.HandleFunc("/ws/trades/", func(w http.ResponseWriter, req *http.Request) {
		symbol := req.URL.Path[len("/ws/trades/"):]
		if err := hub.ServeTrades(w, req, symbol); err != nil {
			log.Debug().Err(err).Str("symbol", symbol).Msg("trade feed subscriber disconnected")
		}
	})

	httpAddr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	wsAddr := fmt.Sprintf(":%d", cfg.Server.WSPort)

	wsSrv := &http.Server{
		Addr:              wsAddr,
		Handler:           wsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", wsAddr).Msg("starting websocket server")
		if err := wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("websocket server failed")
		}
	}()

	log.Info().Str("addr", httpAddr).Msg("starting http server")
	if err := r.Run(httpAddr); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

// buildRepository wires the configured storage backend. It returns a
// no-op close func for the in-memory backend so callers can defer
// unconditionally.
func buildRepository(ctx context.Context, cfg *config.Config) (port.Repository, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		repo, err := pgrepo.New(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, func() {}, err
		}
		return repo, func() { repo.Close() }, nil
	default:
		return memrepo.New(), func() {}, nil
	}
}

// buildCache wires the optional Redis-backed L2 cache. Returns nil if no
// Redis address is configured — caching is advisory and independent of
// the storage backend choice.
func buildCache(cfg *config.Config) port.Cache {
	if cfg.Storage.RedisAddr == "" {
		return nil
	}
	return rediscache.New(cfg.Storage.RedisAddr, "", cfg.Storage.RedisDB)
}
