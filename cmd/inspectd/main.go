package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/tlvwire/internal/config"
	"github.com/danmuck/tlvwire/internal/discovery"
	"github.com/danmuck/tlvwire/internal/inspect"
	"github.com/danmuck/tlvwire/internal/observability"
	"github.com/danmuck/tlvwire/internal/poolstore"
	"github.com/danmuck/tlvwire/internal/validation"
)

func main() {
	configPath := flag.String("config", "cmd/inspectd/config.toml", "config file")
	poolsDB := flag.String("pools-db", "", "sqlite file for resolved pools (empty keeps them in memory)")
	offline := flag.Bool("offline", false, "do not connect to NATS; unknown pools are never resolved")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}
	observability.InitLogger("inspectd", cfg.Log.Level, cfg.Log.NoColor)
	log.Info().Str("path", *configPath).Str("preset", cfg.Preset).Msg("loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *poolsDB, !*offline); err != nil {
		log.Fatal().Err(err).Msg("inspectd stopped")
	}
	log.Info().Msg("inspectd stopped")
}

func run(ctx context.Context, cfg config.Config, poolsDB string, online bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var store *poolstore.Store
	var preload []discovery.PoolInfo
	if poolsDB != "" {
		var err error
		if store, err = poolstore.Open(poolsDB); err != nil {
			return err
		}
		defer store.Close()
		if preload, err = store.Load(ctx); err != nil {
			return err
		}
		log.Info().Str("path", poolsDB).Int("pools", len(preload)).Msg("pool store opened")
	}

	q, rx := discovery.NewQueue()
	opts := []validation.Option{validation.WithObserver(observability.ValidationObserver{})}
	for _, info := range preload {
		opts = append(opts, validation.WithKnownPools(info.Pool))
	}
	if online {
		opts = append(opts, validation.WithDiscovery(q))
	} else {
		rx.Close()
	}
	v := validation.New(cfg.Validation, opts...)

	serverOpts := []inspect.Option{inspect.WithAdminToken(cfg.Inspect.AdminToken)}
	if online {
		nc, err := discovery.Dial(discovery.NATSConfig{
			URL:     cfg.Discovery.NATSURL,
			Subject: cfg.Discovery.Subject,
			Name:    "inspectd",
		})
		if err != nil {
			return err
		}
		defer nc.Drain()

		w := discovery.NewWorker(rx, discovery.NewNATSResolver(nc, cfg.Discovery.Subject), v, cfg.Discovery.Worker)
		w.OnResult(observability.DiscoveryResultHook())
		w.Preload(preload)
		if store != nil {
			w.OnResolved(func(info discovery.PoolInfo) {
				if err := store.Save(ctx, info); err != nil {
					log.Error().Err(err).Str("pool", info.Pool.String()).Msg("pool store save failed")
				}
			})
		}
		workerDone := make(chan error, 1)
		go func() { workerDone <- w.Run(ctx) }()
		defer func() {
			cancel()
			if err := <-workerDone; err != nil {
				log.Error().Err(err).Msg("discovery worker failed")
			}
		}()

		serverOpts = append(serverOpts,
			inspect.WithPoolDirectory(w),
			inspect.WithReadiness(func() error {
				if nc.Status() != nats.CONNECTED {
					return errors.New("nats: " + nc.Status().String())
				}
				return nil
			}),
		)
	}

	srv := inspect.New("inspectd", cfg.Inspect.Addr, cfg.Inspect.CorsOrigins, v, serverOpts...)
	log.Info().Str("addr", cfg.Inspect.Addr).Bool("discovery", online).Msg("inspectd started")
	return srv.Serve(ctx)
}
