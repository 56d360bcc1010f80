// poolresolver answers pool discovery requests on NATS from the pools stored
// in a SQLite file, optionally importing new ones from a TOML list first.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/tlvwire/internal/config"
	"github.com/danmuck/tlvwire/internal/discovery"
	"github.com/danmuck/tlvwire/internal/observability"
	"github.com/danmuck/tlvwire/internal/poolstore"
	"github.com/danmuck/tlvwire/internal/protocol/instrument"
)

type importFile struct {
	Pools []importPool `toml:"pools"`
}

type importPool struct {
	Pool   string `toml:"pool"`
	Token0 string `toml:"token0"`
	Token1 string `toml:"token1"`
	Venue  uint16 `toml:"venue"`
	FeeBps uint32 `toml:"fee_bps"`
}

func main() {
	configPath := flag.String("config", "cmd/inspectd/config.toml", "config file (for nats_url and subject)")
	poolsDB := flag.String("pools-db", "pools.db", "sqlite pool store")
	importPath := flag.String("import", "", "TOML file of [[pools]] to upsert before serving")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}
	observability.InitLogger("poolresolver", cfg.Log.Level, cfg.Log.NoColor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := poolstore.Open(*poolsDB)
	if err != nil {
		log.Fatal().Err(err).Msg("open pool store")
	}
	defer store.Close()

	if *importPath != "" {
		n, err := importPools(ctx, store, *importPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *importPath).Msg("import failed")
		}
		log.Info().Int("pools", n).Str("path", *importPath).Msg("imported pools")
	}

	pools, err := store.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load pools")
	}
	table := make(map[instrument.Address]discovery.PoolInfo, len(pools))
	for _, p := range pools {
		table[p.Pool] = p
	}

	nc, err := discovery.Dial(discovery.NATSConfig{URL: cfg.Discovery.NATSURL, Name: "poolresolver"})
	if err != nil {
		log.Fatal().Err(err).Msg("nats connect")
	}
	defer nc.Drain()

	sub, err := discovery.Serve(nc, cfg.Discovery.Subject, table)
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe")
	}
	log.Info().Str("subject", sub.Subject).Int("pools", len(table)).Msg("poolresolver serving")
	<-ctx.Done()
	log.Info().Msg("poolresolver stopped")
}

func importPools(ctx context.Context, store *poolstore.Store, path string) (int, error) {
	var f importFile
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return 0, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return 0, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	for i, p := range f.Pools {
		info, err := p.info()
		if err != nil {
			return i, fmt.Errorf("pools[%d]: %w", i, err)
		}
		if err := store.Save(ctx, info); err != nil {
			return i, err
		}
	}
	return len(f.Pools), nil
}

func (p importPool) info() (discovery.PoolInfo, error) {
	info := discovery.PoolInfo{Venue: instrument.Venue(p.Venue), FeeBps: p.FeeBps}
	var err error
	if info.Pool, err = instrument.ParseAddress(p.Pool); err != nil {
		return info, fmt.Errorf("pool: %w", err)
	}
	if info.Token0, err = instrument.ParseAddress(p.Token0); err != nil {
		return info, fmt.Errorf("token0: %w", err)
	}
	if info.Token1, err = instrument.ParseAddress(p.Token1); err != nil {
		return info, fmt.Errorf("token1: %w", err)
	}
	if !info.Venue.Valid() {
		return info, fmt.Errorf("unknown venue %d", p.Venue)
	}
	return info, nil
}
