// Package poolstore persists resolved pool metadata in SQLite so a restart
// does not send every pool back through discovery.
package poolstore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/danmuck/tlvwire/internal/discovery"
	"github.com/danmuck/tlvwire/internal/protocol/instrument"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pools (
	address     TEXT PRIMARY KEY,
	token0      TEXT NOT NULL,
	token1      TEXT NOT NULL,
	venue       INTEGER NOT NULL,
	fee_bps     INTEGER NOT NULL,
	resolved_at INTEGER NOT NULL
)`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database at path if needed. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("poolstore: open %s: %w", path, err)
	}
	// one writer; sqlite serialises anyway and :memory: is per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("poolstore: create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func encodeAddr(a instrument.Address) string { return hex.EncodeToString(a[:]) }

// Save inserts or replaces the row for info.Pool.
func (s *Store) Save(ctx context.Context, info discovery.PoolInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pools (address, token0, token1, venue, fee_bps, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			token0 = excluded.token0,
			token1 = excluded.token1,
			venue = excluded.venue,
			fee_bps = excluded.fee_bps,
			resolved_at = excluded.resolved_at`,
		encodeAddr(info.Pool), encodeAddr(info.Token0), encodeAddr(info.Token1),
		int64(info.Venue), int64(info.FeeBps), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("poolstore: save %s: %w", info.Pool, err)
	}
	return nil
}

// Load returns every stored pool ordered by address.
func (s *Store) Load(ctx context.Context) ([]discovery.PoolInfo, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pools").Scan(&n); err != nil {
		return nil, fmt.Errorf("poolstore: count: %w", err)
	}
	out := make([]discovery.PoolInfo, 0, n)

	rows, err := s.db.QueryContext(ctx, `
		SELECT address, token0, token1, venue, fee_bps
		FROM pools
		ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("poolstore: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pool, t0, t1 string
		var venue, fee int64
		if err := rows.Scan(&pool, &t0, &t1, &venue, &fee); err != nil {
			return nil, fmt.Errorf("poolstore: scan: %w", err)
		}
		info := discovery.PoolInfo{Venue: instrument.Venue(venue), FeeBps: uint32(fee)}
		for _, f := range []struct {
			raw string
			dst *instrument.Address
		}{{pool, &info.Pool}, {t0, &info.Token0}, {t1, &info.Token1}} {
			a, err := instrument.ParseAddress(f.raw)
			if err != nil {
				return nil, fmt.Errorf("poolstore: corrupt address %q: %w", f.raw, err)
			}
			*f.dst = a
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("poolstore: rows: %w", err)
	}
	return out, nil
}

// Count is the number of stored pools.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pools").Scan(&n)
	return n, err
}
