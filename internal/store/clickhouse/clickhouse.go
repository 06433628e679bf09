package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/liquidinvestigations/hoover4/internal/platform/envutil"
	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
)

type Config struct {
	Addr     string
	Database string
	Username string
	Password string
}

func LoadConfig() Config {
	return Config{
		Addr:     envutil.Str("CLICKHOUSE_ADDR", "clickhouse:9000"),
		Database: envutil.Str("CLICKHOUSE_DB", "Hoover4_Processing"),
		Username: envutil.Str("CLICKHOUSE_USER", "hoover4"),
		Password: envutil.Str("CLICKHOUSE_PASSWORD", "hoover4"),
	}
}

// DB wraps the native-protocol connection pool. Writes go through
// PrepareBatch; async_insert keeps many small inserts cheap while
// wait_for_async_insert preserves read-your-writes for the dedup queries.
type DB struct {
	Conn driver.Conn
	log  *logger.Logger
}

func Open(log *logger.Logger) (*DB, error) {
	cfg := LoadConfig()
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"async_insert":          1,
			"wait_for_async_insert": 1,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open (addr=%s db=%s): %w", cfg.Addr, cfg.Database, err)
	}
	return &DB{Conn: conn, log: log}, nil
}

func (d *DB) Close() error {
	return d.Conn.Close()
}

// SelectStrings runs a single-column query and returns the values.
func (d *DB) SelectStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := d.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// StringSet runs a single-column query and returns the values as a set.
func (d *DB) StringSet(ctx context.Context, query string, args ...interface{}) (map[string]bool, error) {
	vals, err := d.SelectStrings(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set, nil
}

func (d *DB) Count(ctx context.Context, query string, args ...interface{}) (uint64, error) {
	var n uint64
	if err := d.Conn.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
