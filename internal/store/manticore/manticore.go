package manticore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/liquidinvestigations/hoover4/internal/platform/envutil"
	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
)

type Config struct {
	Addr     string
	Username string
	Password string
	Database string
}

func LoadConfig() Config {
	return Config{
		Addr:     envutil.Str("MANTICORE_ADDR", "manticore:9306"),
		Username: envutil.Str("MANTICORE_USER", "manticore"),
		Password: envutil.Str("MANTICORE_PASSWORD", "manticore"),
		Database: envutil.Str("MANTICORE_DB", "Manticore"),
	}
}

// DB talks to Manticore over its MySQL-protocol listener. Manticore does not
// implement server-side prepared statements, so the driver interpolates
// parameters client-side.
type DB struct {
	SQL *sql.DB
	log *logger.Logger
}

func Open(log *logger.Logger) (*DB, error) {
	cfg := LoadConfig()
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?interpolateParams=true",
		cfg.Username, cfg.Password, cfg.Addr, cfg.Database)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("manticore open (addr=%s): %w", cfg.Addr, err)
	}
	return &DB{SQL: db, log: log}, nil
}

func (d *DB) Close() error {
	return d.SQL.Close()
}

func (d *DB) HealthCheck(ctx context.Context) error {
	var today string
	if err := d.SQL.QueryRowContext(ctx, "SELECT CURDATE()").Scan(&today); err != nil {
		return fmt.Errorf("manticore health check: %w", err)
	}
	if d.log != nil {
		d.log.Info("Manticore OK", "curdate", today)
	}
	return nil
}

// MVATuple renders a multi-value attribute literal like "(1,2,3)". Manticore
// cannot bind MVAs as parameters, so these are inlined into INSERT statements.
// Only integer term IDs ever pass through here.
func MVATuple(values []uint64) string {
	if len(values) == 0 {
		return "()"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

var migrations = []string{
	// doc_text_pages holds many rows per document, one per extracted page.
	// Joined with doc_metadata on (collection_dataset, file_hash).
	`create table if not exists doc_text_pages(
		collection_dataset string,
		file_hash string,
		extracted_by string,
		page_id int,
		page_text text,
		ner_per multi64,
		ner_org multi64,
		ner_loc multi64,
		ner_misc multi64
	) engine='columnar'`,

	`create table if not exists doc_metadata(
		collection_dataset string,
		file_hash string,
		file_types multi64,
		file_mime_types multi64,
		file_extensions multi64,
		file_paths multi64,
		filenames text,
		metadata_values text
	) engine='columnar'`,
}

func (d *DB) Migrate(ctx context.Context) error {
	if err := d.HealthCheck(ctx); err != nil {
		return err
	}
	for _, ddl := range migrations {
		if d.log != nil {
			d.log.Info("Manticore migration", "sql", strings.Join(strings.Fields(ddl), " "))
		}
		if _, err := d.SQL.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("manticore migrate: %w", err)
		}
	}
	if d.log != nil {
		d.log.Info("Manticore migration OK")
	}
	return nil
}
