package clickhouse

import (
	"context"
	"fmt"
	"strings"
)

// Migration DDL, applied in order. Statements are idempotent so migrate can
// run on every deploy.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS dataset (
		collection_dataset String,
		dataset_name String,
		dataset_type String,
		dataset_path String,
		dataset_access_json Nullable(String),
		user_id String,
		date_created DateTime,
		date_modified DateTime
	) ENGINE = MergeTree ORDER BY (collection_dataset)`,

	`CREATE TABLE IF NOT EXISTS blobs (
		collection_dataset String,
		blob_hash String,
		blob_size_bytes UInt64,
		md5 String,
		sha1 String,
		sha256 String,
		s3_path String,
		stored_in_clickhouse UInt8
	) ENGINE = MergeTree ORDER BY (collection_dataset, blob_hash)`,

	`CREATE TABLE IF NOT EXISTS blob_values (
		collection_dataset String,
		blob_hash String,
		blob_length UInt64,
		blob_value String
	) ENGINE = MergeTree ORDER BY (collection_dataset, blob_hash)`,

	`CREATE TABLE IF NOT EXISTS vfs_directories (
		collection_dataset String,
		container_hash String,
		path String,
		user_id String
	) ENGINE = MergeTree ORDER BY (collection_dataset, container_hash, path)`,

	`CREATE TABLE IF NOT EXISTS vfs_files (
		collection_dataset String,
		container_hash String,
		path String,
		hash String,
		user_id String,
		file_size_bytes UInt64
	) ENGINE = MergeTree ORDER BY (collection_dataset, container_hash, path)`,

	`CREATE TABLE IF NOT EXISTS file_types (
		collection_dataset String,
		hash String,
		mime_type Array(String),
		mime_encoding Array(String),
		file_type Array(String),
		extensions Array(String),
		extracted_by String
	) ENGINE = MergeTree ORDER BY (collection_dataset, hash)`,

	`CREATE TABLE IF NOT EXISTS processing_plans (
		collection_dataset String,
		plan_hash String,
		item_hashes Array(String),
		plan_size_bytes UInt64,
		created_at DateTime
	) ENGINE = MergeTree ORDER BY (collection_dataset, plan_hash)`,

	`CREATE TABLE IF NOT EXISTS processing_plan_hits (
		collection_dataset String,
		item_hash String,
		plan_hash String
	) ENGINE = MergeTree ORDER BY (collection_dataset, item_hash)`,

	`CREATE TABLE IF NOT EXISTS processing_plan_finished (
		collection_dataset String,
		plan_hash String,
		finished_at DateTime
	) ENGINE = MergeTree ORDER BY (collection_dataset, plan_hash)`,

	`CREATE TABLE IF NOT EXISTS processing_errors (
		collection_dataset String,
		hash String,
		task_name String,
		run_time_ms UInt32,
		error_logs String,
		timestamp DateTime
	) ENGINE = MergeTree ORDER BY (collection_dataset, hash, timestamp)`,

	`CREATE TABLE IF NOT EXISTS text_content (
		collection_dataset String,
		file_hash String,
		extracted_by String,
		page_id UInt32,
		text String
	) ENGINE = MergeTree ORDER BY (collection_dataset, file_hash, extracted_by, page_id)`,

	`CREATE TABLE IF NOT EXISTS entity_hit (
		collection_dataset String,
		file_hash String,
		extracted_by String,
		page_id UInt32,
		entity_type String,
		entity_values Array(String)
	) ENGINE = MergeTree ORDER BY (collection_dataset, file_hash, extracted_by, page_id)`,

	`CREATE TABLE IF NOT EXISTS string_term_text_to_id (
		collection_dataset String,
		term_field String,
		term_value String,
		term_id UInt64
	) ENGINE = MergeTree ORDER BY (collection_dataset, term_field, term_value)`,

	`CREATE TABLE IF NOT EXISTS string_term_id_to_text (
		collection_dataset String,
		term_field String,
		term_id UInt64,
		term_value String
	) ENGINE = MergeTree ORDER BY (collection_dataset, term_field, term_id)`,

	`CREATE TABLE IF NOT EXISTS archives (
		collection_dataset String,
		archive_hash String,
		archive_type String
	) ENGINE = MergeTree ORDER BY (collection_dataset, archive_hash)`,

	`CREATE TABLE IF NOT EXISTS emails (
		collection_dataset String,
		email_hash String,
		email_type String
	) ENGINE = MergeTree ORDER BY (collection_dataset, email_hash)`,

	`CREATE TABLE IF NOT EXISTS email_headers (
		collection_dataset String,
		email_hash String,
		raw_headers_json String,
		subject String,
		addresses String,
		date_sent DateTime
	) ENGINE = MergeTree ORDER BY (collection_dataset, email_hash)`,

	`CREATE TABLE IF NOT EXISTS tika_metadata (
		collection_dataset String,
		hash String,
		tika_metadata_json String,
		processed_at DateTime
	) ENGINE = MergeTree ORDER BY (collection_dataset, hash)`,

	`CREATE TABLE IF NOT EXISTS pdfs (
		collection_dataset String,
		pdf_hash String,
		page_count UInt32,
		word_count UInt32,
		author_metadata String,
		date_created DateTime
	) ENGINE = MergeTree ORDER BY (collection_dataset, pdf_hash)`,

	`CREATE TABLE IF NOT EXISTS pdf_metadata (
		collection_dataset String,
		hash String,
		pdf_metadata_json String,
		processed_at DateTime
	) ENGINE = MergeTree ORDER BY (collection_dataset, hash)`,

	`CREATE TABLE IF NOT EXISTS pdfs_image (
		collection_dataset String,
		pdf_hash String,
		on_page UInt32,
		image_hash String
	) ENGINE = MergeTree ORDER BY (collection_dataset, pdf_hash, on_page)`,

	`CREATE TABLE IF NOT EXISTS image (
		collection_dataset String,
		image_hash String,
		width_pixels UInt32,
		height_pixels UInt32,
		image_metadata String
	) ENGINE = MergeTree ORDER BY (collection_dataset, image_hash)`,

	`CREATE TABLE IF NOT EXISTS image_metadata (
		collection_dataset String,
		hash String,
		image_metadata_json String,
		processed_at DateTime
	) ENGINE = MergeTree ORDER BY (collection_dataset, hash)`,

	`CREATE TABLE IF NOT EXISTS audio_metadata (
		collection_dataset String,
		hash String,
		audio_metadata_json String,
		processed_at DateTime
	) ENGINE = MergeTree ORDER BY (collection_dataset, hash)`,

	`CREATE TABLE IF NOT EXISTS video_metadata (
		collection_dataset String,
		hash String,
		video_metadata_json String,
		processed_at DateTime
	) ENGINE = MergeTree ORDER BY (collection_dataset, hash)`,

	`CREATE TABLE IF NOT EXISTS raw_ocr_results (
		collection_dataset String,
		image_hash String,
		run_time_ms UInt32,
		raw_json String
	) ENGINE = MergeTree ORDER BY (collection_dataset, image_hash)`,
}

// Migrate creates the database and all tables.
func (d *DB) Migrate(ctx context.Context) error {
	cfg := LoadConfig()
	if err := d.Conn.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+cfg.Database); err != nil {
		// The configured user may lack CREATE DATABASE; existing databases are fine.
		if d.log != nil {
			d.log.Warn("ClickHouse create database failed; assuming it exists", "database", cfg.Database, "error", err)
		}
	}
	for _, ddl := range migrations {
		if err := d.Conn.Exec(ctx, ddl); err != nil {
			name := ddl
			if i := strings.Index(ddl, "("); i > 0 {
				name = strings.TrimSpace(ddl[:i])
			}
			return fmt.Errorf("clickhouse migrate: %s: %w", name, err)
		}
	}
	if d.log != nil {
		d.log.Info("Migrated ClickHouse tables OK", "count", len(migrations))
	}
	return nil
}
