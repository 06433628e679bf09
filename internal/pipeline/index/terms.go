package index

import (
	"context"
	"fmt"
	"hash/adler32"
	"hash/crc32"
	"sort"

	"github.com/liquidinvestigations/hoover4/internal/store/clickhouse"
)

// HashStringToUint63 derives a stable 63-bit term ID from the term text.
// CRC32 fills the low bits and Adler32 the high bits; the overlap at bit 31
// keeps the value below 2^63 so it survives signed integer handling in
// Manticore MVA columns.
func HashStringToUint63(s string) uint64 {
	b := []byte(s)
	crc := uint64(crc32.ChecksumIEEE(b))
	adl := uint64(adler32.Checksum(b))
	return (crc | (adl << 31)) % (1 << 63)
}

func fetchStringTermIDs(ctx context.Context, ch *clickhouse.DB, collectionDataset, termField string, termValues []string) (map[string]uint64, error) {
	if len(termValues) == 0 {
		return map[string]uint64{}, nil
	}
	rows, err := ch.Conn.Query(ctx, `
		SELECT term_value, term_id
		FROM string_term_text_to_id
		WHERE collection_dataset = ?
		AND term_field = ?
		AND term_value IN (?)`,
		collectionDataset, termField, termValues)
	if err != nil {
		return nil, fmt.Errorf("fetch term ids (%s): %w", termField, err)
	}
	defer rows.Close()
	out := make(map[string]uint64)
	for rows.Next() {
		var value string
		var id uint64
		if err := rows.Scan(&value, &id); err != nil {
			return nil, err
		}
		out[value] = id
	}
	return out, rows.Err()
}

func createStringTermIDs(ctx context.Context, ch *clickhouse.DB, collectionDataset, termField string, termValues []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(termValues))
	for _, v := range termValues {
		out[v] = HashStringToUint63(v)
	}

	fwd, err := ch.Conn.PrepareBatch(ctx,
		"INSERT INTO string_term_text_to_id (collection_dataset, term_field, term_value, term_id)")
	if err != nil {
		return nil, err
	}
	rev, err := ch.Conn.PrepareBatch(ctx,
		"INSERT INTO string_term_id_to_text (collection_dataset, term_field, term_id, term_value)")
	if err != nil {
		return nil, err
	}
	for _, v := range termValues {
		if err := fwd.Append(collectionDataset, termField, v, out[v]); err != nil {
			return nil, err
		}
		if err := rev.Append(collectionDataset, termField, out[v], v); err != nil {
			return nil, err
		}
	}
	if err := fwd.Send(); err != nil {
		return nil, fmt.Errorf("insert string_term_text_to_id: %w", err)
	}
	if err := rev.Send(); err != nil {
		return nil, fmt.Errorf("insert string_term_id_to_text: %w", err)
	}
	return out, nil
}

// GetStringTermIDs maps term texts to their interned 63-bit IDs, creating
// rows in both direction tables for terms not seen before.
func (a *Activities) GetStringTermIDs(ctx context.Context, collectionDataset, termField string, termValues map[string]bool) (map[string]uint64, error) {
	sorted := make([]string, 0, len(termValues))
	for v := range termValues {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)

	existing, err := fetchStringTermIDs(ctx, a.CH, collectionDataset, termField, sorted)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, v := range sorted {
		if _, ok := existing[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) == 0 {
		return existing, nil
	}
	created, err := createStringTermIDs(ctx, a.CH, collectionDataset, termField, missing)
	if err != nil {
		return nil, err
	}
	a.Log.Info("Created new string term IDs",
		"count", len(created), "term_field", termField, "collection_dataset", collectionDataset)
	for v, id := range created {
		existing[v] = id
	}
	return existing, nil
}
