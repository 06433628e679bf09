// Package index feeds extracted text and file metadata into Manticore for
// full-text and faceted search. String facet values are interned into 63-bit
// term IDs stored as Manticore multi-value attributes.
package index

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/liquidinvestigations/hoover4/internal/clients/ai"
	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
	"github.com/liquidinvestigations/hoover4/internal/store/clickhouse"
	"github.com/liquidinvestigations/hoover4/internal/store/manticore"
)

type Activities struct {
	Log       *logger.Logger
	CH        *clickhouse.DB
	Manticore *manticore.DB
	NER       *ai.NERClient
}

// FetchPlanHashes returns the sorted, deduplicated item hashes of one plan.
func (a *Activities) FetchPlanHashes(ctx context.Context, params IndexDatasetPlanParams) ([]string, error) {
	set, err := a.CH.StringSet(ctx, `
		SELECT arrayJoin(item_hashes)
		FROM processing_plans
		WHERE collection_dataset = ?
		AND plan_hash = ?`,
		params.CollectionDataset, params.PlanHash)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, 0, len(set))
	for h := range set {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	return hashes, nil
}

type textPageRow struct {
	FileHash    string
	ExtractedBy string
	PageID      uint32
	Text        string

	// MVA literals per entity label, filled by the NER pass.
	NerPer  string
	NerOrg  string
	NerLoc  string
	NerMisc string
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.ToValidUTF8(s, "�"))
}

// extractAndSaveNER runs the NER sidecar over all page texts, records the
// entity hits in ClickHouse, and fills each row's MVA literals with interned
// term IDs. A sidecar failure degrades to empty entity sets.
func (a *Activities) extractAndSaveNER(ctx context.Context, collectionDataset string, pages []textPageRow) ([]textPageRow, error) {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = cleanText(p.Text)
	}
	groups, err := a.NER.ExtractEntities(ctx, texts)
	if err != nil || len(groups) != len(pages) {
		a.Log.Error("Error extracting NER from text content", "error", err)
		groups = make([]ai.EntityGroups, len(pages))
	}

	type labeledGroup struct {
		label  string
		values []string
	}
	labeled := func(g ai.EntityGroups) []labeledGroup {
		return []labeledGroup{
			{"PER", g.PER}, {"ORG", g.ORG}, {"LOC", g.LOC}, {"MISC", g.MISC},
		}
	}

	nerValues := make(map[string]bool)
	batch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO entity_hit (collection_dataset, file_hash, extracted_by, page_id, entity_type, entity_values)")
	if err != nil {
		return nil, err
	}
	hitCount := 0
	for i, p := range pages {
		for _, lv := range labeled(groups[i]) {
			values := lv.values
			if values == nil {
				values = []string{}
			}
			if err := batch.Append(collectionDataset, p.FileHash, p.ExtractedBy, p.PageID, lv.label, values); err != nil {
				return nil, err
			}
			hitCount++
			for _, v := range values {
				nerValues[v] = true
			}
		}
	}
	if err := batch.Send(); err != nil {
		return nil, fmt.Errorf("insert entity_hit: %w", err)
	}

	nerIDs, err := a.GetStringTermIDs(ctx, collectionDataset, "ner", nerValues)
	if err != nil {
		return nil, err
	}
	mva := func(values []string) string {
		ids := make([]uint64, 0, len(values))
		for _, v := range values {
			ids = append(ids, nerIDs[v])
		}
		return manticore.MVATuple(ids)
	}
	for i := range pages {
		pages[i].NerPer = mva(groups[i].PER)
		pages[i].NerOrg = mva(groups[i].ORG)
		pages[i].NerLoc = mva(groups[i].LOC)
		pages[i].NerMisc = mva(groups[i].MISC)
	}
	a.Log.Info("Extracted entity groups from text content", "count", hitCount)
	return pages, nil
}

// IndexTextContent loads the text pages of a hash batch, attaches NER term
// IDs, and inserts the pages into the Manticore doc_text_pages table. Runs on
// the single-slot indexing queue so Manticore sees one writer at a time.
func (a *Activities) IndexTextContent(ctx context.Context, params IndexTextContentParams) (string, error) {
	rows, err := a.CH.Conn.Query(ctx, `
		SELECT file_hash, extracted_by, page_id, text
		FROM text_content
		WHERE collection_dataset = ?
		AND file_hash IN (?)`,
		params.CollectionDataset, params.Hashes)
	if err != nil {
		return "", fmt.Errorf("select text_content: %w", err)
	}
	var pages []textPageRow
	for rows.Next() {
		var p textPageRow
		if err := rows.Scan(&p.FileHash, &p.ExtractedBy, &p.PageID, &p.Text); err != nil {
			rows.Close()
			return "", err
		}
		pages = append(pages, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", err
	}

	pages, err = a.extractAndSaveNER(ctx, params.CollectionDataset, pages)
	if err != nil {
		return "", err
	}

	for start := 0; start < len(pages); start += IndexRowChunkSize {
		end := start + IndexRowChunkSize
		if end > len(pages) {
			end = len(pages)
		}
		for _, p := range pages[start:end] {
			// MVA literals cannot be bound as parameters.
			stmt := fmt.Sprintf(`INSERT INTO doc_text_pages (
				collection_dataset, file_hash, extracted_by, page_id, page_text,
				ner_per, ner_org, ner_loc, ner_misc
			) VALUES (?, ?, ?, ?, ?, %s, %s, %s, %s)`,
				p.NerPer, p.NerOrg, p.NerLoc, p.NerMisc)
			if _, err := a.Manticore.SQL.ExecContext(ctx, stmt,
				params.CollectionDataset, p.FileHash, p.ExtractedBy, p.PageID, cleanText(p.Text)); err != nil {
				return "", fmt.Errorf("insert doc_text_pages: %w", err)
			}
		}
		a.Log.Info("Indexed text content",
			"collection_dataset", params.CollectionDataset,
			"plan_hash", shortHash(params.PlanHash), "count", end-start)
	}
	return "ok", nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

// parentPaths expands a file path to the set of its strict ancestor
// directories. The VFS root "/" is shared by every file and is left out,
// so a root-level file contributes no parent terms.
func parentPaths(filePath string, into map[string]bool) {
	for parent := path.Dir(filePath); parent != "/" && parent != "." && parent != ""; parent = path.Dir(parent) {
		into[parent] = true
	}
}

type metadataRow struct {
	Hash       string
	FileTypes  []string
	MimeTypes  []string
	Extensions []string
	FilePaths  []string
}

// IndexMetadatas aggregates detector output and VFS paths per hash and inserts
// one doc_metadata row per file, with facet values replaced by term IDs.
func (a *Activities) IndexMetadatas(ctx context.Context, params IndexTextContentParams) (string, error) {
	rows, err := a.CH.Conn.Query(ctx, `
		SELECT hash,
			arrayDistinct(arrayFlatten(groupArray(t.file_type))) AS file_types,
			arrayDistinct(arrayFlatten(groupArray(t.mime_type))) AS mime_types,
			arrayDistinct(arrayFlatten(groupArray(t.extensions))) AS extensions,
			arrayDistinct(groupArray(v.path)) AS file_paths
		FROM file_types t
		JOIN vfs_files v ON v.hash = t.hash AND v.collection_dataset = t.collection_dataset
		WHERE t.collection_dataset = ?
		AND t.hash IN (?)
		GROUP BY hash`,
		params.CollectionDataset, params.Hashes)
	if err != nil {
		return "", fmt.Errorf("select file metadata: %w", err)
	}
	var items []metadataRow
	for rows.Next() {
		var m metadataRow
		if err := rows.Scan(&m.Hash, &m.FileTypes, &m.MimeTypes, &m.Extensions, &m.FilePaths); err != nil {
			rows.Close()
			return "", err
		}
		items = append(items, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", err
	}

	allFiletypes := make(map[string]bool)
	allMimeTypes := make(map[string]bool)
	allExtensions := make(map[string]bool)
	allParentPaths := make(map[string]bool)
	for _, item := range items {
		for _, v := range item.FileTypes {
			allFiletypes[v] = true
		}
		for _, v := range item.MimeTypes {
			allMimeTypes[v] = true
		}
		for _, v := range item.Extensions {
			allExtensions[v] = true
		}
		for _, p := range item.FilePaths {
			parentPaths(p, allParentPaths)
		}
	}
	filetypeIDs, err := a.GetStringTermIDs(ctx, params.CollectionDataset, "filetype", allFiletypes)
	if err != nil {
		return "", err
	}
	mimeTypeIDs, err := a.GetStringTermIDs(ctx, params.CollectionDataset, "mime_type", allMimeTypes)
	if err != nil {
		return "", err
	}
	extensionIDs, err := a.GetStringTermIDs(ctx, params.CollectionDataset, "extension", allExtensions)
	if err != nil {
		return "", err
	}
	parentPathIDs, err := a.GetStringTermIDs(ctx, params.CollectionDataset, "parent_paths", allParentPaths)
	if err != nil {
		return "", err
	}

	mva := func(values []string, ids map[string]uint64) string {
		out := make([]uint64, 0, len(values))
		for _, v := range values {
			out = append(out, ids[v])
		}
		return manticore.MVATuple(out)
	}

	for idx, item := range items {
		itemParents := make(map[string]bool)
		for _, p := range item.FilePaths {
			parentPaths(p, itemParents)
		}
		parents := make([]string, 0, len(itemParents))
		for p := range itemParents {
			parents = append(parents, p)
		}
		sort.Strings(parents)

		basenames := make([]string, len(item.FilePaths))
		for i, p := range item.FilePaths {
			basenames[i] = path.Base(p)
		}

		stmt := fmt.Sprintf(`INSERT INTO doc_metadata (
			collection_dataset, file_hash, filenames, metadata_values,
			file_types, file_mime_types, file_extensions, file_paths
		) VALUES (?, ?, ?, ?, %s, %s, %s, %s)`,
			mva(item.FileTypes, filetypeIDs),
			mva(item.MimeTypes, mimeTypeIDs),
			mva(item.Extensions, extensionIDs),
			mva(parents, parentPathIDs))
		if _, err := a.Manticore.SQL.ExecContext(ctx, stmt,
			params.CollectionDataset, item.Hash, strings.Join(basenames, "\n"), ""); err != nil {
			return "", fmt.Errorf("insert doc_metadata: %w", err)
		}

		if (idx+1)%IndexRowChunkSize == 0 || idx == len(items)-1 {
			a.Log.Info("Indexed metadata",
				"collection_dataset", params.CollectionDataset,
				"plan_hash", shortHash(params.PlanHash), "count", idx+1)
		}
	}
	return "ok", nil
}
