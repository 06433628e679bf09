// Package ai holds HTTP clients for the GPU sidecar services (NER and OCR).
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/liquidinvestigations/hoover4/internal/platform/envutil"
)

// EntityGroups holds entity surface forms keyed by the four labels kept for
// indexing. GPE entities are folded into LOC; all other labels are dropped.
type EntityGroups struct {
	PER  []string
	ORG  []string
	LOC  []string
	MISC []string
}

type NERClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewNERClient() *NERClient {
	return &NERClient{
		BaseURL: envutil.Str("NER_URL", "http://hoover4-ai:8000/v1"),
		HTTP:    &http.Client{Timeout: 50 * time.Minute},
	}
}

type nerRequest struct {
	Input             []string `json:"input"`
	IncludeConfidence bool     `json:"include_confidence"`
	EntityTypes       []string `json:"entity_types"`
}

type nerEntity struct {
	TextIndex int    `json:"text_index"`
	Label     string `json:"label"`
	Text      string `json:"text"`
}

type nerResponse struct {
	Data []nerEntity `json:"data"`
}

// ExtractEntities sends a batch of texts to the NER sidecar and returns one
// EntityGroups per input text.
func (c *NERClient) ExtractEntities(ctx context.Context, texts []string) ([]EntityGroups, error) {
	body, err := json.Marshal(nerRequest{Input: texts, IncludeConfidence: false, EntityTypes: nil})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/extract-entities", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ner request: status %d: %s", resp.StatusCode, msg)
	}
	var parsed nerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("ner response decode: %w", err)
	}
	return groupEntities(parsed.Data, len(texts)), nil
}

func groupEntities(entities []nerEntity, numTexts int) []EntityGroups {
	result := make([]EntityGroups, numTexts)
	for _, e := range entities {
		idx := e.TextIndex
		if numTexts == 1 {
			idx = 0
		}
		if idx < 0 || idx >= numTexts {
			continue
		}
		g := &result[idx]
		switch e.Label {
		case "PER":
			g.PER = append(g.PER, e.Text)
		case "ORG":
			g.ORG = append(g.ORG, e.Text)
		case "LOC", "GPE":
			g.LOC = append(g.LOC, e.Text)
		case "MISC":
			g.MISC = append(g.MISC, e.Text)
		}
	}
	return result
}
