package temporalx

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// StableChildID derives a deterministic workflow ID from a params value.
// The params are serialized as canonical JSON (sorted keys, no whitespace)
// so the same logical work always maps to the same workflow ID, letting
// Temporal dedup retried spawns.
func StableChildID(prefix string, params interface{}) string {
	payload, err := canonicalJSON(params)
	if err != nil {
		payload = []byte(fmt.Sprintf("%q", fmt.Sprint(params)))
	}
	digest := md5.Sum(payload)
	return prefix + "-" + hex.EncodeToString(digest[:16])
}

func canonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// Round-trip through interface{} so encoding/json emits object keys
	// in sorted order regardless of struct field order.
	var tree interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}
