package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// Hash computes the SHA-256 of data as a 64-character hex string.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SnapshotHash fingerprints a snapshot by its JSON encoding. Any change to
// nodes, edges, positions, or scenarios produces a new hash.
func SnapshotHash(snap *model.Snapshot) string {
	data, _ := json.Marshal(snap)
	return Hash(data)
}

// RenderKey is the cache key for a rendered SVG: the snapshot fingerprint
// combined with the filter that shaped it.
func RenderKey(snapshotHash, module, search string, showRelationships bool) string {
	opts, _ := json.Marshal([]any{module, search, showRelationships})
	return fmt.Sprintf("svg:%s:%s", snapshotHash, Hash(opts))
}
