package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// ClipKey derives the cache key for a clip's prediction result from the raw
// bytes, so identical uploads hit the cache regardless of filename or source.
func ClipKey(clip []byte) string {
	sum := sha256.Sum256(clip)
	return "pred:clip:" + hex.EncodeToString(sum[:])
}
