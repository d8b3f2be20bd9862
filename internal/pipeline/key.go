package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/pulibrary/barnacle/pkg/types"
)

// WorkKey derives the deduplication identity for one unit of work: one page
// of one manifest under one engine configuration and one image request. It
// is the sole dedup mechanism in the system, so it must be stable across
// processes and machines, and must change whenever any input component
// changes.
func WorkKey(manifestRef, canvasID string, engine types.EngineConfiguration, image types.ImageRequest) string {
	parts := []string{
		manifestRef,
		canvasID,
		EngineFingerprint(engine),
		ImageRequestFingerprint(image),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// EngineFingerprint digests an engine configuration independent of how it
// was assembled.
func EngineFingerprint(engine types.EngineConfiguration) string {
	return fingerprint(map[string]string{
		"engine":         engine.Engine,
		"model_ref":      engine.ModelRef,
		"model_resolved": engine.ModelResolved,
	})
}

// ImageRequestFingerprint digests the image request parameters that affect
// recognition output.
func ImageRequestFingerprint(image types.ImageRequest) string {
	return fingerprint(map[string]string{
		"service":  image.ServiceID,
		"region":   image.Region,
		"size":     image.Size,
		"rotation": image.Rotation,
		"quality":  image.Quality,
		"format":   image.Format,
	})
}

// fingerprint canonicalizes components before hashing: entries are sorted by
// key, so insertion order never leaks into the digest.
func fingerprint(components map[string]string) string {
	keys := make([]string, 0, len(components))
	for k := range components {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+components[k])
	}
	sum := sha256.Sum256([]byte(strings.Join(pairs, "\x1f")))
	return hex.EncodeToString(sum[:])
}
