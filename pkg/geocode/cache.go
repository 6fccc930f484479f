package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
)

// Cache stores geocode results keyed by cacheKey. Negative results
// (Matched=false) are cached too so repeated misses skip the providers.
type Cache interface {
	// Get returns the cached result and true on a hit.
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, r *Result) error
}

// Migrator is implemented by caches that need a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// cacheKey returns SHA-256 hex of the case-folded, whitespace-collapsed query.
func cacheKey(query string) string {
	normalized := cases.Fold().String(strings.Join(strings.Fields(query), " "))
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}
