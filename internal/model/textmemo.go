package model

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"lorachat/internal/config"
)

// textMemoCapacity holds twice the largest engine encode cache, so every
// sequence the engine still caches resolves back to its text.
const textMemoCapacity = 2 * config.MaxEncodeCacheCapacity

// newTextMemo maps token sequence keys to the text they were encoded from.
// Entries are touched on every read, so they outlive any engine-side encode
// cache whose TTL is below a day.
func newTextMemo() *ttlcache.Cache[string, string] {
	return ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](24 * time.Hour),
		ttlcache.WithCapacity[string, string](textMemoCapacity),
	)
}
