// Package workflow provides the concurrency primitives behind batch photo
// processing: a sharded per-asset lock so at most one writer touches an
// asset at a time, and a bounded worker pool for fanning work out across
// assets.
package workflow

import (
	"hash/fnv"
	"sync"
)

// AssetLocks serializes mutations per asset id. Ids are hashed onto a fixed
// set of shards; two assets in the same shard contend, which is acceptable
// because shard counts are sized well above worker concurrency.
type AssetLocks struct {
	shards []sync.Mutex
}

// NewAssetLocks builds a lock table with the given shard count. Counts
// below one fall back to a single shard.
func NewAssetLocks(shards int) *AssetLocks {
	if shards < 1 {
		shards = 1
	}
	return &AssetLocks{shards: make([]sync.Mutex, shards)}
}

// Lock acquires the shard lock for an asset id.
func (l *AssetLocks) Lock(assetID string) {
	l.shards[l.shardFor(assetID)].Lock()
}

// Unlock releases the shard lock for an asset id.
func (l *AssetLocks) Unlock(assetID string) {
	l.shards[l.shardFor(assetID)].Unlock()
}

// WithLock runs fn while holding the asset's shard lock.
func (l *AssetLocks) WithLock(assetID string, fn func() error) error {
	l.Lock(assetID)
	defer l.Unlock(assetID)
	return fn()
}

func (l *AssetLocks) shardFor(assetID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(assetID))
	return int(h.Sum32() % uint32(len(l.shards)))
}
