// Package cmap provides a concurrent map keyed by strings.
//
// Keys are spread over ShardCount shards by their murmur3 hash; each shard
// has its own RWMutex, so operations on different shards never contend.
//
// Usage:
//
//	m := cmap.New[time.Time]()
//	m.Upsert("token-id", func(old time.Time, ok bool) time.Time { return until })
//	until, ok := m.Get("token-id")
//	n := m.DeleteIf(func(_ string, v time.Time) bool { return v.Before(now) })
//
// Thread Safety:
//
// All operations are thread-safe. DeleteIf and Count lock one shard at a
// time, so they observe a per-shard consistent view only.
package cmap
