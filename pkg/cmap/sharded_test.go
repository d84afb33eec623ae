package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func set[V any](m *Map[V], key string, v V) {
	m.Upsert(key, func(V, bool) V { return v })
}

func TestGetUpsert(t *testing.T) {
	m := New[int]()

	set(m, "key1", 100)
	set(m, "key2", 200)
	set(m, "key1", 150)

	if v, ok := m.Get("key1"); !ok || v != 150 {
		t.Errorf("Get(key1) = (%d, %v), want (150, true)", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) found a value")
	}
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}

	m.Clear()
	if m.Count() != 0 {
		t.Errorf("Count() = %d after Clear", m.Count())
	}
}

func TestUpsert(t *testing.T) {
	m := New[int]()
	add := func(existing int, exists bool) int {
		if !exists {
			return 1
		}
		return existing + 1
	}

	m.Upsert("k", add)
	if got := m.Upsert("k", add); got != 2 {
		t.Errorf("Upsert() = %d, want 2", got)
	}
}

func TestDeleteIf(t *testing.T) {
	m := New[int]()
	for i := 0; i < 100; i++ {
		set(m, fmt.Sprintf("k%d", i), i)
	}

	removed := m.DeleteIf(func(_ string, v int) bool { return v%2 == 0 })
	if removed != 50 {
		t.Errorf("DeleteIf() removed %d, want 50", removed)
	}
	_, has0 := m.Get("k0")
	_, has1 := m.Get("k1")
	if m.Count() != 50 || has0 || !has1 {
		t.Errorf("DeleteIf() left Count() = %d", m.Count())
	}
}

func TestSharding(t *testing.T) {
	m := New[int]()
	for i := 0; i < 400; i++ {
		set(m, fmt.Sprintf("token-%d", i), i)
	}

	for i, s := range m.shards {
		if len(s.items) == 0 {
			t.Errorf("shard %d is empty", i)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[int]()
	var wg sync.WaitGroup
	numGoroutines := 50
	numOps := 500

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				key := fmt.Sprintf("%d-%d", base, j)
				set(m, key, j)
				m.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if m.Count() != numGoroutines*numOps {
		t.Errorf("Count() = %d, want %d", m.Count(), numGoroutines*numOps)
	}
}
