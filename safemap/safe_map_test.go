package safemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSafeMap(t *testing.T) {
	m := NewSafeMap[string, int]()
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Len())
	_, ok := m.Load("x")
	assert.False(t, ok)
}

func TestSafeMap_Store_Load(t *testing.T) {
	m := NewSafeMap[string, int]()

	t.Run("store and load returns value", func(t *testing.T) {
		m.Store("a", 1)
		v, ok := m.Load("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
	})

	t.Run("overwrite returns new value", func(t *testing.T) {
		m.Store("a", 2)
		v, ok := m.Load("a")
		assert.True(t, ok)
		assert.Equal(t, 2, v)
	})

	t.Run("load missing key returns zero value and false", func(t *testing.T) {
		v, ok := m.Load("nonexistent")
		assert.False(t, ok)
		assert.Equal(t, 0, v)
	})
}

func TestSafeMap_Insert(t *testing.T) {
	m := NewSafeMap[uint32, string]()

	t.Run("insert into empty slot succeeds", func(t *testing.T) {
		assert.True(t, m.Insert(1, "first"))
	})

	t.Run("insert on existing key is rejected and keeps old value", func(t *testing.T) {
		assert.False(t, m.Insert(1, "second"))
		v, ok := m.Load(1)
		assert.True(t, ok)
		assert.Equal(t, "first", v)
	})
}

func TestSafeMap_Delete(t *testing.T) {
	m := NewSafeMap[string, int]()
	m.Store("a", 1)
	m.Store("b", 2)

	t.Run("delete removes key and returns value", func(t *testing.T) {
		v, ok := m.Delete("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		_, found := m.Load("a")
		assert.False(t, found)
		_, found = m.Load("b")
		assert.True(t, found)
	})

	t.Run("delete missing key is no-op", func(t *testing.T) {
		v, ok := m.Delete("nonexistent")
		assert.False(t, ok)
		assert.Equal(t, 0, v)
		assert.Equal(t, 1, m.Len())
	})
}

func TestSafeMap_Snapshot(t *testing.T) {
	m := NewSafeMap[int, string]()
	m.Store(3, "c")
	m.Store(1, "a")
	m.Store(2, "b")

	assert.Equal(t, []string{"a", "b", "c"}, m.Snapshot())

	t.Run("snapshot is detached from later mutations", func(t *testing.T) {
		snap := m.Snapshot()
		m.Store(4, "d")
		m.Delete(1)
		assert.Equal(t, []string{"a", "b", "c"}, snap)
	})
}

func TestSafeMap_Range(t *testing.T) {
	m := NewSafeMap[string, int]()
	m.Store("c", 3)
	m.Store("a", 1)
	m.Store("b", 2)

	t.Run("iterates all entries in key order", func(t *testing.T) {
		var keys []string
		m.Range(func(k string, v int) bool {
			keys = append(keys, k)
			return true
		})
		assert.Equal(t, []string{"a", "b", "c"}, keys)
	})

	t.Run("stops when f returns false", func(t *testing.T) {
		count := 0
		m.Range(func(k string, v int) bool {
			count++
			return count < 2
		})
		assert.Equal(t, 2, count)
	})

	t.Run("mutation inside f does not disturb iteration", func(t *testing.T) {
		var seen []int
		m.Range(func(k string, v int) bool {
			m.Delete("b")
			m.Store("z", 26)
			seen = append(seen, v)
			return true
		})
		assert.Equal(t, []int{1, 2, 3}, seen)
		_, found := m.Load("b")
		assert.False(t, found)
		_, found = m.Load("z")
		assert.True(t, found)
	})

	t.Run("empty map calls f zero times", func(t *testing.T) {
		empty := NewSafeMap[string, int]()
		calls := 0
		empty.Range(func(k string, v int) bool {
			calls++
			return true
		})
		assert.Equal(t, 0, calls)
	})
}

func TestSafeMap_Drain(t *testing.T) {
	m := NewSafeMap[int, string]()
	m.Store(2, "b")
	m.Store(1, "a")

	assert.Equal(t, []string{"a", "b"}, m.Drain())
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Drain())
}

func TestSafeMap_Concurrent(t *testing.T) {
	m := NewSafeMap[int, int]()
	const goroutines = 20
	const opsPerGoroutine = 500

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for g := range goroutines {
		go func(id int) {
			defer wg.Done()
			for i := range opsPerGoroutine {
				key := id*opsPerGoroutine + i
				m.Store(key, key*2)
				m.Load(key)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, goroutines*opsPerGoroutine, m.Len())

	// Concurrent delete and snapshot
	wg.Add(goroutines)
	for g := range goroutines {
		go func(id int) {
			defer wg.Done()
			for i := range opsPerGoroutine {
				key := id*opsPerGoroutine + i
				m.Delete(key)
				if i%250 == 0 {
					m.Snapshot()
				}
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 0, m.Len())
}
