package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(time.Minute)
	m.Set("a", 42, time.Minute)

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestMemory_ExpiredEntriesAbsent(t *testing.T) {
	m := NewMemory(0)
	m.Set("short", "x", 20*time.Millisecond)
	_, ok := m.Get("short")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = m.Get("short")
	assert.False(t, ok)
}

func TestMemory_NonPositiveTTLNotStored(t *testing.T) {
	m := NewMemory(0)
	m.Set("k", 1, 0)
	_, ok := m.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			m.Set(key, i, time.Minute)
			_, _ = m.Get(key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, m.Len())
}

func TestLookup(t *testing.T) {
	m := NewMemory(0)
	m.Set("n", 7, time.Minute)

	n, ok := Lookup[int](m, "n")
	require.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = Lookup[string](m, "n")
	assert.False(t, ok, "wrong type is a miss")

	_, ok = Lookup[int](m, "absent")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	a := Key("schools", map[string]string{"location": "Austin, TX", "radius": "5"})
	b := Key("schools", map[string]string{"radius": "5", "location": "  austin,   tx "})
	assert.Equal(t, a, b)
	assert.Equal(t, "schools|location=austin, tx|radius=5", a)

	assert.NotEqual(t, a, Key("neighborhood", map[string]string{"location": "Austin, TX", "radius": "5"}))
	assert.NotEqual(t, a, Key("schools", map[string]string{"location": "Austin, TX", "radius": "10"}))

	assert.Equal(t, "trends|location=78701",
		Key("trends", map[string]string{"location": "78701", "price": ""}))
	assert.Equal(t, "search", Key("search", nil))
}
