package util

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIn(t *testing.T) {
	assert.True(t, In("b", []string{"a", "b"}))
	assert.False(t, In("c", []string{"a", "b"}))
	assert.False(t, In("c", nil))
}

func TestDedupStrings_KeepsFirstOccurrenceOrder(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, DedupStrings([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, DedupStrings(nil))
}

func TestKeyedMutex_SameKeyIsExclusive(t *testing.T) {
	km := NewKeyedMutex()
	unlock := km.Lock("group-1")

	_, ok := km.TryLock("group-1")
	assert.False(t, ok)

	// A different key is independent.
	unlock2, ok := km.TryLock("group-2")
	require.True(t, ok)
	unlock2()

	unlock()
	unlock3, ok := km.TryLock("group-1")
	require.True(t, ok)
	unlock3()
	assert.Equal(t, 0, km.len())
}

func TestKeyedMutex_SerializesConcurrentHolders(t *testing.T) {
	km := NewKeyedMutex()
	var mu sync.Mutex
	inside := 0
	maxInside := 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("k")
			defer unlock()
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
	assert.Equal(t, 0, km.len())
}
