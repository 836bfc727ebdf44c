package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName_IsStableSHA1(t *testing.T) {
	name := Name("127.0.0.1:9001")
	assert.Equal(t, "drone-"+sha1Hex("127.0.0.1:9001"), name)
}

func TestRegister_Idempotent(t *testing.T) {
	r := New()

	first := r.Register("127.0.0.1:9001")
	second := r.Register("127.0.0.1:9001")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, r.Len())
}

func TestRegister_MultipleAddresses(t *testing.T) {
	r := New()
	r.Register("127.0.0.1:9001")
	r.Register("127.0.0.1:9002")

	assert.Equal(t, 2, r.Len())

	snap := r.Snapshot()
	assert.Equal(t, Name("127.0.0.1:9001"), snap["127.0.0.1:9001"])
	assert.Equal(t, Name("127.0.0.1:9002"), snap["127.0.0.1:9002"])
}

func TestPickOne_Empty(t *testing.T) {
	r := New()
	_, _, err := r.PickOne()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestPickOne_ReturnsRegisteredEntry(t *testing.T) {
	r := New()
	r.Register("127.0.0.1:9001")

	addr, name, err := r.PickOne()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9001", addr)
	assert.Equal(t, Name("127.0.0.1:9001"), name)
}

func TestEvict_RemovesEntries(t *testing.T) {
	r := New()
	r.Register("127.0.0.1:9001")
	r.Register("127.0.0.1:9002")

	r.Evict([]string{"127.0.0.1:9001"})

	assert.Equal(t, 1, r.Len())
	snap := r.Snapshot()
	_, stillThere := snap["127.0.0.1:9001"]
	assert.False(t, stillThere)
	_, other := snap["127.0.0.1:9002"]
	assert.True(t, other)
}

func TestSnapshot_IsACopy(t *testing.T) {
	r := New()
	r.Register("127.0.0.1:9001")

	snap := r.Snapshot()
	snap["127.0.0.1:9002"] = "tampered"

	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Register(addrFor(n))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
}
