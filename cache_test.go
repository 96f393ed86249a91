package plcpoll

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheReadBeforeStoreIsNotOK(t *testing.T) {
	c := newCache()

	_, ok := c.readUint16(40001)
	assert.False(t, ok)

	_, ok = c.readBool(1)
	assert.False(t, ok)
}

func TestCacheStoreAndReadRegisters(t *testing.T) {
	c := newCache()

	c.track(40001, kindHoldingRegister)
	c.track(40002, kindHoldingRegister)
	c.track(40003, kindHoldingRegister)
	c.storeRegisters(kindHoldingRegister, 40001, []uint16{10, 20, 30})

	v, ok := c.readUint16(40002)
	assert.True(t, ok)
	assert.Equal(t, uint16(20), v)

	assert.Equal(t, 3, c.len())
}

func TestCacheStoreAndReadBools(t *testing.T) {
	c := newCache()

	c.track(1, kindCoil)
	c.track(2, kindCoil)
	c.track(3, kindCoil)
	c.storeBools(kindCoil, 1, []bool{true, false, true})

	v, ok := c.readBool(2)
	assert.True(t, ok)
	assert.False(t, v)

	v, ok = c.readBool(3)
	assert.True(t, ok)
	assert.True(t, v)
}

func TestCacheEvictRemovesValues(t *testing.T) {
	c := newCache()

	c.track(40001, kindHoldingRegister)
	c.track(40002, kindHoldingRegister)
	c.track(40003, kindHoldingRegister)
	c.storeRegisters(kindHoldingRegister, 40001, []uint16{1, 2, 3})
	c.evict(40001, 3)

	_, ok := c.readUint16(40001)
	assert.False(t, ok)
	assert.Equal(t, 0, c.len())
}

// storeRegisters/storeBools must discard gap addresses a merged range
// over-read but that were never registered via track (Poll/Write):
// spec.md §4.B, "gap registers fetched but not requested are simply
// discarded by the store step".
func TestCacheStoreDiscardsUntrackedGapAddresses(t *testing.T) {
	c := newCache()

	c.track(40001, kindHoldingRegister)
	c.track(40050, kindHoldingRegister)

	values := make([]uint16, 50)
	for i := range values {
		values[i] = uint16(i)
	}
	c.storeRegisters(kindHoldingRegister, 40001, values)

	_, ok := c.readUint16(40001)
	assert.True(t, ok)
	_, ok = c.readUint16(40050)
	assert.True(t, ok)

	_, ok = c.readUint16(40025)
	assert.False(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestCacheKeysSnapshotIsIdempotentAndSafeDuringConcurrentTrack(t *testing.T) {
	c := newCache()

	var wg sync.WaitGroup
	for i := uint32(0); i < 100; i++ {
		wg.Add(1)
		go func(addr uint32) {
			defer wg.Done()
			c.track(40001+addr, kindHoldingRegister)
		}(i)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				c.keysSnapshot()
			}
		}
	}()

	wg.Wait()
	close(done)

	snap := c.keysSnapshot()
	assert.Len(t, snap, 100)
}

func TestCachePreviewTruncatesLongLists(t *testing.T) {
	c := newCache()

	for i := uint32(0); i < 10; i++ {
		c.track(40001+i, kindHoldingRegister)
		c.storeRegisters(kindHoldingRegister, 40001+i, []uint16{uint16(i)})
	}

	preview := c.preview()
	assert.Contains(t, preview, "more")
}

func TestCachePreviewEmpty(t *testing.T) {
	c := newCache()
	assert.Equal(t, "cache empty", c.preview())
}
