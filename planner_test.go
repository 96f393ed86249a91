package plcpoll

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// A single logical range wider than one PDU's limit splits into as many
// limit-wide chunks as needed, with the remainder in the final chunk.
func TestShatterDerivation(t *testing.T) {
	got := shatter(kindCoil, 1, 4000, 0)

	want := []addrRange{
		{kind: kindCoil, address: 1, count: 1968},
		{kind: kindCoil, address: 1969, count: 1968},
		{kind: kindCoil, address: 3937, count: 64},
	}

	assert.Equal(t, want, got)
}

func TestShatterDerivationRegisterBand(t *testing.T) {
	got := shatter(kindHoldingRegister, 40001, 300, 0)

	want := []addrRange{
		{kind: kindHoldingRegister, address: 40001, count: 123},
		{kind: kindHoldingRegister, address: 40124, count: 123},
		{kind: kindHoldingRegister, address: 40247, count: 54},
	}

	assert.Equal(t, want, got)
}

func TestShatterExactMultiple(t *testing.T) {
	got := shatter(kindCoil, 1, 3936, 1968)

	want := []addrRange{
		{kind: kindCoil, address: 1, count: 1968},
		{kind: kindCoil, address: 1969, count: 1968},
	}

	assert.Equal(t, want, got)
}

func TestShatterUnderLimitIsOneChunk(t *testing.T) {
	got := shatter(kindInputRegister, 30001, 10, 0)

	assert.Equal(t, []addrRange{{kind: kindInputRegister, address: 30001, count: 10}}, got)
}

// Addresses within reach of each other coalesce into a single range
// spanning the gap between them.
func TestMergeWithinReach(t *testing.T) {
	ranges := []addrRange{
		{kind: kindHoldingRegister, address: 40001, count: 1},
		{kind: kindHoldingRegister, address: 40005, count: 1},
		{kind: kindHoldingRegister, address: 40010, count: 1},
	}

	got := merge(ranges, 5, 123)

	assert.Equal(t, []addrRange{{kind: kindHoldingRegister, address: 40001, count: 10}}, got)
}

// The same input at a smaller reach never coalesces, since no gap
// between consecutive addresses fits within it.
func TestMergeBeyondReachStaysSeparate(t *testing.T) {
	ranges := []addrRange{
		{kind: kindHoldingRegister, address: 40001, count: 1},
		{kind: kindHoldingRegister, address: 40005, count: 1},
		{kind: kindHoldingRegister, address: 40010, count: 1},
	}

	got := merge(ranges, 2, 123)

	assert.Equal(t, []addrRange{
		{kind: kindHoldingRegister, address: 40001, count: 1},
		{kind: kindHoldingRegister, address: 40005, count: 1},
		{kind: kindHoldingRegister, address: 40010, count: 1},
	}, got)
}

// Two addresses numerically adjacent across a 10000-wide block boundary
// (the last Coil address of one block, the first Discrete Input address
// of the next) are never merged into a single request, even at a large
// reach, because they sit in different 10000-wide blocks.
func TestMergeNeverCrossesKindBoundary(t *testing.T) {
	ranges := []addrRange{
		{kind: kindCoil, address: 9998, count: 1},
		{kind: kindCoil, address: 9999, count: 1},
		{kind: kindDiscreteInput, address: 10001, count: 1},
	}

	got := merge(ranges, 10, 0)

	assert.Equal(t, []addrRange{
		{kind: kindCoil, address: 9998, count: 2},
		{kind: kindDiscreteInput, address: 10001, count: 1},
	}, got)
}

func TestMergeReshattersCoalescedRuns(t *testing.T) {
	ranges := []addrRange{
		{kind: kindHoldingRegister, address: 40001, count: 1},
		{kind: kindHoldingRegister, address: 40200, count: 1},
	}

	got := merge(ranges, 250, 0)

	want := []addrRange{
		{kind: kindHoldingRegister, address: 40001, count: 123},
		{kind: kindHoldingRegister, address: 40124, count: 77},
	}

	assert.Equal(t, want, got)
}

func TestMergeDefaultReachIsOne(t *testing.T) {
	ranges := []addrRange{
		{kind: kindCoil, address: 1, count: 1},
		{kind: kindCoil, address: 2, count: 1},
		{kind: kindCoil, address: 10, count: 1},
	}

	got := merge(ranges, 0, 0)

	assert.Equal(t, []addrRange{
		{kind: kindCoil, address: 1, count: 2},
		{kind: kindCoil, address: 10, count: 1},
	}, got)
}

func TestMergeEmptyInput(t *testing.T) {
	assert.Nil(t, merge(nil, 1, 0))
}
