package plcpoll

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBands(t *testing.T) {
	cases := []struct {
		address  uint32
		wantKind kind
		wantProt uint16
		wantRW   bool
	}{
		{1, kindCoil, 0, true},
		{9999, kindCoil, 9998, true},
		{10001, kindDiscreteInput, 0, false},
		{19999, kindDiscreteInput, 9998, false},
		{30001, kindInputRegister, 0, false},
		{39999, kindInputRegister, 9998, false},
		{40001, kindHoldingRegister, 0, true},
		{99999, kindHoldingRegister, 59998, true},
		{100001, kindDiscreteInput, 0, false},
		{165536, kindDiscreteInput, 65535, false},
		{300001, kindInputRegister, 0, false},
		{365536, kindInputRegister, 65535, false},
		{400001, kindHoldingRegister, 0, true},
		{465536, kindHoldingRegister, 65535, true},
	}

	for _, c := range cases {
		gotKind, gotProt, gotRW, err := classify(c.address)
		assert.NoError(t, err, "address %d", c.address)
		assert.Equal(t, c.wantKind, gotKind, "address %d kind", c.address)
		assert.Equal(t, c.wantProt, gotProt, "address %d protocol address", c.address)
		assert.Equal(t, c.wantRW, gotRW, "address %d writable", c.address)
	}
}

func TestClassifyInvalidAddresses(t *testing.T) {
	for _, addr := range []uint32{0, 10000, 20000, 29999, 40000, 165537, 300000, 465537, 999999} {
		_, _, _, err := classify(addr)
		assert.ErrorIs(t, err, ErrInvalidAddress, "address %d", addr)
	}
}

func TestFunctionCodeSelection(t *testing.T) {
	assert.Equal(t, fcReadCoils, readFunctionCode(kindCoil))
	assert.Equal(t, fcReadDiscreteInputs, readFunctionCode(kindDiscreteInput))
	assert.Equal(t, fcReadInputRegisters, readFunctionCode(kindInputRegister))
	assert.Equal(t, fcReadHoldingRegisters, readFunctionCode(kindHoldingRegister))

	assert.Equal(t, fcWriteSingleCoil, writeFunctionCode(kindCoil, true))
	assert.Equal(t, fcWriteMultipleCoils, writeFunctionCode(kindCoil, false))
	assert.Equal(t, fcWriteSingleRegister, writeFunctionCode(kindHoldingRegister, true))
	assert.Equal(t, fcWriteMultipleRegisters, writeFunctionCode(kindHoldingRegister, false))
}

func TestKindLimit(t *testing.T) {
	assert.Equal(t, 1968, kindLimit(kindCoil))
	assert.Equal(t, 1968, kindLimit(kindDiscreteInput))
	assert.Equal(t, 123, kindLimit(kindInputRegister))
	assert.Equal(t, 123, kindLimit(kindHoldingRegister))
}
