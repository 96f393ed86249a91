package plcpoll

// kind identifies which of the four register kinds a conventional address
// names. It drives both the function code used to read/write it and the
// 10000-wide numbering boundary that merge() (planner.go) must never
// cross.
type kind int

const (
	kindCoil kind = iota
	kindDiscreteInput
	kindInputRegister
	kindHoldingRegister
)

// band describes one of the seven conventional Modicon/Allen-Bradley
// address bands. offset converts a conventional address to its
// zero-based protocol address.
type band struct {
	kind     kind
	lo, hi   uint32
	offset   uint32
	writable bool
}

// bands enumerates the seven conventional ranges, including both
// Holding Register encodings (40001-99999 and 400001-465536): the
// engine accepts either, since their ranges never overlap: the number
// of digits (five versus six) tells them apart.
var bands = []band{
	{kind: kindCoil, lo: 1, hi: 9999, offset: 1, writable: true},
	{kind: kindDiscreteInput, lo: 10001, hi: 19999, offset: 10001, writable: false},
	{kind: kindInputRegister, lo: 30001, hi: 39999, offset: 30001, writable: false},
	{kind: kindHoldingRegister, lo: 40001, hi: 99999, offset: 40001, writable: true},
	{kind: kindDiscreteInput, lo: 100001, hi: 165536, offset: 100001, writable: false},
	{kind: kindInputRegister, lo: 300001, hi: 365536, offset: 300001, writable: false},
	{kind: kindHoldingRegister, lo: 400001, hi: 465536, offset: 400001, writable: true},
}

// classify resolves a conventional address to its kind and zero-based
// protocol address. It returns ErrInvalidAddress if the address falls
// into none of the seven bands.
func classify(address uint32) (k kind, protocolAddress uint16, writable bool, err error) {
	for _, b := range bands {
		if address >= b.lo && address <= b.hi {
			return b.kind, uint16(address - b.offset), b.writable, nil
		}
	}

	err = ErrInvalidAddress

	return
}

// readFunctionCode returns the function code used to read quantity
// registers/coils of kind k.
func readFunctionCode(k kind) uint8 {
	switch k {
	case kindCoil:
		return fcReadCoils
	case kindDiscreteInput:
		return fcReadDiscreteInputs
	case kindInputRegister:
		return fcReadInputRegisters
	default:
		return fcReadHoldingRegisters
	}
}

// writeFunctionCode returns the function code used to write count
// coils/registers of kind k in one request. single picks the
// single-element variant (0x05/0x06) over the multiple-element variant
// (0x0f/0x10). Callers choose by the shape of the value, not its
// length: a scalar uses the single-element opcode, a slice (even of
// length 1) the multiple-element one.
func writeFunctionCode(k kind, single bool) uint8 {
	if k == kindCoil {
		if single {
			return fcWriteSingleCoil
		}
		return fcWriteMultipleCoils
	}

	if single {
		return fcWriteSingleRegister
	}
	return fcWriteMultipleRegisters
}

// kindLimit returns the maximum element count one PDU can carry for k,
// the "limit" parameter of shatter() when the caller doesn't override it.
func kindLimit(k kind) int {
	if k == kindCoil || k == kindDiscreteInput {
		return 1968
	}
	return 123
}
