package plcpoll

import (
	"errors"
	"fmt"
)

// Modbus PDU function codes used by this engine (read-side and write-side,
// TCP only; no file record or FIFO queue access).
const (
	fcReadCoils             uint8 = 0x01
	fcReadDiscreteInputs    uint8 = 0x02
	fcReadHoldingRegisters  uint8 = 0x03
	fcReadInputRegisters    uint8 = 0x04
	fcWriteSingleCoil       uint8 = 0x05
	fcWriteSingleRegister   uint8 = 0x06
	fcWriteMultipleCoils    uint8 = 0x0f
	fcWriteMultipleRegisters uint8 = 0x10

	exceptionBit uint8 = 0x80
)

// Modbus exception codes, as carried in the single payload byte of an
// exception response (function code | exceptionBit).
const (
	exIllegalFunction        uint8 = 0x01
	exIllegalDataAddress     uint8 = 0x02
	exIllegalDataValue       uint8 = 0x03
	exServerDeviceFailure    uint8 = 0x04
	exAcknowledge            uint8 = 0x05
	exServerDeviceBusy       uint8 = 0x06
	exMemoryParityError      uint8 = 0x08
	exGWPathUnavailable      uint8 = 0x0a
	exGWTargetFailedToRespond uint8 = 0x0b
)

var (
	// ErrInvalidAddress is returned when a conventional address does not
	// fall into any of the seven bands in the data model, or names a
	// read-only band for a write.
	ErrInvalidAddress = errors.New("invalid modbus address")

	// ErrPlcOffline is returned by Write when the transport could not
	// connect within its transaction budget.
	ErrPlcOffline = errors.New("plc offline")

	// ErrTransactionTimeout is raised by the transport when the
	// transaction-scoped deadline elapses during send or receive. A
	// connect that runs out of time is reported as ErrPlcOffline instead.
	ErrTransactionTimeout = errors.New("modbus transaction timed out")

	// ErrProtocolError covers malformed or unexpected responses: bad
	// protocol id or length field, a function code that does not match
	// the request, a payload too short for what was requested. Frames with
	// a stale transaction id are discarded by the transport, not reported.
	ErrProtocolError = errors.New("modbus protocol error")

	// ErrNotPolled is returned by Engine.Read for an address that holds
	// no value: not yet tracked, tracked but never successfully polled,
	// or its value was evicted because the latest poll of its range
	// failed.
	ErrNotPolled = errors.New("address not yet polled")

	ErrIllegalFunction        = errors.New("illegal function")
	ErrIllegalDataAddress     = errors.New("illegal data address")
	ErrIllegalDataValue       = errors.New("illegal data value")
	ErrServerDeviceFailure    = errors.New("server device failure")
	ErrAcknowledge            = errors.New("request acknowledged")
	ErrServerDeviceBusy       = errors.New("server device busy")
	ErrMemoryParityError      = errors.New("memory parity error")
	ErrGWPathUnavailable      = errors.New("gateway path unavailable")
	ErrGWTargetFailedToRespond = errors.New("gateway target device failed to respond")
)

// ModbusError wraps a device-returned exception response, the status byte
// behind the sentinel Err* values above. Callers that need the raw
// exception code can type-assert to *ModbusError.
type ModbusError struct {
	Code uint8
	err  error
}

func (e *ModbusError) Error() string {
	return fmt.Sprintf("modbus exception 0x%02x: %s", e.Code, e.err)
}

func (e *ModbusError) Unwrap() error {
	return e.err
}

func mapExceptionCode(code uint8) error {
	var base error

	switch code {
	case exIllegalFunction:
		base = ErrIllegalFunction
	case exIllegalDataAddress:
		base = ErrIllegalDataAddress
	case exIllegalDataValue:
		base = ErrIllegalDataValue
	case exServerDeviceFailure:
		base = ErrServerDeviceFailure
	case exAcknowledge:
		base = ErrAcknowledge
	case exServerDeviceBusy:
		base = ErrServerDeviceBusy
	case exMemoryParityError:
		base = ErrMemoryParityError
	case exGWPathUnavailable:
		base = ErrGWPathUnavailable
	case exGWTargetFailedToRespond:
		base = ErrGWTargetFailedToRespond
	default:
		base = fmt.Errorf("unsupported exception code (%v)", code)
	}

	return &ModbusError{Code: code, err: base}
}
