package plcpoll

import (
	"encoding/binary"
	"io"
)

// MBAP (Modbus Application Protocol) header: transaction id, protocol id
// (always 0x0000 for Modbus/TCP), length, unit id — 7 bytes, followed by
// the PDU (function code + payload).
const (
	mbapHeaderLength  = 7
	maxTCPFrameLength = 260
)

// assembleMBAPFrame turns a pdu into a full MBAP frame ready to write to
// the wire.
func assembleMBAPFrame(txnID uint16, p *pdu) []byte {
	frame := make([]byte, 0, mbapHeaderLength+1+len(p.payload))

	frame = append(frame, uint16ToBytes(txnID)...)
	frame = append(frame, 0x00, 0x00) // protocol id
	frame = append(frame, uint16ToBytes(uint16(2+len(p.payload)))...)
	frame = append(frame, p.unitID, p.functionCode)
	frame = append(frame, p.payload...)

	return frame
}

// readMBAPFrame reads one complete MBAP+PDU frame from r, blocking until
// the whole frame has arrived, the deadline set on the underlying
// connection elapses, or an I/O error occurs.
func readMBAPFrame(r io.Reader) (p *pdu, txnID uint16, err error) {
	header := make([]byte, mbapHeaderLength)
	if _, err = io.ReadFull(r, header); err != nil {
		return
	}

	txnID = binary.BigEndian.Uint16(header[0:2])
	protocolID := binary.BigEndian.Uint16(header[2:4])
	unitID := header[6]

	bytesNeeded := int(binary.BigEndian.Uint16(header[4:6]))
	// the length field includes the unit id byte, already read above
	bytesNeeded--

	if bytesNeeded <= 0 || bytesNeeded+mbapHeaderLength > maxTCPFrameLength {
		err = ErrProtocolError
		return
	}

	body := make([]byte, bytesNeeded)
	if _, err = io.ReadFull(r, body); err != nil {
		return
	}

	if protocolID != 0x0000 {
		err = ErrProtocolError
		return
	}

	p = &pdu{
		unitID:       unitID,
		functionCode: body[0],
		payload:      body[1:],
	}

	return
}
