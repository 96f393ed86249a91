package plcpoll

import "encoding/binary"

// pdu is one Modbus protocol data unit: function code plus its payload,
// addressed to a particular unit id. It carries no framing (MBAP header);
// see mbap.go for that.
type pdu struct {
	unitID       uint8
	functionCode uint8
	payload      []byte
}

func uint16ToBytes(v uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, v)
	return out
}

func bytesToUint16(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}

func bytesToUint16s(b []byte) []uint16 {
	out := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		out = append(out, bytesToUint16(b[i:i+2]))
	}
	return out
}

// encodeBools packs a slice of bools into the bit-per-register wire format
// used by ReadCoils/ReadDiscreteInputs/WriteMultipleCoils responses.
func encodeBools(values []bool) []byte {
	out := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// decodeBools unpacks quantity bits from the bit-per-register wire format.
func decodeBools(quantity uint16, b []byte) []bool {
	out := make([]bool, quantity)
	for i := range out {
		out[i] = (b[i/8]>>uint(i%8))&0x01 == 0x01
	}
	return out
}
