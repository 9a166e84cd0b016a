package wsserver

import (
	"encoding/binary"

	"github.com/ushadow/wsserver/internal/errd"
)

// opcode represents a WebSocket opcode.
type opcode int

// https://tools.ietf.org/html/rfc6455#section-11.8.
const (
	opContinuation opcode = iota
	opText
	opBinary
	// 3 - 7 are reserved for further non-control frames.
	_
	_
	_
	_
	_
	opClose
	opPing
	opPong
	// 11-16 are reserved for further control frames.
)

const finBit = 1 << 7

// encodeText serializes p into a single unmasked text frame.
// See https://tools.ietf.org/html/rfc6455#section-5.2
//
// The first byte is always 0x81: FIN set, opcode text. The payload length
// occupies 7, 7+16 or 7+64 bits depending on len(p). No mask is applied as
// server to client frames are never masked.
func encodeText(p []byte) []byte {
	var b []byte
	switch {
	case len(p) <= 125:
		b = make([]byte, 2+len(p))
		b[1] = byte(len(p))
		copy(b[2:], p)
	case len(p) <= 65535:
		b = make([]byte, 4+len(p))
		b[1] = 126
		binary.BigEndian.PutUint16(b[2:], uint16(len(p)))
		copy(b[4:], p)
	default:
		b = make([]byte, 10+len(p))
		b[1] = 127
		binary.BigEndian.PutUint64(b[2:], uint64(len(p)))
		copy(b[10:], p)
	}
	b[0] = finBit | byte(opText)
	return b
}

// decodeText parses a single masked client frame out of buf and returns the
// unmasked payload.
// See https://tools.ietf.org/html/rfc6455#section-5.2
//
// The returned slice is always a copy; it never aliases buf, so callers may
// reuse buf for the next read. decodeText validates that buf covers the
// declared payload length and returns ErrTruncatedFrame otherwise rather
// than decoding partial data.
func decodeText(buf []byte) (_ []byte, err error) {
	defer errd.Wrap(&err, "failed to decode frame")

	if len(buf) < 2 {
		return nil, ErrShortFrame
	}
	if buf[1]&(1<<7) == 0 {
		return nil, ErrUnmaskedFrame
	}

	payloadLength := int64(buf[1] &^ (1 << 7))
	maskOff := 2
	switch payloadLength {
	case 126:
		if len(buf) < 4 {
			return nil, ErrTruncatedFrame
		}
		payloadLength = int64(binary.BigEndian.Uint16(buf[2:]))
		maskOff = 4
	case 127:
		if len(buf) < 10 {
			return nil, ErrTruncatedFrame
		}
		u := binary.BigEndian.Uint64(buf[2:])
		// A declared length beyond the buffer is truncated by definition,
		// so this also rejects lengths that would overflow int64.
		if u > uint64(len(buf)) {
			return nil, ErrTruncatedFrame
		}
		payloadLength = int64(u)
		maskOff = 10
	}

	if int64(len(buf)) < int64(maskOff)+4+payloadLength {
		return nil, ErrTruncatedFrame
	}
	maskKey := binary.LittleEndian.Uint32(buf[maskOff:])

	payload := make([]byte, payloadLength)
	copy(payload, buf[maskOff+4:int64(maskOff+4)+payloadLength])
	mask(maskKey, payload)

	return payload, nil
}
