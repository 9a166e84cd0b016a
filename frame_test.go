package wsserver

import (
	"encoding/binary"
	"math/bits"
	"strconv"
	"testing"

	"github.com/gobwas/ws"

	"github.com/ushadow/wsserver/internal/test/assert"
	"github.com/ushadow/wsserver/internal/test/xrand"
)

// encodeAsClient builds a masked client frame carrying p by the same
// framing rule as encodeText.
func encodeAsClient(p []byte, key [4]byte) []byte {
	f := encodeText(p)
	headerLen := len(f) - len(p)

	b := make([]byte, 0, len(f)+4)
	b = append(b, f[:headerLen]...)
	b[1] |= 1 << 7
	b = append(b, key[:]...)
	for j := range p {
		b = append(b, p[j]^key[j%4])
	}
	return b
}

func TestEncodeText(t *testing.T) {
	t.Parallel()

	t.Run("hi", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "frame", []byte{0x81, 0x02, 'h', 'i'}, encodeText([]byte("hi")))
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "frame", []byte{0x81, 0x00}, encodeText(nil))
	})

	t.Run("lengths", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			n         int
			headerLen int
		}{
			{124, 2},
			{125, 2},
			{126, 4},
			{127, 4},
			{65534, 4},
			{65535, 4},
			{65536, 10},
			{65537, 10},
		}

		for _, tc := range testCases {
			tc := tc
			t.Run(strconv.Itoa(tc.n), func(t *testing.T) {
				t.Parallel()

				f := encodeText(make([]byte, tc.n))
				assert.Equal(t, "frame length", tc.headerLen+tc.n, len(f))
				assert.Equal(t, "first byte", byte(0x81), f[0])

				switch tc.headerLen {
				case 2:
					assert.Equal(t, "length byte", byte(tc.n), f[1])
				case 4:
					assert.Equal(t, "length byte", byte(126), f[1])
					assert.Equal(t, "extended length", uint16(tc.n), binary.BigEndian.Uint16(f[2:]))
				case 10:
					assert.Equal(t, "length byte", byte(127), f[1])
					assert.Equal(t, "extended length", uint64(tc.n), binary.BigEndian.Uint64(f[2:]))
				}
			})
		}
	})
}

func TestDecodeText(t *testing.T) {
	t.Parallel()

	t.Run("roundTrip", func(t *testing.T) {
		t.Parallel()

		for _, n := range []int{1, 5, 124, 125, 126, 4096, 65535, 65536} {
			n := n
			t.Run(strconv.Itoa(n), func(t *testing.T) {
				t.Parallel()

				text := xrand.String(n)
				var key [4]byte
				copy(key[:], xrand.Bytes(4))

				p, err := decodeText(encodeAsClient([]byte(text), key))
				assert.Success(t, err)
				assert.Equal(t, "payload", text, string(p))
			})
		}
	})

	t.Run("masking", func(t *testing.T) {
		t.Parallel()

		// Unmasked byte j must equal payload byte j XOR key[j mod 4].
		key := [4]byte{0xa1, 0xb2, 0xc3, 0xd4}
		masked := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
		f := append([]byte{0x81, 0x80 | byte(len(masked))}, key[:]...)
		f = append(f, masked...)

		p, err := decodeText(f)
		assert.Success(t, err)

		exp := make([]byte, len(masked))
		for j := range masked {
			exp[j] = masked[j] ^ key[j%4]
		}
		assert.Equal(t, "payload", exp, p)
	})

	t.Run("shortFrame", func(t *testing.T) {
		t.Parallel()

		_, err := decodeText([]byte{0x81})
		assert.ErrorIs(t, ErrShortFrame, err)
	})

	t.Run("unmasked", func(t *testing.T) {
		t.Parallel()

		_, err := decodeText([]byte{0x81, 0x02, 'h', 'i'})
		assert.ErrorIs(t, ErrUnmaskedFrame, err)
	})

	t.Run("truncatedPayload", func(t *testing.T) {
		t.Parallel()

		var key [4]byte
		f := encodeAsClient([]byte("hello"), key)
		// Declares 5 payload bytes but delivers 3.
		_, err := decodeText(f[:len(f)-2])
		assert.ErrorIs(t, ErrTruncatedFrame, err)
	})

	t.Run("truncatedExtendedLength", func(t *testing.T) {
		t.Parallel()

		_, err := decodeText([]byte{0x81, 0x80 | 126, 0x01})
		assert.ErrorIs(t, ErrTruncatedFrame, err)
	})

	t.Run("truncatedMaskKey", func(t *testing.T) {
		t.Parallel()

		_, err := decodeText([]byte{0x81, 0x85, 0x01, 0x02})
		assert.ErrorIs(t, ErrTruncatedFrame, err)
	})
}

func Test_mask(t *testing.T) {
	t.Parallel()

	key := []byte{0xa, 0xb, 0xc, 0xff}
	key32 := binary.LittleEndian.Uint32(key)
	p := []byte{0xa, 0xb, 0xc, 0xf2, 0xc}
	gotKey32 := mask(key32, p)

	expP := []byte{0, 0, 0, 0x0d, 0x6}
	assert.Equal(t, "p", expP, p)

	expKey32 := bits.RotateLeft32(key32, -8)
	assert.Equal(t, "key32", expKey32, gotKey32)
}

func Test_mask_gobwas(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 4, 7, 8, 9, 31, 32, 101, 4096} {
		n := n
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			t.Parallel()

			p := xrand.Bytes(n)
			var key [4]byte
			copy(key[:], xrand.Bytes(4))

			exp := make([]byte, n)
			copy(exp, p)
			ws.Cipher(exp, key, 0)

			mask(binary.LittleEndian.Uint32(key[:]), p)
			assert.Equal(t, "masked payload", exp, p)
		})
	}
}
