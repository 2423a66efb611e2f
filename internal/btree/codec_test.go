package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodecLittleEndianReadWrite(t *testing.T) {
	b := make([]byte, 2)
	var v16 uint16 = 0x1234
	writeU16(b, v16)
	assert.Equal(t, []byte{0x34, 0x12}, b)
	assert.Equal(t, v16, readU16(b))

	b = make([]byte, 4)
	var v32 uint32 = 0x01020304
	writeU32(b, v32)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b)
	assert.Equal(t, v32, readU32(b))

	b = make([]byte, 8)
	var v64 uint64 = 0x0102030405060708
	writeU64(b, v64)
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, b)
	assert.Equal(t, v64, readU64(b))
}

func TestCodecAtOffset(t *testing.T) {
	buf := make([]byte, 16)
	writeU16At(buf, 0, 0x0A0B)
	writeU32At(buf, 2, 0x01020304)

	assert.Equal(t, uint16(0x0A0B), readU16At(buf, 0))
	assert.Equal(t, uint32(0x01020304), readU32At(buf, 2))
}
