package btree

import (
	"fmt"
	"math"
)

// AttrType tags the datatype of the key an index was built over. It is
// persisted verbatim in the metadata page (spec §6).
type AttrType int32

const (
	AttrInt    AttrType = 0
	AttrDouble AttrType = 1
	AttrString AttrType = 2
)

func (t AttrType) String() string {
	switch t {
	case AttrInt:
		return "INTEGER"
	case AttrDouble:
		return "DOUBLE"
	case AttrString:
		return "STRING"
	default:
		return fmt.Sprintf("AttrType(%d)", int32(t))
	}
}

// stringKeySize is the fixed width of a STRING key, truncated/padded with
// trailing nulls (spec §3).
const stringKeySize = 10

// doubleEpsilon is the equality threshold baked into DOUBLE comparisons.
// Kept without further justification (spec §9 open question: intentional
// vs. artifact, behavior is kept either way).
const doubleEpsilon = 1e-5

// KeySize returns the on-page byte width of a key of the given type.
func KeySize(t AttrType) int {
	switch t {
	case AttrInt:
		return 4
	case AttrDouble:
		return 8
	case AttrString:
		return stringKeySize
	default:
		return 0
	}
}

// CompareKeys orders two encoded keys of the given type. It returns <0, 0,
// or >0 the way bytes.Compare does.
func CompareKeys(t AttrType, a, b []byte) int {
	switch t {
	case AttrInt:
		ai, bi := int32(readU32(a)), int32(readU32(b))
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	case AttrDouble:
		af := math.Float64frombits(readU64(a))
		bf := math.Float64frombits(readU64(b))
		if math.Abs(af-bf) < doubleEpsilon {
			return 0
		}
		if af < bf {
			return -1
		}
		return 1
	case AttrString:
		as := decodeFixedString(a)
		bs := decodeFixedString(b)
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

// EncodeIntKey encodes a signed 32-bit integer key.
func EncodeIntKey(v int32) []byte {
	buf := make([]byte, 4)
	writeU32(buf, uint32(v))
	return buf
}

// DecodeIntKey decodes a signed 32-bit integer key.
func DecodeIntKey(b []byte) int32 { return int32(readU32(b)) }

// EncodeDoubleKey encodes a float64 key.
func EncodeDoubleKey(v float64) []byte {
	buf := make([]byte, 8)
	writeU64(buf, math.Float64bits(v))
	return buf
}

// DecodeDoubleKey decodes a float64 key.
func DecodeDoubleKey(b []byte) float64 { return math.Float64frombits(readU64(b)) }

// EncodeStringKey truncates/pads s to exactly stringKeySize bytes, null
// padded.
func EncodeStringKey(s string) []byte {
	buf := make([]byte, stringKeySize)
	copy(buf, s)
	return buf
}

// DecodeStringKey decodes a fixed-width string key, trimming trailing
// nulls.
func DecodeStringKey(b []byte) string { return decodeFixedString(b) }

func decodeFixedString(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// EncodeKeyFromRecord reads raw bytes straight out of a record buffer at
// offset, for the given type, without re-encoding — used when seeding an
// index from a relation (spec §4.2: "reads the key from record + offset").
func EncodeKeyFromRecord(t AttrType, record []byte, offset int32) ([]byte, error) {
	size := KeySize(t)
	start := int(offset)
	if start < 0 || start+size > len(record) {
		return nil, fmt.Errorf("btree: key offset %d (size %d) out of bounds for record of length %d", offset, size, len(record))
	}
	out := make([]byte, size)
	copy(out, record[start:start+size])
	return out, nil
}
