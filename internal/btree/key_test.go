package btree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareKeysInt(t *testing.T) {
	require.Equal(t, 0, CompareKeys(AttrInt, EncodeIntKey(5), EncodeIntKey(5)))
	require.Less(t, CompareKeys(AttrInt, EncodeIntKey(-1), EncodeIntKey(5)), 0)
	require.Greater(t, CompareKeys(AttrInt, EncodeIntKey(10), EncodeIntKey(5)), 0)
}

func TestCompareKeysDoubleEpsilon(t *testing.T) {
	a := EncodeDoubleKey(1.0)
	b := EncodeDoubleKey(1.0 + 1e-7)
	require.Equal(t, 0, CompareKeys(AttrDouble, a, b), "within epsilon should compare equal")

	c := EncodeDoubleKey(1.1)
	require.Less(t, CompareKeys(AttrDouble, a, c), 0)
}

func TestCompareKeysString(t *testing.T) {
	require.Less(t, CompareKeys(AttrString, EncodeStringKey("abc"), EncodeStringKey("abd")), 0)
	require.Equal(t, 0, CompareKeys(AttrString, EncodeStringKey("abc"), EncodeStringKey("abc")))
}

func TestEncodeStringKeyPadsAndTruncates(t *testing.T) {
	k := EncodeStringKey("hi")
	require.Len(t, k, stringKeySize)
	require.Equal(t, "hi", DecodeStringKey(k))

	k2 := EncodeStringKey("a very long string well past ten bytes")
	require.Len(t, k2, stringKeySize)
}

func TestEncodeKeyFromRecordOutOfBounds(t *testing.T) {
	_, err := EncodeKeyFromRecord(AttrInt, []byte{1, 2}, 0)
	require.Error(t, err)
}

func TestEncodeKeyFromRecordReadsOffset(t *testing.T) {
	record := append([]byte{0xFF, 0xFF}, EncodeIntKey(42)...)
	key, err := EncodeKeyFromRecord(AttrInt, record, 2)
	require.NoError(t, err)
	require.Equal(t, int32(42), DecodeIntKey(key))
}
