package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/minidb/internal/storage"
)

func TestInternalViewRoundTrip(t *testing.T) {
	page := storage.NewPage()
	v := newInternalView(page, AttrInt)
	v.reset()

	keys := [][]byte{EncodeIntKey(10), EncodeIntKey(20)}
	ptrs := []storage.PageID{1, 2, 3}
	v.WriteKeysPointers(keys, ptrs)

	require.Equal(t, 2, v.Usage())
	gotKeys, gotPtrs := v.ReadKeysPointers()
	require.Equal(t, keys, gotKeys)
	require.Equal(t, ptrs, gotPtrs)
}

func TestChildIndexFor(t *testing.T) {
	keys := [][]byte{EncodeIntKey(10), EncodeIntKey(20), EncodeIntKey(30)}
	require.Equal(t, 0, childIndexFor(AttrInt, keys, EncodeIntKey(5)))
	require.Equal(t, 1, childIndexFor(AttrInt, keys, EncodeIntKey(10)))
	require.Equal(t, 3, childIndexFor(AttrInt, keys, EncodeIntKey(30)))
	require.Equal(t, 3, childIndexFor(AttrInt, keys, EncodeIntKey(100)))
}

func TestChildIndexForScan(t *testing.T) {
	keys := [][]byte{EncodeIntKey(10), EncodeIntKey(20), EncodeIntKey(30)}
	require.Equal(t, -1, childIndexForScan(AttrInt, keys, EncodeIntKey(5)))
	require.Equal(t, 0, childIndexForScan(AttrInt, keys, EncodeIntKey(10)))
	require.Equal(t, 2, childIndexForScan(AttrInt, keys, EncodeIntKey(30)))
	require.Equal(t, 2, childIndexForScan(AttrInt, keys, EncodeIntKey(100)))
}
