package btree

import (
	"math/rand"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/minidb/internal/bufferpool"
	"github.com/tuannm99/minidb/internal/heap"
)

func newTestTree(t *testing.T, poolSize int) (*Tree, *bufferpool.BufferManager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	bm := bufferpool.NewBufferManager(poolSize)
	tree, err := Open(fs, bm, "rel", 0, AttrInt, nil)
	require.NoError(t, err)
	return tree, bm, fs
}

func rid(i int) heap.RecordID {
	return heap.RecordID{PageNo: uint32(i), Slot: uint16(i)}
}

func insertRange(t *testing.T, tree *Tree, order []int) {
	t.Helper()
	for _, i := range order {
		require.NoError(t, tree.Insert(EncodeIntKey(int32(i)), rid(i)))
	}
}

func drainScan(t *testing.T, tree *Tree, lo int, loOp Op, hi int, hiOp Op) []heap.RecordID {
	t.Helper()
	require.NoError(t, tree.StartScan(EncodeIntKey(int32(lo)), loOp, EncodeIntKey(int32(hi)), hiOp))
	var out []heap.RecordID
	for {
		r, err := tree.ScanNext()
		if err == ErrIndexScanCompleted {
			break
		}
		require.NoError(t, err)
		out = append(out, r)
	}
	require.NoError(t, tree.EndScan())
	return out
}

func TestForwardInsertScanInclusive(t *testing.T) {
	tree, _, _ := newTestTree(t, 64)
	insertRange(t, tree, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	got := drainScan(t, tree, 3, GTE, 7, LTE)
	require.Equal(t, []heap.RecordID{rid(3), rid(4), rid(5), rid(6), rid(7)}, got)
}

func TestReverseInsertScanInclusive(t *testing.T) {
	tree, _, _ := newTestTree(t, 64)
	order := []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	insertRange(t, tree, order)

	got := drainScan(t, tree, 3, GTE, 7, LTE)
	require.Equal(t, []heap.RecordID{rid(3), rid(4), rid(5), rid(6), rid(7)}, got)
}

func TestScanExcludingEndpoints(t *testing.T) {
	tree, _, _ := newTestTree(t, 64)
	insertRange(t, tree, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	got := drainScan(t, tree, 3, GT, 7, LT)
	require.Equal(t, []heap.RecordID{rid(4), rid(5), rid(6)}, got)
}

func TestDeleteAllInRandomOrderEmptiesTree(t *testing.T) {
	tree, bm, _ := newTestTree(t, 64)

	order := make([]int, 100)
	for i := range order {
		order[i] = i
	}
	insertRange(t, tree, order)

	perm := rand.New(rand.NewSource(42)).Perm(len(order))
	for _, i := range perm {
		found, err := tree.Delete(EncodeIntKey(int32(i)), rid(i))
		require.NoError(t, err)
		require.True(t, found)
	}

	require.Equal(t, int32(0), tree.height)
	page, err := bm.ReadPage(tree.file, tree.rootPageNo)
	require.NoError(t, err)
	require.Equal(t, 0, newLeafView(page, AttrInt).Usage())
	require.NoError(t, bm.UnpinPage(tree.file, tree.rootPageNo, false))
	require.True(t, tree.Validate())
}

func TestScanBoundsErrorsWhenHighBelowLow(t *testing.T) {
	tree, _, _ := newTestTree(t, 64)
	insertRange(t, tree, []int{1, 2, 3})

	err := tree.StartScan(EncodeIntKey(5), GTE, EncodeIntKey(3), LTE)
	require.ErrorIs(t, err, ErrBadScanrange)
}

func TestScanBadOpcodesRejected(t *testing.T) {
	tree, _, _ := newTestTree(t, 64)
	err := tree.StartScan(EncodeIntKey(1), LT, EncodeIntKey(3), LTE)
	require.ErrorIs(t, err, ErrBadOpcodes)
}

func TestEmptyTreeScanCompletesImmediately(t *testing.T) {
	tree, _, _ := newTestTree(t, 64)
	require.NoError(t, tree.StartScan(EncodeIntKey(0), GTE, EncodeIntKey(100), LTE))
	_, err := tree.ScanNext()
	require.ErrorIs(t, err, ErrIndexScanCompleted)
}

func TestSingleEntryDeleteEmptiesLeaf(t *testing.T) {
	tree, _, _ := newTestTree(t, 64)
	require.NoError(t, tree.Insert(EncodeIntKey(1), rid(1)))

	found, err := tree.Delete(EncodeIntKey(1), rid(1))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int32(0), tree.height)

	got := drainScan(t, tree, 0, GTE, 100, LTE)
	require.Empty(t, got)
}

func TestDeleteKeyNotFoundLeavesTreeUnchanged(t *testing.T) {
	tree, _, _ := newTestTree(t, 64)
	insertRange(t, tree, []int{1, 2, 3})

	found, err := tree.Delete(EncodeIntKey(99), rid(99))
	require.NoError(t, err)
	require.False(t, found)

	got := drainScan(t, tree, 0, GTE, 10, LTE)
	require.Equal(t, []heap.RecordID{rid(1), rid(2), rid(3)}, got)
}

func TestPinDisciplineAfterFlushAndReopen(t *testing.T) {
	fs := afero.NewMemMapFs()
	bm := bufferpool.NewBufferManager(32)
	tree, err := Open(fs, bm, "rel", 0, AttrInt, nil)
	require.NoError(t, err)

	order := make([]int, 1000)
	for i := range order {
		order[i] = i
	}
	insertRange(t, tree, order)
	tree.Close()

	reopened, err := Open(fs, bm, "rel", 0, AttrInt, nil)
	require.NoError(t, err)
	got := drainScan(t, reopened, 0, GTE, 999, LTE)
	require.Len(t, got, 1000)
	reopened.Close()
}

func TestValidateDetectsHealthyTree(t *testing.T) {
	tree, _, _ := newTestTree(t, 64)
	order := make([]int, 500)
	for i := range order {
		order[i] = i
	}
	insertRange(t, tree, order)
	require.True(t, tree.Validate())
}

func TestSeedIndexFromFileScan(t *testing.T) {
	fs := afero.NewMemMapFs()
	bm := bufferpool.NewBufferManager(32)

	records := make([]heap.Record, 20)
	for i := range records {
		buf := EncodeIntKey(int32(i))
		records[i] = heap.Record{Bytes: buf, RID: rid(i)}
	}
	scan := heap.NewSliceFileScan(records)

	tree, err := Open(fs, bm, "seeded", 0, AttrInt, scan)
	require.NoError(t, err)

	got := drainScan(t, tree, 0, GTE, 19, LTE)
	require.Len(t, got, 20)
	tree.Close()
}
