package btree

import (
	"github.com/tuannm99/minidb/internal/storage"
)

// internalView interprets a page's bytes as an internal node: a usage
// count of `usage` keys with `usage+1` page pointers, where pointer i is
// to the left of key i for i < usage, and pointer usage is the rightmost
// (spec §3).
type internalView struct {
	data []byte
	t    AttrType
}

func newInternalView(page *storage.Page, t AttrType) internalView {
	return internalView{data: page.Data, t: t}
}

const internalPairsOffset = int32Size

func (v internalView) pairSize() int { return pageIDSize + KeySize(v.t) }

func (v internalView) Usage() int { return int(int32(readU32(v.data[0:4]))) }

func (v internalView) pairOffset(i int) int { return internalPairsOffset + i*v.pairSize() }

func (v internalView) reset() { writeU32(v.data[0:4], 0) }

// ReadKeysPointers decodes the `usage` keys and `usage+1` pointers stored
// on the page.
func (v internalView) ReadKeysPointers() ([][]byte, []storage.PageID) {
	usage := v.Usage()
	keys := make([][]byte, usage)
	ptrs := make([]storage.PageID, usage+1)
	for i := 0; i <= usage; i++ {
		off := v.pairOffset(i)
		ptrs[i] = readU32At(v.data, off)
		if i < usage {
			key := make([]byte, KeySize(v.t))
			copy(key, v.data[off+pageIDSize:off+pageIDSize+KeySize(v.t)])
			keys[i] = key
		}
	}
	return keys, ptrs
}

// WriteKeysPointers installs len(keys) keys and len(ptrs) pointers
// (len(ptrs) must be len(keys)+1) and sets usage accordingly. The caller
// ensures len(keys) does not exceed nodeOccupancy(t).
func (v internalView) WriteKeysPointers(keys [][]byte, ptrs []storage.PageID) {
	usage := len(keys)
	for i, p := range ptrs {
		off := v.pairOffset(i)
		writeU32At(v.data, off, p)
		if i < usage {
			copy(v.data[off+pageIDSize:off+pageIDSize+KeySize(v.t)], keys[i])
		}
	}
	writeU32(v.data[0:4], uint32(usage))
}

// childIndexFor returns the pointer index to descend into for key: the
// first key index i such that key < keys[i], else len(keys) (spec §4.2
// insertion step 1).
func childIndexFor(t AttrType, keys [][]byte, key []byte) int {
	for i, k := range keys {
		if CompareKeys(t, key, k) < 0 {
			return i
		}
	}
	return len(keys)
}

// childIndexForScan returns the largest key index i with keys[i] <= lowVal,
// or -1 if none (spec §4.2 range-scan descent rule). The scan then
// descends via ptrs[i+1].
func childIndexForScan(t AttrType, keys [][]byte, lowVal []byte) int {
	for i := len(keys) - 1; i >= 0; i-- {
		if CompareKeys(t, keys[i], lowVal) <= 0 {
			return i
		}
	}
	return -1
}

