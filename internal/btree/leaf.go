package btree

import (
	"github.com/tuannm99/minidb/internal/heap"
	"github.com/tuannm99/minidb/internal/storage"
)

// leafEntry is an in-memory (RecordID, Key) pair, the unit a leaf node
// stores sorted ascending by key (spec §3).
type leafEntry struct {
	rid heap.RecordID
	key []byte
}

// leafView interprets a page's bytes as a leaf node: a usage count, a
// sorted array of (RecordID, Key) entries, and a right-sibling page
// number.
type leafView struct {
	data []byte
	t    AttrType
}

func newLeafView(page *storage.Page, t AttrType) leafView {
	return leafView{data: page.Data, t: t}
}

const leafEntriesOffset = int32Size

func (v leafView) entrySize() int { return recordIDSize + KeySize(v.t) }

func (v leafView) rightSibOffset() int { return storage.PageSize - pageIDSize }

func (v leafView) Usage() int { return int(int32(readU32(v.data[0:4]))) }

func (v leafView) RightSib() storage.PageID { return readU32At(v.data, v.rightSibOffset()) }

func (v leafView) SetRightSib(p storage.PageID) { writeU32At(v.data, v.rightSibOffset(), p) }

func (v leafView) entryOffset(i int) int { return leafEntriesOffset + i*v.entrySize() }

// ReadEntries decodes all Usage() entries in on-page order (already sorted
// ascending by key).
func (v leafView) ReadEntries() []leafEntry {
	usage := v.Usage()
	out := make([]leafEntry, usage)
	for i := 0; i < usage; i++ {
		off := v.entryOffset(i)
		rid := heap.RecordID{
			PageNo: readU32At(v.data, off),
			Slot:   readU16At(v.data, off+4),
		}
		key := make([]byte, KeySize(v.t))
		copy(key, v.data[off+recordIDSize:off+recordIDSize+KeySize(v.t)])
		out[i] = leafEntry{rid: rid, key: key}
	}
	return out
}

// WriteEntries installs entries (already sorted ascending by key) and sets
// usage accordingly. The caller is responsible for ensuring len(entries)
// does not exceed leafOccupancy(t).
func (v leafView) WriteEntries(entries []leafEntry) {
	for i, e := range entries {
		off := v.entryOffset(i)
		writeU32At(v.data, off, e.rid.PageNo)
		writeU16At(v.data, off+4, e.rid.Slot)
		copy(v.data[off+recordIDSize:off+recordIDSize+KeySize(v.t)], e.key)
	}
	writeU32(v.data[0:4], uint32(len(entries)))
}

// reset clears a leaf back to an empty, sibling-less state.
func (v leafView) reset() {
	writeU32(v.data[0:4], 0)
	v.SetRightSib(storage.NullPage)
}

// lowerBound returns the first index i in entries such that entries[i].key
// is not less than key (binary search over the sorted slice).
func lowerBound(t AttrType, entries []leafEntry, key []byte) int {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if CompareKeys(t, entries[mid].key, key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
