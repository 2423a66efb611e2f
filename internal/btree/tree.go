// Package btree implements the disk-resident B+-tree index: insertion with
// leaf/internal splits, deletion with redistribution and merging, range
// scans, and structural validation. Every node is a page read and written
// exclusively through a bufferpool.BufferManager — the tree never touches
// its page file directly (spec §1).
package btree

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/tuannm99/minidb/internal/bufferpool"
	"github.com/tuannm99/minidb/internal/heap"
	"github.com/tuannm99/minidb/internal/storage"
)

// Tree is a single B+-tree index over one relation's key column.
//
// It is single-threaded: one public call runs to completion before the
// next begins (spec §5). One scan may be active at a time.
type Tree struct {
	bm   *bufferpool.BufferManager
	file storage.PageFile

	relationName   string
	attrByteOffset int32
	attrType       AttrType

	rootPageNo storage.PageID
	height     int32 // 0 => root is a leaf

	scan   scanState
	closed bool
}

type scanState struct {
	active     bool
	curPage    storage.PageID
	curPageBuf *storage.Page
	nextEntry  int
	highVal    []byte
	highOp     Op
}

const metaPageNo storage.PageID = 1

// Open opens an existing index file "{relation}.{byteOffset}", or creates
// one if it doesn't exist yet. A freshly created index is seeded by
// draining scan (may be nil to build an empty index) — spec §4.2
// lifecycle.
func Open(
	fs afero.Fs,
	bm *bufferpool.BufferManager,
	relationName string,
	attrByteOffset int32,
	attrType AttrType,
	scan heap.FileScan,
) (*Tree, error) {
	name := fmt.Sprintf("%s.%d", relationName, attrByteOffset)

	if storage.Exists(fs, name) {
		file, err := storage.Open(fs, name, false)
		if err != nil {
			return nil, err
		}
		page, err := bm.ReadPage(file, metaPageNo)
		if err != nil {
			return nil, err
		}
		m := readIndexMeta(page)
		if err := bm.UnpinPage(file, metaPageNo, false); err != nil {
			return nil, err
		}
		slog.Debug("btree.Open.existing", "file", name, "root", m.rootPageNo, "height", m.height)
		return &Tree{
			bm:             bm,
			file:           file,
			relationName:   m.relationName,
			attrByteOffset: m.attrByteOffset,
			attrType:       m.attrType,
			rootPageNo:     m.rootPageNo,
			height:         m.height,
		}, nil
	}

	file, err := storage.Open(fs, name, true)
	if err != nil {
		return nil, err
	}

	metaNo, metaPage, err := bm.AllocPage(file)
	if err != nil {
		return nil, err
	}
	rootNo, rootPage, err := bm.AllocPage(file)
	if err != nil {
		return nil, err
	}
	newLeafView(rootPage, attrType).reset()
	if err := bm.UnpinPage(file, rootNo, true); err != nil {
		return nil, err
	}

	writeIndexMeta(metaPage, indexMeta{
		relationName:   relationName,
		attrByteOffset: attrByteOffset,
		attrType:       attrType,
		rootPageNo:     rootNo,
		height:         0,
	})
	if err := bm.UnpinPage(file, metaNo, true); err != nil {
		return nil, err
	}

	t := &Tree{
		bm:             bm,
		file:           file,
		relationName:   relationName,
		attrByteOffset: attrByteOffset,
		attrType:       attrType,
		rootPageNo:     rootNo,
		height:         0,
	}

	slog.Debug("btree.Open.created", "file", name, "root", rootNo)

	if scan != nil {
		n, dup, err := heap.SeedIndex(t, scan, func(record []byte) ([]byte, error) {
			return EncodeKeyFromRecord(attrType, record, attrByteOffset)
		})
		if err != nil {
			return nil, err
		}
		slog.Debug("btree.Open.seeded", "file", name, "records", n, "duplicates", dup)
	}

	return t, nil
}

// Close writes the metadata page, flushes the index file, and closes it.
// It never fails: incidental errors are combined and logged.
func (t *Tree) Close() {
	if t.closed {
		return
	}
	t.closed = true

	if t.scan.active {
		_ = t.EndScan()
	}

	var errs error
	if page, err := t.bm.ReadPage(t.file, metaPageNo); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		writeIndexMeta(page, indexMeta{
			relationName:   t.relationName,
			attrByteOffset: t.attrByteOffset,
			attrType:       t.attrType,
			rootPageNo:     t.rootPageNo,
			height:         t.height,
		})
		if err := t.bm.UnpinPage(t.file, metaPageNo, true); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if err := t.bm.FlushFile(t.file); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := t.file.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		slog.Error("btree.Close: incidental teardown errors, swallowed", "err", errs)
	}
}

// ---- Insertion (spec §4.2) ----

// splitResult is the copy-up/push-up pair a child returns to its parent
// when it split.
type splitResult struct {
	key  []byte
	page storage.PageID
}

func (t *Tree) Insert(key []byte, rid heap.RecordID) error {
	result, err := t.insertAt(t.rootPageNo, t.height, key, rid)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	newRootNo, newRootPage, err := t.bm.AllocPage(t.file)
	if err != nil {
		return err
	}
	newInternalView(newRootPage, t.attrType).WriteKeysPointers(
		[][]byte{result.key},
		[]storage.PageID{t.rootPageNo, result.page},
	)
	if err := t.bm.UnpinPage(t.file, newRootNo, true); err != nil {
		return err
	}

	slog.Debug("btree.Insert.newRoot", "oldRoot", t.rootPageNo, "newRoot", newRootNo, "height", t.height+1)
	t.rootPageNo = newRootNo
	t.height++
	return nil
}

func (t *Tree) insertAt(pageNo storage.PageID, level int32, key []byte, rid heap.RecordID) (*splitResult, error) {
	if level == 0 {
		return t.insertLeaf(pageNo, key, rid)
	}
	return t.insertInternal(pageNo, level, key, rid)
}

func (t *Tree) insertLeaf(pageNo storage.PageID, key []byte, rid heap.RecordID) (*splitResult, error) {
	page, err := t.bm.ReadPage(t.file, pageNo)
	if err != nil {
		return nil, err
	}
	lv := newLeafView(page, t.attrType)
	entries := lv.ReadEntries()

	pos := lowerBound(t.attrType, entries, key)
	merged := make([]leafEntry, 0, len(entries)+1)
	merged = append(merged, entries[:pos]...)
	merged = append(merged, leafEntry{rid: rid, key: key})
	merged = append(merged, entries[pos:]...)

	occ := leafOccupancy(t.attrType)
	if len(merged) < occ {
		lv.WriteEntries(merged)
		if err := t.bm.UnpinPage(t.file, pageNo, true); err != nil {
			return nil, err
		}
		return nil, nil
	}

	mid := occ / 2
	leftEntries := merged[:mid]
	rightEntries := append([]leafEntry{}, merged[mid:]...)

	newPageNo, newPage, err := t.bm.AllocPage(t.file)
	if err != nil {
		_ = t.bm.UnpinPage(t.file, pageNo, false)
		return nil, err
	}
	newLv := newLeafView(newPage, t.attrType)
	newLv.reset()
	newLv.WriteEntries(rightEntries)
	newLv.SetRightSib(lv.RightSib())

	lv.WriteEntries(leftEntries)
	lv.SetRightSib(newPageNo)

	if err := t.bm.UnpinPage(t.file, newPageNo, true); err != nil {
		_ = t.bm.UnpinPage(t.file, pageNo, true)
		return nil, err
	}
	if err := t.bm.UnpinPage(t.file, pageNo, true); err != nil {
		return nil, err
	}

	slog.Debug("btree.insertLeaf.split", "oldLeaf", pageNo, "newLeaf", newPageNo, "leftCount", len(leftEntries), "rightCount", len(rightEntries))
	return &splitResult{key: rightEntries[0].key, page: newPageNo}, nil
}

func (t *Tree) insertInternal(pageNo storage.PageID, level int32, key []byte, rid heap.RecordID) (*splitResult, error) {
	page, err := t.bm.ReadPage(t.file, pageNo)
	if err != nil {
		return nil, err
	}
	iv := newInternalView(page, t.attrType)
	keys, ptrs := iv.ReadKeysPointers()

	idx := childIndexFor(t.attrType, keys, key)
	childSplit, err := t.insertAt(ptrs[idx], level-1, key, rid)
	if err != nil {
		_ = t.bm.UnpinPage(t.file, pageNo, false)
		return nil, err
	}
	if childSplit == nil {
		_ = t.bm.UnpinPage(t.file, pageNo, false)
		return nil, nil
	}

	newKeys := make([][]byte, 0, len(keys)+1)
	newKeys = append(newKeys, keys[:idx]...)
	newKeys = append(newKeys, childSplit.key)
	newKeys = append(newKeys, keys[idx:]...)

	newPtrs := make([]storage.PageID, 0, len(ptrs)+1)
	newPtrs = append(newPtrs, ptrs[:idx+1]...)
	newPtrs = append(newPtrs, childSplit.page)
	newPtrs = append(newPtrs, ptrs[idx+1:]...)

	occ := nodeOccupancy(t.attrType)
	if len(newKeys) < occ {
		iv.WriteKeysPointers(newKeys, newPtrs)
		if err := t.bm.UnpinPage(t.file, pageNo, true); err != nil {
			return nil, err
		}
		return nil, nil
	}

	pushIdx := occ / 2
	pushKey := newKeys[pushIdx]

	leftKeys := newKeys[:pushIdx]
	leftPtrs := newPtrs[:pushIdx+1]

	rightKeys := append([][]byte{}, newKeys[pushIdx+1:]...)
	rightPtrs := append([]storage.PageID{}, newPtrs[pushIdx+1:]...)

	newNodeNo, newNodePage, err := t.bm.AllocPage(t.file)
	if err != nil {
		_ = t.bm.UnpinPage(t.file, pageNo, false)
		return nil, err
	}
	newInternalView(newNodePage, t.attrType).WriteKeysPointers(rightKeys, rightPtrs)
	iv.WriteKeysPointers(leftKeys, leftPtrs)

	if err := t.bm.UnpinPage(t.file, newNodeNo, true); err != nil {
		_ = t.bm.UnpinPage(t.file, pageNo, true)
		return nil, err
	}
	if err := t.bm.UnpinPage(t.file, pageNo, true); err != nil {
		return nil, err
	}

	slog.Debug("btree.insertInternal.split", "oldNode", pageNo, "newNode", newNodeNo, "pushKey", pushKey)
	return &splitResult{key: pushKey, page: newNodeNo}, nil
}

// ---- Deletion (spec §4.2) ----

func (t *Tree) Delete(key []byte, rid heap.RecordID) (bool, error) {
	var dispose []storage.PageID
	found, _, err := t.deleteAt(t.rootPageNo, t.height, key, rid, &dispose, true)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if t.height > 0 {
		page, err := t.bm.ReadPage(t.file, t.rootPageNo)
		if err != nil {
			return true, err
		}
		iv := newInternalView(page, t.attrType)
		if iv.Usage() == 0 {
			_, ptrs := iv.ReadKeysPointers()
			oldRoot := t.rootPageNo
			_ = t.bm.UnpinPage(t.file, t.rootPageNo, false)
			dispose = append(dispose, oldRoot)
			t.rootPageNo = ptrs[0]
			t.height--
			slog.Debug("btree.Delete.rootCollapse", "newRoot", t.rootPageNo, "height", t.height)
		} else {
			_ = t.bm.UnpinPage(t.file, t.rootPageNo, false)
		}
	}

	for _, p := range dispose {
		_ = t.bm.DisposePage(t.file, p)
	}
	return true, nil
}

func (t *Tree) deleteAt(
	pageNo storage.PageID,
	level int32,
	key []byte,
	rid heap.RecordID,
	dispose *[]storage.PageID,
	isRoot bool,
) (found bool, underfull bool, err error) {
	if level == 0 {
		return t.deleteLeaf(pageNo, key, rid, isRoot)
	}
	return t.deleteInternal(pageNo, level, key, rid, dispose, isRoot)
}

func (t *Tree) deleteLeaf(pageNo storage.PageID, key []byte, rid heap.RecordID, isRoot bool) (bool, bool, error) {
	page, err := t.bm.ReadPage(t.file, pageNo)
	if err != nil {
		return false, false, err
	}
	lv := newLeafView(page, t.attrType)
	entries := lv.ReadEntries()

	idx, ok := findLeafEntry(t.attrType, entries, key, rid)
	if !ok {
		_ = t.bm.UnpinPage(t.file, pageNo, false)
		return false, false, nil
	}

	remaining := make([]leafEntry, 0, len(entries)-1)
	remaining = append(remaining, entries[:idx]...)
	remaining = append(remaining, entries[idx+1:]...)
	lv.WriteEntries(remaining)

	underfull := !isRoot && len(remaining) < leafMinOccupancy(t.attrType)
	if err := t.bm.UnpinPage(t.file, pageNo, true); err != nil {
		return false, false, err
	}
	return true, underfull, nil
}

func (t *Tree) deleteInternal(
	pageNo storage.PageID,
	level int32,
	key []byte,
	rid heap.RecordID,
	dispose *[]storage.PageID,
	isRoot bool,
) (bool, bool, error) {
	page, err := t.bm.ReadPage(t.file, pageNo)
	if err != nil {
		return false, false, err
	}
	iv := newInternalView(page, t.attrType)
	keys, ptrs := iv.ReadKeysPointers()

	idx := childIndexFor(t.attrType, keys, key)
	found, childUnderfull, err := t.deleteAt(ptrs[idx], level-1, key, rid, dispose, false)
	if err != nil {
		_ = t.bm.UnpinPage(t.file, pageNo, false)
		return false, false, err
	}
	if !found {
		_ = t.bm.UnpinPage(t.file, pageNo, false)
		return false, false, nil
	}
	if !childUnderfull {
		_ = t.bm.UnpinPage(t.file, pageNo, false)
		return true, false, nil
	}

	siblingIdx, siblingIsLeft := pickSibling(idx)
	var leftIdx, rightIdx int
	if siblingIsLeft {
		leftIdx, rightIdx = siblingIdx, idx
	} else {
		leftIdx, rightIdx = idx, siblingIdx
	}
	leftPageNo, rightPageNo := ptrs[leftIdx], ptrs[rightIdx]
	sepIdx := leftIdx

	var merged bool
	if level-1 == 0 {
		merged, err = t.rebalanceLeaves(leftPageNo, rightPageNo, keys, sepIdx, dispose)
	} else {
		merged, err = t.rebalanceInternal(leftPageNo, rightPageNo, keys, sepIdx, dispose)
	}
	if err != nil {
		_ = t.bm.UnpinPage(t.file, pageNo, false)
		return false, false, err
	}

	if merged {
		keys = removeKeyAt(keys, sepIdx)
		ptrs = removePtrAt(ptrs, rightIdx)
	}
	iv.WriteKeysPointers(keys, ptrs)

	thisUnderfull := !isRoot && len(keys) < nodeMinOccupancy(t.attrType)
	if err := t.bm.UnpinPage(t.file, pageNo, true); err != nil {
		return false, false, err
	}
	return true, thisUnderfull, nil
}

func (t *Tree) rebalanceLeaves(leftPageNo, rightPageNo storage.PageID, parentKeys [][]byte, sepIdx int, dispose *[]storage.PageID) (bool, error) {
	leftPage, err := t.bm.ReadPage(t.file, leftPageNo)
	if err != nil {
		return false, err
	}
	rightPage, err := t.bm.ReadPage(t.file, rightPageNo)
	if err != nil {
		_ = t.bm.UnpinPage(t.file, leftPageNo, false)
		return false, err
	}
	leftLv := newLeafView(leftPage, t.attrType)
	rightLv := newLeafView(rightPage, t.attrType)
	leftEntries := leftLv.ReadEntries()
	rightEntries := rightLv.ReadEntries()
	minOcc := leafMinOccupancy(t.attrType)

	switch {
	case len(leftEntries) > minOcc:
		borrow := leftEntries[len(leftEntries)-1]
		leftEntries = leftEntries[:len(leftEntries)-1]
		rightEntries = append([]leafEntry{borrow}, rightEntries...)
		leftLv.WriteEntries(leftEntries)
		rightLv.WriteEntries(rightEntries)
		parentKeys[sepIdx] = rightEntries[0].key
		_ = t.bm.UnpinPage(t.file, leftPageNo, true)
		_ = t.bm.UnpinPage(t.file, rightPageNo, true)
		return false, nil

	case len(rightEntries) > minOcc:
		borrow := rightEntries[0]
		rightEntries = rightEntries[1:]
		leftEntries = append(leftEntries, borrow)
		leftLv.WriteEntries(leftEntries)
		rightLv.WriteEntries(rightEntries)
		parentKeys[sepIdx] = rightEntries[0].key
		_ = t.bm.UnpinPage(t.file, leftPageNo, true)
		_ = t.bm.UnpinPage(t.file, rightPageNo, true)
		return false, nil

	default:
		mergedEntries := append(leftEntries, rightEntries...)
		leftLv.WriteEntries(mergedEntries)
		leftLv.SetRightSib(rightLv.RightSib())
		*dispose = append(*dispose, rightPageNo)
		_ = t.bm.UnpinPage(t.file, leftPageNo, true)
		_ = t.bm.UnpinPage(t.file, rightPageNo, false)
		return true, nil
	}
}

func (t *Tree) rebalanceInternal(leftPageNo, rightPageNo storage.PageID, parentKeys [][]byte, sepIdx int, dispose *[]storage.PageID) (bool, error) {
	leftPage, err := t.bm.ReadPage(t.file, leftPageNo)
	if err != nil {
		return false, err
	}
	rightPage, err := t.bm.ReadPage(t.file, rightPageNo)
	if err != nil {
		_ = t.bm.UnpinPage(t.file, leftPageNo, false)
		return false, err
	}
	leftIv := newInternalView(leftPage, t.attrType)
	rightIv := newInternalView(rightPage, t.attrType)
	leftKeys, leftPtrs := leftIv.ReadKeysPointers()
	rightKeys, rightPtrs := rightIv.ReadKeysPointers()
	minOcc := nodeMinOccupancy(t.attrType)
	sepKey := parentKeys[sepIdx]

	switch {
	case len(leftKeys) > minOcc:
		borrowKey := leftKeys[len(leftKeys)-1]
		borrowPtr := leftPtrs[len(leftPtrs)-1]
		leftKeys = leftKeys[:len(leftKeys)-1]
		leftPtrs = leftPtrs[:len(leftPtrs)-1]
		rightKeys = append([][]byte{sepKey}, rightKeys...)
		rightPtrs = append([]storage.PageID{borrowPtr}, rightPtrs...)
		leftIv.WriteKeysPointers(leftKeys, leftPtrs)
		rightIv.WriteKeysPointers(rightKeys, rightPtrs)
		parentKeys[sepIdx] = borrowKey
		_ = t.bm.UnpinPage(t.file, leftPageNo, true)
		_ = t.bm.UnpinPage(t.file, rightPageNo, true)
		return false, nil

	case len(rightKeys) > minOcc:
		borrowKey := rightKeys[0]
		borrowPtr := rightPtrs[0]
		rightKeys = rightKeys[1:]
		rightPtrs = rightPtrs[1:]
		leftKeys = append(leftKeys, sepKey)
		leftPtrs = append(leftPtrs, borrowPtr)
		leftIv.WriteKeysPointers(leftKeys, leftPtrs)
		rightIv.WriteKeysPointers(rightKeys, rightPtrs)
		parentKeys[sepIdx] = borrowKey
		_ = t.bm.UnpinPage(t.file, leftPageNo, true)
		_ = t.bm.UnpinPage(t.file, rightPageNo, true)
		return false, nil

	default:
		mergedKeys := append(append(leftKeys, sepKey), rightKeys...)
		mergedPtrs := append(leftPtrs, rightPtrs...)
		leftIv.WriteKeysPointers(mergedKeys, mergedPtrs)
		*dispose = append(*dispose, rightPageNo)
		_ = t.bm.UnpinPage(t.file, leftPageNo, true)
		_ = t.bm.UnpinPage(t.file, rightPageNo, false)
		return true, nil
	}
}

func pickSibling(idx int) (siblingIdx int, isLeft bool) {
	if idx > 0 {
		return idx - 1, true
	}
	return idx + 1, false
}

func removeKeyAt(keys [][]byte, i int) [][]byte { return append(keys[:i], keys[i+1:]...) }

func removePtrAt(ptrs []storage.PageID, i int) []storage.PageID { return append(ptrs[:i], ptrs[i+1:]...) }

func findLeafEntry(t AttrType, entries []leafEntry, key []byte, rid heap.RecordID) (int, bool) {
	pos := lowerBound(t, entries, key)
	for i := pos; i < len(entries); i++ {
		if CompareKeys(t, entries[i].key, key) != 0 {
			break
		}
		if entries[i].rid == rid {
			return i, true
		}
	}
	return -1, false
}

// ---- Range scan (spec §4.2, state machine) ----

func (t *Tree) StartScan(lowVal []byte, lowOp Op, highVal []byte, highOp Op) error {
	if (lowOp != GT && lowOp != GTE) || (highOp != LT && highOp != LTE) {
		return ErrBadOpcodes
	}
	if CompareKeys(t.attrType, highVal, lowVal) < 0 {
		return ErrBadScanrange
	}
	if t.scan.active {
		_ = t.EndScan()
	}

	pageNo := t.rootPageNo
	for level := t.height; level > 0; level-- {
		page, err := t.bm.ReadPage(t.file, pageNo)
		if err != nil {
			return err
		}
		keys, ptrs := newInternalView(page, t.attrType).ReadKeysPointers()
		i := childIndexForScan(t.attrType, keys, lowVal)
		child := ptrs[i+1]
		if err := t.bm.UnpinPage(t.file, pageNo, false); err != nil {
			return err
		}
		pageNo = child
	}

	cur := pageNo
	for {
		page, err := t.bm.ReadPage(t.file, cur)
		if err != nil {
			return err
		}
		lv := newLeafView(page, t.attrType)
		entries := lv.ReadEntries()
		idx := lowerBound(t.attrType, entries, lowVal)
		for idx < len(entries) && lowOp == GT && CompareKeys(t.attrType, entries[idx].key, lowVal) == 0 {
			idx++
		}

		if idx < len(entries) {
			t.scan = scanState{active: true, curPage: cur, curPageBuf: page, nextEntry: idx, highVal: highVal, highOp: highOp}
			return nil
		}

		next := lv.RightSib()
		if err := t.bm.UnpinPage(t.file, cur, false); err != nil {
			return err
		}
		if next == storage.NullPage {
			t.scan = scanState{active: true, curPage: storage.NullPage, highVal: highVal, highOp: highOp}
			return nil
		}
		cur = next
	}
}

func (t *Tree) ScanNext() (heap.RecordID, error) {
	if !t.scan.active {
		return heap.RecordID{}, ErrScanNotInitialized
	}
	if t.scan.curPage == storage.NullPage {
		return heap.RecordID{}, ErrIndexScanCompleted
	}

	lv := newLeafView(t.scan.curPageBuf, t.attrType)
	entries := lv.ReadEntries()
	entry := entries[t.scan.nextEntry]

	cmp := CompareKeys(t.attrType, entry.key, t.scan.highVal)
	passes := (t.scan.highOp == LTE && cmp <= 0) || (t.scan.highOp == LT && cmp < 0)
	if !passes {
		return heap.RecordID{}, ErrIndexScanCompleted
	}

	result := entry.rid
	t.scan.nextEntry++
	if t.scan.nextEntry >= len(entries) {
		next := lv.RightSib()
		cur := t.scan.curPage
		if err := t.bm.UnpinPage(t.file, cur, false); err != nil {
			t.scan.active = false
			return heap.RecordID{}, err
		}
		if next == storage.NullPage {
			t.scan.curPage = storage.NullPage
			t.scan.curPageBuf = nil
		} else {
			page, err := t.bm.ReadPage(t.file, next)
			if err != nil {
				t.scan.active = false
				return heap.RecordID{}, err
			}
			t.scan.curPage = next
			t.scan.curPageBuf = page
			t.scan.nextEntry = 0
		}
	}
	return result, nil
}

func (t *Tree) EndScan() error {
	if !t.scan.active {
		return ErrScanNotInitialized
	}
	if t.scan.curPage != storage.NullPage {
		_ = t.bm.UnpinPage(t.file, t.scan.curPage, false)
	}
	t.scan = scanState{}
	return nil
}

// ---- Validation (spec §8, plus a supplemented right-sibling-chain
// cross-check) ----

func (t *Tree) Validate() bool {
	var leafPages []storage.PageID
	var leafEntryCounts []int
	_, _, err := t.validateSubtree(t.rootPageNo, t.height, true, nil, nil, false, false, &leafPages, &leafEntryCounts)
	if err != nil {
		slog.Debug("btree.Validate.failed", "err", err)
		return false
	}

	if len(leafPages) == 0 {
		return true
	}

	total := 0
	for _, c := range leafEntryCounts {
		total += c
	}

	walked := 0
	chainTotal := 0
	cur := leafPages[0]
	for cur != storage.NullPage {
		page, err := t.bm.ReadPage(t.file, cur)
		if err != nil {
			return false
		}
		lv := newLeafView(page, t.attrType)
		chainTotal += lv.Usage()
		next := lv.RightSib()
		_ = t.bm.UnpinPage(t.file, cur, false)
		walked++
		if walked > len(leafPages)*2+1 {
			return false // chain does not terminate as expected: likely a cycle
		}
		cur = next
	}

	if walked != len(leafPages) || chainTotal != total {
		return false
	}
	return true
}

func (t *Tree) validateSubtree(
	pageNo storage.PageID,
	level int32,
	isRoot bool,
	lo, hi []byte,
	hasLo, hasHi bool,
	leafPages *[]storage.PageID,
	leafEntryCounts *[]int,
) (minKey, maxKey []byte, err error) {
	if level == 0 {
		page, err := t.bm.ReadPage(t.file, pageNo)
		if err != nil {
			return nil, nil, err
		}
		entries := newLeafView(page, t.attrType).ReadEntries()
		if err := t.bm.UnpinPage(t.file, pageNo, false); err != nil {
			return nil, nil, err
		}

		if !isRoot {
			n := len(entries)
			if n < leafMinOccupancy(t.attrType) || n > leafOccupancy(t.attrType) {
				return nil, nil, fmt.Errorf("%w: leaf %d usage %d out of range", ErrValidationFailed, pageNo, n)
			}
		}
		for i := 1; i < len(entries); i++ {
			if CompareKeys(t.attrType, entries[i-1].key, entries[i].key) > 0 {
				return nil, nil, fmt.Errorf("%w: leaf %d keys not sorted", ErrValidationFailed, pageNo)
			}
		}
		if len(entries) > 0 {
			if hasLo && CompareKeys(t.attrType, entries[0].key, lo) < 0 {
				return nil, nil, fmt.Errorf("%w: leaf %d key below lower bound", ErrValidationFailed, pageNo)
			}
			if hasHi && CompareKeys(t.attrType, entries[len(entries)-1].key, hi) >= 0 {
				return nil, nil, fmt.Errorf("%w: leaf %d key at/above upper bound", ErrValidationFailed, pageNo)
			}
		}

		*leafPages = append(*leafPages, pageNo)
		*leafEntryCounts = append(*leafEntryCounts, len(entries))
		if len(entries) == 0 {
			return nil, nil, nil
		}
		return entries[0].key, entries[len(entries)-1].key, nil
	}

	page, err := t.bm.ReadPage(t.file, pageNo)
	if err != nil {
		return nil, nil, err
	}
	keys, ptrs := newInternalView(page, t.attrType).ReadKeysPointers()
	if err := t.bm.UnpinPage(t.file, pageNo, false); err != nil {
		return nil, nil, err
	}

	if !isRoot {
		n := len(keys)
		if n < nodeMinOccupancy(t.attrType) || n > nodeOccupancy(t.attrType) {
			return nil, nil, fmt.Errorf("%w: internal %d usage %d out of range", ErrValidationFailed, pageNo, n)
		}
	}
	for i := 1; i < len(keys); i++ {
		if CompareKeys(t.attrType, keys[i-1], keys[i]) >= 0 {
			return nil, nil, fmt.Errorf("%w: internal %d keys not strictly increasing", ErrValidationFailed, pageNo)
		}
	}

	var overallMin, overallMax []byte
	for i, child := range ptrs {
		childLo, hasChildLo := lo, hasLo
		childHi, hasChildHi := hi, hasHi
		if i > 0 {
			childLo, hasChildLo = keys[i-1], true
		}
		if i < len(keys) {
			childHi, hasChildHi = keys[i], true
		}
		cmin, cmax, err := t.validateSubtree(child, level-1, false, childLo, childHi, hasChildLo, hasChildHi, leafPages, leafEntryCounts)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			overallMin = cmin
		}
		if cmax != nil {
			overallMax = cmax
		}
	}
	return overallMin, overallMax, nil
}
