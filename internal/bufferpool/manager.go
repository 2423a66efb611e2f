// Package bufferpool implements the buffer manager: a fixed-size pool of
// page frames backed by clock (second-chance) replacement, mediating every
// read, write, allocation and disposal the btree package performs against a
// storage.PageFile (spec §4.1).
package bufferpool

import (
	"log/slog"
	"strconv"

	"go.uber.org/multierr"

	"github.com/tuannm99/minidb/internal/storage"
)

// BufferManager orchestrates the page hash table and frame descriptor
// table over a fixed-size array of page-sized frames (spec C2-C4).
//
// It is single-threaded: one public call runs to completion before the
// next begins, matching spec §5's scheduling model. There is no internal
// locking.
type BufferManager struct {
	frames   []*frame
	table    *pageHashTable
	replacer *clockReplacer
	deployed int // number of frames ever used (frames deployed..len(frames) have never held a page)
}

// NewBufferManager creates a buffer pool with the given number of frames.
func NewBufferManager(poolSize int) *BufferManager {
	if poolSize < 1 {
		poolSize = 1
	}
	frames := make([]*frame, poolSize)
	for i := range frames {
		frames[i] = newFrame()
	}
	return &BufferManager{
		frames:   frames,
		table:    newPageHashTable(poolSize),
		replacer: newClockReplacer(poolSize),
	}
}

// PoolSize returns the number of frames in the pool.
func (b *BufferManager) PoolSize() int { return len(b.frames) }

// ReadPage returns a pinned reference to (file, pageNo), loading it from
// the page file on a pool miss.
func (b *BufferManager) ReadPage(file storage.PageFile, pageNo storage.PageID) (*storage.Page, error) {
	key := pageKey{file: file, pageNo: pageNo}

	if idx, ok := b.table.lookup(key); ok {
		f := b.frames[idx]
		f.refbit = true
		f.pinCount++
		b.replacer.recordAccess(idx)
		b.replacer.setEvictable(idx, false)
		slog.Debug("bufferpool.ReadPage.hit", "pageNo", pageNo, "frame", idx, "pin", f.pinCount)
		return &storage.Page{Data: f.buf}, nil
	}

	idx, err := b.allocBuf()
	if err != nil {
		return nil, err
	}

	data, err := file.ReadPage(pageNo)
	if err != nil {
		return nil, err
	}

	f := b.frames[idx]
	copy(f.buf, data)
	f.file = file
	f.pageNo = pageNo
	f.valid = true
	f.dirty = false
	f.refbit = true
	f.pinCount = 1

	b.table.insert(key, idx)
	b.replacer.recordAccess(idx)
	b.replacer.setEvictable(idx, false)

	slog.Debug("bufferpool.ReadPage.miss", "pageNo", pageNo, "frame", idx)
	return &storage.Page{Data: f.buf}, nil
}

// UnpinPage decrements the pin count of (file, pageNo), marking it dirty
// when dirty is true. The dirty bit is sticky: it is never cleared by an
// unpin, only by a successful writeback.
func (b *BufferManager) UnpinPage(file storage.PageFile, pageNo storage.PageID, dirty bool) error {
	key := pageKey{file: file, pageNo: pageNo}
	idx, ok := b.table.lookup(key)
	if !ok {
		return nil
	}
	f := b.frames[idx]
	if !f.valid {
		return nil
	}
	if f.pinCount == 0 {
		return ErrPageNotPinned
	}
	if dirty {
		f.dirty = true
	}
	f.pinCount--
	if f.pinCount == 0 {
		b.replacer.setEvictable(idx, true)
	}
	slog.Debug("bufferpool.UnpinPage", "pageNo", pageNo, "frame", idx, "pin", f.pinCount, "dirty", f.dirty)
	return nil
}

// AllocPage asks the page file for a fresh page, installs it in the pool
// pinned, and returns its number and buffer.
func (b *BufferManager) AllocPage(file storage.PageFile) (storage.PageID, *storage.Page, error) {
	pageNo, data, err := file.AllocatePage()
	if err != nil {
		return 0, nil, err
	}

	idx, err := b.allocBuf()
	if err != nil {
		return 0, nil, err
	}

	f := b.frames[idx]
	copy(f.buf, data)
	f.file = file
	f.pageNo = pageNo
	f.valid = true
	f.dirty = false
	f.refbit = true
	f.pinCount = 1

	key := pageKey{file: file, pageNo: pageNo}
	b.table.insert(key, idx)
	b.replacer.recordAccess(idx)
	b.replacer.setEvictable(idx, false)

	slog.Debug("bufferpool.AllocPage", "pageNo", pageNo, "frame", idx)
	return pageNo, &storage.Page{Data: f.buf}, nil
}

// DisposePage removes (file, pageNo) from the pool if present and asks the
// page file to delete it. A page file that silently refuses to truly free
// the page (spec §9) is tolerated: the error is swallowed.
func (b *BufferManager) DisposePage(file storage.PageFile, pageNo storage.PageID) error {
	key := pageKey{file: file, pageNo: pageNo}
	if idx, ok := b.table.lookup(key); ok {
		b.replacer.untrack(idx)
		b.frames[idx].reset()
		b.table.remove(key)
	}
	if err := file.DeletePage(pageNo); err != nil {
		slog.Debug("bufferpool.DisposePage: page file refused delete, ignoring", "pageNo", pageNo, "err", err)
	}
	return nil
}

// FlushFile writes back every dirty frame owned by file, then clears its
// frames from the pool. It fails if any page of the file is still pinned.
func (b *BufferManager) FlushFile(file storage.PageFile) error {
	for idx, f := range b.frames {
		if f.file != file {
			continue
		}
		if !f.valid {
			return ErrBadBuffer
		}
		if f.pinCount != 0 {
			return ErrPagePinned
		}
		if f.dirty {
			if err := file.WritePage(f.pageNo, f.buf); err != nil {
				return err
			}
			f.dirty = false
		}
		b.table.remove(pageKey{file: file, pageNo: f.pageNo})
		b.replacer.untrack(idx)
		f.reset()
	}
	return nil
}

// Shutdown writes back every dirty frame regardless of owner and clears
// the pool. It never fails: incidental write-back errors are combined and
// logged rather than returned, matching the "destructor never throws"
// discipline spec §7 requires of the index on top of it.
func (b *BufferManager) Shutdown() {
	var errs error
	for idx, f := range b.frames {
		if !f.valid {
			continue
		}
		if f.dirty {
			if err := f.file.WritePage(f.pageNo, f.buf); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		b.table.remove(pageKey{file: f.file, pageNo: f.pageNo})
		b.replacer.untrack(idx)
		f.reset()
	}
	if errs != nil {
		slog.Error("bufferpool.Shutdown: incidental write-back errors, swallowed", "err", errs)
	}
}

// allocBuf chooses a victim frame via clock replacement and returns its
// index, with the descriptor already cleared for the caller to populate.
//
// Never-yet-used frames are handed out in order, then frames left invalid
// by DisposePage/FlushFile/Shutdown, before any replacement is considered —
// functionally identical to reaching them on the clock hand's sweep (an
// invalid frame is always an immediate win there too), since the clock
// hand's position is unobservable process state (spec §5).
func (b *BufferManager) allocBuf() (int, error) {
	if b.deployed < len(b.frames) {
		idx := b.deployed
		b.deployed++
		return idx, nil
	}
	for idx, f := range b.frames[:b.deployed] {
		if !f.valid {
			return idx, nil
		}
	}

	victim, ok := b.replacer.evict()
	if !ok {
		return 0, ErrBufferExceeded
	}

	f := b.frames[victim]
	if f.dirty {
		if err := f.file.WritePage(f.pageNo, f.buf); err != nil {
			return 0, err
		}
		f.dirty = false
	}
	b.table.remove(pageKey{file: f.file, pageNo: f.pageNo})
	f.reset()
	return victim, nil
}

// DebugDump returns a human-readable summary of pool occupancy, used by
// tests to diagnose pin leaks.
func (b *BufferManager) DebugDump() string {
	s := "BufferManager{"
	for i, f := range b.frames {
		if !f.valid {
			continue
		}
		s += "\n  frame "
		s += strconv.Itoa(i)
		s += ": page="
		s += strconv.Itoa(int(f.pageNo))
		s += " pin="
		s += strconv.Itoa(int(f.pinCount))
		if f.dirty {
			s += " dirty"
		}
		if f.refbit {
			s += " ref"
		}
	}
	s += "\n}"
	return s
}
