package bufferpool

import "github.com/tuannm99/minidb/internal/storage"

// frame is one slot of the fixed-size buffer pool together with its
// descriptor. If valid is false every other field is meaningless (spec §3).
type frame struct {
	file     storage.PageFile // owning file; nil when !valid
	pageNo   storage.PageID
	buf      []byte // page-sized backing array, always allocated
	valid    bool
	dirty    bool
	refbit   bool
	pinCount uint32
}

func newFrame() *frame {
	return &frame{buf: make([]byte, storage.PageSize)}
}

// reset clears the descriptor back to invalid. The backing buffer is left
// in place and reused by the next occupant.
func (f *frame) reset() {
	f.file = nil
	f.pageNo = 0
	f.valid = false
	f.dirty = false
	f.refbit = false
	f.pinCount = 0
}
