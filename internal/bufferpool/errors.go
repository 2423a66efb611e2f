package bufferpool

import "errors"

// Error taxonomy surfaced at the buffer manager's API boundary (spec §7).
// These are routine, caller-recoverable failures — never panics — so every
// caller (chiefly the btree package) can map them directly onto its own
// pin-discipline and propagate or recover as appropriate.
var (
	// ErrBufferExceeded is returned by allocBuf when every frame in the
	// pool is pinned and no victim can be chosen.
	ErrBufferExceeded = errors.New("bufferpool: no unpinned frame available (buffer exceeded)")

	// ErrPageNotPinned is returned by UnpinPage when the target frame's
	// pin count is already zero.
	ErrPageNotPinned = errors.New("bufferpool: attempt to unpin a page that is not pinned")

	// ErrPagePinned is returned by FlushFile when a page belonging to the
	// file is still pinned.
	ErrPagePinned = errors.New("bufferpool: flush attempted while a page is still pinned")

	// ErrBadBuffer is returned by FlushFile when a frame whose descriptor
	// names the file as its owner turns out to be invalid.
	ErrBadBuffer = errors.New("bufferpool: frame owned by file is not valid")
)
