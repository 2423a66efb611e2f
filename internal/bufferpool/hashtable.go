package bufferpool

import (
	"fmt"

	"github.com/tuannm99/minidb/internal/storage"
)

// pageKey identifies a page within the pool: the owning file plus its page
// number. PageFile implementations are always used behind a pointer, so
// this is safe as a map/bucket key.
type pageKey struct {
	file   storage.PageFile
	pageNo storage.PageID
}

// hashEntry is one link in a bucket's chain.
type hashEntry struct {
	key   pageKey
	frame int
	next  *hashEntry
}

// pageHashTable maps (file, pageNo) -> frame index for every valid frame,
// via chained buckets (spec C2). Bucket count is derived from the pool size
// and is not otherwise observable.
type pageHashTable struct {
	buckets []*hashEntry
}

// newPageHashTable derives a bucket count of roughly 1.2x poolSize, nudged
// to an odd number to spread hashes a little better across a chain.
func newPageHashTable(poolSize int) *pageHashTable {
	n := (poolSize * 12) / 10
	if n < 1 {
		n = 1
	}
	if n%2 == 0 {
		n++
	}
	return &pageHashTable{buckets: make([]*hashEntry, n)}
}

// bucketIndex hashes (file identity, pageNo) with FNV-1a. The file's
// pointer identity (its %p representation) salts the hash so that page 1
// of two different files hash to different values; lookups compare the
// full key, so two keys that still share a chain stay distinct.
func (h *pageHashTable) bucketIndex(key pageKey) int {
	hash := uint64(14695981039346656037)
	mix := func(b byte) {
		hash ^= uint64(b)
		hash *= 1099511628211
	}
	for _, b := range []byte(fmt.Sprintf("%p", key.file)) {
		mix(b)
	}
	for i := 0; i < 4; i++ {
		mix(byte(key.pageNo >> (8 * i)))
	}
	return int(hash % uint64(len(h.buckets)))
}

// lookup returns the frame index for key, and whether it was found.
func (h *pageHashTable) lookup(key pageKey) (int, bool) {
	idx := h.bucketIndex(key)
	for e := h.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			return e.frame, true
		}
	}
	return 0, false
}

// insert installs key -> frameIdx. Caller must ensure key is not already
// present (a frame becomes valid iff its hash entry is installed, and the
// buffer manager never installs the same key twice).
func (h *pageHashTable) insert(key pageKey, frameIdx int) {
	idx := h.bucketIndex(key)
	h.buckets[idx] = &hashEntry{key: key, frame: frameIdx, next: h.buckets[idx]}
}

// remove deletes key from the table, if present.
func (h *pageHashTable) remove(key pageKey) {
	idx := h.bucketIndex(key)
	var prev *hashEntry
	for e := h.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			if prev == nil {
				h.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			return
		}
		prev = e
	}
}
