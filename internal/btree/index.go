package btree

import "github.com/tuannm99/minidb/internal/heap"

// Op is a scan comparison operator.
type Op int

const (
	GT Op = iota
	GTE
	LT
	LTE
)

// Index is the public surface the B+-tree exposes: insertion, deletion,
// range scan, and structural validation over one relation's key column
// (spec §4.2, §6).
type Index interface {
	// Insert adds (key, rid) to the index.
	Insert(key []byte, rid heap.RecordID) error

	// Delete removes one entry matching (key, rid). Returns false if the
	// key was not found; the tree is left unchanged in that case (spec
	// §4.2 "Key not found").
	Delete(key []byte, rid heap.RecordID) (bool, error)

	// StartScan begins a range scan over (lowVal lowOp, highOp highVal).
	StartScan(lowVal []byte, lowOp Op, highVal []byte, highOp Op) error

	// ScanNext returns the next matching record id.
	ScanNext() (heap.RecordID, error)

	// EndScan terminates the current scan.
	EndScan() error

	// Validate walks the tree checking every structural invariant listed
	// in spec §8. Returns false (with all pins released) on failure.
	Validate() bool

	// Close flushes and releases the index's page file. Never returns an
	// error that the caller must act on; failures are logged.
	Close()
}

var _ Index = (*Tree)(nil)
