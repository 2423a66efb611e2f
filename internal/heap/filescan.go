package heap

// FileScan iterates the records of a relation so that a freshly created
// index can be seeded. It is an external collaborator (spec's C7): the
// btree package only ever calls Next/Close on it.
type FileScan interface {
	// Next returns the next record's raw bytes and its id, or ok=false
	// once the scan is exhausted.
	Next() (record []byte, rid RecordID, ok bool, err error)

	// Close releases any resources held by the scan.
	Close() error
}

// SliceFileScan is a trivial concrete FileScan over an in-memory slice of
// records, each already paired with its RecordID. Real relations would
// scan a heap file page by page; this is the stand-in the index
// constructor and tests need to exercise seeding without a full heap file
// implementation, feeding SeedIndex's scan/extract-key/insert loop.
type SliceFileScan struct {
	records []Record
	pos     int
}

// Record pairs a raw record buffer with the id it lives at.
type Record struct {
	Bytes []byte
	RID   RecordID
}

// NewSliceFileScan builds a FileScan over records, in the order given.
func NewSliceFileScan(records []Record) *SliceFileScan {
	return &SliceFileScan{records: records}
}

var _ FileScan = (*SliceFileScan)(nil)

func (s *SliceFileScan) Next() ([]byte, RecordID, bool, error) {
	if s.pos >= len(s.records) {
		return nil, RecordID{}, false, nil
	}
	r := s.records[s.pos]
	s.pos++
	return r.Bytes, r.RID, true, nil
}

func (s *SliceFileScan) Close() error { return nil }
