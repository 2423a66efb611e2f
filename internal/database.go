package internal

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/tuannm99/minidb/internal/btree"
	"github.com/tuannm99/minidb/internal/bufferpool"
	"github.com/tuannm99/minidb/internal/heap"
)

// Engine is the top-level facade over one buffer pool and the set of
// B+-tree indexes opened against it. It owns the buffer pool's lifetime:
// closing the engine closes every index and shuts the pool down.
type Engine struct {
	fs      afero.Fs
	bm      *bufferpool.BufferManager
	indexes map[string]btree.Index
}

func indexKey(relation string, attrByteOffset int32) string {
	return fmt.Sprintf("%s.%d", relation, attrByteOffset)
}

// NewEngine builds a buffer pool per cfg.Buffer and opens every index
// cfg.Indexes names, in order. On any failure it tears down everything
// opened so far before returning the error.
func NewEngine(fs afero.Fs, cfg *EngineConfig) (*Engine, error) {
	e := &Engine{
		fs:      fs,
		bm:      bufferpool.NewBufferManager(cfg.Buffer.PoolSize),
		indexes: make(map[string]btree.Index),
	}

	for _, ic := range cfg.Indexes {
		attrType, err := ic.decodeAttrType()
		if err != nil {
			e.Close()
			return nil, err
		}
		idx, err := btree.Open(fs, e.bm, ic.Relation, ic.AttrByteOffset, attrType, nil)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("internal: open index for relation %q: %w", ic.Relation, err)
		}
		e.indexes[indexKey(ic.Relation, ic.AttrByteOffset)] = idx
	}
	return e, nil
}

// Index returns the already-open index over (relation, attrByteOffset), if
// any.
func (e *Engine) Index(relation string, attrByteOffset int32) (btree.Index, bool) {
	idx, ok := e.indexes[indexKey(relation, attrByteOffset)]
	return idx, ok
}

// OpenIndex returns the index over (relation, attrByteOffset), opening (and
// seeding, if scan is non-nil and the index doesn't exist yet) it if it
// isn't already tracked by the engine.
func (e *Engine) OpenIndex(relation string, attrByteOffset int32, attrType btree.AttrType, scan heap.FileScan) (btree.Index, error) {
	key := indexKey(relation, attrByteOffset)
	if idx, ok := e.indexes[key]; ok {
		return idx, nil
	}
	idx, err := btree.Open(e.fs, e.bm, relation, attrByteOffset, attrType, scan)
	if err != nil {
		return nil, err
	}
	e.indexes[key] = idx
	return idx, nil
}

// Close closes every open index and shuts down the buffer pool. It never
// fails: incidental errors are logged by the components themselves.
func (e *Engine) Close() {
	for _, idx := range e.indexes {
		idx.Close()
	}
	e.indexes = make(map[string]btree.Index)
	e.bm.Shutdown()
}
