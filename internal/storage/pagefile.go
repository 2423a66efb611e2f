package storage

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// ErrPageFileNotFound is returned by ReadPage when asked for a page number
// the file never allocated. WritePage does not return it: writing past the
// end extends the file.
var ErrPageFileNotFound = errors.New("storage: page not found in page file")

// PageFile is the external collaborator the buffer manager mediates all
// index I/O through. It is an opaque, byte-addressable page store: the
// buffer manager and the btree package never open a file directly.
//
// Page numbers are positive; zero is reserved (NullPage) and is never
// returned by AllocatePage.
type PageFile interface {
	// AllocatePage grows the file by one page and returns its number and a
	// freshly zeroed page-sized buffer.
	AllocatePage() (PageID, []byte, error)

	// ReadPage returns the bytes stored at pageNo.
	ReadPage(pageNo PageID) ([]byte, error)

	// WritePage overwrites the bytes stored at pageNo. data must be exactly
	// PageSize bytes.
	WritePage(pageNo PageID, data []byte) error

	// DeletePage releases pageNo. Implementations MAY treat this as a
	// no-op; callers must tolerate that (see BufferManager.DisposePage).
	DeletePage(pageNo PageID) error

	// Close releases any OS-level resources held by the file.
	Close() error

	// Name returns the name this file was opened/created with. The buffer
	// pool keys pages by the file's pointer identity, not by this name.
	Name() string
}

// Exists reports whether a page file with the given name already exists on
// fs.
func Exists(fs afero.Fs, name string) bool {
	ok, err := afero.Exists(fs, name)
	return err == nil && ok
}

// FilePageFile is a concrete, file-backed PageFile. Pages are stored
// contiguously starting at file offset 0; page number N (N >= 1) lives at
// byte offset (N-1)*PageSize. It is built on afero.Fs so tests can run
// against an in-memory filesystem while production code points it at the
// real OS filesystem.
type FilePageFile struct {
	fs       afero.Fs
	name     string
	file     afero.File
	numPages uint32
}

var _ PageFile = (*FilePageFile)(nil)

// Open opens an existing page file, or creates a new (empty) one when
// createNew is true. It mirrors the external page-file interface's
// `open(name, createNew) -> handle` operation.
func Open(fs afero.Fs, name string, createNew bool) (*FilePageFile, error) {
	if createNew {
		if Exists(fs, name) {
			return nil, fmt.Errorf("storage: page file %q already exists", name)
		}
		f, err := fs.Create(name)
		if err != nil {
			return nil, fmt.Errorf("storage: create page file: %w", err)
		}
		return &FilePageFile{fs: fs, name: name, file: f, numPages: 0}, nil
	}

	if !Exists(fs, name) {
		return nil, fmt.Errorf("storage: page file %q does not exist", name)
	}
	f, err := fs.OpenFile(name, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open page file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("storage: stat page file: %w", err)
	}
	return &FilePageFile{
		fs:       fs,
		name:     name,
		file:     f,
		numPages: uint32(info.Size() / PageSize),
	}, nil
}

func (f *FilePageFile) Name() string { return f.name }

// AllocatePage grows the file by one page, zero-fills it, and returns its
// (1-based) page number.
func (f *FilePageFile) AllocatePage() (PageID, []byte, error) {
	f.numPages++
	pageNo := f.numPages
	buf := make([]byte, PageSize)
	if err := f.WritePage(pageNo, buf); err != nil {
		f.numPages--
		return 0, nil, err
	}
	return pageNo, buf, nil
}

func (f *FilePageFile) offset(pageNo PageID) int64 {
	return int64(pageNo-1) * PageSize
}

func (f *FilePageFile) ReadPage(pageNo PageID) ([]byte, error) {
	if pageNo == NullPage || pageNo > f.numPages {
		return nil, ErrPageFileNotFound
	}
	buf := make([]byte, PageSize)
	if _, err := f.file.ReadAt(buf, f.offset(pageNo)); err != nil && err != io.EOF {
		return nil, fmt.Errorf("storage: read page %d: %w", pageNo, err)
	}
	return buf, nil
}

func (f *FilePageFile) WritePage(pageNo PageID, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("storage: page write must be exactly %d bytes, got %d", PageSize, len(data))
	}
	if pageNo == NullPage {
		return fmt.Errorf("storage: cannot write to null page")
	}
	if _, err := f.file.WriteAt(data, f.offset(pageNo)); err != nil {
		return fmt.Errorf("storage: write page %d: %w", pageNo, err)
	}
	if pageNo > f.numPages {
		f.numPages = pageNo
	}
	return nil
}

// DeletePage is a no-op: this page file never reclaims space for deleted
// pages. The buffer manager and btree deletion path are both written to
// tolerate that (see spec §9 open questions).
func (f *FilePageFile) DeletePage(pageNo PageID) error {
	return nil
}

func (f *FilePageFile) Close() error {
	return f.file.Close()
}
