package btree

import "encoding/binary"

// Every on-page integer field (usage counts, page pointers, record slots,
// the int32/float64 key encodings) is fixed-width little-endian. These
// helpers are the one place that byte order is named, so a node view or
// the metadata page never reaches for encoding/binary directly.

func readU16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func readU32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func readU64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

func writeU16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func writeU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func writeU64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }

func readU16At(b []byte, off int) uint16 { return readU16(b[off:]) }
func readU32At(b []byte, off int) uint32 { return readU32(b[off:]) }

func writeU16At(b []byte, off int, v uint16) { writeU16(b[off:], v) }
func writeU32At(b []byte, off int, v uint32) { writeU32(b[off:], v) }
