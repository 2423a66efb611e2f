package btree

import (
	"github.com/tuannm99/minidb/internal/storage"
)

// Page 1 layout (spec §6): relationName[20 bytes, null-padded],
// attrByteOffset int32, attrType int32, rootPageNo uint32, height int32.
const (
	metaRelationNameSize = 20

	metaRelationNameOffset = 0
	metaAttrOffsetOffset   = metaRelationNameOffset + metaRelationNameSize
	metaAttrTypeOffset     = metaAttrOffsetOffset + int32Size
	metaRootPageOffset     = metaAttrTypeOffset + int32Size
	metaHeightOffset       = metaRootPageOffset + pageIDSize
)

// indexMeta is the decoded contents of the metadata page.
type indexMeta struct {
	relationName   string
	attrByteOffset int32
	attrType       AttrType
	rootPageNo     storage.PageID
	height         int32
}

func readIndexMeta(page *storage.Page) indexMeta {
	d := page.Data
	return indexMeta{
		relationName:   decodeFixedString(d[metaRelationNameOffset : metaRelationNameOffset+metaRelationNameSize]),
		attrByteOffset: int32(readU32At(d, metaAttrOffsetOffset)),
		attrType:       AttrType(int32(readU32At(d, metaAttrTypeOffset))),
		rootPageNo:     readU32At(d, metaRootPageOffset),
		height:         int32(readU32At(d, metaHeightOffset)),
	}
}

func writeIndexMeta(page *storage.Page, m indexMeta) {
	d := page.Data
	clear(d[metaRelationNameOffset : metaRelationNameOffset+metaRelationNameSize])
	copy(d[metaRelationNameOffset:metaRelationNameOffset+metaRelationNameSize], m.relationName)
	writeU32At(d, metaAttrOffsetOffset, uint32(m.attrByteOffset))
	writeU32At(d, metaAttrTypeOffset, uint32(m.attrType))
	writeU32At(d, metaRootPageOffset, m.rootPageNo)
	writeU32At(d, metaHeightOffset, uint32(m.height))
}
