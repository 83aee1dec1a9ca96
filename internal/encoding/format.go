package encoding

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic numbers for the lynx persistence format (see spec §6).
const (
	MagicFile     uint32 = 0x4C594E58 // "LYNX"
	MagicFlatBlob uint32 = 0x464C4154 // "FLAT"
	MagicHNSWBlob uint32 = 0x484E5357 // "HNSW"
	MagicIVFBlob  uint32 = 0x49564658 // "IVFX"

	FormatVersion uint32 = 1
)

// FileHeader is the fixed-size prefix of a lynx.db file.
type FileHeader struct {
	Dimension   uint32
	IndexType   uint8
	Metric      uint8
	RecordCount uint64
}

// WriteFileHeader writes `[magic][version][dimension][index_type][metric][record_count]`.
func WriteFileHeader(w io.Writer, h FileHeader) error {
	fields := []any{MagicFile, FormatVersion, h.Dimension, h.IndexType, h.Metric, h.RecordCount}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("write file header: %w", err)
		}
	}
	return nil
}

// ErrBadMagic signals a magic-number mismatch while reading a persisted blob.
type ErrBadMagic struct {
	Want, Got uint32
}

func (e *ErrBadMagic) Error() string {
	return fmt.Sprintf("bad magic: want 0x%08X got 0x%08X", e.Want, e.Got)
}

// ErrBadVersion signals a format-version mismatch.
type ErrBadVersion struct {
	Want, Got uint32
}

func (e *ErrBadVersion) Error() string {
	return fmt.Sprintf("unsupported format version: want %d got %d", e.Want, e.Got)
}

// ReadFileHeader reads and validates the magic/version prefix, returning the
// remaining fixed-size fields.
func ReadFileHeader(r io.Reader) (FileHeader, error) {
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return FileHeader{}, fmt.Errorf("read file magic: %w", err)
	}
	if magic != MagicFile {
		return FileHeader{}, &ErrBadMagic{Want: MagicFile, Got: magic}
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return FileHeader{}, fmt.Errorf("read file version: %w", err)
	}
	if version != FormatVersion {
		return FileHeader{}, &ErrBadVersion{Want: FormatVersion, Got: version}
	}

	var h FileHeader
	for _, f := range []any{&h.Dimension, &h.IndexType, &h.Metric, &h.RecordCount} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return FileHeader{}, fmt.Errorf("read file header: %w", err)
		}
	}
	return h, nil
}

// CheckBlobMagic reads and validates a 4-byte blob magic followed by a u32 version.
func CheckBlobMagic(r io.Reader, want uint32) error {
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("read blob magic: %w", err)
	}
	if magic != want {
		return &ErrBadMagic{Want: want, Got: magic}
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("read blob version: %w", err)
	}
	if version != FormatVersion {
		return &ErrBadVersion{Want: FormatVersion, Got: version}
	}
	return nil
}

// WriteBlobMagic writes a 4-byte magic followed by the format version.
func WriteBlobMagic(w io.Writer, magic uint32) error {
	if err := binary.Write(w, binary.LittleEndian, magic); err != nil {
		return fmt.Errorf("write blob magic: %w", err)
	}
	return binary.Write(w, binary.LittleEndian, FormatVersion)
}

// WriteU32 writes a little-endian uint32.
func WriteU32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// ReadU32 reads a little-endian uint32.
func ReadU32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// WriteU64 writes a little-endian uint64.
func WriteU64(w io.Writer, v uint64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// ReadU64 reads a little-endian uint64.
func ReadU64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// RecordHeader is one `{id, vector, metadata}` entry in the record section.
type RecordHeader struct {
	ID     uint64
	Vector []float32
	Meta   string
}

// WriteRecord writes `[u64 id][u32 dim][dim x f32][u32 meta_len][meta_len bytes]`.
func WriteRecord(w io.Writer, rec RecordHeader) error {
	if err := binary.Write(w, binary.LittleEndian, rec.ID); err != nil {
		return fmt.Errorf("write record id: %w", err)
	}
	if err := WriteVector(w, rec.Vector); err != nil {
		return fmt.Errorf("write record vector: %w", err)
	}
	return WriteMetadata(w, rec.Meta)
}

// ReadRecord reads a record written by WriteRecord.
func ReadRecord(r io.Reader) (RecordHeader, error) {
	var rec RecordHeader
	if err := binary.Read(r, binary.LittleEndian, &rec.ID); err != nil {
		return RecordHeader{}, fmt.Errorf("read record id: %w", err)
	}
	vec, err := ReadVector(r)
	if err != nil {
		return RecordHeader{}, fmt.Errorf("read record vector: %w", err)
	}
	rec.Vector = vec
	meta, err := ReadMetadata(r)
	if err != nil {
		return RecordHeader{}, fmt.Errorf("read record metadata: %w", err)
	}
	rec.Meta = meta
	return rec, nil
}
