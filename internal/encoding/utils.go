// Package encoding implements the little-endian binary codec used by the
// lynx persistence format (see the layouts documented on WriteFileHeader
// and WriteRecord in format.go). Every multi-byte value is written and read in
// little-endian order so the on-disk format is independent of host
// byte order.
package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrInvalidVector is returned when a vector is invalid
var ErrInvalidVector = errors.New("invalid vector")

// EncodeVector encodes a float32 vector to bytes, length-prefixed.
func EncodeVector(vector []float32) ([]byte, error) {
	if vector == nil {
		return nil, ErrInvalidVector
	}

	buf := new(bytes.Buffer)

	vectorLen := len(vector)
	if vectorLen > 2147483647 { // max int32
		return nil, fmt.Errorf("vector too large: %d elements exceeds maximum", vectorLen)
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(vectorLen)); err != nil {
		return nil, fmt.Errorf("failed to encode vector length: %w", err)
	}

	for _, val := range vector {
		if err := binary.Write(buf, binary.LittleEndian, val); err != nil {
			return nil, fmt.Errorf("failed to encode vector value: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// DecodeVector decodes bytes to a float32 vector, reading the length prefix.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, ErrInvalidVector
	}

	buf := bytes.NewReader(data)
	vec, err := ReadVector(buf)
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// WriteVector writes a `[u32 dim][dim x f32]` vector to w.
func WriteVector(w io.Writer, vector []float32) error {
	if len(vector) > math.MaxUint32 {
		return fmt.Errorf("vector too large: %d elements exceeds maximum", len(vector))
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vector))); err != nil {
		return fmt.Errorf("write vector length: %w", err)
	}
	if len(vector) == 0 {
		return nil
	}
	if err := binary.Write(w, binary.LittleEndian, vector); err != nil {
		return fmt.Errorf("write vector values: %w", err)
	}
	return nil
}

// ReadVector reads a `[u32 dim][dim x f32]` vector from r.
func ReadVector(r io.Reader) ([]float32, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("read vector length: %w", err)
	}
	if length == 0 {
		return []float32{}, nil
	}
	vector := make([]float32, length)
	if err := binary.Read(r, binary.LittleEndian, vector); err != nil {
		return nil, fmt.Errorf("read vector values: %w", err)
	}
	return vector, nil
}

// WriteIDs writes `[u32 count][count x u64]`.
func WriteIDs(w io.Writer, ids []uint64) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ids))); err != nil {
		return fmt.Errorf("write id count: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	return binary.Write(w, binary.LittleEndian, ids)
}

// ReadIDs reads `[u32 count][count x u64]`.
func ReadIDs(r io.Reader) ([]uint64, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read id count: %w", err)
	}
	if count == 0 {
		return []uint64{}, nil
	}
	ids := make([]uint64, count)
	if err := binary.Read(r, binary.LittleEndian, ids); err != nil {
		return nil, fmt.Errorf("read ids: %w", err)
	}
	return ids, nil
}

// WriteMetadata writes `[u32 meta_len][meta_len bytes utf-8]`.
func WriteMetadata(w io.Writer, metadata string) error {
	b := []byte(metadata)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return fmt.Errorf("write metadata length: %w", err)
	}
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

// ReadMetadata reads `[u32 meta_len][meta_len bytes utf-8]`.
func ReadMetadata(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", fmt.Errorf("read metadata length: %w", err)
	}
	if length == 0 {
		return "", nil
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read metadata bytes: %w", err)
	}
	return string(b), nil
}

// ValidateVector rejects vectors containing NaN or infinite components.
func ValidateVector(vector []float32) error {
	if vector == nil {
		return ErrInvalidVector
	}
	for _, val := range vector {
		f := float64(val)
		if f != f || math.IsInf(f, 0) {
			return ErrInvalidVector
		}
	}
	return nil
}
