package rowset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/tabletio/fsys"
	"github.com/hupe1980/tabletio/model"
)

// Segment file layout: fixed header followed by one zstd-compressed block of
// row data. The checksum covers the compressed block.
const (
	segmentMagic   uint32 = 0x54425253 // "TBRS"
	segmentVersion uint16 = 1
	headerSize            = 32
)

var (
	// ErrBadMagic is returned when a segment file has an unknown header.
	ErrBadMagic = errors.New("bad segment magic")

	// ErrChecksum is returned when the segment body fails verification.
	ErrChecksum = errors.New("segment checksum mismatch")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

type segmentHeader struct {
	RowsetID        model.RowsetID
	RowCount        uint32
	UncompressedLen uint32
	CompressedLen   uint32
	Checksum        uint32
}

func (h *segmentHeader) encode() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:], segmentMagic)
	binary.LittleEndian.PutUint16(buf[4:], segmentVersion)
	binary.LittleEndian.PutUint64(buf[8:], uint64(h.RowsetID))
	binary.LittleEndian.PutUint32(buf[16:], h.RowCount)
	binary.LittleEndian.PutUint32(buf[20:], h.UncompressedLen)
	binary.LittleEndian.PutUint32(buf[24:], h.CompressedLen)
	binary.LittleEndian.PutUint32(buf[28:], h.Checksum)
	return buf
}

func decodeHeader(buf []byte) (*segmentHeader, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: short header", ErrBadMagic)
	}
	if binary.LittleEndian.Uint32(buf[0:]) != segmentMagic {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(buf[4:]); v != segmentVersion {
		return nil, fmt.Errorf("unsupported segment version %d", v)
	}
	return &segmentHeader{
		RowsetID:        model.RowsetID(binary.LittleEndian.Uint64(buf[8:])),
		RowCount:        binary.LittleEndian.Uint32(buf[16:]),
		UncompressedLen: binary.LittleEndian.Uint32(buf[20:]),
		CompressedLen:   binary.LittleEndian.Uint32(buf[24:]),
		Checksum:        binary.LittleEndian.Uint32(buf[28:]),
	}, nil
}

func encodeValue(buf *bytes.Buffer, v model.Value) {
	buf.WriteByte(byte(v.Kind))
	switch v.Kind {
	case model.KindBool:
		if v.B {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case model.KindInt:
		var tmp [binary.MaxVarintLen64]byte
		n := binary.PutVarint(tmp[:], v.I64)
		buf.Write(tmp[:n])
	case model.KindFloat:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v.F64))
		buf.Write(tmp[:])
	case model.KindString:
		var tmp [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(tmp[:], uint64(len(v.Str)))
		buf.Write(tmp[:n])
		buf.WriteString(v.Str)
	case model.KindBytes:
		var tmp [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(tmp[:], uint64(len(v.Bytes)))
		buf.Write(tmp[:n])
		buf.Write(v.Bytes)
	}
}

func encodeRows(batches [][]model.Row) []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	for _, batch := range batches {
		for _, row := range batch {
			n := binary.PutUvarint(tmp[:], uint64(len(row)))
			buf.Write(tmp[:n])
			for _, v := range row {
				encodeValue(&buf, v)
			}
		}
	}
	return buf.Bytes()
}

func writeSegment(fs fsys.FileSystem, path string, id model.RowsetID, batches [][]model.Row, rowCount int) (int64, error) {
	raw := encodeRows(batches)
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return 0, err
	}
	compressed := enc.EncodeAll(raw, nil)
	if err := enc.Close(); err != nil {
		return 0, err
	}

	h := &segmentHeader{
		RowsetID:        id,
		RowCount:        uint32(rowCount),
		UncompressedLen: uint32(len(raw)),
		CompressedLen:   uint32(len(compressed)),
		Checksum:        crc32.Checksum(compressed, castagnoli),
	}

	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	if _, err := f.Write(h.encode()); err != nil {
		f.Close()
		return 0, err
	}
	if _, err := f.Write(compressed); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return int64(headerSize + len(compressed)), nil
}

// VerifySegment reads a segment file back and checks header and checksum.
func VerifySegment(fs fsys.FileSystem, path string) error {
	f, err := fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return err
	}
	h, err := decodeHeader(hdr)
	if err != nil {
		return err
	}
	body := make([]byte, h.CompressedLen)
	if _, err := io.ReadFull(f, body); err != nil {
		return err
	}
	if crc32.Checksum(body, castagnoli) != h.Checksum {
		return ErrChecksum
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(body, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChecksum, err)
	}
	if len(raw) != int(h.UncompressedLen) {
		return fmt.Errorf("%w: uncompressed length", ErrChecksum)
	}
	return nil
}
