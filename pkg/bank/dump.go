// Debug-dump format for assembled bank images, grounded on the teacher's
// pkg/binfile: a fixed hand-rolled Header (magic identifier, version
// numbers, a JSON metadata blob) followed by a gob-encoded payload. The
// metadata blob here uses segmentio/encoding/json rather than the
// standard library's encoding/json, as the drop-in faster replacement
// the teacher's own typed.Map.ToJsonBytes would use if it reached for a
// faster encoder.
package bank

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"

	json "github.com/segmentio/encoding/json"
)

// WIZBANK is the 8-byte magic identifier marking a bank dump file,
// mirroring the teacher's ZKBINARY constant.
var WIZBANK = [8]byte{'w', 'i', 'z', 'b', 'a', 'n', 'k', '!'}

// DumpMajorVersion and DumpMinorVersion are stamped into every Header
// produced by NewDump; IsCompatible rejects anything with a different
// major version or a newer minor version.
const (
	DumpMajorVersion uint16 = 1
	DumpMinorVersion uint16 = 0
)

// DumpHeader is the fixed-layout prefix of a bank dump, encoded by hand
// (not gob) so the magic identifier and version can be read without a
// full decode.
type DumpHeader struct {
	Identifier   [8]byte
	MajorVersion uint16
	MinorVersion uint16
	// MetaData is an optional JSON blob (source file path, platform
	// name, build timestamp, ...) stored verbatim alongside the images.
	MetaData []byte
}

// IsCompatible reports whether this header can be decoded by the current
// implementation.
func (h *DumpHeader) IsCompatible() bool {
	return h.Identifier == WIZBANK && h.MajorVersion == DumpMajorVersion && h.MinorVersion <= DumpMinorVersion
}

// Dump is the in-memory, serializable snapshot of every bank image an
// Assembler produced, for debug tooling (`wizc dump`) rather than final
// output (the real output format, a raw binary per bank or a combined
// ROM image, is a driver concern outside the core per §1).
type Dump struct {
	Header DumpHeader
	// Images maps bank name to its assembled bytes.
	Images map[string][]byte
}

// NewDump snapshots every image an Assembler has built, attaching
// metadata (e.g. {"platform": "mos6502"}) as a JSON blob.
func NewDump(images map[string]*Image, metadata map[string]string) (*Dump, error) {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	//
	out := make(map[string][]byte, len(images))
	for name, img := range images {
		out[name] = img.Bytes()
	}
	//
	return &Dump{
		Header: DumpHeader{Identifier: WIZBANK, MajorVersion: DumpMajorVersion, MinorVersion: DumpMinorVersion, MetaData: meta},
		Images: out,
	}, nil
}

// Metadata decodes the header's JSON metadata blob back into a map; an
// empty blob decodes to an empty, non-nil map.
func (d *Dump) Metadata() (map[string]string, error) {
	if len(d.Header.MetaData) == 0 {
		return map[string]string{}, nil
	}
	//
	var out map[string]string
	if err := json.Unmarshal(d.Header.MetaData, &out); err != nil {
		return nil, err
	}
	//
	return out, nil
}

// MarshalBinary encodes the header (hand-rolled big-endian) followed by
// the image map (gob).
func (d *Dump) MarshalBinary() ([]byte, error) {
	headerBytes, err := d.Header.marshalBinary()
	if err != nil {
		return nil, err
	}
	//
	var buffer bytes.Buffer
	buffer.Write(headerBytes)
	//
	if err := gob.NewEncoder(&buffer).Encode(d.Images); err != nil {
		return nil, err
	}
	//
	return buffer.Bytes(), nil
}

// UnmarshalBinary decodes a byte sequence produced by MarshalBinary.
func (d *Dump) UnmarshalBinary(data []byte) error {
	buffer := bytes.NewBuffer(data)
	//
	if err := d.Header.unmarshalBinary(buffer); err != nil {
		return err
	} else if !d.Header.IsCompatible() {
		return fmt.Errorf("incompatible bank dump was v%d.%d, expected v%d.%d",
			d.Header.MajorVersion, d.Header.MinorVersion, DumpMajorVersion, DumpMinorVersion)
	}
	//
	return gob.NewDecoder(buffer).Decode(&d.Images)
}

func (h *DumpHeader) marshalBinary() ([]byte, error) {
	var (
		buffer     bytes.Buffer
		majorBytes [2]byte
		minorBytes [2]byte
		metaLength [4]byte
	)
	//
	binary.BigEndian.PutUint16(majorBytes[:], h.MajorVersion)
	binary.BigEndian.PutUint16(minorBytes[:], h.MinorVersion)
	binary.BigEndian.PutUint32(metaLength[:], uint32(len(h.MetaData)))
	//
	buffer.Write(h.Identifier[:])
	buffer.Write(majorBytes[:])
	buffer.Write(minorBytes[:])
	buffer.Write(metaLength[:])
	buffer.Write(h.MetaData)
	//
	return buffer.Bytes(), nil
}

func (h *DumpHeader) unmarshalBinary(buffer *bytes.Buffer) error {
	var (
		majorBytes [2]byte
		minorBytes [2]byte
		metaLen    [4]byte
	)
	//
	if n, err := buffer.Read(h.Identifier[:]); err != nil {
		return err
	} else if n != len(h.Identifier) {
		return errors.New("malformed bank dump: truncated identifier")
	}
	//
	if n, err := buffer.Read(majorBytes[:]); err != nil {
		return err
	} else if n != len(majorBytes) {
		return errors.New("malformed bank dump: truncated major version")
	}
	//
	if n, err := buffer.Read(minorBytes[:]); err != nil {
		return err
	} else if n != len(minorBytes) {
		return errors.New("malformed bank dump: truncated minor version")
	}
	//
	if n, err := buffer.Read(metaLen[:]); err != nil {
		return err
	} else if n != len(metaLen) {
		return errors.New("malformed bank dump: truncated metadata length")
	}
	//
	declaredLen := binary.BigEndian.Uint32(metaLen[:])
	if declaredLen > uint32(buffer.Len()) {
		return errors.New("malformed bank dump: metadata length exceeds remaining data")
	}
	//
	meta := make([]byte, declaredLen)
	if n, err := buffer.Read(meta); err != nil {
		return err
	} else if n != len(meta) {
		return errors.New("malformed bank dump: truncated metadata")
	}
	//
	h.MajorVersion = binary.BigEndian.Uint16(majorBytes[:])
	h.MinorVersion = binary.BigEndian.Uint16(minorBytes[:])
	h.MetaData = meta
	//
	return nil
}
