package fastgltf

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// GLB container constants, glTF 2.0 §4 (binary container format).
const (
	glbMagic   = 0x46546C67 // "glTF"
	glbVersion = 2

	glbHeaderSize = 12
	glbChunkSize  = 8

	chunkTypeJSON = 0x4E4F534A // "JSON"
	chunkTypeBIN  = 0x004E4942 // "BIN\0"
)

// glbChunkRange locates the raw binary chunk payload inside the source file.
// The length excludes chunk padding.
type glbChunkRange struct {
	offset int64
	length uint32
}

// GLBBuffer carries the per-load state of the binary chunk: where it sits in
// the source file for deferred reads, the eagerly loaded bytes when
// LoadGLBBuffers was set, and the caller's buffer id when the bytes went
// through a registered map callback instead.
type GLBBuffer struct {
	FileOffset int64
	ByteLength int64
	Path       string

	Bytes []byte

	CustomBufferID uint64
	HasCustomID    bool
}

func padTo4(n uint32) uint32 { return (n + 3) &^ 3 }

// splitGLB validates the container header and walks the chunk sequence,
// returning the JSON payload and the byte range of the binary chunk if one
// exists. Chunk types other than JSON and BIN are skipped. The returned
// JSON slice aliases data.
func splitGLB(data []byte) ([]byte, *glbChunkRange, error) {
	if len(data) < glbHeaderSize {
		return nil, nil, errors.Errorf("glb: file too short for header: %d bytes", len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	version := binary.LittleEndian.Uint32(data[4:8])
	total := binary.LittleEndian.Uint32(data[8:12])

	if magic != glbMagic {
		return nil, nil, errors.Errorf("glb: bad magic 0x%08x", magic)
	}
	if version != glbVersion {
		return nil, nil, errors.Errorf("glb: unsupported container version %d", version)
	}
	if int(total) != len(data) {
		return nil, nil, errors.Errorf("glb: declared length %d does not match content length %d", total, len(data))
	}

	var jsonPayload []byte
	var bin *glbChunkRange

	off := int64(glbHeaderSize)
	first := true
	for off < int64(len(data)) {
		if off+glbChunkSize > int64(len(data)) {
			return nil, nil, errors.Errorf("glb: truncated chunk header at offset %d", off)
		}
		length := binary.LittleEndian.Uint32(data[off:])
		ctype := binary.LittleEndian.Uint32(data[off+4:])

		payload := off + glbChunkSize
		if payload+int64(length) > int64(len(data)) {
			return nil, nil, errors.Errorf("glb: chunk of %d bytes at offset %d runs past end of file", length, off)
		}

		switch ctype {
		case chunkTypeJSON:
			if !first {
				return nil, nil, errors.New("glb: JSON chunk must come first")
			}
			jsonPayload = data[payload : payload+int64(length)]
		case chunkTypeBIN:
			if bin != nil {
				return nil, nil, errors.New("glb: duplicate BIN chunk")
			}
			bin = &glbChunkRange{offset: payload, length: length}
		default:
			// Unknown chunk types are opaque regions to step over.
		}
		if first && ctype != chunkTypeJSON {
			return nil, nil, errors.Errorf("glb: first chunk has type 0x%08x, want JSON", ctype)
		}

		off = payload + int64(padTo4(length))
		first = false
	}

	if jsonPayload == nil {
		return nil, nil, errors.New("glb: missing JSON chunk")
	}
	return jsonPayload, bin, nil
}
