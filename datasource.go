package fastgltf

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	b64 "github.com/FishOfTheNorthStar/fastgltf-add-ext/base64"
)

// DataSource describes where a buffer's or image's bytes live. Exactly one
// variant is active; an unresolved source is a nil DataSource. Consumers
// switch exhaustively over the concrete types.
type DataSource interface {
	isDataSource()
}

// FilePathSource defers the read: the bytes live in a byte range of a file
// on disk. The range stays valid only as long as the file is unmodified.
type FilePathSource struct {
	Path           string
	FileByteOffset int64
	ByteLength     int64
	MimeType       MimeType
}

func (FilePathSource) isDataSource() {}

// Open returns a reader over the source's byte range.
func (s FilePathSource) Open() (*io.SectionReader, func() error, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening deferred buffer source %q", s.Path)
	}
	return io.NewSectionReader(f, s.FileByteOffset, s.ByteLength), f.Close, nil
}

// ByteSource owns its bytes.
type ByteSource struct {
	Bytes    []byte
	MimeType MimeType
}

func (ByteSource) isDataSource() {}

// CustomBufferSource records that the bytes were written into a destination
// the caller provided through the buffer map callback; ID is the identifier
// the callback returned.
type CustomBufferSource struct {
	ID uint64
}

func (CustomBufferSource) isDataSource() {}

// BufferViewSource points an image at a region of an already-parsed buffer
// view instead of carrying bytes of its own.
type BufferViewSource struct {
	BufferViewIndex int
	MimeType        MimeType
}

func (BufferViewSource) isDataSource() {}

// BufferInfo is what a map callback hands back: a writable destination of at
// least the requested size and a caller-chosen identifier that tags which
// buffer landed where.
type BufferInfo struct {
	Mapped []byte
	ID     uint64
}

// MapBufferFunc returns a destination for a buffer payload of the given
// size. Returning a zero BufferInfo makes the loader fall back to default
// heap ownership for that payload.
type MapBufferFunc func(size int64, user interface{}) BufferInfo

// UnmapBufferFunc is called exactly once per mapped payload, after the
// loader has finished writing into the destination. Callbacks must not
// re-enter the parser.
type UnmapBufferFunc func(info BufferInfo, user interface{})

// decode dispatches to the probe-selected decoder unless SIMD was opted out.
func (g *Gltf) decode(payload string) []byte {
	if g.options.Has(DontUseSIMD) {
		return b64.DecodeFallback(payload)
	}
	return b64.Decode(payload)
}

// mapOrOwn places bytes destined for long-lived storage. A registered map
// callback wins over default heap ownership; the mapping is released again
// as soon as the bytes are written, the destination itself stays with the
// caller.
func (g *Gltf) mapOrOwn(data []byte, mime MimeType) DataSource {
	if g.parser.mapBuffer != nil {
		info := g.parser.mapBuffer(int64(len(data)), g.parser.user)
		if info.Mapped != nil {
			copy(info.Mapped, data)
			if g.parser.unmapBuffer != nil {
				g.parser.unmapBuffer(info, g.parser.user)
			}
			return CustomBufferSource{ID: info.ID}
		}
	}
	return ByteSource{Bytes: data, MimeType: mime}
}

const dataURIPrefix = "data:"

// parseDataURI splits "data:<mime>;base64,<payload>". isBase64 is false for
// any other data URI encoding.
func parseDataURI(uri string) (mime, payload string, isBase64 bool) {
	meta, payload, found := strings.Cut(uri[len(dataURIPrefix):], ",")
	if !found {
		return "", "", false
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return meta, payload, false
	}
	return mime, payload, true
}

// resolveBuffer decides the origin of a buffer's bytes. Checked in order:
// the GLB binary chunk for URI-less buffers, an embedded base64 data URI,
// and finally a path relative to the asset's base directory.
func (g *Gltf) resolveBuffer(uri string, hasURI bool) (DataSource, Error) {
	if !hasURI {
		if g.glb == nil {
			return nil, ErrorInvalidGltf
		}
		switch {
		case g.glb.HasCustomID:
			return CustomBufferSource{ID: g.glb.CustomBufferID}, ErrorNone
		case g.glb.Bytes != nil:
			return ByteSource{Bytes: g.glb.Bytes, MimeType: MimeGltfBuffer}, ErrorNone
		default:
			return FilePathSource{
				Path:           g.glb.Path,
				FileByteOffset: g.glb.FileOffset,
				ByteLength:     g.glb.ByteLength,
				MimeType:       MimeGltfBuffer,
			}, ErrorNone
		}
	}

	if strings.HasPrefix(uri, dataURIPrefix) {
		mime, payload, isBase64 := parseDataURI(uri)
		if !isBase64 {
			g.diag = errors.Errorf("unsupported data URI encoding in %q", uri[:min(len(uri), 32)])
			return nil, ErrorInvalidGltf
		}
		return g.mapOrOwn(g.decode(payload), mimeTypes[mime]), ErrorNone
	}

	full := filepath.Join(g.baseDir, uri)
	fi, err := os.Stat(full)
	if err != nil {
		g.diag = errors.Wrapf(err, "external buffer %q", uri)
		return nil, ErrorMissingExternalBuffer
	}

	if g.options.Has(LoadExternalBuffers) {
		data, err := os.ReadFile(full)
		if err != nil {
			g.diag = errors.Wrapf(err, "reading external buffer %q", uri)
			return nil, ErrorMissingExternalBuffer
		}
		return g.mapOrOwn(data, MimeOctetStream), ErrorNone
	}
	return FilePathSource{Path: full, ByteLength: fi.Size()}, ErrorNone
}

// resolveImage handles the image flavor of data sourcing: either a URI (data
// or external, same policy as buffers minus eager loading) or a buffer view
// reference.
func (g *Gltf) resolveImage(uri string, hasURI bool, bufferView int, mime MimeType) (DataSource, Error) {
	if !hasURI {
		if bufferView == noIndex {
			return nil, ErrorInvalidGltf
		}
		return BufferViewSource{BufferViewIndex: bufferView, MimeType: mime}, ErrorNone
	}

	if strings.HasPrefix(uri, dataURIPrefix) {
		uriMime, payload, isBase64 := parseDataURI(uri)
		if !isBase64 {
			g.diag = errors.New("image data URI is not base64 encoded")
			return nil, ErrorInvalidGltf
		}
		return g.mapOrOwn(g.decode(payload), mimeTypes[uriMime]), ErrorNone
	}

	full := filepath.Join(g.baseDir, uri)
	fi, err := os.Stat(full)
	if err != nil {
		g.diag = errors.Wrapf(err, "external image %q", uri)
		return nil, ErrorMissingExternalBuffer
	}
	return FilePathSource{Path: full, ByteLength: fi.Size(), MimeType: mime}, ErrorNone
}
