// Package fastgltf loads glTF 2.0 assets from JSON text or GLB binary
// containers. It is built for runtimes that want low-latency ingestion:
// buffer payloads can be decoded straight into caller-managed memory through
// a map/unmap callback pair, and the caller chooses which sections of the
// document get parsed at all through a Category bit-set.
package fastgltf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/creachadair/jtree/ast"
	"github.com/pkg/errors"
)

// Parser loads one or more glTF files. It keeps the JSON engine's read state
// alive between loads to amortize allocation, so it is not safe for
// concurrent use: at most one load may be in flight per Parser. Use one
// Parser per goroutine or serialize access externally.
type Parser struct {
	extensions Extensions

	mapBuffer   MapBufferFunc
	unmapBuffer UnmapBufferFunc
	user        interface{}

	rd *bytes.Reader

	err  Error
	diag error
}

// NewParser returns a Parser that will accept assets requiring any of the
// given extensions.
func NewParser(extensions Extensions) *Parser {
	return &Parser{
		extensions: extensions,
		rd:         bytes.NewReader(nil),
	}
}

// SetBufferAllocationCallbacks registers the destination allocator for
// buffer payloads. user is passed through verbatim to both callbacks. Must
// be called before a load; passing nil for mapFn restores default heap
// ownership.
func (p *Parser) SetBufferAllocationCallbacks(mapFn MapBufferFunc, unmapFn UnmapBufferFunc, user interface{}) {
	p.mapBuffer = mapFn
	p.unmapBuffer = unmapFn
	p.user = user
}

// Error returns the error that made the last load fail.
func (p *Parser) Error() Error { return p.err }

// Diagnostic returns the detailed cause behind the last load failure, when
// one exists. It is a debugging aid; the Error code is the contract.
func (p *Parser) Diagnostic() error { return p.diag }

// Gltf is one in-progress parse: the document tree, the per-load options,
// the GLB state, and the sticky error. It is created by the Parser's load
// entry points and consumed through Parse/Validate/GetParsedAsset.
type Gltf struct {
	parser *Parser

	root    ast.Object
	options Options
	baseDir string

	glb *GLBBuffer

	asset  *Asset
	parsed Category

	err  Error
	diag error
}

// fail records the first error of the parse attempt. Later calls keep the
// original code.
func (g *Gltf) fail(code Error, cause error) Error {
	if g.err == ErrorNone && code != ErrorNone {
		g.err = code
		if cause != nil {
			g.diag = cause
		}
	}
	return g.err
}

// Error returns the sticky error of this parse attempt.
func (g *Gltf) Error() Error { return g.err }

// Diagnostic returns the detailed cause behind the sticky error, when one
// exists.
func (g *Gltf) Diagnostic() error { return g.diag }

// GetParsedAsset hands over the output aggregate. Ownership transfers
// exactly once: the second call, or any call after an error, returns nil.
func (g *Gltf) GetParsedAsset() *Asset {
	if g.err != ErrorNone {
		return nil
	}
	a := g.asset
	g.asset = nil
	return a
}

func newAsset() *Asset {
	return &Asset{DefaultScene: noIndex}
}

func (p *Parser) newGltf(options Options) *Gltf {
	p.err = ErrorNone
	p.diag = nil
	return &Gltf{
		parser:  p,
		options: options,
		asset:   newAsset(),
	}
}

// LoadGltfJSON parses a glTF document from pre-read JSON text. baseDir
// anchors relative buffer and image URIs. On failure it returns nil and the
// error is available from the Parser's getter.
func (p *Parser) LoadGltfJSON(data []byte, baseDir string, options Options) *Gltf {
	g := p.newGltf(options)
	g.baseDir = baseDir
	if !g.bindJSON(data) {
		p.err, p.diag = g.err, g.diag
		return nil
	}
	return g
}

// LoadGltf reads a .gltf file from disk and parses it as JSON text.
func (p *Parser) LoadGltf(path string, options Options) *Gltf {
	g := p.newGltf(options)
	if !checkFileExtension(path, ".gltf") {
		p.err = ErrorInvalidPath
		p.diag = errors.Errorf("expected a .gltf file, got %q", path)
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		p.err = ErrorInvalidPath
		p.diag = errors.Wrap(err, "reading gltf file")
		return nil
	}
	g.baseDir = filepath.Dir(path)
	if !g.bindJSON(data) {
		p.err, p.diag = g.err, g.diag
		return nil
	}
	return g
}

// LoadBinaryGltf reads a .glb container from disk, splits it into the JSON
// document and the binary chunk, and parses the document. With
// LoadGLBBuffers the binary chunk is read up front, into a caller-mapped
// destination when a map callback is registered; otherwise the chunk stays a
// deferred file range.
func (p *Parser) LoadBinaryGltf(path string, options Options) *Gltf {
	g := p.newGltf(options)
	if !checkFileExtension(path, ".glb") {
		p.err = ErrorInvalidPath
		p.diag = errors.Errorf("expected a .glb file, got %q", path)
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		p.err = ErrorInvalidPath
		p.diag = errors.Wrap(err, "reading glb file")
		return nil
	}

	jsonPayload, bin, err := splitGLB(data)
	if err != nil {
		p.err = ErrorInvalidGLB
		p.diag = err
		return nil
	}

	g.baseDir = filepath.Dir(path)
	if bin != nil {
		g.glb = &GLBBuffer{
			FileOffset: bin.offset,
			ByteLength: int64(bin.length),
			Path:       path,
		}
		if options.Has(LoadGLBBuffers) {
			chunk := data[bin.offset : bin.offset+int64(bin.length)]
			if p.mapBuffer != nil {
				info := p.mapBuffer(int64(bin.length), p.user)
				if info.Mapped != nil {
					copy(info.Mapped, chunk)
					if p.unmapBuffer != nil {
						p.unmapBuffer(info, p.user)
					}
					g.glb.CustomBufferID = info.ID
					g.glb.HasCustomID = true
				}
			}
			if !g.glb.HasCustomID {
				g.glb.Bytes = append([]byte(nil), chunk...)
			}
		}
	}

	if !g.bindJSON(jsonPayload) {
		p.err, p.diag = g.err, g.diag
		return nil
	}
	return g
}

// bindJSON feeds the bytes through the JSON engine, takes the root object,
// and runs the load-time structural checks: the asset version member and the
// required-extensions declaration.
func (g *Gltf) bindJSON(data []byte) bool {
	g.parser.rd.Reset(data)
	value, err := ast.ParseSingle(g.parser.rd)
	if err != nil {
		g.fail(ErrorInvalidJSON, errors.Wrap(err, "parsing document"))
		return false
	}
	root, ok := value.(ast.Object)
	if !ok {
		g.fail(ErrorInvalidJSON, errors.New("document root is not an object"))
		return false
	}
	g.root = root

	if !g.options.Has(DontRequireValidAssetMember) {
		if code := g.checkAssetMember(); code != ErrorNone {
			g.fail(code, nil)
			return false
		}
	}
	if code := g.checkRequiredExtensions(); code != ErrorNone {
		g.fail(code, nil)
		return false
	}
	return true
}

// checkAssetMember requires asset.version to exist and be a 2.x version.
func (g *Gltf) checkAssetMember() Error {
	obj, ok := objectField(g.root, "asset")
	if !ok {
		return ErrorMissingField
	}
	version, ok := stringField(obj, "version")
	if !ok {
		return ErrorMissingField
	}
	if !strings.HasPrefix(version, "2.") {
		return ErrorUnsupportedVersion
	}
	return ErrorNone
}

// checkRequiredExtensions walks extensionsRequired: names the loader does
// not implement are a capability error, names the caller did not declare
// support for are a different one.
func (g *Gltf) checkRequiredExtensions() Error {
	v := memberValue(g.root, "extensionsRequired")
	if v == nil {
		return ErrorNone
	}
	arr, ok := v.(ast.Array)
	if !ok {
		return ErrorInvalidGltf
	}
	for _, item := range arr {
		s, ok := item.(ast.Text)
		if !ok {
			return ErrorInvalidGltf
		}
		bit, known := extensionBits[s.String()]
		if !known {
			return ErrorUnknownRequiredExtension
		}
		if !g.parser.extensions.Has(bit) {
			return ErrorMissingExtensions
		}
	}
	return ErrorNone
}

func checkFileExtension(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}
