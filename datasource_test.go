package fastgltf

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// writeTriangleGLB authors a one-triangle GLB with an independent encoder
// and returns its path together with the expected binary chunk content.
func writeTriangleGLB(t *testing.T, dir string) (string, []byte) {
	t.Helper()

	doc := gltf.NewDocument()
	positions := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	indices := modeler.WriteIndices(doc, []uint32{0, 1, 2})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "triangle",
		Primitives: []*gltf.Primitive{
			{
				Indices:    &indices,
				Attributes: map[string]uint32{"POSITION": positions},
			},
		},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "triangle", Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	path := filepath.Join(dir, "triangle.glb")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := gltf.NewEncoder(f)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return path, doc.Buffers[0].Data
}

func TestGLBBufferDeferred(t *testing.T) {
	path, want := writeTriangleGLB(t, t.TempDir())

	parser := NewParser(ExtensionsNone)
	g := parser.LoadBinaryGltf(path, OptionsNone)
	if g == nil {
		t.Fatalf("load failed: %v (%v)", parser.Error(), parser.Diagnostic())
	}
	if code := g.Parse(CategoryBuffers); code != ErrorNone {
		t.Fatalf("Parse: %v", code)
	}

	asset := g.GetParsedAsset()
	if len(asset.Buffers) != 1 {
		t.Fatalf("buffers = %d", len(asset.Buffers))
	}
	src, ok := asset.Buffers[0].Data.(FilePathSource)
	if !ok {
		t.Fatalf("expected a deferred file range, got %#v", asset.Buffers[0].Data)
	}
	if src.Path != path || src.FileByteOffset <= glbHeaderSize || src.FileByteOffset%4 != 0 {
		t.Errorf("unexpected range: %+v", src)
	}

	rd, closeFn, err := src.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	got, err := io.ReadAll(rd)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got[:len(want)], want) {
		t.Error("deferred read does not match the encoded binary chunk")
	}
}

func TestGLBBufferEager(t *testing.T) {
	path, want := writeTriangleGLB(t, t.TempDir())

	parser := NewParser(ExtensionsNone)
	g := parser.LoadBinaryGltf(path, LoadGLBBuffers)
	if g == nil {
		t.Fatalf("load failed: %v", parser.Error())
	}
	if code := g.Parse(CategoryBuffers); code != ErrorNone {
		t.Fatalf("Parse: %v", code)
	}

	asset := g.GetParsedAsset()
	src, ok := asset.Buffers[0].Data.(ByteSource)
	if !ok {
		t.Fatalf("expected owned bytes, got %#v", asset.Buffers[0].Data)
	}
	if !bytes.Equal(src.Bytes[:len(want)], want) {
		t.Error("eager bytes do not match the encoded binary chunk")
	}
}

// allocRecorder implements the allocation protocol and records every call.
type allocRecorder struct {
	mapped   [][]byte
	unmapped []uint64
	nextID   uint64
}

func (r *allocRecorder) mapBuffer(size int64, user interface{}) BufferInfo {
	r.nextID++
	dst := make([]byte, size)
	r.mapped = append(r.mapped, dst)
	return BufferInfo{Mapped: dst, ID: r.nextID}
}

func (r *allocRecorder) unmapBuffer(info BufferInfo, user interface{}) {
	r.unmapped = append(r.unmapped, info.ID)
}

func TestGLBBufferMapped(t *testing.T) {
	path, want := writeTriangleGLB(t, t.TempDir())

	rec := &allocRecorder{nextID: 100}
	parser := NewParser(ExtensionsNone)
	parser.SetBufferAllocationCallbacks(rec.mapBuffer, rec.unmapBuffer, nil)

	g := parser.LoadBinaryGltf(path, LoadGLBBuffers)
	if g == nil {
		t.Fatalf("load failed: %v", parser.Error())
	}
	if code := g.Parse(CategoryBuffers); code != ErrorNone {
		t.Fatalf("Parse: %v", code)
	}

	asset := g.GetParsedAsset()
	src, ok := asset.Buffers[0].Data.(CustomBufferSource)
	if !ok {
		t.Fatalf("expected a caller-mapped buffer, got %#v", asset.Buffers[0].Data)
	}
	if src.ID != 101 {
		t.Errorf("buffer id = %d; expected 101", src.ID)
	}
	if len(rec.mapped) != 1 {
		t.Fatalf("map called %d times; expected once", len(rec.mapped))
	}
	if !bytes.Equal(rec.mapped[0][:len(want)], want) {
		t.Error("mapped destination does not hold the binary chunk")
	}
	if len(rec.unmapped) != 1 || rec.unmapped[0] != 101 {
		t.Errorf("unmap calls = %v; expected exactly [101]", rec.unmapped)
	}
}

func TestDataURIMapped(t *testing.T) {
	doc := `{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": 2, "uri": "data:application/octet-stream;base64,/wA="}]
	}`
	rec := &allocRecorder{}
	parser := NewParser(ExtensionsNone)
	parser.SetBufferAllocationCallbacks(rec.mapBuffer, rec.unmapBuffer, nil)

	g := loadJSON(t, parser, doc, OptionsNone)
	if code := g.Parse(CategoryBuffers); code != ErrorNone {
		t.Fatalf("Parse: %v", code)
	}

	asset := g.GetParsedAsset()
	src, ok := asset.Buffers[0].Data.(CustomBufferSource)
	if !ok {
		t.Fatalf("expected a caller-mapped buffer, got %#v", asset.Buffers[0].Data)
	}
	if len(rec.mapped) != 1 || !bytes.Equal(rec.mapped[0], []byte{0xFF, 0x00}) {
		t.Errorf("mapped content = %v; expected [255 0]", rec.mapped)
	}
	if len(rec.unmapped) != 1 || rec.unmapped[0] != src.ID {
		t.Errorf("unmap calls = %v; expected exactly one with id %d", rec.unmapped, src.ID)
	}
}

func TestExternalBufferResolution(t *testing.T) {
	dir := t.TempDir()
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := os.WriteFile(filepath.Join(dir, "mesh.bin"), payload, 0o644); err != nil {
		t.Fatal(err)
	}
	doc := `{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": 8, "uri": "mesh.bin"}]
	}`

	t.Run("deferred", func(t *testing.T) {
		parser := NewParser(ExtensionsNone)
		g := parser.LoadGltfJSON([]byte(doc), dir, OptionsNone)
		if g == nil {
			t.Fatalf("load failed: %v", parser.Error())
		}
		if code := g.Parse(CategoryBuffers); code != ErrorNone {
			t.Fatalf("Parse: %v", code)
		}
		src, ok := g.GetParsedAsset().Buffers[0].Data.(FilePathSource)
		if !ok {
			t.Fatalf("expected a deferred path, got %#v", src)
		}
		if src.ByteLength != int64(len(payload)) {
			t.Errorf("byte length = %d", src.ByteLength)
		}
		rd, closeFn, err := src.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer closeFn()
		got, _ := io.ReadAll(rd)
		if !bytes.Equal(got, payload) {
			t.Errorf("deferred read = %v", got)
		}
	})

	t.Run("eager", func(t *testing.T) {
		parser := NewParser(ExtensionsNone)
		g := parser.LoadGltfJSON([]byte(doc), dir, LoadExternalBuffers)
		if g == nil {
			t.Fatalf("load failed: %v", parser.Error())
		}
		if code := g.Parse(CategoryBuffers); code != ErrorNone {
			t.Fatalf("Parse: %v", code)
		}
		src, ok := g.GetParsedAsset().Buffers[0].Data.(ByteSource)
		if !ok || !bytes.Equal(src.Bytes, payload) {
			t.Fatalf("expected owned payload bytes, got %#v", src)
		}
	})

	t.Run("missing", func(t *testing.T) {
		missing := `{
			"asset": {"version": "2.0"},
			"buffers": [{"byteLength": 8, "uri": "gone.bin"}]
		}`
		parser := NewParser(ExtensionsNone)
		g := parser.LoadGltfJSON([]byte(missing), dir, OptionsNone)
		if g == nil {
			t.Fatalf("load failed: %v", parser.Error())
		}
		if code := g.Parse(CategoryBuffers); code != ErrorMissingExternalBuffer {
			t.Fatalf("Parse = %v; expected %v", code, ErrorMissingExternalBuffer)
		}
	})
}

func TestDataURIRejectsOtherEncodings(t *testing.T) {
	doc := `{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": 3, "uri": "data:text/plain,abc"}]
	}`
	parser := NewParser(ExtensionsNone)
	g := loadJSON(t, parser, doc, OptionsNone)
	if code := g.Parse(CategoryBuffers); code != ErrorInvalidGltf {
		t.Fatalf("Parse = %v; expected %v", code, ErrorInvalidGltf)
	}
}

func TestImageSources(t *testing.T) {
	doc := `{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": 4, "uri": "data:application/octet-stream;base64,AAAAAA=="}],
		"bufferViews": [{"buffer": 0, "byteLength": 4}],
		"images": [
			{"bufferView": 0, "mimeType": "image/png"},
			{"uri": "data:image/png;base64,/wA="}
		]
	}`
	parser := NewParser(ExtensionsNone)
	g := loadJSON(t, parser, doc, OptionsNone)
	if code := g.Parse(CategoryImages); code != ErrorNone {
		t.Fatalf("Parse: %v (%v)", code, g.Diagnostic())
	}

	asset := g.GetParsedAsset()
	if len(asset.Images) != 2 {
		t.Fatalf("images = %d", len(asset.Images))
	}
	view, ok := asset.Images[0].Data.(BufferViewSource)
	if !ok || view.BufferViewIndex != 0 || view.MimeType != MimePNG {
		t.Errorf("image 0 source = %#v", asset.Images[0].Data)
	}
	owned, ok := asset.Images[1].Data.(ByteSource)
	if !ok || !bytes.Equal(owned.Bytes, []byte{0xFF, 0x00}) || owned.MimeType != MimePNG {
		t.Errorf("image 1 source = %#v", asset.Images[1].Data)
	}
}
