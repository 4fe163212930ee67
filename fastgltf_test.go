package fastgltf

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalGltf = `{
	"asset": {"version": "2.0", "generator": "test"},
	"scene": 0,
	"scenes": [{"name": "root", "nodes": [0]}],
	"nodes": [{"name": "box", "mesh": 0}],
	"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
	"accessors": [{"componentType": 5126, "type": "VEC3", "count": 3, "bufferView": 0}],
	"bufferViews": [{"buffer": 0, "byteLength": 36}],
	"buffers": [{"byteLength": 36, "uri": "data:application/octet-stream;base64,AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}]
}`

func loadJSON(t *testing.T, p *Parser, doc string, options Options) *Gltf {
	t.Helper()
	g := p.LoadGltfJSON([]byte(doc), t.TempDir(), options)
	if g == nil {
		t.Fatalf("load failed: %v (%v)", p.Error(), p.Diagnostic())
	}
	return g
}

func TestLoadMinimalDocument(t *testing.T) {
	parser := NewParser(ExtensionsNone)
	g := loadJSON(t, parser, minimalGltf, OptionsNone)

	if code := g.Parse(CategoryAll); code != ErrorNone {
		t.Fatalf("Parse: %v (%v)", code, g.Diagnostic())
	}
	if code := g.Validate(); code != ErrorNone {
		t.Fatalf("Validate: %v", code)
	}

	asset := g.GetParsedAsset()
	if asset == nil {
		t.Fatal("expected an asset")
	}
	if asset.Info.Version != "2.0" || asset.Info.Generator != "test" {
		t.Errorf("asset info = %+v", asset.Info)
	}
	if asset.DefaultScene != 0 || len(asset.Scenes) != 1 || asset.Scenes[0].Name != "root" {
		t.Errorf("scenes = %+v, default %d", asset.Scenes, asset.DefaultScene)
	}
	if len(asset.Nodes) != 1 || asset.Nodes[0].MeshIndex != 0 {
		t.Errorf("nodes = %+v", asset.Nodes)
	}
	if len(asset.Buffers) != 1 || asset.Buffers[0].ByteLength != 36 {
		t.Errorf("buffers = %+v", asset.Buffers)
	}
	src, ok := asset.Buffers[0].Data.(ByteSource)
	if !ok || len(src.Bytes) != 36 {
		t.Errorf("buffer source = %#v", asset.Buffers[0].Data)
	}
}

func TestGetParsedAssetConsumesOnce(t *testing.T) {
	parser := NewParser(ExtensionsNone)
	g := loadJSON(t, parser, minimalGltf, OptionsNone)
	if code := g.Parse(CategoryAll); code != ErrorNone {
		t.Fatalf("Parse: %v", code)
	}
	if first := g.GetParsedAsset(); first == nil {
		t.Fatal("first extraction returned nil")
	}
	if second := g.GetParsedAsset(); second != nil {
		t.Fatal("second extraction must not yield another asset")
	}
}

func TestInvalidJSON(t *testing.T) {
	parser := NewParser(ExtensionsNone)
	if g := parser.LoadGltfJSON([]byte("{broken"), "", OptionsNone); g != nil {
		t.Fatal(" expected load failure")
	}
	if parser.Error() != ErrorInvalidJSON {
		t.Errorf("error = %v; expected %v", parser.Error(), ErrorInvalidJSON)
	}
}

func TestAssetMemberChecks(t *testing.T) {
	noAsset := `{"scenes": []}`
	oldVersion := `{"asset": {"version": "1.0"}}`

	parser := NewParser(ExtensionsNone)
	if g := parser.LoadGltfJSON([]byte(noAsset), "", OptionsNone); g != nil {
		t.Fatal("expected failure without asset member")
	}
	if parser.Error() != ErrorMissingField {
		t.Errorf("error = %v; expected %v", parser.Error(), ErrorMissingField)
	}

	if g := parser.LoadGltfJSON([]byte(oldVersion), "", OptionsNone); g != nil {
		t.Fatal("expected failure for version 1.0")
	}
	if parser.Error() != ErrorUnsupportedVersion {
		t.Errorf("error = %v; expected %v", parser.Error(), ErrorUnsupportedVersion)
	}

	// Opting out accepts the same document.
	if g := parser.LoadGltfJSON([]byte(noAsset), "", DontRequireValidAssetMember); g == nil {
		t.Fatalf("opt-out load failed: %v", parser.Error())
	}
}

func TestRequiredExtensions(t *testing.T) {
	known := `{"asset": {"version": "2.0"}, "extensionsRequired": ["KHR_texture_transform"]}`
	unknown := `{"asset": {"version": "2.0"}, "extensionsRequired": ["VENDOR_made_up"]}`

	parser := NewParser(ExtensionsNone)
	if g := parser.LoadGltfJSON([]byte(known), "", OptionsNone); g != nil {
		t.Fatal("expected failure: extension not declared by caller")
	}
	if parser.Error() != ErrorMissingExtensions {
		t.Errorf("error = %v; expected %v", parser.Error(), ErrorMissingExtensions)
	}

	if g := parser.LoadGltfJSON([]byte(unknown), "", OptionsNone); g != nil {
		t.Fatal("expected failure: extension unknown to loader")
	}
	if parser.Error() != ErrorUnknownRequiredExtension {
		t.Errorf("error = %v; expected %v", parser.Error(), ErrorUnknownRequiredExtension)
	}

	declared := NewParser(ExtensionKHRTextureTransform)
	if g := declared.LoadGltfJSON([]byte(known), "", OptionsNone); g == nil {
		t.Fatalf("declared extension load failed: %v", declared.Error())
	}
}

func TestLoadGltfFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.gltf")
	if err := os.WriteFile(path, []byte(minimalGltf), 0o644); err != nil {
		t.Fatal(err)
	}

	parser := NewParser(ExtensionsNone)
	g := parser.LoadGltf(path, OptionsNone)
	if g == nil {
		t.Fatalf("load failed: %v", parser.Error())
	}
	if code := g.Parse(CategoryAll); code != ErrorNone {
		t.Fatalf("Parse: %v", code)
	}

	if parser.LoadGltf(filepath.Join(dir, "missing.gltf"), OptionsNone) != nil {
		t.Fatal("expected failure for missing file")
	}
	if parser.Error() != ErrorInvalidPath {
		t.Errorf("error = %v; expected %v", parser.Error(), ErrorInvalidPath)
	}

	if parser.LoadGltf(filepath.Join(dir, "scene.glb"), OptionsNone) != nil {
		t.Fatal("expected failure for wrong extension")
	}
	if parser.Error() != ErrorInvalidPath {
		t.Errorf("error = %v; expected %v", parser.Error(), ErrorInvalidPath)
	}
}

func TestParserReuseAcrossLoads(t *testing.T) {
	parser := NewParser(ExtensionsNone)
	for i := 0; i < 3; i++ {
		g := loadJSON(t, parser, minimalGltf, OptionsNone)
		if code := g.Parse(CategoryAll); code != ErrorNone {
			t.Fatalf("load %d: %v", i, code)
		}
		if g.GetParsedAsset() == nil {
			t.Fatalf("load %d produced no asset", i)
		}
	}
}
