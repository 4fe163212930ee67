package fastgltf

import (
	"github.com/creachadair/jtree/ast"
	"github.com/go-gl/mathgl/mgl32"
)

// extensionPayload returns the named extension object when the caller
// declared support for it and the document carries it on obj. Extension
// payloads the caller did not opt into are ignored, never errors.
func (g *Gltf) extensionPayload(obj ast.Object, name string, bit Extensions) (ast.Object, bool) {
	if !g.parser.extensions.Has(bit) {
		return nil, false
	}
	ext, ok := objectField(obj, "extensions")
	if !ok {
		return nil, false
	}
	return objectField(ext, name)
}

func (g *Gltf) parseTextureExtensions(obj ast.Object, tex *Texture) {
	if payload, ok := g.extensionPayload(obj, "KHR_texture_basisu", ExtensionKHRTextureBasisu); ok {
		tex.BasisuImageIndex, _ = g.indexField(payload, "source")
	}
	if payload, ok := g.extensionPayload(obj, "MSFT_texture_dds", ExtensionMSFTTextureDDS); ok {
		tex.DDSImageIndex, _ = g.indexField(payload, "source")
	}
}

func (g *Gltf) parseTextureInfoExtensions(obj ast.Object, info *TextureInfo) {
	payload, ok := g.extensionPayload(obj, "KHR_texture_transform", ExtensionKHRTextureTransform)
	if !ok {
		return
	}
	tr := &TextureTransform{
		UVScale:       mgl32.Vec2{1, 1},
		TexCoordIndex: info.TexCoordIndex,
	}
	tr.Rotation, _ = floatField(payload, "rotation")
	var offset [2]float32
	if floatsField(payload, "offset", offset[:]) {
		tr.UVOffset = mgl32.Vec2(offset)
	}
	var scale [2]float32
	if floatsField(payload, "scale", scale[:]) {
		tr.UVScale = mgl32.Vec2(scale)
	}
	if v, ok := g.intField(payload, "texCoord"); ok {
		tr.TexCoordIndex = int(v)
	}
	info.Transform = tr
}

func (g *Gltf) parseMaterialExtensions(obj ast.Object, mat *Material) {
	if payload, ok := g.extensionPayload(obj, "KHR_materials_emissive_strength", ExtensionKHRMaterialsEmissiveStrength); ok {
		if v, ok := floatField(payload, "emissiveStrength"); ok {
			mat.EmissiveStrength = v
		}
	}
}
