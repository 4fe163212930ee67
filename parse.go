package fastgltf

import (
	"github.com/creachadair/jtree/ast"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Field access helpers over the document tree. Getters report ok only when
// the member is present and has a usable type, so required fields check ok
// and optional fields fall back to their default on !ok, the same way the
// original schema treats them. Lookups are case-sensitive; the ast package's
// own Find folds case, which glTF keys must not.

func memberValue(obj ast.Object, key string) ast.Value {
	if m := obj.FindKey(ast.TextEqual(key)); m != nil {
		return m.Value
	}
	return nil
}

func objectField(obj ast.Object, key string) (ast.Object, bool) {
	o, ok := memberValue(obj, key).(ast.Object)
	return o, ok
}

func arrayField(obj ast.Object, key string) (ast.Array, bool) {
	a, ok := memberValue(obj, key).(ast.Array)
	return a, ok
}

func stringField(obj ast.Object, key string) (string, bool) {
	s, ok := memberValue(obj, key).(ast.Text)
	if !ok {
		return "", false
	}
	return s.String(), true
}

func boolField(obj ast.Object, key string) (bool, bool) {
	b, ok := memberValue(obj, key).(ast.Bool)
	if !ok {
		return false, false
	}
	return bool(b), true
}

func floatField(obj ast.Object, key string) (float32, bool) {
	n, ok := memberValue(obj, key).(ast.Number)
	if !ok {
		return 0, false
	}
	return float32(n.Float()), true
}

// intField accepts integers, and with AllowDouble also truncating floats.
func (g *Gltf) intField(obj ast.Object, key string) (int64, bool) {
	n, ok := memberValue(obj, key).(ast.Number)
	if !ok {
		return 0, false
	}
	if !n.IsInt() && !g.options.Has(AllowDouble) {
		return 0, false
	}
	return int64(n.Int()), true
}

// indexField reads an optional index member, noIndex when absent.
func (g *Gltf) indexField(obj ast.Object, key string) (int, bool) {
	v, ok := g.intField(obj, key)
	if !ok {
		return noIndex, false
	}
	return int(v), true
}

// floatsField fills out from a fixed-length number array; false if the
// member is absent, too short, or not numeric.
func floatsField(obj ast.Object, key string, out []float32) bool {
	arr, ok := arrayField(obj, key)
	if !ok || len(arr) != len(out) {
		return false
	}
	for i, v := range arr {
		n, ok := v.(ast.Number)
		if !ok {
			return false
		}
		out[i] = float32(n.Float())
	}
	return true
}

// intsField reads an integer array member; nil when absent, false on a
// non-integer element.
func (g *Gltf) intsField(obj ast.Object, key string) ([]int, bool) {
	arr, ok := arrayField(obj, key)
	if !ok {
		return nil, true
	}
	out := make([]int, 0, len(arr))
	for _, v := range arr {
		n, ok := v.(ast.Number)
		if !ok || !n.IsInt() {
			return nil, false
		}
		out = append(out, int(n.Int()))
	}
	return out, true
}

// eachObject runs fn over every object of the named root array. An absent
// array is not an error; a present array with non-object elements is.
func (g *Gltf) eachObject(name string, fn func(ast.Object) Error) Error {
	v := memberValue(g.root, name)
	if v == nil {
		return ErrorNone
	}
	arr, ok := v.(ast.Array)
	if !ok {
		g.diag = errors.Errorf("root member %q is not an array", name)
		return ErrorInvalidGltf
	}
	for i, item := range arr {
		obj, ok := item.(ast.Object)
		if !ok {
			g.diag = errors.Errorf("%s[%d] is not an object", name, i)
			return ErrorInvalidGltf
		}
		if code := fn(obj); code != ErrorNone {
			if g.diag == nil {
				g.diag = errors.Errorf("in %s[%d]", name, i)
			}
			return code
		}
	}
	return ErrorNone
}

// parseStep couples a section parser with the Category value that requests it
// and the single raw bit that marks it complete. Completion must be tracked
// by the raw bit: the closed Category value also contains dependency bits, so
// testing it against g.parsed would mark a step done as soon as its
// dependencies ran.
type parseStep struct {
	category Category
	rawBit   Category
	parse    func(*Gltf) Error
}

// parseSteps is the fixed dependency-safe order: producers before consumers,
// so later steps can consult already-populated sections of the asset.
var parseSteps = []parseStep{
	{CategoryAsset, categoryAssetBit, (*Gltf).parseAssetInfo},
	{CategoryBuffers, categoryBuffersBit, (*Gltf).parseBuffers},
	{CategoryBufferViews, categoryBufferViewsBit, (*Gltf).parseBufferViews},
	{CategoryAccessors, categoryAccessorsBit, (*Gltf).parseAccessors},
	{CategoryImages, categoryImagesBit, (*Gltf).parseImages},
	{CategorySamplers, categorySamplersBit, (*Gltf).parseSamplers},
	{CategoryTextures, categoryTexturesBit, (*Gltf).parseTextures},
	{CategoryMaterials, categoryMaterialsBit, (*Gltf).parseMaterials},
	{CategoryCameras, categoryCamerasBit, (*Gltf).parseCameras},
	{CategoryMeshes, categoryMeshesBit, (*Gltf).parseMeshes},
	{CategorySkins, categorySkinsBit, (*Gltf).parseSkins},
	{CategoryAnimations, categoryAnimationsBit, (*Gltf).parseAnimations},
	{CategoryNodes, categoryNodesBit, (*Gltf).parseNodes},
	{CategoryScenes, categoryScenesBit, (*Gltf).parseScenes},
}

// Parse populates the asset for every category whose bits are fully present
// in the request. Category values already carry their dependency bits, so
// the request needs no separate closure step. Parsing halts at the first
// error, leaving the aggregate partially populated; already-parsed
// categories are not re-parsed on a later call.
func (g *Gltf) Parse(categories Category) Error {
	if g.err != ErrorNone {
		return g.err
	}
	if g.root == nil {
		return g.fail(ErrorInvalidJSON, errors.New("no document bound"))
	}
	for _, step := range parseSteps {
		if !categories.Has(step.category) || g.parsed&step.rawBit != 0 {
			continue
		}
		if code := step.parse(g); code != ErrorNone {
			return g.fail(code, nil)
		}
		g.parsed |= step.rawBit
	}
	return ErrorNone
}

func (g *Gltf) parseAssetInfo() Error {
	obj, ok := objectField(g.root, "asset")
	if !ok {
		// Absence was already rejected at load unless the caller opted out.
		return ErrorNone
	}
	g.asset.Info.Version, _ = stringField(obj, "version")
	g.asset.Info.Generator, _ = stringField(obj, "generator")
	g.asset.Info.Copyright, _ = stringField(obj, "copyright")
	return ErrorNone
}

func (g *Gltf) parseBuffers() Error {
	return g.eachObject("buffers", func(obj ast.Object) Error {
		byteLength, ok := g.intField(obj, "byteLength")
		if !ok {
			return ErrorInvalidGltf
		}
		uri, hasURI := stringField(obj, "uri")
		src, code := g.resolveBuffer(uri, hasURI)
		if code != ErrorNone {
			return code
		}
		name, _ := stringField(obj, "name")
		g.asset.Buffers = append(g.asset.Buffers, Buffer{
			ByteLength: byteLength,
			Data:       src,
			Name:       name,
		})
		return ErrorNone
	})
}

func (g *Gltf) parseBufferViews() Error {
	return g.eachObject("bufferViews", func(obj ast.Object) Error {
		view := BufferView{}
		idx, ok := g.indexField(obj, "buffer")
		if !ok {
			return ErrorInvalidGltf
		}
		view.BufferIndex = idx
		if view.ByteLength, ok = g.intField(obj, "byteLength"); !ok {
			return ErrorInvalidGltf
		}
		view.ByteOffset, _ = g.intField(obj, "byteOffset")
		view.ByteStride, _ = g.intField(obj, "byteStride")
		if t, ok := g.intField(obj, "target"); ok {
			view.Target = BufferTarget(t)
		}
		view.Name, _ = stringField(obj, "name")
		g.asset.BufferViews = append(g.asset.BufferViews, view)
		return ErrorNone
	})
}

func (g *Gltf) parseAccessors() Error {
	return g.eachObject("accessors", func(obj ast.Object) Error {
		acc := Accessor{BufferViewIndex: noIndex}

		ct, ok := g.intField(obj, "componentType")
		if !ok {
			return ErrorInvalidGltf
		}
		if acc.ComponentType = componentTypeFromGL(uint32(ct)); acc.ComponentType == ComponentInvalid {
			return ErrorInvalidGltf
		}
		if acc.ComponentType == ComponentDouble && !g.options.Has(AllowDouble) {
			return ErrorInvalidGltf
		}

		typeName, ok := stringField(obj, "type")
		if !ok {
			return ErrorInvalidGltf
		}
		if acc.Type = accessorTypes[typeName]; acc.Type == AccessorInvalid {
			return ErrorInvalidGltf
		}

		if acc.Count, ok = g.intField(obj, "count"); !ok {
			return ErrorInvalidGltf
		}
		acc.BufferViewIndex, _ = g.indexField(obj, "bufferView")
		acc.ByteOffset, _ = g.intField(obj, "byteOffset")
		acc.Normalized, _ = boolField(obj, "normalized")
		acc.Name, _ = stringField(obj, "name")
		g.asset.Accessors = append(g.asset.Accessors, acc)
		return ErrorNone
	})
}

func (g *Gltf) parseImages() Error {
	return g.eachObject("images", func(obj ast.Object) Error {
		uri, hasURI := stringField(obj, "uri")
		bufferView, hasView := g.indexField(obj, "bufferView")
		if hasURI && hasView {
			// The two sources are mutually exclusive.
			return ErrorInvalidGltf
		}
		mimeName, _ := stringField(obj, "mimeType")
		src, code := g.resolveImage(uri, hasURI, bufferView, mimeTypes[mimeName])
		if code != ErrorNone {
			return code
		}
		name, _ := stringField(obj, "name")
		g.asset.Images = append(g.asset.Images, Image{Data: src, Name: name})
		return ErrorNone
	})
}

func (g *Gltf) parseSamplers() Error {
	return g.eachObject("samplers", func(obj ast.Object) Error {
		s := Sampler{WrapS: WrapRepeat, WrapT: WrapRepeat}
		if v, ok := g.intField(obj, "magFilter"); ok {
			s.MagFilter = Filter(v)
		}
		if v, ok := g.intField(obj, "minFilter"); ok {
			s.MinFilter = Filter(v)
		}
		if v, ok := g.intField(obj, "wrapS"); ok {
			s.WrapS = Wrap(v)
		}
		if v, ok := g.intField(obj, "wrapT"); ok {
			s.WrapT = Wrap(v)
		}
		s.Name, _ = stringField(obj, "name")
		g.asset.Samplers = append(g.asset.Samplers, s)
		return ErrorNone
	})
}

func (g *Gltf) parseTextures() Error {
	return g.eachObject("textures", func(obj ast.Object) Error {
		tex := Texture{
			ImageIndex:       noIndex,
			BasisuImageIndex: noIndex,
			DDSImageIndex:    noIndex,
			SamplerIndex:     noIndex,
		}
		tex.ImageIndex, _ = g.indexField(obj, "source")
		tex.SamplerIndex, _ = g.indexField(obj, "sampler")
		g.parseTextureExtensions(obj, &tex)
		if tex.ImageIndex == noIndex && tex.BasisuImageIndex == noIndex && tex.DDSImageIndex == noIndex {
			return ErrorInvalidGltf
		}
		tex.Name, _ = stringField(obj, "name")
		g.asset.Textures = append(g.asset.Textures, tex)
		return ErrorNone
	})
}

// parseTextureInfo reads a texture reference member, nil when absent.
// scaleKey names the extra scalar some references carry ("scale" on normal
// textures, "strength" on occlusion).
func (g *Gltf) parseTextureInfo(parent ast.Object, key, scaleKey string) (*TextureInfo, Error) {
	obj, ok := objectField(parent, key)
	if !ok {
		return nil, ErrorNone
	}
	info := &TextureInfo{Scale: 1}
	if info.TextureIndex, ok = g.indexField(obj, "index"); !ok {
		return nil, ErrorInvalidGltf
	}
	if v, ok := g.intField(obj, "texCoord"); ok {
		info.TexCoordIndex = int(v)
	}
	if scaleKey != "" {
		if v, ok := floatField(obj, scaleKey); ok {
			info.Scale = v
		}
	}
	g.parseTextureInfoExtensions(obj, info)
	return info, ErrorNone
}

func (g *Gltf) parseMaterials() Error {
	return g.eachObject("materials", func(obj ast.Object) Error {
		mat := Material{AlphaCutoff: 0.5, EmissiveStrength: 1}

		if pbrObj, ok := objectField(obj, "pbrMetallicRoughness"); ok {
			pbr := &PBRData{
				BaseColorFactor: mgl32.Vec4{1, 1, 1, 1},
				MetallicFactor:  1,
				RoughnessFactor: 1,
			}
			var factor [4]float32
			if floatsField(pbrObj, "baseColorFactor", factor[:]) {
				pbr.BaseColorFactor = mgl32.Vec4(factor)
			}
			if v, ok := floatField(pbrObj, "metallicFactor"); ok {
				pbr.MetallicFactor = v
			}
			if v, ok := floatField(pbrObj, "roughnessFactor"); ok {
				pbr.RoughnessFactor = v
			}
			var code Error
			if pbr.BaseColorTexture, code = g.parseTextureInfo(pbrObj, "baseColorTexture", ""); code != ErrorNone {
				return code
			}
			if pbr.MetallicRoughnessTexture, code = g.parseTextureInfo(pbrObj, "metallicRoughnessTexture", ""); code != ErrorNone {
				return code
			}
			mat.PBR = pbr
		}

		var code Error
		if mat.NormalTexture, code = g.parseTextureInfo(obj, "normalTexture", "scale"); code != ErrorNone {
			return code
		}
		if mat.OcclusionTexture, code = g.parseTextureInfo(obj, "occlusionTexture", "strength"); code != ErrorNone {
			return code
		}
		if mat.EmissiveTexture, code = g.parseTextureInfo(obj, "emissiveTexture", ""); code != ErrorNone {
			return code
		}

		var emissive [3]float32
		if floatsField(obj, "emissiveFactor", emissive[:]) {
			mat.EmissiveFactor = mgl32.Vec3(emissive)
		}

		if mode, ok := stringField(obj, "alphaMode"); ok {
			switch mode {
			case "OPAQUE":
				mat.AlphaMode = AlphaOpaque
			case "MASK":
				mat.AlphaMode = AlphaMask
			case "BLEND":
				mat.AlphaMode = AlphaBlend
			default:
				return ErrorInvalidGltf
			}
		}
		if v, ok := floatField(obj, "alphaCutoff"); ok {
			mat.AlphaCutoff = v
		}
		mat.DoubleSided, _ = boolField(obj, "doubleSided")
		g.parseMaterialExtensions(obj, &mat)
		mat.Name, _ = stringField(obj, "name")
		g.asset.Materials = append(g.asset.Materials, mat)
		return ErrorNone
	})
}

func (g *Gltf) parseCameras() Error {
	return g.eachObject("cameras", func(obj ast.Object) Error {
		cam := Camera{}
		typeName, ok := stringField(obj, "type")
		if !ok {
			return ErrorInvalidGltf
		}
		switch typeName {
		case "perspective":
			cam.Type = CameraPerspective
			p, ok := objectField(obj, "perspective")
			if !ok {
				return ErrorInvalidGltf
			}
			if cam.Perspective.YFov, ok = floatField(p, "yfov"); !ok {
				return ErrorInvalidGltf
			}
			if cam.Perspective.ZNear, ok = floatField(p, "znear"); !ok {
				return ErrorInvalidGltf
			}
			cam.Perspective.AspectRatio, _ = floatField(p, "aspectRatio")
			cam.Perspective.ZFar, _ = floatField(p, "zfar")
		case "orthographic":
			cam.Type = CameraOrthographic
			o, ok := objectField(obj, "orthographic")
			if !ok {
				return ErrorInvalidGltf
			}
			if cam.Orthographic.XMag, ok = floatField(o, "xmag"); !ok {
				return ErrorInvalidGltf
			}
			if cam.Orthographic.YMag, ok = floatField(o, "ymag"); !ok {
				return ErrorInvalidGltf
			}
			if cam.Orthographic.ZFar, ok = floatField(o, "zfar"); !ok {
				return ErrorInvalidGltf
			}
			if cam.Orthographic.ZNear, ok = floatField(o, "znear"); !ok {
				return ErrorInvalidGltf
			}
		default:
			return ErrorInvalidGltf
		}
		cam.Name, _ = stringField(obj, "name")
		g.asset.Cameras = append(g.asset.Cameras, cam)
		return ErrorNone
	})
}

func (g *Gltf) parseMeshes() Error {
	return g.eachObject("meshes", func(obj ast.Object) Error {
		mesh := Mesh{}
		prims, ok := arrayField(obj, "primitives")
		if !ok {
			return ErrorInvalidGltf
		}
		for _, v := range prims {
			primObj, ok := v.(ast.Object)
			if !ok {
				return ErrorInvalidGltf
			}
			prim := Primitive{
				Type:            PrimitiveTriangles,
				IndicesAccessor: noIndex,
				MaterialIndex:   noIndex,
			}
			attrs, ok := objectField(primObj, "attributes")
			if !ok {
				return ErrorInvalidGltf
			}
			prim.Attributes = make(map[string]int, len(attrs))
			for _, m := range attrs {
				n, ok := m.Value.(ast.Number)
				if !ok || !n.IsInt() {
					return ErrorInvalidGltf
				}
				prim.Attributes[m.Key.String()] = int(n.Int())
			}
			if mode, ok := g.intField(primObj, "mode"); ok {
				prim.Type = PrimitiveType(mode)
			}
			prim.IndicesAccessor, _ = g.indexField(primObj, "indices")
			prim.MaterialIndex, _ = g.indexField(primObj, "material")
			mesh.Primitives = append(mesh.Primitives, prim)
		}
		mesh.Name, _ = stringField(obj, "name")
		g.asset.Meshes = append(g.asset.Meshes, mesh)
		return ErrorNone
	})
}

func (g *Gltf) parseSkins() Error {
	return g.eachObject("skins", func(obj ast.Object) Error {
		skin := Skin{Skeleton: noIndex, InverseBindMatrices: noIndex}
		joints, ok := g.intsField(obj, "joints")
		if !ok || joints == nil {
			return ErrorInvalidGltf
		}
		skin.Joints = joints
		skin.Skeleton, _ = g.indexField(obj, "skeleton")
		skin.InverseBindMatrices, _ = g.indexField(obj, "inverseBindMatrices")
		skin.Name, _ = stringField(obj, "name")
		g.asset.Skins = append(g.asset.Skins, skin)
		return ErrorNone
	})
}

var animationPaths = map[string]AnimationPath{
	"translation": PathTranslation,
	"rotation":    PathRotation,
	"scale":       PathScale,
	"weights":     PathWeights,
}

var animationInterpolations = map[string]AnimationInterpolation{
	"LINEAR":      InterpolationLinear,
	"STEP":        InterpolationStep,
	"CUBICSPLINE": InterpolationCubicSpline,
}

func (g *Gltf) parseAnimations() Error {
	return g.eachObject("animations", func(obj ast.Object) Error {
		anim := Animation{}

		channels, ok := arrayField(obj, "channels")
		if !ok {
			return ErrorInvalidGltf
		}
		for _, v := range channels {
			chObj, ok := v.(ast.Object)
			if !ok {
				return ErrorInvalidGltf
			}
			ch := AnimationChannel{NodeIndex: noIndex}
			if ch.SamplerIndex, ok = g.indexField(chObj, "sampler"); !ok {
				return ErrorInvalidGltf
			}
			target, ok := objectField(chObj, "target")
			if !ok {
				return ErrorInvalidGltf
			}
			ch.NodeIndex, _ = g.indexField(target, "node")
			pathName, ok := stringField(target, "path")
			if !ok {
				return ErrorInvalidGltf
			}
			if ch.Path = animationPaths[pathName]; ch.Path == PathInvalid {
				return ErrorInvalidGltf
			}
			anim.Channels = append(anim.Channels, ch)
		}

		samplers, ok := arrayField(obj, "samplers")
		if !ok {
			return ErrorInvalidGltf
		}
		for _, v := range samplers {
			sObj, ok := v.(ast.Object)
			if !ok {
				return ErrorInvalidGltf
			}
			s := AnimationSampler{Interpolation: InterpolationLinear}
			if s.InputAccessor, ok = g.indexField(sObj, "input"); !ok {
				return ErrorInvalidGltf
			}
			if s.OutputAccessor, ok = g.indexField(sObj, "output"); !ok {
				return ErrorInvalidGltf
			}
			if name, ok := stringField(sObj, "interpolation"); ok {
				interp, known := animationInterpolations[name]
				if !known {
					return ErrorInvalidGltf
				}
				s.Interpolation = interp
			}
			anim.Samplers = append(anim.Samplers, s)
		}

		anim.Name, _ = stringField(obj, "name")
		g.asset.Animations = append(g.asset.Animations, anim)
		return ErrorNone
	})
}

func (g *Gltf) parseNodes() Error {
	return g.eachObject("nodes", func(obj ast.Object) Error {
		node := Node{
			MeshIndex:   noIndex,
			SkinIndex:   noIndex,
			CameraIndex: noIndex,
			Rotation:    mgl32.QuatIdent(),
			Scale:       mgl32.Vec3{1, 1, 1},
		}
		node.MeshIndex, _ = g.indexField(obj, "mesh")
		node.SkinIndex, _ = g.indexField(obj, "skin")
		node.CameraIndex, _ = g.indexField(obj, "camera")

		children, ok := g.intsField(obj, "children")
		if !ok {
			return ErrorInvalidGltf
		}
		node.Children = children

		var m [16]float32
		if floatsField(obj, "matrix", m[:]) {
			node.Matrix = mgl32.Mat4(m)
			node.HasMatrix = true
			if g.options.Has(DecomposeNodeMatrices) {
				node.Translation, node.Rotation, node.Scale = decomposeTRS(node.Matrix)
				node.HasMatrix = false
			}
		} else {
			var t [3]float32
			if floatsField(obj, "translation", t[:]) {
				node.Translation = mgl32.Vec3(t)
			}
			var r [4]float32
			if floatsField(obj, "rotation", r[:]) {
				node.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
			}
			var s [3]float32
			if floatsField(obj, "scale", s[:]) {
				node.Scale = mgl32.Vec3(s)
			}
		}

		node.Name, _ = stringField(obj, "name")
		g.asset.Nodes = append(g.asset.Nodes, node)
		return ErrorNone
	})
}

func (g *Gltf) parseScenes() Error {
	if v, ok := g.intField(g.root, "scene"); ok {
		g.asset.DefaultScene = int(v)
	}
	return g.eachObject("scenes", func(obj ast.Object) Error {
		scene := Scene{}
		nodes, ok := g.intsField(obj, "nodes")
		if !ok {
			return ErrorInvalidGltf
		}
		scene.NodeIndices = nodes
		scene.Name, _ = stringField(obj, "name")
		g.asset.Scenes = append(g.asset.Scenes, scene)
		return ErrorNone
	})
}

// decomposeTRS splits an affine node matrix into translation, rotation and
// scale. Columns are assumed not mirrored (negative determinants keep the
// sign in the scale of the last axis unhandled, as in the reference
// decomposition).
func decomposeTRS(m mgl32.Mat4) (t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) {
	t = mgl32.Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)}

	c0 := mgl32.Vec3{m.At(0, 0), m.At(1, 0), m.At(2, 0)}
	c1 := mgl32.Vec3{m.At(0, 1), m.At(1, 1), m.At(2, 1)}
	c2 := mgl32.Vec3{m.At(0, 2), m.At(1, 2), m.At(2, 2)}
	s = mgl32.Vec3{c0.Len(), c1.Len(), c2.Len()}

	if s.X() != 0 {
		c0 = c0.Mul(1 / s.X())
	}
	if s.Y() != 0 {
		c1 = c1.Mul(1 / s.Y())
	}
	if s.Z() != 0 {
		c2 = c2.Mul(1 / s.Z())
	}
	rot := mgl32.Mat4{
		c0[0], c0[1], c0[2], 0,
		c1[0], c1[1], c1[2], 0,
		c2[0], c2[1], c2[2], 0,
		0, 0, 0, 1,
	}
	r = mgl32.Mat4ToQuat(rot)
	return t, r, s
}
