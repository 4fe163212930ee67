package fastgltf

import (
	"github.com/go-gl/mathgl/mgl32"
)

type PrimitiveType uint8

const (
	PrimitivePoints PrimitiveType = iota
	PrimitiveLines
	PrimitiveLineLoop
	PrimitiveLineStrip
	PrimitiveTriangles
	PrimitiveTriangleStrip
	PrimitiveTriangleFan
)

// AccessorType carries its component count in the top 8 bits so element size
// math never needs a lookup table.
type AccessorType uint16

const (
	AccessorInvalid AccessorType = 0
	AccessorScalar  AccessorType = 1<<8 | 1
	AccessorVec2    AccessorType = 2<<8 | 2
	AccessorVec3    AccessorType = 3<<8 | 3
	AccessorVec4    AccessorType = 4<<8 | 4
	AccessorMat2    AccessorType = 4<<8 | 5
	AccessorMat3    AccessorType = 9<<8 | 6
	AccessorMat4    AccessorType = 16<<8 | 7
)

// ComponentType carries the component bit width in the top 16 bits and the
// glTF (GL) id in the low 16.
type ComponentType uint32

const (
	ComponentInvalid       ComponentType = 0
	ComponentByte          ComponentType = 8<<16 | 5120
	ComponentUnsignedByte  ComponentType = 8<<16 | 5121
	ComponentShort         ComponentType = 16<<16 | 5122
	ComponentUnsignedShort ComponentType = 16<<16 | 5123
	ComponentUnsignedInt   ComponentType = 32<<16 | 5125
	ComponentFloat         ComponentType = 32<<16 | 5126
	// Not part of the official glTF spec, accepted with AllowDouble.
	ComponentDouble ComponentType = 64<<16 | 5130
)

func (t AccessorType) NumComponents() uint32 { return uint32(t>>8) & 0xFF }

func (t ComponentType) BitSize() uint32 { return uint32(t >> 16) }

// GLType returns the OpenGL component type id as it appears in the JSON.
func (t ComponentType) GLType() uint32 { return uint32(t) & 0xFFFF }

// ElementByteSize returns the byte size of one accessor element.
func ElementByteSize(t AccessorType, c ComponentType) uint32 {
	return t.NumComponents() * c.BitSize() / 8
}

var componentTypes = [...]ComponentType{
	ComponentByte,
	ComponentUnsignedByte,
	ComponentShort,
	ComponentUnsignedShort,
	ComponentUnsignedInt,
	ComponentFloat,
	ComponentDouble,
}

func componentTypeFromGL(id uint32) ComponentType {
	for _, c := range componentTypes {
		if c.GLType() == id {
			return c
		}
	}
	return ComponentInvalid
}

var accessorTypes = map[string]AccessorType{
	"SCALAR": AccessorScalar,
	"VEC2":   AccessorVec2,
	"VEC3":   AccessorVec3,
	"VEC4":   AccessorVec4,
	"MAT2":   AccessorMat2,
	"MAT3":   AccessorMat3,
	"MAT4":   AccessorMat4,
}

type Filter uint16

const (
	FilterNearest              Filter = 9728
	FilterLinear               Filter = 9729
	FilterNearestMipMapNearest Filter = 9984
	FilterLinearMipMapNearest  Filter = 9985
	FilterNearestMipMapLinear  Filter = 9986
	FilterLinearMipMapLinear   Filter = 9987
)

type Wrap uint16

const (
	WrapClampToEdge    Wrap = 33071
	WrapMirroredRepeat Wrap = 33648
	WrapRepeat         Wrap = 10497
)

// BufferTarget is the intended GPU buffer type for a buffer view.
type BufferTarget uint16

const (
	TargetNone               BufferTarget = 0
	TargetArrayBuffer        BufferTarget = 34962
	TargetElementArrayBuffer BufferTarget = 34963
)

type MimeType uint16

const (
	MimeNone MimeType = iota
	MimeJPEG
	MimePNG
	MimeKTX2
	MimeDDS
	MimeGltfBuffer
	MimeOctetStream
)

var mimeTypes = map[string]MimeType{
	"image/jpeg":               MimeJPEG,
	"image/png":                MimePNG,
	"image/ktx2":               MimeKTX2,
	"image/vnd-ms.dds":         MimeDDS,
	"application/gltf-buffer":  MimeGltfBuffer,
	"application/octet-stream": MimeOctetStream,
}

type AnimationInterpolation uint16

const (
	InterpolationLinear AnimationInterpolation = iota
	InterpolationStep
	InterpolationCubicSpline
)

type AnimationPath uint16

const (
	PathInvalid AnimationPath = iota
	PathTranslation
	PathRotation
	PathScale
	PathWeights
)

type CameraType uint8

const (
	CameraPerspective CameraType = iota
	CameraOrthographic
)

type AlphaMode uint8

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

// noIndex marks an absent optional index field.
const noIndex = -1

type Buffer struct {
	ByteLength int64
	Data       DataSource
	Name       string
}

type BufferView struct {
	BufferIndex int
	ByteOffset  int64
	ByteLength  int64

	// ByteStride is 0 when tightly packed.
	ByteStride int64
	Target     BufferTarget

	Name string
}

type Accessor struct {
	ByteOffset    int64
	Count         int64
	Type          AccessorType
	ComponentType ComponentType
	Normalized    bool

	// BufferViewIndex is noIndex for sparse morph targets without a view.
	BufferViewIndex int

	Name string
}

type Image struct {
	Data DataSource
	Name string
}

type Sampler struct {
	// Zero filter values mean auto selection by the renderer.
	MagFilter Filter
	MinFilter Filter
	WrapS     Wrap
	WrapT     Wrap

	Name string
}

type Texture struct {
	ImageIndex int

	// BasisuImageIndex and DDSImageIndex are alternate sources supplied by
	// the KHR_texture_basisu / MSFT_texture_dds extensions; ImageIndex then
	// acts as the fallback.
	BasisuImageIndex int
	DDSImageIndex    int

	SamplerIndex int

	Name string
}

// TextureTransform is the KHR_texture_transform payload of a TextureInfo.
type TextureTransform struct {
	// UV counter-clockwise rotation in radians.
	Rotation float32
	UVOffset mgl32.Vec2
	UVScale  mgl32.Vec2

	TexCoordIndex int
}

type TextureInfo struct {
	TextureIndex  int
	TexCoordIndex int
	Scale         float32

	// Transform is non-nil only when KHR_texture_transform is enabled and
	// present on this texture reference.
	Transform *TextureTransform
}

// PBRData holds the metallic-roughness material model parameters.
type PBRData struct {
	BaseColorFactor mgl32.Vec4
	MetallicFactor  float32
	RoughnessFactor float32

	BaseColorTexture         *TextureInfo
	MetallicRoughnessTexture *TextureInfo
}

type Material struct {
	PBR *PBRData

	NormalTexture    *TextureInfo
	OcclusionTexture *TextureInfo
	EmissiveTexture  *TextureInfo

	EmissiveFactor mgl32.Vec3

	// EmissiveStrength is 1 unless KHR_materials_emissive_strength overrides it.
	EmissiveStrength float32

	AlphaMode   AlphaMode
	AlphaCutoff float32
	DoubleSided bool

	Name string
}

type Primitive struct {
	Attributes map[string]int
	Type       PrimitiveType

	IndicesAccessor int
	MaterialIndex   int
}

type Mesh struct {
	Primitives []Primitive
	Name       string
}

type Camera struct {
	Type CameraType

	// Exactly one of the two is meaningful, according to Type.
	Perspective  CameraPerspectiveData
	Orthographic CameraOrthographicData

	Name string
}

type CameraPerspectiveData struct {
	// AspectRatio is 0 when the viewport ratio should be used.
	AspectRatio float32
	YFov        float32
	// ZFar of 0 means an infinite projection matrix.
	ZFar  float32
	ZNear float32
}

type CameraOrthographicData struct {
	XMag  float32
	YMag  float32
	ZFar  float32
	ZNear float32
}

type Skin struct {
	Joints              []int
	Skeleton            int
	InverseBindMatrices int

	Name string
}

type Node struct {
	MeshIndex   int
	SkinIndex   int
	CameraIndex int
	Children    []int

	// When HasMatrix is set the transform is Matrix, otherwise TRS below.
	HasMatrix bool
	Matrix    mgl32.Mat4

	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3

	Name string
}

type Scene struct {
	NodeIndices []int
	Name        string
}

type AnimationChannel struct {
	SamplerIndex int
	NodeIndex    int
	Path         AnimationPath
}

type AnimationSampler struct {
	InputAccessor  int
	OutputAccessor int
	Interpolation  AnimationInterpolation
}

type Animation struct {
	Channels []AnimationChannel
	Samplers []AnimationSampler

	Name string
}

type AssetInfo struct {
	Version   string
	Generator string
	Copyright string
}

// Asset is the root output aggregate. The orchestrator fills it category by
// category; on error it is left partially populated.
type Asset struct {
	Info AssetInfo

	// DefaultScene is noIndex when the document declares none.
	DefaultScene int

	Accessors   []Accessor
	Animations  []Animation
	Buffers     []Buffer
	BufferViews []BufferView
	Cameras     []Camera
	Images      []Image
	Materials   []Material
	Meshes      []Mesh
	Nodes       []Node
	Samplers    []Sampler
	Scenes      []Scene
	Skins       []Skin
	Textures    []Texture
}
