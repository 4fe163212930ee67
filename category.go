package fastgltf

// Category identifies one structural section of a glTF document. The bit
// value of every category already contains the bits of each category it
// depends on, so computing the transitive set of sections needed for a
// request is a plain bitwise OR and containment is a plain mask test.
//
// The table below is closed and hand-verified against the glTF 2.0 schema;
// it is not derived at runtime. Skins and Animations reference nodes, and
// Nodes references Skins, so those entries spell out the raw node bit to
// break the cycle.
type Category uint32

// Each section owns exactly one raw bit; the exported Category values OR in
// the raw bits of their dependencies. Orchestration bookkeeping (which steps
// already ran) works on the raw bits alone.
const (
	categoryBuffersBit Category = 1 << iota
	categoryBufferViewsBit
	categoryAccessorsBit
	categoryImagesBit
	categorySamplersBit
	categoryTexturesBit
	categoryAnimationsBit
	categoryCamerasBit
	categoryMaterialsBit
	categoryMeshesBit
	categorySkinsBit
	categoryNodesBit
	categoryScenesBit
	categoryAssetBit
)

const (
	CategoryNone    Category = 0
	CategoryBuffers          = categoryBuffersBit

	CategoryBufferViews = categoryBufferViewsBit | CategoryBuffers
	CategoryAccessors   = categoryAccessorsBit | CategoryBufferViews
	CategoryImages      = categoryImagesBit | CategoryBufferViews
	CategorySamplers    = categorySamplersBit
	CategoryTextures    = categoryTexturesBit | CategoryImages | CategorySamplers
	CategoryCameras     = categoryCamerasBit
	CategoryMaterials   = categoryMaterialsBit | CategoryTextures
	CategoryMeshes      = categoryMeshesBit | CategoryAccessors | CategoryMaterials

	CategorySkins      = categorySkinsBit | CategoryAccessors | categoryNodesBit
	CategoryAnimations = categoryAnimationsBit | CategoryAccessors | categoryNodesBit
	CategoryNodes      = categoryNodesBit | CategoryCameras | CategoryMeshes | CategorySkins
	CategoryScenes     = categoryScenesBit | CategoryNodes
	CategoryAsset      = categoryAssetBit

	CategoryAll = CategoryAsset | CategoryScenes | CategoryAnimations
)

// Has reports whether every bit of sub is set in c.
func (c Category) Has(sub Category) bool { return c&sub == sub }

// Options are per-load behavior toggles. They are fixed for the lifetime of
// one load and the parse that follows it.
type Options uint32

const (
	OptionsNone Options = 0

	// AllowDouble accepts floating point JSON numbers in fields that the
	// glTF schema declares as integers, truncating them.
	AllowDouble Options = 1 << 0

	// DontRequireValidAssetMember skips the check that the document carries
	// an "asset" object with a parseable version.
	DontRequireValidAssetMember Options = 1 << 1

	// DontUseSIMD forces the scalar base64 decoder regardless of what the
	// CPU probe found.
	DontUseSIMD Options = 1 << 2

	// LoadGLBBuffers eagerly reads the GLB binary chunk into memory (or into
	// a caller-mapped destination) instead of recording a deferred file range.
	LoadGLBBuffers Options = 1 << 3

	// LoadExternalBuffers eagerly reads buffers referenced through relative
	// file URIs instead of recording a deferred path.
	LoadExternalBuffers Options = 1 << 4

	// DecomposeNodeMatrices converts node "matrix" transforms into
	// translation/rotation/scale on parse.
	DecomposeNodeMatrices Options = 1 << 5
)

// Has reports whether every bit of sub is set in o.
func (o Options) Has(sub Options) bool { return o&sub == sub }

// Extensions records which optional glTF extensions the caller declared
// support for when constructing the Parser. An asset that lists a required
// extension outside this set fails to load.
type Extensions uint32

const (
	ExtensionsNone Extensions = 0

	ExtensionKHRTextureTransform          Extensions = 1 << 0
	ExtensionKHRTextureBasisu             Extensions = 1 << 1
	ExtensionMSFTTextureDDS               Extensions = 1 << 2
	ExtensionKHRMeshQuantization          Extensions = 1 << 3
	ExtensionEXTMeshoptCompression        Extensions = 1 << 4
	ExtensionKHRLightsPunctual            Extensions = 1 << 5
	ExtensionKHRMaterialsEmissiveStrength Extensions = 1 << 6

	ExtensionsAll = ExtensionKHRTextureTransform | ExtensionKHRTextureBasisu |
		ExtensionMSFTTextureDDS | ExtensionKHRMeshQuantization |
		ExtensionEXTMeshoptCompression | ExtensionKHRLightsPunctual |
		ExtensionKHRMaterialsEmissiveStrength
)

// Has reports whether every bit of sub is set in e.
func (e Extensions) Has(sub Extensions) bool { return e&sub == sub }

// extensionBits maps extension names as they appear in extensionsUsed /
// extensionsRequired to their Extensions bit. Names missing from this table
// are unknown to the loader.
var extensionBits = map[string]Extensions{
	"KHR_texture_transform":           ExtensionKHRTextureTransform,
	"KHR_texture_basisu":              ExtensionKHRTextureBasisu,
	"MSFT_texture_dds":                ExtensionMSFTTextureDDS,
	"KHR_mesh_quantization":           ExtensionKHRMeshQuantization,
	"EXT_meshopt_compression":         ExtensionEXTMeshoptCompression,
	"KHR_lights_punctual":             ExtensionKHRLightsPunctual,
	"KHR_materials_emissive_strength": ExtensionKHRMaterialsEmissiveStrength,
}

// Error is the closed set of terminal failure reasons. Exactly one Error is
// live per parse attempt: the first non-None value sticks and later steps
// never overwrite it. It is surfaced through getters rather than panics so a
// missing asset degrades to "no asset produced".
type Error uint32

const (
	ErrorNone Error = iota
	ErrorInvalidPath
	ErrorMissingExtensions
	ErrorUnknownRequiredExtension
	ErrorInvalidJSON
	ErrorInvalidGltf
	ErrorInvalidGLB
	ErrorMissingField
	ErrorMissingExternalBuffer
	ErrorUnsupportedVersion
)

var errorNames = [...]string{
	ErrorNone:                     "none",
	ErrorInvalidPath:              "invalid path",
	ErrorMissingExtensions:        "required extension not enabled",
	ErrorUnknownRequiredExtension: "required extension not supported",
	ErrorInvalidJSON:              "invalid json",
	ErrorInvalidGltf:              "invalid gltf structure",
	ErrorInvalidGLB:               "invalid glb container",
	ErrorMissingField:             "missing required field",
	ErrorMissingExternalBuffer:    "missing external buffer",
	ErrorUnsupportedVersion:       "unsupported gltf version",
}

func (e Error) Error() string {
	if int(e) < len(errorNames) {
		return errorNames[e]
	}
	return "unknown error"
}
