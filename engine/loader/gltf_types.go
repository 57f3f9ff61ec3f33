// gltf_types.go contains the subset of the glTF 2.0 JSON schema the loader reads: the node hierarchy, mesh
// primitives and their material assignments, materials with their textures, skins, and the
// KHR_materials_variants extension.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

// --- glTF Root Structure ---

// gltfDocument represents the root of a glTF JSON document.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-gltf
type gltfDocument struct {
	Asset       gltfAsset        `json:"asset"`
	Nodes       []gltfNode       `json:"nodes,omitempty"`
	Meshes      []gltfMesh       `json:"meshes,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`
	Materials   []gltfMaterial   `json:"materials,omitempty"`
	Textures    []gltfTexture    `json:"textures,omitempty"`
	Images      []gltfImage      `json:"images,omitempty"`
	Samplers    []gltfSampler    `json:"samplers,omitempty"`
	Skins       []gltfSkin       `json:"skins,omitempty"`

	// Extensions holds document-level extensions. Only KHR_materials_variants is read.
	Extensions *gltfDocumentExtensions `json:"extensions,omitempty"`

	// ExtensionsRequired lists extensions required to load this asset.
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`
}

// gltfAsset contains metadata about the glTF asset.
type gltfAsset struct {
	// Version is the glTF version (required, must be "2.0").
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

// gltfNode is a node in the node hierarchy. Transforms are not read; placement belongs to the scene.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-node
type gltfNode struct {
	Name     string `json:"name,omitempty"`
	Children []int  `json:"children,omitempty"`
	Mesh     *int   `json:"mesh,omitempty"`
	Skin     *int   `json:"skin,omitempty"`
}

// gltfMesh is a set of primitives to be rendered.
type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

// gltfPrimitive is one draw of a mesh. Only its material assignments are read.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh-primitive
type gltfPrimitive struct {
	// Material is the material index.
	Material *int `json:"material,omitempty"`

	Extensions *gltfPrimitiveExtensions `json:"extensions,omitempty"`
}

// --- Buffer Data ---

// gltfBufferView is a slice of a buffer. Images embedded in GLB files are stored in buffer views.
type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset,omitempty"`
	ByteLength int `json:"byteLength"`
}

// gltfBuffer is a raw binary data container.
type gltfBuffer struct {
	// URI is the location of the data (data: URI or relative path). Empty for the GLB binary chunk.
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`

	// Data holds the loaded binary data (not part of JSON, populated during load).
	Data []byte `json:"-"`
}

// --- Materials and Textures ---

// gltfMaterial defines the material appearance of a primitive.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material
type gltfMaterial struct {
	Name                 string                    `json:"name,omitempty"`
	PbrMetallicRoughness *gltfPbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *gltfNormalTextureInfo    `json:"normalTexture,omitempty"`
	OcclusionTexture     *gltfTextureInfo          `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *gltfTextureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32               `json:"emissiveFactor,omitempty"`

	// AlphaMode is "OPAQUE" (default), "MASK" or "BLEND".
	AlphaMode string `json:"alphaMode,omitempty"`

	// AlphaCutoff is the alpha cutoff for MASK mode, 0.5 when absent.
	AlphaCutoff *float32 `json:"alphaCutoff,omitempty"`

	DoubleSided bool `json:"doubleSided,omitempty"`
}

// Alpha mode constants
const (
	gltfAlphaModeMask  = "MASK"
	gltfAlphaModeBlend = "BLEND"

	gltfDefaultAlphaCutoff = 0.5
)

// gltfPbrMetallicRoughness is the metallic-roughness material model.
type gltfPbrMetallicRoughness struct {
	BaseColorFactor          *[4]float32      `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *gltfTextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32         `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32         `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *gltfTextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// gltfTextureInfo references a texture.
type gltfTextureInfo struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord,omitempty"`
}

// gltfNormalTextureInfo references a normal map.
type gltfNormalTextureInfo struct {
	gltfTextureInfo

	// Scale is the normal scale factor.
	Scale *float32 `json:"scale,omitempty"`
}

// gltfTexture combines an image and a sampler.
type gltfTexture struct {
	Name       string                 `json:"name,omitempty"`
	Sampler    *int                   `json:"sampler,omitempty"`
	Source     *int                   `json:"source,omitempty"`
	Extensions *gltfTextureExtensions `json:"extensions,omitempty"`
}

// gltfTextureExtensions holds the texture extensions the importer reads.
type gltfTextureExtensions struct {
	WebP *gltfTextureWebP `json:"EXT_texture_webp,omitempty"`
}

// gltfTextureWebP points a texture at a WebP image, preferred over the core source.
// Reference: https://github.com/KhronosGroup/glTF/tree/main/extensions/2.0/Vendor/EXT_texture_webp
type gltfTextureWebP struct {
	Source *int `json:"source,omitempty"`
}

// gltfImage is a texture image source.
type gltfImage struct {
	Name string `json:"name,omitempty"`

	// URI is the image URI (can be data: URI or external file).
	URI string `json:"uri,omitempty"`

	MimeType string `json:"mimeType,omitempty"`

	// BufferView is the index of the bufferView containing the image.
	BufferView *int `json:"bufferView,omitempty"`
}

// gltfSampler defines texture sampling parameters.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
type gltfSampler struct {
	MagFilter *int `json:"magFilter,omitempty"`
	MinFilter *int `json:"minFilter,omitempty"`
	WrapS     *int `json:"wrapS,omitempty"`
	WrapT     *int `json:"wrapT,omitempty"`
}

// Sampler filter constants
const (
	gltfFilterNearest              = 9728
	gltfFilterLinear               = 9729
	gltfFilterNearestMipmapNearest = 9984
	gltfFilterLinearMipmapNearest  = 9985
	gltfFilterNearestMipmapLinear  = 9986
	gltfFilterLinearMipmapLinear   = 9987
)

// Sampler wrap constants
const (
	gltfWrapClampToEdge    = 33071
	gltfWrapMirroredRepeat = 33648
	gltfWrapRepeat         = 10497
)

// --- Skins ---

// gltfSkin names the joints that deform a mesh.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-skin
type gltfSkin struct {
	Name string `json:"name,omitempty"`

	// Joints are the node indices of the skeleton joints.
	Joints []int `json:"joints"`
}

// --- KHR_materials_variants ---
// Reference: https://github.com/KhronosGroup/glTF/tree/main/extensions/2.0/Khronos/KHR_materials_variants

const gltfExtMaterialsVariants = "KHR_materials_variants"

const gltfExtTextureWebP = "EXT_texture_webp"

type gltfDocumentExtensions struct {
	MaterialsVariants *gltfVariantsDeclaration `json:"KHR_materials_variants,omitempty"`
}

// gltfVariantsDeclaration lists the variants of the document; mappings refer to them by index.
type gltfVariantsDeclaration struct {
	Variants []gltfVariantName `json:"variants"`
}

type gltfVariantName struct {
	Name string `json:"name"`
}

type gltfPrimitiveExtensions struct {
	MaterialsVariants *gltfVariantMappings `json:"KHR_materials_variants,omitempty"`
}

// gltfVariantMappings assigns a material to the primitive for each listed variant.
type gltfVariantMappings struct {
	Mappings []gltfVariantMapping `json:"mappings"`
}

type gltfVariantMapping struct {
	Material int   `json:"material"`
	Variants []int `json:"variants"`
}

// --- GLB Binary Format ---

// gltfGLBHeader is the header of a GLB file (12 bytes).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
type gltfGLBHeader struct {
	Magic   uint32 // Must be 0x46546C67 ("glTF" in ASCII)
	Version uint32 // Must be 2
	Length  uint32 // Total file length
}

// gltfGLBChunkHeader is the header of a GLB chunk (8 bytes).
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32 // 0x4E4F534A for JSON, 0x004E4942 for BIN
}

// GLB magic number and chunk type constants
const (
	gltfGLBMagic     = 0x46546C67 // "glTF" in little-endian ASCII
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON" in little-endian ASCII
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0" in little-endian ASCII
)
