package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/asset"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	drv         driver.Driver
	mat         material.Material
	renderables asset.RenderableManager
	pool        worker.DynamicWorkerPool
}

// gltfImporter turns a parsed glTF document into an asset instance.
type gltfImporter interface {
	// Import creates one material instance per glTF material, uploads the textures they sample and
	// assembles the asset instance. Node i becomes entity i+1; the root entity follows the last node.
	// Primitives are assigned their default material through the renderable manager, when one is set.
	//
	// Parameters:
	//   - parser: a parser holding a loaded document
	//
	// Returns:
	//   - asset.Instance: the imported instance
	//   - error: error if the document references missing nodes, materials or textures
	Import(parser gltfParser) (asset.Instance, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates an importer that instantiates mat on drv. Images are decoded on pool; a nil
// pool decodes them on the calling goroutine.
func newGLTFImporter(drv driver.Driver, mat material.Material, renderables asset.RenderableManager, pool worker.DynamicWorkerPool) gltfImporter {
	return &gltfImporterImpl{drv: drv, mat: mat, renderables: renderables, pool: pool}
}

// importState tracks the resources created during one import so they can be released on failure.
type importState struct {
	parser    gltfParser
	extractor gltfMaterialExtractor
	decoded   map[int]*decodedTexture
	textures  map[int]driver.TextureHandle
	created   []driver.TextureHandle
}

func (imp *gltfImporterImpl) Import(parser gltfParser) (asset.Instance, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, errors.New("no document loaded")
	}

	st := &importState{
		parser:    parser,
		extractor: newGLTFMaterialExtractor(parser),
		decoded:   make(map[int]*decodedTexture),
		textures:  make(map[int]driver.TextureHandle),
	}

	inst, err := imp.importDocument(doc, st)
	if err != nil {
		for _, h := range st.created {
			imp.drv.DestroyTexture(h)
		}
		return nil, err
	}
	return inst, nil
}

func (imp *gltfImporterImpl) importDocument(doc *gltfDocument, st *importState) (asset.Instance, error) {
	entities := make([]asset.Entity, len(doc.Nodes))
	for i := range doc.Nodes {
		entities[i] = nodeEntity(i)
	}

	ims := make([]*importedMaterial, len(doc.Materials))
	for i := range doc.Materials {
		im, err := st.extractor.ExtractMaterial(i)
		if err != nil {
			return nil, err
		}
		ims[i] = im
	}
	if err := imp.decodeTextures(ims, st); err != nil {
		return nil, err
	}

	instances := make([]material.MaterialInstance, len(ims))
	for i, im := range ims {
		mi := imp.mat.CreateInstance(im.name)
		if err := imp.apply(mi, im, st); err != nil {
			return nil, fmt.Errorf("material %q: %w", im.name, err)
		}
		instances[i] = mi
	}

	options := []asset.InstanceBuilderOption{
		asset.WithRoot(nodeEntity(len(doc.Nodes))),
		asset.WithEntities(entities...),
		asset.WithMaterialInstances(instances...),
		asset.WithTextures(st.created...),
		asset.WithRenderableManager(imp.renderables),
	}

	for i, skin := range doc.Skins {
		joints := make([]asset.Entity, len(skin.Joints))
		for j, node := range skin.Joints {
			if node < 0 || node >= len(doc.Nodes) {
				return nil, fmt.Errorf("skin %d: joint node %d out of range", i, node)
			}
			joints[j] = nodeEntity(node)
		}
		options = append(options, asset.WithSkin(common.Coalesce(skin.Name, fmt.Sprintf("skin%d", i)), joints...))
	}

	variants, err := imp.assign(doc, instances)
	if err != nil {
		return nil, err
	}
	options = append(options, variants...)

	inst := asset.NewInstance(options...)
	for i, node := range doc.Nodes {
		if node.Skin == nil {
			continue
		}
		if *node.Skin < 0 || *node.Skin >= len(doc.Skins) {
			return nil, fmt.Errorf("node %d: skin %d out of range", i, *node.Skin)
		}
		inst.AttachSkin(*node.Skin, nodeEntity(i))
	}

	common.Logger().Debug("glTF asset imported",
		"entities", len(entities), "materials", len(instances), "textures", len(st.created),
		"skins", inst.SkinCount(), "variants", inst.MaterialVariantCount())
	return inst, nil
}

// assign pushes the default material of every primitive to the renderable manager and collects the
// KHR_materials_variants mappings into variant options.
func (imp *gltfImporterImpl) assign(doc *gltfDocument, instances []material.MaterialInstance) ([]asset.InstanceBuilderOption, error) {
	var names []gltfVariantName
	if doc.Extensions != nil && doc.Extensions.MaterialsVariants != nil {
		names = doc.Extensions.MaterialsVariants.Variants
	}
	mappings := make([][]asset.VariantMapping, len(names))

	lookup := func(index int) (material.MaterialInstance, error) {
		if index < 0 || index >= len(instances) {
			return nil, fmt.Errorf("material index %d out of range", index)
		}
		return instances[index], nil
	}

	for n, node := range doc.Nodes {
		if node.Mesh == nil {
			continue
		}
		if *node.Mesh < 0 || *node.Mesh >= len(doc.Meshes) {
			return nil, fmt.Errorf("node %d: mesh %d out of range", n, *node.Mesh)
		}
		renderable := nodeEntity(n)

		for p, prim := range doc.Meshes[*node.Mesh].Primitives {
			if prim.Material != nil {
				mi, err := lookup(*prim.Material)
				if err != nil {
					return nil, fmt.Errorf("node %d primitive %d: %w", n, p, err)
				}
				if imp.renderables != nil {
					imp.renderables.SetMaterialInstanceAt(renderable, p, mi)
				}
			}

			if prim.Extensions == nil || prim.Extensions.MaterialsVariants == nil {
				continue
			}
			for _, m := range prim.Extensions.MaterialsVariants.Mappings {
				mi, err := lookup(m.Material)
				if err != nil {
					return nil, fmt.Errorf("node %d primitive %d variant mapping: %w", n, p, err)
				}
				for _, v := range m.Variants {
					if v < 0 || v >= len(names) {
						return nil, fmt.Errorf("node %d primitive %d: variant %d out of range", n, p, v)
					}
					mappings[v] = append(mappings[v], asset.VariantMapping{Renderable: renderable, PrimitiveIndex: p, Material: mi})
				}
			}
		}
	}

	options := make([]asset.InstanceBuilderOption, len(names))
	for i, name := range names {
		options[i] = asset.WithMaterialVariant(common.Coalesce(name.Name, fmt.Sprintf("variant%d", i)), mappings[i]...)
	}
	return options, nil
}

// apply writes the values of im the material declares into mi. Values whose parameter is missing or of
// another type are skipped.
func (imp *gltfImporterImpl) apply(mi material.MaterialInstance, im *importedMaterial, st *importState) error {
	for name, v := range im.float4s {
		if imp.declares(name, uniform.Float4) {
			if err := mi.SetParameterFloat4(name, v); err != nil {
				return err
			}
		}
	}
	for name, v := range im.float3s {
		if imp.declares(name, uniform.Float3) {
			if err := mi.SetParameterFloat3(name, v); err != nil {
				return err
			}
		}
	}
	for name, v := range im.floats {
		if imp.declares(name, uniform.Float) {
			if err := mi.SetParameterFloat(name, v); err != nil {
				return err
			}
		}
	}

	samplers := imp.mat.SamplerBlock()
	for name, index := range im.textures {
		if !samplers.HasSampler(name) {
			continue
		}
		tex, ok := st.decoded[index]
		if !ok {
			continue
		}
		h, err := imp.upload(index, tex, st)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := mi.SetParameterTexture(name, h, tex.params); err != nil {
			return err
		}
	}

	switch im.alphaMode {
	case gltfAlphaModeMask:
		if imp.declares(material.MaskThresholdParameter, uniform.Float) {
			if err := mi.SetMaskThreshold(im.alphaCutoff); err != nil {
				return err
			}
		}
	case gltfAlphaModeBlend:
		mi.SetDepthWrite(false)
	}

	if im.doubleSided {
		if imp.mat.HasDoubleSidedCapability() {
			return mi.SetDoubleSided(true)
		}
		mi.SetCullingMode(raster.CullNone)
	}
	return nil
}

// declares reports whether the material has a uniform parameter of the given name and type.
func (imp *gltfImporterImpl) declares(name string, typ uniform.Type) bool {
	info, ok := imp.mat.UniformBlock().UniformInfo(name)
	return ok && info.Type == typ
}

// upload creates the GPU texture of a decoded glTF texture once per import.
func (imp *gltfImporterImpl) upload(index int, tex *decodedTexture, st *importState) (driver.TextureHandle, error) {
	if h, ok := st.textures[index]; ok {
		return h, nil
	}
	h, err := imp.drv.CreateTexture(tex.pixels)
	if err != nil {
		return 0, fmt.Errorf("failed to create texture %q: %w", tex.name, err)
	}
	st.textures[index] = h
	st.created = append(st.created, h)
	return h, nil
}

// nodeEntity maps a node index to its entity. Entity 0 is the null entity.
func nodeEntity(node int) asset.Entity {
	return asset.Entity(node + 1)
}
