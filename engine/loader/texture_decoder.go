package loader

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
)

// decodedTexture holds the pixels of one glTF texture, ready for upload.
type decodedTexture struct {
	name   string
	params sampler.Params
	pixels common.TextureStagingData
}

// decodeTextures extracts every texture sampled through a sampler the material declares and decodes
// the images on the worker pool. All extraction errors surface before any image is decoded. Textures
// without an image are skipped.
//
// Parameters:
//   - ims: the extracted materials of the document
//   - st: the import state receiving the decoded textures
//
// Returns:
//   - error: the first extraction error, or the decode error of the lowest texture index
func (imp *gltfImporterImpl) decodeTextures(ims []*importedMaterial, st *importState) error {
	samplers := imp.mat.SamplerBlock()
	sources := make(map[int]*importedTexture)
	var indices []int
	for _, im := range ims {
		for name, index := range im.textures {
			if !samplers.HasSampler(name) {
				continue
			}
			if _, ok := sources[index]; ok {
				continue
			}
			tex, err := st.extractor.ExtractTexture(index)
			if err != nil {
				return fmt.Errorf("material %q: %s: %w", im.name, name, err)
			}
			sources[index] = tex
			if tex != nil {
				indices = append(indices, index)
			}
		}
	}
	slices.Sort(indices)

	results := make([]decodedTexture, len(indices))
	errs := make([]error, len(indices))
	decode := func(i int) {
		tex := sources[indices[i]]
		pixels, err := tex.source.Decode()
		results[i] = decodedTexture{name: tex.source.Name, params: tex.params, pixels: pixels}
		errs[i] = err
	}

	// pool.Wait only returns once workers go idle, so each batch gets its own barrier
	if imp.pool == nil || len(indices) < 2 {
		for i := range indices {
			decode(i)
		}
	} else {
		var wg sync.WaitGroup
		for i, index := range indices {
			wg.Add(1)
			imp.pool.SubmitTask(worker.Task{
				ID: index,
				Do: func() (any, error) {
					defer wg.Done()
					decode(i)
					return nil, errs[i]
				},
			})
		}
		wg.Wait()
	}

	for i, index := range indices {
		if errs[i] != nil {
			return fmt.Errorf("texture %d (%s): %w", index, results[i].name, errs[i])
		}
		st.decoded[index] = &results[i]
	}
	common.Logger().Debug("glTF textures decoded", "textures", len(indices))
	return nil
}
