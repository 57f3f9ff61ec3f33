// package common contains the plain types, errors and helpers shared by every engine package. They are not
// interface-wrapped structs, just plain structs that express commonly used data-types.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the pixel data in RGBA format, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// TextureSource locates the image a texture is created from: either encoded bytes or a file path.
type TextureSource struct {
	// Name is an identifier for this texture (e.g. the sampler it is bound to).
	Name string

	// Path is the file path of the image (empty when Data is set).
	Path string

	// Data contains encoded image bytes.
	Data []byte
}

// Decode decodes the image to RGBA pixel data. Data takes precedence over Path.
// Supports PNG, JPEG, WebP, BMP and TIFF.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - TextureStagingData: the decoded pixels and dimensions
//   - error: error if the source is empty or decoding fails
func (t TextureSource) Decode() (TextureStagingData, error) {
	var img image.Image
	var err error

	switch {
	case len(t.Data) > 0:
		img, _, err = image.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode embedded image %q: %w", t.Name, err)
		}
	case t.Path != "":
		file, fileErr := os.Open(t.Path)
		if fileErr != nil {
			return TextureStagingData{}, fmt.Errorf("failed to open texture file %s: %w", t.Path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	default:
		return TextureStagingData{}, errors.New("texture has neither data nor path")
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}
