package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Errors returned by the parser
var (
	errInvalidGLTFVersion   = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic      = errors.New("invalid GLB magic number")
	errInvalidGLBVersion    = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk     = errors.New("GLB file missing JSON chunk")
	errInvalidDataURI       = errors.New("invalid data URI")
	errBufferSizeMismatch   = errors.New("buffer size mismatch")
	errUnsupportedExtension = errors.New("unsupported required extension")
)

// supportedExtensions are the extensions an asset may list in extensionsRequired.
var supportedExtensions = []string{gltfExtMaterialsVariants, gltfExtTextureWebP}

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser loads a glTF/GLB file into a document with its buffers resolved.
type gltfParser interface {
	// Parse loads and parses a glTF/GLB file from the given path.
	// Automatically detects .gltf (JSON) vs .glb (binary) format.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: error if parsing fails
	Parse(path string) error

	// ParseReader parses a glTF document from a reader. Relative URIs resolve against the working
	// directory.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - error: error if parsing fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the parsed glTF document, or nil before a successful parse.
	Document() *gltfDocument

	// BaseDir returns the directory relative URIs are resolved against.
	BaseDir() string

	// ReadBufferView returns a copy of the bytes of a buffer view.
	//
	// Parameters:
	//   - index: the buffer view index
	//
	// Returns:
	//   - []byte: the bytes
	//   - error: error if the view or its buffer is out of range
	ReadBufferView(index int) ([]byte, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) BaseDir() string {
	return p.baseDir
}

func (p *gltfParserImpl) Parse(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".glb" || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic) {
		return p.parseGLB(data)
	}

	return p.parseGLTF(data)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}

	if isGLB {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

// parseGLTF parses a glTF JSON file.
func (p *gltfParserImpl) parseGLTF(data []byte) error {
	return p.parseJSON(data)
}

// parseGLB parses a GLB binary file.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < 12 {
		return errors.New("GLB file too small")
	}

	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}

	if header.Magic != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return errInvalidGLBVersion
	}

	var jsonData []byte
	for {
		var chunkHeader gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}

		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return fmt.Errorf("failed to read chunk data: %w", err)
		}

		switch chunkHeader.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = chunkData
		case gltfGLBChunkBIN:
			p.glbBinaryChunk = chunkData
		}
	}

	if jsonData == nil {
		return errMissingJSONChunk
	}
	return p.parseJSON(jsonData)
}

// parseJSON decodes the document, checks its version and required extensions, then loads its buffers.
func (p *gltfParserImpl) parseJSON(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	for _, ext := range doc.ExtensionsRequired {
		if !slices.Contains(supportedExtensions, ext) {
			return fmt.Errorf("%w: %s", errUnsupportedExtension, ext)
		}
	}

	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}

	p.document = &doc
	return nil
}

// loadBuffers loads all buffer data (from URIs, embedded data, or GLB binary chunk).
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		if buf.URI == "" {
			if i == 0 && p.glbBinaryChunk != nil {
				buf.Data = p.glbBinaryChunk
				if len(buf.Data) < buf.ByteLength {
					return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
				}
				continue
			}
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		}

		data, err := p.loadURI(buf.URI)
		if err != nil {
			return fmt.Errorf("buffer %d: %w", i, err)
		}
		buf.Data = data

		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}

	return nil
}

// loadURI loads data from a data: URI or from a path relative to the base directory.
func (p *gltfParserImpl) loadURI(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		data, _, err := decodeDataURI(uri)
		return data, err
	}

	data, err := os.ReadFile(filepath.Join(p.baseDir, uri))
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", uri, err)
	}
	return data, nil
}

func (p *gltfParserImpl) ReadBufferView(index int) ([]byte, error) {
	doc := p.document
	if doc == nil {
		return nil, errors.New("no document loaded")
	}
	if index < 0 || index >= len(doc.BufferViews) {
		return nil, fmt.Errorf("bufferView index %d out of range", index)
	}

	bv := &doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}

	buf := &doc.Buffers[bv.Buffer]
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(buf.Data) {
		return nil, fmt.Errorf("bufferView exceeds buffer bounds: offset=%d length=%d bufSize=%d", bv.ByteOffset, bv.ByteLength, len(buf.Data))
	}

	return bytes.Clone(buf.Data[bv.ByteOffset:end]), nil
}

// decodeDataURI decodes a base64 data URI into raw bytes and its MIME type.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, string, error) {
	commaIdx := strings.Index(uri, ",")
	if !strings.HasPrefix(uri, "data:") || commaIdx < 0 {
		return nil, "", errInvalidDataURI
	}

	header := uri[5:commaIdx]
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("unsupported data URI encoding: %q", header)
	}

	data, err := base64.StdEncoding.DecodeString(uri[commaIdx+1:])
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, mimeType, nil
}
