package asset

import (
	"fmt"
	"sort"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ImageData is one source image's undecoded payload: either the raw
// bytes of an embedded (buffer-view or data-URI) image, or the relative
// URI of an external file. Decoding into mip pyramids is the external
// image loader's job; the asset package only captures the byte range so
// compaction can account for it and the save path can round-trip it.
type ImageData struct {
	Name     string
	MimeType string
	URI      string // relative to Model.SourceDir; empty when Data is set
	Data     []byte
}

// TextureDesc binds a texture index (what Material.TextureRef points at)
// to its source image. Format-extension sources (KHR_texture_basisu,
// EXT_texture_webp, MSFT_texture_dds) replace the core source when
// present, in that priority order.
type TextureDesc struct {
	Name       string
	ImageIndex int // index into Model.Images, -1 when the document had none
}

type textureSourceExt struct {
	Source *int `json:"source"`
}

// textureSourceExtensions are checked in priority order; the first one
// present on a texture supplies its image source.
var textureSourceExtensions = []string{
	"KHR_texture_basisu",
	"EXT_texture_webp",
	"MSFT_texture_dds",
}

// loadImages captures every image's bytes (or URI) and every texture's
// source binding. A broken image degrades to an empty entry so texture
// indices stay aligned with the document.
func loadImages(doc *gltf.Document, m *Model) {
	m.Images = make([]ImageData, len(doc.Images))
	for i, gi := range doc.Images {
		img := ImageData{Name: gi.Name, MimeType: gi.MimeType}
		if gi.BufferView != nil {
			bvIdx := int(*gi.BufferView)
			if bvIdx < 0 || bvIdx >= len(doc.BufferViews) {
				fmt.Printf("asset: image %d: buffer view %d out of range\n", i, bvIdx)
			} else if raw, err := modeler.ReadBufferView(doc, doc.BufferViews[bvIdx]); err != nil {
				fmt.Printf("asset: image %d: %v\n", i, err)
			} else {
				img.Data = append([]byte(nil), raw...)
			}
		} else {
			img.URI = gi.URI
		}
		m.Images[i] = img
	}

	m.Textures = make([]TextureDesc, len(doc.Textures))
	for i, gt := range doc.Textures {
		desc := TextureDesc{Name: gt.Name, ImageIndex: -1}
		if gt.Source != nil {
			desc.ImageIndex = int(*gt.Source)
		}
		for _, extName := range textureSourceExtensions {
			raw, ok := gt.Extensions[extName]
			if !ok {
				continue
			}
			var src textureSourceExt
			if err := decodeExtension(raw, &src); err == nil && src.Source != nil {
				desc.ImageIndex = *src.Source
			}
			break
		}
		if desc.ImageIndex >= len(m.Images) {
			desc.ImageIndex = -1
		}
		m.Textures[i] = desc
	}
}

// ImageLoadOrder returns image indices sorted by embedded payload size,
// largest first, so a parallel image decoder starts its biggest jobs
// before the tail of small ones.
func (m *Model) ImageLoadOrder() []int {
	order := make([]int, len(m.Images))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(m.Images[order[a]].Data) > len(m.Images[order[b]].Data)
	})
	return order
}
