package asset

import (
	"testing"

	"github.com/qmuntal/gltf"
)

func u32(v uint32) *uint32 { return &v }

func TestLoadImagesCapturesURIAndBindsTextures(t *testing.T) {
	doc := &gltf.Document{
		Images: []*gltf.Image{
			{Name: "diffuse", URI: "textures/diffuse.png"},
			{Name: "normal", URI: "textures/normal.png"},
		},
		Textures: []*gltf.Texture{
			{Source: u32(1)},
			{Source: u32(0)},
		},
	}
	m := &Model{}
	loadImages(doc, m)

	if len(m.Images) != 2 || m.Images[0].URI != "textures/diffuse.png" {
		t.Fatalf("images not captured: %+v", m.Images)
	}
	if m.Textures[0].ImageIndex != 1 || m.Textures[1].ImageIndex != 0 {
		t.Fatalf("texture source binding wrong: %+v", m.Textures)
	}
}

func TestLoadImagesFormatExtensionOverridesSource(t *testing.T) {
	doc := &gltf.Document{
		Images: []*gltf.Image{
			{URI: "a.png"},
			{URI: "a.webp"},
		},
		Textures: []*gltf.Texture{
			{
				Source: u32(0),
				Extensions: gltf.Extensions{
					"EXT_texture_webp": map[string]interface{}{"source": float64(1)},
				},
			},
		},
	}
	m := &Model{}
	loadImages(doc, m)
	if m.Textures[0].ImageIndex != 1 {
		t.Fatalf("expected webp source 1, got %d", m.Textures[0].ImageIndex)
	}
}

func TestLoadImagesOutOfRangeSourceDegrades(t *testing.T) {
	doc := &gltf.Document{
		Textures: []*gltf.Texture{{Source: u32(7)}},
	}
	m := &Model{}
	loadImages(doc, m)
	if m.Textures[0].ImageIndex != -1 {
		t.Fatalf("out-of-range source should degrade to -1, got %d", m.Textures[0].ImageIndex)
	}
}

func TestImageLoadOrderLargestFirst(t *testing.T) {
	m := &Model{Images: []ImageData{
		{Data: make([]byte, 10)},
		{Data: make([]byte, 1000)},
		{Data: make([]byte, 100)},
	}}
	order := m.ImageLoadOrder()
	if order[0] != 1 || order[1] != 2 || order[2] != 0 {
		t.Fatalf("expected size-descending order [1 2 0], got %v", order)
	}
}
