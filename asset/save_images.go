package asset

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// writeImages round-trips the model's captured images and texture
// bindings into doc. Embedded payloads are written back into the
// document's buffer; URI-referenced images are copied next to destPath
// with their URI-decoded names, preserving subdirectories.
func writeImages(doc *gltf.Document, m *Model, destPath string) error {
	if len(m.Images) == 0 && len(m.Textures) == 0 {
		return nil
	}
	destDir := filepath.Dir(destPath)

	for i, img := range m.Images {
		if len(img.Data) > 0 {
			mime := img.MimeType
			if mime == "" {
				mime = sniffImageMime(img.Data)
			}
			if _, err := modeler.WriteImage(doc, img.Name, mime, bytes.NewReader(img.Data)); err != nil {
				return fmt.Errorf("asset: save image %d: %w", i, err)
			}
			continue
		}
		doc.Images = append(doc.Images, &gltf.Image{Name: img.Name, MimeType: img.MimeType, URI: img.URI})
		if img.URI == "" {
			continue
		}
		if err := copyImageFile(m.SourceDir, destDir, img.URI); err != nil {
			fmt.Printf("asset: save: copy image %q: %v\n", img.URI, err)
		}
	}

	for _, tex := range m.Textures {
		gt := &gltf.Texture{Name: tex.Name}
		if tex.ImageIndex >= 0 {
			v := uint32(tex.ImageIndex)
			gt.Source = &v
		}
		doc.Textures = append(doc.Textures, gt)
	}
	return nil
}

// copyImageFile copies one URI-referenced image from the source asset's
// directory into the save destination, decoding percent-escapes in the
// URI for the on-disk name and recreating subdirectories.
func copyImageFile(srcDir, destDir, uri string) error {
	rel, err := url.PathUnescape(uri)
	if err != nil {
		rel = uri
	}
	src := filepath.Join(srcDir, filepath.FromSlash(rel))
	dst := filepath.Join(destDir, filepath.FromSlash(rel))
	if src == dst {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func sniffImageMime(data []byte) string {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}):
		return "image/png"
	case len(data) >= 2 && data[0] == 0xff && data[1] == 0xd8:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
