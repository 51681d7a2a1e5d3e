package loaders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type TextureLoader struct{}

// Load decodes the image at path into a texture named after the file.
func (tl *TextureLoader) Load(path string) (*metadata.Texture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return DecodeTexture(name, file)
}

// DecodeTexture decodes any registered image format (png, jpeg, bmp, tiff,
// webp) into straight alpha RGBA8 pixels.
func DecodeTexture(name string, r io.Reader) (*metadata.Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", name, err)
	}

	bounds := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return &metadata.Texture{
		Name:         name,
		Width:        uint32(bounds.Dx()),
		Height:       uint32(bounds.Dy()),
		ChannelCount: 4,
		Pixels:       nrgba.Pix,
	}, nil
}

func decodeTextureBytes(name string, data []byte) (*metadata.Texture, error) {
	return DecodeTexture(name, bytes.NewReader(data))
}

// IsTextureFile reports whether path has an extension the loader can decode.
func IsTextureFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}
