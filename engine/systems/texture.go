package systems

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. Matches the bindless array size. */
	MaxTextureCount uint32
}

type TextureSystem struct {
	Config *TextureSystemConfig
	// Array of registered textures, index == bindless slot.
	textures []*metadata.Texture
	// Hashtable for texture lookups.
	byName map[string]uint32
}

func NewTextureSystem(config *TextureSystemConfig) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &TextureSystem{
		Config: config,
		byName: make(map[string]uint32),
	}, nil
}

// Register adds texture and returns its slot. A named texture that is already
// registered returns the existing slot instead of being added twice.
func (ts *TextureSystem) Register(texture *metadata.Texture) (uint32, error) {
	if texture.Name != "" {
		if idx, ok := ts.byName[texture.Name]; ok {
			return idx, nil
		}
	}
	if uint32(len(ts.textures)) >= ts.Config.MaxTextureCount {
		err := fmt.Errorf("texture system full (%d textures), cannot register %q", ts.Config.MaxTextureCount, texture.Name)
		core.LogError(err.Error())
		return metadata.NoTexture, err
	}
	if texture.ID == uuid.Nil {
		texture.ID = uuid.New()
	}

	ts.textures = append(ts.textures, texture)
	idx := uint32(len(ts.textures) - 1)
	if texture.Name != "" {
		ts.byName[texture.Name] = idx
	}
	return idx, nil
}

func (ts *TextureSystem) Find(name string) (uint32, bool) {
	if name == "" {
		return metadata.NoTexture, false
	}
	idx, ok := ts.byName[name]
	if !ok {
		return metadata.NoTexture, false
	}
	return idx, true
}

// Get returns nil when index is unknown.
func (ts *TextureSystem) Get(index uint32) *metadata.Texture {
	if int(index) >= len(ts.textures) {
		return nil
	}
	return ts.textures[index]
}

func (ts *TextureSystem) Count() int {
	return len(ts.textures)
}

func (ts *TextureSystem) Textures() []*metadata.Texture {
	return ts.textures
}

// Clear forgets every texture. Backend resources must have been released first.
func (ts *TextureSystem) Clear() {
	ts.textures = ts.textures[:0]
	clear(ts.byName)
}
