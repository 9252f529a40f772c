package engine

import (
	"bytes"
	"errors"
	"sync"

	"github.com/coocood/freecache"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// MaterialTemplate is the JSON description of a material.
type MaterialTemplate struct {
	Name         string             `json:"name"`
	IsInstanced  bool               `json:"isInstanced"`
	PixelShader  string             `json:"pixelShader"`
	VertexShader string             `json:"vertexShader"`
	Textures     []TextureBinding   `json:"textures"`
	Ints         map[string]int     `json:"ints"`
	Floats       map[string]float64 `json:"floats"`
}

// TextureBinding binds the texture at Path to the shader slot Key.
type TextureBinding struct {
	Path string `json:"path"`
	Key  string `json:"key"`
}

// ResourceManager loads assets through the asset backend and tracks them so each file is only
// loaded once. Textures and shaders are deduplicated by path and materials by name. Raw file
// contents are kept in a bounded byte cache, so materials sharing shaders or textures don't hit
// the file system again. Safe for concurrent use.
type ResourceManager struct {
	files   FileSystem
	backend AssetBackend
	cache   *freecache.Cache
	logger  zerolog.Logger

	mu        sync.Mutex
	textures  map[string]Handle
	shaders   map[shaderKey]Handle
	materials map[string]Handle
}

type shaderKey struct {
	path  string
	stage ShaderStage
}

// NewResourceManager creates a resource manager with a file cache of cacheBytes bytes. freecache
// raises sizes below 512KB to 512KB.
func NewResourceManager(files FileSystem, backend AssetBackend, cacheBytes int, logger zerolog.Logger) *ResourceManager {
	return &ResourceManager{
		files:     files,
		backend:   backend,
		cache:     freecache.NewCache(cacheBytes),
		logger:    logger,
		textures:  make(map[string]Handle),
		shaders:   make(map[shaderKey]Handle),
		materials: make(map[string]Handle),
	}
}

// LoadTexture returns the texture at path, loading it on first use.
func (rm *ResourceManager) LoadTexture(path string) (Handle, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.loadTexture(path)
}

// LoadShader returns the shader at path for the given stage, creating it on first use.
func (rm *ResourceManager) LoadShader(path string, stage ShaderStage) (Handle, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.loadShader(path, stage)
}

// Material returns a material created earlier by name.
func (rm *ResourceManager) Material(name string) (Handle, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	h, ok := rm.materials[name]
	return h, ok
}

// CreateMaterial creates the material described by the JSON template at path, loading its shaders
// and textures. If a material with the template's name exists, it is returned instead.
func (rm *ResourceManager) CreateMaterial(path string) (Handle, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	data, err := rm.readFile(path)
	if err != nil {
		return 0, err
	}
	tmpl, err := parseMaterialTemplate(data)
	if err != nil {
		return 0, eris.Wrapf(err, "material template %s", path)
	}

	if h, ok := rm.materials[tmpl.Name]; ok {
		return h, nil
	}

	pixel, err := rm.loadShader(tmpl.PixelShader, ShaderPixel)
	if err != nil {
		return 0, err
	}
	vertex, err := rm.loadShader(tmpl.VertexShader, ShaderVertex)
	if err != nil {
		return 0, err
	}

	textures := make(map[string]Handle, len(tmpl.Textures))
	for _, binding := range tmpl.Textures {
		h, err := rm.loadTexture(binding.Path)
		if err != nil {
			return 0, err
		}
		textures[binding.Key] = h
	}

	h, err := rm.backend.CreateMaterial(MaterialDesc{
		Name:         tmpl.Name,
		VertexShader: vertex,
		PixelShader:  pixel,
		IsInstanced:  tmpl.IsInstanced,
		Textures:     textures,
		Ints:         tmpl.Ints,
		Floats:       tmpl.Floats,
	})
	if err != nil {
		return 0, eris.Wrapf(ErrResourceLoadFailure, "material %s: %v", tmpl.Name, err)
	}

	rm.materials[tmpl.Name] = h
	rm.logger.Debug().Str("material", tmpl.Name).Str("path", path).Uint64("handle", uint64(h)).Msg("created material")
	return h, nil
}

// CacheStats returns the number of file cache hits and misses.
func (rm *ResourceManager) CacheStats() (hits, misses int64) {
	return rm.cache.HitCount(), rm.cache.MissCount()
}

func (rm *ResourceManager) loadTexture(path string) (Handle, error) {
	if h, ok := rm.textures[path]; ok {
		return h, nil
	}
	data, err := rm.readFile(path)
	if err != nil {
		return 0, err
	}
	h, err := rm.backend.LoadTexture(path, data)
	if err != nil {
		return 0, eris.Wrapf(ErrResourceLoadFailure, "texture %s: %v", path, err)
	}
	rm.textures[path] = h
	rm.logger.Debug().Str("texture", path).Uint64("handle", uint64(h)).Msg("loaded texture")
	return h, nil
}

func (rm *ResourceManager) loadShader(path string, stage ShaderStage) (Handle, error) {
	key := shaderKey{path: path, stage: stage}
	if h, ok := rm.shaders[key]; ok {
		return h, nil
	}
	data, err := rm.readFile(path)
	if err != nil {
		return 0, err
	}
	h, err := rm.backend.CreateShader(path, stage, data)
	if err != nil {
		return 0, eris.Wrapf(ErrResourceLoadFailure, "%s shader %s: %v", stage, path, err)
	}
	rm.shaders[key] = h
	rm.logger.Debug().Str("shader", path).Stringer("stage", stage).Uint64("handle", uint64(h)).Msg("created shader")
	return h, nil
}

// readFile returns the contents of a file, from the cache when possible.
func (rm *ResourceManager) readFile(path string) ([]byte, error) {
	key := []byte(path)
	data, err := rm.cache.Get(key)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, freecache.ErrNotFound) {
		return nil, eris.Wrapf(err, "failed to read %s from the file cache", path)
	}

	data, err = rm.files.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrResourceLoadFailure, "read %s: %v", path, err)
	}

	// Files too large for the cache are still returned, they just aren't cached.
	if err := rm.cache.Set(key, data, 0); err != nil {
		rm.logger.Debug().Err(err).Str("path", path).Int("size", len(data)).Msg("file not cached")
	}
	return data, nil
}

// parseMaterialTemplate decodes a material template. NUL bytes, such as the terminator some asset
// tools append, are stripped first.
func parseMaterialTemplate(data []byte) (MaterialTemplate, error) {
	data = bytes.ReplaceAll(data, []byte{0}, nil)

	var tmpl MaterialTemplate
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return MaterialTemplate{}, eris.Wrap(err, "failed to decode material template")
	}

	if tmpl.Name == "" {
		return MaterialTemplate{}, eris.New("material template has no name")
	}
	if tmpl.PixelShader == "" || tmpl.VertexShader == "" {
		return MaterialTemplate{}, eris.Errorf("material %s needs a pixel and a vertex shader", tmpl.Name)
	}
	return tmpl, nil
}
