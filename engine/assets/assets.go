package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
)

type AssetType uint8

const (
	AssetTypeNone AssetType = iota
	AssetTypeModel
	AssetTypeTexture
	AssetTypeShader
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeModel:
		return "model"
	case AssetTypeTexture:
		return "texture"
	case AssetTypeShader:
		return "shader"
	}
	return "none"
}

type AssetInfo struct {
	Path     string
	Type     AssetType
	Modified time.Time
}

// ReloadEvent reports a created or modified asset file.
type ReloadEvent struct {
	Path string
	Type AssetType
}

const reloadQueueSize = 64

/**
 * @brief Indexes the asset directory and watches it for changes. Change
 * notifications are produced on a goroutine and delivered through a buffered
 * channel, which the main loop drains with Poll.
 */
type AssetManager struct {
	assets map[string]AssetInfo
	mutex  sync.RWMutex

	gltf loaders.GLTFLoader

	fsnotify *fsnotify.Watcher
	reloads  chan ReloadEvent
	done     chan struct{}
	stopped  chan struct{}
	isClosed bool
}

func NewAssetManager() *AssetManager {
	return &AssetManager{
		assets:  make(map[string]AssetInfo),
		reloads: make(chan ReloadEvent, reloadQueueSize),
	}
}

// Initialize indexes dir and, when watch is set, starts watching it recursively.
func (am *AssetManager) Initialize(dir string, watch bool) error {
	if !watch {
		return am.indexRecursive(dir)
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		core.LogError("asset watcher: %s", err)
		return err
	}
	am.fsnotify = fsWatch
	am.done = make(chan struct{})
	am.stopped = make(chan struct{})

	if err := am.watchRecursive(dir); err != nil {
		fsWatch.Close()
		am.fsnotify = nil
		return err
	}
	go am.start()
	core.LogInfo("watching assets in %s", dir)
	return nil
}

// LoadModel loads a glTF file.
func (am *AssetManager) LoadModel(path string) (*loaders.GLTFResult, error) {
	return am.gltf.Load(path)
}

func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Clean(path)]
	return info, ok
}

// Poll returns the reload events queued since the last call without blocking.
// Events for the same file are merged.
func (am *AssetManager) Poll() []ReloadEvent {
	var events []ReloadEvent
	seen := make(map[string]bool)
	for {
		select {
		case ev := <-am.reloads:
			if !seen[ev.Path] {
				seen[ev.Path] = true
				events = append(events, ev)
			}
		default:
			return events
		}
	}
}

// Shutdown stops the watcher goroutine. Safe to call more than once.
func (am *AssetManager) Shutdown() {
	if am.isClosed {
		return
	}
	am.isClosed = true
	if am.done != nil {
		close(am.done)
		<-am.stopped
	}
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	path := filepath.Clean(e.Name)
	if s, err := os.Stat(path); err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := am.watchRecursive(path); err != nil {
				core.LogWarn("asset watcher: %s", err)
			}
		}
		return
	}

	switch {
	case e.Has(fsnotify.Create) || e.Has(fsnotify.Write):
		info, ok := am.index(path)
		if !ok {
			return
		}
		select {
		case am.reloads <- ReloadEvent{Path: info.Path, Type: info.Type}:
		default:
			core.LogWarn("asset reload queue full, dropping %s", path)
		}
	case e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename):
		am.removeAsset(path)
	}
}

// watchRecursive adds dir and every directory below it to the watch list and
// indexes the files found on the way.
func (am *AssetManager) watchRecursive(dir string) error {
	return filepath.Walk(dir, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.index(walkPath)
		return nil
	})
}

func (am *AssetManager) indexRecursive(dir string) error {
	return filepath.Walk(dir, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			am.index(walkPath)
		}
		return nil
	})
}

// index records path if it is a known asset type.
func (am *AssetManager) index(path string) (AssetInfo, bool) {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return AssetInfo{}, false
	}
	info := AssetInfo{
		Path:     filepath.Clean(path),
		Type:     assetType,
		Modified: time.Now(),
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[info.Path] = info
	return info, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) AssetType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		return AssetTypeModel
	case ".spv":
		return AssetTypeShader
	}
	if loaders.IsTextureFile(path) {
		return AssetTypeTexture
	}
	return AssetTypeNone
}
