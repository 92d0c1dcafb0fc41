package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/voxrt/engine/assets/loaders"
	"github.com/spaghettifunk/voxrt/engine/containers"
	"github.com/spaghettifunk/voxrt/engine/core"
)

// maxPendingChanges bounds the names queued between two drains.
const maxPendingChanges = 64

type AssetInfo struct {
	Path       string
	Type       loaders.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes the compiled shaders under a directory and, when
// watching, queues the names of the ones that change on disk. The queue is
// drained from the main thread with DispatchChanges.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]Loader

	mutex   sync.Mutex
	changed *containers.RingQueue[string]
	pending map[string]bool

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() *AssetManager {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[loaders.ResourceType]Loader),
		changed: containers.NewRingQueue[string](maxPendingChanges),
		pending: make(map[string]bool),
	}
	am.registerLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})
	return am
}

// Initialize indexes dir. With watch set, changes below dir are tracked
// until Shutdown.
func (am *AssetManager) Initialize(dir string, watch bool) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("asset directory: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("asset directory %s is not a directory", dir)
	}
	am.root = dir

	if watch {
		fsWatch, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		am.fsnotify = fsWatch
		am.done = make(chan struct{})
		am.stopped = make(chan struct{})
		go am.start()
	}

	if err := am.watchRecursive(dir); err != nil {
		_ = am.Shutdown()
		return err
	}
	core.LogInfo("Asset manager indexed %d shaders under %s (watching: %t).", len(am.assets), dir, watch)
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Shader returns the bytecode of the named compiled shader, read from disk
// on every call so an edited file is picked up.
func (am *AssetManager) Shader(name string) ([]byte, error) {
	res, err := am.LoadAsset(name)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// LoadAsset loads an indexed asset using the loader of its type.
func (am *AssetManager) LoadAsset(name string) (*loaders.Resource, error) {
	am.mutex.Lock()
	asset, exists := am.assets[name]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[name] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", name)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %d", asset.Type)
	}
	return loader.Load(asset.Path)
}

// Changed drains the names of assets written since the last call, each
// name once, in the order they first changed.
func (am *AssetManager) Changed() []string {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	var names []string
	for !am.changed.IsEmpty() {
		name, _ := am.changed.Dequeue()
		delete(am.pending, name)
		names = append(names, name)
	}
	return names
}

// DispatchChanges fires EVENT_CODE_SHADER_CHANGED for every shader changed
// since the last call. It must run on the thread that owns the renderer.
func (am *AssetManager) DispatchChanges() int {
	names := am.Changed()
	for _, name := range names {
		var ctx core.EventContext
		ctx.Data.C[0] = name
		core.EventFire(core.EVENT_CODE_SHADER_CHANGED, am, ctx)
	}
	return len(names)
}

// Shutdown stops the watcher. It is safe to call more than once.
func (am *AssetManager) Shutdown() error {
	if am.isClosed || am.fsnotify == nil {
		am.isClosed = true
		return nil
	}
	am.isClosed = true
	close(am.done)
	<-am.stopped
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Has(fsnotify.Create) {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
				if am.handleFileEvent(e.Name) {
					am.markChanged(e.Name)
				}
			}
			if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			if err := am.fsnotify.Close(); err != nil {
				core.LogWarn("failed to close asset watcher: %s", err)
			}
			return
		}
	}
}

// watchRecursive indexes every file under path and, when a watcher runs,
// adds every directory to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			am.handleFileEvent(walkPath)
			return nil
		}
		if am.fsnotify == nil {
			return nil
		}
		return am.fsnotify.Add(walkPath)
	})
}

// assetName is the slash separated path of file relative to the root.
func (am *AssetManager) assetName(path string) string {
	rel, err := filepath.Rel(am.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Handle the creation or modification of a file. It reports whether the
// file is a known asset type.
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := determineAssetType(path)
	if assetType == loaders.ResourceTypeNone {
		return false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[am.assetName(path)] = AssetInfo{
		Path: path,
		Type: assetType,
	}
	return true
}

func (am *AssetManager) markChanged(path string) {
	name := am.assetName(path)
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.pending[name] {
		return
	}
	if err := am.changed.Enqueue(name); err != nil {
		core.LogWarn("dropping change of %s: %s", name, err)
		return
	}
	am.pending[name] = true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, am.assetName(path))
}

func determineAssetType(path string) loaders.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return loaders.ResourceTypeShader
	default:
		return loaders.ResourceTypeNone
	}
}
