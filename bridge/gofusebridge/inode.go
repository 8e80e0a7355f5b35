package gofusebridge

import (
	"os"
	"sync"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// inodeManager allocates stable inode numbers for paths and caches
// attributes/directory listings. It caches attributes and directory
// entries only, never file content.
type inodeManager struct {
	mu          sync.RWMutex
	pathToInode map[string]uint64
	inodeToInfo map[uint64]*cachedAttr
	nextInode   uint64

	dirCache map[string]*dirCacheEntry

	attrTTL, dirTTL time.Duration
	maxInodes       int
	maxDirs         int
}

type cachedAttr struct {
	attr      *fuse.Attr
	timestamp time.Time
	modTime   time.Time
	size      int64
}

type dirCacheEntry struct {
	entries   []fuse.DirEntry
	timestamp time.Time
}

func newInodeManager(maxInodes, maxDirs int, attrTTL, dirTTL time.Duration) *inodeManager {
	return &inodeManager{
		pathToInode: make(map[string]uint64),
		inodeToInfo: make(map[uint64]*cachedAttr),
		dirCache:    make(map[string]*dirCacheEntry),
		nextInode:   1,
		attrTTL:     attrTTL,
		dirTTL:      dirTTL,
		maxInodes:   maxInodes,
		maxDirs:     maxDirs,
	}
}

// GetInode returns path's inode number, allocating one if the path is new
// or has changed (different size/mtime) since it was last seen.
func (im *inodeManager) GetInode(path string, info os.FileInfo) uint64 {
	im.mu.Lock()
	defer im.mu.Unlock()

	if ino, exists := im.pathToInode[path]; exists {
		if im.isSameFile(ino, info) {
			return ino
		}
		delete(im.inodeToInfo, ino)
	}

	im.nextInode++
	ino := im.nextInode
	im.pathToInode[path] = ino
	im.inodeToInfo[ino] = &cachedAttr{timestamp: time.Now(), modTime: info.ModTime(), size: info.Size()}

	if im.maxInodes > 0 && len(im.pathToInode) > im.maxInodes {
		im.evictOldestInodeLocked()
	}
	return ino
}

func (im *inodeManager) isSameFile(ino uint64, info os.FileInfo) bool {
	cached, exists := im.inodeToInfo[ino]
	if !exists {
		return false
	}
	return cached.modTime.Equal(info.ModTime()) && cached.size == info.Size()
}

// evictOldestInodeLocked drops one arbitrary entry, the first one Go's
// randomized map iteration yields, once the table grows past maxInodes;
// the dropped entry is not necessarily the oldest.
func (im *inodeManager) evictOldestInodeLocked() {
	for path, ino := range im.pathToInode {
		delete(im.pathToInode, path)
		delete(im.inodeToInfo, ino)
		return
	}
}

// GetCached returns a cached attribute if present and not expired.
func (im *inodeManager) GetCached(path string) *fuse.Attr {
	if im.attrTTL <= 0 {
		return nil
	}
	im.mu.RLock()
	defer im.mu.RUnlock()

	ino, exists := im.pathToInode[path]
	if !exists {
		return nil
	}
	cached := im.inodeToInfo[ino]
	if cached == nil || cached.attr == nil {
		return nil
	}
	if time.Since(cached.timestamp) > im.attrTTL {
		return nil
	}
	return cached.attr
}

// Cache stores attr for the inode it names.
func (im *inodeManager) Cache(attr *fuse.Attr) {
	if im.attrTTL <= 0 {
		return
	}
	im.mu.Lock()
	defer im.mu.Unlock()

	if cached, exists := im.inodeToInfo[attr.Ino]; exists {
		cached.attr = attr
		cached.timestamp = time.Now()
	}
}

// CacheDir stores a directory listing for path.
func (im *inodeManager) CacheDir(path string, entries []fuse.DirEntry) {
	if im.dirTTL <= 0 {
		return
	}
	im.mu.Lock()
	defer im.mu.Unlock()

	im.dirCache[path] = &dirCacheEntry{entries: entries, timestamp: time.Now()}
	if im.maxDirs > 0 && len(im.dirCache) > im.maxDirs {
		for k := range im.dirCache {
			delete(im.dirCache, k)
			break
		}
	}
}

// GetDirCache returns a cached directory listing if present and fresh.
func (im *inodeManager) GetDirCache(path string) []fuse.DirEntry {
	if im.dirTTL <= 0 {
		return nil
	}
	im.mu.RLock()
	defer im.mu.RUnlock()

	entry := im.dirCache[path]
	if entry == nil || time.Since(entry.timestamp) > im.dirTTL {
		return nil
	}
	return entry.entries
}

// InvalidateDir drops path's cached directory listing, called whenever a
// create/mkdir/unlink/rmdir/rename touches that directory's contents.
func (im *inodeManager) InvalidateDir(path string) {
	im.mu.Lock()
	defer im.mu.Unlock()
	delete(im.dirCache, path)
}

// Clear empties every cache, called on unmount.
func (im *inodeManager) Clear() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.pathToInode = make(map[string]uint64)
	im.inodeToInfo = make(map[uint64]*cachedAttr)
	im.dirCache = make(map[string]*dirCacheEntry)
}

// Stats reports cache occupancy for bridge.Stats callers.
func (im *inodeManager) Stats() (inodes, dirs int) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return len(im.pathToInode), len(im.dirCache)
}
