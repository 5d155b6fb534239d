package build

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goplus/bzlpkg/formula"
	"github.com/goplus/bzlpkg/pkgs/files"
	"github.com/goplus/bzlpkg/pkgs/mod/module"
)

// Workspace directory layout:
//
//	workspaceDir/
//	  <escaped>/                      # recipe-level dir (cacheDir)
//	    .cache.json                   # build cache: maps "version-packageID" → buildEntry
//	  <escaped>@<version>/
//	    <packageID>/                  # build folder (see package layout)
//	    <packageID>.lock
const cacheFile = ".cache.json"

// buildEntry contains metadata about a single successful build.
type buildEntry struct {
	Metadata  string           `json:"metadata"`
	Matrix    string           `json:"matrix"`
	PackageID string           `json:"package_id"`
	Dir       string           `json:"dir"`
	RunID     string           `json:"run_id"`
	CppInfo   *formula.CppInfo `json:"cpp_info,omitempty"`
	BuildTime time.Time        `json:"build_time"`
}

// buildCache maps "version-packageID" keys to their build entries.
type buildCache struct {
	Cache map[string]*buildEntry `json:"cache"`
}

func cacheKey(version, packageID string) string {
	return version + "-" + packageID
}

func (c *buildCache) get(version, packageID string) (*buildEntry, bool) {
	entry, ok := c.Cache[cacheKey(version, packageID)]
	return entry, ok
}

func (c *buildCache) set(version, packageID string, entry *buildEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*buildEntry)
	}
	c.Cache[cacheKey(version, packageID)] = entry
}

// cacheDir returns the recipe-level directory for cache storage: workspaceDir/<escapedName>.
func (b *Builder) cacheDir(name string) (string, error) {
	escaped, err := module.EscapePath(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, escaped), nil
}

// loadCache reads the cache file for a recipe from the workspace directory.
func (b *Builder) loadCache(name string) (*buildCache, error) {
	dir, err := b.cacheDir(name)
	if err != nil {
		return nil, err
	}
	return readCache(filepath.Join(dir, cacheFile))
}

func readCache(path string) (*buildCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

// saveCache writes the cache file for a recipe to the workspace directory.
func (b *Builder) saveCache(name string, cache *buildCache) error {
	dir, err := b.cacheDir(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	_, err = files.Save(dir, cacheFile, data, 0o644)
	return err
}

// updateCache applies fn to the cache of a recipe under the cache lock.
func (b *Builder) updateCache(ctx context.Context, name string, fn func(*buildCache)) error {
	dir, err := b.cacheDir(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	unlock, err := lockFile(ctx, filepath.Join(dir, cacheFile+".lock"))
	if err != nil {
		return err
	}
	defer unlock()

	cache, err := b.loadCache(name)
	if errors.Is(err, fs.ErrNotExist) {
		cache, err = &buildCache{}, nil
	}
	if err != nil {
		return err
	}
	fn(cache)
	return b.saveCache(name, cache)
}

// CachedBuild is a finished build recorded in the workspace.
type CachedBuild struct {
	Name      string
	Version   string
	PackageID string
	Matrix    string
	Dir       string
	Metadata  string
	RunID     string
	BuildTime time.Time
}

// Lookup returns the cached build of name/version with the given package
// id.
func (b *Builder) Lookup(name, version, packageID string) (*CachedBuild, bool) {
	cache, err := b.loadCache(name)
	if err != nil {
		return nil, false
	}
	e, ok := cache.get(version, packageID)
	if !ok {
		return nil, false
	}
	return e.cached(name, version), true
}

// List returns every cached build in the workspace, sorted by name,
// version and build time.
func (b *Builder) List() ([]CachedBuild, error) {
	entries, err := os.ReadDir(b.workspaceDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var builds []CachedBuild
	for _, d := range entries {
		if !d.IsDir() || strings.Contains(d.Name(), "@") {
			continue
		}
		cache, err := readCache(filepath.Join(b.workspaceDir, d.Name(), cacheFile))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for key, e := range cache.Cache {
			version := strings.TrimSuffix(key, "-"+e.PackageID)
			builds = append(builds, *e.cached(d.Name(), version))
		}
	}
	sort.Slice(builds, func(i, j int) bool {
		x, y := builds[i], builds[j]
		if x.Name != y.Name {
			return x.Name < y.Name
		}
		if x.Version != y.Version {
			return x.Version < y.Version
		}
		return x.BuildTime.Before(y.BuildTime)
	})
	return builds, nil
}

func (e *buildEntry) cached(name, version string) *CachedBuild {
	return &CachedBuild{
		Name:      name,
		Version:   version,
		PackageID: e.PackageID,
		Matrix:    e.Matrix,
		Dir:       e.Dir,
		Metadata:  e.Metadata,
		RunID:     e.RunID,
		BuildTime: e.BuildTime,
	}
}
