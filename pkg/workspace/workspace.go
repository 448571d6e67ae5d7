// Package workspace implements the blob workspace collaborator (spec.md
// §6): the object-storage surface holding source manifests, transient
// working files, and phase output artifacts. The core only depends on the
// Blobs interface; LocalFS is a reference implementation (a stand-in for
// an Azure Blob Storage-backed one, which is out of scope per spec.md §1).
//
// Shaped after the teacher's tool-execution boundary
// (pkg/mcp.ToolExecutor.Execute(ctx, call) (*ToolResult, error)): a narrow,
// context-aware, error-as-value surface that experts invoke as tools.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// MandatoryYAMLHeader is prefixed to every converted manifest (spec.md §6).
const MandatoryYAMLHeader = "# AI generated content - it may be incorrect"

// BlobInfo describes one object returned by ListBlobs/FindBlobs.
type BlobInfo struct {
	Name string
	Size int64
}

// Blobs is the object-storage collaborator contract the core consumes.
// container/folder identify the logical location; callers pass the three
// well-known folders from ProcessContext (source, workspace, output).
type Blobs interface {
	ListBlobs(ctx context.Context, container, folder string, recursive bool) ([]BlobInfo, error)
	FindBlobs(ctx context.Context, pattern, container, folder string) ([]BlobInfo, error)
	CheckBlobExists(ctx context.Context, name, container, folder string) (bool, error)
	ReadBlobContent(ctx context.Context, name, container, folder string) (string, error)
	SaveContentToBlob(ctx context.Context, name, content, container, folder string) error
}

// LocalFS is a Blobs implementation backed by the local filesystem, rooted
// at Root. Containers map to subdirectories of Root; folders map to
// subdirectories of the container.
type LocalFS struct {
	Root string
}

// NewLocalFS returns a LocalFS rooted at root. The directory is not
// created; callers are expected to point it at an already-provisioned
// workspace mount.
func NewLocalFS(root string) *LocalFS {
	return &LocalFS{Root: root}
}

func (l *LocalFS) path(container, folder string) string {
	return filepath.Join(l.Root, container, folder)
}

func (l *LocalFS) ListBlobs(ctx context.Context, container, folder string, recursive bool) ([]BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := l.path(container, folder)
	var out []BlobInfo
	walk := func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if !recursive && p != base {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, BlobInfo{Name: rel, Size: info.Size()})
		return nil
	}
	if err := filepath.WalkDir(base, walk); err != nil {
		return nil, fmt.Errorf("list blobs in %s/%s: %w", container, folder, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (l *LocalFS) FindBlobs(ctx context.Context, pattern, container, folder string) ([]BlobInfo, error) {
	all, err := l.ListBlobs(ctx, container, folder, true)
	if err != nil {
		return nil, err
	}
	var matched []BlobInfo
	for _, b := range all {
		ok, err := filepath.Match(pattern, filepath.Base(b.Name))
		if err != nil {
			return nil, fmt.Errorf("invalid blob pattern %q: %w", pattern, err)
		}
		if ok {
			matched = append(matched, b)
		}
	}
	return matched, nil
}

func (l *LocalFS) CheckBlobExists(ctx context.Context, name, container, folder string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(l.path(container, folder), name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("check blob exists %s/%s/%s: %w", container, folder, name, err)
}

func (l *LocalFS) ReadBlobContent(ctx context.Context, name, container, folder string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(l.path(container, folder), name))
	if err != nil {
		return "", fmt.Errorf("read blob %s/%s/%s: %w", container, folder, name, err)
	}
	return string(data), nil
}

func (l *LocalFS) SaveContentToBlob(ctx context.Context, name, content, container, folder string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := l.path(container, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create folder %s/%s: %w", container, folder, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("save blob %s/%s/%s: %w", container, folder, name, err)
	}
	return nil
}

// IsConvertedManifest reports whether name follows the mandatory az-
// converted-file naming convention.
func IsConvertedManifest(name string) bool {
	return strings.HasPrefix(filepath.Base(name), "az-")
}

// PrefetchFolders concurrently lists every folder in folders, bounded by a
// small worker count, and returns the combined results keyed by folder.
// Grounded on golang.org/x/sync/errgroup usage in the wider retrieval
// pack's Kubernetes-adjacent tooling, applied here to blob listing instead
// of cluster resource listing (see SPEC_FULL.md Supplemented Features 4).
func PrefetchFolders(ctx context.Context, blobs Blobs, container string, folders []string) (map[string][]BlobInfo, error) {
	const maxWorkers = 4

	results := make(map[string][]BlobInfo, len(folders))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for _, folder := range folders {
		folder := folder
		g.Go(func() error {
			listed, err := blobs.ListBlobs(gctx, container, folder, true)
			if err != nil {
				return fmt.Errorf("prefetch folder %s: %w", folder, err)
			}
			mu.Lock()
			results[folder] = listed
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
