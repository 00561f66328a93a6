package vectordb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ziadkadry99/docqa/internal/chunker"
	"github.com/ziadkadry99/docqa/internal/embeddings"
	"github.com/ziadkadry99/docqa/internal/logging"
)

const tmpPrefix = ".tmp-"

// touchInterval throttles last-access writes for indexes served from memory.
const touchInterval = time.Minute

// BuildInput is what a ChunkSource produces on a cache miss.
type BuildInput struct {
	Chunks       []chunker.Chunk
	ChunkSize    int
	ChunkOverlap int
	TextLength   int
}

// ChunkSource extracts and chunks a document. GetOrBuild only calls it
// when no reusable index exists.
type ChunkSource func(ctx context.Context) (*BuildInput, error)

// Options configures a Cache.
type Options struct {
	// Dir holds one subdirectory per indexed document.
	Dir    string
	Prefix string
	// MemoryTTL bounds how long a loaded index stays in memory. Zero keeps
	// it until the process exits or Remove is called.
	MemoryTTL time.Duration
	Logger    *zap.Logger
}

// Cache maps content hashes to vector indexes, in memory and on disk.
type Cache struct {
	dir      string
	prefix   string
	embedder *embeddings.Batch
	mem      *gocache.Cache
	group    singleflight.Group
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	flights map[string]*flight
	touched map[string]time.Time
}

// flight is the context of an in-progress build, shared by every caller
// waiting on it. It is cancelled once the last of them gives up.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewCache creates the cache directory if needed.
func NewCache(embedder *embeddings.Batch, opts Options) (*Cache, error) {
	if opts.Dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if opts.Prefix == "" {
		opts.Prefix = "index"
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	ttl, cleanup := gocache.NoExpiration, time.Duration(0)
	if opts.MemoryTTL > 0 {
		ttl, cleanup = opts.MemoryTTL, opts.MemoryTTL
	}

	return &Cache{
		dir:      opts.Dir,
		prefix:   opts.Prefix,
		embedder: embedder,
		mem:      gocache.New(ttl, cleanup),
		logger:   logging.OrNop(opts.Logger),
		now:      func() time.Time { return time.Now().UTC() },
		flights:  make(map[string]*flight),
		touched:  make(map[string]time.Time),
	}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) path(hash string) string {
	return filepath.Join(c.dir, CacheKey(c.prefix, hash))
}

type buildResult struct {
	ix   *Index
	info BuildInfo
}

// GetOrBuild returns the index for hash. It tries memory, then disk, and
// finally builds from src. A persisted index that cannot be loaded or was
// built with a different embedding model is logged and rebuilt. At most
// one build per hash runs at a time; concurrent callers share its result.
// A caller whose ctx ends stops waiting without failing the others, and
// the build itself is cancelled only when no caller is left waiting.
func (c *Cache) GetOrBuild(ctx context.Context, hash string, src ChunkSource) (*Index, BuildInfo, error) {
	if !ValidHash(hash) {
		return nil, BuildInfo{}, fmt.Errorf("invalid content hash %q", hash)
	}
	key := CacheKey(c.prefix, hash)
	if v, ok := c.mem.Get(key); ok {
		c.touchMemory(hash)
		return v.(*Index), BuildInfo{Source: SourceMemory}, nil
	}

	for retried := false; ; retried = true {
		f := c.join(ctx, key)
		ch := c.group.DoChan(key, func() (interface{}, error) {
			return c.loadOrBuild(f.ctx, key, hash, src)
		})

		select {
		case <-ctx.Done():
			c.leave(key, f)
			return nil, BuildInfo{}, ctx.Err()
		case r := <-ch:
			c.leave(key, f)
			if r.Err != nil {
				// The shared build was cancelled after its callers left,
				// but this one joined in time to see the result.
				if !retried && ctx.Err() == nil && errors.Is(r.Err, context.Canceled) {
					continue
				}
				return nil, BuildInfo{}, r.Err
			}
			res := r.Val.(buildResult)
			return res.ix, res.info, nil
		}
	}
}

func (c *Cache) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

func (c *Cache) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
	}
}

func (c *Cache) loadOrBuild(ctx context.Context, key, hash string, src ChunkSource) (buildResult, error) {
	if v, ok := c.mem.Get(key); ok {
		return buildResult{ix: v.(*Index), info: BuildInfo{Source: SourceMemory}}, nil
	}

	ix, err := c.load(hash)
	if err == nil {
		c.mem.Set(key, ix, gocache.DefaultExpiration)
		return buildResult{ix: ix, info: BuildInfo{Source: SourceDisk}}, nil
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		c.logger.Warn("discarding cached index", zap.String("hash", hash), zap.Error(err))
	}

	ix, failed, err := c.build(ctx, hash, src)
	if err != nil {
		return buildResult{}, err
	}
	c.mem.Set(key, ix, gocache.DefaultExpiration)
	c.markTouched(hash, c.now())
	return buildResult{ix: ix, info: BuildInfo{Source: SourceBuilt, Failed: failed}}, nil
}

// touchMemory records an access served from memory, at most once per
// touchInterval per hash, so that Prune keeps indexes in active use.
func (c *Cache) touchMemory(hash string) {
	now := c.now()
	c.mu.Lock()
	last, ok := c.touched[hash]
	if ok && now.Sub(last) < touchInterval {
		c.mu.Unlock()
		return
	}
	c.touched[hash] = now
	c.mu.Unlock()

	if err := c.Touch(hash); err != nil {
		c.logger.Debug("updating last access", zap.String("hash", hash), zap.Error(err))
	}
}

func (c *Cache) markTouched(hash string, at time.Time) {
	c.mu.Lock()
	c.touched[hash] = at
	c.mu.Unlock()
}

var errNotCached = errors.New("index not cached")

// load returns errNotCached when nothing is persisted and a *LoadError
// when something is but cannot be used.
func (c *Cache) load(hash string) (*Index, error) {
	dir := c.path(hash)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, errNotCached
	}

	ix, err := loadIndex(dir)
	if err != nil {
		return nil, &LoadError{Dir: dir, Err: err}
	}
	m := ix.Manifest()
	switch {
	case m.Hash != hash:
		return nil, &LoadError{Dir: dir, Err: fmt.Errorf("manifest is for %s", m.Hash)}
	case m.Model != c.embedder.Name():
		return nil, &LoadError{Dir: dir, Err: fmt.Errorf("built with model %q, current model is %q", m.Model, c.embedder.Name())}
	case m.Dimensions != c.embedder.Dimensions():
		return nil, &LoadError{Dir: dir, Err: fmt.Errorf("built with %d dimensions, current model has %d", m.Dimensions, c.embedder.Dimensions())}
	}

	if err := c.Touch(hash); err != nil {
		c.logger.Debug("updating last access", zap.String("hash", hash), zap.Error(err))
	}
	c.markTouched(hash, c.now())
	c.logger.Debug("loaded cached index", zap.String("hash", hash), zap.Int("chunks", m.ChunkCount))
	return ix, nil
}

func (c *Cache) build(ctx context.Context, hash string, src ChunkSource) (*Index, int, error) {
	in, err := src(ctx)
	if err != nil {
		return nil, 0, err
	}
	if in == nil || len(in.Chunks) == 0 {
		return nil, 0, chunker.ErrNoChunks
	}

	texts := make([]string, len(in.Chunks))
	for i, ch := range in.Chunks {
		texts[i] = ch.Text
	}
	start := time.Now()
	vectors, stats, err := c.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, 0, fmt.Errorf("embedding chunks: %w", err)
	}

	now := c.now()
	ix, err := NewIndex(ctx, Manifest{
		Hash:         hash,
		Model:        c.embedder.Name(),
		Dimensions:   c.embedder.Dimensions(),
		ChunkSize:    in.ChunkSize,
		ChunkOverlap: in.ChunkOverlap,
		TextLength:   in.TextLength,
		CreatedAt:    now,
		LastAccess:   now,
	}, in.Chunks, vectors)
	if err != nil {
		return nil, 0, err
	}

	// An index that fails to persist is still served from memory.
	if err := c.persist(hash, ix); err != nil {
		c.logger.Warn("index not persisted", zap.String("hash", hash), zap.Error(err))
	}
	c.logger.Info("built index",
		zap.String("hash", hash),
		zap.Int("chunks", len(in.Chunks)),
		zap.Int("failed", stats.Failed),
		zap.Duration("took", time.Since(start)),
	)
	return ix, stats.Failed, nil
}

// persist writes ix into a temporary sibling directory and renames it into
// place, so a crash never leaves a partial index under the final name.
func (c *Cache) persist(hash string, ix *Index) error {
	tmp := filepath.Join(c.dir, tmpPrefix+uuid.NewString())
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	if err := ix.persist(tmp); err != nil {
		os.RemoveAll(tmp)
		return err
	}

	final := c.path(hash)
	if err := os.RemoveAll(final); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("removing stale index: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("moving index into place: %w", err)
	}
	return nil
}

// Touch records an access to the persisted index of hash.
func (c *Cache) Touch(hash string) error {
	if !ValidHash(hash) {
		return fmt.Errorf("invalid content hash %q", hash)
	}
	dir := c.path(hash)
	m, err := readManifest(dir)
	if err != nil {
		return err
	}
	m.LastAccess = c.now()
	return writeManifest(dir, m)
}

// Entry describes one persisted index.
type Entry struct {
	Hash       string
	Dir        string
	Size       int64
	Chunks     int
	Model      string
	CreatedAt  time.Time
	LastAccess time.Time
}

// List returns the persisted indexes, oldest first. Directories without a
// readable manifest are skipped.
func (c *Cache) List() ([]Entry, error) {
	des, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}

	var entries []Entry
	keyPrefix := c.prefix + "_"
	for _, de := range des {
		if !de.IsDir() || !strings.HasPrefix(de.Name(), keyPrefix) {
			continue
		}
		hash := strings.TrimPrefix(de.Name(), keyPrefix)
		if !ValidHash(hash) {
			continue
		}
		dir := filepath.Join(c.dir, de.Name())
		m, err := readManifest(dir)
		if err != nil {
			c.logger.Debug("skipping cache entry", zap.String("dir", dir), zap.Error(err))
			continue
		}
		entries = append(entries, Entry{
			Hash:       hash,
			Dir:        dir,
			Size:       dirSize(dir),
			Chunks:     m.ChunkCount,
			Model:      m.Model,
			CreatedAt:  m.CreatedAt,
			LastAccess: m.LastAccess,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].Hash < entries[j].Hash
	})
	return entries, nil
}

// Remove drops the index of hash from memory and disk. Removing a hash
// that is not cached is not an error.
func (c *Cache) Remove(hash string) error {
	if !ValidHash(hash) {
		return fmt.Errorf("invalid content hash %q", hash)
	}
	c.mem.Delete(CacheKey(c.prefix, hash))
	c.mu.Lock()
	delete(c.touched, hash)
	c.mu.Unlock()
	if err := os.RemoveAll(c.path(hash)); err != nil {
		return fmt.Errorf("removing index: %w", err)
	}
	return nil
}

// Prune removes every persisted index not accessed within maxAge and
// returns what it removed. maxAge <= 0 removes nothing.
func (c *Cache) Prune(maxAge time.Duration) ([]Entry, error) {
	if maxAge <= 0 {
		return nil, nil
	}
	entries, err := c.List()
	if err != nil {
		return nil, err
	}

	cutoff := c.now().Add(-maxAge)
	var removed []Entry
	for _, e := range entries {
		if !e.LastAccess.Before(cutoff) {
			continue
		}
		if err := c.Remove(e.Hash); err != nil {
			return removed, err
		}
		c.logger.Info("pruned index", zap.String("hash", e.Hash), zap.Time("last_access", e.LastAccess))
		removed = append(removed, e)
	}
	return removed, nil
}
