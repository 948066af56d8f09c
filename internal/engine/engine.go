// Package engine orchestrates the recursive module-graph transformation:
// read, strip, extract, resolve, recurse, rewrite, persist. One Engine owns
// the memoization records, the in-flight registry and the loaded-value
// cache; they are never shared across instances.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"remod/internal/cachekey"
	"remod/internal/config"
	"remod/internal/diskcache"
	remoderr "remod/internal/errors"
	"remod/internal/extract"
	"remod/internal/fetch"
	"remod/internal/index"
	"remod/internal/logging"
	"remod/internal/paths"
	"remod/internal/resolution"
	"remod/internal/specifier"
	"remod/internal/strip"
)

// Options allows swapping collaborators, mainly for tests. Zero values get
// build-appropriate defaults.
type Options struct {
	Stripper  strip.Stripper
	Extractor extract.Extractor
	Fetcher   *fetch.Fetcher
	Cache     *diskcache.Cache
	Ledger    *index.Store
}

// Engine transforms module graphs. Safe for concurrent use: all shared
// state is guarded by mu, and the disk cache is content-addressed so
// racing writers are benign.
type Engine struct {
	cfg       *config.Config
	logger    *logging.Logger
	stripper  strip.Stripper
	extractor extract.Extractor
	fetcher   *fetch.Fetcher
	cache     *diskcache.Cache
	ledger    *index.Store

	mode        strip.Mode
	maxParallel int

	mu       sync.Mutex
	records  map[string]string   // (location, table id) -> final cache location
	inflight map[string]*pending // (location, table id) -> in-flight transformation
	loaded   map[string]interface{}
}

// pending is the future a concurrent requester of an in-flight module
// attaches to.
type pending struct {
	done     chan struct{}
	location string
	err      error
}

// Result summarizes one top-level transformation request.
type Result struct {
	Location  string `json:"location"`
	RequestID string `json:"requestId"`
	Modules   int    `json:"modules"`
	Edges     int    `json:"edges"`
}

// walk carries per-request state through the recursion.
type walk struct {
	table     *resolution.Table
	requestID string
	modules   atomic.Int64
	edges     atomic.Int64
}

// Shared parser-backed collaborators are initialized once per process; all
// engines (including ones created concurrently) observe the same instances.
var (
	defaultsOnce     sync.Once
	defaultStripper  strip.Stripper
	defaultExtractor extract.Extractor
)

func sharedDefaults() (strip.Stripper, extract.Extractor) {
	defaultsOnce.Do(func() {
		defaultStripper = strip.NewTypeScript()
		defaultExtractor = extract.Default()
	})
	return defaultStripper, defaultExtractor
}

// New creates an Engine from configuration.
func New(cfg *config.Config, logger *logging.Logger, opts Options) (*Engine, error) {
	mode, err := strip.ParseMode(cfg.Transform.Mode)
	if err != nil {
		return nil, remoderr.New(remoderr.ConfigInvalid, "invalid transform mode", err)
	}

	stripper, extractor := opts.Stripper, opts.Extractor
	if stripper == nil || extractor == nil {
		ds, de := sharedDefaults()
		if stripper == nil {
			stripper = ds
		}
		if extractor == nil {
			extractor = de
		}
	}

	cache := opts.Cache
	if cache == nil {
		cache = diskcache.New(cfg.CacheRoot())
	}

	fetcher := opts.Fetcher
	if fetcher == nil && cfg.Fetch.Enabled {
		fetchCacheDir := ""
		if cfg.Fetch.CacheEnabled {
			fetchCacheDir = cache.Root()
		}
		fetcher = fetch.New(time.Duration(cfg.Fetch.TimeoutMs)*time.Millisecond,
			fetchCacheDir, cfg.Fetch.UserAgent, logger)
	}

	maxParallel := cfg.Transform.MaxParallel
	if maxParallel < 1 {
		maxParallel = 1
	}

	return &Engine{
		cfg:         cfg,
		logger:      logger,
		stripper:    stripper,
		extractor:   extractor,
		fetcher:     fetcher,
		cache:       cache,
		ledger:      opts.Ledger,
		mode:        mode,
		maxParallel: maxParallel,
		records:     make(map[string]string),
		inflight:    make(map[string]*pending),
		loaded:      make(map[string]interface{}),
	}, nil
}

// Transform rewrites the module at location and all of its transitive local
// dependencies under the given resolution table, returning the cache
// location of the transformed entry module.
func (e *Engine) Transform(ctx context.Context, location string, table *resolution.Table) (*Result, error) {
	normalized, err := e.normalize(location)
	if err != nil {
		return nil, err
	}

	w := &walk{table: table, requestID: uuid.New().String()}
	e.logger.Debug("Transform request", map[string]interface{}{
		"location":  normalized,
		"requestId": w.requestID,
		"tableId":   table.ID(),
	})

	loc, err := e.transform(ctx, w, normalized)
	if err != nil {
		return nil, err
	}

	return &Result{
		Location:  loc,
		RequestID: w.requestID,
		Modules:   int(w.modules.Load()),
		Edges:     int(w.edges.Load()),
	}, nil
}

// normalize makes local entry locations absolute so records and in-flight
// markers key on a canonical form.
func (e *Engine) normalize(location string) (string, error) {
	switch specifier.Classify(location) {
	case specifier.RemoteHTTP:
		return location, nil
	case specifier.Registry:
		return "", remoderr.New(remoderr.SourceUnavailable,
			"bare specifier is not a resolvable location", nil).WithModule(location)
	default:
		p := specifier.TrimFileScheme(location)
		abs, err := filepath.Abs(paths.ToFilePath(p))
		if err != nil {
			return "", remoderr.New(remoderr.SourceUnavailable, "cannot absolutize path", err).WithModule(location)
		}
		return filepath.ToSlash(abs), nil
	}
}

// transform is the memoized, cycle-safe entry for one module. The in-flight
// marker is registered before any I/O so concurrent requests for the same
// module under the same table attach to the first one's future instead of
// duplicating work. The marker is keyed like the records: a request under a
// different table must produce its own cache entry, never share one.
func (e *Engine) transform(ctx context.Context, w *walk, location string) (string, error) {
	rk := location + "\x00" + w.table.ID()

	e.mu.Lock()
	if loc, ok := e.records[rk]; ok {
		e.mu.Unlock()
		return loc, nil
	}
	if p, ok := e.inflight[rk]; ok {
		e.mu.Unlock()
		select {
		case <-p.done:
			return p.location, p.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	p := &pending{done: make(chan struct{})}
	e.inflight[rk] = p
	e.mu.Unlock()

	loc, err := e.run(ctx, w, location, rk)

	e.mu.Lock()
	delete(e.inflight, rk)
	if err != nil {
		// Drop the provisional record so a retry re-attempts instead of
		// returning a location that was never written.
		delete(e.records, rk)
	}
	e.mu.Unlock()

	p.location, p.err = loc, err
	close(p.done)
	return loc, err
}

// run performs one actual transformation pass.
func (e *Engine) run(ctx context.Context, w *walk, location, rk string) (string, error) {
	raw, err := e.readSource(ctx, location)
	if err != nil {
		return "", err
	}

	stripped := raw
	if e.mode != strip.ModePassthrough && strip.NeedsStripping(location) {
		stripped, err = e.stripper.Strip(ctx, raw, e.mode, strip.Options{JSX: strip.IsJSX(location)})
		if err != nil {
			return "", remoderr.New(remoderr.InvalidSource, "annotation stripping failed", err).WithModule(location)
		}
	}

	w.modules.Add(1)

	// Fast path: leaf modules with no module syntax skip graph work.
	if !extract.HasModuleSyntax(stripped) {
		key := cachekey.Derive(stripped, w.table.Serialize())
		return e.persist(w, location, rk, key, stripped)
	}

	res, err := e.extractor.Extract(ctx, location, stripped)
	if err != nil {
		return "", remoderr.New(remoderr.InvalidSource, "dependency extraction failed", err).WithModule(location)
	}

	edges := e.resolveEdges(w, location, res.Edges)

	// Early cache-location registration: cyclic dependents reading this
	// record mid-flight get the final location before the file exists. It
	// will exist by the time anything loads it, because every transform
	// completes before any load is attempted.
	key := cachekey.Derive(stripped, w.table.Serialize())
	finalLoc := e.cache.LocationFor(key)
	e.mu.Lock()
	e.records[rk] = finalLoc
	e.mu.Unlock()

	e.fanOut(ctx, w, location, edges)

	rewritten := e.rewrite(location, stripped, edges, res.SelfRefs)
	loc, err := e.persist(w, location, rk, key, rewritten)
	if err != nil {
		return "", err
	}

	e.recordEdges(w, location, edges)
	return loc, nil
}

// resolvedEdge pairs an extracted edge with its table resolution, the
// location to recurse into, and (after fan-out) its final cache location.
type resolvedEdge struct {
	extract.Edge
	resolved string
	target   string // absolute location to transform, "" when not local
	final    string // cache location, "" when the edge fell back
}

// resolveEdges applies the resolution table to each written specifier and
// decides which edges join the recursive walk.
func (e *Engine) resolveEdges(w *walk, location string, edges []extract.Edge) []*resolvedEdge {
	out := make([]*resolvedEdge, len(edges))
	for i, ed := range edges {
		re := &resolvedEdge{Edge: ed}
		re.resolved = w.table.Resolve(location, ed.Specifier)
		// Relative edges of a remote module are not recursed into, but the
		// cached output no longer lives next to its siblings: absolutize so
		// the persisted specifier still resolves at load time.
		if paths.IsRemote(location) && specifier.Classify(re.resolved) == specifier.LocalRelative {
			re.resolved = paths.ResolveRelative(location, re.resolved)
		}
		re.target = recursionTarget(location, re.resolved)
		out[i] = re
	}
	return out
}

// recursionTarget returns the absolute location a resolved specifier refers
// to, or "" when the edge stays out of the recursive walk (bare specifiers
// and remote URLs are left for the downstream loader).
func recursionTarget(referrer, resolved string) string {
	switch specifier.Classify(resolved) {
	case specifier.LocalRelative:
		if paths.IsRemote(referrer) {
			return ""
		}
		return paths.ResolveRelative(referrer, resolved)
	case specifier.LocalAbsolute:
		return paths.Normalize(specifier.TrimFileScheme(resolved))
	default:
		return ""
	}
}

// fanOut transforms all local dependency edges concurrently and waits for
// all of them. A failed edge logs a warning and leaves the edge on its
// resolved specifier; it never aborts the parent module.
func (e *Engine) fanOut(ctx context.Context, w *walk, location string, edges []*resolvedEdge) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)

	for _, re := range edges {
		if re.target == "" || re.Role == extract.RoleType {
			continue
		}
		re := re
		g.Go(func() error {
			loc, err := e.transform(gctx, w, re.target)
			if err != nil {
				e.logger.Warn("Dependency transform failed, keeping resolved specifier", map[string]interface{}{
					"module":     location,
					"dependency": re.target,
					"specifier":  re.Specifier,
					"error":      err.Error(),
				})
				return nil
			}
			re.final = loc
			return nil
		})
	}
	_ = g.Wait()
}

// rewrite substitutes specifiers and import.meta.url spans. Replacements
// are applied back to front so earlier spans stay valid. Conceptually two
// passes: resolution results first, then final cache locations for the
// dependencies whose own transformation succeeded.
func (e *Engine) rewrite(location, text string, edges []*resolvedEdge, selfRefs []extract.Span) string {
	type repl struct {
		start, end int
		text       string
	}
	var repls []repl

	for _, re := range edges {
		replacement := re.resolved
		if re.final != "" {
			replacement = loaderLocation(re.final)
		}
		if replacement == re.Specifier {
			continue
		}
		repls = append(repls, repl{re.Span.Start, re.Span.End, replacement})
	}

	origin := loaderLocation(location)
	for _, sp := range selfRefs {
		repls = append(repls, repl{sp.Start, sp.End, fmt.Sprintf("%q", origin)})
	}

	if len(repls) == 0 {
		return text
	}

	// Back to front.
	sort.Slice(repls, func(i, j int) bool { return repls[i].start > repls[j].start })

	out := text
	for _, r := range repls {
		out = out[:r.start] + r.text + out[r.end:]
	}
	return out
}

// loaderLocation renders a location the way a module loader expects it:
// remote URLs as-is, local paths as file:// URLs.
func loaderLocation(location string) string {
	if paths.IsRemote(location) {
		return location
	}
	p := filepath.ToSlash(location)
	if !strings.HasPrefix(p, "/") {
		// Windows drive paths need a leading slash in file URLs.
		p = "/" + p
	}
	return "file://" + p
}

// persist prepends the traceability header, writes the entry, registers the
// record and updates the ledger.
func (e *Engine) persist(w *walk, location, rk, key, text string) (string, error) {
	final := "// remod: " + location + "\n" + text

	loc, err := e.cache.Write(key, final)
	if err != nil {
		return "", remoderr.New(remoderr.CacheWriteFailed, "failed to persist transformed module", err).WithModule(location)
	}

	e.mu.Lock()
	e.records[rk] = loc
	e.mu.Unlock()

	if e.ledger != nil {
		entry := index.Entry{
			Key:       key,
			Source:    location,
			TableID:   w.table.ID(),
			RequestID: w.requestID,
			Mode:      string(e.mode),
			Location:  loc,
			SizeBytes: int64(len(final)),
			CreatedAt: time.Now(),
		}
		if err := e.ledger.Record(entry); err != nil {
			e.logger.Warn("Failed to record cache entry in index", map[string]interface{}{
				"module": location,
				"error":  err.Error(),
			})
		}
	}

	return loc, nil
}

// recordEdges stores the walk's resolved edges for graph export.
func (e *Engine) recordEdges(w *walk, location string, edges []*resolvedEdge) {
	w.edges.Add(int64(len(edges)))
	if e.ledger == nil {
		return
	}
	for _, re := range edges {
		rewritten := re.resolved
		if re.final != "" {
			rewritten = loaderLocation(re.final)
		}
		row := index.EdgeRow{
			RequestID: w.requestID,
			From:      location,
			Specifier: re.Specifier,
			Resolved:  re.resolved,
			Rewritten: rewritten,
			Role:      string(re.Role),
		}
		if err := e.ledger.RecordEdge(row); err != nil {
			e.logger.Warn("Failed to record edge in index", map[string]interface{}{
				"module": location,
				"error":  err.Error(),
			})
		}
	}
}

// readSource reads the module text from its location.
func (e *Engine) readSource(ctx context.Context, location string) (string, error) {
	if paths.IsRemote(location) {
		if e.fetcher == nil {
			return "", remoderr.New(remoderr.SourceUnavailable, "remote fetch is disabled", nil).WithModule(location)
		}
		body, err := e.fetcher.Fetch(ctx, location)
		if err != nil {
			return "", remoderr.New(remoderr.SourceUnavailable, "fetch failed", err).WithModule(location)
		}
		return body, nil
	}

	data, err := os.ReadFile(paths.ToFilePath(location))
	if err != nil {
		return "", remoderr.New(remoderr.SourceUnavailable, "read failed", err).WithModule(location)
	}
	return string(data), nil
}
