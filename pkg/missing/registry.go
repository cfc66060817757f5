package missing

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gopkg.in/fsnotify.v1"
)

//go:embed defaults/missing_data_patterns.yaml
var defaultsFS embed.FS

const embeddedSource = "embedded:defaults/missing_data_patterns.yaml"

// EnvPatternsFile names the environment variable consulted by DefaultSources.
const EnvPatternsFile = "CCHSFLOW_MISSING_PATTERNS"

// DefaultSources returns the configuration paths tried by the default
// registry, in order.
func DefaultSources() []string {
	return []string{
		os.Getenv(EnvPatternsFile),
		filepath.Join("config", "missing_data_patterns.yaml"),
		filepath.Join("inst", "metadata", "schemas", "missing_data_patterns.yaml"),
	}
}

type source struct {
	name string
	path string
	data []byte
}

// Registry loads and caches missing-value patterns. The cache is populated
// once, on first access, and only ClearCache invalidates it. A Registry is
// safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	patterns map[string]*Pattern
	loadedBy source

	sources []source
	logger  *zap.Logger
	group   singleflight.Group

	watchMu  sync.Mutex
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	done     chan struct{}
	onChange func(path string)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSources adds configuration files, tried in order. Empty paths and
// files that do not exist are skipped.
func WithSources(paths ...string) RegistryOption {
	return func(r *Registry) {
		for _, p := range paths {
			if p == "" {
				continue
			}
			r.sources = append(r.sources, source{name: p, path: p})
		}
	}
}

// WithDocument adds an in-memory configuration document as a source.
func WithDocument(name string, data []byte) RegistryOption {
	return func(r *Registry) {
		r.sources = append(r.sources, source{name: name, data: data})
	}
}

// WithEmbeddedDefaults adds the built-in pattern set as a source.
func WithEmbeddedDefaults() RegistryOption {
	return func(r *Registry) {
		data, err := fs.ReadFile(defaultsFS, "defaults/missing_data_patterns.yaml")
		if err != nil {
			return
		}
		r.sources = append(r.sources, source{name: embeddedSource, data: data})
	}
}

// WithLogger sets the logger used for load and watch events.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry. Nothing is read until the first access.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load returns the configured patterns, reading the first resolvable source
// on the first call. Later calls return the cached set.
func (r *Registry) Load() (map[string]*Pattern, error) {
	r.mu.RLock()
	cached := r.patterns
	r.mu.RUnlock()
	if cached != nil {
		return maps.Clone(cached), nil
	}

	// Concurrent first loads share one read. File I/O and parsing happen
	// outside mu so Source and ClearCache never wait on the disk.
	v, err, _ := r.group.Do("load", func() (interface{}, error) {
		r.mu.RLock()
		cached := r.patterns
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		src, data, err := r.resolve()
		if err != nil {
			return nil, err
		}
		patterns, err := ParseConfig(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.name, err)
		}

		r.mu.Lock()
		r.patterns = patterns
		r.loadedBy = src
		r.mu.Unlock()
		r.logger.Info("loaded missing-value patterns",
			zap.String("source", src.name),
			zap.Int("patterns", len(patterns)))
		return patterns, nil
	})
	if err != nil {
		return nil, err
	}
	return maps.Clone(v.(map[string]*Pattern)), nil
}

func (r *Registry) resolve() (source, []byte, error) {
	tried := make([]string, 0, len(r.sources))
	for _, src := range r.sources {
		if src.path == "" {
			return src, src.data, nil
		}
		data, err := os.ReadFile(src.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				tried = append(tried, src.path)
				continue
			}
			return source{}, nil, fmt.Errorf("%w: reading %s: %w", ErrConfigNotFound, src.path, err)
		}
		return src, data, nil
	}
	if len(tried) == 0 {
		return source{}, nil, fmt.Errorf("%w: no sources configured", ErrConfigNotFound)
	}
	return source{}, nil, fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

// Pattern returns the named pattern.
func (r *Registry) Pattern(name string) (*Pattern, error) {
	patterns, err := r.Load()
	if err != nil {
		return nil, err
	}
	if p, ok := patterns[name]; ok {
		return p, nil
	}
	return nil, &UnknownPatternError{Name: name, Available: sortedNames(patterns)}
}

// PatternNames returns the configured pattern names in sorted order.
func (r *Registry) PatternNames() ([]string, error) {
	patterns, err := r.Load()
	if err != nil {
		return nil, err
	}
	return sortedNames(patterns), nil
}

func sortedNames(patterns map[string]*Pattern) []string {
	names := slices.Collect(maps.Keys(patterns))
	sort.Strings(names)
	return names
}

// Source reports which source populated the cache, or "" before loading.
func (r *Registry) Source() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedBy.name
}

// ClearCache drops the cached patterns. The next access reloads them.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = nil
	r.loadedBy = source{}
}

// SetOnChange sets a callback invoked after a watched file changes.
func (r *Registry) SetOnChange(fn func(path string)) {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	r.onChange = fn
}

// Watch clears the cache whenever the configuration file that populated it
// changes on disk. The registry must have been loaded from a file.
func (r *Registry) Watch() error {
	if _, err := r.Load(); err != nil {
		return err
	}
	r.mu.RLock()
	path := r.loadedBy.path
	r.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("registry was not loaded from a file; nothing to watch")
	}

	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	if r.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	// Editors often replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", filepath.Dir(path), err)
	}

	r.watcher = watcher
	r.stopChan = make(chan struct{})
	r.done = make(chan struct{})
	go r.watchLoop(watcher, path, r.stopChan, r.done)
	return nil
}

func (r *Registry) watchLoop(watcher *fsnotify.Watcher, path string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	target := filepath.Clean(path)
	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			r.ClearCache()
			r.logger.Info("pattern configuration changed; cache cleared",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()))

			r.watchMu.Lock()
			fn := r.onChange
			r.watchMu.Unlock()
			if fn != nil {
				fn(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("pattern watcher error", zap.Error(err))
		}
	}
}

// StopWatch stops a watcher started by Watch and waits for it to exit.
func (r *Registry) StopWatch() {
	r.watchMu.Lock()
	watcher, stop, done := r.watcher, r.stopChan, r.done
	r.watcher, r.stopChan, r.done = nil, nil, nil
	r.watchMu.Unlock()

	if watcher == nil {
		return
	}
	close(stop)
	<-done
	watcher.Close()
}

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the process-wide registry, creating it on first use with
// DefaultSources and the embedded defaults.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry(WithSources(DefaultSources()...), WithEmbeddedDefaults())
	}
	return defaultRegistry
}

// SetDefault replaces the process-wide registry.
func SetDefault(r *Registry) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = r
}

// ResetDefault discards the process-wide registry so the next Default call
// builds a fresh one.
func ResetDefault() {
	defaultMu.Lock()
	old := defaultRegistry
	defaultRegistry = nil
	defaultMu.Unlock()

	// The watch callback may call Default, so stop it without defaultMu held.
	if old != nil {
		old.StopWatch()
	}
}
