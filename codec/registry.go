package codec

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages the available codecs
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
	def    string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

var defaultRegistry = NewRegistry()

// Register registers a codec under its name
func Register(codec Codec) {
	defaultRegistry.Register(codec)
}

// Get retrieves a codec by name
func Get(name string) (Codec, error) {
	return defaultRegistry.Get(name)
}

// List returns all registered codecs, ordered by name
func List() []Codec {
	return defaultRegistry.List()
}

// SetDefault selects the codec returned by Default
func SetDefault(name string) error {
	return defaultRegistry.SetDefault(name)
}

// Default returns the default codec
func Default() (Codec, error) {
	return defaultRegistry.Default()
}

// Register registers a codec under its name. The first codec registered
// becomes the default.
func (r *Registry) Register(codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codecs[codec.Name()] = codec
	if r.def == "" {
		r.def = codec.Name()
	}
}

// Get retrieves a codec by name
func (r *Registry) Get(name string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codec, ok := r.codecs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCodecNotFound, name)
	}
	return codec, nil
}

// List returns all registered codecs, ordered by name
func (r *Registry) List() []Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)

	codecs := make([]Codec, len(names))
	for i, name := range names {
		codecs[i] = r.codecs[name]
	}
	return codecs
}

// SetDefault selects the codec returned by Default
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.codecs[name]; !ok {
		return fmt.Errorf("%w: %q", ErrCodecNotFound, name)
	}
	r.def = name
	return nil
}

// Default returns the default codec
func (r *Registry) Default() (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.def == "" {
		return nil, fmt.Errorf("%w: no codec registered", ErrCodecNotFound)
	}
	return r.codecs[r.def], nil
}
