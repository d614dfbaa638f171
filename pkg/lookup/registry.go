package lookup

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbase/idmapping/pkg/idmap"
	"github.com/kbase/idmapping/pkg/storage"
)

// Factory builds a handler for the given source from per-source init
// options.
type Factory func(source idmap.AuthsourceID, store storage.Store, cfg map[string]string) (Handler, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a handler factory under the given module name. Factories
// are registered from init functions at program start; registering a
// duplicate name panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("lookup: factory %q registered twice", name))
	}
	registry[name] = factory
}

// NewHandler constructs a handler by factory module name.
func NewHandler(name string, source idmap.AuthsourceID, store storage.Store, cfg map[string]string) (Handler, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown authsource factory module %q (available: %v)", name, Factories())
	}
	return factory(source, store, cfg)
}

// Factories returns the registered factory module names, sorted.
func Factories() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("local", func(source idmap.AuthsourceID, store storage.Store, _ map[string]string) (Handler, error) {
		if source != idmap.Local {
			return nil, fmt.Errorf("the local factory only serves the %q authsource, not %q", idmap.Local, source)
		}
		return NewLocalHandler(store), nil
	})
	Register("kbase", func(source idmap.AuthsourceID, _ storage.Store, cfg map[string]string) (Handler, error) {
		return NewKBaseHandler(source, cfg)
	})
}
