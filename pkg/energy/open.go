package energy

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds an uninitialized Backend.
type Factory func(Options) (Backend, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{
		"null": func(Options) (Backend, error) { return Null{}, nil },
	}
)

// Register makes a backend available to Open under name.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Open returns the backend registered under name. An empty name selects "null".
// The backend is not initialized; the engine calls Init.
func Open(name string, opts Options) (Backend, error) {
	if name == "" {
		name = "null"
	}

	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownSource, name, Names())
	}
	return f(opts)
}

// Names lists the registered backend names.
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
