package browsing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/raysh454/courtfetch/internal/logging"
)

// BackendConstructor constructs a Backend given the config and logger.
type BackendConstructor func(cfg Config, logger logging.Logger) (Backend, error)

var (
	mu       sync.RWMutex
	registry = map[string]BackendConstructor{}
)

// RegisterBackend registers a named backend constructor. Name is lower-cased
// internally. Registering the same name again overwrites the previous
// constructor.
func RegisterBackend(name string, ctor BackendConstructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// NewBackend constructs the backend named by cfg.Backend. It returns an error
// if that name has not been registered.
func NewBackend(cfg Config, logger logging.Logger) (Backend, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if name == "" {
		name = BackendChromedp
	}

	mu.RLock()
	ctor, ok := registry[name]
	mu.RUnlock()
	if !ok || ctor == nil {
		return nil, fmt.Errorf("browsing backend %q not registered: available backends=%v", name, ListBackends())
	}

	b, err := ctor(cfg.withDefaults(), logger)
	if err != nil {
		return nil, fmt.Errorf("construct browsing backend %q: %w", name, err)
	}
	if b == nil {
		return nil, errors.New("browsing backend constructor returned nil")
	}
	return b, nil
}

// ListBackends returns the registered backend names, sorted.
func ListBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
