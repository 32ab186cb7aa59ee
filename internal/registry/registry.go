// Package registry provides a global registry for scene factories.
// Built-in scenes register themselves in init() functions; the CLI adds
// scenes loaded from files at startup.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vovakirdan/tui-traffic/internal/scene"
)

// SceneInfo contains metadata about a registered scene.
type SceneInfo struct {
	ID   string
	Name string
}

// Factory returns a fresh scene. Scenes carry mutable device state, so each
// run gets its own copy.
type Factory func() *scene.Scene

var (
	factories = make(map[string]Factory)
	names     = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a scene factory to the registry.
// Panics if a scene with the same ID is already registered.
func Register(id string, f Factory) {
	if err := Add(id, f); err != nil {
		panic(err)
	}
}

// Add is Register without the panic, for scenes discovered at runtime.
func Add(id string, f Factory) error {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[id]; exists {
		return fmt.Errorf("registry: scene %q already registered", id)
	}

	factories[id] = f
	names[id] = f().Name
	return nil
}

// List returns information about all registered scenes, sorted by ID.
func List() []SceneInfo {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]SceneInfo, 0, len(factories))
	for id := range factories {
		result = append(result, SceneInfo{
			ID:   id,
			Name: names[id],
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// Create instantiates a scene by its ID.
func Create(id string) (*scene.Scene, error) {
	mu.RLock()
	defer mu.RUnlock()

	f, ok := factories[id]
	if !ok {
		return nil, fmt.Errorf("registry: unknown scene %q", id)
	}

	return f(), nil
}

// Exists checks if a scene with the given ID is registered.
func Exists(id string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := factories[id]
	return ok
}
