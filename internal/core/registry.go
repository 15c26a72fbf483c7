package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]ProfileDefinition)
	registryMu sync.RWMutex
)

// Register adds a profile definition to the registry.
// Panics if a profile with the same key is already registered.
func Register(def ProfileDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("profile already registered: %s", def.Info.Key))
	}
	if def.Build == nil || def.Resolve == nil || def.Detect == nil || def.Persist == nil {
		panic(fmt.Sprintf("profile %s: Build, Resolve, Detect and Persist are required", def.Info.Key))
	}

	registry[def.Info.Key] = def
}

// Get returns a profile definition by key.
func Get(key string) (ProfileDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered profiles sorted by key.
func All() []ProfileDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ProfileDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// ProfileCount returns the number of registered profiles.
func ProfileCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered profiles.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ProfileDefinition)
}
