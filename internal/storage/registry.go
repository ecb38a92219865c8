package storage

import (
	"fmt"
	"sort"
)

// BackendFactory creates a Backend instance.
type BackendFactory func() (Backend, error)

// BackendRegistry maps backend names to their factories.
var BackendRegistry = make(map[string]BackendFactory)

func init() {
	BackendRegistry["fs"] = func() (Backend, error) {
		return NewFileSystemBackend()
	}

	// Used by tests and by sessions that should not touch the disk.
	BackendRegistry["memory"] = func() (Backend, error) {
		return NewInMemoryBackend()
	}
}

// GetBackend creates the backend registered under name.
func GetBackend(name string) (Backend, error) {
	factory, ok := BackendRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown storage backend: %s", name)
	}
	return factory()
}

// BackendNames lists the registered backend names.
func BackendNames() []string {
	names := make([]string, 0, len(BackendRegistry))
	for name := range BackendRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
