package datasource

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// AdapterInfo describes a registered adapter for discovery surfaces.
type AdapterInfo struct {
	Kind        string `json:"kind"`         // "csv", "postgres", "mongodb"
	DisplayName string `json:"display_name"` // "Delimited text (CSV)"
	Description string `json:"description"`

	// RenamesColumns is true for ingested kinds whose columns are stored
	// under sanitized names. Query rewriting substitutes original column
	// references only for these kinds; native kinds get an identity mapping.
	RenamesColumns bool `json:"-"`
}

// Factory builds an adapter from a caller-supplied config map. File-based
// kinds take {"path": ...}; remote-relational kinds take {host, port,
// database, user, password}; the document store takes {uri, database}.
type Factory func(ctx context.Context, config map[string]any, logger *zap.Logger) (Adapter, error)

// Registration pairs adapter info with its factory.
type Registration struct {
	Info    AdapterInfo
	Factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter package's init(). Which adapters exist
// is a build-time fact: a kind is available iff its package is linked in.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Kind] = reg
}

// RegisteredAdapters returns info for all linked-in adapters.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// KindRenamesColumns reports whether a kind stores columns under sanitized
// names. Unregistered kinds report false.
func KindRenamesColumns(kind string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[kind]
	return ok && reg.Info.RenamesColumns
}

// IsRegistered checks if an adapter kind is available.
func IsRegistered(kind string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[kind]
	return ok
}

// Open builds an adapter for a kind via its registered factory.
func Open(ctx context.Context, kind string, config map[string]any, logger *zap.Logger) (Adapter, error) {
	registryMu.RLock()
	reg, ok := registry[kind]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported datasource kind: %s (not compiled in)", kind)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return reg.Factory(ctx, config, logger)
}
