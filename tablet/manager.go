package tablet

import (
	"sync"

	"github.com/hupe1980/tabletio/model"
)

// Directory is the lookup contract consumed by the write coordinator.
type Directory interface {
	GetTablet(id model.TabletID, schemaHash model.SchemaHash) (*Tablet, bool)
}

type tabletKey struct {
	id   model.TabletID
	hash model.SchemaHash
}

// Manager is an in-memory tablet directory safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	tablets map[tabletKey]*Tablet
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{tablets: make(map[tabletKey]*Tablet)}
}

// AddTablet registers a tablet, replacing any previous registration under
// the same (id, schema hash).
func (m *Manager) AddTablet(t *Tablet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tablets[tabletKey{t.ID(), t.SchemaHash()}] = t
}

// GetTablet looks a tablet up by (id, schema hash).
func (m *Manager) GetTablet(id model.TabletID, schemaHash model.SchemaHash) (*Tablet, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tablets[tabletKey{id, schemaHash}]
	return t, ok
}

// DropTablet removes a tablet from the directory.
func (m *Manager) DropTablet(id model.TabletID, schemaHash model.SchemaHash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tablets, tabletKey{id, schemaHash})
}

var _ Directory = (*Manager)(nil)
