package mem

import (
	"context"

	"primamateria.systems/enc/internal/definitions"
)

// MemoryStore serves catalog files held in memory, in the order they were added.
type MemoryStore struct {
	files []definitions.CatalogFile
}

type MemoryConfig struct{}

func (m MemoryConfig) String() string {
	return ""
}

func (m MemoryConfig) Validate() error { return nil }

func (m MemoryConfig) SourceType() string { return "memory" }

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context, _ definitions.DefinitionsFilter) (*definitions.Catalog, error) {
	catalog := definitions.NewCatalog()
	for _, f := range m.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := catalog.Add(f); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func (m *MemoryStore) Add(f definitions.CatalogFile) {
	m.files = append(m.files, f)
}
