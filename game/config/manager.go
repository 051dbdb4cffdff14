package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/wricardo/mcp-training/riddlematch/game/engine"
	"github.com/wricardo/mcp-training/riddlematch/game/service"
)

var (
	ErrCatalogNotFound = service.ErrCatalogNotFound
	ErrInvalidCatalog  = service.ErrInvalidCatalog
)

// DefaultCatalogID is the catalog preferred as the default when present
const DefaultCatalogID = "community"

// Manager handles riddle catalog loading and caching
type Manager struct {
	catalogDir     string
	defaultCatalog *engine.Catalog
	catalogs       map[string]*engine.Catalog
	mu             sync.RWMutex
}

// NewManager creates a new catalog manager
func NewManager(catalogDir string) (*Manager, error) {
	if _, err := os.Stat(catalogDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog directory does not exist: %s", catalogDir)
	}

	m := &Manager{
		catalogDir: catalogDir,
		catalogs:   make(map[string]*engine.Catalog),
	}

	m.defaultCatalog = m.resolveDefault()
	return m, nil
}

// LoadCatalog loads a catalog by ID, from cache when possible
func (m *Manager) LoadCatalog(name string) (*engine.Catalog, error) {
	name = strings.TrimSuffix(name, ".json")
	if !validCatalogID(name) {
		return nil, ErrCatalogNotFound
	}

	m.mu.RLock()
	if catalog, exists := m.catalogs[name]; exists {
		m.mu.RUnlock()
		return catalog, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if catalog, exists := m.catalogs[name]; exists {
		return catalog, nil
	}

	catalog, err := m.readCatalog(name)
	if err != nil {
		return nil, err
	}

	m.catalogs[name] = catalog
	return catalog, nil
}

// ListCatalogs returns information about all valid catalogs, skipping broken files
func (m *Manager) ListCatalogs() ([]*service.CatalogInfo, error) {
	entries, err := os.ReadDir(m.catalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var catalogs []*service.CatalogInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		catalog, err := m.LoadCatalog(id)
		if err != nil {
			continue
		}

		catalogs = append(catalogs, &service.CatalogInfo{
			Filename:    entry.Name(),
			CatalogID:   id,
			Name:        catalog.Name,
			Description: catalog.Description,
			Subject:     catalog.Subject,
			RiddleCount: len(catalog.Riddles),
			Answers:     lo.Map(catalog.Riddles, func(r engine.Riddle, _ int) string { return r.Answer }),
		})
	}

	sort.Slice(catalogs, func(i, j int) bool {
		return catalogs[i].CatalogID < catalogs[j].CatalogID
	})
	return catalogs, nil
}

// GetDefault returns the default catalog
func (m *Manager) GetDefault() *engine.Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultCatalog
}

// SetDefault sets the default catalog by ID
func (m *Manager) SetDefault(name string) error {
	catalog, err := m.LoadCatalog(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultCatalog = catalog
	return nil
}

// RefreshCache drops cached catalogs and resolves the default again from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.catalogs = make(map[string]*engine.Catalog)
	m.mu.Unlock()

	def := m.resolveDefault()

	m.mu.Lock()
	m.defaultCatalog = def
	m.mu.Unlock()
}

// SaveCatalog validates a catalog and writes it to disk
func (m *Manager) SaveCatalog(name string, catalog *engine.Catalog) error {
	if err := engine.ValidateCatalog(catalog); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	name = strings.TrimSuffix(name, ".json")
	if !validCatalogID(name) {
		return fmt.Errorf("%w: invalid catalog id %q", ErrInvalidCatalog, name)
	}

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	path := filepath.Join(m.catalogDir, name+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	m.mu.Lock()
	m.catalogs[name] = catalog
	m.mu.Unlock()

	return nil
}

// resolveDefault prefers community.json, then the first valid catalog on
// disk, then the built-in catalog
func (m *Manager) resolveDefault() *engine.Catalog {
	if catalog, err := m.LoadCatalog(DefaultCatalogID); err == nil {
		return catalog
	}

	catalogs, err := m.ListCatalogs()
	if err == nil && len(catalogs) > 0 {
		if catalog, err := m.LoadCatalog(catalogs[0].CatalogID); err == nil {
			return catalog
		}
	}

	return engine.DefaultCatalog()
}

// readCatalog parses and validates a catalog file
func (m *Manager) readCatalog(name string) (*engine.Catalog, error) {
	path := filepath.Join(m.catalogDir, name+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCatalogNotFound
		}
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var catalog engine.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("%w: failed to parse catalog: %v", ErrInvalidCatalog, err)
	}

	if err := engine.ValidateCatalog(&catalog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	return &catalog, nil
}

// validCatalogID rejects IDs that would escape the catalog directory
func validCatalogID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}
