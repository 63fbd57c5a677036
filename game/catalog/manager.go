package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/service"
)

// DefaultID is the identifier of the built-in White Edition catalog.
const DefaultID = "white"

var (
	ErrCatalogNotFound = errors.New("catalog not found")
	ErrInvalidCatalog  = errors.New("invalid catalog")
)

// Catalog file extensions, in lookup order
var extensions = []string{".json", ".hcl"}

// hclCatalogFile is the layout of a .hcl catalog:
//
//	name        = "Stripes"
//	description = "..."
//	block {
//	  id     = 0
//	  width  = 2
//	  height = 8
//	  color  = "#FF0000"
//	}
type hclCatalogFile struct {
	Name        string      `hcl:"name"`
	Description string      `hcl:"description,optional"`
	Blocks      []*hclBlock `hcl:"block,block"`
}

type hclBlock struct {
	ID     int    `hcl:"id"`
	Width  int    `hcl:"width"`
	Height int    `hcl:"height"`
	Color  string `hcl:"color"`
}

// Manager handles block catalog loading and caching
type Manager struct {
	catalogDir string
	catalogs   map[string]*engine.Catalog
	mu         sync.RWMutex
}

// NewManager creates a new catalog manager reading from catalogDir. An empty
// catalogDir serves only the built-in catalog.
func NewManager(catalogDir string) (*Manager, error) {
	if catalogDir != "" {
		info, err := os.Stat(catalogDir)
		if err != nil {
			return nil, fmt.Errorf("catalog directory %s: %w", catalogDir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("catalog directory %s is not a directory", catalogDir)
		}
	}

	return &Manager{
		catalogDir: catalogDir,
		catalogs:   make(map[string]*engine.Catalog),
	}, nil
}

// LoadCatalog loads a catalog by id. Files in the catalog directory take
// precedence over the built-in catalog.
func (m *Manager) LoadCatalog(name string) (*engine.Catalog, error) {
	id, err := catalogID(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	// Check cache first
	if catalog, exists := m.catalogs[id]; exists {
		m.mu.RUnlock()
		return catalog, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if catalog, exists := m.catalogs[id]; exists {
		return catalog, nil
	}

	catalog, err := m.readCatalog(id)
	if errors.Is(err, ErrCatalogNotFound) && id == DefaultID {
		catalog, err = engine.DefaultCatalog(), nil
	}
	if err != nil {
		return nil, err
	}

	m.catalogs[id] = catalog
	return catalog, nil
}

// readCatalog reads and validates the first file matching id. Callers hold m.mu.
func (m *Manager) readCatalog(id string) (*engine.Catalog, error) {
	if m.catalogDir == "" {
		return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, id)
	}

	for _, ext := range extensions {
		path := filepath.Join(m.catalogDir, id+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}

		catalog, err := ParseCatalog(path, data)
		if err != nil {
			return nil, err
		}
		return catalog, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, id)
}

// ParseCatalog decodes and validates a catalog file. The format is chosen by
// the file extension: .hcl files use HCL, anything else is JSON.
func ParseCatalog(filename string, data []byte) (*engine.Catalog, error) {
	var catalog *engine.Catalog
	var err error
	if strings.EqualFold(filepath.Ext(filename), ".hcl") {
		catalog, err = parseHCL(filename, data)
	} else {
		catalog = &engine.Catalog{}
		if jsonErr := json.Unmarshal(data, catalog); jsonErr != nil {
			err = fmt.Errorf("failed to parse catalog %s: %w", filename, jsonErr)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	if err := engine.ValidateCatalog(catalog); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, filename, err)
	}
	return catalog, nil
}

func parseHCL(filename string, data []byte) (*engine.Catalog, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclCatalogFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	catalog := &engine.Catalog{
		Name:        parsed.Name,
		Description: parsed.Description,
		Blocks:      make([]engine.BlockSpec, 0, len(parsed.Blocks)),
	}
	for _, b := range parsed.Blocks {
		catalog.Blocks = append(catalog.Blocks, engine.BlockSpec{
			ID:     b.ID,
			Width:  b.Width,
			Height: b.Height,
			Color:  b.Color,
		})
	}
	return catalog, nil
}

// ListCatalogs returns information about all available catalogs, sorted by
// id. Invalid files are skipped. The built-in catalog is listed unless a file
// overrides it.
func (m *Manager) ListCatalogs() ([]*service.CatalogInfo, error) {
	var infos []*service.CatalogInfo
	seen := make(map[string]bool)

	if m.catalogDir != "" {
		entries, err := os.ReadDir(m.catalogDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if !isCatalogExt(ext) {
				continue
			}

			id := strings.TrimSuffix(entry.Name(), ext)
			if seen[id] {
				continue
			}

			catalog, err := m.LoadCatalog(id)
			if err != nil {
				// Skip invalid catalogs
				continue
			}
			seen[id] = true
			infos = append(infos, catalogInfo(entry.Name(), id, catalog))
		}
	}

	if !seen[DefaultID] {
		info := catalogInfo("", DefaultID, engine.DefaultCatalog())
		info.BuiltIn = true
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].CatalogID < infos[j].CatalogID })
	return infos, nil
}

// GetDefault returns the default catalog and its id
func (m *Manager) GetDefault() (string, *engine.Catalog) {
	catalog, err := m.LoadCatalog(DefaultID)
	if err != nil {
		return DefaultID, engine.DefaultCatalog()
	}
	return DefaultID, catalog
}

// SaveCatalog validates a catalog and writes it as JSON
func (m *Manager) SaveCatalog(name string, catalog *engine.Catalog) error {
	id, err := catalogID(name)
	if err != nil {
		return err
	}
	if m.catalogDir == "" {
		return fmt.Errorf("cannot save catalog %s: no catalog directory configured", id)
	}

	// Validate catalog before saving
	if err := engine.ValidateCatalog(catalog); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A JSON file shadows an HCL one with the same id
	path := filepath.Join(m.catalogDir, id+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	m.catalogs[id] = catalog
	return nil
}

// RefreshCache drops all cached catalogs so they are re-read from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogs = make(map[string]*engine.Catalog)
}

// catalogID strips a known extension and rejects names that would escape
// the catalog directory
func catalogID(name string) (string, error) {
	id := name
	if ext := filepath.Ext(id); isCatalogExt(ext) {
		id = strings.TrimSuffix(id, ext)
	}
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: bad catalog id %q", ErrInvalidCatalog, name)
	}
	return id, nil
}

func isCatalogExt(ext string) bool {
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func catalogInfo(filename, id string, catalog *engine.Catalog) *service.CatalogInfo {
	return &service.CatalogInfo{
		Filename:    filename,
		CatalogID:   id,
		Name:        catalog.Name,
		Description: catalog.Description,
		BlockCount:  len(catalog.Blocks),
		TotalArea:   catalog.Area(),
	}
}
