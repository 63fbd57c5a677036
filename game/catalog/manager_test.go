package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mondrian-blocks/game/engine"
)

const stripesHCL = `
name        = "Stripes"
description = "Two long bars and two squares"

block {
  id     = 0
  width  = 2
  height = 8
  color  = "#FF0000"
}

block {
  id     = 1
  width  = 2
  height = 8
  color  = "#0000FF"
}

block {
  id     = 2
  width  = 4
  height = 4
  color  = "#FFFF00"
}
`

func createValidCatalog() *engine.Catalog {
	return &engine.Catalog{
		Name:        "Test Catalog",
		Description: "Test catalog",
		Blocks: []engine.BlockSpec{
			{ID: 0, Width: 1, Height: 1, Color: "#000000"},
			{ID: 1, Width: 2, Height: 3, Color: "#FF0000"},
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func writeCatalogJSON(t *testing.T, dir, name string, catalog *engine.Catalog) {
	t.Helper()
	data, err := json.MarshalIndent(catalog, "", "  ")
	require.NoError(t, err)
	writeFile(t, dir, name+".json", string(data))
}

func TestNewManager(t *testing.T) {
	t.Run("existing directory", func(t *testing.T) {
		m, err := NewManager(t.TempDir())
		require.NoError(t, err)
		assert.NotNil(t, m)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, err)
	})

	t.Run("file instead of directory", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "plain", "x")
		_, err := NewManager(filepath.Join(dir, "plain"))
		assert.Error(t, err)
	})

	t.Run("built-in only", func(t *testing.T) {
		m, err := NewManager("")
		require.NoError(t, err)

		c, err := m.LoadCatalog(DefaultID)
		require.NoError(t, err)
		assert.Equal(t, "White Edition", c.Name)

		_, err = m.LoadCatalog("other")
		assert.ErrorIs(t, err, ErrCatalogNotFound)
	})
}

func TestLoadCatalog_JSON(t *testing.T) {
	dir := t.TempDir()
	writeCatalogJSON(t, dir, "small", createValidCatalog())

	m, err := NewManager(dir)
	require.NoError(t, err)

	c, err := m.LoadCatalog("small")
	require.NoError(t, err)
	assert.Equal(t, createValidCatalog(), c)

	again, err := m.LoadCatalog("small.json")
	require.NoError(t, err)
	assert.Same(t, c, again, "second load is served from the cache")
}

func TestLoadCatalog_HCL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "stripes.hcl", stripesHCL)

	m, err := NewManager(dir)
	require.NoError(t, err)

	c, err := m.LoadCatalog("stripes")
	require.NoError(t, err)
	assert.Equal(t, "Stripes", c.Name)
	assert.Equal(t, "Two long bars and two squares", c.Description)
	assert.Equal(t, []engine.BlockSpec{
		{ID: 0, Width: 2, Height: 8, Color: "#FF0000"},
		{ID: 1, Width: 2, Height: 8, Color: "#0000FF"},
		{ID: 2, Width: 4, Height: 4, Color: "#FFFF00"},
	}, c.Blocks)
}

func TestLoadCatalog_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", "{not json")
	writeFile(t, dir, "broken2.hcl", "block {")
	writeFile(t, dir, "overfull.json", `{"name":"x","blocks":[{"id":0,"width":8,"height":8,"color":"#000"},{"id":1,"width":1,"height":1,"color":"#000"}]}`)

	m, err := NewManager(dir)
	require.NoError(t, err)

	_, err = m.LoadCatalog("missing")
	assert.ErrorIs(t, err, ErrCatalogNotFound)

	_, err = m.LoadCatalog("broken")
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = m.LoadCatalog("broken2")
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = m.LoadCatalog("overfull")
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	for _, name := range []string{"", "..", "../etc/passwd", `a\b`} {
		_, err = m.LoadCatalog(name)
		assert.ErrorIs(t, err, ErrInvalidCatalog, "name %q", name)
	}
}

func TestLoadCatalog_FileOverridesBuiltIn(t *testing.T) {
	dir := t.TempDir()
	custom := createValidCatalog()
	custom.Name = "My White"
	writeCatalogJSON(t, dir, DefaultID, custom)

	m, err := NewManager(dir)
	require.NoError(t, err)

	id, c := m.GetDefault()
	assert.Equal(t, DefaultID, id)
	assert.Equal(t, "My White", c.Name)
}

func TestGetDefault_BuiltIn(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	id, c := m.GetDefault()
	assert.Equal(t, DefaultID, id)
	assert.Equal(t, engine.DefaultCatalog(), c)
}

func TestListCatalogs(t *testing.T) {
	dir := t.TempDir()
	writeCatalogJSON(t, dir, "small", createValidCatalog())
	writeFile(t, dir, "stripes.hcl", stripesHCL)
	writeFile(t, dir, "broken.json", "{")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0755))

	m, err := NewManager(dir)
	require.NoError(t, err)

	infos, err := m.ListCatalogs()
	require.NoError(t, err)
	require.Len(t, infos, 3)

	assert.Equal(t, "small", infos[0].CatalogID)
	assert.Equal(t, "small.json", infos[0].Filename)
	assert.Equal(t, 2, infos[0].BlockCount)
	assert.Equal(t, 7, infos[0].TotalArea)

	assert.Equal(t, "stripes", infos[1].CatalogID)
	assert.Equal(t, 48, infos[1].TotalArea)

	assert.Equal(t, DefaultID, infos[2].CatalogID)
	assert.True(t, infos[2].BuiltIn)
	assert.Equal(t, 11, infos[2].BlockCount)
}

func TestSaveCatalog(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	catalog := createValidCatalog()
	require.NoError(t, m.SaveCatalog("saved", catalog))

	data, err := os.ReadFile(filepath.Join(dir, "saved.json"))
	require.NoError(t, err)
	var onDisk engine.Catalog
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, *catalog, onDisk)

	m.RefreshCache()
	loaded, err := m.LoadCatalog("saved")
	require.NoError(t, err)
	assert.Equal(t, catalog, loaded)

	t.Run("invalid catalog is not written", func(t *testing.T) {
		err := m.SaveCatalog("bad", &engine.Catalog{Name: "bad"})
		assert.ErrorIs(t, err, ErrInvalidCatalog)
		_, statErr := os.Stat(filepath.Join(dir, "bad.json"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("path traversal", func(t *testing.T) {
		assert.ErrorIs(t, m.SaveCatalog("../escape", catalog), ErrInvalidCatalog)
	})

	t.Run("no directory", func(t *testing.T) {
		builtIn, err := NewManager("")
		require.NoError(t, err)
		assert.Error(t, builtIn.SaveCatalog("x", catalog))
	})
}

func TestManager_ConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	writeCatalogJSON(t, dir, "small", createValidCatalog())
	m, err := NewManager(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.LoadCatalog("small")
			assert.NoError(t, err)
			_, err = m.ListCatalogs()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestShippedCatalogs(t *testing.T) {
	m, err := NewManager(filepath.Join("..", "..", "catalogs"))
	require.NoError(t, err)

	white, err := m.LoadCatalog(DefaultID)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultCatalog().Blocks, white.Blocks)

	stripes, err := m.LoadCatalog("stripes")
	require.NoError(t, err)
	assert.Equal(t, engine.MaxBoardArea, stripes.Area())
}
