package files

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestNewDiscovery(t *testing.T) {
	basePath := "/test/base"
	discovery := NewDiscovery(basePath)

	assert.NotNil(t, discovery)
	assert.Equal(t, basePath, discovery.basePath)
}

func TestFindFilesByPattern(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(tmpDir, "SINAPI_2024_08.xlsx"), now)
	touch(t, filepath.Join(tmpDir, "SINAPI_2024_07.xlsx"), now.Add(-time.Hour))
	touch(t, filepath.Join(tmpDir, "PO.xlsx"), now)
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "SINAPI_dir.xlsx"), 0755))

	found, err := NewDiscovery(tmpDir).FindFilesByPattern("", "SINAPI*.xlsx")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "SINAPI_2024_07.xlsx", found[0].Name)
	assert.Equal(t, "SINAPI_2024_08.xlsx", found[1].Name)

	_, err = NewDiscovery(tmpDir).FindFilesByPattern("", "[")
	assert.Error(t, err)
}

func TestLocate(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(tmpDir, "TABELA COMPLETA CDHU.xlsx"), now.Add(-2*time.Hour))
	touch(t, filepath.Join(tmpDir, "CDHU_2025.xlsx"), now)
	touch(t, filepath.Join(tmpDir, "PO.xlsx"), now)

	d := NewDiscovery(tmpDir)

	t.Run("configured path wins", func(t *testing.T) {
		path, err := d.Locate("TABELA COMPLETA CDHU.xlsx", "*CDHU*.xlsx")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tmpDir, "TABELA COMPLETA CDHU.xlsx"), path)
	})

	t.Run("latest match when configured path is missing", func(t *testing.T) {
		path, err := d.Locate("missing.xlsx", "*CDHU*.xlsx")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tmpDir, "CDHU_2025.xlsx"), path)
	})

	t.Run("absolute configured path", func(t *testing.T) {
		abs := filepath.Join(tmpDir, "PO.xlsx")
		path, err := NewDiscovery("/elsewhere").Locate(abs)
		require.NoError(t, err)
		assert.Equal(t, abs, path)
	})

	t.Run("nothing found", func(t *testing.T) {
		_, err := d.Locate("", "SICRO*.xlsx")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSourceMissing))
	})
}

func TestGetLatestFile(t *testing.T) {
	_, ok := GetLatestFile(nil)
	assert.False(t, ok)

	now := time.Now()
	latest, ok := GetLatestFile([]FileInfo{
		{Name: "a", ModTime: now.Add(-time.Minute)},
		{Name: "b", ModTime: now},
		{Name: "c", ModTime: now.Add(-time.Hour)},
	})
	assert.True(t, ok)
	assert.Equal(t, "b", latest.Name)
}
