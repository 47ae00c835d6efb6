package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryFiles(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "nested"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, ".hidden"), 0o755))

	files := map[string]string{
		"volume.sqy":       "_index=sumologic_volume | count",
		"nested/audit.sqy": "_index=sumologic_audit | count",
		"notes.txt":        "not a query",
		".hidden/q.sqy":    "hidden",
		".secret.sqy":      "hidden",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, name), []byte(content), 0o644))
	}

	found, err := QueryFiles(tempDir, []string{"sqy"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	for _, path := range found {
		assert.Equal(t, ".sqy", filepath.Ext(path))
		assert.NotContains(t, path, "hidden")
	}

	all, err := QueryFiles(tempDir, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMatchingFiles(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "us2", "csv"), 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "us2", "csv", "glass_rdscq.csv"), []byte("id,query\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "us2", "csv", "other.csv"), []byte("id\n"), 0o644))

	found, err := MatchingFiles(tempDir, "*rdscq.csv")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "glass_rdscq.csv", filepath.Base(found[0]))
}
