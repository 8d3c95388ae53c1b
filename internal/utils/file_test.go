package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	sum, err := FileChecksum(path)
	require.NoError(t, err)

	// sha256("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)
	assert.Equal(t, Checksum([]byte("hello")), sum)
}

func TestFileChecksumMissing(t *testing.T) {
	_, err := FileChecksum(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/json", DetectContentType("data/config.json"))
	assert.Equal(t, "application/octet-stream", DetectContentType("archive.blob"))
	assert.Equal(t, "application/octet-stream", DetectContentType("noextension"))
}
