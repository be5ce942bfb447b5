package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Document.PoolSize)
	assert.Equal(t, "*.tar", cfg.Document.Pattern)
	assert.Equal(t, SigningEncodingPEM, cfg.Signing.Encoding)
	assert.Equal(t, StorageProviderS3, cfg.Storage.Provider)
	assert.NotNil(t, cfg.RateLimiter)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Document, again.Document)
	assert.Equal(t, cfg.Storage, again.Storage)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("document:\n  pool_size: 9\nstorage:\n  provider: storj\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Document.PoolSize)
	assert.Equal(t, "*.tar", cfg.Document.Pattern)
	assert.Equal(t, StorageProviderStorj, cfg.Storage.Provider)
	assert.Equal(t, int64(64*1024*1024), cfg.Storage.PartSize)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"pool size":  "document:\n  pool_size: 0\n",
		"encoding":   "signing:\n  encoding: base64\n",
		"provider":   "storage:\n  provider: ftp\n",
		"part size":  "storage:\n  part_size: 1024\n",
		"bad yaml":   "document: [",
		"empty glob": "document:\n  pattern: \"\"\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestVerboseEnvVar(t *testing.T) {
	t.Setenv("VERBOSE", "1")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yml"))
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
}

func TestGetConfigPathOverride(t *testing.T) {
	t.Setenv("DATADOC_CONFIG", "/tmp/custom.yml")
	assert.Equal(t, "/tmp/custom.yml", GetConfigPath())
}

func TestOmitSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.SecretAccessKey = "secret"
	cfg.Storage.StorjAccessGrant = "grant"

	OmitSecrets(&cfg)
	assert.Equal(t, "***", cfg.Storage.SecretAccessKey)
	assert.Equal(t, "***", cfg.Storage.StorjAccessGrant)
}
