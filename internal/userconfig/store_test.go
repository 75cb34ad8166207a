package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewStore(path)

	cfg := store.Load()

	assert.Equal(t, 1.0, cfg.Slippage)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewStore(path)

	require.NoError(t, store.SetSlippage(0.5))

	cfg := store.Load()
	assert.Equal(t, 0.5, cfg.Slippage)
}

func TestSetSlippage_Zero_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewStore(path)

	// A pre-existing non-default value makes it obvious a zero write
	// isn't silently discarded in favor of the old value.
	require.NoError(t, store.SetSlippage(2.0))
	require.NoError(t, store.SetSlippage(0))

	cfg := store.Load()
	assert.Equal(t, 0.0, cfg.Slippage)
}

func TestLoad_UnknownKeysIgnored_FallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"unknown":"x"}`), 0o600))
	store := NewStore(path)

	cfg := store.Load()

	assert.Equal(t, 1.0, cfg.Slippage)
}

func TestLoad_MalformedJSON_ReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
	store := NewStore(path)

	cfg := store.Load()

	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_EmptyFile_ReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(``), 0o600))
	store := NewStore(path)

	cfg := store.Load()

	assert.Equal(t, Defaults(), cfg)
}
