package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/benmeehan/knob-agent/internal/models"
	"github.com/benmeehan/knob-agent/pkg/file"
	"github.com/benmeehan/knob-agent/pkg/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, dir string) *store.FilePreferences {
	t.Helper()
	p, err := store.Open(dir, "wifi-config", file.NewFileService(), zerolog.Nop())
	require.NoError(t, err)
	return p
}

// TestOpen_MissingFileIsEmpty verifies a fresh device boots with no stored keys.
func TestOpen_MissingFileIsEmpty(t *testing.T) {
	p := openTestStore(t, filepath.Join(t.TempDir(), "nested"))

	assert.Equal(t, "wifi-config", p.Namespace())
	assert.Equal(t, "fallback", p.GetString("ssid", "fallback"))
	assert.Equal(t, models.Credentials{}, store.LoadCredentials(p))
}

// TestSaveCredentials_SurvivesReopen verifies values written before a restart are read back after it.
func TestSaveCredentials_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	saved := models.Credentials{SSID: "TP-Link_9F9A", Password: "11745709", BrokerAddress: "192.168.0.199"}

	require.NoError(t, store.SaveCredentials(openTestStore(t, dir), saved))

	reopened := openTestStore(t, dir)
	assert.Equal(t, saved, store.LoadCredentials(reopened))
}

// TestClear_RemovesEveryKey verifies the factory reset path wipes the namespace on disk.
func TestClear_RemovesEveryKey(t *testing.T) {
	dir := t.TempDir()
	p := openTestStore(t, dir)
	require.NoError(t, store.SaveCredentials(p, models.Credentials{SSID: "a", Password: "b", BrokerAddress: "c"}))

	require.NoError(t, p.Clear())
	assert.Equal(t, "", p.GetString("ssid", ""))

	reopened := openTestStore(t, dir)
	assert.False(t, store.LoadCredentials(reopened).Complete())

	// Clearing an already empty store is harmless.
	require.NoError(t, reopened.Clear())
}

// TestOpen_RejectsIncompatibleFormat verifies files from an unknown major format are refused.
func TestOpen_RejectsIncompatibleFormat(t *testing.T) {
	dir := t.TempDir()
	content := `{"format_version":"2.0.0","values":{"ssid":"x"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wifi-config.json"), []byte(content), 0600))

	_, err := store.Open(dir, "wifi-config", file.NewFileService(), zerolog.Nop())
	assert.ErrorIs(t, err, store.ErrIncompatibleFormat)
}

// TestOpen_AcceptsMinorFormat verifies newer minor versions of the format still load.
func TestOpen_AcceptsMinorFormat(t *testing.T) {
	dir := t.TempDir()
	content := `{"format_version":"1.3.0","values":{"ssid":"home","password":"secret"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wifi-config.json"), []byte(content), 0600))

	p := openTestStore(t, dir)
	assert.True(t, store.LoadCredentials(p).Complete())
}

func TestOpen_EmptyNamespace(t *testing.T) {
	_, err := store.Open(t.TempDir(), "", file.NewFileService(), zerolog.Nop())
	assert.Error(t, err)
}
