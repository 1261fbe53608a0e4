package utils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benmeehan/knob-agent/internal/mocks"
	"github.com/benmeehan/knob-agent/internal/utils"
	"github.com/benmeehan/knob-agent/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := utils.DefaultConfig()

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.WiFi.ReconnectInterval)
	assert.Equal(t, "SMART_TABLE", cfg.WiFi.AccessPoint.SSID)
	assert.Equal(t, cfg.GPIO.EncoderSW, cfg.GPIO.ButtonPin)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, "#", cfg.MQTT.SubscribeTopic)
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
wifi:
  interface: wlp2s0
tasks:
  network: 2s
portal:
  listen: ":8080"
  mdns:
    enabled: false
`)

	cfg, err := utils.LoadConfig(path, file.NewFileService())

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "wlp2s0", cfg.WiFi.Interface)
	assert.Equal(t, 2*time.Second, cfg.Tasks.Network)
	assert.Equal(t, ":8080", cfg.Portal.Listen)
	assert.False(t, cfg.Portal.MDNS.Enabled)

	// Untouched settings keep their defaults.
	assert.Equal(t, 20*time.Millisecond, cfg.Tasks.Button)
	assert.Equal(t, time.Second, cfg.Portal.RestartDelay)
	assert.Equal(t, "192.168.4.100/24", cfg.WiFi.AccessPoint.Address)
}

func TestLoadConfig_ShippedFile(t *testing.T) {
	cfg, err := utils.LoadConfig(filepath.Join("..", "..", "configs", "config.yaml"), file.NewFileService())

	require.NoError(t, err)
	assert.Equal(t, *utils.DefaultConfig(), *cfg)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
wifi:
  interface: ""
tasks:
  encoder: 0s
mqtt:
  qos: 3
`)

	_, err := utils.LoadConfig(path, file.NewFileService())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "wifi.interface is empty")
	assert.Contains(t, err.Error(), "tasks.encoder must be positive")
	assert.Contains(t, err.Error(), "mqtt.qos 3")
}

func TestLoadConfig_ReadError(t *testing.T) {
	fileClient := new(mocks.MockFileOperations)
	fileClient.On("ReadYamlFile", "missing.yaml", mock.Anything).Return(errors.New("no such file"))

	_, err := utils.LoadConfig("missing.yaml", fileClient)

	assert.Error(t, err)
	fileClient.AssertExpectations(t)
}

func TestValidate_AccessPointGateway(t *testing.T) {
	cfg := utils.DefaultConfig()
	cfg.WiFi.AccessPoint.Gateway = "10.0.0.1"

	assert.Error(t, cfg.Validate())
}
