package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "node.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesLinkAndSubscriptions(t *testing.T) {
	path := writeTempConfig(t, `
[node]
id = 42

[link]
device = /dev/ttyUSB0
baud = 57600
read_timeout_ms = 50

[sub "telemetry"]
kind = message
port = 1000
extent = 512
timeout_usec = 3000000

[sub "rpc"]
kind = request
port = 42
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), cfg.NodeID)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Link.Device)
	assert.Equal(t, 57600, cfg.Link.BaudRate)
	assert.Equal(t, 50, cfg.Link.ReadTimeout)

	require.Len(t, cfg.Subscriptions, 2)
	assert.Equal(t, Subscription{Kind: "message", Port: 1000, Extent: 512, TimeoutUsec: 3_000_000}, cfg.Subscriptions[0])
	assert.Equal(t, Subscription{Kind: "request", Port: 42, Extent: defaultExtent, TimeoutUsec: defaultTimeoutUsec}, cfg.Subscriptions[1])
}

func TestLoadDefaultsBaudWhenOmitted(t *testing.T) {
	path := writeTempConfig(t, "[link]\ndevice = /dev/ttyACM0\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultBaudRate, cfg.Link.BaudRate)
}

func TestLoadRejectsMissingDevice(t *testing.T) {
	path := writeTempConfig(t, "[node]\nid = 1\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	path := writeTempConfig(t, "[link]\ndevice = /dev/ttyUSB0\n\n[sub \"bad\"]\nkind = broadcast\nport = 1\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}
