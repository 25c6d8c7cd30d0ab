package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := writeConfig(t, "server.json", `{"name": "Garage Bridge"}`)

	c, err := Load(dir, "server.json")
	require.NoError(t, err)

	assert.Equal(t, "Garage Bridge", c.Name)
	assert.Equal(t, ":8080", c.HTTPAddress)
	assert.Equal(t, 30, c.TailwindPullRate)
	assert.Equal(t, 10, c.TailwindTimeout)
	assert.Equal(t, "homeassistant", c.MQTT.DiscoveryPrefix)
	assert.Equal(t, "toofar", c.MQTT.TopicPrefix)
	assert.Equal(t, 60, c.MQTT.PublishRate)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, filepath.Join(dir, "server.json"), c.ConfigFile)
	assert.Equal(t, filepath.Join(dir, "hc"), c.HCConfig.StoragePath)
}

func TestLoadOverrides(t *testing.T) {
	dir := writeConfig(t, "server.yaml", `
http_address: ":9090"
tailwind_pull_rate: 0
tailwind_token: "123456"
discover: true
homekit:
  pin: "00102003"
  storagepath: "/var/lib/toofar"
mqtt:
  broker: "tcp://localhost:1883"
  publish_rate: 15
`)

	c, err := Load(dir, "server.yaml")
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.HTTPAddress)
	assert.Equal(t, 0, c.TailwindPullRate)
	assert.Equal(t, "123456", c.TailwindToken)
	assert.True(t, c.Discover)
	assert.Equal(t, "00102003", c.HCConfig.Pin)
	assert.Equal(t, "/var/lib/toofar", c.HCConfig.StoragePath)
	assert.Equal(t, "tcp://localhost:1883", c.MQTT.Broker)
	assert.Equal(t, 15, c.MQTT.PublishRate)
}

func TestLoadEnv(t *testing.T) {
	dir := writeConfig(t, "server.json", `{}`)
	t.Setenv("TOOFAR_TAILWIND_TIMEOUT", "3")

	c, err := Load(dir, "server.json")
	require.NoError(t, err)
	assert.Equal(t, 3, c.TailwindTimeout)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir(), "nope.json")
	assert.Error(t, err)
}

func TestGetSet(t *testing.T) {
	old := Get()
	defer Set(old)

	c := &Config{Name: "x"}
	Set(c)
	assert.Same(t, c, Get())
}
