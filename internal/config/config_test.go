package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[server]\nname = \"test\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Server.Name)
	assert.Equal(t, 2338, cfg.Network.Port)
	assert.Equal(t, 32, cfg.Network.MaxPeers)
	assert.Equal(t, uint32(64), cfg.Game.TicksPerSecond)
	assert.Equal(t, 5*time.Second, cfg.Game.RespawnTime)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "0.0.0.0:2338", cfg.Network.TCPAddr())
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[network]
port = 4000
websocket_port = 0
ping_interval = "250ms"

[game]
map = "maps/small.yaml"
ticks_per_second = 30
respawn_time = "3s"

[database]
dsn = "postgres://catch@localhost/catch"

[logging]
format = "json"
`))
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Network.Port)
	assert.Zero(t, cfg.Network.WebSocketPort)
	assert.Equal(t, 250*time.Millisecond, cfg.Network.PingInterval)
	assert.Equal(t, "maps/small.yaml", cfg.Game.MapPath)
	assert.Equal(t, uint32(30), cfg.Game.TicksPerSecond)
	assert.Equal(t, 3*time.Second, cfg.Game.RespawnTime)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "[game]\nticks_per_second = 0\n[network]\nport = 70000\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticks_per_second")
	assert.Contains(t, err.Error(), "network.port")

	_, err = Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[game\n"))
	assert.Error(t, err)
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "server.toml"))
	require.NoError(t, err)

	assert.Equal(t, 2338, cfg.Network.Port)
	assert.Equal(t, 32, cfg.Network.MaxPeers)
	assert.Equal(t, uint32(64), cfg.Game.TicksPerSecond)
	assert.Equal(t, 5*time.Second, cfg.Game.RespawnTime)
	assert.False(t, cfg.Database.Enabled())
}
