package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/catcharena/server/internal/mathx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMap = `
name: arena
width: 4
height: 3
tile_width: 32
tile_height: 32
block_layer: arena.txt
objects:
  - {type: player_spawn, x: 32, y: 32, width: 16, height: 16}
  - {type: item_spawn, x: 64, y: 40}
  - {type: bouncy_enemy, x: 80, y: 80}
lines:
  - [[0, 0], [128, 0]]
`

const testLayer = `# block layer
1,0,0,1
0,0,0,0
1,1,0,0
`

func writeMap(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arena.yaml"), []byte(testMap), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arena.txt"), []byte(testLayer), 0o644))
	return filepath.Join(dir, "arena.yaml")
}

func TestLoadMap(t *testing.T) {
	m, err := LoadMap(writeMap(t))
	require.NoError(t, err)

	assert.Equal(t, "arena", m.Name)
	assert.Equal(t, float32(128), m.WidthPixels())
	assert.Equal(t, float32(96), m.HeightPixels())
	assert.Len(t, m.ObjectsOfType(ObjectPlayerSpawn), 1)
	assert.Len(t, m.ObjectsOfType(ObjectItemSpawn), 1)
	require.Len(t, m.Lines, 1)
	a, b := m.Lines[0].Points()
	assert.Equal(t, mathx.V(0, 0), a)
	assert.Equal(t, mathx.V(128, 0), b)
	assert.NotZero(t, m.Hash)

	assert.True(t, m.TileBlocked(0, 0))
	assert.True(t, m.TileBlocked(3, 0))
	assert.False(t, m.TileBlocked(1, 0))
	assert.True(t, m.TileBlocked(1, 2))
	assert.True(t, m.TileBlocked(-1, 0))
	assert.True(t, m.Blocked(mathx.V(10, 10)))
	assert.False(t, m.Blocked(mathx.V(40, 40)))
}

func TestLoadMapRejectsBadDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("width: 0\nheight: 3\n"), 0o644))
	_, err := LoadMap(path)
	assert.Error(t, err)
}

func TestMapHashTracksContents(t *testing.T) {
	path := writeMap(t)
	a, err := LoadMap(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "arena.txt"), []byte("0,0,0,0\n"), 0o644))
	b, err := LoadMap(path)
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestShippedArenaLoads(t *testing.T) {
	m, err := LoadMap(filepath.Join("..", "..", "data", "maps", "arena.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "arena", m.Name)
	assert.Len(t, m.ObjectsOfType(ObjectPlayerSpawn), 4)
	assert.True(t, m.TileBlocked(0, 0))
	assert.True(t, m.TileBlocked(10, 10))
	assert.False(t, m.TileBlocked(5, 5))
	for _, o := range m.ObjectsOfType(ObjectPlayerSpawn) {
		assert.False(t, m.Blocked(mathx.V(o.X, o.Y)), "spawn at %v,%v", o.X, o.Y)
		assert.False(t, m.Blocked(mathx.V(o.X+o.Width, o.Y+o.Height)), "spawn at %v,%v", o.X, o.Y)
	}
}
