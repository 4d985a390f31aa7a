package data

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/catcharena/server/internal/mathx"
	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// Object types recognized on maps.
const (
	ObjectPlayerSpawn = "player_spawn"
	ObjectItemSpawn   = "item_spawn"
	ObjectBouncyEnemy = "bouncy_enemy"
)

// MapObject is a typed marker placed on the map, in pixels.
type MapObject struct {
	Type   string  `yaml:"type"`
	X      float32 `yaml:"x"`
	Y      float32 `yaml:"y"`
	Width  float32 `yaml:"width"`
	Height float32 `yaml:"height"`
}

// Line is a wall segment in pixels: [[ax, ay], [bx, by]].
type Line [2][2]float32

func (l Line) Points() (mathx.Vec2, mathx.Vec2) {
	return mathx.V(l[0][0], l[0][1]), mathx.V(l[1][0], l[1][1])
}

type mapFile struct {
	Name       string      `yaml:"name"`
	Width      int         `yaml:"width"`  // tiles
	Height     int         `yaml:"height"` // tiles
	TileWidth  int         `yaml:"tile_width"`
	TileHeight int         `yaml:"tile_height"`
	BlockLayer string      `yaml:"block_layer"` // CSV file relative to the map file
	Objects    []MapObject `yaml:"objects"`
	Lines      []Line      `yaml:"lines"`
}

// Map is the static arena: dimensions, a block layer for movement collision,
// typed objects and wall lines.
type Map struct {
	Name       string
	Width      int
	Height     int
	TileWidth  int
	TileHeight int
	Objects    []MapObject
	Lines      []Line

	// Hash identifies the map contents so clients can verify their copy.
	Hash uint64

	blocked []byte // flat array [x * height + y]
}

// LoadMap loads a map description from YAML and its block layer, if any.
func LoadMap(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", path, err)
	}
	var file mapFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map %s: %w", path, err)
	}
	if file.Width <= 0 || file.Height <= 0 || file.TileWidth <= 0 || file.TileHeight <= 0 {
		return nil, fmt.Errorf("map %s: invalid dimensions %dx%d tiles of %dx%d px",
			path, file.Width, file.Height, file.TileWidth, file.TileHeight)
	}

	m := &Map{
		Name:       file.Name,
		Width:      file.Width,
		Height:     file.Height,
		TileWidth:  file.TileWidth,
		TileHeight: file.TileHeight,
		Objects:    file.Objects,
		Lines:      file.Lines,
		blocked:    make([]byte, file.Width*file.Height),
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	h := xxhash.New()
	h.Write(raw)
	if file.BlockLayer != "" {
		layerPath := filepath.Join(filepath.Dir(path), file.BlockLayer)
		layerRaw, err := loadTileFile(layerPath, m.blocked, file.Width, file.Height)
		if err != nil {
			return nil, fmt.Errorf("load block layer %s: %w", layerPath, err)
		}
		h.Write(layerRaw)
	}
	m.Hash = h.Sum64()
	return m, nil
}

// loadTileFile reads a CSV tile file into tiles: each line is a row of
// comma-separated tile ids, zero meaning free. Returns the raw file bytes.
func loadTileFile(path string, tiles []byte, xSize, ySize int) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	y := 0
	for scanner.Scan() && y < ySize {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		x := 0
		for _, tok := range strings.Split(line, ",") {
			if x >= xSize {
				break
			}
			val, err := strconv.ParseUint(strings.TrimSpace(tok), 10, 8)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", y, x, err)
			}
			tiles[x*ySize+y] = byte(val)
			x++
		}
		y++
	}
	return raw, scanner.Err()
}

// WidthPixels returns the map width in pixels.
func (m *Map) WidthPixels() float32 { return float32(m.Width * m.TileWidth) }

// HeightPixels returns the map height in pixels.
func (m *Map) HeightPixels() float32 { return float32(m.Height * m.TileHeight) }

// TileBlocked reports whether tile (x, y) blocks movement. Tiles outside the
// map are blocked.
func (m *Map) TileBlocked(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return true
	}
	return m.blocked[x*m.Height+y] != 0
}

// SetTileBlocked overrides a tile; used by tests and map tooling.
func (m *Map) SetTileBlocked(x, y int, blocked bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	var v byte
	if blocked {
		v = 1
	}
	m.blocked[x*m.Height+y] = v
}

// Blocked reports whether pixel position p lies in a blocked tile.
func (m *Map) Blocked(p mathx.Vec2) bool {
	if p.X < 0 || p.Y < 0 {
		return true
	}
	return m.TileBlocked(int(p.X)/m.TileWidth, int(p.Y)/m.TileHeight)
}

// ObjectsOfType returns the objects of one type in file order.
func (m *Map) ObjectsOfType(typ string) []MapObject {
	var out []MapObject
	for _, o := range m.Objects {
		if o.Type == typ {
			out = append(out, o)
		}
	}
	return out
}

// NewEmptyMap builds an unblocked map without objects.
func NewEmptyMap(name string, width, height, tileWidth, tileHeight int) *Map {
	return &Map{
		Name:       name,
		Width:      width,
		Height:     height,
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		blocked:    make([]byte, width*height),
	}
}
