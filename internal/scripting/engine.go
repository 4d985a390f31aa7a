package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the game's rule scripts.
// Single-goroutine access only (game loop).
type Engine struct {
	vm       *lua.LState
	log      *zap.Logger
	fallback world.DefaultScore
}

// NewEngine creates a Lua engine and loads every script in scriptsDir.
// A missing directory leaves the built-in rules in place.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.loadDir(scriptsDir); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromSource creates an engine from a single script.
func NewEngineFromSource(src string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.vm.DoString(src); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// KillScore calls the Lua kill_score function with a context table
// {reason = "caught" | "projectile" | "bouncy_ball"}. Without the function, or
// when it fails, a catch is worth 10 points and any other kill 1.
func (e *Engine) KillScore(reason proto.DeathReason) int32 {
	fn := e.vm.GetGlobal("kill_score")
	if fn == lua.LNil {
		return e.fallback.KillScore(reason)
	}

	ctx := e.vm.NewTable()
	ctx.RawSetString("reason", lua.LString(reason.String()))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, ctx); err != nil {
		e.log.Error("lua kill_score error", zap.Error(err))
		return e.fallback.KillScore(reason)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua kill_score returned non-number", zap.String("type", result.Type().String()))
		return e.fallback.KillScore(reason)
	}
	f := float64(n)
	if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		e.log.Error("lua kill_score out of range", zap.Float64("score", f))
		return e.fallback.KillScore(reason)
	}
	return int32(f)
}

// Close releases the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
