package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/catcharena/server/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKillScoreFallback(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "missing"), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, int32(10), e.KillScore(proto.DeathCaught))
	assert.Equal(t, int32(1), e.KillScore(proto.DeathProjectile))
	assert.Equal(t, int32(1), e.KillScore(proto.DeathBouncyBall))
}

func TestKillScoreFromScript(t *testing.T) {
	e, err := NewEngineFromSource(`
function kill_score(ctx)
  if ctx.reason == "caught" then return 25 end
  if ctx.reason == "bouncy_ball" then return 3 end
  return 2
end`, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, int32(25), e.KillScore(proto.DeathCaught))
	assert.Equal(t, int32(2), e.KillScore(proto.DeathProjectile))
	assert.Equal(t, int32(3), e.KillScore(proto.DeathBouncyBall))
}

func TestKillScoreFallsBackOnBadScript(t *testing.T) {
	e, err := NewEngineFromSource(`
function kill_score(ctx)
  if ctx.reason == "caught" then error("boom") end
  return "many"
end`, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, int32(10), e.KillScore(proto.DeathCaught))
	assert.Equal(t, int32(1), e.KillScore(proto.DeathProjectile))
}

func TestKillScoreRejectsUnrepresentableNumbers(t *testing.T) {
	e, err := NewEngineFromSource(`
function kill_score(ctx)
  if ctx.reason == "caught" then return 0/0 end
  if ctx.reason == "bouncy_ball" then return -1/0 end
  return 1e20
end`, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, int32(10), e.KillScore(proto.DeathCaught))
	assert.Equal(t, int32(1), e.KillScore(proto.DeathProjectile))
	assert.Equal(t, int32(1), e.KillScore(proto.DeathBouncyBall))
}

func TestNewEngineLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "score.lua"),
		[]byte("function kill_score(ctx) return 7 end\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, int32(7), e.KillScore(proto.DeathCaught))
}

func TestNewEngineRejectsBrokenScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("function ("), 0o644))
	_, err := NewEngine(dir, zap.NewNop())
	assert.Error(t, err)
}

func TestShippedScripts(t *testing.T) {
	e, err := NewEngine(filepath.Join("..", "..", "scripts"), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, int32(10), e.KillScore(proto.DeathCaught))
	assert.Equal(t, int32(1), e.KillScore(proto.DeathBouncyBall))
}
