package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/catcharena/server/internal/config"
	"github.com/catcharena/server/internal/data"
	gonet "github.com/catcharena/server/internal/net"
	"github.com/catcharena/server/internal/persist"
	"github.com/catcharena/server/internal/scripting"
	"github.com/catcharena/server/internal/server"
	"github.com/catcharena/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               catchd  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("CATCH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Game data
	printSection("game data")
	m, err := data.LoadMap(cfg.Game.MapPath)
	if err != nil {
		return fmt.Errorf("map: %w", err)
	}
	printOK(fmt.Sprintf("map %s (%dx%d tiles, hash %016x)", m.Name, m.Width, m.Height, m.Hash))
	printStat("player spawns", len(m.ObjectsOfType(data.ObjectPlayerSpawn)))
	printStat("item spawns", len(m.ObjectsOfType(data.ObjectItemSpawn)))
	printStat("bouncy enemies", len(m.ObjectsOfType(data.ObjectBouncyEnemy)))
	printStat("walls", len(m.Lines))

	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	printOK("scripts loaded")
	fmt.Println()

	// 4. Optional results ledger
	runID := uuid.New()
	var (
		results  world.ResultSink
		recorder *persist.Recorder
	)
	if cfg.Database.Enabled() {
		printSection("results ledger")
		openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, repo, err := persist.OpenLedger(openCtx, cfg.Database, log)
		cancel()
		if err != nil {
			return fmt.Errorf("results ledger: %w", err)
		}
		defer db.Close()
		recorder = persist.NewRecorder(runID, repo, cfg.Database.QueueSize, log)
		results = recorder
		printOK("PostgreSQL connected, schema up to date")
		fmt.Println()
	}

	// 5. Game state
	state := world.NewState(m, world.Options{
		TicksPerSecond: cfg.Game.TicksPerSecond,
		RespawnTime:    cfg.Game.RespawnTime,
		Score:          engine,
		Results:        results,
	}, log.With(zap.String("run", runID.String())))

	// 6. Transport
	hub := gonet.NewHub(gonet.Options{
		MaxPeers:     cfg.Network.MaxPeers,
		InQueueSize:  cfg.Network.InQueueSize,
		OutQueueSize: cfg.Network.OutQueueSize,
		ReadTimeout:  cfg.Network.ReadTimeout,
		WriteTimeout: cfg.Network.WriteTimeout,
	}, log)
	defer hub.Close()

	tcp, err := gonet.NewServer(cfg.Network.TCPAddr(), hub, log)
	if err != nil {
		return fmt.Errorf("tcp listener: %w", err)
	}
	var ws *gonet.WebSocketServer
	if cfg.Network.WebSocketPort > 0 {
		ws, err = gonet.NewWebSocketServer(cfg.Network.WebSocketAddr(), hub, log)
		if err != nil {
			tcp.Shutdown()
			return fmt.Errorf("websocket listener: %w", err)
		}
	}

	srv := server.New(hub, state, server.Options{
		MaxNameLength:    cfg.Game.MaxNameLength,
		MaxEventsPerPoll: cfg.Network.MaxEventsPerPoll,
		PingInterval:     cfg.Network.PingInterval,
	}, log)

	// 7. Run until a signal or a fatal game error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(tcp.AcceptLoop)
	if ws != nil {
		g.Go(ws.Serve)
	}
	if recorder != nil {
		g.Go(func() error { return recorder.Run(gctx) })
	}
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		tcp.Shutdown()
		if ws != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := ws.Shutdown(shutdownCtx); err != nil {
				log.Warn("websocket shutdown", zap.Error(err))
			}
		}
		return hub.Close()
	})

	printSection("ready")
	printReady(fmt.Sprintf("tcp %s", tcp.Addr()))
	if ws != nil {
		printReady(fmt.Sprintf("websocket ws://%s%s", ws.Addr(), gonet.WebSocketPath))
	}
	printReady(fmt.Sprintf("%d ticks/s, %d peers", cfg.Game.TicksPerSecond, cfg.Network.MaxPeers))
	fmt.Println()

	err = g.Wait()
	switch {
	case errors.Is(err, world.ErrInvariant):
		log.Error("stopping on broken game state", zap.Error(err))
		return err
	case err != nil:
		return err
	}
	log.Info("server stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
