package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"houdinihub/internal/commands"
	"houdinihub/internal/config"
	tcp "houdinihub/internal/microservices/tcp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	setupLogger(cfg)

	// Schema document is optional at startup; param validation simply
	// stays off until the file shows up and a reload picks it up.
	schemas := commands.NewSchemaStore(cfg.SchemaPath)
	if err := schemas.Watch(); err != nil {
		slog.Warn("schema_watch_unavailable", "error", err.Error())
	}
	defer schemas.Close()

	// No engine attached in the standalone binary: handlers validate
	// and answer that no Houdini session is connected. Inside Houdini
	// the host wires its scripting API in here.
	executor := commands.NewExecutor(commands.DefaultHandlers(nil, schemas))

	server := tcp.NewServer(cfg.SocketAddr(), executor, cfg.SocketMaxBuffer)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start socket server: %v", err)
	}

	slog.Info("socket_server_ready",
		"addr", server.BoundAddr(),
		"commands", len(executor.ListCommands()),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("received_shutdown_signal")
	server.Stop()
	slog.Info("server_stopped_gracefully")
}

func setupLogger(cfg *config.Config) {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
