package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"houdinihub/internal/commands"
	"houdinihub/internal/config"
	"houdinihub/internal/microservices/http-api/handler"
	"houdinihub/internal/microservices/http-api/service"
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

	schemas := commands.NewSchemaStore(cfg.SchemaPath)
	if err := schemas.Watch(); err != nil {
		slog.Warn("schema_watch_unavailable", "error", err.Error())
	}
	defer schemas.Close()

	proxy := service.NewProxyService(cfg.SocketAddr(), cfg.SocketTimeout, cfg.SocketMaxBuffer)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	h := handler.NewCommandHandler(proxy, schemas)
	h.RegisterRoutes(r)

	// Loopback only: the bridge carries no authentication.
	httpAddr := fmt.Sprintf("127.0.0.1:%d", cfg.HTTPPort)
	slog.Info("rest_proxy_started",
		"http_addr", httpAddr,
		"socket_addr", cfg.SocketAddr(),
	)
	if err := r.Run(httpAddr); err != nil {
		log.Fatalf("REST proxy failed: %v", err)
	}
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
