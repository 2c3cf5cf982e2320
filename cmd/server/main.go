package main

import (
	"os"

	"github.com/acme/supportlens/internal/config"
	"github.com/acme/supportlens/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Server.LogLevel)

	svc := bootstrap(cfg)
	defer svc.shutdown()

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	registerRoutes(r, cfg, svc)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Infof("Starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}
