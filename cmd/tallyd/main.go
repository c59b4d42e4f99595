package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/KevinKickass/OpenTallyCore/internal/config"
	"github.com/KevinKickass/OpenTallyCore/internal/system"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "configs/tallyd.yaml", "path to the daemon configuration")
	debug := pflag.Bool("debug", false, "enable development logging")
	pflag.Parse()

	// Logger
	newLogger := zap.NewProduction
	if *debug {
		newLogger = zap.NewDevelopment
	}
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", *configPath), zap.Stringer("config", cfg))

	hw, err := system.OpenHardware(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open hardware", zap.Error(err))
	}
	defer hw.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Each iteration is one boot cycle; a restart rebuilds everything but the
	// peripherals.
	for cycle := 1; ; cycle++ {
		logger.Info("Booting", zap.Int("cycle", cycle))

		err := system.NewDevice(cfg, hw, logger).Run(ctx)
		if errors.Is(err, system.ErrRestart) {
			continue
		}
		if ctx.Err() != nil {
			logger.Info("Shutdown signal received")
			break
		}
		logger.Error("Boot cycle failed", zap.Error(err))
		hw.Close()
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("OpenTallyCore stopped")
}
