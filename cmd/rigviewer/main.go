// Package main is the entry point for the interactive rig viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/config"
	"github.com/Faultbox/rigscope/internal/logger"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Rigscope Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if cfg.Viewer.ModelPath == "" {
		logger.Error("no model given, pass -model or set viewer.model_path")
		os.Exit(1)
	}

	v, err := newViewer(cfg)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer v.Close()

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	if err := cfg.Save(); err != nil {
		logger.Warn("failed to save config", zap.Error(err))
	}
	logger.Info("viewer closed normally")
}
