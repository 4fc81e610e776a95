package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/inspect"
	"github.com/Faultbox/rigscope/internal/logger"
)

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	c := addCommon(fs)
	addr := fs.String("addr", "", "Listen address (default from config)")
	tick := fs.Duration("tick", 0, "Rig tick interval (default from config)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool serve [options] <model>")
		os.Exit(1)
	}

	r, cfg, presets, cleanup, err := c.load(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	if *addr != "" {
		cfg.Inspect.Addr = *addr
	}
	if *tick > 0 {
		cfg.Inspect.TickInterval = *tick
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticking := make(chan struct{})
	go func() {
		r.Run(ctx, cfg.Inspect.TickInterval)
		close(ticking)
	}()

	srv := inspect.New(r, presets, cfg.Inspect)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Listen(cfg.Inspect.Addr)
	}()
	fmt.Printf("Serving %s on %s\n", r.Model, cfg.Inspect.Addr)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("inspect server stopped", zap.Error(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("inspect shutdown", zap.Error(err))
	}
	<-ticking
	logger.Info("server stopped")
}
