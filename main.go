package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/voxrt/engine"
	"github.com/spaghettifunk/voxrt/engine/config"
	"github.com/spaghettifunk/voxrt/engine/core"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration")
	debug := flag.Bool("debug", false, "enable Vulkan validation layers")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}
	if *debug {
		cfg.Renderer.Debug = true
	}

	e := engine.New(cfg)
	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("engine initialization failed: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// the loop owns the GPU objects, so a signal only stops it
	go func() {
		sig := <-sigCh
		core.LogInfo("Received %s, shutting down.", sig)
		e.Quit()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown failed: %s", err)
	}
	if runErr != nil {
		core.LogFatal("engine stopped: %s", runErr)
	}
}
