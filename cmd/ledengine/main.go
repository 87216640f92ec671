// Package main is the entry point for the LED animation playback
// engine, grounded on the teacher's cmd/server/main.go wiring style:
// load .env, load config, construct services, start, wait for a
// signal, then close the control surface, stop the scheduler and shut
// down the status API. The OSC receiver goroutine is not stopped.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/lacylights-led/ledengine/internal/config"
	"github.com/lacylights-led/ledengine/internal/control"
	"github.com/lacylights-led/ledengine/internal/netutil"
	"github.com/lacylights-led/ledengine/internal/oscio"
	"github.com/lacylights-led/ledengine/internal/sceneio"
	"github.com/lacylights-led/ledengine/internal/scenemanager"
	"github.com/lacylights-led/ledengine/internal/scheduler"
	"github.com/lacylights-led/ledengine/internal/statusapi"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:  "ledengine",
		Usage: "LED animation playback engine",
		Action: func(ctx context.Context, _ *cli.Command) error {
			return run(ctx)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("ledengine: %v", err)
	}
}

func run(ctx context.Context) error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	printBanner(cfg)

	mgr := scenemanager.New()

	if cfg.ScenesPath != "" {
		data, err := os.ReadFile(cfg.ScenesPath)
		if err != nil {
			return fmt.Errorf("ledengine: reading scenes file: %w", err)
		}
		scenes, err := sceneio.LoadScenes(data)
		if err != nil {
			return fmt.Errorf("ledengine: loading scenes: %w", err)
		}
		mgr.LoadScenes(scenes, time.Now())
	}

	if cfg.DissolvePatternsPath != "" {
		data, err := os.ReadFile(cfg.DissolvePatternsPath)
		if err != nil {
			return fmt.Errorf("ledengine: reading dissolve patterns file: %w", err)
		}
		patterns, err := sceneio.LoadDissolvePatterns(data)
		if err != nil {
			return fmt.Errorf("ledengine: loading dissolve patterns: %w", err)
		}
		mgr.Schedules().Load(patterns)
	}

	sinkHost := cfg.OSCSinkHost
	if sinkHost == "" {
		preferred, err := netutil.PreferredBroadcast()
		if err != nil {
			log.Printf("Warning: could not determine a preferred broadcast address: %v", err)
			preferred = "255.255.255.255"
		}
		sinkHost = preferred
	}
	sink := oscio.NewSink(sinkHost, cfg.OSCSinkPort)

	sched := scheduler.New(mgr, sink, cfg.TargetFPS)
	sched.Start()

	surface := control.New(cfg.ControlWorkerCount, cfg.ControlLogCap)
	control.RegisterRoutes(surface, mgr, time.Now, nil)

	receiver := oscio.NewReceiver(cfg.OSCListenAddr, surface)
	go func() {
		if err := receiver.ListenAndServe(); err != nil {
			log.Printf("OSC receiver stopped: %v", err)
		}
	}()

	status := statusapi.New(cfg.StatusAddr, cfg.CORSOrigin, Version, sched, mgr, surface)
	go func() {
		log.Printf("Status API listening on http://%s\n", cfg.StatusAddr)
		if err := status.ListenAndServe(); err != nil {
			log.Printf("Status API stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	surface.Close()
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := status.Shutdown(shutdownCtx); err != nil {
		log.Printf("Status API shutdown error: %v", err)
	}

	log.Println("Stopped")
	return nil
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  LED Animation Playback Engine")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment:   %s\n", cfg.Env)
	fmt.Printf("  OSC listen:    %s\n", cfg.OSCListenAddr)
	fmt.Printf("  OSC sink port: %d\n", cfg.OSCSinkPort)
	fmt.Printf("  Target FPS:    %d\n", cfg.TargetFPS)
	fmt.Printf("  Status API:    %s\n", cfg.StatusAddr)
	fmt.Println("============================================")
}
