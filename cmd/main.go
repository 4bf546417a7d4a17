// Package main is the production entry point for the Aurora visualizer.
//
// Aurora renders an audio-reactive 3D scene with clean architecture:
// - Event-driven communication (no callbacks)
// - Dependency injection for testability
// - MVP pattern for UI decoupling
// - Repository pattern for the morph field cache
//
// Build:
//
//	go build -o build/aurora ./cmd
//
// Run:
//
//	./build/aurora                      # desktop window, synthetic sweep
//	./build/aurora -file track.mp3      # desktop window, play a file
//	./build/aurora -headless -web :8080 # no window, remote control only
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/auroraviz/aurora/internal/app"
)

var (
	musicFile   = flag.String("file", "", "audio file to load and play at startup")
	capture     = flag.Bool("capture", false, "drive the scene from live audio input")
	device      = flag.String("device", "", "capture device name substring (system default if empty)")
	headless    = flag.Bool("headless", false, "run without a window; implies the web server")
	webAddr     = flag.String("web", "", "serve the remote-control API on this address (e.g. :8080)")
	shapesDir   = flag.String("shapes", "", "directory of OBJ morph targets overriding the built-ins")
	storagePath = flag.String("storage", "aurora.db", "morph cache database path (headless mode)")
	debug       = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	// Create configuration from flags
	config := app.DefaultConfig()
	config.MusicFile = *musicFile
	config.UseCapture = *capture
	config.CaptureDevice = *device
	config.Headless = *headless
	config.ShapesDir = *shapesDir
	config.StoragePath = *storagePath
	if *debug {
		config.LogLevel = slog.LevelDebug
	}
	if *webAddr != "" {
		config.WebEnabled = true
		config.Web.Addr = *webAddr
	}

	// A headless run with no web surface would render for nobody.
	if config.Headless && !config.WebEnabled {
		config.WebEnabled = true
	}

	log.Println(app.Build())

	// Create the application with dependency injection
	application, err := app.NewApplication(config)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Ensure a graceful shutdown
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}()

	// In headless mode Run blocks until Shutdown, so unblock it on
	// SIGINT/SIGTERM. The desktop window handles its own close.
	if config.Headless {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			_ = application.Shutdown()
		}()
	}

	// Run application (blocks until the window closes or Shutdown is called)
	if err := application.Run(); err != nil {
		log.Printf("Application error: %v", err)
	}
}
