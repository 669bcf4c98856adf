package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wildcam-go/wildcam/cmd"
	"github.com/wildcam-go/wildcam/internal/buildinfo"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := cmd.RootCommand(buildinfo.New(version, buildDate))
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
