package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophpantry/internal/client/cli"
	"github.com/dmitrijs2005/gophpantry/internal/client/config"
	"github.com/dmitrijs2005/gophpantry/internal/logging"
)

// Set with -ldflags "-X main.buildVersion=...".
var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func printBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", buildVersion)
	fmt.Fprintf(w, "Build date: %s\n", buildDate)
	fmt.Fprintf(w, "Build commit: %s\n", buildCommit)
}

func main() {

	printBuildData(os.Stdout)

	cfg, err := config.Load(os.Args[1:], ".env")
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	logger := logging.New(os.Stderr, cfg.LogLevel).With("profile", cfg.Profile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.StartMetricsServer(ctx)
	app.Run(ctx)

}
