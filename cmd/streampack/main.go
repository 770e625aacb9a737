// Command streampack packages one source into HLS or DASH as described by a
// YAML job file and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eleven-am/streampack/internal/config"
	"github.com/eleven-am/streampack/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "streampack: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "job.yaml", "path to the YAML job file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the job")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.JSON, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	out, jobErr := runJob(ctx, cfg, logger, reg)

	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, reg); err != nil {
			logger.Warn("write metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
		}
	}
	if jobErr != nil {
		return jobErr
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
