// Command oracle is the backend entry point for the market oracle. It loads
// configuration, validates it, wires dependencies, sets up signal handling,
// and runs the selected subcommand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Jemiiah/Maniifold/internal/app"
	"github.com/Jemiiah/Maniifold/internal/config"
	"github.com/Jemiiah/Maniifold/internal/crypto"
	"github.com/Jemiiah/Maniifold/internal/service"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: oracle <command> [flags]

commands:
  run            run in the mode set by the config file (worker|serve|full)
  start-worker   run the market lifecycle worker only
  serve          run the REST/WebSocket API only
  create-market  create a market row (picked up by the worker next tick)
  encrypt-key    encrypt a ledger private key for use as encrypted_key_path

run 'oracle <command> -h' for command flags`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runApp(os.Args[2:], "")
	case "start-worker":
		err = runApp(os.Args[2:], "worker")
	case "serve":
		err = runApp(os.Args[2:], "serve")
	case "create-market":
		err = createMarket(os.Args[2:])
	case "encrypt-key":
		err = encryptKey(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "oracle: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration, overriding the mode when
// forceMode is non-empty, and installs the JSON logger at the configured
// level.
func loadConfig(path, forceMode string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if forceMode != "" {
		cfg.Mode = forceMode
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return cfg, logger, nil
}

func runApp(args []string, forceMode string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(*configPath, forceMode)
	if err != nil {
		return err
	}

	logger.Info("oracle starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("oracle stopped")
	return nil
}

// createMarket inserts a pending market row. The worker broadcasts it to the
// ledger on its next tick.
func createMarket(args []string) error {
	fs := flag.NewFlagSet("create-market", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to configuration file")
	metricType := fs.String("metric", "generic", "resolution metric type")
	description := fs.String("description", "", "market description")
	optionA := fs.String("option-a", "YES", "first outcome label")
	optionB := fs.String("option-b", "NO", "second outcome label")
	upsert := fs.Bool("upsert", false, "amend deadline/threshold/metric/description when the market already exists")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: oracle create-market [flags] <title> <threshold> <deadline>")
		fmt.Fprintln(os.Stderr, "  deadline is a unix timestamp or RFC3339 time")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		fs.Usage()
		os.Exit(2)
	}

	title := fs.Arg(0)
	threshold, err := strconv.ParseFloat(fs.Arg(1), 64)
	if err != nil {
		return fmt.Errorf("create-market: bad threshold %q: %w", fs.Arg(1), err)
	}
	deadline, err := parseDeadline(fs.Arg(2))
	if err != nil {
		return fmt.Errorf("create-market: bad deadline %q: %w", fs.Arg(2), err)
	}

	// The CLI only needs the store side, so serve mode wiring is enough.
	cfg, logger, err := loadConfig(*configPath, "serve")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	svc := service.NewMarketService(deps.Markets, deps.MarketCache, deps.Bus, deps.Metrics, logger)
	m, err := svc.CreateMarket(ctx, service.CreateParams{
		Title:       title,
		Description: *description,
		OptionA:     *optionA,
		OptionB:     *optionB,
		Deadline:    deadline,
		Threshold:   threshold,
		MetricType:  *metricType,
		Upsert:      *upsert,
	})
	if err != nil {
		return fmt.Errorf("create-market: %w", err)
	}

	fmt.Printf("created market %s\n", m.ID)
	fmt.Printf("  title:     %s\n", m.Title)
	fmt.Printf("  metric:    %s\n", m.MetricType)
	fmt.Printf("  threshold: %g\n", m.Threshold)
	fmt.Printf("  deadline:  %s\n", time.Unix(m.Deadline, 0).UTC().Format(time.RFC3339))
	return nil
}

func parseDeadline(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// encryptKey reads a private key from MANIIFOLD_LEDGER_PRIVATE_KEY and writes
// the encrypted keyfile. The password comes from MANIIFOLD_LEDGER_KEY_PASSWORD
// so neither secret appears in shell history.
func encryptKey(args []string) error {
	fs := flag.NewFlagSet("encrypt-key", flag.ExitOnError)
	out := fs.String("out", "oracle-key.enc", "output path for the encrypted keyfile")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key := os.Getenv("MANIIFOLD_LEDGER_PRIVATE_KEY")
	if key == "" {
		return fmt.Errorf("encrypt-key: MANIIFOLD_LEDGER_PRIVATE_KEY is not set")
	}
	password := os.Getenv("MANIIFOLD_LEDGER_KEY_PASSWORD")
	if password == "" {
		return fmt.Errorf("encrypt-key: MANIIFOLD_LEDGER_KEY_PASSWORD is not set")
	}

	blob, err := crypto.EncryptKey(key, password)
	if err != nil {
		return fmt.Errorf("encrypt-key: %w", err)
	}
	if err := os.WriteFile(*out, blob, 0o600); err != nil {
		return fmt.Errorf("encrypt-key: write %s: %w", *out, err)
	}

	fmt.Printf("encrypted key written to %s\n", *out)
	fmt.Println("set ledger.encrypted_key_path and ledger.key_password to use it")
	return nil
}
