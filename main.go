//go:build !test

/* main.go
 * The "main" method for running the ladder bot
 * Usage: go run . -test="<true|false>"
 * Authors: Zachary Bower
 */

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
	"time"

	"ladder-bot/api/api"
	"ladder-bot/bot"
	"ladder-bot/config"
	"ladder-bot/web"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

func main() {
	testPtr := flag.String("test", "false", "Use main or test bot: takes true or false as argument")
	flag.Parse()

	useBeta, err := convertStrToBool(*testPtr)
	if err != nil {
		log.Fatal("Invalid \"test\" flag. Should be true or false")
	}

	cfg, err := config.Load(useBeta)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logWriter(cfg), &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Ladder bot stopped with an error", "error", err)
		os.Exit(1)
	}
}

// run wires the store, ladder, bot and optional web server together and blocks until ctx is cancelled
func run(ctx context.Context, cfg *config.Config) error {
	s, err := openStore(ctx, cfg, afero.NewOsFs())
	if err != nil {
		return err
	}
	apiPtr, err := api.NewAPI(ctx, s, nil)
	if err != nil {
		if closeErr := s.Close(ctx); closeErr != nil {
			slog.Error("Failed to close store", "error", closeErr)
		}
		return fmt.Errorf("failed to initialize API: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiPtr.Close(closeCtx); err != nil {
			slog.Error("Failed to close store", "error", err)
		}
	}()

	b, err := bot.NewBot(cfg.DiscordToken, apiPtr)
	if err != nil {
		return err
	}
	b.RefreshInterval = cfg.RefreshInterval
	b.NotifyRatePerSecond = cfg.NotifyRatePerSecond

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(b.Run)
	if cfg.WebAddr != "" {
		p.Go(func(ctx context.Context) error {
			return web.Start(ctx, web.Config{Addr: cfg.WebAddr, API: apiPtr})
		})
	}
	return p.Wait()
}
