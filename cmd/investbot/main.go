// Command investbot runs one dollar-cost-averaging pass: it paces today's
// contribution toward the target equity and spends it on whole shares that
// pull the program's own allocation toward the ideal one. Scheduling is
// external; run it once per trading day.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"investbot/internal/broker"
	"investbot/internal/config"
	"investbot/internal/engine"
	"investbot/internal/journal"
	"investbot/internal/state"
)

func main() {
	configPath := flag.String("config", "investbot.toml", "path to the TOML config file")
	statePath := flag.String("state", "", "state file path (overrides config)")
	force := flag.Bool("force", false, "run even when today is not a trading session")
	flag.Parse()

	if err := run(*configPath, *statePath, *force); err != nil {
		fmt.Fprintln(os.Stderr, "investbot:", err)
		os.Exit(1)
	}
}

func run(configPath, statePath string, force bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if statePath != "" {
		cfg.StatePath = statePath
	}

	log := newLogger(cfg.LogLevel)
	ctx := context.Background()

	client, err := broker.NewFromEnv(cfg.Broker.BaseURL, time.Duration(cfg.Broker.TimeoutSeconds)*time.Second, log)
	if err != nil {
		return err
	}

	if !force {
		ok, err := tradingDay(ctx, client, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			log.Info().Msg("market closed today, nothing to do")
			return nil
		}
	}

	store := state.FileStore{Path: cfg.StatePath}
	ratio := decimal.NewFromFloat(cfg.Bootstrap.TargetInvestmentEquityRatio)

	if cfg.Journal.DSN != "" {
		jr, err := journal.Open(ctx, cfg.Journal.DSN)
		if err != nil {
			// The journal is an audit artifact, not part of the run.
			log.Warn().Err(err).Msg("journal unavailable, continuing without it")
		} else {
			defer jr.Close()
			return engine.NewOrchestrator(client, store, jr, ratio, cfg.Bootstrap.HorizonDays, log).Run(ctx)
		}
	}
	return engine.NewOrchestrator(client, store, nil, ratio, cfg.Bootstrap.HorizonDays, log).Run(ctx)
}

func tradingDay(ctx context.Context, client *broker.Client, now time.Time) (bool, error) {
	session, err := client.NextSession(ctx, now)
	if err != nil {
		return false, err
	}
	y1, m1, d1 := session.Date.Date()
	y2, m2, d2 := now.In(session.Date.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}
