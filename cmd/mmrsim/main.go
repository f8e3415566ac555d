// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/jaxnet/mmrengine/config"
	"gitlab.com/jaxnet/mmrengine/database"
	"gitlab.com/jaxnet/mmrengine/node/metrics"
	chainmmr "gitlab.com/jaxnet/mmrengine/node/mmr"
	"gitlab.com/jaxnet/mmrengine/types/mmr"
)

func main() {
	// Work around defer not working after os.Exit()
	if err := simMain(os.Args[1:]); err != nil {
		fmt.Println("FATAL:", err)
		os.Exit(1)
	}
}

// simMain grows a chain of random blocks on the configured accumulators.
func simMain(args []string) error {
	cfg, _, err := config.LoadConfig(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Println(err)
			return nil
		}
		return err
	}

	log, err := cfg.SetupLoggers()
	if err != nil {
		return err
	}
	defer log.Info().Msg("Shutdown complete")

	hasher, err := mmr.HasherByName(cfg.Hasher)
	if err != nil {
		return err
	}
	store, err := database.OpenOrCreate(cfg.DbType, cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	acc, err := chainmmr.NewChainAccumulators(hasher, store,
		chainmmr.Config{RewindHorizon: cfg.RewindHorizon})
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext(context.Background(), log.With().Str("ctx", "interruptListener").Logger())
	defer cancel()

	if cfg.Metrics.Enable {
		manager := metrics.Metrics(ctx, cfg.Metrics.Interval, prometheus.DefaultGatherer)
		manager.Add(metrics.AccumulatorMetrics(acc, "sim", prometheus.DefaultRegisterer))
		go func() {
			if err := manager.Listen(ctx, cfg.Metrics.Route, cfg.Metrics.Port); err != nil {
				log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	if cfg.Sim.Seed == 0 {
		cfg.Sim.Seed = time.Now().UnixNano()
	}
	sim, err := NewSimulator(acc, cfg.Sim, log.With().Str("ctx", "simulator").Logger())
	if err != nil {
		return err
	}

	started := time.Now()
	err = sim.Run(ctx)
	report := sim.Report()
	log.Info().Int64("seed", cfg.Sim.Seed).Int("blocks", report.Blocks).Int("reorgs", report.Reorgs).
		Uint64("height", report.Height).Str("utxo_root", report.Tip.Utxo.String()).
		Dur("elapsed", time.Since(started)).Msg("Simulation finished")
	return err
}
