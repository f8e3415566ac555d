// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"gitlab.com/jaxnet/mmrengine/config"
	"gitlab.com/jaxnet/mmrengine/database"
	chainmmr "gitlab.com/jaxnet/mmrengine/node/mmr"
	"gitlab.com/jaxnet/mmrengine/types/mmr"
)

func main() {
	app := &App{}
	cliApp := &cli.App{
		Name:     "mmrctl",
		Usage:    "inspect and maintain chain accumulators",
		Flags:    app.InitFlags(),
		Before:   app.InitCfg,
		After:    app.Close,
		Commands: app.getCommands(),
	}

	err := cliApp.Run(os.Args)
	if err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func (app *App) getCommands() cli.Commands {
	return []*cli.Command{
		{
			Name:   "roots",
			Usage:  "print the roots of the tip or of an earlier block",
			Flags:  []cli.Flag{standardFlags[flagHeight], standardFlags[flagMMROnly]},
			Action: app.RootsCmd,
		},
		{
			Name:   "stats",
			Usage:  "print the size of every accumulator",
			Flags:  []cli.Flag{standardFlags[flagCSV]},
			Action: app.StatsCmd,
		},
		{
			Name:   "proof",
			Usage:  "generate an inclusion proof of a leaf",
			Flags:  []cli.Flag{standardFlags[flagTree], standardFlags[flagLeaf], standardFlags[flagOut]},
			Action: app.ProofCmd,
		},
		{
			Name:   "verify",
			Usage:  "verify a proof file against the accumulators or a given root",
			Flags:  []cli.Flag{standardFlags[flagTree], standardFlags[flagProof], standardFlags[flagRoot]},
			Action: app.VerifyCmd,
		},
		{
			Name:   "dump",
			Usage:  "export the leaves of a tree to CSV",
			Flags:  []cli.Flag{standardFlags[flagTree], standardFlags[flagCSV], standardFlags[flagOffset], standardFlags[flagLimit]},
			Action: app.DumpCmd,
		},
		{
			Name:   "checkpoints",
			Usage:  "list the checkpoints of a tree",
			Flags:  []cli.Flag{standardFlags[flagTree], standardFlags[flagOffset], standardFlags[flagLimit], standardFlags[flagVerbose]},
			Action: app.CheckpointsCmd,
		},
		{
			Name:   "rewind",
			Usage:  "undo the last blocks",
			Flags:  []cli.Flag{standardFlags[flagBlocks]},
			Action: app.RewindCmd,
		},
		{
			Name:   "validate",
			Usage:  "recompute every stored parent node",
			Action: app.ValidateCmd,
		},
	}
}

type App struct {
	config *config.Config
	logger zerolog.Logger
	store  database.Store
	acc    *chainmmr.ChainAccumulators
}

func (app *App) InitFlags() []cli.Flag {
	return []cli.Flag{
		standardFlags[flagConfig],
		standardFlags[flagDataDir],
		standardFlags[flagDbType],
		standardFlags[flagHasher],
		standardFlags[flagLogLevel],
	}
}

// InitCfg loads the shared configuration and opens the accumulators.
func (app *App) InitCfg(c *cli.Context) error {
	var args []string
	for _, name := range []string{flagConfig, flagDataDir, flagDbType, flagHasher, flagLogLevel} {
		if c.IsSet(name) {
			args = append(args, "--"+configFlagNames[name], c.String(name))
		}
	}

	cfg, _, err := config.LoadConfig(args)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	app.config = cfg
	if app.logger, err = cfg.SetupLoggers(); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

// open is deferred until a command needs the accumulators, so -h works without a database.
func (app *App) open() error {
	if app.acc != nil {
		return nil
	}
	hasher, err := mmr.HasherByName(app.config.Hasher)
	if err != nil {
		return err
	}
	app.store, err = database.Open(app.config.DbType, app.config.DatabasePath())
	if err != nil {
		return errors.Wrap(err, "unable to open database")
	}
	app.acc, err = chainmmr.NewChainAccumulators(hasher, app.store,
		chainmmr.Config{RewindHorizon: app.config.RewindHorizon})
	return errors.Wrap(err, "unable to open accumulators")
}

func (app *App) Close(*cli.Context) error {
	if app.store == nil {
		return nil
	}
	return app.store.Close()
}
