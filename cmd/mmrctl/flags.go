// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import "github.com/urfave/cli/v2"

const (
	flagBlocks   = "blocks"
	flagConfig   = "config"
	flagCSV      = "csv"
	flagDataDir  = "data-dir"
	flagDbType   = "db-type"
	flagHasher   = "hasher"
	flagHeight   = "height"
	flagLeaf     = "leaf"
	flagLimit    = "limit"
	flagLogLevel = "log-level"
	flagMMROnly  = "mmr-only"
	flagOffset   = "offset"
	flagOut      = "out"
	flagProof    = "proof"
	flagRoot     = "root"
	flagTree     = "tree"
	flagVerbose  = "verbose"
)

// configFlagNames maps global flags to the options of the config package.
var configFlagNames = map[string]string{
	flagConfig:   "configfile",
	flagDataDir:  "datadir",
	flagDbType:   "dbtype",
	flagHasher:   "hasher",
	flagLogLevel: "loglevel",
}

var standardFlags = map[string]cli.Flag{
	flagConfig: &cli.StringFlag{
		Name:    flagConfig,
		Aliases: []string{"c"},
		EnvVars: []string{"MMR_CONFIG"},
		Usage:   "path to configuration",
	},
	flagDataDir: &cli.StringFlag{
		Name:    flagDataDir,
		Aliases: []string{"d"},
		EnvVars: []string{"MMR_DATA_DIR"},
		Usage:   "data directory, will override value from config file",
	},
	flagDbType: &cli.StringFlag{
		Name:  flagDbType,
		Usage: "database backend, will override value from config file",
	},
	flagHasher: &cli.StringFlag{
		Name:  flagHasher,
		Usage: "hash function of the accumulators, will override value from config file",
	},
	flagLogLevel: &cli.StringFlag{
		Name:  flagLogLevel,
		Usage: "logging level, will override value from config file",
	},
	flagTree: &cli.StringFlag{
		Name:    flagTree,
		Aliases: []string{"t"},
		Value:   "utxo",
		Usage:   "accumulator: utxo, kernel or rangeproof",
	},
	flagLeaf: &cli.Uint64Flag{
		Name:     flagLeaf,
		Aliases:  []string{"l"},
		Usage:    "leaf index",
		Required: true,
	},
	flagHeight: &cli.Uint64Flag{
		Name:  flagHeight,
		Usage: "block height, the tip when omitted; earlier blocks only have mountain range roots",
	},
	flagMMROnly: &cli.BoolFlag{
		Name:  flagMMROnly,
		Usage: "print mountain range roots which ignore spent outputs",
	},
	flagOut: &cli.StringFlag{
		Name:    flagOut,
		Aliases: []string{"o"},
		Usage:   "output file, stdout when omitted",
	},
	flagProof: &cli.StringFlag{
		Name:     flagProof,
		Aliases:  []string{"p"},
		Usage:    "path to a proof file",
		Required: true,
	},
	flagRoot: &cli.StringFlag{
		Name:  flagRoot,
		Usage: "hex root to verify against instead of the accumulators",
	},
	flagCSV: &cli.StringFlag{
		Name:  flagCSV,
		Usage: "path to CSV output",
	},
	flagOffset: &cli.Uint64Flag{
		Name:  flagOffset,
		Usage: "index of the first entry",
	},
	flagLimit: &cli.Uint64Flag{
		Name:  flagLimit,
		Value: 1000,
		Usage: "max number of entries",
	},
	flagVerbose: &cli.BoolFlag{
		Name:    flagVerbose,
		Aliases: []string{"v"},
		Usage:   "dump the full content",
	},
	flagBlocks: &cli.Uint64Flag{
		Name:     flagBlocks,
		Aliases:  []string{"n"},
		Usage:    "number of blocks",
		Required: true,
	},
}
