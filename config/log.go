// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"io"
	"sort"

	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/mmrengine/corelog"
	"gitlab.com/jaxnet/mmrengine/database"
	"gitlab.com/jaxnet/mmrengine/node/metrics"
	chainmmr "gitlab.com/jaxnet/mmrengine/node/mmr"
	"gitlab.com/jaxnet/mmrengine/types/mmr"
)

const (
	LogUnitACCM = "ACCM"
	LogUnitBCDB = "BCDB"
	LogUnitCHAN = "CHAN"
	LogUnitMTRX = "MTRX"
	LogUnitTOOL = "TOOL"
)

// subsystems maps each subsystem identifier to the setter of its package logger.
var subsystems = map[string]func(zerolog.Logger){
	LogUnitACCM: mmr.UseLogger,
	LogUnitBCDB: database.UseLogger,
	LogUnitCHAN: chainmmr.UseLogger,
	LogUnitMTRX: metrics.UseLogger,
	LogUnitTOOL: func(zerolog.Logger) {},
}

// supportedSubsystems returns a sorted slice of the supported subsystems.
func supportedSubsystems() []string {
	subsystemIDs := make([]string, 0, len(subsystems))
	for subsysID := range subsystems {
		subsystemIDs = append(subsystemIDs, subsysID)
	}
	sort.Strings(subsystemIDs)
	return subsystemIDs
}

// SetupLoggers creates a logger per subsystem and hands it to the package
// it belongs to. The logger of unit TOOL is returned for the caller.
func (cfg *Config) SetupLoggers() (zerolog.Logger, error) {
	level, err := corelog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return corelog.Disabled, err
	}

	logCfg := cfg.Log
	var file io.Writer
	if logCfg.FileLoggingEnabled {
		file = corelog.RollingFile(logCfg)
		logCfg.FileLoggingEnabled = false
	}

	var tool zerolog.Logger
	for _, unit := range supportedSubsystems() {
		logger := corelog.NewWithWriter(unit, level, logCfg, file)
		subsystems[unit](logger)
		if unit == LogUnitTOOL {
			tool = logger
		}
	}
	return tool, nil
}
