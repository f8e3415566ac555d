// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/mmrengine/corelog"
)

var log = corelog.Disabled

// UseLogger uses a specified Logger to output package logging info.
// It is also passed to every registered driver.
func UseLogger(logger zerolog.Logger) {
	log = logger

	// Update the logger for the registered drivers.
	for _, drv := range drivers {
		if drv.UseLogger != nil {
			drv.UseLogger(logger)
		}
	}
}
