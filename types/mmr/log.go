// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/mmrengine/corelog"
)

var log = corelog.Disabled

// UseLogger sets the logger used by the package.
// The package is silent until this is called.
func UseLogger(logger zerolog.Logger) {
	log = logger
}
