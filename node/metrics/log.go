package metrics

import (
	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/mmrengine/corelog"
)

var log = corelog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger zerolog.Logger) {
	log = logger
}
