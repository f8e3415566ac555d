// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package corelog

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Disabled zerolog.Logger

	DefaultLevel   = zerolog.InfoLevel
	DefaultLogFile = "mmrengine.log"
	AppName        = "mmrengine"
)

func init() {
	Disabled = zerolog.Nop()
}

// Config for logging
type Config struct {
	// Disable console logging
	DisableConsoleLog bool `yaml:"disable_console_log" long:"nocolorlog" description:"Disable console logging"`
	// LogsAsJson makes the log framework log JSON
	LogsAsJson bool `yaml:"logs_as_json" long:"jsonlog" description:"Write logs as JSON to stdout"`
	// FileLoggingEnabled makes the framework log to a file
	// the fields below can be skipped if this value is false!
	FileLoggingEnabled bool `yaml:"file_logging_enabled" long:"filelog" description:"Write logs to a rolling file"`
	// Directory to log to to when filelogging is enabled
	Directory string `yaml:"directory" long:"logdir" description:"Directory for log files"`
	// Filename is the name of the logfile which will be placed inside the directory
	Filename string `yaml:"filename" long:"logfile" description:"Name of the log file"`
	// MaxSize the max size in MB of the logfile before it's rolled
	MaxSize int `yaml:"max_size" long:"logmaxsize" description:"Max size of a log file in MB"`
	// MaxBackups the max number of rolled files to keep
	MaxBackups int `yaml:"max_backups" long:"logmaxbackups" description:"Number of rolled log files to keep"`
	// MaxAge the max age in days to keep a logfile
	MaxAge int `yaml:"max_age" long:"logmaxage" description:"Days to keep rolled log files"`
}

func (Config) Default() Config {
	return Config{
		DisableConsoleLog:  false,
		LogsAsJson:         false,
		FileLoggingEnabled: false,
		Directory:          "logs",
		Filename:           DefaultLogFile,
		MaxSize:            150,
		MaxBackups:         3,
		MaxAge:             28,
	}
}

// ParseLevel converts a level name into zerolog.Level.
// "critical" is accepted as an alias of "fatal".
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "critical" {
		return zerolog.FatalLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		return zerolog.NoLevel, errors.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}

// New creates the logger of a unit with all writers enabled by the config.
func New(unit string, logLevel zerolog.Level, config Config) zerolog.Logger {
	return NewWithWriter(unit, logLevel, config, nil)
}

// NewWithWriter is New with an extra writer, nil is ignored.
func NewWithWriter(unit string, logLevel zerolog.Level, config Config, extra io.Writer) zerolog.Logger {
	var writers []io.Writer
	if !config.DisableConsoleLog && !config.LogsAsJson {
		out := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}
		out.TimeFormat = time.RFC3339
		out.FormatLevel = func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s| %s |", i, unit))
		}
		out.FormatMessage = func(i interface{}) string {
			return fmt.Sprintf("%-6s  ", i)
		}
		writers = append(writers, out)
	}
	if !config.DisableConsoleLog && config.LogsAsJson {
		writers = append(writers, os.Stdout)
	}
	if config.FileLoggingEnabled {
		if file := RollingFile(config); file != nil {
			writers = append(writers, file)
		}
	}
	if extra != nil {
		writers = append(writers, extra)
	}
	if len(writers) == 0 {
		return Disabled
	}

	mw := io.MultiWriter(writers...)
	logger := zerolog.New(mw).
		Level(logLevel).
		With().
		Str("app", AppName).
		Str("unit", unit).
		Timestamp().
		Logger()

	logger.Trace().
		Bool("fileLogging", config.FileLoggingEnabled).
		Bool("jsonLogOutput", config.LogsAsJson).
		Str("logDirectory", config.Directory).
		Str("fileName", config.Filename).
		Int("maxSizeMB", config.MaxSize).
		Int("maxBackups", config.MaxBackups).
		Int("maxAgeInDays", config.MaxAge).
		Msg("logging configured")

	return logger
}

// RollingFile opens the lumberjack writer described by the config.
// Loggers sharing a file must share the writer.
func RollingFile(config Config) io.Writer {
	if err := os.MkdirAll(config.Directory, 0744); err != nil {
		fmt.Fprintf(os.Stderr, "can't create log directory %s: %v\n", config.Directory, err)
		return nil
	}

	return &lumberjack.Logger{
		Filename:   path.Join(config.Directory, config.Filename),
		MaxBackups: config.MaxBackups, // files
		MaxSize:    config.MaxSize,    // megabytes
		MaxAge:     config.MaxAge,     // days
	}
}
