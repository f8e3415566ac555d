// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"gitlab.com/jaxnet/mmrengine/corelog"
	"gitlab.com/jaxnet/mmrengine/database"
	_ "gitlab.com/jaxnet/mmrengine/database/badgerdb"
	_ "gitlab.com/jaxnet/mmrengine/database/ldb"
	_ "gitlab.com/jaxnet/mmrengine/database/memdb"
	_ "gitlab.com/jaxnet/mmrengine/database/pebbledb"
	"gitlab.com/jaxnet/mmrengine/types/mmr"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFilename = "mmrengine.yaml"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultDBType         = "leveldb"
	defaultRewindHorizon  = 100

	defaultMetricsPort     = 2112
	defaultMetricsRoute    = "/metrics"
	defaultMetricsInterval = 5 * time.Second

	defaultSimBlocks          = 1000
	defaultSimOutputsPerBlock = 8
	defaultSimKernelsPerBlock = 2
	defaultSimSpendRate       = 0.5
	defaultSimReorgEvery      = 50
	defaultSimReorgDepth      = 3
)

var defaultHomeDir = appDataDir()

// MetricsConfig controls the prometheus listener.
type MetricsConfig struct {
	Enable   bool          `yaml:"enable" long:"enable" description:"Serve prometheus metrics"`
	Port     uint16        `yaml:"port" long:"port" description:"Metrics listener port"`
	Route    string        `yaml:"route" long:"route" description:"Metrics HTTP route"`
	Interval time.Duration `yaml:"interval" long:"interval" description:"Gauge refresh interval"`
}

// SimConfig drives the chain simulator.
type SimConfig struct {
	Blocks          int     `yaml:"blocks" long:"blocks" description:"Number of blocks to produce"`
	OutputsPerBlock int     `yaml:"outputs_per_block" long:"outputs" description:"Outputs created per block"`
	KernelsPerBlock int     `yaml:"kernels_per_block" long:"kernels" description:"Kernels created per block"`
	SpendRate       float64 `yaml:"spend_rate" long:"spendrate" description:"Share of a block's outputs spending earlier outputs, 0..1"`
	ReorgEvery      int     `yaml:"reorg_every" long:"reorgevery" description:"Simulate a reorganization every N blocks, 0 disables"`
	ReorgDepth      int     `yaml:"reorg_depth" long:"reorgdepth" description:"Blocks rewound by a reorganization"`
	Seed            int64   `yaml:"seed" long:"seed" description:"Random seed, 0 picks one from the clock"`
}

// Config is the configuration shared by the tools of the repository.
type Config struct {
	ConfigFile    string `yaml:"-" short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir       string `yaml:"data_dir" short:"b" long:"datadir" description:"Directory to store data"`
	DbType        string `yaml:"db_type" long:"dbtype" description:"Database backend to use for the accumulators"`
	Hasher        string `yaml:"hasher" long:"hasher" description:"Hash function of the accumulators"`
	RewindHorizon uint64 `yaml:"rewind_horizon" long:"rewindhorizon" description:"Number of blocks that can be rewound, 0 keeps all"`
	LogLevel      string `yaml:"log_level" short:"d" long:"loglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`

	Log     corelog.Config `yaml:"log" group:"Logging" namespace:"log"`
	Metrics MetricsConfig  `yaml:"metrics" group:"Metrics" namespace:"metrics"`
	Sim     SimConfig      `yaml:"sim" group:"Simulation" namespace:"sim"`
}

// Default returns the configuration with every option at its default.
func Default() Config {
	return Config{
		ConfigFile:    filepath.Join(defaultHomeDir, defaultConfigFilename),
		DataDir:       filepath.Join(defaultHomeDir, defaultDataDirname),
		DbType:        defaultDBType,
		Hasher:        mmr.SHA256,
		RewindHorizon: defaultRewindHorizon,
		LogLevel:      defaultLogLevel,
		Log:           corelog.Config{}.Default(),
		Metrics: MetricsConfig{
			Port:     defaultMetricsPort,
			Route:    defaultMetricsRoute,
			Interval: defaultMetricsInterval,
		},
		Sim: SimConfig{
			Blocks:          defaultSimBlocks,
			OutputsPerBlock: defaultSimOutputsPerBlock,
			KernelsPerBlock: defaultSimKernelsPerBlock,
			SpendRate:       defaultSimSpendRate,
			ReorgEvery:      defaultSimReorgEvery,
			ReorgDepth:      defaultSimReorgDepth,
		},
	}
}

func appDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".mmrengine")
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}

// validDBType returns whether or not dbType is a supported database type.
func validDBType(dbType string) bool {
	for _, knownType := range database.SupportedDrivers() {
		if dbType == knownType {
			return true
		}
	}

	return false
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *Config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// LoadConfig initializes and parses the config using a config file and the
// passed command line arguments.
//
// The configuration proceeds as follows:
// 	1) Start with a default config with sane settings
// 	2) Pre-parse the command line to check for an alternative config file
// 	3) Load configuration file overwriting defaults with any specified options
// 	4) Parse CLI options and overwrite/add any specified options
//
// A missing config file is not an error unless it was named explicitly.
// Command line options always take precedence.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := Default()
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
		cfg.ConfigFile = filepath.Join(dataDir, defaultConfigFilename)
	}

	// Pre-parse the command line options to see if an alternative config
	// file was specified.  Errors aside from help are caught by the final
	// parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag|flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, nil, err
		}
	}

	configFile := cleanAndExpandPath(preCfg.ConfigFile)
	explicitFile := preCfg.ConfigFile != cfg.ConfigFile
	if fileExists(configFile) {
		if err := loadFile(configFile, &cfg); err != nil {
			return nil, nil, err
		}
	} else if explicitFile {
		return nil, nil, errors.Errorf("config file %s does not exist", configFile)
	}
	cfg.ConfigFile = configFile

	// Parse command line options again to ensure they take precedence.
	parser := newConfigParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.Log.Directory = cleanAndExpandPath(cfg.Log.Directory)
	if err = cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, remainingArgs, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "can't open config file")
	}
	defer file.Close()

	if err = yaml.NewDecoder(file).Decode(cfg); err != nil {
		return errors.Wrapf(err, "can't parse config file %s", path)
	}
	return nil
}

// Validate checks option values that the parsers can't.
func (cfg *Config) Validate() error {
	if !validLogLevel(cfg.LogLevel) {
		return errors.Errorf("the specified debug level [%v] is invalid", cfg.LogLevel)
	}
	if !validDBType(cfg.DbType) {
		return errors.Errorf("the specified database type [%v] is invalid -- supported types %v",
			cfg.DbType, database.SupportedDrivers())
	}
	if _, err := mmr.HasherByName(cfg.Hasher); err != nil {
		return errors.Wrapf(err, "supported hashers %v", mmr.SupportedHashers())
	}
	if cfg.Metrics.Enable && cfg.Metrics.Interval <= 0 {
		return errors.New("metrics interval must be positive")
	}
	if cfg.Sim.SpendRate < 0 || cfg.Sim.SpendRate > 1 {
		return errors.Errorf("spend rate %v is out of range [0, 1]", cfg.Sim.SpendRate)
	}
	if cfg.Sim.Blocks < 0 || cfg.Sim.OutputsPerBlock < 0 || cfg.Sim.KernelsPerBlock < 0 {
		return errors.New("simulation counts must not be negative")
	}
	if cfg.Sim.ReorgEvery > 0 && cfg.Sim.ReorgDepth <= 0 {
		return errors.New("reorg depth must be positive when reorgs are enabled")
	}
	return nil
}

// DatabasePath is the location of the accumulator database.
func (cfg *Config) DatabasePath() string {
	return filepath.Join(cfg.DataDir, fmt.Sprintf("accumulators_%s", cfg.DbType))
}

// WriteFile stores the configuration as YAML.
func (cfg *Config) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "can't create config directory")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "can't encode config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o600), "can't write config file")
}
