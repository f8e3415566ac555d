// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package corelog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"debug":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warn":     zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"critical": zerolog.FatalLevel,
	} {
		lvl, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, lvl, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	_, err = ParseLevel("")
	assert.Error(t, err)
}

func TestNewWithWriter(t *testing.T) {
	cfg := Config{}.Default()
	cfg.DisableConsoleLog = true

	buf := new(bytes.Buffer)
	logger := NewWithWriter("MMR", zerolog.DebugLevel, cfg, buf)
	logger.Debug().Uint64("leaves", 5).Msg("pushed")
	logger.Trace().Msg("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "MMR", entry["unit"])
	assert.Equal(t, AppName, entry["app"])
	assert.Equal(t, "pushed", entry["message"])
	assert.Equal(t, float64(5), entry["leaves"])
}

func TestNoWriters(t *testing.T) {
	cfg := Config{}.Default()
	cfg.DisableConsoleLog = true
	logger := New("MMR", zerolog.InfoLevel, cfg)
	assert.Equal(t, zerolog.Disabled, logger.GetLevel())
}

func TestFileLogging(t *testing.T) {
	cfg := Config{}.Default()
	cfg.DisableConsoleLog = true
	cfg.FileLoggingEnabled = true
	cfg.Directory = t.TempDir()

	logger := New("DB", zerolog.InfoLevel, cfg)
	logger.Info().Msg("store opened")

	data, err := os.ReadFile(filepath.Join(cfg.Directory, DefaultLogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "store opened")
}
