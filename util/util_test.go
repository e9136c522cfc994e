// =================================================================================
//
//			fox-ambient - https://www.foxhollow.cc/projects/fox-audio/
//
//		 Fox Ambient is a small hearing assistant that routes the microphone
//	  through a light processing chain and straight back out to the speakers
//
//		 Copyright (c) 2024 Steve Cross <flip@foxhollow.cc>
//
//			Licensed under the Apache License, Version 2.0 (the "License");
//			you may not use this file except in compliance with the License.
//			You may obtain a copy of the License at
//
//			     http://www.apache.org/licenses/LICENSE-2.0
//
//			Unless required by applicable law or agreed to in writing, software
//			distributed under the License is distributed on an "AS IS" BASIS,
//			WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//			See the License for the specific language governing permissions and
//			limitations under the License.
//
// =================================================================================
package util

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fox-ambient/model"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fox-ambient.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestReadConfigDefaultsWhenFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	config, err := ReadConfig(&model.CommandLineArgs{})
	require.NoError(t, err)

	defaults := model.DefaultConfig()
	assert.Equal(t, defaults.Backend, config.Backend)
	assert.Equal(t, 16, config.MeterIntervalMs)
	assert.Equal(t, 100, config.RestartDelayMs)
	assert.Equal(t, model.OutputTUI, config.OutputType)
	assert.Equal(t, defaults.Jack, config.Jack)
	assert.False(t, config.Http.Enabled)
}

func TestReadConfigExplicitMissingFileFails(t *testing.T) {
	_, err := ReadConfig(&model.CommandLineArgs{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestReadConfigMergesYamlOverDefaults(t *testing.T) {
	path := writeConfig(t, `
backend: jack
output_type: json
meter_interval_ms: 33
jack:
  client_name: hearing
http:
  listen: 127.0.0.1:9000
now_playing:
  discord_app_id: "1234"
`)

	config, err := ReadConfig(&model.CommandLineArgs{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, model.BackendJack, config.Backend)
	assert.Equal(t, model.OutputJSON, config.OutputType)
	assert.Equal(t, 33, config.MeterIntervalMs)
	assert.Equal(t, "hearing", config.Jack.ClientName)
	assert.Equal(t, "system:capture_1", config.Jack.CapturePort)
	assert.Equal(t, "127.0.0.1:9000", config.Http.Listen)
	assert.Equal(t, "1234", config.NowPlaying.DiscordAppID)
	assert.Equal(t, 100, config.RestartDelayMs)
}

func TestReadConfigFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "backend: jack\noutput_type: json\n")

	config, err := ReadConfig(&model.CommandLineArgs{
		ConfigFile:    path,
		OutputType:    "TUI",
		Simulate:      true,
		MeterInterval: 50,
		HttpListen:    ":8080",
		LogFile:       "/tmp/fox.log",
		Verbose:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, model.BackendSimulate, config.Backend)
	assert.Equal(t, model.OutputTUI, config.OutputType)
	assert.Equal(t, 50, config.MeterIntervalMs)
	assert.True(t, config.Http.Enabled)
	assert.Equal(t, ":8080", config.Http.Listen)
	assert.Equal(t, "/tmp/fox.log", config.LogFile)
	assert.Equal(t, int(slog.LevelDebug), config.LogLevel)
}

func TestReadConfigRejectsInvalidValues(t *testing.T) {
	_, err := ReadConfig(&model.CommandLineArgs{ConfigFile: writeConfig(t, "{}\n"), OutputType: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json, tui")

	_, err = ReadConfig(&model.CommandLineArgs{ConfigFile: writeConfig(t, "{}\n"), Backend: "pulse"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pulse")

	_, err = ReadConfig(&model.CommandLineArgs{ConfigFile: writeConfig(t, "output_type: xml\n")})
	assert.Error(t, err)
}

func TestFindYamlFileSearchesConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	dir := filepath.Join(home, ".config", "fox")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte("backend: simulate\n"), 0644))

	found, err := FindYamlFile("custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.yaml"), found)

	_, err = FindYamlFile("missing.yaml")
	assert.Error(t, err)
}

func TestResolveHomeDirPath(t *testing.T) {
	t.Setenv("HOME", "/home/fox")

	resolved, err := ResolveHomeDirPath("~/logs/fox.log")
	require.NoError(t, err)
	assert.Equal(t, "/home/fox/logs/fox.log", resolved)

	resolved, err = ResolveHomeDirPath("/var/log/fox.log")
	require.NoError(t, err)
	assert.Equal(t, "/var/log/fox.log", resolved)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00.000", FormatDuration(0))
	assert.Equal(t, "00:00:03.500", FormatDuration(3.5))
	assert.Equal(t, "00:01:00.000", FormatDuration(60))
	assert.Equal(t, "01:01:01.250", FormatDuration(3661.25))
}

func TestFileAndDirectoryExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.True(t, DirectoryExists(dir))
	assert.False(t, DirectoryExists(file))
}
