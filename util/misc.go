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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

func FileExists(path string) bool {
	// if an error occurred or its a directory, we throw up
	if stat, err := os.Stat(path); err != nil || stat.IsDir() {
		return false
	}

	return true
}

func DirectoryExists(testDir string) bool {
	if stat, err := os.Stat(testDir); err != nil || !stat.IsDir() {
		return false
	}

	return true
}

func ResolveHomeDirPath(testPath string) (string, error) {
	if strings.HasPrefix(testPath, "~/") {
		homeDir, err := os.UserHomeDir()

		if err != nil {
			return "", errors.New("could not find user home dir: " + err.Error())
		}

		return path.Join(homeDir, testPath[2:]), nil
	}

	return testPath, nil
}

// FindYamlFile looks for fileName as given, next to the executable, in the
// working directory and finally in ~/.config/fox.
func FindYamlFile(fileName string) (string, error) {
	if path.IsAbs(fileName) {
		return fileName, nil
	}

	if strings.HasPrefix(fileName, "~/") {
		return ResolveHomeDirPath(fileName)
	}

	// check path where ececutable lives
	if binPath, err := os.Executable(); err == nil {
		sidecarPath := path.Join(filepath.Dir(binPath), fileName)
		if FileExists(sidecarPath) {
			return sidecarPath, nil
		}
	}

	// check working directory
	if cwd, err := os.Getwd(); err == nil {
		cwdSidecarPath := path.Join(cwd, fileName)
		if FileExists(cwdSidecarPath) {
			return cwdSidecarPath, nil
		}
	}

	// check user config directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not find user home dir: " + err.Error())
	}

	homeDotConfigPath := path.Join(homeDir, ".config", "fox", fileName)
	if FileExists(homeDotConfigPath) {
		return homeDotConfigPath, nil
	}

	return "", errors.New("no yaml file found")
}

func ReadYamlFile(cfg interface{}, fileName string) error {
	filePath, err := FindYamlFile(fileName)
	if err != nil {
		return err
	}

	if !FileExists(filePath) {
		return errors.New("the specified yaml file does not exist: " + filePath)
	}

	slog.Info("Reading yaml from " + filePath)

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	return nil
}

func TraceLog(message string, args ...any) {
	slog.Log(context.Background(), slog.Level(-10), message, args...)
}

func FormatDuration(duration float64) string {
	hours := 0
	minutes := 0
	seconds := 0

	if duration >= 3600 {
		hours = int(duration) / 3600
		duration -= float64(hours) * 3600.0
	}

	if duration >= 60 {
		minutes = int(duration) / 60
		duration -= float64(minutes) * 60
	}

	seconds = int(duration)
	duration -= float64(seconds)

	mseconds := int(duration * 1000)

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, mseconds)
}
