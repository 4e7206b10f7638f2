/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	ConfigureLogOutput(&buf)
	defer ConfigureLogOutput(os.Stdout)

	l := NewLogger("REPOSITORY")
	l.Info("bulk update applied")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "REPOSITORY")
	assert.Contains(t, out, "utils/logger_test.go:")
	assert.Contains(t, out, "bulk update applied")
}

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	ConfigureLogOutput(&buf)
	ConfigureConsoleLogFormat("JSON")
	defer func() {
		ConfigureLogOutput(os.Stdout)
		ConfigureConsoleLogFormat("text")
	}()

	l := NewLogger("CACHE")
	l.WithField("id", "m1").Warn("evicted")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "CACHE", line["logger"])
	assert.Equal(t, "m1", line["id"])
	assert.Equal(t, "evicted", line["msg"])
	assert.Equal(t, "warning", line["level"])
}

func TestLevels(t *testing.T) {
	l := NewLogger("LEVELS")
	assert.True(t, SetLoggerLevel("LEVELS", "error"))
	assert.Equal(t, logrus.ErrorLevel, l.GetLevel())
	assert.False(t, SetLoggerLevel("MISSING", "error"))

	ConfigureLogLevel("debug")
	defer ConfigureLogLevel("info")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	assert.Equal(t, logrus.WarnLevel, ParseLogLevel(" Warning "))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("nonsense"))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("DATAREPO_FLAG", "yes")
	t.Setenv("DATAREPO_NAME", "  ")
	assert.True(t, EnvDefaultBool("DATAREPO_FLAG", false))
	assert.True(t, EnvDefaultBool("DATAREPO_UNSET", true))
	assert.Equal(t, "fallback", EnvDefaultString("DATAREPO_NAME", "fallback"))
}

func TestShortCaller(t *testing.T) {
	assert.Equal(t, "store/memory.go:12", shortCaller("/src/datarepo/store/memory.go", 12))
	assert.Equal(t, "main.go:3", shortCaller("main.go", 3))
	assert.Equal(t, "abc", truncateLeft("xyzabc", 3))
}
