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
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("bogus"))
}

func TestTextFormatterRendersFields(t *testing.T) {
	f := &TextFormatter{LoggerName: "REPO", NameWidth: 6, NoColor: true}
	entry := logrus.NewEntry(logrus.New()).WithFields(logrus.Fields{"b": 2, "a": "x"})
	entry.Level = logrus.WarnLevel
	entry.Message = "slow query"

	out, err := f.Format(entry)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "WARNING")
	assert.Contains(t, s, "[  REPO]")
	assert.Contains(t, s, ": slow query a=x b=2\n")
}

func TestSetLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("utils-test")
	l.SetOutput(&buf)

	assert.True(t, SetLoggerLevel("utils-test", "error"))
	l.Info("hidden")
	assert.Empty(t, buf.String())
	l.Error("shown")
	assert.Contains(t, buf.String(), "shown")

	assert.False(t, SetLoggerLevel("missing-logger", "debug"))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("KEEL_UTILS_STR", "v")
	t.Setenv("KEEL_UTILS_BOOL", "true")
	assert.Equal(t, "v", EnvDefaultString("KEEL_UTILS_STR", "d"))
	assert.Equal(t, "d", EnvDefaultString("KEEL_UTILS_UNSET", "d"))
	assert.True(t, EnvDefaultBool("KEEL_UTILS_BOOL", false))
	assert.True(t, EnvDefaultBool("KEEL_UTILS_UNSET", true))
}
