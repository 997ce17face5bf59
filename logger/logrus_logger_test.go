/*
Copyright 2026 The Dapr Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeLoggerName = "fakeLogger"

func getTestLogger(buf io.Writer) *logrusLogger {
	l := newLogrusLogger(fakeLoggerName)
	l.SetOutput(buf)

	return l
}

func TestEnableJSON(t *testing.T) {
	var buf bytes.Buffer
	testLogger := getTestLogger(&buf)

	expectedHost, _ := os.Hostname()
	testLogger.EnableJSONOutput(true)
	_, okJSON := testLogger.logger.Logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, okJSON)
	assert.Equal(t, fakeLoggerName, testLogger.logger.Data[logFieldScope])
	assert.Equal(t, LogTypeLog, testLogger.logger.Data[logFieldType])
	assert.Equal(t, expectedHost, testLogger.logger.Data[logFieldInstance])

	testLogger.EnableJSONOutput(false)
	_, okText := testLogger.logger.Logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, okText)
	assert.Equal(t, fakeLoggerName, testLogger.logger.Data[logFieldScope])
	assert.Equal(t, LogTypeLog, testLogger.logger.Data[logFieldType])
	assert.Equal(t, expectedHost, testLogger.logger.Data[logFieldInstance])
}

func TestJSONLoggerFields(t *testing.T) {
	tests := []struct {
		name        string
		outputLevel LogLevel
		level       string
		fn          func(*logrusLogger, string)
	}{
		{"info()", InfoLevel, "info", func(l *logrusLogger, msg string) { l.Info(msg) }},
		{"infof()", InfoLevel, "info", func(l *logrusLogger, msg string) { l.Infof("%s", msg) }},
		{"debug()", DebugLevel, "debug", func(l *logrusLogger, msg string) { l.Debug(msg) }},
		{"debugf()", DebugLevel, "debug", func(l *logrusLogger, msg string) { l.Debugf("%s", msg) }},
		{"warn()", InfoLevel, "warning", func(l *logrusLogger, msg string) { l.Warn(msg) }},
		{"error()", InfoLevel, "error", func(l *logrusLogger, msg string) { l.Error(msg) }},
		{"errorf()", InfoLevel, "error", func(l *logrusLogger, msg string) { l.Errorf("%s", msg) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			testLogger := getTestLogger(&buf)
			testLogger.EnableJSONOutput(true)
			testLogger.SetAppID("queue_app")
			testLogger.SetOutputLevel(tt.outputLevel)
			testLogger.logger.Data[logFieldInstance] = "queue-pod"

			tt.fn(testLogger, "item released")

			b, _ := buf.ReadBytes('\n')
			var o map[string]any
			require.NoError(t, json.Unmarshal(b, &o))

			assert.Equal(t, "queue_app", o[logFieldAppID])
			assert.Equal(t, "queue-pod", o[logFieldInstance])
			assert.Equal(t, tt.level, o[logFieldLevel])
			assert.Equal(t, LogTypeLog, o[logFieldType])
			assert.Equal(t, fakeLoggerName, o[logFieldScope])
			assert.Equal(t, "item released", o[logFieldMessage])
			_, err := time.Parse(time.RFC3339, o[logFieldTimeStamp].(string))
			require.NoError(t, err)
		})
	}
}

func TestOutputLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	testLogger := getTestLogger(&buf)
	testLogger.SetOutputLevel(WarnLevel)

	assert.False(t, testLogger.IsOutputLevelEnabled(InfoLevel))
	assert.True(t, testLogger.IsOutputLevelEnabled(ErrorLevel))

	testLogger.Info("hidden")
	assert.Zero(t, buf.Len())
	testLogger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithTypeFields(t *testing.T) {
	var buf bytes.Buffer
	testLogger := getTestLogger(&buf)
	testLogger.EnableJSONOutput(true)
	testLogger.SetOutputLevel(InfoLevel)

	// WithLogType will return new Logger with metric log type
	// Meanwhile, testLogger uses the default logtype
	loggerWithMetricType := testLogger.WithLogType(LogTypeMetric)
	loggerWithMetricType.Info("queue stats")

	b, _ := buf.ReadBytes('\n')
	var o map[string]any
	require.NoError(t, json.Unmarshal(b, &o))

	assert.Equalf(t, LogTypeMetric, o[logFieldType], "new logger must be %s type", LogTypeMetric)

	testLogger.Info("testLogger with log LogType")

	b, _ = buf.ReadBytes('\n')
	require.NoError(t, json.Unmarshal(b, &o))

	assert.Equalf(t, LogTypeLog, o[logFieldType], "testLogger must be %s type", LogTypeLog)
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	testLogger := getTestLogger(&buf)
	testLogger.EnableJSONOutput(true)

	testLogger.WithFields(map[string]any{
		"queue": "orders",
		"len":   3,
	}).Info("queue state")

	b, _ := buf.ReadBytes('\n')
	var o map[string]any
	require.NoError(t, json.Unmarshal(b, &o))

	assert.Equal(t, "orders", o["queue"])
	assert.InDelta(t, 3, o["len"], 0)
	assert.Equal(t, fakeLoggerName, o[logFieldScope])
}

func TestToLogrusLevel(t *testing.T) {
	t.Run("DebugLevel to Logrus.DebugLevel", func(t *testing.T) {
		assert.Equal(t, logrus.DebugLevel, toLogrusLevel(DebugLevel))
	})

	t.Run("InfoLevel to Logrus.InfoLevel", func(t *testing.T) {
		assert.Equal(t, logrus.InfoLevel, toLogrusLevel(InfoLevel))
	})

	t.Run("WarnLevel to Logrus.WarnLevel", func(t *testing.T) {
		assert.Equal(t, logrus.WarnLevel, toLogrusLevel(WarnLevel))
	})

	t.Run("ErrorLevel to Logrus.ErrorLevel", func(t *testing.T) {
		assert.Equal(t, logrus.ErrorLevel, toLogrusLevel(ErrorLevel))
	})

	t.Run("FatalLevel to Logrus.FatalLevel", func(t *testing.T) {
		assert.Equal(t, logrus.FatalLevel, toLogrusLevel(FatalLevel))
	})
}
