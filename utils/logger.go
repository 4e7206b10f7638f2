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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const timestampFormat = "2006-01-02 15:04:05.000"

var (
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}

	settingsMu       sync.RWMutex
	defaultLevel     = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info"))
	consoleLogFormat = normalizeFormat(EnvDefaultString("CONSOLE_LOG_FORMAT", "text"))
	logOutput        io.Writer = os.Stdout
)

func normalizeFormat(format string) string {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return "json"
	}
	return "text"
}

// ConfigureConsoleLogFormat selects "text" or "json" for loggers created
// afterwards.
func ConfigureConsoleLogFormat(format string) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	consoleLogFormat = normalizeFormat(format)
}

// ConfigureLogOutput redirects every registered logger, and loggers created
// afterwards, to w.
func ConfigureLogOutput(w io.Writer) {
	settingsMu.Lock()
	logOutput = w
	settingsMu.Unlock()

	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	for _, lg := range loggerRegistry {
		lg.SetOutput(w)
	}
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func RegisterLogger(name string, l *logrus.Logger) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerRegistry[name] = l
}

// GetLogger returns the registered logger for name.
func GetLogger(name string) (*logrus.Logger, bool) {
	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	l, ok := loggerRegistry[name]
	return l, ok
}

// SetLoggerLevel changes the level of one registered logger.
func SetLoggerLevel(name string, lvlStr string) bool {
	l, ok := GetLogger(name)
	if !ok {
		return false
	}
	l.SetLevel(ParseLogLevel(lvlStr))
	return true
}

// ConfigureLogLevel sets the level of every registered logger and of loggers
// created afterwards.
func ConfigureLogLevel(levelStr string) {
	lvl := ParseLogLevel(levelStr)
	settingsMu.Lock()
	defaultLevel = lvl
	settingsMu.Unlock()

	loggerRegistryMu.RLock()
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
	loggerRegistryMu.RUnlock()
	logrus.SetLevel(lvl)
}

// NewLogger creates and registers a named logger using the current format,
// level and output. Creating a logger under an existing name replaces it.
func NewLogger(name string) *logrus.Logger {
	settingsMu.RLock()
	format, level, output := consoleLogFormat, defaultLevel, logOutput
	settingsMu.RUnlock()

	l := logrus.New()
	l.SetOutput(output)
	l.SetLevel(level)
	l.SetReportCaller(true)
	if format == "json" {
		l.SetFormatter(&JSONLogFormatter{LoggerName: name})
	} else {
		l.SetFormatter(&Log4jColorFormatter{LoggerName: name, NameWidth: 10, CallerWidth: 28})
	}
	RegisterLogger(name, l)
	return l
}

var (
	pidColor    = color.New(color.FgMagenta)
	nameColor   = color.New(color.FgCyan)
	callerColor = color.New(color.Faint)
	levelColors = map[logrus.Level]*color.Color{
		logrus.TraceLevel: color.New(color.FgWhite),
		logrus.DebugLevel: color.New(color.FgBlue),
		logrus.InfoLevel:  color.New(color.FgGreen),
		logrus.WarnLevel:  color.New(color.FgYellow),
		logrus.ErrorLevel: color.New(color.FgRed),
		logrus.FatalLevel: color.New(color.FgHiRed, color.Bold),
		logrus.PanicLevel: color.New(color.FgHiRed, color.Bold),
	}
)

// Log4jColorFormatter renders
// "ts  LEVEL pid --- [main]       name   dir/file.go:42 : message".
type Log4jColorFormatter struct {
	LoggerName      string
	TimestampFormat string
	NameWidth       int
	CallerWidth     int
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	ts := f.TimestampFormat
	if ts == "" {
		ts = timestampFormat
	}
	lvl := fmt.Sprintf("%7s", strings.ToUpper(entry.Level.String()))
	if c, ok := levelColors[entry.Level]; ok {
		lvl = c.Sprint(lvl)
	}

	caller := ""
	if entry.Caller != nil {
		caller = " " + callerColor.Sprint(padLeft(truncateLeft(shortCaller(entry.Caller.File, entry.Caller.Line), f.CallerWidth), f.CallerWidth))
	}

	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "%s %s %s --- [main] %s%s : %s",
		entry.Time.Format(ts),
		lvl,
		pidColor.Sprintf("%-6d", os.Getpid()),
		nameColor.Sprint(padLeft(truncateLeft(f.LoggerName, f.NameWidth), f.NameWidth)),
		caller,
		entry.Message,
	)
	for k, v := range entry.Data {
		_, _ = fmt.Fprintf(&b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// JSONLogFormatter adds the logger name and a short caller to logrus' JSON output.
type JSONLogFormatter struct {
	LoggerName string
	json       logrus.JSONFormatter
	once       sync.Once
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	f.once.Do(func() {
		f.json = logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			CallerPrettyfier: func(frame *runtime.Frame) (string, string) {
				return "", shortCaller(frame.File, frame.Line)
			},
		}
	})
	data := make(logrus.Fields, len(entry.Data)+1)
	for k, v := range entry.Data {
		data[k] = v
	}
	data["logger"] = f.LoggerName
	clone := *entry
	clone.Data = data
	return f.json.Format(&clone)
}

// shortCaller keeps the last directory and the file name.
func shortCaller(file string, line int) string {
	file = filepath.ToSlash(file)
	dir, base := filepath.Split(file)
	parent := filepath.Base(strings.TrimSuffix(dir, "/"))
	if parent == "." || parent == "/" || parent == "" {
		return fmt.Sprintf("%s:%d", base, line)
	}
	return fmt.Sprintf("%s/%s:%d", parent, base, line)
}

func padLeft(s string, width int) string {
	if width <= 0 {
		return s
	}
	return fmt.Sprintf("%*s", width, s)
}

// truncateLeft keeps the trailing runes of s so it fits width.
func truncateLeft(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	return string(r[len(r)-width:])
}

func EnvDefaultString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
