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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger is the logrus logger type used across the module.
type Logger = logrus.Logger

var (
	loggerRegistry   = map[string]*logrus.Logger{}
	loggerRegistryMu sync.RWMutex

	defaultLevel     = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info"))
	consoleLogFormat = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	fileLogEnabled   = EnvDefaultBool("FILE_LOG_ENABLED", false)
	fileLogDir       = EnvDefaultString("FILE_LOG_DIR", "logs")
)

// ParseLogLevel maps a level name to a logrus level, defaulting to info.
func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
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

// NewLogger builds a named logger with the module-wide formatter and level
// and registers it so level changes reach it later. Loggers are not cached:
// requesting the same name twice yields the newer instance in the registry.
func NewLogger(name string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(defaultLevel)
	l.SetReportCaller(true)
	if consoleLogFormat == "json" {
		l.SetFormatter(&JSONLogFormatter{LoggerName: name})
	} else {
		l.SetFormatter(&Log4jColorFormatter{LoggerName: name, NameWidth: 10})
	}
	if fileLogEnabled {
		if w, err := openLogFile(fileLogDir, name); err == nil {
			l.AddHook(&fileWriterHook{writer: w, formatter: &JSONLogFormatter{LoggerName: name}})
		}
	}
	RegisterLogger(name, l)
	return l
}

// RegisterLogger records a logger under name for registry-wide updates.
func RegisterLogger(name string, l *logrus.Logger) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerRegistry[name] = l
}

// SetLoggerLevel changes one registered logger's level, reporting whether
// the name was known.
func SetLoggerLevel(name string, levelStr string) bool {
	lvl := ParseLogLevel(levelStr)
	loggerRegistryMu.RLock()
	l, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	l.SetLevel(lvl)
	return true
}

// SetAllLoggersLevel changes every registered logger's level and the level
// future NewLogger calls start from.
func SetAllLoggersLevel(lvl logrus.Level) {
	loggerRegistryMu.Lock()
	defaultLevel = lvl
	for _, l := range loggerRegistry {
		l.SetLevel(lvl)
	}
	loggerRegistryMu.Unlock()
	logrus.SetLevel(lvl)
}

// ConfigureLogLevel is SetAllLoggersLevel taking a level name.
func ConfigureLogLevel(levelStr string) {
	SetAllLoggersLevel(ParseLogLevel(levelStr))
}

// Log4jColorFormatter renders log4j-style lines:
//
//	2025-08-25 10:30:00.000  INFO 4312 --- [main] database   conn.go:41 : connected
//
// Level and logger name are colorized when the terminal supports it;
// structured fields append as key=value pairs.
type Log4jColorFormatter struct {
	LoggerName      string
	TimestampFormat string
	NameWidth       int
}

var (
	levelColors = map[logrus.Level]*color.Color{
		logrus.TraceLevel: color.New(color.FgHiBlack),
		logrus.DebugLevel: color.New(color.FgBlue),
		logrus.InfoLevel:  color.New(color.FgGreen),
		logrus.WarnLevel:  color.New(color.FgYellow),
		logrus.ErrorLevel: color.New(color.FgRed),
		logrus.FatalLevel: color.New(color.FgRed, color.Bold),
		logrus.PanicLevel: color.New(color.FgRed, color.Bold),
	}
	nameColor  = color.New(color.FgCyan)
	pidColor   = color.New(color.FgMagenta)
	faintColor = color.New(color.Faint)
)

func (f *Log4jColorFormatter) tsFormat() string {
	if f.TimestampFormat != "" {
		return f.TimestampFormat
	}
	return "2006-01-02 15:04:05.000"
}

// Format implements logrus.Formatter.
func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	ts := entry.Time.Format(f.tsFormat())
	lvl := fmt.Sprintf("%7s", strings.ToUpper(entry.Level.String()))
	if c, ok := levelColors[entry.Level]; ok {
		lvl = c.Sprint(lvl)
	}
	pid := pidColor.Sprintf("%-6d", os.Getpid())

	width := f.NameWidth
	if width <= 0 {
		width = 10
	}
	name := f.LoggerName
	if len(name) > width {
		name = name[:width]
	}
	name = nameColor.Sprintf("%*s", width, name)

	caller := ""
	if entry.Caller != nil {
		caller = faintColor.Sprintf(" %s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}

	line := fmt.Sprintf("%s %s %s --- [main] %s%s : %s%s\n",
		ts, lvl, pid, name, caller, entry.Message, renderFields(entry.Data))
	return []byte(line), nil
}

// JSONLogFormatter renders one JSON object per line with stable keys.
type JSONLogFormatter struct {
	LoggerName      string
	TimestampFormat string
}

// Format implements logrus.Formatter.
func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tsFormat := f.TimestampFormat
	if tsFormat == "" {
		tsFormat = time.RFC3339Nano
	}
	record := map[string]interface{}{
		"time":    entry.Time.Format(tsFormat),
		"level":   entry.Level.String(),
		"logger":  f.LoggerName,
		"message": entry.Message,
	}
	if entry.Caller != nil {
		record["caller"] = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	for k, v := range entry.Data {
		record[k] = v
	}
	b, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func renderFields(data logrus.Fields) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(" %s=%v", k, data[k]))
	}
	return sb.String()
}

type fileWriterHook struct {
	writer    *os.File
	formatter logrus.Formatter
	mu        sync.Mutex
}

func (h *fileWriterHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileWriterHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(b)
	return err
}

func openLogFile(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
