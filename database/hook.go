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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/uptrace/bun"
)

var (
	sqlSelectColor = color.New(color.FgGreen)
	sqlInsertColor = color.New(color.FgBlue)
	sqlUpdateColor = color.New(color.FgYellow)
	sqlDeleteColor = color.New(color.FgMagenta)
	sqlOtherColor  = color.New(color.FgRed)

	sqlSelectBgColor = color.New(color.BgGreen, color.FgHiWhite)
	sqlInsertBgColor = color.New(color.BgBlue, color.FgHiWhite)
	sqlUpdateBgColor = color.New(color.BgYellow, color.FgHiWhite)
	sqlDeleteBgColor = color.New(color.BgMagenta, color.FgHiWhite)
	sqlOtherBgColor  = color.New(color.BgRed, color.FgHiWhite)

	sqlTagColor      = color.New(color.FgCyan)
	slowSqlTagColor  = color.New(color.FgYellow)
	sqlErrBadgeColor = color.New(color.BgRed)
)

var bunSqlSilentMode bool

// EnableBunSqlSilent suppresses all SQL hook output, for example while
// migrations run.
func EnableBunSqlSilent(b bool) {
	bunSqlSilentMode = b
}

// QueryHook prints executed queries colored by operation. The environment
// variable named by envName re-evaluates the hook on every query: unset
// keeps the construction-time settings, "0" disables, "2" turns on verbose
// output, any other non-empty value enables error-only output.
type QueryHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a query hook writing to w, or os.Stdout when w is nil.
func NewQueryHook(envName string, verbose bool, w io.Writer) *QueryHook {
	if w == nil {
		w = os.Stdout
	}
	return &QueryHook{envName: envName, enabled: verbose, verbose: verbose, writer: w}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode {
		return
	}
	enabled := h.enabled
	verbose := h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}

	if !enabled {
		return
	}

	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	dur := now.Sub(event.StartTime)

	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		sqlTagColor.Sprintf("%15s", "[BUN] ✅"),
		fmt.Sprintf("%17s", dur.Round(time.Microsecond)),
		"  ", formatOperationColor(event),
	}

	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args,
			"\t",
			sqlErrBadgeColor.Sprintf(" %s ", typ+": "+event.Err.Error()),
		)
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

func formatOperationColor(event *bun.QueryEvent) string {
	switch event.Operation() {
	case "SELECT":
		return sqlSelectColor.Sprint(event.Query)
	case "INSERT":
		return sqlInsertColor.Sprint(event.Query)
	case "UPDATE":
		return sqlUpdateColor.Sprint(event.Query)
	case "DELETE":
		return sqlDeleteColor.Sprint(event.Query)
	default:
		return sqlOtherColor.Sprint(event.Query)
	}
}

func formatOperationBackgroundColor(event *bun.QueryEvent) string {
	switch event.Operation() {
	case "SELECT":
		return sqlSelectBgColor.Sprint(event.Query)
	case "INSERT":
		return sqlInsertBgColor.Sprint(event.Query)
	case "UPDATE":
		return sqlUpdateBgColor.Sprint(event.Query)
	case "DELETE":
		return sqlDeleteBgColor.Sprint(event.Query)
	default:
		return sqlOtherBgColor.Sprint(event.Query)
	}
}

// SlowQueryHook warns through the package logger when a successful query
// exceeds slowTime. The BUN_SLOW_SQL environment variable overrides the
// enabled flag: "1" enables, anything else disables.
type SlowQueryHook struct {
	fromEnv  string
	enabled  bool
	slowTime time.Duration
	logger   Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

// NewSlowQueryHook returns an enabled slow query hook with the given threshold.
func NewSlowQueryHook(slowTime time.Duration, logger Logger) *SlowQueryHook {
	return &SlowQueryHook{
		fromEnv:  "BUN_SLOW_SQL",
		enabled:  true,
		slowTime: slowTime,
		logger:   logger,
	}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode {
		return
	}
	if event.Err != nil {
		return
	}
	enabled := h.enabled

	if env, ok := os.LookupEnv(h.fromEnv); ok {
		enabled = strings.TrimSpace(env) == "1"
	}

	if !enabled || h.logger == nil {
		return
	}

	duration := time.Since(event.StartTime)
	if duration > h.slowTime {
		h.logger.Warn(slowSqlTagColor.Sprint("Database slow query detected 🔴"),
			"duration", duration.Round(time.Microsecond),
			"slow_threshold", h.slowTime,
			"query", formatOperationBackgroundColor(event),
		)
	}
}
