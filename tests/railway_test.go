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

package tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/railway"
	"github.com/tomoncle/railway/database"
	"github.com/tomoncle/railway/repository"
	"github.com/tomoncle/railway/result"
	"github.com/tomoncle/railway/types"
)

const configYAML = `
database:
  type: sqlite
  dbname: "file:railway_e2e?mode=memory&cache=shared"
  max_idle_conns: 4
  max_open_conns: 8
  connect_timeout_seconds: 5
migrate:
  enable: true
`

type SystemConfig struct {
	bun.BaseModel `bun:"table:system_config,alias:sc"`

	ID          int64            `bun:"id,type:bigint,pk,autoincrement" json:"id"`
	ConfigKey   string           `bun:"config_key,notnull,unique" json:"config_key"`
	ConfigValue string           `bun:"config_value" json:"config_value"`
	Metadata    types.JsonObject `bun:"metadata" json:"metadata"`
	ConfigType  string           `bun:"config_type,notnull,default:'string'" json:"config_type"`
	CreatedAt   time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time        `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

func TestRailwayEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "railway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o644))

	cfg, err := database.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.ConnectionConfig.Type)
	require.True(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)

	_, err = database.InitDatabaseWithOptions(cfg, true, (*SystemConfig)(nil))
	require.NoError(t, err)
	defer func() { _ = database.CloseDB() }()

	ctx := context.Background()
	svc := railway.NewService[SystemConfig]()

	var staged int
	svc.OnChange(func(event types.ChangeEvent) {
		staged++
		assert.Equal(t, "system_config", event.Source)
	})

	t.Run("stage and commit", func(t *testing.T) {
		res := svc.AddAll(
			&SystemConfig{ConfigKey: "cache.enabled", ConfigValue: "true", ConfigType: "bool"},
			&SystemConfig{ConfigKey: "cache.ttl", ConfigValue: "30", ConfigType: "int",
				Metadata: types.JsonObject{"unit": "seconds", "max": float64(3600)}},
		)
		require.True(t, res.IsSuccess(), res.ErrorMessage())
		assert.Equal(t, 2, svc.Pending())
		assert.Equal(t, 2, staged)

		committed := svc.Commit(ctx)
		require.True(t, committed.IsSuccess(), committed.ErrorMessage())
		assert.Equal(t, 2, committed.MustValue())
		assert.Equal(t, 0, svc.Pending())
	})

	t.Run("query back", func(t *testing.T) {
		all := svc.All(ctx)
		require.True(t, all.IsSuccess(), all.ErrorMessage())
		require.Len(t, all.MustValue(), 2)

		first := svc.First(ctx, types.NewQueryFilter("config_key = ?", "cache.ttl"))
		require.True(t, first.IsSuccess(), first.ErrorMessage())
		loaded := first.MustValue()
		assert.Equal(t, "30", loaded.ConfigValue)
		assert.Equal(t, "seconds", loaded.Metadata["unit"])
		assert.Equal(t, float64(3600), loaded.Metadata["max"])
		assert.False(t, loaded.CreatedAt.IsZero())

		count := svc.Count(ctx, types.NewQueryFilter("config_type = ?", "bool"))
		require.True(t, count.IsSuccess())
		assert.Equal(t, 1, count.MustValue())

		exists := svc.Exists(ctx, types.NewQueryFilter("config_key = ?", "cache.enabled"))
		require.True(t, exists.IsSuccess())
		assert.True(t, exists.MustValue())
	})

	t.Run("duplicate key surfaces classified failure", func(t *testing.T) {
		require.True(t, svc.Add(&SystemConfig{ConfigKey: "cache.ttl", ConfigValue: "60"}).IsSuccess())
		committed := svc.Commit(ctx)
		require.True(t, committed.IsFailure())
		assert.Contains(t, committed.ErrorMessage(), "duplicate key")

		// The failed change stays staged until explicitly discarded
		assert.Equal(t, 1, svc.Pending())
		require.True(t, svc.Discard().IsSuccess())
		assert.Equal(t, 0, svc.Pending())
	})

	t.Run("pagination", func(t *testing.T) {
		page := svc.Page(ctx, types.NewPageRequestWithOrders(1, 1, []string{"config_key ASC"}))
		require.True(t, page.IsSuccess(), page.ErrorMessage())
		assert.Equal(t, 2, page.TotalItems())
		assert.Equal(t, 2, page.TotalPages())
		require.Len(t, page.Items(), 1)
		assert.Equal(t, "cache.enabled", page.Items()[0].ConfigKey)
	})

	t.Run("transaction", func(t *testing.T) {
		outcome := svc.Transaction(ctx, func(ctx context.Context, repo repository.Repository[SystemConfig]) result.Result[result.Unit] {
			return result.Bind(
				repo.Add(&SystemConfig{ConfigKey: "log.level", ConfigValue: "info"}),
				func(result.Unit) result.Result[result.Unit] { return repo.Add(&SystemConfig{ConfigKey: "log.format", ConfigValue: "json"}) },
			)
		})
		require.True(t, outcome.IsSuccess(), outcome.ErrorMessage())
		assert.Equal(t, 4, svc.Count(ctx, nil).MustValue())

		rolledBack := svc.Transaction(ctx, func(ctx context.Context, repo repository.Repository[SystemConfig]) result.Result[result.Unit] {
			if res := repo.Add(&SystemConfig{ConfigKey: "doomed", ConfigValue: "x"}); res.IsFailure() {
				return result.Fail(res.ErrorMessage())
			}
			if res := repo.Save(ctx); res.IsFailure() {
				return result.Fail(res.ErrorMessage())
			}
			return result.Fail("abort")
		})
		require.True(t, rolledBack.IsFailure())
		assert.Equal(t, "abort", rolledBack.ErrorMessage())
		assert.Equal(t, 4, svc.Count(ctx, nil).MustValue())
	})

	t.Run("stream", func(t *testing.T) {
		seen := 0
		for item := range svc.Stream(ctx, 2) {
			require.True(t, item.IsSuccess(), item.ErrorMessage())
			seen++
		}
		assert.Equal(t, 4, seen)
	})

	t.Run("bulk update and projection", func(t *testing.T) {
		updated := svc.BulkUpdate(ctx, types.NewQueryFilter("config_key LIKE ?", "log.%"), map[string]interface{}{"config_type": "logging"})
		require.True(t, updated.IsSuccess(), updated.ErrorMessage())
		assert.Equal(t, 2, updated.MustValue())

		keys := repository.Projection(ctx, svc.Repo(), types.NewQueryFilter("config_type = ?", "logging"),
			func(c *SystemConfig) string { return c.ConfigKey })
		require.True(t, keys.IsSuccess())
		assert.ElementsMatch(t, []string{"log.level", "log.format"}, keys.MustValue())
	})

	t.Run("health and stats", func(t *testing.T) {
		health := database.GetHealthStatus(ctx)
		require.NotNil(t, health)
		assert.True(t, health.Healthy)
		assert.True(t, health.Connected)

		stats := database.GetDatabaseStats()
		require.NotNil(t, stats)
		assert.GreaterOrEqual(t, stats.OpenConns, 1)
	})

	t.Run("applied migrations recorded", func(t *testing.T) {
		manager := database.NewMigrationManager(database.MustDB(), nil)
		applied, err := manager.GetAppliedMigrations(ctx)
		require.NoError(t, err)
		require.Len(t, applied, 1)
		assert.Equal(t, "001", applied[0].Version)
		assert.Equal(t, "create_base_tables", applied[0].Name)
	})
}
