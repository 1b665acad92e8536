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

package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/railway/database"
)

func TestSQLiteManagerLifecycle(t *testing.T) {
	cfg := database.DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DBName = ":memory:"
	cfg.EnableReconnect = false

	manager := database.NewDatabaseManager(cfg)
	ctx := context.Background()
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })

	require.NoError(t, manager.Ping(ctx))

	health := manager.HealthCheck(ctx)
	require.NotNil(t, health)
	assert.True(t, health.Healthy)
	assert.True(t, health.Connected)
	assert.Empty(t, health.LastError)

	stats := manager.GetStats()
	require.NotNil(t, stats)
	assert.Equal(t, cfg.MaxOpenConns, stats.MaxOpenConns)

	db := manager.GetDB()
	require.NotNil(t, db)
	var one int
	require.NoError(t, db.NewSelect().ColumnExpr("1").Scan(ctx, &one))
	assert.Equal(t, 1, one)

	require.NoError(t, manager.Disconnect())
	assert.Nil(t, manager.GetDB())
	require.Error(t, manager.Ping(ctx))
}

func TestManagerPingWithoutConnect(t *testing.T) {
	t.Parallel()

	cfg := database.DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DBName = ":memory:"

	manager := database.NewDatabaseManager(cfg)
	err := manager.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}
