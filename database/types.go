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
	"fmt"
	"os"
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

// AbstractDatabaseManager defines the operations for managing a database
// connection, running migrations, and reporting health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	RunMigrations(ctx context.Context) error
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// AbstractDatabaseConfigProvider exposes configuration loading.
type AbstractDatabaseConfigProvider interface {
	ConfigLoader() *Config
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database and tune its pool.
type ConnectionConfig struct {
	Type                string        `json:"type"` // postgres, mysql, sqlite
	Host                string        `json:"host"`
	Port                int           `json:"port"`
	Username            string        `json:"username"`
	Password            string        `json:"password"`
	DBName              string        `json:"dbname"`
	SSLMode             string        `json:"sslmode"`
	MaxIdleConns        int           `json:"max_idle_conns"`
	MaxOpenConns        int           `json:"max_open_conns"`
	ConnMaxLifetime     time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime     time.Duration `json:"conn_max_idle_time"`
	ConnectTimeout      time.Duration `json:"connect_timeout"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	EnableReconnect     bool          `json:"enable_reconnect"`
	ReconnectInterval   time.Duration `json:"reconnect_interval"`
	MaxReconnectTries   int           `json:"max_reconnect_tries"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	EnableQueryLog      bool          `json:"enable_query_log"`
	SlowQueryTime       time.Duration `json:"slow_query_time"`
}

// DataMigrateConfig controls schema migration behavior on startup.
type DataMigrateConfig struct {
	EnableMigrateOnStartup bool `json:"enable_migrate_on_startup"`
}

// Config aggregates connection and migration settings.
type Config struct {
	ConnectionConfig  ConnectionConfig  `json:"connection_config"`
	DataMigrateConfig DataMigrateConfig `json:"data_migrate_config"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
		EnableQueryLog:      false,
		SlowQueryTime:       time.Second * 2,
	}
}

// fileConfig is the YAML shape of a configuration file. Durations are plain
// numbers with an explicit unit in the key, so files stay hand-editable.
type fileConfig struct {
	Database struct {
		Type                   string `yaml:"type"`
		Host                   string `yaml:"host"`
		Port                   int    `yaml:"port"`
		Username               string `yaml:"username"`
		Password               string `yaml:"password"`
		DBName                 string `yaml:"dbname"`
		SSLMode                string `yaml:"sslmode"`
		MaxIdleConns           int    `yaml:"max_idle_conns"`
		MaxOpenConns           int    `yaml:"max_open_conns"`
		ConnMaxLifetimeSeconds int    `yaml:"conn_max_lifetime_seconds"`
		ConnectTimeoutSeconds  int    `yaml:"connect_timeout_seconds"`
		HealthCheckSeconds     int    `yaml:"health_check_seconds"`
		SlowQueryMillis        int    `yaml:"slow_query_millis"`
		EnableQueryLog         bool   `yaml:"enable_query_log"`
		EnableReconnect        *bool  `yaml:"enable_reconnect"`
	} `yaml:"database"`
	Migrate struct {
		Enable bool `yaml:"enable"`
	} `yaml:"migrate"`
}

// LoadConfig reads a YAML configuration file and merges it over the default
// connection settings. Unset file values keep their defaults; environment
// overrides still apply later, at factory time.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{ConnectionConfig: *DefaultConnectionConfig()}
	conn := &cfg.ConnectionConfig
	conn.Type = fc.Database.Type
	conn.Host = fc.Database.Host
	conn.Port = fc.Database.Port
	conn.Username = fc.Database.Username
	conn.Password = fc.Database.Password
	conn.DBName = fc.Database.DBName
	conn.SSLMode = fc.Database.SSLMode
	conn.EnableQueryLog = fc.Database.EnableQueryLog
	if fc.Database.MaxIdleConns > 0 {
		conn.MaxIdleConns = fc.Database.MaxIdleConns
	}
	if fc.Database.MaxOpenConns > 0 {
		conn.MaxOpenConns = fc.Database.MaxOpenConns
	}
	if fc.Database.ConnMaxLifetimeSeconds > 0 {
		conn.ConnMaxLifetime = time.Duration(fc.Database.ConnMaxLifetimeSeconds) * time.Second
	}
	if fc.Database.ConnectTimeoutSeconds > 0 {
		conn.ConnectTimeout = time.Duration(fc.Database.ConnectTimeoutSeconds) * time.Second
	}
	if fc.Database.HealthCheckSeconds > 0 {
		conn.HealthCheckInterval = time.Duration(fc.Database.HealthCheckSeconds) * time.Second
	}
	if fc.Database.SlowQueryMillis > 0 {
		conn.SlowQueryTime = time.Duration(fc.Database.SlowQueryMillis) * time.Millisecond
	}
	if fc.Database.EnableReconnect != nil {
		conn.EnableReconnect = *fc.Database.EnableReconnect
	}
	cfg.DataMigrateConfig.EnableMigrateOnStartup = fc.Migrate.Enable
	return cfg, nil
}
