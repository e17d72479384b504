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
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported connection types.
const (
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Save strategies understood by RepositoryConfig.SaveStrategy.
const (
	SavePerOperation  = "per_operation"
	SavePerUnitOfWork = "per_unit_of_work"
)

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
	Type            string        `yaml:"type" json:"type"` // postgres, mysql, sqlite
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"-"`
	DBName          string        `yaml:"dbname" json:"dbname"`
	SSLMode         string        `yaml:"sslmode" json:"sslmode"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	EnableQueryLog  bool          `yaml:"enable_query_log" json:"enable_query_log"`
	SlowQueryTime   time.Duration `yaml:"slow_query_time" json:"slow_query_time"`
}

// RepositoryConfig tunes the repositories created on top of the connection.
type RepositoryConfig struct {
	RelatedPathsMaxDepth int    `yaml:"related_paths_max_depth" json:"related_paths_max_depth"`
	SaveStrategy         string `yaml:"save_strategy" json:"save_strategy"`
	DefaultPageSize      int    `yaml:"default_page_size" json:"default_page_size"`
	AutoCreateTables     bool   `yaml:"auto_create_tables" json:"auto_create_tables"`
}

// Config aggregates connection and repository settings.
type Config struct {
	Connection ConnectionConfig `yaml:"connection" json:"connection"`
	Repository RepositoryConfig `yaml:"repository" json:"repository"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		ConnectTimeout:  time.Second * 10,
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		SlowQueryTime:   time.Second * 2,
	}
}

// DefaultRepositoryConfig returns the repository defaults.
func DefaultRepositoryConfig() RepositoryConfig {
	return RepositoryConfig{
		RelatedPathsMaxDepth: 3,
		SaveStrategy:         SavePerOperation,
		DefaultPageSize:      20,
	}
}

// DefaultConfig returns a configuration populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Connection: DefaultConnectionConfig(),
		Repository: DefaultRepositoryConfig(),
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig and
// applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfig decodes YAML on top of DefaultConfig. It does not validate.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Connection.Type {
	case TypeMySQL, TypePostgres, "postgresql", TypeSQLite, "sqlite3":
	default:
		return fmt.Errorf("unsupported database type: %q, supported types: %v",
			c.Connection.Type, []string{TypeMySQL, TypePostgres, TypeSQLite})
	}
	switch c.Repository.SaveStrategy {
	case "", SavePerOperation, SavePerUnitOfWork:
	default:
		return fmt.Errorf("unsupported save strategy: %q", c.Repository.SaveStrategy)
	}
	if c.Repository.RelatedPathsMaxDepth < 0 {
		return fmt.Errorf("related_paths_max_depth must not be negative")
	}
	return nil
}

// ApplyEnv overrides configuration values from DB_* environment variables.
func (c *Config) ApplyEnv() {
	cc := &c.Connection
	if v := os.Getenv("DB_TYPE"); v != "" {
		cc.Type = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cc.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cc.Port = p
		}
	}
	if v := os.Getenv("DB_USERNAME"); v != "" {
		cc.Username = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cc.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cc.DBName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cc.SSLMode = v
	}
	if v := os.Getenv("DB_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cc.MaxIdleConns = n
		}
	}
	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cc.MaxOpenConns = n
		}
	}
	if v := os.Getenv("DB_CONN_MAX_LIFETIME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cc.ConnMaxLifetime = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("DB_ENABLE_QUERY_LOG"); v != "" {
		cc.EnableQueryLog = v == "true"
	}
	if v := os.Getenv("DB_RELATED_PATHS_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Repository.RelatedPathsMaxDepth = n
		}
	}
	if v := os.Getenv("DB_SAVE_STRATEGY"); v != "" {
		c.Repository.SaveStrategy = v
	}
}
