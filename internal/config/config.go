/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"membership-ledger-go/internal/models"
)

// Load reads the application configuration from the environment. Values are
// expected to arrive via a .env file loaded at process start.
func Load() (*models.Config, error) {
	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "membership.db"),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
			PingTimeout:     getEnvDuration("DATABASE_PING_TIMEOUT", 5*time.Second),
			CreateDemoUsers: getEnvBool("DATABASE_CREATE_DEMO_USERS", false),
		},
		Server: models.ServerConfig{
			Addr:            getEnvString("SERVER_ADDR", ":8080"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Auth: models.AuthConfig{
			SigningKey:  os.Getenv("AUTH_SIGNING_KEY"),
			TokenExpiry: getEnvDuration("AUTH_TOKEN_EXPIRY", 24*time.Hour),
		},
		Worker: models.WorkerConfig{
			PollingInterval: getEnvDuration("WORKER_POLLING_INTERVAL", 5*time.Second),
			CleanupInterval: getEnvDuration("WORKER_CLEANUP_INTERVAL", time.Hour),
			RetentionWindow: getEnvDuration("WORKER_RETENTION_WINDOW", 7*24*time.Hour),
			MaxAttempts:     getEnvInt("WORKER_MAX_ATTEMPTS", 5),
			BatchSize:       getEnvInt("WORKER_BATCH_SIZE", 100),
		},
		Billing: models.BillingConfig{
			PlansFile: getEnvString("BILLING_PLANS_FILE", "plans.yaml"),
		},
	}

	if cfg.Auth.SigningKey == "" {
		return nil, fmt.Errorf("AUTH_SIGNING_KEY environment variable is required")
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
