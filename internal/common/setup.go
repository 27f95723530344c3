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

package common

import (
	"context"
	"fmt"
	"strings"

	"membership-ledger-go/internal/config"
	"membership-ledger-go/internal/database"
	"membership-ledger-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() {
	// Missing .env is fine; the environment may be set another way.
	_ = godotenv.Load()
}

// InitializeLogger sets up the global zap logger. Callers should defer the
// returned sync function.
func InitializeLogger() (func(), error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	zap.ReplaceGlobals(logger)

	return func() {
		if err := logger.Sync(); err != nil && !isIgnorableSyncError(err) {
			fmt.Printf("failed to sync logger: %v\n", err)
		}
	}, nil
}

// isIgnorableSyncError reports whether a logger sync error can be ignored.
// Syncing stderr is not supported on some platforms.
func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "inappropriate ioctl for device") ||
		strings.Contains(msg, "bad file descriptor")
}

// InitializeServices loads configuration, the plan catalog and the database
// service. The caller owns the returned store and must Close it.
func InitializeServices(ctx context.Context) (*models.Config, *config.Plans, *database.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	plans, err := config.LoadPlans(cfg.Billing.PlansFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load plans: %w", err)
	}

	db, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return cfg, plans, db, nil
}
