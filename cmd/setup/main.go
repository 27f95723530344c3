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

package main

import (
	"context"
	"os"

	"membership-ledger-go/internal/common"
	"membership-ledger-go/internal/config"
	"membership-ledger-go/internal/database"

	"go.uber.org/zap"
)

// Initializes the database schema and, with demo users enabled, seeds a
// referrer/referred pair for local development.
func main() {
	syncLogger, err := common.InitializeLogger()
	if err != nil {
		os.Exit(1)
	}
	defer syncLogger()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("failed to load config", zap.Error(err))
	}

	db, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	common.PrintHeader("Database Setup")
	common.PrintField("Path", cfg.Database.Path)
	common.PrintField("Demo users", map[bool]string{true: "enabled", false: "disabled"}[cfg.Database.CreateDemoUsers])
	common.PrintSeparator()

	users, err := db.GetUsers(ctx)
	if err != nil {
		zap.L().Fatal("failed to list users", zap.Error(err))
	}

	for _, user := range users {
		common.PrintField(user.Username, user.ReferralCode)
	}
	common.PrintSeparator()
}
