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
	"flag"
	"fmt"
	"os"

	"membership-ledger-go/internal/common"
	"membership-ledger-go/internal/config"
	"membership-ledger-go/internal/database"

	"go.uber.org/zap"
)

// Prints every user's reward balance and recent ledger entries. With
// -reconcile each balance is also checked against the entry log.
func main() {
	reconcile := flag.Bool("reconcile", false, "verify balances against the entry log")
	entryLimit := flag.Int("entries", 5, "ledger entries to show per user")
	flag.Parse()

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

	users, err := db.GetUsers(ctx)
	if err != nil {
		zap.L().Fatal("failed to list users", zap.Error(err))
	}

	common.PrintHeader("Reward Balances")

	mismatches := 0
	for _, user := range users {
		balance, err := db.GetRewardBalance(ctx, user.Id)
		if err != nil {
			zap.L().Error("failed to read balance",
				zap.String("user_id", user.Id), zap.Error(err))
			continue
		}

		common.PrintField(user.Username, balance.String())

		if *reconcile {
			if err := db.ReconcileRewardBalance(ctx, user.Id); err != nil {
				mismatches++
				common.PrintField("  MISMATCH", err.Error())
			}
		}

		entries, err := db.GetRewardEntries(ctx, user.Id, *entryLimit, 0)
		if err != nil {
			zap.L().Error("failed to read entries",
				zap.String("user_id", user.Id), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			common.PrintField("  "+entry.EntryType,
				fmt.Sprintf("%s (%s -> %s)", entry.Amount.String(),
					entry.BalanceBefore.String(), entry.BalanceAfter.String()))
		}
		common.PrintSeparator()
	}

	if *reconcile && mismatches > 0 {
		zap.L().Error("balance mismatches found", zap.Int("mismatches", mismatches))
		os.Exit(1)
	}
}
