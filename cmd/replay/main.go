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
	"os"
	"os/signal"
	"syscall"

	"membership-ledger-go/internal/billing"
	"membership-ledger-go/internal/common"
	"membership-ledger-go/internal/provider"

	"go.uber.org/zap"
)

// Replays pending settlement effects. By default it drains the outbox once and
// exits; with -follow it keeps polling like the in-server worker. With
// -reverse it instead credits back a single failed withdrawal.
func main() {
	follow := flag.Bool("follow", false, "keep polling instead of exiting after one drain")
	reverse := flag.String("reverse", "", "withdrawal id to reverse instead of replaying effects")
	flag.Parse()

	syncLogger, err := common.InitializeLogger()
	if err != nil {
		os.Exit(1)
	}
	defer syncLogger()

	ctx := context.Background()

	cfg, plans, db, err := common.InitializeServices(ctx)
	if err != nil {
		zap.L().Fatal("failed to initialize services", zap.Error(err))
	}
	defer db.Close()

	if *reverse != "" {
		if err := db.ReverseWithdrawal(ctx, *reverse); err != nil {
			zap.L().Fatal("failed to reverse withdrawal",
				zap.String("withdrawal_id", *reverse), zap.Error(err))
		}
		zap.L().Info("withdrawal reversed", zap.String("withdrawal_id", *reverse))
		return
	}

	billingService := billing.NewService(db, plans, provider.NewStaticProvider(os.Getenv("PROVIDER_QR_BASE_URL")))
	worker := billing.NewEffectWorker(billingService, cfg.Worker)

	if !*follow {
		for {
			processed, failed := worker.ProcessBatch(ctx)
			if processed == 0 {
				if failed > 0 {
					zap.L().Warn("some effects could not be replayed", zap.Int("failed", failed))
				}
				return
			}
		}
	}

	worker.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	zap.L().Info("shutdown signal received", zap.String("signal", sig.String()))

	worker.Stop()
}
