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
	"os/signal"
	"syscall"

	"membership-ledger-go/internal/api"
	"membership-ledger-go/internal/billing"
	"membership-ledger-go/internal/common"
	"membership-ledger-go/internal/provider"

	"go.uber.org/zap"
)

func main() {
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

	paymentProvider := provider.NewStaticProvider(os.Getenv("PROVIDER_QR_BASE_URL"))
	billingService := billing.NewService(db, plans, paymentProvider)

	worker := billing.NewEffectWorker(billingService, cfg.Worker)
	worker.Start(ctx)

	apiService := api.NewService(cfg.Server, cfg.Auth, billingService)

	errChan := make(chan error, 1)
	go func() {
		errChan <- apiService.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zap.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			zap.L().Error("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := apiService.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("failed to shut down server", zap.Error(err))
	}
	worker.Stop()

	zap.L().Info("server stopped")
}
