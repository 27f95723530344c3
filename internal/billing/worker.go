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

package billing

import (
	"context"
	"sync"
	"time"

	"membership-ledger-go/internal/models"

	"go.uber.org/zap"
)

// EffectWorker replays settlement effects that the inline execution path left
// behind (process crash, downstream failure). Running effects is idempotent,
// so the worker and the inline path can safely race.
type EffectWorker struct {
	billing  *Service
	cfg      models.WorkerConfig
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func NewEffectWorker(billing *Service, cfg models.WorkerConfig) *EffectWorker {
	return &EffectWorker{
		billing:  billing,
		cfg:      cfg,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the poll and cleanup loops.
func (w *EffectWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *EffectWorker) run(ctx context.Context) {
	defer close(w.doneChan)

	zap.L().Info("effect worker started",
		zap.Duration("polling_interval", w.cfg.PollingInterval),
		zap.Int("max_attempts", w.cfg.MaxAttempts))

	pollTicker := time.NewTicker(w.cfg.PollingInterval)
	defer pollTicker.Stop()
	cleanupTicker := time.NewTicker(w.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-w.stopChan:
			zap.L().Info("effect worker stopping")
			return
		case <-ctx.Done():
			zap.L().Info("effect worker context cancelled")
			return
		case <-pollTicker.C:
			w.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// Stop signals the worker to stop and waits for the loops to exit.
func (w *EffectWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	<-w.doneChan
}

// ProcessBatch replays one batch of pending effects. Exposed for the one-shot
// replay command.
func (w *EffectWorker) ProcessBatch(ctx context.Context) (processed, failed int) {
	effects, err := w.billing.store.PendingEffects(ctx, w.cfg.MaxAttempts, w.cfg.BatchSize)
	if err != nil {
		zap.L().Error("failed to list pending effects", zap.Error(err))
		return 0, 0
	}

	for _, effect := range effects {
		if err := w.billing.ExecuteEffect(ctx, effect); err != nil {
			failed++
			zap.L().Error("effect replay failed",
				zap.String("effect_id", effect.Id),
				zap.String("effect_type", effect.EffectType),
				zap.Int("attempts", effect.Attempts+1),
				zap.Error(err))
			if markErr := w.billing.store.MarkEffectFailed(ctx, effect.Id, err.Error()); markErr != nil {
				zap.L().Error("failed to record effect failure", zap.Error(markErr))
			}
			continue
		}
		processed++
	}

	if processed > 0 || failed > 0 {
		zap.L().Info("effect batch processed",
			zap.Int("processed", processed),
			zap.Int("failed", failed))
	}
	return processed, failed
}

func (w *EffectWorker) cleanup(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.cfg.RetentionWindow)
	purged, err := w.billing.store.PurgeCompletedEffects(ctx, cutoff)
	if err != nil {
		zap.L().Error("failed to purge completed effects", zap.Error(err))
		return
	}
	if purged > 0 {
		zap.L().Info("purged completed effects", zap.Int64("purged", purged))
	}
}
