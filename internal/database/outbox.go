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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"membership-ledger-go/internal/models"
)

// completeEffectTx marks an outbox effect as completed inside the caller's
// transaction. It returns false when the effect was already completed, which
// tells the caller to skip the mutation the effect drives.
func completeEffectTx(ctx context.Context, tx *sql.Tx, effectId string) (bool, error) {
	result, err := tx.ExecContext(ctx, queryCompleteEffect, effectId)
	if err != nil {
		return false, fmt.Errorf("failed to complete effect %s: %w", effectId, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// PendingEffects returns up to limit pending effects that have not exhausted
// their attempts, oldest first.
func (s *Service) PendingEffects(ctx context.Context, maxAttempts, limit int) ([]models.SettlementEffect, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, queryGetPendingEffects, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending effects: %w", err)
	}
	defer rows.Close()

	var effects []models.SettlementEffect
	for rows.Next() {
		var effect models.SettlementEffect
		err := rows.Scan(&effect.Id, &effect.PaymentId, &effect.UserId,
			&effect.EffectType, &effect.Status, &effect.Attempts,
			&effect.LastError, &effect.CreatedAt, &effect.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan effect: %w", err)
		}
		effects = append(effects, effect)
	}

	return effects, rows.Err()
}

// MarkEffectFailed records a failed execution attempt.
func (s *Service) MarkEffectFailed(ctx context.Context, effectId, message string) error {
	_, err := s.db.ExecContext(ctx, queryMarkEffectFailed, message, effectId)
	if err != nil {
		return fmt.Errorf("failed to mark effect %s failed: %w", effectId, err)
	}
	return nil
}

// PurgeCompletedEffects deletes completed effects older than the cutoff and
// returns how many were removed.
func (s *Service) PurgeCompletedEffects(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryPurgeCompletedEffects, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge completed effects: %w", err)
	}
	return result.RowsAffected()
}
