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

	"membership-ledger-go/internal/models"
	"membership-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OpenPendingReward records that a referral happened: a zero-amount pending
// reward for the referrer, tied to the referred user. The amount is fixed only
// when the referred user's first payment settles.
func (s *Service) OpenPendingReward(ctx context.Context, referrerId, referredUserId string) (*models.Reward, error) {
	if referrerId == "" || referredUserId == "" {
		return nil, fmt.Errorf("referrer and referred user ids are required: %w", store.ErrInvalidArgument)
	}

	reward := &models.Reward{
		Id:            uuid.New().String(),
		UserId:        referrerId,
		Amount:        decimal.Zero,
		Source:        models.RewardSourceReferral,
		RelatedUserId: referredUserId,
		Status:        models.RewardStatusPending,
	}

	_, err := s.db.ExecContext(ctx, queryInsertReward,
		reward.Id, reward.UserId, reward.Amount.String(), reward.Source,
		reward.RelatedUserId, reward.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pending reward: %w", err)
	}

	return reward, nil
}

// FinalizeReward flips the pending reward for the referrer/referred pair to
// available with its final amount and credits the referrer's ledger, all in one
// transaction. When no pending reward exists the call is a no-op returning
// (nil, nil): the pair either was never referred or the reward was already
// finalized by an earlier settlement.
func (s *Service) FinalizeReward(ctx context.Context, params store.FinalizeRewardParams) (*models.Reward, error) {
	if params.ReferrerId == "" || params.ReferredUserId == "" {
		return nil, fmt.Errorf("referrer and referred user ids are required: %w", store.ErrInvalidArgument)
	}
	if params.Amount.IsNegative() {
		return nil, fmt.Errorf("reward amount cannot be negative, got %s: %w",
			params.Amount.String(), store.ErrInvalidArgument)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if params.EffectId != "" {
		applied, err := completeEffectTx(ctx, tx, params.EffectId)
		if err != nil {
			return nil, err
		}
		if !applied {
			return nil, nil
		}
	}

	var rewardId string
	err = tx.QueryRowContext(ctx, queryGetPendingRewardForPair,
		params.ReferrerId, params.ReferredUserId).Scan(&rewardId)
	if err == sql.ErrNoRows {
		// Nothing to finalize; the effect (if any) is still marked done so the
		// outbox does not spin on it.
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit no-op finalize: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending reward: %w", err)
	}

	result, err := tx.ExecContext(ctx, queryFinalizeReward,
		params.Amount.String(), params.PaymentId, rewardId)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize reward: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("reward %s is no longer pending: %w", rewardId, store.ErrConflict)
	}

	_, err = s.ledger.processEntryTx(ctx, tx, entryParams{
		UserId:    params.ReferrerId,
		EntryType: models.EntryTypeCredit,
		Amount:    params.Amount,
		Reference: rewardId,
		Note:      fmt.Sprintf("referral reward for payment %s", params.PaymentId),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reward finalization: %w", err)
	}

	zap.L().Info("referral reward finalized",
		zap.String("reward_id", rewardId),
		zap.String("referrer_id", params.ReferrerId),
		zap.String("amount", params.Amount.String()))

	return s.getRewardById(ctx, rewardId)
}

func (s *Service) getRewardById(ctx context.Context, rewardId string) (*models.Reward, error) {
	return scanReward(s.db.QueryRowContext(ctx, queryGetRewardById, rewardId))
}

func (s *Service) GetRewardsByUser(ctx context.Context, userId string) ([]models.Reward, error) {
	rows, err := s.db.QueryContext(ctx, queryGetRewardsByUser, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to query rewards: %w", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var reward models.Reward
		var amountStr string

		err := rows.Scan(&reward.Id, &reward.UserId, &amountStr, &reward.Source,
			&reward.RelatedUserId, &reward.RelatedPaymentId, &reward.Status,
			&reward.CreatedAt, &reward.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}

		if reward.Amount, err = scanDecimal(amountStr); err != nil {
			return nil, err
		}

		rewards = append(rewards, reward)
	}

	return rewards, rows.Err()
}

func scanReward(row *sql.Row) (*models.Reward, error) {
	var reward models.Reward
	var amountStr string

	err := row.Scan(&reward.Id, &reward.UserId, &amountStr, &reward.Source,
		&reward.RelatedUserId, &reward.RelatedPaymentId, &reward.Status,
		&reward.CreatedAt, &reward.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan reward: %w", err)
	}

	if reward.Amount, err = scanDecimal(amountStr); err != nil {
		return nil, err
	}

	return &reward, nil
}
