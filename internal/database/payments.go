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
	"membership-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) CreatePayment(ctx context.Context, params store.CreatePaymentParams) (*models.Payment, error) {
	if params.UserId == "" {
		return nil, fmt.Errorf("user id cannot be empty: %w", store.ErrInvalidArgument)
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s: %w", params.Amount.String(), store.ErrInvalidArgument)
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		Id:          uuid.New().String(),
		UserId:      params.UserId,
		Amount:      params.Amount,
		PaymentType: params.PaymentType,
		Status:      models.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, queryInsertPayment,
		payment.Id, payment.UserId, payment.Amount.String(), payment.PaymentType,
		payment.Status, payment.CreatedAt, payment.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	return payment, nil
}

func (s *Service) GetPaymentById(ctx context.Context, paymentId string) (*models.Payment, error) {
	return scanPayment(s.db.QueryRowContext(ctx, queryGetPaymentById, paymentId))
}

func (s *Service) GetPaymentByTransactionId(ctx context.Context, transactionId string) (*models.Payment, error) {
	return scanPayment(s.db.QueryRowContext(ctx, queryGetPaymentByTransactionId, transactionId))
}

func (s *Service) GetPaymentForUser(ctx context.Context, paymentId, userId string) (*models.Payment, error) {
	return scanPayment(s.db.QueryRowContext(ctx, queryGetPaymentForUser, paymentId, userId))
}

// AttachTransactionId assigns a provider transaction id to a pending payment.
// A payment that already carries an id keeps it and the stored id is returned,
// so repeated QR code requests stay stable.
func (s *Service) AttachTransactionId(ctx context.Context, paymentId, userId, transactionId string) (string, error) {
	if transactionId == "" {
		return "", fmt.Errorf("transaction id cannot be empty: %w", store.ErrInvalidArgument)
	}

	result, err := s.db.ExecContext(ctx, queryAttachTransactionId, transactionId, paymentId, userId)
	if err != nil {
		return "", fmt.Errorf("failed to attach transaction id: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return transactionId, nil
	}

	payment, err := s.GetPaymentForUser(ctx, paymentId, userId)
	if err != nil {
		return "", err
	}
	if payment.Status == models.PaymentStatusPending && payment.TransactionId != "" {
		return payment.TransactionId, nil
	}
	return "", fmt.Errorf("payment %s is no longer pending: %w", paymentId, store.ErrConflict)
}

// SettlePayment atomically flips a pending payment to its terminal status. On
// completion the downstream effects (membership extension, and reward
// finalization when the payer was referred) are enqueued in the same
// transaction. Unknown transaction ids and already-settled payments both
// surface as ErrNotFound, which makes callback replays harmless.
func (s *Service) SettlePayment(ctx context.Context, transactionId, status string) (*models.Payment, []models.SettlementEffect, error) {
	if status != models.PaymentStatusCompleted && status != models.PaymentStatusFailed {
		return nil, nil, fmt.Errorf("invalid settlement status %q: %w", status, store.ErrInvalidArgument)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	payment, err := scanPayment(tx.QueryRowContext(ctx, queryGetPaymentByTransactionId, transactionId))
	if err != nil {
		return nil, nil, err
	}

	result, err := tx.ExecContext(ctx, querySettlePayment, status, payment.Id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to settle payment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil, fmt.Errorf("payment %s already settled as %s: %w",
			payment.Id, payment.Status, store.ErrNotFound)
	}

	var effects []models.SettlementEffect
	if status == models.PaymentStatusCompleted {
		effectTypes := []string{models.EffectExtendMembership}

		var referrerId string
		err = tx.QueryRowContext(ctx, queryGetReferrerId, payment.UserId).Scan(&referrerId)
		if err != nil && err != sql.ErrNoRows {
			return nil, nil, fmt.Errorf("failed to look up referrer: %w", err)
		}
		if referrerId != "" {
			effectTypes = append(effectTypes, models.EffectFinalizeReward)
		}

		for _, effectType := range effectTypes {
			effect := models.SettlementEffect{
				Id:         uuid.New().String(),
				PaymentId:  payment.Id,
				UserId:     payment.UserId,
				EffectType: effectType,
				Status:     models.EffectStatusPending,
			}
			_, err = tx.ExecContext(ctx, queryInsertEffect,
				effect.Id, effect.PaymentId, effect.UserId, effect.EffectType)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to enqueue %s effect: %w", effectType, err)
			}
			effects = append(effects, effect)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	payment.Status = status
	payment.UpdatedAt = time.Now().UTC()

	zap.L().Info("payment settled",
		zap.String("payment_id", payment.Id),
		zap.String("transaction_id", transactionId),
		zap.String("status", status),
		zap.Int("effects", len(effects)))

	return payment, effects, nil
}

func scanPayment(row *sql.Row) (*models.Payment, error) {
	var payment models.Payment
	var amountStr string

	err := row.Scan(&payment.Id, &payment.UserId, &amountStr, &payment.PaymentType,
		&payment.TransactionId, &payment.Status, &payment.CreatedAt, &payment.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	if payment.Amount, err = scanDecimal(amountStr); err != nil {
		return nil, err
	}

	return &payment, nil
}
