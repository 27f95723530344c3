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
	"go.uber.org/zap"
)

// CreateWithdrawal debits the reward balance and records the withdrawal in one
// transaction. The ledger's versioned balance update makes the availability
// check and the debit atomic: a concurrent withdrawal that would overdraw the
// balance loses with ErrConcurrentModification or ErrInsufficientBalance.
func (s *Service) CreateWithdrawal(ctx context.Context, params store.CreateWithdrawalParams) (*models.Withdrawal, error) {
	if params.UserId == "" {
		return nil, fmt.Errorf("user id cannot be empty: %w", store.ErrInvalidArgument)
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %s: %w",
			params.Amount.String(), store.ErrInvalidArgument)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	withdrawal := &models.Withdrawal{
		Id:            uuid.New().String(),
		UserId:        params.UserId,
		Amount:        params.Amount,
		PaymentMethod: params.PaymentMethod,
		AccountInfo:   params.AccountInfo,
		Status:        models.WithdrawalStatusPending,
	}

	_, err = tx.ExecContext(ctx, queryInsertWithdrawal,
		withdrawal.Id, withdrawal.UserId, withdrawal.Amount.String(),
		withdrawal.PaymentMethod, withdrawal.AccountInfo, withdrawal.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to insert withdrawal: %w", err)
	}

	_, err = s.ledger.processEntryTx(ctx, tx, entryParams{
		UserId:    params.UserId,
		EntryType: models.EntryTypeDebit,
		Amount:    params.Amount.Neg(),
		Reference: withdrawal.Id,
		Note:      fmt.Sprintf("withdrawal via %s", params.PaymentMethod),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal: %w", err)
	}

	zap.L().Info("withdrawal created",
		zap.String("withdrawal_id", withdrawal.Id),
		zap.String("user_id", params.UserId),
		zap.String("amount", params.Amount.String()))

	return withdrawal, nil
}

func (s *Service) GetWithdrawalsByUser(ctx context.Context, userId string) ([]models.Withdrawal, error) {
	rows, err := s.db.QueryContext(ctx, queryGetWithdrawalsByUser, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []models.Withdrawal
	for rows.Next() {
		var w models.Withdrawal
		var amountStr string

		err := rows.Scan(&w.Id, &w.UserId, &amountStr, &w.PaymentMethod,
			&w.AccountInfo, &w.Status, &w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}

		if w.Amount, err = scanDecimal(amountStr); err != nil {
			return nil, err
		}

		withdrawals = append(withdrawals, w)
	}

	return withdrawals, rows.Err()
}

func (s *Service) UpdateWithdrawalStatus(ctx context.Context, withdrawalId, status string) error {
	result, err := s.db.ExecContext(ctx, queryUpdateWithdrawalStatus, status, withdrawalId)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ReverseWithdrawal credits the debited amount back for a failed withdrawal.
// This is a deliberate operator action, never triggered automatically; the
// ledger's unique reference makes a repeated reversal a duplicate-entry error.
func (s *Service) ReverseWithdrawal(ctx context.Context, withdrawalId string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	withdrawal, err := scanWithdrawalTx(tx.QueryRowContext(ctx, queryGetWithdrawalById, withdrawalId))
	if err != nil {
		return err
	}
	if withdrawal.Status != models.WithdrawalStatusFailed {
		return fmt.Errorf("withdrawal %s has status %s, only failed withdrawals can be reversed: %w",
			withdrawalId, withdrawal.Status, store.ErrConflict)
	}

	_, err = s.ledger.processEntryTx(ctx, tx, entryParams{
		UserId:    withdrawal.UserId,
		EntryType: models.EntryTypeCredit,
		Amount:    withdrawal.Amount,
		Reference: withdrawal.Id + "-reversal",
		Note:      fmt.Sprintf("reversal of failed withdrawal %s", withdrawal.Id),
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reversal: %w", err)
	}

	zap.L().Info("withdrawal reversed",
		zap.String("withdrawal_id", withdrawalId),
		zap.String("amount", withdrawal.Amount.String()))

	return nil
}

func scanWithdrawalTx(row *sql.Row) (*models.Withdrawal, error) {
	var w models.Withdrawal
	var amountStr string

	err := row.Scan(&w.Id, &w.UserId, &amountStr, &w.PaymentMethod,
		&w.AccountInfo, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
	}

	if w.Amount, err = scanDecimal(amountStr); err != nil {
		return nil, err
	}

	return &w, nil
}
