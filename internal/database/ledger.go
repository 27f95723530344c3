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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RewardLedger maintains the per-user reward balance as an append-only entry
// log plus a versioned hot-balance row. Every balance mutation goes through
// processEntryTx so the entry, the balance and the caller's row changes commit
// or roll back together.
type RewardLedger struct {
	db *sql.DB
}

func NewRewardLedger(db *sql.DB) *RewardLedger {
	return &RewardLedger{db: db}
}

type entryParams struct {
	UserId    string
	EntryType string
	Amount    decimal.Decimal // signed: positive credits, negative debits
	Reference string
	Note      string
}

// processEntryTx appends a ledger entry and advances the account balance inside
// the caller's transaction. It returns store.ErrDuplicateEntry when the
// reference was already recorded, store.ErrInsufficientBalance when a debit
// would take the balance negative, and store.ErrConcurrentModification when the
// versioned balance update loses a race.
func (l *RewardLedger) processEntryTx(ctx context.Context, tx *sql.Tx, params entryParams) (*models.RewardEntry, error) {
	var existingId string
	err := tx.QueryRowContext(ctx, queryCheckDuplicateEntry, params.Reference).Scan(&existingId)
	if err == nil {
		return nil, fmt.Errorf("reference %s already recorded: %w", params.Reference, store.ErrDuplicateEntry)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check duplicate reference: %w", err)
	}

	account, err := l.getOrCreateAccountTx(ctx, tx, params.UserId)
	if err != nil {
		return nil, err
	}

	balanceAfter := account.Balance.Add(params.Amount)
	if balanceAfter.IsNegative() {
		return nil, fmt.Errorf("balance %s cannot cover %s: %w",
			account.Balance.String(), params.Amount.Abs().String(), store.ErrInsufficientBalance)
	}

	entry := &models.RewardEntry{
		Id:            uuid.New().String(),
		UserId:        params.UserId,
		EntryType:     params.EntryType,
		Amount:        params.Amount,
		BalanceBefore: account.Balance,
		BalanceAfter:  balanceAfter,
		Reference:     params.Reference,
		Note:          params.Note,
		CreatedAt:     time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, queryInsertRewardEntry,
		entry.Id, entry.UserId, entry.EntryType, entry.Amount.String(),
		entry.BalanceBefore.String(), entry.BalanceAfter.String(),
		entry.Reference, entry.Note, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reward entry: %w", err)
	}

	result, err := tx.ExecContext(ctx, queryUpdateRewardAccount,
		balanceAfter.String(), entry.Id, params.UserId, account.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update reward account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("account version %d is stale for user %s: %w",
			account.Version, params.UserId, store.ErrConcurrentModification)
	}

	return entry, nil
}

// getOrCreateAccountTx reads the account row, creating a zero-balance account
// on first touch.
func (l *RewardLedger) getOrCreateAccountTx(ctx context.Context, tx *sql.Tx, userId string) (*models.RewardAccount, error) {
	account := &models.RewardAccount{UserId: userId}

	var balanceStr string
	err := tx.QueryRowContext(ctx, queryGetRewardAccount, userId).
		Scan(&account.Id, &balanceStr, &account.Version)
	if err == nil {
		account.Balance, err = decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("invalid stored balance %q: %w", balanceStr, err)
		}
		return account, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query reward account: %w", err)
	}

	account.Id = uuid.New().String()
	account.Balance = decimal.Zero
	account.Version = 1

	_, err = tx.ExecContext(ctx, queryInsertRewardAccount,
		account.Id, userId, account.Balance.String(), account.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward account: %w", err)
	}

	return account, nil
}

// GetRewardBalance exposes the ledger balance through the store interface.
func (s *Service) GetRewardBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	return s.ledger.GetBalance(ctx, userId)
}

// GetRewardEntries exposes the ledger entry log through the store interface.
func (s *Service) GetRewardEntries(ctx context.Context, userId string, limit, offset int) ([]models.RewardEntry, error) {
	return s.ledger.GetEntries(ctx, userId, limit, offset)
}

// ReconcileRewardBalance verifies the hot balance against the entry log.
func (s *Service) ReconcileRewardBalance(ctx context.Context, userId string) error {
	return s.ledger.Reconcile(ctx, userId)
}

// GetBalance returns the current reward balance, zero for an untouched account.
func (l *RewardLedger) GetBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	var balanceStr string
	err := l.db.QueryRowContext(ctx, queryGetRewardBalance, userId).Scan(&balanceStr)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query reward balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored balance %q: %w", balanceStr, err)
	}
	return balance, nil
}

// GetEntries returns ledger entries newest first.
func (l *RewardLedger) GetEntries(ctx context.Context, userId string, limit, offset int) ([]models.RewardEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := l.db.QueryContext(ctx, queryGetRewardEntries, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward entries: %w", err)
	}
	defer rows.Close()

	var entries []models.RewardEntry
	for rows.Next() {
		var entry models.RewardEntry
		var amountStr, beforeStr, afterStr string

		err := rows.Scan(&entry.Id, &entry.UserId, &entry.EntryType,
			&amountStr, &beforeStr, &afterStr,
			&entry.Reference, &entry.Note, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward entry: %w", err)
		}

		if entry.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("invalid entry amount %q: %w", amountStr, err)
		}
		if entry.BalanceBefore, err = decimal.NewFromString(beforeStr); err != nil {
			return nil, fmt.Errorf("invalid balance before %q: %w", beforeStr, err)
		}
		if entry.BalanceAfter, err = decimal.NewFromString(afterStr); err != nil {
			return nil, fmt.Errorf("invalid balance after %q: %w", afterStr, err)
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Reconcile recomputes the balance from the entry log and compares it against
// the hot account row. A mismatch is reported as an error and logged; the
// stored balance is left untouched for operator inspection.
func (l *RewardLedger) Reconcile(ctx context.Context, userId string) error {
	rows, err := l.db.QueryContext(ctx, queryReconcileRewardBalance, userId)
	if err != nil {
		return fmt.Errorf("failed to query reward entries: %w", err)
	}
	defer rows.Close()

	calculatedDec := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return fmt.Errorf("failed to scan entry amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("invalid entry amount %q: %w", amountStr, err)
		}
		calculatedDec = calculatedDec.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate entry amounts: %w", err)
	}

	stored, err := l.GetBalance(ctx, userId)
	if err != nil {
		return err
	}

	if !stored.Equal(calculatedDec) {
		zap.L().Error("reward balance mismatch",
			zap.String("user_id", userId),
			zap.String("stored", stored.String()),
			zap.String("calculated", calculatedDec.String()))
		return fmt.Errorf("reward balance mismatch for user %s: stored %s, calculated %s",
			userId, stored.String(), calculatedDec.String())
	}

	return nil
}
