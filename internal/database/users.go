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
	"strings"

	"membership-ledger-go/internal/models"
	"membership-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const referralCodeLength = 8

// CreateUser registers a user and, when the user was referred, opens the
// referrer's pending reward in the same transaction.
func (s *Service) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.User, error) {
	if params.Username == "" {
		return nil, fmt.Errorf("username cannot be empty: %w", store.ErrInvalidArgument)
	}
	if params.PasswordHash == "" {
		return nil, fmt.Errorf("password hash cannot be empty: %w", store.ErrInvalidArgument)
	}

	userId := uuid.New().String()

	// Retry referral code generation on the rare collision.
	for attempt := 0; attempt < 3; attempt++ {
		code := generateReferralCode()

		err := s.createUserTx(ctx, userId, params, code)
		if err == nil {
			return s.GetUserById(ctx, userId)
		}
		if isUniqueViolation(err) && strings.Contains(err.Error(), "referral_code") {
			continue
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %s is taken: %w", params.Username, store.ErrConflict)
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate a unique referral code for user %s", params.Username)
}

func (s *Service) createUserTx(ctx context.Context, userId string, params store.CreateUserParams, code string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, queryInsertUser,
		userId, params.Username, params.Email, params.PasswordHash, code, params.ReferrerId)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if params.ReferrerId != "" {
		_, err = tx.ExecContext(ctx, queryInsertReward,
			uuid.New().String(), params.ReferrerId, decimal.Zero.String(),
			models.RewardSourceReferral, userId, models.RewardStatusPending)
		if err != nil {
			return fmt.Errorf("failed to open pending reward: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId))
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, queryGetUserByUsername, username))
}

func (s *Service) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, queryGetUserByReferralCode, code))
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, queryGetActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var balanceStr string

		err := rows.Scan(&user.Id, &user.Username, &user.Email, &user.PasswordHash,
			&user.Active, &user.ReferralCode, &user.ReferrerId,
			&balanceStr, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		if user.RewardBalance, err = decimal.NewFromString(balanceStr); err != nil {
			return nil, fmt.Errorf("invalid reward balance %q: %w", balanceStr, err)
		}

		users = append(users, user)
	}

	return users, rows.Err()
}

func (s *Service) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var balanceStr string

	err := row.Scan(&user.Id, &user.Username, &user.Email, &user.PasswordHash,
		&user.Active, &user.ReferralCode, &user.ReferrerId,
		&balanceStr, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if user.RewardBalance, err = decimal.NewFromString(balanceStr); err != nil {
		return nil, fmt.Errorf("invalid reward balance %q: %w", balanceStr, err)
	}

	return &user, nil
}

// generateReferralCode produces an 8-character uppercase code from a fresh
// UUID's leading hex digits.
func generateReferralCode() string {
	return strings.ToUpper(uuid.New().String()[:referralCodeLength])
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Service) createDemoUsers(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	alice, err := s.CreateUser(ctx, store.CreateUserParams{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
	})
	if err != nil {
		if strings.Contains(err.Error(), "is taken") {
			return nil // already seeded
		}
		return err
	}

	_, err = s.CreateUser(ctx, store.CreateUserParams{
		Username:     "bob",
		Email:        "bob@example.com",
		PasswordHash: string(hash),
		ReferrerId:   alice.Id,
	})
	if err != nil {
		return err
	}

	zap.L().Info("demo users created", zap.String("referral_code", alice.ReferralCode))
	return nil
}
