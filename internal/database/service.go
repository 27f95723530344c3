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

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service implements store.LedgerStore on SQLite.
type Service struct {
	db     *sql.DB
	ledger *RewardLedger
}

var _ store.LedgerStore = (*Service)(nil)

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=1000", cfg.Path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", cfg.Path, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	service := &Service{
		db:     db,
		ledger: NewRewardLedger(db),
	}

	if err := service.initializeSchema(ctx, cfg.CreateDemoUsers); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	zap.L().Info("database service initialized",
		zap.String("path", cfg.Path),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return service, nil
}

func (s *Service) initializeSchema(ctx context.Context, createDemoUsers bool) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT 1,
			referral_code TEXT NOT NULL UNIQUE,
			referrer_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			payment_type TEXT NOT NULL,
			transaction_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_transaction_id
			ON payments(transaction_id) WHERE transaction_id != ''`,
		`CREATE INDEX IF NOT EXISTS idx_payments_user ON payments(user_id)`,
		`CREATE TABLE IF NOT EXISTS memberships (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			membership_type TEXT NOT NULL,
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_memberships_one_active
			ON memberships(user_id) WHERE is_active = 1`,
		`CREATE TABLE IF NOT EXISTS rewards (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			amount TEXT NOT NULL DEFAULT '0',
			source TEXT NOT NULL DEFAULT 'referral',
			related_user_id TEXT NOT NULL DEFAULT '',
			related_payment_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rewards_user_status ON rewards(user_id, status)`,
		`CREATE TABLE IF NOT EXISTS withdrawals (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			account_info TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_user ON withdrawals(user_id)`,
		`CREATE TABLE IF NOT EXISTS reward_accounts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			balance TEXT NOT NULL DEFAULT '0',
			last_entry_id TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS reward_entries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			entry_type TEXT NOT NULL,
			amount TEXT NOT NULL,
			balance_before TEXT NOT NULL,
			balance_after TEXT NOT NULL,
			reference TEXT NOT NULL UNIQUE,
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reward_entries_user ON reward_entries(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS settlement_effects (
			id TEXT PRIMARY KEY,
			payment_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			effect_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (payment_id) REFERENCES payments(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_effects_status ON settlement_effects(status, created_at)`,
	}

	for _, schema := range schemas {
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	if createDemoUsers {
		if err := s.createDemoUsers(ctx); err != nil {
			return fmt.Errorf("failed to create demo users: %w", err)
		}
	}

	return nil
}

func scanDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored decimal %q: %w", s, err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Error("failed to close database", zap.Error(err))
	}
}
