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

func (s *Service) GetActiveMembership(ctx context.Context, userId string) (*models.Membership, error) {
	return scanMembership(s.db.QueryRowContext(ctx, queryGetActiveMembership, userId))
}

// ExtendOrCreateMembership applies a settled payment to the user's membership.
// A membership that is still running is extended in place from its current end
// date; an expired or missing one is replaced by a fresh window starting now.
// When the mutation is driven by an outbox effect, the effect row is completed
// inside the same transaction, so replaying an already-applied effect changes
// nothing.
func (s *Service) ExtendOrCreateMembership(ctx context.Context, params store.ExtendMembershipParams) (*models.Membership, error) {
	if params.UserId == "" {
		return nil, fmt.Errorf("user id cannot be empty: %w", store.ErrInvalidArgument)
	}
	if params.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %v: %w", params.Duration, store.ErrInvalidArgument)
	}

	// The partial unique index on active memberships turns a lost create/create
	// race into a constraint violation; the retry then lands on the extend path.
	var membership *models.Membership
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		membership, err = s.extendOrCreateTx(ctx, params)
		if err == nil || !isUniqueViolation(err) {
			return membership, err
		}
		zap.L().Warn("membership create race, retrying",
			zap.String("user_id", params.UserId),
			zap.Int("attempt", attempt+1))
	}
	return nil, err
}

func (s *Service) extendOrCreateTx(ctx context.Context, params store.ExtendMembershipParams) (*models.Membership, error) {
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
			// Effect already executed; report the current state unchanged.
			return s.GetActiveMembership(ctx, params.UserId)
		}
	}

	now := time.Now().UTC()
	current, err := scanMembership(tx.QueryRowContext(ctx, queryGetActiveMembership, params.UserId))
	if err != nil && err != store.ErrNotFound {
		return nil, err
	}

	if current != nil && current.EndDate.After(now) {
		current.EndDate = current.EndDate.Add(params.Duration)
		if _, err := tx.ExecContext(ctx, queryExtendMembership, current.EndDate, current.Id); err != nil {
			return nil, fmt.Errorf("failed to extend membership: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit extension: %w", err)
		}
		return current, nil
	}

	if current != nil {
		// Expired but still flagged active: retire it before the replacement.
		if _, err := tx.ExecContext(ctx, queryDeactivateMembership, current.Id); err != nil {
			return nil, fmt.Errorf("failed to deactivate expired membership: %w", err)
		}
	}

	membership := &models.Membership{
		Id:             uuid.New().String(),
		UserId:         params.UserId,
		MembershipType: params.MembershipType,
		StartDate:      now,
		EndDate:        now.Add(params.Duration),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = tx.ExecContext(ctx, queryInsertMembership,
		membership.Id, membership.UserId, membership.MembershipType,
		membership.StartDate, membership.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to insert membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit membership: %w", err)
	}

	return membership, nil
}

func scanMembership(row *sql.Row) (*models.Membership, error) {
	var membership models.Membership

	err := row.Scan(&membership.Id, &membership.UserId, &membership.MembershipType,
		&membership.StartDate, &membership.EndDate, &membership.IsActive,
		&membership.CreatedAt, &membership.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan membership: %w", err)
	}

	return &membership, nil
}
