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
	"errors"
	"fmt"

	"membership-ledger-go/internal/models"
	"membership-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const withdrawalRetries = 3

// RequestWithdrawal debits the reward balance and records the cash-out
// request. A version race on the balance row is retried a few times; losing
// every retry surfaces as ErrConcurrentModification for the caller to resubmit.
func (s *Service) RequestWithdrawal(ctx context.Context, userId string, req models.WithdrawRequest) (*models.Withdrawal, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("withdrawal amount must be positive: %w", store.ErrInvalidArgument)
	}
	if req.PaymentMethod == "" {
		return nil, fmt.Errorf("payment method is required: %w", store.ErrInvalidArgument)
	}

	var withdrawal *models.Withdrawal
	var err error
	for attempt := 0; attempt < withdrawalRetries; attempt++ {
		withdrawal, err = s.store.CreateWithdrawal(ctx, store.CreateWithdrawalParams{
			UserId:        userId,
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
			AccountInfo:   req.AccountInfo,
		})
		if !errors.Is(err, store.ErrConcurrentModification) {
			return withdrawal, err
		}
		zap.L().Warn("withdrawal lost balance race, retrying",
			zap.String("user_id", userId),
			zap.Int("attempt", attempt+1))
	}
	return nil, err
}

// ListWithdrawals returns the caller's withdrawal history.
func (s *Service) ListWithdrawals(ctx context.Context, userId string) ([]models.Withdrawal, error) {
	return s.store.GetWithdrawalsByUser(ctx, userId)
}

// Balance reports the current reward balance and the lifetime withdrawn total.
// Failed withdrawals do not count as withdrawn.
func (s *Service) Balance(ctx context.Context, userId string) (*models.BalanceResponse, error) {
	balance, err := s.store.GetRewardBalance(ctx, userId)
	if err != nil {
		return nil, err
	}

	withdrawals, err := s.store.GetWithdrawalsByUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	withdrawn := decimal.Zero
	for _, w := range withdrawals {
		if w.Status != models.WithdrawalStatusFailed {
			withdrawn = withdrawn.Add(w.Amount)
		}
	}

	return &models.BalanceResponse{
		Balance:   balance,
		Withdrawn: withdrawn,
	}, nil
}
