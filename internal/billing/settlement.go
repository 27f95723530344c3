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

	"go.uber.org/zap"
)

// HandleCallback settles a payment from a provider notification. The status
// flip and the enqueue of downstream effects commit atomically; the effects
// themselves are then executed inline, and any failure there is retried later
// by the worker without ever reverting the payment status.
//
// A callback for an already-settled payment acknowledges without changing
// anything, so provider retries are harmless.
func (s *Service) HandleCallback(ctx context.Context, callback models.PaymentCallback) (*models.Payment, error) {
	if callback.TransactionId == "" {
		return nil, fmt.Errorf("transaction id is required: %w", store.ErrInvalidArgument)
	}
	if callback.Status != models.PaymentStatusCompleted && callback.Status != models.PaymentStatusFailed {
		return nil, fmt.Errorf("unknown callback status %q: %w", callback.Status, store.ErrInvalidArgument)
	}

	payment, effects, err := s.store.SettlePayment(ctx, callback.TransactionId, callback.Status)
	if errors.Is(err, store.ErrNotFound) {
		existing, lookupErr := s.store.GetPaymentByTransactionId(ctx, callback.TransactionId)
		if lookupErr == nil && existing.Status != models.PaymentStatusPending {
			zap.L().Info("duplicate settlement callback ignored",
				zap.String("transaction_id", callback.TransactionId),
				zap.String("status", existing.Status))
			return existing, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	for _, effect := range effects {
		if execErr := s.ExecuteEffect(ctx, effect); execErr != nil {
			zap.L().Error("settlement effect failed, leaving for replay",
				zap.String("effect_id", effect.Id),
				zap.String("effect_type", effect.EffectType),
				zap.String("payment_id", effect.PaymentId),
				zap.String("user_id", effect.UserId),
				zap.Error(execErr))
			if markErr := s.store.MarkEffectFailed(ctx, effect.Id, execErr.Error()); markErr != nil {
				zap.L().Error("failed to record effect failure", zap.Error(markErr))
			}
		}
	}

	return payment, nil
}

// ExecuteEffect runs one settlement effect. Completion of the effect row is
// part of the same transaction as the mutation it drives, so running an effect
// twice changes nothing the second time.
func (s *Service) ExecuteEffect(ctx context.Context, effect models.SettlementEffect) error {
	payment, err := s.store.GetPaymentById(ctx, effect.PaymentId)
	if err != nil {
		return fmt.Errorf("failed to load payment %s: %w", effect.PaymentId, err)
	}

	switch effect.EffectType {
	case models.EffectExtendMembership:
		plan, ok := s.plans.Get(payment.PaymentType)
		if !ok {
			return fmt.Errorf("payment %s has unknown plan %q", payment.Id, payment.PaymentType)
		}
		_, err := s.store.ExtendOrCreateMembership(ctx, store.ExtendMembershipParams{
			UserId:         effect.UserId,
			MembershipType: plan.Type,
			Duration:       plan.Duration,
			EffectId:       effect.Id,
		})
		return err

	case models.EffectFinalizeReward:
		payer, err := s.store.GetUserById(ctx, effect.UserId)
		if err != nil {
			return fmt.Errorf("failed to load payer %s: %w", effect.UserId, err)
		}
		// The effect is only enqueued for referred payers, and referrer_id is
		// never mutated.
		if payer.ReferrerId == "" {
			return fmt.Errorf("payer %s has no referrer for effect %s", payer.Id, effect.Id)
		}

		_, err = s.store.FinalizeReward(ctx, store.FinalizeRewardParams{
			ReferrerId:     payer.ReferrerId,
			ReferredUserId: payer.Id,
			PaymentId:      payment.Id,
			Amount:         payment.Amount.Mul(s.plans.ReferralRate),
			EffectId:       effect.Id,
		})
		return err

	default:
		return fmt.Errorf("unknown effect type %q", effect.EffectType)
	}
}
