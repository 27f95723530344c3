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
	"fmt"

	"membership-ledger-go/internal/models"
	"membership-ledger-go/internal/store"
)

// InitiatePayment creates a pending payment for a membership plan, priced from
// the catalog.
func (s *Service) InitiatePayment(ctx context.Context, userId, membershipType string) (*models.Payment, error) {
	plan, ok := s.plans.Get(membershipType)
	if !ok {
		return nil, fmt.Errorf("unknown membership type %q: %w", membershipType, store.ErrInvalidArgument)
	}

	return s.store.CreatePayment(ctx, store.CreatePaymentParams{
		UserId:      userId,
		Amount:      plan.Price,
		PaymentType: plan.Type,
	})
}

// PaymentQRCode creates (or reuses) the provider charge for a pending payment
// and returns the QR code the payer scans. Repeat calls return the stored
// transaction id, so the payer always sees one charge.
func (s *Service) PaymentQRCode(ctx context.Context, paymentId, userId string) (*models.PaymentQRCode, error) {
	payment, err := s.store.GetPaymentForUser(ctx, paymentId, userId)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, fmt.Errorf("payment %s is %s: %w", paymentId, payment.Status, store.ErrConflict)
	}

	intent, err := s.provider.CreateCharge(ctx, payment.Id, payment.Amount)
	if err != nil {
		return nil, fmt.Errorf("provider charge failed: %w", err)
	}

	transactionId, err := s.store.AttachTransactionId(ctx, payment.Id, userId, intent.TransactionId)
	if err != nil {
		return nil, err
	}
	if transactionId != intent.TransactionId {
		// A concurrent request won the attach; its charge is the canonical one.
		intent, err = s.provider.CreateCharge(ctx, payment.Id, payment.Amount)
		if err != nil {
			return nil, fmt.Errorf("provider charge failed: %w", err)
		}
	}

	return &models.PaymentQRCode{
		PaymentId:     payment.Id,
		TransactionId: transactionId,
		QRCodeUrl:     intent.QRCodeUrl,
	}, nil
}

// PaymentStatus returns a payment owned by the caller.
func (s *Service) PaymentStatus(ctx context.Context, paymentId, userId string) (*models.Payment, error) {
	return s.store.GetPaymentForUser(ctx, paymentId, userId)
}
