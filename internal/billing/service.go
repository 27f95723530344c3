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
	"membership-ledger-go/internal/config"
	"membership-ledger-go/internal/provider"
	"membership-ledger-go/internal/store"
)

// Service implements the billing core: payments, memberships, referral rewards
// and withdrawals. All persistence goes through the store; all money amounts
// are decimals.
type Service struct {
	store    store.LedgerStore
	plans    *config.Plans
	provider provider.PaymentProvider
}

func NewService(ledgerStore store.LedgerStore, plans *config.Plans, paymentProvider provider.PaymentProvider) *Service {
	return &Service{
		store:    ledgerStore,
		plans:    plans,
		provider: paymentProvider,
	}
}

// Plans exposes the loaded plan catalog.
func (s *Service) Plans() *config.Plans {
	return s.plans
}
