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

package api

import (
	"encoding/json"
	"net/http"

	"membership-ledger-go/internal/models"
)

func (s *Service) handleRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := s.billing.ListRewards(r.Context(), requestUserId(r))
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]models.RewardResponse, 0, len(rewards))
	for _, reward := range rewards {
		response = append(response, models.RewardResponse{
			Id:               reward.Id,
			Amount:           reward.Amount,
			Source:           reward.Source,
			RelatedUserId:    reward.RelatedUserId,
			RelatedPaymentId: reward.RelatedPaymentId,
			Status:           reward.Status,
			CreatedAt:        reward.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Service) handleReferralInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.billing.ReferralInfo(r.Context(), requestUserId(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (s *Service) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req models.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	withdrawal, err := s.billing.RequestWithdrawal(r.Context(), requestUserId(r), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.WithdrawalResponse{
		Id:            withdrawal.Id,
		Amount:        withdrawal.Amount,
		PaymentMethod: withdrawal.PaymentMethod,
		Status:        withdrawal.Status,
		CreatedAt:     withdrawal.CreatedAt,
	})
}

func (s *Service) handleWithdrawals(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := s.billing.ListWithdrawals(r.Context(), requestUserId(r))
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]models.WithdrawalResponse, 0, len(withdrawals))
	for _, withdrawal := range withdrawals {
		response = append(response, models.WithdrawalResponse{
			Id:            withdrawal.Id,
			Amount:        withdrawal.Amount,
			PaymentMethod: withdrawal.PaymentMethod,
			Status:        withdrawal.Status,
			CreatedAt:     withdrawal.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Service) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.billing.Balance(r.Context(), requestUserId(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balance)
}
