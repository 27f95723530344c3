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

	"github.com/gorilla/mux"
)

func paymentResponse(payment *models.Payment) models.PaymentResponse {
	return models.PaymentResponse{
		PaymentId:     payment.Id,
		Amount:        payment.Amount,
		PaymentType:   payment.PaymentType,
		TransactionId: payment.TransactionId,
		Status:        payment.Status,
		CreatedAt:     payment.CreatedAt,
	}
}

func (s *Service) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req models.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := s.billing.InitiatePayment(r.Context(), requestUserId(r), req.MembershipType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, paymentResponse(payment))
}

func (s *Service) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	payment, err := s.billing.PaymentStatus(r.Context(), mux.Vars(r)["id"], requestUserId(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paymentResponse(payment))
}

func (s *Service) handlePaymentQRCode(w http.ResponseWriter, r *http.Request) {
	qr, err := s.billing.PaymentQRCode(r.Context(), mux.Vars(r)["id"], requestUserId(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, qr)
}

// handlePaymentCallback receives the provider's settlement notification. The
// response is always a plain acknowledgement; a repeated callback for an
// already-settled payment acknowledges without changing anything.
func (s *Service) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	var callback models.PaymentCallback
	if err := json.NewDecoder(r.Body).Decode(&callback); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := s.billing.HandleCallback(r.Context(), callback)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paymentResponse(payment))
}

func (s *Service) handleMembership(w http.ResponseWriter, r *http.Request) {
	membership, err := s.billing.CurrentMembership(r.Context(), requestUserId(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.MembershipResponse{
		MembershipType: membership.MembershipType,
		StartDate:      membership.StartDate,
		EndDate:        membership.EndDate,
		IsActive:       membership.IsActive,
	})
}
