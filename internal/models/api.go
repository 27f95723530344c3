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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the payload for user registration
type RegisterRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code,omitempty"` // the referrer's code, optional
}

// RegisterResponse returns the new user's identity and own referral code
type RegisterResponse struct {
	UserId       string `json:"user_id"`
	Username     string `json:"username"`
	ReferralCode string `json:"referral_code"`
}

// LoginRequest is the payload for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token
type LoginResponse struct {
	Token string `json:"token"`
}

// SubscribeRequest starts a membership payment
type SubscribeRequest struct {
	MembershipType string `json:"membership_type"` // "monthly" or "yearly"
}

// PaymentResponse describes a payment record
type PaymentResponse struct {
	PaymentId     string          `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentType   string          `json:"payment_type"`
	TransactionId string          `json:"transaction_id,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentQRCode carries the provider QR code for a pending payment
type PaymentQRCode struct {
	PaymentId     string `json:"payment_id"`
	TransactionId string `json:"transaction_id"`
	QRCodeUrl     string `json:"qrcode_url"`
}

// PaymentCallback is the provider's settlement notification, pre-validated by
// the provider collaborator
type PaymentCallback struct {
	TransactionId string `json:"transaction_id"`
	Status        string `json:"status"` // "completed" or "failed"
}

// MembershipResponse describes the caller's current membership
type MembershipResponse struct {
	MembershipType string    `json:"membership_type"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	IsActive       bool      `json:"is_active"`
}

// RewardResponse describes a single reward record
type RewardResponse struct {
	Id               string          `json:"id"`
	Amount           decimal.Decimal `json:"amount"`
	Source           string          `json:"source"`
	RelatedUserId    string          `json:"related_user_id,omitempty"`
	RelatedPaymentId string          `json:"related_payment_id,omitempty"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ReferralInfo describes the caller's referral standing
type ReferralInfo struct {
	ReferralCode  string          `json:"referral_code"`
	ReferralRate  decimal.Decimal `json:"referral_rate"`
	RewardBalance decimal.Decimal `json:"reward_balance"`
}

// WithdrawRequest asks to cash out part of the reward balance
type WithdrawRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"` // "wechat", "alipay", "bank"
	AccountInfo   string          `json:"account_info"`
}

// WithdrawalResponse describes a withdrawal record
type WithdrawalResponse struct {
	Id            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BalanceResponse reports the current balance and the lifetime withdrawn total
type BalanceResponse struct {
	Balance   decimal.Decimal `json:"balance"`
	Withdrawn decimal.Decimal `json:"withdrawn"`
}

// ErrorResponse is the uniform error payload
type ErrorResponse struct {
	Error string `json:"error"`
}
