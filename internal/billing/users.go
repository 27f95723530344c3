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

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when login fails; callers must not learn
// whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Register creates a user. A referral code, when present, must resolve to an
// existing user; registration then also opens that referrer's pending reward.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("username and password are required: %w", store.ErrInvalidArgument)
	}

	var referrerId string
	if req.ReferralCode != "" {
		referrer, err := s.store.GetUserByReferralCode(ctx, req.ReferralCode)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("unknown referral code %q: %w", req.ReferralCode, store.ErrInvalidArgument)
		}
		if err != nil {
			return nil, err
		}
		referrerId = referrer.Id
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.store.CreateUser(ctx, store.CreateUserParams{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		ReferrerId:   referrerId,
	})
}

// Authenticate verifies a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
