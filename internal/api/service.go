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
	"context"
	"errors"
	"fmt"
	"net/http"

	"membership-ledger-go/internal/billing"
	"membership-ledger-go/internal/models"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Service exposes the billing core over HTTP.
type Service struct {
	billing *billing.Service
	auth    models.AuthConfig
	router  *mux.Router
	server  *http.Server
}

func NewService(serverCfg models.ServerConfig, authCfg models.AuthConfig, billingService *billing.Service) *Service {
	s := &Service{
		billing: billingService,
		auth:    authCfg,
	}

	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	public := router.PathPrefix("/api/v1").Subrouter()
	public.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	public.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	public.HandleFunc("/payments/callback", s.handlePaymentCallback).Methods(http.MethodPost)

	private := router.PathPrefix("/api/v1").Subrouter()
	private.Use(s.authMiddleware)
	private.HandleFunc("/payments", s.handleSubscribe).Methods(http.MethodPost)
	private.HandleFunc("/payments/{id}", s.handlePaymentStatus).Methods(http.MethodGet)
	private.HandleFunc("/payments/{id}/qrcode", s.handlePaymentQRCode).Methods(http.MethodGet)
	private.HandleFunc("/membership", s.handleMembership).Methods(http.MethodGet)
	private.HandleFunc("/rewards", s.handleRewards).Methods(http.MethodGet)
	private.HandleFunc("/referral", s.handleReferralInfo).Methods(http.MethodGet)
	private.HandleFunc("/withdrawals", s.handleWithdraw).Methods(http.MethodPost)
	private.HandleFunc("/withdrawals", s.handleWithdrawals).Methods(http.MethodGet)
	private.HandleFunc("/balance", s.handleBalance).Methods(http.MethodGet)

	s.router = router
	s.server = &http.Server{
		Addr:         serverCfg.Addr,
		Handler:      router,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
	}

	return s
}

// Router exposes the handler tree for tests.
func (s *Service) Router() http.Handler {
	return s.router
}

// Start serves HTTP until the listener fails or Shutdown is called.
func (s *Service) Start() error {
	zap.L().Info("api server starting", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
