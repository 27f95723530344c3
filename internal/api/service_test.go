package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"membership-ledger-go/internal/billing"
	"membership-ledger-go/internal/config"
	"membership-ledger-go/internal/database"
	"membership-ledger-go/internal/models"
	"membership-ledger-go/internal/provider"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApi(t *testing.T) *Service {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "api_test.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	plans, err := config.LoadPlans(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	billingService := billing.NewService(db, plans, provider.NewStaticProvider(""))

	return NewService(
		models.ServerConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second},
		models.AuthConfig{SigningKey: "test-signing-key", TokenExpiry: time.Hour},
		billingService,
	)
}

func doRequest(t *testing.T, s *Service, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(target))
}

func registerAndLogin(t *testing.T, s *Service, username, referralCode string) (models.RegisterResponse, string) {
	t.Helper()

	recorder := doRequest(t, s, http.MethodPost, "/api/v1/auth/register", "", models.RegisterRequest{
		Username:     username,
		Password:     "pw-" + username,
		ReferralCode: referralCode,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var registered models.RegisterResponse
	decodeBody(t, recorder, &registered)

	recorder = doRequest(t, s, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Username: username,
		Password: "pw-" + username,
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var login models.LoginResponse
	decodeBody(t, recorder, &login)
	require.NotEmpty(t, login.Token)

	return registered, login.Token
}

func TestAuthRequired(t *testing.T) {
	s := setupTestApi(t)

	recorder := doRequest(t, s, http.MethodGet, "/api/v1/membership", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = doRequest(t, s, http.MethodGet, "/api/v1/membership", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := setupTestApi(t)
	registerAndLogin(t, s, "walter", "")

	recorder := doRequest(t, s, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Username: "walter",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestSubscriptionFlowOverHttp(t *testing.T) {
	s := setupTestApi(t)

	referrer, referrerToken := registerAndLogin(t, s, "xena", "")
	_, referredToken := registerAndLogin(t, s, "yuri", referrer.ReferralCode)

	// Subscribe to the yearly plan.
	recorder := doRequest(t, s, http.MethodPost, "/api/v1/payments", referredToken, models.SubscribeRequest{
		MembershipType: models.PaymentTypeYearly,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var payment models.PaymentResponse
	decodeBody(t, recorder, &payment)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.True(t, payment.Amount.Equal(decimal.NewFromFloat(299.0)))

	// Fetch the QR code, which pins the transaction id.
	recorder = doRequest(t, s, http.MethodGet, "/api/v1/payments/"+payment.PaymentId+"/qrcode", referredToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var qr models.PaymentQRCode
	decodeBody(t, recorder, &qr)
	require.NotEmpty(t, qr.TransactionId)

	// Provider callback settles the payment.
	recorder = doRequest(t, s, http.MethodPost, "/api/v1/payments/callback", "", models.PaymentCallback{
		TransactionId: qr.TransactionId,
		Status:        models.PaymentStatusCompleted,
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	// Membership is live.
	recorder = doRequest(t, s, http.MethodGet, "/api/v1/membership", referredToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var membership models.MembershipResponse
	decodeBody(t, recorder, &membership)
	assert.True(t, membership.IsActive)
	assert.Equal(t, models.PaymentTypeYearly, membership.MembershipType)

	// Referrer sees half the price on the balance.
	recorder = doRequest(t, s, http.MethodGet, "/api/v1/referral", referrerToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var info models.ReferralInfo
	decodeBody(t, recorder, &info)
	assert.True(t, info.RewardBalance.Equal(decimal.NewFromFloat(149.5)),
		"expected 149.5, got %s", info.RewardBalance.String())

	// Replayed callback acknowledges without changing the outcome.
	recorder = doRequest(t, s, http.MethodPost, "/api/v1/payments/callback", "", models.PaymentCallback{
		TransactionId: qr.TransactionId,
		Status:        models.PaymentStatusFailed,
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var echoed models.PaymentResponse
	decodeBody(t, recorder, &echoed)
	assert.Equal(t, models.PaymentStatusCompleted, echoed.Status)
}

func TestWithdrawOverHttp(t *testing.T) {
	s := setupTestApi(t)

	referrer, referrerToken := registerAndLogin(t, s, "zara", "")
	_, referredToken := registerAndLogin(t, s, "abel", referrer.ReferralCode)

	recorder := doRequest(t, s, http.MethodPost, "/api/v1/payments", referredToken, models.SubscribeRequest{
		MembershipType: models.PaymentTypeMonthly,
	})
	require.Equal(t, http.StatusCreated, recorder.Code)
	var payment models.PaymentResponse
	decodeBody(t, recorder, &payment)

	recorder = doRequest(t, s, http.MethodGet, "/api/v1/payments/"+payment.PaymentId+"/qrcode", referredToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var qr models.PaymentQRCode
	decodeBody(t, recorder, &qr)

	recorder = doRequest(t, s, http.MethodPost, "/api/v1/payments/callback", "", models.PaymentCallback{
		TransactionId: qr.TransactionId,
		Status:        models.PaymentStatusCompleted,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	// 29.9 * 0.5 = 14.95 available; withdrawing 20 must fail whole.
	recorder = doRequest(t, s, http.MethodPost, "/api/v1/withdrawals", referrerToken, models.WithdrawRequest{
		Amount:        decimal.NewFromInt(20),
		PaymentMethod: "wechat",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code, recorder.Body.String())

	recorder = doRequest(t, s, http.MethodPost, "/api/v1/withdrawals", referrerToken, models.WithdrawRequest{
		Amount:        decimal.NewFromFloat(10.5),
		PaymentMethod: "wechat",
		AccountInfo:   "zara-wechat",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var withdrawal models.WithdrawalResponse
	decodeBody(t, recorder, &withdrawal)
	assert.Equal(t, models.WithdrawalStatusPending, withdrawal.Status)

	recorder = doRequest(t, s, http.MethodGet, "/api/v1/balance", referrerToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var balance models.BalanceResponse
	decodeBody(t, recorder, &balance)
	assert.True(t, balance.Balance.Equal(decimal.NewFromFloat(4.45)),
		"expected balance 4.45, got %s", balance.Balance.String())
	assert.True(t, balance.Withdrawn.Equal(decimal.NewFromFloat(10.5)),
		"expected withdrawn 10.5, got %s", balance.Withdrawn.String())

	recorder = doRequest(t, s, http.MethodGet, "/api/v1/withdrawals", referrerToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var withdrawals []models.WithdrawalResponse
	decodeBody(t, recorder, &withdrawals)
	assert.Len(t, withdrawals, 1)
}

func TestMembershipNotFoundBeforePayment(t *testing.T) {
	s := setupTestApi(t)

	_, token := registerAndLogin(t, s, "newbie", "")
	recorder := doRequest(t, s, http.MethodGet, "/api/v1/membership", token, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
