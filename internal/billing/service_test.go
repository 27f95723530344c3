package billing

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"membership-ledger-go/internal/config"
	"membership-ledger-go/internal/database"
	"membership-ledger-go/internal/models"
	"membership-ledger-go/internal/provider"
	"membership-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "billing_test.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(db.Close)

	plans, err := config.LoadPlans(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("failed to load default plans: %v", err)
	}

	return NewService(db, plans, provider.NewStaticProvider(""))
}

func registerTestUser(t *testing.T, s *Service, username, referralCode string) *models.User {
	t.Helper()

	user, err := s.Register(context.Background(), models.RegisterRequest{
		Username:     username,
		Password:     "s3cret-" + username,
		ReferralCode: referralCode,
	})
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	return user
}

func payAndSettle(t *testing.T, s *Service, userId, membershipType string) *models.Payment {
	t.Helper()
	ctx := context.Background()

	payment, err := s.InitiatePayment(ctx, userId, membershipType)
	if err != nil {
		t.Fatalf("failed to initiate payment: %v", err)
	}

	qr, err := s.PaymentQRCode(ctx, payment.Id, userId)
	if err != nil {
		t.Fatalf("failed to create QR code: %v", err)
	}

	settled, err := s.HandleCallback(ctx, models.PaymentCallback{
		TransactionId: qr.TransactionId,
		Status:        models.PaymentStatusCompleted,
	})
	if err != nil {
		t.Fatalf("failed to handle callback: %v", err)
	}
	return settled
}

func TestSubscriptionLifecycle(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	referrer := registerTestUser(t, s, "referrer", "")
	referred := registerTestUser(t, s, "referred", referrer.ReferralCode)

	payment := payAndSettle(t, s, referred.Id, models.PaymentTypeYearly)
	if payment.Status != models.PaymentStatusCompleted {
		t.Fatalf("expected completed payment, got %s", payment.Status)
	}
	if !payment.Amount.Equal(decimal.NewFromFloat(299.0)) {
		t.Errorf("expected yearly price 299.0, got %s", payment.Amount.String())
	}

	membership, err := s.CurrentMembership(ctx, referred.Id)
	if err != nil {
		t.Fatalf("failed to load membership: %v", err)
	}
	if !membership.IsActive {
		t.Error("membership must be active after settlement")
	}
	wantEnd := membership.StartDate.Add(365 * 24 * time.Hour)
	if !membership.EndDate.Equal(wantEnd) {
		t.Errorf("expected 365-day window, got end %v", membership.EndDate)
	}

	// Half of 299.0 lands on the referrer's balance.
	info, err := s.ReferralInfo(ctx, referrer.Id)
	if err != nil {
		t.Fatalf("failed to load referral info: %v", err)
	}
	if !info.RewardBalance.Equal(decimal.NewFromFloat(149.5)) {
		t.Errorf("expected reward balance 149.5, got %s", info.RewardBalance.String())
	}

	rewards, err := s.ListRewards(ctx, referrer.Id)
	if err != nil {
		t.Fatalf("failed to list rewards: %v", err)
	}
	if len(rewards) != 1 || rewards[0].Status != models.RewardStatusAvailable {
		t.Errorf("expected one available reward, got %+v", rewards)
	}
	if rewards[0].RelatedPaymentId != payment.Id {
		t.Errorf("reward must reference the settling payment, got %q", rewards[0].RelatedPaymentId)
	}
}

func TestDuplicateCallbackChangesNothing(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	referrer := registerTestUser(t, s, "ann", "")
	referred := registerTestUser(t, s, "ben", referrer.ReferralCode)

	payment := payAndSettle(t, s, referred.Id, models.PaymentTypeYearly)
	before, err := s.CurrentMembership(ctx, referred.Id)
	if err != nil {
		t.Fatalf("failed to load membership: %v", err)
	}

	// The provider retries its callback, this time claiming failure.
	echoed, err := s.HandleCallback(ctx, models.PaymentCallback{
		TransactionId: "txn-" + payment.Id,
		Status:        models.PaymentStatusFailed,
	})
	if err != nil {
		t.Fatalf("duplicate callback must be acknowledged, got %v", err)
	}
	if echoed.Status != models.PaymentStatusCompleted {
		t.Errorf("first settlement must win, got %s", echoed.Status)
	}

	after, err := s.CurrentMembership(ctx, referred.Id)
	if err != nil {
		t.Fatalf("failed to reload membership: %v", err)
	}
	if !after.EndDate.Equal(before.EndDate) {
		t.Errorf("duplicate callback must not move the end date: %v vs %v", before.EndDate, after.EndDate)
	}

	info, err := s.ReferralInfo(ctx, referrer.Id)
	if err != nil {
		t.Fatalf("failed to load referral info: %v", err)
	}
	if !info.RewardBalance.Equal(decimal.NewFromFloat(149.5)) {
		t.Errorf("reward must be credited exactly once, got %s", info.RewardBalance.String())
	}
}

func TestConsecutiveMonthlyPaymentsStackTheWindow(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	user := registerTestUser(t, s, "cleo", "")

	payAndSettle(t, s, user.Id, models.PaymentTypeMonthly)
	first, err := s.CurrentMembership(ctx, user.Id)
	if err != nil {
		t.Fatalf("failed to load membership: %v", err)
	}

	payAndSettle(t, s, user.Id, models.PaymentTypeMonthly)
	second, err := s.CurrentMembership(ctx, user.Id)
	if err != nil {
		t.Fatalf("failed to reload membership: %v", err)
	}

	if second.Id != first.Id {
		t.Error("a running membership must be extended in place")
	}
	diff := second.EndDate.Sub(first.EndDate)
	want := 30 * 24 * time.Hour
	if diff < want-time.Second || diff > want+time.Second {
		t.Errorf("expected a further 30 days, got %v", diff)
	}
}

func TestUnknownMembershipTypeRejected(t *testing.T) {
	s := setupTestService(t)

	user := registerTestUser(t, s, "dina", "")
	_, err := s.InitiatePayment(context.Background(), user.Id, "weekly")
	if !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRegisterWithUnknownReferralCode(t *testing.T) {
	s := setupTestService(t)

	_, err := s.Register(context.Background(), models.RegisterRequest{
		Username:     "eve",
		Password:     "pass",
		ReferralCode: "NOPE1234",
	})
	if !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	registerTestUser(t, s, "fred", "")

	if _, err := s.Authenticate(ctx, "fred", "s3cret-fred"); err != nil {
		t.Errorf("expected successful login, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "fred", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "ghost", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestWithdrawalValidation(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	user := registerTestUser(t, s, "gail", "")

	_, err := s.RequestWithdrawal(ctx, user.Id, models.WithdrawRequest{
		Amount:        decimal.Zero,
		PaymentMethod: "wechat",
	})
	if !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero amount, got %v", err)
	}

	_, err = s.RequestWithdrawal(ctx, user.Id, models.WithdrawRequest{
		Amount: decimal.NewFromInt(10),
	})
	if !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for missing method, got %v", err)
	}

	_, err = s.RequestWithdrawal(ctx, user.Id, models.WithdrawRequest{
		Amount:        decimal.NewFromInt(10),
		PaymentMethod: "wechat",
	})
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance on empty balance, got %v", err)
	}
}

func TestConcurrentWithdrawalsDebitAtMostOnce(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	referrer := registerTestUser(t, s, "nora", "")
	referred := registerTestUser(t, s, "omar", referrer.ReferralCode)
	payAndSettle(t, s, referred.Id, models.PaymentTypeYearly)

	// Balance is 149.5; two racing withdrawals of 80 cannot both fit.
	amount := decimal.NewFromInt(80)
	results := make([]error, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, results[slot] = s.RequestWithdrawal(ctx, referrer.Id, models.WithdrawRequest{
				Amount:        amount,
				PaymentMethod: "wechat",
			})
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected withdrawal error: %v", err)
		}
	}
	if succeeded != 1 || insufficient != 1 {
		t.Fatalf("expected exactly one success and one rejection, got %d/%d", succeeded, insufficient)
	}

	balance, err := s.store.GetRewardBalance(ctx, referrer.Id)
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromFloat(69.5)) {
		t.Errorf("expected balance 69.5 after one withdrawal, got %s", balance.String())
	}

	if err := s.store.ReconcileRewardBalance(ctx, referrer.Id); err != nil {
		t.Errorf("ledger must reconcile after racing withdrawals: %v", err)
	}
}

func TestConcurrentSettlementsStackExactlyOnce(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	user := registerTestUser(t, s, "pete", "")

	// Two distinct monthly payments, settled by racing callbacks.
	transactionIds := make([]string, 2)
	for i := range transactionIds {
		payment, err := s.InitiatePayment(ctx, user.Id, models.PaymentTypeMonthly)
		if err != nil {
			t.Fatalf("failed to initiate payment: %v", err)
		}
		qr, err := s.PaymentQRCode(ctx, payment.Id, user.Id)
		if err != nil {
			t.Fatalf("failed to create QR code: %v", err)
		}
		transactionIds[i] = qr.TransactionId
	}

	var wg sync.WaitGroup
	for _, transactionId := range transactionIds {
		wg.Add(1)
		go func(txId string) {
			defer wg.Done()
			// Effect failures under the race are left for the worker below.
			_, err := s.HandleCallback(ctx, models.PaymentCallback{
				TransactionId: txId,
				Status:        models.PaymentStatusCompleted,
			})
			if err != nil {
				t.Errorf("callback must settle the payment: %v", err)
			}
		}(transactionId)
	}
	wg.Wait()

	// Drain anything the inline path abandoned mid-race.
	worker := NewEffectWorker(s, models.WorkerConfig{
		PollingInterval: time.Second,
		CleanupInterval: time.Hour,
		RetentionWindow: time.Hour,
		MaxAttempts:     5,
		BatchSize:       100,
	})
	for i := 0; i < 5; i++ {
		worker.ProcessBatch(ctx)
	}

	pending, err := s.store.PendingEffects(ctx, 5, 10)
	if err != nil {
		t.Fatalf("failed to list pending effects: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("all effects must be applied after the drain, %d left", len(pending))
	}

	membership, err := s.CurrentMembership(ctx, user.Id)
	if err != nil {
		t.Fatalf("failed to load membership: %v", err)
	}
	if !membership.IsActive {
		t.Error("membership must be active after both settlements")
	}

	// Each settled payment contributes its 30 days exactly once.
	window := membership.EndDate.Sub(membership.StartDate)
	want := 60 * 24 * time.Hour
	if window < want-time.Second || window > want+time.Second {
		t.Errorf("expected a 60-day window from two settlements, got %v", window)
	}
}

func TestWorkerReplaysAbandonedEffects(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	referrer := registerTestUser(t, s, "hugo", "")
	referred := registerTestUser(t, s, "iris", referrer.ReferralCode)

	payment, err := s.InitiatePayment(ctx, referred.Id, models.PaymentTypeYearly)
	if err != nil {
		t.Fatalf("failed to initiate payment: %v", err)
	}
	qr, err := s.PaymentQRCode(ctx, payment.Id, referred.Id)
	if err != nil {
		t.Fatalf("failed to create QR code: %v", err)
	}

	// Settle at the store level only, as if the process died before the
	// inline effect execution ran.
	if _, _, err := s.store.SettlePayment(ctx, qr.TransactionId, models.PaymentStatusCompleted); err != nil {
		t.Fatalf("failed to settle payment: %v", err)
	}
	if _, err := s.CurrentMembership(ctx, referred.Id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("membership must not exist before replay, got %v", err)
	}

	worker := NewEffectWorker(s, models.WorkerConfig{
		PollingInterval: time.Second,
		CleanupInterval: time.Hour,
		RetentionWindow: time.Hour,
		MaxAttempts:     5,
		BatchSize:       100,
	})

	processed, failed := worker.ProcessBatch(ctx)
	if processed != 2 || failed != 0 {
		t.Fatalf("expected 2 processed effects, got processed=%d failed=%d", processed, failed)
	}

	membership, err := s.CurrentMembership(ctx, referred.Id)
	if err != nil {
		t.Fatalf("replay must create the membership: %v", err)
	}
	if !membership.IsActive {
		t.Error("membership must be active after replay")
	}

	info, err := s.ReferralInfo(ctx, referrer.Id)
	if err != nil {
		t.Fatalf("failed to load referral info: %v", err)
	}
	if !info.RewardBalance.Equal(decimal.NewFromFloat(149.5)) {
		t.Errorf("expected reward balance 149.5 after replay, got %s", info.RewardBalance.String())
	}

	// A second pass finds nothing left to do.
	processed, failed = worker.ProcessBatch(ctx)
	if processed != 0 || failed != 0 {
		t.Errorf("expected an empty second batch, got processed=%d failed=%d", processed, failed)
	}

	end := membership.EndDate
	membership, err = s.CurrentMembership(ctx, referred.Id)
	if err != nil {
		t.Fatalf("failed to reload membership: %v", err)
	}
	if !membership.EndDate.Equal(end) {
		t.Errorf("second pass must not move the end date: %v vs %v", end, membership.EndDate)
	}
}
