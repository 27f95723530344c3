package store

import (
	"context"
	"errors"
	"time"

	"membership-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("record not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInsufficientBalance    = errors.New("insufficient reward balance")
	ErrConflict               = errors.New("record is no longer mutable")
	ErrDuplicateEntry         = errors.New("duplicate ledger entry")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// CreateUserParams contains the parameters for registering a user.
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	ReferrerId   string // resolved from a referral code, empty when not referred
}

// CreatePaymentParams contains the parameters for a new pending payment.
type CreatePaymentParams struct {
	UserId      string
	Amount      decimal.Decimal
	PaymentType string
}

// ExtendMembershipParams drives the extend-or-create rule. EffectId, when set,
// ties the mutation to an outbox row: the effect is completed in the same
// transaction, and a replay of an already-completed effect becomes a no-op.
type ExtendMembershipParams struct {
	UserId         string
	MembershipType string
	Duration       time.Duration
	EffectId       string
}

// FinalizeRewardParams flips a pending referral reward to available and
// credits the referrer's ledger in one transaction.
type FinalizeRewardParams struct {
	ReferrerId     string
	ReferredUserId string
	PaymentId      string
	Amount         decimal.Decimal
	EffectId       string
}

// CreateWithdrawalParams contains the parameters for a withdrawal request.
type CreateWithdrawalParams struct {
	UserId        string
	Amount        decimal.Decimal
	PaymentMethod string
	AccountInfo   string
}

// LedgerStore defines the contract the billing core depends on. The SQLite
// backend in internal/database is the only implementation today.
type LedgerStore interface {
	// --- Users ---
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)

	// --- Payments ---
	CreatePayment(ctx context.Context, params CreatePaymentParams) (*models.Payment, error)
	GetPaymentById(ctx context.Context, paymentId string) (*models.Payment, error)
	GetPaymentByTransactionId(ctx context.Context, transactionId string) (*models.Payment, error)
	GetPaymentForUser(ctx context.Context, paymentId, userId string) (*models.Payment, error)
	// AttachTransactionId assigns a transaction id to a pending payment owned
	// by userId, or returns the previously assigned id (idempotent).
	AttachTransactionId(ctx context.Context, paymentId, userId, transactionId string) (string, error)
	// SettlePayment atomically moves a pending payment to a terminal status and,
	// on completion, enqueues the downstream effects in the same transaction.
	// A payment that is unknown or no longer pending returns ErrNotFound.
	SettlePayment(ctx context.Context, transactionId, status string) (*models.Payment, []models.SettlementEffect, error)

	// --- Memberships ---
	GetActiveMembership(ctx context.Context, userId string) (*models.Membership, error)
	ExtendOrCreateMembership(ctx context.Context, params ExtendMembershipParams) (*models.Membership, error)

	// --- Rewards ---
	OpenPendingReward(ctx context.Context, referrerId, referredUserId string) (*models.Reward, error)
	// FinalizeReward returns (nil, nil) when no pending reward exists for the
	// referrer/referred pair: a replayed or never-opened finalize is a no-op.
	FinalizeReward(ctx context.Context, params FinalizeRewardParams) (*models.Reward, error)
	GetRewardsByUser(ctx context.Context, userId string) ([]models.Reward, error)

	// --- Withdrawals ---
	CreateWithdrawal(ctx context.Context, params CreateWithdrawalParams) (*models.Withdrawal, error)
	GetWithdrawalsByUser(ctx context.Context, userId string) ([]models.Withdrawal, error)
	UpdateWithdrawalStatus(ctx context.Context, withdrawalId, status string) error
	// ReverseWithdrawal writes a compensating credit for a failed withdrawal.
	// Operator action only; never invoked automatically.
	ReverseWithdrawal(ctx context.Context, withdrawalId string) error

	// --- Reward ledger ---
	GetRewardBalance(ctx context.Context, userId string) (decimal.Decimal, error)
	GetRewardEntries(ctx context.Context, userId string, limit, offset int) ([]models.RewardEntry, error)
	ReconcileRewardBalance(ctx context.Context, userId string) error

	// --- Settlement outbox ---
	PendingEffects(ctx context.Context, maxAttempts, limit int) ([]models.SettlementEffect, error)
	MarkEffectFailed(ctx context.Context, effectId, message string) error
	PurgeCompletedEffects(ctx context.Context, olderThan time.Time) (int64, error)

	// --- Lifecycle ---
	Close()
}
