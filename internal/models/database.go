package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment types accepted by the subscription flow.
const (
	PaymentTypeMonthly = "monthly"
	PaymentTypeYearly  = "yearly"
)

// Payment statuses. A payment is terminal once it leaves "pending".
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Reward statuses. Withdrawal is modeled as a ledger debit, not a reward
// status transition, so these two are the full set.
const (
	RewardStatusPending   = "pending"
	RewardStatusAvailable = "available"
)

// RewardSourceReferral is the only reward source today.
const RewardSourceReferral = "referral"

// Withdrawal statuses.
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusFailed    = "failed"
)

// User represents a platform user
type User struct {
	Id            string          `db:"id"`
	Username      string          `db:"username"`
	Email         string          `db:"email"`
	PasswordHash  string          `db:"password_hash"`
	Active        bool            `db:"active"`
	ReferralCode  string          `db:"referral_code"`
	ReferrerId    string          `db:"referrer_id"` // empty when the user was not referred
	RewardBalance decimal.Decimal `db:"reward_balance"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// Payment represents a membership payment, created pending and settled by the
// provider callback
type Payment struct {
	Id            string          `db:"id"`
	UserId        string          `db:"user_id"`
	Amount        decimal.Decimal `db:"amount"`
	PaymentType   string          `db:"payment_type"`
	TransactionId string          `db:"transaction_id"` // assigned lazily, unique once set
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// Membership represents a paid membership window. At most one row per user is
// active at any time; expiry is evaluated at read time.
type Membership struct {
	Id             string    `db:"id"`
	UserId         string    `db:"user_id"`
	MembershipType string    `db:"membership_type"`
	StartDate      time.Time `db:"start_date"`
	EndDate        time.Time `db:"end_date"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Reward represents a referral reward owed to the referrer. Opened pending with
// a zero amount at the referred user's registration, finalized to available on
// that user's first settled payment.
type Reward struct {
	Id               string          `db:"id"`
	UserId           string          `db:"user_id"` // the referrer, recipient of the reward
	Amount           decimal.Decimal `db:"amount"`
	Source           string          `db:"source"`
	RelatedUserId    string          `db:"related_user_id"`    // the referred user
	RelatedPaymentId string          `db:"related_payment_id"` // set when finalized
	Status           string          `db:"status"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// Withdrawal represents a cash-out request against the reward balance. The
// balance is debited synchronously at creation.
type Withdrawal struct {
	Id            string          `db:"id"`
	UserId        string          `db:"user_id"`
	Amount        decimal.Decimal `db:"amount"`
	PaymentMethod string          `db:"payment_method"`
	AccountInfo   string          `db:"account_info"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// RewardAccount represents current reward balance state (hot data)
type RewardAccount struct {
	Id          string          `db:"id"`
	UserId      string          `db:"user_id"`
	Balance     decimal.Decimal `db:"balance"`
	LastEntryId string          `db:"last_entry_id"`
	Version     int64           `db:"version"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Reward ledger entry types.
const (
	EntryTypeCredit = "credit"
	EntryTypeDebit  = "debit"
)

// RewardEntry represents an immutable reward ledger entry (cold data). The sum
// of all entry amounts for a user equals the user's current reward balance.
type RewardEntry struct {
	Id            string          `db:"id"`
	UserId        string          `db:"user_id"`
	EntryType     string          `db:"entry_type"`
	Amount        decimal.Decimal `db:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	Reference     string          `db:"reference"` // unique external reference, e.g. reward or withdrawal id
	Note          string          `db:"note"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Settlement effect types.
const (
	EffectExtendMembership = "extend_membership"
	EffectFinalizeReward   = "finalize_reward"
)

// Settlement effect statuses.
const (
	EffectStatusPending   = "pending"
	EffectStatusCompleted = "completed"
)

// SettlementEffect is an outbox row for a downstream effect of a completed
// payment. It is enqueued in the same database transaction that flips the
// payment status and is executed at least once afterwards.
type SettlementEffect struct {
	Id         string    `db:"id"`
	PaymentId  string    `db:"payment_id"`
	UserId     string    `db:"user_id"`
	EffectType string    `db:"effect_type"`
	Status     string    `db:"status"`
	Attempts   int       `db:"attempts"`
	LastError  string    `db:"last_error"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}
