package billing

import (
	"context"

	"membership-ledger-go/internal/models"
)

// ListRewards returns the caller's rewards, newest first.
func (s *Service) ListRewards(ctx context.Context, userId string) ([]models.Reward, error) {
	return s.store.GetRewardsByUser(ctx, userId)
}

// ReferralInfo reports the caller's referral code, the payout rate and the
// current reward balance.
func (s *Service) ReferralInfo(ctx context.Context, userId string) (*models.ReferralInfo, error) {
	user, err := s.store.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}

	balance, err := s.store.GetRewardBalance(ctx, userId)
	if err != nil {
		return nil, err
	}

	return &models.ReferralInfo{
		ReferralCode:  user.ReferralCode,
		ReferralRate:  s.plans.ReferralRate,
		RewardBalance: balance,
	}, nil
}

// RewardEntries returns the caller's reward ledger entries, newest first.
func (s *Service) RewardEntries(ctx context.Context, userId string, limit, offset int) ([]models.RewardEntry, error) {
	return s.store.GetRewardEntries(ctx, userId, limit, offset)
}
