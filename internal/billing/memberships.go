package billing

import (
	"context"
	"time"

	"membership-ledger-go/internal/models"
)

// CurrentMembership reports the caller's membership. Expiry is evaluated at
// read time: a stored active row whose window has passed is reported inactive.
func (s *Service) CurrentMembership(ctx context.Context, userId string) (*models.Membership, error) {
	membership, err := s.store.GetActiveMembership(ctx, userId)
	if err != nil {
		return nil, err
	}

	if !membership.EndDate.After(time.Now().UTC()) {
		membership.IsActive = false
	}
	return membership, nil
}
