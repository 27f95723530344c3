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

package config

import (
	"fmt"
	"os"
	"time"

	"membership-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Plan describes one purchasable membership tier.
type Plan struct {
	Type         string
	Price        decimal.Decimal
	Duration     time.Duration
	DurationDays int
}

// Plans holds the purchasable tiers and the referral payout rate.
type Plans struct {
	ReferralRate decimal.Decimal
	ByType       map[string]Plan
}

type plansFile struct {
	ReferralRate string `yaml:"referral_rate"`
	Plans        []struct {
		Type         string `yaml:"type"`
		Price        string `yaml:"price"`
		DurationDays int    `yaml:"duration_days"`
	} `yaml:"plans"`
}

// defaultPlans mirrors the long-standing pricing: 29.9 for a 30-day monthly
// plan, 299.0 for a 365-day yearly plan, referrers paid half the price.
func defaultPlans() *Plans {
	return &Plans{
		ReferralRate: decimal.NewFromFloat(0.5),
		ByType: map[string]Plan{
			models.PaymentTypeMonthly: {
				Type:         models.PaymentTypeMonthly,
				Price:        decimal.NewFromFloat(29.9),
				Duration:     30 * 24 * time.Hour,
				DurationDays: 30,
			},
			models.PaymentTypeYearly: {
				Type:         models.PaymentTypeYearly,
				Price:        decimal.NewFromFloat(299.0),
				Duration:     365 * 24 * time.Hour,
				DurationDays: 365,
			},
		},
	}
}

// LoadPlans reads the plan catalog from a YAML file, falling back to the
// built-in defaults when the file is absent.
func LoadPlans(path string) (*Plans, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("plans file not found, using defaults", zap.String("path", path))
			return defaultPlans(), nil
		}
		return nil, fmt.Errorf("failed to read plans file %s: %w", path, err)
	}

	var file plansFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plans file %s: %w", path, err)
	}

	rate, err := decimal.NewFromString(file.ReferralRate)
	if err != nil {
		return nil, fmt.Errorf("invalid referral rate %q: %w", file.ReferralRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("referral rate must be within [0, 1], got %s", rate.String())
	}

	plans := &Plans{
		ReferralRate: rate,
		ByType:       make(map[string]Plan, len(file.Plans)),
	}

	for _, p := range file.Plans {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for plan %s: %w", p.Price, p.Type, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("price for plan %s must be positive, got %s", p.Type, price.String())
		}
		if p.DurationDays <= 0 {
			return nil, fmt.Errorf("duration for plan %s must be positive, got %d days", p.Type, p.DurationDays)
		}
		plans.ByType[p.Type] = Plan{
			Type:         p.Type,
			Price:        price,
			Duration:     time.Duration(p.DurationDays) * 24 * time.Hour,
			DurationDays: p.DurationDays,
		}
	}

	if len(plans.ByType) == 0 {
		return nil, fmt.Errorf("plans file %s defines no plans", path)
	}

	return plans, nil
}

// Get returns the plan for a membership type.
func (p *Plans) Get(membershipType string) (Plan, bool) {
	plan, ok := p.ByType[membershipType]
	return plan, ok
}
