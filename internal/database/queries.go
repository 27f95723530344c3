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

package database

const (
	// User queries
	queryInsertUser = `
		INSERT INTO users (id, username, email, password_hash, referral_code, referrer_id)
		VALUES (?, ?, ?, ?, ?, ?)`

	querySelectUser = `
		SELECT u.id, u.username, u.email, u.password_hash, u.active,
		       u.referral_code, COALESCE(u.referrer_id, ''),
		       COALESCE(a.balance, '0'),
		       u.created_at, u.updated_at
		FROM users u
		LEFT JOIN reward_accounts a ON a.user_id = u.id`

	queryGetUserById = querySelectUser + `
		WHERE u.id = ? AND u.active = 1`

	queryGetUserByUsername = querySelectUser + `
		WHERE u.username = ? AND u.active = 1`

	queryGetUserByReferralCode = querySelectUser + `
		WHERE u.referral_code = ? AND u.active = 1`

	queryGetActiveUsers = querySelectUser + `
		WHERE u.active = 1
		ORDER BY u.created_at`

	queryGetReferrerId = `
		SELECT referrer_id FROM users WHERE id = ?`

	// Payment queries
	queryInsertPayment = `
		INSERT INTO payments (id, user_id, amount, payment_type, transaction_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', ?, ?, ?)`

	querySelectPayment = `
		SELECT id, user_id, amount, payment_type, COALESCE(transaction_id, ''), status, created_at, updated_at
		FROM payments`

	queryGetPaymentById = querySelectPayment + `
		WHERE id = ?`

	queryGetPaymentByTransactionId = querySelectPayment + `
		WHERE transaction_id = ?`

	queryGetPaymentForUser = querySelectPayment + `
		WHERE id = ? AND user_id = ?`

	queryAttachTransactionId = `
		UPDATE payments
		SET transaction_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND status = 'pending' AND transaction_id = ''`

	querySettlePayment = `
		UPDATE payments
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`

	// Membership queries
	queryGetActiveMembership = `
		SELECT id, user_id, membership_type, start_date, end_date, is_active, created_at, updated_at
		FROM memberships
		WHERE user_id = ? AND is_active = 1`

	queryExtendMembership = `
		UPDATE memberships
		SET end_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_active = 1`

	queryDeactivateMembership = `
		UPDATE memberships
		SET is_active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_active = 1`

	queryInsertMembership = `
		INSERT INTO memberships (id, user_id, membership_type, start_date, end_date, is_active)
		VALUES (?, ?, ?, ?, ?, 1)`

	// Reward queries
	queryInsertReward = `
		INSERT INTO rewards (id, user_id, amount, source, related_user_id, related_payment_id, status)
		VALUES (?, ?, ?, ?, ?, '', ?)`

	queryGetPendingRewardForPair = `
		SELECT id FROM rewards
		WHERE user_id = ? AND related_user_id = ? AND status = 'pending'
		LIMIT 1`

	queryFinalizeReward = `
		UPDATE rewards
		SET status = 'available', amount = ?, related_payment_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`

	queryGetRewardById = `
		SELECT id, user_id, amount, source, related_user_id, COALESCE(related_payment_id, ''), status, created_at, updated_at
		FROM rewards
		WHERE id = ?`

	queryGetRewardsByUser = `
		SELECT id, user_id, amount, source, related_user_id, COALESCE(related_payment_id, ''), status, created_at, updated_at
		FROM rewards
		WHERE user_id = ?
		ORDER BY created_at DESC`

	// Withdrawal queries
	queryInsertWithdrawal = `
		INSERT INTO withdrawals (id, user_id, amount, payment_method, account_info, status)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetWithdrawalById = `
		SELECT id, user_id, amount, payment_method, account_info, status, created_at, updated_at
		FROM withdrawals
		WHERE id = ?`

	queryGetWithdrawalsByUser = `
		SELECT id, user_id, amount, payment_method, account_info, status, created_at, updated_at
		FROM withdrawals
		WHERE user_id = ?
		ORDER BY created_at`

	queryUpdateWithdrawalStatus = `
		UPDATE withdrawals
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	// Reward ledger queries
	queryCheckDuplicateEntry = `
		SELECT id FROM reward_entries WHERE reference = ? LIMIT 1`

	queryGetRewardAccount = `
		SELECT id, balance, version
		FROM reward_accounts
		WHERE user_id = ?`

	queryInsertRewardAccount = `
		INSERT INTO reward_accounts (id, user_id, balance, version)
		VALUES (?, ?, ?, ?)`

	queryUpdateRewardAccount = `
		UPDATE reward_accounts
		SET balance = ?, last_entry_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND version = ?`

	queryInsertRewardEntry = `
		INSERT INTO reward_entries (
			id, user_id, entry_type, amount, balance_before, balance_after, reference, note, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetRewardBalance = `
		SELECT balance
		FROM reward_accounts
		WHERE user_id = ?`

	queryGetRewardEntries = `
		SELECT id, user_id, entry_type, amount, balance_before, balance_after, reference, note, created_at
		FROM reward_entries
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	queryReconcileRewardBalance = `
		SELECT amount
		FROM reward_entries
		WHERE user_id = ?`

	// Settlement outbox queries
	queryInsertEffect = `
		INSERT INTO settlement_effects (id, payment_id, user_id, effect_type, status)
		VALUES (?, ?, ?, ?, 'pending')`

	queryCompleteEffect = `
		UPDATE settlement_effects
		SET status = 'completed', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`

	queryGetPendingEffects = `
		SELECT id, payment_id, user_id, effect_type, status, attempts, COALESCE(last_error, ''), created_at, updated_at
		FROM settlement_effects
		WHERE status = 'pending' AND attempts < ?
		ORDER BY created_at
		LIMIT ?`

	queryMarkEffectFailed = `
		UPDATE settlement_effects
		SET attempts = attempts + 1, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	queryPurgeCompletedEffects = `
		DELETE FROM settlement_effects
		WHERE status = 'completed' AND updated_at < ?`
)
