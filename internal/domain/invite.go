package domain

import (
	"fmt"
	"net/url"
)

// ─── Referral Types ─────────────────────────────────────────────────────────
// Invite attribution is owned by the ledger; the client builds the personal
// link and reports claims.

// ReferralInfo tracks a user's referral status as reported by the ledger.
type ReferralInfo struct {
	Code       string `json:"code"`
	ReferredBy string `json:"referred_by"` // empty if organic
	Count      int    `json:"count"`
}

// InviteClaim is the payload of POST /invite/claim.
type InviteClaim struct {
	InviterTID string `json:"inviter_tid"`
	InviteeTID string `json:"invitee_tid"`
}

// InviteLink builds the personal Mini App invite link for a user.
// Format: https://t.me/<bot>/<app>?startapp=<telegram id>.
func InviteLink(botUsername, appName, telegramID string) string {
	base := fmt.Sprintf("https://t.me/%s/%s", botUsername, appName)
	if telegramID == "" {
		return base
	}
	return base + "?startapp=" + url.QueryEscape(telegramID)
}

// ─── Withdrawal Types ───────────────────────────────────────────────────────

// WithdrawalStatus is the server-side state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// Withdrawal is a request to convert points into tokens, owned entirely by
// the ledger; the client only creates and lists them.
type Withdrawal struct {
	ID        string           `json:"id"`
	Tokens    int64            `json:"tokens"`
	Status    WithdrawalStatus `json:"status"`
	CreatedAt int64            `json:"created_at"`
}
