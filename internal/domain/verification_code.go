package domain

import "time"

type RedeemResult string

const (
	RedeemRedeemed         RedeemResult = "REDEEMED"
	RedeemAlreadyUsed      RedeemResult = "ALREADY_USED"
	RedeemNotFound         RedeemResult = "NOT_FOUND"
	RedeemExpired          RedeemResult = "EXPIRED"
	RedeemStoreUnavailable RedeemResult = "STORE_UNAVAILABLE"
)

// VerificationCode is a single-use, group-scoped secret. It flips
// used=false to used=true exactly once; under concurrent redemption of
// the same code at most one caller wins.
type VerificationCode struct {
	Code       string     `json:"code"`
	GroupID    string     `json:"group_id"`
	BatchID    string     `json:"batch_id"`
	Used       bool       `json:"used"`
	RedeemedBy *string    `json:"redeemed_by,omitempty"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
	ExpiresOn  *time.Time `json:"expires_on,omitempty"`
	CreatedOn  time.Time  `json:"created_on"`
}

type VerifyStatus string

const (
	VerifyApproved    VerifyStatus = "APPROVED"
	VerifyRejected    VerifyStatus = "REJECTED"
	VerifyUnavailable VerifyStatus = "UNAVAILABLE"
)

// VerifyOutcome is the verifier's reading of a request comment.
// Reason is set for rejections only.
type VerifyOutcome struct {
	Status VerifyStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}
