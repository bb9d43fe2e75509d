package repository

import (
	"context"
	"errors"
	"time"

	"groupgate/internal/domain"
)

// ErrUnsupported is returned by backends that do not serve a given
// operation (the remote client only redeems).
var ErrUnsupported = errors.New("operation not supported by this code store backend")

// CodeRepository is the verification-code store. TryRedeem is the one
// operation the decision pipeline needs; the rest serve provisioning and
// the retention jobs.
//
// TryRedeem must be atomic per (groupID, code): under concurrent calls
// exactly one caller observes RedeemRedeemed. A failure to reach the
// backing store yields RedeemStoreUnavailable together with the
// underlying error; it must never be reported as RedeemNotFound.
type CodeRepository interface {
	TryRedeem(ctx context.Context, groupID, code, applicantID string) (domain.RedeemResult, error)
	CreateBatch(ctx context.Context, codes []domain.VerificationCode) error
	GetByCode(ctx context.Context, groupID, code string) (*domain.VerificationCode, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	CountByGroup(ctx context.Context, groupID string) (total, unused int64, err error)
}
