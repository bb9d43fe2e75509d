package service

import (
	"context"

	"groupgate/internal/domain"
)

// Verifier resolves a request comment to a verification outcome by
// redeeming the embedded code against the code store.
type Verifier interface {
	Verify(ctx context.Context, groupID, applicantID, comment string) domain.VerifyOutcome
}

// PolicyEngine runs the ordered decision procedure once per join
// request. Implementations must be safe for concurrent use.
type PolicyEngine interface {
	Decide(ctx context.Context, req *domain.JoinRequest) domain.Decision
}

// NotifyService hands deferred requests to a human moderator.
type NotifyService interface {
	NotifyDeferred(ctx context.Context, req *domain.JoinRequest, reason string) error
}

// ProvisionService mints batches of verification codes.
type ProvisionService interface {
	MintBatch(ctx context.Context, groupID string, count int, ttlDays int) (string, []domain.VerificationCode, error)
}
