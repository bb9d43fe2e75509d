package memory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"groupgate/internal/domain"
	"groupgate/internal/repository"
)

// codeRepository is the in-process code store used for development and
// tests. The mutex guards only map access; no call blocks while holding
// it, so the check-and-set stays a short critical section per the redeem
// contract.
type codeRepository struct {
	mu    sync.Mutex
	codes map[codeID]*domain.VerificationCode
}

type codeID struct {
	groupID string
	code    string
}

func NewCodeRepository() repository.CodeRepository {
	return &codeRepository{codes: make(map[codeID]*domain.VerificationCode)}
}

func (r *codeRepository) TryRedeem(ctx context.Context, groupID, code, applicantID string) (domain.RedeemResult, error) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[codeID{groupID, code}]
	if !ok {
		return domain.RedeemNotFound, nil
	}
	if c.Used {
		return domain.RedeemAlreadyUsed, nil
	}
	if c.ExpiresOn != nil && !c.ExpiresOn.After(now) {
		return domain.RedeemExpired, nil
	}
	c.Used = true
	c.RedeemedBy = &applicantID
	c.RedeemedAt = &now
	return domain.RedeemRedeemed, nil
}

func (r *codeRepository) CreateBatch(ctx context.Context, codes []domain.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range codes {
		c := codes[i]
		r.codes[codeID{c.GroupID, c.Code}] = &c
	}
	return nil
}

func (r *codeRepository) GetByCode(ctx context.Context, groupID, code string) (*domain.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[codeID{groupID, code}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *c
	return &out, nil
}

func (r *codeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, c := range r.codes {
		if !c.Used && c.ExpiresOn != nil && !c.ExpiresOn.After(before) {
			delete(r.codes, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *codeRepository) CountByGroup(ctx context.Context, groupID string) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total, unused int64
	for id, c := range r.codes {
		if id.groupID != groupID {
			continue
		}
		total++
		if !c.Used {
			unused++
		}
	}
	return total, unused, nil
}
