package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	"groupgate/internal/domain"
	"groupgate/internal/repository"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	codeLength   = 16
)

type provisionService struct {
	codeRepo repository.CodeRepository
}

func NewProvisionService(codeRepo repository.CodeRepository) ProvisionService {
	return &provisionService{codeRepo: codeRepo}
}

// MintBatch creates count single-use codes scoped to groupID, all
// tagged with one batch ID. ttlDays <= 0 means the codes never expire.
func (s *provisionService) MintBatch(ctx context.Context, groupID string, count int, ttlDays int) (string, []domain.VerificationCode, error) {
	if groupID == "" {
		return "", nil, fmt.Errorf("group id is required")
	}
	if count <= 0 {
		return "", nil, fmt.Errorf("code count must be positive: %d", count)
	}

	batchID := uuid.New().String()
	now := time.Now()
	var expiresOn *time.Time
	if ttlDays > 0 {
		t := now.AddDate(0, 0, ttlDays)
		expiresOn = &t
	}

	codes := make([]domain.VerificationCode, 0, count)
	for i := 0; i < count; i++ {
		code, err := randomCode()
		if err != nil {
			return "", nil, fmt.Errorf("failed to generate code: %w", err)
		}
		codes = append(codes, domain.VerificationCode{
			Code:      code,
			GroupID:   groupID,
			BatchID:   batchID,
			ExpiresOn: expiresOn,
			CreatedOn: now,
		})
	}

	if err := s.codeRepo.CreateBatch(ctx, codes); err != nil {
		return "", nil, err
	}
	return batchID, codes, nil
}

// randomCode draws an unguessable alphanumeric token that the verifier's
// extraction pattern will recognize. Lookalike characters are left out
// of the alphabet since applicants type these by hand.
func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}
