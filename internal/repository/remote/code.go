package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"groupgate/internal/domain"
	"groupgate/internal/logger"
	"groupgate/internal/repository"
)

// RedeemRequest is the wire shape of a redeem call against a remote
// groupgate code API.
type RedeemRequest struct {
	GroupID     string `json:"group_id"`
	ApplicantID string `json:"applicant_id"`
	Code        string `json:"code"`
}

// RedeemResponse mirrors the server's reply; Result carries one of the
// domain.RedeemResult values.
type RedeemResponse struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// TokenSource supplies the bearer token presented to the remote API.
type TokenSource func() (string, error)

// codeRepository redeems codes against a remote code API. Only
// TryRedeem is served; provisioning and retention stay with the
// instance that owns the backing store.
type codeRepository struct {
	endpoint string
	client   *http.Client
	token    TokenSource
}

func NewCodeRepository(endpoint string, timeout time.Duration, token TokenSource) repository.CodeRepository {
	return &codeRepository{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		token:    token,
	}
}

// TryRedeem issues a single POST; the server side performs the atomic
// check-and-set. Any transport failure, including a timeout, is
// RedeemStoreUnavailable — a code must never look invalid just because
// the store could not be reached.
func (r *codeRepository) TryRedeem(ctx context.Context, groupID, code, applicantID string) (domain.RedeemResult, error) {
	logger.StoreCall("remote", "TryRedeem", "group_id", groupID)
	result, err := r.tryRedeem(ctx, groupID, code, applicantID)
	logger.StoreResult("remote", "TryRedeem", err, "result", string(result))
	return result, err
}

func (r *codeRepository) tryRedeem(ctx context.Context, groupID, code, applicantID string) (domain.RedeemResult, error) {
	body, err := json.Marshal(RedeemRequest{
		GroupID:     groupID,
		ApplicantID: applicantID,
		Code:        code,
	})
	if err != nil {
		return domain.RedeemStoreUnavailable, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.RedeemStoreUnavailable, err
	}
	req.Header.Set("Content-Type", "application/json")

	tok, err := r.token()
	if err != nil {
		return domain.RedeemStoreUnavailable, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.RedeemStoreUnavailable, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.RedeemStoreUnavailable, fmt.Errorf("code store endpoint returned status %d", resp.StatusCode)
	}

	var out RedeemResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.RedeemStoreUnavailable, fmt.Errorf("malformed code store response: %w", err)
	}

	switch domain.RedeemResult(out.Result) {
	case domain.RedeemRedeemed:
		return domain.RedeemRedeemed, nil
	case domain.RedeemAlreadyUsed:
		return domain.RedeemAlreadyUsed, nil
	case domain.RedeemNotFound:
		return domain.RedeemNotFound, nil
	case domain.RedeemExpired:
		return domain.RedeemExpired, nil
	default:
		return domain.RedeemStoreUnavailable, fmt.Errorf("unknown redeem result %q", out.Result)
	}
}

func (r *codeRepository) CreateBatch(ctx context.Context, codes []domain.VerificationCode) error {
	return repository.ErrUnsupported
}

func (r *codeRepository) GetByCode(ctx context.Context, groupID, code string) (*domain.VerificationCode, error) {
	return nil, repository.ErrUnsupported
}

func (r *codeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, repository.ErrUnsupported
}

func (r *codeRepository) CountByGroup(ctx context.Context, groupID string) (int64, int64, error) {
	return 0, 0, repository.ErrUnsupported
}
