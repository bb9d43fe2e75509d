package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupgate/internal/domain"
)

func seedCode(t *testing.T, repo *codeRepository, code string, expiresOn *time.Time) {
	t.Helper()
	require.NoError(t, repo.CreateBatch(context.Background(), []domain.VerificationCode{
		{Code: code, GroupID: "g1", BatchID: "b1", ExpiresOn: expiresOn, CreatedOn: time.Now()},
	}))
}

func TestCodeRepository_TryRedeem(t *testing.T) {
	ctx := context.Background()

	t.Run("RedeemOnce", func(t *testing.T) {
		repo := NewCodeRepository().(*codeRepository)
		seedCode(t, repo, "CODEAAAA1111", nil)

		result, err := repo.TryRedeem(ctx, "g1", "CODEAAAA1111", "u1")
		require.NoError(t, err)
		assert.Equal(t, domain.RedeemRedeemed, result)

		stored, err := repo.GetByCode(ctx, "g1", "CODEAAAA1111")
		require.NoError(t, err)
		assert.True(t, stored.Used)
		require.NotNil(t, stored.RedeemedBy)
		assert.Equal(t, "u1", *stored.RedeemedBy)

		result, err = repo.TryRedeem(ctx, "g1", "CODEAAAA1111", "u2")
		require.NoError(t, err)
		assert.Equal(t, domain.RedeemAlreadyUsed, result)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := NewCodeRepository()
		result, err := repo.TryRedeem(ctx, "g1", "MISSING12345", "u1")
		require.NoError(t, err)
		assert.Equal(t, domain.RedeemNotFound, result)
	})

	t.Run("WrongGroupIsNotFound", func(t *testing.T) {
		repo := NewCodeRepository().(*codeRepository)
		seedCode(t, repo, "CODEBBBB2222", nil)

		result, err := repo.TryRedeem(ctx, "other-group", "CODEBBBB2222", "u1")
		require.NoError(t, err)
		assert.Equal(t, domain.RedeemNotFound, result)
	})

	t.Run("Expired", func(t *testing.T) {
		repo := NewCodeRepository().(*codeRepository)
		past := time.Now().Add(-time.Minute)
		seedCode(t, repo, "CODECCCC3333", &past)

		result, err := repo.TryRedeem(ctx, "g1", "CODECCCC3333", "u1")
		require.NoError(t, err)
		assert.Equal(t, domain.RedeemExpired, result)
	})

	// Concurrent redemption of one code: exactly one caller wins, no
	// matter how many race for it.
	t.Run("ConcurrentRedeemExactlyOneWinner", func(t *testing.T) {
		repo := NewCodeRepository().(*codeRepository)
		seedCode(t, repo, "HOTCODE99999", nil)

		const n = 64
		results := make([]domain.RedeemResult, n)
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				r, err := repo.TryRedeem(ctx, "g1", "HOTCODE99999", "applicant")
				assert.NoError(t, err)
				results[i] = r
			}(i)
		}
		wg.Wait()

		var redeemed, used int
		for _, r := range results {
			switch r {
			case domain.RedeemRedeemed:
				redeemed++
			case domain.RedeemAlreadyUsed:
				used++
			}
		}
		assert.Equal(t, 1, redeemed)
		assert.Equal(t, n-1, used)
	})
}

func TestCodeRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewCodeRepository().(*codeRepository)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	seedCode(t, repo, "EXPIRED11111", &past)
	seedCode(t, repo, "EXPIRED22222", &past)
	seedCode(t, repo, "CURRENT33333", &future)
	seedCode(t, repo, "FOREVER44444", nil)

	// A redeemed code stays even when its expiry passes.
	seedCode(t, repo, "USEDOLD55555", &past)
	repo.mu.Lock()
	repo.codes[codeID{"g1", "USEDOLD55555"}].Used = true
	repo.mu.Unlock()

	deleted, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = repo.GetByCode(ctx, "g1", "EXPIRED11111")
	assert.Error(t, err)
	_, err = repo.GetByCode(ctx, "g1", "CURRENT33333")
	assert.NoError(t, err)
	_, err = repo.GetByCode(ctx, "g1", "USEDOLD55555")
	assert.NoError(t, err)
}

func TestCodeRepository_CountByGroup(t *testing.T) {
	ctx := context.Background()
	repo := NewCodeRepository().(*codeRepository)

	seedCode(t, repo, "COUNT1111111", nil)
	seedCode(t, repo, "COUNT2222222", nil)
	require.NoError(t, repo.CreateBatch(ctx, []domain.VerificationCode{
		{Code: "OTHERGROUP11", GroupID: "g2", CreatedOn: time.Now()},
	}))

	_, err := repo.TryRedeem(ctx, "g1", "COUNT1111111", "u1")
	require.NoError(t, err)

	total, unused, err := repo.CountByGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), unused)
}
