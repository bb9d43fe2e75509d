package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupgate/internal/domain"
	"groupgate/internal/repository/memory"
	"groupgate/internal/repository/remote"
	"groupgate/internal/security"
)

func TestCodeHandler_HandleRedeem(t *testing.T) {
	tokens := security.NewTokenManager("redeem-endpoint-secret")
	repo := memory.NewCodeRepository()
	require.NoError(t, repo.CreateBatch(context.Background(), []domain.VerificationCode{
		{Code: "SERVERCODE12", GroupID: "g1", CreatedOn: time.Now()},
	}))
	handler := NewCodeHandler(repo, tokens)

	token, err := tokens.IssueServiceToken("peer")
	require.NoError(t, err)

	do := func(auth, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/codes/redeem", strings.NewReader(body))
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		handler.HandleRedeem(rec, req)
		return rec
	}

	t.Run("RejectsMissingToken", func(t *testing.T) {
		rec := do("", `{"group_id":"g1","applicant_id":"u1","code":"SERVERCODE12"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RejectsBogusToken", func(t *testing.T) {
		rec := do("Bearer nonsense", `{"group_id":"g1","applicant_id":"u1","code":"SERVERCODE12"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RejectsMalformedBody", func(t *testing.T) {
		rec := do("Bearer "+token, `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("RejectsMissingFields", func(t *testing.T) {
		rec := do("Bearer "+token, `{"group_id":"g1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("RedeemsOnceThenReportsUsed", func(t *testing.T) {
		rec := do("Bearer "+token, `{"group_id":"g1","applicant_id":"u1","code":"SERVERCODE12"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp remote.RedeemResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, string(domain.RedeemRedeemed), resp.Result)

		rec = do("Bearer "+token, `{"group_id":"g1","applicant_id":"u2","code":"SERVERCODE12"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, string(domain.RedeemAlreadyUsed), resp.Result)
	})

	t.Run("UnknownCodeIsNotFound", func(t *testing.T) {
		rec := do("Bearer "+token, `{"group_id":"g1","applicant_id":"u1","code":"NOSUCHCODE34"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp remote.RedeemResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, string(domain.RedeemNotFound), resp.Result)
	})
}

// The remote client and the redeem endpoint speak the same wire format;
// run the client against the real handler end to end.
func TestCodeHandler_RoundTripWithRemoteClient(t *testing.T) {
	tokens := security.NewTokenManager("redeem-endpoint-secret")
	repo := memory.NewCodeRepository()
	require.NoError(t, repo.CreateBatch(context.Background(), []domain.VerificationCode{
		{Code: "ROUNDTRIP789", GroupID: "g1", CreatedOn: time.Now()},
	}))
	handler := NewCodeHandler(repo, tokens)

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleRedeem))
	defer srv.Close()

	client := remote.NewCodeRepository(srv.URL, time.Second, func() (string, error) {
		return tokens.IssueServiceToken("peer")
	})

	result, err := client.TryRedeem(context.Background(), "g1", "ROUNDTRIP789", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RedeemRedeemed, result)

	result, err = client.TryRedeem(context.Background(), "g1", "ROUNDTRIP789", "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.RedeemAlreadyUsed, result)
}
