package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"groupgate/internal/domain"
	"groupgate/internal/logger"
	"groupgate/internal/repository"
	"groupgate/internal/repository/remote"
	"groupgate/internal/security"
)

// CodeHandler serves the remote code-store API: the server half of the
// repository/remote client. The redeem itself stays atomic because the
// backing repository performs the check-and-set.
type CodeHandler struct {
	codeRepo repository.CodeRepository
	tokens   security.TokenManager
}

func NewCodeHandler(codeRepo repository.CodeRepository, tokens security.TokenManager) *CodeHandler {
	return &CodeHandler{
		codeRepo: codeRepo,
		tokens:   tokens,
	}
}

func (h *CodeHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req remote.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.GroupID == "" || req.Code == "" || req.ApplicantID == "" {
		http.Error(w, "group_id, applicant_id and code are required", http.StatusBadRequest)
		return
	}

	result, err := h.codeRepo.TryRedeem(r.Context(), req.GroupID, req.Code, req.ApplicantID)
	if result == domain.RedeemStoreUnavailable {
		logger.Error("Redeem failed against backing store",
			"group_id", req.GroupID, "applicant_id", req.ApplicantID, "error", err)
		http.Error(w, "code store unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, remote.RedeemResponse{
		Result:  string(result),
		Message: redeemMessage(result),
	})
}

func (h *CodeHandler) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || tok == "" {
		return false
	}
	_, err := h.tokens.ValidateServiceToken(tok)
	return err == nil
}

func redeemMessage(result domain.RedeemResult) string {
	switch result {
	case domain.RedeemRedeemed:
		return "code redeemed"
	case domain.RedeemAlreadyUsed:
		return "code already used"
	case domain.RedeemExpired:
		return "code expired"
	case domain.RedeemNotFound:
		return "code invalid"
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
