package http

import (
	"encoding/json"
	"net/http"

	"groupgate/internal/domain"
	"groupgate/internal/logger"
	"groupgate/internal/repository"
	"groupgate/internal/security"
	"groupgate/internal/service"
)

// AdminHandler serves code provisioning and inventory queries. Access
// is gated by a shared secret checked against the bcrypt hash from
// configuration.
type AdminHandler struct {
	provision  service.ProvisionService
	codeRepo   repository.CodeRepository
	secretHash string
}

func NewAdminHandler(provision service.ProvisionService, codeRepo repository.CodeRepository, secretHash string) *AdminHandler {
	return &AdminHandler{
		provision:  provision,
		codeRepo:   codeRepo,
		secretHash: secretHash,
	}
}

type mintRequest struct {
	GroupID string `json:"group_id"`
	Count   int    `json:"count"`
	TTLDays int    `json:"ttl_days"`
}

type mintResponse struct {
	BatchID string   `json:"batch_id"`
	GroupID string   `json:"group_id"`
	Codes   []string `json:"codes"`
}

type statsResponse struct {
	GroupID string `json:"group_id"`
	Total   int64  `json:"total"`
	Unused  int64  `json:"unused"`
}

func (h *AdminHandler) HandleMintCodes(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	batchID, codes, err := h.provision.MintBatch(r.Context(), req.GroupID, req.Count, req.TTLDays)
	if err != nil {
		logger.Error("Code provisioning failed", "group_id", req.GroupID, "count", req.Count, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out := mintResponse{BatchID: batchID, GroupID: req.GroupID, Codes: codeStrings(codes)}
	writeJSON(w, http.StatusCreated, out)
}

func (h *AdminHandler) HandleCodeStats(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	groupID := r.URL.Query().Get("group_id")
	if groupID == "" {
		http.Error(w, "group_id is required", http.StatusBadRequest)
		return
	}

	total, unused, err := h.codeRepo.CountByGroup(r.Context(), groupID)
	if err != nil {
		logger.Error("Code stats query failed", "group_id", groupID, "error", err)
		http.Error(w, "code store unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{GroupID: groupID, Total: total, Unused: unused})
}

func (h *AdminHandler) authorized(r *http.Request) bool {
	return security.VerifyAdminSecret(h.secretHash, r.Header.Get("X-Admin-Secret")) == nil
}

func codeStrings(codes []domain.VerificationCode) []string {
	out := make([]string, 0, len(codes))
	for i := range codes {
		out = append(out, codes[i].Code)
	}
	return out
}
