package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/smartcheck/gatepass/internal/service"
)

// Scan processes one gate crossing attempt.
func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request) {
	var req service.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	res, err := h.gateService.ProcessScan(r.Context(), principal(r), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EmergencyExit releases a visitor without OTP verification.
func (h *Handlers) EmergencyExit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PassCode string `json:"pass_code"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	res, err := h.gateService.EmergencyExit(r.Context(), principal(r), req.PassCode, req.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PassTrail lists the gate history for a pass.
func (h *Handlers) PassTrail(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	trail, err := h.gateService.Trail(r.Context(), chi.URLParam(r, "code"), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trail": trail})
}
