package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/internal/service"
)

// CreatePass registers a new visitor pass.
func (h *Handlers) CreatePass(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	p, err := h.passService.Create(r.Context(), principal(r), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p.Snapshot())
}

func (h *Handlers) GetPass(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pass id", "INVALID_INPUT")
		return
	}

	p, err := h.passService.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

func (h *Handlers) GetPassByCode(w http.ResponseWriter, r *http.Request) {
	p, err := h.passService.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// ListPasses supports the admin dashboard filters.
func (h *Handlers) ListPasses(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePassFilter(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	snapshots, err := h.passService.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"passes": snapshots,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func parsePassFilter(r *http.Request) (domain.PassFilter, error) {
	q := r.URL.Query()
	filter := domain.PassFilter{
		Category:  q.Get("category"),
		Search:    q.Get("search"),
		CreatedBy: q.Get("created_by"),
	}
	filter.Limit, filter.Offset = parsePagination(r)

	if raw := q.Get("status"); raw != "" {
		st, ok := domain.ParsePassStatus(raw)
		if !ok {
			return filter, domain.ConfigurationErr("unknown status filter")
		}
		filter.Status = &st
	}
	if raw := q.Get("pass_type"); raw != "" {
		pt, ok := domain.ParsePassType(raw)
		if !ok {
			return filter, domain.ConfigurationErr("unknown pass_type filter")
		}
		filter.PassType = &pt
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, domain.ConfigurationErr("from must be YYYY-MM-DD")
		}
		filter.FromDate = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, domain.ConfigurationErr("to must be YYYY-MM-DD")
		}
		filter.ToDate = &t
	}
	if raw := q.Get("inside"); raw != "" {
		inside := raw == "true" || raw == "1"
		filter.Inside = &inside
	}
	return filter, nil
}

// UpdatePass edits the visitor details on a pass still awaiting review.
func (h *Handlers) UpdatePass(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pass id", "INVALID_INPUT")
		return
	}

	var req domain.UpdatePassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	p, err := h.passService.Update(r.Context(), principal(r), id, req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

func (h *Handlers) ApprovePass(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pass id", "INVALID_INPUT")
		return
	}

	p, err := h.passService.Approve(r.Context(), principal(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

func (h *Handlers) RejectPass(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pass id", "INVALID_INPUT")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	p, err := h.passService.Reject(r.Context(), principal(r), id, body.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

func (h *Handlers) ReschedulePass(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pass id", "INVALID_INPUT")
		return
	}

	var req service.RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	p, err := h.passService.Reschedule(r.Context(), principal(r), id, req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

func (h *Handlers) CancelPass(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pass id", "INVALID_INPUT")
		return
	}

	p, err := h.passService.Cancel(r.Context(), principal(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

func (h *Handlers) DeactivatePass(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pass id", "INVALID_INPUT")
		return
	}

	if err := h.passService.Deactivate(r.Context(), principal(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PassProgress is the public tracking endpoint for visitors.
func (h *Handlers) PassProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.passService.Progress(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// PassQR serves the payload consumed by QR renderers.
func (h *Handlers) PassQR(w http.ResponseWriter, r *http.Request) {
	payload, err := h.passService.QRPayload(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.passService.Dashboard(r.Context(), principal(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
