package httpapi

import (
	"net/http"
	"strings"

	"trackra-engine/internal/appstate"
	"trackra-engine/internal/domain"
)

type StateHandler struct {
	Engine *appstate.Engine
}

func (h StateHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Engine.Snapshot())
}

func (h StateHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Refresh(r.Context()); err != nil {
		writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.Engine.Snapshot())
}

func (h StateHandler) Stats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Engine.Stats())
}

type selectReq struct {
	ID string `json:"id"`
}

func (h StateHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Engine.Select(strings.TrimSpace(req.ID)); err != nil {
		writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.Engine.Snapshot())
}

type createApplicationReq struct {
	Role        string `json:"role"`
	Company     string `json:"company"`
	AppliedAt   string `json:"appliedAt"` // YYYY-MM-DD
	Source      string `json:"source"`
	SalaryRange string `json:"salaryRange"`
	Location    string `json:"location"`
	URL         string `json:"url"`
}

type createActivityReq struct {
	Type       domain.ActivityType `json:"type"`
	OccurredAt string              `json:"occurredAt"` // YYYY-MM-DD
	Note       string              `json:"note"`
}

type updateStatusReq struct {
	Status domain.ApplicationStatus `json:"status"`
}

type mutationResp struct {
	ID    string            `json:"id,omitempty"`
	State appstate.Snapshot `json:"state"`
}

func (h StateHandler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationReq
	if !decodeJSON(w, r, &req) {
		return
	}
	appliedAt, err := domain.ParseDate(req.AppliedAt)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "appliedAt must be YYYY-MM-DD")
		return
	}
	id, err := h.Engine.CreateApplication(mutationContext(r), domain.ApplicationFields{
		Role:        strings.TrimSpace(req.Role),
		Company:     strings.TrimSpace(req.Company),
		AppliedAt:   appliedAt,
		Source:      strings.TrimSpace(req.Source),
		SalaryRange: strings.TrimSpace(req.SalaryRange),
		Location:    strings.TrimSpace(req.Location),
		URL:         strings.TrimSpace(req.URL),
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, mutationResp{ID: id, State: h.Engine.Snapshot()})
}

// Application routes /applications/{id}, /applications/{id}/status and
// /applications/{id}/activities.
func (h StateHandler) Application(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/applications/")
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.get(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.delete(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPut:
		h.updateStatus(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "activities" && r.Method == http.MethodPost:
		h.createActivity(w, r, parts[0])
	case len(parts) == 1 || len(parts) == 2:
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	default:
		WriteError(w, r, http.StatusNotFound, "not_found", "no such route")
	}
}

func (h StateHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	app, ok := h.Engine.Application(id)
	if !ok {
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown application "+id)
		return
	}
	WriteJSON(w, http.StatusOK, app)
}

func (h StateHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.Engine.Application(id); !ok {
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown application "+id)
		return
	}
	if err := h.Engine.DeleteApplication(mutationContext(r), id); err != nil {
		writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, mutationResp{ID: id, State: h.Engine.Snapshot()})
}

func (h StateHandler) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req updateStatusReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, ok := h.Engine.Application(id); !ok {
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown application "+id)
		return
	}
	if err := h.Engine.UpdateStatus(mutationContext(r), id, req.Status); err != nil {
		writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, mutationResp{ID: id, State: h.Engine.Snapshot()})
}

func (h StateHandler) createActivity(w http.ResponseWriter, r *http.Request, id string) {
	var req createActivityReq
	if !decodeJSON(w, r, &req) {
		return
	}
	occurredAt, err := domain.ParseDate(req.OccurredAt)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "occurredAt must be YYYY-MM-DD")
		return
	}
	if _, ok := h.Engine.Application(id); !ok {
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown application "+id)
		return
	}
	if err := h.Engine.CreateActivity(mutationContext(r), id, req.Type, occurredAt, strings.TrimSpace(req.Note)); err != nil {
		writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, mutationResp{ID: id, State: h.Engine.Snapshot()})
}
