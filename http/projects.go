package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sagarc03/photoshelf"
)

type projectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// pathID parses a UUID route parameter. A malformed id names nothing, so it
// is reported as not found.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s %q: %w", name, chi.URLParam(r, name), photoshelf.ErrNotFound)
	}
	return id, nil
}

// projectScope returns the caller and the project id of a /projects/{projectID} route.
func projectScope(r *http.Request) (caller, projectID uuid.UUID, err error) {
	caller, err = mustCaller(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	projectID, err = pathID(r, "projectID")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return caller, projectID, nil
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	caller, err := mustCaller(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, err)
		return
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	project, err := h.service.CreateProject(r.Context(), caller, name, req.Description)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, project)
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	caller, err := mustCaller(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	items, err := h.service.ListProjects(r.Context(), caller, page)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, itemsResponse[photoshelf.ProjectSummary]{Items: items})
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	caller, projectID, err := projectScope(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	project, err := h.service.GetProject(r.Context(), caller, projectID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, project)
}

func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	caller, projectID, err := projectScope(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, err)
		return
	}

	project, err := h.service.UpdateProject(r.Context(), caller, projectID, photoshelf.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, project)
}

func (h *Handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	caller, projectID, err := projectScope(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	report, err := h.service.DeleteProject(r.Context(), caller, projectID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, report)
}
