package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kitlocker/kitlocker-server/middleware"
	"github.com/kitlocker/kitlocker-server/services"
)

type InstitutionHandler struct {
	institutionService services.InstitutionService
}

func NewInstitutionHandler(institutionService services.InstitutionService) *InstitutionHandler {
	return &InstitutionHandler{institutionService: institutionService}
}

// ListPrograms returns subteams grouped by sport, including empty
// placeholders for declared sports with no programs yet.
func (h *InstitutionHandler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	institutionID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	programs, err := h.institutionService.ListPrograms(r.Context(), institutionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"programs": programs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MyRole resolves the caller's effective institution role and the
// permissions it carries.
func (h *InstitutionHandler) MyRole(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}
	institutionID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	role, err := h.institutionService.ResolveRole(r.Context(), institutionID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"role": role}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InstitutionHandler) CreateSubteam(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}

	var input services.CreateSubteamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	subteam, err := h.institutionService.CreateSubteam(r.Context(), input, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"subteam": subteam}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InstitutionHandler) AssignCoach(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}
	subteamID, err := getIDFromURL(r, "subteamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		CoachUserID *int `json:"coach_user_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.institutionService.AssignCoach(r.Context(), subteamID, input.CoachUserID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Overview serves the institution landing screen in one payload.
func (h *InstitutionHandler) Overview(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		badRequestResponse(w, r, errors.New("institution slug is required"))
		return
	}

	overview, err := h.institutionService.Overview(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"overview": overview}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
