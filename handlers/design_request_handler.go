package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/kitlocker/kitlocker-server/middleware"
	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/services"
)

type DesignRequestHandler struct {
	designService services.DesignService
}

func NewDesignRequestHandler(designService services.DesignService) *DesignRequestHandler {
	return &DesignRequestHandler{designService: designService}
}

func (h *DesignRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}

	var input services.CreateDesignRequestInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	request, err := h.designService.Create(r.Context(), input, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"design_request": request}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DesignRequestHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID, err := getIDFromURL(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	request, err := h.designService.GetByID(r.Context(), requestID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"design_request": request}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DesignRequestHandler) ListByTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	requests, err := h.designService.ListByTeamID(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"design_requests": requests}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// runTransition is the shared shape of all reviewer status endpoints.
func (h *DesignRequestHandler) runTransition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(requestID, userID int) (*models.DesignRequest, error),
) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}
	requestID, err := getIDFromURL(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	request, err := fn(requestID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"design_request": request}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DesignRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, func(requestID, userID int) (*models.DesignRequest, error) {
		return h.designService.Approve(r.Context(), requestID, userID)
	})
}

func (h *DesignRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, func(requestID, userID int) (*models.DesignRequest, error) {
		return h.designService.Reject(r.Context(), requestID, userID)
	})
}

func (h *DesignRequestHandler) RevertApproval(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, func(requestID, userID int) (*models.DesignRequest, error) {
		return h.designService.RevertApproval(r.Context(), requestID, userID)
	})
}

func (h *DesignRequestHandler) ConfirmProduction(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, func(requestID, userID int) (*models.DesignRequest, error) {
		return h.designService.ConfirmProduction(r.Context(), requestID, userID)
	})
}

func (h *DesignRequestHandler) RevertProduction(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, func(requestID, userID int) (*models.DesignRequest, error) {
		return h.designService.RevertProduction(r.Context(), requestID, userID)
	})
}

func (h *DesignRequestHandler) RequestChanges(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Feedback string `json:"feedback"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.runTransition(w, r, func(requestID, userID int) (*models.DesignRequest, error) {
		return h.designService.RequestChanges(r.Context(), requestID, userID, input.Feedback)
	})
}

func (h *DesignRequestHandler) SelectDesign(w http.ResponseWriter, r *http.Request) {
	var input struct {
		DesignID int `json:"design_id" validate:"required,gt=0"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}
	h.runTransition(w, r, func(requestID, userID int) (*models.DesignRequest, error) {
		return h.designService.SelectDesign(r.Context(), requestID, userID, input.DesignID)
	})
}

func (h *DesignRequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}
	requestID, err := getIDFromURL(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.designService.Delete(r.Context(), requestID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadMockups accepts a multipart form with optional "home" and
// "away" files plus any number of "mockups" gallery files. Admin only;
// route-level middleware enforces the role.
func (h *DesignRequestHandler) UploadMockups(w http.ResponseWriter, r *http.Request) {
	requestID, err := getIDFromURL(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		badRequestResponse(w, r, errors.New("failed to parse multipart form"))
		return
	}

	var uploads []services.MockupUpload
	var closers []multipart.File
	defer func() {
		for _, f := range closers {
			f.Close()
		}
	}()

	for _, slot := range []string{"home", "away"} {
		file, header, err := r.FormFile(slot)
		if err != nil {
			continue
		}
		closers = append(closers, file)
		uploads = append(uploads, services.MockupUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Slot:        slot,
			Reader:      file,
		})
	}
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["mockups"] {
			file, err := header.Open()
			if err != nil {
				continue
			}
			closers = append(closers, file)
			uploads = append(uploads, services.MockupUpload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Reader:      file,
			})
		}
	}
	if len(uploads) == 0 {
		badRequestResponse(w, r, errors.New("at least one mockup file is required"))
		return
	}

	request, err := h.designService.UploadMockups(r.Context(), requestID, uploads)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"design_request": request}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DesignRequestHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	h.reaction(w, r, h.designService.AddReaction, http.StatusCreated)
}

func (h *DesignRequestHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	h.reaction(w, r, h.designService.RemoveReaction, http.StatusNoContent)
}

func (h *DesignRequestHandler) reaction(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, id, userID int, emoji string) error,
	successStatus int,
) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}
	requestID, err := getIDFromURL(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Emoji string `json:"emoji" validate:"required"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	if err := fn(r.Context(), requestID, userID, input.Emoji); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(successStatus)
}
