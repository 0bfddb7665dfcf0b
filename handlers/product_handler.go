package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kitlocker/kitlocker-server/services"
)

type ProductHandler struct {
	productService services.ProductService
}

func NewProductHandler(productService services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.ListCatalog(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"products": products}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		badRequestResponse(w, r, errors.New("product slug is required"))
		return
	}

	product, err := h.productService.GetBySlug(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"product": product}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.ProductInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"product": product}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, err := getIDFromURL(r, "productID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.ProductInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), productID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"product": product}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
