package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"farmgate-api/internal/model"
	"farmgate-api/internal/service"
	"farmgate-api/pkg/apierror"
	"farmgate-api/pkg/response"
)

// ProductHandler serves the public catalog through the cached reader and
// admin writes through the underlying service.
type ProductHandler struct {
	reader          service.ProductReader
	productService  *service.ProductService
	locationService *service.LocationService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(reader service.ProductReader, productService *service.ProductService, locationService *service.LocationService) *ProductHandler {
	return &ProductHandler{
		reader:          reader,
		productService:  productService,
		locationService: locationService,
	}
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.ProductFilter{
		Category:      r.URL.Query().Get("category"),
		Search:        r.URL.Query().Get("search"),
		AvailableOnly: r.URL.Query().Get("available") == "true",
	}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	products, total, err := h.reader.List(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	response.JSONWithMeta(w, http.StatusOK, products, page, limit, total)
}

// Get handles GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.reader.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, product)
}

// Search handles GET /api/v1/products/search
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		response.Error(w, apierror.BadRequest("search query is required"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 50 {
		limit = 20
	}

	products, err := h.reader.Search(r.Context(), query, limit)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, products)
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	product, err := h.productService.Create(r.Context(), input, requestMeta(r))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, product)
}

// Update handles PUT /api/v1/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input service.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	product, err := h.productService.Update(r.Context(), id, input, requestMeta(r))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, product)
}

// Delete handles DELETE /api/v1/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.productService.Delete(r.Context(), id, requestMeta(r)); err != nil {
		response.Error(w, err)
		return
	}

	response.NoContent(w)
}

// Locations handles GET /api/v1/locations
func (h *ProductHandler) Locations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locationService.ListActive(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, locations)
}
