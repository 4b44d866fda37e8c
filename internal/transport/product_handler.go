package transport

import (
	"net/http"

	"agroweb-products/internal/middleware"
	"agroweb-products/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UpdateImageRequest carries the URL of an image uploaded elsewhere.
type UpdateImageRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,url"`
}

// MessageResponse is returned by operations without a resource body.
type MessageResponse struct {
	Message   string `json:"message"`
	ProductID string `json:"productId,omitempty"`
}

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		r.Get("/active", h.ListActiveProducts)
		r.Get("/category/{category}", h.ListProductsByCategory)
		r.Get("/user/{userId}", h.ListProductsByUser)
		r.Get("/{id}", h.GetProduct)
		r.Patch("/{id}/image", h.UpdateImage)
		r.Delete("/{id}", h.DeactivateProduct)
	})
}

// CreateProduct handles product creation
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	fields, err := middleware.DecodeFields(r)
	if err != nil {
		h.logger.Debug("Create product decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Create(r.Context(), fields)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// ListProducts returns every active product
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.ListAll(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// ListActiveProducts returns active products, newest first
func (h *ProductHandler) ListActiveProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.ListActive(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) ListProductsByCategory(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.ListByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) ListProductsByUser(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// GetProduct returns one product by id, inactive ones included
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// UpdateImage records a new image URL for a product
func (h *ProductHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	var req UpdateImageRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Update image validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.UpdateImageURL(r.Context(), chi.URLParam(r, "id"), req.ImageURL)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeactivateProduct soft-deletes a product
func (h *ProductHandler) DeactivateProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	if err := h.productService.Deactivate(r.Context(), productID); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{
		Message:   "product deactivated",
		ProductID: productID,
	})
}
