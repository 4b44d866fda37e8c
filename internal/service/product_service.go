package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"agroweb-products/internal/domain"
	"agroweb-products/internal/repository"

	"go.uber.org/zap"
)

// createRequiredFields must be present, and non-null, in a create request.
var createRequiredFields = []string{
	domain.FieldName,
	domain.FieldCategory,
	domain.FieldPrice,
	domain.FieldUnit,
	domain.FieldStock,
	domain.FieldOrigin,
	domain.FieldDescription,
	domain.FieldIsActive,
}

// UserDirectory confirms that a product owner exists.
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// ProductService defines the catalog use cases
type ProductService interface {
	Create(ctx context.Context, fields domain.Fields) (*domain.Product, error)
	GetByID(ctx context.Context, productID string) (*domain.Product, error)
	ListAll(ctx context.Context) ([]*domain.Product, error)
	ListActive(ctx context.Context) ([]*domain.Product, error)
	ListByCategory(ctx context.Context, category string) ([]*domain.Product, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Product, error)
	UpdateImageURL(ctx context.Context, productID, imageURL string) (*domain.Product, error)
	Deactivate(ctx context.Context, productID string) error
}

// Options configures optional behaviour of the product service.
type Options struct {
	// DefaultImageURL fills imageUrl when a create request omits it.
	DefaultImageURL string
	// Users enables owner checks on create; nil disables them.
	Users UserDirectory
	// NewID generates product ids; defaults to domain.NewProductID.
	NewID func() string
}

type productService struct {
	repo   repository.ProductRepository
	logger *zap.Logger
	opts   Options
}

// NewProductService creates a new instance of ProductService
func NewProductService(repo repository.ProductRepository, logger *zap.Logger, opts Options) ProductService {
	if opts.NewID == nil {
		opts.NewID = domain.NewProductID
	}
	return &productService{repo: repo, logger: logger, opts: opts}
}

// Create validates raw fields, assigns a fresh product id and stores the
// product.
func (s *productService) Create(ctx context.Context, fields domain.Fields) (*domain.Product, error) {
	if v, ok := fields[domain.FieldProductID]; ok && v != nil {
		return nil, &domain.ValidationError{
			Field:   domain.FieldProductID,
			Message: "productId is assigned by the server and must not be sent",
		}
	}

	var missing []string
	for _, key := range createRequiredFields {
		if v, ok := fields[key]; !ok || v == nil {
			missing = append(missing, key)
		}
	}
	if s.opts.Users != nil {
		if v, _ := fields[domain.FieldUserID].(string); strings.TrimSpace(v) == "" {
			missing = append(missing, domain.FieldUserID)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.ValidationError{
			Field:   missing[0],
			Message: "missing required fields: " + strings.Join(missing, ", "),
		}
	}

	if s.opts.Users != nil {
		if err := s.checkOwner(ctx, strings.TrimSpace(fields[domain.FieldUserID].(string))); err != nil {
			return nil, err
		}
	}

	data := make(domain.Fields, len(fields)+2)
	for k, v := range fields {
		data[k] = v
	}
	if s.opts.DefaultImageURL != "" {
		if v, _ := data[domain.FieldImageURL].(string); strings.TrimSpace(v) == "" {
			data[domain.FieldImageURL] = s.opts.DefaultImageURL
		}
	}
	data[domain.FieldProductID] = s.opts.NewID()

	product, err := domain.ProductFromFields(data)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.AddProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created",
		zap.String("product_id", created.ProductID),
		zap.String("category", created.Category),
	)
	return created, nil
}

func (s *productService) checkOwner(ctx context.Context, userID string) error {
	exists, err := s.opts.Users.UserExists(ctx, userID)
	if err != nil {
		return &domain.UpstreamError{Dependency: "user service", Reference: userID, Err: err}
	}
	if !exists {
		return &domain.UpstreamError{Dependency: "user service", Reference: userID, Err: domain.ErrUserNotFound}
	}
	return nil
}

func (s *productService) GetByID(ctx context.Context, productID string) (*domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, &domain.ValidationError{Field: domain.FieldProductID, Message: "productId is required"}
	}
	return s.repo.GetProductByID(ctx, productID)
}

func (s *productService) ListAll(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.repo.GetAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return nonNil(products), nil
}

// ListActive returns active products, newest first. Products created on the
// same day keep their storage order.
func (s *productService) ListActive(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.repo.GetActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active products: %w", err)
	}

	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return nonNil(products), nil
}

func (s *productService) ListByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, &domain.ValidationError{Field: domain.FieldCategory, Message: "category is required"}
	}

	products, err := s.repo.GetProductsByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list products by category: %w", err)
	}
	return nonNil(products), nil
}

func (s *productService) ListByUser(ctx context.Context, userID string) ([]*domain.Product, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, &domain.ValidationError{Field: domain.FieldUserID, Message: "user_id is required"}
	}

	products, err := s.repo.GetProductsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products by user: %w", err)
	}
	return nonNil(products), nil
}

// UpdateImageURL records the URL of an image uploaded elsewhere.
func (s *productService) UpdateImageURL(ctx context.Context, productID, imageURL string) (*domain.Product, error) {
	productID = strings.TrimSpace(productID)
	imageURL = strings.TrimSpace(imageURL)
	if productID == "" {
		return nil, &domain.ValidationError{Field: domain.FieldProductID, Message: "productId is required"}
	}
	if imageURL == "" {
		return nil, &domain.ValidationError{Field: domain.FieldImageURL, Message: "imageUrl is required"}
	}

	if err := s.repo.UpdateImageURL(ctx, productID, imageURL); err != nil {
		return nil, err
	}

	s.logger.Info("Product image updated", zap.String("product_id", productID))
	return s.repo.GetProductByID(ctx, productID)
}

// Deactivate soft-deletes a product; it stays readable by id.
func (s *productService) Deactivate(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return &domain.ValidationError{Field: domain.FieldProductID, Message: "productId is required"}
	}

	if err := s.repo.DeactivateProduct(ctx, productID); err != nil {
		return err
	}

	s.logger.Info("Product deactivated", zap.String("product_id", productID))
	return nil
}

func nonNil(products []*domain.Product) []*domain.Product {
	if products == nil {
		return []*domain.Product{}
	}
	return products
}
