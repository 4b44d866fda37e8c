package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"agroweb-products/internal/domain"
	"agroweb-products/internal/storage"

	"go.uber.org/zap"
)

// TestDataPrefix marks product ids that ClearTestData removes.
const TestDataPrefix = "test-"

// ProductRepository is the single product contract the services depend on,
// regardless of which backend is active.
type ProductRepository interface {
	AddProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, productID string) (*domain.Product, error)
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProductsByCategory(ctx context.Context, category string) ([]*domain.Product, error)
	GetActiveProducts(ctx context.Context) ([]*domain.Product, error)
	GetProductsByUserID(ctx context.Context, userID string) ([]*domain.Product, error)
	UpdateImageURL(ctx context.Context, productID, imageURL string) error
	DeactivateProduct(ctx context.Context, productID string) error
	DeleteProduct(ctx context.Context, productID string) (bool, error)
	ClearTestData(ctx context.Context) (int, error)
}

type productRepository struct {
	backend storage.Backend
	logger  *zap.Logger
}

// NewProductRepository adapts backend to ProductRepository.
func NewProductRepository(backend storage.Backend, logger *zap.Logger) ProductRepository {
	return &productRepository{backend: backend, logger: logger}
}

func (r *productRepository) AddProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := r.backend.Add(ctx, storage.RowFromProduct(product)); err != nil {
		return nil, r.wrap("creating", product.ProductID, err)
	}
	return product, nil
}

// GetProductByID treats a stored row that no longer passes validation as
// missing.
func (r *productRepository) GetProductByID(ctx context.Context, productID string) (*domain.Product, error) {
	row, err := r.backend.GetByID(ctx, productID)
	if err != nil {
		return nil, r.wrap("reading", productID, err)
	}
	if row == nil {
		return nil, domain.ErrProductNotFound
	}

	product, err := productFromRow(row)
	if err != nil {
		r.logger.Warn("Stored product failed validation",
			zap.String("backend", r.backend.Name()),
			zap.String("product_id", productID),
			zap.Error(err),
		)
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *productRepository) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	rows, err := r.backend.GetAll(ctx)
	if err != nil {
		return nil, r.wrap("listing products", "", err)
	}
	return r.rebuild("list_all", rows), nil
}

func (r *productRepository) GetProductsByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	rows, err := r.backend.GetByCategory(ctx, category)
	if err != nil {
		return nil, r.wrap("listing products by category", "", err)
	}
	return r.rebuild("list_by_category", rows), nil
}

func (r *productRepository) GetActiveProducts(ctx context.Context) ([]*domain.Product, error) {
	rows, err := r.backend.GetActive(ctx)
	if err != nil {
		return nil, r.wrap("listing active products", "", err)
	}
	return r.rebuild("list_active", rows), nil
}

func (r *productRepository) GetProductsByUserID(ctx context.Context, userID string) ([]*domain.Product, error) {
	rows, err := r.backend.GetByUser(ctx, userID)
	if err != nil {
		return nil, r.wrap("listing products by user", "", err)
	}
	return r.rebuild("list_by_user", rows), nil
}

func (r *productRepository) UpdateImageURL(ctx context.Context, productID, imageURL string) error {
	if err := r.backend.UpdateImageURL(ctx, productID, imageURL, domain.Today()); err != nil {
		return r.wrap("updating image of", productID, err)
	}
	return nil
}

func (r *productRepository) DeactivateProduct(ctx context.Context, productID string) error {
	if err := r.backend.SetInactive(ctx, productID, domain.Today()); err != nil {
		return r.wrap("deactivating", productID, err)
	}
	return nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, productID string) (bool, error) {
	deleted, err := r.backend.Delete(ctx, productID)
	if err != nil {
		return false, r.wrap("deleting", productID, err)
	}
	return deleted, nil
}

func (r *productRepository) ClearTestData(ctx context.Context) (int, error) {
	n, err := r.backend.DeleteByPrefix(ctx, TestDataPrefix)
	if err != nil {
		return 0, r.wrap("clearing test data", "", err)
	}
	r.logger.Info("Cleared test products", zap.Int("deleted", n))
	return n, nil
}

type rowResult struct {
	productID string
	product   *domain.Product
	err       error
}

// rebuild reconstructs every row and keeps the ones that validate. Skipped
// rows are logged, never returned as an error.
func (r *productRepository) rebuild(op string, rows []storage.Row) []*domain.Product {
	results := make([]rowResult, 0, len(rows))
	for _, row := range rows {
		product, err := productFromRow(row)
		results = append(results, rowResult{
			productID: row.String(domain.FieldProductID),
			product:   product,
			err:       err,
		})
	}

	products := make([]*domain.Product, 0, len(results))
	skipped := 0
	for _, res := range results {
		if res.err != nil {
			skipped++
			r.logger.Warn("Skipping invalid product row",
				zap.String("op", op),
				zap.String("product_id", res.productID),
				zap.Error(res.err),
			)
			continue
		}
		products = append(products, res.product)
	}

	if skipped > 0 {
		r.logger.Warn("Product rows skipped during reconstruction",
			zap.String("op", op),
			zap.String("backend", r.backend.Name()),
			zap.Int("skipped", skipped),
			zap.Int("returned", len(products)),
		)
	}
	return products
}

// wrap keeps domain errors as they are and turns anything else into a
// *domain.StorageError.
func (r *productRepository) wrap(op, productID string, err error) error {
	var storageErr *domain.StorageError
	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrDuplicateProductID),
		errors.As(err, &storageErr):
		return err
	}

	r.logger.Error("Storage operation failed",
		zap.String("backend", r.backend.Name()),
		zap.String("op", op),
		zap.String("product_id", productID),
		zap.Error(err),
	)
	return &domain.StorageError{Op: op, ProductID: productID, Err: err}
}

func productFromRow(row storage.Row) (*domain.Product, error) {
	return domain.ProductFromFields(cleanRow(row))
}

var dateFields = map[string]struct{}{
	domain.FieldCreatedAt: {},
	domain.FieldUpdatedAt: {},
}

// cleanRow drops the stored inStock flag and maps backend sentinels (NaN,
// "NaT", empty dates) to absent values.
func cleanRow(row storage.Row) domain.Fields {
	fields := make(domain.Fields, len(row))
	for key, value := range row {
		if key == domain.FieldInStock {
			continue
		}

		switch v := value.(type) {
		case float64:
			if math.IsNaN(v) {
				value = nil
			}
		case string:
			if _, isDate := dateFields[key]; isDate && (v == "" || v == "NaT") {
				value = nil
			}
		case time.Time:
			if v.IsZero() {
				value = nil
			}
		}
		fields[key] = value
	}
	return fields
}
