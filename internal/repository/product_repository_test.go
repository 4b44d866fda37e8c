package repository

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"agroweb-products/internal/domain"
	"agroweb-products/internal/storage"
	"agroweb-products/internal/storage/memory"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// stubBackend returns canned rows and errors.
type stubBackend struct {
	rows    []storage.Row
	byID    storage.Row
	err     error
	added   []storage.Row
	deleted string
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Add(_ context.Context, row storage.Row) error {
	if s.err != nil {
		return s.err
	}
	s.added = append(s.added, row)
	return nil
}

func (s *stubBackend) GetByID(context.Context, string) (storage.Row, error) { return s.byID, s.err }
func (s *stubBackend) GetAll(context.Context) ([]storage.Row, error)         { return s.rows, s.err }
func (s *stubBackend) GetActive(context.Context) ([]storage.Row, error)      { return s.rows, s.err }

func (s *stubBackend) GetByCategory(context.Context, string) ([]storage.Row, error) {
	return s.rows, s.err
}

func (s *stubBackend) GetByUser(context.Context, string) ([]storage.Row, error) {
	return s.rows, s.err
}

func (s *stubBackend) SetInactive(context.Context, string, time.Time) error { return s.err }

func (s *stubBackend) UpdateImageURL(context.Context, string, string, time.Time) error {
	return s.err
}

func (s *stubBackend) Delete(_ context.Context, id string) (bool, error) {
	s.deleted = id
	return s.err == nil, s.err
}

func (s *stubBackend) DeleteByPrefix(context.Context, string) (int, error) { return 0, s.err }
func (s *stubBackend) Ping(context.Context) error                         { return s.err }
func (s *stubBackend) Close() error                                       { return nil }

func validRow(id string) storage.Row {
	return storage.Row{
		domain.FieldProductID:   id,
		domain.FieldName:        "Fresa",
		domain.FieldCategory:    "frutas",
		domain.FieldPrice:       7000.0,
		domain.FieldUnit:        "caja",
		domain.FieldImageURL:    "https://img.example.com/fresa.jpg",
		domain.FieldStock:       3.0,
		domain.FieldOrigin:      "Cundinamarca",
		domain.FieldDescription: "Fresa dulce",
		domain.FieldIsActive:    true,
		domain.FieldCreatedAt:   time.Date(2024, 4, 4, 0, 0, 0, 0, time.UTC),
		domain.FieldUpdatedAt:   "NaT",
		domain.FieldInStock:     false,
	}
}

func newProduct(t *testing.T, id string) *domain.Product {
	t.Helper()
	p, err := domain.ProductFromFields(cleanRow(validRow(id)))
	require.NoError(t, err)
	return p
}

func TestCleanRow(t *testing.T) {
	row := validRow("PROD-1")
	row[domain.FieldOriginalPrice] = math.NaN()

	fields := cleanRow(row)

	assert.NotContains(t, fields, domain.FieldInStock)
	assert.Nil(t, fields[domain.FieldOriginalPrice])
	assert.Nil(t, fields[domain.FieldUpdatedAt])
	assert.Equal(t, 7000.0, fields[domain.FieldPrice])
}

func TestGetProductByID_RecomputesInStock(t *testing.T) {
	repo := NewProductRepository(&stubBackend{byID: validRow("PROD-1")}, zap.NewNop())

	p, err := repo.GetProductByID(context.Background(), "PROD-1")
	require.NoError(t, err)

	assert.True(t, p.InStock())
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, domain.Today(), p.UpdatedAt)
}

func TestGetProductByID_Missing(t *testing.T) {
	repo := NewProductRepository(&stubBackend{}, zap.NewNop())

	_, err := repo.GetProductByID(context.Background(), "PROD-404")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestGetProductByID_InvalidRowIsNotFound(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	row := validRow("PROD-1")
	row[domain.FieldPrice] = -5.0

	repo := NewProductRepository(&stubBackend{byID: row}, zap.New(core))

	_, err := repo.GetProductByID(context.Background(), "PROD-1")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, 1, logs.FilterMessage("Stored product failed validation").Len())
}

func TestBulkReadsSkipInvalidRows(t *testing.T) {
	negativePrice := validRow("PROD-2")
	negativePrice[domain.FieldPrice] = -1.0
	missingPrice := validRow("PROD-3")
	missingPrice[domain.FieldPrice] = math.NaN()
	negativeStock := validRow("PROD-4")
	negativeStock[domain.FieldStock] = -2.0
	infinitePrice := validRow("PROD-6")
	infinitePrice[domain.FieldPrice] = math.Inf(1)

	backend := &stubBackend{rows: []storage.Row{
		validRow("PROD-1"), negativePrice, missingPrice, negativeStock, infinitePrice, validRow("PROD-5"),
	}}

	ctx := context.Background()
	calls := map[string]func(ProductRepository) ([]*domain.Product, error){
		"all":      func(r ProductRepository) ([]*domain.Product, error) { return r.GetAllProducts(ctx) },
		"active":   func(r ProductRepository) ([]*domain.Product, error) { return r.GetActiveProducts(ctx) },
		"category": func(r ProductRepository) ([]*domain.Product, error) { return r.GetProductsByCategory(ctx, "frutas") },
		"user":     func(r ProductRepository) ([]*domain.Product, error) { return r.GetProductsByUserID(ctx, "user-1") },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			repo := NewProductRepository(backend, zap.New(core))

			products, err := call(repo)
			require.NoError(t, err)
			require.Len(t, products, 2)
			assert.Equal(t, "PROD-1", products[0].ProductID)
			assert.Equal(t, "PROD-5", products[1].ProductID)

			assert.Equal(t, 4, logs.FilterMessage("Skipping invalid product row").Len())
			summary := logs.FilterMessage("Product rows skipped during reconstruction").All()
			require.Len(t, summary, 1)
			assert.Equal(t, int64(4), summary[0].ContextMap()["skipped"])
		})
	}
}

func TestProperty_BulkReadsNeverFailOnBadRows(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid rows are returned and invalid rows are dropped", prop.ForAll(
		func(prices []float64) bool {
			rows := make([]storage.Row, 0, len(prices))
			valid := 0
			for i, price := range prices {
				row := validRow("PROD-" + string(rune('A'+i%26)))
				row[domain.FieldPrice] = price
				if price >= 0 {
					valid++
				}
				rows = append(rows, row)
			}

			repo := NewProductRepository(&stubBackend{rows: rows}, zap.NewNop())
			products, err := repo.GetAllProducts(context.Background())
			if err != nil {
				t.Logf("FAIL: bulk read returned error: %v", err)
				return false
			}
			return len(products) == valid
		},
		gen.SliceOf(gen.Float64Range(-100, 100)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestBackendErrorsBecomeStorageErrors(t *testing.T) {
	cause := errors.New("no hosts available")
	repo := NewProductRepository(&stubBackend{err: cause}, zap.NewNop())
	ctx := context.Background()

	_, err := repo.GetAllProducts(ctx)
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "database error while listing products")

	_, err = repo.GetProductByID(ctx, "PROD-1")
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "PROD-1", storageErr.ProductID)
}

func TestDomainErrorsPassThrough(t *testing.T) {
	ctx := context.Background()

	repo := NewProductRepository(&stubBackend{err: domain.ErrDuplicateProductID}, zap.NewNop())
	_, err := repo.AddProduct(ctx, newProduct(t, "PROD-1"))
	assert.Equal(t, domain.ErrDuplicateProductID, err)

	repo = NewProductRepository(&stubBackend{err: domain.ErrProductNotFound}, zap.NewNop())
	assert.Equal(t, domain.ErrProductNotFound, repo.DeactivateProduct(ctx, "PROD-1"))
}

func TestRepositoryOverMemoryStore(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(memory.New(), zap.NewNop())

	p := newProduct(t, "test-1")
	stored, err := repo.AddProduct(ctx, p)
	require.NoError(t, err)
	assert.Same(t, p, stored)

	_, err = repo.AddProduct(ctx, newProduct(t, "test-1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateProductID)

	got, err := repo.GetProductByID(ctx, "test-1")
	require.NoError(t, err)
	assert.Equal(t, p.Input(), got.Input())

	require.NoError(t, repo.UpdateImageURL(ctx, "test-1", "https://img.example.com/otra.jpg"))
	got, err = repo.GetProductByID(ctx, "test-1")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/otra.jpg", got.ImageURL)
	assert.Equal(t, domain.Today(), got.UpdatedAt)

	require.NoError(t, repo.DeactivateProduct(ctx, "test-1"))
	all, err := repo.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	got, err = repo.GetProductByID(ctx, "test-1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, repo.DeactivateProduct(ctx, "ghost"), domain.ErrProductNotFound)

	n, err := repo.ClearTestData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRepositoryOverMemoryStore_LegacyRowWithoutPrice(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	legacy := validRow("legacy-1")
	delete(legacy, domain.FieldPrice)
	require.NoError(t, store.Add(ctx, legacy))
	require.NoError(t, store.Add(ctx, validRow("legacy-2")))

	repo := NewProductRepository(store, zap.NewNop())

	products, err := repo.GetAllProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "legacy-2", products[0].ProductID)

	_, err = repo.GetProductByID(ctx, "legacy-1")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
