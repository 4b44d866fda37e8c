package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFields() Fields {
	return Fields{
		FieldProductID:   "PROD-0A1B2C3D",
		FieldName:        "Tomate chonto",
		FieldCategory:    "verduras",
		FieldPrice:       3200.0,
		FieldUnit:        "kg",
		FieldImageURL:    "https://img.example.com/tomate.jpg",
		FieldStock:       40,
		FieldOrigin:      "Boyacá",
		FieldDescription: "Tomate fresco de cosecha",
	}
}

func TestProperty_InStockFollowsStock(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("inStock is true exactly when stock is positive", prop.ForAll(
		func(stock int, stashed bool) bool {
			fields := validFields()
			fields[FieldStock] = stock
			fields[FieldInStock] = stashed

			p, err := ProductFromFields(fields)
			if err != nil {
				t.Logf("FAIL: unexpected error for stock %d: %v", stock, err)
				return false
			}
			if p.InStock() != (stock > 0) {
				t.Logf("FAIL: stock %d gave inStock %v", stock, p.InStock())
				return false
			}
			return p.ToMap()[FieldInStock] == (stock > 0)
		},
		gen.IntRange(0, 100000),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_NegativePriceRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("negative prices never construct a product", prop.ForAll(
		func(price float64) bool {
			fields := validFields()
			fields[FieldPrice] = price

			p, err := ProductFromFields(fields)
			if p != nil {
				t.Logf("FAIL: product constructed with price %f", price)
				return false
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Message != "price cannot be negative" {
				t.Logf("FAIL: unexpected error %v", err)
				return false
			}
			return true
		},
		gen.Float64Range(-1e9, -0.0001),
	))

	properties.Property("non-negative prices are preserved", prop.ForAll(
		func(price float64) bool {
			fields := validFields()
			fields[FieldPrice] = price

			p, err := ProductFromFields(fields)
			if err != nil {
				t.Logf("FAIL: price %f rejected: %v", price, err)
				return false
			}
			return p.Price == price
		},
		gen.Float64Range(0, 1e9),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_NegativeStockRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("negative stock never constructs a product", prop.ForAll(
		func(stock int) bool {
			fields := validFields()
			fields[FieldStock] = stock

			_, err := ProductFromFields(fields)
			var vErr *ValidationError
			return errors.As(err, &vErr) && vErr.Field == FieldStock
		},
		gen.IntRange(-100000, -1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ToMapRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a product rebuilt from its map is equal", prop.ForAll(
		func(name string, price float64, stock int, organic bool) bool {
			fields := validFields()
			fields[FieldName] = name
			fields[FieldPrice] = price
			fields[FieldStock] = stock
			fields[FieldIsOrganic] = organic
			fields[FieldCreatedAt] = "2024-03-10"

			original, err := ProductFromFields(fields)
			if err != nil {
				t.Logf("FAIL: construct: %v", err)
				return false
			}

			rebuilt, err := ProductFromFields(original.ToMap())
			if err != nil {
				t.Logf("FAIL: rebuild: %v", err)
				return false
			}

			return assert.ObjectsAreEqual(original, rebuilt)
		},
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.Float64Range(0, 100000),
		gen.IntRange(0, 5000),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNewProduct_Defaults(t *testing.T) {
	p, err := ProductFromFields(validFields())
	require.NoError(t, err)

	assert.True(t, p.IsActive)
	assert.False(t, p.FreeShipping)
	assert.Nil(t, p.OriginalPrice)
	assert.Nil(t, p.IsOrganic)
	assert.Nil(t, p.IsBestSeller)
	assert.Equal(t, Today(), p.CreatedAt)
	assert.Equal(t, Today(), p.UpdatedAt)
}

func TestNewProduct_RequiredFields(t *testing.T) {
	tests := []struct {
		field   string
		value   any
		message string
	}{
		{FieldProductID, "", "productId is required"},
		{FieldName, "   ", "name is required"},
		{FieldUnit, "", "unit is required"},
		{FieldOrigin, "", "origin is required"},
		{FieldImageURL, "", "imageUrl is required"},
		{FieldPrice, nil, "price is required"},
		{FieldStock, nil, "stock is required"},
		{FieldStock, 3000000000, "stock is too large"},
		{FieldPrice, math.Inf(1), "price must be a finite number"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			fields := validFields()
			fields[tt.field] = tt.value

			p, err := ProductFromFields(fields)
			assert.Nil(t, p)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, tt.message, vErr.Message)
		})
	}
}

func TestNewProduct_NaNPriceRejected(t *testing.T) {
	fields := validFields()
	fields[FieldPrice] = math.NaN()

	_, err := ProductFromFields(fields)
	assert.EqualError(t, err, "price must be a number")
}

func TestNewProduct_InfinitePriceRejected(t *testing.T) {
	for name, value := range map[string]any{
		"string":   "Inf",
		"positive": math.Inf(1),
		"negative": math.Inf(-1),
	} {
		t.Run(name, func(t *testing.T) {
			fields := validFields()
			fields[FieldPrice] = value

			p, err := ProductFromFields(fields)
			assert.Nil(t, p)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, FieldPrice, vErr.Field)
			assert.Equal(t, "price must be a finite number", vErr.Message)
		})
	}
}

func TestNewProduct_InfiniteOriginalPriceBecomesAbsent(t *testing.T) {
	fields := validFields()
	fields[FieldOriginalPrice] = "Inf"

	p, err := ProductFromFields(fields)
	require.NoError(t, err)
	assert.Nil(t, p.OriginalPrice)

	_, err = json.Marshal(p)
	assert.NoError(t, err)
}

func TestNewProduct_StockRange(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		message string
	}{
		{"int above 32 bits", 3000000000, "stock is too large"},
		{"int64 above 32 bits", int64(math.MaxInt32) + 1, "stock is too large"},
		{"uint64", uint64(math.MaxUint64), "stock is too large"},
		{"huge float", 1e30, "stock is too large"},
		{"json overflowing int64", json.Number("9223372036854775808"), "stock is too large"},
		{"json exponent", json.Number("1e30"), "stock is too large"},
		{"json fraction", json.Number("2.5"), "stock must be an integer"},
		{"float infinity", math.Inf(1), "stock is too large"},
		{"float below 32 bits", -1e12, "stock cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validFields()
			fields[FieldStock] = tt.value

			p, err := ProductFromFields(fields)
			assert.Nil(t, p)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, FieldStock, vErr.Field)
			assert.Equal(t, tt.message, vErr.Message)
		})
	}
}

func TestNewProduct_MaxStockAccepted(t *testing.T) {
	fields := validFields()
	fields[FieldStock] = MaxStock

	p, err := ProductFromFields(fields)
	require.NoError(t, err)
	assert.Equal(t, MaxStock, p.Stock)
}

func TestNewProduct_NaNOriginalPriceBecomesAbsent(t *testing.T) {
	fields := validFields()
	fields[FieldOriginalPrice] = math.NaN()

	p, err := ProductFromFields(fields)
	require.NoError(t, err)
	assert.Nil(t, p.OriginalPrice)
	assert.Nil(t, p.ToMap()[FieldOriginalPrice])
}

func TestInputFromFields_Coercion(t *testing.T) {
	fields := validFields()
	fields[FieldPrice] = json.Number("1500.5")
	fields[FieldStock] = 12.0
	fields[FieldCreatedAt] = "2024-01-05T18:30:00-05:00"
	fields[FieldUpdatedAt] = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	fields["discount"] = 0.3

	p, err := ProductFromFields(fields)
	require.NoError(t, err)

	assert.Equal(t, 1500.5, p.Price)
	assert.Equal(t, 12, p.Stock)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), p.CreatedAt)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.UpdatedAt)
}

func TestInputFromFields_TypeMismatch(t *testing.T) {
	tests := map[string]any{
		FieldName:      42,
		FieldPrice:     "cheap",
		FieldStock:     2.5,
		FieldIsActive:  "yes",
		FieldCreatedAt: "NaT",
	}

	for field, value := range tests {
		t.Run(field, func(t *testing.T) {
			fields := validFields()
			fields[field] = value

			_, err := InputFromFields(fields)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, field, vErr.Field)
		})
	}
}

func TestToMap_EmitsEveryField(t *testing.T) {
	fields := validFields()
	fields[FieldCreatedAt] = "2023-11-30"
	fields[FieldUserID] = "user-7"

	p, err := ProductFromFields(fields)
	require.NoError(t, err)

	m := p.ToMap()
	for _, key := range []string{
		FieldProductID, FieldName, FieldCategory, FieldPrice, FieldOriginalPrice,
		FieldUnit, FieldImageURL, FieldInStock, FieldStock, FieldOrigin,
		FieldDescription, FieldCreatedAt, FieldUpdatedAt, FieldIsActive,
		FieldIsOrganic, FieldIsBestSeller, FieldFreeShipping, FieldUserID,
	} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, "2023-11-30", m[FieldCreatedAt])
	assert.Equal(t, "user-7", m[FieldUserID])
}

func TestProductJSON(t *testing.T) {
	p, err := ProductFromFields(validFields())
	require.NoError(t, err)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded Product
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *p, decoded)
}

func TestNewProductID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id := NewProductID()
		assert.True(t, IsValidProductID(id), id)
		seen[id] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &StorageError{Op: "reading", ProductID: "PROD-1", Err: cause}

	assert.Equal(t, "database error while reading product PROD-1: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestUpstreamErrorUnwrapsUserNotFound(t *testing.T) {
	err := &UpstreamError{Dependency: "user directory", Reference: "u-1", Err: ErrUserNotFound}
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpstreamErrorTransportFailureMatchesUserNotFound(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("checking owner: %w", &UpstreamError{Dependency: "user directory", Reference: "u-1", Err: cause})

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrProductNotFound)
}
