// Package storage defines the contract every product backend implements.
//
// Backends exchange Rows keyed by the domain field names. A backend is free to
// return its own representation of missing values (NaN, "NaT", nil) and may
// include a stored inStock flag; cleaning rows is the repository's job.
package storage

import (
	"context"
	"time"

	"agroweb-products/internal/domain"
)

// Row is a backend-native record keyed by domain field names.
type Row map[string]any

// Backend is a product store. List operations return active rows only;
// GetByID returns a row regardless of its active flag and (nil, nil) when the
// id is unknown. Add reports an existing id with domain.ErrDuplicateProductID.
// SetInactive and UpdateImageURL report an unknown id with
// domain.ErrProductNotFound.
type Backend interface {
	Name() string
	Add(ctx context.Context, row Row) error
	GetByID(ctx context.Context, productID string) (Row, error)
	GetAll(ctx context.Context) ([]Row, error)
	GetByCategory(ctx context.Context, category string) ([]Row, error)
	GetActive(ctx context.Context) ([]Row, error)
	GetByUser(ctx context.Context, userID string) ([]Row, error)
	SetInactive(ctx context.Context, productID string, updatedAt time.Time) error
	UpdateImageURL(ctx context.Context, productID, imageURL string, updatedAt time.Time) error
	Delete(ctx context.Context, productID string) (bool, error)
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// RowFromProduct converts a validated product into a Row. Dates are carried
// as time.Time values and nullable fields as nil.
func RowFromProduct(p *domain.Product) Row {
	row := Row(p.ToMap())
	row[domain.FieldCreatedAt] = p.CreatedAt
	row[domain.FieldUpdatedAt] = p.UpdatedAt
	return row
}

// String returns the string stored under key, or "" when absent.
func (r Row) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool returns the bool stored under key, or false when absent.
func (r Row) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Float returns the value stored under key as a nullable float.
func (r Row) Float(key string) *float64 {
	switch v := r[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

// Time returns the date stored under key, or the zero time.
func (r Row) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := domain.ParseDate(v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// NullableBool returns the bool stored under key, or nil when absent.
func (r Row) NullableBool(key string) *bool {
	b, ok := r[key].(bool)
	if !ok {
		return nil
	}
	return &b
}

// Int returns the integer stored under key; float cells are truncated.
func (r Row) Int(key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
