package cassandra

import (
	"time"

	"agroweb-products/internal/domain"
	"agroweb-products/internal/storage"
)

// record mirrors one products row. Nullable columns scan into pointers so a
// CQL null stays distinguishable from a zero value.
type record struct {
	ProductID     string
	Name          *string
	Category      *string
	Price         *float64
	OriginalPrice *float64
	Unit          *string
	ImageURL      *string
	InStock       *bool
	Stock         *int
	Origin        *string
	Description   *string
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
	IsActive      *bool
	IsOrganic     *bool
	IsBestSeller  *bool
	FreeShipping  *bool
	UserID        *string
}

// dest returns scan targets in selectColumns order.
func (r *record) dest() []interface{} {
	return []interface{}{
		&r.ProductID,
		&r.Name,
		&r.Category,
		&r.Price,
		&r.OriginalPrice,
		&r.Unit,
		&r.ImageURL,
		&r.InStock,
		&r.Stock,
		&r.Origin,
		&r.Description,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.IsActive,
		&r.IsOrganic,
		&r.IsBestSeller,
		&r.FreeShipping,
		&r.UserID,
	}
}

// row converts the record to a storage.Row; null columns become nil.
func (r *record) row() storage.Row {
	return storage.Row{
		domain.FieldProductID:     r.ProductID,
		domain.FieldName:          deref(r.Name),
		domain.FieldCategory:      deref(r.Category),
		domain.FieldPrice:         deref(r.Price),
		domain.FieldOriginalPrice: deref(r.OriginalPrice),
		domain.FieldUnit:          deref(r.Unit),
		domain.FieldImageURL:      deref(r.ImageURL),
		domain.FieldInStock:       deref(r.InStock),
		domain.FieldStock:         deref(r.Stock),
		domain.FieldOrigin:        deref(r.Origin),
		domain.FieldDescription:   deref(r.Description),
		domain.FieldCreatedAt:     deref(r.CreatedAt),
		domain.FieldUpdatedAt:     deref(r.UpdatedAt),
		domain.FieldIsActive:      deref(r.IsActive),
		domain.FieldIsOrganic:     deref(r.IsOrganic),
		domain.FieldIsBestSeller:  deref(r.IsBestSeller),
		domain.FieldFreeShipping:  deref(r.FreeShipping),
		domain.FieldUserID:        deref(r.UserID),
	}
}

// insertValues binds row to the insertQuery placeholders.
func insertValues(row storage.Row) []interface{} {
	stock := row.Int(domain.FieldStock)

	var userID interface{}
	if id := row.String(domain.FieldUserID); id != "" {
		userID = id
	}

	return []interface{}{
		row.String(domain.FieldProductID),
		row.String(domain.FieldName),
		row.String(domain.FieldCategory),
		row.Float(domain.FieldPrice),
		row.Float(domain.FieldOriginalPrice),
		row.String(domain.FieldUnit),
		row.String(domain.FieldImageURL),
		stock > 0,
		stock,
		row.String(domain.FieldOrigin),
		row.String(domain.FieldDescription),
		dateValue(row.Time(domain.FieldCreatedAt)),
		dateValue(row.Time(domain.FieldUpdatedAt)),
		row.Bool(domain.FieldIsActive),
		row.NullableBool(domain.FieldIsOrganic),
		row.NullableBool(domain.FieldIsBestSeller),
		row.Bool(domain.FieldFreeShipping),
		userID,
	}
}

func dateValue(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return domain.DateOf(t)
}

func deref[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
