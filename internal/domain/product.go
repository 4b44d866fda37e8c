package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field names shared by the raw field mapping, backend rows and the JSON body.
const (
	FieldProductID     = "productId"
	FieldName          = "name"
	FieldCategory      = "category"
	FieldPrice         = "price"
	FieldOriginalPrice = "originalPrice"
	FieldUnit          = "unit"
	FieldImageURL      = "imageUrl"
	FieldInStock       = "inStock"
	FieldStock         = "stock"
	FieldOrigin        = "origin"
	FieldDescription   = "description"
	FieldCreatedAt     = "createdAt"
	FieldUpdatedAt     = "updatedAt"
	FieldIsActive      = "isActive"
	FieldIsOrganic     = "isOrganic"
	FieldIsBestSeller  = "isBestSeller"
	FieldFreeShipping  = "freeShipping"
	FieldUserID        = "user_id"
)

// MaxStock is the largest stock level the storage backends can hold.
const MaxStock = math.MaxInt32

// DateLayout is the ISO-8601 calendar date format used on the wire.
const DateLayout = "2006-01-02"

var productIDPattern = regexp.MustCompile(`^PROD-[0-9A-F]{8}$`)

// Product is a catalog entry. Instances are only produced by NewProduct, so
// every Product satisfies the price, stock and required-field invariants.
type Product struct {
	ProductID     string
	Name          string
	Category      string
	Price         float64
	OriginalPrice *float64
	Unit          string
	ImageURL      string
	Stock         int
	Origin        string
	Description   string
	IsActive      bool
	IsOrganic     *bool
	IsBestSeller  *bool
	FreeShipping  bool
	UserID        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductInput carries the constructor arguments. Nil pointers mean the value
// was not supplied and the default applies.
type ProductInput struct {
	ProductID     string
	Name          string
	Category      string
	Price         *float64
	OriginalPrice *float64
	Unit          string
	ImageURL      string
	Stock         *int
	Origin        string
	Description   string
	IsActive      *bool
	IsOrganic     *bool
	IsBestSeller  *bool
	FreeShipping  *bool
	UserID        string
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
}

// NewProduct validates input and builds a Product with defaults applied.
func NewProduct(in ProductInput) (*Product, error) {
	p := &Product{
		ProductID:    strings.TrimSpace(in.ProductID),
		Name:         strings.TrimSpace(in.Name),
		Category:     strings.TrimSpace(in.Category),
		Unit:         strings.TrimSpace(in.Unit),
		ImageURL:     strings.TrimSpace(in.ImageURL),
		Origin:       strings.TrimSpace(in.Origin),
		Description:  in.Description,
		IsActive:     true,
		IsOrganic:    in.IsOrganic,
		IsBestSeller: in.IsBestSeller,
		UserID:       strings.TrimSpace(in.UserID),
	}

	required := []struct {
		field string
		value string
	}{
		{FieldProductID, p.ProductID},
		{FieldName, p.Name},
		{FieldUnit, p.Unit},
		{FieldOrigin, p.Origin},
		{FieldImageURL, p.ImageURL},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, newValidationError(r.field, r.field+" is required")
		}
	}

	if in.Price == nil {
		return nil, newValidationError(FieldPrice, "price is required")
	}
	switch price := *in.Price; {
	case math.IsNaN(price):
		return nil, newValidationError(FieldPrice, "price must be a number")
	case math.IsInf(price, 0):
		return nil, newValidationError(FieldPrice, "price must be a finite number")
	case price < 0:
		return nil, newValidationError(FieldPrice, "price cannot be negative")
	}
	p.Price = *in.Price

	if in.Stock == nil {
		return nil, newValidationError(FieldStock, "stock is required")
	}
	if *in.Stock < 0 {
		return nil, newValidationError(FieldStock, "stock cannot be negative")
	}
	// Both persistent backends store stock as a 32-bit integer.
	if *in.Stock > MaxStock {
		return nil, newValidationError(FieldStock, "stock is too large")
	}
	p.Stock = *in.Stock

	if in.OriginalPrice != nil && isFinite(*in.OriginalPrice) {
		v := *in.OriginalPrice
		p.OriginalPrice = &v
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.FreeShipping != nil {
		p.FreeShipping = *in.FreeShipping
	}

	today := Today()
	p.CreatedAt = today
	if in.CreatedAt != nil {
		p.CreatedAt = DateOf(*in.CreatedAt)
	}
	p.UpdatedAt = today
	if in.UpdatedAt != nil {
		p.UpdatedAt = DateOf(*in.UpdatedAt)
	}

	return p, nil
}

// InStock is derived from the stock level and never stored authoritatively.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// Input returns the constructor arguments that reproduce p.
func (p *Product) Input() ProductInput {
	price := p.Price
	stock := p.Stock
	isActive := p.IsActive
	freeShipping := p.FreeShipping
	createdAt := p.CreatedAt
	updatedAt := p.UpdatedAt

	return ProductInput{
		ProductID:     p.ProductID,
		Name:          p.Name,
		Category:      p.Category,
		Price:         &price,
		OriginalPrice: cloneFloat(p.OriginalPrice),
		Unit:          p.Unit,
		ImageURL:      p.ImageURL,
		Stock:         &stock,
		Origin:        p.Origin,
		Description:   p.Description,
		IsActive:      &isActive,
		IsOrganic:     cloneBool(p.IsOrganic),
		IsBestSeller:  cloneBool(p.IsBestSeller),
		FreeShipping:  &freeShipping,
		UserID:        p.UserID,
		CreatedAt:     &createdAt,
		UpdatedAt:     &updatedAt,
	}
}

// ToMap returns every attribute keyed by its field name. Dates are ISO
// strings and absent nullable values are nil.
func (p *Product) ToMap() Fields {
	var originalPrice any
	if p.OriginalPrice != nil && isFinite(*p.OriginalPrice) {
		originalPrice = *p.OriginalPrice
	}
	var price any = p.Price
	if !isFinite(p.Price) {
		price = nil
	}
	var userID any
	if p.UserID != "" {
		userID = p.UserID
	}

	return Fields{
		FieldProductID:     p.ProductID,
		FieldName:          p.Name,
		FieldCategory:      p.Category,
		FieldPrice:         price,
		FieldOriginalPrice: originalPrice,
		FieldUnit:          p.Unit,
		FieldImageURL:      p.ImageURL,
		FieldInStock:       p.InStock(),
		FieldStock:         p.Stock,
		FieldOrigin:        p.Origin,
		FieldDescription:   p.Description,
		FieldCreatedAt:     p.CreatedAt.Format(DateLayout),
		FieldUpdatedAt:     p.UpdatedAt.Format(DateLayout),
		FieldIsActive:      p.IsActive,
		FieldIsOrganic:     boolOrNil(p.IsOrganic),
		FieldIsBestSeller:  boolOrNil(p.IsBestSeller),
		FieldFreeShipping:  p.FreeShipping,
		FieldUserID:        userID,
	}
}

func (p *Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToMap())
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var fields Fields
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	in, err := InputFromFields(fields)
	if err != nil {
		return err
	}
	built, err := NewProduct(in)
	if err != nil {
		return err
	}
	*p = *built
	return nil
}

// NewProductID returns an identifier of the form PROD-XXXXXXXX.
func NewProductID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PROD-" + strings.ToUpper(hex[:8])
}

// IsValidProductID reports whether id has the generated identifier shape.
func IsValidProductID(id string) bool {
	return productIDPattern.MatchString(id)
}

// Today returns the current UTC calendar date.
func Today() time.Time {
	return DateOf(time.Now())
}

// DateOf drops the time of day, keeping the calendar date in UTC.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func boolOrNil(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
