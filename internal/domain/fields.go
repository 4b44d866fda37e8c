package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Fields is a flat attribute mapping keyed by field name, as received from a
// client or produced by a storage backend.
type Fields map[string]any

// ignoredFields are accepted in a mapping but never used for construction.
// inStock is always recomputed from stock.
var ignoredFields = map[string]struct{}{
	FieldInStock: {},
}

// InputFromFields coerces a raw mapping into constructor arguments. Keys
// outside the product schema, and the derived inStock key, are ignored. A nil
// value is treated as absent. A value of the wrong type yields a
// *ValidationError naming the field.
func InputFromFields(fields Fields) (ProductInput, error) {
	var in ProductInput
	var err error

	for key, raw := range fields {
		if _, skip := ignoredFields[key]; skip || raw == nil {
			continue
		}

		switch key {
		case FieldProductID:
			in.ProductID, err = asString(key, raw)
		case FieldName:
			in.Name, err = asString(key, raw)
		case FieldCategory:
			in.Category, err = asString(key, raw)
		case FieldUnit:
			in.Unit, err = asString(key, raw)
		case FieldImageURL:
			in.ImageURL, err = asString(key, raw)
		case FieldOrigin:
			in.Origin, err = asString(key, raw)
		case FieldDescription:
			in.Description, err = asString(key, raw)
		case FieldUserID:
			in.UserID, err = asString(key, raw)
		case FieldPrice:
			in.Price, err = asFloat(key, raw)
		case FieldOriginalPrice:
			in.OriginalPrice, err = asFloat(key, raw)
		case FieldStock:
			in.Stock, err = asInt(key, raw)
		case FieldIsActive:
			in.IsActive, err = asBool(key, raw)
		case FieldIsOrganic:
			in.IsOrganic, err = asBool(key, raw)
		case FieldIsBestSeller:
			in.IsBestSeller, err = asBool(key, raw)
		case FieldFreeShipping:
			in.FreeShipping, err = asBool(key, raw)
		case FieldCreatedAt:
			in.CreatedAt, err = asDate(key, raw)
		case FieldUpdatedAt:
			in.UpdatedAt, err = asDate(key, raw)
		}

		if err != nil {
			return ProductInput{}, err
		}
	}

	return in, nil
}

// ProductFromFields is InputFromFields followed by NewProduct.
func ProductFromFields(fields Fields) (*Product, error) {
	in, err := InputFromFields(fields)
	if err != nil {
		return nil, err
	}
	return NewProduct(in)
}

func asString(field string, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	default:
		return "", newValidationError(field, field+" must be a string")
	}
}

func asFloat(field string, v any) (*float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil, newValidationError(field, field+" must be a number")
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, newValidationError(field, field+" must be a number")
		}
		f = parsed
	default:
		return nil, newValidationError(field, field+" must be a number")
	}
	return &f, nil
}

func asInt(field string, v any) (*int, error) {
	var i int
	switch n := v.(type) {
	case int:
		i = n
	case int8:
		i = int(n)
	case int16:
		i = int(n)
	case int32:
		i = int(n)
	case int64:
		return intInRange(field, float64(n))
	case uint:
		if uint64(n) > math.MaxInt32 {
			return nil, newValidationError(field, field+" is too large")
		}
		i = int(n)
	case uint32:
		i = int(n)
	case uint64:
		if n > math.MaxInt32 {
			return nil, newValidationError(field, field+" is too large")
		}
		i = int(n)
	case json.Number:
		parsed, err := n.Int64()
		if err == nil {
			return intInRange(field, float64(parsed))
		}
		f, ferr := n.Float64()
		if ferr != nil && !math.IsInf(f, 0) {
			return nil, newValidationError(field, field+" must be an integer")
		}
		return intInRange(field, f)
	case float64, float32:
		f, _ := asFloat(field, n)
		return intInRange(field, *f)
	default:
		return nil, newValidationError(field, field+" must be an integer")
	}
	return &i, nil
}

// intInRange converts an integral float, rejecting values outside the 32-bit
// range before the conversion can overflow.
func intInRange(field string, f float64) (*int, error) {
	switch {
	case math.IsNaN(f) || (!math.IsInf(f, 0) && f != math.Trunc(f)):
		return nil, newValidationError(field, field+" must be an integer")
	case f > math.MaxInt32:
		return nil, newValidationError(field, field+" is too large")
	case f < math.MinInt32:
		return nil, newValidationError(field, field+" cannot be negative")
	}
	i := int(f)
	return &i, nil
}

func asBool(field string, v any) (*bool, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, newValidationError(field, field+" must be a boolean")
	}
	return &b, nil
}

func asDate(field string, v any) (*time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return nil, nil
		}
		date := DateOf(d)
		return &date, nil
	case string:
		date, err := ParseDate(d)
		if err != nil {
			return nil, newValidationError(field, field+" must be an ISO-8601 date")
		}
		return &date, nil
	default:
		return nil, newValidationError(field, field+" must be an ISO-8601 date")
	}
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp and returns the
// calendar date as written.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, err
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
