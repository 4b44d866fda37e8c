package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"agroweb-products/internal/domain"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds request bodies decoded by this package.
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError is the per-field entry of a validation failure response.
type ValidationError = domain.ValidationError

// ErrBodyNotObject is returned when a request body is not a JSON object.
var ErrBodyNotObject = errors.New("request body must be a JSON object")

// DecodeAndValidate decodes a JSON body into v and runs its validate tags.
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// DecodeFields decodes a JSON object body into raw fields. Numbers are kept
// as json.Number so integer and float fields can be told apart later.
func DecodeFields(r *http.Request) (domain.Fields, error) {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.UseNumber()

	var fields domain.Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, ErrBodyNotObject
	}
	return fields, nil
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var out []ValidationError

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			out = append(out, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return out
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "url", "http_url":
		return "Invalid URL"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}
