package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"

	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
)

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Messages shown to operators, keyed by struct namespace.
var fieldMessages = map[string]string{
	"Student.Name":          "Student name is required",
	"Student.RollNumber":    "Roll number is required",
	"Student.Class":         "Class is required",
	"Student.ParentName":    "Parent name is required",
	"Student.ContactNumber": "Contact number is required",
	"Student.Address":       "Address is required",
	"Student.AdmissionDate": "Admission date is required",

	"FeeStructure.Name":      "Fee name is required",
	"FeeStructure.Amount":    "Valid fee amount is required",
	"FeeStructure.Frequency": "Valid frequency is required",

	"Payment.StudentID":      "Student ID is required",
	"Payment.FeeStructureID": "Fee structure ID is required",
	"Payment.Amount":         "Valid payment amount is required",
	"Payment.PaymentDate":    "Payment date is required",
	"Payment.PaymentMethod":  "Valid payment method is required",
	"Payment.ReceiptNumber":  "Receipt number is required",
	"Payment.Status":         "Valid payment status is required",
	"Payment.CreatedBy":      "Creator information is required",

	"RegisterRequest.Email":       "Email is required",
	"RegisterRequest.Password":    "Password is required",
	"RegisterRequest.DisplayName": "Display name is required",
	"SignInRequest.Email":         "Email is required",
	"SignInRequest.Password":      "Password is required",
}

// NewValidator returns a validator that understands the domain models: the
// notblank rule, decimal amounts and JSON field names in errors.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("cents", maxTwoDecimals)
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// maxTwoDecimals rejects amounts finer than one cent; stored amounts are
// NUMERIC(12,2).
func maxTwoDecimals(fl validator.FieldLevel) bool {
	var d decimal.Decimal
	switch v := fl.Field().Interface().(type) {
	case decimal.Decimal:
		d = v
	case float64:
		d = decimal.NewFromFloat(v)
	default:
		return false
	}
	return d.Equal(d.Round(2))
}

// validateStruct runs v over value and converts the first failure into a
// VALIDATION_ERROR wrapping a *ValidationError.
func validateStruct(v *validator.Validate, value interface{}) error {
	err := v.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}
	fe := fieldErrs[0]
	message, ok := fieldMessages[fe.StructNamespace()]
	if !ok {
		message = fe.Field() + " is invalid"
	}
	return newValidationError(fe.Field(), message)
}

// AsValidationError extracts the failing field from err, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

func newValidationError(field, message string) error {
	return appErrors.Wrap(&ValidationError{Field: field, Message: message}, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
