package domain

import "fmt"

// RejectionCode identifies why a mutation was refused.
type RejectionCode string

const (
	RejectInvalidCoordinates RejectionCode = "invalid_coordinates"
	RejectInvalidCountryCode RejectionCode = "invalid_country_code"
	RejectMissingField       RejectionCode = "missing_field"
	RejectDuplicateLocation  RejectionCode = "duplicate_location"
	RejectNearbyLocation     RejectionCode = "nearby_location"
	RejectNotFound           RejectionCode = "not_found"
	RejectImportMalformed    RejectionCode = "import_malformed"
)

// Rejection is a structured refusal returned to the immediate caller. It is
// never thrown past the store boundary; the transport layer maps it to a
// field-level message or a conflict response.
type Rejection struct {
	Code     RejectionCode
	Field    string
	Message  string
	Conflict *Location // set for duplicate/nearby rejections
}

func (r *Rejection) Error() string {
	if r.Field != "" {
		return fmt.Sprintf("%s: %s: %s", r.Code, r.Field, r.Message)
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func reject(code RejectionCode, field, message string) *Rejection {
	return &Rejection{Code: code, Field: field, Message: message}
}

// FieldError is one entry of the strict validation path's error list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
