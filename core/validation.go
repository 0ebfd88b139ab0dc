package core

import (
	"errors"
	"mime"
	"net/http"
)

const MimeTypeJSON = "application/json"

// maxBodyBytes bounds every JSON body decoded by the handlers.
const maxBodyBytes = 1 << 20

// Validator defines an interface for request validation operations
type Validator interface {
	// ContentType checks if the request's Content-Type matches the allowed type
	ContentType(r *http.Request, allowedType string) (jsonResponse, error)
}

// DefaultValidator implements the Validator interface
type DefaultValidator struct{}

func NewValidator() Validator {
	return &DefaultValidator{}
}

var errInvalidContentType = errors.New("invalid content type")

// ContentType checks if the request's Content-Type matches the allowed
// type. Parameters like charset are ignored. Mismatches get 415.
func (v *DefaultValidator) ContentType(r *http.Request, allowedType string) (jsonResponse, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return errorInvalidContentType, errInvalidContentType
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != allowedType {
		return errorInvalidContentType, errInvalidContentType
	}

	return jsonResponse{}, nil
}
