package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a stored document (User, Conversation or Message) against its
// declared constraints. Failures wrap ErrMalformedDocument.
func Validate(doc any) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return nil
}

// ValidateNew is Validate for a document that has not been assigned an ID yet.
func ValidateNew(doc any) error {
	if err := validate.StructExcept(doc, "ID"); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return nil
}
