package tracker

import (
	"strings"

	"marriage-compliance/internal/common/errors"
)

const maxFileReferenceLength = 512

// validateFileReference checks the opaque storage handle attached to an
// upload. The engine never dereferences it, so validation is purely
// syntactic.
func validateFileReference(ref string) error {
	switch {
	case ref == "":
		return errors.NewValidationError("file reference is required")
	case len(ref) > maxFileReferenceLength:
		return errors.NewValidationError("file reference exceeds maximum length")
	case strings.ContainsAny(ref, " \t\n"):
		return errors.NewValidationError("file reference must not contain whitespace")
	}
	return nil
}
