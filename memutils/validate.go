package memutils

import cerrors "github.com/cockroachdb/errors"

// Validatable is implemented by every structure with internal consistency checks. DebugValidate
// and ValidateAll act upon it.
type Validatable interface {
	Validate() error
}

// ValidateAll runs every validator and combines their failures into one error
func ValidateAll(validatables ...Validatable) error {
	var err error
	for _, validatable := range validatables {
		err = cerrors.CombineErrors(err, validatable.Validate())
	}
	return err
}
