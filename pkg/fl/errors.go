package fl

import (
	"errors"
	"fmt"

	pkgerrors "github.com/absmach/fldash/pkg/errors"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrOutOfRange   = errors.New("field out of range")
	ErrDuplicateID  = errors.New("duplicate client id")
)

func malformed(err error, field string) error {
	return errors.Join(pkgerrors.ErrMalformedPayload, fmt.Errorf("%w: %s", err, field))
}
