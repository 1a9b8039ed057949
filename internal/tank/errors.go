package tank

import "errors"

var (
	// ErrUnknownAction is returned by ParseAction for names outside the action catalog.
	ErrUnknownAction = errors.New("unknown tank action")

	// ErrMissingContentID flags a record that names a content without its id.
	ErrMissingContentID = errors.New("content present without content id")

	// ErrOrphanContentID flags a record that carries a content id but no content name.
	ErrOrphanContentID = errors.New("content id present without content")

	// ErrMalformed flags a record whose fields could not be decoded.
	ErrMalformed = errors.New("malformed deposit record")

	errMissingDepositID = errors.New("missing idDeposito")
)
