package input

import "errors"

var (
	// ErrOutOfRange is returned when a noise threshold or input delta is
	// set outside [0, 1].
	ErrOutOfRange = errors.New("value must be between zero and one")

	ErrUnknownInput   = errors.New("unknown input")
	ErrDuplicateInput = errors.New("duplicate input name")
	ErrInvalidIndex   = errors.New("invalid input index")
)
