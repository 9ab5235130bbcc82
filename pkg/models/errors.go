package models

import "errors"

// ErrValidation marks bad caller input: an unrecognized role or a
// message with neither content nor attachments.
var ErrValidation = errors.New("validation")
