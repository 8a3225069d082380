package statemachine

import "errors"

var ErrUnknownStatus = errors.New("INVALID_STATUS")
