package auth

import "errors"

var ErrInvalidInput = errors.New("auth: invalid input")
