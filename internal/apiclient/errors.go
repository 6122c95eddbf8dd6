package apiclient

import (
	"errors"
	"fmt"
)

var (
	ErrRejected  = errors.New("api rejected request")
	ErrEmptyData = errors.New("api response has no data")
	ErrStatus    = errors.New("api http error")
	ErrNoExpiry  = errors.New("token has no expiry")
)

// RejectedError es un sobre con success:false, sin importar el status HTTP.
type RejectedError struct {
	Path    string
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Path, ErrRejected)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, ErrRejected, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// StatusError es una respuesta >= 400 sin sobre decodificable.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s: status=%d", e.Path, ErrStatus, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrStatus }
