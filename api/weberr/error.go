package weberr

import (
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type RequestError struct {
	Err error
}

func (r *RequestError) Error() string { return r.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

func NewError(err error, msg string, status int, opts ...Opt) error {
	e := &RequestError{Err: err}
	opts = append(opts, WithResponse(
		&ErrorResponse{msg},
		status,
	))

	return Wrap(e, opts...)
}

func NotFound(err error, opts ...Opt) error {
	return NewError(
		err,
		"the resource could not be found",
		http.StatusNotFound,
		opts...,
	)
}

func NotAuthorized(err error, opts ...Opt) error {
	return NewError(
		err,
		"not authorized to access resource",
		http.StatusUnauthorized,
		opts...,
	)
}

func InternalError(err error, opts ...Opt) error {
	return NewError(
		err,
		"the server encountered a problem and could not process your request",
		http.StatusInternalServerError,
		opts...,
	)
}

func BadRequest(err error, opts ...Opt) error {
	return NewError(
		err,
		"bad request",
		http.StatusBadRequest,
		opts...,
	)
}

func UnprocessableEntity(err error, msg string, opts ...Opt) error {
	return NewError(err, msg, http.StatusUnprocessableEntity, opts...)
}

type upstream interface {
	StatusCode() int
	Reason() string
}

// Upstream maps an error from a remote service. Client errors are passed
// through with the remote message; anything else is a bad gateway.
func Upstream(err error, opts ...Opt) error {
	var up upstream
	if !errors.As(err, &up) {
		return err
	}

	st := up.StatusCode()
	if st < 400 || st > 499 {
		return NewError(err, "the backend could not process the request", http.StatusBadGateway, opts...)
	}

	msg := up.Reason()
	if msg == "" {
		msg = http.StatusText(st)
	}
	return NewError(err, msg, st, opts...)
}
