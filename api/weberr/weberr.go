// Package weberr attaches HTTP responses, log fields and headers to errors
// as they travel back to the Errors middleware.
package weberr

import (
	"errors"
	"net/http"
)

type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

func WithResponse(body interface{}, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

func WithFields(fields map[string]interface{}) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}

// WithHeader sets a response header when the error is written.
func WithHeader(key, value string) Opt {
	return func(err error) error {
		return &headerError{error: err, key: key, value: value}
	}
}

// =============================================================================

type responder interface {
	Response() (body interface{}, status int)
}

func Response(err error) (body interface{}, status int, ok bool) {
	var re responder
	if errors.As(err, &re) {
		body, code := re.Response()
		return body, code, true
	}
	return nil, 0, false
}

type responseError struct {
	error
	body   interface{}
	status int
}

func (e *responseError) Response() (interface{}, int) { return e.body, e.status }

func (e *responseError) Unwrap() error { return e.error }

// =============================================================================

type fielder interface {
	Fields() map[string]interface{}
}

func Fields(err error) (fields map[string]interface{}, ok bool) {
	var fe fielder
	if errors.As(err, &fe) {
		return fe.Fields(), true
	}
	return nil, false
}

type fieldsError struct {
	error
	fields map[string]interface{}
}

func (e *fieldsError) Fields() map[string]interface{} { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }

// =============================================================================

// Headers collects every header attached along the chain of err.
func Headers(err error) http.Header {
	h := http.Header{}
	for err != nil {
		if he, ok := err.(*headerError); ok {
			if h.Get(he.key) == "" {
				h.Set(he.key, he.value)
			}
		}
		err = errors.Unwrap(err)
	}
	return h
}

type headerError struct {
	error
	key, value string
}

func (e *headerError) Unwrap() error { return e.error }
