package product

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is the absent sentinel for delete and mark-viewed targets.
var ErrNotFound = errors.New("product not found")

// SourceError reports a non-success response from the external product
// source. The upstream status code and message pass through to the HTTP
// caller verbatim.
type SourceError struct {
	StatusCode int
	Message    string
}

func (e SourceError) Error() string {
	return fmt.Sprintf("source returned %d: %s", e.StatusCode, e.Message)
}

// MalformedResponseError reports an upstream success whose body did not carry
// the expected listing shape. Kept distinct from SourceError so callers can
// tell "upstream is broken" from "upstream answered with something unexpected".
type MalformedResponseError struct {
	Reason string
}

func (e MalformedResponseError) Error() string {
	return "malformed source response: " + e.Reason
}

// PipelineError wraps any failure the pipeline did not classify before it
// crosses the service boundary.
type PipelineError struct {
	Err error
}

func (e PipelineError) Error() string {
	return "failed to fetch or store products: " + e.Err.Error()
}

func (e PipelineError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps an error to the status code and message the HTTP surface
// must emit for it.
func HTTPStatus(err error) (int, string) {
	var se SourceError
	if errors.As(err, &se) {
		return se.StatusCode, se.Message
	}
	var me MalformedResponseError
	if errors.As(err, &me) {
		return http.StatusBadRequest, me.Error()
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound, "Product not found"
	}
	return http.StatusInternalServerError, err.Error()
}
