// Package httputil holds the JSON plumbing of the nodecalc HTTP API.
//
// Responses are JSON documents. Failures carry the error code from
// [errors] so clients can branch on it:
//
//	{"error": {"code": "UNKNOWN_OPERATION", "message": "unknown operation \"foo\""}}
//
// The status comes from [errors.HTTPStatus].
package httputil

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/matzehuels/nodecalc/pkg/errors"
)

// MaxBodyBytes bounds request bodies read by [Decode].
const MaxBodyBytes = 1 << 20

// ErrorBody is the error document.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the code and message of a failed request.
type ErrorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err as an error document. Uncoded errors are reported as
// INTERNAL_ERROR without their text.
func Error(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	msg := Message(err)
	if code == "" {
		code = errors.ErrCodeInternal
		msg = "internal error"
	}
	JSON(w, errors.HTTPStatus(err), ErrorBody{Error: ErrorDetail{Code: code, Message: msg}})
}

// Message joins the messages of every coded error in err's chain, followed
// by the innermost cause: "rig.nc:2: parse script: <diagnostic>".
func Message(err error) string {
	var parts []string
	for err != nil {
		var e *errors.Error
		if !stderrors.As(err, &e) {
			parts = append(parts, err.Error())
			break
		}
		parts = append(parts, e.Message)
		err = e.Cause
	}
	return strings.Join(parts, ": ")
}

// Decode reads a JSON request body into v, which must be a non-nil pointer.
// Unknown fields, trailing data and bodies over MaxBodyBytes are
// INVALID_INPUT. v is only written when the whole body is accepted.
func Decode(r *http.Request, v any) error {
	dst := reflect.ValueOf(v)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return errors.New(errors.ErrCodeInternal, "decode target must be a non-nil pointer, got %T", v)
	}
	tmp := reflect.New(dst.Elem().Type())
	tmp.Elem().Set(dst.Elem())

	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(tmp.Interface()); err != nil {
		if stderrors.Is(err, io.EOF) {
			return errors.New(errors.ErrCodeInvalidInput, "request body is empty")
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request")
	}
	if dec.More() {
		return errors.New(errors.ErrCodeInvalidInput, "request body holds more than one document")
	}
	if dec.InputOffset() > MaxBodyBytes {
		return errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", MaxBodyBytes)
	}
	dst.Elem().Set(tmp.Elem())
	return nil
}
