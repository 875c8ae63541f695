package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/example/shopdash/pkg/forms"
)

// Kind classifies a failed backend call.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindInvalid      Kind = "invalid"
	KindUnauthorized Kind = "unauthorized"
	KindClient       Kind = "client"
	KindServer       Kind = "server"
	KindDecode       Kind = "decode"
	KindCanceled     Kind = "canceled"
)

const (
	msgNetwork = "Network error. Please check your connection."
	msgServer  = "Something went wrong. Please try again later."
	msgClient  = "The request could not be completed."
	msgAuth    = "Your session has expired. Please log in again."
	msgInvalid = "Please fill in all required fields correctly."
)

type Error struct {
	Kind    Kind
	Status  int
	Message string // server supplied message, when any
	Fields  forms.FieldErrors
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("backend %s (%d): %s", e.Kind, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("backend %s (%d)", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("backend %s: %v", e.Kind, e.Err)
	}
	return "backend " + string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// As extracts a backend error.
func As(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsUnauthorized reports a 401 from the backend or a missing token.
func IsUnauthorized(err error) bool {
	be, ok := As(err)
	return ok && be.Kind == KindUnauthorized
}

// IsCanceled reports a request abandoned because its context ended.
func IsCanceled(err error) bool {
	if be, ok := As(err); ok && be.Kind == KindCanceled {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// ToastMessage is the text shown to the user for err: the server's message
// for 4xx responses, a generic message otherwise.
func ToastMessage(err error) string {
	be, ok := As(err)
	if !ok {
		var fe *forms.Error
		if errors.As(err, &fe) {
			return msgInvalid
		}
		return msgServer
	}
	switch be.Kind {
	case KindNetwork:
		return msgNetwork
	case KindUnauthorized:
		if be.Message != "" {
			return be.Message
		}
		return msgAuth
	case KindClient:
		if be.Message != "" {
			return be.Message
		}
		return msgClient
	case KindInvalid:
		return msgInvalid
	default:
		return msgServer
	}
}

// HTTPStatus maps err onto the status the gateway answers with.
func HTTPStatus(err error) int {
	be, ok := As(err)
	if !ok {
		var fe *forms.Error
		if errors.As(err, &fe) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
	switch be.Kind {
	case KindInvalid:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindClient:
		if be.Status != 0 {
			return be.Status
		}
		return http.StatusBadRequest
	case KindNetwork, KindServer, KindDecode:
		return http.StatusBadGateway
	case KindCanceled:
		return 499
	}
	return http.StatusInternalServerError
}

func invalid(err error) error {
	var fe *forms.Error
	if errors.As(err, &fe) {
		return &Error{Kind: KindInvalid, Fields: fe.Fields, Err: err}
	}
	return &Error{Kind: KindInvalid, Err: err}
}
