// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindConflict        Kind = "conflict"
	KindUpstream        Kind = "upstream_auth_error"
	KindUnauthenticated Kind = "unauthenticated"
	KindInternal        Kind = "internal"
)

// Conflict causes.
var (
	ErrSlugTaken       = errors.New("slug already taken")
	ErrAlreadyMember   = errors.New("user is already a member of this workspace")
	ErrLastAdmin       = errors.New("workspace must keep at least one admin")
	ErrOwnerImmutable  = errors.New("workspace owner must remain an admin member")
	ErrInvalidAssignee = errors.New("assignee is not a member of this workspace")
	ErrEmailTaken      = errors.New("email already registered")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Kind    Kind
	Message string
	// Reason is internal detail (e.g. the authorization deny reason). Never rendered.
	Reason string
	Fields []FieldError
	// Status overrides the kind's default HTTP status when non-zero.
	Status int
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Field(field, message string) FieldError {
	return FieldError{Field: field, Message: message}
}

func Validation(fields ...FieldError) *AppError {
	return &AppError{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

func NotFound(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: resource + " not found"}
}

func Forbidden(reason string) *AppError {
	return &AppError{Kind: KindForbidden, Message: "forbidden", Reason: reason}
}

func Conflict(cause error) *AppError {
	return &AppError{Kind: KindConflict, Message: cause.Error(), Err: cause}
}

// Upstream wraps an identity-provider failure, passing its status through.
func Upstream(status int, message string, cause error) *AppError {
	return &AppError{Kind: KindUpstream, Message: message, Status: status, Err: cause}
}

func Unauthenticated(message string) *AppError {
	return &AppError{Kind: KindUnauthenticated, Message: message}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal server error", Err: err}
}

// InvalidAssignee is the validation error for a task assignee outside the workspace.
func InvalidAssignee() *AppError {
	e := Validation(Field("assigneeId", ErrInvalidAssignee.Error()))
	e.Err = ErrInvalidAssignee
	return e
}

func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if appErr.Status != 0 {
		return appErr.Status
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
