package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a business-rule rejection. The transport layer maps
// each kind to an HTTP status class.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindForbidden  ErrorKind = "forbidden"
)

// Error is a business-rule rejection. Code is part of the client contract
// and must never change once released.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func notFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func forbidden(code, message string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

var (
	ErrEmptyMessage    = validation("EMPTY_MESSAGE", "message content cannot be empty")
	ErrMessageTooLong  = validation("MESSAGE_TOO_LONG", "message content exceeds 5000 characters")
	ErrSelfMessage     = validation("SELF_MESSAGE", "cannot send a message to yourself")
	ErrSelfBlock       = validation("SELF_BLOCK", "cannot block yourself")
	ErrSelfReport      = validation("SELF_REPORT", "cannot report your own message")
	ErrEmptyReason     = validation("EMPTY_REASON", "report reason cannot be empty")
	ErrReasonTooLong   = validation("REASON_TOO_LONG", "report reason exceeds 500 characters")
	ErrInvalidPage     = validation("INVALID_PAGE", "page must be at least 1")
	ErrInvalidPageSize = validation("INVALID_PAGE_SIZE", "page size must be between 1 and 100")

	ErrUserNotFound         = notFound("USER_NOT_FOUND", "user not found")
	ErrMessageNotFound      = notFound("MESSAGE_NOT_FOUND", "message not found")
	ErrConversationNotFound = notFound("CONVERSATION_NOT_FOUND", "conversation not found")

	ErrUserBlocked           = forbidden("USER_BLOCKED", "messaging between these users is blocked")
	ErrConversationForbidden = forbidden("CONVERSATION_FORBIDDEN", "user is not a participant of this conversation")
	ErrNotMessageSender      = forbidden("NOT_MESSAGE_SENDER", "only the sender can delete a message")
)

// AsError unwraps err into a business *Error if it carries one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
