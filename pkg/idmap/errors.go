package idmap

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error. Each kind carries a stable numeric
// code and a short human label; the HTTP layer maps kinds to status codes.
type ErrorKind int

const (
	// AuthenticationFailed is a general authentication failure.
	AuthenticationFailed ErrorKind = 10000
	// NoToken means no authentication token was supplied where one is required.
	NoToken ErrorKind = 10010
	// InvalidToken means the supplied token was rejected by its authentication source.
	InvalidToken ErrorKind = 10020
	// Unauthorized means the user lacks permission for the operation.
	Unauthorized ErrorKind = 20000
	// MissingParameter means a required input was absent or whitespace-only.
	MissingParameter ErrorKind = 30000
	// IllegalParameter means an input violated length or character constraints.
	IllegalParameter ErrorKind = 30001
	// IllegalUsername means a user name violated the username constraints.
	IllegalUsername ErrorKind = 30010
	// UserExists means the user to be created already exists.
	UserExists ErrorKind = 40000
	// NamespaceExists means the namespace to be created already exists.
	NamespaceExists ErrorKind = 40010
	// NoSuchUser means the referenced user does not exist.
	NoSuchUser ErrorKind = 50000
	// NoSuchNamespace means the referenced namespace does not exist.
	NoSuchNamespace ErrorKind = 50010
	// NoSuchAuthsource means the referenced authentication source is not configured.
	NoSuchAuthsource ErrorKind = 50020
	// UnsupportedOp means the operation is not supported by this deployment.
	UnsupportedOp ErrorKind = 60000
)

// Code returns the stable numeric code for the kind.
func (k ErrorKind) Code() int {
	return int(k)
}

// Label returns the short human label for the kind.
func (k ErrorKind) Label() string {
	switch k {
	case AuthenticationFailed:
		return "Authentication failed"
	case NoToken:
		return "No authentication token"
	case InvalidToken:
		return "Invalid token"
	case Unauthorized:
		return "Unauthorized"
	case MissingParameter:
		return "Missing input parameter"
	case IllegalParameter:
		return "Illegal input parameter"
	case IllegalUsername:
		return "Illegal user name"
	case UserExists:
		return "User already exists"
	case NamespaceExists:
		return "Namespace already exists"
	case NoSuchUser:
		return "No such user"
	case NoSuchNamespace:
		return "No such namespace"
	case NoSuchAuthsource:
		return "No such authentication source"
	case UnsupportedOp:
		return "Unsupported operation"
	default:
		return "Unknown error"
	}
}

// Error is a domain error carrying a kind and a message.
//
// Error values with the same kind match under errors.Is, so callers can
// branch on idmap.NewError(idmap.NoSuchUser, "") style sentinels without
// caring about the message.
type Error struct {
	Kind    ErrorKind
	Message string
}

// NewError creates a domain error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewErrorf creates a domain error with a formatted message.
func NewErrorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error renders the error as "{code} {label}: {message}", omitting the
// message part when empty.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Kind.Code(), e.Kind.Label())
	}
	return fmt.Sprintf("%d %s: %s", e.Kind.Code(), e.Kind.Label(), e.Message)
}

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of err if it is a domain error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
