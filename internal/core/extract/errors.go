package extract

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies extraction failures.
type Kind string

const (
	KindFileTooLarge        Kind = "FileTooLarge"
	KindUnsupportedFileType Kind = "UnsupportedFileType"
	KindPasswordRequired    Kind = "PasswordRequired"
	KindIncorrectPassword   Kind = "IncorrectPassword"
	KindNoExtractableText   Kind = "NoExtractableText"
	KindAllStrategiesFailed Kind = "AllStrategiesFailed"
)

// ErrEncrypted is wrapped by strategies whose reader needs a (different) password.
var ErrEncrypted = errors.New("document is encrypted")

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// GRPCStatus lets status.FromError and status.Code read the kind as a gRPC code.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Kind.Code(), e.Error())
}

func (k Kind) Code() codes.Code {
	switch k {
	case KindFileTooLarge:
		return codes.InvalidArgument
	case KindUnsupportedFileType:
		return codes.Unimplemented
	case KindPasswordRequired:
		return codes.FailedPrecondition
	case KindIncorrectPassword:
		return codes.PermissionDenied
	case KindNoExtractableText:
		return codes.NotFound
	default:
		return codes.Internal
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsPasswordError reports whether err asks the caller to (re)prompt for a password.
func IsPasswordError(err error) bool {
	k := KindOf(err)
	return k == KindPasswordRequired || k == KindIncorrectPassword
}

func fileTooLarge(size, max int64) *Error {
	return &Error{
		Kind:    KindFileTooLarge,
		Message: fmt.Sprintf("file is %s, maximum is %s", formatSize(size), formatSize(max)),
	}
}

func unsupportedFileType(mime, name string) *Error {
	if mime == "" {
		mime = "unknown"
	}
	return &Error{
		Kind:    KindUnsupportedFileType,
		Message: fmt.Sprintf("unsupported file type %q (%s)", mime, name),
	}
}

func noExtractableText(what string) *Error {
	return &Error{Kind: KindNoExtractableText, Message: "no text could be extracted from " + what}
}

func formatSize(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
