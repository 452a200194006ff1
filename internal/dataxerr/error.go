// Package dataxerr defines the tagged error type returned by every SDK operation.
package dataxerr

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/rpc"
)

// Kind identifies which stage of an operation failed.
type Kind string

const (
	InsufficientBalance    Kind = "InsufficientBalance"
	ApprovalFailed         Kind = "ApprovalFailed"
	ExceedsMaxTradeable    Kind = "ExceedsMaxTradeable"
	GasEstimationFailed    Kind = "GasEstimationFailed"
	TransactionFailed      Kind = "TransactionFailed"
	QuoteUnavailable       Kind = "QuoteUnavailable"
	ConfigResolutionFailed Kind = "ConfigResolutionFailed"
	InvalidArgument        Kind = "InvalidArgument"
	// ChainReadFailed is a failed read-only query (balance, allowance, token metadata).
	ChainReadFailed        Kind = "ChainReadFailed"
)

const (
	// CodeProcessingFailed is the generic failure code.
	CodeProcessingFailed = 1000
	// CodeUserRejected is reserved for a signer that declined to sign (EIP-1193).
	CodeUserRejected = 4001
)

// ErrUserRejected is returned (or wrapped) by signers when the user declines.
var ErrUserRejected = errors.New("user rejected the request")

type Error struct {
	kind    Kind
	code    int
	message string
	cause   error
	details map[string]string

	approvalCommitted bool
}

// New creates an error of the given kind with the generic failure code.
func New(kind Kind, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{kind: kind, code: CodeProcessingFailed, message: msg}
}

// Wrap creates an error of the given kind caused by cause. A cause that is
// already an *Error keeps its code, and a user rejection anywhere in the chain
// yields CodeUserRejected.
func Wrap(cause error, kind Kind, format string, args ...any) *Error {
	e := New(kind, format, args...)
	e.cause = cause
	var inner *Error
	if errors.As(cause, &inner) {
		e.code = inner.code
		e.approvalCommitted = inner.approvalCommitted
	}
	if IsUserRejection(cause) {
		e.code = CodeUserRejected
	}
	return e
}

func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.kind, e.message)
	}
	return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Code() int { return e.code }

func (e *Error) Message() string { return e.message }

func (e *Error) Details() map[string]string { return e.details }

// ApprovalCommitted reports whether an approval transaction was mined before
// the step that failed. The approval is not rolled back.
func (e *Error) ApprovalCommitted() bool { return e.approvalCommitted }

func (e *Error) WithCode(code int) *Error {
	e.code = code
	return e
}

func (e *Error) WithDetail(key, value string) *Error {
	if e.details == nil {
		e.details = make(map[string]string)
	}
	e.details[key] = value
	return e
}

func (e *Error) WithApprovalCommitted() *Error {
	e.approvalCommitted = true
	return e
}

// Is matches another *Error of the same kind, so errors.Is(err, dataxerr.New(kind, ""))
// can be used as a kind test.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.kind == e.kind
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return "", false
}

// HasKind reports whether err carries an *Error of kind k anywhere in its chain.
func HasKind(err error, k Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.kind == k {
			return true
		}
		err = e.cause
	}
	return false
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeProcessingFailed for foreign errors.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	if IsUserRejection(err) {
		return CodeUserRejected
	}
	return CodeProcessingFailed
}

// IsUserRejection recognises ErrUserRejected and JSON-RPC errors carrying code 4001.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode() == CodeUserRejected
	}
	return false
}
