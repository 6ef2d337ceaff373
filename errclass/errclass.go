// Package errclass carries the three-way failure taxonomy every backend or
// network error must be mapped into before the transfer orchestrators react:
// retry the operation, abort it, or abort and discard the resumable session.
package errclass

import (
	"errors"
	"fmt"
)

type Class int

const (
	// ClassRetryable marks transient faults; retry the same operation with
	// backoff up to a bounded attempt count.
	ClassRetryable Class = iota + 1
	// ClassNotRetryable marks requests that will never succeed unmodified;
	// abort the operation but keep the resumable session.
	ClassNotRetryable
	// ClassNotResumable marks faults that invalidate the whole session; abort
	// and delete the client-side session record.
	ClassNotResumable
)

func (c Class) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassNotRetryable:
		return "not_retryable"
	case ClassNotResumable:
		return "not_resumable"
	}
	return "unknown"
}

// Error tags a cause with its failure class so retry logic is a plain branch
// on the tag.
type Error struct {
	class Class
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %v", e.class, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Class() Class {
	return e.class
}

func New(class Class, cause error) error {
	return &Error{class: class, cause: cause}
}

func Retryable(cause error) error {
	return New(ClassRetryable, cause)
}

func NotRetryable(cause error) error {
	return New(ClassNotRetryable, cause)
}

func NotResumable(cause error) error {
	return New(ClassNotResumable, cause)
}

// ClassOf extracts the class of err. Unclassified errors default to retryable;
// connectivity faults arrive untagged and retrying them is the historically
// safe choice.
func ClassOf(err error) Class {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.class
	}
	return ClassRetryable
}

func IsRetryable(err error) bool {
	return ClassOf(err) == ClassRetryable
}

func IsNotRetryable(err error) bool {
	return ClassOf(err) == ClassNotRetryable
}

func IsNotResumable(err error) bool {
	return ClassOf(err) == ClassNotResumable
}
