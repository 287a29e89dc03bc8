// Package filereader defines how raw file content is fetched from object
// storage and the small error taxonomy every implementation reports.
package filereader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Reader returns the full UTF-8 text of an object.
type Reader interface {
	ReadFile(ctx context.Context, bucket, key string) (string, error)
}

// ObjectReader returns the raw bytes of an object, for binary formats.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// Source is implemented by every storage backend in this repository.
type Source interface {
	Reader
	ObjectReader
}

// Kind classifies a read failure.
type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindNotFound        Kind = "not_found"
	KindBucketNotFound  Kind = "bucket_not_found"
	KindAccessDenied    Kind = "access_denied"
	KindReadFailure     Kind = "read_failure"
)

// Sentinels for errors.Is checks against *Error.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("object not found")
	ErrBucketNotFound  = errors.New("bucket not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrReadFailure     = errors.New("read failure")
)

// Error is returned by every Reader and ObjectReader implementation.
type Error struct {
	Kind   Kind
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindInvalidArgument:
		msg = fmt.Sprintf("bucket and key are required (bucket=%q, key=%q)", e.Bucket, e.Key)
	case KindNotFound:
		msg = fmt.Sprintf("file not found in bucket=%q, key=%q", e.Bucket, e.Key)
	case KindBucketNotFound:
		msg = fmt.Sprintf("bucket %q does not exist", e.Bucket)
	case KindAccessDenied:
		msg = fmt.Sprintf("access denied to bucket=%q, key=%q", e.Bucket, e.Key)
	default:
		msg = fmt.Sprintf("failed to read file from bucket=%q, key=%q", e.Bucket, e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the package sentinels by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrBucketNotFound:
		return e.Kind == KindBucketNotFound
	case ErrAccessDenied:
		return e.Kind == KindAccessDenied
	case ErrReadFailure:
		return e.Kind == KindReadFailure
	}
	return false
}

// NewError builds an *Error for the given location.
func NewError(kind Kind, bucket, key string, err error) *Error {
	return &Error{Kind: kind, Bucket: bucket, Key: key, Err: err}
}

// KindOf returns the failure kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return ""
}

// Retryable reports whether a caller may reasonably retry the read. Only
// ReadFailure can wrap a transient condition.
func Retryable(err error) bool {
	return KindOf(err) == KindReadFailure
}

// ValidateLocation rejects blank buckets and keys before any network access.
func ValidateLocation(bucket, key string) error {
	if strings.TrimSpace(bucket) == "" || strings.TrimSpace(key) == "" {
		return NewError(KindInvalidArgument, bucket, key, nil)
	}
	return nil
}

// Drain reads r to the end. Errors in the middle of the stream become
// ReadFailure; classify maps backend errors that carry more detail.
func Drain(r io.Reader, bucket, key string, classify func(error) Kind) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		kind := KindReadFailure
		if classify != nil {
			kind = classify(err)
		}
		return nil, NewError(kind, bucket, key, err)
	}
	return data, nil
}

// DecodeText checks that data is valid UTF-8 and returns it as a string.
func DecodeText(data []byte, bucket, key string) (string, error) {
	if !utf8.Valid(data) {
		return "", NewError(KindReadFailure, bucket, key, errors.New("content is not valid UTF-8"))
	}
	return string(data), nil
}
