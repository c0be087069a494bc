package errs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Error codes used across the registry. Registry errors are returned to the
// caller synchronously; store errors are logged at the manager boundary.
const (
	CodeConnNotFound = 1001 // unknown connection handle
	CodeNoRoom       = 1002 // connection has no current room
	CodeStore        = 2001 // persistence layer failure
)

var (
	ErrConnNotFound = NewCodeError(CodeConnNotFound, "connection not registered")
	ErrNoRoom       = NewCodeError(CodeNoRoom, "connection has no room")
	ErrStore        = NewCodeError(CodeStore, "history store failure")
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// WithDetail returns a copy carrying extra context; the original sentinel
// stays untouched so errors.Is keeps matching by code.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// Wrap attaches a stack trace once; repeated wrapping is harmless.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code int) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == code
}
