package mask

import (
	"errors"
	"fmt"
)

var (
	ErrCodec          = errors.New("mask codec error")
	ErrShapeMismatch  = errors.New("mask shape mismatch")
	ErrNoRegionsFound = errors.New("no regions found")
	ErrParse          = errors.New("path parse error")
)

// Error 携带错误类别和上下文信息
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func codecErrorf(format string, args ...any) error {
	return &Error{Kind: ErrCodec, Msg: fmt.Sprintf(format, args...)}
}

func shapeErrorf(format string, args ...any) error {
	return &Error{Kind: ErrShapeMismatch, Msg: fmt.Sprintf(format, args...)}
}

func parseErrorf(format string, args ...any) error {
	return &Error{Kind: ErrParse, Msg: fmt.Sprintf(format, args...)}
}
