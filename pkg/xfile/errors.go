package xfile

import (
	"errors"
	"fmt"
)

// Parse and decompression errors.
var (
	ErrUnknownFormat        = errors.New("unrecognized file format")
	ErrInvalidHeader        = errors.New("invalid file header")
	ErrDecompressionFailed  = errors.New("decompression failed: no strategy produced valid content")
	ErrTruncatedInput       = errors.New("truncated input")
	ErrUnsupportedData      = errors.New("unsupported data object")
	ErrEmptyInput           = errors.New("empty input")
)

// SyntaxError reports a grammar violation in a text payload, tagged with
// the 1-based source line it occurred on.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Msg)
}

func syntaxErr(line int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
