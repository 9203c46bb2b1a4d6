package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Codec errors. The dynamic engine passes these through unchanged, so callers can
// match them with errors.Is.
var (
	ErrTruncated        = errors.New("wire: unexpected end of input")
	ErrOverflow         = errors.New("wire: variable length integer overflow")
	ErrFieldNumber      = errors.New("wire: invalid field number")
	ErrReservedWireType = errors.New("wire: reserved wire type")
	ErrEndGroup         = errors.New("wire: mismatched end group marker")
	ErrLimitExceeded    = errors.New("wire: length exceeds enclosing limit")
)

// protowire reports failures as negative byte counts. The codes below are the
// ones it has used since v1.20.
const (
	codeTruncated   = -1
	codeFieldNumber = -2
	codeOverflow    = -3
	codeReserved    = -4
	codeEndGroup    = -5
)

// parseError converts a negative protowire length into one of the sentinel errors.
func parseError(n int) error {
	switch n {
	case codeTruncated:
		return ErrTruncated
	case codeFieldNumber:
		return ErrFieldNumber
	case codeOverflow:
		return ErrOverflow
	case codeReserved:
		return ErrReservedWireType
	case codeEndGroup:
		return ErrEndGroup
	default:
		return fmt.Errorf("wire: %w", protowire.ParseError(n))
	}
}
