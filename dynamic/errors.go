package dynamic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anirudhraja/protodyn/schema"
	"github.com/anirudhraja/protodyn/wire"
)

var (
	// ErrUnsupportedGroup is returned when a declared group field is decoded.
	ErrUnsupportedGroup = errors.New("dynamic: group encoding is not supported")
	// ErrRecursionLimit is returned when nested messages exceed MergeOptions.RecursionLimit.
	ErrRecursionLimit = errors.New("dynamic: exceeded maximum recursion depth")
	// ErrInvalidUTF8 is returned for string fields that are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("dynamic: string field contains invalid UTF-8")
	// ErrSizeMismatch is returned when a message changes between the size pass
	// and the write pass of an encode.
	ErrSizeMismatch = errors.New("dynamic: message changed while encoding")
)

// WireTypeError reports a wire type that no encoding of the field's kind uses.
type WireTypeError struct {
	Field    int32
	Name     string
	Kind     schema.Kind
	WireType wire.WireType
}

func (e *WireTypeError) Error() string {
	return fmt.Sprintf("dynamic: field %s (%d) of type %s cannot use wire type %s", e.Name, e.Field, e.Kind, e.WireType)
}

// UnresolvedTypeError reports a field whose enum or message type is not known to
// the resolver.
type UnresolvedTypeError struct {
	Field string
	Name  string
	Enum  bool
}

func (e *UnresolvedTypeError) Error() string {
	what := "message"
	if e.Enum {
		what = "enum"
	}
	return fmt.Sprintf("dynamic: field %s refers to unknown %s type %q", e.Field, what, e.Name)
}

// FieldError represents a conversion error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["field_args", "input", "target_location", "latitude"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at proto path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for compatibility.
func (e *FieldError) Is(target error) bool {
	_, ok := target.(*FieldError)
	return ok
}

// newFieldError creates a path-less conversion error.
func newFieldError(format string, args ...interface{}) error {
	return &FieldError{Err: fmt.Errorf(format, args...)}
}

// wrapWithField prefixes the path of err with fieldName.
func wrapWithField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}
