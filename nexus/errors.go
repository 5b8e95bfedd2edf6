package nexus

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-nexus/errors"
)

// Kind labels why a conversion was aborted.
type Kind int

const (
	// KindMissingIdentifier means the start document has no uid.
	KindMissingIdentifier Kind = iota + 1
	// KindMissingLinkTarget means a hint or convenience link points at
	// something that was never written.
	KindMissingLinkTarget
	// KindMissingField means a hinted field has no data in its stream.
	KindMissingField
	// KindReadFailed means the run store failed a read.
	KindReadFailed
	// KindLinkConflict means a hinted link name was taken even after
	// disambiguation.
	KindLinkConflict
)

func (k Kind) String() string {
	switch k {
	case KindMissingIdentifier:
		return "missing identifier"
	case KindMissingLinkTarget:
		return "missing link target"
	case KindMissingField:
		return "missing field"
	case KindReadFailed:
		return "read failed"
	case KindLinkConflict:
		return "link conflict"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var (
	ErrMissingIdentifier = errors.New("run has no uid")
	ErrMissingLinkTarget = errors.New("link target was never written")
	ErrMissingField      = errors.New("field has no data")
	ErrReadFailed        = errors.New("run store read failed")
	ErrLinkConflict      = errors.New("link name already taken")
)

func (k Kind) sentinel() error {
	switch k {
	case KindMissingIdentifier:
		return ErrMissingIdentifier
	case KindMissingLinkTarget:
		return ErrMissingLinkTarget
	case KindMissingField:
		return ErrMissingField
	case KindLinkConflict:
		return ErrLinkConflict
	}
	return ErrReadFailed
}

// SerializationError reports the run, stream and field that aborted a
// conversion. Err is always a fatal classified error wrapping the Kind's
// sentinel.
type SerializationError struct {
	Kind   Kind
	Run    string
	Stream string
	Field  string
	Err    error
}

func newSerializationError(kind Kind, run, stream, field, method string, cause error) *SerializationError {
	err := kind.sentinel()
	if cause != nil {
		err = fmt.Errorf("%w: %w", err, cause)
	}
	return &SerializationError{
		Kind:   kind,
		Run:    run,
		Stream: stream,
		Field:  field,
		Err:    errors.WrapFatal(err, "nexus", method, kind.String()+" check"),
	}
}

func (e *SerializationError) Error() string {
	var b strings.Builder
	b.WriteString("nexus: serialization failed")
	for _, part := range []struct{ label, value string }{
		{"run", e.Run}, {"stream", e.Stream}, {"field", e.Field},
	} {
		if part.value != "" {
			fmt.Fprintf(&b, " %s=%q", part.label, part.value)
		}
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
