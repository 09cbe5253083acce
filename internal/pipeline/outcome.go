package pipeline

import (
	"fmt"
)

// Kind tags an extraction outcome.
type Kind int

const (
	// KindOK carries extracted text, possibly empty.
	KindOK Kind = iota
	// KindUnavailable means isolated extraction cannot run here. Never cached.
	KindUnavailable
	// KindFailed means extraction failed or timed out, now or on an earlier
	// call whose poison entry is still cached.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindUnavailable:
		return "unavailable"
	case KindFailed:
		return "failed"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the result of one extraction call. Text is empty unless Kind is
// KindOK. Err explains a non-OK outcome; it is data, not a raised error.
type Outcome struct {
	Kind   Kind
	Text   string
	Err    error
	Cached bool
}

// OK reports whether text was extracted.
func (o Outcome) OK() bool { return o.Kind == KindOK }

// Reason is Err as a string, or "".
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
