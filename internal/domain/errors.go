package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of failure classes the service distinguishes.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindRateLimited
	KindUpstreamUnavailable
	KindTimeout
	KindNetworkUnreachable
	KindDataIntegrity
	KindStorageConflict
	KindStorageThrottled
	KindStorageUnavailable
	KindTableMissing
	KindNotifyRejected
	KindNotifyNotVerified
	KindNotifyDeliveryFailed
	KindMethodNotAllowed
)

var kindNames = map[Kind]string{
	KindInternal:             "internal",
	KindValidation:           "validation",
	KindNotFound:             "not_found",
	KindRateLimited:          "rate_limited",
	KindUpstreamUnavailable:  "upstream_unavailable",
	KindTimeout:              "timeout",
	KindNetworkUnreachable:   "network_unreachable",
	KindDataIntegrity:        "data_integrity",
	KindStorageConflict:      "storage_conflict",
	KindStorageThrottled:     "storage_throttled",
	KindStorageUnavailable:   "storage_unavailable",
	KindTableMissing:         "table_missing",
	KindNotifyRejected:       "notify_rejected",
	KindNotifyNotVerified:    "notify_not_verified",
	KindNotifyDeliveryFailed: "notify_delivery_failed",
	KindMethodNotAllowed:     "method_not_allowed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsNotification reports whether k belongs to the notification family.
func (k Kind) IsNotification() bool {
	return k == KindNotifyRejected || k == KindNotifyNotVerified || k == KindNotifyDeliveryFailed
}

// Error is the tagged error carried through every layer. Message is safe to
// show to callers; Err keeps the underlying cause for operators.
type Error struct {
	Kind     Kind
	Op       string
	Message  string
	Details  []string
	Attempts int
	Status   int
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Attempts > 0 {
		fmt.Fprintf(&b, " (after %d attempts)", e.Attempts)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == ""
}

var (
	ErrInternal           = &Error{Kind: KindInternal}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrRateLimited        = &Error{Kind: KindRateLimited}
	ErrUpstreamDown       = &Error{Kind: KindUpstreamUnavailable}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrNetworkUnreachable = &Error{Kind: KindNetworkUnreachable}
	ErrDataIntegrity      = &Error{Kind: KindDataIntegrity}
	ErrStorageConflict    = &Error{Kind: KindStorageConflict}
	ErrStorageThrottled   = &Error{Kind: KindStorageThrottled}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
	ErrTableMissing       = &Error{Kind: KindTableMissing}
)

// E builds a tagged error.
func E(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message of err, or "" when there is none.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// WithAttempts returns a copy of err's tagged error annotated with the number
// of attempts made. Untagged errors are wrapped as internal.
func WithAttempts(err error, attempts int) error {
	if err == nil {
		return nil
	}
	var de *Error
	if !errors.As(err, &de) {
		return &Error{Kind: KindInternal, Attempts: attempts, Err: err}
	}
	cp := *de
	cp.Attempts = attempts
	return &cp
}
