package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMessage rejects sends with no text and no attachments.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooManyAttachments rejects sends above the attachment limit.
	ErrTooManyAttachments = fmt.Errorf("too many attachments (max %d)", MaxAttachments)

	// ErrUnknownApproval is returned when an approval id is not queued.
	ErrUnknownApproval = errors.New("approval request not found")

	// ErrResolveInFlight rejects a second resolve for the same request
	// while the first is still posting.
	ErrResolveInFlight = errors.New("approval resolve already in flight")

	// ErrBadTrustMinutes rejects trust sessions outside the allowed set.
	ErrBadTrustMinutes = errors.New("trust session minutes must be 15, 30, 60 or 120")

	// ErrConflictingOptions rejects a resolve that asks for both a scope
	// grant and a trust session; they are mutually exclusive.
	ErrConflictingOptions = errors.New("scope grant and trust session are mutually exclusive")

	// ErrInactive is returned by actions that need a live session.
	ErrInactive = errors.New("session not active")
)

// UploadError aborts a send; the caller keeps the text and attachment
// list so the user can retry.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// GrantError reports a scope grant failure. The approval decision is
// still posted; the caller surfaces the grant failure to the user.
type GrantError struct {
	Scope string
	Err   error
}

func (e *GrantError) Error() string {
	return fmt.Sprintf("scope grant %s failed: %v", e.Scope, e.Err)
}

func (e *GrantError) Unwrap() error { return e.Err }
