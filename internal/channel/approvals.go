package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adamavenir/office/internal/api"
	"github.com/adamavenir/office/internal/types"
)

// defaultGrantMinutes is the chat-level scope grant duration when the
// caller does not pick one.
const defaultGrantMinutes = 10

var allowedTrustMinutes = map[int]bool{15: true, 30: true, 60: true, 120: true}

// ResolveOptions adjust how an approval is resolved. GrantScope and
// TrustMinutes only apply on approve, and are mutually exclusive.
type ResolveOptions struct {
	// GrantScope grants the request's missing scope before deciding.
	GrantScope   bool
	GrantLevel   api.GrantLevel
	GrantMinutes int

	// TrustMinutes starts a trust session (auto-approve) for the
	// channel. Must be 15, 30, 60 or 120 when set.
	TrustMinutes int
}

// Resolution reports the side effects of a resolve.
type Resolution struct {
	// Policy is the permission policy the server last returned, if any.
	Policy *types.PermissionPolicy

	// GrantedScope and GrantMinutes record a successful scope grant.
	GrantedScope string
	GrantMinutes int
}

// Resolve runs the approval pipeline: a scope grant or a trust session
// (never both), then the approve/deny decision. The decision is always
// posted even when an earlier step fails; the step failure comes back
// as the error after the decision settles, so one flaky grant cannot
// leave an agent blocked on a decided request.
func Resolve(ctx context.Context, client API, channel, project string, req types.ApprovalRequest, approved bool, opts ResolveOptions) (Resolution, error) {
	var res Resolution

	if opts.GrantScope && opts.TrustMinutes != 0 {
		return res, ErrConflictingOptions
	}
	if opts.TrustMinutes != 0 && !allowedTrustMinutes[opts.TrustMinutes] {
		return res, ErrBadTrustMinutes
	}

	var stepErr error
	if approved && opts.GrantScope && req.MissingScope != "" {
		level := opts.GrantLevel
		if level == "" {
			level = api.GrantLevelChat
		}
		minutes := opts.GrantMinutes
		if minutes <= 0 && level == api.GrantLevelChat {
			minutes = defaultGrantMinutes
		}
		policy, err := client.Grant(ctx, api.GrantRequest{
			Channel:    channel,
			Project:    project,
			Scope:      req.MissingScope,
			GrantLevel: level,
			Minutes:    minutes,
		})
		if err != nil {
			stepErr = &GrantError{Scope: req.MissingScope, Err: err}
		} else {
			res.GrantedScope = req.MissingScope
			res.GrantMinutes = minutes
			if policy.Mode != "" {
				res.Policy = &policy
			}
		}
	}

	if approved && opts.TrustMinutes != 0 {
		policy, err := client.TrustSession(ctx, api.TrustSessionRequest{
			Channel: channel,
			Minutes: opts.TrustMinutes,
		})
		if err != nil {
			if stepErr == nil {
				stepErr = fmt.Errorf("trust session: %w", err)
			}
		} else if policy.Mode != "" {
			res.Policy = &policy
		}
	}

	if err := client.ApprovalResponse(ctx, api.ApprovalDecision{
		RequestID: req.ID,
		Approved:  approved,
		DecidedBy: "user",
	}); err != nil {
		return res, fmt.Errorf("approval decision: %w", err)
	}
	return res, stepErr
}

// ResolveApproval resolves a queued request. Only one resolve may be in
// flight per request id. The entry leaves the queue once the decision
// settles, even on a failed POST, since the server expires undecided
// requests on its own; a later resolved event for the id is a no-op.
func (s *Session) ResolveApproval(ctx context.Context, id string, approved bool, opts ResolveOptions) error {
	req, ok := s.store.Approval(id)
	if !ok {
		return ErrUnknownApproval
	}

	s.mu.Lock()
	if s.resolving[id] {
		s.mu.Unlock()
		return ErrResolveInFlight
	}
	s.resolving[id] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.resolving, id)
		s.mu.Unlock()
	}()

	res, err := Resolve(ctx, s.api, s.channel, s.store.Project().Project, req, approved, opts)
	if errors.Is(err, ErrBadTrustMinutes) || errors.Is(err, ErrConflictingOptions) {
		return err
	}

	now := s.clock.Now()
	s.store.RemoveApproval(id, now)
	if res.GrantedScope != "" {
		var expires time.Time
		if res.GrantMinutes > 0 {
			expires = now.Add(time.Duration(res.GrantMinutes) * time.Minute)
		}
		s.store.AddGrant(res.GrantedScope, expires)
	}
	if res.Policy != nil {
		s.store.SetPolicy(*res.Policy)
	}
	s.notify()
	return err
}

// FocusApproval pins the active approval to a specific queued request.
// Selection falls back to the queue head when the focused request
// resolves or expires.
func (s *Session) FocusApproval(id string) error {
	if err := s.store.FocusApproval(id); err != nil {
		return err
	}
	s.notify()
	return nil
}
