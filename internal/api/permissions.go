package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/adamavenir/office/internal/types"
)

// Permissions fetches the permission policy scoped to a channel.
func (c *Client) Permissions(ctx context.Context, channel string) (types.PermissionPolicy, error) {
	query := url.Values{}
	query.Set("channel", channel)
	var resp types.PermissionPolicy
	if err := c.doJSON(ctx, http.MethodGet, "/permissions", query, nil, &resp); err != nil {
		return types.PermissionPolicy{}, err
	}
	return resp, nil
}

// GrantLevel scopes how widely a scope grant applies.
type GrantLevel string

const (
	GrantLevelChat    GrantLevel = "chat"
	GrantLevelProject GrantLevel = "project"
)

// GrantRequest grants a named scope for a duration.
type GrantRequest struct {
	Channel    string     `json:"channel"`
	Project    string     `json:"project,omitempty"`
	Scope      string     `json:"scope"`
	GrantLevel GrantLevel `json:"grant_level"`
	Minutes    int        `json:"minutes"`
}

// Grant posts a scope grant. The server may return the updated policy.
func (c *Client) Grant(ctx context.Context, req GrantRequest) (types.PermissionPolicy, error) {
	var resp types.PermissionPolicy
	if err := c.doJSON(ctx, http.MethodPost, "/permissions/grant", nil, req, &resp); err != nil {
		return types.PermissionPolicy{}, err
	}
	return resp, nil
}

// TrustSessionRequest elevates the policy to auto for a bounded time.
// Minutes must be one of 15, 30, 60 or 120.
type TrustSessionRequest struct {
	Channel string `json:"channel"`
	Minutes int    `json:"minutes"`
}

// TrustSession posts a trust session and returns the fresh policy.
func (c *Client) TrustSession(ctx context.Context, req TrustSessionRequest) (types.PermissionPolicy, error) {
	var resp types.PermissionPolicy
	if err := c.doJSON(ctx, http.MethodPost, "/permissions/trust_session", nil, req, &resp); err != nil {
		return types.PermissionPolicy{}, err
	}
	return resp, nil
}

// ApprovalDecision records the user's approve/deny choice for a request.
type ApprovalDecision struct {
	RequestID string `json:"request_id"`
	Approved  bool   `json:"approved"`
	DecidedBy string `json:"decided_by"`
}

// ApprovalResponse posts the approve/deny decision.
func (c *Client) ApprovalResponse(ctx context.Context, req ApprovalDecision) error {
	return c.doJSON(ctx, http.MethodPost, "/permissions/approval-response", nil, req, nil)
}

type pendingApprovalsResponse struct {
	Requests []types.ApprovalRequest `json:"requests"`
}

// PendingApprovals lists pending approval requests for a channel and
// project. The returned list is authoritative for reconciliation.
func (c *Client) PendingApprovals(ctx context.Context, channel, project string) ([]types.ApprovalRequest, error) {
	query := url.Values{}
	query.Set("channel", channel)
	if project != "" {
		query.Set("project", project)
	}
	var resp pendingApprovalsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/approvals/pending", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}
