package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/adamavenir/office/internal/types"
)

// ActiveProject fetches the project a channel operates on.
func (c *Client) ActiveProject(ctx context.Context, channel string) (types.ActiveProject, error) {
	var resp types.ActiveProject
	if err := c.doJSON(ctx, http.MethodGet, "/projects/active/"+url.PathEscape(channel), nil, nil, &resp); err != nil {
		return types.ActiveProject{}, err
	}
	return resp, nil
}

type autonomyModeResponse struct {
	Mode types.AutonomyMode `json:"mode"`
}

// AutonomyMode fetches the autonomy mode for a project.
func (c *Client) AutonomyMode(ctx context.Context, project string) (types.AutonomyMode, error) {
	var resp autonomyModeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/projects/"+url.PathEscape(project)+"/autonomy-mode", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Mode, nil
}

// CollabMode fetches the collaboration mode for a channel.
func (c *Client) CollabMode(ctx context.Context, channel string) (types.CollabMode, error) {
	var resp types.CollabMode
	if err := c.doJSON(ctx, http.MethodGet, "/collab-mode/"+url.PathEscape(channel), nil, nil, &resp); err != nil {
		return types.CollabMode{}, err
	}
	return resp, nil
}
