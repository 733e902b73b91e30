package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/adamavenir/office/internal/types"
)

type processListResponse struct {
	Processes []types.ProcessInfo `json:"processes"`
}

// Processes fetches the channel's managed process list.
func (c *Client) Processes(ctx context.Context, channel string) (types.ProcessState, error) {
	var resp processListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/process/list/"+url.PathEscape(channel), nil, nil, &resp); err != nil {
		return types.ProcessState{}, err
	}
	state := types.ProcessState{Processes: resp.Processes}
	state.Recount()
	return state, nil
}

type killSwitchRequest struct {
	Channel string `json:"channel"`
}

// KillSwitch demotes autonomy and permissions server-side. The server
// broadcasts a kill_switch event that resets local state.
func (c *Client) KillSwitch(ctx context.Context, channel string) error {
	return c.doJSON(ctx, http.MethodPost, "/process/kill-switch", nil, killSwitchRequest{Channel: channel}, nil)
}
