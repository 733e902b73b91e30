package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adamavenir/office/internal/types"
)

// Messages fetches the most recent messages for a channel in ascending
// created_at order.
func (c *Client) Messages(ctx context.Context, channel string, limit int) ([]types.Message, error) {
	query := url.Values{}
	query.Set("channel", channel)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp []types.Message
	if err := c.doJSON(ctx, http.MethodGet, "/messages", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Channels lists known channels.
func (c *Client) Channels(ctx context.Context) ([]types.ChannelInfo, error) {
	var resp []types.ChannelInfo
	if err := c.doJSON(ctx, http.MethodGet, "/channels", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Conversation reports conversation status for a channel.
func (c *Client) Conversation(ctx context.Context, channel string) (types.ConversationStatus, error) {
	var resp types.ConversationStatus
	if err := c.doJSON(ctx, http.MethodGet, "/conversation/"+url.PathEscape(channel), nil, nil, &resp); err != nil {
		return types.ConversationStatus{}, err
	}
	return resp, nil
}

// StopConversation asks the server to stop the active conversation.
func (c *Client) StopConversation(ctx context.Context, channel string) error {
	return c.doJSON(ctx, http.MethodPost, "/conversation/"+url.PathEscape(channel)+"/stop", nil, nil, nil)
}

type clearMessagesResponse struct {
	Message *types.Message `json:"message,omitempty"`
}

// ClearMessages deletes a channel's history. The server may return a
// system message acknowledging the clear; callers append it locally.
func (c *Client) ClearMessages(ctx context.Context, channel string) (*types.Message, error) {
	var resp clearMessagesResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/channels/"+url.PathEscape(channel)+"/messages", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Message, nil
}

type reactionSummaryResponse struct {
	Summary types.ReactionSummary `json:"summary"`
}

// Reactions fetches the reaction summary for one message.
func (c *Client) Reactions(ctx context.Context, messageID string) (types.ReactionSummary, error) {
	var resp reactionSummaryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/messages/"+url.PathEscape(messageID)+"/reactions", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Summary, nil
}

// ToggleReactionRequest adds or removes one actor's reaction.
type ToggleReactionRequest struct {
	Emoji     string `json:"emoji"`
	ActorID   string `json:"actor_id"`
	ActorType string `json:"actor_type"`
}

// ToggleReaction toggles a reaction and returns the replacement summary.
func (c *Client) ToggleReaction(ctx context.Context, messageID string, req ToggleReactionRequest) (types.ReactionSummary, error) {
	var resp reactionSummaryResponse
	if err := c.doJSON(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/reactions", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Summary, nil
}
