package engine

import (
	"context"
	"fmt"
	"net/http"
)

// CreateSession creates a new session.
func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	if req == nil {
		req = &CreateSessionRequest{}
	}
	if req.AppName == "" {
		body := *req
		body.AppName = c.appName
		req = &body
	}
	var result Session
	if err := c.doRequest(ctx, http.MethodPost, c.buildURL("/sessions"), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSessions returns one page of a user's sessions. A 404 from the gateway
// yields an empty page rather than an error.
func (c *Client) ListSessions(ctx context.Context, userID string, pageSize int, pageToken string) (*SessionPage, error) {
	params := map[string]string{"user_id": userID}
	if pageSize > 0 {
		params["page_size"] = fmt.Sprintf("%d", pageSize)
	}
	if pageToken != "" {
		params["page_token"] = pageToken
	}

	var result SessionPage
	err := c.doRequest(ctx, http.MethodGet, c.buildURL("/sessions", params), nil, &result)
	if err != nil {
		if IsNotFound(err) {
			return &SessionPage{}, nil
		}
		return nil, err
	}
	return &result, nil
}

// GetSession retrieves a session by id.
func (c *Client) GetSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	var result Session
	reqURL := c.buildURL("/sessions/"+sessionID, map[string]string{"user_id": userID})
	if err := c.doRequest(ctx, http.MethodGet, reqURL, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateSessionDisplayName patches a session's display name.
func (c *Client) UpdateSessionDisplayName(ctx context.Context, userID, sessionID, displayName string) error {
	reqURL := c.buildURL("/sessions/"+sessionID, map[string]string{"user_id": userID})
	return c.doRequest(ctx, http.MethodPatch, reqURL, &UpdateSessionRequest{DisplayName: displayName}, nil)
}

// DeleteSession deletes a session.
func (c *Client) DeleteSession(ctx context.Context, userID, sessionID string) error {
	reqURL := c.buildURL("/sessions/"+sessionID, map[string]string{"user_id": userID})
	return c.doRequest(ctx, http.MethodDelete, reqURL, nil, nil)
}
