package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StreamRequest starts one streamed turn against the agent runtime.
type StreamRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// StreamQuery sends one user turn and streams back the runtime's frames.
// Frames arrive on the returned channel until the backend ends the stream;
// the error channel reports at most one transport error. Decode concerns are
// the caller's: frames are raw payloads, not parsed events.
//
// Cancel the context to stop reading. There is no mid-stream abort on the
// backend; cancellation only abandons the read loop.
func (c *Client) StreamQuery(ctx context.Context, req *StreamRequest) (<-chan Frame, <-chan error, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("/stream"), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	// A fresh client without timeout: the stream stays open for the whole
	// turn, well past any request/response deadline.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, nil, &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	frameCh := make(chan Frame, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(frameCh)
		defer close(errCh)
		defer resp.Body.Close()

		var dec FrameDecoder
		defer dec.Close()

		buf := make([]byte, 4096)
		for {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}

			n, err := resp.Body.Read(buf)
			if n > 0 {
				for _, frame := range dec.Feed(string(buf[:n])) {
					frameCh <- frame
				}
			}
			if err != nil {
				if err != io.EOF {
					errCh <- err
				}
				return
			}
		}
	}()

	return frameCh, errCh, nil
}
