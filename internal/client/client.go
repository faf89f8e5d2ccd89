// Package client is the Go client for the haggle gateway HTTP and
// websocket API, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"haggle.local/haggle-gateway/internal/broker"
	"haggle.local/haggle-gateway/internal/negotiate"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	maxErrorBodyBytes  = 16 << 10
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("server url is required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// APIError carries the HTTP status and body of a failed request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway status=%d message=%q", e.StatusCode, e.Message)
}

type StartSessionRequest struct {
	SessionID string                   `json:"session_id,omitempty"`
	Product   *negotiate.ProductBounds `json:"product,omitempty"`
}

type StartSessionResponse struct {
	SessionID    string           `json:"session_id"`
	Status       negotiate.Status `json:"status"`
	CurrentOffer *float64         `json:"current_offer,omitempty"`
}

type StepResponse struct {
	Reply      string           `json:"reply"`
	Status     negotiate.Status `json:"status"`
	FinalPrice *float64         `json:"final_price,omitempty"`
	History    []negotiate.Turn `json:"history"`
}

func (c *Client) StartSession(ctx context.Context, req StartSessionRequest) (StartSessionResponse, error) {
	var resp StartSessionResponse
	err := c.postJSON(ctx, "/v1/sessions", req, http.StatusCreated, &resp)
	return resp, err
}

func (c *Client) SendMessage(ctx context.Context, sessionID, message string, budgetHint *float64) (StepResponse, error) {
	body := map[string]any{"message": message}
	if budgetHint != nil {
		body["budget_hint"] = *budgetHint
	}
	var resp StepResponse
	err := c.postJSON(ctx, "/v1/sessions/"+sessionID+"/messages", body, http.StatusOK, &resp)
	return resp, err
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (broker.SessionRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sessions/"+sessionID, nil)
	if err != nil {
		return broker.SessionRecord{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return broker.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return broker.SessionRecord{}, apiError(resp)
	}
	var rec broker.SessionRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return broker.SessionRecord{}, fmt.Errorf("decode session: %w", err)
	}
	return rec, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, wantStatus int, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

// Frame is one websocket step result or error from the gateway.
type Frame struct {
	Reply      string           `json:"reply,omitempty"`
	Status     negotiate.Status `json:"status,omitempty"`
	FinalPrice *float64         `json:"final_price,omitempty"`
	History    []negotiate.Turn `json:"history,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Conversation is a live websocket negotiation on one session.
type Conversation struct {
	conn *websocket.Conn
}

// OpenConversation dials the session's websocket endpoint.
func (c *Client) OpenConversation(ctx context.Context, sessionID string) (*Conversation, error) {
	wsURL := c.baseURL + "/v1/sessions/" + sessionID + "/ws"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	dialer := websocket.Dialer{HandshakeTimeout: defaultHTTPTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, apiError(resp)
		}
		return nil, fmt.Errorf("dial session websocket: %w", err)
	}
	return &Conversation{conn: conn}, nil
}

func (cv *Conversation) Send(message string, budgetHint *float64) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("message is required")
	}
	frame := map[string]any{"message": message}
	if budgetHint != nil {
		frame["budget_hint"] = *budgetHint
	}
	return cv.conn.WriteJSON(frame)
}

func (cv *Conversation) Recv() (Frame, error) {
	var frame Frame
	if err := cv.conn.ReadJSON(&frame); err != nil {
		return Frame{}, err
	}
	return frame, nil
}

func (cv *Conversation) Close() error {
	return cv.conn.Close()
}
