// Package planner is the HTTP client for the planner backend. It covers the
// calendar endpoints only: events CRUD, availability projections and the
// channel-token exchange. Authentication itself happens elsewhere; the client
// is handed a ready session token.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/planwise/calendar-agent/internal/model"
	"go.uber.org/zap"
)

type Client struct {
	baseURL      string
	sessionToken string
	httpClient   *http.Client
	logger       *zap.SugaredLogger
}

func NewClient(logger *zap.SugaredLogger, baseURL, sessionToken string) *Client {
	return &Client{
		baseURL:      baseURL,
		sessionToken: sessionToken,
		httpClient:   &http.Client{},
		logger:       logger,
	}
}

func (c *Client) GetEvents(ctx context.Context, mode model.ViewMode, r model.Range) ([]*model.Event, error) {
	q := url.Values{}
	q.Set("view", string(mode))
	q.Set("start", r.From.UTC().Format(dateTimeFormat))
	q.Set("end", r.To.UTC().Format(dateTimeFormat))

	var resp []*eventResp
	if err := c.do(ctx, http.MethodGet, "/events?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}

	return mapSlice(resp, mapToEvent)
}

func (c *Client) GetAvailability(ctx context.Context, userID int64, r model.Range) ([]*model.Event, error) {
	q := url.Values{}
	q.Set("userId", strconv.FormatInt(userID, 10))
	q.Set("start", r.From.UTC().Format(dateTimeFormat))
	q.Set("end", r.To.UTC().Format(dateTimeFormat))

	var resp []*eventResp
	if err := c.do(ctx, http.MethodGet, "/availability?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}

	events, err := mapSlice(resp, mapToEvent)
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		e.Editable = false
	}

	return events, nil
}

func (c *Client) CreateEvent(ctx context.Context, info *model.EventCreate) (*model.Event, error) {
	resp := &eventResp{}
	if err := c.do(ctx, http.MethodPost, "/events", mapFromEventCreate(info), resp); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	return mapToEvent(resp)
}

func (c *Client) UpdateEvent(ctx context.Context, id string, info *model.EventUpdate) error {
	if err := c.do(ctx, http.MethodPut, "/events/"+url.PathEscape(id), mapFromEventUpdate(info), nil); err != nil {
		return fmt.Errorf("update event %v: %w", id, err)
	}

	return nil
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete event %v: %w", id, err)
	}

	return nil
}

// ChannelToken exchanges the current session for a short-lived single-purpose
// credential accepted by the push channel.
func (c *Client) ChannelToken(ctx context.Context) (string, error) {
	resp := &struct {
		Token string `json:"token"`
	}{}
	if err := c.do(ctx, http.MethodGet, "/auth/channel-token", nil, resp); err != nil {
		return "", fmt.Errorf("exchange channel token: %w", err)
	}

	return resp.Token, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, dst interface{}) error {
	var reqBody io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("make request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.sessionToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debugw(path, "method", method, "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.ErrNoRecord
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return model.ErrUnauthorized
	case resp.StatusCode >= 400:
		apiErr := &struct {
			Error string `json:"error"`
		}{}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("unexpected status %v", resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %v: %v", resp.StatusCode, apiErr.Error)
	}

	if dst == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
