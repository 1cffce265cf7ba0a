// Package showapi talks to the show backend's REST API.
package showapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/protocol"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("show api: status %d: %s", e.Code, e.Body)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client. Every request is bounded by timeout.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Nearby lists shows within radiusMeters of pos.
func (c *Client) Nearby(ctx context.Context, pos models.Position, radiusMeters float64) ([]models.NearbyShow, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(pos.Latitude, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(pos.Longitude, 'f', -1, 64))
	q.Set("radius", strconv.FormatFloat(radiusMeters, 'f', -1, 64))

	var shows []models.NearbyShow
	if err := c.do(ctx, http.MethodGet, "/api/v1/shows/nearby?"+q.Encode(), nil, &shows); err != nil {
		return nil, err
	}
	return shows, nil
}

// Join admits the user to showID, sending pos when known.
func (c *Client) Join(ctx context.Context, showID string, pos *models.Position) (protocol.ShowJoined, error) {
	var body struct {
		Latitude  *float64 `json:"latitude,omitempty"`
		Longitude *float64 `json:"longitude,omitempty"`
	}
	if pos != nil {
		body.Latitude = &pos.Latitude
		body.Longitude = &pos.Longitude
	}
	var joined protocol.ShowJoined
	err := c.do(ctx, http.MethodPost, "/api/v1/shows/"+url.PathEscape(showID)+"/join", body, &joined)
	return joined, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
