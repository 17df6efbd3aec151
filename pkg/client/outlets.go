package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Outlet is one store location.
type Outlet struct {
	ID              int64    `json:"outlet_id"`
	Name            string   `json:"outlet_name"`
	Address         string   `json:"address"`
	City            string   `json:"city"`
	State           string   `json:"state"`
	Postcode        string   `json:"postcode"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Phone           *string  `json:"phone,omitempty"`
	OperatingHours  *string  `json:"operating_hours,omitempty"`
	HasDriveThru    bool     `json:"has_drive_thru"`
	HasWifi         bool     `json:"has_wifi"`
	SeatingCapacity *int     `json:"seating_capacity,omitempty"`
}

// OutletSearchMetadata describes how an outlet question was handled.
type OutletSearchMetadata struct {
	QueryType string `json:"query_type"`
	Location  string `json:"location,omitempty"`
	Valid     bool   `json:"valid"`
	Cached    bool   `json:"cached"`
	LatencyMs int64  `json:"latency_ms"`
}

// OutletSearchResult is a translated and executed outlet question. Count
// questions answer through Total with an empty Results list.
type OutletSearchResult struct {
	Question string               `json:"question"`
	SQL      string               `json:"sql"`
	Results  []Outlet             `json:"results"`
	Total    int                  `json:"total"`
	Metadata OutletSearchMetadata `json:"metadata"`
}

type outletSearchRequest struct {
	Question string `json:"question"`
}

// SearchOutlets translates a natural-language question into SQL and runs it.
func (c *Client) SearchOutlets(ctx context.Context, question string) (*OutletSearchResult, error) {
	var result OutletSearchResult
	err := c.do(ctx, http.MethodPost, "/api/v1/outlets/search", outletSearchRequest{
		Question: question,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListOutlets returns outlets, optionally filtered by city and state.
func (c *Client) ListOutlets(ctx context.Context, city, state string) ([]Outlet, error) {
	query := url.Values{}
	if city != "" {
		query.Set("city", city)
	}
	if state != "" {
		query.Set("state", state)
	}

	path := "/api/v1/outlets"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var outlets []Outlet
	if err := c.do(ctx, http.MethodGet, path, nil, &outlets); err != nil {
		return nil, err
	}
	return outlets, nil
}

// GetOutlet returns one outlet by ID.
func (c *Client) GetOutlet(ctx context.Context, id int64) (*Outlet, error) {
	var outlet Outlet
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/outlets/%d", id), nil, &outlet); err != nil {
		return nil, err
	}
	return &outlet, nil
}
