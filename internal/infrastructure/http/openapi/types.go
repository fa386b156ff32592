// Package openapi holds the wire types and chi binding for api/openapi.yaml.
package openapi

import "encoding/json"

// ErrorBody describes a failed request. Details lists every validation
// problem separately.
type ErrorBody struct {
	Type     string   `json:"type"`
	Message  string   `json:"message"`
	Details  []string `json:"details,omitempty"`
	Attempts *int     `json:"attempts,omitempty"`
}

// ErrorResponse is returned by both endpoints on failure.
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     ErrorBody `json:"error"`
	RequestId string    `json:"requestId"`
	Duration  string    `json:"duration"`
}

// FetchPriceRequest is the documented body of POST /price. The server decodes
// fields individually so type errors can be reported per field.
type FetchPriceRequest struct {
	Cryptocurrency string `json:"cryptocurrency"`
	Email          string `json:"email"`
}

type PriceData struct {
	Id             string      `json:"id"`
	Cryptocurrency string      `json:"cryptocurrency"`
	Price          json.Number `json:"price"`
	Currency       string      `json:"currency"`
	Change24h      json.Number `json:"change24h"`
	MarketCap      json.Number `json:"marketCap"`
	Timestamp      string      `json:"timestamp"`
	Cached         bool        `json:"cached"`
}

type FetchPriceResponse struct {
	Success   bool       `json:"success"`
	Data      *PriceData `json:"data,omitempty"`
	Warning   *string    `json:"warning,omitempty"`
	RequestId string     `json:"requestId"`
	Duration  string     `json:"duration"`
}

type HistoryItem struct {
	Id             string      `json:"id"`
	Email          string      `json:"email"`
	Cryptocurrency string      `json:"cryptocurrency"`
	Price          json.Number `json:"price"`
	Currency       string      `json:"currency"`
	Change24h      json.Number `json:"change24h"`
	MarketCap      json.Number `json:"marketCap"`
	Timestamp      string      `json:"timestamp"`
}

type HistoryResponse struct {
	Success        bool          `json:"success"`
	Count          int           `json:"count"`
	Limit          int           `json:"limit"`
	Email          *string       `json:"email,omitempty"`
	Cryptocurrency *string       `json:"cryptocurrency,omitempty"`
	Data           []HistoryItem `json:"data"`
	NextToken      *string       `json:"nextToken,omitempty"`
	HasMore        bool          `json:"hasMore"`
	RequestId      string        `json:"requestId"`
	Duration       string        `json:"duration"`
}

// GetHistoryParams are the raw query parameters of GET /history. Values stay
// strings; range and format checks belong to the service.
type GetHistoryParams struct {
	Limit          *string `form:"limit,omitempty" json:"limit,omitempty"`
	Email          *string `form:"email,omitempty" json:"email,omitempty"`
	Cryptocurrency *string `form:"cryptocurrency,omitempty" json:"cryptocurrency,omitempty"`
	NextToken      *string `form:"nextToken,omitempty" json:"nextToken,omitempty"`
}
