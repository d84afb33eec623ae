package handler

import (
	"encoding/json"
	"time"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	RequestID string     `json:"request_id"`
	Timestamp int64      `json:"timestamp"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message, details string) *Response {
	return &Response{
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Error:     &ErrorBody{Code: code, Message: message, Details: details},
	}
}

// IssueTokenRequest is the request body for POST /v1/authorities/{name}/tokens.
//
// Without PayloadKind the kind follows the JSON type of Payload: absent or
// null is empty, a string is text, anything else is structured. Binary and
// custom payloads are base64 strings.
type IssueTokenRequest struct {
	Payload     json.RawMessage `json:"payload,omitempty"`
	PayloadKind string          `json:"payload_kind,omitempty"`
	ValidAt     *time.Time      `json:"valid_at,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	TTLSeconds  int64           `json:"ttl_seconds,omitempty"`
	TokenID     *string         `json:"token_id,omitempty"`
}

// IssueTokenResponse is the response body for POST /v1/authorities/{name}/tokens.
type IssueTokenResponse struct {
	Token       string     `json:"token"`
	TokenID     *string    `json:"token_id,omitempty"`
	ValidAt     *time.Time `json:"valid_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Fingerprint string     `json:"fingerprint"`
}

// ValidateTokenRequest is the request body for POST /v1/authorities/{name}/tokens/validate.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse is the response body for POST /v1/authorities/{name}/tokens/validate.
type ValidateTokenResponse struct {
	Valid       bool       `json:"valid"`
	Code        string     `json:"code,omitempty"`
	Message     string     `json:"message,omitempty"`
	TokenID     *string    `json:"token_id,omitempty"`
	TokenType   *string    `json:"token_type,omitempty"`
	ValidAt     *time.Time `json:"valid_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	PayloadKind string     `json:"payload_kind,omitempty"`
	Payload     any        `json:"payload,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
}

// RevokeRequest is the request body for POST /v1/revocations.
type RevokeRequest struct {
	Authority string     `json:"authority"`
	TokenID   string     `json:"token_id,omitempty"`
	Token     string     `json:"token,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
}

// RevokeResponse is the response body for POST /v1/revocations.
type RevokeResponse struct {
	TokenID string    `json:"token_id"`
	Until   time.Time `json:"until"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status        string   `json:"status"`
	Time          string   `json:"time"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Authorities   []string `json:"authorities"`
}

// AuthoritiesResponse is the response body for GET /v1/authorities.
type AuthoritiesResponse struct {
	Authorities []string `json:"authorities"`
}
