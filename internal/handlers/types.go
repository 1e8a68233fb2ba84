package handlers

import (
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// ClickRequest is the request body for registering a click.
type ClickRequest struct {
	Body struct {
		Mode             string `doc:"Counter update mode"                                      enum:"increment,absolute" example:"increment" json:"mode,omitempty"`
		Value            *int64 `doc:"Target value for absolute mode"                           example:"42"              json:"value,omitempty"`
		ExpectedPrevious *int64 `doc:"Expected previous value; makes an absolute set guarded"   example:"41"              json:"expectedPrevious,omitempty"`
	}
}

// ClickResponse is the response for an admitted click.
type ClickResponse struct {
	Body struct {
		Count           int64 `doc:"Global click count after the update" example:"1337" json:"count"`
		UserClicks      int64 `doc:"Clicks by this client in the current window" example:"3" json:"userClicks"`
		ClicksRemaining int64 `doc:"Quota left in the current window" example:"7" json:"clicksRemaining"`
	}
}

// CountResponse is the response for reading the global counter.
type CountResponse struct {
	Body struct {
		Count int64 `doc:"Current global click count" example:"1337" json:"count"`
	}
}

// RateLimitedError is the 429 response. Clients depend on the error and
// retryAfter body fields, so the body is this struct rather than the
// default problem shape; the Retry-After header carries the same value.
type RateLimitedError struct {
	Reason     string `doc:"Short error label"                example:"Too many requests" json:"error"`
	Message    string `doc:"Human-readable detail"            json:"message"`
	RetryAfter int64  `doc:"Seconds to wait before retrying"  example:"42"                json:"retryAfter"`
}

func (e *RateLimitedError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *RateLimitedError) GetStatus() int {
	return http.StatusTooManyRequests
}

// GetHeaders implements huma.HeadersError.
func (e *RateLimitedError) GetHeaders() http.Header {
	return http.Header{"Retry-After": []string{strconv.FormatInt(e.RetryAfter, 10)}}
}

// Compile-time checks.
var (
	_ huma.StatusError  = (*RateLimitedError)(nil)
	_ huma.HeadersError = (*RateLimitedError)(nil)
)
