package handlers

import (
	"github.com/vzahanych/city-weather/internal/server/utils"
)

// WeatherRequest is the query of GET /weather. The city is passed to the
// upstream API verbatim.
type WeatherRequest struct {
	City string `form:"city" json:"city" validate:"required,notblank,max=200"`
}

type ErrorResponse struct {
	Error      string                  `json:"error"`
	Code       string                  `json:"code,omitempty"`
	Details    string                  `json:"details,omitempty"`
	Validation []utils.ValidationError `json:"validation,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp,omitempty"`
}

const (
	CodeInvalidParams       = "INVALID_PARAMS"
	CodeRemoteError         = "REMOTE_ERROR"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeDecodeError         = "DECODE_ERROR"
	CodeMalformedRequest    = "MALFORMED_REQUEST"
)
