package dlmcp

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/txn2/devlog/pkg/dlclient"
)

// MCPError represents a structured error response for MCP tools.
// It tells an agent what went wrong and which tool call may fix it.
type MCPError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Diagnosis explains the likely cause
	Diagnosis string `json:"diagnosis,omitempty"`

	// SuggestedActions lists recommended next steps with tool calls
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`

	// RetryRecommended indicates if retrying might help
	RetryRecommended bool `json:"retry_recommended"`
}

// SuggestedAction represents a recommended action to resolve an error
type SuggestedAction struct {
	Action string                 `json:"action"`
	Params map[string]interface{} `json:"params,omitempty"`
	Hint   string                 `json:"hint,omitempty"`
}

// Error implements the error interface
func (e *MCPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes
const (
	ErrCodeAPIUnavailable  = "api_unavailable"
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeInvalidInput    = "invalid_input"
	ErrCodeAPIError        = "api_error"
)

// NewAPIUnavailableError is returned when the devlog server cannot be reached
func NewAPIUnavailableError(apiURL string, cause error) *MCPError {
	return &MCPError{
		Code:      ErrCodeAPIUnavailable,
		Message:   fmt.Sprintf("Cannot reach devlog server at %s: %v", apiURL, cause),
		Diagnosis: "The devlog server is not running or is listening on a different address",
		SuggestedActions: []SuggestedAction{
			{Action: "get_health", Hint: "Check again once the server has been started with 'devlog serve'"},
		},
		RetryRecommended: true,
	}
}

// NewChannelNotFoundError is returned for an unknown channel id
func NewChannelNotFoundError(id string) *MCPError {
	return &MCPError{
		Code:      ErrCodeChannelNotFound,
		Message:   fmt.Sprintf("Channel %s not found", id),
		Diagnosis: "Channel ids are platform ids seeded from the server configuration",
		SuggestedActions: []SuggestedAction{
			{Action: "list_channels", Hint: "List known channels and their ids"},
		},
	}
}

// NewInvalidInputError is returned when a tool argument is unusable
func NewInvalidInputError(field, value, requirement string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("Invalid %s %q: %s", field, value, requirement),
	}
}

// classifyError maps a client error to an MCPError
func classifyError(err error, apiURL, channelID string) *MCPError {
	if dlclient.IsNotFound(err) && channelID != "" {
		return NewChannelNotFoundError(channelID)
	}
	if apiErr, ok := errors.Cause(err).(*dlclient.APIError); ok {
		return &MCPError{
			Code:             ErrCodeAPIError,
			Message:          apiErr.Error(),
			RetryRecommended: apiErr.StatusCode >= 500,
		}
	}
	return NewAPIUnavailableError(apiURL, err)
}
