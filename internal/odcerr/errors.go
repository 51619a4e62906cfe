// Package odcerr provides the stable error taxonomy shared by every
// component of the orchestration core.
package odcerr

import (
	"errors"
	"fmt"
)

// Code is one of the stable error codes named in the request/response
// contract. Callers match on Code, not on message text.
type Code string

const (
	// Request lifecycle
	CodeRequestNotSupported Code = "RequestNotSupported"
	CodeRequestTimeout      Code = "RequestTimeout"

	// DDS
	CodeDDSCreateSessionFailed     Code = "DDSCreateSessionFailed"
	CodeDDSAttachToSessionFailed   Code = "DDSAttachToSessionFailed"
	CodeDDSCommanderInfoFailed     Code = "DDSCommanderInfoFailed"
	CodeDDSSubmitAgentsFailed      Code = "DDSSubmitAgentsFailed"
	CodeDDSActivateTopologyFailed  Code = "DDSActivateTopologyFailed"
	CodeDDSCreateTopologyFailed    Code = "DDSCreateTopologyFailed"
	CodeDDSSubscribeToSessionFailed Code = "DDSSubscribeToSessionFailed"
	CodeDDSShutdownSessionFailed   Code = "DDSShutdownSessionFailed"

	// Device topology
	CodeFairMQCreateTopologyFailed       Code = "FairMQCreateTopologyFailed"
	CodeFairMQChangeStateFailed          Code = "FairMQChangeStateFailed"
	CodeFairMQWaitForStateFailed         Code = "FairMQWaitForStateFailed"
	CodeFairMQGetStateFailed             Code = "FairMQGetStateFailed"
	CodeFairMQSetPropertiesFailed        Code = "FairMQSetPropertiesFailed"
	CodeDeviceChangeStateInvalidTransition Code = "DeviceChangeStateInvalidTransition"

	// Orchestration
	CodeTopologyFailed      Code = "TopologyFailed"
	CodeResourcePluginFailed Code = "ResourcePluginFailed"
	CodeOperationTimeout    Code = "OperationTimeout"

	// Plugin runner (not part of the user-visible RequestResult taxonomy,
	// surfaced internally and mapped to CodeResourcePluginFailed at the
	// component boundary)
	CodePluginFailed  Code = "PluginFailed"
	CodePluginTimeout Code = "PluginTimeout"
)

// Error is a structured error carrying a stable Code, a human message,
// optional key/value Details, and an optionally wrapped cause.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail attaches a key/value detail and returns the same error for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error wrapping an existing cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// As extracts an *Error from err's chain, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the Code carried by err, or "" if err does not carry one.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// IsTimeout reports whether err is (or wraps) a timeout-flavored error.
func IsTimeout(err error) bool {
	switch CodeOf(err) {
	case CodeRequestTimeout, CodeOperationTimeout, CodePluginTimeout:
		return true
	default:
		return false
	}
}
