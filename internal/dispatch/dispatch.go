// Package dispatch provides the uniform tool-call envelope every MCP
// tool in this module shares (the HTTP surface in internal/httpapi
// builds its own envelope of the same shape): argument decoding,
// auth-gate enforcement, ambient group injection, and the
// {status:"success"|"error", ...} response shape.
package dispatch

import (
	"context"
	"encoding/json"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/auth"
	"github.com/docsmith/docsmith/internal/mcp"
	"github.com/docsmith/docsmith/internal/values"
)

// GroupField is the payload key the dispatcher writes the acting group
// into, overwriting whatever the caller supplied.
const GroupField = "group"

// Handler is the business logic for one tool: it receives the
// authenticated group and the validated payload (group already
// injected) and returns the data to embed in a success envelope, an
// optional human message, or an error.
type Handler func(ctx context.Context, group string, payload values.Map) (data any, message string, err error)

// SuccessEnvelope is the {status:"success",...} response shape.
type SuccessEnvelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// ErrorEnvelope is the {status:"error",...} response shape.
type ErrorEnvelope struct {
	Status           string         `json:"status"`
	ErrorCode        apperr.Code    `json:"error_code"`
	Message          string         `json:"message"`
	RecoveryStrategy string         `json:"recovery_strategy"`
	Details          map[string]any `json:"details,omitempty"`
}

// Dispatcher ties an AuthGate to every tool invocation.
type Dispatcher struct {
	gate *auth.Gate
}

// New builds a Dispatcher around gate.
func New(gate *auth.Gate) *Dispatcher {
	return &Dispatcher{gate: gate}
}

// Dispatch decodes rawArgs, authenticates the call, injects the acting
// group, and runs handler, rendering its outcome as a ToolsCallResult.
// Dispatch itself never returns a Go error for a business-rule failure
// or for unparseable arguments — each is an error envelope inside a
// successful MCP result — it only returns an error when the result
// itself cannot be marshalled.
func (d *Dispatcher) Dispatch(ctx context.Context, toolName string, rawArgs json.RawMessage, handler Handler) (*mcp.ToolsCallResult, error) {
	payload, err := values.DecodeMap(rawArgs)
	if err != nil {
		return errorResult(apperr.New(apperr.InvalidArguments,
			"tool arguments were not valid JSON: "+err.Error(),
			"send a JSON object matching the tool's inputSchema"))
	}

	group, err := d.gate.Authenticate(ctx, toolName, payload)
	if err != nil {
		return errorResult(err)
	}

	payload[GroupField] = group

	data, message, err := handler(ctx, group, payload)
	if err != nil {
		return errorResult(err)
	}

	return mcp.JSONResult(SuccessEnvelope{Status: "success", Data: data, Message: message})
}

func errorResult(err error) (*mcp.ToolsCallResult, error) {
	appErr, ok := err.(*apperr.Error)
	if !ok {
		appErr = apperr.Unexpected(err)
	}
	result, marshalErr := mcp.JSONResult(ErrorEnvelope{
		Status:           "error",
		ErrorCode:        appErr.Code,
		Message:          appErr.Message,
		RecoveryStrategy: appErr.Recovery,
		Details:          appErr.Details,
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	result.IsError = true
	return result, nil
}
