// Package base gives every tool in internal/tools/* the plumbing
// mcp.Tool demands (Name/Description/InputSchema/Execute) so each tool
// file only has to supply its name, its schema, and its Handler.
package base

import (
	"context"
	"encoding/json"

	"github.com/docsmith/docsmith/internal/dispatch"
	"github.com/docsmith/docsmith/internal/mcp"
)

// Tool is a ready-made mcp.Tool built around a dispatch.Handler.
type Tool struct {
	name        string
	description string
	schema      json.RawMessage
	dispatcher  *dispatch.Dispatcher
	handler     dispatch.Handler
}

// New builds a Tool. schema must be a valid JSON Schema object literal.
func New(name, description string, schema json.RawMessage, dispatcher *dispatch.Dispatcher, handler dispatch.Handler) *Tool {
	return &Tool{
		name:        name,
		description: description,
		schema:      schema,
		dispatcher:  dispatcher,
		handler:     handler,
	}
}

func (t *Tool) Name() string                { return t.name }
func (t *Tool) Description() string         { return t.description }
func (t *Tool) InputSchema() json.RawMessage { return t.schema }

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	return t.dispatcher.Dispatch(ctx, t.name, params, t.handler)
}
