// Package rendering implements the get_document tool: assembling a
// ready session into HTML, PDF, or Markdown via rendering.Engine.
package rendering

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/dispatch"
	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/mcp"
	"github.com/docsmith/docsmith/internal/rendering"
	"github.com/docsmith/docsmith/internal/sessionmgr"
	"github.com/docsmith/docsmith/internal/tools/base"
	"github.com/docsmith/docsmith/internal/values"
)

func requireString(payload values.Map, key string) (string, error) {
	v, ok := payload[key].(string)
	if !ok || v == "" {
		return "", apperr.New(apperr.InvalidArguments,
			fmt.Sprintf("%q is required", key),
			fmt.Sprintf("include a non-empty %q argument", key))
	}
	return v, nil
}

// Register wires get_document into registry.
func Register(registry *mcp.Registry, dispatcher *dispatch.Dispatcher, manager *sessionmgr.Manager, engine *rendering.Engine) {
	registry.Register(base.New("get_document",
		"Renders a ready session to HTML, PDF, or Markdown, either inline or as a proxied blob GUID.",
		json.RawMessage(`{
  "type": "object",
  "properties": {
    "session_id": {"type": "string"},
    "format": {"type": "string", "enum": ["html", "pdf", "markdown"], "description": "Default 'html'"},
    "style_id": {"type": "string", "description": "Defaults to the group's default style"},
    "proxy": {"type": "boolean", "description": "Return a blob GUID instead of inline content. Default false"}
  },
  "required": ["session_id"]
}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			identifier, err := requireString(payload, "session_id")
			if err != nil {
				return nil, "", err
			}
			session, err := manager.ResolveIdentifier(ctx, docmodel.Group(group), identifier)
			if err != nil {
				return nil, "", err
			}
			if _, err := manager.ValidateForRender(ctx, docmodel.Group(group), session.SessionID); err != nil {
				return nil, "", err
			}

			format := rendering.FormatHTML
			if f, ok := payload["format"].(string); ok && f != "" {
				format = rendering.Format(f)
			}
			// An empty style_id asks Engine.RenderDocument to resolve the
			// group's default style rather than naming one explicitly.
			styleID, _ := payload["style_id"].(string)
			proxy, _ := payload["proxy"].(bool)

			result, err := engine.RenderDocument(ctx, session, format, styleID, proxy)
			if err != nil {
				return nil, "", err
			}

			data := map[string]any{
				"session_id":   result.SessionID,
				"format":       result.Format,
				"style_id":     result.StyleID,
				"content_type": result.ContentType,
				"proxied":      result.Proxied,
			}
			if result.Proxied {
				data["proxy_guid"] = result.ProxyGUID
			} else {
				data["content"] = string(result.Content)
			}
			return data, "", nil
		}))
}
