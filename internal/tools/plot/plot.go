// Package plot implements the three standalone charting tools:
// render_graph, get_image, list_images. add_plot_fragment, which also
// touches plot.Service, lives in internal/tools/authoring alongside
// the other fragment-adding tools.
package plot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/dispatch"
	"github.com/docsmith/docsmith/internal/mcp"
	"github.com/docsmith/docsmith/internal/plot"
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

// Register wires render_graph, get_image, and list_images into registry.
func Register(registry *mcp.Registry, dispatcher *dispatch.Dispatcher, service *plot.Service) {
	registry.Register(base.New("render_graph",
		"Renders a bar, line, or scatter chart from one or more data series and stores it for later retrieval.",
		json.RawMessage(`{
  "type": "object",
  "properties": {
    "kind": {"type": "string", "enum": ["bar", "line", "scatter"]},
    "title": {"type": "string"},
    "x_label": {"type": "string"},
    "y_label": {"type": "string"},
    "series": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "x": {"type": "array", "items": {"type": "number"}},
          "y": {"type": "array", "items": {"type": "number"}},
          "color": {"type": "string"}
        },
        "required": ["name", "y"]
      }
    },
    "theme": {"type": "string"},
    "format": {"type": "string"},
    "return_base64": {"type": "boolean"},
    "proxy": {"type": "boolean"},
    "alias": {"type": "string"},
    "alpha": {"type": "number", "minimum": 0, "maximum": 1, "description": "Fill/stroke opacity of every series mark, 0.0-1.0. Defaults to 1.0."}
  },
  "required": ["kind", "series"]
}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			raw, err := json.Marshal(map[string]any(payload))
			if err != nil {
				return nil, "", apperr.Unexpected(err)
			}
			var params plot.GraphParams
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, "", apperr.New(apperr.InvalidGraphParams,
					"could not decode chart parameters: "+err.Error(),
					"check kind, title, and series")
			}

			result, err := service.RenderGraph(ctx, group, params)
			if err != nil {
				return nil, "", err
			}

			data := map[string]any{
				"content_type": result.ContentType,
				"proxied":      result.Proxied,
			}
			if result.Proxied {
				data["plot_guid"] = result.ProxyGUID
			}
			if result.Base64 != "" {
				data["image_base64"] = result.Base64
			}
			return data, "", nil
		}))

	registry.Register(base.New("get_image",
		"Retrieves a previously rendered or uploaded image by its GUID or alias.",
		json.RawMessage(`{
  "type": "object",
  "properties": {"identifier": {"type": "string"}},
  "required": ["identifier"]
}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			identifier, err := requireString(payload, "identifier")
			if err != nil {
				return nil, "", err
			}
			dataURI, err := service.GetImageAsDataURI(identifier, group)
			if err != nil {
				return nil, "", err
			}
			return map[string]any{"data_uri": dataURI}, "", nil
		}))

	registry.Register(base.New("list_images",
		"Lists the GUIDs of every image stored for the caller's group.",
		json.RawMessage(`{"type": "object", "properties": {}}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			return map[string]any{"images": service.ListImages(group)}, "", nil
		}))
}
