// Package authoring implements the tools that build up a document
// session's content: parameter validation, global parameters, and the
// three fragment-adding tools (plain, image-from-URL, and
// plot-embedding).
package authoring

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/assets"
	"github.com/docsmith/docsmith/internal/dispatch"
	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/mcp"
	"github.com/docsmith/docsmith/internal/plot"
	"github.com/docsmith/docsmith/internal/sessionmgr"
	"github.com/docsmith/docsmith/internal/tools/base"
	"github.com/docsmith/docsmith/internal/validation"
	"github.com/docsmith/docsmith/internal/values"
)

// imageFragmentID is the conventional fragment_id every group's
// template declares for an image embedded from a URL (direct upload or
// a rendered plot); both add_image_fragment and add_plot_fragment
// target it.
const imageFragmentID = "image_from_url"

func requireString(payload values.Map, key string) (string, error) {
	v, ok := payload[key].(string)
	if !ok || v == "" {
		return "", apperr.New(apperr.InvalidArguments,
			fmt.Sprintf("%q is required", key),
			fmt.Sprintf("include a non-empty %q argument", key))
	}
	return v, nil
}

func optionalString(payload values.Map, key string) string {
	v, _ := payload[key].(string)
	return v
}

func optionalBool(payload values.Map, key string, fallback bool) bool {
	v, ok := payload[key].(bool)
	if !ok {
		return fallback
	}
	return v
}

func parametersArg(payload values.Map) values.Map {
	m, ok := payload["parameters"].(map[string]any)
	if !ok {
		return values.Map{}
	}
	return values.Map(m)
}

// Register wires every authoring tool into registry.
func Register(registry *mcp.Registry, dispatcher *dispatch.Dispatcher, manager *sessionmgr.Manager, catalogue *assets.Catalogue, images *validation.ImageURLValidator, plots *plot.Service) {
	registry.Register(base.New("validate_parameters",
		"Validates a set of parameters against a template's global schema or one of its fragment schemas, without saving them.",
		json.RawMessage(`{
  "type": "object",
  "properties": {
    "template_id": {"type": "string"},
    "parameter_type": {"type": "string", "enum": ["global", "fragment"]},
    "fragment_id": {"type": "string", "description": "Required when parameter_type is 'fragment'"},
    "parameters": {"type": "object"}
  },
  "required": ["template_id", "parameter_type", "parameters"]
}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			templateID, err := requireString(payload, "template_id")
			if err != nil {
				return nil, "", err
			}
			parameterType, err := requireString(payload, "parameter_type")
			if err != nil {
				return nil, "", err
			}
			tmpl, ok := catalogue.Templates.Get(docmodel.Group(group), templateID)
			if !ok {
				return nil, "", apperr.New(apperr.TemplateNotFound,
					fmt.Sprintf("template %q not found", templateID),
					"call list_templates to see templates available in your group")
			}

			var schema docmodel.ParameterSchema
			var schemaOwner string
			switch parameterType {
			case "global":
				schema = tmpl.GlobalParameters
				schemaOwner = templateID
			case "fragment":
				fragmentID, err := requireString(payload, "fragment_id")
				if err != nil {
					return nil, "", err
				}
				fragType, ok := tmpl.Fragments[fragmentID]
				if !ok {
					return nil, "", apperr.New(apperr.FragmentNotFound,
						fmt.Sprintf("fragment %q not declared by template %q", fragmentID, templateID),
						"call list_template_fragments to see valid fragment_id values")
				}
				schema = fragType.Parameters
				schemaOwner = fragmentID
			default:
				return nil, "", apperr.New(apperr.InvalidArguments,
					fmt.Sprintf("unknown parameter_type %q", parameterType),
					`use "global" or "fragment"`)
			}

			ok, errs := assets.ValidateParameters(schemaOwner, schema, parametersArg(payload))
			return map[string]any{"valid": ok, "errors": errs}, "", nil
		}))

	registry.Register(base.New("set_global_parameters",
		"Sets a session's global (document-level) parameters, replacing any previous value.",
		json.RawMessage(`{
  "type": "object",
  "properties": {
    "session_id": {"type": "string"},
    "parameters": {"type": "object"}
  },
  "required": ["session_id", "parameters"]
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
			updated, err := manager.SetGlobalParameters(ctx, docmodel.Group(group), session.SessionID, parametersArg(payload))
			if err != nil {
				return nil, "", err
			}
			return map[string]any{"session_id": updated.SessionID}, "global parameters set", nil
		}))

	registry.Register(base.New("add_fragment",
		"Adds a fragment instance to a session at the given position.",
		json.RawMessage(`{
  "type": "object",
  "properties": {
    "session_id": {"type": "string"},
    "fragment_id": {"type": "string"},
    "parameters": {"type": "object"},
    "position": {"type": "string", "description": "'start', 'end' (default), 'before:<guid>', or 'after:<guid>'"}
  },
  "required": ["session_id", "fragment_id"]
}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			identifier, err := requireString(payload, "session_id")
			if err != nil {
				return nil, "", err
			}
			fragmentID, err := requireString(payload, "fragment_id")
			if err != nil {
				return nil, "", err
			}
			position := optionalString(payload, "position")
			if position == "" {
				position = "end"
			}
			session, err := manager.ResolveIdentifier(ctx, docmodel.Group(group), identifier)
			if err != nil {
				return nil, "", err
			}
			_, instance, err := manager.AddFragment(ctx, docmodel.Group(group), session.SessionID, fragmentID, parametersArg(payload), position)
			if err != nil {
				return nil, "", err
			}
			return map[string]any{"fragment_instance_guid": instance.FragmentInstanceGUID}, "fragment added", nil
		}))

	registry.Register(base.New("add_image_fragment",
		"Adds an image fragment sourced from a URL. The URL is validated (HTTPS, reachability, "+
			"content-type, size) before the fragment is added; the image is best-effort downloaded "+
			"and embedded as a base64 data URI, falling back to URL-only mode if the download fails.",
		json.RawMessage(`{
  "type": "object",
  "properties": {
    "session_id": {"type": "string"},
    "image_url": {"type": "string"},
    "require_https": {"type": "boolean", "description": "Default true"},
    "title": {"type": "string"},
    "alt_text": {"type": "string"},
    "alignment": {"type": "string", "description": "Default 'center'"},
    "width": {"type": "number"},
    "height": {"type": "number"},
    "position": {"type": "string"}
  },
  "required": ["session_id", "image_url"]
}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			identifier, err := requireString(payload, "session_id")
			if err != nil {
				return nil, "", err
			}
			imageURL, err := requireString(payload, "image_url")
			if err != nil {
				return nil, "", err
			}
			session, err := manager.ResolveIdentifier(ctx, docmodel.Group(group), identifier)
			if err != nil {
				return nil, "", err
			}

			requireHTTPS := optionalBool(payload, "require_https", true)
			info, verr := images.ValidateImageURLDetailed(ctx, imageURL, requireHTTPS)
			if verr != nil {
				return nil, "", verr
			}

			fragmentParameters := values.Map{
				"image_url":     imageURL,
				"validated_at":  time.Now().UTC().Format(time.RFC3339),
				"content_type":  info.ContentType,
				"require_https": requireHTTPS,
				"alt_text":      firstNonEmpty(optionalString(payload, "alt_text"), optionalString(payload, "title"), "Image"),
				"alignment":     firstNonEmpty(optionalString(payload, "alignment"), "center"),
			}
			if info.ContentLength > 0 {
				fragmentParameters["content_length"] = info.ContentLength
			}
			if title := optionalString(payload, "title"); title != "" {
				fragmentParameters["title"] = title
			}
			if w, ok := payload["width"].(float64); ok {
				fragmentParameters["width"] = w
			}
			if h, ok := payload["height"].(float64); ok {
				fragmentParameters["height"] = h
			}

			// Best-effort embed: a download failure here degrades to
			// URL-only mode rather than failing the whole operation.
			if dataURI, embedErr := images.EmbedAsDataURI(ctx, imageURL, info.ContentType); embedErr == nil {
				fragmentParameters["embedded_data_uri"] = dataURI
			}

			position := optionalString(payload, "position")
			if position == "" {
				position = "end"
			}
			_, instance, err := manager.AddFragment(ctx, docmodel.Group(group), session.SessionID, imageFragmentID, fragmentParameters, position)
			if err != nil {
				return nil, "", err
			}
			return map[string]any{"fragment_instance_guid": instance.FragmentInstanceGUID}, "image fragment added", nil
		}))

	registry.Register(base.New("add_plot_fragment",
		"Embeds a chart in a session: either a previously rendered plot (plot_guid) or an "+
			"inline chart description (kind, series, ...), rendered on the fly.",
		json.RawMessage(`{
  "type": "object",
  "properties": {
    "session_id": {"type": "string"},
    "plot_guid": {"type": "string", "description": "GUID of a previously rendered plot; mutually exclusive with the inline fields below"},
    "kind": {"type": "string", "enum": ["bar", "line", "scatter"]},
    "title": {"type": "string"},
    "x_label": {"type": "string"},
    "y_label": {"type": "string"},
    "series": {"type": "array"},
    "theme": {"type": "string"},
    "alpha": {"type": "number", "minimum": 0, "maximum": 1, "description": "Fill/stroke opacity of every series mark, 0.0-1.0. Defaults to 1.0."},
    "position": {"type": "string"}
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

			var dataURI string
			title := optionalString(payload, "title")

			if guid := optionalString(payload, "plot_guid"); guid != "" {
				dataURI, err = plots.GetImageAsDataURI(guid, group)
				if err != nil {
					return nil, "", err
				}
				if title == "" {
					title = fmt.Sprintf("Plot %s", guid)
				}
			} else {
				if title == "" {
					return nil, "", apperr.New(apperr.InvalidGraphParams,
						`"title" is required when plot_guid is not supplied`,
						`provide "title" and "series", or use "plot_guid" to embed an existing plot`)
				}
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
				result, err := plots.RenderGraph(ctx, group, params)
				if err != nil {
					return nil, "", err
				}
				encoded, err := plots.GetImageAsDataURI(result.ProxyGUID, group)
				if err == nil {
					dataURI = encoded
				} else {
					dataURI = "data:" + result.ContentType + ";base64," + base64.StdEncoding.EncodeToString(result.ImageBytes)
				}
			}

			fragmentParameters := values.Map{
				"embedded_data_uri": dataURI,
				"title":             title,
				"alt_text":          title,
				"alignment":         "center",
			}
			position := optionalString(payload, "position")
			if position == "" {
				position = "end"
			}
			_, instance, err := manager.AddFragment(ctx, docmodel.Group(group), session.SessionID, imageFragmentID, fragmentParameters, position)
			if err != nil {
				return nil, "", err
			}
			return map[string]any{"fragment_instance_guid": instance.FragmentInstanceGUID}, "plot fragment added", nil
		}))

	registry.Register(base.New("remove_fragment",
		"Removes a fragment instance from a session by its GUID.",
		json.RawMessage(`{
  "type": "object",
  "properties": {
    "session_id": {"type": "string"},
    "fragment_instance_guid": {"type": "string"}
  },
  "required": ["session_id", "fragment_instance_guid"]
}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			identifier, err := requireString(payload, "session_id")
			if err != nil {
				return nil, "", err
			}
			guid, err := requireString(payload, "fragment_instance_guid")
			if err != nil {
				return nil, "", err
			}
			session, err := manager.ResolveIdentifier(ctx, docmodel.Group(group), identifier)
			if err != nil {
				return nil, "", err
			}
			if _, err := manager.RemoveFragment(ctx, docmodel.Group(group), session.SessionID, guid); err != nil {
				return nil, "", err
			}
			return map[string]any{"session_id": session.SessionID}, "fragment removed", nil
		}))

	registry.Register(base.New("list_session_fragments",
		"Lists a session's fragments in render order.",
		json.RawMessage(`{
  "type": "object",
  "properties": {"session_id": {"type": "string"}},
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
			summaries, err := manager.ListSessionFragments(ctx, docmodel.Group(group), session.SessionID)
			if err != nil {
				return nil, "", err
			}
			return map[string]any{"fragments": summaries}, "", nil
		}))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
