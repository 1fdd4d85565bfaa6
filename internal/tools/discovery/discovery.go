// Package discovery implements the token-optional tool-call surface:
// ping, help, and the asset listing/detail tools. Every tool here
// resolves against the caller's own acting group (public when no
// credential was supplied) rather than forcing a fixed group, so an
// authenticated caller sees their tenant's own catalogue.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/assets"
	"github.com/docsmith/docsmith/internal/dispatch"
	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/mcp"
	"github.com/docsmith/docsmith/internal/plot"
	"github.com/docsmith/docsmith/internal/tools/base"
	"github.com/docsmith/docsmith/internal/values"
)

// templateSummary is the slim shape list_templates returns; full detail
// (including the fragment menu) comes from get_template_details.
type templateSummary struct {
	TemplateID  string `json:"template_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func idArg(payload values.Map, key string) (string, error) {
	v, ok := payload[key].(string)
	if !ok || v == "" {
		return "", apperr.New(apperr.InvalidArguments,
			fmt.Sprintf("%q is required", key),
			fmt.Sprintf("include a non-empty %q string argument", key))
	}
	return v, nil
}

const idSchema = `{"type":"object","properties":{"%s":{"type":"string"}},"required":["%s"]}`

// Register wires every discovery tool into registry.
func Register(registry *mcp.Registry, dispatcher *dispatch.Dispatcher, catalogue *assets.Catalogue) {
	registry.Register(base.New("ping", "Health check; always succeeds.",
		json.RawMessage(`{"type":"object","properties":{}}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			return map[string]any{"pong": true}, "", nil
		}))

	registry.Register(base.New("help", "Describes the tool-call surface and where to start.",
		json.RawMessage(`{"type":"object","properties":{}}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			return map[string]any{
				"summary": "Create a document session from a template, set its global parameters, " +
					"add fragments, then render it via get_document.",
				"discovery": []string{"ping", "help", "list_templates", "get_template_details", "list_template_fragments", "get_fragment_details", "list_styles", "list_themes", "list_handlers"},
				"sessions":  []string{"create_document_session", "get_session_status", "list_active_sessions", "abort_document_session"},
				"authoring": []string{"validate_parameters", "set_global_parameters", "add_fragment", "add_image_fragment", "add_plot_fragment", "remove_fragment", "list_session_fragments"},
				"rendering": []string{"get_document"},
				"plot":      []string{"render_graph", "get_image", "list_images"},
			}, "", nil
		}))

	registry.Register(base.New("list_templates", "Lists every template visible to the caller's group.",
		json.RawMessage(`{"type":"object","properties":{}}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			templates := catalogue.Templates.List(docmodel.Group(group))
			out := make([]templateSummary, 0, len(templates))
			for _, t := range templates {
				out = append(out, templateSummary{TemplateID: t.ID, Name: t.Name, Description: t.Description})
			}
			return map[string]any{"templates": out}, "", nil
		}))

	registry.Register(base.New("get_template_details", "Returns a template's full definition, including its fragment-type menu.",
		json.RawMessage(fmt.Sprintf(idSchema, "template_id", "template_id")), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			id, err := idArg(payload, "template_id")
			if err != nil {
				return nil, "", err
			}
			tmpl, ok := catalogue.Templates.Get(docmodel.Group(group), id)
			if !ok {
				return nil, "", apperr.New(apperr.TemplateNotFound,
					fmt.Sprintf("template %q not found", id),
					"call list_templates to see available template_id values")
			}
			return tmpl, "", nil
		}))

	registry.Register(base.New("list_template_fragments", "Lists the fragment types a template declares.",
		json.RawMessage(fmt.Sprintf(idSchema, "template_id", "template_id")), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			id, err := idArg(payload, "template_id")
			if err != nil {
				return nil, "", err
			}
			tmpl, ok := catalogue.Templates.Get(docmodel.Group(group), id)
			if !ok {
				return nil, "", apperr.New(apperr.TemplateNotFound,
					fmt.Sprintf("template %q not found", id),
					"call list_templates to see available template_id values")
			}
			out := make([]docmodel.FragmentType, 0, len(tmpl.Fragments))
			for _, ft := range tmpl.Fragments {
				out = append(out, ft)
			}
			return map[string]any{"fragments": out}, "", nil
		}))

	registry.Register(base.New("get_fragment_details", "Returns a standalone fragment's full definition.",
		json.RawMessage(fmt.Sprintf(idSchema, "fragment_id", "fragment_id")), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			id, err := idArg(payload, "fragment_id")
			if err != nil {
				return nil, "", err
			}
			frag, ok := catalogue.Fragments.Get(docmodel.Group(group), id)
			if !ok {
				return nil, "", apperr.New(apperr.FragmentNotFound,
					fmt.Sprintf("fragment %q not found", id),
					"call list_template_fragments or inspect a template's fragment menu for valid fragment_id values")
			}
			return frag, "", nil
		}))

	registry.Register(base.New("list_styles", "Lists every style visible to the caller's group.",
		json.RawMessage(`{"type":"object","properties":{}}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			return map[string]any{"styles": catalogue.Styles.List(docmodel.Group(group))}, "", nil
		}))

	registry.Register(base.New("list_themes", "Lists the named colour themes available to render_graph.",
		json.RawMessage(`{"type":"object","properties":{}}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			return map[string]any{"themes": plot.ThemeNames()}, "", nil
		}))

	registry.Register(base.New("list_handlers", "Lists the output formats get_document and the HTTP render endpoint can produce.",
		json.RawMessage(`{"type":"object","properties":{}}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			return map[string]any{"formats": []string{"html", "pdf", "markdown"}}, "", nil
		}))
}
